// Package translate contains tests for the translation engine.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// parseTranslations
// ---------------------------------------------------------------------------

func TestParseTranslations_PlainArray(t *testing.T) {
	raw := `["Сохранить", "Отмена"]`

	result, err := parseTranslations(raw, 2)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if result[0] != "Сохранить" || result[1] != "Отмена" {
		t.Errorf("got %v", result)
	}
}

func TestParseTranslations_StripsMarkdownCodeBlock(t *testing.T) {
	raw := "```json\n[\"Привет\"]\n```"

	result, err := parseTranslations(raw, 1)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if result[0] != "Привет" {
		t.Errorf("got %q", result[0])
	}
}

func TestParseTranslations_ChatterAroundArray(t *testing.T) {
	raw := "Here are the translations:\n[\"Да\", \"Нет\"]\nLet me know if you need more."

	result, err := parseTranslations(raw, 2)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if result[0] != "Да" || result[1] != "Нет" {
		t.Errorf("got %v", result)
	}
}

func TestParseTranslations_CountMismatchIsUnparseable(t *testing.T) {
	raw := `["только одна"]`

	_, err := parseTranslations(raw, 2)
	if !errors.Is(err, ErrUnparseable) {
		t.Errorf("expected ErrUnparseable, got %v", err)
	}
}

func TestParseTranslations_ProseIsUnparseable(t *testing.T) {
	raw := "I am unable to translate these strings."

	_, err := parseTranslations(raw, 3)
	if !errors.Is(err, ErrUnparseable) {
		t.Errorf("expected ErrUnparseable, got %v", err)
	}
}

func TestParseTranslations_ObjectIsUnparseable(t *testing.T) {
	// A JSON object instead of the requested array
	raw := `{"1": "Сохранить", "2": "Отмена"}`

	_, err := parseTranslations(raw, 2)
	if !errors.Is(err, ErrUnparseable) {
		t.Errorf("expected ErrUnparseable, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// parseReviewFixes
// ---------------------------------------------------------------------------

func TestParseReviewFixes_EmptyObject(t *testing.T) {
	fixes, err := parseReviewFixes(`{}`)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(fixes) != 0 {
		t.Errorf("got %v, want no fixes", fixes)
	}
}

func TestParseReviewFixes_Corrections(t *testing.T) {
	raw := `{"common.cancel": {"translation": "Отменить", "issue": "imperative reads better"}}`

	fixes, err := parseReviewFixes(raw)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	fix, ok := fixes["common.cancel"]
	if !ok {
		t.Fatalf("missing fix, got %v", fixes)
	}
	if fix.Translation != "Отменить" {
		t.Errorf("translation = %q", fix.Translation)
	}
	if fix.Issue != "imperative reads better" {
		t.Errorf("issue = %q", fix.Issue)
	}
}

func TestParseReviewFixes_SkipsEntriesWithoutTranslation(t *testing.T) {
	raw := `{
		"a": {"translation": "ок", "issue": "x"},
		"b": {"issue": "flagged but no replacement"},
		"c": "just a string"
	}`

	fixes, err := parseReviewFixes(raw)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(fixes) != 1 || fixes["a"].Translation != "ок" {
		t.Errorf("got %v, want only entry a", fixes)
	}
}

func TestParseReviewFixes_CurlyQuotes(t *testing.T) {
	// Typographic quotes around keys and values
	raw := "{“nav.home”: {“translation”: “Главная”, “issue”: “wrong case”}}"

	fixes, err := parseReviewFixes(raw)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if fixes["nav.home"].Translation != "Главная" {
		t.Errorf("got %v", fixes)
	}
}

func TestParseReviewFixes_StripsMarkdownAndChatter(t *testing.T) {
	raw := "After review:\n```json\n{\"k\": {\"translation\": \"Лучше так\", \"issue\": \"awkward\"}}\n```"

	fixes, err := parseReviewFixes(raw)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if fixes["k"].Translation != "Лучше так" {
		t.Errorf("got %v", fixes)
	}
}

func TestParseReviewFixes_ProseIsUnparseable(t *testing.T) {
	_, err := parseReviewFixes("All translations look fine to me.")
	if !errors.Is(err, ErrUnparseable) {
		t.Errorf("expected ErrUnparseable, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// extractResponseText
// ---------------------------------------------------------------------------

func TestExtractResponseText_OpenAIChat(t *testing.T) {
	body := `{"choices": [{"message": {"role": "assistant", "content": "hello"}}]}`

	text, err := extractResponseText([]byte(body))
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if text != "hello" {
		t.Errorf("got %q", text)
	}
}

func TestExtractResponseText_Gemini(t *testing.T) {
	body := `{"candidates": [{"content": {"parts": [{"text": "ответ"}]}}]}`

	text, err := extractResponseText([]byte(body))
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if text != "ответ" {
		t.Errorf("got %q", text)
	}
}

func TestExtractResponseText_SimpleResponseField(t *testing.T) {
	body := `{"response": "normalized"}`

	text, err := extractResponseText([]byte(body))
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if text != "normalized" {
		t.Errorf("got %q", text)
	}
}

func TestExtractResponseText_APIError(t *testing.T) {
	body := `{"error": {"message": "quota exceeded", "code": 429}}`

	_, err := extractResponseText([]byte(body))
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("expected quota error, got %v", err)
	}
}

func TestExtractResponseText_UnknownShape(t *testing.T) {
	_, err := extractResponseText([]byte(`{"something": "else"}`))
	if err == nil {
		t.Error("expected error for unknown response shape")
	}
}

// ---------------------------------------------------------------------------
// parseRetryDelay
// ---------------------------------------------------------------------------

func TestParseRetryDelay_GoogleRetryInfo(t *testing.T) {
	body := `{"error": {"details": [{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "30s"}]}}`

	d := parseRetryDelay([]byte(body))
	if d != 35*time.Second {
		t.Errorf("got %v, want 35s (30s + buffer)", d)
	}
}

func TestParseRetryDelay_Default(t *testing.T) {
	d := parseRetryDelay([]byte(`{"error": {"message": "rate limited"}}`))
	if d != 65*time.Second {
		t.Errorf("got %v, want 65s", d)
	}
}

// ---------------------------------------------------------------------------
// buildHTTPRequest
// ---------------------------------------------------------------------------

func TestBuildHTTPRequest_OpenAIChat(t *testing.T) {
	prov := Provider{
		ID:      ProviderGroq,
		BaseURL: "https://api.groq.com/openai/v1",
		APIKey:  "sk-test",
		Model:   "llama-3.3-70b",
	}

	endpoint, headers, body, err := buildHTTPRequest(prov, "sys", "user", formatOpenAIChat)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if endpoint != "https://api.groq.com/openai/v1/chat/completions" {
		t.Errorf("endpoint = %q", endpoint)
	}
	if headers["Authorization"] != "Bearer sk-test" {
		t.Errorf("Authorization = %q", headers["Authorization"])
	}

	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if req.Model != "llama-3.3-70b" {
		t.Errorf("model = %q", req.Model)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "user" {
		t.Errorf("messages = %+v", req.Messages)
	}
}

func TestBuildHTTPRequest_NoDoubleChatCompletions(t *testing.T) {
	prov := Provider{
		ID:      ProviderCustomOpenAI,
		BaseURL: "http://localhost:8080/v1/chat/completions",
		Model:   "local",
	}

	endpoint, _, _, err := buildHTTPRequest(prov, "s", "u", formatOpenAIChat)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if endpoint != "http://localhost:8080/v1/chat/completions" {
		t.Errorf("endpoint = %q", endpoint)
	}
}

func TestBuildHTTPRequest_Gemini(t *testing.T) {
	prov := Provider{
		ID:      ProviderGoogle,
		BaseURL: "https://generativelanguage.googleapis.com",
		APIKey:  "g-key",
		Model:   "gemini-2.5-flash",
	}

	endpoint, headers, body, err := buildHTTPRequest(prov, "sys", "user", formatGeminiNative)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	want := "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent"
	if endpoint != want {
		t.Errorf("endpoint = %q, want %q", endpoint, want)
	}
	if headers["x-goog-api-key"] != "g-key" {
		t.Errorf("x-goog-api-key = %q", headers["x-goog-api-key"])
	}
	if !strings.Contains(string(body), "systemInstruction") {
		t.Error("body should carry systemInstruction")
	}
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

func TestResolvedPrompt_ReplacesTargetLang(t *testing.T) {
	opts := Options{Language: "ru", LanguageName: "Russian (Русский)"}

	prompt := opts.resolvedPrompt()
	if strings.Contains(prompt, "{{targetLang}}") {
		t.Error("placeholder was not replaced")
	}
	if !strings.Contains(prompt, "Russian (Русский)") {
		t.Error("language name missing from prompt")
	}
}

func TestResolvedPrompt_FallsBackToRegistryName(t *testing.T) {
	opts := Options{Language: "de"}

	prompt := opts.resolvedPrompt()
	if !strings.Contains(prompt, "German") {
		t.Error("expected registry language name in prompt")
	}
}

func TestResolvedPrompt_ReviewType(t *testing.T) {
	opts := Options{Language: "fr", PromptType: "review"}

	prompt := opts.resolvedPrompt()
	if !strings.Contains(prompt, "localization QA specialist") {
		t.Error("expected the review prompt")
	}
}

func TestEffectiveChunkSize_Default(t *testing.T) {
	opts := Options{}
	if got := opts.effectiveChunkSize(); got != DefaultChunkSize {
		t.Errorf("got %d, want %d", got, DefaultChunkSize)
	}

	opts.ChunkSize = 10
	if got := opts.effectiveChunkSize(); got != 10 {
		t.Errorf("got %d, want 10", got)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestSplitBatch(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	chunks := splitBatch(items, 2)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if len(chunks[0]) != 2 || len(chunks[2]) != 1 {
		t.Errorf("chunk sizes: %d, %d, %d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}

	// Chunk size larger than input keeps one chunk
	chunks = splitBatch(items, 50)
	if len(chunks) != 1 || len(chunks[0]) != 5 {
		t.Errorf("got %d chunks", len(chunks))
	}
}

func TestEscapeForPrompt(t *testing.T) {
	got := escapeForPrompt("line one\nline two\ttabbed")
	want := `"line one\nline two\ttabbed"`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(fmt.Errorf("calling provider: %w", context.DeadlineExceeded)) {
		t.Error("wrapped DeadlineExceeded should be a timeout")
	}
	if !IsTimeout(&net.DNSError{Err: "lookup timed out", IsTimeout: true}) {
		t.Error("net.Error with Timeout() should be a timeout")
	}
	if IsTimeout(errors.New("API returned status 500")) {
		t.Error("plain error should not be a timeout")
	}
}

// ---------------------------------------------------------------------------
// End-to-end against a stub server
// ---------------------------------------------------------------------------

var expectedCountRe = regexp.MustCompile(`exactly (\d+) translated`)

// stubChatServer answers chat/completions requests via fn, which receives the
// user message and returns the assistant text.
func stubChatServer(t *testing.T, fn func(userMsg string) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		var userMsg string
		for _, m := range req.Messages {
			if m.Role == "user" {
				userMsg = m.Content
			}
		}
		resp := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": fn(userMsg)}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func stubProvider(baseURL string) Provider {
	return Provider{
		ID:      ProviderCustomOpenAI,
		Name:    "stub",
		BaseURL: baseURL,
		APIKey:  "test",
		Model:   "stub-model",
		Timeout: 5 * time.Second,
	}
}

func TestTranslateTexts_ChunksAndProgress(t *testing.T) {
	requests := 0
	server := stubChatServer(t, func(userMsg string) string {
		requests++
		m := expectedCountRe.FindStringSubmatch(userMsg)
		if m == nil {
			t.Errorf("request without expected count: %s", userMsg)
			return "[]"
		}
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("перевод %d", i+1)
		}
		data, _ := json.Marshal(out)
		return string(data)
	})
	defer server.Close()

	texts := []Text{
		{Key: "a", Source: "One"},
		{Key: "b", Source: "Two"},
		{Key: "c", Source: "Three"},
		{Key: "d", Source: "Four"},
		{Key: "e", Source: "Five"},
	}

	var progress []int
	opts := Options{
		Provider:  stubProvider(server.URL),
		Language:  "ru",
		ChunkSize: 2,
		OnProgress: func(lang string, done, total int) {
			if lang != "ru" || total != 5 {
				t.Errorf("progress lang=%s total=%d", lang, total)
			}
			progress = append(progress, done)
		},
	}

	outcomes, err := TranslateTexts(context.Background(), texts, opts)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if requests != 3 {
		t.Errorf("got %d requests, want 3", requests)
	}
	if len(outcomes) != 5 {
		t.Fatalf("got %d outcomes, want 5", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Status != OutcomeOK || o.Translation == "" {
			t.Errorf("outcome %s: status=%s translation=%q", o.Key, o.Status, o.Translation)
		}
	}
	if len(progress) != 3 || progress[2] != 5 {
		t.Errorf("progress = %v", progress)
	}
}

func TestTranslateTexts_RetriesUnparseableChunkSingly(t *testing.T) {
	requests := 0
	server := stubChatServer(t, func(userMsg string) string {
		requests++
		if requests == 1 {
			// Batch response the engine cannot use
			return "Sorry, I cannot help with that."
		}
		return `["готово"]`
	})
	defer server.Close()

	var rawSeen []string
	opts := Options{
		Provider: stubProvider(server.URL),
		Language: "ru",
		OnUnparseable: func(lang, raw string) {
			rawSeen = append(rawSeen, raw)
		},
	}

	texts := []Text{
		{Key: "x", Source: "Left"},
		{Key: "y", Source: "Right"},
	}

	outcomes, err := TranslateTexts(context.Background(), texts, opts)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	// One batch attempt plus one retry per entry
	if requests != 3 {
		t.Errorf("got %d requests, want 3", requests)
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Status != OutcomeOK || o.Translation != "готово" {
			t.Errorf("outcome %s: %+v", o.Key, o)
		}
	}
	if len(rawSeen) != 1 || !strings.Contains(rawSeen[0], "cannot help") {
		t.Errorf("raw responses seen: %v", rawSeen)
	}
}

func TestTranslateTexts_KeepsUnparseableEntries(t *testing.T) {
	server := stubChatServer(t, func(userMsg string) string {
		// Never a valid array, batch or single
		return "no"
	})
	defer server.Close()

	opts := Options{
		Provider: stubProvider(server.URL),
		Language: "de",
	}

	outcomes, err := TranslateTexts(context.Background(), []Text{{Key: "k", Source: "Text"}}, opts)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Status != OutcomeUnparseable {
		t.Errorf("outcomes = %+v", outcomes)
	}
}

func TestReviewTexts_AppliesCorrections(t *testing.T) {
	server := stubChatServer(t, func(userMsg string) string {
		if !strings.Contains(userMsg, "ENGLISH:") || !strings.Contains(userMsg, "TRANSLATED:") {
			t.Errorf("review prompt malformed: %s", userMsg)
		}
		if !strings.Contains(userMsg, `"common.cancel": "Отменяй"`) {
			t.Errorf("translated block missing pair: %s", userMsg)
		}
		return `{"common.cancel": {"translation": "Отменить", "issue": "imperative form"}}`
	})
	defer server.Close()

	opts := Options{
		Provider: stubProvider(server.URL),
		Language: "ru",
	}

	pairs := []ReviewPair{
		{Key: "common.save", Source: "Save", Translation: "Сохранить"},
		{Key: "common.cancel", Source: "Cancel", Translation: "Отменяй"},
	}

	outcomes, err := ReviewTexts(context.Background(), pairs, opts)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes", len(outcomes))
	}
	if outcomes[0].Status != ReviewUnchanged {
		t.Errorf("outcomes[0] = %+v", outcomes[0])
	}
	if outcomes[1].Status != ReviewCorrected || outcomes[1].Corrected != "Отменить" {
		t.Errorf("outcomes[1] = %+v", outcomes[1])
	}
	if outcomes[1].Issue != "imperative form" {
		t.Errorf("issue = %q", outcomes[1].Issue)
	}
}

func TestReviewTexts_UnparseableChunkIsReported(t *testing.T) {
	server := stubChatServer(t, func(userMsg string) string {
		return "Everything seems okay!"
	})
	defer server.Close()

	var rawSeen int
	opts := Options{
		Provider: stubProvider(server.URL),
		Language: "fr",
		OnUnparseable: func(lang, raw string) {
			rawSeen++
			if lang != "fr" {
				t.Errorf("lang = %q", lang)
			}
		},
	}

	pairs := []ReviewPair{
		{Key: "a", Source: "Yes", Translation: "Oui"},
		{Key: "b", Source: "No", Translation: "Non"},
	}

	outcomes, err := ReviewTexts(context.Background(), pairs, opts)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	for _, o := range outcomes {
		if o.Status != ReviewUnparseable {
			t.Errorf("outcome %s: %+v", o.Key, o)
		}
	}
	if rawSeen != 1 {
		t.Errorf("OnUnparseable called %d times, want 1", rawSeen)
	}
}

func TestTranslateTexts_TransportFailureAfterResponseMarksTimeout(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests > 1 {
			http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusBadRequest)
			return
		}
		resp := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": `["uno", "dos"]`}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	texts := []Text{
		{Key: "a", Source: "One"},
		{Key: "b", Source: "Two"},
		{Key: "c", Source: "Three"},
		{Key: "d", Source: "Four"},
	}
	opts := Options{Provider: stubProvider(server.URL), Language: "es", ChunkSize: 2, MaxRetries: 1}

	outcomes, err := TranslateTexts(context.Background(), texts, opts)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(outcomes) != 4 {
		t.Fatalf("got %d outcomes, want 4", len(outcomes))
	}
	for _, o := range outcomes[:2] {
		if o.Status != OutcomeOK {
			t.Errorf("outcome %s: status %q, want %q", o.Key, o.Status, OutcomeOK)
		}
	}
	for _, o := range outcomes[2:] {
		if o.Status != OutcomeTimeout {
			t.Errorf("outcome %s: status %q, want %q", o.Key, o.Status, OutcomeTimeout)
		}
		if o.Translation != "" {
			t.Errorf("outcome %s: translation %q, want empty", o.Key, o.Translation)
		}
	}
}

func TestTranslateTexts_ProviderNeverAnswersAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such model", http.StatusNotFound)
	}))
	defer server.Close()

	opts := Options{Provider: stubProvider(server.URL), Language: "es", MaxRetries: 1}
	outcomes, err := TranslateTexts(context.Background(), []Text{{Key: "a", Source: "One"}}, opts)
	if err == nil {
		t.Fatal("want an error when the provider never answers")
	}
	if len(outcomes) != 0 {
		t.Fatalf("got %d outcomes, want 0", len(outcomes))
	}
}

func TestReviewTexts_TransportFailureSkipsChunk(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests > 1 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		resp := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": "{}"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	pairs := []ReviewPair{
		{Key: "a", Source: "One", Translation: "Uno"},
		{Key: "b", Source: "Two", Translation: "Dos"},
		{Key: "c", Source: "Three", Translation: "Tres"},
		{Key: "d", Source: "Four", Translation: "Cuatro"},
	}
	opts := Options{Provider: stubProvider(server.URL), Language: "es", ChunkSize: 2, MaxRetries: 1}

	outcomes, err := ReviewTexts(context.Background(), pairs, opts)
	if err == nil {
		t.Fatal("want an error reporting the skipped entries")
	}
	if !strings.Contains(err.Error(), "not reviewed") {
		t.Errorf("error %q should say entries were not reviewed", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Status != ReviewUnchanged {
			t.Errorf("outcome %s: %+v", o.Key, o)
		}
	}
}

func TestReviewTexts_DefaultPromptRequestsObjectFormat(t *testing.T) {
	var systemMsg string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		for _, m := range req.Messages {
			if m.Role == "system" {
				systemMsg = m.Content
			}
		}
		resp := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": "{}"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	pairs := []ReviewPair{{Key: "a", Source: "Yes", Translation: "Oui"}}
	opts := Options{Provider: stubProvider(server.URL), Language: "fr"}

	if _, err := ReviewTexts(context.Background(), pairs, opts); err != nil {
		t.Fatalf("error: %v", err)
	}
	if !strings.Contains(systemMsg, "JSON object") {
		t.Errorf("review system prompt should ask for a JSON object, got:\n%s", systemMsg)
	}
	if strings.Contains(systemMsg, "{{targetLang}}") {
		t.Error("review system prompt still contains the {{targetLang}} placeholder")
	}
}
