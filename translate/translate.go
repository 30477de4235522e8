// Package translate implements AI-powered translation of dictionary entries
// using HTTP API-based providers: OpenAI, OpenRouter, Groq, Google AI
// (Gemini), Ollama, LM Studio, and custom OpenAI-compatible endpoints.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/intlbot/intlbot/langmeta"
	"github.com/intlbot/intlbot/settings"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderOpenAI       = "openai"
	ProviderOpenRouter   = "openrouter"
	ProviderGroq         = "groq"
	ProviderGoogle       = "google"
	ProviderOllama       = "ollama"
	ProviderLMStudio     = "lmstudio"
	ProviderCustomOpenAI = "custom-openai"
)

// ---------------------------------------------------------------------------
// System Prompts Configuration
// ---------------------------------------------------------------------------

// PromptsConfig holds all system prompts loaded from prompts.json
type PromptsConfig struct {
	Prompts map[string]string `json:"prompts"`
}

// globalPrompts holds the loaded prompts configuration
var globalPrompts *PromptsConfig

// LoadPromptsFromFile loads system prompts from a JSON file.
// If the file doesn't exist or can't be loaded, it returns nil (will use embedded defaults).
func LoadPromptsFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		// File not found is not an error - we'll use embedded defaults
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read prompts file: %w", err)
	}

	var config PromptsConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse prompts file: %w", err)
	}

	globalPrompts = &config
	return nil
}

// defaultPromptsMap returns all built-in system prompts as a map.
func defaultPromptsMap() map[string]string {
	return map[string]string{
		"translate": TranslateSystemPrompt,
		"review":    ReviewSystemPrompt,
	}
}

// createDefaultPromptsFile writes the built-in prompts to path as a formatted JSON file.
func createDefaultPromptsFile(path string) error {
	config := PromptsConfig{
		Prompts: defaultPromptsMap(),
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling default prompts: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating prompts directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing default prompts file: %w", err)
	}
	return nil
}

// LoadPromptsFromDefaultLocations tries to load prompts from the user data directory.
// Default location: ~/.local/share/intlbot/prompts.json (or $XDG_DATA_HOME/intlbot/prompts.json)
// This matches the location where auth.json is stored.
// If the file does not exist, it is created with built-in default prompts.
// Returns the path of the loaded prompts file, or empty string on error.
func LoadPromptsFromDefaultLocations() (string, error) {
	path, err := settings.PromptsFilePath()
	if err != nil {
		return "", fmt.Errorf("cannot determine prompts file path: %w", err)
	}

	// If the file doesn't exist, create it with defaults
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefaultPromptsFile(path); err != nil {
			return "", fmt.Errorf("creating default prompts file: %w", err)
		}
	}

	if err := LoadPromptsFromFile(path); err != nil {
		return "", err
	}

	if globalPrompts != nil {
		return path, nil
	}

	return "", nil
}

// getPrompt returns the system prompt for a given task type.
// If custom prompts are loaded, it uses them; otherwise falls back to embedded defaults.
func getPrompt(promptType string) string {
	if globalPrompts != nil {
		if prompt, ok := globalPrompts.Prompts[promptType]; ok && prompt != "" {
			return prompt
		}
	}

	// Fallback to embedded defaults
	switch promptType {
	case "review":
		return ReviewSystemPrompt
	default:
		return TranslateSystemPrompt
	}
}

// ---------------------------------------------------------------------------
// System prompts
// ---------------------------------------------------------------------------

// TranslateSystemPrompt is the system prompt for translating dictionary entries.
const TranslateSystemPrompt = `You are a professional translator specializing in software and product localization. You are translating UI strings for a web application that uses react-i18next for internationalization.

CONTEXT AWARENESS:
- The source strings are natural English text extracted from the application's UI
- Some entries carry a context hint naming the screen or component they appear on
- The audience is web application users
- Tone: professional yet approachable, clear and concise
- Use IT/software terminology that is standard in {{targetLang}} tech community

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for NATURALNESS and FLUENCY in the target language, not word-for-word
- Use idiomatic expressions natural to {{targetLang}}, not literal translations
- Adapt sentence structure to match {{targetLang}} conventions
- Use established IT terminology in {{targetLang}}
- Consider cultural context and target audience expectations
- Maintain the original tone and intent, but express it naturally in {{targetLang}}

TECHNICAL REQUIREMENTS:
- Return ONLY a JSON array of translated strings, one for each input entry, in the same order.
- Preserve all interpolation variables exactly as-is (e.g. {{count}}, {{name}}, etc.).
- Preserve leading/trailing whitespace, newlines, and punctuation patterns.
- Keep brand names and proper nouns unchanged.
- Do NOT translate technical terms that are standard in English (unless they have established translations).
- Return ONLY the JSON array, no explanations or markdown code blocks.`

// ReviewSystemPrompt is the system prompt for reviewing existing translations.
const ReviewSystemPrompt = `You are a professional localization QA specialist. You are reviewing {{targetLang}} translations of UI strings for a web application.

Here is what to check:

1. **Accuracy**: Does the translation reflect the correct meaning of the original English string?
2. **Naturalness**: Does the translation sound fluent and natural in {{targetLang}}?
3. **Tone**: Is the tone appropriate for a user interface? Avoid cringy, overly formal or robotic tones.
4. **Cultural relevance**: Is any slang or idiomatic expression localized correctly?

Interpolation variables (e.g. {{count}}, {{name}}) must be preserved exactly as in the source; a missing or altered variable is always a problem.

Minor stylistic preferences are NOT problems; only flag translations that are wrong or unnatural.

Only return a JSON object of problematic entries in the form:
{
  "key": {
    "translation": "corrected translation",
    "issue": "short explanation"
  }
}
If everything looks good, return an empty object: {}
Do not wrap the JSON in markdown code blocks.`

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Provider holds the configuration for an AI translation service.
type Provider struct {
	// ID is the provider identifier (openai, groq, google, etc.).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for local services).
	APIKey string
	// Model is the model identifier.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout.
	Timeout time.Duration
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderOpenAI: {
			ID:      ProviderOpenAI,
			Name:    "OpenAI",
			BaseURL: "https://api.openai.com/v1",
			Model:   "",
			Timeout: 60 * time.Second,
		},
		ProviderOpenRouter: {
			ID:      ProviderOpenRouter,
			Name:    "OpenRouter",
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "",
			Timeout: 120 * time.Second,
		},
		ProviderGroq: {
			ID:      ProviderGroq,
			Name:    "Groq",
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "",
			Timeout: 60 * time.Second,
		},
		ProviderGoogle: {
			ID:      ProviderGoogle,
			Name:    "Google AI (Gemini)",
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "",
			Timeout: 120 * time.Second,
		},
		ProviderOllama: {
			ID:      ProviderOllama,
			Name:    "Ollama",
			BaseURL: "http://localhost:11434/v1",
			Model:   "",
			Timeout: 120 * time.Second,
		},
		ProviderLMStudio: {
			ID:      ProviderLMStudio,
			Name:    "LM Studio",
			BaseURL: "http://localhost:1234/v1",
			Model:   "",
			Timeout: 120 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:      ProviderCustomOpenAI,
			Name:    "Custom OpenAI",
			Model:   "",
			Timeout: 60 * time.Second,
		},
	}
}

// ---------------------------------------------------------------------------
// Translation options
// ---------------------------------------------------------------------------

// DefaultChunkSize is how many entries are sent per request when ChunkSize is unset.
const DefaultChunkSize = 36

// Options controls the translation behavior.
type Options struct {
	// Provider is the AI provider configuration.
	Provider Provider
	// Language is the target language code (e.g., "ru", "de").
	Language string
	// LanguageName is the human-readable name (e.g., "Russian", "German").
	LanguageName string
	// ChunkSize is how many entries to translate per API call. Default: 36.
	ChunkSize int
	// RequestDelay is the delay between consecutive API calls.
	RequestDelay time.Duration
	// Timeout is the per-request timeout (overrides provider timeout if set).
	Timeout time.Duration
	// MaxRetries is the maximum number of retries on rate limit (429). Default: 3.
	MaxRetries int
	// SystemPrompt overrides the default system prompt.
	SystemPrompt string
	// PromptType specifies which prompt to use: "translate" or "review".
	// If SystemPrompt is set, this is ignored.
	PromptType string
	// OnProgress is called after each chunk is processed.
	OnProgress func(lang string, done, total int)
	// OnLog emits log messages during translation.
	OnLog func(format string, args ...any)
	// OnError emits error messages during translation.
	OnError func(format string, args ...any)
	// OnUnparseable receives raw model responses that could not be decoded,
	// so callers can persist them for inspection.
	OnUnparseable func(lang, raw string)
	// Verbose enables detailed logging.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) reportUnparseable(raw string) {
	if o.OnUnparseable != nil {
		o.OnUnparseable(o.Language, raw)
	}
}

func (o *Options) effectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	if o.Provider.Timeout > 0 {
		return o.Provider.Timeout
	}
	return 120 * time.Second
}

func (o *Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 3
}

func (o *Options) effectiveChunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return DefaultChunkSize
}

// promptLangName returns the language name used inside prompts.
func (o *Options) promptLangName() string {
	if o.LanguageName != "" {
		return o.LanguageName
	}
	return langmeta.PromptName(o.Language)
}

// resolvedPrompt returns the system prompt with {{targetLang}} replaced.
func (o *Options) resolvedPrompt() string {
	prompt := o.SystemPrompt
	if prompt == "" {
		promptType := o.PromptType
		if promptType == "" {
			promptType = "translate"
		}
		prompt = getPrompt(promptType)
	}
	return strings.ReplaceAll(prompt, "{{targetLang}}", o.promptLangName())
}

// ---------------------------------------------------------------------------
// Rate limit state (global pause shared by all calls of a run)
// ---------------------------------------------------------------------------

type rateLimitState struct {
	mu       sync.Mutex
	paused   int32 // atomic: 1 = paused
	pauseEnd time.Time
}

func (r *rateLimitState) isPaused() bool {
	return atomic.LoadInt32(&r.paused) == 1
}

func (r *rateLimitState) pause(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauseEnd = time.Now().Add(duration)
	atomic.StoreInt32(&r.paused, 1)
}

func (r *rateLimitState) unpause() {
	atomic.StoreInt32(&r.paused, 0)
}

// waitIfPaused blocks until the rate limit pause is over.
func (r *rateLimitState) waitIfPaused(ctx context.Context) error {
	for r.isPaused() {
		r.mu.Lock()
		remaining := time.Until(r.pauseEnd)
		r.mu.Unlock()
		if remaining <= 0 {
			r.unpause()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(min(remaining, 100*time.Millisecond)):
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP client with real proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	// Support both --proxy flag and HTTP_PROXY/HTTPS_PROXY env vars
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// ---------------------------------------------------------------------------
// API format types
// ---------------------------------------------------------------------------

type apiFormat int

const (
	formatOpenAIChat   apiFormat = iota // OpenAI chat/completions
	formatGeminiNative                  // Google Gemini generateContent
)

// ---------------------------------------------------------------------------
// Request builders for each API format
// ---------------------------------------------------------------------------

func buildOpenAIChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
		Stream:      false,
	}
	return json.Marshal(req)
}

func buildGeminiRequest(systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		GenerationConfig: genConfig{Temperature: temperature},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	return json.Marshal(req)
}

// ---------------------------------------------------------------------------
// Response parsers (multi-format)
// ---------------------------------------------------------------------------

// extractResponseText tries all known response formats and returns the text.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	// Check for API error
	if errObj, ok := raw["error"]; ok {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	// 1. OpenAI chat format: choices[0].message.content
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	// 2. Gemini format: candidates[0].content.parts[0].text
	if candidates, ok := raw["candidates"].([]any); ok && len(candidates) > 0 {
		if candidate, ok := candidates[0].(map[string]any); ok {
			if content, ok := candidate["content"].(map[string]any); ok {
				if parts, ok := content["parts"].([]any); ok && len(parts) > 0 {
					if part, ok := parts[0].(map[string]any); ok {
						if text, ok := part["text"].(string); ok {
							return text, nil
						}
					}
				}
			}
		}
	}

	// 3. Simple response field (proxy-normalized servers)
	if resp, ok := raw["response"].(string); ok {
		return resp, nil
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

// ---------------------------------------------------------------------------
// Rate limit: parse 429 response for retry delay
// ---------------------------------------------------------------------------

// parseRetryDelay extracts the retry delay from a 429 response body.
// Looks for Google's RetryInfo detail with retryDelay field.
// Returns the delay to wait, defaulting to 60s + 5s buffer.
func parseRetryDelay(body []byte) time.Duration {
	const defaultDelay = 65 * time.Second // 60s + 5s buffer

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return defaultDelay
	}

	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			// Parse duration like "30s", "45.123s"
			d := detail.RetryDelay
			d = strings.TrimSuffix(d, "s")
			if secs, err := strconv.ParseFloat(d, 64); err == nil {
				return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
			}
		}
	}

	return defaultDelay
}

// ---------------------------------------------------------------------------
// Provider-specific API call dispatch
// ---------------------------------------------------------------------------

// callProvider sends a prompt to the configured provider and returns the response text.
func callProvider(ctx context.Context, prov Provider, systemPrompt, userPrompt string, rl *rateLimitState, maxRetries int, verbose bool) (string, error) {
	switch prov.ID {
	case ProviderGoogle:
		return callHTTPProvider(ctx, prov, systemPrompt, userPrompt, formatGeminiNative, rl, maxRetries, verbose)
	default:
		// OpenAI, OpenRouter, Groq, Ollama, LM Studio and custom endpoints
		// all speak the chat/completions dialect.
		return callHTTPProvider(ctx, prov, systemPrompt, userPrompt, formatOpenAIChat, rl, maxRetries, verbose)
	}
}

// ---------------------------------------------------------------------------
// HTTP-based provider call
// ---------------------------------------------------------------------------

func callHTTPProvider(ctx context.Context, prov Provider, systemPrompt, userPrompt string, format apiFormat, rl *rateLimitState, maxRetries int, verbose bool) (string, error) {
	endpoint, headers, body, err := buildHTTPRequest(prov, systemPrompt, userPrompt, format)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	client := makeHTTPClient(prov.Proxy, prov.Timeout)

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Wait if globally paused (rate limit hit earlier in the run)
		if rl != nil {
			if err := rl.waitIfPaused(ctx); err != nil {
				return "", err
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		if verbose {
			log.Printf("[DEBUG] %s attempt %d: POST %s", prov.Name, attempt+1, endpoint)
		}

		resp, err := client.Do(req)
		if err != nil {
			if attempt < maxRetries {
				wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(wait):
				}
				continue
			}
			return "", fmt.Errorf("API request failed: %w", err)
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			retryDelay := parseRetryDelay(respBody)
			if verbose {
				log.Printf("[WARN] 429 rate limited, waiting %v before retry (attempt %d/%d)", retryDelay, attempt+1, maxRetries)
			}
			// Pause so later calls in this run hold off too
			if rl != nil {
				rl.pause(retryDelay)
			}
			if attempt < maxRetries {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(retryDelay):
				}
				if rl != nil {
					rl.unpause()
				}
				continue
			}
			return "", fmt.Errorf("rate limited after %d retries: %s", maxRetries, string(respBody))
		}

		if resp.StatusCode != http.StatusOK {
			if attempt < maxRetries && resp.StatusCode >= 500 {
				wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(wait):
				}
				continue
			}
			return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
		}

		text, err := extractResponseText(respBody)
		if err != nil {
			return "", err
		}
		return text, nil
	}

	return "", fmt.Errorf("exhausted all %d retries", maxRetries)
}

// buildHTTPRequest constructs the endpoint, headers, and body for an HTTP provider.
func buildHTTPRequest(prov Provider, systemPrompt, userPrompt string, format apiFormat) (string, map[string]string, []byte, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	var endpoint string
	var body []byte
	var err error

	switch format {
	case formatGeminiNative:
		// Google AI: POST /v1beta/models/{model}:generateContent
		endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent",
			strings.TrimRight(prov.BaseURL, "/"), prov.Model)
		if prov.APIKey != "" {
			headers["x-goog-api-key"] = prov.APIKey
		}
		body, err = buildGeminiRequest(systemPrompt, userPrompt, 0.3)

	default: // formatOpenAIChat
		baseURL := strings.TrimRight(prov.BaseURL, "/")
		if !strings.HasSuffix(baseURL, "/chat/completions") {
			endpoint = baseURL + "/chat/completions"
		} else {
			endpoint = baseURL
		}
		if prov.APIKey != "" {
			headers["Authorization"] = "Bearer " + prov.APIKey
		}
		body, err = buildOpenAIChatRequest(prov.Model, systemPrompt, userPrompt, 0.3)
	}

	if err != nil {
		return "", nil, nil, err
	}
	return endpoint, headers, body, nil
}

// ---------------------------------------------------------------------------
// Model response decoding
// ---------------------------------------------------------------------------

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// curlyQuotes maps typographic quotes to their ASCII equivalents. Some models
// quote JSON with them, which breaks decoding.
var curlyQuotes = strings.NewReplacer(
	"\u201c", `"`, "\u201d", `"`,
	"\u2018", "'", "\u2019", "'",
	"\u00ab", `"`, "\u00bb", `"`,
)

// ErrUnparseable marks a model response that could not be decoded into the
// requested JSON shape. Callers use errors.Is to separate these from
// transport failures.
var ErrUnparseable = errors.New("unparseable model response")

// parseTranslations extracts a JSON array of exactly expected strings from a
// model response.
func parseTranslations(content string, expected int) ([]string, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code blocks if present
	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	// Try to find a JSON array in the response
	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	var translations []string
	if err := json.Unmarshal([]byte(content), &translations); err != nil {
		return nil, fmt.Errorf("%w: not a JSON string array: %s", ErrUnparseable, truncate(content, 300))
	}

	if len(translations) != expected {
		return nil, fmt.Errorf("%w: got %d translations, expected %d", ErrUnparseable, len(translations), expected)
	}

	return translations, nil
}

// reviewFix is one flagged entry in a review response.
type reviewFix struct {
	Translation string `json:"translation"`
	Issue       string `json:"issue"`
}

// parseReviewFixes extracts flagged entries from a review response: a JSON
// object keyed by dictionary key, each value carrying a corrected translation
// and a short issue note. Typographic quotes are normalized before decoding;
// entries without a usable translation are skipped.
func parseReviewFixes(content string) (map[string]reviewFix, error) {
	content = strings.TrimSpace(content)

	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	content = curlyQuotes.Replace(content)

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		// Fallback: pull the outermost object out of surrounding chatter
		startIdx := strings.Index(content, "{")
		endIdx := strings.LastIndex(content, "}")
		if startIdx < 0 || endIdx <= startIdx {
			return nil, fmt.Errorf("%w: no JSON object of corrections: %s", ErrUnparseable, truncate(content, 300))
		}
		if err2 := json.Unmarshal([]byte(content[startIdx:endIdx+1]), &raw); err2 != nil {
			return nil, fmt.Errorf("%w: not a JSON object of corrections: %s", ErrUnparseable, truncate(content, 300))
		}
	}

	fixes := make(map[string]reviewFix, len(raw))
	for key, val := range raw {
		var fix reviewFix
		if err := json.Unmarshal(val, &fix); err != nil || fix.Translation == "" {
			continue
		}
		fixes[key] = fix
	}
	return fixes, nil
}

// ---------------------------------------------------------------------------
// Translation entry points
// ---------------------------------------------------------------------------

// Text is a single dictionary entry to translate.
type Text struct {
	// Key is the flattened dictionary key. It is reported back in the
	// outcome and never sent to the model.
	Key string
	// Source is the source-language text.
	Source string
	// Context is an optional hint about where the text appears.
	Context string
}

// Outcome statuses reported by TranslateTexts.
const (
	OutcomeOK          = "ok"
	OutcomeUnparseable = "unparseable"
	OutcomeTimeout     = "timeout"
)

// Outcome is the per-entry result of a translation run.
type Outcome struct {
	Key         string
	Translation string
	Status      string
}

// TranslateTexts translates a batch of dictionary entries. Entries are sent
// in chunks; a chunk whose response cannot be decoded is retried one entry at
// a time, and entries that still fail are reported OutcomeUnparseable. Once
// the provider has answered at least once, a timeout or transport failure on
// a later chunk does not abort the batch: its entries come back
// OutcomeTimeout and are picked up again on the next run. The returned slice
// covers every entry processed before an error, so callers can keep partial
// results.
func TranslateTexts(ctx context.Context, texts []Text, opts Options) ([]Outcome, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	opts.Provider.Timeout = opts.effectiveTimeout()
	rl := &rateLimitState{}
	chunks := splitBatch(texts, opts.effectiveChunkSize())
	systemPrompt := opts.resolvedPrompt()

	outcomes := make([]Outcome, 0, len(texts))
	total := len(texts)
	done := 0
	responded := false

	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			return outcomes, ctx.Err()
		default:
		}

		if opts.Verbose {
			opts.log("  Chunk %d/%d (%d entries)", i+1, len(chunks), len(chunk))
		}

		translations, raw, err := translateChunk(ctx, chunk, systemPrompt, opts, rl)
		if err != nil {
			switch {
			case errors.Is(err, ErrUnparseable):
				responded = true
				opts.reportUnparseable(raw)
				opts.logError("Chunk %d/%d: %v; retrying entries one at a time", i+1, len(chunks), err)
				singles, serr := retrySingly(ctx, chunk, systemPrompt, opts, rl)
				outcomes = append(outcomes, singles...)
				if serr != nil {
					return outcomes, serr
				}
			case ctx.Err() != nil:
				return outcomes, ctx.Err()
			case !responded:
				// Provider has not answered at all this run; report it as down.
				return outcomes, fmt.Errorf("translating chunk %d/%d: %w", i+1, len(chunks), err)
			default:
				if IsTimeout(err) {
					opts.logError("Chunk %d/%d timed out; entries left for the next run", i+1, len(chunks))
				} else {
					opts.logError("Chunk %d/%d: %v; entries left for the next run", i+1, len(chunks), err)
				}
				for _, t := range chunk {
					outcomes = append(outcomes, Outcome{Key: t.Key, Status: OutcomeTimeout})
				}
			}
		} else {
			responded = true
			for j, t := range chunk {
				if translations[j] == "" {
					outcomes = append(outcomes, Outcome{Key: t.Key, Status: OutcomeUnparseable})
					continue
				}
				outcomes = append(outcomes, Outcome{Key: t.Key, Translation: translations[j], Status: OutcomeOK})
			}
		}

		done += len(chunk)
		if opts.OnProgress != nil {
			opts.OnProgress(opts.Language, done, total)
		}

		// Delay between chunks
		if i < len(chunks)-1 && opts.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				return outcomes, ctx.Err()
			case <-time.After(opts.RequestDelay):
			}
		}
	}

	return outcomes, nil
}

// translateChunk sends a batch of entries to the model and returns the
// decoded translations plus the raw response text.
func translateChunk(ctx context.Context, chunk []Text, systemPrompt string, opts Options, rl *rateLimitState) ([]string, string, error) {
	var userMsg strings.Builder
	userMsg.WriteString(fmt.Sprintf("Translate these UI strings to %s:\n\n", opts.promptLangName()))
	for i, t := range chunk {
		userMsg.WriteString(fmt.Sprintf("%d. %s", i+1, escapeForPrompt(t.Source)))
		if t.Context != "" {
			userMsg.WriteString(fmt.Sprintf(" (context: %s)", t.Context))
		}
		userMsg.WriteString("\n")
	}
	userMsg.WriteString(fmt.Sprintf("\nReturn a JSON array with exactly %d translated strings.", len(chunk)))

	text, err := callProvider(ctx, opts.Provider, systemPrompt, userMsg.String(), rl, opts.effectiveMaxRetries(), opts.Verbose)
	if err != nil {
		return nil, "", err
	}

	translations, err := parseTranslations(text, len(chunk))
	if err != nil {
		return nil, text, err
	}
	return translations, text, nil
}

// retrySingly retries each entry of an unparseable chunk on its own. Entries
// whose single-item response still fails to decode come back unparseable,
// entries whose call fails in transit come back timed out; neither aborts
// the rest of the chunk.
func retrySingly(ctx context.Context, chunk []Text, systemPrompt string, opts Options, rl *rateLimitState) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(chunk))
	for _, t := range chunk {
		select {
		case <-ctx.Done():
			return outcomes, ctx.Err()
		default:
		}

		translations, raw, err := translateChunk(ctx, []Text{t}, systemPrompt, opts, rl)
		if err != nil {
			if ctx.Err() != nil {
				return outcomes, ctx.Err()
			}
			if !errors.Is(err, ErrUnparseable) {
				outcomes = append(outcomes, Outcome{Key: t.Key, Status: OutcomeTimeout})
				continue
			}
			opts.reportUnparseable(raw)
			outcomes = append(outcomes, Outcome{Key: t.Key, Status: OutcomeUnparseable})
			continue
		}
		if translations[0] == "" {
			outcomes = append(outcomes, Outcome{Key: t.Key, Status: OutcomeUnparseable})
			continue
		}
		outcomes = append(outcomes, Outcome{Key: t.Key, Translation: translations[0], Status: OutcomeOK})
	}
	return outcomes, nil
}

// ---------------------------------------------------------------------------
// Review entry points
// ---------------------------------------------------------------------------

// ReviewPair is a source text with its current translation, submitted for review.
type ReviewPair struct {
	Key         string
	Source      string
	Translation string
}

// Review statuses reported by ReviewTexts.
const (
	ReviewUnchanged   = "unchanged"
	ReviewCorrected   = "corrected"
	ReviewUnparseable = "unparseable"
)

// ReviewOutcome is the per-entry result of a review run.
type ReviewOutcome struct {
	Key       string
	Status    string
	Corrected string
	// Issue is the model's short explanation for a correction.
	Issue string
}

// ReviewTexts asks the model to review existing translations against their
// sources. Entries the model corrects come back ReviewCorrected with the
// replacement text; chunks whose response cannot be decoded are reported
// entry-by-entry as ReviewUnparseable and the raw response goes to
// OnUnparseable. A chunk whose call fails in transit after the provider has
// answered once is skipped: its entries carry no outcome, keep their current
// values, and the returned error says how many were missed.
func ReviewTexts(ctx context.Context, pairs []ReviewPair, opts Options) ([]ReviewOutcome, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	if opts.SystemPrompt == "" && opts.PromptType == "" {
		opts.PromptType = "review"
	}
	opts.Provider.Timeout = opts.effectiveTimeout()
	systemPrompt := opts.resolvedPrompt()

	rl := &rateLimitState{}
	chunks := splitBatch(pairs, opts.effectiveChunkSize())

	outcomes := make([]ReviewOutcome, 0, len(pairs))
	total := len(pairs)
	done := 0
	responded := false
	skipped := 0
	var transportErr error

	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			return outcomes, ctx.Err()
		default:
		}

		if opts.Verbose {
			opts.log("  Review chunk %d/%d (%d entries)", i+1, len(chunks), len(chunk))
		}

		text, err := callProvider(ctx, opts.Provider, systemPrompt, buildReviewPrompt(chunk, opts.promptLangName()), rl, opts.effectiveMaxRetries(), opts.Verbose)
		if err != nil {
			if ctx.Err() != nil {
				return outcomes, ctx.Err()
			}
			if !responded {
				return outcomes, fmt.Errorf("reviewing chunk %d/%d: %w", i+1, len(chunks), err)
			}
			// Skipped entries keep their current values and are seen
			// again on the next run.
			opts.logError("Review chunk %d/%d: %v; %d entries skipped", i+1, len(chunks), err, len(chunk))
			skipped += len(chunk)
			transportErr = err
		} else {
			responded = true
			fixes, perr := parseReviewFixes(text)
			if perr != nil {
				opts.reportUnparseable(text)
				opts.logError("Review chunk %d/%d: %v", i+1, len(chunks), perr)
				for _, p := range chunk {
					outcomes = append(outcomes, ReviewOutcome{Key: p.Key, Status: ReviewUnparseable})
				}
			} else {
				for _, p := range chunk {
					fix, ok := fixes[p.Key]
					if ok && fix.Translation != p.Translation {
						outcomes = append(outcomes, ReviewOutcome{Key: p.Key, Status: ReviewCorrected, Corrected: fix.Translation, Issue: fix.Issue})
					} else {
						outcomes = append(outcomes, ReviewOutcome{Key: p.Key, Status: ReviewUnchanged})
					}
				}
			}
		}

		done += len(chunk)
		if opts.OnProgress != nil {
			opts.OnProgress(opts.Language, done, total)
		}

		if i < len(chunks)-1 && opts.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				return outcomes, ctx.Err()
			case <-time.After(opts.RequestDelay):
			}
		}
	}

	if skipped > 0 {
		return outcomes, fmt.Errorf("%d entries not reviewed: %w", skipped, transportErr)
	}
	return outcomes, nil
}

// buildReviewPrompt formats a review chunk as paired key-to-text JSON
// objects, source first, translations second.
func buildReviewPrompt(chunk []ReviewPair, langName string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Check the following translations from English to %s:\n\n", langName))
	b.WriteString("ENGLISH:\n")
	b.WriteString(orderedJSONObject(chunk, func(p ReviewPair) string { return p.Source }))
	b.WriteString("\n\nTRANSLATED:\n")
	b.WriteString(orderedJSONObject(chunk, func(p ReviewPair) string { return p.Translation }))
	return b.String()
}

// orderedJSONObject renders the chunk as an indented JSON object in chunk
// order, one value per pair.
func orderedJSONObject(chunk []ReviewPair, value func(ReviewPair) string) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, p := range chunk {
		b.WriteString("  ")
		b.WriteString(jsonString(p.Key))
		b.WriteString(": ")
		b.WriteString(jsonString(value(p)))
		if i < len(chunk)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

func jsonString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// splitBatch divides a slice into chunks of the given size.
func splitBatch[T any](items []T, chunkSize int) [][]T {
	if chunkSize <= 0 || chunkSize >= len(items) {
		return [][]T{items}
	}
	var chunks [][]T
	for i := 0; i < len(items); i += chunkSize {
		end := i + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

// escapeForPrompt prepares a string for inclusion in the AI prompt.
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return fmt.Sprintf(`"%s"`, s)
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// IsTimeout reports whether err was caused by a request timeout rather than
// an API-level failure.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
