// Package syncer drives one synchronization pass: it compares every language
// dictionary against the canonical dictionary, translates what is missing or
// marked for update, prunes keys the canonical no longer has, and flattens
// update entries once every configured language carries a fresh translation.
package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/intlbot/intlbot/dictionary"
	"github.com/intlbot/intlbot/langmeta"
	"github.com/intlbot/intlbot/translate"
)

// translateTexts is swapped out in tests.
var translateTexts = translate.TranslateTexts

// Options configures a synchronization pass.
type Options struct {
	// Dir is the messages directory holding all dictionaries.
	Dir string
	// SourceLang is the canonical dictionary's language code.
	SourceLang string
	// Languages are the configured target languages, in configuration order.
	Languages []string
	// Only restricts the pass to a subset of Languages. Configuration order
	// is kept. A restricted pass never flattens update entries, so the next
	// full pass picks them up again.
	Only []string
	// Translate carries the oracle client settings. Language, LanguageName,
	// progress reporting and unparseable-response capture are filled in per
	// language by the pass.
	Translate translate.Options
	// OnProgress is called after each translated chunk.
	OnProgress func(lang string, done, total int)
	// OnLog emits log messages.
	OnLog func(format string, args ...any)
	// OnError emits error messages.
	OnError func(format string, args ...any)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	}
}

func (o *Options) canonicalPath() string {
	return filepath.Join(o.Dir, o.SourceLang+".json")
}

func (o *Options) langPath(lang string) string {
	return filepath.Join(o.Dir, lang+".json")
}

// targetLanguages applies the Only filter while keeping configuration order.
func (o *Options) targetLanguages() []string {
	if len(o.Only) == 0 {
		return o.Languages
	}
	only := make(map[string]bool, len(o.Only))
	for _, l := range o.Only {
		only[l] = true
	}
	var langs []string
	for _, l := range o.Languages {
		if only[l] {
			langs = append(langs, l)
		}
	}
	return langs
}

// translateOptions clones the oracle settings for one language pass.
func (o *Options) translateOptions(lang string) translate.Options {
	topts := o.Translate
	topts.Language = lang
	if topts.LanguageName == "" {
		topts.LanguageName = langmeta.PromptName(lang)
	}
	if topts.OnProgress == nil {
		topts.OnProgress = o.OnProgress
	}
	if topts.OnLog == nil {
		topts.OnLog = o.OnLog
	}
	if topts.OnError == nil {
		topts.OnError = o.OnError
	}
	caller := topts.OnUnparseable
	dir := o.Dir
	onErr := o.logError
	topts.OnUnparseable = func(l, raw string) {
		if err := AppendReviewLog(dir, l, raw); err != nil && onErr != nil {
			onErr("writing review log: %v", err)
		}
		if caller != nil {
			caller(l, raw)
		}
	}
	return topts
}

// ------------------------------------------------------------------

// LangSummary is the result of one language's pass.
type LangSummary struct {
	Lang       string
	Translated int // keys written this pass
	Failed     int // keys that stayed untranslated
	Pruned     int // keys removed because the canonical no longer has them
	Total      int // keys in the dictionary after the pass
	Err        error
}

// Summary is the result of a full synchronization pass.
type Summary struct {
	Languages  []LangSummary
	Translated int      // total keys written across languages
	Pending    int      // canonical update entries still open after the pass
	Failed     []string // languages that did not fully sync
}

// FullySynced reports whether every language completed without failures.
func (s *Summary) FullySynced() bool {
	return len(s.Failed) == 0
}

// FailedErr builds the error a caller should return when languages failed.
func (s *Summary) FailedErr() error {
	if len(s.Failed) == 0 {
		return nil
	}
	return fmt.Errorf("failed to fully sync: %s", strings.Join(s.Failed, ", "))
}

// ------------------------------------------------------------------

// Run executes one synchronization pass over the configured languages.
//
// Languages are processed strictly in configuration order. Each language
// dictionary is saved as soon as its pass completes, so an interrupted run
// leaves every dictionary either untouched or fully synced. The canonical
// dictionary is saved once at the end, after update entries that every
// configured language translated this pass have been flattened. Per-key
// translation failures are recorded in the summary, never raised as errors;
// Run returns an error only when the pass itself cannot continue.
func Run(ctx context.Context, canon *dictionary.Dictionary, opts Options) (*Summary, error) {
	sum := &Summary{}
	pending := canon.PendingKeys()
	okCount := make(map[string]int, len(pending))

	for _, lang := range opts.targetLanguages() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		ls, err := syncLanguage(ctx, canon, lang, &opts, okCount)
		if err != nil && ctx.Err() != nil {
			// The interrupted language was not saved; dictionaries on disk
			// are either pre-pass or fully synced.
			sum.Languages = append(sum.Languages, ls)
			return sum, ctx.Err()
		}
		if err != nil {
			ls.Err = err
			opts.logError("%s: %v", lang, err)
			sum.Failed = append(sum.Failed, lang)
		} else if ls.Failed > 0 {
			sum.Failed = append(sum.Failed, lang)
		}
		sum.Languages = append(sum.Languages, ls)
		sum.Translated += ls.Translated
	}

	// An update entry flattens only when every configured language carries
	// its fresh translation after this pass. A filtered or failed pass keeps
	// the entry open, so the next full pass retries the stragglers.
	for _, k := range pending {
		if len(opts.Languages) > 0 && okCount[k] == len(opts.Languages) {
			canon.Flatten(k)
		}
	}
	sum.Pending = len(canon.PendingKeys())

	if err := canon.WriteFile(opts.canonicalPath()); err != nil {
		return sum, fmt.Errorf("saving canonical dictionary: %w", err)
	}
	return sum, nil
}

// syncLanguage brings one language dictionary up to date with the canonical.
// okCount is incremented for every key the language translated this pass.
func syncLanguage(ctx context.Context, canon *dictionary.Dictionary, lang string, opts *Options, okCount map[string]int) (LangSummary, error) {
	ls := LangSummary{Lang: lang}
	path := opts.langPath(lang)
	dict, err := dictionary.LoadOrEmpty(path)
	if err != nil {
		return ls, err
	}

	var texts []translate.Text
	for _, k := range canon.Keys() {
		e, _ := canon.Get(k)
		if e.Pending || !dict.Has(k) {
			texts = append(texts, translate.Text{Key: k, Source: e.Text, Context: keyContext(k)})
		}
	}

	var okKeys []string
	if len(texts) == 0 {
		opts.log("%s: up to date (%d keys)", lang, dict.Len())
	} else {
		opts.log("%s: translating %d strings", lang, len(texts))
		outcomes, err := translateTexts(ctx, texts, opts.translateOptions(lang))
		for _, o := range outcomes {
			if o.Status != translate.OutcomeOK {
				ls.Failed++
				continue
			}
			dict.Set(o.Key, o.Translation)
			okKeys = append(okKeys, o.Key)
			ls.Translated++
		}
		if err != nil {
			// Keep what this language already got only if the pass can
			// still end cleanly; a cancelled pass must not save.
			if ctx.Err() != nil {
				return ls, err
			}
			ls.Failed += len(texts) - len(outcomes)
			opts.logError("%s: %v", lang, err)
		}
	}

	valid := make(map[string]bool, canon.Len())
	for _, k := range canon.Keys() {
		valid[k] = true
	}
	ls.Pruned = len(dict.Prune(valid))
	dict.AlignTo(canon.Keys())

	if err := dict.WriteFile(path); err != nil {
		return ls, err
	}
	// Only a saved translation counts toward flattening its update entry.
	for _, k := range okKeys {
		okCount[k]++
	}
	ls.Total = dict.Len()
	return ls, nil
}

// keyContext is the hint sent to the oracle with a key: its group path.
func keyContext(key string) string {
	if i := strings.LastIndexByte(key, '.'); i > 0 {
		return key[:i]
	}
	return ""
}

// ------------------------------------------------------------------

// ReviewLogPath returns the manual-review log file for a language.
func ReviewLogPath(dir, lang string) string {
	return filepath.Join(dir, lang+"_review.log")
}

// AppendReviewLog records an oracle response that could not be interpreted,
// so a human can recover the translations by hand.
func AppendReviewLog(dir, lang, entry string) error {
	f, err := os.OpenFile(ReviewLogPath(dir, lang), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "=== %s %s ===\n%s\n\n", time.Now().Format(time.RFC3339), lang, strings.TrimRight(entry, "\n"))
	return err
}
