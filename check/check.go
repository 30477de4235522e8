// Package check runs a quality pass over existing translations: every
// settled (source, translation) pair is re-submitted to the oracle, model
// corrections are written back to the language dictionary, and responses
// that cannot be interpreted are appended to the language's review log for
// manual follow-up. The canonical dictionary is never modified.
package check

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/intlbot/intlbot/dictionary"
	"github.com/intlbot/intlbot/langmeta"
	"github.com/intlbot/intlbot/syncer"
	"github.com/intlbot/intlbot/translate"
)

// reviewTexts is swapped out in tests.
var reviewTexts = translate.ReviewTexts

// Options configures a quality pass.
type Options struct {
	// Dir is the messages directory holding all dictionaries.
	Dir string
	// SourceLang is the canonical dictionary's language code.
	SourceLang string
	// Languages are the configured target languages, in configuration order.
	Languages []string
	// Only restricts the pass to a subset of Languages.
	Only []string
	// Translate carries the oracle client settings.
	Translate translate.Options
	// OnProgress is called after each reviewed chunk.
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

func (o *Options) langPath(lang string) string {
	return filepath.Join(o.Dir, lang+".json")
}

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

func (o *Options) reviewOptions(lang string) translate.Options {
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
		if err := syncer.AppendReviewLog(dir, l, raw); err != nil && onErr != nil {
			onErr("writing review log: %v", err)
		}
		if caller != nil {
			caller(l, raw)
		}
	}
	return topts
}

// ------------------------------------------------------------------

// LangReport is the result of one language's quality pass.
type LangReport struct {
	Lang      string
	Reviewed  int // pairs submitted to the oracle
	Corrected int // translations replaced with the model's fix
	Flagged   int // pairs left for manual review
	Err       error
}

// Report is the result of a full quality pass.
type Report struct {
	Languages []LangReport
	Reviewed  int
	Corrected int
	Flagged   int
	Failed    []string // languages whose pass did not complete
}

// FailedErr builds the error a caller should return when languages failed.
func (r *Report) FailedErr() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return fmt.Errorf("review incomplete for: %s", strings.Join(r.Failed, ", "))
}

// ------------------------------------------------------------------

// Run reviews every settled translation in the configured languages.
//
// A pair is settled when its key holds plain text in the canonical
// dictionary and a translation in the language dictionary; keys still
// marked for update are skipped because their stored translation predates
// the new source text. Corrections are saved per language as the pass
// completes. Unparseable oracle responses keep the existing value and are
// recorded in the language's review log, never raised as errors.
func Run(ctx context.Context, canon *dictionary.Dictionary, opts Options) (*Report, error) {
	rep := &Report{}
	for _, lang := range opts.targetLanguages() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		lr, err := checkLanguage(ctx, canon, lang, &opts)
		if err != nil && ctx.Err() != nil {
			rep.Languages = append(rep.Languages, lr)
			return rep, ctx.Err()
		}
		if err != nil {
			lr.Err = err
			opts.logError("%s: %v", lang, err)
			rep.Failed = append(rep.Failed, lang)
		}
		rep.Languages = append(rep.Languages, lr)
		rep.Reviewed += lr.Reviewed
		rep.Corrected += lr.Corrected
		rep.Flagged += lr.Flagged
	}
	return rep, nil
}

func checkLanguage(ctx context.Context, canon *dictionary.Dictionary, lang string, opts *Options) (LangReport, error) {
	lr := LangReport{Lang: lang}
	path := opts.langPath(lang)
	dict, err := dictionary.LoadOrEmpty(path)
	if err != nil {
		return lr, err
	}

	var pairs []translate.ReviewPair
	for _, k := range canon.Keys() {
		e, _ := canon.Get(k)
		if e.Pending {
			continue
		}
		tr, ok := dict.Get(k)
		if !ok {
			continue
		}
		pairs = append(pairs, translate.ReviewPair{Key: k, Source: e.Text, Translation: tr.Text})
	}
	if len(pairs) == 0 {
		opts.log("%s: nothing to review", lang)
		return lr, nil
	}

	opts.log("%s: reviewing %d translations", lang, len(pairs))
	outcomes, rerr := reviewTexts(ctx, pairs, opts.reviewOptions(lang))
	if ctx.Err() != nil {
		return lr, ctx.Err()
	}

	var flagged []string
	for _, o := range outcomes {
		lr.Reviewed++
		switch o.Status {
		case translate.ReviewCorrected:
			dict.Set(o.Key, o.Corrected)
			lr.Corrected++
			if o.Issue != "" {
				opts.log("%s: corrected %s (%s)", lang, o.Key, o.Issue)
			} else {
				opts.log("%s: corrected %s", lang, o.Key)
			}
		case translate.ReviewUnparseable:
			lr.Flagged++
			flagged = append(flagged, o.Key)
		}
	}

	if len(flagged) > 0 {
		entry := "manual review needed for: " + strings.Join(flagged, ", ")
		if err := syncer.AppendReviewLog(opts.Dir, lang, entry); err != nil {
			opts.logError("writing review log: %v", err)
		}
	}

	if lr.Corrected > 0 {
		if err := dict.WriteFile(path); err != nil {
			return lr, err
		}
	}
	return lr, rerr
}
