// Package extract scans UI source files for user-facing literal text,
// wraps each literal in a t('key') call, and feeds the minted keys into
// the canonical dictionary.
//
// Keys are dotted paths: a context prefix derived from the file's location
// plus a slug of the text itself, so components/NavBar.tsx yields keys like
// components.nav-bar.sign-in. Extraction is idempotent: wrapped literals
// are expressions, not text, and are never matched again.
package extract

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goliatone/go-slug"

	"github.com/intlbot/intlbot/dictionary"
	"github.com/intlbot/intlbot/lockfile"
)

// DefaultExtensions are the source types scanned when the configuration
// does not say otherwise.
var DefaultExtensions = []string{".jsx", ".tsx"}

// DefaultAttributes are the markup attributes whose values are shown to
// the user and therefore translatable.
var DefaultAttributes = []string{"title", "alt", "placeholder", "aria-label", "label"}

// skipDirs contains directory names to skip during source file scanning.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	".next":        true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"coverage":     true,
	"vendor":       true,
}

// Resolution statuses for extracted literals.
const (
	StatusNew     = "new"     // key minted this run
	StatusReused  = "reused"  // literal matched an existing key
	StatusUpdated = "updated" // existing key flagged for re-translation
)

// KeyText is one extracted literal and the key it resolved to.
type KeyText struct {
	Key    string
	Text   string
	Status string
}

// FileResult is the outcome for a single source file.
type FileResult struct {
	Path    string    // path as discovered
	Rel     string    // path relative to the project root
	Keys    []KeyText // literals found, in source order
	Changed bool      // content was (or, in dry-run, would be) rewritten
	Skipped bool      // unchanged since the last run per the cache
	Err     error
}

// Result aggregates an extraction run.
type Result struct {
	Files   []FileResult
	Scanned int // files actually scanned
	Skipped int // files skipped by the cache
	Wrapped int // literals wrapped
	New     int // keys minted
	Updated int // keys flagged for re-translation
	Reused  int // literals resolved to existing keys
}

// Failed returns the files that could not be processed.
func (r *Result) Failed() []FileResult {
	var failed []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// Options configures an extraction run.
type Options struct {
	Root       string             // project root; context paths and cache keys are relative to it
	Extensions []string           // source file extensions to scan
	Attributes []string           // attribute names whose values are user-visible
	ImportLine string             // import statement ensured in files that gain wraps
	Lock       *lockfile.LockFile // optional cache; unchanged files are skipped
	Force      bool               // rescan files the cache considers unchanged
	DryRun     bool               // resolve keys but write nothing

	OnLog   func(format string, args ...any)
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

func (o *Options) effectiveRoot() string {
	if o.Root == "" {
		return "."
	}
	return o.Root
}

func (o *Options) effectiveAttributes() map[string]bool {
	attrs := o.Attributes
	if len(attrs) == 0 {
		attrs = DefaultAttributes
	}
	set := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		set[a] = true
	}
	return set
}

// ---------------------------------------------------------------------------
// Source discovery
// ---------------------------------------------------------------------------

// FindSources recursively collects source files with the given extensions
// under each path. Directories that never hold UI sources (node_modules,
// build output) are skipped. A path naming a file directly is taken as is.
func FindSources(paths []string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[e] = true
	}

	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.Walk(p, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // skip unreadable entries
			}
			if info.IsDir() {
				if skipDirs[info.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if exts[filepath.Ext(path)] {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", p, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// ---------------------------------------------------------------------------
// Extraction run
// ---------------------------------------------------------------------------

// Run scans every source file under paths, rewrites translatable literals
// to t('key') calls and records new keys in the canonical dictionary.
//
// The dictionary is only mutated in memory; saving it, like saving the
// extraction cache, is the caller's decision. Per-file failures are
// reported in the result and never abort the run.
func Run(paths []string, canon *dictionary.Dictionary, opts Options) (*Result, error) {
	files, err := FindSources(paths, opts.Extensions)
	if err != nil {
		return nil, err
	}

	root := opts.effectiveRoot()
	attrs := opts.effectiveAttributes()
	res := &Result{}
	resv := newResolver(canon)
	var present []string

	for _, path := range files {
		rel := relTo(root, path)
		present = append(present, rel)
		fr := FileResult{Path: path, Rel: rel}

		data, err := os.ReadFile(path)
		if err != nil {
			fr.Err = err
			opts.logError("cannot read %s: %v", rel, err)
			res.Files = append(res.Files, fr)
			continue
		}

		if opts.Lock != nil && !opts.Force && !opts.Lock.IsChanged(rel, data) {
			fr.Skipped = true
			res.Skipped++
			res.Files = append(res.Files, fr)
			continue
		}

		rewritten, keys, err := extractFile(string(data), contextPath(rel), resv, attrs, opts.ImportLine)
		if err != nil {
			fr.Err = fmt.Errorf("parsing %s: %w", rel, err)
			opts.logError("skipping %s: %v", rel, err)
			res.Files = append(res.Files, fr)
			continue
		}

		res.Scanned++
		fr.Keys = keys
		fr.Changed = rewritten != string(data)
		for _, kt := range keys {
			res.Wrapped++
			switch kt.Status {
			case StatusNew:
				res.New++
			case StatusUpdated:
				res.Updated++
			default:
				res.Reused++
			}
		}

		if fr.Changed && !opts.DryRun {
			if err := os.WriteFile(path, []byte(rewritten), 0644); err != nil {
				fr.Err = fmt.Errorf("writing %s: %w", rel, err)
				opts.logError("cannot write %s: %v", rel, err)
				res.Files = append(res.Files, fr)
				continue
			}
		}
		if opts.Lock != nil && !opts.DryRun {
			opts.Lock.Update(rel, []byte(rewritten))
		}
		if fr.Changed {
			opts.log("rewrote %s (%d strings)", rel, len(keys))
		}
		res.Files = append(res.Files, fr)
	}

	if opts.Lock != nil && !opts.DryRun {
		opts.Lock.Clean(present)
	}
	return res, nil
}

// extractFile scans one file's text and splices a t() call over every
// accepted literal. Returns the source unchanged when nothing matches.
func extractFile(src, ctx string, resv *resolver, attrs map[string]bool, importLine string) (string, []KeyText, error) {
	spans, err := scanMarkup(src)
	if err != nil {
		return "", nil, err
	}

	var (
		b    strings.Builder
		last int
		keys []KeyText
	)
	for _, sp := range spans {
		text := sp.text
		if sp.attr != "" {
			if !attrs[sp.attr] {
				continue
			}
			text = collapseWhitespace(text)
		}
		if !isTranslatable(text) {
			continue
		}
		key, status := resv.resolve(ctx, text)
		keys = append(keys, KeyText{Key: key, Text: text, Status: status})
		b.WriteString(src[last:sp.start])
		b.WriteString("{t('")
		b.WriteString(key)
		b.WriteString("')}")
		last = sp.end
	}
	if len(keys) == 0 {
		return src, nil, nil
	}
	b.WriteString(src[last:])

	out := b.String()
	if importLine != "" {
		out = ensureImport(out, importLine)
	}
	return out, keys, nil
}

// isTranslatable filters scanner candidates down to strings a user will
// actually read. Anything still shaped like code is rejected, and a single
// lowercase word is assumed to be an identifier rather than copy.
func isTranslatable(text string) bool {
	if text == "" {
		return false
	}
	if strings.ContainsAny(text, ";{}<>=\\`") {
		return false
	}
	hasLetter := false
	caseless := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) && !unicode.IsLower(r) {
				caseless = true
			}
		}
	}
	if !hasLetter {
		return false
	}
	if !strings.ContainsRune(text, ' ') {
		first, _ := utf8.DecodeRuneInString(text)
		if !unicode.IsUpper(first) && !caseless {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Key resolution
// ---------------------------------------------------------------------------

// resolver maps literal text to dictionary keys, minting new ones as it
// goes. One resolver serves a whole run so collisions between files are
// disambiguated consistently.
type resolver struct {
	canon *dictionary.Dictionary
	used  map[string]bool // keys resolved during this run
}

func newResolver(canon *dictionary.Dictionary) *resolver {
	return &resolver{canon: canon, used: make(map[string]bool)}
}

// resolve returns the key for a literal at the given context path and how
// it was obtained.
//
// An existing key directly under the context whose text equals the literal
// is reused. Otherwise the key is context plus a slug of the text; when
// that key already holds different text it is the same string edited at
// the source and gets flagged for re-translation. A key already claimed by
// this run falls through to a numeric suffix instead.
func (r *resolver) resolve(ctx, text string) (string, string) {
	prefix := ctx + "."
	for _, k := range r.canon.Keys() {
		if !strings.HasPrefix(k, prefix) || strings.Contains(k[len(prefix):], ".") {
			continue
		}
		if e, ok := r.canon.Get(k); ok && e.Text == text {
			r.used[k] = true
			return k, StatusReused
		}
	}

	base := prefix + slugText(text)
	key := base
	for n := 2; ; n++ {
		e, ok := r.canon.Get(key)
		switch {
		case !ok:
			r.canon.Set(key, text)
			r.used[key] = true
			return key, StatusNew
		case e.Text == text:
			r.used[key] = true
			return key, StatusReused
		case !r.used[key]:
			if e.Pending {
				// Stale pending text; restate it with what the source says now.
				r.canon.Flatten(key)
			}
			r.canon.MarkForUpdate(key, text)
			r.used[key] = true
			return key, StatusUpdated
		}
		key = fmt.Sprintf("%s-%d", base, n)
	}
}

const (
	slugMaxWords = 5
	slugMaxLen   = 40
)

// slugText derives the leaf key segment from literal text: normalized and
// capped to the first few words, so edits deep in a long sentence keep the
// key stable and trigger update detection instead of minting a new key.
func slugText(text string) string {
	normalized, err := slug.Normalize(text)
	if err != nil || normalized == "" {
		sum := md5.Sum([]byte(text))
		return "text-" + hex.EncodeToString(sum[:4])
	}
	words := strings.Split(normalized, "-")
	if len(words) > slugMaxWords {
		words = words[:slugMaxWords]
	}
	out := words[0]
	for _, w := range words[1:] {
		if len(out)+1+len(w) > slugMaxLen {
			break
		}
		out += "-" + w
	}
	if out == "update" {
		// A bare "update" leaf would collide with the pending-entry marker
		// in the dictionary serialization.
		out = "update-text"
	}
	return out
}

// contextPath turns a project-relative file path into the dotted key
// prefix for its literals: app/settings/ProfileCard.tsx becomes
// app.settings.profile-card.
func contextPath(rel string) string {
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")
	if len(parts) > 0 {
		last := parts[len(parts)-1]
		parts[len(parts)-1] = strings.TrimSuffix(last, filepath.Ext(last))
	}
	var segs []string
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		if seg := slugSegment(p); seg != "" {
			segs = append(segs, seg)
		}
	}
	if len(segs) == 0 {
		return "src"
	}
	return strings.Join(segs, ".")
}

// slugSegment normalizes one path segment, splitting camelCase first so
// NavBar.tsx and nav-bar.tsx produce the same segment.
func slugSegment(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('-')
			}
		}
		b.WriteRune(r)
	}
	normalized, err := slug.Normalize(b.String())
	if err != nil {
		return ""
	}
	return normalized
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Clean(path)
	}
	return rel
}

// ---------------------------------------------------------------------------
// Import insertion
// ---------------------------------------------------------------------------

var (
	importStmtRe = regexp.MustCompile(`(?m)^[^\n]*\bfrom[ \t]+['"][^'"]+['"];?[ \t]*$|^import[ \t]+['"][^'"]+['"];?[ \t]*$`)
	directiveRe  = regexp.MustCompile(`^['"]use [a-z ]+['"];?[ \t]*\n`)
)

// ensureImport makes sure the configured t() import is present, placed
// after the last existing import so directives like 'use client' stay
// first in the file.
func ensureImport(src, importLine string) string {
	line := strings.TrimSpace(importLine)
	if line == "" || strings.Contains(src, line) {
		return src
	}
	insert := 0
	if locs := importStmtRe.FindAllStringIndex(src, -1); len(locs) > 0 {
		insert = locs[len(locs)-1][1]
		if insert < len(src) && src[insert] == '\n' {
			insert++
		}
	} else if loc := directiveRe.FindStringIndex(src); loc != nil {
		insert = loc[1]
	}
	if insert >= len(src) {
		return src + "\n" + line + "\n"
	}
	return src[:insert] + line + "\n" + src[insert:]
}
