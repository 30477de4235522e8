// Package config loads project settings from .intlbot.yaml and
// auto-detects them for projects that have none.
//
// When a .intlbot.yaml file exists in the project root it is the sole
// source of truth: every target language must be declared there, in the
// order synchronization should process them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the project root.
const FileName = ".intlbot.yaml"

// Config is the .intlbot.yaml schema.
type Config struct {
	// SourceLanguage is the canonical dictionary's language code (default "en").
	SourceLanguage string `yaml:"source_language,omitempty"`
	// Languages are the target language codes, in sync order.
	Languages []string `yaml:"languages"`
	// MessagesDir holds the <lang>.json dictionaries (default "messages").
	MessagesDir string `yaml:"messages_dir,omitempty"`
	// Sources are files or directories scanned for UI sources.
	Sources []string `yaml:"sources,omitempty"`
	// Extensions are the source file extensions to scan (default .jsx/.tsx).
	Extensions []string `yaml:"extensions,omitempty"`
	// Attributes are the markup attributes extracted besides element text.
	Attributes []string `yaml:"attributes,omitempty"`
	// ImportLine is inserted into rewritten sources, e.g.
	// "import { t } from '@/lib/i18n';". Empty disables import management.
	ImportLine string `yaml:"import_line,omitempty"`

	// Provider is the oracle provider ID (default "openai").
	Provider string `yaml:"provider,omitempty"`
	// Model overrides the provider's default model.
	Model string `yaml:"model,omitempty"`
	// BaseURL overrides the provider's endpoint (custom-openai, proxies).
	BaseURL string `yaml:"base_url,omitempty"`
	// ChunkSize is how many entries are sent per oracle call.
	ChunkSize int `yaml:"chunk_size,omitempty"`
	// RequestDelay is the pause between oracle calls, in seconds.
	RequestDelay int `yaml:"request_delay,omitempty"`
	// Timeout is the per-request timeout, in seconds.
	Timeout int `yaml:"timeout,omitempty"`
	// MaxRetries is the rate-limit retry budget per call.
	MaxRetries int `yaml:"max_retries,omitempty"`
	// Prompt overrides the translation system prompt.
	Prompt string `yaml:"prompt,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads .intlbot.yaml from the given directory. A missing file is not
// an error: Load returns (nil, nil) so callers can fall back to Detect.
// Unknown keys are rejected to catch typos early.
func Load(rootDir string) (*Config, error) {
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Validate applies defaults and normalizes language codes to their BCP 47
// form, so "pt_br" in the file and pt-BR.json on disk agree.
func (c *Config) Validate() error {
	if c.SourceLanguage == "" {
		c.SourceLanguage = "en"
	}
	if c.MessagesDir == "" {
		c.MessagesDir = "messages"
	}
	if c.Provider == "" {
		c.Provider = "openai"
	}

	src, err := normalizeLang(c.SourceLanguage)
	if err != nil {
		return fmt.Errorf("invalid source_language %q: %w", c.SourceLanguage, err)
	}
	c.SourceLanguage = src

	if len(c.Languages) == 0 {
		return errors.New("no target languages configured")
	}
	seen := make(map[string]bool, len(c.Languages))
	for i, l := range c.Languages {
		norm, err := normalizeLang(l)
		if err != nil {
			return fmt.Errorf("invalid language %q: %w", l, err)
		}
		if norm == c.SourceLanguage {
			return fmt.Errorf("source language %q cannot be a target", l)
		}
		if seen[norm] {
			return fmt.Errorf("duplicate language %q", l)
		}
		seen[norm] = true
		c.Languages[i] = norm
	}

	if c.ChunkSize < 0 || c.RequestDelay < 0 || c.Timeout < 0 || c.MaxRetries < 0 {
		return errors.New("chunk_size, request_delay, timeout and max_retries cannot be negative")
	}
	return nil
}

// normalizeLang parses a language code and returns its canonical BCP 47
// string ("pt_br" becomes "pt-BR").
func normalizeLang(code string) (string, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

// MessagesPath returns the absolute messages directory.
func (c *Config) MessagesPath(rootDir string) string {
	return filepath.Join(rootDir, c.MessagesDir)
}

// CanonicalPath returns the canonical dictionary file.
func (c *Config) CanonicalPath(rootDir string) string {
	return filepath.Join(rootDir, c.MessagesDir, c.SourceLanguage+".json")
}

// LangPath returns the dictionary file for a target language.
func (c *Config) LangPath(rootDir, lang string) string {
	return filepath.Join(rootDir, c.MessagesDir, lang+".json")
}

// SourcePaths resolves the configured source roots against the project
// root, falling back to auto-detection when none are configured. Roots
// that do not exist are dropped.
func (c *Config) SourcePaths(rootDir string) []string {
	candidates := c.Sources
	if len(candidates) == 0 {
		candidates = sourceDirCandidates
	}
	var paths []string
	for _, s := range candidates {
		p := filepath.Join(rootDir, s)
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	return paths
}

// ---------------------------------------------------------------------------
// Auto-detection
// ---------------------------------------------------------------------------

// sourceDirCandidates are the conventional UI source roots, tried in order.
var sourceDirCandidates = []string{"app", "components", "src", "pages"}

// messagesDirCandidates are conventional dictionary locations, tried in order.
var messagesDirCandidates = []string{"messages", "public/messages", "locales", "public/locales"}

// Detect builds a best-effort configuration for a project without
// .intlbot.yaml: conventional directory names are probed and target
// languages are read from existing dictionary files.
func Detect(rootDir string) *Config {
	cfg := &Config{SourceLanguage: "en", Provider: "openai"}

	for _, c := range messagesDirCandidates {
		dir := filepath.Join(rootDir, filepath.FromSlash(c))
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			cfg.MessagesDir = c
			break
		}
	}
	if cfg.MessagesDir == "" {
		cfg.MessagesDir = "messages"
	}

	cfg.Languages = DetectLanguages(filepath.Join(rootDir, filepath.FromSlash(cfg.MessagesDir)), cfg.SourceLanguage)

	for _, c := range sourceDirCandidates {
		if info, err := os.Stat(filepath.Join(rootDir, c)); err == nil && info.IsDir() {
			cfg.Sources = append(cfg.Sources, c)
		}
	}
	return cfg
}

// DetectLanguages lists the language codes with a dictionary file in dir,
// excluding the source language. Files whose stem does not parse as a
// language code are ignored.
func DetectLanguages(dir, sourceLang string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var langs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		stem := strings.TrimSuffix(name, ".json")
		norm, err := normalizeLang(stem)
		if err != nil || norm != stem || stem == sourceLang {
			continue
		}
		langs = append(langs, stem)
	}
	sort.Strings(langs)
	return langs
}

// ---------------------------------------------------------------------------
// Scaffolding
// ---------------------------------------------------------------------------

// Template renders a starter .intlbot.yaml for the given settings.
func Template(cfg *Config) []byte {
	var b strings.Builder
	b.WriteString("# intlbot project configuration.\n\n")
	b.WriteString("# Source language of the canonical dictionary.\n")
	fmt.Fprintf(&b, "source_language: %s\n\n", cfg.SourceLanguage)
	b.WriteString("# Target languages, in sync order.\n")
	fmt.Fprintf(&b, "languages: [%s]\n\n", strings.Join(cfg.Languages, ", "))
	b.WriteString("# Directory holding the <lang>.json dictionaries.\n")
	fmt.Fprintf(&b, "messages_dir: %s\n\n", cfg.MessagesDir)
	b.WriteString("# Files or directories scanned for UI sources.\n")
	fmt.Fprintf(&b, "sources: [%s]\n\n", strings.Join(cfg.Sources, ", "))
	b.WriteString("# Import inserted into rewritten source files.\n")
	b.WriteString("import_line: \"import { t } from '@/lib/i18n';\"\n\n")
	b.WriteString("# Translation oracle.\n")
	fmt.Fprintf(&b, "provider: %s\n", cfg.Provider)
	if cfg.Model != "" {
		fmt.Fprintf(&b, "model: %s\n", cfg.Model)
	} else {
		b.WriteString("# model: gpt-4o-mini\n")
	}
	b.WriteString("# chunk_size: 36\n")
	b.WriteString("# request_delay: 1\n")
	b.WriteString("# timeout: 60\n")
	b.WriteString("# max_retries: 3\n")
	return []byte(b.String())
}
