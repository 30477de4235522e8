package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadDefaultsAndValidation(t *testing.T) {
	t.Run("missing file returns nil", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := Load(dir)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if cfg != nil {
			t.Fatalf("Load expected nil, got %#v", cfg)
		}
	})

	t.Run("applies defaults and normalizes languages", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "languages: [es, PT_br]\n")

		cfg, err := Load(dir)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if cfg.SourceLanguage != "en" {
			t.Fatalf("SourceLanguage = %q, want en", cfg.SourceLanguage)
		}
		if cfg.MessagesDir != "messages" {
			t.Fatalf("MessagesDir = %q, want messages", cfg.MessagesDir)
		}
		if cfg.Provider != "openai" {
			t.Fatalf("Provider = %q, want openai", cfg.Provider)
		}
		if !reflect.DeepEqual(cfg.Languages, []string{"es", "pt-BR"}) {
			t.Fatalf("Languages = %v, want [es pt-BR]", cfg.Languages)
		}
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "langauges: [es]\n")

		_, err := Load(dir)
		if err == nil {
			t.Fatal("expected error for unknown key")
		}
		if !strings.Contains(err.Error(), "langauges") {
			t.Fatalf("error %q does not name the unknown key", err)
		}
	})

	t.Run("rejects invalid language codes", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "languages: [es, \"!!\"]\n")

		_, err := Load(dir)
		if err == nil || !strings.Contains(err.Error(), "invalid language") {
			t.Fatalf("error = %v, want invalid language", err)
		}
	})

	t.Run("rejects duplicates after normalization", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "languages: [es, ES]\n")

		_, err := Load(dir)
		if err == nil || !strings.Contains(err.Error(), "duplicate") {
			t.Fatalf("error = %v, want duplicate language", err)
		}
	})

	t.Run("rejects source language as target", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "languages: [en, es]\n")

		_, err := Load(dir)
		if err == nil || !strings.Contains(err.Error(), "cannot be a target") {
			t.Fatalf("error = %v, want source-as-target rejection", err)
		}
	})

	t.Run("requires target languages", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "messages_dir: messages\n")

		_, err := Load(dir)
		if err == nil || !strings.Contains(err.Error(), "no target languages") {
			t.Fatalf("error = %v, want missing languages", err)
		}
	})
}

func TestConfigPaths(t *testing.T) {
	t.Parallel()
	cfg := &Config{SourceLanguage: "en", MessagesDir: "messages"}

	if got, want := cfg.CanonicalPath("/proj"), filepath.Join("/proj", "messages", "en.json"); got != want {
		t.Errorf("CanonicalPath = %q, want %q", got, want)
	}
	if got, want := cfg.LangPath("/proj", "pt-BR"), filepath.Join("/proj", "messages", "pt-BR.json"); got != want {
		t.Errorf("LangPath = %q, want %q", got, want)
	}
	if got, want := cfg.MessagesPath("/proj"), filepath.Join("/proj", "messages"); got != want {
		t.Errorf("MessagesPath = %q, want %q", got, want)
	}
}

func TestSourcePaths(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "app"), 0755); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{Sources: []string{"app", "missing"}}
	got := cfg.SourcePaths(dir)
	want := []string{filepath.Join(dir, "app")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SourcePaths = %v, want %v", got, want)
	}

	// Unset sources fall back to conventional roots that exist.
	cfg = &Config{}
	got = cfg.SourcePaths(dir)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SourcePaths (detected) = %v, want %v", got, want)
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, d := range []string{"messages", "app", "components"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0755); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range []string{"en.json", "es.json", "fr.json", "notes.txt", "backup.json"} {
		if err := os.WriteFile(filepath.Join(dir, "messages", f), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := Detect(dir)
	if cfg.MessagesDir != "messages" {
		t.Errorf("MessagesDir = %q, want messages", cfg.MessagesDir)
	}
	if !reflect.DeepEqual(cfg.Languages, []string{"es", "fr"}) {
		t.Errorf("Languages = %v, want [es fr]", cfg.Languages)
	}
	if !reflect.DeepEqual(cfg.Sources, []string{"app", "components"}) {
		t.Errorf("Sources = %v, want [app components]", cfg.Sources)
	}
}

func TestDetectLanguagesExcludesSourceAndJunk(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, f := range []string{"en.json", "de.json", "pt-BR.json", "template.json"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	got := DetectLanguages(dir, "en")
	want := []string{"de", "pt-BR"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DetectLanguages = %v, want %v", got, want)
	}
}

func TestTemplateIsLoadable(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		SourceLanguage: "en",
		Languages:      []string{"es", "fr"},
		MessagesDir:    "messages",
		Sources:        []string{"app"},
		Provider:       "openai",
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), Template(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load of scaffolded config: %v", err)
	}
	if !reflect.DeepEqual(loaded.Languages, cfg.Languages) {
		t.Errorf("Languages = %v, want %v", loaded.Languages, cfg.Languages)
	}
	if loaded.ImportLine == "" {
		t.Error("scaffold has no import_line")
	}
}
