package dictionary

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseAndMarshal_PreservesOrderAndNesting(t *testing.T) {
	data := []byte(`{
  "nav": {
    "home": "Home",
    "login": {"update": "Sign in"}
  },
  "footer": {
    "copyright": "All rights reserved"
  },
  "welcome": "Welcome back"
}`)

	d, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	keys := d.Keys()
	want := []string{"nav.home", "nav.login", "footer.copyright", "welcome"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d: %v", len(want), len(keys), keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("key order: got %v, want %v", keys, want)
		}
	}

	e, ok := d.Get("nav.login")
	if !ok || !e.Pending || e.Text != "Sign in" {
		t.Fatalf("nav.login = %#v, want pending %q", e, "Sign in")
	}
	e, ok = d.Get("nav.home")
	if !ok || e.Pending || e.Text != "Home" {
		t.Fatalf("nav.home = %#v, want plain %q", e, "Home")
	}

	out, err := d.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	outStr := string(out)
	if !strings.Contains(outStr, `"login": {"update": "Sign in"}`) {
		t.Fatalf("marshaled output missing update marker:\n%s", outStr)
	}
	idxNav := strings.Index(outStr, `"nav"`)
	idxFooter := strings.Index(outStr, `"footer"`)
	idxWelcome := strings.Index(outStr, `"welcome"`)
	if !(idxNav < idxFooter && idxFooter < idxWelcome) {
		t.Fatalf("marshaled group order changed:\n%s", outStr)
	}
}

func TestMarshalParse_RoundTripIsByteStable(t *testing.T) {
	d := New()
	d.Set("nav.home", "Home")
	d.Set("nav.items.first", "First")
	d.Set("about", "About us")
	d.MarkForUpdate("nav.home", "Start page")

	first, err := d.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	reparsed, err := Parse(first)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	second, err := reparsed.Marshal()
	if err != nil {
		t.Fatalf("Marshal error after reparse: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Fatalf("round trip changed bytes:\n--- first\n%s\n--- second\n%s", first, second)
	}

	for _, k := range d.Keys() {
		a, _ := d.Get(k)
		b, ok := reparsed.Get(k)
		if !ok || a != b {
			t.Fatalf("entry %q: got %#v, want %#v", k, b, a)
		}
	}
}

func TestSet_PlacesNewKeyNextToGroupSiblings(t *testing.T) {
	d := New()
	d.Set("nav.home", "Home")
	d.Set("footer.copyright", "All rights reserved")
	d.Set("nav.about", "About")

	keys := d.Keys()
	want := []string{"nav.home", "nav.about", "footer.copyright"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("key order: got %v, want %v", keys, want)
		}
	}
}

func TestMerge_IsInsertOnly(t *testing.T) {
	d := New()
	d.Set("nav.home", "Home")
	d.Set("welcome", "Welcome")

	src := New()
	src.Set("nav.home", "CHANGED")
	src.Set("nav.login", "Sign in")

	added := d.Merge(src)
	if len(added) != 1 || added[0] != "nav.login" {
		t.Fatalf("added = %v, want [nav.login]", added)
	}

	e, _ := d.Get("nav.home")
	if e.Text != "Home" {
		t.Fatalf("merge overwrote existing value: %q", e.Text)
	}
	if !d.Has("nav.login") {
		t.Fatal("merge did not insert new key")
	}
}

func TestMarkForUpdate_NoOpCases(t *testing.T) {
	d := New()
	d.Set("welcome", "Welcome")

	if d.MarkForUpdate("missing", "x") {
		t.Fatal("marking a missing key should be a no-op")
	}
	if d.MarkForUpdate("welcome", "Welcome") {
		t.Fatal("marking with unchanged text should be a no-op")
	}
	if !d.MarkForUpdate("welcome", "Welcome back") {
		t.Fatal("expected mark to take effect")
	}
	if d.MarkForUpdate("welcome", "Another") {
		t.Fatal("marking an already pending key should be a no-op")
	}

	e, _ := d.Get("welcome")
	if !e.Pending || e.Text != "Welcome back" {
		t.Fatalf("entry = %#v, want pending %q", e, "Welcome back")
	}
}

func TestFlatten_CollapsesPendingOnly(t *testing.T) {
	d := New()
	d.Set("a", "one")
	d.MarkForUpdate("a", "two")

	if !d.Flatten("a") {
		t.Fatal("expected flatten to take effect")
	}
	e, _ := d.Get("a")
	if e.Pending || e.Text != "two" {
		t.Fatalf("entry = %#v, want plain %q", e, "two")
	}
	if d.Flatten("a") {
		t.Fatal("flattening a plain entry should be a no-op")
	}
}

func TestPrune_RemovesOrphans(t *testing.T) {
	d := New()
	d.Set("a", "x")
	d.Set("b", "y")
	d.Set("c", "z")

	removed := d.Prune(map[string]bool{"a": true, "c": true})
	if len(removed) != 1 || removed[0] != "b" {
		t.Fatalf("removed = %v, want [b]", removed)
	}
	if d.Has("b") {
		t.Fatal("pruned key still present")
	}
	keys := d.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Fatalf("unexpected keys after prune: %v", keys)
	}
}

func TestAlignTo_FollowsCanonicalOrder(t *testing.T) {
	d := New()
	d.Set("c", "3")
	d.Set("a", "1")
	d.Set("b", "2")

	d.AlignTo([]string{"a", "b", "c", "d"})
	keys := d.Keys()
	if keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Fatalf("unexpected order after align: %v", keys)
	}
}

func TestLoadOrEmpty_MissingFile(t *testing.T) {
	d, err := LoadOrEmpty(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadOrEmpty error: %v", err)
	}
	if d.Len() != 0 {
		t.Fatalf("expected empty dictionary, got %d keys", d.Len())
	}
}

func TestParseFile_MissingFileSurfacesNotExist(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("error does not unwrap to fs.ErrNotExist: %v", err)
	}
}

func TestWriteFile_AtomicReplaceAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages", "en.json")

	d := New()
	d.Set("nav.home", "Home")
	d.MarkForUpdate("nav.home", "Start")
	if err := d.WriteFile(path); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	reloaded, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	e, ok := reloaded.Get("nav.home")
	if !ok || !e.Pending || e.Text != "Start" {
		t.Fatalf("reloaded entry = %#v, want pending %q", e, "Start")
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the dictionary file, got %d entries", len(entries))
	}
}

func TestParse_RejectsNonStringLeaves(t *testing.T) {
	if _, err := Parse([]byte(`{"a": 42}`)); err == nil {
		t.Fatal("expected error for numeric leaf")
	}
	if _, err := Parse([]byte(`{"a": ["x"]}`)); err == nil {
		t.Fatal("expected error for array leaf")
	}
	if _, err := Parse([]byte(`{"broken":`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestMarshal_EmptyDictionary(t *testing.T) {
	out, err := New().Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(out) != "{}\n" {
		t.Fatalf("empty dictionary = %q, want %q", out, "{}\n")
	}
}

func TestMarshal_LeafGroupConflict(t *testing.T) {
	d := New()
	d.Set("nav", "whole")
	d.Set("nav.home", "Home")

	if _, err := d.Marshal(); err == nil {
		t.Fatal("expected conflict error for key shadowing a group")
	}
}
