// Package dictionary implements reading and writing of the nested JSON
// translation dictionaries intlbot maintains.
//
// The canonical (source-language) dictionary maps dotted keys to either a
// plain string (steady state) or an update marker recording that the source
// text changed and target languages must re-translate:
//
//	{
//	    "nav": {
//	        "home": "Home",
//	        "login": {"update": "Sign in"}
//	    },
//	    "footer": {
//	        "copyright": "All rights reserved"
//	    }
//	}
//
// Key paths in the nesting correspond to dotted keys ("nav.home"). Target
// language dictionaries use the same shape but their leaves are always plain
// strings. Key order is preserved across load/save so repeated runs with no
// changes produce byte-identical files.
package dictionary

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Entry (leaf value variant)
// ---------------------------------------------------------------------------

// Entry is a dictionary leaf. Text holds the current source text; Pending
// reports whether the text changed and languages still need re-translation.
// A pending entry serializes as {"update": "<text>"} instead of a bare
// string.
type Entry struct {
	Text    string
	Pending bool
}

// Plain returns a steady-state entry.
func Plain(text string) Entry {
	return Entry{Text: text}
}

// PendingUpdate returns an entry carrying changed source text that has not
// yet been re-translated in every language.
func PendingUpdate(text string) Entry {
	return Entry{Text: text, Pending: true}
}

// ---------------------------------------------------------------------------
// Dictionary
// ---------------------------------------------------------------------------

// Dictionary is an ordered mapping from dotted keys to entries.
type Dictionary struct {
	// keys preserves file order. The slice always matches the pre-order
	// walk of the nested JSON produced by Marshal.
	keys    []string
	entries map[string]Entry
}

// New returns an empty dictionary.
func New() *Dictionary {
	return &Dictionary{entries: make(map[string]Entry)}
}

// Len returns the number of keys.
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Keys returns the dotted keys in file order.
func (d *Dictionary) Keys() []string {
	return d.keys
}

// Has reports whether key exists.
func (d *Dictionary) Has(key string) bool {
	_, ok := d.entries[key]
	return ok
}

// Get returns the entry for key.
func (d *Dictionary) Get(key string) (Entry, bool) {
	e, ok := d.entries[key]
	return e, ok
}

// Set upserts a plain entry. New keys are placed next to their group
// siblings so the nested output stays stable; existing keys keep their
// position.
func (d *Dictionary) Set(key, text string) {
	d.put(key, Plain(text))
}

func (d *Dictionary) put(key string, e Entry) {
	if _, ok := d.entries[key]; ok {
		d.entries[key] = e
		return
	}
	pos := d.insertPos(key)
	d.keys = append(d.keys, "")
	copy(d.keys[pos+1:], d.keys[pos:])
	d.keys[pos] = key
	d.entries[key] = e
}

// insertPos finds where a new key belongs: directly after the last key in
// its closest existing ancestor group, or at the end for a new top-level
// group.
func (d *Dictionary) insertPos(key string) int {
	prefix := key
	for {
		i := strings.LastIndexByte(prefix, '.')
		if i < 0 {
			return len(d.keys)
		}
		prefix = prefix[:i]
		last := -1
		for j, k := range d.keys {
			if strings.HasPrefix(k, prefix+".") {
				last = j
			}
		}
		if last >= 0 {
			return last + 1
		}
	}
}

// ---------------------------------------------------------------------------
// Lifecycle operations
// ---------------------------------------------------------------------------

// Merge inserts entries from src that are absent from d, in src order.
// Existing keys are never overwritten. Returns the keys that were added.
func (d *Dictionary) Merge(src *Dictionary) []string {
	var added []string
	for _, k := range src.keys {
		if _, ok := d.entries[k]; ok {
			continue
		}
		d.put(k, src.entries[k])
		added = append(added, k)
	}
	return added
}

// MarkForUpdate rewrites a plain entry into pending form carrying newText.
// No-op when the key is absent, already pending, or the text is unchanged.
// Reports whether the entry changed.
func (d *Dictionary) MarkForUpdate(key, newText string) bool {
	e, ok := d.entries[key]
	if !ok || e.Pending || e.Text == newText {
		return false
	}
	d.entries[key] = PendingUpdate(newText)
	return true
}

// Flatten collapses a pending entry back to plain form. Reports whether the
// entry changed.
func (d *Dictionary) Flatten(key string) bool {
	e, ok := d.entries[key]
	if !ok || !e.Pending {
		return false
	}
	d.entries[key] = Plain(e.Text)
	return true
}

// PendingKeys returns the keys currently in pending form, in file order.
func (d *Dictionary) PendingKeys() []string {
	var result []string
	for _, k := range d.keys {
		if d.entries[k].Pending {
			result = append(result, k)
		}
	}
	return result
}

// Prune removes every key not present in valid. Returns the removed keys in
// their previous order.
func (d *Dictionary) Prune(valid map[string]bool) []string {
	var removed []string
	kept := d.keys[:0]
	for _, k := range d.keys {
		if valid[k] {
			kept = append(kept, k)
		} else {
			removed = append(removed, k)
			delete(d.entries, k)
		}
	}
	d.keys = kept
	return removed
}

// AlignTo reorders keys to follow the given order. Keys missing from order
// keep their relative position at the end.
func (d *Dictionary) AlignTo(order []string) {
	aligned := make([]string, 0, len(d.keys))
	seen := make(map[string]bool, len(d.keys))
	for _, k := range order {
		if _, ok := d.entries[k]; ok {
			aligned = append(aligned, k)
			seen[k] = true
		}
	}
	for _, k := range d.keys {
		if !seen[k] {
			aligned = append(aligned, k)
		}
	}
	d.keys = aligned
}

// Stats returns (total, pending) entry counts.
func (d *Dictionary) Stats() (total, pending int) {
	total = len(d.entries)
	for _, e := range d.entries {
		if e.Pending {
			pending++
		}
	}
	return
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a dictionary file. A missing file surfaces the
// underlying not-exist error so callers can distinguish first runs; see
// LoadOrEmpty.
func ParseFile(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOrEmpty reads a dictionary file, returning an empty dictionary when
// the file does not exist.
func LoadOrEmpty(path string) (*Dictionary, error) {
	d, err := ParseFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, err
	}
	return d, nil
}

// Parse parses nested dictionary JSON preserving key order.
func Parse(data []byte) (*Dictionary, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))

	t, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected {, got %v", t)
	}

	members, err := parseMembers(dec)
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	d := New()
	if err := d.addMembers("", members); err != nil {
		return nil, err
	}
	return d, nil
}

// rawMember is one key of a JSON object with order preserved. Exactly one
// of str/group is meaningful.
type rawMember struct {
	key   string
	str   *string
	group bool
	obj   []rawMember
}

func parseMembers(dec *json.Decoder) ([]rawMember, error) {
	var members []rawMember
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", kt)
		}

		vt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch v := vt.(type) {
		case string:
			s := v
			members = append(members, rawMember{key: key, str: &s})
		case json.Delim:
			if v != '{' {
				return nil, fmt.Errorf("unexpected %v for key %q", v, key)
			}
			inner, err := parseMembers(dec)
			if err != nil {
				return nil, err
			}
			members = append(members, rawMember{key: key, group: true, obj: inner})
		default:
			return nil, fmt.Errorf("expected string or object for key %q, got %v", key, vt)
		}
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return members, nil
}

// addMembers flattens parsed members into dotted keys. An object with a
// single string member named "update" is a pending entry, not a group.
func (d *Dictionary) addMembers(prefix string, members []rawMember) error {
	for _, m := range members {
		full := m.key
		if prefix != "" {
			full = prefix + "." + m.key
		}
		switch {
		case m.str != nil:
			d.put(full, Plain(*m.str))
		case len(m.obj) == 1 && m.obj[0].key == "update" && m.obj[0].str != nil:
			d.put(full, PendingUpdate(*m.obj[0].str))
		case m.group:
			if err := d.addMembers(full, m.obj); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected value for key %q", full)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// node is one level of the nested output tree.
type node struct {
	name     string
	entry    *Entry
	children []*node
	index    map[string]*node
}

func (n *node) child(name string) *node {
	if n.index == nil {
		n.index = make(map[string]*node)
	}
	c, ok := n.index[name]
	if !ok {
		c = &node{name: name}
		n.index[name] = c
		n.children = append(n.children, c)
	}
	return c
}

// Marshal produces nested JSON with 4-space indentation, keys in file
// order. The output is deterministic for a given dictionary state.
func (d *Dictionary) Marshal() ([]byte, error) {
	root := &node{}
	for _, key := range d.keys {
		parts := strings.Split(key, ".")
		cur := root
		for i, part := range parts {
			cur = cur.child(part)
			if i < len(parts)-1 {
				if cur.entry != nil {
					return nil, fmt.Errorf("key %q conflicts with value at %q", key, strings.Join(parts[:i+1], "."))
				}
			}
		}
		if len(cur.children) > 0 {
			return nil, fmt.Errorf("key %q conflicts with group of the same name", key)
		}
		e := d.entries[key]
		cur.entry = &e
	}

	var b strings.Builder
	if len(root.children) == 0 {
		b.WriteString("{}\n")
		return []byte(b.String()), nil
	}

	b.WriteString("{\n")
	writeChildren(&b, root, 1)
	b.WriteString("}\n")
	return []byte(b.String()), nil
}

func writeChildren(b *strings.Builder, n *node, depth int) {
	indent := strings.Repeat("    ", depth)
	for i, c := range n.children {
		b.WriteString(indent)
		b.WriteString(jsonString(c.name))
		b.WriteString(": ")
		if c.entry != nil {
			if c.entry.Pending {
				b.WriteString("{\"update\": " + jsonString(c.entry.Text) + "}")
			} else {
				b.WriteString(jsonString(c.entry.Text))
			}
		} else {
			b.WriteString("{\n")
			writeChildren(b, c, depth+1)
			b.WriteString(indent)
			b.WriteByte('}')
		}
		if i < len(n.children)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
}

// jsonString returns a JSON-encoded string value (with proper escaping).
func jsonString(s string) string {
	return strconv.Quote(s)
}

// WriteFile writes the dictionary atomically: the content goes to a
// temporary file in the target directory which is then renamed over path,
// so a crash mid-write never leaves a half-written dictionary.
func (d *Dictionary) WriteFile(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions on %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
