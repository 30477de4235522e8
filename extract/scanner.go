// Heuristic markup scanner for JSX-style UI sources.
//
// The scanner walks a file once, keeping a stack of lexical scopes: plain
// code, the inside of a tag, and the text children of an open element.
// Comments, string literals and template literals are consumed so their
// contents never look like markup. It is not a full parser; constructs it
// cannot follow (unterminated literals, unbalanced elements) surface as an
// error and the caller skips the file.
package extract

import (
	"fmt"
	"sort"
	"strings"
)

// span is a byte range in the source to be replaced by a t() call.
// For attribute values the range includes the surrounding quotes.
type span struct {
	start int
	end   int
	text  string // collapsed literal text
	attr  string // attribute name, empty for element text
}

type frameKind int

const (
	frameCode frameKind = iota // plain code, or a {...} expression
	frameText                  // children of an open element
	frameTag                   // between < and >
)

type frame struct {
	kind frameKind

	// frameCode
	expr       bool // opened by { inside markup; the matching } pops it
	braceDepth int

	// frameText
	runStart int

	// frameTag
	name        string
	closing     bool
	invalid     bool
	slash       bool
	pendingAttr string
	attrs       []span
}

type scanner struct {
	src   string
	pos   int
	stack []*frame
	spans []span
}

// scanMarkup returns every literal text run and quoted attribute value in
// source order. Runs that are whitespace only are dropped; no further
// filtering happens here.
func scanMarkup(src string) ([]span, error) {
	s := &scanner{src: src}
	s.push(&frame{kind: frameCode})

	for s.pos < len(s.src) {
		var err error
		switch s.top().kind {
		case frameCode:
			err = s.stepCode()
		case frameText:
			s.stepText()
		case frameTag:
			err = s.stepTag()
		}
		if err != nil {
			return nil, err
		}
	}

	if len(s.stack) > 1 {
		switch s.top().kind {
		case frameTag:
			return nil, fmt.Errorf("unterminated tag <%s", s.top().name)
		case frameText:
			return nil, fmt.Errorf("unclosed element")
		default:
			return nil, fmt.Errorf("unclosed expression")
		}
	}

	// Attribute spans are committed when their tag closes, so an element
	// nested inside an attribute expression can land before the outer
	// tag's own attributes. Restore source order for splicing.
	sort.Slice(s.spans, func(i, j int) bool { return s.spans[i].start < s.spans[j].start })
	return s.spans, nil
}

func (s *scanner) push(f *frame) { s.stack = append(s.stack, f) }

func (s *scanner) pop() *frame {
	f := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return f
}

func (s *scanner) top() *frame { return s.stack[len(s.stack)-1] }

func (s *scanner) peek(n int) byte {
	if s.pos+n >= len(s.src) {
		return 0
	}
	return s.src[s.pos+n]
}

// ---------------------------------------------------------------------------
// Code scope
// ---------------------------------------------------------------------------

func (s *scanner) stepCode() error {
	f := s.top()
	c := s.src[s.pos]
	switch {
	case c == '/' && s.peek(1) == '/':
		s.skipLineComment()
	case c == '/' && s.peek(1) == '*':
		return s.skipBlockComment()
	case c == '\'' || c == '"':
		return s.skipString(c)
	case c == '`':
		return s.skipTemplate()
	case c == '{':
		f.braceDepth++
		s.pos++
	case c == '}':
		switch {
		case f.braceDepth > 0:
			f.braceDepth--
			s.pos++
		case f.expr:
			s.pop()
			s.pos++
		default:
			s.pos++ // stray closer, tolerated
		}
	case c == '<' && s.tagStarts():
		s.pushTag()
	default:
		s.pos++
	}
	return nil
}

// tagStarts reports whether the '<' at the current position begins markup
// rather than a comparison or a type parameter list. Markup can only follow
// an operator, an opening bracket or one of a few keywords; after an
// identifier (Array<string>, a < b) the angle bracket is code.
func (s *scanner) tagStarts() bool {
	next := s.peek(1)
	if next != '/' && next != '>' && !isNameStart(next) {
		return false
	}
	prev, word := s.prevToken()
	switch prev {
	case 0, '(', ',', '=', '?', ':', '&', '|', '[', '{', '}', ';', '>':
		return true
	}
	return jsxPrecedingKeywords[word]
}

var jsxPrecedingKeywords = map[string]bool{
	"return":  true,
	"case":    true,
	"default": true,
	"do":      true,
	"else":    true,
	"yield":   true,
	"await":   true,
	"typeof":  true,
	"in":      true,
	"of":      true,
}

// prevToken returns the last significant byte before the current position
// and, when that byte ends a word, the whole word.
func (s *scanner) prevToken() (byte, string) {
	i := s.pos - 1
	for i >= 0 && isSpace(s.src[i]) {
		i--
	}
	if i < 0 {
		return 0, ""
	}
	c := s.src[i]
	if !isWordByte(c) {
		return c, ""
	}
	end := i + 1
	for i >= 0 && isWordByte(s.src[i]) {
		i--
	}
	return c, s.src[i+1 : end]
}

// ---------------------------------------------------------------------------
// Text scope
// ---------------------------------------------------------------------------

func (s *scanner) stepText() {
	f := s.top()
	if f.runStart < 0 {
		f.runStart = s.pos
	}
	c := s.src[s.pos]
	switch {
	case c == '<' && s.textTagStarts():
		s.flushRun(f)
		s.pushTag()
	case c == '{':
		s.flushRun(f)
		s.pos++
		s.push(&frame{kind: frameCode, expr: true})
	default:
		s.pos++
	}
}

// textTagStarts is the text-scope variant of tagStarts: inside element
// children anything shaped like a tag is one, while a lone '<' (as in
// "a < b") stays literal text.
func (s *scanner) textTagStarts() bool {
	next := s.peek(1)
	return next == '/' || next == '>' || isNameStart(next)
}

// flushRun emits the text accumulated since runStart, trimmed to its
// visible part so surrounding indentation survives the rewrite.
func (s *scanner) flushRun(f *frame) {
	if f.runStart < 0 {
		return
	}
	start, end := f.runStart, s.pos
	f.runStart = -1
	raw := s.src[start:end]
	lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
	trail := len(raw) - len(strings.TrimRight(raw, " \t\r\n"))
	if lead+trail >= len(raw) {
		return
	}
	s.spans = append(s.spans, span{
		start: start + lead,
		end:   end - trail,
		text:  collapseWhitespace(raw),
	})
}

// ---------------------------------------------------------------------------
// Tag scope
// ---------------------------------------------------------------------------

func (s *scanner) pushTag() {
	f := &frame{kind: frameTag}
	s.pos++ // '<'
	if s.pos < len(s.src) && s.src[s.pos] == '/' {
		f.closing = true
		s.pos++
	}
	start := s.pos
	for s.pos < len(s.src) && isNameByte(s.src[s.pos]) {
		s.pos++
	}
	f.name = s.src[start:s.pos]
	s.push(f)
}

func (s *scanner) stepTag() error {
	f := s.top()
	c := s.src[s.pos]
	switch {
	case c == '>':
		s.pos++
		s.finishTag(f)
	case c == '/':
		f.slash = true
		f.pendingAttr = ""
		s.pos++
	case c == '\'' || c == '"':
		start := s.pos
		if err := s.skipAttrValue(c); err != nil {
			return err
		}
		if f.pendingAttr != "" && !f.closing {
			f.attrs = append(f.attrs, span{
				start: start,
				end:   s.pos,
				text:  s.src[start+1 : s.pos-1],
				attr:  f.pendingAttr,
			})
		}
		f.pendingAttr = ""
		f.slash = false
	case c == '{':
		f.pendingAttr = ""
		f.slash = false
		s.pos++
		s.push(&frame{kind: frameCode, expr: true})
	case isAttrNameByte(c):
		start := s.pos
		for s.pos < len(s.src) && isAttrNameByte(s.src[s.pos]) {
			s.pos++
		}
		name := s.src[start:s.pos]
		f.pendingAttr = ""
		f.slash = false
		j := s.pos
		for j < len(s.src) && isSpace(s.src[j]) {
			j++
		}
		if j < len(s.src) && s.src[j] == '=' {
			j++
			for j < len(s.src) && isSpace(s.src[j]) {
				j++
			}
			f.pendingAttr = name
			s.pos = j
		}
	case isSpace(c):
		s.pos++
	default:
		// Not something a tag can contain; likely a generic parameter
		// list that slipped past tagStarts. Consume but extract nothing.
		f.invalid = true
		f.pendingAttr = ""
		s.pos++
	}
	return nil
}

func (s *scanner) finishTag(f *frame) {
	s.pop()
	if f.invalid {
		return
	}
	if f.closing {
		if s.top().kind == frameText {
			s.pop()
		}
		return
	}
	s.spans = append(s.spans, f.attrs...)
	if !f.slash {
		s.push(&frame{kind: frameText, runStart: s.pos})
	}
}

// ---------------------------------------------------------------------------
// Literal skipping
// ---------------------------------------------------------------------------

func (s *scanner) skipLineComment() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *scanner) skipBlockComment() error {
	s.pos += 2
	for s.pos < len(s.src) {
		if s.src[s.pos] == '*' && s.peek(1) == '/' {
			s.pos += 2
			return nil
		}
		s.pos++
	}
	return fmt.Errorf("unterminated comment")
}

func (s *scanner) skipString(quote byte) error {
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
		case quote:
			s.pos++
			return nil
		case '\n':
			// A raw newline ends the statement anyway; stop here so one
			// stray quote cannot swallow the rest of the file.
			return nil
		default:
			s.pos++
		}
	}
	return fmt.Errorf("unterminated string literal")
}

func (s *scanner) skipTemplate() error {
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
		case '`':
			s.pos++
			return nil
		default:
			s.pos++
		}
	}
	return fmt.Errorf("unterminated template literal")
}

func (s *scanner) skipAttrValue(quote byte) error {
	s.pos++
	for s.pos < len(s.src) {
		if s.src[s.pos] == quote {
			s.pos++
			return nil
		}
		s.pos++
	}
	return fmt.Errorf("unterminated attribute value")
}

// ---------------------------------------------------------------------------
// Byte classes
// ---------------------------------------------------------------------------

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isNameStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameByte(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9' || c == '.' || c == '-' || c == ':' || c == '_'
}

func isAttrNameByte(c byte) bool {
	return isNameByte(c) || c == '$' || c == '@'
}

func isWordByte(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9' || c == '_' || c == '$'
}

// collapseWhitespace reduces runs of markup whitespace to single spaces,
// the way JSX renders adjacent text lines.
func collapseWhitespace(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	}), " ")
}
