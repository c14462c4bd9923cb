package mailsafe

import (
	"bytes"
	"strings"
)

// The scanner recognizes markup with a single forward pass. Attribute
// lists are read character-by-character honoring quote state, so a
// literal '>' inside a quoted attribute value never ends a tag early.
// Unterminated quotes degrade to ordinary characters; the scan never
// backs up and never hangs.

// scanTag result codes.
const (
	scanOK  = iota // complete tag parsed
	scanEOF        // input ended inside the tag
)

// attribute records one parsed attribute by its span in the source so
// kept attributes can be re-emitted byte-for-byte. start includes the
// attribute's leading whitespace.
type attribute struct {
	start, end int
	name       string // lowercased
	rawValue   string
	hasValue   bool
}

// tagToken is one parsed tag. start..end is the full raw span from '<'
// through '>'. nameEnd is the offset just past the tag name; attrsEnd
// is where the attribute list stops, so the source slice from attrsEnd
// to end is the tag's original terminator (">", " >", "/>", ...).
type tagToken struct {
	name        string // lowercased
	closing     bool
	selfClosing bool
	start, end  int
	nameEnd     int
	attrsEnd    int
	attrs       []attribute
}

func isSpaceByte(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

func isNameStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameByte(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9' || c == '-' || c == ':'
}

// isAttrNameByte matches the tokenizer rule browsers follow: anything
// up to whitespace, '=', '>', '/', or a quote belongs to the attribute
// name, a stray '<' included. Treating '<' as ordinary here keeps the
// scanner's idea of a tag boundary aligned with what a renderer will
// later decide, so "<script a<b>" is recognized as a script tag and not
// split into text plus a bogus element.
func isAttrNameByte(c byte) bool {
	switch c {
	case '=', '>', '/', '"', '\'':
		return false
	}
	return !isSpaceByte(c)
}

// scanTag parses the tag beginning at s[pos], which must be '<' with a
// tag-name character (optionally after '/') following it.
func scanTag(s []byte, pos int) (tagToken, int) {
	t := tagToken{start: pos}
	j := pos + 1
	if j < len(s) && s[j] == '/' {
		t.closing = true
		j++
	}
	nameStart := j
	for j < len(s) && isNameByte(s[j]) {
		j++
	}
	t.name = strings.ToLower(string(s[nameStart:j]))
	t.nameEnd = j

	for {
		wsStart := j
		for j < len(s) && isSpaceByte(s[j]) {
			j++
		}
		if j >= len(s) {
			return t, scanEOF
		}
		switch s[j] {
		case '>':
			t.attrsEnd = wsStart
			t.end = j + 1
			return t, scanOK
		case '/':
			k := j
			for k < len(s) && (s[k] == '/' || isSpaceByte(s[k])) {
				k++
			}
			if k < len(s) && s[k] == '>' {
				t.selfClosing = !t.closing
				t.attrsEnd = wsStart
				t.end = k + 1
				return t, scanOK
			}
			// stray slash inside the attribute list
			j++
			continue
		case '=', '"', '\'':
			// value with no attribute name; consume so the scan advances
			if s[j] == '=' {
				j++
				for j < len(s) && isSpaceByte(s[j]) {
					j++
				}
			}
			_, _, j = scanAttrValue(s, j)
			continue
		}

		attr := attribute{start: wsStart}
		keyStart := j
		for j < len(s) && isAttrNameByte(s[j]) {
			j++
		}
		attr.name = strings.ToLower(string(s[keyStart:j]))

		k := j
		for k < len(s) && isSpaceByte(s[k]) {
			k++
		}
		if k < len(s) && s[k] == '=' {
			k++
			for k < len(s) && isSpaceByte(s[k]) {
				k++
			}
			vs, ve, next := scanAttrValue(s, k)
			attr.rawValue = string(s[vs:ve])
			attr.hasValue = true
			j = next
		}
		attr.end = j
		t.attrs = append(t.attrs, attr)
	}
}

// scanAttrValue reads an attribute value starting at s[k]. Quoted
// values run to the matching quote and may contain '>' and '<' freely;
// an unterminated quote is treated as an ordinary character and the
// value re-read unquoted. Unquoted values stop at whitespace or '>'.
func scanAttrValue(s []byte, k int) (start, end, next int) {
	if k < len(s) && (s[k] == '"' || s[k] == '\'') {
		q := s[k]
		if idx := bytes.IndexByte(s[k+1:], q); idx >= 0 {
			return k + 1, k + 1 + idx, k + 2 + idx
		}
	}
	start = k
	for k < len(s) && !isSpaceByte(s[k]) && s[k] != '>' {
		k++
	}
	return start, k, k
}

// findClosing returns the offset just past the first complete closing
// tag for name at or after pos. The close tag's own attribute list is
// scanned quote-aware, matching the open-tag rules. Searching by first
// literal occurrence (rather than nesting depth) mirrors how the
// content between a pair is defined: everything up to the first
// matching close.
func findClosing(s []byte, pos int, name string) (end int, found bool) {
	nb := []byte(name)
	for i := pos; i+2+len(nb) <= len(s); i++ {
		if s[i] != '<' || s[i+1] != '/' {
			continue
		}
		j := i + 2
		if !bytes.EqualFold(s[j:j+len(nb)], nb) {
			continue
		}
		// The name must end here. Whitespace, '/', or '>' all terminate
		// it the way a browser's end-tag scan does; a name character
		// means a longer name, e.g. </scripts> while looking for
		// </script>.
		k := j + len(nb)
		if k < len(s) && !isSpaceByte(s[k]) && s[k] != '>' && s[k] != '/' {
			continue
		}
		for k < len(s) {
			switch s[k] {
			case '>':
				return k + 1, true
			case '"', '\'':
				q := s[k]
				idx := bytes.IndexByte(s[k+1:], q)
				if idx < 0 {
					k++ // unterminated quote: ordinary character
				} else {
					k += idx + 2
				}
			default:
				k++
			}
		}
		// Found "</name" but the input ends before any '>'; no later
		// candidate can complete either.
		return 0, false
	}
	return 0, false
}

// skipMarkup advances past non-tag markup starting at s[i] ('<'):
// comments, doctype declarations, CDATA sections, processing
// instructions, and bogus end tags. All of it is dropped.
func skipMarkup(s []byte, i int) int {
	if bytes.HasPrefix(s[i:], []byte("<!--")) {
		if idx := bytes.Index(s[i+4:], []byte("-->")); idx >= 0 {
			return i + 4 + idx + 3
		}
		return len(s)
	}
	if bytes.HasPrefix(s[i:], []byte("<![CDATA[")) {
		if idx := bytes.Index(s[i+9:], []byte("]]>")); idx >= 0 {
			return i + 9 + idx + 3
		}
		return len(s)
	}
	if idx := bytes.IndexByte(s[i:], '>'); idx >= 0 {
		return i + idx + 1
	}
	return len(s)
}
