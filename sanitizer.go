package mailsafe

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// BodyType is the body-format hint supplied by the message-fetch layer
// alongside a decoded body.
type BodyType string

const (
	BodyTypeText BodyType = "text"
	BodyTypeHTML BodyType = "html"
)

// contentStripTags are removed together with everything nested inside
// them, through the first matching close tag.
var contentStripTags = map[string]bool{
	"script":        true,
	"iframe":        true,
	"object":        true,
	"embed":         true,
	"applet":        true,
	"noscript":      true,
	"link":          true,
	"meta":          true,
	"base":          true,
	"foreignobject": true,
}

// shellStripTags lose their open/close markers only; nested text and
// markup stay in place.
var shellStripTags = map[string]bool{
	"form":     true,
	"input":    true,
	"button":   true,
	"select":   true,
	"textarea": true,
	"option":   true,
	"optgroup": true,
}

// maxStripName is the longest tag name in the strip sets. A strip
// marker is at most "</" plus a name, which bounds how far back a
// removal seam has to be rechecked.
const (
	maxStripName = len("foreignobject")
	seamWindow   = maxStripName + 2
)

// uriAttrs are the attributes whose values are classified for
// executable schemes.
var uriAttrs = map[string]bool{
	"href":       true,
	"src":        true,
	"srcset":     true,
	"xlink:href": true,
	"formaction": true,
	"action":     true,
	"poster":     true,
}

const hardenedLinkAttrs = ` target="_blank" rel="noopener noreferrer"`

// Sanitize renders untrusted email HTML safe to inject into a rendering
// surface. It removes script and embed-like tags with their content,
// unwraps form controls, drops event-handler attributes and URI
// attributes with executable schemes, and forces every link to open in
// a new tab without an opener reference. Surviving markup keeps its
// original bytes, attribute order, and quoting.
//
// Sanitize is total: any input, however malformed, yields a string, and
// empty input yields an empty string. It is safe for concurrent use.
func Sanitize(rawHTML string) string {
	buf := []byte(rawHTML)
	// Splices are resolved inside stripMarkup's own sweep, so the loop
	// normally settles on the second iteration; it repeats until neither
	// stage changes anything, which makes the result a fixed point by
	// construction.
	for {
		stripped, changed := stripMarkup(buf)
		out, rewritten := rewriteTags(stripped)
		if !changed && !rewritten {
			return string(out)
		}
		buf = out
	}
}

// stripMarkup is the context-free removal sweep: strip-set tags (the
// content set with everything through the first matching close, the
// shell set as bare markers), comments, doctype declarations, CDATA
// sections, processing instructions, and bogus end tags. It runs before
// any tag parsing and matches anywhere in the input, including inside
// what a later parse would call a quoted attribute value: browsers scan
// raw-text content such as <style> for a literal close marker without
// regard to quotes, so the strip must be at least as eager, or payloads
// like <style><p title="</style><script>..."> stay live.
//
// buf is compacted in place and the returned slice aliases it. After
// each removal the last seamWindow kept bytes are moved up against the
// remainder and rescanned, so a marker spliced together by the removal
// (a literal "<" joined to an exposed "script>") is caught in the same
// sweep, however deeply such seams nest.
func stripMarkup(buf []byte) ([]byte, bool) {
	w, r := 0, 0
	changed := false
	for r < len(buf) {
		rel := bytes.IndexByte(buf[r:], '<')
		if rel < 0 {
			w += copy(buf[w:], buf[r:])
			break
		}
		i := r + rel
		end, ok := stripSpan(buf, i)
		if !ok {
			w += copy(buf[w:], buf[r:i+1])
			r = i + 1
			continue
		}
		w += copy(buf[w:], buf[r:i])
		r = end
		changed = true

		k := seamWindow
		if w < k {
			k = w
		}
		if k > 0 {
			copy(buf[r-k:r], buf[w-k:w])
			w -= k
			r -= k
		}
	}
	if !changed {
		return buf, false
	}
	return buf[:w], true
}

// stripSpan reports whether a span the strip sweep removes begins at
// s[i], which must be '<', and returns the offset just past it.
func stripSpan(s []byte, i int) (int, bool) {
	if i+1 >= len(s) {
		return 0, false // trailing '<' is literal text
	}
	c := s[i+1]
	if c == '!' || c == '?' {
		return skipMarkup(s, i), true
	}
	if c == '/' && (i+2 >= len(s) || !isNameStart(s[i+2])) {
		// bogus end tag, e.g. "</ >"
		return skipMarkup(s, i), true
	}
	name, ok := stripNameAt(s, i)
	if !ok {
		return 0, false
	}
	t, status := scanTag(s, i)
	if status == scanEOF {
		// the input ends inside the marker; drop the truncated tail
		return len(s), true
	}
	if contentStripTags[name] && !t.closing && !t.selfClosing {
		if end, found := findClosing(s, t.end, name); found {
			return end, true
		}
	}
	return t.end, true
}

// stripNameAt matches a strip-set tag name at the marker starting at
// s[i] ('<', optional '/'). The name is matched case-insensitively and
// must end at a byte that cannot extend it, so <scripts> is not a
// script marker.
func stripNameAt(s []byte, i int) (string, bool) {
	j := i + 1
	if j < len(s) && s[j] == '/' {
		j++
	}
	var lower [maxStripName]byte
	n := 0
	for j+n < len(s) && isNameByte(s[j+n]) {
		if n == maxStripName {
			return "", false // longer than any strip name
		}
		c := s[j+n]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		lower[n] = c
		n++
	}
	if n == 0 {
		return "", false
	}
	if contentStripTags[string(lower[:n])] || shellStripTags[string(lower[:n])] {
		return string(lower[:n]), true
	}
	return "", false
}

// SanitizeReader reads an HTML body from r and sanitizes it. The only
// error path is the reader's own.
func SanitizeReader(r io.Reader) (string, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return Sanitize(string(buf)), nil
}

// SanitizeBody prepares a decoded message body for rendering. HTML
// bodies are sanitized; anything else is treated as plain text, escaped
// and newline-converted, so the caller renders a single HTML surface
// for either body type.
func SanitizeBody(content string, typ BodyType) string {
	if typ == BodyTypeHTML {
		return Sanitize(content)
	}
	escaped := html.EscapeString(content)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return strings.ReplaceAll(escaped, "\n", "<br>\n")
}

// PlainText extracts the text content of rawHTML for message-list
// previews and notifications. Entity references are decoded; script and
// style bodies are not text and are skipped.
func PlainText(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}

// rewriteTags is one sweep over s after the strip sweep has run. Text
// is copied through, leftover non-tag markup is dropped, and each
// recognized tag has its attributes rewritten.
func rewriteTags(s []byte) ([]byte, bool) {
	if bytes.IndexByte(s, '<') < 0 {
		return s, false
	}
	var b bytes.Buffer
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		next := bytes.IndexByte(s[i:], '<')
		if next < 0 {
			b.Write(s[i:])
			break
		}
		b.Write(s[i : i+next])
		i += next

		if i+1 >= len(s) {
			// trailing '<' is literal text
			b.WriteByte('<')
			break
		}
		c := s[i+1]
		switch {
		case c == '!' || c == '?':
			i = skipMarkup(s, i)
			continue
		case c == '/' && (i+2 >= len(s) || !isNameStart(s[i+2])):
			// bogus end tag, e.g. "</ >"
			i = skipMarkup(s, i)
			continue
		case c != '/' && !isNameStart(c):
			// "1 < 2": literal text, not markup
			b.WriteByte('<')
			i++
			continue
		}

		t, status := scanTag(s, i)
		if status == scanEOF {
			// the input ends inside the tag; a truncated tag never
			// reaches the output
			break
		}
		writeTag(&b, s, t)
		i = t.end
	}
	out := b.Bytes()
	if bytes.Equal(out, s) {
		return s, false
	}
	return out, true
}

// writeTag emits a surviving tag. When no attribute is dropped and no
// hardening applies, the original bytes are copied verbatim. Otherwise
// the tag is rebuilt from the kept attributes' raw spans, preserving
// their order, quoting, and spacing.
func writeTag(b *bytes.Buffer, s []byte, t tagToken) {
	anchor := t.name == "a" && !t.closing

	modified := anchor
	drop := make([]bool, len(t.attrs))
	for i, a := range t.attrs {
		switch {
		case isEventHandlerName(a.name):
			drop[i] = true
		case anchor && (a.name == "target" || a.name == "rel"):
			drop[i] = true
		case uriAttrs[a.name] && a.hasValue && dangerousURI(a.rawValue, a.name):
			drop[i] = true
		}
		if drop[i] {
			modified = true
		}
	}
	if !modified {
		b.Write(s[t.start:t.end])
		return
	}

	b.Write(s[t.start:t.nameEnd])
	for i, a := range t.attrs {
		if drop[i] {
			continue
		}
		if !isSpaceByte(s[a.start]) {
			b.WriteByte(' ')
		}
		b.Write(s[a.start:a.end])
	}
	if anchor {
		b.WriteString(hardenedLinkAttrs)
	}
	b.Write(s[t.attrsEnd:t.end])
}

// isEventHandlerName reports whether name (already lowercased) is an
// event-handler attribute: "on" followed by one or more letters. Names
// that merely contain "on", like action, do not match.
func isEventHandlerName(name string) bool {
	if len(name) < 3 || name[0] != 'o' || name[1] != 'n' {
		return false
	}
	for i := 2; i < len(name); i++ {
		if name[i] < 'a' || name[i] > 'z' {
			return false
		}
	}
	return true
}
