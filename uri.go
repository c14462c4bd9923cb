package mailsafe

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// dangerousURI reports whether an attribute value, once the obfuscation
// a mail client's HTML parser would undo has been decoded, resolves to
// a scheme that can execute code. attr is the lowercased attribute
// name; data: URIs are tolerated only as inline images in src.
func dangerousURI(raw, attr string) bool {
	v := normalizeURI(raw)
	if strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:") {
		return true
	}
	if strings.HasPrefix(v, "data:") {
		return attr != "src" || !strings.HasPrefix(v, "data:image/")
	}
	return false
}

// normalizeURI produces the form of raw used for scheme classification
// and nothing else; the stored attribute value is never rewritten.
// Decimal and hex numeric character references (with or without the
// trailing semicolon) and the named references &tab; and &newline; are
// decoded, then whitespace and NUL are dropped and the rest lowercased.
// That defeats "java\nscript:", "&#106;avascript:", and NUL insertion.
//
// Named-entity coverage is deliberately this narrow; see the package
// documentation.
func normalizeURI(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); {
		if raw[i] == '&' {
			if r, n := decodeRef(raw[i:]); n > 0 {
				writeNormalized(&b, r)
				i += n
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(raw[i:])
		writeNormalized(&b, r)
		i += size
	}
	return b.String()
}

func writeNormalized(b *strings.Builder, r rune) {
	if r == 0 || unicode.IsSpace(r) {
		return
	}
	b.WriteRune(unicode.ToLower(r))
}

// decodeRef decodes one character reference at the start of s, which
// begins with '&'. It returns the decoded rune and the number of bytes
// consumed, or n == 0 when s does not start with a recognized
// reference.
func decodeRef(s string) (r rune, n int) {
	if len(s) >= 5 && strings.EqualFold(s[:5], "&tab;") {
		return '\t', 5
	}
	if len(s) >= 9 && strings.EqualFold(s[:9], "&newline;") {
		return '\n', 9
	}
	if len(s) < 3 || s[1] != '#' {
		return 0, 0
	}
	i := 2
	base := 10
	if s[i] == 'x' || s[i] == 'X' {
		base = 16
		i++
	}
	start := i
	v := 0
	overflow := false
	for i < len(s) {
		d := digitVal(s[i], base)
		if d < 0 {
			break
		}
		v = v*base + d
		if v > unicode.MaxRune {
			overflow = true
			v = 0
		}
		i++
	}
	if i == start {
		return 0, 0
	}
	if i < len(s) && s[i] == ';' {
		i++
	}
	if overflow {
		return utf8.RuneError, i
	}
	return rune(v), i
}

func digitVal(c byte, base int) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case base == 16 && c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case base == 16 && c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
