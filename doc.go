// Package mailsafe renders untrusted email HTML harmless while keeping
// the message looking the way its sender intended.
//
// # Overview
//
// mailsafe takes the decoded body of an email message and returns HTML
// that is safe to inject into a rendering surface. The input is assumed
// hostile: obfuscated script injection, entity-encoded URIs, and
// malformed markup are the normal case, not the exception. The
// transform is a forward scan rather than a DOM round-trip, so
// surviving markup keeps its original bytes, attribute order, and
// quoting. Tag recognition honors quote state: a literal '>' inside a
// quoted attribute value never terminates a tag early.
//
// # Pipeline
//
// [Sanitize] applies ordered stages; later stages assume earlier ones
// have already removed executable content:
//
//  1. Content strip: script, iframe, object, embed, applet, noscript,
//     link, meta, base, and foreignObject are removed together with
//     everything nested inside them.
//  2. Shell strip: form, input, button, select, textarea, option, and
//     optgroup lose their markers; their text and children stay.
//  3. Event-handler filter: every attribute named "on" plus letters is
//     dropped, in any quoting style.
//  4. URI guard: href, src, srcset, xlink:href, formaction, action, and
//     poster values are decoded and classified; javascript:, vbscript:,
//     and data: schemes (except data:image/* in src) delete the whole
//     attribute. Values that pass survive byte-for-byte.
//  5. Link hardener: every <a> opening tag gets exactly
//     target="_blank" and rel="noopener noreferrer".
//
// Comments, doctype declarations, CDATA sections, and processing
// instructions are dropped. Removing a span can splice the text around
// it into a new marker (a literal "<" joined to an exposed "script>"),
// so the strip re-reads a fixed window behind each removal and the
// pipeline repeats until the output is stable.
//
// The strip stages match their tags anywhere in the input, even inside
// another tag's quoted attribute value. Browsers scan raw-text content
// such as <style> for its literal close marker without regard to
// surrounding quotes, so the strip must be at least as eager as that
// scan.
//
// # Security
//
// URI classification decodes decimal and hex numeric character
// references, the named references &tab; and &newline;, and strips
// whitespace and NUL bytes before matching schemes, which defeats
// "&#106;avascript:", "java\nscript:", and similar smuggling. Each
// removal re-reads at most a fixed window behind the seam, so total
// scan work stays linear in the input even when every removal splices
// another marker together.
//
// # Known limitations
//
// Named-entity decoding in URI values covers only &tab; and &newline;.
// Browsers do not decode unrecognized entities in attribute values, so
// widening the set has no known security payoff, but the narrow
// coverage is a documented choice rather than a guarantee. Inline style
// attributes and <style> content pass through verbatim: the caller is
// expected to render output inside an isolating container, which
// remains responsible for rendering-level isolation. mailsafe is the
// content boundary, not a replacement for it.
//
// # Thread safety
//
// All functions consult only immutable package-level sets and are safe
// for concurrent use.
package mailsafe
