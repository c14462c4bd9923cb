package mailsafe_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabhask5/mailsafe"
)

// Known sanitizer bypass techniques collected from XSS cheat sheets.
// Each input is a payload that has defeated naive string matching
// somewhere; none of them may survive here.

func TestBypass_ScriptVariants(t *testing.T) {
	payloads := []string{
		`<script>alert(1)</script>`,
		`<script src="https://evil.example/x.js"></script>`,
		`<script	>alert(1)</script	>`,
		`<script/x>alert(1)</script>`,
		`<script x="y" x='z'>alert(1)</script>`,
		`<SCRIPT SRC=//evil.example/x.js></SCRIPT>`,
		`<script>/* ">" */alert(1)</script>`,
		`<script title='a > b'>alert(1)</script>`,
		`<script>alert(1)</script/>`,
		`<script>alert(1)</script/ >`,
		`<script>alert(1)</script/x="y">`,
	}
	for _, p := range payloads {
		out := mailsafe.Sanitize(p)
		assert.NotContains(t, strings.ToLower(out), "<script", "payload: %s", p)
		assert.NotContains(t, out, "alert(1)", "script body must go with the tag: %s", p)
	}
}

func TestBypass_HandlerVariants(t *testing.T) {
	payloads := []string{
		`<img src=x onerror=alert(1)>`,
		`<img src=x OnErRoR=alert(1)>`,
		`<img src=x onerror = "alert(1)">`,
		`<img src=x onerror='alert(1)'>`,
		`<svg onload=alert(1)>`,
		`<body onpageshow="alert(1)">`,
		`<div onmouseover	=	alert(1)>x</div>`,
	}
	for _, p := range payloads {
		out := mailsafe.Sanitize(p)
		assert.NotContains(t, strings.ToLower(out), "alert(1)", "payload: %s", p)
	}
}

func TestBypass_HandlerFilterKeepsLookalikes(t *testing.T) {
	// Attributes that merely contain "on" are not handlers.
	out := mailsafe.Sanitize(`<td align="center" class="confirmation">x</td>`)
	assert.Equal(t, `<td align="center" class="confirmation">x</td>`, out)

	out = mailsafe.Sanitize(`<div data-one="1" action="/go">x</div>`)
	assert.Equal(t, `<div data-one="1" action="/go">x</div>`, out)
}

func TestBypass_URIObfuscation(t *testing.T) {
	payloads := []string{
		`<a href="&#0000106;avascript:alert(1)">x</a>`,
		`<a href="&#x006A;avascript:alert(1)">x</a>`,
		"<a href=\"\tjavascript:alert(1)\">x</a>",
		"<a href=\"jav ascript:alert(1)\">x</a>",
		`<a href="JAVAscript:alert(1)">x</a>`,
		`<a href="&Tab;javascript:alert(1)">x</a>`,
		`<img src="vbscript:msgbox(1)">`,
		`<img srcset="javascript:alert(1) 1x">`,
		`<use xlink:href="javascript:alert(1)"/>`,
	}
	for _, p := range payloads {
		out := mailsafe.Sanitize(p)
		require.NotContains(t, strings.ToLower(out), "alert(1)", "payload: %s", p)
		require.NotContains(t, strings.ToLower(out), "msgbox(1)", "payload: %s", p)
	}
}

func TestBypass_SplitTagReassembly(t *testing.T) {
	// Deleting a span must not splice the neighbors into a live tag,
	// and a stray '<' inside a tag must not split it into text plus a
	// harmless-looking element.
	payloads := []string{
		`<scr<script></script>ipt>alert(1)</scr<script></script>ipt>`,
		`<<meta>script>alert(1)</script>`,
		`<scr<iframe></iframe>ipt src="https://evil.example/x.js">`,
		`<script a<b>alert(1)</script>`,
		`<script a<b>alert(1)<p title="</script>">`,
	}
	for _, p := range payloads {
		out := mailsafe.Sanitize(p)
		assertSafeHTML(t, out)
		assert.Equal(t, out, mailsafe.Sanitize(out), "output must be a fixed point: %s", p)
	}
}

func TestBypass_DeeplyNestedSplices(t *testing.T) {
	// Every removal splices another marker together at the seam; each
	// one is resolved in place, so the whole chain unwinds in a single
	// pass even at this depth.
	const n = 16384
	in := strings.Repeat("<scr", n) + "<iframe></iframe>" + strings.Repeat("ipt>", n)
	assert.Empty(t, mailsafe.Sanitize(in))
}

func TestBypass_DataURIs(t *testing.T) {
	out := mailsafe.Sanitize(`<a href="data:text/html;base64,PHNjcmlwdD4=">x</a>`)
	assert.NotContains(t, out, "data:", "data: href must be deleted")

	out = mailsafe.Sanitize(`<iframe src="data:text/html,<script>alert(1)</script>"></iframe>`)
	assert.Empty(t, out)

	// The one sanctioned use: inline images.
	in := `<img src="data:image/jpeg;base64,/9j/4AAQ">`
	assert.Equal(t, in, mailsafe.Sanitize(in))
}

func TestBypass_NestedAndMalformed(t *testing.T) {
	out := mailsafe.Sanitize(`<iframe><iframe>x</iframe></iframe>`)
	assert.NotContains(t, strings.ToLower(out), "iframe")

	out = mailsafe.Sanitize(`<object><object data="x"></object>alert</object>`)
	assert.NotContains(t, strings.ToLower(out), "object")

	out = mailsafe.Sanitize(`<form><form><input></form>text</form>`)
	assert.Equal(t, "text", out)

	// Never hangs, never panics, always total.
	require.NotPanics(t, func() {
		mailsafe.Sanitize(strings.Repeat(`<a "'"'>`, 1000))
		mailsafe.Sanitize(strings.Repeat("<", 4096))
		mailsafe.Sanitize(strings.Repeat(`<script>`, 1000))
	})
}
