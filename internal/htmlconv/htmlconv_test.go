package htmlconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"doctype", "<!DOCTYPE html><html><body>Test</body></html>", true},
		{"lowercase html root", "<html><body>x</body></html>", true},
		{"nested tags", "<div><p>Hello</p><p>World</p></div>", true},
		{"plain text", "A retired sea captain who tells tall tales.", false},
		{"single inline link", "Read <a href='x'>more</a>", false},
		{"single heading", "<h1>Captain Ahab</h1>", true},
		{"heading and paragraph", "<h2>Ahab</h2> <p>Captain</p>", true},
		{"two inline tags", "Read <a href='x'><b>more</b></a>", false},
		{"email brackets", "Contact <captain@example.com>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsHTML(tt.input))
		})
	}
}

func TestConvertIfHTMLHeadingFragment(t *testing.T) {
	out, converted := ConvertIfHTML("<h1>Captain Ahab</h1>")
	assert.True(t, converted)
	assert.Contains(t, out, "# Captain Ahab")
	assert.NotContains(t, out, "<h1>")
}

func TestConvertIfHTMLPlainText(t *testing.T) {
	out, converted := ConvertIfHTML("Just a biography in prose.")
	assert.False(t, converted)
	assert.Equal(t, "Just a biography in prose.", out)
}

func TestConvertIfHTMLMarkdownOutput(t *testing.T) {
	out, converted := ConvertIfHTML(`<!DOCTYPE html>
<html>
<head><title>Ahab</title></head>
<body>
<h1>Captain Ahab</h1>
<p>Captain of the <strong>Pequod</strong>.</p>
<p>See <a href="https://example.com/moby">the novel</a>.</p>
<ul>
<li>Obsessive</li>
<li>Charismatic</li>
</ul>
</body>
</html>`)

	assert.True(t, converted)
	assert.Contains(t, out, "# Captain Ahab")
	assert.Contains(t, out, "**Pequod**")
	assert.Contains(t, out, "[the novel](https://example.com/moby)")
	assert.Contains(t, out, "Obsessive")
	assert.NotContains(t, out, "<title>")
}

func TestConvertIfHTMLKeepsContentOnly(t *testing.T) {
	out, converted := ConvertIfHTML(`
		<header>Wiki Header</header>
		<nav>Navigation Menu</nav>
		<div class="bio-content">
			<h1>Ishmael</h1>
			<p>Narrator and sailor.</p>
			<script>track()</script>
			<style>.x { color: red; }</style>
		</div>
		<footer>Copyright</footer>
	`)

	assert.True(t, converted)
	assert.Contains(t, out, "Ishmael")
	assert.Contains(t, out, "Narrator and sailor.")
	for _, unwanted := range []string{"Wiki Header", "Navigation Menu", "Copyright", "track()", "color: red"} {
		assert.NotContains(t, out, unwanted)
	}
}

func TestConvertIfHTMLPrefersMainOverBody(t *testing.T) {
	out, converted := ConvertIfHTML(`<html><body>
		<div>Sidebar teaser</div>
		<main><h2>Queequeg</h2><p>Harpooneer from Kokovoko.</p></main>
	</body></html>`)

	assert.True(t, converted)
	assert.Contains(t, out, "Queequeg")
	assert.NotContains(t, out, "Sidebar teaser")
}

func TestTidy(t *testing.T) {
	assert.Equal(t, "Line 1\n\nLine 2", tidy("Line 1\n\n\n\nLine 2"))
	assert.Equal(t, "Content", tidy("  \n\nContent\n\n  "))
	assert.Equal(t, "# Title\n\nParagraph", tidy("# Title\n\nParagraph"))
}
