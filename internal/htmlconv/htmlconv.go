// Package htmlconv turns HTML pages returned by content extraction into
// markdown that can be appended to an LLM prompt.
package htmlconv

import (
	"bytes"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/codefionn/charwizard/internal/logger"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	tagPattern       = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9]*)\b[^>]*>`)
	blankRunPattern  = regexp.MustCompile(`\n{3,}`)
	structuralMarker = []string{"<body", "<div", "<table", "<ul>", "<ol>", "<h1", "<h2", "<p>", "<article", "<section"}
)

// minTags is the number of tags above which text is treated as HTML outright.
const minTags = 3

// Text whose tags mark one of these elements is not prose.
var droppedAtoms = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Meta:     true,
	atom.Link:     true,
	atom.Head:     true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Nav:      true,
	atom.Aside:    true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Form:     true,
}

var contentHints = []string{
	"content", "main", "article", "post", "entry", "story",
	"bio", "biography", "profile", "description",
}

// ConvertIfHTML returns input as markdown when it looks like HTML. The second
// result reports whether a conversion happened; plain text and text that fails
// to convert are returned unchanged.
func ConvertIfHTML(input string) (string, bool) {
	if !IsHTML(input) {
		return input, false
	}

	log := logger.Global().WithPrefix("htmlconv")

	cleaned, err := extractContent(input)
	if err != nil {
		log.Warn("Failed to clean HTML, converting it as is: %v", err)
		cleaned = input
	}

	markdown, err := htmltomarkdown.ConvertString(cleaned)
	if err != nil {
		log.Warn("Failed to convert HTML to markdown: %v", err)
		return input, false
	}

	markdown = tidy(markdown)
	log.Debug("Converted HTML to markdown (%d -> %d bytes)", len(input), len(markdown))
	return markdown, true
}

// IsHTML reports whether input is likely an HTML document or fragment.
func IsHTML(input string) bool {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") {
		return true
	}

	tags := len(tagPattern.FindAllStringIndex(input, -1))
	switch {
	case tags == 0:
		return false
	case tags >= minTags:
		return true
	default:
		// A short fragment counts only when it opens a block element.
		for _, marker := range structuralMarker {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

// extractContent parses the page, keeps its most content-like subtree and
// strips non-prose elements from it.
func extractContent(input string) (string, error) {
	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return "", err
	}

	root := pickContentRoot(doc)
	prune(root)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// pickContentRoot prefers <main>, then <article>, then an element whose id or
// class hints at content, then <body>.
func pickContentRoot(doc *html.Node) *html.Node {
	var main, article, hinted, body *html.Node

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.Main && main == nil:
				main = n
			case n.DataAtom == atom.Article && article == nil:
				article = n
			case n.DataAtom == atom.Body && body == nil:
				body = n
			case hinted == nil && hintsContent(n):
				hinted = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, n := range []*html.Node{main, article, hinted, body} {
		if n != nil {
			return n
		}
	}
	return doc
}

func hintsContent(n *html.Node) bool {
	for _, attr := range n.Attr {
		var values []string
		switch strings.ToLower(attr.Key) {
		case "id":
			values = []string{attr.Val}
		case "class":
			values = strings.Fields(attr.Val)
		default:
			continue
		}
		for _, v := range values {
			v = strings.ToLower(v)
			for _, hint := range contentHints {
				if strings.Contains(v, hint) {
					return true
				}
			}
		}
	}
	return false
}

// prune removes dropped elements below n.
func prune(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && droppedAtoms[c.DataAtom] {
			n.RemoveChild(c)
		} else {
			prune(c)
		}
		c = next
	}
}

func tidy(markdown string) string {
	return strings.TrimSpace(blankRunPattern.ReplaceAllString(markdown, "\n\n"))
}
