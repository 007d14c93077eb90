package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	blankLines  = regexp.MustCompile(`\n{3,}`)
	multiSpaces = regexp.MustCompile(`[ \t]{2,}`)
)

// StripHTML reduces an HTML fragment to plain text, one block element per
// line. Text without markup is returned trimmed.
func StripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	var sb strings.Builder
	writeText(doc, &sb, 0)

	out := multiSpaces.ReplaceAllString(sb.String(), " ")
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	out = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}

func writeText(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 64 {
		return
	}
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "nav", "footer", "header":
			return
		case "br":
			sb.WriteString("\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(c, sb, depth+1)
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre", "section", "article":
			sb.WriteString("\n")
		}
	}
}
