package browser

import (
	"strings"

	"golang.org/x/net/html"
)

// noiseElements never contribute visible text.
var noiseElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"iframe":   true,
	"svg":      true,
}

// VisibleText extracts the page's human-visible text from raw HTML,
// collapsing whitespace. It feeds the auth-failure phrase scan, which only
// needs a rough rendering of what the user would see.
func VisibleText(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	collectText(doc, &builder)
	return strings.Join(strings.Fields(builder.String()), " "), nil
}

func collectText(n *html.Node, builder *strings.Builder) {
	if n.Type == html.CommentNode {
		return
	}
	if n.Type == html.ElementNode && noiseElements[strings.ToLower(n.Data)] {
		return
	}
	if n.Type == html.TextNode {
		builder.WriteString(n.Data)
		builder.WriteByte(' ')
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, builder)
	}
}
