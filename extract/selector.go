package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// querySelectorAll returns all nodes matching a simple CSS selector.
// Supported forms: "tag", ".class", "#id", "tag.class", "tag#id", and
// space-separated descendant combinations of those.
func querySelectorAll(doc *html.Node, selector string) []*html.Node {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return nil
	}

	matches := matchSimple(doc, parts[0])
	for _, part := range parts[1:] {
		var next []*html.Node
		for _, m := range matches {
			next = append(next, matchSimple(m, part)...)
		}
		matches = next
	}
	return matches
}

// matchSimple collects all descendants of root matching one simple selector.
func matchSimple(root *html.Node, sel string) []*html.Node {
	tag, class, id := splitSelector(sel)

	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n != root {
			if (tag == "" || n.Data == tag) &&
				(class == "" || hasClass(n, class)) &&
				(id == "" || attrVal(n, "id") == id) {
				out = append(out, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// splitSelector breaks "tag.class" / "tag#id" / ".class" / "#id" / "tag".
func splitSelector(sel string) (tag, class, id string) {
	if i := strings.IndexByte(sel, '.'); i >= 0 {
		return sel[:i], sel[i+1:], ""
	}
	if i := strings.IndexByte(sel, '#'); i >= 0 {
		return sel[:i], "", sel[i+1:]
	}
	return sel, "", ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrVal(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collectText concatenates all text content under n.
func collectText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// renderNode serialises a node back to HTML.
func renderNode(n *html.Node) string {
	var b strings.Builder
	_ = html.Render(&b, n)
	return b.String()
}
