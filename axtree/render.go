package axtree

import (
	"strconv"
	"strings"
)

// Render produces the indented text outline of a stitched tree: one line per
// node, two spaces of indent per depth, role plus quoted name plus state
// flags plus a trailing [ref=...] annotation. Bare text runs render as
// "- text: content" without a ref. Output depends only on the tree, so
// identical trees render byte-identical.
func Render(root *Node) string {
	var b strings.Builder
	writeNode(&b, root, 0)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node, depth int) {
	for range depth {
		b.WriteString("  ")
	}
	b.WriteString("- ")

	if n.Role == "text" {
		b.WriteString("text: ")
		b.WriteString(n.Name)
		b.WriteByte('\n')
		for _, c := range n.Children {
			writeNode(b, c, depth+1)
		}
		return
	}

	b.WriteString(n.Role)
	if n.Name != "" {
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(n.Name))
	}
	if n.Value != "" {
		b.WriteString(" value=")
		b.WriteString(strconv.Quote(n.Value))
	}
	if n.Checked {
		b.WriteString(" [checked]")
	}
	if n.Selected {
		b.WriteString(" [selected]")
	}
	if n.Expanded {
		b.WriteString(" [expanded]")
	}
	if n.Disabled {
		b.WriteString(" [disabled]")
	}
	if n.Focused {
		b.WriteString(" [focused]")
	}
	if n.Ref != "" {
		b.WriteString(" [ref=")
		b.WriteString(n.Ref)
		b.WriteByte(']')
	}
	b.WriteByte('\n')

	for _, c := range n.Children {
		writeNode(b, c, depth+1)
	}
}
