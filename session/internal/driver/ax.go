package driver

import (
	"github.com/go-rod/rod/lib/proto"

	"github.com/tabctl/tabctl/axtree"
)

// Roles that add no information for automation. Their children are promoted
// in place, same as ignored nodes.
var passthroughRoles = map[string]bool{
	"none":          true,
	"generic":       true,
	"InlineTextBox": true,
	"LineBreak":     true,
}

func axValue(v *proto.AccessibilityAXValue) string {
	if v == nil {
		return ""
	}
	return v.Value.String()
}

// buildTree rebuilds the hierarchy from CDP's flat node list. The root is the
// node with no parent; ignored and passthrough nodes collapse into their
// parents.
func buildTree(nodes []*proto.AccessibilityAXNode) *axtree.Node {
	byID := make(map[proto.AccessibilityAXNodeID]*proto.AccessibilityAXNode, len(nodes))
	for _, n := range nodes {
		byID[n.NodeID] = n
	}

	var rootID proto.AccessibilityAXNodeID
	for _, n := range nodes {
		if n.ParentID == "" {
			rootID = n.NodeID
			break
		}
	}
	if rootID == "" {
		rootID = nodes[0].NodeID
	}

	var convert func(id proto.AccessibilityAXNodeID, out *[]*axtree.Node)
	convert = func(id proto.AccessibilityAXNodeID, out *[]*axtree.Node) {
		raw, ok := byID[id]
		if !ok {
			return
		}

		role := axValue(raw.Role)
		if raw.Ignored || passthroughRoles[role] {
			for _, childID := range raw.ChildIDs {
				convert(childID, out)
			}
			return
		}

		node := convertNode(raw, role)
		if node == nil {
			return
		}
		for _, childID := range raw.ChildIDs {
			convert(childID, &node.Children)
		}
		*out = append(*out, node)
	}

	var top []*axtree.Node
	convert(rootID, &top)
	if len(top) == 0 {
		return nil
	}
	root := top[0]
	if root.Role != "document" {
		// The frame root should always be a document node; wrap if CDP gave
		// us something else so the allocator sees a uniform shape.
		root = &axtree.Node{Role: "document", Children: top}
	}
	return root
}

func convertNode(raw *proto.AccessibilityAXNode, role string) *axtree.Node {
	name := axValue(raw.Name)

	switch role {
	case "RootWebArea", "WebArea":
		role = "document"
	case "Iframe", "IframePresentational":
		role = "iframe"
	case "StaticText":
		if name == "" {
			return nil
		}
		return &axtree.Node{Role: "text", Name: name}
	}

	node := &axtree.Node{
		Role:    role,
		Name:    name,
		Value:   axValue(raw.Value),
		Backend: int64(raw.BackendDOMNodeID),
	}

	for _, p := range raw.Properties {
		if axValue(p.Value) != "true" {
			continue
		}
		switch string(p.Name) {
		case "checked":
			node.Checked = true
		case "selected":
			node.Selected = true
		case "expanded":
			node.Expanded = true
		case "disabled":
			node.Disabled = true
		case "focused":
			node.Focused = true
		}
	}

	return node
}
