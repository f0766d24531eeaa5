package dom

import "strings"

// Void elements per the HTML standard: they take no children and no
// closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// Render serializes the subtree rooted at id depth-first. Intrinsic nodes
// render as elements; virtual nodes render as exactly their children, in
// original order, contributing no wrapping markup.
func Render(arena *Arena, id NodeID) string {
	var sb strings.Builder
	renderNode(arena, id, &sb)
	return sb.String()
}

func renderNode(arena *Arena, id NodeID, sb *strings.Builder) {
	node := arena.Get(id)

	if node.Kind == KindVirtual {
		renderChildren(arena, node.Children, sb)
		return
	}

	sb.WriteByte('<')
	sb.WriteString(node.Tag)
	node.Props.writeAttrs(sb)
	sb.WriteByte('>')

	if voidElements[node.Tag] {
		return
	}

	renderChildren(arena, node.Children, sb)

	sb.WriteString("</")
	sb.WriteString(node.Tag)
	sb.WriteByte('>')
}

func renderChildren(arena *Arena, children Children, sb *strings.Builder) {
	switch children.Kind {
	case ChildrenText:
		sb.WriteString(children.Text)
	case ChildrenNode:
		renderNode(arena, children.Node, sb)
	case ChildrenList:
		for _, child := range children.List {
			renderChildren(arena, child, sb)
		}
	}
}
