// Package dom models the node tree produced for one page build.
//
// All nodes of a build live in a single Arena and reference each other by
// integer NodeID. The arena is append-only: ids are never reused, and the
// whole arena is discarded when its page build completes or fails. Nodes are
// a closed two-variant union: intrinsic elements that serialize as HTML
// tags, and virtual component-boundary nodes that render transparently but
// carry style and scope metadata.
package dom

// NodeID addresses a node within its owning Arena. An id is meaningless
// outside the arena that issued it.
type NodeID int

// NodeKind discriminates the node union.
type NodeKind int

const (
	// KindIntrinsic is a concrete HTML element with a tag name.
	KindIntrinsic NodeKind = iota
	// KindVirtual is a component boundary: it contributes no markup of its
	// own, only its children, and may carry component CSS.
	KindVirtual
)

// String returns the string representation of the NodeKind.
func (k NodeKind) String() string {
	switch k {
	case KindIntrinsic:
		return "intrinsic"
	case KindVirtual:
		return "virtual"
	default:
		return "unknown"
	}
}

// Node is one element of the arena.
//
// Tag is set for intrinsic nodes only. Style holds the component CSS of a
// virtual node ("" when absent). Scope is the opaque component identifier
// assigned by the engine: unique per component definition and stable across
// all instances rendered from it within a build.
type Node struct {
	Kind     NodeKind
	Tag      string
	Style    string
	Props    Props
	Children Children
	Scope    string
}

// ChildrenKind discriminates the recursive Children union.
type ChildrenKind int

const (
	// ChildrenNone marks the absence of children.
	ChildrenNone ChildrenKind = iota
	// ChildrenText is a text leaf.
	ChildrenText
	// ChildrenNode references a single child node.
	ChildrenNode
	// ChildrenList is an ordered list of nested children.
	ChildrenList
)

// Children is the recursive child union: text, a single node reference, or
// an ordered list of children. Order is significant and preserved.
type Children struct {
	Kind ChildrenKind
	Text string
	Node NodeID
	List []Children
}

// TextChildren returns a text leaf.
func TextChildren(text string) Children {
	return Children{Kind: ChildrenText, Text: text}
}

// NodeChildren returns a single-node child.
func NodeChildren(id NodeID) Children {
	return Children{Kind: ChildrenNode, Node: id}
}

// ListChildren returns an ordered list of children.
func ListChildren(list []Children) Children {
	return Children{Kind: ChildrenList, List: list}
}

// Arena exclusively owns all nodes of one page build.
type Arena struct {
	nodes []Node
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Push appends a node and returns its id. Ids are assigned in push order
// and never reused.
func (a *Arena) Push(n Node) NodeID {
	a.nodes = append(a.nodes, n)
	return NodeID(len(a.nodes) - 1)
}

// Get returns a mutable reference to the node with the given id.
func (a *Arena) Get(id NodeID) *Node {
	return &a.nodes[id]
}

// Len returns the number of nodes in the arena.
func (a *Arena) Len() int {
	return len(a.nodes)
}
