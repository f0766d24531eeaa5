package dom

import (
	"fmt"

	"github.com/yklcs/areum/internal/errors"
)

// Raw node kind discriminators as produced by the scripting engine.
const (
	RawKindIntrinsic = "intrinsic"
	RawKindVirtual   = "virtual"
)

// RawNode is the engine-boundary node shape. The engine is foreign code, so
// the fields are validated rather than trusted: Kind must be a known
// discriminator, intrinsic nodes must carry a tag, and Children must be a
// string, *RawNode, or []any (recursively). Anything else is rejected with
// a TreeShapeError.
type RawNode struct {
	Kind     string
	Tag      string
	Style    string
	Props    map[string]any
	Children any
	Scope    string
}

// Build materializes an engine-produced node value into a fresh arena and
// returns the arena together with the root id. Children are materialized
// bottom-up: a child subtree is pushed before its parent links to it.
func Build(raw *RawNode) (*Arena, NodeID, error) {
	if raw == nil {
		return nil, 0, &errors.TreeShapeError{Detail: "nil root node"}
	}
	arena := NewArena()
	root, err := buildNode(arena, raw)
	if err != nil {
		return nil, 0, err
	}
	return arena, root, nil
}

func buildNode(arena *Arena, raw *RawNode) (NodeID, error) {
	node := Node{
		Props: Props(raw.Props).Clone(),
		Scope: raw.Scope,
	}

	switch raw.Kind {
	case RawKindIntrinsic:
		if raw.Tag == "" {
			return 0, &errors.TreeShapeError{Detail: "intrinsic node without tag"}
		}
		node.Kind = KindIntrinsic
		node.Tag = raw.Tag
	case RawKindVirtual:
		node.Kind = KindVirtual
		node.Style = raw.Style
	default:
		return 0, &errors.TreeShapeError{Detail: fmt.Sprintf("unknown node kind %q", raw.Kind)}
	}

	children, err := buildChildren(arena, raw.Children)
	if err != nil {
		return 0, err
	}
	node.Children = children

	return arena.Push(node), nil
}

func buildChildren(arena *Arena, raw any) (Children, error) {
	switch c := raw.(type) {
	case nil:
		return Children{}, nil
	case string:
		return TextChildren(c), nil
	case *RawNode:
		if c == nil {
			return Children{}, &errors.TreeShapeError{Detail: "nil child node"}
		}
		id, err := buildNode(arena, c)
		if err != nil {
			return Children{}, err
		}
		return NodeChildren(id), nil
	case []any:
		list := make([]Children, 0, len(c))
		for _, item := range c {
			child, err := buildChildren(arena, item)
			if err != nil {
				return Children{}, err
			}
			if child.Kind == ChildrenNone {
				return Children{}, &errors.TreeShapeError{Detail: "nil entry in child list"}
			}
			list = append(list, child)
		}
		return ListChildren(list), nil
	default:
		return Children{}, &errors.TreeShapeError{Detail: fmt.Sprintf("child data of type %T", raw)}
	}
}
