// Package el is the element-construction API exposed to page scripts
// through the interpreter. Scripts import it as "areum/el" and build node
// trees with H, Component, and Fragment.
package el

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/yklcs/areum/internal/dom"
)

// Node is an engine-boundary node value.
type Node = *dom.RawNode

// Attrs holds element attributes. Values may be bool, numbers, strings,
// slices, or maps.
type Attrs = map[string]any

// H constructs an intrinsic element.
func H(tag string, attrs Attrs, children ...any) Node {
	return &dom.RawNode{
		Kind:     dom.RawKindIntrinsic,
		Tag:      tag,
		Props:    attrs,
		Children: pack(children),
	}
}

// Component constructs a virtual component-boundary node carrying the
// component's CSS. The component's scope identifier is derived from name:
// stable across all instances, unique as long as component names are.
// Every intrinsic element inside inherits the scope.
func Component(name, css string, children ...any) Node {
	scope := Scope(name)
	packed := pack(children)
	adoptScope(packed, scope)
	return &dom.RawNode{
		Kind:     dom.RawKindVirtual,
		Style:    css,
		Scope:    scope,
		Children: packed,
	}
}

// Fragment constructs a style-less virtual node: its children render with
// no wrapping markup.
func Fragment(children ...any) Node {
	return &dom.RawNode{
		Kind:     dom.RawKindVirtual,
		Children: pack(children),
	}
}

// Text returns a text child. Plain strings are accepted anywhere a child
// is; Text exists for explicitness in scripts.
func Text(s string) any {
	return s
}

// Scope returns the scope identifier for a component name: the first eight
// hex digits of its SHA-256 hash.
func Scope(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:])[:8]
}

func pack(children []any) any {
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	default:
		return children
	}
}

// adoptScope tags scope-less intrinsic descendants with the component's
// scope, stopping at nested component boundaries (which own their
// subtrees).
func adoptScope(child any, scope string) {
	switch c := child.(type) {
	case *dom.RawNode:
		if c == nil || c.Scope != "" {
			return
		}
		if c.Kind == dom.RawKindVirtual && c.Style != "" {
			return
		}
		if c.Kind == dom.RawKindIntrinsic {
			c.Scope = scope
		}
		adoptScope(c.Children, scope)
	case []any:
		for _, item := range c {
			adoptScope(item, scope)
		}
	}
}
