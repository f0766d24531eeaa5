package dom

// ScopeClass returns the class token for a scope identifier.
func ScopeClass(scope string) string {
	return "s" + scope
}

// AssignScopes walks the tree pre-order and appends each intrinsic node's
// scope class to its class prop (space-joined; the class prop is created
// when absent). Virtual nodes are never classed directly, but the walk
// always recurses into every child regardless of node kind. A non-string
// class prop yields a PropTypeError.
func AssignScopes(arena *Arena, root NodeID) error {
	node := arena.Get(root)

	if node.Kind == KindIntrinsic && node.Scope != "" {
		if node.Props == nil {
			node.Props = Props{}
		}
		if err := node.Props.AppendString("class", ScopeClass(node.Scope)); err != nil {
			return err
		}
	}

	return assignChildren(arena, node.Children)
}

func assignChildren(arena *Arena, children Children) error {
	switch children.Kind {
	case ChildrenNode:
		return AssignScopes(arena, children.Node)
	case ChildrenList:
		for _, child := range children.List {
			if err := assignChildren(arena, child); err != nil {
				return err
			}
		}
	}
	return nil
}
