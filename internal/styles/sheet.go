package styles

import (
	"fmt"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"

	"github.com/yklcs/areum/internal/dom"
	"github.com/yklcs/areum/internal/errors"
)

// Conditional group at-rules whose embedded style rules are still subject
// to selector scoping. Other embedding at-rules (notably @keyframes) keep
// their inner selectors untouched.
var conditionalAtRules = map[string]bool{
	"@media":    true,
	"@supports": true,
	"@document": true,
}

var minifier = func() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", mincss.Minify)
	return m
}()

// Sheet aggregates the scoped component CSS of one page build. Each scope
// is flushed at most once; collecting an already-flushed scope is a no-op.
type Sheet struct {
	aggregate strings.Builder
	flushed   map[string]bool
}

// NewSheet creates an empty stylesheet aggregate.
func NewSheet() *Sheet {
	return &Sheet{flushed: make(map[string]bool)}
}

// CSS returns the aggregated, minified stylesheet.
func (s *Sheet) CSS() string {
	return s.aggregate.String()
}

// Flushed reports whether the scope's CSS has already been aggregated.
func (s *Sheet) Flushed(scope string) bool {
	return s.flushed[scope]
}

// Collect walks the tree pre-order and, for every virtual node carrying
// component CSS whose scope has not yet been flushed, rewrites the CSS
// selectors with the scope class and appends the minified result.
func (s *Sheet) Collect(arena *dom.Arena, root dom.NodeID) error {
	node := arena.Get(root)

	if node.Kind == dom.KindVirtual && node.Style != "" && node.Scope != "" && !s.flushed[node.Scope] {
		scoped, err := Rewrite(node.Style, dom.ScopeClass(node.Scope))
		if err != nil {
			return &errors.CSSParseError{Scope: node.Scope, Cause: err}
		}
		s.aggregate.WriteString(scoped)
		s.flushed[node.Scope] = true
	}

	return s.collectChildren(arena, node.Children)
}

func (s *Sheet) collectChildren(arena *dom.Arena, children dom.Children) error {
	switch children.Kind {
	case dom.ChildrenNode:
		return s.Collect(arena, children.Node)
	case dom.ChildrenList:
		for _, child := range children.List {
			if err := s.collectChildren(arena, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// Rewrite parses a component stylesheet, applies the selector-scoping
// transform to every style rule, and returns the minified result.
func Rewrite(cssText, class string) (string, error) {
	if err := checkBalance(cssText); err != nil {
		return "", err
	}

	sheet, err := parser.Parse(cssText)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, rule := range sheet.Rules {
		if err := writeRule(&sb, rule, class, true); err != nil {
			return "", err
		}
	}

	minified, err := minifier.String("text/css", sb.String())
	if err != nil {
		// The serialized rules are already compact; minification is only a
		// value-level optimization.
		return sb.String(), nil
	}
	return minified, nil
}

func writeRule(sb *strings.Builder, rule *css.Rule, class string, scoping bool) error {
	if rule.Kind == css.AtRule {
		sb.WriteString(rule.Name)
		if prelude := strings.TrimSpace(rule.Prelude); prelude != "" {
			sb.WriteByte(' ')
			sb.WriteString(prelude)
		}
		switch {
		case rule.EmbedsRules():
			sb.WriteByte('{')
			inner := scoping && conditionalAtRules[rule.Name]
			for _, embedded := range rule.Rules {
				if err := writeRule(sb, embedded, class, inner); err != nil {
					return err
				}
			}
			sb.WriteByte('}')
		case len(rule.Declarations) > 0:
			// Declaration-bodied at-rules (@font-face, @page) pass through
			// with their bodies intact.
			sb.WriteByte('{')
			writeDeclarations(sb, rule)
			sb.WriteByte('}')
		default:
			// Statement at-rules (@import, @charset).
			sb.WriteByte(';')
		}
		return nil
	}

	selectors := strings.TrimSpace(rule.Prelude)
	if scoping {
		scoped, err := ScopeSelectorList(selectors, class)
		if err != nil {
			return err
		}
		selectors = scoped
	}

	sb.WriteString(selectors)
	sb.WriteByte('{')
	writeDeclarations(sb, rule)
	sb.WriteByte('}')
	return nil
}

func writeDeclarations(sb *strings.Builder, rule *css.Rule) {
	for i, decl := range rule.Declarations {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(decl.Property)
		sb.WriteByte(':')
		sb.WriteString(decl.Value)
		if decl.Important {
			sb.WriteString(" !important")
		}
	}
}

// checkBalance rejects structurally truncated stylesheets up front: the
// parser silently accepts an unterminated block or declaration, so brace
// balance is verified here, skipping strings and comments.
func checkBalance(cssText string) error {
	depth := 0
	for i := 0; i < len(cssText); i++ {
		switch c := cssText[i]; c {
		case '/':
			if i+1 < len(cssText) && cssText[i+1] == '*' {
				end := strings.Index(cssText[i+2:], "*/")
				if end < 0 {
					return fmt.Errorf("unterminated comment")
				}
				i += 2 + end + 1
			}
		case '"', '\'':
			j := i + 1
			for j < len(cssText) && cssText[j] != c {
				if cssText[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(cssText) {
				return fmt.Errorf("unterminated string")
			}
			i = j
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("unexpected closing brace")
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unterminated block")
	}
	return nil
}
