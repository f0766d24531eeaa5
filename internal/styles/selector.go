// Package styles implements per-component CSS scoping: parsing component
// stylesheets, rewriting their selectors to be scope-safe, and aggregating
// the minified result for one page build.
package styles

import (
	"strings"

	"github.com/yklcs/areum/internal/errors"
)

// Logical pseudo-classes that take nested selector lists. The transform is
// applied recursively to their arguments instead of scoping the compound
// that carries them.
var logicalPseudos = []string{":is(", ":where(", ":has(", ":not("}

const globalPseudo = ":global("

// ScopeSelectorList rewrites a comma-separated selector list so that every
// compound selector also requires the scope class. Combinators and compound
// order are preserved exactly. `:global(...)` escapes are replaced by their
// inner selector list verbatim with no class added, and logical
// pseudo-classes (`:is`, `:where`, `:has`, `:not`) are rewritten inside
// their argument lists rather than at their own level.
func ScopeSelectorList(list, class string) (string, error) {
	return scopeList(list, class, false)
}

// scopeList rewrites a selector list. Relative selectors (a leading
// combinator, as in `:has(> img)`) are only permitted when relative is
// true.
func scopeList(list, class string, relative bool) (string, error) {
	selectors, err := splitTop(list, ',')
	if err != nil {
		return "", &errors.SelectorRewriteError{Selector: list, Detail: err.Error()}
	}

	out := make([]string, 0, len(selectors))
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		prefix := ""
		if relative && len(sel) > 0 && (sel[0] == '>' || sel[0] == '+' || sel[0] == '~') {
			prefix = string(sel[0])
			sel = strings.TrimSpace(sel[1:])
		}
		scoped, err := scopeComplex(sel, class)
		if err != nil {
			return "", err
		}
		out = append(out, prefix+scoped)
	}
	return strings.Join(out, ","), nil
}

// scopeComplex rewrites one complex selector: a sequence of compound
// selectors joined by combinators.
func scopeComplex(sel, class string) (string, error) {
	compounds, combinators, err := splitCompounds(sel)
	if err != nil {
		return "", &errors.SelectorRewriteError{Selector: sel, Detail: err.Error()}
	}

	var sb strings.Builder
	for i, compound := range compounds {
		if i > 0 {
			sb.WriteString(combinators[i-1])
		}
		scoped, err := scopeCompound(compound, class)
		if err != nil {
			return "", err
		}
		sb.WriteString(scoped)
	}
	return sb.String(), nil
}

// scopeCompound rewrites a single compound selector.
func scopeCompound(compound, class string) (string, error) {
	if strings.Contains(compound, globalPseudo) {
		// Global escape: splice the inner selector list in verbatim and
		// leave the compound unscoped.
		return expandGlobal(compound)
	}

	for _, pseudo := range logicalPseudos {
		if strings.Contains(compound, pseudo) {
			return rewriteLogical(compound, class)
		}
	}

	// Plain compound: insert the scope class before the first top-level
	// pseudo so that pseudo-elements stay terminal (`p::before` becomes
	// `p.sX::before`, never `p::before.sX`).
	at, err := firstPseudoIndex(compound)
	if err != nil {
		return "", &errors.SelectorRewriteError{Selector: compound, Detail: err.Error()}
	}
	if at < 0 {
		return compound + "." + class, nil
	}
	return compound[:at] + "." + class + compound[at:], nil
}

// expandGlobal replaces every `:global(inner)` in the compound with inner.
func expandGlobal(compound string) (string, error) {
	var sb strings.Builder
	rest := compound
	for {
		at := strings.Index(rest, globalPseudo)
		if at < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		sb.WriteString(rest[:at])
		inner, tail, err := readParenGroup(rest[at+len(globalPseudo)-1:])
		if err != nil {
			return "", &errors.SelectorRewriteError{Selector: compound, Detail: err.Error()}
		}
		sb.WriteString(strings.TrimSpace(inner))
		rest = tail
	}
}

// rewriteLogical applies the transform recursively inside each logical
// pseudo-class argument list, without scoping the compound itself.
func rewriteLogical(compound, class string) (string, error) {
	var sb strings.Builder
	rest := compound
	for len(rest) > 0 {
		at, which := nextLogical(rest)
		if at < 0 {
			sb.WriteString(rest)
			break
		}
		sb.WriteString(rest[:at+len(which)])
		inner, tail, err := readParenGroup(rest[at+len(which)-1:])
		if err != nil {
			return "", &errors.SelectorRewriteError{Selector: compound, Detail: err.Error()}
		}
		scoped, err := scopeList(inner, class, which == ":has(")
		if err != nil {
			return "", err
		}
		sb.WriteString(scoped)
		sb.WriteByte(')')
		rest = tail
	}
	return sb.String(), nil
}

func nextLogical(s string) (int, string) {
	at := -1
	which := ""
	for _, pseudo := range logicalPseudos {
		if i := strings.Index(s, pseudo); i >= 0 && (at < 0 || i < at) {
			at = i
			which = pseudo
		}
	}
	return at, which
}

// readParenGroup reads a parenthesized group starting at s[0] == '(' and
// returns the inner content and the remainder after the closing paren.
func readParenGroup(s string) (inner, rest string, err error) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[1:i], s[i+1:], nil
			}
		}
	}
	return "", "", errUnbalanced
}

// firstPseudoIndex returns the index of the first top-level ':' in a
// compound selector, or -1. Colons inside brackets, parentheses, or quoted
// strings do not count.
func firstPseudoIndex(s string) (int, error) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth < 0 {
				return 0, errUnbalanced
			}
		case ':':
			if depth == 0 {
				return i, nil
			}
		}
	}
	if depth != 0 || quote != 0 {
		return 0, errUnbalanced
	}
	return -1, nil
}

// splitCompounds splits a complex selector into its compound selectors and
// the combinators between them. Whitespace combinators normalize to a
// single space; child/sibling combinators keep their symbol.
func splitCompounds(sel string) (compounds, combinators []string, err error) {
	var current strings.Builder
	depth := 0
	var quote byte

	flush := func() {
		if current.Len() > 0 {
			compounds = append(compounds, current.String())
			current.Reset()
		}
	}

	pendingCombinator := ""
	i := 0
	for i < len(sel) {
		c := sel[i]

		if quote != 0 {
			current.WriteByte(c)
			if c == quote {
				quote = 0
			}
			i++
			continue
		}

		switch {
		case c == '"' || c == '\'':
			quote = c
			current.WriteByte(c)
		case c == '(' || c == '[':
			depth++
			current.WriteByte(c)
		case c == ')' || c == ']':
			depth--
			if depth < 0 {
				return nil, nil, errUnbalanced
			}
			current.WriteByte(c)
		case depth == 0 && (c == ' ' || c == '\t' || c == '\n'):
			if current.Len() > 0 {
				flush()
				pendingCombinator = " "
			}
		case depth == 0 && (c == '>' || c == '+' || c == '~'):
			if current.Len() > 0 {
				flush()
			}
			if len(compounds) == 0 {
				return nil, nil, errLeadingCombinator
			}
			pendingCombinator = string(c)
		default:
			if pendingCombinator != "" {
				combinators = append(combinators, pendingCombinator)
				pendingCombinator = ""
			}
			current.WriteByte(c)
		}
		i++
	}

	if depth != 0 || quote != 0 {
		return nil, nil, errUnbalanced
	}
	flush()

	if len(compounds) == 0 {
		return nil, nil, errEmptySelector
	}
	if pendingCombinator != "" && pendingCombinator != " " {
		return nil, nil, errTrailingCombinator
	}
	if len(combinators) != len(compounds)-1 {
		return nil, nil, errTrailingCombinator
	}
	return compounds, combinators, nil
}

// splitTop splits s on sep at nesting depth zero, respecting parentheses,
// brackets, and quoted strings.
func splitTop(s string, sep byte) ([]string, error) {
	var parts []string
	depth := 0
	var quote byte
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth < 0 {
				return nil, errUnbalanced
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 || quote != 0 {
		return nil, errUnbalanced
	}
	parts = append(parts, s[start:])
	return parts, nil
}

var (
	errUnbalanced         = &parseIssue{"unbalanced brackets or quotes"}
	errEmptySelector      = &parseIssue{"empty selector"}
	errLeadingCombinator  = &parseIssue{"combinator without leading compound"}
	errTrailingCombinator = &parseIssue{"combinator without trailing compound"}
)

type parseIssue struct{ msg string }

func (e *parseIssue) Error() string { return e.msg }
