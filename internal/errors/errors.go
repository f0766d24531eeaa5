// Package errors defines the typed error taxonomy used across the areum
// render pipeline and environment actor model.
//
// Each category is a distinct struct type so callers can branch with
// errors.As: SourceError (engine execution failure), TreeShapeError
// (malformed engine output), PropTypeError (prop value incompatible with an
// operation), CSSParseError and SelectorRewriteError (stylesheet problems),
// and ChannelError (actor unavailable). Filesystem failures are plain
// wrapped os/io errors.
package errors

import (
	"errors"
	"fmt"
)

// SourceError reports a failure executing or loading a page source inside
// the scripting engine.
type SourceError struct {
	Path  string
	Cause error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Path, e.Cause)
}

func (e *SourceError) Unwrap() error { return e.Cause }

// TreeShapeError reports engine output that does not match the node union:
// an unknown kind discriminator, a missing required field, or child data
// that is neither text, a single node, nor a list of children.
type TreeShapeError struct {
	Detail string
}

func (e *TreeShapeError) Error() string {
	return "malformed node tree: " + e.Detail
}

// PropTypeError reports a prop whose value cannot support a required
// operation, such as appending a class token to a non-string class prop.
type PropTypeError struct {
	Key   string
	Value any
	Op    string
}

func (e *PropTypeError) Error() string {
	return fmt.Sprintf("prop %q: cannot %s value of type %T", e.Key, e.Op, e.Value)
}

// CSSParseError reports a stylesheet that could not be parsed.
type CSSParseError struct {
	Scope string
	Cause error
}

func (e *CSSParseError) Error() string {
	return fmt.Sprintf("parsing css for scope %s: %v", e.Scope, e.Cause)
}

func (e *CSSParseError) Unwrap() error { return e.Cause }

// SelectorRewriteError reports a selector shape the scoping transform
// cannot represent, such as unbalanced parentheses or brackets.
type SelectorRewriteError struct {
	Selector string
	Detail   string
}

func (e *SelectorRewriteError) Error() string {
	return fmt.Sprintf("rewriting selector %q: %s", e.Selector, e.Detail)
}

// ChannelError reports that the environment actor is unavailable: the
// manager is mid-restart, stopped, or the actor died before replying.
// Callers should treat it as retryable.
type ChannelError struct {
	Reason string
}

func (e *ChannelError) Error() string {
	return "environment unavailable: " + e.Reason
}

// IsRetryable reports whether err is a ChannelError, meaning the request
// never reached a live engine and may be resent after the next restart.
func IsRetryable(err error) bool {
	var ce *ChannelError
	return errors.As(err, &ce)
}
