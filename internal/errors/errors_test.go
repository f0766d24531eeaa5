package errors

import (
	std "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "source error",
			err:      &SourceError{Path: "/site/index.gsx", Cause: std.New("boom")},
			expected: "source /site/index.gsx: boom",
		},
		{
			name:     "tree shape error",
			err:      &TreeShapeError{Detail: `unknown node kind "portal"`},
			expected: `malformed node tree: unknown node kind "portal"`,
		},
		{
			name:     "prop type error",
			err:      &PropTypeError{Key: "class", Value: 3.0, Op: "append class to"},
			expected: `prop "class": cannot append class to value of type float64`,
		},
		{
			name:     "selector rewrite error",
			err:      &SelectorRewriteError{Selector: ".a(", Detail: "unbalanced parentheses"},
			expected: `rewriting selector ".a(": unbalanced parentheses`,
		},
		{
			name:     "channel error",
			err:      &ChannelError{Reason: "actor stopped"},
			expected: "environment unavailable: actor stopped",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := std.New("underlying")

	var src error = &SourceError{Path: "p", Cause: cause}
	assert.ErrorIs(t, src, cause)

	var css error = &CSSParseError{Scope: "ab12cd34", Cause: cause}
	assert.ErrorIs(t, css, cause)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&ChannelError{Reason: "draining"}))
	assert.True(t, IsRetryable(fmt.Errorf("send failed: %w", &ChannelError{Reason: "stopped"})))
	assert.False(t, IsRetryable(std.New("other")))
	assert.False(t, IsRetryable(&TreeShapeError{Detail: "x"}))
}
