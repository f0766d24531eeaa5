package page

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectHeadAndBody(t *testing.T) {
	doc := `<!DOCTYPE html><html><head><title>t</title></head><body><p>hi</p></body></html>`

	var sb strings.Builder
	err := Inject(&sb, doc, "<style>.x{color:red}</style>", `<script type="module">run()</script>`)
	require.NoError(t, err)

	out := sb.String()
	assert.Equal(t,
		`<!DOCTYPE html><html><head><title>t</title><style>.x{color:red}</style></head>`+
			`<body><p>hi</p><script type="module">run()</script></body></html>`,
		out)
}

func TestInjectLeavesOtherMarkupAlone(t *testing.T) {
	// Odd but valid markup must survive byte-for-byte.
	doc := `<!DOCTYPE html><html><head></head><body><div   data-x="1&amp;2"  >a  b</div><!-- note --></body></html>`

	var sb strings.Builder
	require.NoError(t, Inject(&sb, doc, "", ""))
	assert.Equal(t, doc, sb.String())
}

func TestInjectEmptyInsertions(t *testing.T) {
	doc := `<html><head></head><body></body></html>`

	var sb strings.Builder
	require.NoError(t, Inject(&sb, doc, "", ""))
	assert.Equal(t, doc, sb.String())
}

func TestInjectIgnoresNestedBodyLikeText(t *testing.T) {
	// A script body containing the literal text "</body>" is raw text to
	// the tokenizer's script state only when inside <script>; here we use a
	// quoted attribute to make sure attribute values are not rewritten.
	doc := `<html><head></head><body><a title="</body>">x</a></body></html>`

	var sb strings.Builder
	require.NoError(t, Inject(&sb, doc, "", "<script>s()</script>"))
	out := sb.String()
	assert.Equal(t, 1, strings.Count(out, "<script>s()</script>"))
	assert.True(t, strings.HasSuffix(out, "<script>s()</script></body></html>"))
}
