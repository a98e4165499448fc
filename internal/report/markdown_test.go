package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/advdiff/internal/compare"
	"github.com/hpungsan/advdiff/internal/textdiff"
)

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"*bold* and _em_", `\*bold\* and \_em\_`},
		{"<script>", `\<script\>`},
		{"1. item", `1\. item`},
		{`back\slash`, `back\\slash`},
		{"naïve café", "naïve café"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeMarkdown(tt.in))
	}
}

func TestProtectIndent(t *testing.T) {
	assert.Equal(t, "&#32;&#32;&#9;code", protectIndent("  \tcode"))
	assert.Equal(t, "text  ", protectIndent("text  "))
	assert.Equal(t, "", protectIndent(""))
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, skyOutput()))
	md := buf.String()

	assert.Contains(t, md, "# Adversarial SQuAD diff: AddSent\n")
	assert.Contains(t, md, "### q1 (Adversarial Suffix: \\-high\\-conf)\n")
	assert.Contains(t, md, "**Question (Identical):**\n\n> What color is the sky\\?\n")
	assert.Contains(t, md, "> The sky is blue<mark> today</mark>\\.\n")
	assert.Contains(t, md, "| 1\\. Context Modified | 1 | 25\\.0\\% |\n")
	assert.Contains(t, md, "| 4\\. IDs with Suffix | 3 | 75\\.0\\% |\n")
	assert.NotContains(t, md, "Unmatched")
}

func TestMarkdown_MultiLineAndTruncated(t *testing.T) {
	s := compare.Sample{
		BaseID:           "q2",
		Suffix:           "-1",
		ContextChanged:   true,
		Question:         textdiff.Compute("q", "q"),
		Context:          textdiff.Compute("line one\n\nline <b>", "line one\n\nline <b> added\nnew"),
		ContextTruncated: true,
	}
	out := skyOutput()
	out.Samples = []compare.Sample{s}

	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, out))
	md := buf.String()

	want := "> \\.\\.\\.line one\n" +
		"> \n" +
		"> line \\<b\\><mark> added</mark>\\\n" +
		"> <mark>new</mark>\n"
	assert.Contains(t, md, want)
}

func TestMarkdown_NoSamples(t *testing.T) {
	out := skyOutput()
	out.Samples = nil

	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, out))
	assert.NotContains(t, buf.String(), "differences")
	assert.True(t, strings.Contains(buf.String(), "## Full Dataset Statistics Report"))
}
