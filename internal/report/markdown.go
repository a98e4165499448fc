package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/hpungsan/advdiff/internal/compare"
	"github.com/hpungsan/advdiff/internal/ops"
	"github.com/hpungsan/advdiff/internal/stats"
	"github.com/hpungsan/advdiff/internal/textdiff"
)

// Markdown writes the comparison as a Markdown document. Changed spans are
// wrapped in <mark>; every ASCII punctuation character in dataset text is
// backslash-escaped so the text can never form markup of its own.
func Markdown(w io.Writer, out *ops.CompareOutput) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Adversarial SQuAD diff: %s\n\n", escapeMarkdown(out.Dataset))
	fmt.Fprintf(&b, "Configuration: Dataset=%s, Max Samples=%d\n\n", escapeMarkdown(out.Dataset), out.MaxSamples)
	if out.Original != "" {
		fmt.Fprintf(&b, "Original: `%s`  \nAdversarial: `%s`\n\n", codeSpan(out.Original), codeSpan(out.Adversarial))
	}

	if len(out.Samples) > 0 {
		fmt.Fprintf(&b, "## First %d differences\n\n", len(out.Samples))
		for _, s := range out.Samples {
			writeMarkdownSample(&b, s)
		}
	}

	writeMarkdownSummary(&b, out.Dataset, out.Stats)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdownSample(b *strings.Builder, s compare.Sample) {
	fmt.Fprintf(b, "### %s (Adversarial Suffix: %s)\n\n", escapeMarkdown(s.BaseID), escapeMarkdown(s.Suffix))

	label := "Question (Identical)"
	if s.QuestionChanged {
		label = "Question (Modified)"
	}
	fmt.Fprintf(b, "**%s:**\n\n", label)
	writeQuote(b, s.Question, false)

	b.WriteString("**Context Diff:**\n\n")
	writeQuote(b, s.Context, s.ContextTruncated)

	b.WriteString("---\n\n")
}

// writeQuote writes a diff as a blockquote with a hard break per source line.
// Marks never span a line break.
func writeQuote(b *strings.Builder, r textdiff.Result, truncated bool) {
	rendered := escapeDiffText(r).Render(func(s string) string {
		lines := strings.Split(s, "\n")
		for i, line := range lines {
			if line != "" {
				lines[i] = "<mark>" + escapeMarkdown(line) + "</mark>"
			}
		}
		return strings.Join(lines, "\n")
	})
	if truncated {
		rendered = `\.\.\.` + rendered
	}

	lines := strings.Split(rendered, "\n")
	for i, line := range lines {
		b.WriteString("> ")
		b.WriteString(protectIndent(line))
		if i < len(lines)-1 && line != "" && lines[i+1] != "" {
			b.WriteString(`\`)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeMarkdownSummary(b *strings.Builder, dataset string, st stats.Stats) {
	b.WriteString("## Full Dataset Statistics Report\n\n")
	b.WriteString("| Metric | Count | Share |\n")
	b.WriteString("|---|---:|---:|\n")
	fmt.Fprintf(b, "| Dataset Configuration | %s | |\n", escapeMarkdown(dataset))
	fmt.Fprintf(b, "| Total Adversarial Samples | %d | |\n", st.Total)
	row := func(name string, n int) {
		fmt.Fprintf(b, "| %s | %d | %s |\n", name, n, escapeMarkdown(st.Percent(n)))
	}
	row("1\\. Context Modified", st.ContextChanged)
	row("2\\. Question Modified", st.QuestionChanged)
	row("3\\. Completely Identical", st.FullyIdentical)
	row("4\\. IDs with Suffix", st.IDHasSuffix)
	if st.Unmatched > 0 {
		row("5\\. Unmatched IDs", st.Unmatched)
	}
}

// escapeMarkdown escapes ASCII punctuation in plain text lines. The escaped
// text is literal in CommonMark, so it can be mixed with our own markup.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x80 && isASCIIPunct(byte(r)) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeDiffText escapes the unchanged text of a rendered diff.
func escapeDiffText(r textdiff.Result) textdiff.Result {
	out := textdiff.Result{Identical: r.Identical, Segments: make([]textdiff.Segment, len(r.Segments))}
	for i, seg := range r.Segments {
		if seg.Changed {
			out.Segments[i] = seg
			continue
		}
		out.Segments[i] = textdiff.Segment{Text: escapeMarkdown(seg.Text)}
	}
	return out
}

func isASCIIPunct(c byte) bool {
	return (c >= '!' && c <= '/') || (c >= ':' && c <= '@') || (c >= '[' && c <= '`') || (c >= '{' && c <= '~')
}

// protectIndent turns leading blanks into character references so a line
// cannot start an indented code block.
func protectIndent(line string) string {
	i := 0
	var b strings.Builder
	for ; i < len(line); i++ {
		switch line[i] {
		case ' ':
			b.WriteString("&#32;")
		case '\t':
			b.WriteString("&#9;")
		default:
			return b.String() + line[i:]
		}
	}
	return b.String()
}

// codeSpan strips backticks, which would end the span early.
func codeSpan(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}
