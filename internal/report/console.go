// Package report renders comparison results for people: coloured console
// output, Markdown, and a standalone HTML page. Reporters only present what
// ops.Compare produced; they never change counts or diff text.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/hpungsan/advdiff/internal/compare"
	"github.com/hpungsan/advdiff/internal/errors"
	"github.com/hpungsan/advdiff/internal/ops"
	"github.com/hpungsan/advdiff/internal/stats"
	"github.com/hpungsan/advdiff/internal/textdiff"
)

// ColorMode selects when the console reporter emits ANSI colour.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // colour when the writer is a terminal
	ColorAlways ColorMode = "always" // colour even when piped
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a --color value.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("color must be auto, always or never, got %q", s))
}

const (
	sampleRuleWidth  = 80
	summaryRuleWidth = 60
)

// Console writes progress, samples and the summary table to a terminal.
// It satisfies ops.Observer. The first write error is kept and returned from
// Sample and Summary so a broken stream stops the pass.
type Console struct {
	w   io.Writer
	err error

	config   lipgloss.Style
	progress lipgloss.Style
	banner   lipgloss.Style
	changed  lipgloss.Style
	modified lipgloss.Style
	same     lipgloss.Style
	heading  lipgloss.Style
	green    lipgloss.Style
	red      lipgloss.Style
	yellow   lipgloss.Style
}

var _ ops.Observer = (*Console)(nil)

// NewConsole creates a console reporter on w.
func NewConsole(w io.Writer, mode ColorMode) *Console {
	r := lipgloss.NewRenderer(w)
	switch mode {
	case ColorAlways:
		r.SetColorProfile(termenv.ANSI)
	case ColorNever:
		r.SetColorProfile(termenv.Ascii)
	}

	style := func(color string, bold bool) lipgloss.Style {
		return r.NewStyle().
			Foreground(lipgloss.Color(color)).
			Bold(bold).
			TabWidth(lipgloss.NoTabConversion)
	}

	return &Console{
		w:        w,
		config:   style("5", false),
		progress: style("6", false),
		banner:   style("3", false),
		changed:  style("2", true),
		modified: style("1", true),
		same:     style("4", true),
		heading:  style("7", true),
		green:    style("2", false),
		red:      style("1", false),
		yellow:   style("3", false),
	}
}

// Configured implements ops.Observer.
func (c *Console) Configured(variant string, maxSamples int) {
	c.println(paint(c.config, fmt.Sprintf("Configuration: Dataset=%s, Max Samples=%d", variant, maxSamples)))
}

// Loading implements ops.Observer.
func (c *Console) Loading(variant string) {
	c.println(paint(c.progress, fmt.Sprintf("Loading Original SQuAD and Adversarial SQuAD (%s)...", variant)))
}

// Indexing implements ops.Observer.
func (c *Console) Indexing() {
	c.println(paint(c.progress, "Building index..."))
}

// Scanning implements ops.Observer. Nothing is printed when samples are off.
func (c *Console) Scanning(maxSamples int) {
	if maxSamples <= 0 {
		return
	}
	c.println(paint(c.banner, fmt.Sprintf("\nScanning dataset and printing first %d differences...\n", maxSamples)))
}

// Sample implements ops.Observer.
func (c *Console) Sample(s compare.Sample) error {
	label, labelStyle := "Question (Identical)", c.same
	if s.QuestionChanged {
		label, labelStyle = "Question (Modified)", c.modified
	}

	c.println(fmt.Sprintf("ID: %s (Adversarial Suffix: %s)", s.BaseID, s.Suffix))
	c.println(paint(labelStyle, label) + ": " + c.diff(s.Question))
	c.println(paint(c.heading, "Context Diff") + ":")
	if s.ContextTruncated {
		c.println("..." + c.diff(s.Context))
	} else {
		c.println(c.diff(s.Context))
	}
	c.println(strings.Repeat("-", sampleRuleWidth) + "\n")
	return c.err
}

// Summary writes the statistics table.
func (c *Console) Summary(out *ops.CompareOutput) error {
	st := out.Stats
	eq := strings.Repeat("=", summaryRuleWidth)
	dash := strings.Repeat("-", summaryRuleWidth)

	c.println("\n" + eq)
	c.println(paint(c.heading, "Full Dataset Statistics Report"))
	c.println(eq)
	c.println("Dataset Configuration:      " + paint(c.progress, out.Dataset))
	c.println(fmt.Sprintf("Total Adversarial Samples:  %d", st.Total))
	c.println(dash)
	c.println(fmt.Sprintf("1. Context Modified:        %s   (%s)", paint(c.green, fmt.Sprint(st.ContextChanged)), st.Percent(st.ContextChanged)))
	c.println(fmt.Sprintf("2. Question Modified:       %s     (%s)", paint(c.red, fmt.Sprint(st.QuestionChanged)), st.Percent(st.QuestionChanged)))
	c.println(fmt.Sprintf("3. Completely Identical:    %s   (%s)", paint(c.yellow, fmt.Sprint(st.FullyIdentical)), st.Percent(st.FullyIdentical)))
	c.println(dash)
	c.println(fmt.Sprintf("4. IDs with Suffix:         %d      (%s)", st.IDHasSuffix, st.Percent(st.IDHasSuffix)))
	if st.Unmatched > 0 {
		c.println(unmatchedLine(st))
	}
	c.println(eq)
	return c.err
}

func unmatchedLine(st stats.Stats) string {
	return fmt.Sprintf("5. Unmatched IDs:           %d      (%s)", st.Unmatched, st.Percent(st.Unmatched))
}

// diff renders a diff with changed spans in bold green.
func (c *Console) diff(r textdiff.Result) string {
	return r.Render(func(s string) string { return paint(c.changed, s) })
}

func (c *Console) println(s string) {
	if c.err != nil {
		return
	}
	_, c.err = fmt.Fprintln(c.w, s)
}

// paint styles each line of s separately. lipgloss pads multi-line input to
// a common width, which would alter the text.
func paint(st lipgloss.Style, s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = st.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
