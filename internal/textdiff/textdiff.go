// Package textdiff computes character-level diffs between an original text
// and its adversarial rewrite, and renders what the rewrite added or changed.
package textdiff

import (
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// Tag classifies an opcode span.
type Tag string

const (
	Equal   Tag = "equal"
	Insert  Tag = "insert"
	Delete  Tag = "delete"
	Replace Tag = "replace"
)

var tagNames = map[byte]Tag{
	'e': Equal,
	'i': Insert,
	'd': Delete,
	'r': Replace,
}

// Opcode describes how src[SrcStart:SrcEnd] turns into dst[DstStart:DstEnd].
// Offsets are rune indices.
type Opcode struct {
	Tag      Tag `json:"tag"`
	SrcStart int `json:"src_start"`
	SrcEnd   int `json:"src_end"`
	DstStart int `json:"dst_start"`
	DstEnd   int `json:"dst_end"`
}

// Segment is a run of rendered text. Changed marks inserted or replaced text.
type Segment struct {
	Text    string `json:"text"`
	Changed bool   `json:"changed,omitempty"`
}

// Result is the rendered diff of one field.
type Result struct {
	Segments []Segment `json:"segments"`
	// Identical is true when no insert or replace opcode occurred. A
	// delete-only diff is still Identical; compare the strings themselves to
	// decide whether a field changed.
	Identical bool `json:"identical"`
}

// Opcodes aligns src and dst rune by rune using difflib's SequenceMatcher.
func Opcodes(src, dst string) []Opcode {
	return opcodes(splitRunes(src), splitRunes(dst))
}

func opcodes(a, b []string) []Opcode {
	m := difflib.NewMatcher(a, b)
	raw := m.GetOpCodes()
	ops := make([]Opcode, 0, len(raw))
	for _, op := range raw {
		ops = append(ops, Opcode{
			Tag:      tagNames[op.Tag],
			SrcStart: op.I1,
			SrcEnd:   op.I2,
			DstStart: op.J1,
			DstEnd:   op.J2,
		})
	}
	return ops
}

// Compute renders dst against src. Equal spans are kept verbatim, insert
// spans and the dst side of replace spans are marked changed, and delete
// spans are dropped: text the rewrite removed never appears in the result.
func Compute(src, dst string) Result {
	b := splitRunes(dst)
	res := Result{Identical: true}
	for _, op := range opcodes(splitRunes(src), b) {
		switch op.Tag {
		case Equal:
			res.appendSegment(strings.Join(b[op.DstStart:op.DstEnd], ""), false)
		case Insert, Replace:
			res.Identical = false
			res.appendSegment(strings.Join(b[op.DstStart:op.DstEnd], ""), true)
		}
	}
	return res
}

// appendSegment merges adjacent segments of the same kind.
func (r *Result) appendSegment(text string, changed bool) {
	if text == "" {
		return
	}
	if n := len(r.Segments); n > 0 && r.Segments[n-1].Changed == changed {
		r.Segments[n-1].Text += text
		return
	}
	r.Segments = append(r.Segments, Segment{Text: text, Changed: changed})
}

// Render concatenates the segments, passing changed text through mark.
func (r Result) Render(mark func(string) string) string {
	var sb strings.Builder
	for _, s := range r.Segments {
		if s.Changed && mark != nil {
			sb.WriteString(mark(s.Text))
			continue
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Text returns the rendered text without markers.
func (r Result) Text() string {
	return r.Render(nil)
}

// Changed returns the concatenation of all changed segments.
func (r Result) Changed() string {
	var sb strings.Builder
	for _, s := range r.Segments {
		if s.Changed {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

// Tail keeps the trailing n runes of the rendered text and reports whether
// anything was cut. n <= 0 keeps everything.
func (r Result) Tail(n int) (Result, bool) {
	if n <= 0 || utf8.RuneCountInString(r.Text()) <= n {
		return r, false
	}

	out := Result{Identical: r.Identical}
	remaining := n
	for i := len(r.Segments) - 1; i >= 0 && remaining > 0; i-- {
		s := r.Segments[i]
		count := utf8.RuneCountInString(s.Text)
		if count > remaining {
			runes := []rune(s.Text)
			s.Text = string(runes[count-remaining:])
			count = remaining
		}
		out.Segments = append(out.Segments, s)
		remaining -= count
	}
	for i, j := 0, len(out.Segments)-1; i < j; i, j = i+1, j-1 {
		out.Segments[i], out.Segments[j] = out.Segments[j], out.Segments[i]
	}
	return out, true
}

// splitRunes splits s into one string per rune.
func splitRunes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}
