package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/advdiff/internal/errors"
	"github.com/hpungsan/advdiff/internal/record"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileLoad_Layouts(t *testing.T) {
	want := []record.Record{
		{ID: "q1", Title: "Sky", Context: "The sky is blue.", Question: "What color is the sky?"},
		{ID: "q2", Title: "Sky", Context: "The sky is blue.", Question: "Is it blue?"},
	}

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json array",
			file: "orig.json",
			content: `[
				{"id":"q1","title":"Sky","context":"The sky is blue.","question":"What color is the sky?","answers":{}},
				{"id":"q2","title":"Sky","context":"The sky is blue.","question":"Is it blue?"}
			]`,
		},
		{
			name: "jsonl with blank lines",
			file: "orig.jsonl",
			content: `{"id":"q1","title":"Sky","context":"The sky is blue.","question":"What color is the sky?"}

{"id":"q2","title":"Sky","context":"The sky is blue.","question":"Is it blue?"}
`,
		},
		{
			name: "squad v1.1",
			file: "dev-v1.1.json",
			content: `{"version":"1.1","data":[{"title":"Sky","paragraphs":[{"context":"The sky is blue.","qas":[
				{"id":"q1","question":"What color is the sky?","answers":[{"text":"blue","answer_start":11}]},
				{"id":"q2","question":"Is it blue?","answers":[]}
			]}]}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			got, err := File{Path: path}.Load(context.Background(), Ref{})
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFileLoad_SingleLineJSONL(t *testing.T) {
	path := writeFile(t, "one.jsonl", `{"id":"q1","context":"c","question":"q"}`)
	got, err := File{Path: path}.Load(context.Background(), Ref{})
	require.NoError(t, err)
	assert.Equal(t, []record.Record{{ID: "q1", Context: "c", Question: "q"}}, got)
}

func TestFileLoad_Empty(t *testing.T) {
	path := writeFile(t, "empty.jsonl", "\n\n")
	got, err := File{Path: path}.Load(context.Background(), Ref{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFileLoad_NotFound(t *testing.T) {
	_, err := File{Path: filepath.Join(t.TempDir(), "missing.json")}.Load(context.Background(), Ref{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestFileLoad_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		position int
		field    string
	}{
		{
			name:     "array record missing question",
			file:     "a.json",
			content:  `[{"id":"q1","context":"c","question":"q"},{"id":"q2","context":"c"}]`,
			position: 1,
			field:    "question",
		},
		{
			name:     "jsonl line with numeric id",
			file:     "a.jsonl",
			content:  "{\"id\":\"q1\",\"context\":\"c\",\"question\":\"q\"}\n\n{\"id\":7,\"context\":\"c\",\"question\":\"q\"}\n",
			position: 3,
			field:    "id",
		},
		{
			name:     "jsonl line not an object",
			file:     "b.jsonl",
			content:  "{\"id\":\"q1\",\"context\":\"c\",\"question\":\"q\"}\nnot json\n",
			position: 2,
			field:    "",
		},
		{
			name:     "squad paragraph without context",
			file:     "squad.json",
			content:  `{"data":[{"title":"T","paragraphs":[{"qas":[{"id":"q1","question":"q"}]}]}]}`,
			position: 0,
			field:    "context",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := File{Path: path}.Load(context.Background(), Ref{})
			require.Error(t, err)

			aErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrMalformedRecord, aErr.Code)
			assert.Equal(t, tt.position, aErr.Details["position"])
			assert.Equal(t, tt.field, aErr.Details["field"])
			assert.Equal(t, path, aErr.Details["source"])
		})
	}
}

func TestFileLoad_UnrecognizedLayout(t *testing.T) {
	path := writeFile(t, "x.csv", "id,context,question\n")
	_, err := File{Path: path}.Load(context.Background(), Ref{})
	assert.True(t, errors.Is(err, errors.ErrFetchFailed))
}

func TestFileLoad_NoFollow(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.jsonl")
	require.NoError(t, os.WriteFile(target, []byte(`{"id":"q1","context":"c","question":"q"}`), 0o600))

	got, err := File{Path: target, NoFollow: true}.Load(context.Background(), Ref{})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	link := filepath.Join(dir, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	_, err = File{Path: link}.Load(context.Background(), Ref{})
	require.NoError(t, err, "symlinks are followed by default")

	_, err = File{Path: link, NoFollow: true}.Load(context.Background(), Ref{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = File{Path: filepath.Join(dir, "missing.jsonl"), NoFollow: true}.Load(context.Background(), Ref{})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
