package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/hpungsan/advdiff/internal/errors"
	"github.com/hpungsan/advdiff/internal/record"
)

// maxLineSize bounds a single JSONL line. SQuAD contexts run to a few KB.
const maxLineSize = 16 * 1024 * 1024

// File loads a collection from a local file. The Ref passed to Load is ignored.
//
// Accepted layouts:
//   - a JSON array of flat records
//   - JSONL, one flat record per line (blank lines skipped)
//   - SQuAD v1.1: {"data":[{"title","paragraphs":[{"context","qas":[{"id","question"}]}]}]}
type File struct {
	Path string

	// NoFollow refuses to read through a symlink. Set for paths supplied by
	// MCP or web callers.
	NoFollow bool
}

// Load reads and decodes the file.
func (f File) Load(ctx context.Context, _ Ref) ([]record.Record, error) {
	data, err := f.read()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []record.Record{}, nil
	}

	switch trimmed[0] {
	case '[':
		return f.decodeArray(trimmed)
	case '{':
		var doc squadDocument
		if err := json.Unmarshal(trimmed, &doc); err == nil && doc.Data != nil {
			return f.decodeSQuAD(doc)
		}
		return f.decodeLines(trimmed)
	default:
		return nil, errors.NewFetchFailed(f.Path, fmt.Errorf("unrecognized file layout"))
	}
}

func (f File) read() ([]byte, error) {
	if f.NoFollow {
		file, err := openNoFollow(f.Path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, errors.NewFetchFailed(f.Path, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewNotFound(f.Path)
		}
		return nil, errors.NewFetchFailed(f.Path, err)
	}
	return data, nil
}

func (f File) decodeArray(data []byte) ([]record.Record, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.NewFetchFailed(f.Path, fmt.Errorf("decode array: %w", err))
	}
	recs := make([]record.Record, 0, len(rows))
	for i, raw := range rows {
		r, err := decodeFlat(raw, f.Path, i)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// decodeLines reads JSONL. Positions are one-based line numbers.
func (f File) decodeLines(data []byte) ([]record.Record, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var recs []record.Record
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		r, err := decodeFlat(text, f.Path, line)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewFetchFailed(f.Path, err)
	}
	if recs == nil {
		recs = []record.Record{}
	}
	return recs, nil
}

// decodeFlat decodes one flat record object.
func decodeFlat(raw []byte, path string, position int) (record.Record, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return record.Record{}, errors.NewMalformedRecord(path, position, "")
	}
	return record.FromFields(fields, path, position)
}

type squadDocument struct {
	Data []struct {
		Title      string `json:"title"`
		Paragraphs []struct {
			Context any              `json:"context"`
			QAs     []map[string]any `json:"qas"`
		} `json:"paragraphs"`
	} `json:"data"`
}

// decodeSQuAD flattens articles into records. Positions count questions in file order.
func (f File) decodeSQuAD(doc squadDocument) ([]record.Record, error) {
	var recs []record.Record
	position := 0
	for _, article := range doc.Data {
		for _, para := range article.Paragraphs {
			for _, qa := range para.QAs {
				fields := map[string]any{
					"id":       qa["id"],
					"question": qa["question"],
					"context":  para.Context,
					"title":    article.Title,
				}
				r, err := record.FromFields(fields, f.Path, position)
				if err != nil {
					return nil, err
				}
				recs = append(recs, r)
				position++
			}
		}
	}
	if recs == nil {
		recs = []record.Record{}
	}
	return recs, nil
}
