// Package record holds the dataset record type, the original-record index,
// and adversarial identifier resolution.
package record

import (
	"strings"

	"github.com/hpungsan/advdiff/internal/errors"
)

// Delimiter separates a base identifier from an adversarial suffix.
const Delimiter = "-"

// Record is one question/passage pair. Fields other than these are ignored.
type Record struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Context  string `json:"context"`
	Question string `json:"question"`
}

// FromFields builds a Record from a decoded JSON object.
// id, context and question must be present and be strings; title is optional.
// source and position only feed the error details.
func FromFields(fields map[string]any, source string, position int) (Record, error) {
	var r Record
	var ok bool

	if r.ID, ok = fields["id"].(string); !ok {
		return Record{}, errors.NewMalformedRecord(source, position, "id")
	}
	if r.Context, ok = fields["context"].(string); !ok {
		return Record{}, errors.NewMalformedRecord(source, position, "context")
	}
	if r.Question, ok = fields["question"].(string); !ok {
		return Record{}, errors.NewMalformedRecord(source, position, "question")
	}
	r.Title, _ = fields["title"].(string)

	return r, nil
}

// Index maps a record id to its record.
type Index map[string]Record

// BuildIndex indexes records by id. Later duplicates overwrite earlier ones.
func BuildIndex(records []Record) Index {
	idx := make(Index, len(records))
	for _, r := range records {
		idx[r.ID] = r
	}
	return idx
}

// ResolveID returns the base identifier of an adversarial id and whether the
// id carries a suffix. A leading delimiter yields an empty base.
func ResolveID(id string) (base string, hasSuffix bool) {
	base, _, hasSuffix = strings.Cut(id, Delimiter)
	return base, hasSuffix
}

// Suffix returns the part of id that follows base, e.g. "-high-conf".
// Only the leading base is stripped: later occurrences of base inside the
// suffix are kept, so "ab-cab" yields "-cab" rather than "-c".
// If base is not a prefix of id, id is returned unchanged.
func Suffix(id, base string) string {
	if s, ok := strings.CutPrefix(id, base); ok {
		return s
	}
	return id
}
