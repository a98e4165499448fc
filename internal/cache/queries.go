package cache

import (
	"context"
	"crypto/rand"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/advdiff/internal/errors"
	"github.com/hpungsan/advdiff/internal/record"
)

// Key identifies a cached collection.
type Key struct {
	Dataset string `json:"dataset"`
	Config  string `json:"config"`
	Split   string `json:"split"`
}

// String renders the key as dataset/config/split.
func (k Key) String() string {
	return strings.Join([]string{k.Dataset, k.Config, k.Split}, "/")
}

// Entry describes one cached fetch.
type Entry struct {
	ID string `json:"id"`
	Key
	RowCount  int   `json:"row_count"`
	FetchedAt int64 `json:"fetched_at"`
}

// Age returns how long ago the entry was fetched.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(e.FetchedAt, 0))
}

// Put stores records as the newest fetch for key and drops older fetches of the same key.
func Put(ctx context.Context, db *sql.DB, key Key, recs []record.Record) (*Entry, error) {
	now := time.Now()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate fetch id: %w", err))
	}

	entry := &Entry{
		ID:        id.String(),
		Key:       key,
		RowCount:  len(recs),
		FetchedAt: now.Unix(),
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback()

	if err := deleteFetches(ctx, tx, `WHERE dataset = ? AND config = ? AND split = ?`, key.Dataset, key.Config, key.Split); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO fetches (id, dataset, config, split, row_count, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID, key.Dataset, key.Config, key.Split, entry.RowCount, entry.FetchedAt)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (fetch_id, position, id, title, context, question)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer stmt.Close()

	for i, r := range recs {
		title := sql.NullString{String: r.Title, Valid: r.Title != ""}
		if _, err := stmt.ExecContext(ctx, entry.ID, i, r.ID, title, r.Context, r.Question); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return entry, nil
}

// Latest returns the newest fetch for key, or a NOT_FOUND error.
func Latest(ctx context.Context, db *sql.DB, key Key) (*Entry, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, dataset, config, split, row_count, fetched_at
		FROM fetches
		WHERE dataset = ? AND config = ? AND split = ?
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`, key.Dataset, key.Config, key.Split)

	entry, err := scanEntry(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFound(key.String())
		}
		return nil, errors.NewInternal(err)
	}
	return entry, nil
}

// Records returns the records of a fetch in their original order.
func Records(ctx context.Context, db *sql.DB, fetchID string) ([]record.Record, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, title, context, question
		FROM records
		WHERE fetch_id = ?
		ORDER BY position
	`, fetchID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var recs []record.Record
	for rows.Next() {
		var (
			r     record.Record
			title sql.NullString
		)
		if err := rows.Scan(&r.ID, &title, &r.Context, &r.Question); err != nil {
			return nil, errors.NewInternal(err)
		}
		r.Title = title.String
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return recs, nil
}

// List returns every cached fetch, newest first.
func List(ctx context.Context, db *sql.DB) ([]Entry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, dataset, config, split, row_count, fetched_at
		FROM fetches
		ORDER BY fetched_at DESC, id DESC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return entries, nil
}

// PurgeFilter narrows Purge. Zero values match everything.
type PurgeFilter struct {
	Dataset   string
	OlderThan time.Duration
}

// Purge deletes cached fetches matching filter and returns how many were removed.
func Purge(ctx context.Context, db *sql.DB, filter PurgeFilter) (int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Dataset != "" {
		conds = append(conds, "dataset = ?")
		args = append(args, filter.Dataset)
	}
	if filter.OlderThan > 0 {
		conds = append(conds, "fetched_at < ?")
		args = append(args, time.Now().Add(-filter.OlderThan).Unix())
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM fetches "+where, args...).Scan(&count); err != nil {
		return 0, errors.NewInternal(err)
	}
	if err := deleteFetches(ctx, tx, where, args...); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

// deleteFetches removes fetches selected by where, along with their records.
func deleteFetches(ctx context.Context, tx *sql.Tx, where string, args ...any) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE fetch_id IN (SELECT id FROM fetches "+where+")", args...); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM fetches "+where, args...); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry scans a single fetches row into an Entry.
func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	if err := row.Scan(&e.ID, &e.Dataset, &e.Config, &e.Split, &e.RowCount, &e.FetchedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
