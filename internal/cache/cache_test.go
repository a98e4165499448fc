package cache

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/advdiff/internal/errors"
	"github.com/hpungsan/advdiff/internal/record"
)

// setupTestDB creates a temporary cache database for testing.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var squadKey = Key{Dataset: "rajpurkar/squad", Config: "plain_text", Split: "validation"}

func sampleRecords() []record.Record {
	return []record.Record{
		{ID: "q1", Title: "Sky", Context: "The sky is blue.", Question: "What color?"},
		{ID: "q2", Context: "Grass is green.", Question: "What color is grass?"},
	}
}

func TestInit(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := Init(tmpDir)
	require.NoError(t, err)
	defer db.Close()

	if _, err := os.Stat(filepath.Join(tmpDir, FileName)); os.IsNotExist(err) {
		t.Errorf("database file not created")
	}

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	for _, table := range []string{"fetches", "records"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}

	version, err := GetUserVersion(db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestInit_Idempotent(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested", ".advdiff")

	db, err := Init(tmpDir)
	require.NoError(t, err)
	db.Close()

	db, err = Init(tmpDir)
	require.NoError(t, err)
	defer db.Close()

	version, err := GetUserVersion(db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestPutLatestRecords(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	entry, err := Put(ctx, db, squadKey, sampleRecords())
	require.NoError(t, err)
	assert.Len(t, entry.ID, 26, "ULID")
	assert.Equal(t, 2, entry.RowCount)

	latest, err := Latest(ctx, db, squadKey)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, latest.ID)
	assert.Equal(t, squadKey, latest.Key)

	recs, err := Records(ctx, db, latest.ID)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), recs)
}

func TestPut_ReplacesOlderFetchOfSameKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first, err := Put(ctx, db, squadKey, sampleRecords())
	require.NoError(t, err)
	second, err := Put(ctx, db, squadKey, sampleRecords()[:1])
	require.NoError(t, err)

	entries, err := List(ctx, db)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, second.ID, entries[0].ID)

	recs, err := Records(ctx, db, first.ID)
	require.NoError(t, err)
	assert.Empty(t, recs, "records of replaced fetch are removed")
}

func TestPut_EmptyCollection(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	entry, err := Put(ctx, db, squadKey, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, entry.RowCount)

	recs, err := Records(ctx, db, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestLatest_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := Latest(context.Background(), db, squadKey)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestList_MultipleKeys(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	advKey := Key{Dataset: "stanfordnlp/squad_adversarial", Config: "AddSent", Split: "validation"}
	_, err := Put(ctx, db, squadKey, sampleRecords())
	require.NoError(t, err)
	_, err = Put(ctx, db, advKey, sampleRecords())
	require.NoError(t, err)

	entries, err := List(ctx, db)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	advKey := Key{Dataset: "stanfordnlp/squad_adversarial", Config: "AddOneSent", Split: "validation"}

	t.Run("by dataset", func(t *testing.T) {
		db := setupTestDB(t)
		_, err := Put(ctx, db, squadKey, sampleRecords())
		require.NoError(t, err)
		_, err = Put(ctx, db, advKey, sampleRecords())
		require.NoError(t, err)

		n, err := Purge(ctx, db, PurgeFilter{Dataset: advKey.Dataset})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		entries, err := List(ctx, db)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, squadKey, entries[0].Key)
	})

	t.Run("older than", func(t *testing.T) {
		db := setupTestDB(t)
		old, err := Put(ctx, db, squadKey, sampleRecords())
		require.NoError(t, err)
		_, err = Put(ctx, db, advKey, sampleRecords())
		require.NoError(t, err)

		tenDaysAgo := time.Now().Add(-10 * 24 * time.Hour).Unix()
		_, err = db.Exec("UPDATE fetches SET fetched_at = ? WHERE id = ?", tenDaysAgo, old.ID)
		require.NoError(t, err)

		n, err := Purge(ctx, db, PurgeFilter{OlderThan: 7 * 24 * time.Hour})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		recs, err := Records(ctx, db, old.ID)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("everything", func(t *testing.T) {
		db := setupTestDB(t)
		_, err := Put(ctx, db, squadKey, sampleRecords())
		require.NoError(t, err)

		n, err := Purge(ctx, db, PurgeFilter{})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count))
		assert.Zero(t, count)
	})
}

func TestEntryAge(t *testing.T) {
	now := time.Now()
	e := Entry{FetchedAt: now.Add(-2 * time.Hour).Unix()}
	age := e.Age(now)
	assert.InDelta(t, (2 * time.Hour).Seconds(), age.Seconds(), 1)
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "rajpurkar/squad/plain_text/validation", squadKey.String())
}
