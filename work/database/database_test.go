package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "uploads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndListUploads(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.RecordUpload("first.m3u", 100, 10))
	require.NoError(t, db.RecordUpload("second.m3u8", 250, 25))

	records, err := db.RecentUploads(20)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// newest first
	assert.Equal(t, "second.m3u8", records[0].Filename)
	assert.Equal(t, 250, records[0].TotalChannels)
	assert.Equal(t, 25, records[0].TotalCategories)
	assert.False(t, records[0].CreatedAt.IsZero())
	assert.Equal(t, "first.m3u", records[1].Filename)
}

func TestRecentUploadsLimit(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.RecordUpload("list.m3u", i, 1))
	}

	records, err := db.RecentUploads(3)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	records, err = db.RecentUploads(0)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestRecentUploadsEmpty(t *testing.T) {
	db := openTestDB(t)

	records, err := db.RecentUploads(20)
	require.NoError(t, err)
	assert.Empty(t, records)
}
