package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethpandaops/etlaudit/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSnapshot(t *testing.T, name string) *Snapshot {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return NewSnapshot(log, &Config{Path: filepath.Join(t.TempDir(), name)})
}

func sampleRecords() []models.LoadRecord {
	base := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	return []models.LoadRecord{
		{Timestamp: base, Filename: "sales.csv", Destination: "warehouse", Table: "public.orders", Rows: 1500},
		{Timestamp: base, Filename: "sales.csv", Destination: "warehouse", Table: "public.items", Rows: 42},
		{Timestamp: base.Add(90*time.Minute + 123*time.Microsecond), Filename: "Unknown", Destination: "Unknown", Table: "t", Rows: 0},
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	snapshot := newTestSnapshot(t, "history.parquet")
	records := sampleRecords()

	require.NoError(t, snapshot.Store(records))
	assert.True(t, snapshot.Exists())

	loaded, err := snapshot.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, len(records))

	for i := range records {
		assert.True(t, records[i].Timestamp.Equal(loaded[i].Timestamp), "timestamp %d", i)
		assert.Equal(t, time.UTC, loaded[i].Timestamp.Location())
		assert.Equal(t, records[i].Filename, loaded[i].Filename)
		assert.Equal(t, records[i].Destination, loaded[i].Destination)
		assert.Equal(t, records[i].Table, loaded[i].Table)
		assert.Equal(t, records[i].Rows, loaded[i].Rows)
	}
}

func TestSnapshot_StoreOverwrites(t *testing.T) {
	snapshot := newTestSnapshot(t, "history.parquet")

	require.NoError(t, snapshot.Store(sampleRecords()))
	require.NoError(t, snapshot.Store(sampleRecords()[:1]))

	loaded, err := snapshot.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded, 1)

	// no temp files are left behind
	entries, err := os.ReadDir(filepath.Dir(snapshot.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSnapshot_StoreCreatesDirectory(t *testing.T) {
	snapshot := newTestSnapshot(t, filepath.Join("nested", "dir", "history.parquet"))

	require.NoError(t, snapshot.Store(sampleRecords()))
	assert.True(t, snapshot.Exists())
}

func TestSnapshot_EmptyStore(t *testing.T) {
	snapshot := newTestSnapshot(t, "empty.parquet")

	require.NoError(t, snapshot.Store(nil))

	loaded, err := snapshot.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSnapshot_LoadMissing(t *testing.T) {
	snapshot := newTestSnapshot(t, "missing.parquet")

	assert.False(t, snapshot.Exists())

	_, err := snapshot.Load(context.Background())
	assert.ErrorIs(t, err, models.ErrSnapshotNotFound)

	_, err = snapshot.Age()
	assert.ErrorIs(t, err, models.ErrSnapshotNotFound)
}

func TestSnapshot_LoadCorrupt(t *testing.T) {
	snapshot := newTestSnapshot(t, "corrupt.parquet")
	require.NoError(t, os.WriteFile(snapshot.Path(), []byte("not parquet"), 0o600))

	_, err := snapshot.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrSnapshotNotFound)
}

func TestSnapshot_Remove(t *testing.T) {
	snapshot := newTestSnapshot(t, "history.parquet")

	removed, err := snapshot.Remove()
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, snapshot.Store(sampleRecords()))

	removed, err = snapshot.Remove()
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, snapshot.Exists())
}

func TestSnapshot_Age(t *testing.T) {
	snapshot := newTestSnapshot(t, "history.parquet")
	require.NoError(t, snapshot.Store(sampleRecords()))

	age, err := snapshot.Age()
	require.NoError(t, err)
	assert.Less(t, age, time.Minute)
}

func TestConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Config{}).Validate(), ErrPathRequired)
	assert.NoError(t, (&Config{Path: "x.parquet"}).Validate())
}
