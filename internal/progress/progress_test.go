package progress

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentbridge/cms-migration-service/internal/models"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "progress.json"))
}

func TestFileStore_WriteReadRoundtrip(t *testing.T) {
	store := newTestStore(t)

	want := models.ProgressSnapshot{
		Percent:   42,
		Status:    "Importing articles (3/7)",
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Write(want))

	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStore_ReadBeforeAnyWrite(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "idle", got.Status)
	assert.Equal(t, 0, got.Percent)
}

func TestFileStore_LastWriteWins(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write(models.ProgressSnapshot{Percent: 10, Status: "Importing users"}))
	require.NoError(t, store.Write(models.ProgressSnapshot{Percent: 100, Status: "Import completed"}))

	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, 100, got.Percent)
	assert.Equal(t, "Import completed", got.Status)
}

func TestFileStore_WriteFillsTimestamp(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write(models.ProgressSnapshot{Percent: 5, Status: "starting"}))

	got, err := store.Read()
	require.NoError(t, err)
	assert.False(t, got.Timestamp.IsZero())
}

func TestFileStore_CorruptFileReadsAsZeroState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0o644))

	got, err := NewFileStore(path).Read()
	require.NoError(t, err)
	assert.Equal(t, "idle", got.Status)
}
