package gradewatch

import (
	"context"
	"testing"

	"obswatch/lib/sqliteutil"
	"obswatch/lib/telemetry"
	"obswatch/services/gradewatch/db"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	database, err := sqliteutil.OpenDB(db.Schema, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestStoreLoadEmpty(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:gradewatch")
	defer cleanup()

	store := newTestStore(t)
	snapshot, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, snapshot)
}

func TestStoreCommitRoundtrip(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:gradewatch")
	defer cleanup()

	store := newTestStore(t)
	committed := snapshot(
		record("CS101", "Vize", "87"),
		record("CS101", "Final", ""),
		record("MAT101", "Not", "BA"),
	)
	require.NoError(t, store.Commit(context.Background(), committed))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for key, want := range committed {
		got, ok := loaded[key]
		require.True(t, ok, "missing %v", key)
		require.Equal(t, want.Score, got.Score)
		require.Equal(t, want.Name, got.Name)
		require.Equal(t, want.SeenAt.Unix(), got.SeenAt.Unix())
	}
}

func TestStoreCommitReplacesWholesale(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:gradewatch")
	defer cleanup()

	store := newTestStore(t)
	require.NoError(t, store.Commit(context.Background(), snapshot(
		record("CS101", "Vize", "87"),
		record("OLD101", "Vize", "50"),
	)))

	// a dropped course disappears entirely on the next commit
	require.NoError(t, store.Commit(context.Background(), snapshot(
		record("CS101", "Vize", "90"),
	)))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	only := loaded[record("CS101", "Vize", "").Key()]
	require.Equal(t, "90", only.Score)
}
