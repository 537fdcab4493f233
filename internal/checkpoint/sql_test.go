package checkpoint

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-transcripts/internal/model"
)

func TestSQLStore_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoint.db")

	store, err := Open(ctx, Options{Driver: DriverSQLite, Path: path})
	require.NoError(t, err)

	cp, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, cp)

	require.NoError(t, store.Record(ctx, "A", model.Success("alpha")))
	require.NoError(t, store.Record(ctx, "B", model.Permanent(model.KindDisabled, "")))
	require.NoError(t, store.Record(ctx, "B", model.Success("beta")))

	err = store.Record(ctx, "C", model.Aborted("429"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotPersistable))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, Options{Driver: DriverSQLite, Path: path})
	require.NoError(t, err)
	defer func() {
		_ = reopened.Close()
	}()

	cp, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Checkpoint{
		"A": model.Success("alpha"),
		"B": model.Success("beta"),
	}, cp)
}

func TestOpenSQL_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: DriverPostgres})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn is required")
}

func TestSQLStore_QueryFailureIsNotCorruption(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, Options{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "checkpoint.db")})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Load(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, model.ErrCorruptCheckpoint), "got %v", err)
	assert.Contains(t, err.Error(), "load sqlite checkpoint")
}
