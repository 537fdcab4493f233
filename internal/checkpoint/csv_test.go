package checkpoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-transcripts/internal/model"
)

func TestCSVStore_LoadMissingFileIsEmpty(t *testing.T) {
	store, err := NewCSVStore(filepath.Join(t.TempDir(), "nope.csv"))
	require.NoError(t, err)

	cp, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cp)
}

func TestCSVStore_RecordThenReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "transcripts.csv")

	store, err := NewCSVStore(path)
	require.NoError(t, err)
	_, err = store.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Record(ctx, "A", model.Success("hello, \"world\"\nline two")))
	require.NoError(t, store.Record(ctx, "B", model.Permanent(model.KindNotFound, "no en track")))
	require.NoError(t, store.Record(ctx, "C", model.Permanent(model.KindDisabled, "")))

	reloaded, err := NewCSVStore(path)
	require.NoError(t, err)
	cp, err := reloaded.Load(ctx)
	require.NoError(t, err)

	require.Len(t, cp, 3)
	assert.Equal(t, model.Success("hello, \"world\"\nline two"), cp["A"])
	assert.Equal(t, model.KindNotFound, cp["B"].Kind)
	assert.Equal(t, model.KindDisabled, cp["C"].Kind)
	assert.True(t, cp.Resolved("A"))
	assert.False(t, cp.Resolved("D"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "id,transcript\n"))
	assert.Contains(t, string(raw), "B,NO_TRANSCRIPT_FOUND\n")
}

func TestCSVStore_RecordOverwritesEntryInPlace(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "transcripts.csv")
	store, err := NewCSVStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Record(ctx, "A", model.Permanent(model.KindUnavailable, "")))
	require.NoError(t, store.Record(ctx, "B", model.Success("b")))
	require.NoError(t, store.Record(ctx, "A", model.Success("a")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,transcript\nA,a\nB,b\n", string(raw))
}

func TestCSVStore_RejectsUnresolvedOutcomes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "transcripts.csv")
	store, err := NewCSVStore(path)
	require.NoError(t, err)

	err = store.Record(ctx, "A", model.Transient("timeout"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotPersistable))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "transient outcome must not create the file")
}

func TestCSVStore_LoadCorruptFileFails(t *testing.T) {
	cases := map[string]string{
		"bad quoting":    "id,transcript\nA,\"unterminated\n",
		"missing column": "video,text\nA,hello\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "transcripts.csv")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			store, err := NewCSVStore(path)
			require.NoError(t, err)
			_, err = store.Load(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrCorruptCheckpoint), "got %v", err)
		})
	}
}

func TestCSVStore_LoadLegacyMergedFile(t *testing.T) {
	// Older datasets list every id, with extra columns and empty transcripts for pending rows.
	body := "\ufeffid,title,transcript\n" +
		"A,First,hello there\n" +
		"B,Second,\n" +
		"C,Third,VIDEO_UNAVAILABLE\n" +
		",Blank,ignored\n"
	path := filepath.Join(t.TempDir(), "final_merged_output.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	store, err := NewCSVStore(path)
	require.NoError(t, err)
	cp, err := store.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, cp, 2)
	assert.Equal(t, "hello there", cp["A"].Payload)
	assert.Equal(t, model.KindUnavailable, cp["C"].Kind)
	_, pending := cp["B"]
	assert.False(t, pending)
}

func TestCSVStore_CrashAfterRecordLeavesCompleteFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "transcripts.csv")

	store, err := NewCSVStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, "A", model.Success("a")))
	require.NoError(t, store.Record(ctx, "B", model.Success("b")))

	// The store is abandoned here without Close, as a killed process would.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".ytt-tmp-"), "temp file left behind: %s", e.Name())
	}

	fresh, err := NewCSVStore(path)
	require.NoError(t, err)
	cp, err := fresh.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Checkpoint{"A": model.Success("a"), "B": model.Success("b")}, cp)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "redis", Path: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown checkpoint driver")
}
