package extract

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mholt/archives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/hl2dm-community/mapsync/pkg/errors"
	"github.com/hl2dm-community/mapsync/pkg/model"
)

// writeBz2 compresses content to path with the same codec the manager reads.
func writeBz2(t *testing.T, path string, content []byte) {
	t.Helper()
	var buf bytes.Buffer
	w, err := archives.Bz2{}.OpenWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestExtract_Success(t *testing.T) {
	dir := t.TempDir()
	content := []byte("decompressed map payload")
	srcPath := filepath.Join(dir, "dm_lockdown.bsp.bz2")
	writeBz2(t, srcPath, content)

	res := NewManager().Extract(context.Background(), srcPath, Options{})
	require.NoError(t, res.Err)
	assert.Equal(t, model.OutcomeSuccess, res.Outcome)
	assert.Equal(t, filepath.Join(dir, "dm_lockdown.bsp"), res.OutputPath)
	assert.False(t, res.SourceDeleted)

	got, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.FileExists(t, srcPath, "source is kept unless deletion is requested")
	assert.NoFileExists(t, res.OutputPath+partSuffix)
}

func TestExtract_DeleteSource(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "dm_lockdown.bsp.bz2")
	writeBz2(t, srcPath, []byte("payload"))

	res := NewManager().Extract(context.Background(), srcPath, Options{DeleteSource: true})
	require.NoError(t, res.Err)
	assert.Equal(t, model.OutcomeSuccess, res.Outcome)
	assert.True(t, res.SourceDeleted)
	assert.NoError(t, res.DeleteErr)
	assert.NoFileExists(t, srcPath)
	assert.FileExists(t, res.OutputPath)
}

func TestExtract_ReportsProgress(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "dm_lockdown.bsp.bz2")
	content := bytes.Repeat([]byte("map data "), 16*1024)
	writeBz2(t, srcPath, content)

	var events []model.TransferProgress
	res := NewManager().Extract(context.Background(), srcPath, Options{
		OnProgress: func(p model.TransferProgress) { events = append(events, p) },
	})
	require.NoError(t, res.Err)
	require.NotEmpty(t, events)

	var prev int64
	for _, ev := range events {
		assert.Equal(t, "dm_lockdown.bsp", ev.Name)
		assert.Greater(t, ev.BytesDone, prev)
		assert.Equal(t, int64(model.SizeUnknown), ev.BytesTotal)
		prev = ev.BytesDone
	}
	assert.Equal(t, int64(len(content)), events[len(events)-1].BytesDone)
}

func TestExtract_CorruptInputKeepsSource(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "dm_corrupt.bsp.bz2")
	require.NoError(t, os.WriteFile(srcPath, []byte("this is not bzip2 data"), 0o644))

	res := NewManager().Extract(context.Background(), srcPath, Options{DeleteSource: true})
	assert.Equal(t, model.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, pkgerrors.ErrExtractFailed)
	assert.False(t, res.SourceDeleted)
	assert.FileExists(t, srcPath, "a failed extraction must not delete its source")
	assert.NoFileExists(t, filepath.Join(dir, "dm_corrupt.bsp"))
	assert.NoFileExists(t, filepath.Join(dir, "dm_corrupt.bsp")+partSuffix)
}

func TestExtract_UncompressedNameRejected(t *testing.T) {
	res := NewManager().Extract(context.Background(), "/maps/dm_plain.bsp", Options{})
	assert.Equal(t, model.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, pkgerrors.ErrNotCompressed)
}

func TestExtractAll_OrderAndCancellation(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 3)
	for i, name := range []string{"dm_a.bsp.bz2", "dm_b.bsp.bz2", "dm_c.bsp.bz2"} {
		paths[i] = filepath.Join(dir, name)
		writeBz2(t, paths[i], []byte(name))
	}

	results := NewManager().ExtractAll(context.Background(), paths, Options{Concurrency: 2})
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, paths[i], res.CompressedPath, "results keep input order")
		assert.Equal(t, model.OutcomeSuccess, res.Outcome)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cancelled := NewManager().ExtractAll(ctx, paths, Options{Concurrency: 1})
	require.Len(t, cancelled, 3)
	for _, res := range cancelled {
		assert.Equal(t, model.OutcomeCancelled, res.Outcome)
	}
}
