package fsops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.sav")
	dst := filepath.Join(dir, "dst.sav")

	content := strings.Repeat("savedata", 1024)
	require.NoError(t, os.WriteFile(src, []byte(content), 0o644))

	require.NoError(t, CopyFile(context.Background(), src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no partial file left behind")
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()

	err := CopyFile(context.Background(), filepath.Join(dir, "missing"), filepath.Join(dir, "dst"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCopyFileCancellationRemovesPartial(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.sav")
	dst := filepath.Join(dir, "dst.sav")

	require.NoError(t, os.WriteFile(src, []byte("savedata"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := CopyFile(ctx, src, dst)
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(dst)
	assert.ErrorIs(t, statErr, os.ErrNotExist, "destination must not exist after cancellation")

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Len(t, entries, 1, "partial file removed on cancellation")
}

func TestRemoveFileAbsorbsMissing(t *testing.T) {
	assert.NoError(t, RemoveFile(filepath.Join(t.TempDir(), "gone.sav")))
}

func TestListDir(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.sav"), []byte("bb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.sav"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	entries, err := ListDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "a.sav", entries[0].Name)
	assert.Equal(t, int64(1), entries[0].Size)
	assert.Equal(t, "b.sav", entries[1].Name)
	assert.True(t, entries[2].IsDir)
}

func TestListDirMissing(t *testing.T) {
	_, err := ListDir(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestIsPartial(t *testing.T) {
	assert.True(t, IsPartial("dst.sav.savescum-partial"))
	assert.False(t, IsPartial("dst.sav"))
}
