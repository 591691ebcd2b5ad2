package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMove(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, dir string) (src, dst string)
		wantErr bool
	}{
		{
			name: "move within directory",
			setup: func(t *testing.T, dir string) (string, string) {
				src := filepath.Join(dir, "dm_lockdown.bsp.part")
				require.NoError(t, os.WriteFile(src, []byte("map bytes"), 0o644))
				return src, filepath.Join(dir, "dm_lockdown.bsp")
			},
		},
		{
			name: "move creates destination directory",
			setup: func(t *testing.T, dir string) (string, string) {
				src := filepath.Join(dir, "a.bsp")
				require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
				return src, filepath.Join(dir, "download", "maps", "a.bsp")
			},
		},
		{
			name: "missing source",
			setup: func(t *testing.T, dir string) (string, string) {
				return filepath.Join(dir, "nope.bsp"), filepath.Join(dir, "dst.bsp")
			},
			wantErr: true,
		},
		{
			name: "empty paths",
			setup: func(*testing.T, string) (string, string) {
				return "", ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src, dst := tt.setup(t, dir)

			err := Move(src, dst)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			_, err = os.Stat(src)
			assert.True(t, os.IsNotExist(err), "source should be gone after move")
			_, err = os.Stat(dst)
			assert.NoError(t, err, "destination should exist after move")
		})
	}
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bsp")
	dst := filepath.Join(dir, "dst.bsp")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	require.NoError(t, Copy(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	// Source is untouched.
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestFreeSpace(t *testing.T) {
	free, err := FreeSpace(t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, free)

	_, err = FreeSpace(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
