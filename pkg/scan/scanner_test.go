package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
}

func TestScan(t *testing.T) {
	tests := []struct {
		name      string
		files     []string
		recursive bool
		want      []string
		notWant   []string
	}{
		{
			name:  "strips compression and map suffixes",
			files: []string{"dm_lockdown.bsp", "dm_overwatch.bsp.bz2", "dm_both.bsp", "dm_both.bsp.bz2"},
			want:  []string{"dm_lockdown", "dm_overwatch", "dm_both"},
		},
		{
			name:    "ignores non-map files",
			files:   []string{"notes.txt", "dm_real.bsp"},
			want:    []string{"dm_real"},
			notWant: []string{"notes", "notes.txt"},
		},
		{
			name:    "flat scan skips subdirectories",
			files:   []string{"dm_top.bsp", "download/maps/dm_nested.bsp"},
			want:    []string{"dm_top"},
			notWant: []string{"dm_nested"},
		},
		{
			name:      "recursive scan descends",
			files:     []string{"dm_top.bsp", "download/maps/dm_nested.bsp.bz2"},
			recursive: true,
			want:      []string{"dm_top", "dm_nested"},
		},
		{
			name:  "case insensitive suffixes",
			files: []string{"DM_UPPER.BSP.BZ2"},
			want:  []string{"DM_UPPER"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tt.files...)

			res, err := Scan(dir, tt.recursive)
			require.NoError(t, err)
			require.Empty(t, res.Failures)

			for _, stem := range tt.want {
				assert.Contains(t, res.Stems, stem)
			}
			for _, stem := range tt.notWant {
				assert.NotContains(t, res.Stems, stem)
			}
		})
	}
}

func TestScan_MissingDir(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "nope"), false)
	require.Error(t, err)
}

func TestResult_Present(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "dm_lockdown.bsp.bz2")

	res, err := Scan(dir, false)
	require.NoError(t, err)

	assert.True(t, res.Present("dm_lockdown.bsp"))
	assert.True(t, res.Present("dm_lockdown.bsp.bz2"))
	assert.False(t, res.Present("dm_overwatch.bsp"))
}
