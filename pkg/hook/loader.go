package hook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hl2dm-community/mapsync/pkg/errors"
)

// scriptExt is the only recognized hook file extension.
const scriptExt = ".tengo"

// LoadHooksFromDir loads hook scripts from a directory. It looks for one file
// per phase, named <phase>.tengo (e.g. pre-sync.tengo); files with other
// names or extensions are ignored. A missing directory is not an error, it
// just means no hooks are configured.
func LoadHooksFromDir(manager Manager, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading hooks directory %s: %w: %w", dir, errors.ErrHookLoad, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != scriptExt {
			continue
		}

		phase := Phase(strings.TrimSuffix(entry.Name(), scriptExt))
		switch phase {
		case PreSync, PostDownload, PostExtract, PostSync:
		default:
			continue // Skip unknown phases
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("reading hook file %s: %w: %w", entry.Name(), errors.ErrHookLoad, err)
		}

		if err := manager.AddHook(Hook{
			Phase:   phase,
			Content: string(content),
		}); err != nil {
			return fmt.Errorf("adding hook %s: %w", phase, err)
		}
	}

	return nil
}
