// Package scan walks the local target directory and reports which maps are
// already present, keyed by their extension-insensitive stem.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hl2dm-community/mapsync/pkg/errors"
	"github.com/hl2dm-community/mapsync/pkg/model"
)

// Result is the local presence snapshot for one run. A stem is present when
// either the compressed or the uncompressed form of the map exists.
type Result struct {
	Stems    map[string]struct{}
	Failures []model.FailureRecord
}

// Present reports whether the given file name's stem was found locally.
func (r *Result) Present(name string) bool {
	_, ok := r.Stems[model.Stem(name)]
	return ok
}

// Scan walks dir and collects the stems of all recognized map files. When
// recursive is false only the directory's direct children are considered.
// Unreadable entries are recorded and skipped; only a missing or unreadable
// root directory is a hard error.
func Scan(dir string, recursive bool) (*Result, error) {
	res := &Result{Stems: make(map[string]struct{})}

	if _, err := os.Stat(dir); err != nil {
		return nil, errors.Wrapf(err, "cannot scan %s", dir)
	}

	if !recursive {
		ents, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot scan %s", dir)
		}
		for _, ent := range ents {
			if ent.IsDir() {
				continue
			}
			res.record(ent.Name())
		}
		return res, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			res.Failures = append(res.Failures, model.FailureRecord{
				Stage:  model.StageScan,
				Name:   path,
				Reason: err.Error(),
			})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			res.record(d.Name())
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot scan %s", dir)
	}
	return res, nil
}

func (r *Result) record(name string) {
	if model.IsMapFile(name) {
		r.Stems[model.Stem(name)] = struct{}{}
	}
}
