// Package extract decompresses downloaded .bsp.bz2 map archives in place,
// writing each .bsp next to its source with the same atomic temp-then-rename
// discipline the download stage uses.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/mholt/archives"

	pkgerrors "github.com/hl2dm-community/mapsync/pkg/errors"
	"github.com/hl2dm-community/mapsync/pkg/fsutil"
	"github.com/hl2dm-community/mapsync/pkg/model"
)

const (
	copyChunkSize = 32 * 1024
	partSuffix    = ".part"
)

// Options control the behavior of the extraction manager.
type Options struct {
	Concurrency  int  // number of parallel extractions; if <=0, a sane default is used
	DeleteSource bool // remove the .bz2 after its .bsp is verified on disk

	// OnProgress, when set, is invoked per written chunk. The decompressed
	// size is not known up front, so BytesTotal is always SizeUnknown. May
	// be called concurrently from multiple extractions.
	OnProgress model.ProgressFunc
}

// Manager decompresses map archives.
type Manager interface {
	// ExtractAll decompresses all paths concurrently and returns one result per
	// path, in input order.
	ExtractAll(ctx context.Context, paths []string, opts Options) []model.ExtractResult

	// Extract decompresses a single archive.
	Extract(ctx context.Context, compressedPath string, opts Options) model.ExtractResult
}

// ManagerImpl implements Manager on top of the bzip2 codec.
type ManagerImpl struct {
	format archives.Bz2
}

// NewManager creates a new extraction manager.
func NewManager() *ManagerImpl {
	return &ManagerImpl{format: archives.Bz2{}}
}

// ExtractAll decompresses all paths concurrently. When the context is
// cancelled, queued paths are marked cancelled without being started.
func (m *ManagerImpl) ExtractAll(ctx context.Context, paths []string, opts Options) []model.ExtractResult {
	if opts.Concurrency <= 0 {
		opts.Concurrency = max(1, runtime.NumCPU()/2)
	}

	results := make([]model.ExtractResult, len(paths))
	tasks := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				if ctx.Err() != nil {
					results[idx] = model.ExtractResult{
						CompressedPath: paths[idx],
						Outcome:        model.OutcomeCancelled,
						Err:            ctx.Err(),
					}
					continue
				}
				results[idx] = m.extractOne(ctx, paths[idx], opts)
			}
		}()
	}

	for i := range paths {
		tasks <- i
	}
	close(tasks)
	wg.Wait()
	return results
}

// Extract decompresses a single archive.
func (m *ManagerImpl) Extract(ctx context.Context, compressedPath string, opts Options) model.ExtractResult {
	return m.extractOne(ctx, compressedPath, opts)
}

// extractOne writes the decompressed body to a .part sibling of the output
// path and renames it into place. The source archive is only deleted after
// the rename succeeds, so a failed extraction never loses data.
func (m *ManagerImpl) extractOne(ctx context.Context, compressedPath string, opts Options) model.ExtractResult {
	res := model.ExtractResult{CompressedPath: compressedPath}

	if !model.IsCompressed(compressedPath) {
		res.Outcome = model.OutcomeFailed
		res.Err = fmt.Errorf("%s: %w", compressedPath, pkgerrors.ErrNotCompressed)
		return res
	}
	res.OutputPath = model.UncompressedName(compressedPath)

	if err := m.decompress(ctx, compressedPath, res.OutputPath, opts.OnProgress); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			res.Outcome = model.OutcomeCancelled
		} else {
			res.Outcome = model.OutcomeFailed
		}
		res.Err = err
		return res
	}
	res.Outcome = model.OutcomeSuccess

	if opts.DeleteSource {
		if err := os.Remove(compressedPath); err != nil {
			res.DeleteErr = pkgerrors.Wrap(err, "could not delete source archive")
		} else {
			res.SourceDeleted = true
		}
	}
	return res
}

func (m *ManagerImpl) decompress(ctx context.Context, srcPath, dstPath string, onProgress model.ProgressFunc) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return pkgerrors.Wrap(err, "could not open archive")
	}
	defer func() { _ = src.Close() }()

	reader, err := m.format.OpenReader(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w: %w", srcPath, pkgerrors.ErrExtractFailed, err)
	}
	defer func() { _ = reader.Close() }()

	partPath := dstPath + partSuffix
	out, err := os.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return pkgerrors.Wrap(err, "could not create partial file")
	}

	cleanup := func() {
		_ = out.Close()
		_ = os.Remove(partPath)
	}

	name := filepath.Base(dstPath)
	buf := make([]byte, copyChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			cleanup()
			return err
		}
		n, readErr := reader.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				cleanup()
				return pkgerrors.Wrap(writeErr, "could not write partial file")
			}
			written += int64(n)
			if onProgress != nil {
				onProgress(model.TransferProgress{
					Name:       name,
					BytesDone:  written,
					BytesTotal: model.SizeUnknown,
				})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			cleanup()
			return fmt.Errorf("decompressing %s: %w: %w", srcPath, pkgerrors.ErrExtractFailed, readErr)
		}
	}

	if err := out.Sync(); err != nil {
		cleanup()
		return pkgerrors.Wrap(err, "could not sync partial file")
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(partPath)
		return pkgerrors.Wrap(err, "could not close partial file")
	}
	if err := fsutil.Move(partPath, dstPath); err != nil {
		_ = os.Remove(partPath)
		return pkgerrors.Wrap(err, "could not finalize file")
	}
	return nil
}
