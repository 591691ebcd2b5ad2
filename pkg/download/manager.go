package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/hl2dm-community/mapsync/pkg/errors"
	"github.com/hl2dm-community/mapsync/pkg/fsutil"
	"github.com/hl2dm-community/mapsync/pkg/model"
)

// ManagerImpl downloads map files over HTTP with per-item retries. Retries
// walk through address families (unrestricted, IPv4-only, IPv6-only) so that
// a host with broken records in one family still gets served by the other.
// Files are written next to their destination with a .part suffix and renamed
// into place only once complete.
type ManagerImpl struct {
	clients   *clientSet
	userAgent string
}

// NewManager creates a new download manager with the given user agent.
func NewManager(userAgent string) *ManagerImpl {
	if userAgent == "" {
		userAgent = "mapsync/1.0"
	}
	return &ManagerImpl{
		clients:   newClientSet(),
		userAgent: userAgent,
	}
}

// FetchAll downloads all items concurrently and returns one result per item,
// in input order. When the context is cancelled, in-flight items finish as
// cancelled and queued items are marked cancelled without being started.
func (m *ManagerImpl) FetchAll(ctx context.Context, items []model.PlanItem, opts Options) ([]model.DownloadResult, error) {
	opts = withDefaults(opts)

	for i, it := range items {
		if it.DestinationPath == "" || !filepath.IsAbs(it.DestinationPath) {
			return nil, fmt.Errorf("item %d destination must be absolute: %w: %s", i, pkgerrors.ErrInvalidPath, it.DestinationPath)
		}
	}

	results := make([]model.DownloadResult, len(items))
	tasks := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				if ctx.Err() != nil {
					results[idx] = model.DownloadResult{
						Item:    items[idx],
						Outcome: model.OutcomeCancelled,
						Err:     ctx.Err(),
					}
					continue
				}
				results[idx] = m.fetchOne(ctx, items[idx], opts)
			}
		}()
	}

	for i := range items {
		tasks <- i
	}
	close(tasks)
	wg.Wait()
	return results, nil
}

// Fetch downloads a single item.
func (m *ManagerImpl) Fetch(ctx context.Context, item model.PlanItem, opts Options) model.DownloadResult {
	opts = withDefaults(opts)
	if item.DestinationPath == "" || !filepath.IsAbs(item.DestinationPath) {
		return model.DownloadResult{
			Item:    item,
			Outcome: model.OutcomeFailed,
			Err:     fmt.Errorf("destination must be absolute: %w: %s", pkgerrors.ErrInvalidPath, item.DestinationPath),
		}
	}
	return m.fetchOne(ctx, item, opts)
}

func withDefaults(opts Options) Options {
	if opts.Concurrency <= 0 {
		opts.Concurrency = max(1, runtime.NumCPU()/2)
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultAttemptTimeout
	}
	return opts
}

func (m *ManagerImpl) fetchOne(ctx context.Context, item model.PlanItem, opts Options) model.DownloadResult {
	res := model.DownloadResult{Item: item}

	if reused, size := tryReuseExisting(item); reused {
		res.Outcome = model.OutcomeSkipped
		res.BytesTransferred = size
		return res
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(opts.MaxAttempts-1), retry.NewConstant(retryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fam := familyForAttempt(attempt)
		attempt++
		written, attemptErr := m.attemptDownload(ctx, item, fam, opts)
		if attemptErr != nil {
			if ctx.Err() != nil {
				// Parent cancelled; not worth another attempt.
				return attemptErr
			}
			return retry.RetryableError(attemptErr)
		}
		res.BytesTransferred = written
		return nil
	})

	res.Attempts = attempt
	if err != nil {
		res.Err = err
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			res.Outcome = model.OutcomeCancelled
		} else {
			res.Outcome = model.OutcomeFailed
		}
		return res
	}
	res.Outcome = model.OutcomeSuccess
	return res
}

// tryReuseExisting skips the transfer when the destination already holds a
// complete file, which makes re-running a partially failed session cheap.
func tryReuseExisting(item model.PlanItem) (bool, int64) {
	st, err := os.Stat(item.DestinationPath)
	if err != nil || st.Size() == 0 {
		return false, 0
	}
	if item.Entry.SizeKnown() && st.Size() != item.Entry.SizeBytes {
		return false, 0
	}
	return true, st.Size()
}

// attemptDownload performs a single bounded attempt pinned to one address
// family. On any failure the partial file is removed; on success the complete
// body has been renamed onto the destination path.
func (m *ManagerImpl) attemptDownload(parent context.Context, item model.PlanItem, fam addressFamily, opts Options) (int64, error) {
	ctx, cancel := context.WithTimeout(parent, opts.AttemptTimeout)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(item.DestinationPath), fsutil.DirModeDefault); err != nil {
		return 0, pkgerrors.Wrap(err, "could not create destination dir")
	}

	resp, err := m.doRequest(ctx, item, fam)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	written, err := m.writeBodyToPart(ctx, parent, resp, item, opts)
	if err != nil {
		return 0, err
	}

	if opts.VerifySize && resp.ContentLength >= 0 && written != resp.ContentLength {
		_ = os.Remove(item.DestinationPath + partSuffix)
		return 0, fmt.Errorf("wrote %d of %d bytes for %s: %w", written, resp.ContentLength, item.Entry.Filename(), pkgerrors.ErrSizeMismatch)
	}

	if err := finalizeFile(item.DestinationPath); err != nil {
		return 0, err
	}
	return written, nil
}

func (m *ManagerImpl) doRequest(ctx context.Context, item model.PlanItem, fam addressFamily) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.Entry.URL().String(), http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", m.userAgent)
	resp, err := m.clients.forFamily(fam).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s via %s: %w: %w", item.Entry.Filename(), fam, pkgerrors.ErrDownloadFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code %d for %s: %w", resp.StatusCode, item.Entry.Filename(), pkgerrors.ErrDownloadFailed)
	}
	return resp, nil
}

// writeBodyToPart streams the response body to the .part sibling of the
// destination, checking for cancellation between chunks. The partial file is
// removed on every failure path.
func (m *ManagerImpl) writeBodyToPart(ctx, parent context.Context, resp *http.Response, item model.PlanItem, opts Options) (int64, error) {
	partPath := item.DestinationPath + partSuffix
	out, err := os.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "could not create partial file")
	}

	total := item.Entry.SizeBytes
	if resp.ContentLength >= 0 {
		total = resp.ContentLength
	}

	cleanup := func() {
		_ = out.Close()
		_ = os.Remove(partPath)
	}

	var written int64
	buf := make([]byte, copyChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			cleanup()
			return 0, stallOrCancel(err, parent, item)
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				cleanup()
				return 0, pkgerrors.Wrap(writeErr, "could not write partial file")
			}
			written += int64(n)
			if opts.OnProgress != nil {
				opts.OnProgress(model.TransferProgress{
					Name:       item.Entry.Filename(),
					BytesDone:  written,
					BytesTotal: total,
				})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			cleanup()
			if ctx.Err() != nil {
				return 0, stallOrCancel(ctx.Err(), parent, item)
			}
			return 0, fmt.Errorf("reading body for %s: %w: %w", item.Entry.Filename(), pkgerrors.ErrDownloadFailed, readErr)
		}
	}

	if err := out.Sync(); err != nil {
		cleanup()
		return 0, pkgerrors.Wrap(err, "could not sync partial file")
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(partPath)
		return 0, pkgerrors.Wrap(err, "could not close partial file")
	}
	return written, nil
}

// stallOrCancel distinguishes a dead transfer hitting the attempt deadline
// from the whole session being cancelled.
func stallOrCancel(ctxErr error, parent context.Context, item model.PlanItem) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) && parent.Err() == nil {
		return fmt.Errorf("no progress on %s within attempt deadline: %w", item.Entry.Filename(), pkgerrors.ErrStalled)
	}
	return context.Canceled
}

func finalizeFile(destPath string) error {
	if err := fsutil.Move(destPath+partSuffix, destPath); err != nil {
		return pkgerrors.Wrap(err, "could not finalize file")
	}
	if err := os.Chmod(destPath, fsutil.FileModeDefault); err != nil {
		return pkgerrors.Wrap(err, "could not set permissions")
	}
	return nil
}
