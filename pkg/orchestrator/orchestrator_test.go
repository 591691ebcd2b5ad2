package orchestrator_test

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mholt/archives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hl2dm-community/mapsync/pkg/download"
	pkgerrors "github.com/hl2dm-community/mapsync/pkg/errors"
	"github.com/hl2dm-community/mapsync/pkg/extract"
	"github.com/hl2dm-community/mapsync/pkg/hook"
	"github.com/hl2dm-community/mapsync/pkg/listing"
	"github.com/hl2dm-community/mapsync/pkg/model"
	"github.com/hl2dm-community/mapsync/pkg/orchestrator"
	"github.com/hl2dm-community/mapsync/pkg/plan"
	"github.com/hl2dm-community/mapsync/test/testutil"
)

func bz2Bytes(t *testing.T, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := archives.Bz2{}.OpenWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newTestOrchestrator(hookMgr orchestrator.HookRunner, hooks orchestrator.Hooks) *orchestrator.Orchestrator {
	source := listing.NewHTMLSource(5*time.Second, "")
	agg := listing.NewAggregator(source, source, listing.Options{Concurrency: 2, ProbeSizes: true})
	return orchestrator.New(agg, download.NewManager(""), extract.NewManager(), hookMgr, hooks)
}

// confirmAll approves every gate prompt, so tests are independent of how much
// disk the machine running them has free.
func confirmAll(plan.GateDecision, *plan.Plan) bool { return true }

func syncOptions(dir string) orchestrator.Options {
	return orchestrator.Options{
		DownloadDir:      dir,
		MaxWorkers:       2,
		MaxAttempts:      1,
		AttemptTimeout:   10 * time.Second,
		Decompress:       true,
		ExtractWorkers:   2,
		DeleteCompressed: true,
	}
}

func TestRun_FullSessionAndIdempotence(t *testing.T) {
	alpha := []byte("alpha map payload")
	beta := []byte("beta map payload")
	srv := testutil.NewFastDLServer(t, map[string][]byte{
		"dm_alpha.bsp.bz2": bz2Bytes(t, alpha),
		"dm_beta.bsp.bz2":  bz2Bytes(t, beta),
	})

	dir := t.TempDir()
	o := newTestOrchestrator(nil, orchestrator.Hooks{ConfirmGate: confirmAll})
	roots := []*url.URL{srv.RootURL(t)}

	summary, err := o.Run(context.Background(), roots, syncOptions(dir))
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, 2, summary.Extracted)
	assert.Equal(t, 2, summary.Deleted)
	assert.Zero(t, summary.FailedDownload)
	assert.False(t, summary.HasFailures())

	got, err := os.ReadFile(filepath.Join(dir, "dm_alpha.bsp"))
	require.NoError(t, err)
	assert.Equal(t, alpha, got)
	assert.NoFileExists(t, filepath.Join(dir, "dm_alpha.bsp.bz2"))
	assert.NoFileExists(t, filepath.Join(dir, "dm_beta.bsp.bz2"))

	// A second session against the same tree finds everything present.
	again, err := o.Run(context.Background(), roots, syncOptions(dir))
	require.NoError(t, err)
	assert.Zero(t, again.TotalItems())
	assert.Zero(t, again.Extracted)
}

func TestRun_GateDeclinedWithoutConfirmer(t *testing.T) {
	files := make(map[string][]byte, 120)
	for i := 0; i < 120; i++ {
		files[fmt.Sprintf("dm_bulk_%03d.bsp.bz2", i)] = []byte("x")
	}
	srv := testutil.NewFastDLServer(t, files)

	o := newTestOrchestrator(nil, orchestrator.Hooks{})
	_, err := o.Run(context.Background(), []*url.URL{srv.RootURL(t)}, syncOptions(t.TempDir()))
	assert.ErrorIs(t, err, pkgerrors.ErrGateDeclined)
}

func TestRun_CancellationIsAccounted(t *testing.T) {
	// Large enough that a download takes several read chunks, so the
	// cancellation lands mid-transfer.
	big := make([]byte, 256*1024)
	srv := testutil.NewFastDLServer(t, map[string][]byte{
		"dm_one.bsp.bz2":   big,
		"dm_two.bsp.bz2":   big,
		"dm_three.bsp.bz2": big,
	})

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	hooks := orchestrator.Hooks{
		ConfirmGate: confirmAll,
		OnProgress:  func(model.TransferProgress) { once.Do(cancel) },
	}

	dir := t.TempDir()
	opts := syncOptions(dir)
	opts.MaxWorkers = 1

	o := newTestOrchestrator(nil, hooks)
	summary, err := o.Run(ctx, []*url.URL{srv.RootURL(t)}, opts)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 3, summary.TotalItems())
	assert.Equal(t, 3, summary.Cancelled)
	assert.Zero(t, summary.Extracted)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a cancelled session leaves no partial files behind")
}

func TestBuildPlan_DoesNotTransfer(t *testing.T) {
	srv := testutil.NewFastDLServer(t, map[string][]byte{
		"dm_alpha.bsp.bz2": []byte("payload"),
	})

	dir := t.TempDir()
	o := newTestOrchestrator(nil, orchestrator.Hooks{})
	pr, err := o.BuildPlan(context.Background(), []*url.URL{srv.RootURL(t)}, syncOptions(dir))
	require.NoError(t, err)
	require.Len(t, pr.Plan.Items, 1)
	assert.Equal(t, filepath.Join(dir, "dm_alpha.bsp.bz2"), pr.Plan.Items[0].DestinationPath)
	assert.Positive(t, pr.FreeDiskBytes)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// phaseRecorder is a HookRunner that records the phases it saw.
type phaseRecorder struct {
	mu     sync.Mutex
	phases []hook.Phase
}

func (r *phaseRecorder) Execute(phase hook.Phase, _ hook.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, phase)
	return nil
}

func TestRun_HookPhases(t *testing.T) {
	srv := testutil.NewFastDLServer(t, map[string][]byte{
		"dm_alpha.bsp.bz2": bz2Bytes(t, []byte("payload")),
	})

	rec := &phaseRecorder{}
	o := newTestOrchestrator(rec, orchestrator.Hooks{ConfirmGate: confirmAll})
	_, err := o.Run(context.Background(), []*url.URL{srv.RootURL(t)}, syncOptions(t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, []hook.Phase{hook.PreSync, hook.PostDownload, hook.PostExtract, hook.PostSync}, rec.phases)
}
