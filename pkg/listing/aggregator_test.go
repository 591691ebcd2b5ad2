package listing

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hl2dm-community/mapsync/pkg/errors"
	"github.com/hl2dm-community/mapsync/pkg/model"
	"github.com/hl2dm-community/mapsync/test/testutil"
)

func newTestAggregator(opts Options) *Aggregator {
	src := NewHTMLSource(2*time.Second, "test")
	return NewAggregator(src, src, opts)
}

func relPaths(entries []model.RemoteEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.RelativePath
	}
	return out
}

func TestAggregator_SingleRoot(t *testing.T) {
	server := testutil.NewFastDLServer(t, map[string][]byte{
		"dm_lockdown.bsp.bz2":  []byte("compressed lockdown"),
		"dm_overwatch.bsp.bz2": []byte("compressed overwatch"),
	})

	agg := newTestAggregator(Options{ProbeSizes: true})
	inv, err := agg.Enumerate(context.Background(), []*url.URL{server.RootURL(t)})
	require.NoError(t, err)
	require.Empty(t, inv.Failures)

	assert.ElementsMatch(t,
		[]string{"dm_lockdown.bsp.bz2", "dm_overwatch.bsp.bz2"},
		relPaths(inv.Entries))
	for _, e := range inv.Entries {
		assert.True(t, e.SizeKnown(), "probe should fill in %s", e.RelativePath)
		assert.Positive(t, e.SizeBytes)
	}
}

func TestAggregator_DeduplicatesAcrossRoots(t *testing.T) {
	first := testutil.NewFastDLServer(t, map[string][]byte{
		"dm_lockdown.bsp.bz2": []byte("from first"),
		"dm_only_a.bsp.bz2":   []byte("a"),
	})
	second := testutil.NewFastDLServer(t, map[string][]byte{
		"dm_lockdown.bsp.bz2": []byte("from second"),
		"dm_only_b.bsp.bz2":   []byte("b"),
	})

	agg := newTestAggregator(Options{})
	inv, err := agg.Enumerate(context.Background(), []*url.URL{first.RootURL(t), second.RootURL(t)})
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{"dm_lockdown.bsp.bz2", "dm_only_a.bsp.bz2", "dm_only_b.bsp.bz2"},
		relPaths(inv.Entries))

	// First-seen-wins by stable root ordering.
	for _, e := range inv.Entries {
		if e.RelativePath == "dm_lockdown.bsp.bz2" {
			assert.Equal(t, first.RootURL(t).Host, e.SourceRoot.Host)
		}
	}
	require.Len(t, inv.Warnings, 1)
	assert.Contains(t, inv.Warnings[0], "dm_lockdown.bsp.bz2")
}

func TestAggregator_UnreachableRootDoesNotAbortOthers(t *testing.T) {
	healthy := testutil.NewFastDLServer(t, map[string][]byte{
		"dm_lockdown.bsp.bz2": []byte("x"),
	})
	dead, err := url.Parse("http://127.0.0.1:1/maps/")
	require.NoError(t, err)

	agg := newTestAggregator(Options{})
	inv, err := agg.Enumerate(context.Background(), []*url.URL{dead, healthy.RootURL(t)})
	require.NoError(t, err)

	assert.Equal(t, []string{"dm_lockdown.bsp.bz2"}, relPaths(inv.Entries))
	require.Len(t, inv.Failures, 1)
	assert.Equal(t, model.StageEnumeration, inv.Failures[0].Stage)
}

func TestAggregator_AllRootsUnreachable(t *testing.T) {
	deadA, err := url.Parse("http://127.0.0.1:1/maps/")
	require.NoError(t, err)
	deadB, err := url.Parse("http://127.0.0.1:1/other/")
	require.NoError(t, err)

	agg := newTestAggregator(Options{})
	inv, err := agg.Enumerate(context.Background(), []*url.URL{deadA, deadB})
	require.ErrorIs(t, err, errors.ErrNoUsableSources)
	require.NotNil(t, inv)
	assert.Len(t, inv.Failures, 2)
}

func TestAggregator_Recursion(t *testing.T) {
	server := testutil.NewFastDLServer(t, map[string][]byte{
		"dm_top.bsp.bz2":            []byte("top"),
		"custom/dm_nested.bsp.bz2":  []byte("nested"),
		"custom/deep/dm_deep.bsp.bz2": []byte("deep"),
	})

	t.Run("flat", func(t *testing.T) {
		agg := newTestAggregator(Options{})
		inv, err := agg.Enumerate(context.Background(), []*url.URL{server.RootURL(t)})
		require.NoError(t, err)
		assert.Equal(t, []string{"dm_top.bsp.bz2"}, relPaths(inv.Entries))
	})

	t.Run("recursive", func(t *testing.T) {
		agg := newTestAggregator(Options{Recursive: true, MaxDepth: 2})
		inv, err := agg.Enumerate(context.Background(), []*url.URL{server.RootURL(t)})
		require.NoError(t, err)
		assert.ElementsMatch(t,
			[]string{"dm_top.bsp.bz2", "custom/dm_nested.bsp.bz2", "custom/deep/dm_deep.bsp.bz2"},
			relPaths(inv.Entries))
	})

	t.Run("recursive without explicit depth still descends", func(t *testing.T) {
		agg := newTestAggregator(Options{Recursive: true})
		inv, err := agg.Enumerate(context.Background(), []*url.URL{server.RootURL(t)})
		require.NoError(t, err)
		assert.ElementsMatch(t,
			[]string{"dm_top.bsp.bz2", "custom/dm_nested.bsp.bz2", "custom/deep/dm_deep.bsp.bz2"},
			relPaths(inv.Entries))
	})

	t.Run("depth bounded", func(t *testing.T) {
		agg := newTestAggregator(Options{Recursive: true, MaxDepth: 1})
		inv, err := agg.Enumerate(context.Background(), []*url.URL{server.RootURL(t)})
		require.NoError(t, err)
		assert.ElementsMatch(t,
			[]string{"dm_top.bsp.bz2", "custom/dm_nested.bsp.bz2"},
			relPaths(inv.Entries))
	})
}

func TestAggregator_Progress(t *testing.T) {
	server := testutil.NewFastDLServer(t, map[string][]byte{
		"dm_a.bsp.bz2": []byte("a"),
		"dm_b.bsp.bz2": []byte("b"),
	})

	var mu sync.Mutex
	var last model.EnumProgress
	agg := newTestAggregator(Options{
		OnProgress: func(p model.EnumProgress) {
			mu.Lock()
			last = p
			mu.Unlock()
		},
	})
	_, err := agg.Enumerate(context.Background(), []*url.URL{server.RootURL(t)})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, last.RootsDone)
	assert.Equal(t, 1, last.RootsTotal)
	assert.Equal(t, 2, last.EntriesFound)
}
