// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-engine/internal/cache"
	"github.com/pdiddy/paper-engine/pkg/types"
)

const flTopic = "Federated Learning for Medical Imaging"

// fakeProvider answers by query and counts calls per query.
type fakeProvider struct {
	mu        sync.Mutex
	responses map[string][]types.RetrievedPaper
	errs      map[string]error
	calls     map[string]int
	delay     time.Duration
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		responses: map[string][]types.RetrievedPaper{},
		errs:      map[string]error{},
		calls:     map[string]int{},
	}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(_ context.Context, query string, _ int) ([]types.RetrievedPaper, error) {
	f.mu.Lock()
	f.calls[query]++
	papers, err := f.responses[query], f.errs[query]
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return papers, err
}

func (f *fakeProvider) callCount(query string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[query]
}

func (f *fakeProvider) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// papersWithDOIs builds papers whose DOIs are 10.1/<prefix><i>.
func papersWithDOIs(prefix string, from, to int) []types.RetrievedPaper {
	var out []types.RetrievedPaper
	for i := from; i <= to; i++ {
		out = append(out, types.RetrievedPaper{
			ID:          fmt.Sprintf("%s-%d", prefix, i),
			Title:       fmt.Sprintf("Paper %s %d", prefix, i),
			ExternalIDs: map[string]string{types.ExternalDOI: fmt.Sprintf("10.1/%s%d", prefix, i)},
		})
	}
	return out
}

// errStore fails every operation.
type errStore struct{}

func (errStore) Get(context.Context, string) (cache.Entry, bool, error) {
	return cache.Entry{}, false, errors.New("disk on fire")
}
func (errStore) Put(context.Context, string, any, time.Duration) error {
	return errors.New("disk on fire")
}
func (errStore) Purge(context.Context, cache.PurgeMode) (int, error) { return 0, nil }
func (errStore) Close() error                                        { return nil }

func TestSearchFederatedLearningExample(t *testing.T) {
	fp := newFakeProvider()
	fp.responses[flTopic] = papersWithDOIs("a", 1, 6)
	// Three duplicates of the exact step plus three new papers.
	fp.responses["federated learning medical imaging"] = append(papersWithDOIs("a", 1, 3), papersWithDOIs("b", 1, 3)...)

	svc := New(fp, cache.NewMemoryStore(), 0, nil)
	papers, err := svc.Search(context.Background(), flTopic, 10)
	require.NoError(t, err)
	assert.Len(t, papers, 9)

	seen := map[string]bool{}
	for _, p := range papers {
		assert.False(t, seen[p.Identity()], "duplicate identity %s", p.Identity())
		seen[p.Identity()] = true
	}
	assert.Equal(t, "a-1", papers[0].ID, "exact step results come first")
	assert.Equal(t, "b-1", papers[6].ID)

	// Still short of the limit, so the broader steps ran too.
	assert.Equal(t, 1, fp.callCount("federated learning medical"))
	assert.Equal(t, 1, fp.callCount("medical imaging"))
}

func TestSearchStopsOnceLimitReached(t *testing.T) {
	fp := newFakeProvider()
	fp.responses[flTopic] = papersWithDOIs("a", 1, 10)

	svc := New(fp, nil, 0, nil)
	papers, err := svc.Search(context.Background(), flTopic, 10)
	require.NoError(t, err)
	assert.Len(t, papers, 10)
	assert.Equal(t, 1, fp.totalCalls(), "no broader step may run once the limit is met")
}

func TestSearchTruncatesToLimit(t *testing.T) {
	fp := newFakeProvider()
	fp.responses[flTopic] = papersWithDOIs("a", 1, 4)
	fp.responses["federated learning medical imaging"] = papersWithDOIs("b", 1, 4)

	svc := New(fp, nil, 0, nil)
	papers, err := svc.Search(context.Background(), flTopic, 5)
	require.NoError(t, err)
	assert.Len(t, papers, 5)
	assert.Equal(t, 0, fp.callCount("federated learning medical"))
}

func TestSearchSkipsFailedSteps(t *testing.T) {
	fp := newFakeProvider()
	fp.errs[flTopic] = errors.New("HTTP 503")
	fp.responses["federated learning medical imaging"] = papersWithDOIs("b", 1, 3)

	svc := New(fp, nil, 0, nil)
	papers, err := svc.Search(context.Background(), flTopic, 10)
	require.NoError(t, err)
	assert.Len(t, papers, 3)
	assert.Equal(t, 4, fp.totalCalls())
}

func TestSearchAllStepsEmptyIsUnavailable(t *testing.T) {
	fp := newFakeProvider()
	fp.errs[flTopic] = errors.New("timeout")

	svc := New(fp, nil, 0, nil)
	papers, err := svc.Search(context.Background(), flTopic, 10)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Empty(t, papers)
}

func TestSearchCacheHitSkipsUpstream(t *testing.T) {
	store := cache.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), cache.Key(flTopic), papersWithDOIs("c", 1, 10), time.Hour))

	fp := newFakeProvider()
	svc := New(fp, store, time.Hour, nil)
	papers, err := svc.Search(context.Background(), flTopic, 10)
	require.NoError(t, err)
	assert.Len(t, papers, 10)
	assert.Equal(t, 0, fp.totalCalls())
}

func TestSearchWritesThroughPerStepKey(t *testing.T) {
	store := cache.NewMemoryStore()
	fp := newFakeProvider()
	fp.responses[flTopic] = papersWithDOIs("a", 1, 2)
	fp.responses["medical imaging"] = papersWithDOIs("m", 1, 2)

	svc := New(fp, store, time.Hour, nil)
	_, err := svc.Search(context.Background(), flTopic, 10)
	require.NoError(t, err)

	_, ok, err := store.Get(context.Background(), cache.Key(flTopic))
	require.NoError(t, err)
	assert.True(t, ok, "exact step cached under its own query")

	_, ok, _ = store.Get(context.Background(), cache.Key("medical imaging"))
	assert.True(t, ok, "broad step cached under its own query")

	_, ok, _ = store.Get(context.Background(), cache.Key("federated learning medical"))
	assert.False(t, ok, "empty responses are not cached")

	// A different topic sharing the broad sub-query hits the cache.
	_, err = svc.Search(context.Background(), "Deep Segmentation Models in Medical Imaging", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, fp.callCount("medical imaging"))
}

func TestSearchCacheErrorsDegradeToMiss(t *testing.T) {
	fp := newFakeProvider()
	fp.responses[flTopic] = papersWithDOIs("a", 1, 10)

	svc := New(fp, errStore{}, 0, nil)
	papers, err := svc.Search(context.Background(), flTopic, 10)
	require.NoError(t, err)
	assert.Len(t, papers, 10)
	assert.Equal(t, 1, fp.callCount(flTopic))
}

func TestSearchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fp := newFakeProvider()
	svc := New(fp, nil, 0, nil)
	_, err := svc.Search(ctx, flTopic, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, fp.totalCalls())
}

func TestSearchSingleFlightUnderConcurrentRuns(t *testing.T) {
	fp := newFakeProvider()
	fp.delay = 20 * time.Millisecond
	for _, step := range Steps(flTopic) {
		fp.responses[step.Query] = papersWithDOIs(step.Name, 1, 2)
	}

	svc := New(fp, cache.NewMemoryStore(), time.Hour, nil)

	const runs = 8
	var wg sync.WaitGroup
	results := make([][]types.RetrievedPaper, runs)
	errs := make([]error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Search(context.Background(), flTopic, 10)
		}(i)
	}
	wg.Wait()

	for i := 0; i < runs; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, results[i], 8)
	}
	for _, step := range Steps(flTopic) {
		assert.Equal(t, 1, fp.callCount(step.Query), "upstream calls for %q", step.Query)
	}
}

func TestSearchDefaultLimit(t *testing.T) {
	fp := newFakeProvider()
	fp.responses[flTopic] = papersWithDOIs("a", 1, 15)

	svc := New(fp, nil, 0, nil)
	papers, err := svc.Search(context.Background(), flTopic, 0)
	require.NoError(t, err)
	assert.Len(t, papers, DefaultLimit)
}

func TestSearchConcurrentRunsLeaveProviderResultsIntact(t *testing.T) {
	exact := types.RetrievedPaper{ID: "x-1", Title: "Shared", ExternalIDs: map[string]string{types.ExternalDOI: "10.1/shared"}}
	richer := types.RetrievedPaper{ID: "x-2", Title: "Shared", ExternalIDs: map[string]string{
		types.ExternalDOI:   "10.1/shared",
		types.ExternalArXiv: "2301.00001",
	}}
	fp := newFakeProvider()
	fp.responses[flTopic] = []types.RetrievedPaper{exact}
	fp.responses["federated learning medical imaging"] = []types.RetrievedPaper{richer}

	// No store: every run merges the provider's own slices.
	svc := New(fp, nil, 0, nil)

	const runs = 8
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			papers, err := svc.Search(context.Background(), flTopic, 10)
			assert.NoError(t, err)
			if assert.Len(t, papers, 1) {
				assert.Equal(t, "2301.00001", papers[0].ExternalIDs[types.ExternalArXiv])
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, map[string]string{types.ExternalDOI: "10.1/shared"}, fp.responses[flTopic][0].ExternalIDs)
}

// gatedProvider blocks lookups of one query until release is closed and
// records the context error its call observed.
type gatedProvider struct {
	query   string
	papers  []types.RetrievedPaper
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu       sync.Mutex
	ctxErr   error
	returned bool
}

func (g *gatedProvider) Name() string { return "gated" }

func (g *gatedProvider) Search(ctx context.Context, query string, _ int) ([]types.RetrievedPaper, error) {
	if query != g.query {
		return nil, nil
	}
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.returned {
		g.ctxErr, g.returned = ctx.Err(), true
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return g.papers, nil
}

func TestSearchCancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	gp := &gatedProvider{
		query:   flTopic,
		papers:  papersWithDOIs("a", 1, 1),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := New(gp, cache.NewMemoryStore(), time.Hour, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	doneA := make(chan error, 1)
	go func() {
		_, err := svc.Search(ctxA, flTopic, 10)
		doneA <- err
	}()
	<-gp.started
	cancelA()
	require.ErrorIs(t, <-doneA, context.Canceled)

	type result struct {
		papers []types.RetrievedPaper
		err    error
	}
	doneB := make(chan result, 1)
	go func() {
		papers, err := svc.Search(context.Background(), flTopic, 10)
		doneB <- result{papers, err}
	}()
	close(gp.release)

	b := <-doneB
	require.NoError(t, b.err)
	require.Len(t, b.papers, 1)
	assert.Equal(t, "a-1", b.papers[0].ID)

	gp.mu.Lock()
	defer gp.mu.Unlock()
	assert.NoError(t, gp.ctxErr, "the shared lookup must not inherit the first caller's cancellation")
}
