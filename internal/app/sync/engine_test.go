package sync

import (
	"context"
	"errors"
	"io"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabledesk/orderboard/internal/adapter/logger"
	"github.com/tabledesk/orderboard/internal/domain"
	"github.com/tabledesk/orderboard/internal/interfaces"
)

type fakeGateway struct {
	mu          stdsync.Mutex
	calls       int
	inFlight    int
	maxInFlight int
	block       chan struct{}
	page        *interfaces.OrderPage
	err         error
}

func (f *fakeGateway) ListOrders(ctx context.Context, params interfaces.ListOrdersParams) (*interfaces.OrderPage, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	f.inFlight--
	page, err := f.page, f.err
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return page, nil
}

func (f *fakeGateway) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeGateway) UpdateStatus(ctx context.Context, orderID string, status domain.WireStatus) error {
	return nil
}

func (f *fakeGateway) CancelOrder(ctx context.Context, orderID string, reason string) error {
	return nil
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeGateway) setResult(page *interfaces.OrderPage, err error) {
	f.mu.Lock()
	f.page, f.err = page, err
	f.mu.Unlock()
}

func pageOf(orders ...domain.Order) *interfaces.OrderPage {
	return &interfaces.OrderPage{Orders: orders, Total: len(orders)}
}

func testEngine(gw *fakeGateway, interval time.Duration, autoRefresh bool) *Engine {
	return NewEngine(gw, logger.NewWithWriter("test", "error", io.Discard), interfaces.ListOrdersParams{
		TenantID: "rest-001",
		Limit:    100,
	}, interval, autoRefresh)
}

func TestEngineCommitsFirstSnapshot(t *testing.T) {
	gw := &fakeGateway{}
	gw.setResult(pageOf(domain.Order{ID: "o1", Status: domain.StatusPending}), nil)

	engine := testEngine(gw, 10*time.Millisecond, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	require.Eventually(t, func() bool {
		snap, ok := engine.Snapshot()
		return ok && len(snap.Orders) == 1
	}, time.Second, 5*time.Millisecond)

	snap, _ := engine.Snapshot()
	assert.Equal(t, "o1", snap.Orders[0].ID)
	assert.Equal(t, uint64(1), snap.Version)
	assert.False(t, engine.State().Stale)
}

func TestEngineFailedFetchKeepsPreviousSnapshot(t *testing.T) {
	gw := &fakeGateway{}
	gw.setResult(pageOf(domain.Order{ID: "o1", Status: domain.StatusPending}), nil)

	engine := testEngine(gw, 10*time.Millisecond, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	require.Eventually(t, func() bool {
		_, ok := engine.Snapshot()
		return ok
	}, time.Second, 5*time.Millisecond)

	gw.setResult(nil, errors.New("backend unreachable"))

	require.Eventually(t, func() bool {
		return engine.State().LastError != nil
	}, time.Second, 5*time.Millisecond)

	snap, ok := engine.Snapshot()
	require.True(t, ok, "stale-but-present beats empty")
	assert.Equal(t, "o1", snap.Orders[0].ID)
}

func TestEngineErrorClearsOnRecovery(t *testing.T) {
	gw := &fakeGateway{}
	gw.setResult(nil, errors.New("boom"))

	engine := testEngine(gw, 10*time.Millisecond, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	require.Eventually(t, func() bool {
		return engine.State().LastError != nil
	}, time.Second, 5*time.Millisecond)

	gw.setResult(pageOf(), nil)

	require.Eventually(t, func() bool {
		state := engine.State()
		_, ok := engine.Snapshot()
		return ok && state.LastError == nil
	}, time.Second, 5*time.Millisecond)
}

func TestEnginePausedIssuesNoFetches(t *testing.T) {
	gw := &fakeGateway{}
	gw.setResult(pageOf(), nil)

	engine := testEngine(gw, 10*time.Millisecond, false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	// Well past three tick periods.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, gw.callCount())
	assert.True(t, engine.State().Paused)
}

func TestEngineManualRefreshWorksWhilePaused(t *testing.T) {
	gw := &fakeGateway{}
	gw.setResult(pageOf(domain.Order{ID: "o1"}), nil)

	engine := testEngine(gw, 10*time.Millisecond, false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	engine.Refresh()

	require.Eventually(t, func() bool {
		_, ok := engine.Snapshot()
		return ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, gw.callCount())
}

func TestEngineSingleFlight(t *testing.T) {
	gw := &fakeGateway{block: make(chan struct{})}
	gw.setResult(pageOf(), nil)

	engine := testEngine(gw, 10*time.Millisecond, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	require.Eventually(t, func() bool {
		return gw.callCount() == 1
	}, time.Second, time.Millisecond)

	// Overlapping triggers while the first fetch is outstanding: ticks
	// keep firing and two manual refreshes arrive.
	engine.Refresh()
	engine.Refresh()
	time.Sleep(50 * time.Millisecond)

	close(gw.block)

	require.Eventually(t, func() bool {
		_, ok := engine.Snapshot()
		return ok
	}, time.Second, 5*time.Millisecond)

	gw.mu.Lock()
	maxInFlight := gw.maxInFlight
	gw.mu.Unlock()
	assert.Equal(t, 1, maxInFlight, "fetches must never overlap")
}

func TestEnginePauseDoesNotDiscardInFlightResult(t *testing.T) {
	gw := &fakeGateway{block: make(chan struct{})}
	gw.setResult(pageOf(domain.Order{ID: "o9"}), nil)

	engine := testEngine(gw, 10*time.Millisecond, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	require.Eventually(t, func() bool {
		return gw.callCount() >= 1
	}, time.Second, time.Millisecond)

	engine.Pause()
	close(gw.block)

	// The fetch that was already in flight still commits.
	require.Eventually(t, func() bool {
		snap, ok := engine.Snapshot()
		return ok && snap.Orders[0].ID == "o9"
	}, time.Second, 5*time.Millisecond)
}

func TestEngineInvalidateMarksStaleAndRefetches(t *testing.T) {
	gw := &fakeGateway{}
	gw.setResult(pageOf(domain.Order{ID: "o1", Status: domain.StatusPending}), nil)

	engine := testEngine(gw, time.Hour, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	require.Eventually(t, func() bool {
		_, ok := engine.Snapshot()
		return ok
	}, time.Second, 5*time.Millisecond)

	gw.setResult(pageOf(domain.Order{ID: "o1", Status: domain.StatusInPreparation}), nil)
	engine.Invalidate()

	require.Eventually(t, func() bool {
		snap, ok := engine.Snapshot()
		return ok && snap.Orders[0].Status == domain.StatusInPreparation
	}, time.Second, 5*time.Millisecond)
	assert.False(t, engine.State().Stale)
}

func TestEngineSubscribersSeeEveryCommit(t *testing.T) {
	gw := &fakeGateway{}
	gw.setResult(pageOf(), nil)

	engine := testEngine(gw, time.Hour, true)

	var mu stdsync.Mutex
	var versions []uint64
	engine.Subscribe(func(snap *Snapshot) {
		mu.Lock()
		versions = append(versions, snap.Version)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(versions) == 1
	}, time.Second, 5*time.Millisecond)

	engine.Refresh()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(versions) == 2 && versions[1] == 2
	}, time.Second, 5*time.Millisecond)
}

func TestSnapshotOrderByID(t *testing.T) {
	snap := &Snapshot{Orders: []domain.Order{{ID: "a"}, {ID: "b"}}}
	require.NotNil(t, snap.OrderByID("b"))
	assert.Equal(t, "b", snap.OrderByID("b").ID)
	assert.Nil(t, snap.OrderByID("zzz"))
}
