package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/tabledesk/orderboard/internal/adapter/logger"
	"github.com/tabledesk/orderboard/internal/domain"
	"github.com/tabledesk/orderboard/internal/interfaces"
)

// Snapshot is one complete, immutable view of the tenant's active order
// set. The engine replaces the whole snapshot on every successful fetch;
// readers always hold either the previous or the next complete set.
type Snapshot struct {
	Orders    []domain.Order
	Total     int
	FetchedAt time.Time
	Version   uint64
}

// OrderByID finds an order in the snapshot, or nil.
func (s *Snapshot) OrderByID(orderID string) *domain.Order {
	for i := range s.Orders {
		if s.Orders[i].ID == orderID {
			return &s.Orders[i]
		}
	}
	return nil
}

// State is the engine's bookkeeping as shown to views.
type State struct {
	Paused        bool
	InFlight      bool
	Stale         bool
	LastRefreshed time.Time
	LastError     error
}

// Engine owns the authoritative local copy of one tenant's order set.
// It refetches on a fixed interval, accepts manual refreshes, and never
// lets two fetches overlap. A failed fetch keeps the previous snapshot:
// stale-but-present beats empty.
type Engine struct {
	gateway  interfaces.OrderGateway
	logger   logger.Logger
	params   interfaces.ListOrdersParams
	interval time.Duration

	mu            stdsync.Mutex
	snapshot      *Snapshot
	version       uint64
	paused        bool
	inFlight      bool
	stale         bool
	lastRefreshed time.Time
	lastErr       error
	subscribers   []func(*Snapshot)

	refreshCh chan struct{}
}

func NewEngine(gateway interfaces.OrderGateway, lgr logger.Logger, params interfaces.ListOrdersParams, interval time.Duration, autoRefresh bool) *Engine {
	return &Engine{
		gateway:   gateway,
		logger:    lgr,
		params:    params,
		interval:  interval,
		paused:    !autoRefresh,
		refreshCh: make(chan struct{}, 1),
	}
}

// Run drives the fetch schedule until ctx is cancelled. Cancelling stops
// scheduling only; a fetch already in flight is not aborted and its result
// is still committed when it resolves.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	if !e.IsPaused() {
		e.tryFetch(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if !e.IsPaused() {
				e.tryFetch(ctx)
			}

		case <-e.refreshCh:
			e.tryFetch(ctx)
		}
	}
}

// Refresh requests an immediate fetch outside the timer. It works while
// paused and collapses with any refresh already requested; the no-overlap
// rule still applies once the request is picked up.
func (e *Engine) Refresh() {
	select {
	case e.refreshCh <- struct{}{}:
	default:
	}
}

// Invalidate marks the snapshot stale and forces a fetch at the next
// opportunity. Called by the mutation pipeline after a confirmed change.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.stale = true
	e.mu.Unlock()
	e.Refresh()
}

func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

func (e *Engine) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
	e.Refresh()
}

func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Snapshot returns the current complete snapshot, or false before the
// first successful fetch.
func (e *Engine) Snapshot() (*Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot, e.snapshot != nil
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Paused:        e.paused,
		InFlight:      e.inFlight,
		Stale:         e.stale,
		LastRefreshed: e.lastRefreshed,
		LastError:     e.lastErr,
	}
}

// Subscribe registers a callback invoked after every snapshot commit.
// Callbacks run outside the engine lock.
func (e *Engine) Subscribe(fn func(*Snapshot)) {
	e.mu.Lock()
	e.subscribers = append(e.subscribers, fn)
	e.mu.Unlock()
}

func (e *Engine) tryFetch(ctx context.Context) {
	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return
	}
	e.inFlight = true
	e.mu.Unlock()

	// The fetch deliberately outlives scheduling: pausing or tearing the
	// engine down must not discard a response already on the wire.
	go e.fetch(context.WithoutCancel(ctx))
}

func (e *Engine) fetch(ctx context.Context) {
	page, err := e.gateway.ListOrders(ctx, e.params)

	e.mu.Lock()
	e.inFlight = false

	if err != nil {
		e.lastErr = err
		e.mu.Unlock()
		e.logger.Error("fetch_failed", "Order fetch failed, keeping previous snapshot", "", map[string]interface{}{
			"tenant_id": e.params.TenantID,
		}, err)
		return
	}

	e.version++
	snap := &Snapshot{
		Orders:    page.Orders,
		Total:     page.Total,
		FetchedAt: time.Now(),
		Version:   e.version,
	}
	e.snapshot = snap
	e.stale = false
	e.lastErr = nil
	e.lastRefreshed = snap.FetchedAt

	subs := make([]func(*Snapshot), len(e.subscribers))
	copy(subs, e.subscribers)
	e.mu.Unlock()

	e.logger.Debug("snapshot_committed", "Order snapshot replaced", "", map[string]interface{}{
		"orders":  len(snap.Orders),
		"version": snap.Version,
	})

	for _, fn := range subs {
		fn(snap)
	}
}
