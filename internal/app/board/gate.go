package board

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/tabledesk/orderboard/internal/domain"
)

var (
	// ErrEmptyReason asks the caller for a secondary confirmation before a
	// cancellation without a reason is submitted.
	ErrEmptyReason = errors.New("cancellation reason is empty, confirm again to submit without one")

	ErrNoPendingConfirmation = errors.New("no pending confirmation for that token")
)

type GateState string

const (
	GateIdle                GateState = "idle"
	GatePendingConfirmation GateState = "pending_confirmation"
	GateSubmitted           GateState = "submitted"
)

// Intent is a destructive transition waiting for explicit confirmation.
type Intent struct {
	Token          string
	OrderID        string
	Role           domain.Role
	Target         domain.Status
	Reason         string
	RequiresReason bool

	// emptyReasonAcked is set once the caller has been warned that the
	// reason is empty; the next confirm goes through with the fallback.
	emptyReasonAcked bool
}

// Submitter is the downstream of a confirmed intent. Satisfied by
// mutation.Pipeline.
type Submitter interface {
	SubmitTransition(ctx context.Context, orderID string, target domain.Status, by domain.Role) error
	SubmitCancellation(ctx context.Context, orderID string, reason string, by domain.Role) error
}

// Gate is the two-phase wrapper around destructive transitions: request
// intent, then confirm explicitly. One gate serves one display session, so
// at most one confirmation is pending per session.
type Gate struct {
	submitter Submitter

	mu     sync.Mutex
	state  GateState
	intent *Intent
}

func NewGate(submitter Submitter) *Gate {
	return &Gate{
		submitter: submitter,
		state:     GateIdle,
	}
}

// Request opens a pending confirmation for the given action. A request
// issued while another is pending replaces it, the way opening a new
// dialog closes the previous one.
func (g *Gate) Request(orderID string, role domain.Role, action domain.Action, reason string) *Intent {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent := &Intent{
		Token:          uuid.NewString(),
		OrderID:        orderID,
		Role:           role,
		Target:         action.Target,
		Reason:         reason,
		RequiresReason: action.RequiresReason,
	}
	g.state = GatePendingConfirmation
	g.intent = intent

	copied := *intent
	return &copied
}

// UpdateReason replaces the collected reason text while the confirmation
// is still pending.
func (g *Gate) UpdateReason(token, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != GatePendingConfirmation || g.intent == nil || g.intent.Token != token {
		return ErrNoPendingConfirmation
	}
	g.intent.Reason = reason
	g.intent.emptyReasonAcked = false
	return nil
}

// Confirm fires the pending intent into the submitter. A cancellation
// whose reason is still empty is held back once with ErrEmptyReason; a
// second confirm submits it with the fallback text. The gate returns to
// idle after the submission resolves either way, so a backend rejection
// leaves nothing half-armed.
func (g *Gate) Confirm(ctx context.Context, token string) error {
	g.mu.Lock()

	if g.state != GatePendingConfirmation || g.intent == nil || g.intent.Token != token {
		g.mu.Unlock()
		return ErrNoPendingConfirmation
	}

	intent := g.intent
	if intent.RequiresReason && intent.Reason == "" && !intent.emptyReasonAcked {
		intent.emptyReasonAcked = true
		g.mu.Unlock()
		return ErrEmptyReason
	}

	g.state = GateSubmitted
	g.mu.Unlock()

	var err error
	if intent.Target == domain.StatusCancelled {
		err = g.submitter.SubmitCancellation(ctx, intent.OrderID, intent.Reason, intent.Role)
	} else {
		err = g.submitter.SubmitTransition(ctx, intent.OrderID, intent.Target, intent.Role)
	}

	g.mu.Lock()
	g.state = GateIdle
	g.intent = nil
	g.mu.Unlock()

	return err
}

// Dismiss cancels the confirmation itself (not the order) and discards
// the collected reason.
func (g *Gate) Dismiss(token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != GatePendingConfirmation || g.intent == nil || g.intent.Token != token {
		return ErrNoPendingConfirmation
	}
	g.state = GateIdle
	g.intent = nil
	return nil
}

// Pending returns the current state and a copy of any pending intent.
func (g *Gate) Pending() (GateState, *Intent) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.intent == nil {
		return g.state, nil
	}
	copied := *g.intent
	return g.state, &copied
}
