package board

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabledesk/orderboard/internal/domain"
)

type recordingSubmitter struct {
	transitions   []submittedTransition
	cancellations []submittedCancellation
	err           error
}

type submittedTransition struct {
	orderID string
	target  domain.Status
	role    domain.Role
}

type submittedCancellation struct {
	orderID string
	reason  string
	role    domain.Role
}

func (r *recordingSubmitter) SubmitTransition(ctx context.Context, orderID string, target domain.Status, by domain.Role) error {
	if r.err != nil {
		return r.err
	}
	r.transitions = append(r.transitions, submittedTransition{orderID, target, by})
	return nil
}

func (r *recordingSubmitter) SubmitCancellation(ctx context.Context, orderID string, reason string, by domain.Role) error {
	if r.err != nil {
		return r.err
	}
	r.cancellations = append(r.cancellations, submittedCancellation{orderID, reason, by})
	return nil
}

func cancelPending(t *testing.T) domain.Action {
	t.Helper()
	action, ok := domain.CancelAction(domain.StatusPending)
	require.True(t, ok)
	return action
}

func TestGateConfirmSubmitsTransition(t *testing.T) {
	sub := &recordingSubmitter{}
	gate := NewGate(sub)

	intent := gate.Request("o1", domain.RoleServer, domain.Action{
		Target:               domain.StatusServed,
		RequiresConfirmation: true,
	}, "")

	state, pending := gate.Pending()
	assert.Equal(t, GatePendingConfirmation, state)
	require.NotNil(t, pending)
	assert.Equal(t, intent.Token, pending.Token)

	require.NoError(t, gate.Confirm(context.Background(), intent.Token))
	require.Len(t, sub.transitions, 1)
	assert.Equal(t, domain.StatusServed, sub.transitions[0].target)
	assert.Equal(t, domain.RoleServer, sub.transitions[0].role)

	state, pending = gate.Pending()
	assert.Equal(t, GateIdle, state)
	assert.Nil(t, pending)
}

func TestGateCancellationRoutesToCancel(t *testing.T) {
	sub := &recordingSubmitter{}
	gate := NewGate(sub)

	intent := gate.Request("o1", domain.RoleServer, cancelPending(t), "wrong table")
	require.NoError(t, gate.Confirm(context.Background(), intent.Token))

	assert.Empty(t, sub.transitions)
	require.Len(t, sub.cancellations, 1)
	assert.Equal(t, "wrong table", sub.cancellations[0].reason)
}

func TestGateEmptyReasonNeedsSecondConfirm(t *testing.T) {
	sub := &recordingSubmitter{}
	gate := NewGate(sub)

	intent := gate.Request("o1", domain.RoleKitchen, cancelPending(t), "")

	// First confirm is held back; nothing submitted yet.
	err := gate.Confirm(context.Background(), intent.Token)
	require.ErrorIs(t, err, ErrEmptyReason)
	assert.Empty(t, sub.cancellations)

	state, _ := gate.Pending()
	assert.Equal(t, GatePendingConfirmation, state)

	// Second confirm goes through with the empty reason; the pipeline
	// supplies the fallback text downstream.
	require.NoError(t, gate.Confirm(context.Background(), intent.Token))
	require.Len(t, sub.cancellations, 1)
	assert.Equal(t, "", sub.cancellations[0].reason)
}

func TestGateReasonUpdateResetsAcknowledgement(t *testing.T) {
	sub := &recordingSubmitter{}
	gate := NewGate(sub)

	intent := gate.Request("o1", domain.RoleServer, cancelPending(t), "")
	require.ErrorIs(t, gate.Confirm(context.Background(), intent.Token), ErrEmptyReason)

	// Typing a reason and then clearing it re-arms the hold-back.
	require.NoError(t, gate.UpdateReason(intent.Token, "customer left"))
	require.NoError(t, gate.UpdateReason(intent.Token, ""))
	require.ErrorIs(t, gate.Confirm(context.Background(), intent.Token), ErrEmptyReason)

	require.NoError(t, gate.UpdateReason(intent.Token, "customer left"))
	require.NoError(t, gate.Confirm(context.Background(), intent.Token))
	require.Len(t, sub.cancellations, 1)
	assert.Equal(t, "customer left", sub.cancellations[0].reason)
}

func TestGateDismissDiscardsIntentAndReason(t *testing.T) {
	sub := &recordingSubmitter{}
	gate := NewGate(sub)

	intent := gate.Request("o1", domain.RoleServer, cancelPending(t), "typed but abandoned")
	require.NoError(t, gate.Dismiss(intent.Token))

	state, pending := gate.Pending()
	assert.Equal(t, GateIdle, state)
	assert.Nil(t, pending)
	assert.Empty(t, sub.cancellations)

	// The token is dead after dismissal.
	assert.ErrorIs(t, gate.Confirm(context.Background(), intent.Token), ErrNoPendingConfirmation)
}

func TestGateWrongToken(t *testing.T) {
	gate := NewGate(&recordingSubmitter{})
	gate.Request("o1", domain.RoleServer, cancelPending(t), "")

	assert.ErrorIs(t, gate.Confirm(context.Background(), "bogus"), ErrNoPendingConfirmation)
	assert.ErrorIs(t, gate.Dismiss("bogus"), ErrNoPendingConfirmation)
	assert.ErrorIs(t, gate.UpdateReason("bogus", "x"), ErrNoPendingConfirmation)
}

func TestGateNewRequestReplacesPending(t *testing.T) {
	sub := &recordingSubmitter{}
	gate := NewGate(sub)

	first := gate.Request("o1", domain.RoleServer, cancelPending(t), "first")
	second := gate.Request("o2", domain.RoleServer, domain.Action{
		Target:               domain.StatusCompleted,
		RequiresConfirmation: true,
	}, "")

	assert.ErrorIs(t, gate.Confirm(context.Background(), first.Token), ErrNoPendingConfirmation)
	require.NoError(t, gate.Confirm(context.Background(), second.Token))
	require.Len(t, sub.transitions, 1)
	assert.Equal(t, "o2", sub.transitions[0].orderID)
}

func TestGateBackendRejectionReturnsToIdle(t *testing.T) {
	sub := &recordingSubmitter{err: errors.New("backend said no")}
	gate := NewGate(sub)

	intent := gate.Request("o1", domain.RoleServer, domain.Action{
		Target:               domain.StatusCompleted,
		RequiresConfirmation: true,
	}, "")

	require.Error(t, gate.Confirm(context.Background(), intent.Token))

	// Nothing half-armed: the gate is idle and the token is spent.
	state, pending := gate.Pending()
	assert.Equal(t, GateIdle, state)
	assert.Nil(t, pending)
	assert.ErrorIs(t, gate.Confirm(context.Background(), intent.Token), ErrNoPendingConfirmation)
}
