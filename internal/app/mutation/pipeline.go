package mutation

import (
	"context"
	"time"

	"github.com/tabledesk/orderboard/internal/adapter/logger"
	"github.com/tabledesk/orderboard/internal/app/sync"
	"github.com/tabledesk/orderboard/internal/domain"
	"github.com/tabledesk/orderboard/internal/interfaces"
)

// FallbackCancelReason is submitted when the user confirms a cancellation
// without giving a reason.
const FallbackCancelReason = "No reason provided"

// Pipeline submits exactly one transition for exactly one order. The
// backend decides legality; on success the engine's snapshot is
// invalidated so the next fetch re-establishes the authoritative view.
// There is no optimistic local mutation: a failed submission leaves every
// order exactly as the last snapshot showed it.
type Pipeline struct {
	gateway   interfaces.OrderGateway
	engine    *sync.Engine
	publisher interfaces.NotificationPublisher
	logger    logger.Logger
}

// NewPipeline wires the pipeline. publisher may be nil when notification
// fan-out is disabled.
func NewPipeline(gateway interfaces.OrderGateway, engine *sync.Engine, publisher interfaces.NotificationPublisher, lgr logger.Logger) *Pipeline {
	return &Pipeline{
		gateway:   gateway,
		engine:    engine,
		publisher: publisher,
		logger:    lgr,
	}
}

// SubmitTransition asks the backend to move one order to target. A
// rejected transition (such as reopening a completed order) comes back as
// an error and changes nothing locally.
func (p *Pipeline) SubmitTransition(ctx context.Context, orderID string, target domain.Status, by domain.Role) error {
	before := p.currentStatus(orderID)

	if err := p.gateway.UpdateStatus(ctx, orderID, domain.ToWire(target)); err != nil {
		p.logger.Error("mutation_rejected", "Status transition failed", orderID, map[string]interface{}{
			"order_id": orderID,
			"target":   string(target),
			"role":     string(by),
		}, err)
		return err
	}

	p.logger.Info("status_submitted", "Status transition confirmed by backend", orderID, map[string]interface{}{
		"order_id": orderID,
		"target":   string(target),
		"role":     string(by),
	})

	p.engine.Invalidate()
	p.notify(ctx, orderID, before, target, by, "")
	return nil
}

// SubmitCancellation cancels one order. An empty reason is replaced with
// the fallback text; the confirmation gate has already made the caller
// acknowledge the omission by this point.
func (p *Pipeline) SubmitCancellation(ctx context.Context, orderID string, reason string, by domain.Role) error {
	if reason == "" {
		reason = FallbackCancelReason
	}

	before := p.currentStatus(orderID)

	if err := p.gateway.CancelOrder(ctx, orderID, reason); err != nil {
		p.logger.Error("cancellation_rejected", "Cancellation failed", orderID, map[string]interface{}{
			"order_id": orderID,
			"role":     string(by),
		}, err)
		return err
	}

	p.logger.Info("cancellation_submitted", "Cancellation confirmed by backend", orderID, map[string]interface{}{
		"order_id": orderID,
		"reason":   reason,
		"role":     string(by),
	})

	p.engine.Invalidate()
	p.notify(ctx, orderID, before, domain.StatusCancelled, by, reason)
	return nil
}

// currentStatus reads the pre-mutation status out of the last snapshot,
// purely for the notification payload.
func (p *Pipeline) currentStatus(orderID string) domain.Status {
	snap, ok := p.engine.Snapshot()
	if !ok {
		return ""
	}
	if order := snap.OrderByID(orderID); order != nil {
		return order.Status
	}
	return ""
}

// notify publishes the confirmed change. Fan-out is best effort and never
// blocks or fails the mutation.
func (p *Pipeline) notify(ctx context.Context, orderID string, before, after domain.Status, by domain.Role, reason string) {
	if p.publisher == nil {
		return
	}

	msg := interfaces.StatusChangedMessage{
		OrderID:   orderID,
		OldStatus: before,
		NewStatus: after,
		ChangedBy: by,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	if snap, ok := p.engine.Snapshot(); ok {
		if order := snap.OrderByID(orderID); order != nil {
			msg.OrderNumber = order.Number
			msg.TenantID = order.TenantID
		}
	}

	if err := p.publisher.PublishStatusChanged(ctx, msg); err != nil {
		p.logger.Error("notify_publish_failed", "Failed to publish status change", orderID, nil, err)
	}
}
