package interfaces

import (
	"context"
	"time"

	"github.com/tabledesk/orderboard/internal/domain"
)

// StatusChangedMessage is published after the backend confirms a transition.
// It is informational fan-out only and never feeds back into order state.
type StatusChangedMessage struct {
	OrderID     string        `json:"order_id"`
	OrderNumber int           `json:"order_number"`
	TenantID    string        `json:"tenant_id"`
	OldStatus   domain.Status `json:"old_status"`
	NewStatus   domain.Status `json:"new_status"`
	ChangedBy   domain.Role   `json:"changed_by"`
	Reason      string        `json:"reason,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

type NotificationPublisher interface {
	PublishStatusChanged(ctx context.Context, msg StatusChangedMessage) error
}

type NotificationConsumer interface {
	ConsumeStatusChanges(ctx context.Context, handler StatusChangeHandler) error
}

type StatusChangeHandler func(ctx context.Context, body []byte) error
