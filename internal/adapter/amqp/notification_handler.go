package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tabledesk/orderboard/internal/adapter/logger"
	"github.com/tabledesk/orderboard/internal/interfaces"
)

type NotificationHandler struct {
	logger logger.Logger
}

func NewNotificationHandler(lgr logger.Logger) *NotificationHandler {
	return &NotificationHandler{logger: lgr}
}

func (h *NotificationHandler) HandleStatusChange(ctx context.Context, body []byte) error {
	var msg interfaces.StatusChangedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse status change", "", nil, err)
		return err
	}

	h.logger.Info("status_change_received", fmt.Sprintf("Order #%d moved from '%s' to '%s'", msg.OrderNumber, msg.OldStatus, msg.NewStatus),
		msg.OrderID, map[string]interface{}{
			"order_id":   msg.OrderID,
			"old_status": msg.OldStatus,
			"new_status": msg.NewStatus,
			"changed_by": msg.ChangedBy,
			"reason":     msg.Reason,
		})

	return nil
}
