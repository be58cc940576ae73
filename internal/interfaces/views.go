package interfaces

import (
	"time"

	"github.com/tabledesk/orderboard/internal/domain"
)

// BoardView is the role-scoped projection of one snapshot, ready for a
// display client.
type BoardView struct {
	Role          domain.Role  `json:"role"`
	Version       uint64       `json:"version"`
	LastRefreshed time.Time    `json:"last_refreshed"`
	Stale         bool         `json:"stale"`
	Paused        bool         `json:"paused"`
	SyncError     string       `json:"sync_error,omitempty"`
	Retryable     bool         `json:"retryable,omitempty"`
	Columns       []ColumnView `json:"columns"`
}

type ColumnView struct {
	Key   string     `json:"key"`
	Cards []CardView `json:"cards"`
}

type CardView struct {
	OrderID            string      `json:"order_id"`
	Number             int         `json:"number"`
	TableName          string      `json:"table_name,omitempty"`
	Status             string      `json:"status"`
	StatusLabel        string      `json:"status_label"`
	StatusColor        string      `json:"status_color"`
	Subtotal           float64     `json:"subtotal"`
	Tax                float64     `json:"tax"`
	Discount           float64     `json:"discount"`
	DeliveryCharge     float64     `json:"delivery_charge"`
	Total              float64     `json:"total"`
	Notes              string      `json:"notes,omitempty"`
	CancellationReason string      `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
	Items              []ItemView  `json:"items"`
	NextAction         *ActionView `json:"next_action,omitempty"`
	CanCancel          bool        `json:"can_cancel"`
}

type ItemView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	Subtotal     float64 `json:"subtotal"`
	Instructions string  `json:"instructions,omitempty"`
	Prepared     bool    `json:"prepared"`
}

type ActionView struct {
	Target               string `json:"target"`
	Label                string `json:"label"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	RequiresReason       bool   `json:"requires_reason,omitempty"`
}
