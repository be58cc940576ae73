package interfaces

import (
	"context"

	"github.com/tabledesk/orderboard/internal/domain"
)

// OrderGateway is the upstream backend as seen by this service: periodic
// reads plus fire-and-forget transitions. The backend is the single source
// of truth; nothing here mutates local state.
type OrderGateway interface {
	ListOrders(ctx context.Context, params ListOrdersParams) (*OrderPage, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.WireStatus) error
	CancelOrder(ctx context.Context, orderID string, reason string) error
}

type ListOrdersParams struct {
	TenantID     string
	Limit        int
	Offset       int
	Status       string
	IncludeItems bool
}

// OrderPage is one fetched page of the active order set.
type OrderPage struct {
	Orders []domain.Order
	Total  int
	Limit  int
	Offset int
}
