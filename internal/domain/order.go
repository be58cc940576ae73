package domain

import "time"

// Order is the client-side view of a backend order. Orders are created,
// priced, and stored by the backend; this service only reads them and
// submits status transitions. Total is always backend-computed as
// subtotal - discount + tax + delivery and is never derived here.
type Order struct {
	ID                 string
	Number             int
	TenantID           string
	TableName          string
	Items              []OrderItem
	Subtotal           float64
	Tax                float64
	Discount           float64
	DeliveryCharge     float64
	Total              float64
	Status             Status
	Notes              string
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// OrderItem is a line of an order. Name and UnitPrice are denormalized at
// order time so later menu edits do not alter history.
type OrderItem struct {
	ID           string
	MenuItemID   string
	Name         string
	Quantity     int
	UnitPrice    float64
	Subtotal     float64
	Instructions string
}
