package backend

import (
	"encoding/json"
	"time"

	"github.com/tabledesk/orderboard/internal/domain"
)

type orderDTO struct {
	ID                 string         `json:"id"`
	OrderNumber        int            `json:"order_number"`
	TenantID           string         `json:"tenant_id"`
	TableName          string         `json:"table_name"`
	Items              []orderItemDTO `json:"items"`
	Subtotal           float64        `json:"subtotal"`
	Tax                float64        `json:"tax"`
	Discount           float64        `json:"discount"`
	DeliveryCharge     float64        `json:"delivery_charge"`
	Total              float64        `json:"total"`
	Status             string         `json:"status"`
	Notes              string         `json:"notes"`
	CancellationReason string         `json:"cancellation_reason"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

type orderItemDTO struct {
	ID           string  `json:"id"`
	MenuItemID   string  `json:"menu_item_id"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	Subtotal     float64 `json:"subtotal"`
	Instructions string  `json:"special_instructions"`
}

func (d orderDTO) toDomain() domain.Order {
	items := make([]domain.OrderItem, len(d.Items))
	for i, it := range d.Items {
		items[i] = domain.OrderItem{
			ID:           it.ID,
			MenuItemID:   it.MenuItemID,
			Name:         it.Name,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			Subtotal:     it.Subtotal,
			Instructions: it.Instructions,
		}
	}

	return domain.Order{
		ID:                 d.ID,
		Number:             d.OrderNumber,
		TenantID:           d.TenantID,
		TableName:          d.TableName,
		Items:              items,
		Subtotal:           d.Subtotal,
		Tax:                d.Tax,
		Discount:           d.Discount,
		DeliveryCharge:     d.DeliveryCharge,
		Total:              d.Total,
		Status:             domain.ToDisplay(domain.WireStatus(d.Status)),
		Notes:              d.Notes,
		CancellationReason: d.CancellationReason,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

type listEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Orders json.RawMessage `json:"orders"`
	Total  *int            `json:"total"`
	Limit  *int            `json:"limit"`
	Offset *int            `json:"offset"`
}

type nestedData struct {
	Data json.RawMessage `json:"data"`
}

// resolveOrderList extracts the order array from the backend's response.
// The backend is inconsistent about where it places the payload, so the
// known layouts are tried in turn: a bare array, an array under "data", an
// array under "data.data", and an array under "orders". If none matches
// the body is malformed; it is never coerced to an empty list.
func resolveOrderList(body []byte) ([]orderDTO, *listEnvelope, error) {
	var direct []orderDTO
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, &listEnvelope{}, nil
	}

	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, &MalformedPayloadError{Detail: "response is neither an array nor an object"}
	}

	if len(env.Data) > 0 {
		var fromData []orderDTO
		if err := json.Unmarshal(env.Data, &fromData); err == nil {
			return fromData, &env, nil
		}

		var nested nestedData
		if err := json.Unmarshal(env.Data, &nested); err == nil && len(nested.Data) > 0 {
			var fromNested []orderDTO
			if err := json.Unmarshal(nested.Data, &fromNested); err == nil {
				return fromNested, &env, nil
			}
		}
	}

	if len(env.Orders) > 0 {
		var fromOrders []orderDTO
		if err := json.Unmarshal(env.Orders, &fromOrders); err == nil {
			return fromOrders, &env, nil
		}
	}

	return nil, nil, &MalformedPayloadError{
		Detail: "no order array found under the body, .data, .data.data, or .orders",
	}
}

// resolveOrder extracts a single order that may arrive bare or under "data".
func resolveOrder(body []byte) (*orderDTO, error) {
	var probe struct {
		ID   string          `json:"id"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &MalformedPayloadError{Detail: "order response is not an object"}
	}

	raw := body
	if probe.ID == "" && len(probe.Data) > 0 {
		raw = probe.Data
	}

	var dto orderDTO
	if err := json.Unmarshal(raw, &dto); err != nil || dto.ID == "" {
		return nil, &MalformedPayloadError{Detail: "order object missing or unreadable"}
	}
	return &dto, nil
}
