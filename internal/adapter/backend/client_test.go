package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabledesk/orderboard/internal/adapter/logger"
	"github.com/tabledesk/orderboard/internal/config"
	"github.com/tabledesk/orderboard/internal/domain"
	"github.com/tabledesk/orderboard/internal/interfaces"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.BackendConfig{
		BaseURL:        server.URL,
		TenantID:       "rest-001",
		TimeoutSeconds: 2,
	}, logger.NewWithWriter("test", "error", io.Discard))
}

const orderJSON = `{
	"id": "o1", "order_number": 17, "tenant_id": "rest-001", "table_name": "T4",
	"subtotal": 20, "tax": 2, "discount": 1, "delivery_charge": 0, "total": 21,
	"status": "PENDING", "notes": "",
	"items": [{"id": "i1", "menu_item_id": "m1", "name": "Margherita", "quantity": 2, "unit_price": 10, "subtotal": 20}]
}`

func listParams() interfaces.ListOrdersParams {
	return interfaces.ListOrdersParams{TenantID: "rest-001", Limit: 50, Offset: 0, IncludeItems: true}
}

func TestListOrdersQueryParameters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "rest-001", r.URL.Query().Get("tenant_id"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		assert.Equal(t, "true", r.URL.Query().Get("include_items"))
		fmt.Fprintf(w, "[%s]", orderJSON)
	})

	page, err := client.ListOrders(context.Background(), listParams())
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)

	order := page.Orders[0]
	assert.Equal(t, "o1", order.ID)
	assert.Equal(t, 17, order.Number)
	assert.Equal(t, domain.StatusPending, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Margherita", order.Items[0].Name)
	assert.Equal(t, 2, order.Items[0].Quantity)
}

func TestListOrdersEnvelopeShapes(t *testing.T) {
	shapes := map[string]string{
		"bare_array":   fmt.Sprintf(`[%s]`, orderJSON),
		"data_array":   fmt.Sprintf(`{"data": [%s], "total": 9, "limit": 50, "offset": 0}`, orderJSON),
		"nested_data":  fmt.Sprintf(`{"data": {"data": [%s]}}`, orderJSON),
		"orders_field": fmt.Sprintf(`{"orders": [%s]}`, orderJSON),
	}

	for name, body := range shapes {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			})

			page, err := client.ListOrders(context.Background(), listParams())
			require.NoError(t, err)
			require.Len(t, page.Orders, 1)
			assert.Equal(t, "o1", page.Orders[0].ID)
		})
	}
}

func TestListOrdersEnvelopeTotal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data": [%s], "total": 42}`, orderJSON)
	})

	page, err := client.ListOrders(context.Background(), listParams())
	require.NoError(t, err)
	assert.Equal(t, 42, page.Total)
}

func TestListOrdersMalformedPayload(t *testing.T) {
	bodies := []string{
		`{"result": [1, 2, 3]}`,
		`"just a string"`,
		`{"data": {"nothing": true}}`,
	}

	for _, body := range bodies {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		})

		_, err := client.ListOrders(context.Background(), listParams())
		require.Error(t, err, "body %q must be rejected", body)

		var malformed *MalformedPayloadError
		assert.ErrorAs(t, err, &malformed, "body %q must be a structural error", body)
	}
}

func TestListOrdersEmptyListIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": []}`)
	})

	page, err := client.ListOrders(context.Background(), listParams())
	require.NoError(t, err)
	assert.Empty(t, page.Orders)
}

func TestUpdateStatusBody(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	err := client.UpdateStatus(context.Background(), "o2", domain.WireServed)
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/o2/status", gotPath)
	assert.Equal(t, map[string]string{"status": "SERVED"}, gotBody)
}

func TestCancelOrderBody(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	err := client.CancelOrder(context.Background(), "o3", "No reason provided")
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/o3/cancel", gotPath)
	assert.Equal(t, map[string]string{"reason": "No reason provided"}, gotBody)
}

func TestClientErrorIsFinal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error": "illegal transition COMPLETED -> PREPARING"}`)
	})

	err := client.UpdateStatus(context.Background(), "o1", domain.WirePreparing)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "illegal transition COMPLETED -> PREPARING", apiErr.Message)
	assert.False(t, IsRetryable(err))
}

func TestServerErrorIsRetryable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListOrders(context.Background(), listParams())
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestTransportErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening anymore

	client := NewClient(config.BackendConfig{
		BaseURL:        server.URL,
		TenantID:       "rest-001",
		TimeoutSeconds: 1,
	}, logger.NewWithWriter("test", "error", io.Discard))

	_, err := client.ListOrders(context.Background(), listParams())
	require.Error(t, err)

	var transport *TransportError
	assert.ErrorAs(t, err, &transport)
	assert.True(t, IsRetryable(err))
}

func TestGetOrderResolvesBareAndWrapped(t *testing.T) {
	for _, body := range []string{orderJSON, fmt.Sprintf(`{"data": %s}`, orderJSON)} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/orders/o1", r.URL.Path)
			fmt.Fprint(w, body)
		})

		order, err := client.GetOrder(context.Background(), "o1")
		require.NoError(t, err)
		assert.Equal(t, "o1", order.ID)
	}
}
