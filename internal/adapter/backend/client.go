package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tabledesk/orderboard/internal/adapter/logger"
	"github.com/tabledesk/orderboard/internal/config"
	"github.com/tabledesk/orderboard/internal/domain"
	"github.com/tabledesk/orderboard/internal/interfaces"
)

// Client talks to the upstream restaurant backend's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(cfg config.BackendConfig, lgr logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		logger: lgr,
	}
}

func (c *Client) ListOrders(ctx context.Context, params interfaces.ListOrdersParams) (*interfaces.OrderPage, error) {
	q := url.Values{}
	q.Set("tenant_id", params.TenantID)
	q.Set("limit", strconv.Itoa(params.Limit))
	q.Set("offset", strconv.Itoa(params.Offset))
	if params.Status != "" {
		q.Set("status", params.Status)
	}
	if params.IncludeItems {
		q.Set("include_items", "true")
	}

	body, err := c.do(ctx, http.MethodGet, "/api/orders?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	dtos, env, err := resolveOrderList(body)
	if err != nil {
		c.logger.Error("payload_unrecognized", "Order list payload matched no known shape", "", nil, err)
		return nil, err
	}

	page := &interfaces.OrderPage{
		Orders: make([]domain.Order, len(dtos)),
		Total:  len(dtos),
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	for i, dto := range dtos {
		page.Orders[i] = dto.toDomain()
	}
	if env.Total != nil {
		page.Total = *env.Total
	}
	if env.Limit != nil {
		page.Limit = *env.Limit
	}
	if env.Offset != nil {
		page.Offset = *env.Offset
	}

	return page, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}

	dto, err := resolveOrder(body)
	if err != nil {
		return nil, err
	}

	order := dto.toDomain()
	return &order, nil
}

func (c *Client) UpdateStatus(ctx context.Context, orderID string, status domain.WireStatus) error {
	payload := map[string]string{"status": string(status)}
	_, err := c.do(ctx, http.MethodPatch, "/api/orders/"+url.PathEscape(orderID)+"/status", payload)
	return err
}

func (c *Client) CancelOrder(ctx context.Context, orderID string, reason string) error {
	payload := map[string]string{"reason": reason}
	_, err := c.do(ctx, http.MethodPatch, "/api/orders/"+url.PathEscape(orderID)+"/cancel", payload)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}

	return body, nil
}

// errorMessage pulls a human-readable message out of an error body,
// falling back to the raw text when it is not the usual {error: ...} shape.
func errorMessage(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "no error detail provided"
	}
	return msg
}
