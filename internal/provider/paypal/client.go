// Package paypal talks to the PayPal Orders v2 REST API.
package paypal

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
	"time"

	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Client calls PayPal with an http.Client that fetches, caches and refreshes
// the OAuth2 client-credentials token on its own.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

type OrderRequest struct {
	ReferenceID string
	Amount      float64
	Currency    string
	ReturnURL   string
	CancelURL   string
}

type Order struct {
	ID          string
	Status      string
	ApprovalURL string
	Raw         json.RawMessage
}

type Capture struct {
	OrderID   string
	CaptureID string
	Status    string
	Raw       json.RawMessage
}

type Refund struct {
	ID     string
	Status string
	Raw    json.RawMessage
}

// APIError is a non-2xx answer from PayPal.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal responded %d: %s", e.StatusCode, e.Body)
}

const requestTimeout = 15 * time.Second

func NewClient(cfg utils.PayPalConfig, log *zap.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	credentials := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     baseURL + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	// token requests go through the same timeout-bound client
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: requestTimeout})
	httpClient := credentials.Client(ctx)
	httpClient.Timeout = requestTimeout

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		log:        log.With(zap.String("provider", "paypal")),
	}
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(utils.RoundMoney(amount), 'f', 2, 64)
}

// CreateOrder creates a CAPTURE-intent order and returns the buyer approval link.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": req.ReferenceID,
			"amount":       money{CurrencyCode: req.Currency, Value: formatAmount(req.Amount)},
		}},
		"application_context": map[string]any{
			"return_url":  req.ReturnURL,
			"cancel_url":  req.CancelURL,
			"user_action": "PAY_NOW",
		},
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Links  []link `json:"links"`
	}
	raw, err := c.call(ctx, "create_order", http.MethodPost, "/v2/checkout/orders", payload, &resp)
	if err != nil {
		return nil, err
	}

	order := &Order{ID: resp.ID, Status: resp.Status, Raw: raw}
	for _, l := range resp.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			order.ApprovalURL = l.Href
			break
		}
	}
	if order.ID == "" || order.ApprovalURL == "" {
		return nil, fmt.Errorf("paypal order response missing id or approval link")
	}

	return order, nil
}

// CaptureOrder captures an approved order.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	var resp struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	raw, err := c.call(ctx, "capture_order", http.MethodPost, path, map[string]any{}, &resp)
	if err != nil {
		return nil, err
	}

	capture := &Capture{OrderID: resp.ID, Status: resp.Status, Raw: raw}
	for _, pu := range resp.PurchaseUnits {
		if len(pu.Payments.Captures) > 0 {
			capture.CaptureID = pu.Payments.Captures[0].ID
			break
		}
	}
	if resp.Status != "COMPLETED" {
		return nil, fmt.Errorf("paypal capture of order %s returned status %q", orderID, resp.Status)
	}

	return capture, nil
}

// RefundCapture refunds amount of a previous capture.
func (c *Client) RefundCapture(ctx context.Context, captureID string, amount float64, currency string) (*Refund, error) {
	payload := map[string]any{
		"amount": money{CurrencyCode: currency, Value: formatAmount(amount)},
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	path := "/v2/payments/captures/" + url.PathEscape(captureID) + "/refund"
	raw, err := c.call(ctx, "refund_capture", http.MethodPost, path, payload, &resp)
	if err != nil {
		return nil, err
	}

	return &Refund{ID: resp.ID, Status: resp.Status, Raw: raw}, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, payload, dest any) (json.RawMessage, error) {
	start := time.Now()
	raw, err := c.do(ctx, method, path, payload, dest)
	metrics.ObserveProviderCall(op, err, time.Since(start).Seconds())
	if err != nil {
		c.log.Error("PayPal call failed",
			zap.String("operation", op),
			zap.String("path", path),
			zap.Error(err))
		return nil, err
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, dest any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &APIError{StatusCode: res.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, dest); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return respBody, nil
}
