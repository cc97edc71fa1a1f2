package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"cleaning-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

func newTestServer(t *testing.T, tokenCalls *int32, routes map[string]http.HandlerFunc) *Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	})
	for path, h := range routes {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			h(w, r)
		})
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient(utils.PayPalConfig{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
	}, zap.NewNop())
}

func TestCreateOrder(t *testing.T) {
	var tokenCalls int32
	var got map[string]any

	client := newTestServer(t, &tokenCalls, map[string]http.HandlerFunc{
		"/v2/checkout/orders": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"ORDER-1","status":"CREATED","links":[
				{"href":"https://api.example/self","rel":"self"},
				{"href":"https://paypal.example/approve?token=ORDER-1","rel":"approve"}]}`))
		},
	})

	for i := 0; i < 2; i++ {
		order, err := client.CreateOrder(context.Background(), OrderRequest{
			ReferenceID: "booking-1",
			Amount:      15,
			Currency:    "USD",
			ReturnURL:   "http://localhost/return",
			CancelURL:   "http://localhost/cancel",
		})
		require.NoError(t, err)
		assert.Equal(t, "ORDER-1", order.ID)
		assert.Equal(t, "https://paypal.example/approve?token=ORDER-1", order.ApprovalURL)
		assert.NotEmpty(t, order.Raw)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
	assert.Equal(t, "CAPTURE", got["intent"])
	unit := got["purchase_units"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"currency_code": "USD", "value": "15.00"}, unit["amount"])
}

func TestCaptureOrder(t *testing.T) {
	var tokenCalls int32
	client := newTestServer(t, &tokenCalls, map[string]http.HandlerFunc{
		"/v2/checkout/orders/ORDER-1/capture": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			w.Write([]byte(`{"id":"ORDER-1","status":"COMPLETED","purchase_units":[
				{"payments":{"captures":[{"id":"CAP-9","status":"COMPLETED"}]}}]}`))
		},
	})

	capture, err := client.CaptureOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, "CAP-9", capture.CaptureID)
	assert.Equal(t, "COMPLETED", capture.Status)
}

func TestCaptureOrder_ProviderError(t *testing.T) {
	var tokenCalls int32
	client := newTestServer(t, &tokenCalls, map[string]http.HandlerFunc{
		"/v2/checkout/orders/ORDER-2/capture": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY","details":[{"issue":"ORDER_NOT_APPROVED"}]}`))
		},
	})

	_, err := client.CaptureOrder(context.Background(), "ORDER-2")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "ORDER_NOT_APPROVED")
}

func TestRefundCapture(t *testing.T) {
	var tokenCalls int32
	client := newTestServer(t, &tokenCalls, map[string]http.HandlerFunc{
		"/v2/payments/captures/CAP-9/refund": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]any{"currency_code": "USD", "value": "12.35"}, body["amount"])
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"REF-1","status":"COMPLETED"}`))
		},
	})

	refund, err := client.RefundCapture(context.Background(), "CAP-9", 12.346, "USD")
	require.NoError(t, err)
	assert.Equal(t, "REF-1", refund.ID)
}

func TestTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	client := NewClient(utils.PayPalConfig{BaseURL: srv.URL, ClientID: "x", ClientSecret: "y"}, zap.NewNop())
	_, err := client.CreateOrder(context.Background(), OrderRequest{Amount: 1, Currency: "USD"})

	var retrieveErr *oauth2.RetrieveError
	require.ErrorAs(t, err, &retrieveErr)
	require.NotNil(t, retrieveErr.Response)
	assert.Equal(t, http.StatusUnauthorized, retrieveErr.Response.StatusCode)
}

func TestTokenRequestUsesClientCredentials(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "client", user)
			assert.Equal(t, "secret", pass)
			require.NoError(t, r.ParseForm())
			form = r.PostForm
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"tok-2","token_type":"Bearer","expires_in":3600}`))
		default:
			assert.Equal(t, "Bearer tok-2", r.Header.Get("Authorization"))
			w.Write([]byte(`{"id":"REF-2","status":"COMPLETED"}`))
		}
	}))
	defer srv.Close()

	client := NewClient(utils.PayPalConfig{BaseURL: srv.URL + "/", ClientID: "client", ClientSecret: "secret"}, zap.NewNop())
	_, err := client.RefundCapture(context.Background(), "CAP-1", 5, "USD")
	require.NoError(t, err)

	assert.Equal(t, "client_credentials", form.Get("grant_type"))
}
