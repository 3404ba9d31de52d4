package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/billing-engine/internal/dispatch"
	"github.com/magabrotheeeer/billing-engine/internal/models"
)

func TestClient_Pay(t *testing.T) {
	t.Run("successful payment", func(t *testing.T) {
		var gotReq PayRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/payments", r.URL.Path)
			assert.Equal(t, "Bearer api-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

			json.NewEncoder(w).Encode(PayResponse{Success: true, CurrencyUsed: "base"})
		}))
		defer server.Close()

		client := NewClient(server.URL, "api-key", time.Second)
		res, err := client.Pay(context.Background(), dispatch.PaymentRequest{
			Payer:         "0xuser",
			Payee:         "0xmerchant",
			Amount:        1000,
			Rail:          models.CurrencyBase,
			AllowFallback: true,
		})

		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, models.CurrencyBase, res.CurrencyUsed)
		assert.Equal(t, "0xuser", gotReq.Payer)
		assert.Equal(t, int64(1000), gotReq.Amount)
		assert.Equal(t, "base", gotReq.Currency)
		assert.True(t, gotReq.AllowFallback)
	})

	t.Run("declined payment", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(PayResponse{Success: false})
		}))
		defer server.Close()

		client := NewClient(server.URL, "api-key", time.Second)
		res, err := client.Pay(context.Background(), dispatch.PaymentRequest{Amount: 1000})

		require.NoError(t, err)
		assert.False(t, res.Success)
	})

	t.Run("unexpected status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(server.URL, "api-key", time.Second)
		_, err := client.Pay(context.Background(), dispatch.PaymentRequest{Amount: 1000})

		assert.Error(t, err)
	})

	t.Run("unreachable gateway", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", "api-key", 100*time.Millisecond)
		_, err := client.Pay(context.Background(), dispatch.PaymentRequest{Amount: 1000})

		assert.Error(t, err)
	})
}
