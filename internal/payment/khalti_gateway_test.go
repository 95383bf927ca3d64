package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKhaltiGateway_Initiate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var gotAuth string
		var gotBody map[string]any

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/epayment/initiate/", r.URL.Path)
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"pidx":"pidx_1","payment_url":"https://pay.khalti.com/?pidx=pidx_1"}`))
		}))
		defer srv.Close()

		gw := NewKhaltiGateway("secret-key", srv.URL, "https://shop.example")

		initiation, err := gw.Initiate(ctx, "ORD-1", 1500)
		require.NoError(t, err)

		assert.Equal(t, "pidx_1", initiation.CorrelationID)
		assert.Equal(t, "https://pay.khalti.com/?pidx=pidx_1", initiation.RedirectURL)

		assert.Equal(t, "Key secret-key", gotAuth)
		assert.Equal(t, float64(1500), gotBody["amount"])
		assert.Equal(t, "ORD-1", gotBody["purchase_order_id"])
		assert.Equal(t, "Order_ORD-1", gotBody["purchase_order_name"])
		assert.Equal(t, "https://shop.example/checkout/payment-status", gotBody["return_url"])
		assert.Equal(t, "https://shop.example", gotBody["website_url"])
	})

	t.Run("RejectedOn4xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"detail":"Amount should be greater than Rs. 10"}`, http.StatusBadRequest)
		}))
		defer srv.Close()

		gw := NewKhaltiGateway("secret-key", srv.URL, "https://shop.example")

		_, err := gw.Initiate(ctx, "ORD-1", 5)
		assert.ErrorIs(t, err, ErrGatewayRejected)
	})

	t.Run("UnavailableOn5xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		}))
		defer srv.Close()

		gw := NewKhaltiGateway("secret-key", srv.URL, "https://shop.example")

		_, err := gw.Initiate(ctx, "ORD-1", 1500)
		assert.ErrorIs(t, err, ErrGatewayUnavailable)
	})

	t.Run("UnavailableOnNetworkError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // connection refused from here on

		gw := NewKhaltiGateway("secret-key", srv.URL, "https://shop.example")

		_, err := gw.Initiate(ctx, "ORD-1", 1500)
		assert.ErrorIs(t, err, ErrGatewayUnavailable)
	})
}

func TestKhaltiGateway_Lookup(t *testing.T) {
	ctx := context.Background()

	t.Run("SendsStoredPidx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/epayment/lookup/", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "pidx_1", body["pidx"])

			_, _ = w.Write([]byte(`{"pidx":"pidx_1","status":"Completed"}`))
		}))
		defer srv.Close()

		gw := NewKhaltiGateway("secret-key", srv.URL, "https://shop.example")

		status, err := gw.Lookup(ctx, "pidx_1")
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, status)
	})

	t.Run("StatusMapping", func(t *testing.T) {
		cases := []struct {
			gateway string
			want    Status
		}{
			{"Completed", StatusCompleted},
			{"Pending", StatusPending},
			{"Initiated", StatusPending},
			{"Expired", StatusFailed},
			{"User canceled", StatusFailed},
			{"Refunded", StatusFailed},
			{"SomethingNew", StatusUnknown},
		}

		for _, tc := range cases {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				resp, _ := json.Marshal(map[string]string{"pidx": "pidx_1", "status": tc.gateway})
				_, _ = w.Write(resp)
			}))

			gw := NewKhaltiGateway("secret-key", srv.URL, "https://shop.example")
			status, err := gw.Lookup(ctx, "pidx_1")
			srv.Close()

			require.NoError(t, err, tc.gateway)
			assert.Equal(t, tc.want, status, "gateway status %q", tc.gateway)
		}
	})

	t.Run("RejectedOnUnknownPidx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"detail":"Not found"}`, http.StatusNotFound)
		}))
		defer srv.Close()

		gw := NewKhaltiGateway("secret-key", srv.URL, "https://shop.example")

		_, err := gw.Lookup(ctx, "pidx_missing")
		assert.ErrorIs(t, err, ErrGatewayRejected)
	})
}
