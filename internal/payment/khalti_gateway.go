package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pasal-be/internal/logger"

	"go.uber.org/zap"
)

type khaltiGateway struct {
	secretKey  string
	baseURL    string
	returnURL  string
	websiteURL string
	httpClient *http.Client
}

// NewKhaltiGateway builds the Khalti e-payment adapter. baseURL is
// configurable so tests can point it at a local server.
func NewKhaltiGateway(secretKey, baseURL, frontendURL string) Gateway {
	if secretKey == "" {
		logger.L().Warn("Khalti secret key is empty")
	}

	return &khaltiGateway{
		secretKey:  secretKey,
		baseURL:    baseURL,
		returnURL:  frontendURL + "/checkout/payment-status",
		websiteURL: frontendURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type khaltiInitiateRequest struct {
	ReturnURL         string `json:"return_url"`
	WebsiteURL        string `json:"website_url"`
	Amount            int64  `json:"amount"`
	PurchaseOrderID   string `json:"purchase_order_id"`
	PurchaseOrderName string `json:"purchase_order_name"`
}

type khaltiInitiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
	ExpiresAt  string `json:"expires_at"`
}

func (k *khaltiGateway) Initiate(ctx context.Context, orderRef string, amount int64) (*Initiation, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("order_ref", orderRef),
		zap.Int64("amount", amount),
	)

	body := khaltiInitiateRequest{
		ReturnURL:         k.returnURL,
		WebsiteURL:        k.websiteURL,
		Amount:            amount,
		PurchaseOrderID:   orderRef,
		PurchaseOrderName: "Order_" + orderRef,
	}

	bodyBytes, err := k.post(ctx, log, "/epayment/initiate/", body)
	if err != nil {
		return nil, err
	}

	var res khaltiInitiateResponse
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		log.Error("Failed decoding Khalti initiate response", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	log.Info("Khalti payment initiated",
		zap.String("pidx", res.Pidx),
	)

	return &Initiation{
		CorrelationID: res.Pidx,
		RedirectURL:   res.PaymentURL,
	}, nil
}

type khaltiLookupResponse struct {
	Pidx   string `json:"pidx"`
	Status string `json:"status"`
}

func (k *khaltiGateway) Lookup(ctx context.Context, correlationID string) (Status, error) {
	log := logger.FromCtx(ctx).With(zap.String("pidx", correlationID))

	bodyBytes, err := k.post(ctx, log, "/epayment/lookup/", map[string]string{
		"pidx": correlationID,
	})
	if err != nil {
		return StatusUnknown, err
	}

	var res khaltiLookupResponse
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		log.Error("Failed decoding Khalti lookup response", zap.Error(err))
		return StatusUnknown, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	status := mapKhaltiStatus(res.Status)

	log.Info("Khalti payment status fetched",
		zap.String("gateway_status", res.Status),
		zap.String("status", string(status)),
	)

	return status, nil
}

// post performs one JSON request against the gateway and classifies
// transport and HTTP failures into the adapter error taxonomy.
func (k *khaltiGateway) post(ctx context.Context, log *zap.Logger, path string, body any) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		log.Error("Failed creating Khalti request", zap.Error(err))
		return nil, err
	}

	req.Header.Set("Authorization", "Key "+k.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		log.Error("Khalti request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read Khalti response body", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		log.Error("Khalti returned server error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		log.Error("Khalti rejected request",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("%w: status %d", ErrGatewayRejected, resp.StatusCode)
	}

	return bodyBytes, nil
}

// mapKhaltiStatus folds the gateway's status vocabulary into the four
// outcomes the workflow distinguishes.
func mapKhaltiStatus(s string) Status {
	switch s {
	case "Completed":
		return StatusCompleted
	case "Pending", "Initiated":
		return StatusPending
	case "Expired", "Failed", "User canceled", "Refunded", "Partially Refunded":
		return StatusFailed
	default:
		return StatusUnknown
	}
}
