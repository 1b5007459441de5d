package allpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"merchant-portal/config"
	"merchant-portal/internal/core/ports"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.GatewayClient against the AllPay REST API.
// The gateway's request/response format is a fixed external protocol.
type Client struct {
	baseURL    string
	login      string
	apiKey     string
	notifyURL  string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates an AllPay API client.
func NewClient(cfg config.AllPayConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		login:      cfg.Login,
		apiKey:     cfg.APIKey,
		notifyURL:  cfg.NotifyURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// NewClientWithHTTP creates a client with a custom HTTP client (useful for testing).
func NewClientWithHTTP(cfg config.AllPayConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	c := NewClient(cfg, log)
	c.httpClient = httpClient
	return c
}

// paymentRequest is the AllPay getpayment request body.
type paymentRequest struct {
	Login     string        `json:"login"`
	OrderID   string        `json:"order_id"`
	Items     []paymentItem `json:"items"`
	Currency  string        `json:"currency"`
	NotifyURL string        `json:"notifications_url,omitempty"`
	Sign      string        `json:"sign"`
}

type paymentItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

// paymentResponse is the AllPay getpayment response body.
type paymentResponse struct {
	PaymentURL    string `json:"payment_url"`
	TransactionID string `json:"transaction_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}

// CreatePaymentLink requests a hosted payment page from AllPay and
// returns its URL together with the gateway transaction id.
func (c *Client) CreatePaymentLink(ctx context.Context, req ports.GatewayPaymentRequest) (*ports.GatewayPaymentResponse, error) {
	name := req.Description
	if name == "" {
		name = "Payment " + req.OrderID
	}

	body := paymentRequest{
		Login:     c.login,
		OrderID:   req.OrderID,
		Items:     []paymentItem{{Name: name, Price: req.Amount, Qty: 1}},
		Currency:  req.Currency,
		NotifyURL: c.notifyURL,
	}
	body.Sign = Sign(map[string]string{
		"login":    body.Login,
		"order_id": body.OrderID,
		"currency": body.Currency,
		"amount":   strconv.FormatFloat(req.Amount, 'f', 2, 64),
	}, c.apiKey)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("allpay request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read allpay response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Msg("allpay returned non-200")
		return nil, fmt.Errorf("allpay status %d", resp.StatusCode)
	}

	var result paymentResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode allpay response: %w", err)
	}
	if result.ErrorCode != 0 {
		return nil, fmt.Errorf("allpay error %d: %s", result.ErrorCode, result.ErrorMessage)
	}
	if result.PaymentURL == "" || result.TransactionID == "" {
		return nil, fmt.Errorf("allpay response missing payment_url or transaction_id")
	}

	return &ports.GatewayPaymentResponse{
		PaymentURL:    result.PaymentURL,
		TransactionID: result.TransactionID,
	}, nil
}

// VerifyWebhookSignature checks the signature field of an incoming
// AllPay status notification.
func (c *Client) VerifyWebhookSignature(fields map[string]string, signature string) bool {
	return VerifySignature(fields, c.apiKey, signature)
}
