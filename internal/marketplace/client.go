// Package marketplace is the HTTP client of the authoritative ticketing
// backend. The engine only ever issues intents and re-reads the records the
// backend returns; nothing here mutates state locally.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ticket-engine/internal/status"
	"ticket-engine/models"
	"ticket-engine/utils"
)

type ClientConfig struct {
	// BaseURL is the base url of the marketplace backend.
	BaseURL string `json:"baseUrl"`

	// APIToken authenticates this client with the backend.
	APIToken string `json:"apiToken"`

	// Timeout bounds every request. Zero means 10s.
	Timeout time.Duration `json:"timeout"`
}

type Client struct {
	baseURL  string
	apiToken string

	// hc is the http client.
	hc *http.Client

	// breaker sheds requests while the backend is flapping.
	breaker *utils.CircuitBreaker
}

func NewClient(cfg *ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		apiToken: cfg.APIToken,
		hc: &http.Client{
			Timeout: timeout,
		},
		breaker: utils.NewCircuitBreaker("marketplace"),
	}
}

// errorEnvelope is the backend's uniform error body.
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateOrder submits the order once and returns the transaction the backend
// created. The idempotency key lets the backend deduplicate an accidental
// double submit; the engine itself never retries without user action.
func (c *Client) CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.Transaction, error) {
	var tx models.Transaction
	headers := map[string]string{"X-Idempotency-Key": uuid.NewString()}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/orders", req, headers, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *Client) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/transactions/"+id, nil, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// UploadPaymentProof sends the proof file while the transaction is still in
// waiting_for_payment and returns the updated record.
func (c *Client) UploadPaymentProof(ctx context.Context, id, filename string, file io.Reader) (*models.Transaction, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("payment_proof", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy proof: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/transactions/"+id+"/payment-proof", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var tx models.Transaction
	if err := c.send(req, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *Client) CancelTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/transactions/"+id+"/cancel", nil, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// AcceptTransaction is organizer-only and valid while the transaction waits
// for confirmation.
func (c *Client) AcceptTransaction(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/transactions/"+id+"/accept", nil, nil, nil)
}

// RejectTransaction is organizer-only and valid while the transaction waits
// for confirmation.
func (c *Client) RejectTransaction(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/transactions/"+id+"/reject", nil, nil, nil)
}

func (c *Client) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/events/"+id, nil, nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// GetPointsBalance, GetActiveCoupons and GetEventVouchers are read-only
// snapshots. Staleness is tolerated; the backend re-validates at submission.

func (c *Client) GetPointsBalance(ctx context.Context) (*models.PointsBalance, error) {
	var points models.PointsBalance
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/rewards/points", nil, nil, &points); err != nil {
		return nil, err
	}
	points.FetchedAt = time.Now().UTC()
	return &points, nil
}

func (c *Client) GetActiveCoupons(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/rewards/coupons", nil, nil, &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}

func (c *Client) GetEventVouchers(ctx context.Context, eventID string) ([]models.Voucher, error) {
	var vouchers []models.Voucher
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/events/"+eventID+"/vouchers", nil, nil, &vouchers); err != nil {
		return nil, err
	}
	return vouchers, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, headers map[string]string, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	// only transport failures count against the breaker; HTTP error codes
	// come back as responses and are classified below
	result, err := c.breaker.Execute(req.Context(), func() (any, error) {
		return c.hc.Do(req)
	})
	if err != nil {
		return &status.TransientError{Err: err}
	}
	resp := result.(*http.Response)
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &status.TransientError{Err: fmt.Errorf("backend returned %d", resp.StatusCode)}
	}
	if resp.StatusCode == http.StatusConflict {
		var env errorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || env.Code == "" {
			env.Code = status.CodeInvalidState
		}
		return &status.ConflictError{Code: env.Code, Message: env.Message}
	}
	if resp.StatusCode >= 400 {
		var env errorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Message != "" {
			return fmt.Errorf("backend rejected request (%d): %s", resp.StatusCode, env.Message)
		}
		return fmt.Errorf("backend rejected request (%d)", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
