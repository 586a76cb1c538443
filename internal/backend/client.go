package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/lineitem"
	"github.com/manigandan-posana/vebops/internal/obs"
	"github.com/manigandan-posana/vebops/internal/tenant"
)

var (
	// ErrNotFound is wrapped by errors for 404 responses.
	ErrNotFound = errors.New("backend: not found")
	// ErrUnavailable is wrapped by errors for transport failures and 5xx responses.
	ErrUnavailable = errors.New("backend: unavailable")
	// ErrRejected is wrapped by errors for other 4xx responses.
	ErrRejected = errors.New("backend: request rejected")
)

const maxErrorBody = 4 << 10

// Doer executes an HTTP request. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client talks to the external REST backend that owns persistence.
type Client struct {
	BaseURL      string
	HTTP         Doer
	ServiceToken string
	TenantHeader string
	Metrics      *obs.DomainMetrics
}

// CompanyProfile is the tenant's registered company.
type CompanyProfile struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	GSTIN   string `json:"gstin,omitempty"`
	Address string `json:"address,omitempty"`
}

// Kit is a catalog bundle of items.
type Kit struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Items []lineitem.KitRow `json:"items"`
}

// Created is the backend's acknowledgement of a new document.
type Created struct {
	ID     string `json:"id"`
	Number string `json:"number,omitempty"`
}

// CompanyProfile fetches the current tenant's company profile.
func (c *Client) CompanyProfile(ctx context.Context) (CompanyProfile, error) {
	var out CompanyProfile
	err := c.do(ctx, "company_profile", http.MethodGet, "/company/profile", nil, "", &out)
	return out, err
}

// Kit fetches a catalog kit with its items.
func (c *Client) Kit(ctx context.Context, id string) (Kit, error) {
	var out Kit
	err := c.do(ctx, "kit", http.MethodGet, "/kits/"+url.PathEscape(id), nil, "", &out)
	return out, err
}

// CreateService submits a service document.
func (c *Client) CreateService(ctx context.Context, payload any, idemKey string) (Created, error) {
	var out Created
	err := c.do(ctx, "create_service", http.MethodPost, "/services", payload, idemKey, &out)
	return out, err
}

// CreatePurchaseOrder submits a purchase order.
func (c *Client) CreatePurchaseOrder(ctx context.Context, payload any, idemKey string) (Created, error) {
	var out Created
	err := c.do(ctx, "create_purchase_order", http.MethodPost, "/purchase-orders", payload, idemKey, &out)
	return out, err
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/health", nil, "", nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, idemKey string, out any) (err error) {
	if c == nil || c.HTTP == nil || c.BaseURL == "" {
		return common.NewAppError("BACKEND_UNAVAILABLE", "backend not configured", http.StatusBadGateway, ErrUnavailable)
	}
	start := time.Now()
	defer func() { c.Metrics.ObserveBackend(op, time.Since(start), err) }()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode %s: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, reader)
	if err != nil {
		return fmt.Errorf("backend: build %s: %w", op, err)
	}
	c.decorate(ctx, req, idemKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return common.NewAppError("BACKEND_UNAVAILABLE", "backend unavailable", http.StatusBadGateway,
			fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(unwrapData(out)); err != nil {
		return common.NewAppError("BACKEND_UNAVAILABLE", "unexpected backend response", http.StatusBadGateway,
			fmt.Errorf("%w: decode %s: %v", ErrUnavailable, op, err))
	}
	return nil
}

func (c *Client) decorate(ctx context.Context, req *http.Request, idemKey string) {
	req.Header.Set("Accept", "application/json")
	token, ok := common.AccessToken(ctx)
	if !ok {
		token = c.ServiceToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id, ok := tenant.FromContext(ctx); ok {
		header := c.TenantHeader
		if header == "" {
			header = "X-Tenant-ID"
		}
		req.Header.Set(header, id)
	}
	if idemKey != "" {
		req.Header.Set(common.IdempotencyHeader, idemKey)
	}
	reqID := middleware.GetReqID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set(middleware.RequestIDHeader, reqID)
}

func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := backendMessage(raw)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &common.AppError{
			Code:       "NOT_FOUND",
			Message:    "resource not found",
			HTTPStatus: http.StatusNotFound,
			Err:        fmt.Errorf("%w: %s", ErrNotFound, op),
		}
	case resp.StatusCode >= http.StatusInternalServerError:
		return common.NewAppError("BACKEND_UNAVAILABLE", "backend unavailable", http.StatusBadGateway,
			fmt.Errorf("%w: %s: status %d", ErrUnavailable, op, resp.StatusCode))
	default:
		return &common.AppError{
			Code:       "BACKEND_REJECTED",
			Message:    "backend rejected the request",
			HTTPStatus: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s: status %d", ErrRejected, op, resp.StatusCode),
			Details:    map[string]any{"backend": message},
		}
	}
}

// backendMessage extracts a human readable message from a backend error body.
func backendMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		switch e := body.Error.(type) {
		case string:
			return e
		case map[string]any:
			if msg, ok := e["message"].(string); ok {
				return msg
			}
		}
	}
	return strings.TrimSpace(string(raw))
}

// unwrapData lets out decode either a bare object or a {"data": ...} envelope.
func unwrapData(out any) any {
	return &envelope{target: out}
}

type envelope struct {
	target any
}

func (e *envelope) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		if inner, ok := probe["data"]; ok && len(probe) <= 2 {
			return json.Unmarshal(inner, e.target)
		}
	}
	return json.Unmarshal(data, e.target)
}
