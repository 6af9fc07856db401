// Package square is the transport adapter for the remote catalog service. It
// issues retrieve and upsert calls over the JSON REST API, maps remote error
// codes onto a small sentinel taxonomy, normalizes the varying upsert
// response shapes, and generates idempotency keys.
package square

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonGoding/squaresync/internal/catalog"
)

// Base URLs per environment.
const (
	EnvProduction = "production"
	EnvSandbox    = "sandbox"

	productionBaseURL = "https://connect.squareup.com"
	sandboxBaseURL    = "https://connect.squareupsandbox.com"
)

const defaultTimeout = 10 * time.Second

// BaseURL returns the API base URL for the given environment name. Anything
// other than "production" selects the sandbox.
func BaseURL(environment string) string {
	if environment == EnvProduction {
		return productionBaseURL
	}
	return sandboxBaseURL
}

// IdempotencyKey returns a fresh idempotency key for one upsert attempt:
// the prefix identifies the logical operation, the uuid makes each attempt
// unique so a retried create after an ambiguous failure cannot collide.
func IdempotencyKey(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// Client talks to the remote catalog API. Create one with [NewClient];
// the zero value is not usable.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Intended for tests and
// for callers that need custom transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTimeout sets the per-call timeout. A timeout surfaces as a transport
// error, never as a partial result.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = d }
}

// NewClient creates a Client for the given base URL and access token.
func NewClient(baseURL, token string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      &http.Client{Timeout: defaultTimeout},
		log:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Retrieve fetches the current remote state of a catalog object. Returns
// [ErrNotFound] (wrapped) when the id is unknown.
func (c *Client) Retrieve(ctx context.Context, objectID string) (*catalog.Object, error) {
	var payload map[string]any
	endpoint := c.baseURL + "/v2/catalog/object/" + url.PathEscape(objectID)

	err := retry(ctx, defaultMaxAttempts, func() error {
		return c.do(ctx, http.MethodGet, endpoint, nil, &payload)
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve %s: %w", objectID, err)
	}

	// Retrieve responses key the object as "object"; some proxies use
	// "catalog_object". Either is accepted.
	for _, key := range []string{"object", "catalog_object"} {
		if raw, ok := payload[key]; ok {
			if obj := decodeObject(raw); obj != nil {
				return obj, nil
			}
		}
	}
	return nil, fmt.Errorf("retrieve %s: %w", objectID, ErrMalformed)
}

// Upsert creates or updates a catalog object. The object's Version must be
// nil on create and must equal the last fetched remote version on update.
// Safe to retry with the same idempotency key for the same logical operation.
func (c *Client) Upsert(ctx context.Context, idempotencyKey string, obj *catalog.Object) (*UpsertResult, error) {
	if err := obj.Validate(); err != nil {
		return nil, fmt.Errorf("upsert: %w", err)
	}

	body := map[string]any{
		"idempotency_key": idempotencyKey,
		"object":          obj,
	}

	var payload map[string]any
	err := retry(ctx, defaultMaxAttempts, func() error {
		return c.do(ctx, http.MethodPost, c.baseURL+"/v2/catalog/object", body, &payload)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", obj.ID, err)
	}

	returned, mappings := Normalize(payload)
	return &UpsertResult{Object: returned, IDMappings: mappings}, nil
}

// do performs one HTTP round trip, decoding a success body into out and
// mapping error bodies to [*APIError].
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return c.apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", ErrMalformed)
		}
	}
	return nil
}

// apiError decodes the remote error body, taking the first error entry.
func (c *Client) apiError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var errBody struct {
		Errors []struct {
			Code     string `json:"code"`
			Detail   string `json:"detail"`
			Category string `json:"category"`
		} `json:"errors"`
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && len(errBody.Errors) > 0 {
		apiErr.Code = errBody.Errors[0].Code
		apiErr.Detail = errBody.Errors[0].Detail
	}

	// 404s without a structured body still mean the object is gone.
	if apiErr.Code == "" && resp.StatusCode == http.StatusNotFound {
		apiErr.Code = codeNotFound
	}
	if apiErr.Code == "" && resp.StatusCode == http.StatusUnauthorized {
		apiErr.Detail = "unauthorized — check the access token"
	}

	c.log.Debug("catalog API error", "status", apiErr.Status, "code", apiErr.Code, "detail", apiErr.Detail)
	return apiErr
}
