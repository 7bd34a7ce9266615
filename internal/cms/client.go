// Package cms talks to the headless CMS that owns all print-shop data. The
// dashboard never persists jobs itself: it reads full collections from here,
// normalizes them into domain types, and writes mutations back.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/printshop-os/opsboard/internal/domain"
)

// Config holds CMS connection configuration
type Config struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	PageSize       int
	RequestGap     time.Duration
}

// Client is an HTTP client for the CMS REST API with bearer-token auth,
// request pacing, and exponential backoff on transient failures.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient creates a new CMS client
func NewClient(config *Config, logger *slog.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 3
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = time.Second
	}
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	if config.RequestGap <= 0 {
		// Upstream rate limit allows roughly two requests per second.
		config.RequestGap = 600 * time.Millisecond
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
		now:        time.Now,
	}
}

// Health performs a single reachability probe: one cheap collection read,
// healthy iff it answers 200. No retries; callers poll via WaitForHealthy.
func (c *Client) Health(ctx context.Context) error {
	q := url.Values{}
	q.Set("pagination[pageSize]", "1")

	status, _, err := c.request(ctx, http.MethodGet, "/api/orders", q, nil)
	if err != nil {
		return &Error{Op: "health check", Err: err}
	}
	if status != http.StatusOK {
		return &Error{Op: "health check", Status: status, Err: errors.New(http.StatusText(status))}
	}
	return nil
}

// WaitForHealthy polls Health every interval until the CMS answers, maxWait
// elapses, or ctx is cancelled.
func (c *Client) WaitForHealthy(ctx context.Context, maxWait, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	deadline := time.Now().Add(maxWait)

	for {
		if err := c.Health(ctx); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s", ErrUnhealthy, maxWait)
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ListJobs fetches every order from the CMS, paginating to exhaustion, and
// normalizes each record into a Job.
func (c *Client) ListJobs(ctx context.Context) ([]domain.Job, error) {
	entries, err := c.listAll(ctx, "list orders", "/api/orders")
	if err != nil {
		return nil, err
	}

	now := c.now()
	jobs := make([]domain.Job, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, NormalizeJob(entry, now))
	}
	return jobs, nil
}

// GetJob fetches a single order by id.
func (c *Client) GetJob(ctx context.Context, id string) (domain.Job, error) {
	op := "get order"
	body, err := c.do(ctx, op, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return domain.Job{}, err
	}
	entry, err := decodeOne(op, body)
	if err != nil {
		return domain.Job{}, err
	}
	return NormalizeJob(entry, c.now()), nil
}

// UpdateJobStatus writes a new workflow status for an order. Last write wins;
// the CMS keeps no per-field history.
func (c *Client) UpdateJobStatus(ctx context.Context, id string, status domain.Status) error {
	payload := map[string]any{"data": map[string]any{"status": string(status)}}
	_, err := c.do(ctx, "update order status", http.MethodPut, "/api/orders/"+url.PathEscape(id), nil, payload)
	return err
}

// ListInvoices fetches every invoice from the CMS.
func (c *Client) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	entries, err := c.listAll(ctx, "list invoices", "/api/invoices")
	if err != nil {
		return nil, err
	}

	now := c.now()
	invoices := make([]domain.Invoice, 0, len(entries))
	for _, entry := range entries {
		invoices = append(invoices, NormalizeInvoice(entry, now))
	}
	return invoices, nil
}

// MarkInvoicePaid records payment against an invoice.
func (c *Client) MarkInvoicePaid(ctx context.Context, id string) error {
	payload := map[string]any{"data": map[string]any{
		"status": string(domain.InvoicePaid),
		"paidAt": c.now().UTC().Format(time.RFC3339),
	}}
	_, err := c.do(ctx, "mark invoice paid", http.MethodPut, "/api/invoices/"+url.PathEscape(id), nil, payload)
	return err
}

// ListSOPs fetches every standard operating procedure document.
func (c *Client) ListSOPs(ctx context.Context) ([]domain.SOP, error) {
	entries, err := c.listAll(ctx, "list sops", "/api/sops")
	if err != nil {
		return nil, err
	}

	now := c.now()
	sops := make([]domain.SOP, 0, len(entries))
	for _, entry := range entries {
		sops = append(sops, NormalizeSOP(entry, now))
	}
	return sops, nil
}

// GetSOP fetches a single SOP by id.
func (c *Client) GetSOP(ctx context.Context, id string) (domain.SOP, error) {
	op := "get sop"
	body, err := c.do(ctx, op, http.MethodGet, "/api/sops/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return domain.SOP{}, err
	}
	entry, err := decodeOne(op, body)
	if err != nil {
		return domain.SOP{}, err
	}
	return NormalizeSOP(entry, c.now()), nil
}

// SaveSOP overwrites a SOP's content. Last write wins.
func (c *Client) SaveSOP(ctx context.Context, id, content string) error {
	payload := map[string]any{"data": map[string]any{"content": content}}
	_, err := c.do(ctx, "save sop", http.MethodPut, "/api/sops/"+url.PathEscape(id), nil, payload)
	return err
}

// ListProducts fetches the product catalog.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	entries, err := c.listAll(ctx, "list products", "/api/products")
	if err != nil {
		return nil, err
	}

	now := c.now()
	products := make([]domain.Product, 0, len(entries))
	for _, entry := range entries {
		products = append(products, NormalizeProduct(entry, now))
	}
	return products, nil
}

// listAll iterates a collection page by page until the reported pageCount is
// reached or a page comes back empty.
func (c *Client) listAll(ctx context.Context, op, path string) ([]map[string]any, error) {
	var all []map[string]any

	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("pagination[page]", strconv.Itoa(page))
		q.Set("pagination[pageSize]", strconv.Itoa(c.config.PageSize))

		body, err := c.do(ctx, op, http.MethodGet, path, q, nil)
		if err != nil {
			return nil, err
		}

		entries, pg, err := decodeList(op, body)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)

		if len(entries) == 0 || page >= pg.PageCount {
			return all, nil
		}
	}
}

// do executes a request with exponential backoff retry. 5xx, 429, and
// transport failures are retried up to RetryAttempts; 4xx responses are
// surfaced immediately. The final transient failure is wrapped as a
// domain.RetryableError so callers can classify it.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload any) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
	}

	var lastErr error
	var lastStatus int
	for attempt := 0; attempt < c.config.RetryAttempts; attempt++ {
		status, body, err := c.request(ctx, method, path, query, reqBody)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, &Error{Op: op, Err: ctx.Err()}
			}
			lastErr, lastStatus = err, 0
		case status >= 200 && status < 300:
			return body, nil
		case status == http.StatusNotFound:
			return nil, &Error{Op: op, Status: status, Err: ErrNotFound}
		case status == http.StatusTooManyRequests:
			lastErr, lastStatus = errors.New("rate limited"), status
		case status >= 400 && status < 500:
			return nil, &Error{Op: op, Status: status, Err: errors.New(errorMessage(body, status))}
		default:
			lastErr, lastStatus = errors.New(errorMessage(body, status)), status
		}

		if attempt < c.config.RetryAttempts-1 {
			backoffDelay := time.Duration(float64(c.config.RetryBaseDelay) * float64(uint(1)<<uint(attempt)))
			c.logger.Warn("CMS request failed, retrying...",
				slog.String("op", op),
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", c.config.RetryAttempts),
				slog.Duration("retry_after", backoffDelay),
				slog.Any("error", lastErr),
			)
			select {
			case <-time.After(backoffDelay):
			case <-ctx.Done():
				return nil, &Error{Op: op, Err: ctx.Err()}
			}
		}
	}

	c.logger.Error("CMS request failed after all retries",
		slog.String("op", op),
		slog.Int("attempts", c.config.RetryAttempts),
		slog.Any("error", lastErr),
	)
	return nil, domain.NewRetryableError(&Error{Op: op, Status: lastStatus, Err: lastErr})
}

// request performs one paced round trip and returns the status code and body.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body []byte) (int, []byte, error) {
	if err := c.pace(ctx); err != nil {
		return 0, nil, err
	}

	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// pace enforces the minimum gap between requests. The next slot is reserved
// under the lock before sleeping so concurrent callers space out too.
func (c *Client) pace(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	next := c.lastRequest.Add(c.config.RequestGap)
	if next.Before(now) {
		next = now
	}
	c.lastRequest = next
	c.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// errorMessage digs the message out of a CMS error body, falling back to the
// HTTP status text.
func errorMessage(body []byte, status int) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return http.StatusText(status)
}
