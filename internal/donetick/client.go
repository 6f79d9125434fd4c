// Package donetick implements the typed client for the Donetick API: rate
// limiting, session management, retry with backoff, a short-TTL read cache,
// and normalization of the upstream's inconsistent field casing.
package donetick

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/TheFitzZZ/donetick-mcp-server/internal/config"
	"github.com/TheFitzZZ/donetick-mcp-server/internal/logging"
)

// bodySummaryLimit caps how much of an upstream error body makes it into a
// user-visible error message. Full bodies only appear in debug logs,
// redacted.
const bodySummaryLimit = 200

// Client is the typed Donetick API client. Construct with New, share
// freely across goroutines, and Close on shutdown.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	session    *session
	cache      *choreCache
	retry      *retryPolicy
	log        *slog.Logger

	reqTimeout time.Duration

	wg     sync.WaitGroup
	closed atomic.Bool
}

// ListFilters narrows a ListChores call. The zero value lists everything.
type ListFilters struct {
	ActiveOnly bool
	AssignedTo int64 // 0 = any user
}

// New builds a Client from validated configuration.
func New(cfg *config.Config, log *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxConnsPerHost:       100,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   50,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		ExpectContinueTimeout: time.Second,
	}
	if cfg.TLSSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Transport: transport},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		cache:      newChoreCache(cfg.CacheTTL),
		retry:      newRetryPolicy(cfg.MaxRetries, cfg.RetryBaseDelay, cfg.RetryMaxDelay, log),
		log:        log,
		reqTimeout: cfg.ConnectTimeout + cfg.ReadTimeout + cfg.WriteTimeout,
	}

	if cfg.HasStaticToken() {
		c.session = newStaticSession(cfg.APIToken)
	} else {
		username, password := cfg.Username, cfg.Password
		c.session = newLoginSession(func(ctx context.Context) (string, time.Time, error) {
			return c.loginUpstream(ctx, username, password)
		})
	}
	return c, nil
}

// Close drains in-flight requests and releases pooled connections. Every
// operation started after Close fails with ErrClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.wg.Wait()
	c.httpClient.CloseIdleConnections()
	c.cache.Clear()
	c.log.Info("donetick client closed")
	return nil
}

// ListChores fetches all chores matching the filters and warms the cache
// with every chore observed.
func (c *Client) ListChores(ctx context.Context, filters ListFilters) ([]Chore, error) {
	body, err := c.call(ctx, "list_chores", http.MethodGet, "/api/v1/chores/", nil)
	if err != nil {
		return nil, err
	}
	chores, err := decodeChores(body)
	if err != nil {
		return nil, err
	}
	c.cache.PutAll(chores)

	if !filters.ActiveOnly && filters.AssignedTo == 0 {
		return chores, nil
	}
	filtered := make([]Chore, 0, len(chores))
	for _, chore := range chores {
		if filters.ActiveOnly && !chore.IsActive {
			continue
		}
		if filters.AssignedTo != 0 && chore.AssignedTo != filters.AssignedTo {
			continue
		}
		filtered = append(filtered, chore)
	}
	return filtered, nil
}

// GetChore returns one chore by id: cache-first, then one full list (which
// repopulates the cache). An id absent from the full list is a
// NotFoundError.
func (c *Client) GetChore(ctx context.Context, id int64) (*Chore, error) {
	if id <= 0 {
		return nil, &ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	if chore, ok := c.cache.Get(id); ok {
		return &chore, nil
	}
	chores, err := c.ListChores(ctx, ListFilters{})
	if err != nil {
		return nil, err
	}
	for i := range chores {
		if chores[i].ID == id {
			return &chores[i], nil
		}
	}
	return nil, &NotFoundError{ID: id}
}

// CreateChore validates the spec, creates the chore upstream and caches the
// returned snapshot. All fields are transmitted; which of them the upstream
// persists varies by deployment mode and is not checked here.
func (c *Client) CreateChore(ctx context.Context, spec *ChoreCreate) (*Chore, error) {
	if spec == nil {
		return nil, &ValidationError{Field: "chore", Message: "must not be nil"}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	payload, err := encodeCreate(spec)
	if err != nil {
		return nil, fmt.Errorf("encode create payload: %w", err)
	}
	body, err := c.call(ctx, "create_chore", http.MethodPost, "/api/v1/chores/", payload)
	if err != nil {
		return nil, err
	}
	chore, err := decodeChore(body)
	if err != nil {
		return nil, err
	}
	c.cache.Put(*chore)
	return chore, nil
}

// UpdateChore applies a partial update and refreshes the cache from the
// response, falling back to invalidation when the body has no chore.
func (c *Client) UpdateChore(ctx context.Context, id int64, spec *ChoreUpdate) (*Chore, error) {
	if id <= 0 {
		return nil, &ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	if spec == nil {
		return nil, &ValidationError{Field: "update", Message: "must not be nil"}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	payload, err := encodeUpdate(spec)
	if err != nil {
		return nil, fmt.Errorf("encode update payload: %w", err)
	}
	path := fmt.Sprintf("/api/v1/chores/%d", id)
	body, err := c.call(ctx, "update_chore", http.MethodPut, path, payload)
	if err != nil {
		return nil, c.mapNotFound(id, err)
	}
	c.cache.Invalidate(id)
	chore, err := decodeChore(body)
	if err != nil {
		// The write succeeded; the cache entry is already gone.
		return nil, err
	}
	c.cache.Put(*chore)
	return chore, nil
}

// CompleteChore marks a chore done. completedBy is optional (0 = the
// authenticated user).
func (c *Client) CompleteChore(ctx context.Context, id, completedBy int64) (*Chore, error) {
	if id <= 0 {
		return nil, &ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	path := fmt.Sprintf("/api/v1/chores/%d/do", id)
	if completedBy > 0 {
		path += "?completedBy=" + strconv.FormatInt(completedBy, 10)
	}
	body, err := c.call(ctx, "complete_chore", http.MethodPost, path, nil)
	if err != nil {
		return nil, c.mapNotFound(id, err)
	}
	c.cache.Invalidate(id)
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	chore, err := decodeChore(body)
	if err != nil {
		return nil, err
	}
	c.cache.Put(*chore)
	return chore, nil
}

// DeleteChore removes a chore and drops its cache entry.
func (c *Client) DeleteChore(ctx context.Context, id int64) error {
	if id <= 0 {
		return &ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	path := fmt.Sprintf("/api/v1/chores/%d", id)
	if _, err := c.call(ctx, "delete_chore", http.MethodDelete, path, nil); err != nil {
		return c.mapNotFound(id, err)
	}
	c.cache.Invalidate(id)
	return nil
}

// GetCircleMembers lists the members of the credential's circle.
func (c *Client) GetCircleMembers(ctx context.Context) ([]CircleMember, error) {
	body, err := c.call(ctx, "get_circle_members", http.MethodGet, "/api/v1/circles/members/", nil)
	if err != nil {
		return nil, err
	}
	return decodeMembers(body)
}

// ClearCache empties the read cache. Exposed as a manual invalidation hook.
func (c *Client) ClearCache() {
	c.cache.Clear()
}

// mapNotFound turns an upstream 404 for a specific chore into the typed
// NotFoundError and drops any stale cache entry for that id.
func (c *Client) mapNotFound(id int64, err error) error {
	var cre *ClientRequestError
	if errors.As(err, &cre) && cre.StatusCode == http.StatusNotFound {
		c.cache.Invalidate(id)
		return &NotFoundError{ID: id}
	}
	return err
}

// call runs one logical operation through the full pipeline. Each retry
// attempt is a brand-new gated request: limiter token, session check, HTTP
// round trip.
func (c *Client) call(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.wg.Add(1)
	defer c.wg.Done()
	// Re-check after registering so Close either waits for us or we bail.
	if c.closed.Load() {
		return nil, ErrClosed
	}

	var body []byte
	err := c.retry.Do(ctx, op, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		body, err = c.roundTrip(ctx, op, method, path, payload)
		return err
	})
	return body, err
}

// roundTrip performs a single authenticated request. A 401 in password mode
// triggers one re-login and one replay; a second 401 is an authentication
// failure.
func (c *Client) roundTrip(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, status, err := c.send(ctx, op, method, path, payload, token)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized && !c.session.isStatic() {
		c.session.Invalidate(token)
		token, err = c.session.Token(ctx)
		if err != nil {
			return nil, err
		}
		body, status, err = c.send(ctx, op, method, path, payload, token)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, &AuthenticationError{Reason: "credentials rejected by upstream"}
		}
	} else if status == http.StatusUnauthorized {
		return nil, &AuthenticationError{Reason: "API token rejected by upstream"}
	}

	if status < 200 || status >= 300 {
		return nil, c.statusToError(status, body)
	}
	return body, nil
}

func (c *Client) send(ctx context.Context, op, method, path string, payload []byte, token string) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session.isStatic() {
		req.Header.Set("secretkey", c.session.staticToken())
	} else {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			"op", op, "method", method, "path", path,
			"request_id", requestID,
			"error", logging.Redact(err.Error()),
		)
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}

	c.log.Debug("upstream response",
		"op", op, "method", method, "path", path,
		"request_id", requestID,
		"status", resp.StatusCode,
		"elapsed", time.Since(start).String(),
		"bytes", len(body),
	)

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return body, resp.StatusCode, &statusError{
			code:       resp.StatusCode,
			summary:    summarize(body),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return body, resp.StatusCode, nil
}

// statusToError maps a final non-2xx status to the public taxonomy. 429 and
// 5xx never reach here; they travel as statusError through the retry loop.
func (c *Client) statusToError(status int, body []byte) error {
	c.log.Debug("upstream error body", "status", status, "body", logging.Redact(string(body)))
	return &ClientRequestError{StatusCode: status, Summary: summarize(body)}
}

// loginUpstream performs the single login attempt the session manager is
// allowed. It bypasses the retry policy on purpose: repetition, if any, is
// governed by the caller-level retry of the original operation.
func (c *Client) loginUpstream(ctx context.Context, username, password string) (string, time.Time, error) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", time.Time{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String()+"/api/v1/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", time.Time{}, &AuthenticationError{Reason: "building login request failed", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, &AuthenticationError{Reason: "login host unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, &AuthenticationError{Reason: "reading login response failed", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Debug("login rejected", "status", resp.StatusCode, "body", logging.Redact(string(body)))
		return "", time.Time{}, &AuthenticationError{
			Reason: fmt.Sprintf("login rejected (status %d)", resp.StatusCode),
		}
	}

	var loginResp struct {
		Token  string `json:"token"`
		Expire string `json:"expire"`
	}
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return "", time.Time{}, &AuthenticationError{Reason: "malformed login response", Err: err}
	}
	if loginResp.Token == "" {
		return "", time.Time{}, &AuthenticationError{Reason: "login response missing token"}
	}

	expiry := tokenExpiry(loginResp.Token, loginResp.Expire)
	c.log.Info("authenticated with upstream", "expires", expiry.Format(time.RFC3339))
	return loginResp.Token, expiry, nil
}

// summarize extracts a short, sanitized description from an upstream error
// body for user-visible messages.
func summarize(body []byte) string {
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return truncate(logging.Redact(apiErr.Error), bodySummaryLimit)
	}
	return truncate(logging.Redact(strings.TrimSpace(string(body))), bodySummaryLimit)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func parseRetryAfter(v string) int {
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}
