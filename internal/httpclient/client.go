// Package httpclient issues authenticated calls against the VidFriends API.
// A call rejected with a refresh-trigger status gets exactly one
// refresh-then-retry cycle.
package httpclient

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
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/vidfriends/vidclient/internal/logging"
	"github.com/vidfriends/vidclient/internal/middleware"
	"github.com/vidfriends/vidclient/internal/session"
)

// RefreshPath is the fixed token refresh endpoint.
const RefreshPath = "/auth/refresh-token"

const defaultUserAgent = "vidclient/1.0"

// ErrNoRefreshToken is recorded when a refresh is required but the session
// holds no refresh token.
var ErrNoRefreshToken = errors.New("no refresh token available")

// Response is a fully buffered HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// RefreshOn lists the statuses that trigger a token refresh. Empty means {401}.
	RefreshOn []int
	// Limiter paces outgoing calls per host when set.
	Limiter   middleware.RateLimiter
	UserAgent string
}

// Client is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	session   *session.Session
	refreshOn map[int]struct{}
	userAgent string
	refreshes singleflight.Group
}

// New constructs a client bound to sess.
func New(sess *session.Session, opts Options) (*Client, error) {
	if sess == nil {
		return nil, errors.New("httpclient: session is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("httpclient: invalid base url %q", opts.BaseURL)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	if opts.HTTPClient != nil {
		clone := *opts.HTTPClient
		httpClient = &clone
	}
	httpClient.Transport = middleware.Chain(httpClient.Transport,
		middleware.RateLimit(opts.Limiter),
		middleware.RequestLogger(),
	)

	refreshOn := make(map[int]struct{}, len(opts.RefreshOn))
	for _, status := range opts.RefreshOn {
		refreshOn[status] = struct{}{}
	}
	if len(refreshOn) == 0 {
		refreshOn[http.StatusUnauthorized] = struct{}{}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		base:      base,
		http:      httpClient,
		session:   sess,
		refreshOn: refreshOn,
		userAgent: userAgent,
	}, nil
}

// Session returns the session the client reads credentials from.
func (c *Client) Session() *session.Session {
	return c.session
}

type requestOptions struct {
	basicUser, basicPass string
	basic                bool
	anonymous            bool
}

// RequestOption adjusts a single call.
type RequestOption func(*requestOptions)

// WithBasicAuth sends Basic credentials instead of the bearer token. Such
// calls never trigger a refresh.
func WithBasicAuth(user, password string) RequestOption {
	return func(o *requestOptions) {
		o.basic = true
		o.basicUser = user
		o.basicPass = password
	}
}

// Anonymous sends no credentials and never triggers a refresh.
func Anonymous() RequestOption {
	return func(o *requestOptions) {
		o.anonymous = true
	}
}

// Do sends a request and returns the final response. body may be nil, a
// []byte sent verbatim, or any value encoded as JSON. HTTP-level failures are
// not errors; only transport and encoding failures are.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	ctx, span := logging.StartSpan(ctx, method+" "+path)

	token := ""
	if !ro.basic && !ro.anonymous {
		token = c.session.AccessToken(ctx)
	}

	resp, err := c.send(ctx, method, path, payload, token, ro)
	if err != nil {
		span.End(err)
		return nil, err
	}
	span.Set(slog.Int("status", resp.StatusCode))
	if ro.basic || ro.anonymous || !c.triggersRefresh(resp.StatusCode) {
		span.End(nil)
		return resp, nil
	}

	fresh, ok := c.refresh(ctx, token)
	if !ok {
		span.End(nil)
		return resp, nil
	}

	retried, err := c.send(ctx, method, path, payload, fresh, ro)
	if err != nil {
		span.End(err)
		return nil, err
	}
	span.Set(slog.Int("retry_status", retried.StatusCode))
	if c.triggersRefresh(retried.StatusCode) {
		// The refreshed token was rejected too: the session is unusable.
		c.clearSession(ctx)
		span.End(nil)
		return resp, nil
	}
	span.End(nil)
	return retried, nil
}

// DoJSON calls Do and decodes a 2xx body into out (when out is non-nil).
// Non-2xx responses are returned as *APIError.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	resp, err := c.Do(ctx, method, path, body, opts...)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return newAPIError(resp)
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) triggersRefresh(status int) bool {
	_, ok := c.refreshOn[status]
	return ok
}

// refresh obtains a new access token. Concurrent callers share one refresh
// call. staleToken is the token the failed request used: if the session
// already holds a different one, another caller refreshed in the meantime and
// that token is reused.
func (c *Client) refresh(ctx context.Context, staleToken string) (string, bool) {
	if current := c.session.AccessToken(ctx); current != "" && current != staleToken {
		return current, true
	}

	v, err, _ := c.refreshes.Do("refresh", func() (interface{}, error) {
		// A flight that finished between the check above and this call has
		// already rotated the token.
		if current := c.session.AccessToken(ctx); current != "" && current != staleToken {
			return current, nil
		}
		return c.doRefresh(ctx)
	})
	if err != nil {
		logging.FromContext(ctx).Warn("token refresh failed", slog.Any("error", err))
		return "", false
	}
	return v.(string), true
}

func (c *Client) doRefresh(ctx context.Context) (string, error) {
	refreshToken := c.session.RefreshToken(ctx)
	if refreshToken == "" {
		c.clearSession(ctx)
		return "", ErrNoRefreshToken
	}

	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return "", fmt.Errorf("encode refresh request: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, RefreshPath, payload, refreshToken, requestOptions{})
	if err != nil {
		c.clearSession(ctx)
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if !resp.OK() {
		c.clearSession(ctx)
		return "", fmt.Errorf("refresh token: %w", newAPIError(resp))
	}

	tokens, err := ParseTokens(resp)
	if err != nil {
		c.clearSession(ctx)
		return "", err
	}
	if tokens.AccessToken == "" {
		c.clearSession(ctx)
		return "", errors.New("refresh response carried no access token")
	}
	// The user id never changes on refresh.
	tokens.UserID = ""
	if err := c.session.Save(ctx, tokens); err != nil {
		return "", fmt.Errorf("store refreshed tokens: %w", err)
	}
	return tokens.AccessToken, nil
}

func (c *Client) clearSession(ctx context.Context) {
	if err := c.session.Clear(ctx); err != nil {
		logging.FromContext(ctx).Warn("clear session", slog.Any("error", err))
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string, ro requestOptions) (*Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	requestID := uuid.NewString()
	ctx = logging.WithRequestID(ctx, requestID)

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case ro.basic:
		req.SetBasicAuth(ro.basicUser, ro.basicPass)
	case token != "":
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (c *Client) resolve(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.base.String() + path
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return payload, nil
	}
}
