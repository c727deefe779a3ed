package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"ticketbooth/entity"
	"ticketbooth/metrics"
	"ticketbooth/session"
)

const (
	DefaultRefreshPath = "/auth/refresh"
	LoginPath          = "/auth/login"
	LogoutPath         = "/auth/logout"
)

type APIClientConfig struct {
	BaseURL string
	// RefreshURL is relative to BaseURL unless it is absolute.
	RefreshURL string
	HTTPClient *http.Client
	// OnUnauthorized runs after the session has been cleared because it could
	// not be refreshed. It is the sign-in redirect of the client.
	OnUnauthorized func(ctx context.Context)
}

type RequestOptions struct {
	Method string
	// Body is marshalled to JSON; []byte, json.RawMessage and string are sent as is.
	Body   any
	Header http.Header
}

// APIClient talks to the ticketing API on behalf of the signed-in user.
// An expired access token is refreshed once and the request is reissued.
type APIClient struct {
	baseURL        string
	refreshURL     string
	httpClient     *http.Client
	store          session.Store
	onUnauthorized func(ctx context.Context)

	refreshGroup singleflight.Group
}

func NewAPIClient(config APIClientConfig, store session.Store) (*APIClient, error) {
	if store == nil {
		panic("missing session store")
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	client := &APIClient{
		baseURL:        strings.TrimRight(base.String(), "/"),
		httpClient:     httpClient,
		store:          store,
		onUnauthorized: config.OnUnauthorized,
	}

	refreshURL := config.RefreshURL
	if refreshURL == "" {
		refreshURL = DefaultRefreshPath
	}
	client.refreshURL = client.url(refreshURL)

	return client, nil
}

type response struct {
	status int
	body   []byte
}

func (r response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// Request sends a request to endpoint with the current access token and
// returns the JSON body of a 2xx response. An empty body yields nil.
func (c *APIClient) Request(ctx context.Context, endpoint string, opts RequestOptions) (json.RawMessage, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, fmt.Errorf("could not encode request body for %s %s: %w", method, endpoint, err)
	}

	credentials, err := c.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read session: %w", err)
	}

	resp, err := c.send(ctx, method, c.url(endpoint), body, opts.Header, credentials.AccessToken)
	if err != nil {
		return nil, err
	}

	if resp.status == http.StatusUnauthorized {
		token, ok := c.tokenAfterUnauthorized(ctx, credentials.AccessToken)
		if !ok {
			if ctx.Err() != nil {
				return nil, &entity.NetworkError{Op: method + " " + endpoint, Err: ctx.Err()}
			}

			c.expireSession(ctx)
			return nil, entity.ErrUnauthorized
		}

		// the outcome of the second attempt is final, even another 401
		resp, err = c.send(ctx, method, c.url(endpoint), body, opts.Header, token)
		if err != nil {
			return nil, err
		}
	}

	if !resp.ok() {
		return nil, &entity.APIError{Status: resp.status, Body: string(resp.body)}
	}

	if len(bytes.TrimSpace(resp.body)) == 0 {
		return nil, nil
	}
	if !json.Valid(resp.body) {
		return nil, fmt.Errorf("invalid JSON in response to %s %s", method, endpoint)
	}

	return resp.body, nil
}

// RequestJSON is Request decoding the result into out. A {"data": ...}
// envelope is unwrapped.
func (c *APIClient) RequestJSON(ctx context.Context, endpoint string, opts RequestOptions, out any) error {
	raw, err := c.Request(ctx, endpoint, opts)
	if err != nil {
		return err
	}
	if raw == nil || out == nil {
		return nil
	}

	if err := json.Unmarshal(unwrapData(raw), out); err != nil {
		return fmt.Errorf("could not decode response of %s: %w", endpoint, err)
	}

	return nil
}

// tokenAfterUnauthorized returns the token to retry with. When the store
// already holds a different token than the rejected one, another request
// has refreshed in the meantime and that token is used as is.
func (c *APIClient) tokenAfterUnauthorized(ctx context.Context, rejected string) (string, bool) {
	current, err := c.store.Get(ctx)
	if err == nil && current.AccessToken != "" && current.AccessToken != rejected {
		return current.AccessToken, true
	}

	return c.Refresh(ctx)
}

// Refresh exchanges the stored refresh token for a new access token.
// It never fails loudly: any failure clears the session and returns false.
// Concurrent callers share one refresh call.
func (c *APIClient) Refresh(ctx context.Context) (string, bool) {
	// the shared call must not die with the first caller's context
	refreshCtx := context.WithoutCancel(ctx)

	result := c.refreshGroup.DoChan("refresh", func() (any, error) {
		return c.refresh(refreshCtx), nil
	})

	select {
	case <-ctx.Done():
		return "", false
	case res := <-result:
		token, _ := res.Val.(string)
		return token, token != ""
	}
}

func (c *APIClient) refresh(ctx context.Context) string {
	logger := log.FromContext(ctx)

	credentials, err := c.store.Get(ctx)
	if err != nil {
		logger.WithError(err).Warn("Could not read session for token refresh")
		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		return ""
	}
	if credentials.RefreshToken == "" {
		metrics.TokenRefreshes.WithLabelValues("missing").Inc()
		return ""
	}

	payload, err := json.Marshal(refreshRequest{RefreshToken: credentials.RefreshToken})
	if err != nil {
		return ""
	}

	resp, err := c.send(ctx, http.MethodPost, c.refreshURL, payload, nil, "")
	if err != nil || !resp.ok() {
		logger.WithFields(logrus.Fields{
			"status": resp.status,
			"error":  err,
		}).Warn("Token refresh failed")
		c.clearSession(ctx)
		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		return ""
	}

	tokens, err := parseTokenResponse(resp.body)
	if err != nil {
		logger.WithError(err).Warn("Token refresh returned no usable token")
		c.clearSession(ctx)
		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		return ""
	}

	if tokens.RefreshToken == "" {
		tokens.RefreshToken = credentials.RefreshToken
	}
	if err := c.store.Set(ctx, tokens); err != nil {
		// the new token is still good for the retry
		logger.WithError(err).Error("Could not persist refreshed tokens")
	}

	metrics.TokenRefreshes.WithLabelValues("refreshed").Inc()
	logger.Debug("Access token refreshed")

	return tokens.AccessToken
}

// Login signs in and stores the issued credential pair.
func (c *APIClient) Login(ctx context.Context, email, password string) (entity.Credentials, error) {
	payload, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return entity.Credentials{}, err
	}

	resp, err := c.send(ctx, http.MethodPost, c.url(LoginPath), payload, nil, "")
	if err != nil {
		return entity.Credentials{}, err
	}
	if !resp.ok() {
		return entity.Credentials{}, &entity.APIError{Status: resp.status, Body: string(resp.body)}
	}

	credentials, err := parseTokenResponse(resp.body)
	if err != nil {
		return entity.Credentials{}, fmt.Errorf("could not read sign-in response: %w", err)
	}

	if err := c.store.Set(ctx, credentials); err != nil {
		return entity.Credentials{}, fmt.Errorf("could not store session: %w", err)
	}

	return credentials, nil
}

// Credentials returns the stored credential pair without touching the network.
func (c *APIClient) Credentials(ctx context.Context) (entity.Credentials, error) {
	return c.store.Get(ctx)
}

// Logout tells the API about it when possible and always clears the session.
func (c *APIClient) Logout(ctx context.Context) error {
	credentials, err := c.store.Get(ctx)
	if err == nil && !credentials.Empty() {
		payload, _ := json.Marshal(refreshRequest{RefreshToken: credentials.RefreshToken})
		resp, err := c.send(ctx, http.MethodPost, c.url(LogoutPath), payload, nil, credentials.AccessToken)
		if err != nil || !resp.ok() {
			log.FromContext(ctx).WithFields(logrus.Fields{
				"status": resp.status,
				"error":  err,
			}).Info("Server-side logout failed, clearing local session anyway")
		}
	}

	return c.store.Clear(ctx)
}

func (c *APIClient) expireSession(ctx context.Context) {
	c.clearSession(ctx)

	log.FromContext(ctx).Info("Session expired, sign-in required")

	if c.onUnauthorized != nil {
		c.onUnauthorized(ctx)
	}
}

func (c *APIClient) clearSession(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		log.FromContext(ctx).WithError(err).Error("Could not clear session")
	}
}

func (c *APIClient) send(
	ctx context.Context,
	method string,
	target string,
	body []byte,
	header http.Header,
	accessToken string,
) (response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return response{}, fmt.Errorf("could not create request %s %s: %w", method, target, err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Correlation-ID", log.CorrelationIDFromContext(ctx))
	for key, values := range header {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.APIRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "error").Inc()
		return response{}, &entity.NetworkError{Op: method + " " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	metrics.APIRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, &entity.NetworkError{Op: "reading response of " + method + " " + req.URL.Path, Err: err}
	}

	log.FromContext(ctx).WithFields(logrus.Fields{
		"method": method,
		"path":   req.URL.Path,
		"status": resp.StatusCode,
	}).Debug("Ticketing API call")

	return response{status: resp.StatusCode, body: respBody}, nil
}

func (c *APIClient) url(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}

	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return json.Marshal(body)
	}
}

func unwrapData(raw json.RawMessage) json.RawMessage {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return raw
	}

	data, ok := envelope["data"]
	if !ok || len(data) == 0 || string(data) == "null" {
		return raw
	}

	return data
}

// IsUnauthorized reports whether err ended the session.
func IsUnauthorized(err error) bool {
	return errors.Is(err, entity.ErrUnauthorized)
}
