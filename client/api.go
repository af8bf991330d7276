// Package client is the Go client half of the session core: an API client
// with cookie-based credentials, a transport that transparently refreshes an
// expired session exactly once for any burst of failing requests, and a
// session coordinator that tracks the current user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/pkg/errors"

	"github.com/leadcrm/go-crm-auth/users"
)

// APIError is the normalized error shape for any non-2xx response: a fixed
// {kind, message} contract plus the HTTP status.
type APIError struct {
	Status  int    `json:"-"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// IsAuthStatus reports whether the error is a plain "not authenticated"
// outcome (401/403) rather than a fault.
func (e *APIError) IsAuthStatus() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// API is the HTTP client for the auth endpoints. Cookies are held in a jar
// shared with the refresh transport, so a rotated pair is picked up by every
// subsequent request.
type API struct {
	baseURL   *url.URL
	http      *http.Client
	transport *Transport
}

// New creates an API client for the given server base URL (e.g.
// "http://localhost:5000").
func New(baseURL string) (*API, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "[client.New] parse base URL")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "[client.New] cookie jar")
	}

	transport := NewTransport(http.DefaultTransport, jar, baseURL+"/auth/refresh")

	return &API{
		baseURL:   parsed,
		transport: transport,
		http: &http.Client{
			Jar:       jar,
			Transport: transport,
		},
	}, nil
}

// Transport exposes the refresh-coalescing transport, mainly so a Session can
// register its forced-logout hook.
func (a *API) Transport() *Transport {
	return a.transport
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResult struct {
	User users.User `json:"user"`
}

// Login authenticates and stores the session cookies in the jar.
func (a *API) Login(ctx context.Context, email, password string) (*users.User, error) {
	var result loginResult
	if err := a.do(ctx, http.MethodPost, "/auth/login", loginPayload{Email: email, Password: password}, &result); err != nil {
		return nil, err
	}
	return &result.User, nil
}

// Me returns the current user, or an APIError with a 401 status when the
// session is not authenticated.
func (a *API) Me(ctx context.Context) (*users.User, error) {
	var user users.User
	if err := a.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout asks the server to revoke the session and clear cookies.
func (a *API) Logout(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (a *API) do(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "[client.do] marshal payload")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return errors.Wrap(err, "[client.do] build request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "[client.do] round trip")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return errors.Wrap(err, "[client.do] decode response")
		}
	}
	return nil
}
