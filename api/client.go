// Package api is the authenticated HTTP client for the TaxBook backend.
//
// Every authenticated call goes through Client.Do, which attaches the
// stored access token and transparently recovers from an expired one:
// exactly one refresh-and-retry cycle per call chain. Concurrent calls
// that hit a 401 at the same time share a single refresh request, so a
// rotated refresh token is never spent twice.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/taxbook/taxbook-go/credentials"
)

const defaultTimeout = 30 * time.Second

// Client dispatches requests against the backend. baseURL includes the
// /api prefix, e.g. "https://app.taxbook.kg/api".
type Client struct {
	baseURL string
	httpc   *http.Client
	creds   credentials.Store
	log     zerolog.Logger

	refreshGroup   singleflight.Group
	onUnauthorized func()
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (primarily for tests
// and custom transports).
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		c.httpc = httpc
	}
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func New(baseURL string, creds credentials.Store, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[api.New] baseURL is required")
	}
	if creds == nil {
		return nil, errors.New("[api.New] credentials store is required")
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		log:     zerolog.Nop(),
	}

	for _, opt := range options {
		opt(c)
	}

	if c.httpc == nil {
		c.httpc = &http.Client{Timeout: defaultTimeout}
	}
	return c, nil
}

// OnUnauthorized registers fn to run whenever an authenticated request
// fails with a terminal 401, after any refresh recovery was attempted.
// The session layer uses it to stop treating the user as signed in.
// Register before the client is shared across goroutines.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// Do performs one authenticated JSON request. body is marshalled when
// non-nil; the response is decoded into out when out is non-nil and the
// response has one (a 204 leaves out untouched).
//
// On a 401 with a stored refresh token, Do refreshes once and retries the
// original request once. A second 401 is surfaced, never retried again.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	payload, err := marshalBody(body)
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, payload, out, false)
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, out any, retried bool) error {
	status, data, err := c.roundTrip(ctx, method, path, payload, true)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && !retried {
		if _, ok := c.creds.Refresh(); ok {
			c.log.Debug().Str("path", path).Msg("access token rejected, refreshing")
			if refreshErr := c.RefreshCredentials(ctx); refreshErr == nil {
				return c.send(ctx, method, path, payload, out, true)
			}
			// Refresh failed and credentials are cleared; the original
			// 401 falls through below as Unauthorized.
		}
	}

	if status < 200 || status > 299 {
		reqErr := errorFromResponse(status, data)
		if reqErr.Kind == KindUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return reqErr
	}
	return decodeBody(status, data, out)
}

// public performs an unauthenticated request (login, register, refresh).
// No Authorization header, no retry cycle.
func (c *Client) public(ctx context.Context, method, path string, body, out any) error {
	payload, err := marshalBody(body)
	if err != nil {
		return err
	}
	status, data, err := c.roundTrip(ctx, method, path, payload, false)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return errorFromResponse(status, data)
	}
	return decodeBody(status, data, out)
}

// RefreshCredentials exchanges the stored refresh token for a fresh access
// token (and a rotated refresh token when the backend issues one), then
// persists the result. Concurrent callers are coalesced onto a single
// in-flight refresh and all receive its outcome.
//
// On any failure the credential store is cleared: a refresh token the
// backend rejected is dead weight, and keeping it would only repeat the
// failure on the next call.
func (c *Client) RefreshCredentials(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		refresh, ok := c.creds.Refresh()
		if !ok {
			return nil, &RequestError{Kind: KindUnauthorized, Message: "no refresh token stored", cause: ErrNoRefreshToken}
		}

		var pair TokenPair
		if err := c.public(ctx, http.MethodPost, "/token/refresh/", refreshRequest{Refresh: refresh}, &pair); err != nil {
			c.log.Warn().Err(err).Msg("token refresh failed, clearing credentials")
			if clearErr := c.creds.Clear(); clearErr != nil {
				c.log.Error().Err(clearErr).Msg("failed to clear credentials")
			}
			return nil, &RequestError{Kind: KindUnauthorized, Message: "session expired", cause: err}
		}

		if err := c.creds.SetTokens(pair.Access, pair.Refresh); err != nil {
			return nil, errors.Wrap(err, "[RefreshCredentials] persisting tokens")
		}
		return nil, nil
	})
	return err
}

// roundTrip issues a single request and slurps the body. A transport
// failure is a KindNetwork error; any HTTP response, whatever the status,
// is returned to the caller.
func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, authed bool) (int, []byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, errors.Wrap(err, "[roundTrip] building request")
	}

	req.Header.Set("Content-Type", "application/json")
	if authed {
		if access, ok := c.creds.Access(); ok {
			req.Header.Set("Authorization", "Bearer "+access)
		}
	}

	res, err := c.httpc.Do(req)
	if err != nil {
		return 0, nil, networkError(err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, networkError(err)
	}
	return res.StatusCode, data, nil
}

func marshalBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "[api] marshalling request body")
	}
	return payload, nil
}

func decodeBody(status int, data []byte, out any) error {
	if status == http.StatusNoContent || out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "[api] decoding response body")
	}
	return nil
}
