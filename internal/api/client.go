package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"stockfighter/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

const (
	DefaultBaseURL   = "https://api.stockfighter.io/ob/api/"
	DefaultBaseWsURL = "wss://api.stockfighter.io/ob/api/ws/"

	_authHeader     = "X-Starfighter-Authorization"
	_requestTimeout = 15 * time.Second
)

// Client talks to the exchange API. Every request carries the API key header;
// round trips are single-shot and never retried here.
type Client struct {
	httpClient *http.Client
	baseURL    string
	baseWsURL  string
	apiKey     string
}

// Option overrides client defaults.
type Option struct {
	BaseURL    string
	BaseWsURL  string
	HTTPClient *http.Client
}

// NewClient creates a client authenticated with the given API key.
func NewClient(apiKey string, opt Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, exception.ErrAPIEmptyKey
	}

	c := &Client{
		httpClient: opt.HTTPClient,
		baseURL:    opt.BaseURL,
		baseWsURL:  opt.BaseWsURL,
		apiKey:     apiKey,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.baseWsURL == "" {
		c.baseWsURL = DefaultBaseWsURL
	}
	return c, nil
}

// NewClientFromKeyFile reads the API key from a file. Keeping the key out of
// source control is the whole point of this constructor.
func NewClientFromKeyFile(path string, opt Option) (*Client, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(exception.ErrAPIKeyFile, err.Error()).With("path", path)
	}
	return NewClient(string(raw), opt)
}

// Heartbeat checks the API is up.
func (c *Client) Heartbeat(ctx context.Context) (Heartbeat, error) {
	var hb Heartbeat
	if err := c.do(ctx, http.MethodGet, "heartbeat", nil, &hb); err != nil {
		return hb, err
	}
	return hb, nil
}

// Venue scopes operations to one exchange instance for one trading account.
func (c *Client) Venue(account, name string) *Venue {
	return &Venue{client: c, Account: account, Name: name}
}

// APIKey exposes the key for feed URL construction.
func (c *Client) APIKey() string {
	return c.apiKey
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, _requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := sonic.ConfigFastest.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set(_authHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request").With("path", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(exception.ErrAPIStatus, "status: %d, path: %s", resp.StatusCode, path)
	}
	if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(exception.ErrAPIDecodeBody, err.Error()).With("path", path)
	}
	return nil
}

// okError converts an ok:false payload into the typed protocol error.
func okError(ok bool, msg string) error {
	if ok {
		return nil
	}
	if msg == "" {
		return exception.ErrAPINotOK
	}
	return errors.Wrap(exception.ErrAPINotOK, msg)
}
