// Package gm drives the game-master API: starting, restarting and stopping
// levels, and polling their progress. The trading API proper lives in api.
package gm

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"stockfighter/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

const (
	DefaultBaseURL = "https://www.stockfighter.io/gm/"

	_authHeader     = "X-Starfighter-Authorization"
	_requestTimeout = 15 * time.Second
)

// Level describes a freshly started or restarted level instance.
type Level struct {
	OK         bool     `json:"ok"`
	Error      string   `json:"error"`
	InstanceID int      `json:"instanceId"`
	Account    string   `json:"account"`
	Tickers    []string `json:"tickers"`
	Venues     []string `json:"venues"`
}

// Venue returns the level's single venue.
func (l Level) Venue() (string, error) {
	if len(l.Venues) == 0 {
		return "", exception.ErrGMNoVenues
	}
	return l.Venues[0], nil
}

// Ticker returns the level's single symbol.
func (l Level) Ticker() (string, error) {
	if len(l.Tickers) == 0 {
		return "", exception.ErrGMNoTickers
	}
	return l.Tickers[0], nil
}

// Status reports the progress of a running level instance.
type Status struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	ID      int    `json:"id"`
	Done    bool   `json:"done"`
	State   string `json:"state"`
	Details struct {
		EndOfTheWorldDay int `json:"endOfTheWorldDay"`
		TradingDay       int `json:"tradingDay"`
	} `json:"details"`
}

// Client talks to the game-master API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a game-master client authenticated with the given API key.
func NewClient(apiKey, baseURL string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, exception.ErrAPIEmptyKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}, nil
}

// StartLevel launches a level by name and returns the account, venue and
// tickers to trade with.
func (c *Client) StartLevel(ctx context.Context, name string) (Level, error) {
	var level Level
	if err := c.do(ctx, http.MethodPost, "levels/"+name, &level); err != nil {
		return level, err
	}
	if !level.OK {
		return level, errors.Wrap(exception.ErrAPINotOK, level.Error)
	}
	return level, nil
}

// RestartLevel restarts a running level instance.
func (c *Client) RestartLevel(ctx context.Context, instanceID int) (Level, error) {
	var level Level
	path := fmt.Sprintf("instances/%d/restart", instanceID)
	if err := c.do(ctx, http.MethodPost, path, &level); err != nil {
		return level, err
	}
	if !level.OK {
		return level, errors.Wrap(exception.ErrAPINotOK, level.Error)
	}
	return level, nil
}

// StopLevel tears a level instance down.
func (c *Client) StopLevel(ctx context.Context, instanceID int) error {
	var level Level
	path := fmt.Sprintf("instances/%d/stop", instanceID)
	if err := c.do(ctx, http.MethodPost, path, &level); err != nil {
		return err
	}
	if !level.OK {
		return errors.Wrap(exception.ErrAPINotOK, level.Error)
	}
	return nil
}

// LevelStatus polls the progress of a level instance.
func (c *Client) LevelStatus(ctx context.Context, instanceID int) (Status, error) {
	var status Status
	path := fmt.Sprintf("instances/%d", instanceID)
	if err := c.do(ctx, http.MethodGet, path, &status); err != nil {
		return status, err
	}
	if !status.OK {
		return status, errors.Wrap(exception.ErrAPINotOK, status.Error)
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, _requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(nil))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set(_authHeader, c.apiKey)
	// Some GM endpoints only honor the cookie form of the key.
	req.Header.Set("Cookie", "api_key="+c.apiKey)

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
