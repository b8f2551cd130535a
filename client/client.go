// Package client talks to a gallery server over HTTP and its websocket feed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/sketchpond/api"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client // nil uses a client with Timeout
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client is a gallery API client. It is safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
	logger *slog.Logger
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		base:   base,
		http:   opts.HTTPClient,
		dialer: &websocket.Dialer{HandshakeTimeout: opts.Timeout},
		logger: opts.Logger,
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e api.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// Submit posts a drawing.
func (c *Client) Submit(ctx context.Context, req api.SubmitRequest) (api.SubmitResponse, error) {
	var resp api.SubmitResponse
	err := c.do(ctx, http.MethodPost, "/fish", nil, req, &resp)
	return resp, err
}

// Fishes fetches the viewer feed. userID 0 requests an anonymous feed.
func (c *Client) Fishes(ctx context.Context, userID int64) ([]api.Fish, error) {
	var q url.Values
	if userID != 0 {
		q = url.Values{"user_id": {strconv.FormatInt(userID, 10)}}
	}
	var fishes []api.Fish
	err := c.do(ctx, http.MethodGet, "/fishes", q, nil, &fishes)
	return fishes, err
}

// Vote likes or dislikes a drawing.
func (c *Client) Vote(ctx context.Context, fishID int64, action string) (api.VoteResponse, error) {
	var resp api.VoteResponse
	err := c.do(ctx, http.MethodPost, "/fishes/vote", nil, api.VoteRequest{FishID: fishID, Action: action}, &resp)
	return resp, err
}

// Rank fetches the most liked drawings.
func (c *Client) Rank(ctx context.Context) ([]api.Fish, error) {
	var fishes []api.Fish
	err := c.do(ctx, http.MethodGet, "/fishes/rank", nil, nil, &fishes)
	return fishes, err
}

// Subscribe opens the live event feed. The channel closes when ctx is
// cancelled or the connection drops.
func (c *Client) Subscribe(ctx context.Context) (<-chan api.Event, error) {
	u := *c.base
	u.Scheme = "ws"
	if c.base.Scheme == "https" {
		u.Scheme = "wss"
	}
	u.Path += "/ws"

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing event feed: %w", err)
	}

	events := make(chan api.Event, 16)
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	go func() {
		defer close(events)
		defer stop()
		defer conn.Close()
		for {
			var ev api.Event
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil {
					c.logger.Warn("event feed closed", "error", err)
				}
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
