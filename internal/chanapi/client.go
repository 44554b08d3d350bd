// Package chanapi fetches thread snapshots from a 4chan-compatible read-only
// JSON API (https://github.com/4chan/4chan-API).
package chanapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/leonletto/threadtrack/internal/types"
)

// Default client settings. The public API asks clients to stay at or below
// one request per second.
const (
	DefaultBaseURL    = "https://a.4cdn.org"
	DefaultTimeout    = 15 * time.Second
	DefaultRatePerSec = 1.0
	DefaultUserAgent  = "threadtrack/dev"
)

// maxBodyBytes caps the decoded response; large threads are a few MB.
const maxBodyBytes = 32 << 20

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64
	UserAgent  string
	HTTPClient *http.Client
}

// StatusError is returned for non-2xx responses other than 404.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Client fetches threads. It is safe for concurrent use; all requests share
// one rate limiter.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// New creates a client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = DefaultRatePerSec
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		http:      hc,
		limiter:   rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
	}
}

// wirePost mirrors the fields of a post object we care about.
type wirePost struct {
	No       int64  `json:"no"`
	Sub      string `json:"sub"`
	Com      string `json:"com"`
	Time     int64  `json:"time"`
	Closed   int    `json:"closed"`
	Archived int    `json:"archived"`
}

type wireThread struct {
	Posts []wirePost `json:"posts"`
}

// ThreadURL returns the API endpoint for a thread.
func (c *Client) ThreadURL(board, threadID string) string {
	return fmt.Sprintf("%s/%s/thread/%s.json", c.baseURL, url.PathEscape(board), url.PathEscape(threadID))
}

// FetchThread returns the current snapshot of a thread. A 404 response
// yields types.ErrThreadNotFound.
func (c *Client) FetchThread(ctx context.Context, board, threadID string) (types.Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return types.Snapshot{}, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := c.ThreadURL(board, threadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("fetch /%s/%s: %w", board, threadID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return types.Snapshot{}, fmt.Errorf("/%s/%s: %w", board, threadID, types.ErrThreadNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return types.Snapshot{}, &StatusError{StatusCode: resp.StatusCode, URL: endpoint}
	}

	var wt wireThread
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&wt); err != nil {
		return types.Snapshot{}, fmt.Errorf("decode /%s/%s: %w", board, threadID, err)
	}
	if len(wt.Posts) == 0 {
		return types.Snapshot{}, fmt.Errorf("decode /%s/%s: response has no posts", board, threadID)
	}

	snap := types.Snapshot{Posts: make([]types.Post, 0, len(wt.Posts))}
	for _, p := range wt.Posts {
		snap.Posts = append(snap.Posts, types.Post{No: p.No, Subject: p.Sub, Comment: p.Com, Time: p.Time})
	}
	op := wt.Posts[0]
	snap.Closed = op.Closed == 1
	snap.Archived = op.Archived == 1
	return snap, nil
}
