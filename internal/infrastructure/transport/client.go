// Package transport implements the HTTP fetcher used by discovery and
// extraction, with proxy support, bounded retries and a response size cap.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	xproxy "golang.org/x/net/proxy"

	"NewsWatch/internal/config"
	"NewsWatch/internal/ports"
)

// Error carries the failed URL and, when a response was received, its status.
type Error struct {
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Desktop browser user agents rotated across requests.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

const backoffBase = 1.7

// Client is a retrying HTTP fetcher. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	retries    int
	maxBody    int64
	logger     *slog.Logger
	uaCounter  atomic.Uint64
}

var _ ports.Fetcher = (*Client)(nil)

// NewClient builds the fetcher from transport configuration. A socks5:// or
// socks5h:// proxy URL routes through a SOCKS dialer; http(s) proxy URLs go
// through the standard transport proxy.
func NewClient(cfg config.TransportConfig, logger *slog.Logger) (*Client, error) {
	tr := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		switch proxyURL.Scheme {
		case "socks5", "socks5h":
			dialer, err := xproxy.FromURL(proxyURL, xproxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("build socks dialer: %w", err)
			}
			ctxDialer, ok := dialer.(xproxy.ContextDialer)
			if !ok {
				return nil, fmt.Errorf("socks dialer does not support context")
			}
			tr.DialContext = ctxDialer.DialContext
		default:
			tr.Proxy = http.ProxyURL(proxyURL)
		}
	}

	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 3_000_000
	}

	return &Client{
		httpClient: &http.Client{Transport: tr, Timeout: cfg.Timeout()},
		retries:    retries,
		maxBody:    maxBody,
		logger:     logger,
	}, nil
}

// Fetch GETs the URL, retrying transient failures with exponential backoff.
// 4xx statuses other than 429 are not retried.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*ports.FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(backoffBase, float64(attempt)) * float64(time.Second))
			if c.logger != nil {
				c.logger.Debug("retrying fetch", "component", "transport", "url", rawURL, "attempt", attempt, "delay", delay)
			}
			select {
			case <-ctx.Done():
				return nil, &Error{URL: rawURL, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		res, retryable, err := c.fetchOnce(ctx, rawURL)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) (*ports.FetchResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, &Error{URL: rawURL, Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("User-Agent", c.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	// Uncompressed bodies keep the size cap meaningful.
	req.Header.Set("Accept-Encoding", "identity")
	if req.URL != nil && req.URL.Host != "" {
		req.Header.Set("Referer", req.URL.Scheme+"://"+req.URL.Host+"/")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, &Error{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, &Error{URL: rawURL, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, true, &Error{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &ports.FetchResult{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    finalURL,
	}, false, nil
}

func (c *Client) nextUserAgent() string {
	n := c.uaCounter.Add(1)
	return userAgents[int(n)%len(userAgents)]
}
