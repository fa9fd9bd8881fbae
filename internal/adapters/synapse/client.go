// Package synapse provides a resilient REST client for the Synapse
// evaluation platform: submission statuses, queues, teams, and profiles
package synapse

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	perr "challengeutils/internal/platform/errors"
	"challengeutils/internal/platform/logger"
)

const (
	baseURLDefault   = "https://repo-prod.prod.sagebase.org/repo/v1"
	defaultTimeout   = 30 * time.Second
	defaultUA        = "challengeutils"
	defaultMaxRetry  = 5
	defaultRetryBase = 500 * time.Millisecond
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Personal access token; sent as a Bearer header. Empty means anonymous,
	// which most evaluation endpoints reject
	AuthToken string

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration
}

// Client is a minimal Synapse REST client with retries and rate limit handling
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("synapse"),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Do issues a JSON request with auth, retries, and rate limit handling.
// in is marshaled as the request body when non-nil; out is filled from the
// response body when non-nil. 404 maps to ErrorCodeNotFound so callers can
// branch on it without string matching
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeJSON, "synapse marshal request failed")
		}
	}

	url := c.opts.BaseURL + path
	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnknown, "synapse new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.opts.AuthToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.opts.AuthToken)
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if !c.shouldRetry(attempts) {
				return perr.Wrapf(err, perr.ErrorCodeUnavailable, "synapse request failed")
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("synapse transport error retrying")
			c.sleep(back)
			attempts++
			continue
		}

		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Msg("synapse http response")

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out == nil {
				return drainAndClose(resp.Body)
			}
			b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
			_ = resp.Body.Close()
			if err != nil {
				return perr.Wrap(err, perr.ErrorCodeUnknown, "synapse read body failed")
			}
			if err := json.Unmarshal(b, out); err != nil {
				return perr.Wrapf(err, perr.ErrorCodeJSON, "synapse decode %s failed", path)
			}
			return nil

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp.Header, c.now())
			if wait <= 0 {
				wait = c.backoff(attempts)
			}
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return perr.Newf(perr.ErrorCodeTooManyRequests, "synapse rate limited on %s", path)
			}
			c.log.Warn().Dur("sleep", wait).Msg("synapse rate limited backing off")
			c.sleep(wait)
			attempts++
			continue

		case resp.StatusCode == http.StatusBadGateway,
			resp.StatusCode == http.StatusServiceUnavailable,
			resp.StatusCode == http.StatusGatewayTimeout:
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return perr.Newf(perr.ErrorCodeUnavailable, "synapse transient server error on %s", path)
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("synapse transient error retrying")
			c.sleep(back)
			attempts++
			continue

		default:
			tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return statusError(resp.StatusCode, path, tail)
		}
	}
}

// statusError maps terminal HTTP statuses onto project error codes
func statusError(status int, path string, tail []byte) error {
	reason := reasonOf(tail)
	switch status {
	case http.StatusNotFound:
		return perr.NotFoundf("synapse %s: %s", path, reason)
	case http.StatusUnauthorized:
		return perr.Unauthorizedf("synapse %s: %s", path, reason)
	case http.StatusForbidden:
		return perr.Forbiddenf("synapse %s: %s", path, reason)
	case http.StatusConflict, http.StatusPreconditionFailed:
		// 412 is an etag mismatch on store; surface as an edit conflict
		return perr.Conflictf("synapse %s: %s", path, reason)
	case http.StatusBadRequest:
		return perr.InvalidArgf("synapse %s: %s", path, reason)
	default:
		return perr.Newf(perr.ErrorCodeUnknown, "synapse %s: unexpected status %d: %s", path, status, reason)
	}
}

// reasonOf pulls the "reason" field out of a Synapse error body, falling back
// to the raw tail
func reasonOf(tail []byte) string {
	var e struct {
		Reason string `json:"reason"`
	}
	if json.Unmarshal(tail, &e) == nil && e.Reason != "" {
		return e.Reason
	}
	return string(tail)
}

func retryAfter(h http.Header, now time.Time) time.Duration {
	s := h.Get("Retry-After")
	if s == "" {
		return 0
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(s); err == nil {
		return at.Sub(now)
	}
	return 0
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 1<<20))
	return rc.Close()
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase
	// simple exponential with cap
	ms := int64(d / time.Millisecond)
	ms = ms << uint(attempt)
	ceil := int64(30 * time.Second / time.Millisecond)
	if ms > ceil {
		ms = ceil
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}
