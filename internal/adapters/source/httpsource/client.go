// Package httpsource fetches posts from a paginated JSON REST API
//
//	GET {base}/users/{identity}/posts?since=YYYY-MM-DD&until=YYYY-MM-DD&limit=N[&cursor=C]
//
// with bearer token rotation, retries on 429 and 5xx honouring Retry-After and
// X-Rate-Limit-Reset, and status mapping onto perr codes the engine classifies
package httpsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"feedvault/internal/core/interval"
	perr "feedvault/internal/platform/errors"
	"feedvault/internal/platform/logger"
	pstrings "feedvault/internal/platform/strings"
	"feedvault/internal/services/archive/domain"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUA        = "feedvault-fetch"
	defaultMaxRetry  = 3
	defaultRetryBase = 30 * time.Second
	defaultPageSize  = 100
	maxWait          = 15 * time.Minute
	maxBody          = 8 << 20
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Comma separated bearer tokens, rotated per request
	TokensCSV string

	// Retry config for rate limited and 5xx responses
	MaxRetries int
	RetryBase  time.Duration

	PageSize int
	// MaxPosts caps the posts returned for one gap, 0 = unlimited
	MaxPosts int
}

// Client is a domain.Source over HTTP
type Client struct {
	http   *http.Client
	opts   Options
	tokens []string
	cur    atomic.Int32
	log    logger.Logger
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
}

var _ domain.Source = (*Client)(nil)

// New creates a Client with defaults filled in
func New(o Options) (*Client, error) {
	if strings.TrimSpace(o.BaseURL) == "" {
		return nil, perr.InvalidArgf("httpsource: base url is required")
	}
	if _, err := url.Parse(o.BaseURL); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "httpsource: bad base url")
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.PageSize <= 0 {
		o.PageSize = defaultPageSize
	}
	return &Client{
		http:   &http.Client{Timeout: o.Timeout},
		opts:   o,
		tokens: pstrings.SplitCSV(o.TokensCSV),
		log:    *logger.Named("httpsource"),
		now:    time.Now,
		sleep:  sleepCtx,
	}, nil
}

// Fetch returns the posts of identity published within iv
// posts the server returns outside iv are dropped.
// When MaxPosts stops the read early the error is a *domain.Truncated carrying the posts read
func (c *Client) Fetch(ctx context.Context, identity string, iv interval.Interval) ([]domain.Post, error) {
	fetchedAt := c.now().UTC()
	var (
		out    []domain.Post
		cursor string
		pages  int
	)
	for {
		page, err := c.page(ctx, identity, iv, cursor)
		if err != nil {
			return nil, err
		}
		pages++
		last := page.NextCursor == "" || page.NextCursor == cursor || len(page.Posts) == 0
		for i, w := range page.Posts {
			p, err := w.toPost(identity, fetchedAt)
			if err != nil {
				c.log.Debug().Err(err).Str("identity", identity).Str("post_id", w.ID).Msg("skipping malformed post")
				continue
			}
			if !iv.Contains(p.Day()) {
				continue
			}
			out = append(out, p)
			if c.opts.MaxPosts > 0 && len(out) >= c.opts.MaxPosts && !(last && i == len(page.Posts)-1) {
				done := readInFull(out, iv)
				c.log.Info().Str("identity", identity).Int("max_posts", c.opts.MaxPosts).
					Bool("partly_complete", done != nil).Msg("post cap reached")
				return nil, &domain.Truncated{
					Posts:    out,
					Complete: done,
					Reason:   fmt.Sprintf("post cap of %d reached for %s in %s", c.opts.MaxPosts, identity, iv),
				}
			}
		}
		if last {
			break
		}
		cursor = page.NextCursor
	}
	c.log.Debug().Str("identity", identity).Stringer("interval", iv).
		Int("pages", pages).Int("posts", len(out)).Msg("fetched")
	return out, nil
}

// readInFull returns the part of iv that posts, in server order, show was read completely.
// Ascending posts complete every day before the last post's day, descending ones every day after it.
// Anything else, or fewer than two posts, proves nothing
func readInFull(posts []domain.Post, iv interval.Interval) *interval.Interval {
	if len(posts) < 2 {
		return nil
	}
	asc, desc := true, true
	for i := 1; i < len(posts); i++ {
		prev, cur := posts[i-1].PublishTime, posts[i].PublishTime
		if cur.Before(prev) {
			asc = false
		}
		if prev.Before(cur) {
			desc = false
		}
	}
	day := posts[len(posts)-1].Day()
	switch {
	case asc && !desc && day > iv.Start:
		return &interval.Interval{Start: iv.Start, End: day.AddDays(-1)}
	case desc && !asc && day < iv.End:
		return &interval.Interval{Start: day.AddDays(1), End: iv.End}
	}
	return nil
}

func (c *Client) page(ctx context.Context, identity string, iv interval.Interval, cursor string) (pageWire, error) {
	q := url.Values{}
	q.Set("since", iv.Start.String())
	q.Set("until", iv.End.String())
	q.Set("limit", strconv.Itoa(c.opts.PageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	path := fmt.Sprintf("/users/%s/posts?%s", url.PathEscape(identity), q.Encode())

	resp, err := c.Do(ctx, http.MethodGet, path)
	if err != nil {
		return pageWire{}, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("close body failed")
		}
	}()

	var out pageWire
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&out); err != nil {
		return pageWire{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "decode page for %s", identity)
	}
	return out, nil
}

// Do issues one request with auth headers, retrying rate limits and 5xx
// a 2xx response is returned with its body open
func (c *Client) Do(ctx context.Context, method, path string) (*http.Response, error) {
	target := c.opts.BaseURL + path
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "new request")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")
		if tok := c.nextToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempts >= c.opts.MaxRetries {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "request failed")
			}
			if err := c.wait(ctx, c.backoff(attempts), attempts, "transport error"); err != nil {
				return nil, err
			}
			attempts++
			continue
		}

		rl := parseRateHeaders(resp.Header)
		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Int("rate_remaining", rl.remaining).
			Time("rate_reset", rl.reset).
			Int("retry_after_s", rl.retryAfter).
			Msg("http response")

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == http.StatusTooManyRequests,
			resp.StatusCode == http.StatusForbidden && rl.exhausted():
			_ = drainAndClose(resp.Body)
			if attempts >= c.opts.MaxRetries {
				return nil, perr.TooManyRequestsf("rate limited after %d attempts", attempts+1)
			}
			d := rl.wait(c.now())
			if d <= 0 {
				d = c.backoff(attempts)
			}
			if err := c.wait(ctx, min(d, maxWait), attempts, "rate limited"); err != nil {
				return nil, err
			}
			attempts++
			continue

		case resp.StatusCode >= 500:
			_ = drainAndClose(resp.Body)
			if attempts >= c.opts.MaxRetries {
				return nil, perr.Unavailablef("upstream status %d after %d attempts", resp.StatusCode, attempts+1)
			}
			if err := c.wait(ctx, c.backoff(attempts), attempts, "upstream error"); err != nil {
				return nil, err
			}
			attempts++
			continue

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, statusError(resp.StatusCode, strings.TrimSpace(string(body)))
		}
	}
}

func (c *Client) wait(ctx context.Context, d time.Duration, attempt int, why string) error {
	c.log.Warn().Dur("retry_in", d).Int("attempt", attempt).Msg(why + ", backing off")
	return c.sleep(ctx, d)
}

// nextToken rotates round robin, empty when tokenless
func (c *Client) nextToken() string {
	n := int(c.cur.Add(1))
	if len(c.tokens) == 0 {
		return ""
	}
	return c.tokens[n%len(c.tokens)]
}

// backoff doubles from RetryBase, capped at maxWait
func (c *Client) backoff(attempt int) time.Duration {
	return min(c.opts.RetryBase<<attempt, maxWait)
}

// statusError maps a final non retryable status onto a perr code
func statusError(status int, body string) error {
	switch status {
	case http.StatusUnauthorized:
		return perr.Unauthorizedf("source rejected credentials: %s", body)
	case http.StatusForbidden:
		return perr.Forbiddenf("source forbids access: %s", body)
	case http.StatusNotFound, http.StatusGone:
		return perr.NotFoundf("source has no such identity: %s", body)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return perr.InvalidArgf("source rejected request (%d): %s", status, body)
	default:
		return perr.Newf(perr.ErrorCodeUnknown, "unexpected status %d: %s", status, body)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
