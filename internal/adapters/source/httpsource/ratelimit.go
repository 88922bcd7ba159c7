package httpsource

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// rateHeaders is what the server told us about its quota
type rateHeaders struct {
	remaining  int // -1 when absent
	reset      time.Time
	retryAfter int
}

func parseRateHeaders(h http.Header) rateHeaders {
	rl := rateHeaders{remaining: -1}
	if v := h.Get("X-Rate-Limit-Remaining"); v != "" {
		rl.remaining = atoi(v)
	}
	if sec := atoi(h.Get("X-Rate-Limit-Reset")); sec > 0 {
		rl.reset = time.Unix(int64(sec), 0).UTC()
	}
	rl.retryAfter = atoi(h.Get("Retry-After"))
	return rl
}

// exhausted reports a zero remaining quota, some servers answer 403 for it
func (rl rateHeaders) exhausted() bool { return rl.remaining == 0 }

// wait prefers Retry-After, then the reset time; zero means use backoff
func (rl rateHeaders) wait(now time.Time) time.Duration {
	if rl.retryAfter > 0 {
		return time.Duration(rl.retryAfter) * time.Second
	}
	if !rl.reset.IsZero() && rl.reset.After(now) {
		return rl.reset.Sub(now)
	}
	return 0
}

func atoi(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}
