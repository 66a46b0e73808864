// Package fetcher downloads remote playlists and tracks which request is current.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// MaxBodySize caps downloaded playlist bodies.
const MaxBodySize = 64 << 20

// ErrSuperseded is returned when a newer fetch started before this one finished.
var ErrSuperseded = errors.New("fetcher: request superseded by a newer one")

// ErrUpstream wraps transport failures and non-200 answers from the remote host.
var ErrUpstream = errors.New("fetcher: upstream error")

// ErrTooLarge is returned when a body exceeds MaxBodySize.
var ErrTooLarge = errors.New("fetcher: response body too large")

// Fetch downloads url and returns the body.
// userAgent is optional; a zero timeout means no client timeout.
func Fetch(ctx context.Context, url string, userAgent string, timeout time.Duration) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: Do: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstream, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("ReadAll: %w", err)
	}
	if len(body) > MaxBodySize {
		return nil, ErrTooLarge
	}
	return body, nil
}

// Generation hands out monotonically increasing request tokens. Only the
// holder of the latest token may publish its result.
type Generation struct {
	n atomic.Uint64
}

// Next starts a new request and returns its token.
func (g *Generation) Next() uint64 {
	return g.n.Add(1)
}

// IsCurrent reports whether token belongs to the most recent request.
func (g *Generation) IsCurrent(token uint64) bool {
	return g.n.Load() == token
}

// Check returns ErrSuperseded when token is stale.
func (g *Generation) Check(token uint64) error {
	if !g.IsCurrent(token) {
		return ErrSuperseded
	}
	return nil
}
