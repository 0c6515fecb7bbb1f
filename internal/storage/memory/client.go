// Package memory is the in-process OTP store for -dev mode, where no Redis
// is available. Expiry is checked lazily on read.
package memory

import (
	"context"
	"sync"
	"time"
)

const (
	codeTTL         = 5 * time.Minute
	rateLimitWindow = 10 * time.Minute
	rateLimitMax    = 10
)

type item struct {
	val string
	exp time.Time
}

type Client struct {
	mu    sync.Mutex
	codes map[string]item
	limit map[string][]time.Time
}

func New() *Client {
	return &Client{
		codes: make(map[string]item),
		limit: make(map[string][]time.Time),
	}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetCode(ctx context.Context, email, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[email] = item{val: code, exp: time.Now().Add(codeTTL)}
	return nil
}

func (c *Client) GetCode(ctx context.Context, email string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.codes[email]
	if !ok || time.Now().After(v.exp) {
		return "", nil
	}
	return v.val, nil
}

func (c *Client) DeleteCode(ctx context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.codes, email)
	return nil
}

func (c *Client) CheckRateLimit(ctx context.Context, email string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	cut := now.Add(-rateLimitWindow)
	var kept []time.Time
	for _, t := range c.limit[email] {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= rateLimitMax {
		c.limit[email] = kept
		return false, nil
	}
	c.limit[email] = append(kept, now)
	return true, nil
}
