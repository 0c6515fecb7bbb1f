package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTP codes live 5 minutes; at most 10 code requests per email per 10 minutes.
const (
	CodeTTL         = 5 * time.Minute
	RateLimitWindow = 10 * time.Minute
	RateLimitMax    = 10
)

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) SetCode(ctx context.Context, email, code string) error {
	return c.cli.Set(ctx, "otp:"+email, code, CodeTTL).Err()
}

// GetCode returns the stored code, or "" when missing or expired. The key is
// only deleted after a successful verification.
func (c *Client) GetCode(ctx context.Context, email string) (string, error) {
	val, err := c.cli.Get(ctx, "otp:"+email).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *Client) DeleteCode(ctx context.Context, email string) error {
	return c.cli.Del(ctx, "otp:"+email).Err()
}

// CheckRateLimit counts requests under otp_limit:{email}; the window starts
// with the first request.
func (c *Client) CheckRateLimit(ctx context.Context, email string) (bool, error) {
	key := "otp_limit:" + email
	n, err := c.cli.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		c.cli.Expire(ctx, key, RateLimitWindow)
	}
	return n <= int64(RateLimitMax), nil
}
