// Package storage defines the OTP code store used by the user service.
// Implementations: redis.Client (production), memory.Client (-dev mode).
package storage

import "context"

type OTPStore interface {
	SetCode(ctx context.Context, email, code string) error
	GetCode(ctx context.Context, email string) (string, error)
	DeleteCode(ctx context.Context, email string) error
	CheckRateLimit(ctx context.Context, email string) (allowed bool, err error)
	Close() error
}
