package port

//go:generate mockgen -source=idempotency_guard.go -destination=mock/idempotency_guard_mock.go -package=mock

import "context"

type IdempotencyGuard interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a key whose request did not go through
	ReleaseIdempotency(ctx context.Context, key string) error
}
