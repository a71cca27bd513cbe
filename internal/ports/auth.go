package ports

import (
	"context"
	"time"
)

type IHasher interface {
	GenerateFromPassword(password []byte, cost int) ([]byte, error)
	CompareHashAndPassword(storedPaswsord []byte, userPassword []byte) error
	DefaultCost() int
}

// ITokenBlacklist remembers logged-out tokens by hash. Entries expire on
// their own once the token could no longer be used anyway.
type ITokenBlacklist interface {
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
	Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error
}
