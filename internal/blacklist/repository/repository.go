package repository

import (
	"context"

	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/blacklist/domain"
)

// Repository defines persistence for revoked token ids. Revoke is an
// append-only idempotent upsert: two concurrent revocations of the same id
// both succeed and leave exactly one entry.
type Repository interface {
	// IsRevoked reports whether an unexpired entry exists for the token id.
	// Entries past their natural expiry are treated as absent even when not
	// yet purged.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// Revoke upserts an entry. Re-revoking the same id never errors; the
	// stored reason is upgraded when the new reason is more severe.
	Revoke(ctx context.Context, e *domain.Entry) error
	// Get returns the entry for the token id, or nil. Expired entries are
	// still returned; callers wanting revocation state use IsRevoked.
	Get(ctx context.Context, tokenID string) (*domain.Entry, error)
	// PurgeExpired deletes entries whose natural expiry has passed. Safe to
	// run concurrently with reads. Returns the number of entries removed.
	PurgeExpired(ctx context.Context) (int64, error)
}
