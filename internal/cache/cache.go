package cache

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

// MemberCache stores resolved member profiles for a limited time.
type MemberCache interface {
	// Get returns the cached profile and whether it was present.
	Get(ctx context.Context, objectID string) (*domain.MemberProfile, bool, error)
	// Set stores profile for ttl. A non-positive ttl keeps the entry until invalidated.
	Set(ctx context.Context, profile domain.MemberProfile, ttl time.Duration) error
	Invalidate(ctx context.Context, objectID string) error
}
