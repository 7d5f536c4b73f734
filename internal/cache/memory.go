package cache

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

type memoryEntry struct {
	profile   domain.MemberProfile
	expiresAt time.Time
}

// MemoryMemberCache is a process-local MemberCache. Expired entries are
// dropped lazily on read.
type MemoryMemberCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryMemberCache creates an empty cache. A nil clock uses time.Now.
func NewMemoryMemberCache(now func() time.Time) *MemoryMemberCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryMemberCache{entries: make(map[string]memoryEntry), now: now}
}

func (c *MemoryMemberCache) Get(ctx context.Context, objectID string) (*domain.MemberProfile, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[objectID]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.entries, objectID)
		return nil, false, nil
	}
	profile := entry.profile
	return &profile, true, nil
}

func (c *MemoryMemberCache) Set(ctx context.Context, profile domain.MemberProfile, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry := memoryEntry{profile: profile}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[profile.ObjectID] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryMemberCache) Invalidate(ctx context.Context, objectID string) error {
	c.mu.Lock()
	delete(c.entries, objectID)
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryMemberCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
