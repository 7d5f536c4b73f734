package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-bot/internal/cache"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

type failingCache struct{}

func (failingCache) Get(ctx context.Context, id string) (*domain.MemberProfile, bool, error) {
	return nil, false, errors.New("cache down")
}

func (failingCache) Set(ctx context.Context, p domain.MemberProfile, ttl time.Duration) error {
	return errors.New("cache down")
}

func (failingCache) Invalidate(ctx context.Context, id string) error { return nil }

func TestMemberResolver_UsesCacheFirst(t *testing.T) {
	memberCache := cache.NewMemoryMemberCache(nil)
	_ = memberCache.Set(context.Background(), domain.MemberProfile{ObjectID: "u1", Name: "Cached"}, 0)
	dir := &fakeDirectory{profiles: map[string]domain.MemberProfile{"u1": {ObjectID: "u1", Name: "Fresh"}}}

	experts, err := NewMemberResolver(memberCache, dir, time.Hour, nil).Resolve(context.Background(), []string{"u1"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if experts[0].Name != "Cached" || dir.calls != 0 {
		t.Errorf("expected cached profile without directory call, got %+v (%d calls)", experts, dir.calls)
	}
}

func TestMemberResolver_CacheFailureFallsThrough(t *testing.T) {
	dir := &fakeDirectory{profiles: map[string]domain.MemberProfile{"u1": {ObjectID: "u1", Name: "Fresh"}}}
	experts, err := NewMemberResolver(failingCache{}, dir, time.Hour, nil).Resolve(context.Background(), []string{" u1 ", ""})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(experts) != 1 || experts[0].Name != "Fresh" {
		t.Errorf("experts = %+v", experts)
	}
}

func TestMemberResolver_NoDirectory(t *testing.T) {
	experts, err := NewMemberResolver(nil, nil, 0, nil).Resolve(context.Background(), []string{"u9"})
	if err != nil || len(experts) != 1 || experts[0].Name != "u9" {
		t.Fatalf("Resolve() = %+v, %v", experts, err)
	}
}
