package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/cache"
	"github.com/spec-kit/helpdesk-bot/internal/chat"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util/errorutil"
)

// MemberDirectory looks members up on the chat platform.
type MemberDirectory interface {
	LookupMember(ctx context.Context, objectID string) (*domain.MemberProfile, error)
}

// MemberResolver turns member ids into profiles, consulting the cache before the directory.
type MemberResolver struct {
	cache     cache.MemberCache
	directory MemberDirectory
	ttl       time.Duration
	logger    *zap.Logger
}

// NewMemberResolver creates a resolver. Without a directory, unknown ids
// resolve to a profile named after the id.
func NewMemberResolver(memberCache cache.MemberCache, directory MemberDirectory, ttl time.Duration, logger *zap.Logger) *MemberResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemberResolver{cache: memberCache, directory: directory, ttl: ttl, logger: logger}
}

// Resolve returns one expert per distinct id, in first-seen order.
func (r *MemberResolver) Resolve(ctx context.Context, objectIDs []string) ([]domain.Expert, error) {
	experts := make([]domain.Expert, 0, len(objectIDs))
	seen := make(map[string]bool, len(objectIDs))
	var unknown []string

	for _, raw := range objectIDs {
		id := strings.TrimSpace(raw)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		profile, err := r.lookup(ctx, id)
		if errors.Is(err, chat.ErrMemberNotFound) {
			unknown = append(unknown, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		experts = append(experts, profile.Expert())
	}

	if len(unknown) > 0 {
		return nil, apperrors.NewValidationError("unknown team members", map[string]any{
			"fields":  []string{"experts"},
			"members": unknown,
		})
	}
	return experts, nil
}

func (r *MemberResolver) lookup(ctx context.Context, id string) (*domain.MemberProfile, error) {
	if r.cache != nil {
		profile, ok, err := r.cache.Get(ctx, id)
		if err != nil {
			r.logger.Warn("member cache read failed", zap.String("member_id", id), zap.Error(err))
		} else if ok {
			return profile, nil
		}
	}

	if r.directory == nil {
		return &domain.MemberProfile{ObjectID: id, Name: id}, nil
	}
	profile, err := r.directory.LookupMember(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, *profile, r.ttl); err != nil {
			r.logger.Warn("member cache write failed", zap.String("member_id", id), zap.Error(err))
		}
	}
	return profile, nil
}
