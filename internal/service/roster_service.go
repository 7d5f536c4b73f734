package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/chat"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/events"
	"github.com/spec-kit/helpdesk-bot/internal/observability"
	"github.com/spec-kit/helpdesk-bot/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util/errorutil"
)

// RosterService maintains each team's on-call roster.
type RosterService struct {
	rosters      repository.RosterRepository
	resolver     *MemberResolver
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
	historyLimit int
	locks        *keyedMutex
}

// RosterDependencies bundles collaborators for the roster service.
type RosterDependencies struct {
	RosterRepo   repository.RosterRepository
	Resolver     *MemberResolver
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        func() time.Time
	HistoryLimit int
}

// RosterUpdateResult is the saved roster and what to render for it.
type RosterUpdateResult struct {
	Roster      *domain.OnCallRoster
	Snapshot    []domain.OnCallRoster
	MentionText string
	Mentions    []chat.Mention
}

// NewRosterService constructs the service.
func NewRosterService(deps RosterDependencies) *RosterService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := deps.HistoryLimit
	if limit <= 0 {
		limit = DefaultRosterHistoryLimit
	}
	return &RosterService{
		rosters:      deps.RosterRepo,
		resolver:     deps.Resolver,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       logger,
		now:          clock,
		historyLimit: limit,
		locks:        newKeyedMutex(),
	}
}

// Update replaces the team's on-call experts and publishes roster.updated.
func (s *RosterService) Update(ctx context.Context, teamID string, expertIDs []string, actor domain.Identity) (*RosterUpdateResult, error) {
	result, err := s.updateLocked(ctx, teamID, expertIDs, actor)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRosterUpdate()

	event := events.NewEvent(events.EventRosterUpdated, actor, result.Roster.ModifiedOn, events.RosterUpdatedPayload{
		Roster:      result.Roster.Clone(),
		Snapshot:    result.Snapshot,
		MentionText: result.MentionText,
		Mentions:    result.Mentions,
	})
	event.TeamID = teamID
	if s.dispatcher != nil {
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.String("team_id", teamID), zap.Error(err))
		}
	}
	return result, nil
}

func (s *RosterService) updateLocked(ctx context.Context, teamID string, expertIDs []string, actor domain.Identity) (*RosterUpdateResult, error) {
	unlock := s.locks.Lock(teamID)
	defer unlock()

	experts, err := s.resolver.Resolve(ctx, expertIDs)
	if err != nil {
		return nil, err
	}

	current, err := s.current(ctx, teamID)
	if err != nil {
		return nil, err
	}

	next := UpdateRoster(current, experts, actor, s.now())
	next.TeamID = teamID
	if next.OnCallSupportID == "" {
		next.OnCallSupportID = uuid.NewString()
	}

	if err := ctx.Err(); err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	if err := s.rosters.Save(ctx, next); err != nil {
		return nil, rosterStoreError(teamID, err)
	}

	history, err := s.rosters.History(ctx, teamID, s.historyLimit)
	if err != nil {
		return nil, rosterStoreError(teamID, err)
	}
	text, mentions := MentionPayload(next.Experts)
	return &RosterUpdateResult{
		Roster:      next,
		Snapshot:    BuildDisplaySnapshot(*next, history, s.historyLimit),
		MentionText: text,
		Mentions:    mentions,
	}, nil
}

// Current returns the team's roster.
func (s *RosterService) Current(ctx context.Context, teamID string) (*domain.OnCallRoster, error) {
	roster, err := s.current(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if roster == nil {
		return nil, apperrors.NewNotFound("roster", map[string]any{"team_id": teamID})
	}
	return roster, nil
}

// Snapshot returns the current roster followed by recent history.
func (s *RosterService) Snapshot(ctx context.Context, teamID string) ([]domain.OnCallRoster, error) {
	current, err := s.Current(ctx, teamID)
	if err != nil {
		return nil, err
	}
	history, err := s.rosters.History(ctx, teamID, s.historyLimit)
	if err != nil {
		return nil, rosterStoreError(teamID, err)
	}
	return BuildDisplaySnapshot(*current, history, s.historyLimit), nil
}

// RecordCardMessage stores where the roster card was posted.
func (s *RosterService) RecordCardMessage(ctx context.Context, teamID string, ref chat.MessageRef) error {
	if err := s.rosters.UpdateCardLinkage(ctx, teamID, ref.ConversationID, ref.ActivityID); err != nil {
		return rosterStoreError(teamID, err)
	}
	return nil
}

func (s *RosterService) current(ctx context.Context, teamID string) (*domain.OnCallRoster, error) {
	roster, err := s.rosters.Current(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, rosterStoreError(teamID, err)
	}
	return roster, nil
}

func rosterStoreError(teamID string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("roster", map[string]any{"team_id": teamID})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.ToDomainError(err)
	default:
		return apperrors.NewPersistenceError(err)
	}
}
