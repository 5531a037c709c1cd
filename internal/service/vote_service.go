package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"poll-service/internal/domain"
	"poll-service/internal/middleware"
	"poll-service/internal/realtime"
	"poll-service/internal/repository"
	"poll-service/internal/response"
)

// VoteService enforces the one-vote-per-user rule and publishes change
// notifications for accepted mutations
type VoteService interface {
	CastVote(ctx context.Context, pollID, voterID uuid.UUID, choice string) (*domain.Vote, error)
	RetractVote(ctx context.Context, pollID, voterID uuid.UUID) error
}

type voteServiceImpl struct {
	pollRepo  repository.PollRepository
	voteRepo  repository.VoteRepository
	publisher realtime.Publisher
	logger    *zap.Logger
}

// NewVoteService creates a new instance of VoteService
func NewVoteService(
	pollRepo repository.PollRepository,
	voteRepo repository.VoteRepository,
	publisher realtime.Publisher,
	logger *zap.Logger,
) VoteService {
	return &voteServiceImpl{
		pollRepo:  pollRepo,
		voteRepo:  voteRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// CastVote records one vote. The pre-check is advisory only; the
// unique index on (poll_id, voter_id) is authoritative under
// concurrency, so a duplicate insert surfaces as a conflict rather
// than a second vote.
func (s *voteServiceImpl) CastVote(ctx context.Context, pollID, voterID uuid.UUID, choice string) (*domain.Vote, error) {
	poll, err := s.pollRepo.FindByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Poll not found", "")
		}
		return nil, err
	}

	if !poll.Votable() {
		return nil, response.NewAppError(response.ErrCodeValidation, "Poll is not accepting votes", string(poll.Status))
	}

	valid := false
	for _, c := range poll.Choices {
		if c.Text == choice {
			valid = true
			break
		}
	}
	if !valid {
		return nil, response.NewAppError(response.ErrCodeValidation, "Choice does not belong to this poll", choice)
	}

	if existing, err := s.voteRepo.FindByPollAndVoter(ctx, pollID, voterID); err == nil && existing != nil {
		middleware.RecordVoteConflict()
		return nil, response.NewAppError(response.ErrCodeConflict, "Already voted on this poll", existing.Choice)
	}

	vote := &domain.Vote{
		PollID:  pollID,
		VoterID: voterID,
		Choice:  choice,
	}
	if err := s.voteRepo.Create(ctx, vote); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			middleware.RecordVoteConflict()
			return nil, response.NewAppError(response.ErrCodeConflict, "Already voted on this poll", "")
		}
		return nil, err
	}

	middleware.RecordVoteCast()

	if err := s.pollRepo.TouchLastVote(ctx, pollID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to touch poll last vote time",
			zap.String("poll_id", pollID.String()), zap.Error(err))
	}

	s.publish(ctx, realtime.EventVoteInserted, pollID)
	return vote, nil
}

// RetractVote removes the caller's vote from a poll
func (s *voteServiceImpl) RetractVote(ctx context.Context, pollID, voterID uuid.UUID) error {
	rows, err := s.voteRepo.DeleteByPollAndVoter(ctx, pollID, voterID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return response.NewAppError(response.ErrCodeNotFound, "No vote to retract", "")
	}

	s.publish(ctx, realtime.EventVoteDeleted, pollID)
	return nil
}

// publish pushes a change event; publishing failures degrade live
// updates but never fail the write that already committed
func (s *voteServiceImpl) publish(ctx context.Context, kind realtime.EventKind, pollID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	event := realtime.ChangeEvent{Kind: kind, PollID: pollID}
	if err := s.publisher.PublishChange(ctx, event); err != nil {
		s.logger.Warn("failed to publish change event",
			zap.String("kind", string(kind)),
			zap.String("poll_id", pollID.String()),
			zap.Error(err))
	}
}
