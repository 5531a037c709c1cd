package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"poll-service/internal/domain"
	"poll-service/internal/repository"
)

// SnapshotService composes polls with their aggregated results and
// the requesting user's own vote status. Read-only; never mutates
// persisted state.
type SnapshotService interface {
	GetPollWithResults(ctx context.Context, pollID uuid.UUID, viewerID *uuid.UUID) (*domain.PollWithResults, error)
	GetAllPollsWithResults(ctx context.Context, viewerID *uuid.UUID) ([]*domain.PollWithResults, error)
}

type snapshotServiceImpl struct {
	pollRepo repository.PollRepository
	voteRepo repository.VoteRepository
	logger   *zap.Logger
}

// NewSnapshotService creates a new instance of SnapshotService
func NewSnapshotService(
	pollRepo repository.PollRepository,
	voteRepo repository.VoteRepository,
	logger *zap.Logger,
) SnapshotService {
	return &snapshotServiceImpl{
		pollRepo: pollRepo,
		voteRepo: voteRepo,
		logger:   logger,
	}
}

// GetPollWithResults builds the snapshot for a single poll
func (s *snapshotServiceImpl) GetPollWithResults(ctx context.Context, pollID uuid.UUID, viewerID *uuid.UUID) (*domain.PollWithResults, error) {
	poll, err := s.pollRepo.FindByID(ctx, pollID)
	if err != nil {
		return nil, err
	}

	votes, err := s.voteRepo.FindByPollID(ctx, pollID)
	if err != nil {
		return nil, err
	}

	return s.compose(poll, votes, viewerID), nil
}

// GetAllPollsWithResults builds snapshots for every visible poll.
// Votes are fetched in one batched query, not per poll.
func (s *snapshotServiceImpl) GetAllPollsWithResults(ctx context.Context, viewerID *uuid.UUID) ([]*domain.PollWithResults, error) {
	polls, err := s.pollRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	pollIDs := make([]uuid.UUID, len(polls))
	for i, poll := range polls {
		pollIDs[i] = poll.ID
	}

	votes, err := s.voteRepo.FindByPollIDs(ctx, pollIDs)
	if err != nil {
		return nil, err
	}

	votesByPoll := make(map[uuid.UUID][]*domain.Vote, len(polls))
	for _, vote := range votes {
		votesByPoll[vote.PollID] = append(votesByPoll[vote.PollID], vote)
	}

	snapshots := make([]*domain.PollWithResults, len(polls))
	for i, poll := range polls {
		snapshots[i] = s.compose(poll, votesByPoll[poll.ID], viewerID)
	}
	return snapshots, nil
}

func (s *snapshotServiceImpl) compose(poll *domain.Poll, votes []*domain.Vote, viewerID *uuid.UUID) *domain.PollWithResults {
	choiceTexts := make([]string, len(poll.Choices))
	for i, choice := range poll.Choices {
		choiceTexts[i] = choice.Text
	}

	snapshot := &domain.PollWithResults{
		Poll:       *poll,
		Results:    Aggregate(votes, choiceTexts),
		TotalVotes: len(votes),
	}

	// Anonymous viewers never have a vote
	if viewerID != nil {
		for _, vote := range votes {
			if vote.VoterID == *viewerID {
				snapshot.HasVoted = true
				snapshot.VotedChoice = vote.Choice
				break
			}
		}
	}

	return snapshot
}
