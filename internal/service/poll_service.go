package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"poll-service/internal/domain"
	"poll-service/internal/middleware"
	"poll-service/internal/realtime"
	"poll-service/internal/repository"
	"poll-service/internal/response"
)

// PollService manages the poll lifecycle and publishes change
// notifications so connected viewers converge without refreshing
type PollService interface {
	CreatePoll(ctx context.Context, creatorID uuid.UUID, question string, choices []string) (*domain.Poll, error)
	UpdateQuestion(ctx context.Context, pollID, callerID uuid.UUID, isAdmin bool, question string) (*domain.Poll, error)
	UpdateStatus(ctx context.Context, pollID, callerID uuid.UUID, isAdmin bool, status domain.PollStatus) (*domain.Poll, error)
	DeletePoll(ctx context.Context, pollID, callerID uuid.UUID, isAdmin bool) error
}

type pollServiceImpl struct {
	pollRepo  repository.PollRepository
	publisher realtime.Publisher
	logger    *zap.Logger
}

// NewPollService creates a new instance of PollService
func NewPollService(
	pollRepo repository.PollRepository,
	publisher realtime.Publisher,
	logger *zap.Logger,
) PollService {
	return &pollServiceImpl{
		pollRepo:  pollRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// validStatusTransitions describes the allowed lifecycle edges. REVIEW
// is a quarantine state entered only by the system, never by callers.
var validStatusTransitions = map[domain.PollStatus][]domain.PollStatus{
	domain.PollStatusDraft:     {domain.PollStatusScheduled, domain.PollStatusActive, domain.PollStatusRemoved},
	domain.PollStatusScheduled: {domain.PollStatusActive, domain.PollStatusRemoved},
	domain.PollStatusActive:    {domain.PollStatusEnded, domain.PollStatusRemoved},
	domain.PollStatusEnded:     {domain.PollStatusActive, domain.PollStatusRemoved},
	domain.PollStatusReview:    {domain.PollStatusRemoved},
}

// CreatePoll inserts the poll row, then its choices. If the second
// step fails, the poll is parked in REVIEW so it never surfaces as a
// votable poll with no options; a background sweep cleans it up.
func (s *pollServiceImpl) CreatePoll(ctx context.Context, creatorID uuid.UUID, question string, choices []string) (*domain.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, response.NewAppError(response.ErrCodeValidation, "Question is required", "")
	}

	seen := make(map[string]bool, len(choices))
	texts := make([]string, 0, len(choices))
	for _, choice := range choices {
		choice = strings.TrimSpace(choice)
		if choice == "" || seen[choice] {
			continue
		}
		seen[choice] = true
		texts = append(texts, choice)
	}
	if len(texts) < 2 {
		return nil, response.NewAppError(response.ErrCodeValidation, "A poll needs at least two distinct choices", "")
	}

	poll := &domain.Poll{
		CreatorID: creatorID,
		Question:  question,
		Status:    domain.PollStatusActive,
	}
	if err := s.pollRepo.Create(ctx, poll); err != nil {
		return nil, err
	}

	choiceRows := make([]*domain.Choice, len(texts))
	for i, text := range texts {
		choiceRows[i] = &domain.Choice{
			PollID:   poll.ID,
			Text:     text,
			Position: i,
		}
	}
	if err := s.pollRepo.CreateChoices(ctx, choiceRows); err != nil {
		s.logger.Error("choice insert failed after poll create, quarantining poll",
			zap.String("poll_id", poll.ID.String()), zap.Error(err))
		if markErr := s.pollRepo.UpdateStatus(ctx, poll.ID, domain.PollStatusReview); markErr != nil {
			s.logger.Error("failed to quarantine choiceless poll",
				zap.String("poll_id", poll.ID.String()), zap.Error(markErr))
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to create poll choices", "")
	}

	middleware.RecordPollCreated()
	s.publish(ctx, realtime.EventPollUpdated, poll.ID)

	return s.pollRepo.FindByID(ctx, poll.ID)
}

// UpdateQuestion changes a poll's question text
func (s *pollServiceImpl) UpdateQuestion(ctx context.Context, pollID, callerID uuid.UUID, isAdmin bool, question string) (*domain.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, response.NewAppError(response.ErrCodeValidation, "Question is required", "")
	}

	poll, err := s.loadOwned(ctx, pollID, callerID, isAdmin)
	if err != nil {
		return nil, err
	}

	poll.Question = question
	if err := s.pollRepo.Update(ctx, poll); err != nil {
		return nil, err
	}

	s.publish(ctx, realtime.EventPollUpdated, pollID)
	return poll, nil
}

// UpdateStatus moves a poll along its lifecycle. Moving to REMOVED is
// announced as a deletion so viewers drop the poll immediately.
func (s *pollServiceImpl) UpdateStatus(ctx context.Context, pollID, callerID uuid.UUID, isAdmin bool, status domain.PollStatus) (*domain.Poll, error) {
	poll, err := s.loadOwned(ctx, pollID, callerID, isAdmin)
	if err != nil {
		return nil, err
	}

	if poll.Status == status {
		return poll, nil
	}

	allowed := false
	for _, next := range validStatusTransitions[poll.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, response.NewAppError(response.ErrCodeValidation, "Invalid status transition",
			string(poll.Status)+" -> "+string(status))
	}

	if err := s.pollRepo.UpdateStatus(ctx, pollID, status); err != nil {
		return nil, err
	}
	poll.Status = status

	if status == domain.PollStatusRemoved {
		s.publish(ctx, realtime.EventPollDeleted, pollID)
	} else {
		s.publish(ctx, realtime.EventPollUpdated, pollID)
	}
	return poll, nil
}

// DeletePoll soft-deletes a poll and announces its removal
func (s *pollServiceImpl) DeletePoll(ctx context.Context, pollID, callerID uuid.UUID, isAdmin bool) error {
	if _, err := s.loadOwned(ctx, pollID, callerID, isAdmin); err != nil {
		return err
	}

	if err := s.pollRepo.SoftDelete(ctx, pollID); err != nil {
		return err
	}

	s.publish(ctx, realtime.EventPollDeleted, pollID)
	return nil
}

func (s *pollServiceImpl) loadOwned(ctx context.Context, pollID, callerID uuid.UUID, isAdmin bool) (*domain.Poll, error) {
	poll, err := s.pollRepo.FindByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Poll not found", "")
		}
		return nil, err
	}
	if !isAdmin && poll.CreatorID != callerID {
		return nil, response.NewAppError(response.ErrCodeForbidden, "Only the creator can modify this poll", "")
	}
	return poll, nil
}

func (s *pollServiceImpl) publish(ctx context.Context, kind realtime.EventKind, pollID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, realtime.ChangeEvent{Kind: kind, PollID: pollID}); err != nil {
		s.logger.Warn("failed to publish change event",
			zap.String("kind", string(kind)),
			zap.String("poll_id", pollID.String()),
			zap.Error(err))
	}
}
