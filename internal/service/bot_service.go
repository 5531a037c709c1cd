package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"poll-service/internal/config"
	"poll-service/internal/domain"
	"poll-service/internal/middleware"
	"poll-service/internal/repository"
	"poll-service/internal/response"
)

// BotStats summarizes the current bot population
type BotStats struct {
	BotCount  int64 `json:"bot_count"`
	VoteCount int64 `json:"vote_count"`
}

// SimulationReport collects the outcome of one simulation run. Per-bot
// failures are recorded and the run continues; one broken bot never
// aborts the batch.
type SimulationReport struct {
	VotesCast int      `json:"votes_cast"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// BotService drives simulated voting traffic. Bots are ordinary
// profiles flagged is_bot; every vote they cast goes through the same
// uniqueness enforcement as a human vote.
type BotService interface {
	CreateBots(ctx context.Context, count int) ([]*domain.Profile, error)
	DeleteBots(ctx context.Context, count int) (int, error)
	ClearBotVotes(ctx context.Context) (int64, error)
	GetBotStats(ctx context.Context) (*BotStats, error)
	SimulateVoting(ctx context.Context, targetPollID *uuid.UUID) (*SimulationReport, error)
	SimulateSingleStep(ctx context.Context) (*SimulationReport, error)
}

type botServiceImpl struct {
	profileRepo repository.ProfileRepository
	voteRepo    repository.VoteRepository
	pollRepo    repository.PollRepository
	voteService VoteService
	cfg         config.BotConfig
	logger      *zap.Logger
}

// NewBotService creates a new instance of BotService
func NewBotService(
	profileRepo repository.ProfileRepository,
	voteRepo repository.VoteRepository,
	pollRepo repository.PollRepository,
	voteService VoteService,
	cfg config.BotConfig,
	logger *zap.Logger,
) BotService {
	return &botServiceImpl{
		profileRepo: profileRepo,
		voteRepo:    voteRepo,
		pollRepo:    pollRepo,
		voteService: voteService,
		cfg:         cfg,
		logger:      logger,
	}
}

// CreateBots provisions count bot profiles. A failed insert is
// recorded and provisioning continues; the bots that did come up are
// returned alongside the aggregate error.
func (s *botServiceImpl) CreateBots(ctx context.Context, count int) ([]*domain.Profile, error) {
	if count <= 0 {
		count = s.cfg.BatchSize
	}

	created := make([]*domain.Profile, 0, count)
	var failures []string
	for i := 0; i < count; i++ {
		suffix := strings.Split(uuid.New().String(), "-")[0]
		bot := &domain.Profile{
			Username: fmt.Sprintf("bot-%s", suffix),
			IsBot:    true,
		}
		if err := s.profileRepo.Create(ctx, bot); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", bot.Username, err))
			continue
		}
		created = append(created, bot)
	}

	s.logger.Info("bots created", zap.Int("count", len(created)), zap.Int("failed", len(failures)))
	if len(failures) > 0 {
		return created, response.NewAppError(response.ErrCodeInternal,
			"Some bots could not be created", strings.Join(failures, "; "))
	}
	return created, nil
}

// DeleteBots removes up to count bots, newest first. Each bot's votes
// are deleted before its profile so no orphan votes remain; a failure
// on one bot is recorded and deletion continues with the rest.
func (s *botServiceImpl) DeleteBots(ctx context.Context, count int) (int, error) {
	bots, err := s.profileRepo.FindBots(ctx)
	if err != nil {
		return 0, err
	}
	if count <= 0 || count > len(bots) {
		count = len(bots)
	}

	deleted := 0
	var failures []string
	for _, bot := range bots[:count] {
		if _, err := s.voteRepo.DeleteByVoterIDs(ctx, []uuid.UUID{bot.ID}); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", bot.Username, err))
			continue
		}
		if err := s.profileRepo.Delete(ctx, bot.ID); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", bot.Username, err))
			continue
		}
		deleted++
	}

	s.logger.Info("bots deleted", zap.Int("deleted", deleted), zap.Int("failed", len(failures)))
	if len(failures) > 0 {
		return deleted, response.NewAppError(response.ErrCodeInternal,
			"Some bots could not be deleted", strings.Join(failures, "; "))
	}
	return deleted, nil
}

// ClearBotVotes deletes every vote cast by a bot, then verifies the
// count is actually zero. A nonzero residue after deletion is a hard
// error, not a warning.
func (s *botServiceImpl) ClearBotVotes(ctx context.Context) (int64, error) {
	bots, err := s.profileRepo.FindBots(ctx)
	if err != nil {
		return 0, err
	}
	if len(bots) == 0 {
		return 0, nil
	}

	botIDs := make([]uuid.UUID, len(bots))
	for i, bot := range bots {
		botIDs[i] = bot.ID
	}

	deleted, err := s.voteRepo.DeleteByVoterIDs(ctx, botIDs)
	if err != nil {
		return 0, err
	}

	remaining, err := s.voteRepo.CountByVoterIDs(ctx, botIDs)
	if err != nil {
		return deleted, err
	}
	if remaining != 0 {
		return deleted, response.NewAppError(response.ErrCodeInternal,
			"Bot votes remain after clearing", fmt.Sprintf("%d votes left", remaining))
	}

	s.logger.Info("bot votes cleared", zap.Int64("deleted", deleted))
	return deleted, nil
}

// GetBotStats reports the bot count and their total vote count
func (s *botServiceImpl) GetBotStats(ctx context.Context) (*BotStats, error) {
	botCount, err := s.profileRepo.CountBots(ctx)
	if err != nil {
		return nil, err
	}

	bots, err := s.profileRepo.FindBots(ctx)
	if err != nil {
		return nil, err
	}
	botIDs := make([]uuid.UUID, len(bots))
	for i, bot := range bots {
		botIDs[i] = bot.ID
	}

	voteCount := int64(0)
	if len(botIDs) > 0 {
		voteCount, err = s.voteRepo.CountByVoterIDs(ctx, botIDs)
		if err != nil {
			return nil, err
		}
	}

	return &BotStats{BotCount: botCount, VoteCount: voteCount}, nil
}

// SimulateVoting walks every votable poll with every bot in shuffled
// order, casting at most one vote per bot per poll with a human-like
// pause between votes. A non-nil targetPollID scopes the run to that
// single poll. Re-running is safe: bots that already voted are
// skipped, so a second run casts nothing new.
func (s *botServiceImpl) SimulateVoting(ctx context.Context, targetPollID *uuid.UUID) (*SimulationReport, error) {
	polls, bots, err := s.loadRoster(ctx)
	if err != nil {
		return nil, err
	}

	if targetPollID != nil {
		scoped := polls[:0]
		for _, poll := range polls {
			if poll.ID == *targetPollID {
				scoped = append(scoped, poll)
			}
		}
		if len(scoped) == 0 {
			return nil, response.NewAppError(response.ErrCodeNotFound,
				"Poll not found or not open for voting", "")
		}
		polls = scoped
	}

	report := &SimulationReport{}
	for _, poll := range polls {
		for _, bot := range bots {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			default:
			}

			// Already-voted pairs skip before the pacing delay; only
			// a vote that will actually be cast pays the pause.
			if s.hasVoted(ctx, poll.ID, bot.ID) {
				report.Skipped++
				continue
			}
			if err := s.pause(ctx); err != nil {
				return report, err
			}
			s.castOne(ctx, poll, bot, report)
		}
	}

	s.logger.Info("simulation finished",
		zap.Int("votes_cast", report.VotesCast),
		zap.Int("skipped", report.Skipped),
		zap.Int("errors", len(report.Errors)))
	return report, nil
}

// SimulateSingleStep casts at most one vote: a random bot on a random
// votable poll. Useful for stepping a demo by hand.
func (s *botServiceImpl) SimulateSingleStep(ctx context.Context) (*SimulationReport, error) {
	polls, bots, err := s.loadRoster(ctx)
	if err != nil {
		return nil, err
	}

	report := &SimulationReport{}
	if len(polls) == 0 || len(bots) == 0 {
		return report, nil
	}

	s.castOne(ctx, polls[0], bots[0], report)
	return report, nil
}

// hasVoted reports whether the bot already voted on the poll. An
// advisory read; the unique index inside CastVote still settles races.
func (s *botServiceImpl) hasVoted(ctx context.Context, pollID, voterID uuid.UUID) bool {
	_, err := s.voteRepo.FindByPollAndVoter(ctx, pollID, voterID)
	return err == nil
}

// loadRoster returns votable polls and bots, both shuffled so repeated
// runs spread votes differently
func (s *botServiceImpl) loadRoster(ctx context.Context) ([]*domain.Poll, []*domain.Profile, error) {
	allPolls, err := s.pollRepo.FindAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	polls := make([]*domain.Poll, 0, len(allPolls))
	for _, poll := range allPolls {
		if poll.Votable() {
			polls = append(polls, poll)
		}
	}

	bots, err := s.profileRepo.FindBots(ctx)
	if err != nil {
		return nil, nil, err
	}

	rand.Shuffle(len(polls), func(i, j int) { polls[i], polls[j] = polls[j], polls[i] })
	rand.Shuffle(len(bots), func(i, j int) { bots[i], bots[j] = bots[j], bots[i] })
	return polls, bots, nil
}

// castOne attempts one bot vote and files the outcome into the report.
// Duplicate votes count as skips; the stored uniqueness constraint is
// the final word even if the roster raced another writer.
func (s *botServiceImpl) castOne(ctx context.Context, poll *domain.Poll, bot *domain.Profile, report *SimulationReport) {
	if len(poll.Choices) == 0 {
		report.Skipped++
		return
	}
	choice := poll.Choices[rand.Intn(len(poll.Choices))].Text

	_, err := s.voteService.CastVote(ctx, poll.ID, bot.ID, choice)
	if err != nil {
		var appErr *response.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case response.ErrCodeConflict:
				report.Skipped++
				return
			case response.ErrCodeValidation:
				report.Skipped++
				return
			}
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			report.Skipped++
			return
		}
		report.Errors = append(report.Errors,
			fmt.Sprintf("bot %s on poll %s: %v", bot.Username, poll.ID, err))
		return
	}

	middleware.RecordBotVote()
	report.VotesCast++
}

// pause sleeps a random human-like interval, abandoning the wait when
// the context is canceled
func (s *botServiceImpl) pause(ctx context.Context) error {
	min := s.cfg.MinVoteDelay
	max := s.cfg.MaxVoteDelay
	if max <= min {
		max = min + time.Millisecond
	}
	delay := min + time.Duration(rand.Int63n(int64(max-min)))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
