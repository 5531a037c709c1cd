package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"poll-service/internal/domain"
	"poll-service/internal/repository"
)

const (
	// choicelessGrace is how long a poll may sit without choices
	// before the sweeper treats it as an abandoned half-create
	choicelessGrace = 10 * time.Minute

	// dormantCutoff is how long an active poll may go without a vote
	// before it is moved to ENDED
	dormantCutoff = 30 * 24 * time.Hour
)

// SweeperJob cleans up polls left behind by failed two-step creates
// and winds down polls nobody votes on anymore
type SweeperJob struct {
	pollRepo repository.PollRepository
	logger   *zap.Logger
}

// NewSweeperJob creates a new SweeperJob instance
func NewSweeperJob(pollRepo repository.PollRepository, logger *zap.Logger) *SweeperJob {
	return &SweeperJob{
		pollRepo: pollRepo,
		logger:   logger,
	}
}

// Run executes one sweep
func (j *SweeperJob) Run() {
	ctx := context.Background()

	j.sweepChoiceless(ctx)
	j.sweepDormant(ctx)
}

// sweepChoiceless permanently deletes polls that still have no choices
// past the grace period. A poll with no choices can never be voted on;
// keeping it only confuses listings.
func (j *SweeperJob) sweepChoiceless(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-choicelessGrace)
	polls, err := j.pollRepo.FindChoiceless(ctx, cutoff)
	if err != nil {
		j.logger.Error("Failed to find choiceless polls", zap.Error(err))
		return
	}
	if len(polls) == 0 {
		return
	}

	deleted := 0
	for _, poll := range polls {
		if err := j.pollRepo.PermanentDelete(ctx, poll.ID); err != nil {
			j.logger.Error("Failed to delete choiceless poll",
				zap.String("poll_id", poll.ID.String()),
				zap.Error(err),
			)
			continue
		}
		deleted++
	}

	j.logger.Info("Choiceless polls swept",
		zap.Int("found", len(polls)),
		zap.Int("deleted", deleted),
	)
}

// sweepDormant moves long-inactive active polls to ENDED
func (j *SweeperJob) sweepDormant(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-dormantCutoff)
	polls, err := j.pollRepo.FindDormant(ctx, cutoff)
	if err != nil {
		j.logger.Error("Failed to find dormant polls", zap.Error(err))
		return
	}

	ended := 0
	for _, poll := range polls {
		if err := j.pollRepo.UpdateStatus(ctx, poll.ID, domain.PollStatusEnded); err != nil {
			j.logger.Error("Failed to end dormant poll",
				zap.String("poll_id", poll.ID.String()),
				zap.Error(err),
			)
			continue
		}
		ended++
	}

	if ended > 0 {
		j.logger.Info("Dormant polls ended", zap.Int("ended", ended))
	}
}
