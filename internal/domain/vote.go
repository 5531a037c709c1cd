package domain

import (
	"github.com/google/uuid"
)

// Vote is one user's single selection for one poll. The composite
// unique index on (poll_id, voter_id) is the authoritative guard for
// the one-vote-per-user-per-poll invariant; every application-side
// pre-check is an optimization only.
type Vote struct {
	BaseModel
	PollID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_poll_voter;index:idx_votes_poll_id" json:"poll_id"`
	VoterID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_poll_voter" json:"voter_id"`
	Choice  string    `gorm:"type:varchar(255);not null" json:"choice"`
}

func (Vote) TableName() string {
	return "votes"
}

// VoteResult is the derived per-choice tally for one poll. Never
// persisted, always recomputed from the current vote set.
type VoteResult struct {
	Choice     string `json:"choice"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// PollWithResults merges a poll's static fields with its aggregated
// results and the requesting user's own vote status.
type PollWithResults struct {
	Poll        Poll         `json:"poll"`
	Results     []VoteResult `json:"results"`
	TotalVotes  int          `json:"total_votes"`
	HasVoted    bool         `json:"has_voted"`
	VotedChoice string       `json:"voted_choice,omitempty"`
}
