package domain

import (
	"time"

	"github.com/google/uuid"
)

type PollStatus string

const (
	PollStatusDraft     PollStatus = "DRAFT"
	PollStatusScheduled PollStatus = "SCHEDULED"
	PollStatusActive    PollStatus = "ACTIVE"
	PollStatusEnded     PollStatus = "ENDED"
	PollStatusReview    PollStatus = "REVIEW"
	PollStatusRemoved   PollStatus = "REMOVED"
)

// Poll represents a question users vote on
type Poll struct {
	BaseModel
	CreatorID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_polls_creator_id" json:"creator_id"`
	Question   string     `gorm:"type:varchar(500);not null" json:"question"`
	Status     PollStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index:idx_polls_status" json:"status"`
	StartsAt   *time.Time `gorm:"type:timestamp" json:"starts_at"`
	EndsAt     *time.Time `gorm:"type:timestamp" json:"ends_at"`
	LastVoteAt *time.Time `gorm:"type:timestamp;index:idx_polls_last_vote_at" json:"last_vote_at"`
	Choices    []Choice   `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE" json:"choices,omitempty"`
}

func (Poll) TableName() string {
	return "polls"
}

// Votable reports whether the poll can accept new votes.
// REMOVED and soft-deleted polls never accept votes.
func (p *Poll) Votable() bool {
	if p.DeletedAt.Valid {
		return false
	}
	return p.Status == PollStatusActive
}

// Choice is one selectable option belonging to exactly one poll.
// Position preserves insertion order, which is the display order.
type Choice struct {
	BaseModel
	PollID   uuid.UUID `gorm:"type:uuid;not null;index:idx_choices_poll_id" json:"poll_id"`
	Text     string    `gorm:"type:varchar(255);not null" json:"text"`
	Position int       `gorm:"not null;default:0" json:"position"`
}

func (Choice) TableName() string {
	return "choices"
}
