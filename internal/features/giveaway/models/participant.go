package models

import "time"

// ParticipantStatus is the eligibility state of a participant
type ParticipantStatus string

const (
	ParticipantStatusParticipant ParticipantStatus = "participant"
	ParticipantStatusEligible    ParticipantStatus = "eligible"
	ParticipantStatusWinner      ParticipantStatus = "winner"
)

// Participant is one user's entry in one giveaway
type Participant struct {
	GiveawayID       string            `json:"giveaway_id"`
	UserID           int64             `json:"user_id"`
	JoinedAt         time.Time         `json:"joined_at"`
	CompletedTaskIDs []string          `json:"completed_task_ids"`
	Points           int               `json:"points"`
	InviteCode       string            `json:"invite_code"`
	InviteCount      int               `json:"invite_count"`
	InvitedBy        *int64            `json:"invited_by,omitempty"`
	Status           ParticipantStatus `json:"status"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (p *Participant) HasCompleted(taskID string) bool {
	for _, id := range p.CompletedTaskIDs {
		if id == taskID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out of a store.
func (p *Participant) Clone() *Participant {
	c := *p
	c.CompletedTaskIDs = append([]string(nil), p.CompletedTaskIDs...)
	if p.InvitedBy != nil {
		v := *p.InvitedBy
		c.InvitedBy = &v
	}
	return &c
}

// Referral links a referred user to the participant who invited them.
// A referred user is credited at most once per giveaway.
type Referral struct {
	GiveawayID     string    `json:"giveaway_id"`
	InviterUserID  int64     `json:"inviter_user_id"`
	ReferredUserID int64     `json:"referred_user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// EligibilitySnapshot explains how far a participant is from being eligible
type EligibilitySnapshot struct {
	Eligible        bool     `json:"eligible"`
	AllRequiredDone bool     `json:"all_required_done"`
	PointsMet       bool     `json:"points_met"`
	RequiredPoints  int      `json:"required_points"`
	PointsShort     int      `json:"points_short"`
	MissingRequired []string `json:"missing_required_task_ids"`
}

// ParticipantStatusResponse is returned by the "my status" endpoint
type ParticipantStatusResponse struct {
	Participant *Participant        `json:"participant"`
	Eligibility EligibilitySnapshot `json:"eligibility"`
}
