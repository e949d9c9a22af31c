package models

import (
	"time"
)

// UnlimitedExtensions marks an open-ended giveaway without an end date.
const UnlimitedExtensions = -1

// GiveawayStatus represents the lifecycle state of a giveaway
type GiveawayStatus string

const (
	GiveawayStatusDraft          GiveawayStatus = "draft"
	GiveawayStatusActive         GiveawayStatus = "active"
	GiveawayStatusWinnerSelected GiveawayStatus = "winner_selected"
	GiveawayStatusEnded          GiveawayStatus = "ended" // closed without a winner
)

// CanTransitionTo reports whether the status may move forward to next.
// Statuses never regress.
func (s GiveawayStatus) CanTransitionTo(next GiveawayStatus) bool {
	switch s {
	case GiveawayStatusDraft:
		return next == GiveawayStatusActive
	case GiveawayStatusActive:
		return next == GiveawayStatusWinnerSelected || next == GiveawayStatusEnded
	default:
		return false
	}
}

// Giveaway is a time-boxed or open-ended campaign offering a prize
type Giveaway struct {
	ID                      string         `json:"id"`
	Slug                    string         `json:"slug"`
	Title                   string         `json:"title"`
	Description             string         `json:"description"`
	PrizeDetails            string         `json:"prize_details"`
	ImageURL                string         `json:"image_url,omitempty"`
	StartDate               time.Time      `json:"start_date"`
	EndDate                 *time.Time     `json:"end_date,omitempty"` // nil for open-ended giveaways
	Status                  GiveawayStatus `json:"status"`
	TargetParticipants      int            `json:"target_participants"`
	RequiredPoints          int            `json:"required_points"`
	InvitePointsEnabled     bool           `json:"invite_points_enabled"`
	InvitePointsPerReferral int            `json:"invite_points_per_referral"`
	MaxExtensions           int            `json:"max_extensions"`
	ExtensionCount          int            `json:"extension_count"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`

	Tasks             []Task `json:"tasks,omitempty"`
	ParticipantsCount int64  `json:"participants_count"`
}

func (g *Giveaway) IsOpenEnded() bool {
	return g.MaxExtensions == UnlimitedExtensions
}

// AcceptsEntries reports whether new joins are allowed at the given moment.
func (g *Giveaway) AcceptsEntries(now time.Time) bool {
	if g.Status != GiveawayStatusActive {
		return false
	}
	if now.Before(g.StartDate) {
		return false
	}
	if g.IsOpenEnded() || g.EndDate == nil {
		return true
	}
	return now.Before(*g.EndDate)
}

// InvitePoints returns the points credited per redeemed referral.
func (g *Giveaway) InvitePoints() int {
	if !g.InvitePointsEnabled {
		return 0
	}
	return g.InvitePointsPerReferral
}

// CanExtend reports whether another extension of the end date is allowed.
func (g *Giveaway) CanExtend() bool {
	if g.IsOpenEnded() || g.Status != GiveawayStatusActive {
		return false
	}
	return g.ExtensionCount < g.MaxExtensions
}

// Progress returns participation progress against the target in percent, capped at 100.
func (g *Giveaway) Progress() float64 {
	if g.TargetParticipants <= 0 {
		return 0
	}
	p := float64(g.ParticipantsCount) / float64(g.TargetParticipants) * 100
	if p > 100 {
		return 100
	}
	return p
}

// GiveawayResponse is the public view of a giveaway
type GiveawayResponse struct {
	*Giveaway
	Progress float64 `json:"progress"`
}

func NewGiveawayResponse(g *Giveaway) *GiveawayResponse {
	return &GiveawayResponse{Giveaway: g, Progress: g.Progress()}
}
