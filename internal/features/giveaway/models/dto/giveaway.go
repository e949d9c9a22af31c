package dto

import (
	"encoding/json"
	"time"

	"luvrix-giveaway-engine/internal/features/giveaway/models"
)

// TaskCreateRequest describes one catalog task in a create request
type TaskCreateRequest struct {
	Type        models.TaskType `json:"type" binding:"required"`
	Title       string          `json:"title" binding:"required,min=1,max=200"`
	Description string          `json:"description" binding:"max=1000"`
	Points      int             `json:"points" binding:"required,min=1"`
	Required    bool            `json:"required"`
	Metadata    json.RawMessage `json:"metadata,omitempty" swaggertype:"object"`
}

// GiveawayCreateRequest represents the request body for creating a giveaway
type GiveawayCreateRequest struct {
	Slug                    string              `json:"slug" binding:"omitempty,max=120"`
	Title                   string              `json:"title" binding:"required,min=1,max=200"`
	Description             string              `json:"description" binding:"max=5000"`
	PrizeDetails            string              `json:"prize_details" binding:"max=2000"`
	ImageURL                string              `json:"image_url" binding:"omitempty,url"`
	StartDate               time.Time           `json:"start_date" binding:"required"`
	EndDate                 *time.Time          `json:"end_date,omitempty"`
	TargetParticipants      int                 `json:"target_participants" binding:"min=0"`
	RequiredPoints          int                 `json:"required_points" binding:"min=0"`
	InvitePointsEnabled     bool                `json:"invite_points_enabled"`
	InvitePointsPerReferral int                 `json:"invite_points_per_referral" binding:"min=0"`
	MaxExtensions           int                 `json:"max_extensions" binding:"min=-1"`
	Tasks                   []TaskCreateRequest `json:"tasks" binding:"dive"`
}

// JoinRequest carries an optional referral code
type JoinRequest struct {
	InviteCode string `json:"invite_code" binding:"omitempty,max=32"`
}

// ExtendRequest moves the end date of a timed giveaway forward
type ExtendRequest struct {
	EndDate time.Time `json:"end_date" binding:"required"`
}

// ManualWinnerRequest picks a specific eligible participant
type ManualWinnerRequest struct {
	UserID int64 `json:"user_id" binding:"required,min=1"`
}

// RedeemInviteRequest credits an inviter for a pre-validated referral
type RedeemInviteRequest struct {
	InviterUserID  int64 `json:"inviter_user_id" binding:"required,min=1"`
	ReferredUserID int64 `json:"referred_user_id" binding:"required,min=1"`
}

// ToModel converts the request into a draft giveaway with its task catalog.
func (r *GiveawayCreateRequest) ToModel() (*models.Giveaway, error) {
	g := &models.Giveaway{
		Slug:                    r.Slug,
		Title:                   r.Title,
		Description:             r.Description,
		PrizeDetails:            r.PrizeDetails,
		ImageURL:                r.ImageURL,
		StartDate:               r.StartDate,
		EndDate:                 r.EndDate,
		TargetParticipants:      r.TargetParticipants,
		RequiredPoints:          r.RequiredPoints,
		InvitePointsEnabled:     r.InvitePointsEnabled,
		InvitePointsPerReferral: r.InvitePointsPerReferral,
		MaxExtensions:           r.MaxExtensions,
	}
	for i, t := range r.Tasks {
		md, err := models.DecodeMetadata(t.Type, t.Metadata)
		if err != nil {
			return nil, err
		}
		g.Tasks = append(g.Tasks, models.Task{
			Type:        t.Type,
			Title:       t.Title,
			Description: t.Description,
			Points:      t.Points,
			Required:    t.Required,
			Position:    i,
			Metadata:    md,
		})
	}
	return g, nil
}
