package models

import "time"

// AnonymousDonorName replaces the donor name of anonymous supporters in projections.
const AnonymousDonorName = "Anonymous"

const (
	MaxDonorNameLength = 100
	MaxMessageLength   = 500
)

// Support is an append-only ledger entry. It never affects eligibility or selection.
type Support struct {
	ID          string    `json:"id"`
	GiveawayID  string    `json:"giveaway_id"`
	UserID      *int64    `json:"user_id,omitempty"`
	Amount      int64     `json:"amount"` // minor units
	DonorName   string    `json:"donor_name"`
	IsAnonymous bool      `json:"is_anonymous"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SupportInput is the validated input of RecordSupport
type SupportInput struct {
	GiveawayID  string
	UserID      *int64
	Amount      int64
	DonorName   string
	IsAnonymous bool
	Message     string
}

// Supporter is one row of the public projection
type Supporter struct {
	DonorName string    `json:"donor_name"`
	UserID    *int64    `json:"user_id,omitempty"`
	Amount    int64     `json:"amount"`
	Anonymous bool      `json:"anonymous"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Aggregates is the read-side projection of a giveaway's support ledger
type Aggregates struct {
	GiveawayID string      `json:"giveaway_id"`
	Total      int64       `json:"total"`
	Count      int64       `json:"count"`
	Supporters []Supporter `json:"supporters"`
}

// ToSupporter withholds identity for anonymous entries.
func (s *Support) ToSupporter() Supporter {
	if s.IsAnonymous {
		return Supporter{
			DonorName: AnonymousDonorName,
			Amount:    s.Amount,
			Anonymous: true,
			Message:   s.Message,
			CreatedAt: s.CreatedAt,
		}
	}
	return Supporter{
		DonorName: s.DonorName,
		UserID:    s.UserID,
		Amount:    s.Amount,
		Message:   s.Message,
		CreatedAt: s.CreatedAt,
	}
}

// NewAggregates projects ledger entries ordered newest first.
func NewAggregates(giveawayID string, supports []*Support) *Aggregates {
	agg := &Aggregates{GiveawayID: giveawayID, Supporters: make([]Supporter, 0, len(supports))}
	for _, s := range supports {
		agg.Total += s.Amount
		agg.Count++
		agg.Supporters = append(agg.Supporters, s.ToSupporter())
	}
	return agg
}
