package models

import "time"

type SelectionMethod string

const (
	SelectionMethodRandom SelectionMethod = "random"
	SelectionMethodManual SelectionMethod = "manual"
)

// WinnerSelection is the immutable audit record of a giveaway's winner
type WinnerSelection struct {
	ID           string          `json:"id"`
	GiveawayID   string          `json:"giveaway_id"`
	WinnerUserID int64           `json:"winner_user_id"`
	Method       SelectionMethod `json:"method"`
	SelectedBy   *int64          `json:"selected_by"` // nil for random draws
	SelectedAt   time.Time       `json:"selected_at"`
	EligiblePool []int64         `json:"eligible_pool_snapshot"`
}
