// Package eligibility decides whether a participant may be drawn as a winner.
// It is the only place where eligibility rules live; every ledger mutation
// calls Evaluate and then NextStatus.
package eligibility

import (
	"luvrix-giveaway-engine/internal/features/giveaway/models"
)

// Result is the outcome of evaluating one participant.
type Result struct {
	Eligible        bool
	AllRequiredDone bool
	PointsMet       bool
	MissingRequired []string
	PointsShort     int
}

// Evaluate is pure: it reads its arguments and never mutates them.
func Evaluate(p *models.Participant, g *models.Giveaway, tasks []models.Task) Result {
	done := make(map[string]struct{}, len(p.CompletedTaskIDs))
	for _, id := range p.CompletedTaskIDs {
		done[id] = struct{}{}
	}

	var missing []string
	for _, id := range models.RequiredTaskIDs(tasks) {
		if _, ok := done[id]; !ok {
			missing = append(missing, id)
		}
	}

	short := g.RequiredPoints - p.Points
	if short < 0 {
		short = 0
	}

	r := Result{
		AllRequiredDone: len(missing) == 0,
		PointsMet:       p.Points >= g.RequiredPoints,
		MissingRequired: missing,
		PointsShort:     short,
	}
	r.Eligible = r.AllRequiredDone && r.PointsMet
	return r
}

// NextStatus applies a result to the current status. Eligibility never
// reverts and the winner status is never overwritten.
func NextStatus(current models.ParticipantStatus, r Result) models.ParticipantStatus {
	switch current {
	case models.ParticipantStatusWinner, models.ParticipantStatusEligible:
		return current
	}
	if r.Eligible {
		return models.ParticipantStatusEligible
	}
	return models.ParticipantStatusParticipant
}

// Snapshot converts a result into its API representation.
func Snapshot(r Result, g *models.Giveaway) models.EligibilitySnapshot {
	missing := r.MissingRequired
	if missing == nil {
		missing = []string{}
	}
	return models.EligibilitySnapshot{
		Eligible:        r.Eligible,
		AllRequiredDone: r.AllRequiredDone,
		PointsMet:       r.PointsMet,
		RequiredPoints:  g.RequiredPoints,
		PointsShort:     r.PointsShort,
		MissingRequired: missing,
	}
}
