package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"luvrix-giveaway-engine/internal/features/giveaway/models"
)

func catalog() []models.Task {
	return []models.Task{
		{ID: "req", Points: 5, Required: true},
		{ID: "opt", Points: 10},
	}
}

func TestEvaluate(t *testing.T) {
	g := &models.Giveaway{RequiredPoints: 10}

	tests := []struct {
		name     string
		done     []string
		points   int
		eligible bool
		missing  []string
		short    int
	}{
		{name: "nothing done", points: 0, missing: []string{"req"}, short: 10},
		{name: "required only below threshold", done: []string{"req"}, points: 5, short: 5},
		{name: "required and optional", done: []string{"req", "opt"}, points: 15, eligible: true},
		{name: "points met but required missing", done: []string{"opt"}, points: 10, missing: []string{"req"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.Participant{CompletedTaskIDs: tt.done, Points: tt.points}
			r := Evaluate(p, g, catalog())

			assert.Equal(t, tt.eligible, r.Eligible)
			assert.Equal(t, tt.missing, r.MissingRequired)
			assert.Equal(t, tt.short, r.PointsShort)
		})
	}
}

func TestEvaluateFreeGiveaway(t *testing.T) {
	g := &models.Giveaway{RequiredPoints: 0}
	p := &models.Participant{}

	r := Evaluate(p, g, []models.Task{{ID: "opt", Points: 3}})
	assert.True(t, r.Eligible)
	assert.True(t, r.AllRequiredDone)
	assert.True(t, r.PointsMet)
}

func TestEvaluateDoesNotMutate(t *testing.T) {
	g := &models.Giveaway{RequiredPoints: 10}
	p := &models.Participant{CompletedTaskIDs: []string{"req"}, Points: 5, Status: models.ParticipantStatusParticipant}
	before := p.Clone()

	_ = Evaluate(p, g, catalog())
	_ = Evaluate(p, g, catalog())

	assert.Equal(t, before, p)
}

func TestNextStatusIsMonotonic(t *testing.T) {
	notEligible := Result{Eligible: false}
	eligible := Result{Eligible: true}

	assert.Equal(t, models.ParticipantStatusParticipant, NextStatus(models.ParticipantStatusParticipant, notEligible))
	assert.Equal(t, models.ParticipantStatusEligible, NextStatus(models.ParticipantStatusParticipant, eligible))
	assert.Equal(t, models.ParticipantStatusEligible, NextStatus(models.ParticipantStatusEligible, notEligible))
	assert.Equal(t, models.ParticipantStatusWinner, NextStatus(models.ParticipantStatusWinner, notEligible))
	assert.Equal(t, models.ParticipantStatusWinner, NextStatus(models.ParticipantStatusWinner, eligible))
}

func TestSnapshot(t *testing.T) {
	g := &models.Giveaway{RequiredPoints: 10}
	s := Snapshot(Result{Eligible: true, AllRequiredDone: true, PointsMet: true}, g)

	assert.Equal(t, 10, s.RequiredPoints)
	assert.NotNil(t, s.MissingRequired)
	assert.Empty(t, s.MissingRequired)
}
