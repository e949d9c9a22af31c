package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGiveawayStatus_Transitions(t *testing.T) {
	assert.True(t, GiveawayStatusDraft.CanTransitionTo(GiveawayStatusActive))
	assert.True(t, GiveawayStatusActive.CanTransitionTo(GiveawayStatusWinnerSelected))
	assert.True(t, GiveawayStatusActive.CanTransitionTo(GiveawayStatusEnded))

	assert.False(t, GiveawayStatusDraft.CanTransitionTo(GiveawayStatusWinnerSelected))
	assert.False(t, GiveawayStatusActive.CanTransitionTo(GiveawayStatusDraft))
	assert.False(t, GiveawayStatusEnded.CanTransitionTo(GiveawayStatusActive))
	assert.False(t, GiveawayStatusWinnerSelected.CanTransitionTo(GiveawayStatusEnded))
}

func TestGiveaway_AcceptsEntries(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		g    Giveaway
		want bool
	}{
		{name: "active timed", g: Giveaway{Status: GiveawayStatusActive, StartDate: past, EndDate: &future}, want: true},
		{name: "not started", g: Giveaway{Status: GiveawayStatusActive, StartDate: future, EndDate: &future}, want: false},
		{name: "expired", g: Giveaway{Status: GiveawayStatusActive, StartDate: past, EndDate: &past}, want: false},
		{name: "end is exclusive", g: Giveaway{Status: GiveawayStatusActive, StartDate: past, EndDate: &now}, want: false},
		{name: "open-ended", g: Giveaway{Status: GiveawayStatusActive, StartDate: past, MaxExtensions: UnlimitedExtensions}, want: true},
		{name: "draft", g: Giveaway{Status: GiveawayStatusDraft, StartDate: past, EndDate: &future}, want: false},
		{name: "ended", g: Giveaway{Status: GiveawayStatusEnded, StartDate: past, EndDate: &future}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.g.AcceptsEntries(now))
		})
	}
}

func TestGiveaway_CanExtend(t *testing.T) {
	g := Giveaway{Status: GiveawayStatusActive, MaxExtensions: 2, ExtensionCount: 1}
	assert.True(t, g.CanExtend())

	g.ExtensionCount = 2
	assert.False(t, g.CanExtend())

	g = Giveaway{Status: GiveawayStatusActive, MaxExtensions: UnlimitedExtensions}
	assert.False(t, g.CanExtend())

	g = Giveaway{Status: GiveawayStatusDraft, MaxExtensions: 3}
	assert.False(t, g.CanExtend())
}

func TestGiveaway_InvitePointsAndProgress(t *testing.T) {
	g := Giveaway{InvitePointsPerReferral: 3}
	assert.Equal(t, 0, g.InvitePoints())
	g.InvitePointsEnabled = true
	assert.Equal(t, 3, g.InvitePoints())

	assert.Zero(t, g.Progress())
	g.TargetParticipants = 4
	g.ParticipantsCount = 1
	assert.InDelta(t, 25.0, g.Progress(), 0.001)
	g.ParticipantsCount = 10
	assert.InDelta(t, 100.0, g.Progress(), 0.001)
}

func TestParticipant_Clone(t *testing.T) {
	inviter := int64(7)
	p := &Participant{UserID: 1, CompletedTaskIDs: []string{"a"}, InvitedBy: &inviter}

	c := p.Clone()
	c.CompletedTaskIDs[0] = "b"
	*c.InvitedBy = 8

	assert.Equal(t, "a", p.CompletedTaskIDs[0])
	assert.Equal(t, int64(7), *p.InvitedBy)
	assert.True(t, p.HasCompleted("a"))
	assert.False(t, p.HasCompleted("b"))
}

func TestTask_Validate(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{name: "share without metadata", task: Task{Type: TaskTypeSharePost, Title: "Share", Points: 5}},
		{name: "community with invite url", task: Task{Type: TaskTypeJoinTelegram, Title: "Join", Points: 10, Metadata: &CommunityMetadata{InviteURL: "https://t.me/luvrix"}}},
		{name: "website without url", task: Task{Type: TaskTypeVisitWebsite, Title: "Visit", Points: 1}, wantErr: true},
		{name: "zero points", task: Task{Type: TaskTypeSharePost, Title: "Share"}, wantErr: true},
		{name: "empty title", task: Task{Type: TaskTypeSharePost, Points: 1}, wantErr: true},
		{name: "unknown type", task: Task{Type: "dance", Title: "Dance", Points: 1}, wantErr: true},
		{name: "mismatched metadata", task: Task{Type: TaskTypeQuiz, Title: "Quiz", Points: 1, Metadata: &WebsiteMetadata{URL: "https://a.example"}}, wantErr: true},
		{name: "quiz with bad hash", task: Task{Type: TaskTypeQuiz, Title: "Quiz", Points: 1, Metadata: &QuizMetadata{Question: "?", AnswerHash: "zz"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTask_JSONKeepsMetadataVariant(t *testing.T) {
	in := Task{
		ID:       "t1",
		Type:     TaskTypeSocialFollow,
		Title:    "Follow",
		Points:   2,
		Metadata: &SocialMetadata{Platform: "x", URL: "https://x.com/luvrix"},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out Task
	require.NoError(t, json.Unmarshal(raw, &out))
	md, ok := out.Metadata.(*SocialMetadata)
	require.True(t, ok)
	assert.Equal(t, "https://x.com/luvrix", md.URL)
}

func TestRequiredAndFindTask(t *testing.T) {
	tasks := []Task{{ID: "a", Required: true}, {ID: "b"}, {ID: "c", Required: true}}
	assert.Equal(t, []string{"a", "c"}, RequiredTaskIDs(tasks))

	task, ok := FindTask(tasks, "b")
	require.True(t, ok)
	assert.Equal(t, "b", task.ID)

	_, ok = FindTask(tasks, "z")
	assert.False(t, ok)
}
