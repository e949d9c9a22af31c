package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// TaskType discriminates the task metadata variant
type TaskType string

const (
	TaskTypeSocialFollow    TaskType = "social_follow"
	TaskTypeSocialLike      TaskType = "social_like"
	TaskTypeSocialSubscribe TaskType = "social_subscribe"
	TaskTypeVisitWebsite    TaskType = "visit_website"
	TaskTypeJoinTelegram    TaskType = "join_telegram"
	TaskTypeJoinDiscord     TaskType = "join_discord"
	TaskTypeSharePost       TaskType = "share_post"
	TaskTypeInvite          TaskType = "invite"
	TaskTypeQuiz            TaskType = "quiz"
)

// TaskMetadata is the type-specific payload of a task.
type TaskMetadata interface {
	taskMetadata()
}

type SocialMetadata struct {
	Platform string `json:"platform" validate:"required,max=32"`
	URL      string `json:"url" validate:"required,url"`
}

type WebsiteMetadata struct {
	URL string `json:"url" validate:"required,url"`
}

type CommunityMetadata struct {
	InviteURL string `json:"invite_url" validate:"required,url"`
}

type SharePostMetadata struct {
	URL string `json:"url,omitempty" validate:"omitempty,url"`
}

type InviteMetadata struct{}

type QuizMetadata struct {
	Question   string   `json:"question" validate:"required,max=500"`
	Options    []string `json:"options,omitempty" validate:"omitempty,max=10,dive,required"`
	AnswerHash string   `json:"answer_hash,omitempty" validate:"omitempty,hexadecimal"`
}

func (SocialMetadata) taskMetadata()    {}
func (WebsiteMetadata) taskMetadata()   {}
func (CommunityMetadata) taskMetadata() {}
func (SharePostMetadata) taskMetadata() {}
func (InviteMetadata) taskMetadata()    {}
func (QuizMetadata) taskMetadata()      {}

// newMetadata returns an empty metadata value for the task type.
func newMetadata(t TaskType) (TaskMetadata, error) {
	switch t {
	case TaskTypeSocialFollow, TaskTypeSocialLike, TaskTypeSocialSubscribe:
		return &SocialMetadata{}, nil
	case TaskTypeVisitWebsite:
		return &WebsiteMetadata{}, nil
	case TaskTypeJoinTelegram, TaskTypeJoinDiscord:
		return &CommunityMetadata{}, nil
	case TaskTypeSharePost:
		return &SharePostMetadata{}, nil
	case TaskTypeInvite:
		return &InviteMetadata{}, nil
	case TaskTypeQuiz:
		return &QuizMetadata{}, nil
	default:
		return nil, fmt.Errorf("unknown task type: %s", t)
	}
}

// DecodeMetadata parses raw metadata for the given task type.
func DecodeMetadata(t TaskType, raw []byte) (TaskMetadata, error) {
	md, err := newMetadata(t)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, md); err != nil {
			return nil, fmt.Errorf("invalid metadata for %s: %w", t, err)
		}
	}
	return md, nil
}

// Task is a completable action belonging to one giveaway
type Task struct {
	ID          string       `json:"id"`
	GiveawayID  string       `json:"giveaway_id"`
	Type        TaskType     `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Points      int          `json:"points"`
	Required    bool         `json:"required"`
	Position    int          `json:"position"`
	Metadata    TaskMetadata `json:"-"`
}

type taskJSON struct {
	ID          string          `json:"id"`
	GiveawayID  string          `json:"giveaway_id"`
	Type        TaskType        `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Points      int             `json:"points"`
	Required    bool            `json:"required"`
	Position    int             `json:"position"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

func (t Task) MarshalJSON() ([]byte, error) {
	out := taskJSON{
		ID:          t.ID,
		GiveawayID:  t.GiveawayID,
		Type:        t.Type,
		Title:       t.Title,
		Description: t.Description,
		Points:      t.Points,
		Required:    t.Required,
		Position:    t.Position,
	}
	if t.Metadata != nil {
		raw, err := json.Marshal(t.Metadata)
		if err != nil {
			return nil, err
		}
		out.Metadata = raw
	}
	return json.Marshal(out)
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var in taskJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	md, err := DecodeMetadata(in.Type, in.Metadata)
	if err != nil {
		return err
	}
	*t = Task{
		ID:          in.ID,
		GiveawayID:  in.GiveawayID,
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
		Points:      in.Points,
		Required:    in.Required,
		Position:    in.Position,
		Metadata:    md,
	}
	return nil
}

// MetadataJSON encodes metadata for storage.
func (t *Task) MetadataJSON() ([]byte, error) {
	if t.Metadata == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t.Metadata)
}

var validate = validator.New()

// Validate checks the task fields and its metadata variant.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("task title is required")
	}
	if t.Points <= 0 {
		return fmt.Errorf("task points must be positive")
	}
	if t.Metadata == nil {
		md, err := newMetadata(t.Type)
		if err != nil {
			return err
		}
		t.Metadata = md
	} else if !metadataMatches(t.Type, t.Metadata) {
		return fmt.Errorf("metadata does not match task type %s", t.Type)
	}
	if err := validate.Struct(t.Metadata); err != nil {
		return fmt.Errorf("invalid %s metadata: %w", t.Type, err)
	}
	return nil
}

func metadataMatches(t TaskType, md TaskMetadata) bool {
	switch md.(type) {
	case SocialMetadata, *SocialMetadata:
		return t == TaskTypeSocialFollow || t == TaskTypeSocialLike || t == TaskTypeSocialSubscribe
	case WebsiteMetadata, *WebsiteMetadata:
		return t == TaskTypeVisitWebsite
	case CommunityMetadata, *CommunityMetadata:
		return t == TaskTypeJoinTelegram || t == TaskTypeJoinDiscord
	case SharePostMetadata, *SharePostMetadata:
		return t == TaskTypeSharePost
	case InviteMetadata, *InviteMetadata:
		return t == TaskTypeInvite
	case QuizMetadata, *QuizMetadata:
		return t == TaskTypeQuiz
	}
	return false
}

// RequiredTaskIDs returns ids of tasks that must be completed.
func RequiredTaskIDs(tasks []Task) []string {
	var ids []string
	for _, t := range tasks {
		if t.Required {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// FindTask returns the task with the given id.
func FindTask(tasks []Task, id string) (*Task, bool) {
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i], true
		}
	}
	return nil, false
}
