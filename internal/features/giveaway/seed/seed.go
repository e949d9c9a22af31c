// Package seed loads giveaway catalogs from YAML and creates them through the
// giveaway service, so seeded data passes the same validation as the API.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"luvrix-giveaway-engine/internal/features/giveaway/models"
	"luvrix-giveaway-engine/internal/features/giveaway/models/dto"
	"luvrix-giveaway-engine/internal/features/giveaway/service"
)

type File struct {
	Giveaways []Giveaway `yaml:"giveaways"`
}

type Giveaway struct {
	Slug                    string `yaml:"slug"`
	Title                   string `yaml:"title"`
	Description             string `yaml:"description"`
	PrizeDetails            string `yaml:"prize_details"`
	ImageURL                string `yaml:"image_url"`
	StartDate               string `yaml:"start_date"`
	EndDate                 string `yaml:"end_date"`
	TargetParticipants      int    `yaml:"target_participants"`
	RequiredPoints          int    `yaml:"required_points"`
	InvitePointsEnabled     bool   `yaml:"invite_points_enabled"`
	InvitePointsPerReferral int    `yaml:"invite_points_per_referral"`
	MaxExtensions           int    `yaml:"max_extensions"`
	Activate                bool   `yaml:"activate"`
	Tasks                   []Task `yaml:"tasks"`
}

type Task struct {
	Type        string                 `yaml:"type"`
	Title       string                 `yaml:"title"`
	Description string                 `yaml:"description"`
	Points      int                    `yaml:"points"`
	Required    bool                   `yaml:"required"`
	Metadata    map[string]interface{} `yaml:"metadata"`
}

// Parse decodes a catalog. Unknown keys are rejected to catch typos early.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return &f, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &f, nil
}

// Request converts an entry into a create request. Dates are RFC 3339;
// an empty start date means now.
func (g Giveaway) Request(now time.Time) (*dto.GiveawayCreateRequest, error) {
	req := &dto.GiveawayCreateRequest{
		Slug:                    g.Slug,
		Title:                   g.Title,
		Description:             g.Description,
		PrizeDetails:            g.PrizeDetails,
		ImageURL:                g.ImageURL,
		StartDate:               now,
		TargetParticipants:      g.TargetParticipants,
		RequiredPoints:          g.RequiredPoints,
		InvitePointsEnabled:     g.InvitePointsEnabled,
		InvitePointsPerReferral: g.InvitePointsPerReferral,
		MaxExtensions:           g.MaxExtensions,
	}

	if g.StartDate != "" {
		start, err := time.Parse(time.RFC3339, g.StartDate)
		if err != nil {
			return nil, fmt.Errorf("start_date: %w", err)
		}
		req.StartDate = start.UTC()
	}
	if g.EndDate != "" {
		end, err := time.Parse(time.RFC3339, g.EndDate)
		if err != nil {
			return nil, fmt.Errorf("end_date: %w", err)
		}
		end = end.UTC()
		req.EndDate = &end
	}

	for i, t := range g.Tasks {
		task := dto.TaskCreateRequest{
			Type:        models.TaskType(t.Type),
			Title:       t.Title,
			Description: t.Description,
			Points:      t.Points,
			Required:    t.Required,
		}
		if len(t.Metadata) > 0 {
			raw, err := json.Marshal(t.Metadata)
			if err != nil {
				return nil, fmt.Errorf("tasks[%d].metadata: %w", i, err)
			}
			task.Metadata = raw
		}
		req.Tasks = append(req.Tasks, task)
	}
	return req, nil
}

type Result struct {
	Created []*models.Giveaway
}

// Apply creates every giveaway in order and activates the flagged ones.
// It stops at the first failure; giveaways created before it are kept.
func Apply(ctx context.Context, svc service.GiveawayService, f *File, logger *zap.Logger) (*Result, error) {
	res := &Result{}
	now := time.Now().UTC()

	for i, entry := range f.Giveaways {
		req, err := entry.Request(now)
		if err != nil {
			return res, fmt.Errorf("giveaways[%d]: %w", i, err)
		}

		g, err := svc.Create(ctx, req)
		if err != nil {
			return res, fmt.Errorf("giveaways[%d] %q: %w", i, entry.Title, err)
		}
		if entry.Activate {
			active, err := svc.Activate(ctx, g.ID)
			if err != nil {
				return res, fmt.Errorf("activate %s: %w", g.ID, err)
			}
			g = active
		}

		logger.Info("Giveaway seeded",
			zap.String("giveaway_id", g.ID),
			zap.String("slug", g.Slug),
			zap.String("status", string(g.Status)),
			zap.Int("tasks", len(g.Tasks)))
		res.Created = append(res.Created, g)
	}
	return res, nil
}
