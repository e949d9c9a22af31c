package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"luvrix-giveaway-engine/internal/common/cache"
	"luvrix-giveaway-engine/internal/common/config"
	apperrors "luvrix-giveaway-engine/internal/common/errors"
	"luvrix-giveaway-engine/internal/events"
	"luvrix-giveaway-engine/internal/features/giveaway/models"
	"luvrix-giveaway-engine/internal/features/giveaway/models/dto"
	"luvrix-giveaway-engine/internal/features/giveaway/repository"
	"luvrix-giveaway-engine/internal/utils/random"
)

// Deps are shared by the giveaway services. Cache and Publisher are optional.
type Deps struct {
	Giveaways    repository.GiveawayRepository
	Participants repository.ParticipantRepository
	Selections   repository.SelectionRepository
	Cache        *cache.Layered
	Publisher    events.Publisher
	Config       *config.Config
	Logger       *zap.Logger
}

type base struct {
	giveaways    repository.GiveawayRepository
	participants repository.ParticipantRepository
	selections   repository.SelectionRepository
	cache        *cache.Layered
	publisher    events.Publisher
	timeout      time.Duration
	codeLength   int
	logger       *zap.Logger
	now          func() time.Time
}

func newBase(d Deps) base {
	b := base{
		giveaways:    d.Giveaways,
		participants: d.Participants,
		selections:   d.Selections,
		cache:        d.Cache,
		publisher:    d.Publisher,
		codeLength:   8,
		logger:       d.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if d.Config != nil {
		b.timeout = d.Config.Engine.OperationTimeout
		if d.Config.Engine.InviteCodeLength > 0 {
			b.codeLength = d.Config.Engine.InviteCodeLength
		}
	}
	if b.publisher == nil {
		b.publisher = events.NewNopPublisher()
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	return b
}

func (b *base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

// publish runs after commit; a failure is logged and never undoes the write.
func (b *base) publish(ctx context.Context, e events.Event) {
	if err := b.publisher.Publish(ctx, e); err != nil {
		b.logger.Warn("Event not published",
			zap.String("type", string(e.Type)),
			zap.String("giveaway_id", e.GiveawayID),
			zap.Error(err))
	}
}

func (b *base) invalidate(ctx context.Context, g *models.Giveaway) {
	if b.cache == nil || g == nil {
		return
	}
	b.cache.Invalidate(ctx, giveawayKey(g.ID), slugKey(g.Slug))
}

func giveawayKey(id string) string {
	return "giveaway:" + id
}

func slugKey(slug string) string {
	return "giveaway:slug:" + slug
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type giveawayService struct {
	base
}

func NewGiveawayService(d Deps) GiveawayService {
	return &giveawayService{base: newBase(d)}
}

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugSanitize = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify derives a URL-safe slug from a title.
func Slugify(title string) string {
	s := slugSanitize.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	if s == "" {
		return "giveaway"
	}
	return s
}

func validateGiveaway(g *models.Giveaway) error {
	g.Title = strings.TrimSpace(g.Title)
	switch {
	case g.Title == "" || len([]rune(g.Title)) > 200:
		return apperrors.NewValidationError("title", "must be 1 to 200 characters")
	case g.RequiredPoints < 0:
		return apperrors.NewValidationError("required_points", "must not be negative")
	case g.TargetParticipants < 0:
		return apperrors.NewValidationError("target_participants", "must not be negative")
	case g.InvitePointsPerReferral < 0:
		return apperrors.NewValidationError("invite_points_per_referral", "must not be negative")
	case g.MaxExtensions < models.UnlimitedExtensions:
		return apperrors.NewValidationError("max_extensions", "must be -1 or greater")
	case g.IsOpenEnded() && g.EndDate != nil:
		return apperrors.NewValidationError("end_date", "open-ended giveaways have no end date")
	case !g.IsOpenEnded() && g.EndDate == nil:
		return apperrors.NewValidationError("end_date", "is required unless max_extensions is -1")
	case g.EndDate != nil && !g.EndDate.After(g.StartDate):
		return apperrors.NewValidationError("end_date", "must be after start_date")
	}
	for i := range g.Tasks {
		if err := g.Tasks[i].Validate(); err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("tasks[%d]", i), err.Error())
		}
	}
	return nil
}

// Create stores a draft giveaway with its task catalog.
func (s *giveawayService) Create(ctx context.Context, input *dto.GiveawayCreateRequest) (_ *models.Giveaway, err error) {
	defer observe("create", &err)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	g, err := input.ToModel()
	if err != nil {
		return nil, apperrors.NewValidationError("tasks", err.Error())
	}
	if err := validateGiveaway(g); err != nil {
		return nil, err
	}

	generated := g.Slug == ""
	if generated {
		g.Slug = Slugify(g.Title)
	}
	if !slugPattern.MatchString(g.Slug) {
		return nil, apperrors.NewValidationError("slug", "must be lowercase letters, digits and dashes")
	}

	now := s.now()
	g.ID = uuid.New().String()
	g.Status = models.GiveawayStatusDraft
	g.ExtensionCount = 0
	g.CreatedAt = now
	g.UpdatedAt = now
	for i := range g.Tasks {
		g.Tasks[i].ID = uuid.New().String()
		g.Tasks[i].GiveawayID = g.ID
		g.Tasks[i].Position = i
	}

	baseSlug := g.Slug
	for attempt := 0; ; attempt++ {
		err = s.giveaways.Create(ctx, g)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		if !generated || attempt+1 >= MaxSlugAttempts {
			return nil, apperrors.NewConflictError("slug", "already taken")
		}
		suffix, cerr := random.Code(4)
		if cerr != nil {
			return nil, apperrors.Wrap(cerr, apperrors.ErrCodeInternal, "Failed to generate slug")
		}
		g.Slug = baseSlug + "-" + strings.ToLower(suffix)
	}
	if err != nil {
		return nil, apperrors.FromPersistence("giveaway.create", err)
	}

	s.logger.Info("Giveaway created",
		zap.String("giveaway_id", g.ID),
		zap.String("slug", g.Slug),
		zap.Int("tasks", len(g.Tasks)))
	return g, nil
}

// transition moves the status forward with a compare-and-swap.
func (s *giveawayService) transition(ctx context.Context, operation, giveawayID string, to models.GiveawayStatus) (*models.Giveaway, error) {
	if !validID(giveawayID) {
		return nil, apperrors.NewGiveawayNotFoundError(giveawayID)
	}
	g, err := s.giveaways.GetByID(ctx, giveawayID)
	if err != nil {
		return nil, giveawayErr("giveaway."+operation, giveawayID, err)
	}
	if !g.Status.CanTransitionTo(to) {
		return nil, apperrors.NewInvalidStateError(operation, string(g.Status))
	}

	ok, err := s.giveaways.UpdateStatusIfCurrent(ctx, nil, giveawayID, g.Status, to)
	if err != nil {
		return nil, apperrors.FromPersistence("giveaway."+operation, err)
	}
	if !ok {
		current, err := s.giveaways.GetByID(ctx, giveawayID)
		if err != nil {
			return nil, giveawayErr("giveaway."+operation, giveawayID, err)
		}
		return nil, apperrors.NewInvalidStateError(operation, string(current.Status))
	}

	g.Status = to
	g.UpdatedAt = s.now()
	s.invalidate(ctx, g)
	return g, nil
}

func (s *giveawayService) Activate(ctx context.Context, giveawayID string) (_ *models.Giveaway, err error) {
	defer observe("activate", &err)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	g, err := s.transition(ctx, "activate", giveawayID, models.GiveawayStatusActive)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Giveaway activated", zap.String("giveaway_id", g.ID))
	s.publish(ctx, events.New(events.TypeGiveawayActivated, g.ID, 0))
	return g, nil
}

// End closes an active giveaway without a winner. Participant records are kept as they are.
func (s *giveawayService) End(ctx context.Context, giveawayID string) (_ *models.Giveaway, err error) {
	defer observe("end", &err)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	g, err := s.transition(ctx, "end", giveawayID, models.GiveawayStatusEnded)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Giveaway ended", zap.String("giveaway_id", g.ID))
	s.publish(ctx, events.New(events.TypeGiveawayEnded, g.ID, 0))
	return g, nil
}

func (s *giveawayService) Extend(ctx context.Context, giveawayID string, newEndDate time.Time) (_ *models.Giveaway, err error) {
	defer observe("extend", &err)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if !validID(giveawayID) {
		return nil, apperrors.NewGiveawayNotFoundError(giveawayID)
	}

	tx, err := s.giveaways.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.FromPersistence("giveaway.extend", err)
	}
	defer tx.Rollback()

	g, err := s.giveaways.GetByIDWithLock(ctx, tx, giveawayID)
	if err != nil {
		return nil, giveawayErr("giveaway.extend", giveawayID, err)
	}
	if g.Status != models.GiveawayStatusActive {
		return nil, apperrors.NewInvalidStateError("extend", string(g.Status))
	}
	if g.IsOpenEnded() {
		return nil, apperrors.NewValidationError("end_date", "open-ended giveaways have no end date")
	}
	if !g.CanExtend() {
		return nil, apperrors.NewInvalidStateError("extend", string(g.Status)).
			WithDetail("reason", "extension limit reached").
			WithDetail("max_extensions", g.MaxExtensions)
	}
	newEndDate = newEndDate.UTC()
	if g.EndDate != nil && !newEndDate.After(*g.EndDate) {
		return nil, apperrors.NewValidationError("end_date", "must be after the current end date")
	}

	if err := s.giveaways.UpdateEndDate(ctx, tx, giveawayID, newEndDate, g.ExtensionCount+1); err != nil {
		return nil, giveawayErr("giveaway.extend", giveawayID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.FromPersistence("giveaway.extend", err)
	}

	g.EndDate = &newEndDate
	g.ExtensionCount++
	g.UpdatedAt = s.now()
	s.invalidate(ctx, g)

	s.logger.Info("Giveaway extended",
		zap.String("giveaway_id", g.ID),
		zap.Time("end_date", newEndDate),
		zap.Int("extension_count", g.ExtensionCount))
	s.publish(ctx, events.New(events.TypeGiveawayExtended, g.ID, 0).With("end_date", newEndDate))
	return g, nil
}

func (s *giveawayService) cached(ctx context.Context, key string, load func(ctx context.Context) (*models.Giveaway, error)) (*models.Giveaway, error) {
	if s.cache == nil {
		return load(ctx)
	}
	var g models.Giveaway
	err := s.cache.GetOrLoad(ctx, key, &g, func(ctx context.Context) (interface{}, error) {
		return load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *giveawayService) GetByID(ctx context.Context, giveawayID string) (_ *models.GiveawayResponse, err error) {
	defer observe("get", &err)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if !validID(giveawayID) {
		return nil, apperrors.NewGiveawayNotFoundError(giveawayID)
	}
	g, err := s.cached(ctx, giveawayKey(giveawayID), func(ctx context.Context) (*models.Giveaway, error) {
		return s.giveaways.GetByID(ctx, giveawayID)
	})
	if err != nil {
		return nil, giveawayErr("giveaway.get", giveawayID, err)
	}
	return models.NewGiveawayResponse(g), nil
}

func (s *giveawayService) GetBySlug(ctx context.Context, slug string) (_ *models.GiveawayResponse, err error) {
	defer observe("get_by_slug", &err)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return nil, apperrors.NewNotFoundError("giveaway", slug)
	}
	g, err := s.cached(ctx, slugKey(slug), func(ctx context.Context) (*models.Giveaway, error) {
		return s.giveaways.GetBySlug(ctx, slug)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("giveaway", slug)
		}
		return nil, apperrors.FromPersistence("giveaway.get_by_slug", err)
	}
	return models.NewGiveawayResponse(g), nil
}

func (s *giveawayService) ListActive(ctx context.Context, limit, offset int) (_ []*models.GiveawayResponse, err error) {
	defer observe("list_active", &err)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	giveaways, err := s.giveaways.ListByStatus(ctx, models.GiveawayStatusActive, limit, offset)
	if err != nil {
		return nil, apperrors.FromPersistence("giveaway.list_active", err)
	}
	out := make([]*models.GiveawayResponse, 0, len(giveaways))
	for _, g := range giveaways {
		out = append(out, models.NewGiveawayResponse(g))
	}
	return out, nil
}
