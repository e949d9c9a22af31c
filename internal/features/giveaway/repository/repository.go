package repository

import (
	"context"
	"errors"
	"time"

	"luvrix-giveaway-engine/internal/features/giveaway/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("record already exists")
	ErrAlreadySelected = errors.New("winner already selected for giveaway")
	ErrTxDone          = errors.New("transaction has already been committed or rolled back")
)

// Transaction is an all-or-nothing unit of work. Methods taking a
// Transaction accept nil to run outside of one.
type Transaction interface {
	Commit() error
	Rollback() error
}

type GiveawayRepository interface {
	BeginTx(ctx context.Context) (Transaction, error)

	// Create stores the giveaway with its task catalog. ErrDuplicate on slug clash.
	Create(ctx context.Context, giveaway *models.Giveaway) error
	GetByID(ctx context.Context, id string) (*models.Giveaway, error)
	GetBySlug(ctx context.Context, slug string) (*models.Giveaway, error)
	GetByIDWithLock(ctx context.Context, tx Transaction, id string) (*models.Giveaway, error)
	ListByStatus(ctx context.Context, status models.GiveawayStatus, limit, offset int) ([]*models.Giveaway, error)
	Exists(ctx context.Context, id string) (bool, error)

	// UpdateStatusIfCurrent is a compare-and-swap on the status column.
	UpdateStatusIfCurrent(ctx context.Context, tx Transaction, id string, from, to models.GiveawayStatus) (bool, error)
	UpdateEndDate(ctx context.Context, tx Transaction, id string, endDate time.Time, extensionCount int) error
}

type ParticipantRepository interface {
	// Insert creates the participant only while the giveaway is active.
	// Returns false when a record already exists or the giveaway is closed.
	// ErrDuplicate signals an invite code collision.
	Insert(ctx context.Context, tx Transaction, p *models.Participant) (bool, error)
	Get(ctx context.Context, giveawayID string, userID int64) (*models.Participant, error)
	GetForUpdate(ctx context.Context, tx Transaction, giveawayID string, userID int64) (*models.Participant, error)
	GetByInviteCode(ctx context.Context, giveawayID, code string) (*models.Participant, error)

	// AddCompletedTask records the completion once; false if already recorded.
	AddCompletedTask(ctx context.Context, tx Transaction, giveawayID string, userID int64, taskID string) (bool, error)
	// AddReferral records the referral once per referred user; false if already recorded.
	AddReferral(ctx context.Context, tx Transaction, ref *models.Referral) (bool, error)
	// UpdateProgress persists points, invite count and status.
	UpdateProgress(ctx context.Context, tx Transaction, p *models.Participant) error
	// SetStatus changes only the status column.
	SetStatus(ctx context.Context, tx Transaction, giveawayID string, userID int64, status models.ParticipantStatus) error

	// ListEligible returns eligible participants ordered by joined_at, user_id.
	ListEligible(ctx context.Context, tx Transaction, giveawayID string) ([]*models.Participant, error)
	Count(ctx context.Context, giveawayID string) (int64, error)
}

type SelectionRepository interface {
	// Create appends the audit record. ErrAlreadySelected if one exists.
	Create(ctx context.Context, tx Transaction, selection *models.WinnerSelection) error
	GetByGiveaway(ctx context.Context, giveawayID string) (*models.WinnerSelection, error)
}
