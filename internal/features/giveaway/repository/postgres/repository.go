package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"luvrix-giveaway-engine/internal/features/giveaway/models"
	"luvrix-giveaway-engine/internal/features/giveaway/repository"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type postgresTransaction struct {
	tx *sql.Tx
}

func (t *postgresTransaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return repository.ErrTxDone
		}
		return err
	}
	return nil
}

// Rollback after Commit is a no-op so callers can always defer it.
func (t *postgresTransaction) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction when one is given and the pool otherwise.
func conn(db *sql.DB, tx repository.Transaction) (querier, error) {
	if tx == nil {
		return db, nil
	}
	postgresTx, ok := tx.(*postgresTransaction)
	if !ok {
		return nil, fmt.Errorf("invalid transaction type")
	}
	return postgresTx.tx, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func affected(res sql.Result) (bool, error) {
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

type giveawayRepository struct {
	db *sql.DB
}

func NewGiveawayRepository(db *sql.DB) repository.GiveawayRepository {
	return &giveawayRepository{db: db}
}

func (r *giveawayRepository) BeginTx(ctx context.Context) (repository.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &postgresTransaction{tx: tx}, nil
}

func (r *giveawayRepository) Create(ctx context.Context, giveaway *models.Giveaway) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO giveaways (id, slug, title, description, prize_details, image_url,
			start_date, end_date, status, target_participants, required_points,
			invite_points_enabled, invite_points_per_referral, max_extensions,
			extension_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	var endDate sql.NullTime
	if giveaway.EndDate != nil {
		endDate = sql.NullTime{Time: *giveaway.EndDate, Valid: true}
	}
	_, err = tx.ExecContext(ctx, query,
		giveaway.ID, giveaway.Slug, giveaway.Title, giveaway.Description, giveaway.PrizeDetails,
		giveaway.ImageURL, giveaway.StartDate, endDate, giveaway.Status, giveaway.TargetParticipants,
		giveaway.RequiredPoints, giveaway.InvitePointsEnabled, giveaway.InvitePointsPerReferral,
		giveaway.MaxExtensions, giveaway.ExtensionCount, giveaway.CreatedAt, giveaway.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create giveaway: %w", err)
	}

	for _, task := range giveaway.Tasks {
		metadata, err := task.MetadataJSON()
		if err != nil {
			return fmt.Errorf("failed to encode task metadata: %w", err)
		}
		taskQuery := `
			INSERT INTO giveaway_tasks (id, giveaway_id, type, title, description, points, required, position, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err = tx.ExecContext(ctx, taskQuery,
			task.ID, giveaway.ID, task.Type, task.Title, task.Description,
			task.Points, task.Required, task.Position, metadata)
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
	}

	return tx.Commit()
}

const giveawayColumns = `
	g.id, g.slug, g.title, g.description, g.prize_details, g.image_url, g.start_date,
	g.end_date, g.status, g.target_participants, g.required_points, g.invite_points_enabled,
	g.invite_points_per_referral, g.max_extensions, g.extension_count, g.created_at, g.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanGiveaway(row scanner, extra ...any) (*models.Giveaway, error) {
	var (
		giveaway models.Giveaway
		endDate  sql.NullTime
	)
	dest := []any{
		&giveaway.ID, &giveaway.Slug, &giveaway.Title, &giveaway.Description, &giveaway.PrizeDetails,
		&giveaway.ImageURL, &giveaway.StartDate, &endDate, &giveaway.Status, &giveaway.TargetParticipants,
		&giveaway.RequiredPoints, &giveaway.InvitePointsEnabled, &giveaway.InvitePointsPerReferral,
		&giveaway.MaxExtensions, &giveaway.ExtensionCount, &giveaway.CreatedAt, &giveaway.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if endDate.Valid {
		t := endDate.Time
		giveaway.EndDate = &t
	}
	return &giveaway, nil
}

func (r *giveawayRepository) getOne(ctx context.Context, where string, arg any) (*models.Giveaway, error) {
	query := `SELECT ` + giveawayColumns + `,
			(SELECT COUNT(*) FROM giveaway_participants p WHERE p.giveaway_id = g.id)
		FROM giveaways g
		WHERE ` + where

	var count int64
	giveaway, err := scanGiveaway(r.db.QueryRowContext(ctx, query, arg), &count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get giveaway: %w", err)
	}
	giveaway.ParticipantsCount = count

	tasks, err := r.getTasks(ctx, r.db, giveaway.ID)
	if err != nil {
		return nil, err
	}
	giveaway.Tasks = tasks
	return giveaway, nil
}

// GetByID returns the giveaway with its task catalog
func (r *giveawayRepository) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	return r.getOne(ctx, "g.id = $1", id)
}

func (r *giveawayRepository) GetBySlug(ctx context.Context, slug string) (*models.Giveaway, error) {
	return r.getOne(ctx, "g.slug = $1", slug)
}

// GetByIDWithLock returns the giveaway and locks its row
func (r *giveawayRepository) GetByIDWithLock(ctx context.Context, tx repository.Transaction, id string) (*models.Giveaway, error) {
	q, err := conn(r.db, tx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + giveawayColumns + `
		FROM giveaways g
		WHERE g.id = $1
		FOR UPDATE
	`
	giveaway, err := scanGiveaway(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock giveaway: %w", err)
	}

	tasks, err := r.getTasks(ctx, q, id)
	if err != nil {
		return nil, err
	}
	giveaway.Tasks = tasks
	return giveaway, nil
}

func (r *giveawayRepository) ListByStatus(ctx context.Context, status models.GiveawayStatus, limit, offset int) ([]*models.Giveaway, error) {
	query := `SELECT ` + giveawayColumns + `,
			(SELECT COUNT(*) FROM giveaway_participants p WHERE p.giveaway_id = g.id)
		FROM giveaways g
		WHERE g.status = $1
		ORDER BY g.start_date DESC, g.id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list giveaways: %w", err)
	}
	defer rows.Close()

	var giveaways []*models.Giveaway
	for rows.Next() {
		var count int64
		giveaway, err := scanGiveaway(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan giveaway: %w", err)
		}
		giveaway.ParticipantsCount = count
		giveaways = append(giveaways, giveaway)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate giveaways: %w", err)
	}
	return giveaways, nil
}

func (r *giveawayRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM giveaways WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check giveaway: %w", err)
	}
	return exists, nil
}

func (r *giveawayRepository) UpdateStatusIfCurrent(ctx context.Context, tx repository.Transaction, id string, from, to models.GiveawayStatus) (bool, error) {
	q, err := conn(r.db, tx)
	if err != nil {
		return false, err
	}
	res, err := q.ExecContext(ctx,
		"UPDATE giveaways SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2",
		id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update giveaway status: %w", err)
	}
	return affected(res)
}

func (r *giveawayRepository) UpdateEndDate(ctx context.Context, tx repository.Transaction, id string, endDate time.Time, extensionCount int) error {
	q, err := conn(r.db, tx)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx,
		"UPDATE giveaways SET end_date = $2, extension_count = $3, updated_at = NOW() WHERE id = $1",
		id, endDate, extensionCount)
	if err != nil {
		return fmt.Errorf("failed to update end date: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (r *giveawayRepository) getTasks(ctx context.Context, q querier, giveawayID string) ([]models.Task, error) {
	query := `
		SELECT id, giveaway_id, type, title, description, points, required, position, metadata
		FROM giveaway_tasks
		WHERE giveaway_id = $1
		ORDER BY position, id
	`
	rows, err := q.QueryContext(ctx, query, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var (
			task     models.Task
			metadata []byte
		)
		if err := rows.Scan(&task.ID, &task.GiveawayID, &task.Type, &task.Title, &task.Description,
			&task.Points, &task.Required, &task.Position, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		task.Metadata, err = models.DecodeMetadata(task.Type, metadata)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}
