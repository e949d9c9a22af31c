package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"luvrix-giveaway-engine/internal/features/giveaway/models"
	"luvrix-giveaway-engine/internal/features/giveaway/repository"

	"github.com/lib/pq"
)

type participantRepository struct {
	db *sql.DB
}

func NewParticipantRepository(db *sql.DB) repository.ParticipantRepository {
	return &participantRepository{db: db}
}

const participantColumns = `
	p.giveaway_id, p.user_id, p.joined_at, p.points, p.invite_code, p.invite_count,
	p.invited_by, p.status, p.updated_at,
	ARRAY(SELECT t.task_id::text FROM giveaway_participant_tasks t
		WHERE t.giveaway_id = p.giveaway_id AND t.user_id = p.user_id
		ORDER BY t.completed_at, t.task_id)`

func scanParticipant(row scanner) (*models.Participant, error) {
	var (
		p         models.Participant
		invitedBy sql.NullInt64
	)
	err := row.Scan(&p.GiveawayID, &p.UserID, &p.JoinedAt, &p.Points, &p.InviteCode, &p.InviteCount,
		&invitedBy, &p.Status, &p.UpdatedAt, pq.Array(&p.CompletedTaskIDs))
	if err != nil {
		return nil, err
	}
	if invitedBy.Valid {
		v := invitedBy.Int64
		p.InvitedBy = &v
	}
	if p.CompletedTaskIDs == nil {
		p.CompletedTaskIDs = []string{}
	}
	return &p, nil
}

// Insert adds the participant only while the giveaway is active
func (r *participantRepository) Insert(ctx context.Context, tx repository.Transaction, p *models.Participant) (bool, error) {
	q, err := conn(r.db, tx)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO giveaway_participants (giveaway_id, user_id, joined_at, points, invite_code,
			invite_count, invited_by, status, updated_at)
		SELECT $1, $2, $3, $4, $5, 0, $6, $7, $3
		WHERE EXISTS (SELECT 1 FROM giveaways WHERE id = $1 AND status = 'active')
		ON CONFLICT (giveaway_id, user_id) DO NOTHING
	`
	var invitedBy sql.NullInt64
	if p.InvitedBy != nil {
		invitedBy = sql.NullInt64{Int64: *p.InvitedBy, Valid: true}
	}
	res, err := q.ExecContext(ctx, query,
		p.GiveawayID, p.UserID, p.JoinedAt, p.Points, p.InviteCode, invitedBy, p.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return false, repository.ErrDuplicate
		}
		return false, fmt.Errorf("failed to add participant: %w", err)
	}
	return affected(res)
}

func (r *participantRepository) getOne(ctx context.Context, q querier, suffix string, args ...any) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + `
		FROM giveaway_participants p
		` + suffix
	p, err := scanParticipant(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (r *participantRepository) Get(ctx context.Context, giveawayID string, userID int64) (*models.Participant, error) {
	return r.getOne(ctx, r.db, "WHERE p.giveaway_id = $1 AND p.user_id = $2", giveawayID, userID)
}

// GetForUpdate locks the participant row until the transaction ends
func (r *participantRepository) GetForUpdate(ctx context.Context, tx repository.Transaction, giveawayID string, userID int64) (*models.Participant, error) {
	q, err := conn(r.db, tx)
	if err != nil {
		return nil, err
	}
	return r.getOne(ctx, q, "WHERE p.giveaway_id = $1 AND p.user_id = $2 FOR UPDATE OF p", giveawayID, userID)
}

func (r *participantRepository) GetByInviteCode(ctx context.Context, giveawayID, code string) (*models.Participant, error) {
	return r.getOne(ctx, r.db, "WHERE p.giveaway_id = $1 AND p.invite_code = $2", giveawayID, code)
}

func (r *participantRepository) AddCompletedTask(ctx context.Context, tx repository.Transaction, giveawayID string, userID int64, taskID string) (bool, error) {
	q, err := conn(r.db, tx)
	if err != nil {
		return false, err
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO giveaway_participant_tasks (giveaway_id, user_id, task_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, giveawayID, userID, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to record task completion: %w", err)
	}
	return affected(res)
}

func (r *participantRepository) AddReferral(ctx context.Context, tx repository.Transaction, ref *models.Referral) (bool, error) {
	q, err := conn(r.db, tx)
	if err != nil {
		return false, err
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO giveaway_referrals (giveaway_id, referred_user_id, inviter_user_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (giveaway_id, referred_user_id) DO NOTHING
	`, ref.GiveawayID, ref.ReferredUserID, ref.InviterUserID, ref.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to record referral: %w", err)
	}
	return affected(res)
}

func (r *participantRepository) UpdateProgress(ctx context.Context, tx repository.Transaction, p *models.Participant) error {
	q, err := conn(r.db, tx)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `
		UPDATE giveaway_participants
		SET points = $3, invite_count = $4, status = $5, updated_at = NOW()
		WHERE giveaway_id = $1 AND user_id = $2
	`, p.GiveawayID, p.UserID, p.Points, p.InviteCount, p.Status)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
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

func (r *participantRepository) SetStatus(ctx context.Context, tx repository.Transaction, giveawayID string, userID int64, status models.ParticipantStatus) error {
	q, err := conn(r.db, tx)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx,
		"UPDATE giveaway_participants SET status = $3, updated_at = NOW() WHERE giveaway_id = $1 AND user_id = $2",
		giveawayID, userID, status)
	if err != nil {
		return fmt.Errorf("failed to update participant status: %w", err)
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

func (r *participantRepository) ListEligible(ctx context.Context, tx repository.Transaction, giveawayID string) ([]*models.Participant, error) {
	q, err := conn(r.db, tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + participantColumns + `
		FROM giveaway_participants p
		WHERE p.giveaway_id = $1 AND p.status = 'eligible'
		ORDER BY p.joined_at, p.user_id
	`
	rows, err := q.QueryContext(ctx, query, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

func (r *participantRepository) Count(ctx context.Context, giveawayID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM giveaway_participants WHERE giveaway_id = $1", giveawayID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get participants count: %w", err)
	}
	return count, nil
}
