package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"luvrix-giveaway-engine/internal/features/giveaway/models"
	"luvrix-giveaway-engine/internal/features/giveaway/repository"
)

var errInvalidTx = errors.New("invalid transaction type")

type giveawayRepository struct {
	store *Store
}

func (r *giveawayRepository) BeginTx(ctx context.Context) (repository.Transaction, error) {
	return r.store.begin(ctx)
}

func (r *giveawayRepository) Create(ctx context.Context, giveaway *models.Giveaway) error {
	return r.store.do(ctx, nil, func(st *state) error {
		if _, ok := st.slugs[giveaway.Slug]; ok {
			return repository.ErrDuplicate
		}
		if _, ok := st.giveaways[giveaway.ID]; ok {
			return repository.ErrDuplicate
		}
		st.giveaways[giveaway.ID] = cloneGiveaway(giveaway)
		st.slugs[giveaway.Slug] = giveaway.ID
		return nil
	})
}

func (st *state) countParticipants(giveawayID string) int64 {
	var n int64
	for k := range st.participants {
		if k.giveawayID == giveawayID {
			n++
		}
	}
	return n
}

func (st *state) giveaway(id string) (*models.Giveaway, error) {
	g, ok := st.giveaways[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := cloneGiveaway(g)
	c.ParticipantsCount = st.countParticipants(id)
	return c, nil
}

func (r *giveawayRepository) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	var out *models.Giveaway
	err := r.store.do(ctx, nil, func(st *state) error {
		g, err := st.giveaway(id)
		out = g
		return err
	})
	return out, err
}

func (r *giveawayRepository) GetBySlug(ctx context.Context, slug string) (*models.Giveaway, error) {
	var out *models.Giveaway
	err := r.store.do(ctx, nil, func(st *state) error {
		id, ok := st.slugs[slug]
		if !ok {
			return repository.ErrNotFound
		}
		g, err := st.giveaway(id)
		out = g
		return err
	})
	return out, err
}

// GetByIDWithLock relies on the transaction holding the store lock.
func (r *giveawayRepository) GetByIDWithLock(ctx context.Context, tx repository.Transaction, id string) (*models.Giveaway, error) {
	var out *models.Giveaway
	err := r.store.do(ctx, tx, func(st *state) error {
		g, err := st.giveaway(id)
		out = g
		return err
	})
	return out, err
}

func (r *giveawayRepository) ListByStatus(ctx context.Context, status models.GiveawayStatus, limit, offset int) ([]*models.Giveaway, error) {
	var out []*models.Giveaway
	err := r.store.do(ctx, nil, func(st *state) error {
		for id, g := range st.giveaways {
			if g.Status != status {
				continue
			}
			c := cloneGiveaway(g)
			c.Tasks = nil
			c.ParticipantsCount = st.countParticipants(id)
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *giveawayRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.store.do(ctx, nil, func(st *state) error {
		_, exists = st.giveaways[id]
		return nil
	})
	return exists, err
}

func (r *giveawayRepository) UpdateStatusIfCurrent(ctx context.Context, tx repository.Transaction, id string, from, to models.GiveawayStatus) (bool, error) {
	var swapped bool
	err := r.store.do(ctx, tx, func(st *state) error {
		g, ok := st.giveaways[id]
		if !ok || g.Status != from {
			return nil
		}
		g.Status = to
		g.UpdatedAt = time.Now().UTC()
		swapped = true
		return nil
	})
	return swapped, err
}

func (r *giveawayRepository) UpdateEndDate(ctx context.Context, tx repository.Transaction, id string, endDate time.Time, extensionCount int) error {
	return r.store.do(ctx, tx, func(st *state) error {
		g, ok := st.giveaways[id]
		if !ok {
			return repository.ErrNotFound
		}
		g.EndDate = &endDate
		g.ExtensionCount = extensionCount
		g.UpdatedAt = time.Now().UTC()
		return nil
	})
}

type participantRepository struct {
	store *Store
}

func (r *participantRepository) Insert(ctx context.Context, tx repository.Transaction, p *models.Participant) (bool, error) {
	var inserted bool
	err := r.store.do(ctx, tx, func(st *state) error {
		g, ok := st.giveaways[p.GiveawayID]
		if !ok || g.Status != models.GiveawayStatusActive {
			return nil
		}
		key := participantKey{giveawayID: p.GiveawayID, userID: p.UserID}
		if _, ok := st.participants[key]; ok {
			return nil
		}
		if _, ok := st.inviteCodes[p.InviteCode]; ok {
			return repository.ErrDuplicate
		}
		c := p.Clone()
		if c.CompletedTaskIDs == nil {
			c.CompletedTaskIDs = []string{}
		}
		c.UpdatedAt = c.JoinedAt
		st.participants[key] = c
		st.inviteCodes[p.InviteCode] = key
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *participantRepository) get(ctx context.Context, tx repository.Transaction, giveawayID string, userID int64) (*models.Participant, error) {
	var out *models.Participant
	err := r.store.do(ctx, tx, func(st *state) error {
		p, ok := st.participants[participantKey{giveawayID: giveawayID, userID: userID}]
		if !ok {
			return repository.ErrNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (r *participantRepository) Get(ctx context.Context, giveawayID string, userID int64) (*models.Participant, error) {
	return r.get(ctx, nil, giveawayID, userID)
}

func (r *participantRepository) GetForUpdate(ctx context.Context, tx repository.Transaction, giveawayID string, userID int64) (*models.Participant, error) {
	return r.get(ctx, tx, giveawayID, userID)
}

func (r *participantRepository) GetByInviteCode(ctx context.Context, giveawayID, code string) (*models.Participant, error) {
	var out *models.Participant
	err := r.store.do(ctx, nil, func(st *state) error {
		key, ok := st.inviteCodes[code]
		if !ok || key.giveawayID != giveawayID {
			return repository.ErrNotFound
		}
		out = st.participants[key].Clone()
		return nil
	})
	return out, err
}

func (r *participantRepository) AddCompletedTask(ctx context.Context, tx repository.Transaction, giveawayID string, userID int64, taskID string) (bool, error) {
	var added bool
	err := r.store.do(ctx, tx, func(st *state) error {
		p, ok := st.participants[participantKey{giveawayID: giveawayID, userID: userID}]
		if !ok {
			return repository.ErrNotFound
		}
		if p.HasCompleted(taskID) {
			return nil
		}
		p.CompletedTaskIDs = append(p.CompletedTaskIDs, taskID)
		added = true
		return nil
	})
	return added, err
}

func (r *participantRepository) AddReferral(ctx context.Context, tx repository.Transaction, ref *models.Referral) (bool, error) {
	var added bool
	err := r.store.do(ctx, tx, func(st *state) error {
		key := participantKey{giveawayID: ref.GiveawayID, userID: ref.ReferredUserID}
		if _, ok := st.referrals[key]; ok {
			return nil
		}
		c := *ref
		st.referrals[key] = &c
		added = true
		return nil
	})
	return added, err
}

func (r *participantRepository) UpdateProgress(ctx context.Context, tx repository.Transaction, p *models.Participant) error {
	return r.store.do(ctx, tx, func(st *state) error {
		stored, ok := st.participants[participantKey{giveawayID: p.GiveawayID, userID: p.UserID}]
		if !ok {
			return repository.ErrNotFound
		}
		stored.Points = p.Points
		stored.InviteCount = p.InviteCount
		stored.Status = p.Status
		stored.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *participantRepository) SetStatus(ctx context.Context, tx repository.Transaction, giveawayID string, userID int64, status models.ParticipantStatus) error {
	return r.store.do(ctx, tx, func(st *state) error {
		stored, ok := st.participants[participantKey{giveawayID: giveawayID, userID: userID}]
		if !ok {
			return repository.ErrNotFound
		}
		stored.Status = status
		stored.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *participantRepository) ListEligible(ctx context.Context, tx repository.Transaction, giveawayID string) ([]*models.Participant, error) {
	var out []*models.Participant
	err := r.store.do(ctx, tx, func(st *state) error {
		for k, p := range st.participants {
			if k.giveawayID == giveawayID && p.Status == models.ParticipantStatusEligible {
				out = append(out, p.Clone())
			}
		}
		return nil
	})
	sortParticipants(out)
	return out, err
}

func (r *participantRepository) Count(ctx context.Context, giveawayID string) (int64, error) {
	var n int64
	err := r.store.do(ctx, nil, func(st *state) error {
		n = st.countParticipants(giveawayID)
		return nil
	})
	return n, err
}

type selectionRepository struct {
	store *Store
}

func (r *selectionRepository) Create(ctx context.Context, tx repository.Transaction, selection *models.WinnerSelection) error {
	return r.store.do(ctx, tx, func(st *state) error {
		if _, ok := st.selections[selection.GiveawayID]; ok {
			return repository.ErrAlreadySelected
		}
		st.selections[selection.GiveawayID] = cloneSelection(selection)
		return nil
	})
}

func (r *selectionRepository) GetByGiveaway(ctx context.Context, giveawayID string) (*models.WinnerSelection, error) {
	var out *models.WinnerSelection
	err := r.store.do(ctx, nil, func(st *state) error {
		s, ok := st.selections[giveawayID]
		if !ok {
			return repository.ErrNotFound
		}
		out = cloneSelection(s)
		return nil
	})
	return out, err
}
