// Package memory keeps giveaway state in process. A single store-wide lock
// makes every transaction serializable, which matches the guarantees the
// postgres repositories get from row locks.
package memory

import (
	"context"
	"sort"
	"sync"

	"luvrix-giveaway-engine/internal/features/giveaway/models"
	"luvrix-giveaway-engine/internal/features/giveaway/repository"
)

type participantKey struct {
	giveawayID string
	userID     int64
}

type state struct {
	giveaways    map[string]*models.Giveaway
	slugs        map[string]string
	participants map[participantKey]*models.Participant
	inviteCodes  map[string]participantKey
	referrals    map[participantKey]*models.Referral
	selections   map[string]*models.WinnerSelection
}

func newState() *state {
	return &state{
		giveaways:    make(map[string]*models.Giveaway),
		slugs:        make(map[string]string),
		participants: make(map[participantKey]*models.Participant),
		inviteCodes:  make(map[string]participantKey),
		referrals:    make(map[participantKey]*models.Referral),
		selections:   make(map[string]*models.WinnerSelection),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.giveaways {
		c.giveaways[k] = cloneGiveaway(v)
	}
	for k, v := range s.slugs {
		c.slugs[k] = v
	}
	for k, v := range s.participants {
		c.participants[k] = v.Clone()
	}
	for k, v := range s.inviteCodes {
		c.inviteCodes[k] = v
	}
	for k, v := range s.referrals {
		ref := *v
		c.referrals[k] = &ref
	}
	for k, v := range s.selections {
		c.selections[k] = cloneSelection(v)
	}
	return c
}

// Store is the shared backing of the memory repositories.
type Store struct {
	sem   chan struct{}
	state *state
}

func NewStore() *Store {
	return &Store{
		sem:   make(chan struct{}, 1),
		state: newState(),
	}
}

func (s *Store) Giveaways() repository.GiveawayRepository {
	return &giveawayRepository{store: s}
}

func (s *Store) Participants() repository.ParticipantRepository {
	return &participantRepository{store: s}
}

func (s *Store) Selections() repository.SelectionRepository {
	return &selectionRepository{store: s}
}

func (s *Store) lock(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) unlock() {
	<-s.sem
}

// do runs fn under the store lock unless tx already holds it.
func (s *Store) do(ctx context.Context, tx repository.Transaction, fn func(st *state) error) error {
	if tx != nil {
		mt, ok := tx.(*transaction)
		if !ok || mt.store != s {
			return errInvalidTx
		}
		if mt.done {
			return repository.ErrTxDone
		}
		return fn(s.state)
	}
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()
	return fn(s.state)
}

type transaction struct {
	store    *Store
	snapshot *state
	mu       sync.Mutex
	done     bool
}

func (s *Store) begin(ctx context.Context) (repository.Transaction, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	return &transaction{store: s, snapshot: s.state.clone()}, nil
}

func (t *transaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return repository.ErrTxDone
	}
	t.done = true
	t.snapshot = nil
	t.store.unlock()
	return nil
}

// Rollback restores the state captured at begin. Calling it after Commit is a no-op.
func (t *transaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.store.state = t.snapshot
	t.snapshot = nil
	t.store.unlock()
	return nil
}

func cloneGiveaway(g *models.Giveaway) *models.Giveaway {
	c := *g
	if g.EndDate != nil {
		end := *g.EndDate
		c.EndDate = &end
	}
	c.Tasks = append([]models.Task(nil), g.Tasks...)
	return &c
}

func cloneSelection(s *models.WinnerSelection) *models.WinnerSelection {
	c := *s
	if s.SelectedBy != nil {
		v := *s.SelectedBy
		c.SelectedBy = &v
	}
	c.EligiblePool = append([]int64(nil), s.EligiblePool...)
	return &c
}

func sortParticipants(ps []*models.Participant) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].JoinedAt.Equal(ps[j].JoinedAt) {
			return ps[i].JoinedAt.Before(ps[j].JoinedAt)
		}
		return ps[i].UserID < ps[j].UserID
	})
}
