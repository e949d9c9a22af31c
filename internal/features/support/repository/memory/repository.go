package memory

import (
	"context"
	"sort"
	"sync"

	"luvrix-giveaway-engine/internal/features/support/models"
	"luvrix-giveaway-engine/internal/features/support/repository"
)

type supportRepository struct {
	mu       sync.RWMutex
	supports map[string][]*models.Support
	ids      map[string]struct{}
}

func NewSupportRepository() repository.SupportRepository {
	return &supportRepository{
		supports: make(map[string][]*models.Support),
		ids:      make(map[string]struct{}),
	}
}

func (r *supportRepository) Create(ctx context.Context, s *models.Support) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[s.ID]; ok {
		return repository.ErrDuplicate
	}
	c := *s
	r.ids[s.ID] = struct{}{}
	r.supports[s.GiveawayID] = append(r.supports[s.GiveawayID], &c)
	return nil
}

func (r *supportRepository) ListByGiveaway(ctx context.Context, giveawayID string) ([]*models.Support, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	entries := r.supports[giveawayID]
	out := make([]*models.Support, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		c := *entries[i]
		out = append(out, &c)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
