package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"CandlePull/internal/domain/models"
	domrepo "CandlePull/internal/domain/repository"
	"CandlePull/pkg/cache"
)

const statusKey = "sync:status"

// CacheStatusStore keeps the latest PairReport per table under one cache key.
type CacheStatusStore struct {
	cache cache.Service
	mu    sync.Mutex
}

var _ domrepo.StatusStore = (*CacheStatusStore)(nil)

func NewCacheStatusStore(c cache.Service) *CacheStatusStore {
	return &CacheStatusStore{cache: c}
}

func (s *CacheStatusStore) SaveReport(ctx context.Context, r models.PairReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := s.load(ctx)
	if err != nil {
		return err
	}
	reports[r.Table] = r
	if err := s.cache.Set(ctx, statusKey, reports, 0); err != nil {
		return fmt.Errorf("save sync status: %w", err)
	}
	return nil
}

// Reports returns the stored reports ordered by table name.
func (s *CacheStatusStore) Reports(ctx context.Context) ([]models.PairReport, error) {
	reports, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.PairReport, 0, len(reports))
	for _, r := range reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out, nil
}

func (s *CacheStatusStore) load(ctx context.Context) (map[string]models.PairReport, error) {
	reports := make(map[string]models.PairReport)
	if err := s.cache.Get(ctx, statusKey, &reports); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return make(map[string]models.PairReport), nil
		}
		return nil, fmt.Errorf("load sync status: %w", err)
	}
	return reports, nil
}
