package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"CandlePull/internal/domain/models"
	domrepo "CandlePull/internal/domain/repository"
)

// MemoryCandleStore keeps tables in process. It backs dry runs and tests.
type MemoryCandleStore struct {
	mu     sync.RWMutex
	tables map[string]map[int64]models.Candle
}

var _ domrepo.CandleStore = (*MemoryCandleStore)(nil)

func NewMemoryCandleStore() *MemoryCandleStore {
	return &MemoryCandleStore{tables: make(map[string]map[int64]models.Candle)}
}

func (s *MemoryCandleStore) TableExists(_ context.Context, table string) (bool, error) {
	if err := models.ValidateTableName(table); err != nil {
		return false, fmt.Errorf("table exists %q: %w", table, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[table]
	return ok, nil
}

func (s *MemoryCandleStore) CreateTable(_ context.Context, table string) error {
	if err := models.ValidateTableName(table); err != nil {
		return fmt.Errorf("create table %q: %w", table, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[table]; !ok {
		s.tables[table] = make(map[int64]models.Candle)
	}
	return nil
}

func (s *MemoryCandleStore) LatestOpenTime(_ context.Context, table string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		latest time.Time
		found  bool
	)
	for _, c := range s.tables[table] {
		if !found || c.OpenTime.After(latest) {
			latest, found = c.OpenTime, true
		}
	}
	return latest, found, nil
}

func (s *MemoryCandleStore) Upsert(ctx context.Context, table string, candles []models.Candle) (domrepo.UpsertResult, error) {
	var res domrepo.UpsertResult
	if err := models.ValidateTableName(table); err != nil {
		return res, fmt.Errorf("upsert %q: %w", table, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		return res, fmt.Errorf("upsert %q: table does not exist", table)
	}
	for _, c := range candles {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rows[c.OpenTime.UnixMilli()] = c
		res.Upserted++
	}
	return res, nil
}

// Rows returns a table's candles sorted by open time.
func (s *MemoryCandleStore) Rows(table string) []models.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Candle, 0, len(s.tables[table]))
	for _, c := range s.tables[table] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	return out
}

func (s *MemoryCandleStore) Health(context.Context) error { return nil }

func (s *MemoryCandleStore) Close() error { return nil }
