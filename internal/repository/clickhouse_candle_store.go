package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"CandlePull/internal/domain/models"
	domrepo "CandlePull/internal/domain/repository"
	pkgch "CandlePull/pkg/clickhouse"
	"CandlePull/pkg/logger"
)

// CHCandleStore implements CandleStore on ClickHouse. Tables are
// ReplacingMergeTree(version) ordered by open_time, so the row with the
// highest version wins for an open_time once merged; reads use FINAL.
type CHCandleStore struct {
	client   *pkgch.Client
	db       *sql.DB
	database string
	l        *logger.Logger
	version  atomic.Uint64
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)

func NewCHCandleStore(client *pkgch.Client, database string, l *logger.Logger) *CHCandleStore {
	if l == nil {
		l = logger.Nop()
	}
	s := &CHCandleStore{client: client, db: client.DB(), database: database, l: l}
	s.version.Store(uint64(time.Now().UnixNano()))
	return s
}

func (s *CHCandleStore) TableExists(ctx context.Context, table string) (bool, error) {
	if err := models.ValidateTableName(table); err != nil {
		return false, fmt.Errorf("table exists %q: %w", table, err)
	}
	const q = `SELECT count() FROM system.tables WHERE database = ? AND name = ?`
	var n uint64
	if err := s.db.QueryRowContext(ctx, q, s.database, table).Scan(&n); err != nil {
		return false, fmt.Errorf("table exists %q: %w", table, err)
	}
	return n > 0, nil
}

func (s *CHCandleStore) CreateTable(ctx context.Context, table string) error {
	if err := models.ValidateTableName(table); err != nil {
		return fmt.Errorf("create table %q: %w", table, err)
	}
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		open_time DateTime64(3, 'UTC'),
		open Decimal(38, 8),
		high Decimal(38, 8),
		low Decimal(38, 8),
		close Decimal(38, 8),
		volume Decimal(38, 8),
		close_time DateTime64(3, 'UTC'),
		quote_asset_volume Decimal(38, 8),
		number_of_trades Int64,
		taker_buy_base_asset_volume Decimal(38, 8),
		taker_buy_quote_asset_volume Decimal(38, 8),
		ignore Int64,
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	ORDER BY open_time`, chIdent(table))
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create table %q: %w", table, err)
	}
	return nil
}

func (s *CHCandleStore) LatestOpenTime(ctx context.Context, table string) (time.Time, bool, error) {
	exists, err := s.TableExists(ctx, table)
	if err != nil || !exists {
		return time.Time{}, false, err
	}
	q := fmt.Sprintf("SELECT max(open_time), count() FROM %s FINAL", chIdent(table))

	var (
		latest time.Time
		n      uint64
	)
	if err := s.db.QueryRowContext(ctx, q).Scan(&latest, &n); err != nil {
		return time.Time{}, false, fmt.Errorf("latest open time %q: %w", table, err)
	}
	if n == 0 {
		return time.Time{}, false, nil
	}
	return latest.UTC(), true, nil
}

// Upsert inserts each candle as its own statement with a fresh version.
// ClickHouse has no row transactions; a failed insert leaves nothing behind.
func (s *CHCandleStore) Upsert(ctx context.Context, table string, candles []models.Candle) (domrepo.UpsertResult, error) {
	var res domrepo.UpsertResult
	if err := models.ValidateTableName(table); err != nil {
		return res, fmt.Errorf("upsert %q: %w", table, err)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s, version) VALUES (%s)",
		chIdent(table), columnList(), strings.TrimSuffix(strings.Repeat("?, ", len(candleColumns)+1), ", "))

	for _, c := range candles {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		args := append(candleArgs(c), s.version.Add(1))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			perr := &models.PersistenceError{Table: table, OpenTime: c.OpenTime, Err: err}
			res.Failed++
			res.Errors = append(res.Errors, perr)
			s.l.Error("clickhouse upsert row failed",
				logger.String("table", table),
				logger.Time("open_time", c.OpenTime),
				logger.Error(err),
			)
			continue
		}
		res.Upserted++
	}
	return res, nil
}

func (s *CHCandleStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *CHCandleStore) Close() error {
	return s.client.Close()
}

func chIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}
