package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"CandlePull/internal/domain/models"
	domrepo "CandlePull/internal/domain/repository"
	"CandlePull/pkg/logger"
	pkgpg "CandlePull/pkg/postgres"

	"github.com/lib/pq"
)

// pqUndefinedTable is SQLSTATE 42P01.
const pqUndefinedTable = "42P01"

// PGCandleStore implements CandleStore on Postgres with one table per pair.
type PGCandleStore struct {
	client *pkgpg.Client
	db     *sql.DB
	l      *logger.Logger
}

var _ domrepo.CandleStore = (*PGCandleStore)(nil)

func NewPGCandleStore(client *pkgpg.Client, l *logger.Logger) *PGCandleStore {
	if l == nil {
		l = logger.Nop()
	}
	return &PGCandleStore{client: client, db: client.DB(), l: l}
}

func (s *PGCandleStore) TableExists(ctx context.Context, table string) (bool, error) {
	if err := models.ValidateTableName(table); err != nil {
		return false, fmt.Errorf("table exists %q: %w", table, err)
	}
	const q = `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1
	)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("table exists %q: %w", table, err)
	}
	return exists, nil
}

func (s *PGCandleStore) CreateTable(ctx context.Context, table string) error {
	if err := models.ValidateTableName(table); err != nil {
		return fmt.Errorf("create table %q: %w", table, err)
	}
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		open_time timestamp without time zone PRIMARY KEY,
		open numeric NOT NULL,
		high numeric NOT NULL,
		low numeric NOT NULL,
		close numeric NOT NULL,
		volume numeric NOT NULL,
		close_time timestamp without time zone NOT NULL,
		quote_asset_volume numeric NOT NULL,
		number_of_trades bigint NOT NULL,
		taker_buy_base_asset_volume numeric NOT NULL,
		taker_buy_quote_asset_volume numeric NOT NULL,
		ignore bigint NOT NULL
	)`, pq.QuoteIdentifier(table))
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create table %q: %w", table, err)
	}
	return nil
}

func (s *PGCandleStore) LatestOpenTime(ctx context.Context, table string) (time.Time, bool, error) {
	if err := models.ValidateTableName(table); err != nil {
		return time.Time{}, false, fmt.Errorf("latest open time %q: %w", table, err)
	}
	q := fmt.Sprintf("SELECT max(open_time) FROM %s", pq.QuoteIdentifier(table))

	var latest sql.NullTime
	if err := s.db.QueryRowContext(ctx, q).Scan(&latest); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUndefinedTable {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("latest open time %q: %w", table, err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return asUTC(latest.Time), true, nil
}

// Upsert writes every candle in its own transaction with ON CONFLICT (open_time) DO UPDATE.
func (s *PGCandleStore) Upsert(ctx context.Context, table string, candles []models.Candle) (domrepo.UpsertResult, error) {
	var res domrepo.UpsertResult
	if err := models.ValidateTableName(table); err != nil {
		return res, fmt.Errorf("upsert %q: %w", table, err)
	}
	q := upsertStatement(table)

	for i, c := range candles {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			if i == 0 {
				return res, fmt.Errorf("upsert %q: begin: %w", table, err)
			}
			s.rowFailed(&res, table, c, err)
			continue
		}

		if _, err := tx.ExecContext(ctx, q, candleArgs(c)...); err != nil {
			_ = tx.Rollback()
			s.rowFailed(&res, table, c, err)
			continue
		}
		if err := tx.Commit(); err != nil {
			s.rowFailed(&res, table, c, err)
			continue
		}
		res.Upserted++
	}
	return res, nil
}

func (s *PGCandleStore) rowFailed(res *domrepo.UpsertResult, table string, c models.Candle, err error) {
	perr := &models.PersistenceError{Table: table, OpenTime: c.OpenTime, Err: err}
	res.Failed++
	res.Errors = append(res.Errors, perr)
	s.l.Error("postgres upsert row failed, rolled back",
		logger.String("table", table),
		logger.Time("open_time", c.OpenTime),
		logger.Error(err),
	)
}

func (s *PGCandleStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *PGCandleStore) Close() error {
	return s.client.Close()
}

func upsertStatement(table string) string {
	placeholders := make([]string, len(candleColumns))
	updates := make([]string, 0, len(candleColumns)-1)
	for i, col := range candleColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "open_time" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (open_time) DO UPDATE SET %s",
		pq.QuoteIdentifier(table),
		columnList(),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

// asUTC reinterprets a zone-less timestamp as UTC.
func asUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
