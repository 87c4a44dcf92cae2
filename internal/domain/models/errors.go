package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInterval matches any *InvalidIntervalError.
	ErrInvalidInterval = errors.New("invalid interval")
	// ErrFetchFailed matches any *FetchFailedError.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrPersistence matches any *PersistenceError.
	ErrPersistence = errors.New("persistence failed")
	// ErrInvalidTable is returned for table names that do not follow {symbol}_{interval}.
	ErrInvalidTable = errors.New("invalid table name")
)

// InvalidIntervalError reports a malformed interval code.
type InvalidIntervalError struct {
	Code   string
	Reason string
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval %q: %s", e.Code, e.Reason)
}

func (e *InvalidIntervalError) Is(target error) bool { return target == ErrInvalidInterval }

// FetchFailedError reports a page request that exhausted its retry budget
// or failed at the transport level.
type FetchFailedError struct {
	Symbol     string
	Interval   string
	Attempts   int
	StatusCode int
	Err        error
}

func (e *FetchFailedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s %s failed after %d attempts (status %d): %v",
			e.Symbol, e.Interval, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s %s failed after %d attempts: %v", e.Symbol, e.Interval, e.Attempts, e.Err)
}

func (e *FetchFailedError) Unwrap() error { return e.Err }

func (e *FetchFailedError) Is(target error) bool { return target == ErrFetchFailed }

// PersistenceError reports a single row that could not be written.
type PersistenceError struct {
	Table    string
	OpenTime time.Time
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("upsert %s open_time=%s: %v", e.Table, e.OpenTime.Format(time.RFC3339), e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
