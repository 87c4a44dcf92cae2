package usecase

import (
	"time"

	"CandlePull/internal/domain/models"
)

// DefaultEpoch is where history starts for a pair with an empty table.
var DefaultEpoch = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

// Plan sizes the fetch window for one pair starting from DefaultEpoch when
// the table is empty.
func Plan(latest *time.Time, now time.Time, d time.Duration) models.FetchWindow {
	return PlanSince(DefaultEpoch, latest, now, d)
}

// PlanSince is Plan with an explicit epoch. The window runs from the latest
// stored open time (or epoch) to one interval past now, so the candle that is
// still forming is included.
func PlanSince(epoch time.Time, latest *time.Time, now time.Time, d time.Duration) models.FetchWindow {
	start := epoch.UTC()
	if latest != nil {
		start = latest.UTC()
	}
	end := now.UTC().Add(d)

	var n int64
	if d > 0 && end.After(start) {
		n = int64(end.Sub(start) / d)
	}
	return models.FetchWindow{
		StartTime:          start,
		EndTime:            end,
		EstimatedIntervals: n,
	}
}
