package models

import "time"

// PairReport summarizes one (symbol, interval) pass.
type PairReport struct {
	Symbol      string        `json:"symbol"`
	Interval    string        `json:"interval"`
	Table       string        `json:"table"`
	WindowStart time.Time     `json:"window_start"`
	WindowEnd   time.Time     `json:"window_end"`
	Estimated   int64         `json:"estimated_intervals"`
	Paginated   bool          `json:"paginated"`
	Rounds      int           `json:"rounds"`
	Fetched     int           `json:"fetched"`
	Normalized  int           `json:"normalized"`
	Upserted    int           `json:"upserted"`
	FailedRows  int           `json:"failed_rows"`
	Partial     bool          `json:"partial"`
	LatestOpen  *time.Time    `json:"latest_open_time,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// RunReport summarizes a full pass over every configured pair.
type RunReport struct {
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
	Pairs     []PairReport  `json:"pairs"`
}

// Failed counts pairs that ended with an error.
func (r RunReport) Failed() int {
	n := 0
	for _, p := range r.Pairs {
		if p.Error != "" {
			n++
		}
	}
	return n
}
