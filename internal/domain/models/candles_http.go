package models

// Requests for the ops HTTP endpoints.

type LatestCandleRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,alphanum,max=20"`
	Interval string `query:"interval" json:"interval" default:"1h" validate:"required,max=4"`
}
