package models

import "regexp"

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9]+_[0-9]+[mhdwM]$`)

// TableName returns the per-pair table name, e.g. BTCEUR_1h.
func TableName(symbol, interval string) string {
	return symbol + "_" + interval
}

// ValidateTableName rejects anything that is not a {symbol}_{interval} identifier.
// Table names are interpolated as quoted identifiers, so this is the only gate.
func ValidateTableName(name string) error {
	if !tableNameRe.MatchString(name) {
		return ErrInvalidTable
	}
	return nil
}
