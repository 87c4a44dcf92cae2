package models

import (
	"math"
	"strconv"
	"time"
)

// unitMinutes maps an interval unit letter to its length in minutes.
// "M" is treated as a 31-day month.
var unitMinutes = map[byte]int64{
	'm': 1,
	'h': 60,
	'd': 60 * 24,
	'w': 60 * 24 * 7,
	'M': 60 * 24 * 31,
}

// ToDuration converts an interval code such as "15m", "4h" or "1M" into a duration.
func ToDuration(code string) (time.Duration, error) {
	if len(code) < 2 {
		return 0, &InvalidIntervalError{Code: code, Reason: "too short"}
	}
	unit := code[len(code)-1]
	mult, ok := unitMinutes[unit]
	if !ok {
		return 0, &InvalidIntervalError{Code: code, Reason: "unknown unit " + strconv.Quote(string(unit))}
	}
	digits := code[:len(code)-1]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, &InvalidIntervalError{Code: code, Reason: "count must be digits"}
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, &InvalidIntervalError{Code: code, Reason: err.Error()}
	}
	if n == 0 {
		return 0, &InvalidIntervalError{Code: code, Reason: "count must be positive"}
	}
	if n > math.MaxInt64/int64(time.Minute)/mult {
		return 0, &InvalidIntervalError{Code: code, Reason: "count out of range"}
	}
	return time.Duration(n*mult) * time.Minute, nil
}
