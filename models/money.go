package models

import "github.com/shopspring/decimal"

// Stakes and balance adjustments carry at most MoneyPlaces decimals and
// payout rates and the commission rate at most RatePlaces, so every derived
// amount (stake times rate, commission, net) fits the StoredPlaces columns.
const (
	MoneyPlaces  = 2
	RatePlaces   = 2
	StoredPlaces = 4
)

// FitsPlaces reports whether d has no non-zero digit past the given place.
func FitsPlaces(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}
