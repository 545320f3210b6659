// Package domain defines core data structures used throughout the service.
package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidPair is returned when a symbol does not name a valid
// currency pair. It signals a caller bug or misconfiguration and is
// never masked with fallback data.
var ErrInvalidPair = errors.New("invalid currency pair")

// Pair is a currency pair, e.g. EUR/USD.
type Pair struct {
	// Base is the base currency code.
	Base string
	// Quote is the quote currency code.
	Quote string
}

// ParsePair parses a "BASE/QUOTE" symbol. Both sides must be exactly
// three uppercase letters.
func ParsePair(symbol string) (Pair, error) {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 || !isCurrencyCode(parts[0]) || !isCurrencyCode(parts[1]) {
		return Pair{}, errors.Wrap(ErrInvalidPair, symbol)
	}
	return Pair{Base: parts[0], Quote: parts[1]}, nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// String returns the "BASE/QUOTE" representation.
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// IsJPY reports whether the pair involves the Japanese yen. Yen pairs
// are quoted to fewer decimal places than the rest of the market.
func (p Pair) IsJPY() bool {
	return p.Base == "JPY" || p.Quote == "JPY"
}

// Places returns the number of decimal places quotes for this pair carry.
func (p Pair) Places() int32 {
	if p.IsJPY() {
		return 3
	}
	return 5
}
