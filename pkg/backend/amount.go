package backend

import (
	"github.com/shopspring/decimal"
)

// Amount is a monetary value exchanged with the backend. It accepts JSON
// numbers or numeric strings and is always sent as a bare JSON number.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps a decimal value.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// MarshalJSON renders the amount without quotes.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || string(data) == `""` {
		a.Decimal = decimal.Zero
		return nil
	}
	return a.Decimal.UnmarshalJSON(data)
}
