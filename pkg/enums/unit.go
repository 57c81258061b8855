package enums

import "fmt"

// Unit is the measurement a loose product line is sold in. Prices are always quoted per kilogram.
type Unit string

const (
	UnitKilogram Unit = "kg"
	UnitGram     Unit = "g"
)

var validUnits = []Unit{
	UnitKilogram,
	UnitGram,
}

// String implements fmt.Stringer.
func (v Unit) String() string {
	return string(v)
}

// IsValid reports whether the value is a known Unit.
func (v Unit) IsValid() bool {
	for _, candidate := range validUnits {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseUnit converts raw input into a Unit.
func ParseUnit(value string) (Unit, error) {
	for _, candidate := range validUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit %q", value)
}
