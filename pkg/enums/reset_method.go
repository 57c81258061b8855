package enums

import "fmt"

// ResetMethod selects how a forgotten password is recovered.
type ResetMethod string

const (
	ResetMethodEmail ResetMethod = "email"
	ResetMethodSMS   ResetMethod = "sms"
)

var validResetMethods = []ResetMethod{
	ResetMethodEmail,
	ResetMethodSMS,
}

// String implements fmt.Stringer.
func (v ResetMethod) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ResetMethod.
func (v ResetMethod) IsValid() bool {
	for _, candidate := range validResetMethods {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseResetMethod converts raw input into a ResetMethod.
func ParseResetMethod(value string) (ResetMethod, error) {
	for _, candidate := range validResetMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reset method %q", value)
}
