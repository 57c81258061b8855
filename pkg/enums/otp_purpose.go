package enums

import "fmt"

// OTPPurpose records what a verified code unlocks.
type OTPPurpose string

const (
	OTPPurposeSignup OTPPurpose = "signup"
	OTPPurposeReset  OTPPurpose = "reset"
)

var validOTPPurposes = []OTPPurpose{
	OTPPurposeSignup,
	OTPPurposeReset,
}

// String implements fmt.Stringer.
func (v OTPPurpose) String() string {
	return string(v)
}

// IsValid reports whether the value is a known OTPPurpose.
func (v OTPPurpose) IsValid() bool {
	for _, candidate := range validOTPPurposes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseOTPPurpose converts raw input into a OTPPurpose.
func ParseOTPPurpose(value string) (OTPPurpose, error) {
	for _, candidate := range validOTPPurposes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid otp purpose %q", value)
}
