package enums

import "fmt"

// OTPState tracks a phone verification flow.
type OTPState string

const (
	OTPStateIdle      OTPState = "idle"
	OTPStateSent      OTPState = "sent"
	OTPStateVerifying OTPState = "verifying"
	OTPStateVerified  OTPState = "verified"
	OTPStateCancelled OTPState = "cancelled"
)

var validOTPStates = []OTPState{
	OTPStateIdle,
	OTPStateSent,
	OTPStateVerifying,
	OTPStateVerified,
	OTPStateCancelled,
}

// String implements fmt.Stringer.
func (v OTPState) String() string {
	return string(v)
}

// IsValid reports whether the value is a known OTPState.
func (v OTPState) IsValid() bool {
	for _, candidate := range validOTPStates {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseOTPState converts raw input into a OTPState.
func ParseOTPState(value string) (OTPState, error) {
	for _, candidate := range validOTPStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid otp state %q", value)
}

// IsTerminal reports whether no further transition is allowed from the state.
func (v OTPState) IsTerminal() bool {
	return v == OTPStateVerified || v == OTPStateCancelled
}
