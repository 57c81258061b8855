package otp

import (
	"fmt"
	"time"

	"github.com/agroworld/storefront/pkg/enums"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
)

// DefaultCodeLength is the number of digits in a code sent by the gateway.
const DefaultCodeLength = 5

// Flow is one phone verification. Transitions return an updated copy and never
// mutate the receiver.
type Flow struct {
	ID          string           `json:"id"`
	Purpose     enums.OTPPurpose `json:"purpose"`
	Phone       string           `json:"phone"`
	State       enums.OTPState   `json:"state"`
	ReferenceID string           `json:"reference_id,omitempty"`
	SentAt      time.Time        `json:"sent_at"`
	Attempts    int              `json:"attempts"`
	LastError   string           `json:"last_error,omitempty"`
	// Data holds the sealed payload the verified flow unlocks, such as the pending signup.
	Data []byte `json:"data,omitempty"`
}

// NewFlow starts an idle flow for the phone.
func NewFlow(id string, purpose enums.OTPPurpose, phone string) Flow {
	return Flow{
		ID:      id,
		Purpose: purpose,
		Phone:   phone,
		State:   enums.OTPStateIdle,
	}
}

// MarkSent records a freshly sent code. Used by the first send and by every resend.
func (f Flow) MarkSent(referenceID string, now time.Time) (Flow, error) {
	if err := f.guard("send"); err != nil {
		return f, err
	}
	if f.State == enums.OTPStateVerifying {
		return f, stateConflict(f.State, "send")
	}
	f.State = enums.OTPStateSent
	f.ReferenceID = referenceID
	f.SentAt = now
	f.LastError = ""
	return f, nil
}

// ResendIn reports how long the caller has to wait before a resend is allowed.
func (f Flow) ResendIn(now time.Time, cooldown time.Duration) time.Duration {
	if f.SentAt.IsZero() {
		return 0
	}
	remaining := f.SentAt.Add(cooldown).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// BeginVerify moves a sent flow into verification after checking the code shape.
func (f Flow) BeginVerify(code string, length int) (Flow, error) {
	if err := f.guard("verify"); err != nil {
		return f, err
	}
	if f.State != enums.OTPStateSent {
		return f, stateConflict(f.State, "verify")
	}
	if !ValidCode(code, length) {
		return f, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("code must be %d digits", codeLength(length)))
	}
	f.State = enums.OTPStateVerifying
	f.Attempts++
	return f, nil
}

// Complete settles a verification. A failed attempt returns the flow to sent
// so the code can be entered again.
func (f Flow) Complete(ok bool, failure string) (Flow, error) {
	if f.State != enums.OTPStateVerifying {
		return f, stateConflict(f.State, "complete")
	}
	if ok {
		f.State = enums.OTPStateVerified
		f.LastError = ""
		return f, nil
	}
	f.State = enums.OTPStateSent
	f.LastError = failure
	return f, nil
}

// Cancel abandons the flow.
func (f Flow) Cancel() (Flow, error) {
	if err := f.guard("cancel"); err != nil {
		return f, err
	}
	f.State = enums.OTPStateCancelled
	return f, nil
}

func (f Flow) guard(action string) error {
	if f.State.IsTerminal() {
		return stateConflict(f.State, action)
	}
	return nil
}

// ValidCode reports whether code is exactly length ASCII digits.
func ValidCode(code string, length int) bool {
	if len(code) != codeLength(length) {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func codeLength(length int) int {
	if length <= 0 {
		return DefaultCodeLength
	}
	return length
}

func stateConflict(state enums.OTPState, action string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot %s a %s verification", action, state)).
		WithDetails(map[string]any{"state": state})
}
