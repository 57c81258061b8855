package auth

import (
	"time"

	"github.com/agroworld/storefront/internal/otp"
	"github.com/agroworld/storefront/pkg/backend"
	"github.com/agroworld/storefront/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the storefront token and the signed-in profile.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        Profile   `json:"user"`
}

// SignupRequest is the account form. The account is only created once the
// phone number has been verified.
type SignupRequest struct {
	Title     string `json:"title" validate:"omitempty,max=10"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	PhoneCode string `json:"phone_code" validate:"omitempty,max=5"`
	Phone     string `json:"phone" validate:"required,number,len=9"`
	Password  string `json:"password" validate:"required,min=8"`
}

// ForgotPasswordRequest starts a reset by email link or by SMS code.
type ForgotPasswordRequest struct {
	Method    enums.ResetMethod `json:"method" validate:"required"`
	Email     string            `json:"email" validate:"omitempty,email"`
	PhoneCode string            `json:"phone_code" validate:"omitempty,max=5"`
	Phone     string            `json:"phone" validate:"omitempty,number,len=9"`
}

// ResetPasswordRequest completes a reset. FlowID is set after an SMS reset,
// Email and Token after an emailed one.
type ResetPasswordRequest struct {
	FlowID      string `json:"flow_id"`
	Email       string `json:"email" validate:"omitempty,email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// VerifyRequest submits a code for a pending verification.
type VerifyRequest struct {
	FlowID string `json:"flow_id" validate:"required"`
	Code   string `json:"code" validate:"required"`
}

// FlowRequest addresses an existing verification.
type FlowRequest struct {
	FlowID string `json:"flow_id" validate:"required"`
}

// Verification is the public view of an OTP flow.
type Verification struct {
	FlowID             string           `json:"flow_id"`
	Purpose            enums.OTPPurpose `json:"purpose"`
	State              enums.OTPState   `json:"state"`
	Phone              string           `json:"phone"`
	Attempts           int              `json:"attempts"`
	LastError          string           `json:"last_error,omitempty"`
	ResendAfterSeconds int              `json:"resend_after_seconds"`
	// Closed is set when the flow was dropped and signup must start over.
	Closed bool `json:"closed,omitempty"`
}

// VerifyResponse reports the outcome of a successful verification.
type VerifyResponse struct {
	Verification Verification `json:"verification"`
	Completed    bool         `json:"completed"`
	Message      string       `json:"message,omitempty"`
}

// ForgotPasswordResponse reports how the reset continues.
type ForgotPasswordResponse struct {
	Method       enums.ResetMethod `json:"method"`
	Message      string            `json:"message"`
	Verification *Verification     `json:"verification,omitempty"`
}

// StatusResponse acknowledges a completed mutation.
type StatusResponse struct {
	Message string `json:"message"`
}

// Profile is the user profile exposed to the UI.
type Profile struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// ProfileUpdateRequest lists the editable profile fields.
type ProfileUpdateRequest struct {
	Title     string `json:"title" validate:"omitempty,max=10"`
	FirstName string `json:"first_name" validate:"omitempty,max=100"`
	LastName  string `json:"last_name" validate:"omitempty,max=100"`
	Phone     string `json:"phone" validate:"omitempty,number"`
}

// FromBackendProfile maps the backend record.
func FromBackendProfile(p *backend.Profile) Profile {
	if p == nil {
		return Profile{}
	}
	return Profile{
		ID:        p.ID,
		Title:     p.Title,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
	}
}

func (p Profile) fullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// NewVerification renders a flow for the UI.
func NewVerification(flow *otp.Flow, now time.Time, resendAfter time.Duration) Verification {
	wait := flow.ResendIn(now, resendAfter)
	seconds := int(wait / time.Second)
	if wait%time.Second != 0 {
		seconds++
	}
	return Verification{
		FlowID:             flow.ID,
		Purpose:            flow.Purpose,
		State:              flow.State,
		Phone:              maskPhone(flow.Phone),
		Attempts:           flow.Attempts,
		LastError:          flow.LastError,
		ResendAfterSeconds: seconds,
	}
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	masked := make([]byte, len(phone))
	for i := range phone {
		if i < len(phone)-4 && phone[i] >= '0' && phone[i] <= '9' {
			masked[i] = '*'
			continue
		}
		masked[i] = phone[i]
	}
	return string(masked)
}
