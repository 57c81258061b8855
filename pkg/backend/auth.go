package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// LoginRequest is the credential pair accepted by auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// SignupRequest carries the account created once the phone number is verified.
type SignupRequest struct {
	Title     string `json:"title,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

// StatusResult is the generic acknowledgement returned by auth mutations.
type StatusResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PasswordResetRequest resets a password after the phone was verified by OTP,
// or with the emailed token.
type PasswordResetRequest struct {
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Token       string `json:"token,omitempty"`
	NewPassword string `json:"newPassword"`
}

// Profile is the minimal user profile kept by the storefront.
type Profile struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// ProfileUpdate lists the editable profile fields.
type ProfileUpdate struct {
	Title     string `json:"title,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Login exchanges credentials for a backend bearer token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var out LoginResult
	if err := c.do(ctx, request{endpoint: "auth.login", method: http.MethodPost, path: "auth/login", body: req}, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Token) == "" {
		return nil, malformed("auth.login", "token missing")
	}
	return &out, nil
}

// Signup creates the customer account.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*StatusResult, error) {
	var out StatusResult
	if err := c.do(ctx, request{endpoint: "auth.signup", method: http.MethodPost, path: "auth/signup", body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PhoneExists reports whether an account already uses the phone number.
func (c *Client) PhoneExists(ctx context.Context, phone string) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	query := url.Values{"phone": []string{phone}}
	if err := c.do(ctx, request{endpoint: "auth.phone_exists", method: http.MethodGet, path: "auth/check-phone", query: query}, &out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// ForgotPassword asks the backend to email a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*StatusResult, error) {
	var out StatusResult
	body := map[string]string{"email": email}
	if err := c.do(ctx, request{endpoint: "auth.forgot_password", method: http.MethodPost, path: "auth/forgot-password", body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetPassword stores a new password.
func (c *Client) ResetPassword(ctx context.Context, req PasswordResetRequest) (*StatusResult, error) {
	var out StatusResult
	if err := c.do(ctx, request{endpoint: "auth.reset_password", method: http.MethodPost, path: "auth/reset-password", body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProfile loads the profile of the authenticated user.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, request{endpoint: "user.profile", method: http.MethodGet, path: "user/profile", auth: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile saves profile changes and returns the stored profile.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, request{endpoint: "user.profile_update", method: http.MethodPut, path: "user/profile", body: update, auth: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
