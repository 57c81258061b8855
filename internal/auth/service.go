package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agroworld/storefront/internal/otp"
	"github.com/agroworld/storefront/internal/state"
	pkgAuth "github.com/agroworld/storefront/pkg/auth"
	"github.com/agroworld/storefront/pkg/backend"
	"github.com/agroworld/storefront/pkg/config"
	"github.com/agroworld/storefront/pkg/enums"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
)

const (
	defaultPhoneCode      = "94"
	phoneTakenMessage     = "an account with this phone number already exists"
	unknownPhoneMessage   = "no account uses this phone number"
	signupDoneMessage     = "account created, please log in"
	resetEmailSentMessage = "password reset link sent to your email"
	resetSMSSentMessage   = "verification code sent to your phone"
	resetDoneMessage      = "password updated, please log in"
)

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	StartSignup(ctx context.Context, req SignupRequest) (*Verification, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error)
	Resend(ctx context.Context, flowID string) (*Verification, error)
	Cancel(ctx context.Context, flowID string) (*Verification, error)
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) (*StatusResponse, error)
	Profile(ctx context.Context, sessionID string) (*Profile, error)
	UpdateProfile(ctx context.Context, sessionID string, req ProfileUpdateRequest) (*Profile, error)
	Logout(ctx context.Context, sessionID string) error
}

type authBackend interface {
	Login(ctx context.Context, req backend.LoginRequest) (*backend.LoginResult, error)
	Signup(ctx context.Context, req backend.SignupRequest) (*backend.StatusResult, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)
	ForgotPassword(ctx context.Context, email string) (*backend.StatusResult, error)
	ResetPassword(ctx context.Context, req backend.PasswordResetRequest) (*backend.StatusResult, error)
	GetProfile(ctx context.Context) (*backend.Profile, error)
	UpdateProfile(ctx context.Context, update backend.ProfileUpdate) (*backend.Profile, error)
}

type sessionManager interface {
	Create(ctx context.Context, userID, backendToken string) (string, error)
	Revoke(ctx context.Context, sessionID string) error
}

type stateStore interface {
	SaveAuth(ctx context.Context, sessionID string, a state.Auth) error
	Clear(ctx context.Context, sessionID string) error
	DeleteFlow(ctx context.Context, flowID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Backend        authBackend
	SessionManager sessionManager
	OTP            otp.Service
	State          stateStore
	JWTConfig      config.JWTConfig
	ResendAfter    time.Duration
	Now            func() time.Time
}

type service struct {
	backend     authBackend
	sessions    sessionManager
	otp         otp.Service
	state       stateStore
	jwtCfg      config.JWTConfig
	resendAfter time.Duration
	now         func() time.Time
}

type signupData struct {
	Title     string `json:"title,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.OTP == nil {
		return nil, fmt.Errorf("otp service is required")
	}
	if params.State == nil {
		return nil, fmt.Errorf("state store is required")
	}
	svc := &service{
		backend:     params.Backend,
		sessions:    params.SessionManager,
		otp:         params.OTP,
		state:       params.State,
		jwtCfg:      params.JWTConfig,
		resendAfter: params.ResendAfter,
		now:         params.Now,
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	res, err := s.backend.Login(ctx, backend.LoginRequest{Email: email, Password: req.Password})
	if err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(res.UserID)

	profile := Profile{ID: userID, Email: email}
	if remote, err := s.backend.GetProfile(backend.WithBearerToken(ctx, res.Token)); err == nil {
		profile = FromBackendProfile(remote)
		if userID == "" {
			userID = profile.ID
		}
	}
	if userID == "" {
		userID = email
	}

	sessionID, err := s.sessions.Create(ctx, userID, res.Token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}

	now := s.now().UTC()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	if err := s.state.SaveAuth(ctx, sessionID, authSlice(userID, profile, now)); err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken: accessToken,
		ExpiresAt:   now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute),
		User:        profile,
	}, nil
}

func (s *service) StartSignup(ctx context.Context, req SignupRequest) (*Verification, error) {
	phone := FullPhone(req.PhoneCode, req.Phone)
	exists, err := s.backend.PhoneExists(ctx, phone)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, phoneTakenMessage)
	}

	flow, err := s.otp.Start(ctx, otp.StartRequest{
		Purpose: enums.OTPPurposeSignup,
		Phone:   phone,
		Data: signupData{
			Title:     strings.TrimSpace(req.Title),
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Email:     strings.ToLower(strings.TrimSpace(req.Email)),
			Phone:     phone,
			Password:  req.Password,
		},
	})
	if err != nil {
		return nil, err
	}
	return s.view(flow), nil
}

// Verify checks the code and completes a signup once the phone is verified.
// A verified signup whose account creation failed can be retried with any code.
func (s *service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	flow, err := s.otp.Get(ctx, req.FlowID)
	if err != nil {
		return nil, err
	}
	if flow.State != enums.OTPStateVerified {
		flow, err = s.otp.Verify(ctx, req.FlowID, req.Code)
		if err != nil {
			return nil, withVerification(err, s.view(flow))
		}
	}

	resp := &VerifyResponse{Verification: *s.view(flow)}
	if flow.Purpose != enums.OTPPurposeSignup {
		return resp, nil
	}

	message, err := s.completeSignup(ctx, flow)
	if err != nil {
		return nil, s.signupRejected(ctx, flow, err)
	}
	resp.Completed = true
	resp.Message = message
	return resp, nil
}

func (s *service) completeSignup(ctx context.Context, flow *otp.Flow) (string, error) {
	var data signupData
	if err := s.otp.Data(flow, &data); err != nil {
		return "", err
	}
	res, err := s.backend.Signup(ctx, backend.SignupRequest{
		Title:     data.Title,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Email:     data.Email,
		Phone:     data.Phone,
		Password:  data.Password,
	})
	if err != nil {
		return "", err
	}
	if err := s.state.DeleteFlow(ctx, flow.ID); err != nil {
		return "", err
	}
	return fallback(res.Message, signupDoneMessage), nil
}

// signupRejected drops the flow when the backend refuses the account itself.
// Transport failures keep the verified flow so account creation can be retried.
func (s *service) signupRejected(ctx context.Context, flow *otp.Flow, err error) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		return err
	}
	switch typed.Code() {
	case pkgerrors.CodeUpstream, pkgerrors.CodeConflict, pkgerrors.CodeValidation:
	default:
		return err
	}
	if delErr := s.state.DeleteFlow(ctx, flow.ID); delErr != nil {
		return delErr
	}
	v := s.view(flow)
	v.Closed = true
	return withVerification(err, v)
}

func (s *service) Resend(ctx context.Context, flowID string) (*Verification, error) {
	flow, err := s.otp.Resend(ctx, flowID)
	if err != nil {
		return nil, err
	}
	return s.view(flow), nil
}

func (s *service) Cancel(ctx context.Context, flowID string) (*Verification, error) {
	flow, err := s.otp.Cancel(ctx, flowID)
	if err != nil {
		return nil, err
	}
	return s.view(flow), nil
}

func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*ForgotPasswordResponse, error) {
	switch req.Method {
	case enums.ResetMethodEmail:
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
		}
		res, err := s.backend.ForgotPassword(ctx, email)
		if err != nil {
			return nil, err
		}
		return &ForgotPasswordResponse{
			Method:  enums.ResetMethodEmail,
			Message: fallback(res.Message, resetEmailSentMessage),
		}, nil

	case enums.ResetMethodSMS:
		if strings.TrimSpace(req.Phone) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
		}
		phone := FullPhone(req.PhoneCode, req.Phone)
		exists, err := s.backend.PhoneExists(ctx, phone)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, unknownPhoneMessage)
		}
		flow, err := s.otp.Start(ctx, otp.StartRequest{Purpose: enums.OTPPurposeReset, Phone: phone})
		if err != nil {
			return nil, err
		}
		return &ForgotPasswordResponse{
			Method:       enums.ResetMethodSMS,
			Message:      resetSMSSentMessage,
			Verification: s.view(flow),
		}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "method must be email or sms")
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*StatusResponse, error) {
	flowID := strings.TrimSpace(req.FlowID)
	if flowID != "" {
		return s.resetBySMS(ctx, flowID, req.NewPassword)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	token := strings.TrimSpace(req.Token)
	if email == "" || token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and token are required").
			WithDetails(map[string]any{"fields": []string{"email", "token"}})
	}
	res, err := s.backend.ResetPassword(ctx, backend.PasswordResetRequest{
		Email:       email,
		Token:       token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return nil, err
	}
	return &StatusResponse{Message: fallback(res.Message, resetDoneMessage)}, nil
}

func (s *service) resetBySMS(ctx context.Context, flowID, password string) (*StatusResponse, error) {
	flow, err := s.otp.Get(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if flow.Purpose != enums.OTPPurposeReset {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "verification was not started for a password reset")
	}
	if flow.State != enums.OTPStateVerified {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "phone number is not verified yet")
	}
	res, err := s.backend.ResetPassword(ctx, backend.PasswordResetRequest{
		Phone:       flow.Phone,
		NewPassword: password,
	})
	if err != nil {
		return nil, err
	}
	if err := s.state.DeleteFlow(ctx, flow.ID); err != nil {
		return nil, err
	}
	return &StatusResponse{Message: fallback(res.Message, resetDoneMessage)}, nil
}

func (s *service) Profile(ctx context.Context, sessionID string) (*Profile, error) {
	remote, err := s.backend.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	profile := FromBackendProfile(remote)
	if err := s.state.SaveAuth(ctx, sessionID, authSlice(profile.ID, profile, s.now().UTC())); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *service) UpdateProfile(ctx context.Context, sessionID string, req ProfileUpdateRequest) (*Profile, error) {
	remote, err := s.backend.UpdateProfile(ctx, backend.ProfileUpdate{
		Title:     strings.TrimSpace(req.Title),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
	})
	if err != nil {
		return nil, err
	}
	profile := FromBackendProfile(remote)
	if err := s.state.SaveAuth(ctx, sessionID, authSlice(profile.ID, profile, s.now().UTC())); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Logout revokes the session and drops every persisted slice.
func (s *service) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return s.state.Clear(ctx, sessionID)
}

func (s *service) view(flow *otp.Flow) *Verification {
	if flow == nil {
		return nil
	}
	v := NewVerification(flow, s.now(), s.resendAfter)
	return &v
}

// FullPhone joins a dialling code and local digits into the gateway format.
func FullPhone(code, digits string) string {
	code = strings.TrimPrefix(strings.TrimSpace(code), "+")
	if code == "" {
		code = defaultPhoneCode
	}
	return code + strings.TrimSpace(digits)
}

func authSlice(userID string, p Profile, at time.Time) state.Auth {
	return state.Auth{
		UserID:     userID,
		Title:      p.Title,
		Name:       p.fullName(),
		Email:      p.Email,
		Phone:      p.Phone,
		LoggedInAt: at,
	}
}

func withVerification(err error, v *Verification) error {
	typed := pkgerrors.As(err)
	if typed == nil || v == nil {
		return err
	}
	details := map[string]any{}
	if existing, ok := typed.Details().(map[string]any); ok {
		for k, val := range existing {
			details[k] = val
		}
	} else if typed.Details() != nil {
		return err
	}
	details["verification"] = v
	return typed.WithDetails(details)
}

func fallback(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
