package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agroworld/storefront/pkg/enums"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
	"github.com/agroworld/storefront/pkg/metrics"
	"github.com/agroworld/storefront/pkg/otpgateway"
)

const (
	defaultResendAfter   = 60 * time.Second
	defaultSuccessStatus = "1000"
	defaultMessage       = "Your AgroWorld verification code is {{code}}"
	invalidCodeMessage   = "invalid OTP, please try again"
)

// Service drives phone verification flows against the OTP gateway.
type Service interface {
	Start(ctx context.Context, req StartRequest) (*Flow, error)
	Resend(ctx context.Context, flowID string) (*Flow, error)
	Verify(ctx context.Context, flowID, code string) (*Flow, error)
	Cancel(ctx context.Context, flowID string) (*Flow, error)
	Get(ctx context.Context, flowID string) (*Flow, error)
	Data(flow *Flow, dst any) error
}

// StartRequest opens a new flow.
type StartRequest struct {
	Purpose enums.OTPPurpose
	Phone   string
	Data    any
}

type gateway interface {
	Send(ctx context.Context, req otpgateway.SendRequest) (*otpgateway.SendResult, error)
	Verify(ctx context.Context, req otpgateway.VerifyRequest) (*otpgateway.VerifyResult, error)
}

type sealer interface {
	Seal(plain []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

type flowStore interface {
	Flow(ctx context.Context, flowID string) (Flow, error)
	SaveFlow(ctx context.Context, flow Flow) error
}

// ServiceParams bundles the dependencies required to build an OTP service.
type ServiceParams struct {
	Gateway       gateway
	Store         flowStore
	Sealer        sealer
	Metrics       *metrics.StorefrontMetrics
	ResendAfter   time.Duration
	SuccessStatus string
	CodeLength    int
	Message       string
	Now           func() time.Time
	NewID         func() string
}

type service struct {
	gateway       gateway
	store         flowStore
	sealer        sealer
	metrics       *metrics.StorefrontMetrics
	resendAfter   time.Duration
	successStatus string
	codeLength    int
	message       string
	now           func() time.Time
	newID         func() string
}

// NewService constructs an OTP service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("otp gateway is required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("flow store is required")
	}
	if params.Sealer == nil {
		return nil, fmt.Errorf("sealer is required")
	}
	svc := &service{
		gateway:       params.Gateway,
		store:         params.Store,
		sealer:        params.Sealer,
		metrics:       params.Metrics,
		resendAfter:   params.ResendAfter,
		successStatus: strings.TrimSpace(params.SuccessStatus),
		codeLength:    codeLength(params.CodeLength),
		message:       params.Message,
		now:           params.Now,
		newID:         params.NewID,
	}
	if svc.resendAfter <= 0 {
		svc.resendAfter = defaultResendAfter
	}
	if svc.successStatus == "" {
		svc.successStatus = defaultSuccessStatus
	}
	if svc.message == "" {
		svc.message = defaultMessage
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.newID == nil {
		svc.newID = uuid.NewString
	}
	return svc, nil
}

func (s *service) Start(ctx context.Context, req StartRequest) (*Flow, error) {
	if !req.Purpose.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid verification purpose")
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}

	flow := NewFlow(s.newID(), req.Purpose, phone)
	if req.Data != nil {
		raw, err := json.Marshal(req.Data)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode verification data")
		}
		sealed, err := s.sealer.Seal(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seal verification data")
		}
		flow.Data = sealed
	}

	sent, err := s.send(ctx, flow)
	if err != nil {
		return nil, err
	}
	return &sent, nil
}

func (s *service) Resend(ctx context.Context, flowID string) (*Flow, error) {
	flow, err := s.store.Flow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if err := flow.guard("send"); err != nil {
		return nil, err
	}
	if wait := flow.ResendIn(s.now(), s.resendAfter); wait > 0 {
		seconds := int(math.Ceil(wait.Seconds()))
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, fmt.Sprintf("resend available in %d seconds", seconds)).
			WithDetails(map[string]any{"retry_after_seconds": seconds})
	}

	sent, err := s.send(ctx, flow)
	if err != nil {
		return nil, err
	}
	return &sent, nil
}

func (s *service) send(ctx context.Context, flow Flow) (Flow, error) {
	if err := flow.guard("send"); err != nil {
		return flow, err
	}
	res, err := s.gateway.Send(ctx, otpgateway.SendRequest{
		Destination: flow.Phone,
		Content:     s.message,
	})
	if err != nil {
		return flow, err
	}

	sent, err := flow.MarkSent(res.ReferenceID, s.now())
	if err != nil {
		return flow, err
	}
	if err := s.store.SaveFlow(ctx, sent); err != nil {
		return flow, err
	}
	return sent, nil
}

func (s *service) Verify(ctx context.Context, flowID, code string) (*Flow, error) {
	flow, err := s.store.Flow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	verifying, err := flow.BeginVerify(strings.TrimSpace(code), s.codeLength)
	if err != nil {
		return nil, err
	}

	res, verifyErr := s.gateway.Verify(ctx, otpgateway.VerifyRequest{
		Code:        strings.TrimSpace(code),
		ReferenceID: verifying.ReferenceID,
	})

	var settled Flow
	var outcomeErr error
	switch {
	case verifyErr != nil:
		settled, _ = verifying.Complete(false, failureMessage(verifyErr))
		outcomeErr = verifyErr
		s.metrics.IncOTP(flow.Purpose.String(), metrics.OutcomeFailure)
	case res.StatusCode != s.successStatus:
		settled, _ = verifying.Complete(false, invalidCodeMessage)
		outcomeErr = pkgerrors.New(pkgerrors.CodeValidation, invalidCodeMessage).
			WithDetails(map[string]any{"status_code": res.StatusCode})
		s.metrics.IncOTP(flow.Purpose.String(), metrics.OutcomeRejected)
	default:
		settled, _ = verifying.Complete(true, "")
		s.metrics.IncOTP(flow.Purpose.String(), metrics.OutcomeSuccess)
	}

	if err := s.store.SaveFlow(ctx, settled); err != nil {
		return nil, err
	}
	if outcomeErr != nil {
		return &settled, outcomeErr
	}
	return &settled, nil
}

func (s *service) Cancel(ctx context.Context, flowID string) (*Flow, error) {
	flow, err := s.store.Flow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	cancelled, err := flow.Cancel()
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveFlow(ctx, cancelled); err != nil {
		return nil, err
	}
	return &cancelled, nil
}

func (s *service) Get(ctx context.Context, flowID string) (*Flow, error) {
	flow, err := s.store.Flow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	return &flow, nil
}

// Data opens the flow payload into dst.
func (s *service) Data(flow *Flow, dst any) error {
	if flow == nil || len(flow.Data) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "verification carries no data")
	}
	raw, err := s.sealer.Open(flow.Data)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open verification data")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode verification data")
	}
	return nil
}

func failureMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}
