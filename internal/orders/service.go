package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agroworld/storefront/internal/cart"
	"github.com/agroworld/storefront/internal/checkout"
	"github.com/agroworld/storefront/internal/state"
	"github.com/agroworld/storefront/pkg/backend"
	"github.com/agroworld/storefront/pkg/enums"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
	"github.com/agroworld/storefront/pkg/logger"
	"github.com/agroworld/storefront/pkg/metrics"
	"github.com/agroworld/storefront/pkg/pagination"
)

// Service defines order submission and the order views.
type Service interface {
	Submit(ctx context.Context, sessionID string, req SubmitRequest) (*Confirmation, error)
	History(ctx context.Context, params pagination.Params) (pagination.Page[View], error)
	Detail(ctx context.Context, orderID string) (*View, error)
	Invoice(ctx context.Context, orderID string) (*InvoiceView, error)
}

type orderBackend interface {
	CreateOrder(ctx context.Context, req backend.OrderRequest) (*backend.OrderResult, error)
	ListOrders(ctx context.Context) ([]backend.OrderRecord, error)
	GetOrder(ctx context.Context, orderID string) (*backend.OrderRecord, error)
	GetInvoice(ctx context.Context, orderID string) (*backend.Invoice, error)
}

type quoter interface {
	Validate(d checkout.Details) checkout.Result
	Quote(ctx context.Context, sessionID string) (*checkout.Quote, error)
}

type stateStore interface {
	Cart(ctx context.Context, sessionID string) (cart.State, error)
	Checkout(ctx context.Context, sessionID string) (checkout.Details, error)
	Update(ctx context.Context, sessionID string, fn func(*state.Snapshot) error) (state.Snapshot, error)
}

// ServiceParams bundles the dependencies required to build an order service.
type ServiceParams struct {
	Backend  orderBackend
	Checkout quoter
	State    stateStore
	Metrics  *metrics.StorefrontMetrics
	Logger   *logger.Logger
	Location *time.Location
}

type service struct {
	backend  orderBackend
	checkout quoter
	state    stateStore
	metrics  *metrics.StorefrontMetrics
	logg     *logger.Logger
	loc      *time.Location
}

// NewService constructs an order service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout service is required")
	}
	if params.State == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		backend:  params.Backend,
		checkout: params.Checkout,
		state:    params.State,
		metrics:  params.Metrics,
		logg:     params.Logger,
		loc:      loc,
	}, nil
}

// Submit places the order for the session cart and checkout draft. The
// payload totals come from the calculator, never from stored summaries.
func (s *service) Submit(ctx context.Context, sessionID string, req SubmitRequest) (*Confirmation, error) {
	if !req.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	current, err := s.state.Cart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}
	if strings.TrimSpace(current.CartID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart has not been synced with the store")
	}

	details, err := s.state.Checkout(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	details = details.Normalize()
	if res := s.checkout.Validate(details); !res.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout details are incomplete").
			WithDetails(map[string]any{"errors": res.Errors})
	}
	if err := paymentAllowed(req.PaymentMethod, details.DeliveryMethod); err != nil {
		return nil, err
	}

	quote, err := s.checkout.Quote(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if quote.Summary.FinalTotal.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discounts exceed the order total").
			WithDetails(map[string]any{"final_total": quote.Summary.FinalTotal.StringFixed(2)})
	}

	payload := BuildRequest(current, details, quote, req.PaymentMethod)
	result, err := s.backend.CreateOrder(ctx, payload)
	if err != nil {
		s.metrics.IncOrder(req.PaymentMethod.String(), outcomeFor(err))
		return nil, err
	}
	s.metrics.IncOrder(req.PaymentMethod.String(), metrics.OutcomeSuccess)

	if _, err := s.state.Update(ctx, sessionID, func(snap *state.Snapshot) error {
		snap.Cart = cart.NewState()
		snap.Checkout = checkout.Details{}
		return nil
	}); err != nil {
		// order already placed; report success
		logCtx := s.logg.WithFields(ctx, map[string]any{"session_id": sessionID, "order_id": result.OrderID})
		s.logg.Error(logCtx, "failed to reset session state after order", err)
	}

	return &Confirmation{
		OrderID:        result.OrderID,
		Status:         result.Status,
		Message:        result.Message,
		PaymentMethod:  req.PaymentMethod,
		Summary:        quote.Summary,
		DeliveryCharge: quote.DeliveryCharge,
		AmountDue:      quote.AmountDue,
	}, nil
}

func (s *service) History(ctx context.Context, params pagination.Params) (pagination.Page[View], error) {
	records, err := s.backend.ListOrders(ctx)
	if err != nil {
		return pagination.Page[View]{}, err
	}
	page, err := pagination.Slice(records, params)
	if err != nil {
		return pagination.Page[View]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	views := make([]View, 0, len(page.Items))
	for _, rec := range page.Items {
		views = append(views, Render(rec, s.loc))
	}
	return pagination.Page[View]{Items: views, NextCursor: page.NextCursor, Total: page.Total}, nil
}

func (s *service) Detail(ctx context.Context, orderID string) (*View, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	rec, err := s.backend.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	view := Render(*rec, s.loc)
	return &view, nil
}

func (s *service) Invoice(ctx context.Context, orderID string) (*InvoiceView, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	inv, err := s.backend.GetInvoice(ctx, orderID)
	if err != nil {
		return nil, err
	}
	view := RenderInvoice(*inv, s.loc)
	return &view, nil
}

// BuildRequest assembles the backend order payload. GrandTotal is the
// pre-discount total; DiscountAmount covers product and coupon discounts.
func BuildRequest(c cart.State, d checkout.Details, q *checkout.Quote, method enums.PaymentMethod) backend.OrderRequest {
	lines := make([]backend.OrderLine, 0, len(c.Packages)+len(c.Items))
	for _, p := range c.Packages {
		lines = append(lines, backend.OrderLine{
			Kind:     "package",
			ID:       p.ID,
			Name:     p.Name,
			Quantity: backend.NewAmount(decimal.NewFromInt(int64(p.Quantity))),
			Price:    backend.NewAmount(p.Price),
			Discount: backend.NewAmount(decimal.Zero),
		})
	}
	for _, item := range c.Items {
		lines = append(lines, backend.OrderLine{
			Kind:     "item",
			ID:       item.ID,
			Name:     item.Name,
			Unit:     item.Unit.String(),
			Quantity: backend.NewAmount(item.Quantity),
			Price:    backend.NewAmount(item.NormalPrice),
			Discount: backend.NewAmount(item.Discount),
		})
	}

	return backend.OrderRequest{
		GrandTotal:      backend.NewAmount(q.Summary.GrandTotal),
		DiscountAmount:  backend.NewAmount(q.Summary.TotalDiscount),
		DeliveryCharge:  backend.NewAmount(q.DeliveryCharge),
		PaymentMethod:   method.String(),
		CartID:          c.CartID,
		Items:           lines,
		CheckoutDetails: ToBackendDetails(d),
	}
}

// ToBackendDetails converts a checkout draft to the backend wire shape.
func ToBackendDetails(d checkout.Details) backend.CheckoutDetails {
	out := backend.CheckoutDetails{
		DeliveryMethod: d.DeliveryMethod.String(),
		Title:          d.Title,
		FullName:       d.FullName,
		PhoneCode1:     d.PhoneCode1,
		Phone1:         d.Phone1,
		PhoneCode2:     d.PhoneCode2,
		Phone2:         d.Phone2,
		DeliveryDate:   d.DeliveryDate,
		TimeSlot:       d.TimeSlot,
		Notes:          d.Notes,
	}
	if d.DeliveryMethod == enums.DeliveryMethodPickup {
		out.CenterID = d.CenterID
		return out
	}
	out.BuildingType = d.BuildingType.String()
	out.BuildingName = d.BuildingName
	out.BuildingNo = d.BuildingNo
	out.FlatNumber = d.FlatNumber
	out.FloorNumber = d.FloorNumber
	out.HouseNo = d.HouseNo
	out.Street = d.Street
	out.CityID = d.CityID
	out.CityName = d.CityName
	out.Landmark = d.Landmark
	if d.GeoLatitude != nil {
		out.GeoLatitude = *d.GeoLatitude
	}
	if d.GeoLongitude != nil {
		out.GeoLongitude = *d.GeoLongitude
	}
	return out
}

func paymentAllowed(method enums.PaymentMethod, delivery enums.DeliveryMethod) error {
	switch {
	case method == enums.PaymentMethodPayAtPickup && delivery != enums.DeliveryMethodPickup:
		return pkgerrors.New(pkgerrors.CodeValidation, "pay at pickup is only available for pickup orders")
	case method == enums.PaymentMethodCashOnDelivery && delivery != enums.DeliveryMethodHome:
		return pkgerrors.New(pkgerrors.CodeValidation, "cash on delivery is only available for home delivery")
	}
	return nil
}

func outcomeFor(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeDependency, pkgerrors.CodeInternal:
			return metrics.OutcomeFailure
		}
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeFailure
}
