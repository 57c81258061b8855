package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/agroworld/storefront/internal/cart"
	"github.com/agroworld/storefront/pkg/backend"
	"github.com/agroworld/storefront/pkg/enums"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
)

// Service defines the checkout behavior used by the controllers.
type Service interface {
	Cities(ctx context.Context) ([]backend.City, error)
	PickupCenters(ctx context.Context) ([]backend.PickupCenter, error)
	PreviousAddress(ctx context.Context) (*backend.Address, error)
	Validate(d Details) Result
	Revalidate(prev Result, d Details) Result
	Draft(ctx context.Context, sessionID string) (Details, error)
	SaveDraft(ctx context.Context, sessionID string, d Details) (*Result, error)
	Quote(ctx context.Context, sessionID string) (*Quote, error)
}

// Quote is the amount due for the current cart and checkout draft.
type Quote struct {
	Summary        cart.Summary         `json:"summary"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
	CityID         string               `json:"city_id,omitempty"`
	DeliveryCharge decimal.Decimal      `json:"delivery_charge"`
	AmountDue      decimal.Decimal      `json:"amount_due"`
}

type lookupClient interface {
	ListCities(ctx context.Context) ([]backend.City, error)
	ListPickupCenters(ctx context.Context) ([]backend.PickupCenter, error)
	PreviousAddress(ctx context.Context) (*backend.Address, error)
}

type stateStore interface {
	Cart(ctx context.Context, sessionID string) (cart.State, error)
	Checkout(ctx context.Context, sessionID string) (Details, error)
	SaveCheckout(ctx context.Context, sessionID string, d Details) error
}

// ServiceParams bundles the dependencies required to build a checkout service.
type ServiceParams struct {
	Backend   lookupClient
	State     stateStore
	Validator Validator
}

type service struct {
	backend   lookupClient
	state     stateStore
	validator Validator
}

// NewService constructs a checkout service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	if params.State == nil {
		return nil, fmt.Errorf("state store is required")
	}
	return &service{
		backend:   params.Backend,
		state:     params.State,
		validator: params.Validator,
	}, nil
}

func (s *service) Cities(ctx context.Context) ([]backend.City, error) {
	return s.backend.ListCities(ctx)
}

func (s *service) PickupCenters(ctx context.Context) ([]backend.PickupCenter, error) {
	return s.backend.ListPickupCenters(ctx)
}

func (s *service) PreviousAddress(ctx context.Context) (*backend.Address, error) {
	addr, err := s.backend.PreviousAddress(ctx)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, fallbackMessage(typed.Message(), "no previous address"))
		}
		return nil, err
	}
	return addr, nil
}

func (s *service) Validate(d Details) Result {
	return s.validator.Validate(d)
}

func (s *service) Revalidate(prev Result, d Details) Result {
	return s.validator.Revalidate(prev, d)
}

func (s *service) Draft(ctx context.Context, sessionID string) (Details, error) {
	return s.state.Checkout(ctx, sessionID)
}

// SaveDraft stores the draft only when it is valid, so the payment step always
// starts from a complete form.
func (s *service) SaveDraft(ctx context.Context, sessionID string, d Details) (*Result, error) {
	d = d.Normalize()
	if d.DeliveryMethod == enums.DeliveryMethodPickup {
		d = d.withoutHomeFields()
	}
	res := s.validator.Validate(d)
	if !res.Valid {
		return &res, pkgerrors.New(pkgerrors.CodeValidation, "checkout details are incomplete").
			WithDetails(map[string]any{"errors": res.Errors})
	}
	if err := s.state.SaveCheckout(ctx, sessionID, d); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *service) Quote(ctx context.Context, sessionID string) (*Quote, error) {
	current, err := s.state.Cart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}
	details, err := s.state.Checkout(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := current.Recompute().Summary
	quote := &Quote{
		Summary:        summary,
		DeliveryMethod: details.DeliveryMethod,
		DeliveryCharge: decimal.Zero,
	}

	if details.DeliveryMethod == enums.DeliveryMethodHome {
		charge, cityID, err := s.deliveryCharge(ctx, details)
		if err != nil {
			return nil, err
		}
		quote.DeliveryCharge = charge
		quote.CityID = cityID
	}
	quote.AmountDue = summary.FinalTotal.Add(quote.DeliveryCharge)
	return quote, nil
}

// DeliveryCharge resolves the delivery charge of a draft against the city
// list. Pickup orders are never charged.
func DeliveryCharge(cities []backend.City, d Details) (decimal.Decimal, string, bool) {
	if d.DeliveryMethod != enums.DeliveryMethodHome {
		return decimal.Zero, "", true
	}
	id := strings.TrimSpace(d.CityID)
	name := strings.TrimSpace(d.CityName)
	for _, city := range cities {
		if (id != "" && city.ID == id) || (id == "" && name != "" && strings.EqualFold(city.Name, name)) {
			return city.Charge.Decimal, city.ID, true
		}
	}
	return decimal.Zero, "", false
}

func (s *service) deliveryCharge(ctx context.Context, d Details) (decimal.Decimal, string, error) {
	cities, err := s.backend.ListCities(ctx)
	if err != nil {
		return decimal.Zero, "", err
	}
	charge, cityID, ok := DeliveryCharge(cities, d)
	if !ok {
		return decimal.Zero, "", pkgerrors.New(pkgerrors.CodeValidation, "we do not deliver to the selected city").
			WithDetails(map[string]any{"errors": map[string]string{FieldCityName: "select a city from the list"}})
	}
	return charge, cityID, nil
}

func (d Details) withoutHomeFields() Details {
	d.BuildingType = ""
	d.BuildingName = ""
	d.BuildingNo = ""
	d.FlatNumber = ""
	d.FloorNumber = ""
	d.HouseNo = ""
	d.Street = ""
	d.CityID = ""
	d.CityName = ""
	d.GeoLatitude = nil
	d.GeoLongitude = nil
	return d
}

func fallbackMessage(value, def string) string {
	if strings.TrimSpace(value) == "" || value == "resource not found" {
		return def
	}
	return value
}
