package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/agroworld/storefront/pkg/backend"
	"github.com/agroworld/storefront/pkg/enums"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
)

// Service keeps the session cart in step with the backend cart. A failed
// backend call leaves the stored cart untouched.
type Service interface {
	Get(ctx context.Context, sessionID string) (State, error)
	Refresh(ctx context.Context, sessionID string) (State, error)
	AddPackage(ctx context.Context, sessionID string, req AddPackageInput) (State, error)
	AddItem(ctx context.Context, sessionID string, req AddItemInput) (State, error)
	UpdatePackage(ctx context.Context, sessionID, packageID string, quantity int) (State, error)
	UpdateItem(ctx context.Context, sessionID, itemID string, req ItemUpdate) (State, error)
	RemovePackage(ctx context.Context, sessionID, packageID string) (State, error)
	RemoveItem(ctx context.Context, sessionID, itemID string) (State, error)
	ApplyCoupon(ctx context.Context, sessionID, code string) (State, error)
	ClearCoupon(ctx context.Context, sessionID string) (State, error)
	Clear(ctx context.Context, sessionID string) error
}

// AddPackageInput adds packages to the cart.
type AddPackageInput struct {
	PackageID string
	Quantity  int
}

// AddItemInput adds a loose product to the cart.
type AddItemInput struct {
	ProductID string
	Quantity  decimal.Decimal
	Unit      enums.Unit
	Bucket    string
}

// ItemUpdate changes the quantity and/or unit of a product line. When both
// are set the unit is switched first and the quantity is read in the new unit.
type ItemUpdate struct {
	Quantity *decimal.Decimal
	Unit     *enums.Unit
}

type cartBackend interface {
	AddPackageToCart(ctx context.Context, req backend.AddPackageRequest) (*backend.CartRef, error)
	AddProductToCart(ctx context.Context, req backend.AddProductRequest) (*backend.CartRef, error)
	GetCart(ctx context.Context, cartID string) (*backend.Cart, error)
	UpdateCart(ctx context.Context, cartID string, update backend.CartUpdate) error
	ApplyCoupon(ctx context.Context, cartID, code string) (*backend.CouponResult, error)
}

type stateStore interface {
	Cart(ctx context.Context, sessionID string) (State, error)
	SaveCart(ctx context.Context, sessionID string, state State) error
}

// ServiceParams bundles the dependencies required to build a cart service.
type ServiceParams struct {
	Backend cartBackend
	State   stateStore
}

type service struct {
	backend cartBackend
	state   stateStore
}

// NewService constructs a cart service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	if params.State == nil {
		return nil, fmt.Errorf("state store is required")
	}
	return &service{backend: params.Backend, state: params.State}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (State, error) {
	current, err := s.state.Cart(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	return current.Recompute(), nil
}

func (s *service) Refresh(ctx context.Context, sessionID string) (State, error) {
	current, err := s.state.Cart(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	if current.CartID == "" {
		return current.Recompute(), nil
	}
	return s.reload(ctx, sessionID, current, current.CartID)
}

func (s *service) AddPackage(ctx context.Context, sessionID string, req AddPackageInput) (State, error) {
	id := strings.TrimSpace(req.PackageID)
	if id == "" {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "package id is required")
	}
	if req.Quantity < 1 {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "package quantity must be at least 1")
	}
	current, err := s.state.Cart(ctx, sessionID)
	if err != nil {
		return State{}, err
	}

	ref, err := s.backend.AddPackageToCart(ctx, backend.AddPackageRequest{
		CartID:    current.CartID,
		PackageID: id,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return State{}, err
	}
	return s.reload(ctx, sessionID, current, ref.CartID)
}

func (s *service) AddItem(ctx context.Context, sessionID string, req AddItemInput) (State, error) {
	id := strings.TrimSpace(req.ProductID)
	if id == "" {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if !req.Unit.IsValid() {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported unit %q", req.Unit))
	}
	if !req.Quantity.IsPositive() {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be greater than zero")
	}
	current, err := s.state.Cart(ctx, sessionID)
	if err != nil {
		return State{}, err
	}

	ref, err := s.backend.AddProductToCart(ctx, backend.AddProductRequest{
		CartID:    current.CartID,
		ProductID: id,
		Quantity:  backend.NewAmount(req.Quantity),
		Unit:      req.Unit.String(),
	})
	if err != nil {
		return State{}, err
	}

	next, err := s.reload(ctx, sessionID, current, ref.CartID)
	if err != nil {
		return State{}, err
	}
	if bucket := strings.TrimSpace(req.Bucket); bucket != "" {
		if idx := next.itemIndex(id); idx >= 0 && next.Items[idx].Bucket == DefaultBucket {
			next = next.clone()
			next.Items[idx].Bucket = bucket
			if err := s.state.SaveCart(ctx, sessionID, next); err != nil {
				return State{}, err
			}
		}
	}
	return next, nil
}

func (s *service) UpdatePackage(ctx context.Context, sessionID, packageID string, quantity int) (State, error) {
	return s.mutate(ctx, sessionID, func(current State) (State, error) {
		return current.SetPackageQuantity(packageID, quantity)
	})
}

func (s *service) UpdateItem(ctx context.Context, sessionID, itemID string, req ItemUpdate) (State, error) {
	if req.Quantity == nil && req.Unit == nil {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity or unit is required")
	}
	return s.mutate(ctx, sessionID, func(current State) (State, error) {
		next := current
		var err error
		if req.Unit != nil {
			if next, err = next.ChangeItemUnit(itemID, *req.Unit); err != nil {
				return current, err
			}
		}
		if req.Quantity != nil {
			if next, err = next.SetItemQuantity(itemID, *req.Quantity); err != nil {
				return current, err
			}
		}
		return next, nil
	})
}

func (s *service) RemovePackage(ctx context.Context, sessionID, packageID string) (State, error) {
	return s.mutate(ctx, sessionID, func(current State) (State, error) {
		return current.RemovePackage(packageID)
	})
}

func (s *service) RemoveItem(ctx context.Context, sessionID, itemID string) (State, error) {
	return s.mutate(ctx, sessionID, func(current State) (State, error) {
		return current.RemoveItem(itemID)
	})
}

func (s *service) ApplyCoupon(ctx context.Context, sessionID, code string) (State, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	current, err := s.state.Cart(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	if current.CartID == "" || current.IsEmpty() {
		return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}

	res, err := s.backend.ApplyCoupon(ctx, current.CartID, code)
	if err != nil {
		return State{}, err
	}
	next, err := current.ApplyCoupon(res.Code, res.Discount.Decimal)
	if err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unexpected response from backend")
	}
	if err := s.state.SaveCart(ctx, sessionID, next); err != nil {
		return State{}, err
	}
	return next, nil
}

func (s *service) ClearCoupon(ctx context.Context, sessionID string) (State, error) {
	current, err := s.state.Cart(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	next := current.ClearCoupon()
	if err := s.state.SaveCart(ctx, sessionID, next); err != nil {
		return State{}, err
	}
	return next, nil
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	return s.state.SaveCart(ctx, sessionID, NewState())
}

// mutate applies a local change, pushes the resulting line quantities to the
// backend and only then stores the new state.
func (s *service) mutate(ctx context.Context, sessionID string, fn func(State) (State, error)) (State, error) {
	current, err := s.state.Cart(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	if current.CartID == "" {
		return State{}, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}
	next, err := fn(current)
	if err != nil {
		return State{}, err
	}
	if err := s.backend.UpdateCart(ctx, next.CartID, ToBackendUpdate(next)); err != nil {
		return State{}, err
	}
	if err := s.state.SaveCart(ctx, sessionID, next); err != nil {
		return State{}, err
	}
	return next, nil
}

func (s *service) reload(ctx context.Context, sessionID string, current State, cartID string) (State, error) {
	remote, err := s.backend.GetCart(ctx, cartID)
	if err != nil {
		return State{}, err
	}
	next := FromBackend(remote, current)
	if next.CartID == "" {
		next = next.SetCartID(cartID)
	}
	if err := s.state.SaveCart(ctx, sessionID, next); err != nil {
		return State{}, err
	}
	return next, nil
}

// FromBackend rebuilds the cart from the backend copy. Lines the backend
// returns malformed are dropped, local bucket names are kept and a coupon
// already applied locally survives when the backend does not echo one.
func FromBackend(remote *backend.Cart, prev State) State {
	if remote == nil {
		return prev.Recompute()
	}
	next := State{
		CartID:         remote.CartID,
		CouponApplied:  prev.CouponApplied,
		CouponCode:     prev.CouponCode,
		CouponDiscount: prev.CouponDiscount,
	}

	for _, p := range remote.Packages {
		if strings.TrimSpace(p.PackageID) == "" || p.Quantity < 1 {
			continue
		}
		contents := make([]string, 0, len(p.Items))
		for _, item := range p.Items {
			contents = append(contents, strings.TrimSpace(item.Name+" "+item.Quantity))
		}
		next.Packages = append(next.Packages, PackageLine{
			ID:       p.PackageID,
			Name:     p.Name,
			Price:    p.Price.Decimal,
			Quantity: p.Quantity,
			Contents: contents,
			ImageURL: p.ImageURL,
		})
	}

	for _, item := range remote.Items {
		unit, err := enums.ParseUnit(strings.ToLower(strings.TrimSpace(item.Unit)))
		if err != nil {
			unit = enums.UnitKilogram
		}
		if strings.TrimSpace(item.ProductID) == "" || !item.Quantity.IsPositive() {
			continue
		}
		bucket := strings.TrimSpace(item.Bucket)
		if bucket == "" {
			if idx := prev.itemIndex(item.ProductID); idx >= 0 {
				bucket = prev.Items[idx].Bucket
			}
		}
		if bucket == "" {
			bucket = DefaultBucket
		}
		line := LineItem{
			ID:          item.ProductID,
			Name:        item.Name,
			Bucket:      bucket,
			Unit:        unit,
			Quantity:    item.Quantity.Decimal,
			NormalPrice: item.NormalPrice.Decimal,
			Discount:    item.Discount.Decimal,
			Category:    item.Category,
			Variety:     item.Variety,
			ImageURL:    item.ImageURL,
		}
		if item.DiscountedPrice != nil {
			price := item.DiscountedPrice.Decimal
			line.DiscountedPrice = &price
		}
		next.Items = append(next.Items, line)
	}

	if remote.Coupon != nil && strings.TrimSpace(remote.Coupon.Code) != "" && !remote.Coupon.Discount.IsNegative() {
		next.CouponApplied = true
		next.CouponCode = remote.Coupon.Code
		next.CouponDiscount = remote.Coupon.Discount.Decimal
	}
	return next.recompute()
}

// ToBackendUpdate lists the line quantities of the cart in backend form.
func ToBackendUpdate(s State) backend.CartUpdate {
	update := backend.CartUpdate{
		Packages: make([]backend.CartLineUpdate, 0, len(s.Packages)),
		Items:    make([]backend.CartLineUpdate, 0, len(s.Items)),
	}
	for _, p := range s.Packages {
		update.Packages = append(update.Packages, backend.CartLineUpdate{
			ID:       p.ID,
			Quantity: backend.NewAmount(decimal.NewFromInt(int64(p.Quantity))),
		})
	}
	for _, item := range s.Items {
		update.Items = append(update.Items, backend.CartLineUpdate{
			ID:       item.ID,
			Quantity: backend.NewAmount(item.Quantity),
			Unit:     item.Unit.String(),
		})
	}
	return update
}
