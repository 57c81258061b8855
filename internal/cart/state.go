package cart

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/agroworld/storefront/pkg/enums"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
)

// State is the client cart. Mutations never modify the receiver; they return
// a new State whose Summary has been recomputed from the new lines.
type State struct {
	CartID         string          `json:"cart_id,omitempty"`
	Packages       []PackageLine   `json:"packages"`
	Items          []LineItem      `json:"items"`
	CouponApplied  bool            `json:"coupon_applied"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	Summary        Summary         `json:"summary"`
}

// Bucket is a named group of line items, as shown on the cart page.
type Bucket struct {
	Name  string     `json:"name"`
	Items []LineItem `json:"items"`
}

// NewState returns an empty cart with zeroed totals.
func NewState() State {
	return State{}.recompute()
}

// IsEmpty reports whether the cart holds no lines.
func (s State) IsEmpty() bool {
	return len(s.Packages) == 0 && len(s.Items) == 0
}

// Recompute returns a copy with the summary derived from the current lines.
func (s State) Recompute() State {
	return s.clone().recompute()
}

// SetCartID records the backend cart identifier.
func (s State) SetCartID(id string) State {
	next := s.clone()
	next.CartID = strings.TrimSpace(id)
	return next.recompute()
}

// AddPackage adds a package line, merging quantities when the package is already present.
func (s State) AddPackage(line PackageLine) (State, error) {
	if err := validatePackage(line); err != nil {
		return s, err
	}
	next := s.clone()
	if idx := next.packageIndex(line.ID); idx >= 0 {
		next.Packages[idx].Quantity += line.Quantity
		return next.recompute(), nil
	}
	line.Contents = append([]string(nil), line.Contents...)
	next.Packages = append(next.Packages, line)
	return next.recompute(), nil
}

// SetPackageQuantity replaces the number of packages on a line.
func (s State) SetPackageQuantity(id string, quantity int) (State, error) {
	if quantity < 1 {
		return s, pkgerrors.New(pkgerrors.CodeValidation, "package quantity must be at least 1")
	}
	next := s.clone()
	idx := next.packageIndex(id)
	if idx < 0 {
		return s, pkgerrors.New(pkgerrors.CodeNotFound, "package not in cart")
	}
	next.Packages[idx].Quantity = quantity
	return next.recompute(), nil
}

// RemovePackage drops a package line.
func (s State) RemovePackage(id string) (State, error) {
	idx := s.packageIndex(id)
	if idx < 0 {
		return s, pkgerrors.New(pkgerrors.CodeNotFound, "package not in cart")
	}
	next := s.clone()
	next.Packages = append(next.Packages[:idx], next.Packages[idx+1:]...)
	return next.recompute(), nil
}

// AddItem adds a product line. Adding a product already in the cart merges
// the quantity, converted to the unit of the existing line.
func (s State) AddItem(item LineItem) (State, error) {
	if err := validateItem(item); err != nil {
		return s, err
	}
	if strings.TrimSpace(item.Bucket) == "" {
		item.Bucket = DefaultBucket
	}
	next := s.clone()
	if idx := next.itemIndex(item.ID); idx >= 0 {
		existing := next.Items[idx]
		added := ConvertQuantity(item.Quantity, item.Unit, existing.Unit)
		next.Items[idx].Quantity = existing.Quantity.Add(added)
		return next.recompute(), nil
	}
	next.Items = append(next.Items, item)
	return next.recompute(), nil
}

// SetItemQuantity replaces the quantity of a product line, in its current unit.
func (s State) SetItemQuantity(id string, quantity decimal.Decimal) (State, error) {
	if !quantity.IsPositive() {
		return s, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be greater than zero")
	}
	next := s.clone()
	idx := next.itemIndex(id)
	if idx < 0 {
		return s, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	next.Items[idx].Quantity = quantity
	return next.recompute(), nil
}

// ChangeItemUnit switches a product line between kg and g. The stored
// quantity is rescaled so the weight ordered does not change.
func (s State) ChangeItemUnit(id string, unit enums.Unit) (State, error) {
	if !unit.IsValid() {
		return s, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported unit %q", unit))
	}
	next := s.clone()
	idx := next.itemIndex(id)
	if idx < 0 {
		return s, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	current := next.Items[idx]
	next.Items[idx].Quantity = ConvertQuantity(current.Quantity, current.Unit, unit)
	next.Items[idx].Unit = unit
	return next.recompute(), nil
}

// RemoveItem drops a product line.
func (s State) RemoveItem(id string) (State, error) {
	idx := s.itemIndex(id)
	if idx < 0 {
		return s, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	next := s.clone()
	next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
	return next.recompute(), nil
}

// ApplyCoupon records a flat coupon discount.
func (s State) ApplyCoupon(code string, amount decimal.Decimal) (State, error) {
	if amount.IsNegative() {
		return s, pkgerrors.New(pkgerrors.CodeValidation, "coupon discount cannot be negative")
	}
	next := s.clone()
	next.CouponApplied = true
	next.CouponCode = strings.TrimSpace(code)
	next.CouponDiscount = amount
	return next.recompute(), nil
}

// ClearCoupon removes any applied coupon.
func (s State) ClearCoupon() State {
	next := s.clone()
	next.CouponApplied = false
	next.CouponCode = ""
	next.CouponDiscount = decimal.Zero
	return next.recompute()
}

// Clear empties the cart, dropping the backend cart id as well.
func (s State) Clear() State {
	return NewState()
}

// Buckets groups product lines by bucket name in first-seen order.
func (s State) Buckets() []Bucket {
	var buckets []Bucket
	index := map[string]int{}
	for _, item := range s.Items {
		name := item.Bucket
		if name == "" {
			name = DefaultBucket
		}
		pos, ok := index[name]
		if !ok {
			pos = len(buckets)
			index[name] = pos
			buckets = append(buckets, Bucket{Name: name})
		}
		buckets[pos].Items = append(buckets[pos].Items, item)
	}
	return buckets
}

func (s State) coupon() decimal.Decimal {
	if !s.CouponApplied {
		return decimal.Zero
	}
	return s.CouponDiscount
}

func (s State) recompute() State {
	s.Summary = Calculate(s.Packages, s.Items, s.coupon())
	return s
}

func (s State) clone() State {
	next := s
	next.Packages = append([]PackageLine(nil), s.Packages...)
	next.Items = append([]LineItem(nil), s.Items...)
	return next
}

func (s State) packageIndex(id string) int {
	for i, p := range s.Packages {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s State) itemIndex(id string) int {
	for i, item := range s.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func validatePackage(line PackageLine) error {
	if strings.TrimSpace(line.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "package id is required")
	}
	if line.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "package quantity must be at least 1")
	}
	if line.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "package price cannot be negative")
	}
	return nil
}

func validateItem(item LineItem) error {
	if strings.TrimSpace(item.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if !item.Unit.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported unit %q", item.Unit))
	}
	if !item.Quantity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be greater than zero")
	}
	if item.NormalPrice.IsNegative() || item.Discount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "item prices cannot be negative")
	}
	return nil
}
