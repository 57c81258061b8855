package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// AddPackageRequest adds packages to the server-side cart. CartID is empty on
// the first add, in which case the backend creates the cart.
type AddPackageRequest struct {
	CartID    string `json:"cartId,omitempty"`
	PackageID string `json:"packageId"`
	Quantity  int    `json:"quantity"`
}

// AddProductRequest adds a loose product to the server-side cart.
type AddProductRequest struct {
	CartID    string `json:"cartId,omitempty"`
	ProductID string `json:"productId"`
	Quantity  Amount `json:"quantity"`
	Unit      string `json:"unit"`
}

// CartRef identifies the cart a mutation was applied to.
type CartRef struct {
	CartID string `json:"cartId"`
}

// Cart is the server-side cart as returned by cart reads.
type Cart struct {
	CartID   string        `json:"cartId"`
	Packages []CartPackage `json:"packages"`
	Items    []CartProduct `json:"items"`
	Coupon   *CartCoupon   `json:"coupon,omitempty"`
}

// CartPackage is a package line of the server-side cart.
type CartPackage struct {
	PackageID string        `json:"packageId"`
	Name      string        `json:"name"`
	ImageURL  string        `json:"imageUrl"`
	Price     Amount        `json:"price"`
	Quantity  int           `json:"quantity"`
	Items     []PackageItem `json:"items"`
}

// CartProduct is a loose product line of the server-side cart.
type CartProduct struct {
	ProductID       string  `json:"productId"`
	Name            string  `json:"name"`
	Bucket          string  `json:"bucket"`
	Category        string  `json:"category"`
	Variety         string  `json:"variety"`
	ImageURL        string  `json:"imageUrl"`
	Unit            string  `json:"unit"`
	Quantity        Amount  `json:"quantity"`
	NormalPrice     Amount  `json:"normalPrice"`
	Discount        Amount  `json:"discount"`
	DiscountedPrice *Amount `json:"discountedPrice,omitempty"`
}

// CartCoupon is an applied coupon.
type CartCoupon struct {
	Code     string `json:"code"`
	Discount Amount `json:"discount"`
}

// CartUpdate replaces the quantities of the server-side cart lines.
type CartUpdate struct {
	Packages []CartLineUpdate `json:"packages"`
	Items    []CartLineUpdate `json:"items"`
}

// CartLineUpdate is one line of a cart update.
type CartLineUpdate struct {
	ID       string `json:"id"`
	Quantity Amount `json:"quantity"`
	Unit     string `json:"unit,omitempty"`
}

// CouponResult is the discount granted by a coupon.
type CouponResult struct {
	Code     string `json:"code"`
	Discount Amount `json:"discount"`
}

// AddPackageToCart adds a package and returns the (possibly new) cart id.
func (c *Client) AddPackageToCart(ctx context.Context, req AddPackageRequest) (*CartRef, error) {
	var out CartRef
	if err := c.do(ctx, request{endpoint: "cart.add_package", method: http.MethodPost, path: "cart/add-package", body: req, auth: true}, &out); err != nil {
		return nil, err
	}
	if out.CartID == "" {
		return nil, malformed("cart.add_package", "cart id missing")
	}
	return &out, nil
}

// AddProductToCart adds a loose product and returns the (possibly new) cart id.
func (c *Client) AddProductToCart(ctx context.Context, req AddProductRequest) (*CartRef, error) {
	var out CartRef
	if err := c.do(ctx, request{endpoint: "cart.add_product", method: http.MethodPost, path: "cart/add-product", body: req, auth: true}, &out); err != nil {
		return nil, err
	}
	if out.CartID == "" {
		return nil, malformed("cart.add_product", "cart id missing")
	}
	return &out, nil
}

// GetCart reads the server-side cart.
func (c *Client) GetCart(ctx context.Context, cartID string) (*Cart, error) {
	var out Cart
	if err := c.do(ctx, request{endpoint: "cart.get", method: http.MethodGet, path: cartPath(cartID), auth: true}, &out); err != nil {
		return nil, err
	}
	if out.CartID == "" {
		out.CartID = cartID
	}
	return &out, nil
}

// UpdateCart replaces the line quantities of the server-side cart.
func (c *Client) UpdateCart(ctx context.Context, cartID string, update CartUpdate) error {
	return c.do(ctx, request{endpoint: "cart.update", method: http.MethodPut, path: cartPath(cartID), body: update, auth: true}, nil)
}

// ApplyCoupon validates a coupon against the cart and returns its discount.
func (c *Client) ApplyCoupon(ctx context.Context, cartID, code string) (*CouponResult, error) {
	var out CouponResult
	body := map[string]string{"cartId": cartID, "couponCode": code}
	if err := c.do(ctx, request{endpoint: "cart.apply_coupon", method: http.MethodPost, path: "cart/apply-coupon", body: body, auth: true}, &out); err != nil {
		return nil, err
	}
	if out.Code == "" {
		out.Code = code
	}
	return &out, nil
}

func cartPath(cartID string) string {
	return "cart/" + url.PathEscape(strings.TrimSpace(cartID))
}
