package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// OrderRequest is the payload submitted when the customer confirms payment.
type OrderRequest struct {
	GrandTotal      Amount          `json:"grandTotal"`
	DiscountAmount  Amount          `json:"discountAmount"`
	DeliveryCharge  Amount          `json:"deliveryCharge"`
	PaymentMethod   string          `json:"paymentMethod"`
	CartID          string          `json:"cartId"`
	Items           []OrderLine     `json:"items"`
	CheckoutDetails CheckoutDetails `json:"checkoutDetails"`
}

// OrderLine is a priced line of a submitted order.
type OrderLine struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Unit     string `json:"unit,omitempty"`
	Quantity Amount `json:"quantity"`
	Price    Amount `json:"price"`
	Discount Amount `json:"discount"`
}

// CheckoutDetails mirrors the validated checkout form.
type CheckoutDetails struct {
	DeliveryMethod string  `json:"deliveryMethod"`
	Title          string  `json:"title"`
	FullName       string  `json:"fullName"`
	PhoneCode1     string  `json:"phoneCode1"`
	Phone1         string  `json:"phone1"`
	PhoneCode2     string  `json:"phoneCode2,omitempty"`
	Phone2         string  `json:"phone2,omitempty"`
	DeliveryDate   string  `json:"deliveryDate"`
	TimeSlot       string  `json:"timeSlot"`
	CenterID       string  `json:"centerId,omitempty"`
	BuildingType   string  `json:"buildingType,omitempty"`
	BuildingName   string  `json:"buildingName,omitempty"`
	BuildingNo     string  `json:"buildingNo,omitempty"`
	FlatNumber     string  `json:"flatNumber,omitempty"`
	FloorNumber    string  `json:"floorNumber,omitempty"`
	HouseNo        string  `json:"houseNo,omitempty"`
	Street         string  `json:"street,omitempty"`
	CityID         string  `json:"cityId,omitempty"`
	CityName       string  `json:"cityName,omitempty"`
	Landmark       string  `json:"landmark,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	GeoLatitude    float64 `json:"geoLatitude,omitempty"`
	GeoLongitude   float64 `json:"geoLongitude,omitempty"`
}

// OrderResult acknowledges a created order.
type OrderResult struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// OrderRecord is an order as listed in the history or loaded by id. Fields
// may be missing in older records; callers fall back to display defaults.
type OrderRecord struct {
	OrderID        string           `json:"orderId"`
	OrderNumber    string           `json:"orderNumber"`
	Status         string           `json:"status"`
	PaymentMethod  string           `json:"paymentMethod"`
	DeliveryMethod string           `json:"deliveryMethod"`
	CreatedAt      string           `json:"createdAt"`
	DeliveryDate   string           `json:"deliveryDate"`
	GrandTotal     *Amount          `json:"grandTotal,omitempty"`
	DiscountAmount *Amount          `json:"discountAmount,omitempty"`
	CouponDiscount *Amount          `json:"couponDiscount,omitempty"`
	DeliveryCharge *Amount          `json:"deliveryCharge,omitempty"`
	Packages       []CartPackage    `json:"packages"`
	Items          []CartProduct    `json:"items"`
	Checkout       *CheckoutDetails `json:"checkoutDetails,omitempty"`
}

// Invoice is the data the invoice layout is rendered from.
type Invoice struct {
	InvoiceNumber string      `json:"invoiceNumber"`
	IssuedAt      string      `json:"issuedAt"`
	Order         OrderRecord `json:"order"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	CustomerPhone string      `json:"customerPhone"`
}

// CreateOrder submits the order.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	var out OrderResult
	if err := c.do(ctx, request{endpoint: "order.create", method: http.MethodPost, path: "order/create", body: req, auth: true}, &out); err != nil {
		return nil, err
	}
	if out.OrderID == "" {
		return nil, malformed("order.create", "order id missing")
	}
	return &out, nil
}

// ListOrders returns the order history of the customer.
func (c *Client) ListOrders(ctx context.Context) ([]OrderRecord, error) {
	var out []OrderRecord
	if err := c.do(ctx, request{endpoint: "order.history", method: http.MethodGet, path: "order/history", auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder loads an order by id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderRecord, error) {
	var out OrderRecord
	path := "order/" + url.PathEscape(strings.TrimSpace(orderID))
	if err := c.do(ctx, request{endpoint: "order.get", method: http.MethodGet, path: path, auth: true}, &out); err != nil {
		return nil, err
	}
	if out.OrderID == "" {
		out.OrderID = orderID
	}
	return &out, nil
}

// GetInvoice loads the invoice data of an order.
func (c *Client) GetInvoice(ctx context.Context, orderID string) (*Invoice, error) {
	var out Invoice
	path := "invoice/" + url.PathEscape(strings.TrimSpace(orderID))
	if err := c.do(ctx, request{endpoint: "invoice.get", method: http.MethodGet, path: path, auth: true}, &out); err != nil {
		return nil, err
	}
	if out.Order.OrderID == "" {
		out.Order.OrderID = orderID
	}
	return &out, nil
}
