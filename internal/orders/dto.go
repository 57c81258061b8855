package orders

import (
	"github.com/shopspring/decimal"

	"github.com/agroworld/storefront/internal/cart"
	"github.com/agroworld/storefront/pkg/enums"
)

// NotAvailable is shown wherever an order record lacks a value.
const NotAvailable = "N/A"

// SubmitRequest is the payment method picked in the payment popup.
type SubmitRequest struct {
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
}

// Confirmation acknowledges a submitted order.
type Confirmation struct {
	OrderID        string              `json:"order_id"`
	Status         string              `json:"status"`
	Message        string              `json:"message,omitempty"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	Summary        cart.Summary        `json:"summary"`
	DeliveryCharge decimal.Decimal     `json:"delivery_charge"`
	AmountDue      decimal.Decimal     `json:"amount_due"`
}

// Totals are the order totals formatted for display with two decimals.
type Totals struct {
	PackageTotal   string `json:"package_total"`
	ProductTotal   string `json:"product_total"`
	GrandTotal     string `json:"grand_total"`
	TotalDiscount  string `json:"total_discount"`
	CouponDiscount string `json:"coupon_discount"`
	FinalTotal     string `json:"final_total"`
	DeliveryCharge string `json:"delivery_charge"`
	AmountDue      string `json:"amount_due"`
}

// Line is an order line as shown in history, detail and invoice views.
type Line struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit,omitempty"`
	Price    string `json:"price"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
}

// Address is the delivery or pickup block of an order.
type Address struct {
	DeliveryMethod string   `json:"delivery_method"`
	FullName       string   `json:"full_name"`
	Phone          string   `json:"phone"`
	Lines          []string `json:"lines"`
	TimeSlot       string   `json:"time_slot"`
}

// View is one rendered order. Every total is recomputed from the order lines.
type View struct {
	OrderID        string       `json:"order_id"`
	OrderNumber    string       `json:"order_number"`
	Status         string       `json:"status"`
	PaymentMethod  string       `json:"payment_method"`
	DeliveryMethod string       `json:"delivery_method"`
	PlacedOn       string       `json:"placed_on"`
	DeliveryDate   string       `json:"delivery_date"`
	Summary        cart.Summary `json:"summary"`
	Totals         Totals       `json:"totals"`
	Lines          []Line       `json:"lines"`
	Address        *Address     `json:"address,omitempty"`
}

// Customer is the billed party printed on an invoice.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// InvoiceView carries everything the invoice layout renders.
type InvoiceView struct {
	InvoiceNumber string   `json:"invoice_number"`
	IssuedOn      string   `json:"issued_on"`
	Customer      Customer `json:"customer"`
	Order         View     `json:"order"`
}
