package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agroworld/storefront/internal/cart"
	"github.com/agroworld/storefront/pkg/backend"
)

const displayDate = "2006-01-02"

var recordDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	displayDate,
}

// Money formats an amount for display with two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Render turns a backend order record into a view. Missing or malformed
// fields fall back to display defaults instead of failing.
func Render(rec backend.OrderRecord, loc *time.Location) View {
	lines := cart.FromBackend(&backend.Cart{Packages: rec.Packages, Items: rec.Items}, cart.State{})
	coupon := amountOrZero(rec.CouponDiscount)
	summary := cart.Calculate(lines.Packages, lines.Items, coupon)
	delivery := amountOrZero(rec.DeliveryCharge)
	if delivery.IsNegative() {
		delivery = decimal.Zero
	}

	view := View{
		OrderID:        orNA(rec.OrderID),
		OrderNumber:    orNA(rec.OrderNumber),
		Status:         orNA(rec.Status),
		PaymentMethod:  orNA(rec.PaymentMethod),
		DeliveryMethod: orNA(rec.DeliveryMethod),
		PlacedOn:       FormatDate(rec.CreatedAt, loc),
		DeliveryDate:   FormatDate(rec.DeliveryDate, loc),
		Summary:        summary,
		Totals:         totals(summary, delivery),
		Lines:          renderLines(lines),
	}
	if rec.Checkout != nil {
		addr := renderAddress(*rec.Checkout)
		view.Address = &addr
		if view.DeliveryMethod == NotAvailable && rec.Checkout.DeliveryMethod != "" {
			view.DeliveryMethod = rec.Checkout.DeliveryMethod
		}
	}
	return view
}

// RenderInvoice builds the invoice view of a record.
func RenderInvoice(inv backend.Invoice, loc *time.Location) InvoiceView {
	return InvoiceView{
		InvoiceNumber: orNA(inv.InvoiceNumber),
		IssuedOn:      FormatDate(inv.IssuedAt, loc),
		Customer: Customer{
			Name:  orNA(inv.CustomerName),
			Email: orNA(inv.CustomerEmail),
			Phone: orNA(inv.CustomerPhone),
		},
		Order: Render(inv.Order, loc),
	}
}

// FormatDate renders a backend timestamp as a calendar date in loc, or N/A.
func FormatDate(raw string, loc *time.Location) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NotAvailable
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range recordDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			if layout == displayDate {
				return t.Format(displayDate)
			}
			return t.In(loc).Format(displayDate)
		}
	}
	return NotAvailable
}

func totals(s cart.Summary, delivery decimal.Decimal) Totals {
	return Totals{
		PackageTotal:   Money(s.PackageTotal),
		ProductTotal:   Money(s.ProductTotal),
		GrandTotal:     Money(s.GrandTotal),
		TotalDiscount:  Money(s.TotalDiscount),
		CouponDiscount: Money(s.CouponDiscount),
		FinalTotal:     Money(s.FinalTotal),
		DeliveryCharge: Money(delivery),
		AmountDue:      Money(s.FinalTotal.Add(delivery)),
	}
}

func renderLines(s cart.State) []Line {
	out := make([]Line, 0, len(s.Packages)+len(s.Items))
	for _, p := range s.Packages {
		qty := decimal.NewFromInt(int64(p.Quantity))
		out = append(out, Line{
			Kind:     "package",
			ID:       p.ID,
			Name:     orNA(p.Name),
			Quantity: qty.String(),
			Price:    Money(p.Price),
			Discount: Money(decimal.Zero),
			Total:    Money(p.Price.Mul(qty)),
		})
	}
	for _, item := range s.Items {
		price, discount := cart.LinePrice(item)
		out = append(out, Line{
			Kind:     "item",
			ID:       item.ID,
			Name:     orNA(item.Name),
			Quantity: item.Quantity.String(),
			Unit:     item.Unit.String(),
			Price:    Money(price),
			Discount: Money(discount),
			Total:    Money(price.Sub(discount)),
		})
	}
	return out
}

func renderAddress(d backend.CheckoutDetails) Address {
	addr := Address{
		DeliveryMethod: orNA(d.DeliveryMethod),
		FullName:       orNA(strings.TrimSpace(d.Title + " " + d.FullName)),
		Phone:          orNA(strings.TrimSpace(d.PhoneCode1 + " " + d.Phone1)),
		TimeSlot:       orNA(d.TimeSlot),
	}
	for _, part := range []string{
		joinNonEmpty(" ", d.FlatNumber, d.FloorNumber, d.BuildingNo, d.BuildingName),
		joinNonEmpty(" ", d.HouseNo, d.Street),
		d.CityName,
		d.Landmark,
	} {
		if part = strings.TrimSpace(part); part != "" {
			addr.Lines = append(addr.Lines, part)
		}
	}
	if len(addr.Lines) == 0 {
		addr.Lines = []string{NotAvailable}
	}
	return addr
}

func amountOrZero(a *backend.Amount) decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	return a.Decimal
}

func orNA(value string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return NotAvailable
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
