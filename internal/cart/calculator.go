package cart

import (
	"github.com/shopspring/decimal"

	"github.com/agroworld/storefront/pkg/enums"
)

// DefaultBucket groups loose items added outside of a named section.
const DefaultBucket = "Additional Items"

var gramsPerKilogram = decimal.NewFromInt(1000)

// PackageLine is a pre-bundled package sold at a fixed price per package.
// Contents are display-only and never priced separately.
type PackageLine struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Contents []string        `json:"contents,omitempty"`
	ImageURL string          `json:"image_url,omitempty"`
}

// LineItem is an individually priced product. NormalPrice, Discount and
// DiscountedPrice are all quoted per kilogram regardless of Unit.
type LineItem struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Bucket          string           `json:"bucket"`
	Unit            enums.Unit       `json:"unit"`
	Quantity        decimal.Decimal  `json:"quantity"`
	NormalPrice     decimal.Decimal  `json:"normal_price"`
	Discount        decimal.Decimal  `json:"discount"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	Category        string           `json:"category,omitempty"`
	Variety         string           `json:"variety,omitempty"`
	ImageURL        string           `json:"image_url,omitempty"`
}

// Summary is the derived set of totals for a cart. It is never stored on its
// own; every mutation of the cart recomputes all fields together.
type Summary struct {
	PackageTotal    decimal.Decimal `json:"package_total"`
	ProductTotal    decimal.Decimal `json:"product_total"`
	ProductDiscount decimal.Decimal `json:"product_discount"`
	CouponDiscount  decimal.Decimal `json:"coupon_discount"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	TotalDiscount   decimal.Decimal `json:"total_discount"`
	FinalTotal      decimal.Decimal `json:"final_total"`
	PackageCount    int             `json:"package_count"`
	ProductCount    int             `json:"product_count"`
	TotalItems      int             `json:"total_items"`
}

// Calculate produces the order summary for the given lines.
//
// Each package line and each product line counts once towards TotalItems,
// whatever its quantity. A negative coupon is treated as zero. A FinalTotal
// below zero is returned as is; callers that submit orders reject it.
func Calculate(packages []PackageLine, items []LineItem, coupon decimal.Decimal) Summary {
	packageTotal := decimal.Zero
	for _, p := range packages {
		packageTotal = packageTotal.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Quantity))))
	}

	productTotal := decimal.Zero
	productDiscount := decimal.Zero
	for _, item := range items {
		kg := KilogramQuantity(item.Unit, item.Quantity)
		productTotal = productTotal.Add(item.NormalPrice.Mul(kg))
		productDiscount = productDiscount.Add(item.Discount.Mul(kg))
	}

	if coupon.IsNegative() {
		coupon = decimal.Zero
	}

	grandTotal := packageTotal.Add(productTotal)
	totalDiscount := productDiscount.Add(coupon)

	return Summary{
		PackageTotal:    packageTotal,
		ProductTotal:    productTotal,
		ProductDiscount: productDiscount,
		CouponDiscount:  coupon,
		GrandTotal:      grandTotal,
		TotalDiscount:   totalDiscount,
		FinalTotal:      grandTotal.Sub(totalDiscount),
		PackageCount:    len(packages),
		ProductCount:    len(items),
		TotalItems:      len(packages) + len(items),
	}
}

// KilogramQuantity normalizes a quantity to kilograms. Unknown units are
// treated as kilograms.
func KilogramQuantity(unit enums.Unit, quantity decimal.Decimal) decimal.Decimal {
	if unit == enums.UnitGram {
		return quantity.Div(gramsPerKilogram)
	}
	return quantity
}

// ConvertQuantity rescales a quantity between units so that the kilogram
// equivalent stays the same.
func ConvertQuantity(quantity decimal.Decimal, from, to enums.Unit) decimal.Decimal {
	if from == to {
		return quantity
	}
	kg := KilogramQuantity(from, quantity)
	if to == enums.UnitGram {
		return kg.Mul(gramsPerKilogram)
	}
	return kg
}

// LinePrice returns the per-line price and discount contributions of an item.
func LinePrice(item LineItem) (price, discount decimal.Decimal) {
	kg := KilogramQuantity(item.Unit, item.Quantity)
	return item.NormalPrice.Mul(kg), item.Discount.Mul(kg)
}
