package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/agroworld/storefront/pkg/backend"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
	"github.com/agroworld/storefront/pkg/pagination"
)

// Service exposes the read-only catalog.
type Service interface {
	Categories(ctx context.Context) ([]Category, error)
	Products(ctx context.Context, q ProductQuery) (pagination.Page[Product], error)
	Packages(ctx context.Context) ([]Package, error)
	Package(ctx context.Context, id string) (*Package, error)
}

// Category is a product category with its product count.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Product is a loose product. All prices are per kilogram.
type Product struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	CategoryID      string           `json:"category_id,omitempty"`
	Category        string           `json:"category,omitempty"`
	Variety         string           `json:"variety,omitempty"`
	ImageURL        string           `json:"image_url,omitempty"`
	NormalPrice     decimal.Decimal  `json:"normal_price"`
	Discount        decimal.Decimal  `json:"discount"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	Available       bool             `json:"available"`
}

// Package is a fixed-price bundle. Contents are display only.
type Package struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Contents    []string        `json:"contents"`
}

// ProductQuery filters and pages the product listing.
type ProductQuery struct {
	CategoryID string
	Search     string
	Page       pagination.Params
}

type catalogClient interface {
	ListCategories(ctx context.Context) ([]backend.Category, error)
	SearchProducts(ctx context.Context, search backend.ProductSearch) ([]backend.Product, error)
	ListPackages(ctx context.Context) ([]backend.Package, error)
	GetPackage(ctx context.Context, id string) (*backend.Package, error)
}

type service struct {
	backend catalogClient
}

// NewService constructs a catalog service.
func NewService(client catalogClient) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	return &service{backend: client}, nil
}

func (s *service) Categories(ctx context.Context) ([]Category, error) {
	remote, err := s.backend.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Category, 0, len(remote))
	for _, c := range remote {
		if strings.TrimSpace(c.ID) == "" {
			continue
		}
		count := c.Count
		if count < 0 {
			count = 0
		}
		out = append(out, Category{ID: c.ID, Name: c.Name, Count: count})
	}
	return out, nil
}

func (s *service) Products(ctx context.Context, q ProductQuery) (pagination.Page[Product], error) {
	if _, err := pagination.ParseCursor(q.Page.Cursor); err != nil {
		return pagination.Page[Product]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	remote, err := s.backend.SearchProducts(ctx, backend.ProductSearch{
		CategoryID: strings.TrimSpace(q.CategoryID),
		Search:     strings.TrimSpace(q.Search),
	})
	if err != nil {
		return pagination.Page[Product]{}, err
	}
	products := make([]Product, 0, len(remote))
	for _, p := range remote {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		products = append(products, fromBackendProduct(p))
	}
	return pagination.Slice(products, q.Page)
}

func (s *service) Packages(ctx context.Context) ([]Package, error) {
	remote, err := s.backend.ListPackages(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Package, 0, len(remote))
	for _, p := range remote {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		out = append(out, fromBackendPackage(p))
	}
	return out, nil
}

func (s *service) Package(ctx context.Context, id string) (*Package, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id is required")
	}
	remote, err := s.backend.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	out := fromBackendPackage(*remote)
	return &out, nil
}

// EffectivePrice is the per-kilogram price a shopper pays: the discounted
// price when the backend quotes one, otherwise the normal price less the discount.
func EffectivePrice(normal, discount decimal.Decimal, discounted *decimal.Decimal) decimal.Decimal {
	if discounted != nil && discounted.IsPositive() {
		return *discounted
	}
	price := normal.Sub(discount)
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

func fromBackendProduct(p backend.Product) Product {
	out := Product{
		ID:          p.ID,
		Name:        p.Name,
		CategoryID:  p.CategoryID,
		Category:    p.Category,
		Variety:     p.Variety,
		ImageURL:    p.ImageURL,
		NormalPrice: p.NormalPrice.Decimal,
		Discount:    p.Discount.Decimal,
		Available:   p.Available,
	}
	if p.DiscountedPrice != nil {
		d := p.DiscountedPrice.Decimal
		out.DiscountedPrice = &d
	}
	out.Price = EffectivePrice(out.NormalPrice, out.Discount, out.DiscountedPrice)
	return out
}

func fromBackendPackage(p backend.Package) Package {
	contents := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		if qty := strings.TrimSpace(item.Quantity); qty != "" {
			name = name + " " + qty
		}
		contents = append(contents, name)
	}
	return Package{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Price:       p.Price.Decimal,
		Contents:    contents,
	}
}
