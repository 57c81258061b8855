package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Category is a product category with the number of products listed in it.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Product is a loose product priced per kilogram.
type Product struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	CategoryID      string  `json:"categoryId"`
	Category        string  `json:"category"`
	Variety         string  `json:"variety"`
	ImageURL        string  `json:"imageUrl"`
	NormalPrice     Amount  `json:"normalPrice"`
	Discount        Amount  `json:"discount"`
	DiscountedPrice *Amount `json:"discountedPrice,omitempty"`
	Available       bool    `json:"available"`
}

// Package is a pre-bundled set of products sold at a fixed price.
type Package struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	ImageURL    string        `json:"imageUrl"`
	Price       Amount        `json:"price"`
	Items       []PackageItem `json:"items"`
}

// PackageItem is a display-only line inside a package.
type PackageItem struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// ProductSearch filters the product listing of a category.
type ProductSearch struct {
	CategoryID string
	Search     string
}

// ListCategories returns the product categories with counts.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.do(ctx, request{endpoint: "catalog.categories", method: http.MethodGet, path: "product/categories"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchProducts lists products of a category, optionally filtered by free text.
func (c *Client) SearchProducts(ctx context.Context, search ProductSearch) ([]Product, error) {
	query := url.Values{}
	if term := strings.TrimSpace(search.Search); term != "" {
		query.Set("search", term)
	}
	path := "product"
	if id := strings.TrimSpace(search.CategoryID); id != "" {
		path = "product/category/" + url.PathEscape(id)
	}
	var out []Product
	if err := c.do(ctx, request{endpoint: "catalog.products", method: http.MethodGet, path: path, query: query}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPackages returns every package on sale.
func (c *Client) ListPackages(ctx context.Context) ([]Package, error) {
	var out []Package
	if err := c.do(ctx, request{endpoint: "catalog.packages", method: http.MethodGet, path: "package"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPackage looks a package up by id.
func (c *Client) GetPackage(ctx context.Context, id string) (*Package, error) {
	var out Package
	path := "package/" + url.PathEscape(strings.TrimSpace(id))
	if err := c.do(ctx, request{endpoint: "catalog.package", method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, malformed("catalog.package", "package id missing")
	}
	return &out, nil
}
