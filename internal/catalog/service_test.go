package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/agroworld/storefront/pkg/backend"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
	"github.com/agroworld/storefront/pkg/pagination"
)

type stubCatalog struct {
	categories []backend.Category
	products   []backend.Product
	packages   []backend.Package
	lastSearch backend.ProductSearch
	err        error
}

func (s *stubCatalog) ListCategories(ctx context.Context) ([]backend.Category, error) {
	return s.categories, s.err
}

func (s *stubCatalog) SearchProducts(ctx context.Context, search backend.ProductSearch) ([]backend.Product, error) {
	s.lastSearch = search
	return s.products, s.err
}

func (s *stubCatalog) ListPackages(ctx context.Context) ([]backend.Package, error) {
	return s.packages, s.err
}

func (s *stubCatalog) GetPackage(ctx context.Context, id string) (*backend.Package, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, p := range s.packages {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
}

func amount(v string) backend.Amount {
	return backend.NewAmount(decimal.RequireFromString(v))
}

func newTestService(t *testing.T, stub *stubCatalog) Service {
	t.Helper()
	svc, err := NewService(stub)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCategoriesSkipsMalformed(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubCatalog{categories: []backend.Category{
		{ID: "veg", Name: "Vegetables", Count: 12},
		{ID: "", Name: "ghost"},
		{ID: "fruit", Name: "Fruits", Count: -1},
	}})

	got, err := svc.Categories(context.Background())
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(got) != 2 || got[1].Count != 0 {
		t.Fatalf("unexpected categories %+v", got)
	}
}

func TestProductsComputesEffectivePriceAndPages(t *testing.T) {
	t.Parallel()

	discounted := amount("300")
	stub := &stubCatalog{products: []backend.Product{
		{ID: "p1", Name: "Carrot", NormalPrice: amount("400"), Discount: amount("40")},
		{ID: "p2", Name: "Beans", NormalPrice: amount("500"), Discount: amount("20"), DiscountedPrice: &discounted},
		{ID: "p3", Name: "Leeks", NormalPrice: amount("100"), Discount: amount("150")},
	}}
	svc := newTestService(t, stub)

	page, err := svc.Products(context.Background(), ProductQuery{
		CategoryID: " veg ",
		Search:     " car ",
		Page:       pagination.Params{Limit: 2},
	})
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if stub.lastSearch.CategoryID != "veg" || stub.lastSearch.Search != "car" {
		t.Fatalf("unexpected search %+v", stub.lastSearch)
	}
	if len(page.Items) != 2 || page.NextCursor == "" || page.Total != 3 {
		t.Fatalf("unexpected page %+v", page)
	}
	if !page.Items[0].Price.Equal(decimal.RequireFromString("360")) {
		t.Fatalf("expected 360, got %s", page.Items[0].Price)
	}
	if !page.Items[1].Price.Equal(decimal.RequireFromString("300")) {
		t.Fatalf("expected discounted 300, got %s", page.Items[1].Price)
	}

	next, err := svc.Products(context.Background(), ProductQuery{Page: pagination.Params{Limit: 2, Cursor: page.NextCursor}})
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if len(next.Items) != 1 || !next.Items[0].Price.IsZero() {
		t.Fatalf("expected price floored at zero, got %+v", next.Items)
	}
}

func TestProductsRejectsBadCursor(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubCatalog{})
	_, err := svc.Products(context.Background(), ProductQuery{Page: pagination.Params{Cursor: "%%%"}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPackageContents(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubCatalog{packages: []backend.Package{{
		ID:    "pkg-1",
		Name:  "Family Box",
		Price: amount("2500"),
		Items: []backend.PackageItem{{Name: "Carrot", Quantity: "1kg"}, {Name: " "}, {Name: "Beans"}},
	}}})

	got, err := svc.Package(context.Background(), "pkg-1")
	if err != nil {
		t.Fatalf("package: %v", err)
	}
	if len(got.Contents) != 2 || got.Contents[0] != "Carrot 1kg" || got.Contents[1] != "Beans" {
		t.Fatalf("unexpected contents %v", got.Contents)
	}
	if !got.Price.Equal(decimal.RequireFromString("2500")) {
		t.Fatalf("unexpected price %s", got.Price)
	}

	_, err = svc.Package(context.Background(), " ")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpstreamErrorsPassThrough(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubCatalog{err: pkgerrors.New(pkgerrors.CodeDependency, "failed to fetch, please try again")})
	_, err := svc.Packages(context.Background())
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "failed to fetch, please try again" {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
