package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/agroworld/storefront/pkg/errors"
	"github.com/agroworld/storefront/pkg/metrics"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL+"/api/", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestLoginSendsCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Email != "a@farm.lk" || body.Password != "pw" {
			t.Fatalf("unexpected body %+v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-1", "userId": "u-1"})
	})

	res, err := client.Login(context.Background(), LoginRequest{Email: "a@farm.lk", Password: "pw"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Token != "tok-1" || res.UserID != "u-1" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestBackendMessageSurfacedVerbatim(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"error","message":"Account already exists"}`))
	})

	_, err := client.Signup(context.Background(), SignupRequest{Email: "a@farm.lk"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if typed.Message() != "Account already exists" {
		t.Fatalf("expected backend message, got %q", typed.Message())
	}
}

func TestServerErrorIsDependencyFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListCategories(context.Background())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if typed.Message() != unreachableMessage {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestAuthenticatedCallsRequireToken(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.GetCart(context.Background(), "cart-1")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if called {
		t.Fatal("backend should not be called without a token")
	}
}

func TestGetCartForwardsBearerToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-9" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		if r.URL.Path != "/api/cart/cart-1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"cartId": "cart-1",
			"packages": [{"packageId": "p1", "name": "Veg box", "price": 1000, "quantity": 2}],
			"items": [{"productId": "i1", "unit": "g", "quantity": "500", "normalPrice": 200, "discount": 20}]
		}`))
	})

	ctx := WithBearerToken(context.Background(), "tok-9")
	cart, err := client.GetCart(ctx, "cart-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Packages) != 1 || cart.Packages[0].Price.Cmp(decimal.NewFromInt(1000)) != 0 {
		t.Fatalf("unexpected packages %+v", cart.Packages)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity.Cmp(decimal.NewFromInt(500)) != 0 {
		t.Fatalf("unexpected items %+v", cart.Items)
	}
}

func TestSearchProductsBuildsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/product/category/veg" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("search"); got != "carrot" {
			t.Fatalf("unexpected search %q", got)
		}
		_, _ = w.Write([]byte(`[{"id":"c1","name":"Carrot","normalPrice":"320.50"}]`))
	})

	products, err := client.SearchProducts(context.Background(), ProductSearch{CategoryID: "veg", Search: " carrot "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 || products[0].NormalPrice.String() != "320.5" {
		t.Fatalf("unexpected products %+v", products)
	}
}

func TestCreateOrderSendsNumericAmounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, ok := raw["grandTotal"].(float64); !ok {
			t.Fatalf("expected numeric grandTotal, got %T", raw["grandTotal"])
		}
		_, _ = w.Write([]byte(`{"orderId":"o-1","status":"created"}`))
	})

	ctx := WithBearerToken(context.Background(), "tok")
	res, err := client.CreateOrder(ctx, OrderRequest{
		GrandTotal:     NewAmount(decimal.RequireFromString("2100.00")),
		DiscountAmount: NewAmount(decimal.NewFromInt(10)),
		PaymentMethod:  "cash_on_delivery",
		CartID:         "cart-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OrderID != "o-1" {
		t.Fatalf("unexpected order id %q", res.OrderID)
	}
}

func TestMalformedReplyIsDependencyFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token": 12`))
	})

	_, err := client.Login(context.Background(), LoginRequest{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCancelledContextAbortsRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.ListPackages(ctx)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestClientRecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	reg := prometheus.NewRegistry()
	client, err := NewClient(srv.URL, WithHTTPClient(srv.Client()), WithMetrics(metrics.NewStorefrontMetrics(reg)))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.now = fixedClock(time.Unix(0, 0))

	if _, err := client.GetPackage(context.Background(), "missing"); err == nil {
		t.Fatal("expected not found error")
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() != "upstream_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == metrics.OutcomeRejected {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatal("expected a rejected upstream call to be recorded")
	}
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
