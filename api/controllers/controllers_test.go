package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/agroworld/storefront/api/middleware"
	"github.com/agroworld/storefront/internal/auth"
	"github.com/agroworld/storefront/internal/cart"
	"github.com/agroworld/storefront/internal/checkout"
	"github.com/agroworld/storefront/internal/orders"
	"github.com/agroworld/storefront/pkg/config"
	"github.com/agroworld/storefront/pkg/db"
	"github.com/agroworld/storefront/pkg/enums"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
)

// Embedding the interface keeps the stubs small; calling anything not
// overridden panics, which flags an unexpected dependency.
type stubCart struct {
	cart.Service
	sessionID string
	addItem   cart.AddItemInput
	update    cart.ItemUpdate
	itemID    string
}

func (s *stubCart) AddItem(_ context.Context, sessionID string, req cart.AddItemInput) (cart.State, error) {
	s.sessionID = sessionID
	s.addItem = req
	return cart.NewState(), nil
}

func (s *stubCart) UpdateItem(_ context.Context, sessionID, itemID string, req cart.ItemUpdate) (cart.State, error) {
	s.sessionID = sessionID
	s.itemID = itemID
	s.update = req
	return cart.NewState(), nil
}

type stubCheckout struct {
	checkout.Service
	revalidated bool
}

func (s *stubCheckout) Validate(checkout.Details) checkout.Result {
	return checkout.Result{Valid: false, Errors: map[string]string{"full_name": "Full name is required"}}
}

func (s *stubCheckout) Revalidate(prev checkout.Result, d checkout.Details) checkout.Result {
	s.revalidated = true
	return checkout.Result{Valid: true, Errors: map[string]string{}, Cleared: []string{"full_name"}}
}

type stubOrders struct {
	orders.Service
	err error
}

func (s stubOrders) Submit(_ context.Context, _ string, req orders.SubmitRequest) (*orders.Confirmation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &orders.Confirmation{OrderID: "ord-7", Status: "placed", PaymentMethod: req.PaymentMethod}, nil
}

type stubAuth struct {
	auth.Service
}

func (stubAuth) Login(_ context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	if req.Password != "secret" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return &auth.LoginResponse{AccessToken: "token-1"}, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error {
	return errors.New("connection refused")
}

func withSession(r *http.Request) *http.Request {
	ctx := middleware.WithUserID(r.Context(), "u-1")
	ctx = middleware.WithSessionID(ctx, "sess-1")
	return r.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCartAddItemPassesDecimalQuantity(t *testing.T) {
	svc := &stubCart{}
	req := withSession(jsonRequest(http.MethodPost, "/api/v1/cart/items", `{"product_id":" carrot ","quantity":"250","unit":"g","bucket":"Soup"}`))
	resp := httptest.NewRecorder()

	CartAddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.sessionID != "sess-1" {
		t.Fatalf("expected session sess-1 got %q", svc.sessionID)
	}
	if svc.addItem.ProductID != "carrot" || svc.addItem.Unit != enums.UnitGram {
		t.Fatalf("unexpected input %+v", svc.addItem)
	}
	if !svc.addItem.Quantity.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected quantity 250 got %s", svc.addItem.Quantity)
	}
	if !strings.Contains(resp.Body.String(), `"buckets"`) {
		t.Fatalf("expected buckets in response: %s", resp.Body.String())
	}
}

func TestCartRequiresSession(t *testing.T) {
	req := jsonRequest(http.MethodPost, "/api/v1/cart/items", `{"product_id":"carrot","quantity":"1","unit":"kg"}`)
	resp := httptest.NewRecorder()

	CartAddItem(&stubCart{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartUpdateItemRequiresAChange(t *testing.T) {
	req := withURLParam(withSession(jsonRequest(http.MethodPatch, "/api/v1/cart/items/i-1", `{}`)), "itemId", "i-1")
	resp := httptest.NewRecorder()

	CartUpdateItem(&stubCart{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartUpdateItemSwitchesUnit(t *testing.T) {
	svc := &stubCart{}
	req := withURLParam(withSession(jsonRequest(http.MethodPatch, "/api/v1/cart/items/i-1", `{"unit":"kg"}`)), "itemId", "i-1")
	resp := httptest.NewRecorder()

	CartUpdateItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.itemID != "i-1" || svc.update.Unit == nil || *svc.update.Unit != enums.UnitKilogram {
		t.Fatalf("unexpected update %q %+v", svc.itemID, svc.update)
	}
	if svc.update.Quantity != nil {
		t.Fatalf("quantity should not be set")
	}
}

func TestCartRejectsUnknownFields(t *testing.T) {
	req := withSession(jsonRequest(http.MethodPost, "/api/v1/cart/items", `{"product_id":"carrot","qty":1}`))
	resp := httptest.NewRecorder()

	CartAddItem(&stubCart{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutValidateReturnsFieldErrors(t *testing.T) {
	svc := &stubCheckout{}
	req := jsonRequest(http.MethodPost, "/api/v1/checkout/validate", `{"delivery_method":"home"}`)
	resp := httptest.NewRecorder()

	CheckoutValidate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var body struct {
		Data checkout.Result `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Valid || body.Data.Errors["full_name"] == "" {
		t.Fatalf("unexpected result %+v", body.Data)
	}
	if svc.revalidated {
		t.Fatalf("revalidate should only run with previous errors")
	}
}

func TestCheckoutValidateReportsClearedFields(t *testing.T) {
	svc := &stubCheckout{}
	req := jsonRequest(http.MethodPost, "/api/v1/checkout/validate", `{"full_name":"Nimal Perera","previous_errors":{"full_name":"Full name is required"}}`)
	resp := httptest.NewRecorder()

	CheckoutValidate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.revalidated {
		t.Fatalf("expected revalidate")
	}
	if !strings.Contains(resp.Body.String(), `"cleared":["full_name"]`) {
		t.Fatalf("expected cleared fields: %s", resp.Body.String())
	}
}

func TestOrderSubmitCreated(t *testing.T) {
	req := withSession(jsonRequest(http.MethodPost, "/api/v1/orders", `{"payment_method":"card"}`))
	resp := httptest.NewRecorder()

	OrderSubmit(stubOrders{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"order_id":"ord-7"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestOrderSubmitBackendRejection(t *testing.T) {
	svc := stubOrders{err: pkgerrors.New(pkgerrors.CodeUpstream, "delivery date is not available")}
	req := withSession(jsonRequest(http.MethodPost, "/api/v1/orders", `{"payment_method":"card"}`))
	resp := httptest.NewRecorder()

	OrderSubmit(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "delivery date is not available") {
		t.Fatalf("expected backend message: %s", resp.Body.String())
	}
}

func TestAuthLoginSetsTokenHeader(t *testing.T) {
	req := jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"email":"farmer@example.com","password":"secret"}`)
	resp := httptest.NewRecorder()

	AuthLogin(stubAuth{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get(tokenHeader); got != "token-1" {
		t.Fatalf("expected token header, got %q", got)
	}
}

func TestAuthLoginRejectsBadCredentials(t *testing.T) {
	req := jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"email":"farmer@example.com","password":"wrong"}`)
	resp := httptest.NewRecorder()

	AuthLogin(stubAuth{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if resp.Header().Get(tokenHeader) != "" {
		t.Fatalf("token header must not be set")
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]db.Pinger{"database": nil}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"database":"skipped"`) {
		t.Fatalf("expected skipped check: %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]db.Pinger{"redis": failingPinger{}}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
