package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/agroworld/storefront/api/middleware"
	"github.com/agroworld/storefront/api/responses"
	"github.com/agroworld/storefront/api/validators"
	"github.com/agroworld/storefront/internal/cart"
	"github.com/agroworld/storefront/pkg/enums"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
	"github.com/agroworld/storefront/pkg/logger"
)

type addPackageRequest struct {
	PackageID string `json:"package_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type addItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      enums.Unit      `json:"unit" validate:"required"`
	Bucket    string          `json:"bucket" validate:"omitempty,max=50"`
}

type updatePackageRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type updateItemRequest struct {
	Quantity *decimal.Decimal `json:"quantity"`
	Unit     *enums.Unit      `json:"unit"`
}

type couponRequest struct {
	Code string `json:"code" validate:"required,max=50"`
}

type cartResponse struct {
	cart.State
	Buckets []cart.Bucket `json:"buckets"`
}

func newCartResponse(s cart.State) cartResponse {
	buckets := s.Buckets()
	if buckets == nil {
		buckets = []cart.Bucket{}
	}
	return cartResponse{State: s, Buckets: buckets}
}

// cartHandler runs fn for the session of the request and renders the cart it returns.
func cartHandler(svc cart.Service, logg *logger.Logger, fn func(r *http.Request, sessionID string) (cart.State, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sessionID, err := middleware.RequireSession(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := fn(r, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(state))
	}
}

// CartFetch returns the cart. refresh=true reloads it from the backend first.
func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (cart.State, error) {
		if strings.EqualFold(r.URL.Query().Get("refresh"), "true") {
			return svc.Refresh(r.Context(), sessionID)
		}
		return svc.Get(r.Context(), sessionID)
	})
}

func CartAddPackage(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (cart.State, error) {
		var body addPackageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return cart.State{}, err
		}
		return svc.AddPackage(r.Context(), sessionID, cart.AddPackageInput{
			PackageID: strings.TrimSpace(body.PackageID),
			Quantity:  body.Quantity,
		})
	})
}

func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (cart.State, error) {
		var body addItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return cart.State{}, err
		}
		return svc.AddItem(r.Context(), sessionID, cart.AddItemInput{
			ProductID: strings.TrimSpace(body.ProductID),
			Quantity:  body.Quantity,
			Unit:      body.Unit,
			Bucket:    strings.TrimSpace(body.Bucket),
		})
	})
}

func CartUpdatePackage(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (cart.State, error) {
		var body updatePackageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return cart.State{}, err
		}
		return svc.UpdatePackage(r.Context(), sessionID, chi.URLParam(r, "packageId"), body.Quantity)
	})
}

func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (cart.State, error) {
		var body updateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return cart.State{}, err
		}
		if body.Quantity == nil && body.Unit == nil {
			return cart.State{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity or unit is required")
		}
		return svc.UpdateItem(r.Context(), sessionID, chi.URLParam(r, "itemId"), cart.ItemUpdate{
			Quantity: body.Quantity,
			Unit:     body.Unit,
		})
	})
}

func CartRemovePackage(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (cart.State, error) {
		return svc.RemovePackage(r.Context(), sessionID, chi.URLParam(r, "packageId"))
	})
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (cart.State, error) {
		return svc.RemoveItem(r.Context(), sessionID, chi.URLParam(r, "itemId"))
	})
}

func CartApplyCoupon(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (cart.State, error) {
		var body couponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return cart.State{}, err
		}
		return svc.ApplyCoupon(r.Context(), sessionID, strings.TrimSpace(body.Code))
	})
}

func CartClearCoupon(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, func(r *http.Request, sessionID string) (cart.State, error) {
		return svc.ClearCoupon(r.Context(), sessionID)
	})
}
