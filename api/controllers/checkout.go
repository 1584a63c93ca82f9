package controllers

import (
	"net/http"

	"github.com/agrigenai/agrigen-backend/api/responses"
	"github.com/agrigenai/agrigen-backend/api/validators"
	"github.com/agrigenai/agrigen-backend/internal/checkout"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
)

const cartPath = "/cart"

// CheckoutEnter answers with the checkout form and quote, the confirmation of the order just
// placed, or a redirect to the cart when there is nothing to check out.
func CheckoutEnter(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry := sess.EnterCheckout()
		if entry.View == checkout.ViewRedirectCart {
			responses.WriteRedirect(w, cartPath)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// CheckoutPlace places the order and clears the cart.
func CheckoutPlace(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkout.ShippingDetails
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		confirmation, err := sess.PlaceOrder(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"order_id":    confirmation.OrderID,
				"grand_total": confirmation.GrandTotal,
			})
			logg.Info(ctx, "checkout.order_placed")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, confirmation)
	}
}
