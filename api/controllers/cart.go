package controllers

import (
	"net/http"

	"github.com/agrigenai/agrigen-backend/api/responses"
	"github.com/agrigenai/agrigen-backend/api/validators"
	"github.com/agrigenai/agrigen-backend/internal/cart"
	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/agrigenai/agrigen-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type cartItemRequest struct {
	ID          string `json:"id" validate:"required,max=128"`
	Name        string `json:"name" validate:"required,max=200"`
	Type        string `json:"type" validate:"omitempty,max=100"`
	Price       int64  `json:"price" validate:"min=0"`
	Quantity    int64  `json:"quantity" validate:"required,min=1"`
	Description string `json:"description" validate:"omitempty,max=500"`
	Image       string `json:"image" validate:"omitempty,max=16"`
}

func (req cartItemRequest) lineItem() cart.LineItem {
	return cart.LineItem{
		ID:          validators.SanitizeString(req.ID, 128),
		Name:        validators.SanitizeString(req.Name, 200),
		Type:        validators.SanitizeString(req.Type, 100),
		UnitPrice:   req.Price,
		Quantity:    req.Quantity,
		Description: validators.SanitizeString(req.Description, 500),
		ImageGlyph:  validators.SanitizeString(req.Image, 16),
	}
}

type quantityRequest struct {
	Quantity *int64 `json:"quantity" validate:"required"`
}

// CartFetch returns the lines, totals and checkout quote.
func CartFetch(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sess.Cart())
	}
}

// CartAddItem adds a line or merges it into the line with the same id.
func CartAddItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := sess.AddItem(r.Context(), body.lineItem())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartUpdateItem sets the quantity of a line; zero or less removes it.
func CartUpdateItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := itemIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body quantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := sess.SetQuantity(r.Context(), itemID, *body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartRemoveItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := itemIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := sess.RemoveItem(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func itemIDParam(r *http.Request) (string, error) {
	id := validators.SanitizeString(chi.URLParam(r, "itemId"), 128)
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	return id, nil
}
