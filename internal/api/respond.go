package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/shop-backend/internal/auth"
	"github.com/example/shop-backend/internal/domain/cart"
	"github.com/example/shop-backend/internal/domain/order"
	"github.com/example/shop-backend/internal/domain/product"
	"github.com/example/shop-backend/internal/domain/user"
	"github.com/example/shop-backend/internal/permission"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body so internals do not leak.
func respondDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		respondJSONError(w, "internal error", status)
		return
	}
	respondJSONError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, permission.ErrDenied):
		return http.StatusForbidden
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrIllegalTransition),
		errors.Is(err, product.ErrInsufficientStock),
		errors.Is(err, user.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidProduct),
		errors.Is(err, product.ErrInvalidName),
		errors.Is(err, product.ErrInvalidQuantity),
		errors.Is(err, product.ErrInvalidPrice),
		errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrInvalidRole),
		errors.Is(err, auth.ErrPasswordTooShort):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
