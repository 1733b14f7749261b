package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ariefcatur/storefront-orders/internal/notifications"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/users"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// fail maps domain errors to their status code. Anything unrecognised is a
// 500 with a generic message; the detail only goes to the log.
func fail(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, notifications.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orders.ErrValidation),
		errors.Is(err, notifications.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, orders.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, notifications.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, users.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		logger.Errorw("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
