package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/jiglearn/playcode/internal/code"
	"github.com/jiglearn/playcode/internal/session"
	"github.com/jiglearn/playcode/internal/token"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// httpError translates domain errors into status codes. Only this layer knows
// about HTTP; the stores hand up sentinel errors.
func httpError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, code.ErrCodeNotFound), errors.Is(err, code.ErrJigNotFound):
		status = http.StatusNotFound
	case errors.Is(err, code.ErrCodeExpired), errors.Is(err, token.ErrTokenExpired):
		status = http.StatusGone
	case errors.Is(err, code.ErrNotAuthor):
		status = http.StatusForbidden
	case errors.Is(err, code.ErrSpaceExhausted):
		status = http.StatusServiceUnavailable
	case errors.Is(err, token.ErrBadToken),
		errors.Is(err, session.ErrClockSkew),
		errors.Is(err, session.ErrJigMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrPayloadTooLarge):
		status = http.StatusRequestEntityTooLarge
	default:
		status = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), status)
}

func decodeValid(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return validate.Struct(v)
}

func indexParam(raw string) (int32, error) {
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || n < 0 {
		return 0, errors.New("bad code index")
	}
	return int32(n), nil
}
