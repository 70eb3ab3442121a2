package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/louisbranch/taskdesk/internal/platform/errors"
	"github.com/louisbranch/taskdesk/internal/platform/requestctx"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errRequestTooLarge = apperrors.New(apperrors.CodeValidation, "request body too large")

// writeJSON writes a JSON response with the provided status code.
func writeJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return fmt.Errorf("response writer is required")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// writeError maps err to its status and a localized message. Errors without
// a domain code are logged and reported generically.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || errors.Is(err, errRequestTooLarge) {
		code = apperrors.CodeValidation
		status = http.StatusRequestEntityTooLarge
	}
	if code == apperrors.CodeUnknown {
		h.logf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	if code == apperrors.CodeUnauthenticated {
		clearSessionCookie(w, r)
	}
	locale := requestctx.LocaleFromContext(r.Context())
	message := h.bundle.Format(locale, string(code), apperrors.MetadataOf(err))
	if err := writeJSON(w, status, errorBody{Error: errorDetail{Code: string(code), Message: message}}); err != nil {
		h.logf("write error response: %v", err)
	}
}
