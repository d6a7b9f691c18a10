// Package httputil centralizes JSON response and domain error translation so
// every handler emits the same envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "worklink/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Decoder is implemented by request types that validate themselves after
// JSON decoding.
type Decoder interface {
	Validate() error
}

// Decode reads and validates a JSON request body. On failure it writes the
// error envelope and returns ok=false; the handler should return immediately.
func Decode[T any, PT interface {
	*T
	Decoder
}](w http.ResponseWriter, r *http.Request) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed JSON body"))
		return nil, false
	}
	if err := PT(&req).Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}

// WriteError translates a domain error into the JSON error envelope.
// Internal and invariant errors omit the description so store and dependency
// detail never leaks to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	body := map[string]string{"error": string(code)}
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) && de.Message != "" {
			body["error_description"] = de.Message
		}
	}

	WriteJSON(w, status, body)
}
