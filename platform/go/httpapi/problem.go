package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Problem type URIs surfaced in application/problem+json responses.
const (
	ProblemTypeValidation   = "https://trophycabinet.app/problems/validation-error"
	ProblemTypeUnauthorized = "https://trophycabinet.app/problems/unauthorized"
	ProblemTypeForbidden    = "https://trophycabinet.app/problems/forbidden"
	ProblemTypeNotFound     = "https://trophycabinet.app/problems/not-found"
	ProblemTypeConflict     = "https://trophycabinet.app/problems/conflict"
	ProblemTypeGone         = "https://trophycabinet.app/problems/gone"
	ProblemTypeInternal     = "https://trophycabinet.app/problems/internal-error"
)

// ProblemDetails is an RFC 7807 error body.
type ProblemDetails struct {
	Type   string               `json:"type,omitempty"`
	Title  string               `json:"title"`
	Status int                  `json:"status"`
	Detail string               `json:"detail,omitempty"`
	Errors *map[string][]string `json:"errors,omitempty"`
}

// WriteProblem renders a problem-details response.
func WriteProblem(w http.ResponseWriter, problem ProblemDetails) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteJSON renders a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ErrBadBody signals an unparseable or missing request body.
var ErrBadBody = errors.New("invalid request body")

const maxBodyBytes = 1 << 20

// DecodeJSON parses a request body into dst, rejecting unknown fields and
// bodies over 1 MiB.
func DecodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	return nil
}
