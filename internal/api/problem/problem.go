// Package problem writes RFC 7807 application/problem+json responses.
package problem

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

// Problem type URIs returned in the "type" member.
const (
	TypeValidation   = "https://meetgrid.dev/problems/validation"
	TypeUnauthorized = "https://meetgrid.dev/problems/unauthorized"
	TypeForbidden    = "https://meetgrid.dev/problems/forbidden"
	TypeNotFound     = "https://meetgrid.dev/problems/not-found"
	TypeConflict     = "https://meetgrid.dev/problems/conflict"
	TypeEventFull    = "https://meetgrid.dev/problems/event-full"
	TypeRateLimited  = "https://meetgrid.dev/problems/rate-limited"
	TypeInternal     = "https://meetgrid.dev/problems/internal"
)

type Details struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Status   int            `json:"status"`
	Detail   string         `json:"detail,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Errors   map[string]any `json:"errors,omitempty"`
}

type Option func(*Details)

// WithDetail sets an explicit human-readable detail string.
func WithDetail(detail string) Option {
	return func(p *Details) {
		p.Detail = detail
	}
}

// WithErrors attaches a per-field error map, used for validation failures.
func WithErrors(errs map[string]any) Option {
	return func(p *Details) {
		p.Errors = errs
	}
}

// Write emits a problem response. Outside development and test the
// underlying error text is replaced by the generic status text so
// internals never leak to clients. 5xx errors log at error level,
// 4xx at warn.
func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, env string, opts ...Option) {
	p := Details{
		Type:   typ,
		Title:  title,
		Status: status,
	}

	for _, opt := range opts {
		opt(&p)
	}

	if p.Detail == "" && err != nil {
		if env == "development" || env == "test" {
			p.Detail = err.Error()
		} else {
			p.Detail = http.StatusText(status)
		}
	}

	if p.Instance == "" && r != nil {
		p.Instance = r.URL.Path
	}

	if err != nil && r != nil {
		logger := zerolog.Ctx(r.Context())
		event := logger.Warn()
		if status >= 500 {
			event = logger.Error()
		}
		event.
			Err(err).
			Int("status", status).
			Str("type", typ).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg(title)
	}

	WriteDetails(w, p)
}

// WriteDetails serializes the problem as-is.
func WriteDetails(w http.ResponseWriter, p Details) {
	payload, err := json.Marshal(p)
	if err != nil {
		fallback := fmt.Sprintf("{\"type\":\"about:blank\",\"title\":\"%s\",\"status\":500}", http.StatusText(http.StatusInternalServerError))
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(fallback))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(p.Status)
	_, _ = w.Write(payload)
}
