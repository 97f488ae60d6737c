package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"pocketbook/internal/auth"
	"pocketbook/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return core.ValidationError("Request body is required")
		case errors.As(err, &maxErr):
			return core.ValidationError("Request body too large")
		default:
			return core.ValidationError("Invalid JSON body: %s", err.Error())
		}
	}
	if dec.More() {
		return core.ValidationError("Invalid JSON body: unexpected trailing data")
	}
	return nil
}

// queryString returns nil when the parameter is absent or blank.
func queryString(q url.Values, key string) *string {
	v := sanitizeInput(q.Get(key))
	if v == "" {
		return nil
	}
	return &v
}

func queryInt(q url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, core.ValidationError("%s: must be an integer", key)
	}
	return &n, nil
}

func queryBool(q url.Values, key string) (*bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, core.ValidationError("%s: must be true or false", key)
	}
	return &b, nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, core.ValidationError("Invalid %s", name)
	}
	return id, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, core.ValidationError("Invalid %s", name)
	}
	return id, nil
}

// principal is set by requireAuth on every authenticated route.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// deref renders an optional filter as a cache key segment.
func deref[T any](p *T, format func(T) string) string {
	if p == nil {
		return ""
	}
	return format(*p)
}

func orDefault(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
