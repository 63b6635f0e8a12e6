package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Keys holds the API keys accepted by the router. Push clients (cron jobs
// sending heartbeats, dashboards) use public keys; admin keys also unlock
// operator endpoints such as a forced re-aggregation.
type Keys struct {
	Public []string
	Admin  []string
}

type role int

const (
	roleNone role = iota
	rolePublic
	roleAdmin
)

func (k Keys) role(given string) role {
	if given == "" {
		return roleNone
	}
	if match(given, k.Admin) {
		return roleAdmin
	}
	if match(given, k.Public) {
		return rolePublic
	}
	return roleNone
}

func match(given string, set []string) bool {
	ok := 0
	for _, k := range set {
		ok |= subtle.ConstantTimeCompare([]byte(k), []byte(given))
	}
	return ok == 1
}

// keyFrom reads "Authorization: Bearer <key>", then X-API-Key, then the
// ?key= query parameter used by heartbeat pushers that cannot set headers.
func keyFrom(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return strings.TrimSpace(k)
	}
	return strings.TrimSpace(r.URL.Query().Get("key"))
}

func deny(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// RequireAny admits public and admin keys. With no keys configured at all
// it admits everything (local dev).
func RequireAny(keys Keys) func(http.Handler) http.Handler {
	if len(keys.Public) == 0 && len(keys.Admin) == 0 {
		return passthrough
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keys.role(keyFrom(r)) == roleNone {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin admits admin keys only: 401 without a known key, 403 for a
// public one. With no admin keys configured it admits everything.
func RequireAdmin(keys Keys) func(http.Handler) http.Handler {
	if len(keys.Admin) == 0 {
		return passthrough
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch keys.role(keyFrom(r)) {
			case roleAdmin:
				next.ServeHTTP(w, r)
			case rolePublic:
				deny(w, http.StatusForbidden, "forbidden")
			default:
				deny(w, http.StatusUnauthorized, "unauthorized")
			}
		})
	}
}

func passthrough(next http.Handler) http.Handler { return next }
