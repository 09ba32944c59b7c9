package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// BasicAuth guards mutating requests with a single admin account whose
// password is stored as a bcrypt hash. Reads stay public.
type BasicAuth struct {
	user  string
	hash  []byte
	realm string
}

// NewBasicAuth creates an authenticator. It returns nil when user or hash is
// empty; a nil *BasicAuth lets every request through.
func NewBasicAuth(user, passwordHash string) *BasicAuth {
	if user == "" || passwordHash == "" {
		return nil
	}
	return &BasicAuth{user: user, hash: []byte(passwordHash), realm: "classroll"}
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify checks a username and password.
func (a *BasicAuth) Verify(user, password string) bool {
	if a == nil {
		return true
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.user)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	return userOK && passOK
}

// Middleware requires credentials on every request that is not GET, HEAD or
// OPTIONS.
func (a *BasicAuth) Middleware(next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || !a.Verify(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="`+a.realm+`", charset="UTF-8"`)
			if strings.HasPrefix(r.URL.Path, "/api/") {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"error":{"code":"unauthorized","message":"Authentication required"}}`))
				return
			}
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SECURITY HEADERS MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// SecurityHeadersMiddleware adds security-related headers. The content
// security policy allows the inline stylesheet of the HTML pages and nothing
// else.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; form-action 'self'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST SIZE LIMIT MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// RequestSizeLimitMiddleware limits the size of request bodies.
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// NoCacheMiddleware prevents caching of dynamic pages.
func NoCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// MiddlewareFunc is a function that wraps an http.Handler.
type MiddlewareFunc func(http.Handler) http.Handler

// Chain chains multiple middleware functions. The first one is outermost.
func Chain(middlewares ...MiddlewareFunc) MiddlewareFunc {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
