// Package flash carries one-time page notices across a redirect in a
// short-lived cookie.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// CookieName is the cookie holding the pending notice.
const CookieName = "classroll_flash"

// maxAge bounds how long an unread notice survives.
const maxAge = time.Minute

// maxMessageLen keeps the cookie well under browser limits.
const maxMessageLen = 512

// Kind classifies how a notice is rendered.
type Kind string

const (
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notice is one message for the next page render.
type Notice struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Success creates a success notice.
func Success(message string) Notice { return Notice{Kind: KindSuccess, Message: message} }

// Warning creates a warning notice.
func Warning(message string) Notice { return Notice{Kind: KindWarning, Message: message} }

// Error creates an error notice.
func Error(message string) Notice { return Notice{Kind: KindError, Message: message} }

// Write stores notice for the next page render. Invalid notices are dropped.
func Write(w http.ResponseWriter, r *http.Request, notice Notice) {
	n, ok := normalize(notice)
	if !ok {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadAndClear returns the pending notice, if any, and expires the cookie.
func ReadAndClear(w http.ResponseWriter, r *http.Request) (Notice, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Notice{}, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return decode(cookie.Value)
}

func decode(raw string) (Notice, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Notice{}, false
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return Notice{}, false
	}
	var n Notice
	if err := json.Unmarshal(data, &n); err != nil {
		return Notice{}, false
	}
	return normalize(n)
}

func normalize(n Notice) (Notice, bool) {
	n.Message = strings.TrimSpace(n.Message)
	if n.Message == "" {
		return Notice{}, false
	}
	if r := []rune(n.Message); len(r) > maxMessageLen {
		n.Message = string(r[:maxMessageLen])
	}
	n.Kind = Kind(strings.ToLower(strings.TrimSpace(string(n.Kind))))
	switch n.Kind {
	case KindSuccess, KindWarning, KindError:
		return n, true
	default:
		return Notice{}, false
	}
}
