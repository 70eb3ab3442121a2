package httpapi

import (
	"net/http"
	"strings"
)

// SessionCookieName is the cookie carrying the session handle.
const SessionCookieName = "taskdesk_session"

const bearerPrefix = "Bearer "

// readSessionHandle returns the handle from the session cookie, falling back
// to an Authorization bearer token.
func readSessionHandle(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie != nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value, true
		}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		if value := strings.TrimSpace(header[len(bearerPrefix):]); value != "" {
			return value, true
		}
	}
	return "", false
}

func writeSessionCookie(w http.ResponseWriter, r *http.Request, handle string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    strings.TrimSpace(handle),
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func isHTTPS(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}
