package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// AuthCookie holds the admin session token.
const AuthCookie = "authenticated"

// AuthToken derives the cookie value from the admin password, so changing
// the password logs every admin out.
func AuthToken(password string) string {
	sum := sha256.Sum256([]byte("photobooth-admin:" + password))
	return hex.EncodeToString(sum[:])
}

// AdminOnly lets a request through when it carries a valid admin cookie.
// API calls without one get 401; page loads are redirected to /login.
func AdminOnly(password string) func(http.Handler) http.Handler {
	token := []byte(AuthToken(password))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AuthCookie)
			if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), token) != 1 {
				if strings.HasPrefix(r.URL.Path, "/api/") ||
					r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
					r.Header.Get("Content-Type") == "application/json" {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
