package main

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth checks requests against a single configured shared secret. With no
// secret configured every check passes; auth is opt-in.
type Auth struct {
	token string
}

func NewAuth(sharedToken string) *Auth {
	return &Auth{token: sharedToken}
}

func (a *Auth) Enabled() bool {
	return a.token != ""
}

// CheckToken reports whether the presented token matches the shared secret.
// Constant-time comparison so the check does not leak prefix length.
func (a *Auth) CheckToken(token string) bool {
	if !a.Enabled() {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) == 1
}

// Middleware guards API routes with a bearer token when auth is enabled.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Enabled() {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, `{"error":"missing or invalid authorization header"}`, http.StatusUnauthorized)
				return
			}
			if !a.CheckToken(strings.TrimPrefix(header, "Bearer ")) {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// tokenFromRequest accepts the shared token either as a bearer header or as
// a query parameter. Media elements cannot set headers on their own
// requests, so streaming URLs carry the token in the query string.
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
