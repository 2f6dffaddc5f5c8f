package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuth_Disabled(t *testing.T) {
	auth := NewAuth("")

	if auth.Enabled() {
		t.Error("auth with no token should be disabled")
	}
	if !auth.CheckToken("") || !auth.CheckToken("anything") {
		t.Error("disabled auth must accept any token")
	}
}

func TestAuth_CheckToken(t *testing.T) {
	auth := NewAuth("secret-token")

	if !auth.CheckToken("secret-token") {
		t.Error("matching token rejected")
	}
	if auth.CheckToken("wrong") {
		t.Error("wrong token accepted")
	}
	if auth.CheckToken("") {
		t.Error("empty token accepted")
	}
	if auth.CheckToken("secret-token-longer") {
		t.Error("prefix-matching token accepted")
	}
}

func TestAuth_Middleware(t *testing.T) {
	auth := NewAuth("secret")
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer secret", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/media/a.mp4?token=query-tok", nil)
	if got := tokenFromRequest(req); got != "query-tok" {
		t.Errorf("query token = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/media/a.mp4?token=query-tok", nil)
	req.Header.Set("Authorization", "Bearer header-tok")
	if got := tokenFromRequest(req); got != "header-tok" {
		t.Errorf("header token should win, got %q", got)
	}
}
