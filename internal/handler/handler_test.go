package handler

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quickchat/internal/service"
	"github.com/quickchat/internal/token"
)

func TestWriteServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrInvalidArgument, 400},
		{fmt.Errorf("wrap: %w", service.ErrInvalidArgument), 400},
		{service.ErrForbidden, 403},
		{service.ErrNotFound, 404},
		{fmt.Errorf("db exploded"), 500},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, tc.err)
		if rec.Code != tc.want {
			t.Errorf("writeServiceError(%v) = %d, want %d", tc.err, rec.Code, tc.want)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
			t.Errorf("content type = %q", ct)
		}
	}
}

func TestWSPrincipalID(t *testing.T) {
	secret := []byte("s3cret")
	h := NewWSHandler(nil, secret, "*")

	valid, err := token.Issue(secret, "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name  string
		query string
		want  string
	}{
		{"valid token", "token=" + valid, "alice"},
		{"no token", "", ""},
		{"literal undefined", "token=undefined", ""},
		{"garbage", "token=nonsense", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws?"+tc.query, nil)
			if got := h.principalID(r); got != tc.want {
				t.Fatalf("principalID = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWSCheckOrigin(t *testing.T) {
	h := NewWSHandler(nil, nil, "https://app.example.com, https://beta.example.com")

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://app.example.com")
	if !h.checkOrigin(r) {
		t.Fatal("allowed origin rejected")
	}
	r.Header.Set("Origin", "https://evil.example.com")
	if h.checkOrigin(r) {
		t.Fatal("unknown origin accepted")
	}

	wildcard := NewWSHandler(nil, nil, "*")
	if !wildcard.checkOrigin(r) {
		t.Fatal("wildcard rejected an origin")
	}
}
