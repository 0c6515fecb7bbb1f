package userclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quickchat/internal/model"
)

func TestGetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/internal/users/u1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"_id":"u1","name":"Alice"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	u, err := c.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.ID != "u1" || u.Name != "Alice" {
		t.Fatalf("profile = %+v", u)
	}
}

func TestGetUserErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.GetUser(context.Background(), "ghost"); err == nil {
		t.Fatal("expected error for 404")
	}

	srv.Close()
	if _, err := c.GetUser(context.Background(), "u1"); err == nil {
		t.Fatal("expected error for unreachable server")
	}
	// The degradation contract: callers substitute the placeholder.
	if got := model.UnknownUser("u1"); got.Name != "Unknown User" || got.ID != "u1" {
		t.Fatalf("placeholder = %+v", got)
	}
}
