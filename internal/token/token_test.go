package token

import (
	"errors"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	raw, err := Issue(secret, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	userID, err := Verify(secret, raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("subject = %q, want user-1", userID)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := Issue([]byte("right"), "user-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify([]byte("wrong"), raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	secret := []byte("s3cret")
	raw, err := Issue(secret, "user-1", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(secret, raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "undefined", "not.a.token"} {
		if _, err := Verify([]byte("s3cret"), raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q) = %v, want ErrInvalidToken", raw, err)
		}
	}
}
