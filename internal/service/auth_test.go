package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quickchat/internal/model"
	"github.com/quickchat/internal/mq"
	"github.com/quickchat/internal/repository"
	"github.com/quickchat/internal/token"
)

type fakeUserStore struct {
	mu      sync.Mutex
	byEmail map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: make(map[string]*model.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.byEmail[u.Email] = &cp
	return nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type fakeOTPStore struct {
	mu       sync.Mutex
	codes    map[string]string
	requests map[string]int
	limit    int
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{codes: make(map[string]string), requests: make(map[string]int), limit: 10}
}

func (f *fakeOTPStore) SetCode(ctx context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[email] = code
	return nil
}

func (f *fakeOTPStore) GetCode(ctx context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[email], nil
}

func (f *fakeOTPStore) DeleteCode(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.codes, email)
	return nil
}

func (f *fakeOTPStore) CheckRateLimit(ctx context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[email]++
	return f.requests[email] <= f.limit, nil
}

func (f *fakeOTPStore) Close() error { return nil }

type fakeMailQueue struct {
	mu   sync.Mutex
	jobs []mq.EmailJob
	err  error
}

func (f *fakeMailQueue) PublishEmailJob(job mq.EmailJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

var testSecret = []byte("test-secret")

func newAuthFixture() (*OTPAuthService, *fakeUserStore, *fakeOTPStore, *fakeMailQueue) {
	users := newFakeUserStore()
	store := newFakeOTPStore()
	queue := &fakeMailQueue{}
	svc := NewOTPAuthService(users, store, queue, testSecret, time.Hour)
	return svc, users, store, queue
}

func TestRequestCodeQueuesEmail(t *testing.T) {
	svc, _, store, queue := newAuthFixture()
	ctx := context.Background()

	if err := svc.RequestCode(ctx, "Alice@Example.com"); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}

	code := store.codes["alice@example.com"]
	if len(code) != 6 {
		t.Fatalf("stored code = %q, want 6 digits", code)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("queued %d jobs, want 1", len(queue.jobs))
	}
	job := queue.jobs[0]
	if job.To != "alice@example.com" || !strings.Contains(job.Body, code) {
		t.Fatalf("job = %+v, code %q missing", job, code)
	}
}

func TestRequestCodeRejectsBadEmail(t *testing.T) {
	svc, _, _, _ := newAuthFixture()
	for _, email := range []string{"", "not-an-email", "a@b", "   "} {
		if err := svc.RequestCode(context.Background(), email); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("RequestCode(%q) = %v, want ErrInvalidEmail", email, err)
		}
	}
}

func TestRequestCodeRateLimited(t *testing.T) {
	svc, _, store, _ := newAuthFixture()
	store.limit = 2
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.RequestCode(ctx, "bob@example.com"); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if err := svc.RequestCode(ctx, "bob@example.com"); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("err = %v, want ErrRateLimitExceeded", err)
	}
}

func TestVerifyCodeCreatesUserAndIssuesToken(t *testing.T) {
	svc, users, store, _ := newAuthFixture()
	ctx := context.Background()

	if err := svc.RequestCode(ctx, "carol@example.com"); err != nil {
		t.Fatal(err)
	}
	code := store.codes["carol@example.com"]

	res, err := svc.VerifyCode(ctx, "carol@example.com", code)
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if !res.IsNewUser {
		t.Fatal("IsNewUser = false on first sign-in")
	}
	if res.User.Name != "carol" {
		t.Fatalf("derived name = %q, want carol", res.User.Name)
	}
	userID, err := token.Verify(testSecret, res.Token)
	if err != nil || userID != res.User.ID {
		t.Fatalf("token subject = %q (%v), want %q", userID, err, res.User.ID)
	}

	// Codes are single-use.
	if _, err := svc.VerifyCode(ctx, "carol@example.com", code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("reuse err = %v, want ErrInvalidOTP", err)
	}

	// A returning user keeps the same account.
	if err := svc.RequestCode(ctx, "carol@example.com"); err != nil {
		t.Fatal(err)
	}
	res2, err := svc.VerifyCode(ctx, "carol@example.com", store.codes["carol@example.com"])
	if err != nil {
		t.Fatal(err)
	}
	if res2.IsNewUser || res2.User.ID != res.User.ID {
		t.Fatalf("second sign-in = %+v, want same account", res2)
	}
	if len(users.byEmail) != 1 {
		t.Fatalf("accounts = %d, want 1", len(users.byEmail))
	}
}

func TestVerifyCodeRejectsWrongCode(t *testing.T) {
	svc, _, store, _ := newAuthFixture()
	ctx := context.Background()

	if err := svc.RequestCode(ctx, "dave@example.com"); err != nil {
		t.Fatal(err)
	}
	code := store.codes["dave@example.com"]
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if _, err := svc.VerifyCode(ctx, "dave@example.com", wrong); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("err = %v, want ErrInvalidOTP", err)
	}
	if _, err := svc.VerifyCode(ctx, "dave@example.com", "12 34"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("short code err = %v, want ErrInvalidOTP", err)
	}
}

func TestVerifyCodeNormalizesPastedInput(t *testing.T) {
	svc, _, store, _ := newAuthFixture()
	ctx := context.Background()

	if err := svc.RequestCode(ctx, "eve@example.com"); err != nil {
		t.Fatal(err)
	}
	code := store.codes["eve@example.com"]
	pasted := " " + code[:3] + " " + code[3:] + "\n"
	if _, err := svc.VerifyCode(ctx, "EVE@example.com", pasted); err != nil {
		t.Fatalf("VerifyCode with pasted input: %v", err)
	}
}
