package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quickchat/internal/logger"
	"github.com/quickchat/internal/model"
	"github.com/quickchat/internal/mq"
	"github.com/quickchat/internal/repository"
	"github.com/quickchat/internal/storage"
	"github.com/quickchat/internal/token"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrInvalidOTP        = errors.New("invalid or expired code")
	ErrInvalidEmail      = errors.New("invalid email format")
)

// UserStore is the persistence surface auth needs.
// *repository.UserRepository implements it.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// MailQueue hands outbound email to the mail service.
// *mq.Client implements it.
type MailQueue interface {
	PublishEmailJob(job mq.EmailJob) error
}

type OTPAuthService struct {
	users    UserStore
	store    storage.OTPStore
	queue    MailQueue
	secret   []byte
	tokenTTL time.Duration
}

func NewOTPAuthService(users UserStore, store storage.OTPStore, queue MailQueue, secret []byte, tokenTTL time.Duration) *OTPAuthService {
	return &OTPAuthService{users: users, store: store, queue: queue, secret: secret, tokenTTL: tokenTTL}
}

// Simplified email check, not full RFC.
var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// onlyDigits strips everything but digits, so codes pasted with spaces or
// invisible characters still verify.
func onlyDigits(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b = append(b, s[i])
		}
	}
	return string(b)
}

func generateCode(digits int) string {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand failing means the process is in no state to auth anyone.
		panic(fmt.Sprintf("otp: rand: %v", err))
	}
	return fmt.Sprintf("%0*d", digits, n)
}

// RequestCode generates a one-time code for the email and queues it for
// delivery. Rate limited per email.
func (s *OTPAuthService) RequestCode(ctx context.Context, email string) error {
	emailNorm := strings.TrimSpace(strings.ToLower(email))
	if emailNorm == "" || !emailRegexp.MatchString(emailNorm) {
		return ErrInvalidEmail
	}
	allowed, err := s.store.CheckRateLimit(ctx, emailNorm)
	if err != nil {
		return fmt.Errorf("authSvc.RequestCode rate limit: %w", err)
	}
	if !allowed {
		return ErrRateLimitExceeded
	}
	code := generateCode(6)
	if err := s.store.SetCode(ctx, emailNorm, code); err != nil {
		return fmt.Errorf("authSvc.RequestCode store: %w", err)
	}
	job := mq.EmailJob{
		To:      emailNorm,
		Subject: "Your sign-in code",
		Body:    fmt.Sprintf("Your code: %s\n\nIt is valid for 5 minutes.", code),
	}
	if err := s.queue.PublishEmailJob(job); err != nil {
		return fmt.Errorf("authSvc.RequestCode queue: %w", err)
	}
	logger.Infof("auth: code queued for %s", emailNorm)
	return nil
}

type VerifyCodeResponse struct {
	Token     string     `json:"token"`
	User      model.User `json:"user"`
	IsNewUser bool       `json:"isNewUser"`
}

// VerifyCode checks the one-time code and returns an access token, creating
// the account on first sign-in. Codes are single-use.
func (s *OTPAuthService) VerifyCode(ctx context.Context, email, code string) (*VerifyCodeResponse, error) {
	emailNorm := strings.TrimSpace(strings.ToLower(email))
	codeNorm := onlyDigits(strings.TrimSpace(code))
	if emailNorm == "" || len(codeNorm) != 6 {
		return nil, ErrInvalidOTP
	}
	stored, err := s.store.GetCode(ctx, emailNorm)
	if err != nil {
		logger.Errorf("auth: GetCode %s: %v", emailNorm, err)
		return nil, ErrInvalidOTP
	}
	if len(stored) != 6 || subtle.ConstantTimeCompare([]byte(stored), []byte(codeNorm)) != 1 {
		return nil, ErrInvalidOTP
	}
	if err := s.store.DeleteCode(ctx, emailNorm); err != nil {
		logger.Errorf("auth: DeleteCode %s: %v", emailNorm, err)
	}

	user, err := s.users.GetByEmail(ctx, emailNorm)
	isNew := false
	if errors.Is(err, repository.ErrNotFound) {
		user, err = s.createUser(ctx, emailNorm)
		isNew = true
	}
	if err != nil {
		return nil, fmt.Errorf("authSvc.VerifyCode user: %w", err)
	}

	t, err := token.Issue(s.secret, user.ID, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("authSvc.VerifyCode: %w", err)
	}
	logger.Infof("auth: signed in %s (new=%v)", user.ID, isNew)
	return &VerifyCodeResponse{Token: t, User: *user, IsNewUser: isNew}, nil
}

// createUser provisions an account with the name derived from the email's
// local part; users can rename themselves later.
func (s *OTPAuthService) createUser(ctx context.Context, emailAddr string) (*model.User, error) {
	name := emailAddr
	if i := strings.IndexByte(emailAddr, '@'); i > 0 {
		name = emailAddr[:i]
	}
	u := &model.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     emailAddr,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
