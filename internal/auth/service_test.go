package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmarin-dev/shopline-backend/internal/users"
	pkgAuth "github.com/rmarin-dev/shopline-backend/pkg/auth"
	"github.com/rmarin-dev/shopline-backend/pkg/config"
	"github.com/rmarin-dev/shopline-backend/pkg/db"
	"github.com/rmarin-dev/shopline-backend/pkg/db/models"
	"github.com/rmarin-dev/shopline-backend/pkg/enums"
	pkgerrors "github.com/rmarin-dev/shopline-backend/pkg/errors"
	"github.com/rmarin-dev/shopline-backend/pkg/mail"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "shopline",
	ExpirationMinutes: 30,
}

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:      8192,
	ArgonTime:          1,
	ArgonParallelism:   1,
	ArgonSaltLen:       16,
	ArgonKeyLen:        32,
	ResetOTPLength:     6,
	ResetOTPTTL:        10 * time.Minute,
	ResetTokenTTL:      15 * time.Minute,
	ResetOTPMaxAttempt: 3,
}

type stubSessionManager struct {
	mu      sync.Mutex
	active  map[string]string
	revoked []string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{active: map[string]string{}}
}

func (s *stubSessionManager) Create(ctx context.Context, accessID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[accessID] = userID
	return nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

type memResetStore struct {
	mu   sync.Mutex
	data map[string]string
	incr map[string]int64
}

func newMemResetStore() *memResetStore {
	return &memResetStore{data: map[string]string{}, incr: map[string]int64{}}
}

func (m *memResetStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *memResetStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memResetStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.incr, key)
	}
	return nil
}

func (m *memResetStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incr[key]++
	return m.incr[key], nil
}

func (m *memResetStore) PasswordResetKey(kind, id string) string {
	return "reset:" + kind + ":" + id
}

type recorderMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (r *recorderMailer) Send(ctx context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recorderMailer) last(t *testing.T) mail.Message {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		t.Fatal("expected mail to be sent")
	}
	return r.sent[len(r.sent)-1]
}

type testEnv struct {
	svc     Service
	session *stubSessionManager
	reset   *memResetStore
	mailer  *recorderMailer
}

func buildTestService(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sessionMgr := newStubSessionManager()
	reset := newMemResetStore()
	mailer := &recorderMailer{}

	svc, err := NewService(ServiceParams{
		DB:             db.FromGorm(conn),
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessionMgr,
		ResetStore:     reset,
		Mailer:         mailer,
		JWTConfig:      testJWTConfig,
		PasswordConfig: testPasswordConfig,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return &testEnv{svc: svc, session: sessionMgr, reset: reset, mailer: mailer}
}

func registerUser(t *testing.T, env *testEnv, email, password string) *AuthResponse {
	t.Helper()
	resp, err := env.svc.Register(context.Background(), RegisterRequest{
		Name:     "Test Shopper",
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return resp
}

func TestRegisterIssuesTokenAndSession(t *testing.T) {
	env := buildTestService(t)
	resp := registerUser(t, env, "shopper@example.com", "super-secret-pass")

	if resp.User == nil || resp.User.Email != "shopper@example.com" {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	if resp.User.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role, got %s", resp.User.Role)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if _, ok := env.session.active[claims.ID]; !ok {
		t.Fatal("expected session registered for jti")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := buildTestService(t)
	registerUser(t, env, "shopper@example.com", "super-secret-pass")

	_, err := env.svc.Register(context.Background(), RegisterRequest{
		Name:     "Again",
		Email:    "SHOPPER@example.com",
		Password: "another-password",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestLoginAndLogout(t *testing.T) {
	env := buildTestService(t)
	registerUser(t, env, "shopper@example.com", "super-secret-pass")

	resp, err := env.svc.Login(context.Background(), LoginRequest{
		Email:    "shopper@example.com",
		Password: "super-secret-pass",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.User.LastLoginAt == nil {
		t.Fatal("expected last login to be recorded")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if err := env.svc.Logout(context.Background(), claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, active := env.session.active[claims.ID]; active {
		t.Fatal("expected session revoked on logout")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := buildTestService(t)
	registerUser(t, env, "shopper@example.com", "super-secret-pass")

	_, err := env.svc.Login(context.Background(), LoginRequest{
		Email:    "shopper@example.com",
		Password: "wrong",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := buildTestService(t)
	registerUser(t, env, "shopper@example.com", "super-secret-pass")
	ctx := context.Background()

	if err := env.svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "shopper@example.com"}); err != nil {
		t.Fatalf("forgot password: %v", err)
	}

	msg := env.mailer.last(t)
	code := extractOTP(t, msg.Body)

	verified, err := env.svc.VerifyResetOTP(ctx, VerifyResetOTPRequest{
		Email: "shopper@example.com",
		Code:  code,
	})
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if verified.ResetToken == "" {
		t.Fatal("expected reset token")
	}

	if err := env.svc.ResetPassword(ctx, ResetPasswordRequest{
		Email:      "shopper@example.com",
		ResetToken: verified.ResetToken,
		Password:   "brand-new-password",
	}); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	if _, err := env.svc.Login(ctx, LoginRequest{
		Email:    "shopper@example.com",
		Password: "brand-new-password",
	}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	// old code is gone after a successful reset
	if _, err := env.svc.VerifyResetOTP(ctx, VerifyResetOTPRequest{
		Email: "shopper@example.com",
		Code:  code,
	}); err == nil {
		t.Fatal("expected otp to be single-use")
	}
}

func TestVerifyResetOTPAttemptLimit(t *testing.T) {
	env := buildTestService(t)
	registerUser(t, env, "shopper@example.com", "super-secret-pass")
	ctx := context.Background()

	if err := env.svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "shopper@example.com"}); err != nil {
		t.Fatalf("forgot password: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := env.svc.VerifyResetOTP(ctx, VerifyResetOTPRequest{
			Email: "shopper@example.com",
			Code:  "000000",
		}); err == nil {
			t.Fatal("expected wrong code to fail")
		}
	}

	_, err := env.svc.VerifyResetOTP(ctx, VerifyResetOTPRequest{
		Email: "shopper@example.com",
		Code:  "000000",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit after max attempts, got %v", err)
	}
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	env := buildTestService(t)
	if err := env.svc.ForgotPassword(context.Background(), ForgotPasswordRequest{
		Email: "ghost@example.com",
	}); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(env.mailer.sent) != 0 {
		t.Fatal("expected no mail for unknown email")
	}
}

func extractOTP(t *testing.T, body string) string {
	t.Helper()
	for _, field := range strings.Fields(body) {
		trimmed := strings.Trim(field, ".")
		if len(trimmed) == 6 && strings.IndexFunc(trimmed, func(r rune) bool { return r < '0' || r > '9' }) == -1 {
			return trimmed
		}
	}
	t.Fatalf("no otp found in %q", body)
	return ""
}
