package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/tourbook-backend/internal/users"
	pkgAuth "github.com/angelmondragon/tourbook-backend/pkg/auth"
	"github.com/angelmondragon/tourbook-backend/pkg/config"
	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/angelmondragon/tourbook-backend/pkg/mail"
	"github.com/angelmondragon/tourbook-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubMailer struct {
	sent []mail.Message
	err  error
}

func (m *stubMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type harness struct {
	svc    Service
	repo   *users.Repository
	conn   *gorm.DB
	tokens *pkgAuth.TokenService
	mailer *stubMailer
	clock  *fakeClock
	hasher *security.Hasher
	// lastToken holds the raw token passed to the most recent link.
	lastToken string
}

func (h *harness) link(raw string) string {
	h.lastToken = raw
	return "https://tourbook.test/api/v1/users/resetPassword/" + raw
}

func newHarness(t *testing.T, requireEmail bool) *harness {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&models.User{}))

	clock := &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	tokens, err := pkgAuth.NewTokenService(config.JWTConfig{Secret: "test-secret", Issuer: "tourbook", ExpiresInDays: 90}, clock.Now)
	require.NoError(t, err)
	hasher := security.NewHasher(config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})

	h := &harness{
		repo:   users.NewRepository(conn),
		conn:   conn,
		tokens: tokens,
		mailer: &stubMailer{},
		clock:  clock,
		hasher: hasher,
	}
	svc, err := NewService(ServiceParams{
		Users:                    h.repo,
		Tokens:                   tokens,
		Hasher:                   hasher,
		Mailer:                   h.mailer,
		TokenConfig:              config.TokensConfig{PasswordResetTTL: 10 * time.Minute, EmailConfirmTTL: 10 * time.Minute},
		RequireEmailConfirmation: requireEmail,
		Now:                      clock.Now,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) signup(t *testing.T, email, password string) *Session {
	t.Helper()
	sess, err := h.svc.Signup(context.Background(), SignupRequest{
		Name:            "Laura Wilson",
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
	}, h.link)
	require.NoError(t, err)
	return sess
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestSignupStoresOnlyHash(t *testing.T) {
	h := newHarness(t, false)
	sess := h.signup(t, "Laura@Example.com", "pass1234")

	require.NotEmpty(t, sess.Token)
	claims, err := h.tokens.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.SubjectID)

	stored, err := h.repo.FindActiveByEmail(context.Background(), "laura@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pass1234", stored.PasswordHash)
	ok, err := h.hasher.Verify("pass1234", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = h.hasher.Verify("pass12345", stored.PasswordHash)
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, h.mailer.sent, 1)
	assert.Contains(t, h.mailer.sent[0].Subject, "Welcome")
}

func TestSignupPasswordMismatchPersistsNothing(t *testing.T) {
	h := newHarness(t, false)
	_, err := h.svc.Signup(context.Background(), SignupRequest{
		Name: "Laura", Email: "laura@example.com", Password: "pass1234", PasswordConfirm: "pass9999",
	}, h.link)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Contains(t, pkgerrors.As(err).Message(), "passwordConfirm")

	var count int64
	require.NoError(t, h.conn.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSignupDuplicateEmail(t *testing.T) {
	h := newHarness(t, false)
	h.signup(t, "laura@example.com", "pass1234")

	_, err := h.svc.Signup(context.Background(), SignupRequest{
		Name: "Other", Email: "laura@example.com", Password: "pass1234", PasswordConfirm: "pass1234",
	}, h.link)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestSignupSurvivesWelcomeMailFailure(t *testing.T) {
	h := newHarness(t, false)
	h.mailer.err = errors.New("smtp down")
	sess := h.signup(t, "laura@example.com", "pass1234")
	assert.NotEmpty(t, sess.Token)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h := newHarness(t, false)
	h.signup(t, "laura@example.com", "pass1234")

	_, unknownErr := h.svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "pass1234"})
	_, wrongErr := h.svc.Login(context.Background(), LoginRequest{Email: "laura@example.com", Password: "wrongpass"})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(unknownErr))
	assert.Equal(t, pkgerrors.CodeOf(unknownErr), pkgerrors.CodeOf(wrongErr))
	assert.Equal(t, pkgerrors.As(unknownErr).Message(), pkgerrors.As(wrongErr).Message())
}

func TestLoginRequiresBothFields(t *testing.T) {
	h := newHarness(t, false)
	_, err := h.svc.Login(context.Background(), LoginRequest{Email: "laura@example.com"})
	assert.Equal(t, pkgerrors.CodeBadRequest, pkgerrors.CodeOf(err))
	_, err = h.svc.Login(context.Background(), LoginRequest{Password: "x"})
	assert.Equal(t, pkgerrors.CodeBadRequest, pkgerrors.CodeOf(err))
}

func TestLoginCountsAndResetsFailures(t *testing.T) {
	h := newHarness(t, false)
	h.signup(t, "laura@example.com", "pass1234")
	ctx := context.Background()

	_, _ = h.svc.Login(ctx, LoginRequest{Email: "laura@example.com", Password: "nope-nope"})
	_, _ = h.svc.Login(ctx, LoginRequest{Email: "laura@example.com", Password: "nope-nope"})
	u, err := h.repo.FindActiveByEmail(ctx, "laura@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, u.FailedLoginCount)

	sess, err := h.svc.Login(ctx, LoginRequest{Email: "LAURA@example.com", Password: "pass1234"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	u, err = h.repo.FindActiveByEmail(ctx, "laura@example.com")
	require.NoError(t, err)
	assert.Zero(t, u.FailedLoginCount)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	h := newHarness(t, false)
	err := h.svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: "ghost@example.com"}, h.link)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	assert.Empty(t, h.mailer.sent)
}

func TestForgotAndResetPassword(t *testing.T) {
	h := newHarness(t, false)
	h.signup(t, "laura@example.com", "pass1234")
	ctx := context.Background()

	require.NoError(t, h.svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "laura@example.com"}, h.link))
	raw := h.lastToken
	require.NotEmpty(t, raw)
	last := h.mailer.sent[len(h.mailer.sent)-1]
	assert.Contains(t, last.Body, raw)
	assert.Contains(t, last.Subject, "10 min")

	stored, err := h.repo.FindActiveByEmail(ctx, "laura@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordResetTokenHash)
	assert.Equal(t, pkgAuth.HashOpaqueToken(raw), *stored.PasswordResetTokenHash)

	h.clock.Advance(time.Minute)
	sess, err := h.svc.ResetPassword(ctx, raw, ResetPasswordRequest{Password: "newpass99", PasswordConfirm: "newpass99"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	_, err = h.svc.Login(ctx, LoginRequest{Email: "laura@example.com", Password: "newpass99"})
	require.NoError(t, err)

	_, err = h.svc.ResetPassword(ctx, raw, ResetPasswordRequest{Password: "another99", PasswordConfirm: "another99"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeBadRequest, pkgerrors.CodeOf(err))
}

func TestResetPasswordExpiredToken(t *testing.T) {
	h := newHarness(t, false)
	h.signup(t, "laura@example.com", "pass1234")
	ctx := context.Background()

	require.NoError(t, h.svc.ForgotPassword(ctx, ForgotPasswordRequest{Email: "laura@example.com"}, h.link))
	h.clock.Advance(11 * time.Minute)

	_, err := h.svc.ResetPassword(ctx, h.lastToken, ResetPasswordRequest{Password: "newpass99", PasswordConfirm: "newpass99"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeBadRequest, pkgerrors.CodeOf(err))

	_, err = h.svc.Login(ctx, LoginRequest{Email: "laura@example.com", Password: "pass1234"})
	require.NoError(t, err)
}

func TestResetPasswordUnknownToken(t *testing.T) {
	h := newHarness(t, false)
	h.signup(t, "laura@example.com", "pass1234")

	_, err := h.svc.ResetPassword(context.Background(), "not-a-token", ResetPasswordRequest{Password: "newpass99", PasswordConfirm: "newpass99"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeBadRequest, pkgerrors.CodeOf(err))
}

func TestForgotPasswordMailFailureRollsBack(t *testing.T) {
	h := newHarness(t, false)
	h.signup(t, "laura@example.com", "pass1234")
	h.mailer.err = errors.New("smtp down")

	err := h.svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: "laura@example.com"}, h.link)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInternal, typed.Code())
	assert.True(t, typed.Operational())
	assert.Equal(t, msgMailFailed, typed.Message())

	stored, err := h.repo.FindActiveByEmail(context.Background(), "laura@example.com")
	require.NoError(t, err)
	assert.Nil(t, stored.PasswordResetTokenHash)
	assert.Nil(t, stored.PasswordResetExpiresAt)
}

func TestUpdatePassword(t *testing.T) {
	h := newHarness(t, false)
	sess := h.signup(t, "laura@example.com", "pass1234")
	ctx := context.Background()

	_, err := h.svc.UpdatePassword(ctx, sess.User.ID, UpdatePasswordRequest{PasswordCurrent: "wrong-one", Password: "newpass99", PasswordConfirm: "newpass99"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	updated, err := h.svc.UpdatePassword(ctx, sess.User.ID, UpdatePasswordRequest{PasswordCurrent: "pass1234", Password: "newpass99", PasswordConfirm: "newpass99"})
	require.NoError(t, err)
	assert.NotEmpty(t, updated.Token)
	require.NotNil(t, updated.User.PasswordChangedAt)

	stored, err := h.repo.FindActiveByID(ctx, sess.User.ID)
	require.NoError(t, err)
	claims, err := h.tokens.Verify(sess.Token)
	require.NoError(t, err)
	assert.False(t, stored.ChangedPasswordAfter(claims.IssuedAt), "change is backdated so same-second tokens stay valid")

	h.clock.Advance(2 * time.Second)
	_, err = h.svc.UpdatePassword(ctx, sess.User.ID, UpdatePasswordRequest{PasswordCurrent: "newpass99", Password: "third-pass", PasswordConfirm: "third-pass"})
	require.NoError(t, err)
	stored, err = h.repo.FindActiveByID(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.ChangedPasswordAfter(claims.IssuedAt))
}

func TestSignupWithConfirmation(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	sess := h.signup(t, "laura@example.com", "pass1234")
	assert.True(t, sess.ConfirmationPending)
	assert.Empty(t, sess.Token)
	require.Len(t, h.mailer.sent, 1)
	assert.Contains(t, h.mailer.sent[0].Body, h.lastToken)

	_, err := h.svc.Login(ctx, LoginRequest{Email: "laura@example.com", Password: "pass1234"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	confirmed, err := h.svc.ConfirmEmail(ctx, h.lastToken)
	require.NoError(t, err)
	assert.True(t, confirmed.User.EmailConfirmed)
	assert.NotEmpty(t, confirmed.Token)

	_, err = h.svc.ConfirmEmail(ctx, h.lastToken)
	assert.Equal(t, pkgerrors.CodeBadRequest, pkgerrors.CodeOf(err))

	_, err = h.svc.Login(ctx, LoginRequest{Email: "laura@example.com", Password: "pass1234"})
	require.NoError(t, err)
}

func TestSignupWithConfirmationMailFailureRemovesUser(t *testing.T) {
	h := newHarness(t, true)
	h.mailer.err = errors.New("smtp down")

	_, err := h.svc.Signup(context.Background(), SignupRequest{
		Name: "Laura", Email: "laura@example.com", Password: "pass1234", PasswordConfirm: "pass1234",
	}, h.link)
	require.Error(t, err)
	assert.Equal(t, msgMailFailed, pkgerrors.As(err).Message())

	var count int64
	require.NoError(t, h.conn.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}
