package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/tourbook-backend/internal/users"
	pkgAuth "github.com/angelmondragon/tourbook-backend/pkg/auth"
	"github.com/angelmondragon/tourbook-backend/pkg/config"
	"github.com/angelmondragon/tourbook-backend/pkg/db"
	"github.com/angelmondragon/tourbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tourbook-backend/pkg/errors"
	"github.com/angelmondragon/tourbook-backend/pkg/logger"
	"github.com/angelmondragon/tourbook-backend/pkg/mail"
	"github.com/angelmondragon/tourbook-backend/pkg/metrics"
	"github.com/angelmondragon/tourbook-backend/pkg/validation"
	"github.com/google/uuid"
)

const (
	msgMissingCredentials = "Please provide email and password!"
	msgIncorrectLogin     = "Incorrect email or password"
	msgNoUserWithEmail    = "There is no user with that email address."
	msgInvalidToken       = "Token is invalid or has expired"
	msgWrongPassword      = "Your current password is wrong."
	msgUnconfirmedEmail   = "Please confirm your email address before logging in."
	msgMailFailed         = "There was an error sending the email. Try again later!"
	msgEmailTaken         = "Email is already in use"
)

// Service runs the credential flows.
type Service interface {
	Signup(ctx context.Context, req SignupRequest, link LinkFunc) (*Session, error)
	Login(ctx context.Context, req LoginRequest) (*Session, error)
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest, link LinkFunc) error
	ResetPassword(ctx context.Context, rawToken string, req ResetPasswordRequest) (*Session, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, req UpdatePasswordRequest) (*Session, error)
	ConfirmEmail(ctx context.Context, rawToken string) (*Session, error)
}

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*models.User, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	FindByConfirmToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id uuid.UUID) error
	SetConfirmToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, id uuid.UUID, tokenHash, passwordHash string, now, changedAt time.Time) (bool, error)
	ConsumeConfirmToken(ctx context.Context, id uuid.UUID, tokenHash string, now time.Time) (bool, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error
	IncrementFailedLogins(ctx context.Context, id uuid.UUID) error
	ResetFailedLogins(ctx context.Context, id uuid.UUID) error
}

type tokenIssuer interface {
	Issue(subjectID uuid.UUID) (string, time.Time, error)
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users   userRepository
	Tokens  tokenIssuer
	Hasher  passwordHasher
	Mailer  mail.Sender
	Metrics *metrics.AuthMetrics
	Logger  *logger.Logger
	// TokenConfig sets the reset and confirmation lifetimes.
	TokenConfig              config.TokensConfig
	RequireEmailConfirmation bool
	Now                      func() time.Time
}

type service struct {
	users        userRepository
	tokens       tokenIssuer
	hasher       passwordHasher
	mailer       mail.Sender
	metrics      *metrics.AuthMetrics
	logg         *logger.Logger
	tokenCfg     config.TokensConfig
	requireEmail bool
	now          func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mail sender is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	tokenCfg := params.TokenConfig
	if tokenCfg.PasswordResetTTL <= 0 {
		tokenCfg.PasswordResetTTL = 10 * time.Minute
	}
	if tokenCfg.EmailConfirmTTL <= 0 {
		tokenCfg.EmailConfirmTTL = 10 * time.Minute
	}
	return &service{
		users:        params.Users,
		tokens:       params.Tokens,
		hasher:       params.Hasher,
		mailer:       params.Mailer,
		metrics:      params.Metrics,
		logg:         logg,
		tokenCfg:     tokenCfg,
		requireEmail: params.RequireEmailConfirmation,
		now:          now,
	}, nil
}

func (s *service) clock() time.Time {
	return s.now().UTC()
}

// changedAt backdates the password change by a second so a token issued in
// the same second as the change is still accepted.
func (s *service) changedAt() time.Time {
	return s.clock().Add(-time.Second)
}

func (s *service) Signup(ctx context.Context, req SignupRequest, link LinkFunc) (*Session, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        users.NormalizeEmail(req.Email),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, validation.Field("email", msgEmailTaken)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	ctx = s.logg.WithUserID(ctx, user.ID.String())

	if s.requireEmail {
		if err := s.sendConfirmation(ctx, user, link); err != nil {
			return nil, err
		}
		return &Session{User: user, ConfirmationPending: true}, nil
	}

	if err := s.mailer.Send(ctx, mail.Message{
		To:      user.Email,
		Subject: "Welcome to the Tourbook family!",
		Body:    fmt.Sprintf("Hi %s, thanks for signing up.", firstName(user.Name)),
	}); err != nil {
		s.metrics.IncMailFailure()
		s.logg.Error(ctx, "auth.signup.welcome_mail_failed", err)
	}
	return s.issue(user)
}

// sendConfirmation stores a confirmation token and mails it. When the mail
// cannot be handed off the new account is removed again.
func (s *service) sendConfirmation(ctx context.Context, user *models.User, link LinkFunc) error {
	raw, err := pkgAuth.RandomOpaqueToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate confirmation token")
	}
	if err := s.users.SetConfirmToken(ctx, user.ID, pkgAuth.HashOpaqueToken(raw), s.clock().Add(s.tokenCfg.EmailConfirmTTL)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store confirmation token")
	}

	err = s.mailer.Send(ctx, mail.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Confirm your email (valid for %d min)", int(s.tokenCfg.EmailConfirmTTL.Minutes())),
		Body:    fmt.Sprintf("Welcome %s! Confirm your email address with a PATCH request to: %s", firstName(user.Name), link(raw)),
	})
	if err == nil {
		return nil
	}

	s.metrics.IncMailFailure()
	s.logg.Error(ctx, "auth.signup.confirmation_mail_failed", err)
	if _, delErr := s.users.DeleteByIDs(ctx, []uuid.UUID{user.ID}); delErr != nil {
		s.logg.Error(ctx, "auth.signup.rollback_failed", delErr)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msgMailFailed).Expose()
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, msgMissingCredentials)
	}

	user, err := s.users.FindActiveByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			s.metrics.IncLogin(metrics.LoginFailure)
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgIncorrectLogin)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	ctx = s.logg.WithUserID(ctx, user.ID.String())

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		s.metrics.IncLogin(metrics.LoginFailure)
		if err := s.users.IncrementFailedLogins(ctx, user.ID); err != nil {
			s.logg.Error(ctx, "auth.login.count_failure_failed", err)
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgIncorrectLogin)
	}

	if s.requireEmail && !user.EmailConfirmed {
		s.metrics.IncLogin(metrics.LoginFailure)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgUnconfirmedEmail)
	}

	if user.FailedLoginCount > 0 {
		if err := s.users.ResetFailedLogins(ctx, user.ID); err != nil {
			s.logg.Error(ctx, "auth.login.reset_counter_failed", err)
		}
		user.FailedLoginCount = 0
	}
	s.metrics.IncLogin(metrics.LoginSuccess)
	return s.issue(user)
}

func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest, link LinkFunc) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	user, err := s.users.FindActiveByEmail(ctx, users.NormalizeEmail(req.Email))
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, msgNoUserWithEmail)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	ctx = s.logg.WithUserID(ctx, user.ID.String())

	raw, err := pkgAuth.RandomOpaqueToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	if err := s.users.SetResetToken(ctx, user.ID, pkgAuth.HashOpaqueToken(raw), s.clock().Add(s.tokenCfg.PasswordResetTTL)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store reset token")
	}
	s.metrics.IncResetToken()

	err = s.mailer.Send(ctx, mail.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Your password reset token (valid for %d min)", int(s.tokenCfg.PasswordResetTTL.Minutes())),
		Body: fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s.\n"+
			"If you didn't forget your password, please ignore this email!", link(raw)),
	})
	if err == nil {
		return nil
	}

	s.metrics.IncMailFailure()
	s.logg.Error(ctx, "auth.forgot_password.mail_failed", err)
	if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
		s.logg.Error(ctx, "auth.forgot_password.rollback_failed", clearErr)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msgMailFailed).Expose()
}

func (s *service) ResetPassword(ctx context.Context, rawToken string, req ResetPasswordRequest) (*Session, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	tokenHash := pkgAuth.HashOpaqueToken(rawToken)
	now := s.clock()

	user, err := s.users.FindByResetToken(ctx, tokenHash, now)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeBadRequest, msgInvalidToken)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup reset token")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	changedAt := s.changedAt()
	ok, err := s.users.ConsumeResetToken(ctx, user.ID, tokenHash, hash, now, changedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reset password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, msgInvalidToken)
	}

	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	user.PasswordResetTokenHash = nil
	user.PasswordResetExpiresAt = nil
	return s.issue(user)
}

func (s *service) UpdatePassword(ctx context.Context, userID uuid.UUID, req UpdatePasswordRequest) (*Session, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	user, err := s.users.FindActiveByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "The user belonging to this token does no longer exist.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	ok, err := s.hasher.Verify(req.PasswordCurrent, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, msgWrongPassword)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	changedAt := s.changedAt()
	if err := s.users.UpdatePassword(ctx, user.ID, hash, changedAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	return s.issue(user)
}

func (s *service) ConfirmEmail(ctx context.Context, rawToken string) (*Session, error) {
	tokenHash := pkgAuth.HashOpaqueToken(rawToken)
	now := s.clock()

	user, err := s.users.FindByConfirmToken(ctx, tokenHash, now)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeBadRequest, msgInvalidToken)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup confirmation token")
	}
	ok, err := s.users.ConsumeConfirmToken(ctx, user.ID, tokenHash, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "confirm email")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, msgInvalidToken)
	}
	user.EmailConfirmed = true
	user.EmailConfirmTokenHash = nil
	user.EmailConfirmExpiresAt = nil
	return s.issue(user)
}

func (s *service) issue(user *models.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue token")
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return name
}
