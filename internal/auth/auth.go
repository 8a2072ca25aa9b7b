// Package auth implements account registration, login, password reset and
// session-token authentication on top of an account store, a password hasher,
// a token issuer and a mail sender.
package auth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.uber.org/zap"

	"authgate/internal/database"
	"authgate/internal/metrics"
	"authgate/internal/models"
	"authgate/internal/util"
)

// AccountStore persists accounts. FindBy* return database.ErrNotFound when nothing matches;
// Create returns database.ErrEmailExists when the email is taken.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindSummaryByID(ctx context.Context, id string) (*models.Summary, error)
	Create(ctx context.Context, acc *models.Account) error
	UpdateByID(ctx context.Context, id string, upd database.AccountUpdate) error
}

// Generic success messages.
const (
	MsgRegistered    = "registration successful, please log in"
	MsgLoggedIn      = "login successful"
	MsgResetMailSent = "please check your email to reset your password"
	MsgPasswordReset = "password reset successful, please log in again"
	MsgLoggedOut     = "logout successful"
)

// ResetMailSubject is the subject of the password-reset email.
const ResetMailSubject = "Reset your password"

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetInput is the body of a reset-password request.
type ResetInput struct {
	ResetToken         string `json:"resetToken"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User  models.Summary
	Token string
}

// Service runs the authentication workflows. It holds no per-request state.
type Service struct {
	store    AccountStore
	hasher   Hasher
	tokens   *Tokens
	sender   Sender
	ledger   ResetLedger
	resetURL string
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics counts every operation and its outcome.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithResetLedger makes reset tokens single-use.
func WithResetLedger(l ResetLedger) Option {
	return func(s *Service) { s.ledger = l }
}

// WithResetURL sets the base of the link mailed by ForgetPassword; the token is appended as a path segment.
func WithResetURL(base string) Option {
	return func(s *Service) { s.resetURL = strings.TrimRight(base, "/") }
}

// WithClock replaces the time source for account timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the workflows to their collaborators.
func NewService(store AccountStore, hasher Hasher, tokens *Tokens, sender Sender, opts ...Option) *Service {
	s := &Service{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		sender:   sender,
		resetURL: "http://localhost:3000/resetPassword",
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account. The returned summary never includes the password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (_ models.Summary, err error) {
	defer s.observe("register", &err)

	if in.Username == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return models.Summary{}, validationError(MsgMissingFields)
	}
	if err := checkEmail(in.Email); err != nil {
		return models.Summary{}, err
	}
	if err := checkPassword(in.Password); err != nil {
		return models.Summary{}, err
	}
	if in.Password != in.ConfirmPassword {
		return models.Summary{}, validationError(MsgPasswordMismatch)
	}

	// The unique index decides races; this lookup only answers the common case early.
	_, err = s.store.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return models.Summary{}, oops.Code(CodeConflict).Errorf("%s", MsgEmailExists)
	case !errors.Is(err, database.ErrNotFound):
		return models.Summary{}, internalError("FindByEmail", MsgInternal, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.Summary{}, internalError("Hash", MsgInternal, err)
	}

	now := s.now()
	acc := &models.Account{
		Username:    in.Username,
		Email:       in.Email,
		Password:    hash,
		Role:        models.DefaultRole,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: now,
	}
	if err := s.store.Create(ctx, acc); err != nil {
		if errors.Is(err, database.ErrEmailExists) {
			return models.Summary{}, oops.Code(CodeConflict).Errorf("%s", MsgEmailExists)
		}
		return models.Summary{}, internalError("Create", MsgInternal, err)
	}

	s.log.Info("account registered", zap.String("account_id", acc.ID.Hex()))
	return acc.Summary(), nil
}

// Login checks the credentials, stamps lastLoginAt and issues a session token.
// The password policy is enforced on login input as well as on registration.
func (s *Service) Login(ctx context.Context, in LoginInput) (_ LoginResult, err error) {
	defer s.observe("login", &err)

	if in.Email == "" || in.Password == "" {
		return LoginResult{}, validationError(MsgMissingFields)
	}
	if err := checkEmail(in.Email); err != nil {
		return LoginResult{}, err
	}
	if err := checkPassword(in.Password); err != nil {
		return LoginResult{}, err
	}

	acc, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return LoginResult{}, credentialsError(MsgNoSuchEmail)
		}
		return LoginResult{}, internalError("FindByEmail", MsgInternal, err)
	}
	if !s.hasher.Verify(in.Password, acc.Password) {
		return LoginResult{}, credentialsError(MsgBadCredentials)
	}

	id := acc.ID.Hex()
	if err := s.store.UpdateByID(ctx, id, database.AccountUpdate{LastLoginAt: s.now()}); err != nil {
		return LoginResult{}, internalError("UpdateByID", MsgInternal, err)
	}

	token, err := s.tokens.IssueSession(id)
	if err != nil {
		return LoginResult{}, internalError("IssueSession", MsgInternal, err)
	}
	return LoginResult{User: acc.Summary(), Token: token}, nil
}

// ForgetPassword mails a reset link to the account's address. An unknown
// address is reported as such, which lets callers probe for accounts.
func (s *Service) ForgetPassword(ctx context.Context, email string) (err error) {
	defer s.observe("forget_password", &err)

	if email == "" {
		return validationError(MsgMissingFields)
	}
	if err := checkEmail(email); err != nil {
		return err
	}

	acc, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return credentialsError(MsgNoSuchEmail)
		}
		return internalError("FindByEmail", MsgMailPermission, err)
	}

	token, err := s.tokens.IssueReset(acc.ID.Hex())
	if err != nil {
		return internalError("IssueReset", MsgMailPermission, err)
	}

	if err := s.sender.Send(ctx, email, ResetMailSubject, s.resetMailBody(token)); err != nil {
		return oops.Code(CodeDelivery).
			With("operation", "Send").
			With(publicKey, MsgMailPermission).
			Wrap(err)
	}
	s.log.Info("password reset email sent", zap.String("account_id", acc.ID.Hex()))
	return nil
}

// ResetPassword replaces the account's password hash. No session is issued;
// the caller must log in again.
func (s *Service) ResetPassword(ctx context.Context, in ResetInput) (err error) {
	defer s.observe("reset_password", &err)

	if in.ResetToken == "" || in.NewPassword == "" || in.ConfirmNewPassword == "" {
		return validationError(MsgMissingFields)
	}
	if err := checkPassword(in.NewPassword); err != nil {
		return err
	}
	if in.NewPassword != in.ConfirmNewPassword {
		return validationError(MsgPasswordMismatch)
	}

	claims, err := s.tokens.Verify(in.ResetToken, ResetToken)
	if err != nil {
		return tokenError(MsgResetExpired)
	}

	acc, err := s.store.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return credentialsError(MsgNoSuchEmail)
		}
		return internalError("FindByID", MsgResetFailed, err)
	}

	if s.ledger != nil {
		first, err := s.ledger.Claim(ctx, claims.ID, claims.ExpiresAt.Time)
		if err != nil {
			return internalError("Claim", MsgResetFailed, err)
		}
		if !first {
			return tokenError(MsgResetExpired)
		}
	}

	if err := s.replacePassword(ctx, acc.ID.Hex(), in.NewPassword); err != nil {
		if s.ledger != nil {
			if relErr := s.ledger.Release(ctx, claims.ID); relErr != nil {
				s.log.Warn("failed to release reset token claim", zap.Error(relErr))
			}
		}
		return err
	}

	s.log.Info("password reset", zap.String("account_id", acc.ID.Hex()))
	return nil
}

func (s *Service) replacePassword(ctx context.Context, id, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return internalError("Hash", MsgResetFailed, err)
	}
	upd := database.AccountUpdate{PasswordHash: hash, UpdatedAt: s.now()}
	if err := s.store.UpdateByID(ctx, id, upd); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return credentialsError(MsgNoSuchEmail)
		}
		return internalError("UpdateByID", MsgResetFailed, err)
	}
	return nil
}

// Logout acknowledges a logout. Sessions are not tracked server-side, so the
// token stays valid until it expires; the client is expected to discard it.
func (s *Service) Logout(_ context.Context) models.Summary {
	var err error
	s.observe("logout", &err)
	return models.Summary{}
}

// CheckLogin echoes the identity resolved by Authenticate.
func (s *Service) CheckLogin(_ context.Context, identity models.Summary) models.Summary {
	var err error
	s.observe("check_login", &err)
	return identity
}

// Authenticate resolves a session token to the account it was issued for.
func (s *Service) Authenticate(ctx context.Context, token string) (_ models.Summary, err error) {
	defer s.observe("authenticate", &err)

	if token == "" {
		return models.Summary{}, tokenError(MsgNoToken)
	}
	claims, err := s.tokens.Verify(token, SessionToken)
	if err != nil {
		return models.Summary{}, tokenError(MsgBadToken)
	}
	summary, err := s.store.FindSummaryByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.Summary{}, tokenError(MsgNoUser)
		}
		return models.Summary{}, internalError("FindSummaryByID", MsgInternal, err)
	}
	return *summary, nil
}

func (s *Service) resetMailBody(token string) string {
	link := s.resetURL + "/" + token
	minutes := int(s.tokens.reset.ttl / time.Minute)
	return fmt.Sprintf(
		"<p>Please follow the link within %d minutes to reset your password.</p><br/>\n"+
			"<a href=\"%s\">Reset password</a>\n",
		minutes, html.EscapeString(link),
	)
}

func (s *Service) observe(operation string, errp *error) {
	err := *errp
	if err == nil {
		s.metrics.Observe(operation, metrics.OutcomeOK)
		return
	}
	code := Code(err)
	s.metrics.Observe(operation, code)
	if HTTPStatus(err) >= 500 {
		fields := []zap.Field{zap.String("operation", operation), zap.String("code", code), zap.Error(err)}
		if oopsErr, ok := oops.AsOops(err); ok {
			fields = append(fields, zap.Any("context", oopsErr.Context()))
		}
		s.log.Error("authentication operation failed", fields...)
		return
	}
	if ce := s.log.Check(zap.DebugLevel, "authentication operation rejected"); ce != nil {
		ce.Write(zap.String("operation", operation), zap.String("code", code), zap.String("reason", err.Error()))
	}
}

func checkEmail(email string) error {
	if !util.ValidateEmail(email) {
		return validationError(MsgBadEmail)
	}
	return nil
}

func checkPassword(password string) error {
	if !util.PasswordLongEnough(password) {
		return validationError(MsgPasswordTooShort)
	}
	if !util.ValidatePasswordPolicy(password) {
		return validationError(MsgPasswordPolicy)
	}
	return nil
}
