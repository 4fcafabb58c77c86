// Package service implements the account authentication flow: lock-guarded
// login with lockout enforcement, token issuance, logout with revocation,
// token validation, and refresh.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aBasicDream/tc/internal/audit"
	"github.com/aBasicDream/tc/internal/platform/cache"
	"github.com/aBasicDream/tc/internal/platform/config"
	"github.com/aBasicDream/tc/internal/security/lockout"
	"github.com/aBasicDream/tc/internal/security/revocation"
	"github.com/aBasicDream/tc/internal/security/stats"
	"github.com/aBasicDream/tc/internal/token"
	"github.com/aBasicDream/tc/internal/user/models"
	"github.com/aBasicDream/tc/internal/user/store"
	dErrors "github.com/aBasicDream/tc/pkg/domain-errors"
)

const loginLockPrefix = "login:lock:"

// badCredentialsMessage is deliberately identical for unknown accounts and
// wrong passwords.
const badCredentialsMessage = "invalid username or password"

// Service coordinates the login state machine and its collaborators.
type Service struct {
	accounts    store.AccountStore
	codec       *token.Codec
	revocations *revocation.Store
	guard       *lockout.Guard
	stats       *stats.Collector
	auditLog    audit.Store
	cache       cache.Cache
	cfg         config.Auth
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

// WithAuditStore attaches a login event sink. Without one, events are
// dropped.
func WithAuditStore(s audit.Store) Option {
	return func(svc *Service) { svc.auditLog = s }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

func New(
	accounts store.AccountStore,
	codec *token.Codec,
	revocations *revocation.Store,
	guard *lockout.Guard,
	collector *stats.Collector,
	c cache.Cache,
	cfg config.Auth,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	svc := &Service{
		accounts:    accounts,
		codec:       codec,
		revocations: revocations,
		guard:       guard,
		stats:       collector,
		cache:       c,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Login runs the credential check under a per-identity distributed lock so
// concurrent attempts for the same identity serialize and the failure
// counter stays exact. Lockout and throttle checks fail closed: a cache
// error rejects the attempt.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var resp *models.LoginResponse

	err := cache.WithLock(ctx, s.cache, loginLockPrefix+req.Username, s.cfg.LockWait, s.cfg.LockLease, func(ctx context.Context) error {
		var err error
		resp, err = s.login(ctx, req)
		return err
	})
	if errors.Is(err, cache.ErrLockNotAcquired) {
		return nil, dErrors.New(dErrors.CodeBusy, "another login attempt is in progress, please retry")
	}
	return resp, err
}

func (s *Service) login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	locked, err := s.guard.IsLockedOut(ctx, req.Username)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "lockout check failed")
	}
	if locked {
		s.stats.RecordLoginFailed(ctx, req.Username, req.LoginIP, "locked_out")
		return nil, dErrors.New(dErrors.CodeLockedOut, "account is temporarily locked")
	}

	failures, err := s.guard.Failures(ctx, req.Username)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failure count unavailable")
	}
	if failures >= s.cfg.MaxLoginAttempts {
		if err := s.guard.Lockout(ctx, req.Username); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "lockout failed")
		}
		s.stats.RecordLoginFailed(ctx, req.Username, req.LoginIP, "too_many_attempts")
		return nil, dErrors.New(dErrors.CodeTooManyAttempts, "too many failed attempts, account locked")
	}

	account, err := s.findAccount(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, s.recordRejection(ctx, req, "unknown_account")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "account lookup failed")
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		return nil, s.recordRejection(ctx, req, "bad_password")
	}

	// A disabled account with correct credentials is not a guessing attempt,
	// so the failure counter stays untouched.
	if !account.Active() {
		s.stats.RecordLoginFailed(ctx, req.Username, req.LoginIP, "account_disabled")
		return nil, dErrors.New(dErrors.CodeAccountDisabled, "account is disabled")
	}

	if err := s.guard.RecordSuccess(ctx, req.Username); err != nil {
		s.logger.Error("failure counter reset failed", slog.String("username", req.Username), slog.String("error", err.Error()))
	}

	accessToken, err := s.codec.Issue(account.ID, account.Username, s.cfg.Scope, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token issuance failed")
	}
	refreshToken, err := s.codec.Issue(account.ID, account.Username, s.cfg.Scope, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token issuance failed")
	}

	now := s.now()
	s.appendAudit(ctx, account, req)
	s.stats.RecordLoginSuccess(ctx, account.Username, req.LoginIP)
	s.logger.Info("login succeeded",
		slog.Int64("user_id", account.ID),
		slog.String("username", account.Username),
		slog.String("client_ip", req.LoginIP),
	)

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
		UserID:       account.ID,
		Username:     account.Username,
		Nickname:     account.Nickname,
		Avatar:       account.Avatar,
		LoginTime:    now.UnixMilli(),
	}, nil
}

// recordRejection bumps the failure counter and returns the uniform
// bad-credentials error. Reaching the attempt limit locks the identity
// immediately rather than on the next attempt.
func (s *Service) recordRejection(ctx context.Context, req models.LoginRequest, reason string) error {
	n, err := s.guard.RecordFailure(ctx, req.Username)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failure recording failed")
	}
	s.stats.RecordLoginFailed(ctx, req.Username, req.LoginIP, reason)
	s.logger.Warn("login rejected",
		slog.String("username", req.Username),
		slog.String("client_ip", req.LoginIP),
		slog.String("reason", reason),
		slog.Int64("failures", n),
	)
	return dErrors.New(dErrors.CodeBadCredentials, badCredentialsMessage)
}

// findAccount resolves the identifier as a username first, then a phone
// number, then an email address.
func (s *Service) findAccount(ctx context.Context, identifier string) (*models.Account, error) {
	account, err := s.accounts.FindByUsername(ctx, identifier)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	account, err = s.accounts.FindByPhone(ctx, identifier)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return s.accounts.FindByEmail(ctx, identifier)
}

func (s *Service) appendAudit(ctx context.Context, account *models.Account, req models.LoginRequest) {
	if s.auditLog == nil {
		return
	}
	err := s.auditLog.Append(ctx, audit.Event{
		UserID:    account.ID,
		Username:  account.Username,
		ClientIP:  req.LoginIP,
		Device:    req.Device,
		Timestamp: s.now(),
	})
	if err != nil {
		s.logger.Error("login audit append failed", slog.String("username", account.Username), slog.String("error", err.Error()))
	}
}

// Logout revokes the presented token for its remaining lifetime. An already
// invalid token is a successful logout.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.codec.Verify(tokenString, s.cfg.Scope)
	if err != nil {
		s.logger.Debug("logout with invalid token", slog.String("error", err.Error()))
		return nil
	}
	remaining := claims.Remaining(s.now())
	if err := s.revocations.Revoke(ctx, tokenString, claims.Username, remaining); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "token revocation failed")
	}
	s.logger.Info("logout", slog.String("username", claims.Username))
	return nil
}

// ValidateToken reports whether the token is live: not revoked, well formed,
// correctly scoped, and unexpired.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*token.Claims, error) {
	if s.revocations.IsRevoked(ctx, tokenString) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")
	}
	claims, err := s.codec.Verify(tokenString, s.cfg.Scope)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token validation failed")
	}
	return claims, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token itself stays valid until it expires or is revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.LoginResponse, error) {
	claims, err := s.ValidateToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "incomplete token")
	}

	accessToken, err := s.codec.Issue(userID, claims.Username, s.cfg.Scope, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token issuance failed")
	}
	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
		UserID:       userID,
		Username:     claims.Username,
		LoginTime:    s.now().UnixMilli(),
	}, nil
}
