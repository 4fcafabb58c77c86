package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
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

type LoginSuite struct {
	suite.Suite

	cache    *cache.Memory
	accounts *store.Memory
	auditLog *audit.Memory
	svc      *Service
	clock    time.Time
	cfg      config.Auth
}

func (s *LoginSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)

	s.clock = time.Date(2025, 9, 17, 10, 0, 0, 0, time.UTC)
	s.cache = cache.NewMemory()
	s.cache.SetClock(func() time.Time { return s.clock })

	s.accounts = store.NewMemory()
	s.seed("alice", "s3cret", models.StatusActive)

	s.cfg = config.Auth{
		Scope:            "tc-user",
		AccessTokenTTL:   24 * time.Hour,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		MaxLoginAttempts: 5,
		LockoutWindow:    30 * time.Minute,
		LockWait:         time.Second,
		LockLease:        30 * time.Minute,
	}

	priv, pub, err := token.GenerateDevKeyPair()
	s.Require().NoError(err)
	codec := token.New(priv, pub)

	s.auditLog = audit.NewMemory()
	s.svc = New(
		s.accounts,
		codec,
		revocation.NewStore(s.cache, logger),
		lockout.NewGuard(s.cache, s.cfg.MaxLoginAttempts, s.cfg.LockoutWindow, logger),
		stats.NewCollector(s.cache, logger),
		s.cache,
		s.cfg,
		logger,
		WithAuditStore(s.auditLog),
	)
}

func (s *LoginSuite) seed(username, password string, status int) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	s.Require().NoError(err)
	s.accounts.Add(models.Account{
		Username:     username,
		Nickname:     username + " nick",
		Phone:        "138000" + username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Status:       status,
	})
}

func (s *LoginSuite) login(username, password string) (*models.LoginResponse, error) {
	return s.svc.Login(context.Background(), models.LoginRequest{
		Username: username,
		Password: password,
		LoginIP:  "203.0.113.9",
		Device:   "chrome 120 / linux x86_64 (desktop)",
	})
}

func (s *LoginSuite) TestSuccessfulLogin() {
	resp, err := s.login("alice", "s3cret")
	s.Require().NoError(err)

	s.NotEmpty(resp.AccessToken)
	s.NotEmpty(resp.RefreshToken)
	s.NotEqual(resp.AccessToken, resp.RefreshToken)
	s.Equal(int64(86400), resp.ExpiresIn)
	s.Equal("alice", resp.Username)
	s.Equal("alice nick", resp.Nickname)
	s.NotZero(resp.LoginTime)

	claims, err := s.svc.ValidateToken(context.Background(), resp.AccessToken)
	s.Require().NoError(err)
	s.Equal("alice", claims.Username)

	events := s.auditLog.Events()
	s.Require().Len(events, 1)
	s.Equal("alice", events[0].Username)
	s.Equal("203.0.113.9", events[0].ClientIP)
	s.NotEmpty(events[0].ID)
}

func (s *LoginSuite) TestLoginByPhoneAndEmail() {
	resp, err := s.login("138000alice", "s3cret")
	s.Require().NoError(err)
	s.Equal("alice", resp.Username)

	resp, err = s.login("alice@example.com", "s3cret")
	s.Require().NoError(err)
	s.Equal("alice", resp.Username)
}

func (s *LoginSuite) TestUnknownAccountAndWrongPasswordIndistinguishable() {
	_, errUnknown := s.login("nobody", "whatever")
	_, errWrong := s.login("alice", "wrong")

	s.Require().Error(errUnknown)
	s.Require().Error(errWrong)
	s.True(dErrors.HasCode(errUnknown, dErrors.CodeBadCredentials))
	s.True(dErrors.HasCode(errWrong, dErrors.CodeBadCredentials))
	s.Equal(errUnknown.Error(), errWrong.Error())
}

func (s *LoginSuite) TestLockoutAfterMaxFailures() {
	for i := 0; i < 5; i++ {
		_, err := s.login("alice", "wrong")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadCredentials), "attempt %d", i+1)
	}

	// Correct password no longer helps once locked.
	_, err := s.login("alice", "s3cret")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLockedOut))
}

func (s *LoginSuite) TestLockoutExpiresWithWindow() {
	for i := 0; i < 5; i++ {
		s.login("alice", "wrong")
	}
	_, err := s.login("alice", "s3cret")
	s.True(dErrors.HasCode(err, dErrors.CodeLockedOut))

	s.clock = s.clock.Add(31 * time.Minute)

	resp, err := s.login("alice", "s3cret")
	s.Require().NoError(err)
	s.Equal("alice", resp.Username)
}

func (s *LoginSuite) TestSuccessResetsFailureCounter() {
	for i := 0; i < 3; i++ {
		s.login("alice", "wrong")
	}
	_, err := s.login("alice", "s3cret")
	s.Require().NoError(err)

	// The window restarts: four more failures stay under the limit.
	for i := 0; i < 4; i++ {
		_, err := s.login("alice", "wrong")
		s.True(dErrors.HasCode(err, dErrors.CodeBadCredentials))
	}
	_, err = s.login("alice", "s3cret")
	s.Require().NoError(err)
}

func (s *LoginSuite) TestDisabledAccountDoesNotBurnAttempts() {
	s.seed("carol", "pw", models.StatusDisabled)

	for i := 0; i < 6; i++ {
		_, err := s.login("carol", "pw")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAccountDisabled), "attempt %d", i+1)
	}
}

func (s *LoginSuite) TestHeldLockReportsBusy() {
	// The wait deadline needs a moving clock.
	s.cache.SetClock(time.Now)

	lock, err := s.cache.TryLock(context.Background(), "login:lock:alice", 0, time.Minute)
	s.Require().NoError(err)
	defer lock.Unlock(context.Background())

	_, err = s.login("alice", "s3cret")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBusy))
}

func (s *LoginSuite) TestConcurrentLoginsSerialize() {
	const workers = 8
	var wg sync.WaitGroup
	results := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.svc.Login(context.Background(), models.LoginRequest{
				Username: "alice",
				Password: "wrong",
				LoginIP:  "203.0.113.9",
			})
		}(i)
	}
	wg.Wait()

	badCredentials := 0
	for _, err := range results {
		s.Require().Error(err)
		if dErrors.HasCode(err, dErrors.CodeBadCredentials) {
			badCredentials++
		}
	}
	// The counter never misses an attempt: at most the limit can pass as
	// plain rejections, the rest hit the lockout or the busy signal.
	s.LessOrEqual(badCredentials, 5)
}

func (s *LoginSuite) TestLogoutRevokesToken() {
	resp, err := s.login("alice", "s3cret")
	s.Require().NoError(err)

	_, err = s.svc.ValidateToken(context.Background(), resp.AccessToken)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Logout(context.Background(), resp.AccessToken))

	_, err = s.svc.ValidateToken(context.Background(), resp.AccessToken)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *LoginSuite) TestLogoutWithGarbageTokenIsNoop() {
	s.NoError(s.svc.Logout(context.Background(), "not.a.token"))
}

func (s *LoginSuite) TestRefreshIssuesNewAccessToken() {
	resp, err := s.login("alice", "s3cret")
	s.Require().NoError(err)

	refreshed, err := s.svc.Refresh(context.Background(), resp.RefreshToken)
	s.Require().NoError(err)
	s.NotEmpty(refreshed.AccessToken)
	s.Equal(resp.RefreshToken, refreshed.RefreshToken)
	s.Equal("alice", refreshed.Username)

	_, err = s.svc.ValidateToken(context.Background(), refreshed.AccessToken)
	s.NoError(err)
}

func (s *LoginSuite) TestRefreshWithRevokedTokenRejected() {
	resp, err := s.login("alice", "s3cret")
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Logout(context.Background(), resp.RefreshToken))

	_, err = s.svc.Refresh(context.Background(), resp.RefreshToken)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestLoginSuite(t *testing.T) {
	suite.Run(t, new(LoginSuite))
}
