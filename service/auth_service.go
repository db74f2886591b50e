package service

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"linkhub.app/errors"
	"linkhub.app/lockout"
	"linkhub.app/metrics"
	"linkhub.app/models"
	"linkhub.app/pkg/logger"
	"linkhub.app/ratelimit"
	"linkhub.app/repository"
)

// dummyHash is compared against when the account does not exist, so the
// request spends the same time as a real password check.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("linkhub-dummy-password"), bcrypt.DefaultCost)

// AuthService guards logins with two independent layers: a per-account
// lockout tracker and a per-IP rate limiter. Both must pass. Failures are
// recorded even for accounts that do not exist, and every credential
// failure produces the same response, so neither response shape nor
// rate-limit behavior reveals whether an account exists.
type AuthService struct {
	users     *repository.UserRepository
	tracker   *lockout.Tracker
	ipLimiter *ratelimit.Limiter
	registry  *metrics.Registry
	log       *logger.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users *repository.UserRepository,
	tracker *lockout.Tracker,
	ipLimiter *ratelimit.Limiter,
	registry *metrics.Registry,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tracker:   tracker,
		ipLimiter: ipLimiter,
		registry:  registry,
		log:       log,
	}
}

// Login authenticates credentials from clientIP.
func (s *AuthService) Login(req *models.LoginRequest, clientIP string) (*models.User, error) {
	start := time.Now()

	result := s.ipLimiter.Check(clientIP)
	s.registry.RecordRateLimit(s.ipLimiter.Policy(), result.Allowed)
	if !result.Allowed {
		s.registry.RecordAuthFailure("rate_limited")
		s.log.LogSecurity("login_rate_limited", "medium", map[string]interface{}{
			"ip": clientIP,
		})
		return nil, errors.NewRateLimitError(time.Until(result.ResetTime))
	}

	status, err := s.tracker.CheckStatus(req.Email)
	if err != nil {
		return nil, err
	}
	if status.IsLocked {
		s.registry.RecordAuthFailure("locked")
		s.log.LogSecurity("login_attempt_on_locked_account", "high", map[string]interface{}{
			"identifier": req.Email,
			"ip":         clientIP,
		})
		return nil, errors.NewAccountLockedError(time.Until(*status.LockedUntil))
	}

	user, err := s.users.FindByEmail(req.Email)
	if err != nil {
		return nil, err
	}

	hash := dummyHash
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	credentialsOK := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) == nil && user != nil

	if !credentialsOK {
		// Unknown accounts are tracked too; the failure path must be
		// indistinguishable from a wrong password.
		failStatus, err := s.tracker.RecordFailure(req.Email)
		if err != nil {
			return nil, err
		}

		s.registry.RecordAuthAttempt(false, time.Since(start))
		s.registry.RecordAuthFailure("bad_credentials")
		s.log.LogAuth("login", req.Email, false, map[string]interface{}{
			"ip":                clientIP,
			"remainingAttempts": failStatus.RemainingAttempts,
		})

		if failStatus.IsLocked {
			s.log.LogSecurity("account_locked", "high", map[string]interface{}{
				"identifier": req.Email,
			})
			return nil, errors.NewAccountLockedError(time.Until(*failStatus.LockedUntil))
		}
		return nil, errors.NewUnauthorizedError()
	}

	if err := s.tracker.RecordSuccess(req.Email); err != nil {
		return nil, err
	}
	s.ipLimiter.Reset(clientIP)

	s.registry.RecordAuthAttempt(true, time.Since(start))
	s.log.LogAuth("login", req.Email, true, map[string]interface{}{"ip": clientIP})
	return user, nil
}

// Signup registers a new account with a bcrypt-hashed password.
func (s *AuthService) Signup(req *models.LoginRequest) (*models.User, error) {
	existing, err := s.users.FindByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.NewAlreadyExistsError("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.NewInternalError("hash password", err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}

	s.log.LogAuth("signup", req.Email, true, nil)
	return user, nil
}
