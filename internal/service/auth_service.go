package service

import (
	"context"
	"errors"

	"marketplace/internal/audit"
	"marketplace/internal/domain"
	"marketplace/internal/metrics"
	"marketplace/internal/repository"
	"marketplace/internal/session"
	"marketplace/internal/validation"

	"go.uber.org/zap"
)

// AuthService registers and authenticates principals against the user store
// and drives the session state machine: Anonymous until login, back to
// Anonymous on logout.
type AuthService struct {
	users     repository.UserRepository
	trail     *audit.Trail
	collector *metrics.Collector
	validator *validation.UserValidator
	logger    *zap.Logger
}

// NewAuthService creates the auth pipeline.
func NewAuthService(
	users repository.UserRepository,
	trail *audit.Trail,
	collector *metrics.Collector,
	validator *validation.UserValidator,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:     users,
		trail:     trail,
		collector: collector,
		validator: validator,
		logger:    logger,
	}
}

// Register stores a new user. The candidate must not carry an identity and
// its username must be free. The whole body is timed under "register",
// including failure paths.
func (s *AuthService) Register(ctx context.Context, candidate *domain.User) (*domain.User, error) {
	stop := s.collector.StartTimer("register")
	defer stop()

	if err := s.validator.Validate(candidate); err != nil {
		s.collector.Increment("register.failed")
		return nil, err
	}

	saved, err := s.users.Save(ctx, candidate)
	if err != nil {
		s.collector.Increment("register.failed")
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			s.trail.Error(nil, "REGISTER_FAILED", "Username already exists")
		case errors.Is(err, repository.ErrIdentityNotAllowed):
			s.trail.Error(nil, "REGISTER_FAILED", "Identity must not be supplied at registration")
		}
		return nil, err
	}

	s.trail.Info(&saved.ID, "REGISTER", "User successfully registered")
	s.collector.Increment("register.success")
	return saved, nil
}

// Login authenticates the username/password pair and binds the principal to
// the given session. The returned error is identical for an unknown username
// and a wrong password. Timed under "login" on every path.
func (s *AuthService) Login(ctx context.Context, sess *session.Session, username, password string) error {
	stop := s.collector.StartTimer("login")
	defer stop()

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return s.rejectLogin(username)
		}
		return err
	}
	if user.Password != password {
		return s.rejectLogin(username)
	}

	sess.Bind(user)
	s.trail.Info(&user.ID, "LOGIN", "User logged in")
	s.collector.Increment("login.success")
	return nil
}

// Logout clears the session. Logging out of an Anonymous session fails and
// leaves the session Anonymous.
func (s *AuthService) Logout(sess *session.Session) error {
	current := sess.Current()
	if current == nil {
		s.trail.Error(nil, "LOGOUT_FAILED", "No user is currently logged in")
		s.collector.Increment("logout.failed")
		return ErrNoActiveSession
	}

	s.trail.Info(&current.ID, "LOGOUT", "User logged out")
	s.collector.Increment("logout.success")
	sess.Clear()
	return nil
}

func (s *AuthService) rejectLogin(username string) error {
	s.trail.Error(nil, "LOGIN_FAILED", "Invalid username or password: "+username)
	s.collector.Increment("login.failed")
	return ErrInvalidCredentials
}
