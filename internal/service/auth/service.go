package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/citywatch/report-api/internal/email"
	"github.com/citywatch/report-api/internal/model"
	"github.com/citywatch/report-api/internal/repository"
	"github.com/citywatch/report-api/internal/service/session"
	"github.com/citywatch/report-api/pkg/auth"
	"github.com/citywatch/report-api/pkg/metrics"
	"github.com/citywatch/report-api/pkg/security"
)

type Service struct {
	userRepo repository.UserRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
	sessions *session.Provider
	emailSvc email.Service
	logger   *zerolog.Logger
	metrics  *metrics.Metrics
}

func NewService(userRepo repository.UserRepository, jwtSvc auth.JWTService,
	hasher security.PasswordHasher, sessions *session.Provider,
	emailSvc email.Service, logger *zerolog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		userRepo: userRepo,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
		sessions: sessions,
		emailSvc: emailSvc,
		logger:   logger,
		metrics:  m,
	}
}

// Login authenticates the credentials and opens a session. Every failure
// surfaces as ErrInvalidCredentials so callers can render one user-facing
// message without leaking which part failed.
func (s *Service) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.metrics.LoginAttempts.WithLabelValues("failed").Inc()
		return nil, model.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.metrics.LoginAttempts.WithLabelValues("failed").Inc()
		return nil, model.ErrInvalidCredentials
	}

	token, err := s.jwtSvc.GenerateToken(user)
	if err != nil {
		s.metrics.LoginAttempts.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.sessions.Open(&model.Session{
		Token:  token,
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})

	s.metrics.LoginAttempts.WithLabelValues("ok").Inc()
	return &model.LoginResponse{Token: token, User: user}, nil
}

// Register creates a citizen account with role USER.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	existing, _ := s.userRepo.GetByEmail(ctx, req.Email)
	if existing != nil {
		return nil, model.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		City:         req.City,
		Role:         model.UserRoleCitizen,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.emailSvc != nil {
		if err := s.emailSvc.SendWelcome(ctx, user.Email, user.Username); err != nil {
			// Log but don't fail registration
			s.logger.Warn().Err(err).Str("email", user.Email).Msg("failed to send welcome email")
		}
	}

	return user, nil
}

// Logout closes the session for the given token. The notification store is
// deliberately untouched: report data is device-resident, not
// session-resident.
func (s *Service) Logout(ctx context.Context, token string) error {
	s.sessions.Close(token)
	return nil
}

// ValidateToken verifies a bearer token and returns its claims.
func (s *Service) ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error) {
	return s.jwtSvc.ValidateToken(token)
}
