package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// DefaultSystemUserEmail identifies the account automatic changes are attributed to.
const DefaultSystemUserEmail = "sistema@helpdesk.com"

// SystemAccountService finds the actor used for automatic changes.
type SystemAccountService struct {
	users      repository.UserRepository
	email      string
	bcryptCost int
	logger     *zap.Logger
}

func NewSystemAccountService(users repository.UserRepository, email string, bcryptCost int, logger *zap.Logger) *SystemAccountService {
	if strings.TrimSpace(email) == "" {
		email = DefaultSystemUserEmail
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemAccountService{users: users, email: email, bcryptCost: bcryptCost, logger: logger}
}

// Resolve returns the system account, else the first administrator.
// With neither present it fails with CONFIGURATION_ERROR.
func (s *SystemAccountService) Resolve(ctx context.Context) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, s.email)
	if err == nil {
		return user, nil
	}
	if !repository.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}

	admin, err := s.users.FirstWithRole(ctx, domain.RoleAdmin)
	if err == nil {
		s.logger.Warn("system account missing; acting as first administrator",
			zap.String("email", s.email), zap.Int64("admin_id", admin.ID))
		return admin, nil
	}
	if !repository.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}
	return nil, apperrors.NewConfigurationError("no system account or administrator available for automatic changes", nil)
}

// Ensure creates the system account when it does not exist yet. The password
// is random and never shown, so the account cannot log in.
func (s *SystemAccountService) Ensure(ctx context.Context) (*domain.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, s.email)
	if err == nil {
		return existing, false, nil
	}
	if !repository.IsNotFound(err) {
		return nil, false, apperrors.MapError(err)
	}

	secret, err := auth.RandomPassword()
	if err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}
	hash, err := auth.HashPassword(secret, s.bcryptCost)
	if err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Name:         "Sistema",
		Email:        s.email,
		PasswordHash: hash,
		Roles:        []domain.Role{domain.RoleAdmin},
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, apperrors.MapError(err)
	}
	s.logger.Info("system account created", zap.Int64("user_id", user.ID), zap.String("email", s.email))
	return user, true, nil
}
