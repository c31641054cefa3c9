package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/oops"

	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/operator/domain"
	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/operator/repository"
	apperrors "github.com/yilmazeyup/vfs-global-tracker/internal/shared/errors"
)

// Service decides who may drive the bot.
//
// With an allow list, only listed ids are authorized. Without one, the
// first user to register becomes the admin and the bot is closed to
// everyone else.
type Service struct {
	repo    repository.Repository
	allowed []int64
	mu      sync.Mutex
}

// New creates a new operator service
func New(repo repository.Repository, allowed []int64) *Service {
	return &Service{
		repo:    repo,
		allowed: allowed,
	}
}

// IsAuthorized checks if a Telegram user may issue commands
func (s *Service) IsAuthorized(ctx context.Context, userID int64) bool {
	if len(s.allowed) > 0 {
		return lo.Contains(s.allowed, userID)
	}

	if _, err := s.repo.GetOperator(ctx, userID); err == nil {
		return true
	}

	operators, err := s.repo.GetAllOperators(ctx)
	if err != nil {
		slog.Error("Failed to list operators", "error", err)
		return false
	}
	return len(operators) == 0
}

// Register records the user. The first operator ever registered is the admin.
func (s *Service) Register(ctx context.Context, userID, chatID int64, username string) (*domain.Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsAuthorized(ctx, userID) {
		return nil, oops.With("user_id", userID).Wrap(apperrors.ErrUnauthorized)
	}

	existing, err := s.repo.GetOperator(ctx, userID)
	if err == nil {
		existing.Username = username
		existing.ChatID = chatID
		return existing, s.repo.SaveOperator(ctx, existing)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	operators, err := s.repo.GetAllOperators(ctx)
	if err != nil {
		return nil, err
	}

	operator := &domain.Operator{
		ID:       userID,
		Username: username,
		ChatID:   chatID,
		AddedAt:  time.Now(),
		IsAdmin:  len(operators) == 0,
	}
	if err := s.repo.SaveOperator(ctx, operator); err != nil {
		return nil, err
	}

	slog.Info("Operator registered", "user_id", userID, "username", username, "admin", operator.IsAdmin)
	return operator, nil
}

// GetAllOperators returns every registered operator
func (s *Service) GetAllOperators(ctx context.Context) ([]*domain.Operator, error) {
	return s.repo.GetAllOperators(ctx)
}
