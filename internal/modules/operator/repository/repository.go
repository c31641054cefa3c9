package repository

import (
	"context"

	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/operator/domain"
)

// Repository defines the interface for operator persistence
type Repository interface {
	SaveOperator(ctx context.Context, operator *domain.Operator) error
	GetOperator(ctx context.Context, id int64) (*domain.Operator, error)
	GetAllOperators(ctx context.Context) ([]*domain.Operator, error)
}
