package repository

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/oops"

	"github.com/yilmazeyup/vfs-global-tracker/internal/modules/operator/domain"
	apperrors "github.com/yilmazeyup/vfs-global-tracker/internal/shared/errors"
)

const registryFile = "operators.json"

// registry is the on-disk document.
type registry struct {
	Operators []*domain.Operator `json:"operators"`
}

// FileStorage keeps the operator registry in a single JSON document.
//
// The registry is read once at startup and rewritten in full on every save.
// At most one operator is the admin; a save that would add a second admin
// is rejected and leaves the document untouched.
type FileStorage struct {
	path      string
	mu        sync.RWMutex
	operators map[int64]*domain.Operator
}

// NewFileStorage opens the registry under basePath, creating it on first save.
func NewFileStorage(basePath string) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create storage directory").Wrap(err)
	}

	s := &FileStorage{
		path:      filepath.Join(basePath, registryFile),
		operators: make(map[int64]*domain.Operator),
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, oops.With("path", s.path, "context", "failed to read operator registry").Wrap(err)
	}

	var doc registry
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, oops.With("path", s.path, "context", "failed to parse operator registry").Wrap(err)
	}
	for _, operator := range doc.Operators {
		if operator != nil {
			s.operators[operator.ID] = operator
		}
	}
	return s, nil
}

func (s *FileStorage) SaveOperator(_ context.Context, operator *domain.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if operator.IsAdmin {
		admin, found := lo.Find(lo.Values(s.operators), func(o *domain.Operator) bool {
			return o.IsAdmin && o.ID != operator.ID
		})
		if found {
			return oops.With("operator_id", operator.ID, "admin_id", admin.ID).Wrap(apperrors.ErrAdminExists)
		}
	}

	previous, existed := s.operators[operator.ID]
	stored := *operator
	s.operators[operator.ID] = &stored

	if err := s.flushLocked(); err != nil {
		if existed {
			s.operators[operator.ID] = previous
		} else {
			delete(s.operators, operator.ID)
		}
		return oops.With("operator_id", operator.ID).Wrap(err)
	}
	return nil
}

func (s *FileStorage) GetOperator(_ context.Context, id int64) (*domain.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	operator, ok := s.operators[id]
	if !ok {
		return nil, oops.With("operator_id", id).Wrap(apperrors.ErrNotFound)
	}
	found := *operator
	return &found, nil
}

// GetAllOperators returns the operators in registration order.
func (s *FileStorage) GetAllOperators(_ context.Context) ([]*domain.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedLocked(), nil
}

func (s *FileStorage) sortedLocked() []*domain.Operator {
	operators := lo.MapToSlice(s.operators, func(_ int64, o *domain.Operator) *domain.Operator {
		copied := *o
		return &copied
	})
	slices.SortFunc(operators, func(a, b *domain.Operator) int {
		return cmp.Or(a.AddedAt.Compare(b.AddedAt), cmp.Compare(a.ID, b.ID))
	})
	return operators
}

func (s *FileStorage) flushLocked() error {
	data, err := json.MarshalIndent(registry{Operators: s.sortedLocked()}, "", "  ")
	if err != nil {
		return oops.With("context", "failed to marshal operator registry").Wrap(err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return oops.With("path", tmp, "context", "failed to write operator registry").Wrap(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return oops.With("path", s.path, "context", "failed to replace operator registry").Wrap(err)
	}
	return nil
}
