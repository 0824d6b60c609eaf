package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/veldastudio/storefront-backend/pkg/db/models"
	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
)

// Service exposes the read-only catalog operations checkout depends on.
type Service interface {
	ActiveByIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]models.Product, error)
	CategoriesFor(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

type service struct {
	repo Repository
}

// NewService wires a products service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

// ActiveByIDs loads the requested products and rejects ids that are missing
// or inactive, so checkout cannot sell retired catalog entries.
func (s *service) ActiveByIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	rows, err := s.repo.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	for _, id := range productIDs {
		product, ok := byID[id]
		if !ok || !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("product %s is not available", id))
		}
	}
	return byID, nil
}

func (s *service) CategoriesFor(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	rows, err := s.repo.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]string, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Category
	}
	return out, nil
}
