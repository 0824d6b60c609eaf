package movements

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldastudio/storefront-backend/pkg/db/models"
	"github.com/veldastudio/storefront-backend/pkg/enums"
)

// Service defines operations that record stock movements. Movements are
// append-only; there is no update or delete path.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Record(ctx context.Context, input RecordMovementInput) (*models.StockMovement, error)
	History(ctx context.Context, productID uuid.UUID, variantKey string, limit int) ([]models.StockMovement, error)
	ForReference(ctx context.Context, referenceID uuid.UUID) ([]models.StockMovement, error)
}

// RecordMovementInput captures the immutable data a stock movement requires.
type RecordMovementInput struct {
	ProductID     uuid.UUID
	VariantKey    string
	Type          enums.MovementType
	QtyChange     int
	QtyBefore     int
	QtyAfter      int
	ReferenceID   *uuid.UUID
	ReferenceType enums.ReferenceType
	Notes         *string
}

type service struct {
	repo Repository
}

// NewService wires a movements service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("movements repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Record(ctx context.Context, input RecordMovementInput) (*models.StockMovement, error) {
	if input.ProductID == uuid.Nil {
		return nil, fmt.Errorf("product id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid movement type %q", input.Type)
	}
	if input.QtyBefore+input.QtyChange != input.QtyAfter {
		return nil, fmt.Errorf("movement does not balance: %d%+d != %d", input.QtyBefore, input.QtyChange, input.QtyAfter)
	}

	movement := &models.StockMovement{
		ProductID:     input.ProductID,
		VariantKey:    input.VariantKey,
		Type:          input.Type,
		QtyChange:     input.QtyChange,
		QtyBefore:     input.QtyBefore,
		QtyAfter:      input.QtyAfter,
		ReferenceID:   input.ReferenceID,
		ReferenceType: input.ReferenceType,
		Notes:         input.Notes,
	}

	if err := s.repo.Create(ctx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

func (s *service) History(ctx context.Context, productID uuid.UUID, variantKey string, limit int) ([]models.StockMovement, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("product id is required")
	}
	return s.repo.ListByProduct(ctx, productID, variantKey, limit)
}

func (s *service) ForReference(ctx context.Context, referenceID uuid.UUID) ([]models.StockMovement, error) {
	if referenceID == uuid.Nil {
		return nil, fmt.Errorf("reference id is required")
	}
	return s.repo.ListByReference(ctx, referenceID)
}
