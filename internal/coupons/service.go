package coupons

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldastudio/storefront-backend/pkg/db"
	"github.com/veldastudio/storefront-backend/pkg/db/models"
	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
	"github.com/veldastudio/storefront-backend/pkg/types"
)

// CategoryResolver maps product ids to their catalog category. Used to
// evaluate category-restricted coupons.
type CategoryResolver interface {
	CategoriesFor(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

// Service validates coupon codes and records redemptions. Validation never
// mutates anything; usage is recorded only when an order is created.
type Service interface {
	Validate(ctx context.Context, input ValidateInput) (*ValidationResult, error)
	RecordUsage(ctx context.Context, tx *gorm.DB, input RecordUsageInput) error
}

// ValidateInput carries the cart context a coupon is checked against.
type ValidateInput struct {
	Code           string
	CartTotalCents int
	Items          types.OrderItems
	CustomerEmail  string
}

// ValidationResult reports an accepted coupon and its computed discount.
type ValidationResult struct {
	Coupon       *models.Coupon
	Discount     int
	FreeShipping bool
}

// RecordUsageInput captures one redemption at order-creation time.
type RecordUsageInput struct {
	CouponID      uuid.UUID
	OrderID       uuid.UUID
	CustomerEmail string
	DiscountCents int
}

// ServiceParams wires the dependencies a coupons service needs.
type ServiceParams struct {
	Repo       Repository
	Categories CategoryResolver
	Now        func() time.Time
}

type service struct {
	repo       Repository
	categories CategoryResolver
	now        func() time.Time
}

// NewService validates and assembles a coupons service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	if params.Categories == nil {
		return nil, fmt.Errorf("category resolver required")
	}
	if params.Now == nil {
		params.Now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: params.Repo, categories: params.Categories, now: params.Now}, nil
}

// errInvalidCode is the single rejection surfaced for missing, inactive,
// expired and exhausted codes, so callers cannot probe which codes exist.
func errInvalidCode() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon code")
}

func (s *service) Validate(ctx context.Context, input ValidateInput) (*ValidationResult, error) {
	if input.Code == "" {
		return nil, errInvalidCode()
	}
	if input.CartTotalCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart total cannot be negative")
	}

	coupon, err := s.repo.GetByCode(ctx, input.Code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if coupon == nil || !coupon.IsActive {
		return nil, errInvalidCode()
	}

	now := s.now()
	if coupon.StartDate != nil && now.Before(*coupon.StartDate) {
		return nil, errInvalidCode()
	}
	if coupon.EndDate != nil && now.After(*coupon.EndDate) {
		return nil, errInvalidCode()
	}

	if input.CartTotalCents < coupon.MinOrderCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("order total below coupon minimum of %d", coupon.MinOrderCents))
	}

	if coupon.UsageLimit != nil && coupon.UsageCount >= *coupon.UsageLimit {
		return nil, errInvalidCode()
	}

	if coupon.PerCustomerLimit > 0 && input.CustomerEmail != "" {
		used, err := s.repo.CountUsageByCustomer(ctx, coupon.ID, input.CustomerEmail)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count coupon usage")
		}
		if used >= coupon.PerCustomerLimit {
			return nil, errInvalidCode()
		}
	}

	if err := s.checkApplicability(ctx, coupon, input.Items); err != nil {
		return nil, err
	}

	discount := ComputeDiscount(coupon, input.CartTotalCents)
	return &ValidationResult{
		Coupon:       coupon,
		Discount:     discount.AmountCents,
		FreeShipping: discount.FreeShipping,
	}, nil
}

// checkApplicability enforces product and category restrictions: when either
// list is set, at least one cart item has to match it.
func (s *service) checkApplicability(ctx context.Context, coupon *models.Coupon, items types.OrderItems) error {
	if len(coupon.ApplicableProducts) == 0 && len(coupon.ApplicableCategories) == 0 {
		return nil
	}
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon does not apply to this cart")
	}

	if len(coupon.ApplicableProducts) > 0 {
		allowed := make(map[uuid.UUID]struct{}, len(coupon.ApplicableProducts))
		for _, id := range coupon.ApplicableProducts {
			allowed[id] = struct{}{}
		}
		for _, item := range items {
			if _, ok := allowed[item.ProductID]; ok {
				return nil
			}
		}
	}

	if len(coupon.ApplicableCategories) > 0 {
		ids := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ProductID)
		}
		categories, err := s.categories.CategoriesFor(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve product categories")
		}
		for _, category := range categories {
			for _, allowed := range coupon.ApplicableCategories {
				if category == allowed {
					return nil
				}
			}
		}
	}

	return pkgerrors.New(pkgerrors.CodeValidation, "coupon does not apply to this cart")
}

func (s *service) RecordUsage(ctx context.Context, tx *gorm.DB, input RecordUsageInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required to record coupon usage")
	}
	if input.CouponID == uuid.Nil || input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon id and order id are required")
	}

	repo := s.repo.WithTx(tx)

	bumped, err := repo.IncrementUsage(ctx, input.CouponID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment coupon usage")
	}
	if !bumped {
		return errInvalidCode()
	}

	err = repo.CreateUsage(ctx, &models.CouponUsage{
		CouponID:      input.CouponID,
		OrderID:       input.OrderID,
		CustomerEmail: input.CustomerEmail,
		DiscountCents: input.DiscountCents,
	})
	if db.IsUniqueViolation(err, "uq_coupon_usages_coupon_order") {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon already recorded for this order")
	}
	return err
}
