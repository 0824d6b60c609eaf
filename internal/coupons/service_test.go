package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veldastudio/storefront-backend/pkg/db/models"
	"github.com/veldastudio/storefront-backend/pkg/enums"
	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
	"github.com/veldastudio/storefront-backend/pkg/types"
)

type staticCategories map[uuid.UUID]string

func (s staticCategories) CategoriesFor(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if category, ok := s[id]; ok {
			out[id] = category
		}
	}
	return out, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:coupons_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Coupon{}, &models.CouponUsage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, categories staticCategories) Service {
	t.Helper()
	if categories == nil {
		categories = staticCategories{}
	}
	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(db),
		Categories: categories,
	})
	if err != nil {
		t.Fatalf("coupons service: %v", err)
	}
	return svc
}

func seedCoupon(t *testing.T, db *gorm.DB, coupon models.Coupon) models.Coupon {
	t.Helper()
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	return coupon
}

func intPtr(v int) *int { return &v }

func TestValidatePercentageWithCap(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	seedCoupon(t, db, models.Coupon{
		Code:             "SAVE20",
		Type:             enums.CouponTypePercentage,
		Value:            20,
		MaxDiscountCents: intPtr(1500),
		IsActive:         true,
	})

	result, err := svc.Validate(ctx, ValidateInput{Code: "save20", CartTotalCents: 10000})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	// 20% of 10000 is 2000, capped at 1500.
	if result.Discount != 1500 || result.FreeShipping {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestValidateFixedCappedAtCartTotal(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	seedCoupon(t, db, models.Coupon{
		Code:     "FLAT50",
		Type:     enums.CouponTypeFixed,
		Value:    5000,
		IsActive: true,
	})

	result, err := svc.Validate(ctx, ValidateInput{Code: "FLAT50", CartTotalCents: 3000})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Discount != 3000 {
		t.Fatalf("expected discount capped at 3000, got %d", result.Discount)
	}
}

func TestValidateFreeShipping(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	seedCoupon(t, db, models.Coupon{
		Code:     "SHIPFREE",
		Type:     enums.CouponTypeFreeShipping,
		IsActive: true,
	})

	result, err := svc.Validate(ctx, ValidateInput{Code: "SHIPFREE", CartTotalCents: 4000})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.FreeShipping || result.Discount != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestValidateFailsClosed(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	seedCoupon(t, db, models.Coupon{
		Code:     "EXPIRED",
		Type:     enums.CouponTypeFixed,
		Value:    500,
		EndDate:  &past,
		IsActive: true,
	})
	seedCoupon(t, db, models.Coupon{
		Code:     "DISABLED",
		Type:     enums.CouponTypeFixed,
		Value:    500,
		IsActive: false,
	})

	// Missing, expired and disabled codes share one indistinct rejection.
	var messages []string
	for _, code := range []string{"NOPE", "EXPIRED", "DISABLED"} {
		_, err := svc.Validate(ctx, ValidateInput{Code: code, CartTotalCents: 1000})
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("code %q: unexpected error %v", code, err)
		}
		messages = append(messages, typed.Message())
	}
	if messages[0] != messages[1] || messages[1] != messages[2] {
		t.Fatalf("expected identical rejections, got %v", messages)
	}
}

func TestValidateMinOrderAmount(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	seedCoupon(t, db, models.Coupon{
		Code:          "BIGCART",
		Type:          enums.CouponTypeFixed,
		Value:         1000,
		MinOrderCents: 5000,
		IsActive:      true,
	})

	if _, err := svc.Validate(ctx, ValidateInput{Code: "BIGCART", CartTotalCents: 4999}); err == nil {
		t.Fatal("expected minimum order rejection")
	}
	if _, err := svc.Validate(ctx, ValidateInput{Code: "BIGCART", CartTotalCents: 5000}); err != nil {
		t.Fatalf("validate at boundary: %v", err)
	}
}

func TestUsageLimitBoundary(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	coupon := seedCoupon(t, db, models.Coupon{
		Code:       "ONCE",
		Type:       enums.CouponTypeFixed,
		Value:      500,
		UsageLimit: intPtr(1),
		IsActive:   true,
	})

	// First validation passes and performs no mutation.
	if _, err := svc.Validate(ctx, ValidateInput{Code: "ONCE", CartTotalCents: 2000}); err != nil {
		t.Fatalf("first validate: %v", err)
	}
	if _, err := svc.Validate(ctx, ValidateInput{Code: "ONCE", CartTotalCents: 2000}); err != nil {
		t.Fatalf("repeat validate should not consume usage: %v", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.RecordUsage(ctx, tx, RecordUsageInput{
			CouponID:      coupon.ID,
			OrderID:       uuid.New(),
			CustomerEmail: "buyer@example.com",
			DiscountCents: 500,
		})
	}); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	if _, err := svc.Validate(ctx, ValidateInput{Code: "ONCE", CartTotalCents: 2000}); err == nil {
		t.Fatal("expected exhausted coupon rejection")
	}

	// A second redemption attempt is refused at the counter.
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.RecordUsage(ctx, tx, RecordUsageInput{
			CouponID:      coupon.ID,
			OrderID:       uuid.New(),
			CustomerEmail: "other@example.com",
			DiscountCents: 500,
		})
	})
	if err == nil {
		t.Fatal("expected usage limit rejection")
	}
}

func TestRecordUsageRejectsDuplicateOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	coupon := seedCoupon(t, db, models.Coupon{
		Code:     "REPEAT",
		Type:     enums.CouponTypeFixed,
		Value:    500,
		IsActive: true,
	})
	orderID := uuid.New()

	record := func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			return svc.RecordUsage(ctx, tx, RecordUsageInput{
				CouponID:      coupon.ID,
				OrderID:       orderID,
				CustomerEmail: "buyer@example.com",
				DiscountCents: 500,
			})
		})
	}

	if err := record(); err != nil {
		t.Fatalf("record usage: %v", err)
	}
	err := record()
	if err == nil {
		t.Fatal("expected duplicate order rejection")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	var count int64
	if err := db.Model(&models.CouponUsage{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		t.Fatalf("count usages: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one usage row, got %d", count)
	}
}

func TestPerCustomerLimit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := context.Background()

	coupon := seedCoupon(t, db, models.Coupon{
		Code:             "LOYAL",
		Type:             enums.CouponTypeFixed,
		Value:            500,
		PerCustomerLimit: 1,
		IsActive:         true,
	})

	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.RecordUsage(ctx, tx, RecordUsageInput{
			CouponID:      coupon.ID,
			OrderID:       uuid.New(),
			CustomerEmail: "Buyer@Example.com",
			DiscountCents: 500,
		})
	}); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	if _, err := svc.Validate(ctx, ValidateInput{
		Code:           "LOYAL",
		CartTotalCents: 2000,
		CustomerEmail:  "buyer@example.com",
	}); err == nil {
		t.Fatal("expected per-customer rejection")
	}

	if _, err := svc.Validate(ctx, ValidateInput{
		Code:           "LOYAL",
		CartTotalCents: 2000,
		CustomerEmail:  "fresh@example.com",
	}); err != nil {
		t.Fatalf("validate for new customer: %v", err)
	}
}

func TestApplicabilityRestrictions(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	shirt := uuid.New()
	mug := uuid.New()
	svc := newTestService(t, db, staticCategories{shirt: "apparel", mug: "homeware"})

	seedCoupon(t, db, models.Coupon{
		Code:                 "APPAREL10",
		Type:                 enums.CouponTypePercentage,
		Value:                10,
		ApplicableCategories: []string{"apparel"},
		IsActive:             true,
	})

	if _, err := svc.Validate(ctx, ValidateInput{
		Code:           "APPAREL10",
		CartTotalCents: 3000,
		Items:          types.OrderItems{{ProductID: shirt, Qty: 1, UnitPriceCents: 3000}},
	}); err != nil {
		t.Fatalf("validate matching category: %v", err)
	}

	if _, err := svc.Validate(ctx, ValidateInput{
		Code:           "APPAREL10",
		CartTotalCents: 3000,
		Items:          types.OrderItems{{ProductID: mug, Qty: 1, UnitPriceCents: 3000}},
	}); err == nil {
		t.Fatal("expected category rejection")
	}
}
