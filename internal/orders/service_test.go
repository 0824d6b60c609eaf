package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veldastudio/storefront-backend/internal/audit"
	"github.com/veldastudio/storefront-backend/internal/coupons"
	"github.com/veldastudio/storefront-backend/internal/inventory"
	"github.com/veldastudio/storefront-backend/internal/movements"
	"github.com/veldastudio/storefront-backend/internal/payments"
	"github.com/veldastudio/storefront-backend/internal/products"
	"github.com/veldastudio/storefront-backend/pkg/db/models"
	"github.com/veldastudio/storefront-backend/pkg/enums"
	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
	"github.com/veldastudio/storefront-backend/pkg/logger"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeProvider struct {
	initialized int
	failInit    bool
}

func (p *fakeProvider) InitializeTransaction(_ context.Context, input payments.InitializeInput) (*payments.InitializeResult, error) {
	p.initialized++
	if p.failInit {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider unavailable")
	}
	return &payments.InitializeResult{
		AuthorizationURL: "https://checkout.example.com/session",
		Reference:        "ps-" + uuid.NewString()[:8],
	}, nil
}

func (p *fakeProvider) VerifyTransaction(context.Context, string) (*payments.VerifyResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "not implemented")
}

type fakeNotifier struct {
	confirmed int
	paid      int
	failed    int
	refunded  int
}

func (n *fakeNotifier) OrderConfirmed(context.Context, *models.Order)         { n.confirmed++ }
func (n *fakeNotifier) PaymentReceived(context.Context, *models.Order)        { n.paid++ }
func (n *fakeNotifier) PaymentFailed(context.Context, *models.Order, string)  { n.failed++ }
func (n *fakeNotifier) OrderRefunded(context.Context, *models.Order)          { n.refunded++ }

type testEnv struct {
	db       *gorm.DB
	svc      Service
	provider *fakeProvider
	notifier *fakeNotifier
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{},
		&models.ProductStock{},
		&models.Order{},
		&models.StockReservation{},
		&models.StockMovement{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel})

	recorder, err := movements.NewService(movements.NewRepository(db))
	if err != nil {
		t.Fatalf("movements service: %v", err)
	}
	inv, err := inventory.NewService(inventory.ServiceParams{
		Repo:      inventory.NewRepository(db),
		Movements: recorder,
		Tx:        gormTxRunner{db: db},
		Logger:    logg,
	})
	if err != nil {
		t.Fatalf("inventory service: %v", err)
	}
	catalog, err := products.NewService(products.NewRepository(db))
	if err != nil {
		t.Fatalf("products service: %v", err)
	}
	coup, err := coupons.NewService(coupons.ServiceParams{
		Repo:       coupons.NewRepository(db),
		Categories: catalog,
	})
	if err != nil {
		t.Fatalf("coupons service: %v", err)
	}

	provider := &fakeProvider{}
	notifier := &fakeNotifier{}
	svc, err := NewService(ServiceParams{
		Repo:           NewRepository(db),
		Tx:             gormTxRunner{db: db},
		Inventory:      inv,
		Coupons:        coup,
		Products:       catalog,
		Provider:       provider,
		Notifier:       notifier,
		Audit:          audit.NewRecorder(db),
		Logger:         logg,
		ReservationTTL: 30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}
	return &testEnv{db: db, svc: svc, provider: provider, notifier: notifier}
}

func seedProduct(t *testing.T, db *gorm.DB, priceCents int, category string) uuid.UUID {
	t.Helper()
	product := models.Product{
		Name:       "Test Product",
		SKU:        "sku-" + uuid.NewString()[:8],
		PriceCents: priceCents,
		Category:   category,
		IsActive:   true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func seedVariantStock(t *testing.T, db *gorm.DB, productID uuid.UUID, variantKey string, qty int) {
	t.Helper()
	if err := db.Create(&models.ProductStock{
		ProductID:    productID,
		VariantKey:   variantKey,
		AvailableQty: qty,
	}).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func checkoutInput(productID uuid.UUID, variantKey string, qty int) CheckoutInput {
	return CheckoutInput{
		CustomerName:  "Ada Test",
		CustomerEmail: "ada@example.com",
		Items:         []CheckoutItem{{ProductID: productID, VariantKey: variantKey, Qty: qty}},
		ShippingCents: 1000,
		PaymentMethod: enums.PaymentMethodPaystack,
	}
}

func TestCheckoutCreatesOrderAndHolds(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	productID := seedProduct(t, env.db, 2500, "apparel")
	seedVariantStock(t, env.db, productID, "black-m", 10)

	result, err := env.svc.Checkout(ctx, checkoutInput(productID, "black-m", 2))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	order := result.Order
	if order.SubtotalCents != 5000 || order.TotalCents != 6000 {
		t.Fatalf("unexpected totals: %+v", order)
	}
	if order.PaymentStatus != enums.PaymentStatusPending || order.OrderStatus != enums.OrderStatusPending {
		t.Fatalf("unexpected initial statuses: %+v", order)
	}
	if result.AuthorizationURL == "" || order.PaymentReference == nil {
		t.Fatalf("expected hosted payment redirect, got %+v", result)
	}
	if env.provider.initialized != 1 || env.notifier.confirmed != 1 {
		t.Fatalf("expected provider init and confirmation notification")
	}

	var stock models.ProductStock
	if err := env.db.First(&stock, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if stock.AvailableQty != 8 {
		t.Fatalf("expected available 8, got %d", stock.AvailableQty)
	}
	var holds int64
	if err := env.db.Model(&models.StockReservation{}).Where("order_id = ?", order.ID).Count(&holds).Error; err != nil {
		t.Fatalf("count holds: %v", err)
	}
	if holds != 1 {
		t.Fatalf("expected 1 hold, got %d", holds)
	}
}

func TestCheckoutOutOfStockRollsBackOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	productID := seedProduct(t, env.db, 2500, "apparel")
	seedVariantStock(t, env.db, productID, "black-m", 1)

	_, err := env.svc.Checkout(ctx, checkoutInput(productID, "black-m", 4))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("unexpected error: %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["available"] != 1 {
		t.Fatalf("expected available quantity in details, got %v", typed.Details())
	}

	var orderCount int64
	if err := env.db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected order rollback, found %d orders", orderCount)
	}
	if env.provider.initialized != 0 {
		t.Fatal("provider must not be called for a failed checkout")
	}
}

func TestCheckoutAppliesCoupon(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	productID := seedProduct(t, env.db, 10000, "apparel")
	seedVariantStock(t, env.db, productID, "", 5)

	coupon := models.Coupon{
		Code:     "SAVE10",
		Type:     enums.CouponTypePercentage,
		Value:    10,
		IsActive: true,
	}
	if err := env.db.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	input := checkoutInput(productID, "", 1)
	input.CouponCode = "save10"
	result, err := env.svc.Checkout(ctx, input)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	order := result.Order
	if order.DiscountCents != 1000 || order.TotalCents != 10000 {
		t.Fatalf("unexpected totals with coupon: %+v", order)
	}
	if order.CouponCode == nil || *order.CouponCode != "SAVE10" {
		t.Fatalf("expected coupon code on order, got %v", order.CouponCode)
	}

	var usage models.CouponUsage
	if err := env.db.First(&usage, "coupon_id = ?", coupon.ID).Error; err != nil {
		t.Fatalf("load usage: %v", err)
	}
	if usage.OrderID != order.ID || usage.DiscountCents != 1000 {
		t.Fatalf("unexpected usage row: %+v", usage)
	}
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	productID := seedProduct(t, env.db, 2500, "apparel")
	seedVariantStock(t, env.db, productID, "", 10)

	result, err := env.svc.Checkout(ctx, checkoutInput(productID, "", 3))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	orderID := result.Order.ID

	if err := env.svc.MarkPaid(ctx, orderID, "ps-ref-1"); err != nil {
		t.Fatalf("first mark paid: %v", err)
	}

	err = env.svc.MarkPaid(ctx, orderID, "ps-ref-1")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDuplicateEvent {
		t.Fatalf("expected duplicate event, got %v", err)
	}

	order, err := env.svc.GetByID(ctx, orderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.PaymentStatus != enums.PaymentStatusPaid || order.OrderStatus != enums.OrderStatusProcessing {
		t.Fatalf("unexpected statuses: %+v", order)
	}

	// One confirm per hold, no double decrement.
	var confirms int64
	if err := env.db.Model(&models.StockMovement{}).
		Where("movement_type = ?", enums.MovementTypeConfirm).
		Count(&confirms).Error; err != nil {
		t.Fatalf("count confirms: %v", err)
	}
	if confirms != 1 {
		t.Fatalf("expected 1 confirm movement, got %d", confirms)
	}
	var stock models.ProductStock
	if err := env.db.First(&stock, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if stock.AvailableQty != 7 {
		t.Fatalf("expected available 7, got %d", stock.AvailableQty)
	}
	if env.notifier.paid != 1 {
		t.Fatalf("expected one payment notification, got %d", env.notifier.paid)
	}
}

func TestMarkPaidDoesNotDowngradeAdvancedStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	productID := seedProduct(t, env.db, 2500, "apparel")
	seedVariantStock(t, env.db, productID, "", 10)

	result, err := env.svc.Checkout(ctx, checkoutInput(productID, "", 1))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	orderID := result.Order.ID

	if err := env.svc.UpdateStatus(ctx, orderID, enums.OrderStatusShipped, "ops@example.com"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := env.svc.MarkPaid(ctx, orderID, "ps-ref-2"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	order, err := env.svc.GetByID(ctx, orderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.OrderStatus != enums.OrderStatusShipped {
		t.Fatalf("expected status to stay shipped, got %s", order.OrderStatus)
	}
}

func TestMarkFailedReleasesHolds(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	productID := seedProduct(t, env.db, 2500, "apparel")
	seedVariantStock(t, env.db, productID, "", 10)

	result, err := env.svc.Checkout(ctx, checkoutInput(productID, "", 4))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	orderID := result.Order.ID

	if err := env.svc.MarkFailed(ctx, orderID, "card declined"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	// Retry deliveries are a no-op.
	if err := env.svc.MarkFailed(ctx, orderID, "card declined"); err != nil {
		t.Fatalf("repeat mark failed: %v", err)
	}

	order, err := env.svc.GetByID(ctx, orderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("expected failed payment status, got %s", order.PaymentStatus)
	}
	if order.OrderStatus != enums.OrderStatusPending {
		t.Fatalf("order status must be untouched, got %s", order.OrderStatus)
	}

	var stock models.ProductStock
	if err := env.db.First(&stock, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if stock.AvailableQty != 10 {
		t.Fatalf("expected stock restored to 10, got %d", stock.AvailableQty)
	}
}

func TestMarkRefundedKeepsPaymentStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	productID := seedProduct(t, env.db, 2500, "apparel")
	seedVariantStock(t, env.db, productID, "", 10)

	result, err := env.svc.Checkout(ctx, checkoutInput(productID, "", 1))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	orderID := result.Order.ID

	if err := env.svc.MarkPaid(ctx, orderID, "ps-ref-3"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if err := env.svc.MarkRefunded(ctx, orderID, "rf-77"); err != nil {
		t.Fatalf("mark refunded: %v", err)
	}

	order, err := env.svc.GetByID(ctx, orderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.OrderStatus != enums.OrderStatusRefunded {
		t.Fatalf("expected refunded order status, got %s", order.OrderStatus)
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status must keep the paid fact, got %s", order.PaymentStatus)
	}
	if order.Notes == nil || !strings.Contains(*order.Notes, "rf-77") {
		t.Fatalf("expected refund note, got %v", order.Notes)
	}
}

func TestUpdateStatusWritesAudit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	productID := seedProduct(t, env.db, 2500, "apparel")
	seedVariantStock(t, env.db, productID, "", 10)

	result, err := env.svc.Checkout(ctx, checkoutInput(productID, "", 1))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	orderID := result.Order.ID

	if err := env.svc.UpdateStatus(ctx, orderID, enums.OrderStatusProcessing, "ops@example.com"); err != nil {
		t.Fatalf("update status: %v", err)
	}

	var entries []models.AuditLog
	if err := env.db.Find(&entries, "entity = ? AND entity_id = ?", "order", orderID).Error; err != nil {
		t.Fatalf("load audit: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Action != "status.updated" || entry.Actor != "ops@example.com" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if string(entry.OldValue) != `"pending"` || string(entry.NewValue) != `"processing"` {
		t.Fatalf("unexpected audit values: old=%s new=%s", entry.OldValue, entry.NewValue)
	}
}

func TestFindForPaymentFallsBackToMetadata(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	productID := seedProduct(t, env.db, 2500, "apparel")
	seedVariantStock(t, env.db, productID, "", 10)

	result, err := env.svc.Checkout(ctx, checkoutInput(productID, "", 1))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	orderID := result.Order.ID

	byRef, err := env.svc.FindForPayment(ctx, *result.Order.PaymentReference, uuid.Nil)
	if err != nil || byRef == nil || byRef.ID != orderID {
		t.Fatalf("lookup by reference failed: %v %v", byRef, err)
	}

	byMeta, err := env.svc.FindForPayment(ctx, "unknown-ref", orderID)
	if err != nil || byMeta == nil || byMeta.ID != orderID {
		t.Fatalf("metadata fallback failed: %v %v", byMeta, err)
	}

	missing, err := env.svc.FindForPayment(ctx, "unknown-ref", uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("expected nil order for unknown event, got %v %v", missing, err)
	}
}

func TestCompetingCheckoutsScenario(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	productID := seedProduct(t, env.db, 3000, "apparel")
	seedVariantStock(t, env.db, productID, "black-m", 10)

	var succeeded []uuid.UUID
	failures := 0
	for i := 0; i < 3; i++ {
		result, err := env.svc.Checkout(ctx, checkoutInput(productID, "black-m", 4))
		if err != nil {
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
				t.Fatalf("unexpected error: %v", err)
			}
			details := typed.Details().(map[string]any)
			if details["available"] != 2 {
				t.Fatalf("expected available 2 in failure details, got %v", details)
			}
			failures++
			continue
		}
		succeeded = append(succeeded, result.Order.ID)
	}
	if len(succeeded) != 2 || failures != 1 {
		t.Fatalf("expected 2 successes and 1 failure, got %d/%d", len(succeeded), failures)
	}

	for _, orderID := range succeeded {
		if err := env.svc.MarkPaid(ctx, orderID, ""); err != nil {
			t.Fatalf("mark paid %s: %v", orderID, err)
		}
	}

	var stock models.ProductStock
	if err := env.db.First(&stock, "product_id = ?", productID).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if stock.AvailableQty != 2 {
		t.Fatalf("expected final available 2, got %d", stock.AvailableQty)
	}
	var holds int64
	if err := env.db.Model(&models.StockReservation{}).Count(&holds).Error; err != nil {
		t.Fatalf("count holds: %v", err)
	}
	if holds != 0 {
		t.Fatalf("expected zero active holds, got %d", holds)
	}
	var confirms int64
	if err := env.db.Model(&models.StockMovement{}).
		Where("movement_type = ?", enums.MovementTypeConfirm).
		Count(&confirms).Error; err != nil {
		t.Fatalf("count confirms: %v", err)
	}
	if confirms != 2 {
		t.Fatalf("expected 2 confirm movements, got %d", confirms)
	}
}
