package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/veldastudio/storefront-backend/pkg/db/models"
	"github.com/veldastudio/storefront-backend/pkg/enums"
)

func seedOrder(t *testing.T, db *gorm.DB, email string, created time.Time, paymentStatus enums.PaymentStatus, orderStatus enums.OrderStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		CustomerName:  "Repo Test",
		CustomerEmail: email,
		SubtotalCents: 2000,
		ShippingCents: 500,
		TotalCents:    2500,
		PaymentMethod: enums.PaymentMethodPaystack,
		PaymentStatus: paymentStatus,
		OrderStatus:   orderStatus,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepositoryMarkPaid_flipsPendingOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, "paid@example.com", time.Now().UTC(), enums.PaymentStatusPending, enums.OrderStatusPending)

	flipped, err := repo.MarkPaid(context.Background(), order.ID, "ref_abc123")
	require.NoError(t, err)
	assert.True(t, flipped)

	again, err := repo.MarkPaid(context.Background(), order.ID, "ref_abc123")
	require.NoError(t, err)
	assert.False(t, again)

	reloaded, err := repo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)
	require.NotNil(t, reloaded.PaymentReference)
	assert.Equal(t, "ref_abc123", *reloaded.PaymentReference)
}

func TestRepositoryMarkFailed_doesNotTouchPaidOrders(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	pending := seedOrder(t, db, "fail@example.com", time.Now().UTC(), enums.PaymentStatusPending, enums.OrderStatusPending)
	paid := seedOrder(t, db, "settled@example.com", time.Now().UTC(), enums.PaymentStatusPaid, enums.OrderStatusProcessing)

	flipped, err := repo.MarkFailed(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = repo.MarkFailed(context.Background(), paid.ID)
	require.NoError(t, err)
	assert.False(t, flipped)

	reloaded, err := repo.GetByID(context.Background(), paid.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)
}

func TestRepositoryAdvanceOrderStatus_requiresExpectedCurrent(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, "advance@example.com", time.Now().UTC(), enums.PaymentStatusPaid, enums.OrderStatusProcessing)

	moved, err := repo.AdvanceOrderStatus(context.Background(), order.ID, enums.OrderStatusProcessing, enums.OrderStatusShipped)
	require.NoError(t, err)
	assert.True(t, moved)

	// A second writer racing on the stale status loses.
	moved, err = repo.AdvanceOrderStatus(context.Background(), order.ID, enums.OrderStatusProcessing, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.False(t, moved)

	reloaded, err := repo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, reloaded.OrderStatus)
}

func TestRepositoryGetByPaymentReference(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, "ref@example.com", time.Now().UTC(), enums.PaymentStatusPending, enums.OrderStatusPending)
	require.NoError(t, repo.SetPaymentReference(context.Background(), order.ID, "ref_lookup"))

	found, err := repo.GetByPaymentReference(context.Background(), "ref_lookup")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, order.ID, found.ID)

	missing, err := repo.GetByPaymentReference(context.Background(), "ref_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	blank, err := repo.GetByPaymentReference(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, blank)
}

func TestRepositoryList_filtersAndPagination(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	seedOrder(t, db, "alpha@example.com", now.Add(-2*time.Hour), enums.PaymentStatusPaid, enums.OrderStatusProcessing)
	seedOrder(t, db, "alpha@example.com", now.Add(-time.Hour), enums.PaymentStatusPending, enums.OrderStatusPending)
	newest := seedOrder(t, db, "beta@example.com", now, enums.PaymentStatusPaid, enums.OrderStatusShipped)

	rows, total, err := repo.List(context.Background(), ListParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, rows, 3)
	assert.Equal(t, newest.ID, rows[0].ID)

	paidStatus := enums.PaymentStatusPaid
	rows, total, err = repo.List(context.Background(), ListParams{PaymentStatus: &paidStatus})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 2)

	rows, total, err = repo.List(context.Background(), ListParams{CustomerEmail: "alpha@example.com", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 1)

	rows, _, err = repo.List(context.Background(), ListParams{CustomerEmail: "alpha@example.com", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	shipped := enums.OrderStatusShipped
	rows, total, err = repo.List(context.Background(), ListParams{OrderStatus: &shipped})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, "beta@example.com", rows[0].CustomerEmail)
}

func TestRepositoryAppendNote_accumulates(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, "notes@example.com", time.Now().UTC(), enums.PaymentStatusPending, enums.OrderStatusPending)

	require.NoError(t, repo.AppendNote(context.Background(), order.ID, "first note"))
	require.NoError(t, repo.AppendNote(context.Background(), order.ID, "second note"))

	reloaded, err := repo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.Notes)
	assert.Equal(t, "first note\nsecond note", *reloaded.Notes)

	err = repo.AppendNote(context.Background(), uuid.New(), "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
