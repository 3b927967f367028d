package orders

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mljjcooking/storefront-backend/pkg/db/models"
	"github.com/mljjcooking/storefront-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	createOrderTables(t, db)
	return db
}

func createOrderTables(t *testing.T, db *gorm.DB) {
	t.Helper()

	ordersTable := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_email TEXT NOT NULL,
  customer_name TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  currency TEXT NOT NULL DEFAULT 'usd',
  total_cents INTEGER NOT NULL,
  stripe_payment_intent_id TEXT NOT NULL UNIQUE,
  stripe_payment_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	lineItems := `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  image_url TEXT,
  total_cents INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(ordersTable).Error)
	require.NoError(t, db.Exec(lineItems).Error)
	require.NoError(t, db.Exec("DELETE FROM order_line_items").Error)
	require.NoError(t, db.Exec("DELETE FROM orders").Error)
}

func newPendingOrder(t *testing.T, db *gorm.DB, intentID string) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:                    uuid.New(),
		CustomerEmail:         "jane@example.com",
		Status:                enums.OrderStatusPending,
		Currency:              enums.CurrencyUSD,
		TotalCents:            3700,
		StripePaymentIntentID: intentID,
		Items: []models.OrderLineItem{
			{
				ID:             uuid.New(),
				ProductID:      uuid.New(),
				Name:           "Banana Bread",
				UnitPriceCents: 1200,
				Qty:            2,
				TotalCents:     2400,
			},
			{
				ID:             uuid.New(),
				ProductID:      uuid.New(),
				Name:           "Brownie",
				UnitPriceCents: 1300,
				Qty:            1,
				TotalCents:     1300,
			},
		},
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestCreateAndFindByIDLoadsItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	created := newPendingOrder(t, db, "pi_create_1")

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.StripePaymentIntentID, found.StripePaymentIntentID)
	assert.Len(t, found.Items, 2)
	assert.Equal(t, int64(3700), found.TotalCents)
}

func TestFindByPaymentIntentID(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	created := newPendingOrder(t, db, "pi_find_1")

	found, err := repo.FindByPaymentIntentID(context.Background(), "pi_find_1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.FindByPaymentIntentID(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMarkPaidTransitionsOnce(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := newPendingOrder(t, db, "pi_paid_1")
	paymentID := "ch_123"

	first, err := repo.MarkPaid(context.Background(), order.ID, &paymentID, time.Now())
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.MarkPaid(context.Background(), order.ID, &paymentID, time.Now())
	require.NoError(t, err)
	assert.False(t, second)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, found.Status)
	require.NotNil(t, found.StripePaymentID)
	assert.Equal(t, "ch_123", *found.StripePaymentID)
}

func TestMarkPaidConcurrentDeliveriesSingleWinner(t *testing.T) {
	// File-backed database so two connections really contend; the busy
	// timeout makes the loser wait instead of erroring.
	dsn := filepath.Join(t.TempDir(), "orders.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	createOrderTables(t, db)

	repo := NewRepository(db)
	order := newPendingOrder(t, db, "pi_concurrent_1")
	paymentID := "ch_concurrent"

	start := make(chan struct{})
	results := make(chan bool, 2)
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			transitioned, markErr := repo.MarkPaid(context.Background(), order.ID, &paymentID, time.Now())
			results <- transitioned
			errs <- markErr
		}()
	}
	close(start)
	wg.Wait()
	close(results)
	close(errs)

	for markErr := range errs {
		require.NoError(t, markErr)
	}
	wins := 0
	for transitioned := range results {
		if transitioned {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, found.Status)
}

func TestMarkFailedDoesNotOverridePaid(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := newPendingOrder(t, db, "pi_failed_1")
	paymentID := "ch_456"

	paid, err := repo.MarkPaid(context.Background(), order.ID, &paymentID, time.Now())
	require.NoError(t, err)
	require.True(t, paid)

	failed, err := repo.MarkFailed(context.Background(), order.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, failed)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, found.Status)
}

func TestMarkFulfilledRequiresPaid(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := newPendingOrder(t, db, "pi_fulfill_1")

	fulfilled, err := repo.MarkFulfilled(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, fulfilled)

	paymentID := "ch_789"
	paid, err := repo.MarkPaid(context.Background(), order.ID, &paymentID, time.Now())
	require.NoError(t, err)
	require.True(t, paid)

	fulfilled, err = repo.MarkFulfilled(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, fulfilled)
}

func TestListFiltersByStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	pending := newPendingOrder(t, db, "pi_list_1")
	other := newPendingOrder(t, db, "pi_list_2")

	paymentID := "ch_list"
	paid, err := repo.MarkPaid(context.Background(), other.ID, &paymentID, time.Now())
	require.NoError(t, err)
	require.True(t, paid)

	status := enums.OrderStatusPending
	rows, total, err := repo.List(context.Background(), ListParams{Status: &status})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, pending.ID, rows[0].ID)

	rows, total, err = repo.List(context.Background(), ListParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 2)
}
