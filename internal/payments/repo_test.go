package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nairamart/nairamart-backend/pkg/db/models"
	"github.com/nairamart/nairamart-backend/pkg/enums"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS transactions (
  id TEXT PRIMARY KEY,
  reference TEXT NOT NULL UNIQUE,
  order_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  cart_id TEXT NOT NULL,
  email TEXT NOT NULL,
  amount TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  access_code TEXT,
  authorization_url TEXT,
  gateway_response TEXT,
  channel TEXT,
  card_type TEXT,
  bank TEXT,
  metadata TEXT,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	require.NoError(t, db.Exec(`DELETE FROM transactions`).Error)
	return db
}

func createTestTransaction(t *testing.T, db *gorm.DB, reference string, cartID uuid.UUID, status enums.TransactionStatus, created time.Time) *models.Transaction {
	t.Helper()

	txn := &models.Transaction{
		ID:        uuid.New(),
		Reference: reference,
		OrderID:   uuid.New(),
		BuyerID:   uuid.New(),
		CartID:    cartID,
		Email:     "buyer@example.com",
		Amount:    decimal.RequireFromString("50.00"),
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, db.Create(txn).Error)
	return txn
}

func TestRepositoryCreateDefaultsToPending(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	txn := &models.Transaction{
		ID:        uuid.New(),
		Reference: "TXN_create",
		OrderID:   uuid.New(),
		BuyerID:   uuid.New(),
		CartID:    uuid.New(),
		Email:     "buyer@example.com",
		Amount:    decimal.RequireFromString("120.50"),
	}
	created, err := repo.Create(ctx, txn)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusPending, created.Status)

	found, err := repo.FindByReference(ctx, "TXN_create")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.True(t, found.Amount.Equal(decimal.RequireFromString("120.50")))
}

func TestRepositoryCreateRejectsDuplicateReference(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	createTestTransaction(t, db, "TXN_dup", uuid.New(), enums.TransactionStatusPending, time.Now())

	_, err := repo.Create(ctx, &models.Transaction{
		ID:        uuid.New(),
		Reference: "TXN_dup",
		OrderID:   uuid.New(),
		BuyerID:   uuid.New(),
		CartID:    uuid.New(),
		Email:     "buyer@example.com",
		Amount:    decimal.RequireFromString("10.00"),
	})
	assert.Error(t, err)
}

func TestRepositorySavePersistsGatewayFields(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	txn := createTestTransaction(t, db, "TXN_save", uuid.New(), enums.TransactionStatusPending, time.Now())

	response := "Approved"
	channel := "card"
	paidAt := time.Now().UTC().Truncate(time.Second)
	txn.Status = enums.TransactionStatusSuccess
	txn.GatewayResponse = &response
	txn.Channel = &channel
	txn.PaidAt = &paidAt

	_, err := repo.Save(ctx, txn)
	require.NoError(t, err)

	found, err := repo.FindByReference(ctx, "TXN_save")
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusSuccess, found.Status)
	require.NotNil(t, found.GatewayResponse)
	assert.Equal(t, "Approved", *found.GatewayResponse)
	require.NotNil(t, found.PaidAt)
}

func TestRepositoryFindByReferenceNotFound(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByReference(context.Background(), "TXN_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryFindPendingByCart(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cartID := uuid.New()
	base := time.Now().Add(-time.Hour)
	createTestTransaction(t, db, "TXN_failed", cartID, enums.TransactionStatusFailed, base)
	oldest := createTestTransaction(t, db, "TXN_pending_1", cartID, enums.TransactionStatusPending, base.Add(time.Minute))
	createTestTransaction(t, db, "TXN_pending_2", cartID, enums.TransactionStatusPending, base.Add(2*time.Minute))

	found, err := repo.FindPendingByCart(ctx, cartID)
	require.NoError(t, err)
	assert.Equal(t, oldest.ID, found.ID)

	_, err = repo.FindPendingByCart(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListByOrder(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i, ref := range []string{"TXN_a", "TXN_b"} {
		txn := createTestTransaction(t, db, ref, uuid.New(), enums.TransactionStatusPending, base.Add(time.Duration(i)*time.Minute))
		txn.OrderID = orderID
		require.NoError(t, db.Save(txn).Error)
	}

	rows, err := repo.ListByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "TXN_a", rows[0].Reference)
	assert.Equal(t, "TXN_b", rows[1].Reference)
}
