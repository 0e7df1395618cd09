package repository_test

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/database"
	"github.com/prepflow/prepflow-backend/pkg/errors"
	"github.com/prepflow/prepflow-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepoDB(t *testing.T) (*testutil.MockDB, *database.DB) {
	t.Helper()
	mock := testutil.NewMockDB(t)
	return mock, &database.DB{DB: mock.DB}
}

func TestAlertRepository_CreateIfAbsent_DuplicateIsNotAnError(t *testing.T) {
	mock, db := newMockRepoDB(t)
	defer mock.Close()

	repo := repository.NewAlertRepository(db)

	// The partial unique index rejects a second open alert with 23505;
	// the repository reports "already present" instead of failing
	mock.ExpectQuery("INSERT INTO low_stock_alerts").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "unacknowledged_alert"})

	created, err := repo.CreateIfAbsent(context.Background(), &repository.LowStockAlert{
		ProductID:    "prod-1",
		ProductName:  "Lettuce",
		CurrentStock: dec("2"),
		Threshold:    dec("5"),
	})
	require.NoError(t, err)
	assert.False(t, created)

	mock.ExpectationsWereMet(t)
}

func TestAlertRepository_CreateIfAbsent_OtherErrorsPropagate(t *testing.T) {
	mock, db := newMockRepoDB(t)
	defer mock.Close()

	repo := repository.NewAlertRepository(db)

	mock.ExpectQuery("INSERT INTO low_stock_alerts").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "low_stock_alerts_product_id_fkey"})

	_, err := repo.CreateIfAbsent(context.Background(), &repository.LowStockAlert{
		ProductID: "missing",
	})
	require.Error(t, err)

	mock.ExpectationsWereMet(t)
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock, db := newMockRepoDB(t)
	defer mock.Close()

	repo := repository.NewProductRepository(db)

	mock.ExpectQuery("SELECT * FROM products WHERE id = $1").
		WithArgs("missing").
		WillReturnRows(testutil.MockRows("id", "name"))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mock.ExpectationsWereMet(t)
}
