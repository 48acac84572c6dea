package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tillpoint/internal/product/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Product{}))
	return db
}

func seed(t *testing.T, db *gorm.DB, stock int64) domain.Product {
	t.Helper()
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	now := time.Now().UTC()
	p := domain.Product{
		ID:        node.Generate(),
		SKU:       "SKU-A",
		Name:      "Americano",
		Price:     decimal.RequireFromString("10.00"),
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, Provide().Insert(context.Background(), db, &p))
	return p
}

func TestAdjustStockDecrement(t *testing.T) {
	db := openTestDB(t)
	p := seed(t, db, 10)
	repo := Provide()

	require.NoError(t, repo.AdjustStock(context.Background(), db, p.ID, -3))

	got, err := repo.FindByID(context.Background(), db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Stock)
}

func TestAdjustStockRefusesGoingNegative(t *testing.T) {
	db := openTestDB(t)
	p := seed(t, db, 2)
	repo := Provide()

	err := repo.AdjustStock(context.Background(), db, p.ID, -3)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, ferr := repo.FindByID(context.Background(), db, p.ID)
	require.NoError(t, ferr)
	assert.Equal(t, int64(2), got.Stock, "guard miss must not change stock")
}

func TestAdjustStockToExactlyZero(t *testing.T) {
	db := openTestDB(t)
	p := seed(t, db, 3)
	repo := Provide()

	require.NoError(t, repo.AdjustStock(context.Background(), db, p.ID, -3))

	got, err := repo.FindByID(context.Background(), db, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Stock)
}

func TestAdjustStockIncrementHasNoGuard(t *testing.T) {
	db := openTestDB(t)
	p := seed(t, db, 0)
	repo := Provide()

	require.NoError(t, repo.AdjustStock(context.Background(), db, p.ID, 5))

	got, err := repo.FindByID(context.Background(), db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Stock)
}

func TestAdjustStockUnknownProduct(t *testing.T) {
	db := openTestDB(t)
	seed(t, db, 10)
	repo := Provide()

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	err = repo.AdjustStock(context.Background(), db, node.Generate(), -1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdjustStockConcurrentDecrements(t *testing.T) {
	db := openTestDB(t)
	p := seed(t, db, 100)
	repo := Provide()

	// The in-memory database takes one writer at a time; the pool
	// serializes the connections while the callers stay concurrent.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.AdjustStock(context.Background(), db, p.ID, -3)
		}()
	}
	wg.Wait()
	close(errs)

	for adjustErr := range errs {
		require.NoError(t, adjustErr)
	}

	got, err := repo.FindByID(context.Background(), db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100-workers*3), got.Stock, "every decrement must land, none lost")
}

func TestAdjustStockConcurrentOversubscription(t *testing.T) {
	db := openTestDB(t)
	p := seed(t, db, 5)
	repo := Provide()

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	const workers = 12
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.AdjustStock(context.Background(), db, p.ID, -1)
		}()
	}
	wg.Wait()
	close(errs)

	var refused int
	for adjustErr := range errs {
		if adjustErr == nil {
			continue
		}
		require.ErrorIs(t, adjustErr, domain.ErrInsufficientStock)
		refused++
	}
	assert.Equal(t, workers-5, refused, "exactly the oversubscribed calls are refused")

	got, err := repo.FindByID(context.Background(), db, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Stock, "stock drains to zero, never below")
}
