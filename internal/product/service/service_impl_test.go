package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tillpoint/internal/clock"
	"github.com/smallbiznis/tillpoint/internal/config"
	"github.com/smallbiznis/tillpoint/internal/events"
	"github.com/smallbiznis/tillpoint/internal/product/domain"
	"github.com/smallbiznis/tillpoint/internal/product/repository"
	saledomain "github.com/smallbiznis/tillpoint/internal/sale/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type productTestEnv struct {
	db    *gorm.DB
	svc   domain.Service
	clock *clock.FakeClock
	node  *snowflake.Node
}

func newProductTestEnv(t *testing.T) *productTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Product{}, &saledomain.Sale{}, &saledomain.SaleItem{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	logger := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    db,
		Log:   logger,
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
		Bus:   events.NewBus(logger),
		Holder: config.NewStaticPOSConfigHolder(config.POSConfig{
			TaxRate:           0.05,
			Currency:          "USD",
			InvoicePrefix:     "INV",
			LowStockThreshold: 5,
		}),
	})

	return &productTestEnv{db: db, svc: svc, clock: fake, node: node}
}

func (e *productTestEnv) create(t *testing.T, sku, price string, stock int64) domain.Product {
	t.Helper()
	p, err := e.svc.Create(context.Background(), domain.CreateProductRequest{
		SKU:   sku,
		Name:  "Product " + sku,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func TestCreateProduct(t *testing.T) {
	env := newProductTestEnv(t)

	p, err := env.svc.Create(context.Background(), domain.CreateProductRequest{
		SKU:   " SKU-A ",
		Name:  " Americano ",
		Price: decimal.RequireFromString("10.00"),
		Stock: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "SKU-A", p.SKU)
	assert.Equal(t, "Americano", p.Name)
	assert.NotZero(t, p.ID)
}

func TestCreateProductValidation(t *testing.T) {
	env := newProductTestEnv(t)

	_, err := env.svc.Create(context.Background(), domain.CreateProductRequest{Name: "X", Price: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrInvalidSKU)

	_, err = env.svc.Create(context.Background(), domain.CreateProductRequest{SKU: "A", Price: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = env.svc.Create(context.Background(), domain.CreateProductRequest{
		SKU: "A", Name: "X", Price: decimal.RequireFromString("-1"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = env.svc.Create(context.Background(), domain.CreateProductRequest{
		SKU: "A", Name: "X", Price: decimal.Zero, Stock: -1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStock)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	env := newProductTestEnv(t)
	env.create(t, "SKU-A", "10.00", 10)

	_, err := env.svc.Create(context.Background(), domain.CreateProductRequest{
		SKU:   "SKU-A",
		Name:  "Another",
		Price: decimal.RequireFromString("2.00"),
	})
	assert.ErrorIs(t, err, domain.ErrSKUExists)
}

func TestUpdateProductAppliesOnlyChangedFields(t *testing.T) {
	env := newProductTestEnv(t)
	created := env.create(t, "SKU-A", "10.00", 10)

	env.clock.Advance(time.Hour)
	newName := "Renamed"
	updated, err := env.svc.Update(context.Background(), domain.UpdateProductRequest{
		ID:   created.ID.String(),
		Name: &newName,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.True(t, updated.Price.Equal(created.Price))
	assert.Equal(t, created.Stock, updated.Stock)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	// Same payload again: nothing changed, row untouched.
	env.clock.Advance(time.Hour)
	again, err := env.svc.Update(context.Background(), domain.UpdateProductRequest{
		ID:   created.ID.String(),
		Name: &newName,
	})
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.Equal(updated.UpdatedAt))
}

func TestDeleteProductRefusedWhileReferenced(t *testing.T) {
	env := newProductTestEnv(t)
	created := env.create(t, "SKU-A", "10.00", 10)

	sale := saledomain.Sale{
		ID:            env.node.Generate(),
		InvoiceNumber: "INV-1",
		PaymentMethod: "cash",
		OccurredAt:    env.clock.Now(),
		CreatedAt:     env.clock.Now(),
		UpdatedAt:     env.clock.Now(),
	}
	require.NoError(t, env.db.Create(&sale).Error)
	require.NoError(t, env.db.Create(&saledomain.SaleItem{
		ID:        env.node.Generate(),
		SaleID:    sale.ID,
		ProductID: created.ID,
		Quantity:  1,
		CreatedAt: env.clock.Now(),
		UpdatedAt: env.clock.Now(),
	}).Error)

	err := env.svc.Delete(context.Background(), created.ID.String())
	assert.ErrorIs(t, err, domain.ErrProductInUse)

	// Still listed.
	_, err = env.svc.GetByID(context.Background(), created.ID.String())
	assert.NoError(t, err)
}

func TestDeleteProduct(t *testing.T) {
	env := newProductTestEnv(t)
	created := env.create(t, "SKU-A", "10.00", 10)

	require.NoError(t, env.svc.Delete(context.Background(), created.ID.String()))

	_, err := env.svc.GetByID(context.Background(), created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = env.svc.Delete(context.Background(), created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLowStockUsesThresholdAndOrdersAscending(t *testing.T) {
	env := newProductTestEnv(t)
	env.create(t, "SKU-HIGH", "10.00", 50)
	low := env.create(t, "SKU-LOW", "10.00", 2)
	edge := env.create(t, "SKU-EDGE", "10.00", 5)

	items, err := env.svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2, "threshold is inclusive")
	assert.Equal(t, low.ID, items[0].ID, "lowest stock first")
	assert.Equal(t, edge.ID, items[1].ID)
}
