package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	List(ctx context.Context, db *gorm.DB, filter ListProductFilter) ([]Product, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// AdjustStock applies a signed delta to a product's on-hand count in
	// one atomic statement. Negative deltas are guarded so stock never
	// goes below zero; a guard miss returns ErrInsufficientStock.
	AdjustStock(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int64) error

	// CountSaleItemRefs reports how many persisted sale line items still
	// reference the product. Deletion is refused while any remain.
	CountSaleItemRefs(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
}

type ListProductFilter struct {
	Name         string
	SKU          string
	MaxStock     *int64
	OrderByStock bool
}
