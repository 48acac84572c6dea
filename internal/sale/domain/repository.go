package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertSale(ctx context.Context, db *gorm.DB, sale *Sale) error
	UpdateSaleFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	FindSaleByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Sale, error)
	FindSaleByInvoiceNumber(ctx context.Context, db *gorm.DB, invoiceNumber string) (*Sale, error)
	ListSales(ctx context.Context, db *gorm.DB, filter ListSaleFilter) ([]Sale, error)

	InsertItem(ctx context.Context, db *gorm.DB, item *SaleItem) error
	UpdateItemFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	DeleteItem(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindItemsBySaleID(ctx context.Context, db *gorm.DB, saleID snowflake.ID) ([]SaleItem, error)
	FindItemDetailsBySaleID(ctx context.Context, db *gorm.DB, saleID snowflake.ID) ([]SaleItemDetail, error)
}

type ListSaleFilter struct {
	CustomerID    snowflake.ID
	InvoiceNumber string // substring match
}
