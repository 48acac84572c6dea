package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tillpoint/internal/sale/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertSale(ctx context.Context, db *gorm.DB, sale *domain.Sale) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sales (id, invoice_number, customer_id, payment_method, subtotal_amount, tax_amount, total_amount, occurred_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID,
		sale.InvoiceNumber,
		sale.CustomerID,
		sale.PaymentMethod,
		sale.SubtotalAmount,
		sale.TaxAmount,
		sale.TotalAmount,
		sale.OccurredAt,
		sale.CreatedAt,
		sale.UpdatedAt,
	).Error
}

func (r *repo) UpdateSaleFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Sale{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) FindSaleByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Sale, error) {
	var sale domain.Sale
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoice_number, customer_id, payment_method, subtotal_amount, tax_amount, total_amount, occurred_at, created_at, updated_at
		 FROM sales WHERE id = ?`,
		id,
	).Scan(&sale).Error
	if err != nil {
		return nil, err
	}
	if sale.ID == 0 {
		return nil, nil
	}
	return &sale, nil
}

func (r *repo) FindSaleByInvoiceNumber(ctx context.Context, db *gorm.DB, invoiceNumber string) (*domain.Sale, error) {
	var sale domain.Sale
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoice_number, customer_id, payment_method, subtotal_amount, tax_amount, total_amount, occurred_at, created_at, updated_at
		 FROM sales WHERE invoice_number = ?`,
		invoiceNumber,
	).Scan(&sale).Error
	if err != nil {
		return nil, err
	}
	if sale.ID == 0 {
		return nil, nil
	}
	return &sale, nil
}

func (r *repo) ListSales(ctx context.Context, db *gorm.DB, filter domain.ListSaleFilter) ([]domain.Sale, error) {
	var sales []domain.Sale
	stmt := db.WithContext(ctx).Model(&domain.Sale{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.InvoiceNumber != "" {
		stmt = stmt.Where("invoice_number LIKE ?", "%"+filter.InvoiceNumber+"%")
	}
	err := stmt.Order("occurred_at desc, id desc").Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.SaleItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, total_price, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.SaleID,
		item.ProductID,
		item.Quantity,
		item.UnitPrice,
		item.TotalPrice,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) UpdateItemFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.SaleItem{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) DeleteItem(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM sale_items WHERE id = ?`, id).Error
}

func (r *repo) FindItemsBySaleID(ctx context.Context, db *gorm.DB, saleID snowflake.ID) ([]domain.SaleItem, error) {
	var items []domain.SaleItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, sale_id, product_id, quantity, unit_price, total_price, created_at, updated_at
		 FROM sale_items WHERE sale_id = ? ORDER BY id ASC`,
		saleID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindItemDetailsBySaleID(ctx context.Context, db *gorm.DB, saleID snowflake.ID) ([]domain.SaleItemDetail, error) {
	var items []domain.SaleItemDetail
	err := db.WithContext(ctx).Raw(
		`SELECT si.id, si.sale_id, si.product_id, si.quantity, si.unit_price, si.total_price, si.created_at, si.updated_at,
		        p.name AS product_name, p.sku AS product_sku, p.price AS product_price, p.stock AS product_stock
		 FROM sale_items si
		 JOIN products p ON p.id = si.product_id
		 WHERE si.sale_id = ? ORDER BY si.id ASC`,
		saleID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
