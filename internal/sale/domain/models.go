package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Sale is the header row for one checkout transaction. TotalAmount is
// always SubtotalAmount + TaxAmount after a successful write; the three
// are recomputed together from the line items on every create and edit.
type Sale struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceNumber  string          `gorm:"type:text;not null;uniqueIndex:ux_sales_invoice_number" json:"invoice_number"`
	CustomerID     snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	PaymentMethod  string          `gorm:"type:text;not null" json:"payment_method"`
	SubtotalAmount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"subtotal_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"tax_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	OccurredAt     time.Time       `gorm:"not null;index" json:"occurred_at"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Sale) TableName() string { return "sales" }

// SaleItem is one product line on a sale. UnitPrice is a snapshot taken
// when the line entered the sale; later catalog price changes never
// touch it.
type SaleItem struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	SaleID     snowflake.ID    `gorm:"not null;index" json:"sale_id"`
	ProductID  snowflake.ID    `gorm:"not null;index" json:"product_id"`
	Quantity   int64           `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_price"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SaleItem) TableName() string { return "sale_items" }

// SaleItemDetail is a SaleItem joined with the catalog fields the edit
// screen needs alongside it.
type SaleItemDetail struct {
	SaleItem
	ProductName  string          `json:"product_name"`
	ProductSKU   string          `gorm:"column:product_sku" json:"product_sku"`
	ProductPrice decimal.Decimal `gorm:"type:decimal(20,4)" json:"product_price"`
	ProductStock int64           `json:"product_stock"`
}
