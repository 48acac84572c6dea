package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Product is a catalog row. Stock is the authoritative on-hand count and
// is only ever mutated through Repository.AdjustStock, a single-statement
// atomic delta, so concurrent sales cannot lose updates.
type Product struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	SKU             string          `gorm:"column:sku;type:text;not null;uniqueIndex:ux_products_sku" json:"sku"`
	Name            string          `gorm:"type:text;not null" json:"name"`
	ReferenceNumber string          `gorm:"type:text" json:"reference_number"`
	Price           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"price"`
	Stock           int64           `gorm:"not null;default:0" json:"stock"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Product) TableName() string { return "products" }
