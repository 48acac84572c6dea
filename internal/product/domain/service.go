package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	ReferenceNumber string          `json:"reference_number"`
	Price           decimal.Decimal `json:"price"`
	Stock           int64           `json:"stock"`
}

type UpdateProductRequest struct {
	ID              string           `json:"-"`
	Name            *string          `json:"name"`
	ReferenceNumber *string          `json:"reference_number"`
	Price           *decimal.Decimal `json:"price"`
	Stock           *int64           `json:"stock"`
}

type ListProductRequest struct {
	Name string
	SKU  string
}

type Service interface {
	Create(ctx context.Context, req CreateProductRequest) (Product, error)
	List(ctx context.Context, req ListProductRequest) ([]Product, error)
	GetByID(ctx context.Context, id string) (Product, error)
	Update(ctx context.Context, req UpdateProductRequest) (Product, error)
	Delete(ctx context.Context, id string) error

	// LowStock lists products at or below the configured threshold,
	// lowest first.
	LowStock(ctx context.Context) ([]Product, error)
}

var (
	ErrInvalidSKU        = errors.New("invalid_sku")
	ErrSKUExists         = errors.New("sku_exists")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrInvalidStock      = errors.New("invalid_stock")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
	ErrInsufficientStock = errors.New("insufficient_stock")
	ErrProductInUse      = errors.New("product_in_use")
)
