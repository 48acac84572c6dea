package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	customerdomain "github.com/smallbiznis/tillpoint/internal/customer/domain"
)

// SaleItemInput is one desired line on a sale as submitted by the
// register. ID is the persisted line identity; it is empty for lines
// that have never been written.
type SaleItemInput struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// SaleHeaderInput carries the header fields shared by create and update.
type SaleHeaderInput struct {
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	CustomerEmail string     `json:"customer_email"`
	PaymentMethod string     `json:"payment_method"`
	OccurredAt    *time.Time `json:"occurred_at"`
}

type CreateSaleRequest struct {
	SaleHeaderInput
	Items []SaleItemInput `json:"items"`
}

type UpdateSaleRequest struct {
	SaleID string `json:"-"`
	SaleHeaderInput
	Items []SaleItemInput `json:"items"`
}

type ListSaleRequest struct {
	CustomerID    string
	InvoiceNumber string
}

// SaleResponse is a sale with its line items and resolved customer.
type SaleResponse struct {
	Sale
	Customer customerdomain.Customer `json:"customer"`
	Items    []SaleItemDetail        `json:"items"`
}

type Service interface {
	// CreateSale resolves the buyer, persists the header with computed
	// totals, writes every line item and decrements stock, all or
	// nothing.
	CreateSale(ctx context.Context, req CreateSaleRequest) (SaleResponse, error)

	// UpdateSale re-resolves the buyer, rewrites the header (totals
	// recomputed from the desired items), and reconciles the persisted
	// line items against the desired set, adjusting stock by exactly the
	// net quantity change per product.
	UpdateSale(ctx context.Context, req UpdateSaleRequest) (SaleResponse, error)

	GetSaleByInvoiceNumber(ctx context.Context, invoiceNumber string) (SaleResponse, error)
	List(ctx context.Context, req ListSaleRequest) ([]Sale, error)
}

var (
	ErrEmptyCart             = errors.New("empty_cart")
	ErrInvalidQuantity       = errors.New("invalid_quantity")
	ErrInvalidUnitPrice      = errors.New("invalid_unit_price")
	ErrInvalidPaymentMethod  = errors.New("invalid_payment_method")
	ErrInvalidProductID      = errors.New("invalid_product_id")
	ErrDuplicateItemID       = errors.New("duplicate_item_id")
	ErrInvalidID             = errors.New("invalid_id")
	ErrNotFound              = errors.New("not_found")
	ErrInvoiceNumberConflict = errors.New("invoice_number_conflict")
)
