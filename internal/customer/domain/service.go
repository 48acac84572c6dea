package domain

import (
	"context"
	"errors"
)

// ResolveRequest carries the buyer details captured on a sale. Resolve
// maps them onto a stable customer identity keyed by phone.
type ResolveRequest struct {
	Name  string
	Phone string
	Email string
}

type GetCustomerRequest struct {
	ID string
}

type ListCustomerRequest struct {
	Name  string
	Phone string
}

type Service interface {
	// Resolve finds the customer for req.Phone, creating the row on first
	// sight and applying a field-level diff (name, non-empty email) on
	// revisit. At most one insert or one update per call; an unchanged
	// revisit performs zero writes.
	Resolve(ctx context.Context, req ResolveRequest) (Customer, error)
	GetByID(ctx context.Context, req GetCustomerRequest) (Customer, error)
	List(ctx context.Context, req ListCustomerRequest) ([]Customer, error)
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidPhone = errors.New("invalid_phone")
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("not_found")
)
