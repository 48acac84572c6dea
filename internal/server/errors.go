package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/tillpoint/internal/customer/domain"
	productdomain "github.com/smallbiznis/tillpoint/internal/product/domain"
	saledomain "github.com/smallbiznis/tillpoint/internal/sale/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware turns domain sentinel errors collected on the
// gin context into a single JSON error response.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

var errInvalidRequest = errors.New("invalid_request")

var validationErrs = []error{
	errInvalidRequest,
	customerdomain.ErrInvalidName,
	customerdomain.ErrInvalidPhone,
	customerdomain.ErrInvalidID,
	productdomain.ErrInvalidSKU,
	productdomain.ErrInvalidName,
	productdomain.ErrInvalidPrice,
	productdomain.ErrInvalidStock,
	productdomain.ErrInvalidID,
	saledomain.ErrEmptyCart,
	saledomain.ErrInvalidQuantity,
	saledomain.ErrInvalidUnitPrice,
	saledomain.ErrInvalidPaymentMethod,
	saledomain.ErrInvalidProductID,
	saledomain.ErrDuplicateItemID,
	saledomain.ErrInvalidID,
}

var conflictErrs = []error{
	productdomain.ErrSKUExists,
	productdomain.ErrProductInUse,
	saledomain.ErrInvoiceNumberConflict,
}

var notFoundErrs = []error{
	customerdomain.ErrNotFound,
	productdomain.ErrNotFound,
	saledomain.ErrNotFound,
}

func mapError(err error) (int, errorPayload) {
	for _, sentinel := range validationErrs {
		if errors.Is(err, sentinel) {
			return http.StatusBadRequest, errorPayload{
				Type:    "validation_error",
				Code:    sentinel.Error(),
				Message: "validation error",
			}
		}
	}

	for _, sentinel := range notFoundErrs {
		if errors.Is(err, sentinel) {
			return http.StatusNotFound, errorPayload{
				Type:    "not_found",
				Code:    sentinel.Error(),
				Message: "resource not found",
			}
		}
	}

	for _, sentinel := range conflictErrs {
		if errors.Is(err, sentinel) {
			return http.StatusConflict, errorPayload{
				Type:    "conflict",
				Code:    sentinel.Error(),
				Message: "conflicting write",
			}
		}
	}

	if errors.Is(err, productdomain.ErrInsufficientStock) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "insufficient_stock",
			Code:    productdomain.ErrInsufficientStock.Error(),
			Message: "not enough stock on hand",
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Code:    "internal_error",
		Message: "internal server error",
	}
}
