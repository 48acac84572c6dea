package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tillpoint/internal/clock"
	"github.com/smallbiznis/tillpoint/internal/config"
	customerdomain "github.com/smallbiznis/tillpoint/internal/customer/domain"
	"github.com/smallbiznis/tillpoint/internal/events"
	obsmetrics "github.com/smallbiznis/tillpoint/internal/observability/metrics"
	productdomain "github.com/smallbiznis/tillpoint/internal/product/domain"
	"github.com/smallbiznis/tillpoint/internal/sale/domain"
	"github.com/smallbiznis/tillpoint/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxInvoiceAttempts bounds invoice number regeneration on collision.
const maxInvoiceAttempts = 3

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	ProductRepo productdomain.Repository
	CustomerSvc customerdomain.Service
	Bus         *events.Bus
	Holder      *config.POSConfigHolder
	Metrics     *obsmetrics.Metrics
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	productRepo productdomain.Repository
	customerSvc customerdomain.Service
	bus         *events.Bus
	holder      *config.POSConfigHolder
	metrics     *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("sale.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		productRepo: p.ProductRepo,
		customerSvc: p.CustomerSvc,
		bus:         p.Bus,
		holder:      p.Holder,
		metrics:     p.Metrics,
	}
}

func (s *Service) CreateSale(ctx context.Context, req domain.CreateSaleRequest) (domain.SaleResponse, error) {
	items, err := s.parseItems(req.Items)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		return domain.SaleResponse{}, domain.ErrInvalidPaymentMethod
	}

	customer, err := s.customerSvc.Resolve(ctx, customerdomain.ResolveRequest{
		Name:  req.CustomerName,
		Phone: req.CustomerPhone,
		Email: req.CustomerEmail,
	})
	if err != nil {
		return domain.SaleResponse{}, err
	}

	subtotal, tax, total := s.computeTotals(items)
	now := s.clock.Now()
	occurredAt := now
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}

	var sale domain.Sale
	for attempt := 0; attempt < maxInvoiceAttempts; attempt++ {
		sale = domain.Sale{
			ID:             s.genID.Generate(),
			InvoiceNumber:  s.nextInvoiceNumber(attempt),
			CustomerID:     customer.ID,
			PaymentMethod:  paymentMethod,
			SubtotalAmount: subtotal,
			TaxAmount:      tax,
			TotalAmount:    total,
			OccurredAt:     occurredAt,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		// Header, line items and stock decrements commit together or
		// not at all.
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.repo.InsertSale(ctx, tx, &sale); err != nil {
				return err
			}
			for _, item := range items {
				row := domain.SaleItem{
					ID:         s.genID.Generate(),
					SaleID:     sale.ID,
					ProductID:  item.ProductID,
					Quantity:   item.Quantity,
					UnitPrice:  item.UnitPrice,
					TotalPrice: item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)),
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				if err := s.repo.InsertItem(ctx, tx, &row); err != nil {
					return fmt.Errorf("insert sale item: %w", err)
				}
				if err := s.applyStockDelta(ctx, tx, item.ProductID, -item.Quantity); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			break
		}
		if db.IsDuplicateKeyErr(err) {
			s.metrics.InvoiceNumberConflicts.Inc()
			s.log.Warn("invoice number collision, regenerating",
				zap.String("invoice_number", sale.InvoiceNumber),
				zap.Int("attempt", attempt+1),
			)
			err = domain.ErrInvoiceNumberConflict
			continue
		}
		return domain.SaleResponse{}, err
	}
	if err != nil {
		return domain.SaleResponse{}, err
	}

	s.metrics.SalesCreated.Inc()
	s.log.Info("sale created",
		zap.String("invoice_number", sale.InvoiceNumber),
		zap.Int64("customer_id", customer.ID.Int64()),
		zap.String("total_amount", sale.TotalAmount.String()),
		zap.Int("items", len(items)),
	)
	s.bus.Publish(events.TopicSalesChanged)
	s.bus.Publish(events.TopicProductsChanged)

	return s.buildResponse(ctx, &sale)
}

func (s *Service) UpdateSale(ctx context.Context, req domain.UpdateSaleRequest) (domain.SaleResponse, error) {
	saleID, err := snowflake.ParseString(strings.TrimSpace(req.SaleID))
	if err != nil || saleID == 0 {
		return domain.SaleResponse{}, domain.ErrInvalidID
	}

	items, err := s.parseItems(req.Items)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		return domain.SaleResponse{}, domain.ErrInvalidPaymentMethod
	}

	customer, err := s.customerSvc.Resolve(ctx, customerdomain.ResolveRequest{
		Name:  req.CustomerName,
		Phone: req.CustomerPhone,
		Email: req.CustomerEmail,
	})
	if err != nil {
		return domain.SaleResponse{}, err
	}

	subtotal, tax, total := s.computeTotals(items)
	now := s.clock.Now()

	var sale *domain.Sale
	err = s.db.Transaction(func(tx *gorm.DB) error {
		sale, err = s.repo.FindSaleByID(ctx, tx, saleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return domain.ErrNotFound
		}

		originals, err := s.repo.FindItemsBySaleID(ctx, tx, saleID)
		if err != nil {
			return err
		}

		fields := map[string]any{
			"customer_id":     customer.ID,
			"payment_method":  paymentMethod,
			"subtotal_amount": subtotal,
			"tax_amount":      tax,
			"total_amount":    total,
			"updated_at":      now,
		}
		if req.OccurredAt != nil {
			fields["occurred_at"] = req.OccurredAt.UTC()
		}
		if err := s.repo.UpdateSaleFields(ctx, tx, saleID, fields); err != nil {
			return fmt.Errorf("update sale header: %w", err)
		}

		plan := reconcile(saleID, items, originals, s.genID.Generate, now)
		return s.applyPlan(ctx, tx, plan, now)
	})
	if err != nil {
		return domain.SaleResponse{}, err
	}

	s.metrics.SalesUpdated.Inc()
	s.log.Info("sale updated",
		zap.String("invoice_number", sale.InvoiceNumber),
		zap.Int64("sale_id", saleID.Int64()),
		zap.String("total_amount", total.String()),
	)
	s.bus.Publish(events.TopicSalesChanged)
	s.bus.Publish(events.TopicProductsChanged)

	updated, err := s.repo.FindSaleByID(ctx, s.db, saleID)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	return s.buildResponse(ctx, updated)
}

// applyPlan executes a reconciliation plan inside tx. Each line's row
// operation and its stock adjustment go together; deletes run first so
// restored stock is available before new lines consume it.
func (s *Service) applyPlan(ctx context.Context, tx *gorm.DB, plan reconciliationPlan, now time.Time) error {
	for _, item := range plan.deletes {
		if err := s.repo.DeleteItem(ctx, tx, item.ID); err != nil {
			return fmt.Errorf("delete sale item %d: %w", item.ID, err)
		}
		if err := s.applyStockDelta(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	for _, upd := range plan.updates {
		fields := map[string]any{
			"quantity":    upd.quantity,
			"unit_price":  upd.unitPrice,
			"total_price": upd.unitPrice.Mul(decimal.NewFromInt(upd.quantity)),
			"updated_at":  now,
		}
		if err := s.repo.UpdateItemFields(ctx, tx, upd.original.ID, fields); err != nil {
			return fmt.Errorf("update sale item %d: %w", upd.original.ID, err)
		}
		if err := s.applyStockDelta(ctx, tx, upd.original.ProductID, upd.stockDelta); err != nil {
			return err
		}
	}

	for _, item := range plan.inserts {
		row := item
		if err := s.repo.InsertItem(ctx, tx, &row); err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
		if err := s.applyStockDelta(ctx, tx, item.ProductID, -item.Quantity); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) applyStockDelta(ctx context.Context, tx *gorm.DB, productID snowflake.ID, delta int64) error {
	if delta == 0 {
		return nil
	}
	if err := s.productRepo.AdjustStock(ctx, tx, productID, delta); err != nil {
		if errors.Is(err, productdomain.ErrNotFound) {
			return fmt.Errorf("product %d: %w", productID, domain.ErrInvalidProductID)
		}
		return fmt.Errorf("adjust stock for product %d by %d: %w", productID, delta, err)
	}
	s.metrics.RecordStockDelta(delta)
	return nil
}

func (s *Service) GetSaleByInvoiceNumber(ctx context.Context, invoiceNumber string) (domain.SaleResponse, error) {
	trimmed := strings.TrimSpace(invoiceNumber)
	if trimmed == "" {
		return domain.SaleResponse{}, domain.ErrNotFound
	}

	sale, err := s.repo.FindSaleByInvoiceNumber(ctx, s.db, trimmed)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	if sale == nil {
		return domain.SaleResponse{}, domain.ErrNotFound
	}
	return s.buildResponse(ctx, sale)
}

func (s *Service) List(ctx context.Context, req domain.ListSaleRequest) ([]domain.Sale, error) {
	filter := domain.ListSaleFilter{
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
	}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidID
		}
		filter.CustomerID = id
	}
	return s.repo.ListSales(ctx, s.db, filter)
}

func (s *Service) buildResponse(ctx context.Context, sale *domain.Sale) (domain.SaleResponse, error) {
	items, err := s.repo.FindItemDetailsBySaleID(ctx, s.db, sale.ID)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	customer, err := s.customerSvc.GetByID(ctx, customerdomain.GetCustomerRequest{ID: sale.CustomerID.String()})
	if err != nil && !errors.Is(err, customerdomain.ErrNotFound) {
		return domain.SaleResponse{}, err
	}

	return domain.SaleResponse{
		Sale:     *sale,
		Customer: customer,
		Items:    items,
	}, nil
}

func (s *Service) parseItems(inputs []domain.SaleItemInput) ([]parsedItem, error) {
	if len(inputs) == 0 {
		return nil, domain.ErrEmptyCart
	}

	items := make([]parsedItem, 0, len(inputs))
	seen := make(map[snowflake.ID]bool, len(inputs))
	for _, in := range inputs {
		var id snowflake.ID
		if raw := strings.TrimSpace(in.ID); raw != "" {
			parsed, err := snowflake.ParseString(raw)
			if err != nil {
				return nil, domain.ErrInvalidID
			}
			// The same persisted line twice would reconcile into two
			// updates against one row, drifting stock and the header
			// totals away from the stored line items.
			if seen[parsed] {
				return nil, domain.ErrDuplicateItemID
			}
			seen[parsed] = true
			id = parsed
		}

		productID, err := snowflake.ParseString(strings.TrimSpace(in.ProductID))
		if err != nil || productID == 0 {
			return nil, domain.ErrInvalidProductID
		}
		if in.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		if in.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidUnitPrice
		}

		items = append(items, parsedItem{
			ID:        id,
			ProductID: productID,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
		})
	}
	return items, nil
}

func (s *Service) computeTotals(items []parsedItem) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
	}
	taxRate := s.holder.Get().TaxRateDecimal()
	tax = subtotal.Mul(taxRate).Round(2)
	total = subtotal.Add(tax)
	return subtotal, tax, total
}

// nextInvoiceNumber derives an invoice number from the current time.
// Uniqueness is enforced by the index on sales.invoice_number, not by
// construction; retries append a generated suffix.
func (s *Service) nextInvoiceNumber(attempt int) string {
	prefix := s.holder.Get().InvoicePrefix
	millis := s.clock.Now().UnixMilli()
	if attempt == 0 {
		return fmt.Sprintf("%s-%d", prefix, millis)
	}
	return fmt.Sprintf("%s-%d-%s", prefix, millis, s.genID.Generate().Base36())
}
