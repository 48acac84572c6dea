package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tillpoint/internal/clock"
	"github.com/smallbiznis/tillpoint/internal/config"
	"github.com/smallbiznis/tillpoint/internal/events"
	"github.com/smallbiznis/tillpoint/internal/product/domain"
	"github.com/smallbiznis/tillpoint/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Bus    *events.Bus
	Holder *config.POSConfigHolder
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   domain.Repository
	bus    *events.Bus
	holder *config.POSConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("product.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		bus:    p.Bus,
		holder: p.Holder,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		return domain.Product{}, domain.ErrInvalidSKU
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	if req.Price.IsNegative() {
		return domain.Product{}, domain.ErrInvalidPrice
	}
	if req.Stock < 0 {
		return domain.Product{}, domain.ErrInvalidStock
	}

	now := s.clock.Now()
	product := domain.Product{
		ID:              s.genID.Generate(),
		SKU:             sku,
		Name:            name,
		ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
		Price:           req.Price,
		Stock:           req.Stock,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Product{}, domain.ErrSKUExists
		}
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}

	s.bus.Publish(events.TopicProductsChanged)
	return product, nil
}

func (s *Service) List(ctx context.Context, req domain.ListProductRequest) ([]domain.Product, error) {
	return s.repo.List(ctx, s.db, domain.ListProductFilter{
		Name: strings.TrimSpace(req.Name),
		SKU:  strings.TrimSpace(req.SKU),
	})
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Product, error) {
	parsed, err := s.parseID(id)
	if err != nil {
		return domain.Product{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Product{}, err
	}
	if item == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateProductRequest) (domain.Product, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, err
	}
	if existing == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, domain.ErrInvalidName
		}
		if name != existing.Name {
			fields["name"] = name
		}
	}
	if req.ReferenceNumber != nil {
		if ref := strings.TrimSpace(*req.ReferenceNumber); ref != existing.ReferenceNumber {
			fields["reference_number"] = ref
		}
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return domain.Product{}, domain.ErrInvalidPrice
		}
		if !req.Price.Equal(existing.Price) {
			fields["price"] = *req.Price
		}
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, domain.ErrInvalidStock
		}
		if *req.Stock != existing.Stock {
			fields["stock"] = *req.Stock
		}
	}
	if len(fields) == 0 {
		return *existing, nil
	}
	fields["updated_at"] = s.clock.Now()

	if err := s.repo.UpdateFields(ctx, s.db, id, fields); err != nil {
		return domain.Product{}, fmt.Errorf("update product %d: %w", id, err)
	}

	updated, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, err
	}
	if updated == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	s.bus.Publish(events.TopicProductsChanged)
	return *updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	parsed, err := s.parseID(id)
	if err != nil {
		return err
	}

	existing, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}

	refs, err := s.repo.CountSaleItemRefs(ctx, s.db, parsed)
	if err != nil {
		return fmt.Errorf("count sale item refs: %w", err)
	}
	if refs > 0 {
		return domain.ErrProductInUse
	}

	if err := s.repo.Delete(ctx, s.db, parsed); err != nil {
		return fmt.Errorf("delete product %d: %w", parsed, err)
	}

	s.bus.Publish(events.TopicProductsChanged)
	return nil
}

func (s *Service) LowStock(ctx context.Context) ([]domain.Product, error) {
	threshold := s.holder.Get().LowStockThreshold
	return s.repo.List(ctx, s.db, domain.ListProductFilter{
		MaxStock:     &threshold,
		OrderByStock: true,
	})
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
