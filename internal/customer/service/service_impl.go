package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tillpoint/internal/clock"
	"github.com/smallbiznis/tillpoint/internal/customer/domain"
	"github.com/smallbiznis/tillpoint/internal/events"
	"github.com/smallbiznis/tillpoint/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Bus   *events.Bus
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	bus   *events.Bus
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		bus:   p.Bus,
	}
}

func (s *Service) Resolve(ctx context.Context, req domain.ResolveRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	phone, err := domain.NormalizePhone(req.Phone)
	if err != nil {
		return domain.Customer{}, err
	}

	email := strings.TrimSpace(req.Email)

	existing, err := s.repo.FindByPhone(ctx, s.db, phone)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("find customer by phone: %w", err)
	}
	if existing != nil {
		return s.applyDiff(ctx, existing, name, email)
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		Name:      name,
		Phone:     phone,
		Email:     email,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		// Two first-time sales for the same phone can race past the
		// lookup above. The unique index on phone is the real guard;
		// losing the insert just means the row already exists.
		if db.IsDuplicateKeyErr(err) {
			winner, findErr := s.repo.FindByPhone(ctx, s.db, phone)
			if findErr != nil {
				return domain.Customer{}, fmt.Errorf("re-read customer after conflict: %w", findErr)
			}
			if winner == nil {
				return domain.Customer{}, fmt.Errorf("customer conflict on %q but row not found", phone)
			}
			return s.applyDiff(ctx, winner, name, email)
		}
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}

	s.bus.Publish(events.TopicCustomersChanged)
	return customer, nil
}

// applyDiff updates only the columns that actually changed. A no-op
// revisit must not touch the row at all, or updated_at would churn on
// every sale.
func (s *Service) applyDiff(ctx context.Context, existing *domain.Customer, name, email string) (domain.Customer, error) {
	fields := map[string]any{}
	if name != existing.Name {
		fields["name"] = name
	}
	if email != "" && email != existing.Email {
		fields["email"] = email
	}
	if len(fields) == 0 {
		return *existing, nil
	}

	now := s.clock.Now()
	fields["updated_at"] = now
	if err := s.repo.UpdateFields(ctx, s.db, existing.ID, fields); err != nil {
		return domain.Customer{}, fmt.Errorf("update customer %d: %w", existing.ID, err)
	}

	updated := *existing
	if v, ok := fields["name"]; ok {
		updated.Name = v.(string)
	}
	if v, ok := fields["email"]; ok {
		updated.Email = v.(string)
	}
	updated.UpdatedAt = now

	s.bus.Publish(events.TopicCustomersChanged)
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Customer{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) ([]domain.Customer, error) {
	filter := domain.ListCustomerFilter{
		Name: strings.TrimSpace(req.Name),
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		normalized, err := domain.NormalizePhone(phone)
		if err != nil {
			return nil, err
		}
		filter.Phone = normalized
	}
	return s.repo.List(ctx, s.db, filter)
}
