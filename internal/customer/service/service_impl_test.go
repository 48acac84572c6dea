package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/tillpoint/internal/clock"
	"github.com/smallbiznis/tillpoint/internal/customer/domain"
	"github.com/smallbiznis/tillpoint/internal/customer/repository"
	"github.com/smallbiznis/tillpoint/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type customerTestEnv struct {
	db    *gorm.DB
	svc   domain.Service
	clock *clock.FakeClock
}

func newCustomerTestEnv(t *testing.T) *customerTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Customer{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	logger := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    db,
		Log:   logger,
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
		Bus:   events.NewBus(logger),
	})

	return &customerTestEnv{db: db, svc: svc, clock: fake}
}

func (e *customerTestEnv) count(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&domain.Customer{}).Count(&n).Error)
	return n
}

func TestResolveCreatesOnFirstSight(t *testing.T) {
	env := newCustomerTestEnv(t)

	customer, err := env.svc.Resolve(context.Background(), domain.ResolveRequest{
		Name:  "  Ana Lima  ",
		Phone: "555-123-4567",
		Email: "ana@example.com",
	})
	require.NoError(t, err)

	assert.NotZero(t, customer.ID)
	assert.Equal(t, "Ana Lima", customer.Name)
	assert.Equal(t, "5551234567", customer.Phone, "phone is stored normalized")
	assert.Equal(t, "ana@example.com", customer.Email)
	assert.Equal(t, int64(1), env.count(t))
}

func TestResolveRevisitIsNoOpWhenUnchanged(t *testing.T) {
	env := newCustomerTestEnv(t)

	first, err := env.svc.Resolve(context.Background(), domain.ResolveRequest{
		Name: "Ana Lima", Phone: "5551234567", Email: "ana@example.com",
	})
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	second, err := env.svc.Resolve(context.Background(), domain.ResolveRequest{
		Name: "Ana Lima", Phone: "5551234567", Email: "ana@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.UpdatedAt.Equal(first.UpdatedAt), "unchanged revisit must not touch the row")
	assert.Equal(t, int64(1), env.count(t))
}

func TestResolveRevisitUpdatesChangedFields(t *testing.T) {
	env := newCustomerTestEnv(t)

	first, err := env.svc.Resolve(context.Background(), domain.ResolveRequest{
		Name: "Ana Lima", Phone: "5551234567", Email: "ana@example.com",
	})
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	second, err := env.svc.Resolve(context.Background(), domain.ResolveRequest{
		Name: "Ana L. Souza", Phone: "5551234567",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ana L. Souza", second.Name)
	assert.Equal(t, "ana@example.com", second.Email, "blank email never clears a stored one")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.Equal(t, int64(1), env.count(t))
}

func TestResolveNormalizationCollapsesFormats(t *testing.T) {
	env := newCustomerTestEnv(t)

	first, err := env.svc.Resolve(context.Background(), domain.ResolveRequest{
		Name: "Ana Lima", Phone: "(555) 123-4567",
	})
	require.NoError(t, err)

	second, err := env.svc.Resolve(context.Background(), domain.ResolveRequest{
		Name: "Ana Lima", Phone: "555.123.4567",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "formatting variants of one number are one customer")
	assert.Equal(t, int64(1), env.count(t))
}

func TestResolveValidation(t *testing.T) {
	env := newCustomerTestEnv(t)

	_, err := env.svc.Resolve(context.Background(), domain.ResolveRequest{Phone: "5551234567"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = env.svc.Resolve(context.Background(), domain.ResolveRequest{Name: "Ana", Phone: "12ab34"})
	assert.ErrorIs(t, err, domain.ErrInvalidPhone)

	_, err = env.svc.Resolve(context.Background(), domain.ResolveRequest{Name: "Ana", Phone: "123"})
	assert.ErrorIs(t, err, domain.ErrInvalidPhone)

	assert.Zero(t, env.count(t))
}

func TestGetByID(t *testing.T) {
	env := newCustomerTestEnv(t)

	created, err := env.svc.Resolve(context.Background(), domain.ResolveRequest{
		Name: "Ana Lima", Phone: "5551234567",
	})
	require.NoError(t, err)

	got, err := env.svc.GetByID(context.Background(), domain.GetCustomerRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = env.svc.GetByID(context.Background(), domain.GetCustomerRequest{ID: "not-a-number"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = env.svc.GetByID(context.Background(), domain.GetCustomerRequest{ID: "999999999999999999"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFiltersByPhone(t *testing.T) {
	env := newCustomerTestEnv(t)

	ana, err := env.svc.Resolve(context.Background(), domain.ResolveRequest{Name: "Ana Lima", Phone: "5551234567"})
	require.NoError(t, err)
	_, err = env.svc.Resolve(context.Background(), domain.ResolveRequest{Name: "Bo Chen", Phone: "5559876543"})
	require.NoError(t, err)

	all, err := env.svc.List(context.Background(), domain.ListCustomerRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// The filter normalizes the same way Resolve does.
	matched, err := env.svc.List(context.Background(), domain.ListCustomerRequest{Phone: "(555) 123-4567"})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, ana.ID, matched[0].ID)
}
