package service_test

import (
	"context"
	"sync"
	"testing"

	"warehouse-service/internal/migrate"
	"warehouse-service/internal/models"
	"warehouse-service/internal/repository"
	"warehouse-service/internal/service"
	"warehouse-service/pkg/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MockEventBus records published events; a non-nil Err is returned from every call.
type MockEventBus struct {
	mu sync.Mutex

	Created       []service.OrderCreatedEvent
	Fulfilled     []service.OrderFulfilledEvent
	StatusChanged []service.OrderStatusChangedEvent
	Adjusted      []service.StockAdjustedEvent
	LowStock      []service.LowStockEvent
	Err           error
}

func (m *MockEventBus) PublishOrderCreated(_ context.Context, e service.OrderCreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, e)
	return m.Err
}

func (m *MockEventBus) PublishOrderFulfilled(_ context.Context, e service.OrderFulfilledEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fulfilled = append(m.Fulfilled, e)
	return m.Err
}

func (m *MockEventBus) PublishOrderStatusChanged(_ context.Context, e service.OrderStatusChangedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusChanged = append(m.StatusChanged, e)
	return m.Err
}

func (m *MockEventBus) PublishStockAdjusted(_ context.Context, e service.StockAdjustedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Adjusted = append(m.Adjusted, e)
	return m.Err
}

func (m *MockEventBus) PublishLowStock(_ context.Context, e service.LowStockEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LowStock = append(m.LowStock, e)
	return m.Err
}

// MockLowStockCache is a func-field fake; unset funcs behave like an empty cache whose
// generation is the number of invalidations seen so far.
type MockLowStockCache struct {
	GetFunc        func(ctx context.Context) ([]models.Inventory, bool, error)
	GenerationFunc func(ctx context.Context) (int64, error)
	SetFunc        func(ctx context.Context, items []models.Inventory, gen int64) (bool, error)
	InvalidateFunc func(ctx context.Context) error

	mu          sync.Mutex
	invalidated int
}

func (m *MockLowStockCache) GetLowStock(ctx context.Context) ([]models.Inventory, bool, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	return nil, false, nil
}

func (m *MockLowStockCache) LowStockGeneration(ctx context.Context) (int64, error) {
	if m.GenerationFunc != nil {
		return m.GenerationFunc(ctx)
	}
	return int64(m.Invalidations()), nil
}

func (m *MockLowStockCache) SetLowStock(ctx context.Context, items []models.Inventory, gen int64) (bool, error) {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, items, gen)
	}
	return true, nil
}

func (m *MockLowStockCache) InvalidateLowStock(ctx context.Context) error {
	m.mu.Lock()
	m.invalidated++
	m.mu.Unlock()
	if m.InvalidateFunc != nil {
		return m.InvalidateFunc(ctx)
	}
	return nil
}

func (m *MockLowStockCache) Invalidations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invalidated
}

type env struct {
	db        *gorm.DB
	repo      *repository.Repository
	events    *MockEventBus
	cache     *MockLowStockCache
	orders    service.OrderService
	inventory service.InventoryService
	supplier  *models.Supplier
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestSQLite(t)
	require.NoError(t, migrate.MigrateWarehouseDB(context.Background(), db, zap.NewNop(), migrate.DefaultMigrateOptions()))

	repo := repository.New(db)
	events := &MockEventBus{}
	cache := &MockLowStockCache{}

	e := &env{
		db:        db,
		repo:      repo,
		events:    events,
		cache:     cache,
		orders:    service.NewOrderService(repo, cache, events, zap.NewNop(), "main"),
		inventory: service.NewInventoryService(repo, cache, events, zap.NewNop(), "main"),
	}

	e.supplier = &models.Supplier{Name: "acme"}
	require.NoError(t, repo.Suppliers.Create(context.Background(), e.supplier))
	return e
}

func (e *env) product(t *testing.T, sku string) *models.Product {
	t.Helper()
	p := &models.Product{Name: "product " + sku, SKU: sku, Price: decimal.NewFromInt(1)}
	require.NoError(t, e.repo.Products.Create(context.Background(), p))
	return p
}

func (e *env) stock(t *testing.T, productID uuid.UUID, qty, reorder int) *models.Inventory {
	t.Helper()
	inv := &models.Inventory{ProductID: productID, Quantity: qty, ReorderLevel: reorder, Location: "main"}
	require.NoError(t, e.repo.Inventories.Create(context.Background(), inv))
	return inv
}

func (e *env) quantity(t *testing.T, id uuid.UUID) int {
	t.Helper()
	inv, err := e.repo.Inventories.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv.Quantity
}

func (e *env) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

func adminCtx() context.Context {
	ctx := service.WithUserID(context.Background(), uuid.New())
	return service.WithCapabilities(ctx, service.CapabilitiesForRole(service.RoleAdmin))
}

func roleCtx(r service.Role) context.Context {
	return service.WithCapabilities(context.Background(), service.CapabilitiesForRole(r))
}

func statusPtr(s models.OrderStatus) *models.OrderStatus { return &s }

func strPtr(s string) *string { return &s }
