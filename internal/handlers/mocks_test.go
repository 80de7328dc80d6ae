package handlers_test

import (
	"context"

	"warehouse-service/internal/models"
	"warehouse-service/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, in service.CreateOrderInput) (*models.Order, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) UpdateOrder(ctx context.Context, id uuid.UUID, in service.UpdateOrderInput) (*models.Order, error) {
	args := m.Called(ctx, id, in)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) FulfillOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, f service.ListFilter) ([]models.Order, int64, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]models.Order)
	return list, args.Get(1).(int64), args.Error(2)
}

type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) AdjustStock(ctx context.Context, id uuid.UUID, delta int, reason string) (*models.Inventory, error) {
	args := m.Called(ctx, id, delta, reason)
	inv, _ := args.Get(0).(*models.Inventory)
	return inv, args.Error(1)
}

func (m *MockInventoryService) CheckLowStock(ctx context.Context) ([]models.Inventory, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]models.Inventory)
	return list, args.Error(1)
}

func (m *MockInventoryService) CreateInventory(ctx context.Context, in service.CreateInventoryInput) (*models.Inventory, error) {
	args := m.Called(ctx, in)
	inv, _ := args.Get(0).(*models.Inventory)
	return inv, args.Error(1)
}

func (m *MockInventoryService) GetInventory(ctx context.Context, id uuid.UUID) (*models.Inventory, error) {
	args := m.Called(ctx, id)
	inv, _ := args.Get(0).(*models.Inventory)
	return inv, args.Error(1)
}

func (m *MockInventoryService) ListInventory(ctx context.Context, f service.InventoryFilter) ([]models.Inventory, int64, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]models.Inventory)
	return list, args.Get(1).(int64), args.Error(2)
}

func (m *MockInventoryService) DeleteInventory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}
