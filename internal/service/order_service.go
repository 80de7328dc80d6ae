package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"warehouse-service/internal/models"
	"warehouse-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type orderService struct {
	repo            *repository.Repository
	cache           LowStockCache
	events          EventBus
	log             *zap.Logger
	defaultLocation string
	now             func() time.Time
}

// NewOrderService wires the order engine. cache and events may be nil.
func NewOrderService(repo *repository.Repository, cache LowStockCache, events EventBus, log *zap.Logger, defaultLocation string) OrderService {
	return &orderService{
		repo:            repo,
		cache:           cache,
		events:          events,
		log:             log,
		defaultLocation: defaultLocation,
		now:             time.Now,
	}
}

func (s *orderService) validateCreate(ctx context.Context, in *CreateOrderInput) error {
	verr := &ValidationError{}

	if in.SupplierID == uuid.Nil {
		verr.add("supplier_id", "is required", ErrSupplierNotFound)
	} else {
		ok, err := s.repo.Suppliers.Exists(ctx, in.SupplierID)
		if err != nil {
			return fmt.Errorf("check supplier: %w", err)
		}
		if !ok {
			verr.add("supplier_id", "supplier not found", ErrSupplierNotFound)
		}
	}

	if len(in.Items) == 0 {
		verr.add("items", "must contain at least 1 item", ErrEmptyItems)
	}

	ids := make([]uuid.UUID, 0, len(in.Items))
	for i, it := range in.Items {
		field := "items[" + strconv.Itoa(i) + "]"
		if it.ProductID == uuid.Nil {
			verr.add(field+".product_id", "is required", nil)
		} else {
			ids = append(ids, it.ProductID)
		}
		if it.Quantity < 1 {
			verr.add(field+".quantity", "must be >= 1", nil)
		}
		if it.Price.IsNegative() {
			verr.add(field+".price", "must be >= 0", nil)
		}
	}

	if len(ids) > 0 {
		products, err := s.repo.Products.BatchGetByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		known := make(map[uuid.UUID]bool, len(products))
		for _, p := range products {
			known[p.ID] = true
		}
		for i, it := range in.Items {
			if it.ProductID != uuid.Nil && !known[it.ProductID] {
				verr.add("items["+strconv.Itoa(i)+"].product_id", "product not found", ErrProductNotFound)
			}
		}
	}

	in.OrderNumber = strings.TrimSpace(in.OrderNumber)
	if in.OrderNumber != "" {
		if len(in.OrderNumber) > maxOrderNumberLen {
			verr.add("order_number", "must be at most 64 characters", nil)
		} else {
			taken, err := s.repo.Orders.ExistsByNumber(ctx, in.OrderNumber)
			if err != nil {
				return fmt.Errorf("check order number: %w", err)
			}
			if taken {
				verr.add("order_number", "already taken", ErrOrderNumberTaken)
			}
		}
	}

	return verr.orNil()
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if err := require(ctx, CapOrdersCreate); err != nil {
		return nil, err
	}
	if err := s.validateCreate(ctx, &in); err != nil {
		return nil, err
	}

	var (
		order *models.Order
		now   = s.now()
	)

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		number := in.OrderNumber
		if number == "" {
			var err error
			if number, err = s.nextOrderNumber(ctx, tx, now); err != nil {
				return err
			}
		}

		ord := &models.Order{
			SupplierID:  in.SupplierID,
			OrderNumber: number,
			Status:      models.OrderStatusPending,
			TotalAmount: decimal.Zero,
			Notes:       strings.TrimSpace(in.Notes),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Orders.Create(ctx, ord); err != nil {
			return err
		}

		total := decimal.Zero
		for _, it := range in.Items {
			item := &models.OrderItem{
				OrderID:   ord.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.Price,
				CreatedAt: now,
			}
			if err := tx.OrderItems.Create(ctx, item); err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
			total = total.Add(item.Total())
		}

		if err := tx.Orders.UpdateTotal(ctx, ord.ID, total); err != nil {
			return fmt.Errorf("update order total: %w", err)
		}

		var err error
		order, err = tx.Orders.GetByID(ctx, ord.ID)
		if err != nil {
			return fmt.Errorf("reload order: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrOrderNumberTaken
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalAmount.String()),
	)

	if s.events != nil {
		evItems := make([]OrderItemEvent, 0, len(order.Items))
		for _, it := range order.Items {
			evItems = append(evItems, OrderItemEvent{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.Price,
				LineTotal: it.Total(),
			})
		}
		if err := s.events.PublishOrderCreated(ctx, OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			SupplierID:  order.SupplierID,
			Items:       evItems,
			TotalAmount: order.TotalAmount,
			CreatedAt:   order.CreatedAt,
		}); err != nil {
			s.log.Warn("publish order created failed", zap.String("order_id", order.ID.String()), zap.Error(err))
		}
	}

	return order, nil
}

// nextOrderNumber advances the counter past numbers already taken by explicit orders.
// Skipped values stay consumed once the transaction commits.
func (s *orderService) nextOrderNumber(ctx context.Context, tx *repository.Repository, now time.Time) (string, error) {
	for range maxOrderNumberAttempts {
		seq, err := tx.Counters.Next(ctx, models.OrderNumberCounter)
		if err != nil {
			return "", fmt.Errorf("next order number: %w", err)
		}
		number := formatOrderNumber(now, seq)
		taken, err := tx.Orders.ExistsByNumber(ctx, number)
		if err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if !taken {
			return number, nil
		}
		s.log.Warn("generated order number already taken, skipping", zap.String("order_number", number))
	}
	return "", ErrOrderNumberTaken
}

func (s *orderService) UpdateOrder(ctx context.Context, id uuid.UUID, in UpdateOrderInput) (*models.Order, error) {
	if err := require(ctx, CapOrdersUpdate); err != nil {
		return nil, err
	}

	if in.Status != nil && !in.Status.Valid() {
		verr := &ValidationError{}
		verr.add("status", "must be one of pending, processing, completed, cancelled", nil)
		return nil, verr
	}

	ord, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}

	from := ord.Status
	to := from
	// Resubmitting the current status is a no-op, so a repeated "completed" never credits twice.
	if in.Status != nil && *in.Status != from {
		if !canTransition(from, *in.Status) {
			return nil, ErrInvalidTransition
		}
		to = *in.Status
	}

	fields := map[string]any{}
	if in.Notes != nil {
		fields["notes"] = strings.TrimSpace(*in.Notes)
	}
	if to != from && to != models.OrderStatusCompleted {
		fields["status"] = string(to)
	}

	if len(fields) > 0 {
		ok, err := s.repo.Orders.UpdateFieldsIfStatus(ctx, id, from, fields)
		if err != nil {
			return nil, fmt.Errorf("update order: %w", err)
		}
		if !ok {
			return nil, ErrConcurrentUpdate
		}
	}

	if to == models.OrderStatusCompleted && from != to {
		return s.fulfill(ctx, id)
	}

	if to != from {
		s.log.Info("order status changed",
			zap.String("order_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		if s.events != nil {
			if err := s.events.PublishOrderStatusChanged(ctx, OrderStatusChangedEvent{
				OrderID:   id,
				From:      string(from),
				To:        string(to),
				ChangedAt: s.now(),
			}); err != nil {
				s.log.Warn("publish order status changed failed", zap.String("order_id", id.String()), zap.Error(err))
			}
		}
	}

	if len(fields) == 0 {
		return ord, nil
	}
	updated, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	return updated, nil
}

func (s *orderService) FulfillOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if err := require(ctx, CapOrdersFulfill); err != nil {
		return nil, err
	}
	return s.fulfill(ctx, id)
}

// fulfill credits every item into stock and completes the order in one transaction.
// The status flip is a check-and-set on fulfilled_at, so a second call rolls back its
// credits and reports ErrAlreadyFulfilled.
func (s *orderService) fulfill(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var (
		order   *models.Order
		credits []StockCredit
		from    models.OrderStatus
		now     = s.now()
	)

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		credits = credits[:0]

		ord, err := tx.Orders.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if ord == nil {
			return ErrOrderNotFound
		}
		if ord.FulfilledAt != nil || ord.Status == models.OrderStatusCompleted {
			return ErrAlreadyFulfilled
		}
		if ord.Status == models.OrderStatusCancelled {
			return ErrInvalidTransition
		}
		from = ord.Status

		// Lock inventory rows in product order so concurrent fulfillments cannot deadlock.
		items := slices.Clone(ord.Items)
		slices.SortStableFunc(items, func(a, b models.OrderItem) int {
			return bytes.Compare(a.ProductID[:], b.ProductID[:])
		})

		for _, it := range items {
			inv, created, err := tx.Inventories.GetOrCreateForProduct(ctx, it.ProductID, s.defaultLocation, now)
			if err != nil {
				return fmt.Errorf("get or create inventory: %w", err)
			}
			ok, err := tx.Inventories.Credit(ctx, inv.ID, it.Quantity, now)
			if err != nil {
				return fmt.Errorf("credit inventory: %w", err)
			}
			if !ok {
				return ErrInventoryNotFound
			}
			credits = append(credits, StockCredit{
				InventoryID: inv.ID,
				ProductID:   it.ProductID,
				Quantity:    it.Quantity,
				Created:     created,
			})
		}

		ok, err := tx.Orders.MarkFulfilled(ctx, id, now)
		if err != nil {
			return fmt.Errorf("mark fulfilled: %w", err)
		}
		if !ok {
			return ErrAlreadyFulfilled
		}

		order, err = tx.Orders.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reload order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order fulfilled",
		zap.String("order_id", id.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int("credits", len(credits)),
	)

	if s.cache != nil {
		if err := s.cache.InvalidateLowStock(ctx); err != nil {
			s.log.Warn("low stock cache invalidation failed", zap.Error(err))
		}
	}

	if s.events != nil {
		if err := s.events.PublishOrderFulfilled(ctx, OrderFulfilledEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Credits:     credits,
			FulfilledAt: now,
		}); err != nil {
			s.log.Warn("publish order fulfilled failed", zap.String("order_id", id.String()), zap.Error(err))
		}
		if err := s.events.PublishOrderStatusChanged(ctx, OrderStatusChangedEvent{
			OrderID:   order.ID,
			From:      string(from),
			To:        string(models.OrderStatusCompleted),
			ChangedAt: now,
		}); err != nil {
			s.log.Warn("publish order status changed failed", zap.String("order_id", id.String()), zap.Error(err))
		}
	}

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if err := require(ctx, CapOrdersRead); err != nil {
		return nil, err
	}

	ord, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

func (s *orderService) ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error) {
	if err := require(ctx, CapOrdersRead); err != nil {
		return nil, 0, err
	}
	if f.Status != nil && !f.Status.Valid() {
		verr := &ValidationError{}
		verr.add("status", "must be one of pending, processing, completed, cancelled", nil)
		return nil, 0, verr
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	return s.repo.Orders.List(ctx, repository.OrderListFilter{
		SupplierID: f.SupplierID,
		Status:     f.Status,
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
}
