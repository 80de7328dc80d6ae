package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"warehouse-service/internal/models"
	"warehouse-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const lowStockFlight = "low_stock"

type inventoryService struct {
	repo            *repository.Repository
	cache           LowStockCache
	events          EventBus
	log             *zap.Logger
	defaultLocation string
	sf              singleflight.Group
	now             func() time.Time
}

// NewInventoryService wires the stock ledger. cache and events may be nil.
func NewInventoryService(repo *repository.Repository, cache LowStockCache, events EventBus, log *zap.Logger, defaultLocation string) InventoryService {
	return &inventoryService{
		repo:            repo,
		cache:           cache,
		events:          events,
		log:             log,
		defaultLocation: defaultLocation,
		now:             time.Now,
	}
}

func (s *inventoryService) AdjustStock(ctx context.Context, id uuid.UUID, delta int, reason string) (*models.Inventory, error) {
	if err := require(ctx, CapInventoryAdjust); err != nil {
		return nil, err
	}

	now := s.now()
	var inv *models.Inventory
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		ok, err := tx.Inventories.Adjust(ctx, id, delta, now)
		if err != nil {
			return fmt.Errorf("adjust inventory: %w", err)
		}
		if !ok {
			return ErrInventoryNotFound
		}
		inv, err = tx.Inventories.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reload inventory: %w", err)
		}
		if inv == nil {
			return ErrInventoryNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("stock adjusted",
		zap.String("inventory_id", id.String()),
		zap.Int("delta", delta),
		zap.Int("quantity", inv.Quantity),
		zap.String("reason", reason),
	)
	s.invalidateLowStock(ctx)

	if s.events != nil {
		if err := s.events.PublishStockAdjusted(ctx, StockAdjustedEvent{
			InventoryID: inv.ID,
			ProductID:   inv.ProductID,
			Delta:       delta,
			Quantity:    inv.Quantity,
			Reason:      reason,
			AdjustedAt:  now,
		}); err != nil {
			s.log.Warn("publish stock adjusted failed", zap.String("inventory_id", id.String()), zap.Error(err))
		}
	}

	return inv, nil
}

func (s *inventoryService) CheckLowStock(ctx context.Context) ([]models.Inventory, error) {
	if err := require(ctx, CapInventoryRead); err != nil {
		return nil, err
	}

	if s.cache != nil {
		items, found, err := s.cache.GetLowStock(ctx)
		if err != nil {
			s.log.Warn("low stock cache read failed", zap.Error(err))
		} else if found {
			return items, nil
		}
	}

	// The flight key carries the generation, so callers arriving after an invalidation
	// never join a load that started before it.
	flight, gen, cacheable := lowStockFlight, int64(0), false
	if s.cache != nil {
		g, err := s.cache.LowStockGeneration(ctx)
		if err != nil {
			s.log.Warn("low stock cache generation read failed", zap.Error(err))
		} else {
			flight, gen, cacheable = lowStockFlight+":"+strconv.FormatInt(g, 10), g, true
		}
	}

	ch := s.sf.DoChan(flight, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		items, err := s.repo.Inventories.ListLowStock(fctx)
		if err != nil {
			return nil, fmt.Errorf("list low stock: %w", err)
		}
		if cacheable {
			stored, err := s.cache.SetLowStock(fctx, items, gen)
			switch {
			case err != nil:
				s.log.Warn("low stock cache write failed", zap.Error(err))
			case !stored:
				s.log.Debug("low stock cache write skipped, invalidated during load", zap.Int64("generation", gen))
			}
		}
		return items, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.Inventory), nil
	}
}

func (s *inventoryService) CreateInventory(ctx context.Context, in CreateInventoryInput) (*models.Inventory, error) {
	if err := require(ctx, CapInventoryWrite); err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if in.ProductID == uuid.Nil {
		verr.add("product_id", "is required", nil)
	} else {
		p, err := s.repo.Products.GetByID(ctx, in.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if p == nil {
			verr.add("product_id", "product not found", ErrProductNotFound)
		}
	}
	if in.Quantity < 0 {
		verr.add("quantity", "must be >= 0", nil)
	}
	if in.ReorderLevel < 0 {
		verr.add("reorder_level", "must be >= 0", nil)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	location := strings.TrimSpace(in.Location)
	if location == "" {
		location = s.defaultLocation
	}

	now := s.now()
	inv := &models.Inventory{
		ProductID:    in.ProductID,
		Quantity:     in.Quantity,
		ReorderLevel: in.ReorderLevel,
		Location:     location,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Inventories.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create inventory: %w", err)
	}
	s.invalidateLowStock(ctx)

	created, err := s.repo.Inventories.GetByID(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("reload inventory: %w", err)
	}
	return created, nil
}

func (s *inventoryService) GetInventory(ctx context.Context, id uuid.UUID) (*models.Inventory, error) {
	if err := require(ctx, CapInventoryRead); err != nil {
		return nil, err
	}

	inv, err := s.repo.Inventories.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	if inv == nil {
		return nil, ErrInventoryNotFound
	}
	return inv, nil
}

func (s *inventoryService) ListInventory(ctx context.Context, f InventoryFilter) ([]models.Inventory, int64, error) {
	if err := require(ctx, CapInventoryRead); err != nil {
		return nil, 0, err
	}

	return s.repo.Inventories.List(ctx, repository.InventoryListFilter{
		ProductID: f.ProductID,
		Location:  f.Location,
		LowStock:  f.LowStock,
		Limit:     f.Limit,
		Offset:    f.Offset,
	})
}

func (s *inventoryService) DeleteInventory(ctx context.Context, id uuid.UUID) error {
	if err := require(ctx, CapInventoryWrite); err != nil {
		return err
	}

	ok, err := s.repo.Inventories.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete inventory: %w", err)
	}
	if !ok {
		return ErrInventoryNotFound
	}

	s.log.Info("inventory deleted", zap.String("inventory_id", id.String()))
	s.invalidateLowStock(ctx)
	return nil
}

func (s *inventoryService) invalidateLowStock(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateLowStock(ctx); err != nil {
		s.log.Warn("low stock cache invalidation failed", zap.Error(err))
	}
}
