package monitor

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"warehouse-service/internal/models"
	"warehouse-service/internal/service"

	"go.uber.org/zap"
)

type LowStockChecker interface {
	CheckLowStock(ctx context.Context) ([]models.Inventory, error)
}

type LowStockPublisher interface {
	PublishLowStock(ctx context.Context, e service.LowStockEvent) error
}

// Scheduler periodically runs the low-stock query and publishes an event whenever the
// set of low records changes.
type Scheduler struct {
	checker   LowStockChecker
	publisher LowStockPublisher
	interval  time.Duration
	log       *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu   sync.Mutex
	last string
	now  func() time.Time
}

func NewScheduler(checker LowStockChecker, publisher LowStockPublisher, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		checker:   checker,
		publisher: publisher,
		interval:  interval,
		log:       log,
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
}

// Start launches the loop. The check runs with inventory.read only.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting low stock monitor", zap.Duration("interval", s.interval))
	ctx = service.WithCapabilities(ctx, service.NewCapabilities(service.CapInventoryRead))

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop ends the loop and waits for it to exit. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.log.Info("stopping low stock monitor")
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.RunOnceNow(ctx); err != nil {
		s.log.Error("initial low stock check failed", zap.Error(err))
	}

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnceNow(ctx); err != nil {
				s.log.Error("low stock check failed", zap.Error(err))
			}
		case <-s.stopCh:
			s.log.Info("low stock monitor stopped")
			return
		case <-ctx.Done():
			s.log.Info("low stock monitor cancelled")
			return
		}
	}
}

// RunOnceNow performs one check and reports whether an event was published.
func (s *Scheduler) RunOnceNow(ctx context.Context) (bool, error) {
	items, err := s.checker.CheckLowStock(ctx)
	if err != nil {
		return false, err
	}

	fp := fingerprint(items)
	s.mu.Lock()
	changed := fp != s.last
	s.mu.Unlock()

	if !changed || len(items) == 0 {
		s.remember(fp)
		return false, nil
	}

	s.log.Warn("low stock detected", zap.Int("records", len(items)))
	if s.publisher == nil {
		s.remember(fp)
		return false, nil
	}

	ev := service.LowStockEvent{
		Items:      make([]service.LowStockItem, 0, len(items)),
		DetectedAt: s.now(),
	}
	for _, inv := range items {
		it := service.LowStockItem{
			InventoryID:  inv.ID,
			ProductID:    inv.ProductID,
			Location:     inv.Location,
			Quantity:     inv.Quantity,
			ReorderLevel: inv.ReorderLevel,
		}
		if inv.Product != nil {
			it.SKU = inv.Product.SKU
		}
		ev.Items = append(ev.Items, it)
	}
	if err := s.publisher.PublishLowStock(ctx, ev); err != nil {
		// not remembered, so the next tick retries
		return false, err
	}
	s.remember(fp)
	return true, nil
}

func (s *Scheduler) remember(fp string) {
	s.mu.Lock()
	s.last = fp
	s.mu.Unlock()
}

func fingerprint(items []models.Inventory) string {
	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.ID.String())
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
