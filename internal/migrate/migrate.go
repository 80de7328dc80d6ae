package migrate

import (
	"context"

	"warehouse-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto
	CreateChecks           bool // CHECK constraints
	CreateIndexes          bool // secondary indexes
	CreateFKsViaSQL        bool // FKs via Exec after AutoMigrate
	CreateUpdatedAtTrigger bool // updated_at triggers
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

type step struct {
	name string
	sql  string
}

// MigrateWarehouseDB creates the schema. Everything beyond AutoMigrate and the counter
// seed is PostgreSQL-specific and is skipped on other dialects.
func MigrateWarehouseDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	db = db.WithContext(ctx)
	log.Info("starting warehouse schema migration")

	log.Info("creating tables: suppliers, products, inventories, orders, order_items, order_counters")
	if err := db.AutoMigrate(
		&models.Supplier{},
		&models.Product{},
		&models.Inventory{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderCounter{},
	); err != nil {
		log.Error("AutoMigrate error", zap.Error(err))
		return err
	}
	log.Info("tables created")

	// Start the counter from the current number of orders so generated numbers keep
	// increasing on databases that already hold orders.
	if err := db.Exec(`
INSERT INTO order_counters (name, value)
SELECT ?, COUNT(*) FROM orders WHERE true
ON CONFLICT (name) DO NOTHING
`, models.OrderNumberCounter).Error; err != nil {
		log.Error("seed order counter", zap.Error(err))
		return err
	}

	if db.Dialector.Name() != "postgres" {
		log.Info("non-postgres dialect, skipping constraints and triggers", zap.String("dialect", db.Dialector.Name()))
		return nil
	}

	if opt.CreateExtensions {
		if err := run(db, log, "extensions", []step{
			{"pgcrypto", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
		}); err != nil {
			return err
		}
	}

	if opt.CreateUpdatedAtTrigger {
		if err := run(db, log, "updated_at triggers", []step{
			{"set_updated_at", `
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_suppliers_updated ON suppliers;
CREATE TRIGGER trg_suppliers_updated BEFORE UPDATE ON suppliers
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_products_updated ON products;
CREATE TRIGGER trg_products_updated BEFORE UPDATE ON products
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_inventories_updated ON inventories;
CREATE TRIGGER trg_inventories_updated BEFORE UPDATE ON inventories
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated BEFORE UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`},
		}); err != nil {
			return err
		}
	}

	if opt.CreateChecks {
		if err := run(db, log, "CHECK constraints", []step{
			{"chk products.price", `
ALTER TABLE products
	DROP CONSTRAINT IF EXISTS chk_products_price_non_negative,
	ADD CONSTRAINT chk_products_price_non_negative
	CHECK (price >= 0);
`},
			{"chk inventories", `
ALTER TABLE inventories
	DROP CONSTRAINT IF EXISTS chk_inventories_non_negative,
	ADD CONSTRAINT chk_inventories_non_negative
	CHECK (quantity >= 0 AND reorder_level >= 0);
`},
			{"chk orders.total", `
ALTER TABLE orders
	DROP CONSTRAINT IF EXISTS chk_orders_total_non_negative,
	ADD CONSTRAINT chk_orders_total_non_negative
	CHECK (total_amount >= 0);
`},
			{"chk orders.status", `
ALTER TABLE orders
	DROP CONSTRAINT IF EXISTS chk_orders_status_allowed,
	ADD CONSTRAINT chk_orders_status_allowed
	CHECK (status IN ('pending','processing','completed','cancelled'));
`},
			{"chk orders.fulfilled", `
ALTER TABLE orders
	DROP CONSTRAINT IF EXISTS chk_orders_fulfilled_completed,
	ADD CONSTRAINT chk_orders_fulfilled_completed
	CHECK (fulfilled_at IS NULL OR status = 'completed');
`},
			{"chk order_items", `
ALTER TABLE order_items
	DROP CONSTRAINT IF EXISTS chk_order_items_values,
	ADD CONSTRAINT chk_order_items_values
	CHECK (quantity > 0 AND price >= 0);
`},
		}); err != nil {
			return err
		}
	}

	if opt.CreateIndexes {
		if err := run(db, log, "indexes", []step{
			{"ix inventories low_stock", `
CREATE INDEX IF NOT EXISTS ix_inventories_low_stock
ON inventories (quantity, reorder_level)
WHERE quantity <= reorder_level;
`},
			{"ix orders supplier_created", `
CREATE INDEX IF NOT EXISTS ix_orders_supplier_created
ON orders (supplier_id, created_at DESC);
`},
			{"ix orders status_created", `
CREATE INDEX IF NOT EXISTS ix_orders_status_created
ON orders (status, created_at DESC);
`},
		}); err != nil {
			return err
		}
	}

	if opt.CreateFKsViaSQL {
		if err := run(db, log, "foreign keys", []step{
			{"fk products.supplier_id", `
ALTER TABLE products
  DROP CONSTRAINT IF EXISTS fk_products_supplier,
  ADD CONSTRAINT fk_products_supplier
    FOREIGN KEY (supplier_id) REFERENCES suppliers(id) ON DELETE SET NULL;
`},
			{"fk inventories.product_id", `
ALTER TABLE inventories
  DROP CONSTRAINT IF EXISTS fk_inventories_product,
  ADD CONSTRAINT fk_inventories_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT;
`},
			{"fk orders.supplier_id", `
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS fk_orders_supplier,
  ADD CONSTRAINT fk_orders_supplier
    FOREIGN KEY (supplier_id) REFERENCES suppliers(id) ON DELETE RESTRICT;
`},
			{"fk order_items.order_id", `
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_order,
  ADD CONSTRAINT fk_order_items_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;
`},
			{"fk order_items.product_id", `
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_product,
  ADD CONSTRAINT fk_order_items_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT;
`},
		}); err != nil {
			return err
		}
	}

	log.Info("warehouse schema migration completed")
	return nil
}

func run(db *gorm.DB, log *zap.Logger, group string, steps []step) error {
	log.Info("creating " + group)
	for _, s := range steps {
		if err := db.Exec(s.sql).Error; err != nil {
			log.Error(s.name, zap.Error(err))
			return err
		}
	}
	log.Info(group + " created")
	return nil
}
