package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"testing"
	"time"

	"warehouse-service/internal/models"
	"warehouse-service/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var orderNumberRe = regexp.MustCompile(`^ORD-\d{8}-\d{4}$`)

func item(p *models.Product, qty int, price string) service.CreateOrderItem {
	return service.CreateOrderItem{ProductID: p.ID, Quantity: qty, Price: decimal.RequireFromString(price)}
}

func TestCreateOrder_ComputesTotal(t *testing.T) {
	e := newEnv(t)
	a, b := e.product(t, "A"), e.product(t, "B")

	ord, err := e.orders.CreateOrder(adminCtx(), service.CreateOrderInput{
		SupplierID: e.supplier.ID,
		Items:      []service.CreateOrderItem{item(a, 2, "10"), item(b, 1, "5")},
		Notes:      "  first order  ",
	})
	require.NoError(t, err)

	assert.True(t, ord.TotalAmount.Equal(decimal.NewFromInt(25)), "total=%s", ord.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, ord.Status)
	assert.Equal(t, "first order", ord.Notes)
	assert.Len(t, ord.Items, 2)
	require.NotNil(t, ord.Supplier)
	assert.Equal(t, e.supplier.ID, ord.Supplier.ID)
	assert.Nil(t, ord.FulfilledAt)

	n, err := e.repo.OrderItems.CountByOrder(context.Background(), ord.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.Len(t, e.events.Created, 1)
	assert.Equal(t, ord.ID, e.events.Created[0].OrderID)
	assert.True(t, e.events.Created[0].TotalAmount.Equal(decimal.NewFromInt(25)))
}

func TestCreateOrder_DecimalPrices(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")

	ord, err := e.orders.CreateOrder(adminCtx(), service.CreateOrderInput{
		SupplierID: e.supplier.ID,
		Items:      []service.CreateOrderItem{item(a, 3, "0.10"), item(a, 1, "0.20")},
	})
	require.NoError(t, err)
	assert.True(t, ord.TotalAmount.Equal(decimal.RequireFromString("0.50")), "total=%s", ord.TotalAmount)
}

func TestCreateOrder_EmptyItemsRejected(t *testing.T) {
	e := newEnv(t)

	_, err := e.orders.CreateOrder(adminCtx(), service.CreateOrderInput{SupplierID: e.supplier.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.ErrorIs(t, err, service.ErrEmptyItems)

	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "items", verr.Fields[0].Field)

	assert.Equal(t, int64(0), e.count(t, &models.Order{}))
	assert.Empty(t, e.events.Created)
}

func TestCreateOrder_ValidationBeforeTransaction(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")

	_, err := e.orders.CreateOrder(adminCtx(), service.CreateOrderInput{
		SupplierID: uuid.New(),
		Items: []service.CreateOrderItem{
			item(a, 0, "1"),
			{ProductID: uuid.New(), Quantity: 1, Price: decimal.NewFromInt(-1)},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrSupplierNotFound)
	assert.ErrorIs(t, err, service.ErrProductNotFound)

	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := map[string]bool{}
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["supplier_id"])
	assert.True(t, fields["items[0].quantity"])
	assert.True(t, fields["items[1].price"])
	assert.True(t, fields["items[1].product_id"])

	assert.Equal(t, int64(0), e.count(t, &models.Order{}))
	assert.Equal(t, int64(0), e.count(t, &models.OrderItem{}))
}

func TestCreateOrder_GeneratedNumber(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		ord, err := e.orders.CreateOrder(adminCtx(), service.CreateOrderInput{
			SupplierID: e.supplier.ID,
			Items:      []service.CreateOrderItem{item(a, 1, "1")},
		})
		require.NoError(t, err)
		assert.Regexp(t, orderNumberRe, ord.OrderNumber)
		assert.False(t, seen[ord.OrderNumber], "duplicate %s", ord.OrderNumber)
		seen[ord.OrderNumber] = true
	}
}

func TestCreateOrder_ExplicitNumber(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")
	in := service.CreateOrderInput{
		SupplierID:  e.supplier.ID,
		OrderNumber: "PO-777",
		Items:       []service.CreateOrderItem{item(a, 1, "1")},
	}

	ord, err := e.orders.CreateOrder(adminCtx(), in)
	require.NoError(t, err)
	assert.Equal(t, "PO-777", ord.OrderNumber)

	_, err = e.orders.CreateOrder(adminCtx(), in)
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.ErrorIs(t, err, service.ErrOrderNumberTaken)
	assert.Equal(t, int64(1), e.count(t, &models.Order{}))
}

func TestCreateOrder_ManualNumberDoesNotConsumeCounter(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")

	first, err := e.orders.CreateOrder(adminCtx(), service.CreateOrderInput{
		SupplierID: e.supplier.ID,
		Items:      []service.CreateOrderItem{item(a, 1, "1")},
	})
	require.NoError(t, err)

	// An explicit number does not consume the counter; the next generated one still differs.
	_, err = e.orders.CreateOrder(adminCtx(), service.CreateOrderInput{
		SupplierID:  e.supplier.ID,
		OrderNumber: "MANUAL-1",
		Items:       []service.CreateOrderItem{item(a, 1, "1")},
	})
	require.NoError(t, err)

	second, err := e.orders.CreateOrder(adminCtx(), service.CreateOrderInput{
		SupplierID: e.supplier.ID,
		Items:      []service.CreateOrderItem{item(a, 1, "1")},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.OrderNumber, second.OrderNumber)
}

func TestCreateOrder_GeneratedNumberSkipsExplicitCollision(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")

	// The counter is seeded at 0, so the next generated number would be ...-0001.
	today := time.Now().Format("20060102")
	taken := fmt.Sprintf("ORD-%s-0001", today)
	_, err := e.orders.CreateOrder(adminCtx(), service.CreateOrderInput{
		SupplierID:  e.supplier.ID,
		OrderNumber: taken,
		Items:       []service.CreateOrderItem{item(a, 1, "1")},
	})
	require.NoError(t, err)

	seen := map[string]bool{taken: true}
	for i := 0; i < 3; i++ {
		ord, err := e.orders.CreateOrder(adminCtx(), service.CreateOrderInput{
			SupplierID: e.supplier.ID,
			Items:      []service.CreateOrderItem{item(a, 1, "1")},
		})
		require.NoError(t, err, "auto-numbered order %d", i)
		assert.False(t, seen[ord.OrderNumber], "duplicate %s", ord.OrderNumber)
		seen[ord.OrderNumber] = true
	}
	assert.True(t, seen[fmt.Sprintf("ORD-%s-0002", today)])
	assert.True(t, seen[fmt.Sprintf("ORD-%s-0004", today)])
	assert.Equal(t, int64(4), e.count(t, &models.Order{}))
}

func TestCreateOrder_FailureAfterFirstItemRollsBack(t *testing.T) {
	e := newEnv(t)
	a, b := e.product(t, "A"), e.product(t, "B")

	forced := errors.New("forced failure")
	require.NoError(t, e.db.Callback().Create().After("gorm:create").Register("test:fail_order_items", func(db *gorm.DB) {
		if db.Statement.Table == "order_items" {
			_ = db.AddError(forced)
		}
	}))

	_, err := e.orders.CreateOrder(adminCtx(), service.CreateOrderInput{
		SupplierID: e.supplier.ID,
		Items:      []service.CreateOrderItem{item(a, 2, "10"), item(b, 1, "5")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, forced)

	assert.Equal(t, int64(0), e.count(t, &models.Order{}))
	assert.Equal(t, int64(0), e.count(t, &models.OrderItem{}))
	assert.Empty(t, e.events.Created)
}

func TestCreateOrder_RequiresCapability(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")
	in := service.CreateOrderInput{SupplierID: e.supplier.ID, Items: []service.CreateOrderItem{item(a, 1, "1")}}

	_, err := e.orders.CreateOrder(context.Background(), in)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = e.orders.CreateOrder(roleCtx(service.RoleViewer), in)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = e.orders.CreateOrder(roleCtx(service.RoleStaff), in)
	assert.NoError(t, err)
}

func TestCreateOrder_PublishFailureIsNotFatal(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")
	e.events.Err = errors.New("broker down")

	ord, err := e.orders.CreateOrder(adminCtx(), service.CreateOrderInput{
		SupplierID: e.supplier.ID,
		Items:      []service.CreateOrderItem{item(a, 1, "1")},
	})
	require.NoError(t, err)
	assert.NotNil(t, ord)
}

func createOrder(t *testing.T, e *env, items ...service.CreateOrderItem) *models.Order {
	t.Helper()
	ord, err := e.orders.CreateOrder(adminCtx(), service.CreateOrderInput{SupplierID: e.supplier.ID, Items: items})
	require.NoError(t, err)
	return ord
}

func TestFulfillOrder_CreditsInventory(t *testing.T) {
	e := newEnv(t)
	a, b := e.product(t, "A"), e.product(t, "B")
	invA := e.stock(t, a.ID, 10, 0)

	ord := createOrder(t, e, item(a, 3, "1"), item(b, 2, "1"))

	got, err := e.orders.FulfillOrder(adminCtx(), ord.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
	assert.NotNil(t, got.FulfilledAt)

	assert.Equal(t, 13, e.quantity(t, invA.ID))

	// B had no record: one is created holding exactly the credited amount.
	invB, err := e.repo.Inventories.FindFirstForProduct(context.Background(), b.ID)
	require.NoError(t, err)
	require.NotNil(t, invB)
	assert.Equal(t, 2, invB.Quantity)
	assert.Equal(t, "main", invB.Location)

	require.Len(t, e.events.Fulfilled, 1)
	assert.Len(t, e.events.Fulfilled[0].Credits, 2)
	assert.Positive(t, e.cache.Invalidations())
}

func TestFulfillOrder_CreditsInProductOrder(t *testing.T) {
	e := newEnv(t)
	products := []*models.Product{e.product(t, "A"), e.product(t, "B"), e.product(t, "C"), e.product(t, "D")}
	items := make([]service.CreateOrderItem, 0, len(products))
	for _, p := range products {
		items = append(items, item(p, 1, "1"))
	}
	ord := createOrder(t, e, items...)

	_, err := e.orders.FulfillOrder(adminCtx(), ord.ID)
	require.NoError(t, err)

	require.Len(t, e.events.Fulfilled, 1)
	credits := e.events.Fulfilled[0].Credits
	require.Len(t, credits, len(products))
	assert.True(t, slices.IsSortedFunc(credits, func(a, b service.StockCredit) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	}), "credits not ordered by product id: %+v", credits)
}

func TestFulfillOrder_SecondCallIsRejectedWithoutCredit(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")
	inv := e.stock(t, a.ID, 0, 0)
	ord := createOrder(t, e, item(a, 4, "1"))

	_, err := e.orders.FulfillOrder(adminCtx(), ord.ID)
	require.NoError(t, err)
	require.Equal(t, 4, e.quantity(t, inv.ID))

	_, err = e.orders.FulfillOrder(adminCtx(), ord.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyFulfilled)
	assert.Equal(t, 4, e.quantity(t, inv.ID), "second fulfillment must not credit again")
	assert.Len(t, e.events.Fulfilled, 1)
}

func TestFulfillOrder_EmptyOrderStillCompletes(t *testing.T) {
	e := newEnv(t)

	// Bypass validation to get an order without items.
	ord := &models.Order{SupplierID: e.supplier.ID, OrderNumber: "EMPTY-1", Status: models.OrderStatusProcessing}
	require.NoError(t, e.repo.Orders.Create(context.Background(), ord))

	got, err := e.orders.FulfillOrder(adminCtx(), ord.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
	assert.Equal(t, int64(0), e.count(t, &models.Inventory{}))
}

func TestFulfillOrder_CancelledAndMissing(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")
	ord := createOrder(t, e, item(a, 1, "1"))

	_, err := e.orders.UpdateOrder(adminCtx(), ord.ID, service.UpdateOrderInput{Status: statusPtr(models.OrderStatusCancelled)})
	require.NoError(t, err)

	_, err = e.orders.FulfillOrder(adminCtx(), ord.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
	assert.Equal(t, int64(0), e.count(t, &models.Inventory{}))

	_, err = e.orders.FulfillOrder(adminCtx(), uuid.New())
	assert.ErrorIs(t, err, service.ErrOrderNotFound)
}

func TestFulfillOrder_RequiresCapability(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")
	ord := createOrder(t, e, item(a, 1, "1"))

	_, err := e.orders.FulfillOrder(roleCtx(service.RoleStaff), ord.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestUpdateOrder_CompletedTriggersFulfillmentOnce(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")
	inv := e.stock(t, a.ID, 1, 0)
	ord := createOrder(t, e, item(a, 5, "2"))

	_, err := e.orders.UpdateOrder(adminCtx(), ord.ID, service.UpdateOrderInput{Status: statusPtr(models.OrderStatusProcessing)})
	require.NoError(t, err)

	got, err := e.orders.UpdateOrder(adminCtx(), ord.ID, service.UpdateOrderInput{
		Status: statusPtr(models.OrderStatusCompleted),
		Notes:  strPtr("received"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
	assert.Equal(t, "received", got.Notes)
	assert.Equal(t, 6, e.quantity(t, inv.ID))

	// Client resubmits the same update: nothing is credited twice.
	again, err := e.orders.UpdateOrder(adminCtx(), ord.ID, service.UpdateOrderInput{Status: statusPtr(models.OrderStatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, again.Status)
	assert.Equal(t, 6, e.quantity(t, inv.ID))
}

func TestUpdateOrder_Transitions(t *testing.T) {
	cases := []struct {
		name    string
		path    []models.OrderStatus
		wantErr error
	}{
		{"pending to processing", []models.OrderStatus{models.OrderStatusProcessing}, nil},
		{"pending to cancelled", []models.OrderStatus{models.OrderStatusCancelled}, nil},
		{"processing to cancelled", []models.OrderStatus{models.OrderStatusProcessing, models.OrderStatusCancelled}, nil},
		{"pending to completed skips processing", []models.OrderStatus{models.OrderStatusCompleted}, service.ErrInvalidTransition},
		{"cancelled is terminal", []models.OrderStatus{models.OrderStatusCancelled, models.OrderStatusProcessing}, service.ErrInvalidTransition},
		{"completed is terminal", []models.OrderStatus{models.OrderStatusProcessing, models.OrderStatusCompleted, models.OrderStatusCancelled}, service.ErrInvalidTransition},
		{"back to pending", []models.OrderStatus{models.OrderStatusProcessing, models.OrderStatusPending}, service.ErrInvalidTransition},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			a := e.product(t, "A")
			ord := createOrder(t, e, item(a, 1, "1"))

			var err error
			for _, st := range tc.path {
				_, err = e.orders.UpdateOrder(adminCtx(), ord.ID, service.UpdateOrderInput{Status: statusPtr(st)})
				if err != nil {
					break
				}
			}
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestUpdateOrder_Validation(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")
	ord := createOrder(t, e, item(a, 1, "1"))

	_, err := e.orders.UpdateOrder(adminCtx(), ord.ID, service.UpdateOrderInput{Status: statusPtr("shipped")})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = e.orders.UpdateOrder(adminCtx(), uuid.New(), service.UpdateOrderInput{Notes: strPtr("x")})
	assert.ErrorIs(t, err, service.ErrOrderNotFound)
}

func TestUpdateOrder_NotesOnly(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")
	ord := createOrder(t, e, item(a, 1, "1"))

	got, err := e.orders.UpdateOrder(adminCtx(), ord.ID, service.UpdateOrderInput{Notes: strPtr(" call supplier ")})
	require.NoError(t, err)
	assert.Equal(t, "call supplier", got.Notes)
	assert.Equal(t, models.OrderStatusPending, got.Status)
	assert.Empty(t, e.events.StatusChanged)
}

func TestUpdateOrder_LostRaceIsConcurrentUpdate(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")
	ord := createOrder(t, e, item(a, 1, "1"))

	// Another writer cancels the order between the service's read and its guarded write.
	raced := false
	require.NoError(t, e.db.Callback().Update().Before("gorm:update").Register("test:race_orders", func(db *gorm.DB) {
		if db.Statement.Table != "orders" || raced {
			return
		}
		raced = true
		_, err := db.Statement.ConnPool.ExecContext(db.Statement.Context,
			"UPDATE orders SET status = 'cancelled' WHERE id = ?", ord.ID)
		if err != nil {
			_ = db.AddError(err)
		}
	}))

	_, err := e.orders.UpdateOrder(adminCtx(), ord.ID, service.UpdateOrderInput{
		Status: statusPtr(models.OrderStatusProcessing),
		Notes:  strPtr("late"),
	})
	assert.ErrorIs(t, err, service.ErrConcurrentUpdate)

	got, err := e.repo.Orders.GetByID(context.Background(), ord.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	assert.Empty(t, got.Notes)
	assert.Empty(t, e.events.StatusChanged)
}

func TestUpdateOrder_PublishesStatusChange(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")
	ord := createOrder(t, e, item(a, 1, "1"))

	_, err := e.orders.UpdateOrder(adminCtx(), ord.ID, service.UpdateOrderInput{Status: statusPtr(models.OrderStatusProcessing)})
	require.NoError(t, err)

	require.Len(t, e.events.StatusChanged, 1)
	assert.Equal(t, "pending", e.events.StatusChanged[0].From)
	assert.Equal(t, "processing", e.events.StatusChanged[0].To)
}

func TestGetAndListOrders(t *testing.T) {
	e := newEnv(t)
	a := e.product(t, "A")
	first := createOrder(t, e, item(a, 1, "1"))
	createOrder(t, e, item(a, 2, "1"))

	got, err := e.orders.GetOrder(roleCtx(service.RoleViewer), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.OrderNumber, got.OrderNumber)

	_, err = e.orders.GetOrder(adminCtx(), uuid.New())
	assert.ErrorIs(t, err, service.ErrOrderNotFound)

	list, total, err := e.orders.ListOrders(adminCtx(), service.ListFilter{SupplierID: &e.supplier.ID, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 1)

	_, total, err = e.orders.ListOrders(adminCtx(), service.ListFilter{Status: statusPtr(models.OrderStatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	_, _, err = e.orders.ListOrders(adminCtx(), service.ListFilter{Status: statusPtr("bogus")})
	assert.ErrorIs(t, err, service.ErrValidation)
}
