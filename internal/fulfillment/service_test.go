package fulfillment

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sellpoint/pos-backend/internal/customers"
	"github.com/sellpoint/pos-backend/internal/ordernum"
	"github.com/sellpoint/pos-backend/internal/orders"
	"github.com/sellpoint/pos-backend/pkg/db/models"
	pkgerrors "github.com/sellpoint/pos-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		gormTxRunner{db: db},
		customers.NewRepository(db),
		orders.NewRepository(db),
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestFulfillSingleLine(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	customerID := seedCustomer(t, db, "Ada", "Lovelace")
	productID := seedProduct(t, db, "Keyboard", "100", 10)

	svc := newService(t, db)

	result, err := svc.Fulfill(ctx, Input{
		CustomerID: customerID,
		Lines: []Line{
			{ProductID: productID, Quantity: 2, DiscountPercent: decimal.NewFromInt(10)},
		},
	})
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	order := result.Order
	if order == nil {
		t.Fatal("expected committed order")
	}
	if !order.Price.Equal(decimal.RequireFromString("180.00")) {
		t.Fatalf("expected order price 180.00, got %s", order.Price)
	}
	if order.Quantity != 2 {
		t.Fatalf("expected order quantity 2, got %d", order.Quantity)
	}
	if order.OrderNumber == "" {
		t.Fatal("expected generated order number")
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(order.Items))
	}
	item := order.Items[0]
	if item.ProductName != "Keyboard" || !item.ProductPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected product snapshot: %+v", item)
	}
	if order.Customer == nil || order.Customer.FirstName != "Ada" {
		t.Fatalf("expected preloaded customer, got %+v", order.Customer)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", result.Warnings)
	}

	if stock := productStock(t, db, productID); stock != 8 {
		t.Fatalf("expected stock 8 after fulfillment, got %d", stock)
	}
}

func TestFulfillMultiLineAccumulatesTotals(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	customerID := seedCustomer(t, db, "Grace", "Hopper")
	keyboardID := seedProduct(t, db, "Keyboard", "100", 10)
	cableID := seedProduct(t, db, "Cable", "5.50", 20)

	svc := newService(t, db)

	result, err := svc.Fulfill(ctx, Input{
		CustomerID: customerID,
		Lines: []Line{
			{ProductID: keyboardID, Quantity: 2, DiscountPercent: decimal.NewFromInt(10)},
			{ProductID: cableID, Quantity: 3, DiscountPercent: decimal.Zero},
		},
	})
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	if !result.Order.Price.Equal(decimal.RequireFromString("196.50")) {
		t.Fatalf("expected order price 196.50, got %s", result.Order.Price)
	}
	if result.Order.Quantity != 5 {
		t.Fatalf("expected order quantity 5, got %d", result.Order.Quantity)
	}
	if len(result.Order.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(result.Order.Items))
	}
	// Items come back in submission order.
	if result.Order.Items[0].ProductName != "Keyboard" || result.Order.Items[1].ProductName != "Cable" {
		t.Fatalf("unexpected item order: %s, %s", result.Order.Items[0].ProductName, result.Order.Items[1].ProductName)
	}
	if result.Order.Items[0].LineNo != 1 || result.Order.Items[1].LineNo != 2 {
		t.Fatalf("unexpected line numbers: %d, %d", result.Order.Items[0].LineNo, result.Order.Items[1].LineNo)
	}
}

func TestFulfillEmitsLowStockWarning(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	customerID := seedCustomer(t, db, "Alan", "Turing")
	lowID := seedProduct(t, db, "Grinder", "75", 6)
	fineID := seedProduct(t, db, "Kettle", "40", 7)

	svc := newService(t, db)

	result, err := svc.Fulfill(ctx, Input{
		CustomerID: customerID,
		Lines: []Line{
			{ProductID: lowID, Quantity: 2, DiscountPercent: decimal.Zero},
			{ProductID: fineID, Quantity: 2, DiscountPercent: decimal.Zero},
		},
	})
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	// 6-2=4 crosses the threshold, 7-2=5 does not.
	if len(result.Warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %v", result.Warnings)
	}
	if result.Warnings[0] != "Grinder is low in stock (4 left)" {
		t.Fatalf("unexpected warning: %q", result.Warnings[0])
	}
}

func TestFulfillInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	customerID := seedCustomer(t, db, "Edsger", "Dijkstra")
	okID := seedProduct(t, db, "Notebook", "3", 10)
	shortID := seedProduct(t, db, "Pen", "1.25", 1)

	svc := newService(t, db)

	_, err := svc.Fulfill(ctx, Input{
		CustomerID: customerID,
		Lines: []Line{
			{ProductID: okID, Quantity: 2, DiscountPercent: decimal.Zero},
			{ProductID: shortID, Quantity: 2, DiscountPercent: decimal.Zero},
		},
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	if typed.Message() != "Pen is out of stock" {
		t.Fatalf("unexpected message: %q", typed.Message())
	}

	// The whole transaction rolls back: the earlier decrement is undone and
	// no order rows survive.
	if stock := productStock(t, db, okID); stock != 10 {
		t.Fatalf("expected stock 10 after rollback, got %d", stock)
	}
	if stock := productStock(t, db, shortID); stock != 1 {
		t.Fatalf("expected stock 1 after rollback, got %d", stock)
	}
	var orderCount, itemCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if err := db.Model(&models.OrderLineItem{}).Count(&itemCount).Error; err != nil {
		t.Fatalf("count line items: %v", err)
	}
	if orderCount != 0 || itemCount != 0 {
		t.Fatalf("expected no persisted rows, got %d orders and %d items", orderCount, itemCount)
	}
}

func TestFulfillConcurrentRequestsNeverOversell(t *testing.T) {
	t.Parallel()

	db := newFileTestDB(t)
	customerID := seedCustomer(t, db, "Tony", "Hoare")
	productID := seedProduct(t, db, "Monitor", "150", 5)

	svc := newService(t, db)

	start := make(chan struct{})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Fulfill(context.Background(), Input{
				CustomerID: customerID,
				Lines:      []Line{{ProductID: productID, Quantity: 5, DiscountPercent: decimal.Zero}},
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var successes int
	for _, err := range errs {
		if err == nil {
			successes++
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one winner, got %d (errors: %v, %v)", successes, errs[0], errs[1])
	}

	// Stock never goes negative and only the winner's order survives.
	if stock := productStock(t, db, productID); stock != 0 {
		t.Fatalf("expected stock 0, got %d", stock)
	}
	var orderCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 1 {
		t.Fatalf("expected 1 committed order, got %d", orderCount)
	}
}

type cancelOnSecondLookup struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancelOnSecondLookup) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	c.calls++
	if c.calls == 2 {
		c.cancel()
	}
	return productFinder{}.FindByID(ctx, tx, id)
}

func TestFulfillCancelledMidTransactionRollsBack(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	customerID := seedCustomer(t, db, "Donald", "Knuth")
	firstID := seedProduct(t, db, "Notebook", "3", 10)
	secondID := seedProduct(t, db, "Pen", "1.25", 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := &service{
		tx:        gormTxRunner{db: db},
		customers: customers.NewRepository(db),
		products:  &cancelOnSecondLookup{cancel: cancel},
		ledger:    ledgerEngine{},
		orders:    orders.NewRepository(db),
		numbers:   ordernum.New(),
	}

	_, err := svc.Fulfill(ctx, Input{
		CustomerID: customerID,
		Lines: []Line{
			{ProductID: firstID, Quantity: 2, DiscountPercent: decimal.Zero},
			{ProductID: secondID, Quantity: 1, DiscountPercent: decimal.Zero},
		},
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}

	// The first line had already decremented inside the transaction; the
	// cancellation must roll everything back.
	if stock := productStock(t, db, firstID); stock != 10 {
		t.Fatalf("expected stock 10 after rollback, got %d", stock)
	}
	if stock := productStock(t, db, secondID); stock != 10 {
		t.Fatalf("expected stock 10 after rollback, got %d", stock)
	}
	var orderCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected no persisted orders, got %d", orderCount)
	}
}

func TestFulfillCustomerNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	productID := seedProduct(t, db, "Mouse", "25", 5)

	svc := newService(t, db)

	_, err := svc.Fulfill(ctx, Input{
		CustomerID: uuid.New(),
		Lines:      []Line{{ProductID: productID, Quantity: 1, DiscountPercent: decimal.Zero}},
	})
	if err == nil {
		t.Fatal("expected not found error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
	if typed.Message() != "customer not found" {
		t.Fatalf("unexpected message: %q", typed.Message())
	}
}

func TestFulfillProductNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	customerID := seedCustomer(t, db, "Barbara", "Liskov")

	svc := newService(t, db)

	_, err := svc.Fulfill(ctx, Input{
		CustomerID: customerID,
		Lines:      []Line{{ProductID: uuid.New(), Quantity: 1, DiscountPercent: decimal.Zero}},
	})
	if err == nil {
		t.Fatal("expected not found error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	var orderCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected no persisted orders, got %d", orderCount)
	}
}

func TestFulfillValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	svc := newService(t, db)

	_, err := svc.Fulfill(ctx, Input{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	if details["customer_id"] == "" || details["products"] == "" {
		t.Fatalf("expected field details, got %v", details)
	}

	_, err = svc.Fulfill(ctx, Input{
		CustomerID: uuid.New(),
		Lines: []Line{
			{ProductID: uuid.Nil, Quantity: 0, DiscountPercent: decimal.NewFromInt(150)},
		},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
	details, ok = typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	for _, key := range []string{"products.0.product_id", "products.0.quantity", "products.0.discount"} {
		if details[key] == "" {
			t.Fatalf("expected detail for %s, got %v", key, details)
		}
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:fulfillment_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	createSchema(t, db)
	return db
}

// newFileTestDB backs the database with a real file so concurrent
// transactions contend on row locks instead of the shared-cache table lock.
func newFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "fulfillment.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	createSchema(t, db)
	return db
}

func createSchema(t *testing.T, db *gorm.DB) {
	t.Helper()

	schema := []string{`
CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT,
  phone TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL DEFAULT 0,
  stock INTEGER NOT NULL DEFAULT 0,
  category_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  order_number TEXT NOT NULL UNIQUE,
  price NUMERIC NOT NULL DEFAULT 0,
  quantity INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  line_no INTEGER NOT NULL DEFAULT 0,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  product_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  discount NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
}

func seedCustomer(t *testing.T, db *gorm.DB, first, last string) uuid.UUID {
	t.Helper()
	customer := models.Customer{ID: uuid.New(), FirstName: first, LastName: last}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer.ID
}

func productStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var stock int
	err := db.Model(&models.Product{}).
		Where("id = ?", id).
		Select("stock").
		Take(&stock).Error
	if err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return stock
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:    uuid.New(),
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}
