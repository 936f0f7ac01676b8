package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sellpoint/pos-backend/internal/inventory"
	"github.com/sellpoint/pos-backend/internal/ordernum"
	"github.com/sellpoint/pos-backend/internal/orders"
	"github.com/sellpoint/pos-backend/internal/pricing"
	"github.com/sellpoint/pos-backend/internal/products"
	"github.com/sellpoint/pos-backend/internal/stockalert"
	"github.com/sellpoint/pos-backend/pkg/db/models"
	pkgerrors "github.com/sellpoint/pos-backend/pkg/errors"
	"github.com/sellpoint/pos-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type customerDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type productSource interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error)
}

type stockLedger interface {
	Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (int, error)
}

type productFinder struct{}

func (productFinder) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	return products.NewRepository(tx).FindByID(ctx, id)
}

type ledgerEngine struct{}

func (ledgerEngine) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (int, error) {
	return inventory.NewLedger(tx).Decrement(ctx, productID, qty)
}

// Line is one requested {product, quantity, discount} entry.
type Line struct {
	ProductID       uuid.UUID
	Quantity        int
	DiscountPercent decimal.Decimal
}

// Input is a complete fulfillment request.
type Input struct {
	CustomerID uuid.UUID
	Lines      []Line
}

// Result carries the committed order plus any low-stock warnings.
type Result struct {
	Order    *models.Order
	Warnings []string
}

// Service executes order fulfillment: all stock decrements and order rows for
// a request become visible together, or not at all.
type Service interface {
	Fulfill(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	tx        txRunner
	customers customerDirectory
	products  productSource
	ledger    stockLedger
	orders    orders.Repository
	numbers   ordernum.Generator
	metrics   *metrics.FulfillmentMetrics
}

// NewService builds the fulfillment coordinator.
func NewService(
	tx txRunner,
	customers customerDirectory,
	ordersRepo orders.Repository,
	numbers ordernum.Generator,
	fulfillmentMetrics *metrics.FulfillmentMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer directory required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if numbers == nil {
		numbers = ordernum.New()
	}
	return &service{
		tx:        tx,
		customers: customers,
		products:  productFinder{},
		ledger:    ledgerEngine{},
		orders:    ordersRepo,
		numbers:   numbers,
		metrics:   fulfillmentMetrics,
	}, nil
}

func (s *service) Fulfill(ctx context.Context, input Input) (*Result, error) {
	start := time.Now()
	result, err := s.fulfill(ctx, input)
	s.record(time.Since(start), result, err)
	return result, err
}

func (s *service) fulfill(ctx context.Context, input Input) (*Result, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	exists, err := s.customers.Exists(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}

	var result *Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		order, err := ordersRepo.CreateOrder(ctx, &models.Order{
			CustomerID:  input.CustomerID,
			OrderNumber: s.numbers.Next(),
			Price:       decimal.Zero,
		})
		if err != nil {
			return err
		}

		var warnings []string
		items := make([]models.OrderLineItem, 0, len(input.Lines))
		for i, line := range input.Lines {
			// Fresh read inside the transaction; fulfillment decisions never
			// consult a cached stock value.
			product, err := s.products.FindByID(ctx, tx, line.ProductID)
			if err != nil {
				return err
			}

			remaining, err := s.ledger.Decrement(ctx, tx, product.ID, line.Quantity)
			if err != nil {
				return err
			}
			if warning, ok := stockalert.Check(product.Name, remaining); ok {
				warnings = append(warnings, warning)
			}

			lineTotal := pricing.LineTotal(product.Price, line.Quantity, line.DiscountPercent)
			items = append(items, models.OrderLineItem{
				OrderID:      order.ID,
				LineNo:       i + 1,
				ProductID:    product.ID,
				ProductName:  product.Name,
				ProductPrice: product.Price,
				Quantity:     line.Quantity,
				Discount:     line.DiscountPercent,
			})

			order.Price = order.Price.Add(lineTotal)
			order.Quantity += line.Quantity
		}

		if err := ordersRepo.CreateLineItems(ctx, items); err != nil {
			return err
		}
		if err := ordersRepo.SaveOrder(ctx, order); err != nil {
			return err
		}

		committed, err := ordersRepo.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		result = &Result{Order: committed, Warnings: warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateInput(input Input) error {
	details := map[string]string{}
	if input.CustomerID == uuid.Nil {
		details["customer_id"] = "is required"
	}
	if len(input.Lines) == 0 {
		details["products"] = "must contain at least one line"
	}
	for i, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			details[fmt.Sprintf("products.%d.product_id", i)] = "is required"
		}
		if line.Quantity < 1 {
			details[fmt.Sprintf("products.%d.quantity", i)] = "must be at least 1"
		}
		if line.DiscountPercent.IsNegative() || line.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
			details[fmt.Sprintf("products.%d.discount", i)] = "must be between 0 and 100"
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "please enter valid input data").WithDetails(details)
	}
	return nil
}

func (s *service) record(elapsed time.Duration, result *Result, err error) {
	if s.metrics == nil {
		return
	}
	if err == nil {
		s.metrics.ObserveDuration("success", elapsed)
		s.metrics.IncSuccess()
		if result != nil {
			s.metrics.AddLowStockWarnings(len(result.Warnings))
		}
		return
	}
	reason := string(pkgerrors.CodeInternal)
	if typed := pkgerrors.As(err); typed != nil {
		reason = string(typed.Code())
	}
	s.metrics.ObserveDuration("failure", elapsed)
	s.metrics.IncFailure(reason)
}
