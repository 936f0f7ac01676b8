package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellpoint/pos-backend/pkg/db/models"
	pkgerrors "github.com/sellpoint/pos-backend/pkg/errors"
)

// Ledger holds the authoritative stock counts. Every operation reads and
// writes the currently committed value through the bound connection; callers
// pass a transaction via WithTx so decrements participate in the surrounding
// unit of work.
type Ledger struct {
	db *gorm.DB
}

// NewLedger builds a ledger bound to the provided GORM DB.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a ledger bound to the provided transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	if tx == nil {
		return l
	}
	return &Ledger{db: tx}
}

// GetStock returns the current stock count for the product.
func (l *Ledger) GetStock(ctx context.Context, productID uuid.UUID) (int, error) {
	var stock int
	err := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Select("stock").
		Take(&stock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read stock")
	}
	return stock, nil
}

// Decrement atomically subtracts qty from the product's stock and returns the
// remaining count. The conditional update guards against overselling: under
// concurrent fulfillments the row lock serializes the writes and the
// `stock >= qty` predicate rejects the loser.
func (l *Ledger) Decrement(ctx context.Context, productID uuid.UUID, qty int) (int, error) {
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := l.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, qty, productID, qty)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return 0, l.classifyRejection(ctx, productID)
	}

	// Same transaction, so this observes the decremented value.
	return l.remainingStock(ctx, productID)
}

// Restore adds qty back to the product's stock. Compensation path for callers
// whose storage cannot roll the decrement back natively.
func (l *Ledger) Restore(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	res := l.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (l *Ledger) classifyRejection(ctx context.Context, productID uuid.UUID) error {
	var product models.Product
	err := l.db.WithContext(ctx).
		Select("name", "stock").
		Where("id = ?", productID).
		Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inspect stock")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("%s is out of stock", product.Name))
}

func (l *Ledger) remainingStock(ctx context.Context, productID uuid.UUID) (int, error) {
	var stock int
	err := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Select("stock").
		Take(&stock).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read remaining stock")
	}
	return stock, nil
}
