package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineItem captures one product entry within an order. ProductName and
// ProductPrice are copied at fulfillment time so later product edits cannot
// rewrite order history.
type OrderLineItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	LineNo       int             `gorm:"column:line_no;not null;default:0" json:"line_no"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	ProductName  string          `gorm:"column:product_name;not null" json:"product_name"`
	ProductPrice decimal.Decimal `gorm:"column:product_price;type:numeric(12,2);not null" json:"product_price"`
	Quantity     int             `gorm:"column:quantity;not null" json:"quantity"`
	Discount     decimal.Decimal `gorm:"column:discount;type:numeric(5,2);not null;default:0" json:"discount"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
