package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellpoint/pos-backend/api/responses"
	"github.com/sellpoint/pos-backend/api/validators"
	"github.com/sellpoint/pos-backend/internal/fulfillment"
	ordersvc "github.com/sellpoint/pos-backend/internal/orders"
	"github.com/sellpoint/pos-backend/pkg/db/models"
	pkgerrors "github.com/sellpoint/pos-backend/pkg/errors"
	"github.com/sellpoint/pos-backend/pkg/logger"
	"github.com/sellpoint/pos-backend/pkg/pagination"
)

// CreateOrder handles multi-line order submission at the register.
func CreateOrder(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Fulfill(r.Context(), newFulfillmentInput(payload))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, "product created successfully.", newOrderCreatedResponse(result))
	}
}

// ListOrders returns the order history, newest first, with cursor pagination.
func ListOrders(repo ordersvc.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders repository unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := repo.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "orders fetched successfully.", list)
	}
}

// GetOrder returns one order with its line items and customer.
func GetOrder(repo ordersvc.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders repository unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "please enter valid input data").
				WithDetails(map[string]string{"order_id": "must be a valid uuid"}))
			return
		}

		order, err := repo.FindByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "order fetched successfully.", map[string]any{"order": newOrderResponse(order)})
	}
}

type createOrderRequest struct {
	CustomerID uuid.UUID          `json:"customer_id" validate:"required"`
	Products   []orderLineRequest `json:"products" validate:"required,min=1,dive"`
}

type orderLineRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	Discount  decimal.Decimal `json:"discount"`
}

func newFulfillmentInput(payload createOrderRequest) fulfillment.Input {
	lines := make([]fulfillment.Line, 0, len(payload.Products))
	for _, p := range payload.Products {
		lines = append(lines, fulfillment.Line{
			ProductID:       p.ProductID,
			Quantity:        p.Quantity,
			DiscountPercent: p.Discount,
		})
	}
	return fulfillment.Input{CustomerID: payload.CustomerID, Lines: lines}
}

type orderResponse struct {
	ID          uuid.UUID          `json:"id"`
	OrderNumber string             `json:"order_number"`
	CustomerID  uuid.UUID          `json:"customer_id"`
	Customer    *customerResponse  `json:"customer,omitempty"`
	Price       decimal.Decimal    `json:"price"`
	Quantity    int                `json:"quantity"`
	Items       []lineItemResponse `json:"items"`
	CreatedAt   time.Time          `json:"created_at"`
}

type lineItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     int             `json:"quantity"`
	Discount     decimal.Decimal `json:"discount"`
}

type customerResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
}

func newOrderCreatedResponse(result *fulfillment.Result) map[string]any {
	if result == nil {
		return map[string]any{}
	}
	data := map[string]any{"order": newOrderResponse(result.Order)}
	if len(result.Warnings) > 0 {
		data["low_stock_warnings"] = result.Warnings
	}
	return data
}

func newOrderResponse(order *models.Order) *orderResponse {
	if order == nil {
		return nil
	}
	items := make([]lineItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, lineItemResponse{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductPrice: item.ProductPrice,
			Quantity:     item.Quantity,
			Discount:     item.Discount,
		})
	}
	resp := &orderResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Price:       order.Price,
		Quantity:    order.Quantity,
		Items:       items,
		CreatedAt:   order.CreatedAt,
	}
	if order.Customer != nil {
		resp.Customer = &customerResponse{
			ID:        order.Customer.ID,
			FirstName: order.Customer.FirstName,
			LastName:  order.Customer.LastName,
			Email:     order.Customer.Email,
			Phone:     order.Customer.Phone,
		}
	}
	return resp
}
