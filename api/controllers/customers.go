package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sellpoint/pos-backend/api/responses"
	"github.com/sellpoint/pos-backend/internal/customers"
	pkgerrors "github.com/sellpoint/pos-backend/pkg/errors"
	"github.com/sellpoint/pos-backend/pkg/logger"
)

// GetCustomer returns one customer record.
func GetCustomer(repo *customers.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customers repository unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "customerID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "please enter valid input data").
				WithDetails(map[string]string{"customer_id": "must be a valid uuid"}))
			return
		}

		customer, err := repo.FindByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "customer fetched successfully.", map[string]any{"customer": customer})
	}
}
