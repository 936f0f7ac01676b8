package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sellpoint/pos-backend/api/responses"
	"github.com/sellpoint/pos-backend/internal/products"
	pkgerrors "github.com/sellpoint/pos-backend/pkg/errors"
	"github.com/sellpoint/pos-backend/pkg/logger"
)

// ListProducts returns the catalog ordered by name.
func ListProducts(repo *products.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products repository unavailable"))
			return
		}

		list, err := repo.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "products fetched successfully.", map[string]any{"products": list})
	}
}

// GetProduct returns one product with its live stock count.
func GetProduct(repo *products.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products repository unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "please enter valid input data").
				WithDetails(map[string]string{"product_id": "must be a valid uuid"}))
			return
		}

		product, err := repo.FindByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "product fetched successfully.", map[string]any{"product": product})
	}
}
