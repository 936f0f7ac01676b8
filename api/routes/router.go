package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sellpoint/pos-backend/api/controllers"
	"github.com/sellpoint/pos-backend/api/middleware"
	"github.com/sellpoint/pos-backend/internal/customers"
	"github.com/sellpoint/pos-backend/internal/fulfillment"
	"github.com/sellpoint/pos-backend/internal/orders"
	"github.com/sellpoint/pos-backend/internal/products"
	"github.com/sellpoint/pos-backend/pkg/config"
	"github.com/sellpoint/pos-backend/pkg/db"
	"github.com/sellpoint/pos-backend/pkg/enums"
	"github.com/sellpoint/pos-backend/pkg/logger"
	"github.com/sellpoint/pos-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config             *config.Config
	Logger             *logger.Logger
	DB                 db.Pinger
	Redis              *redis.Client
	FulfillmentService fulfillment.Service
	OrdersRepo         orders.Repository
	ProductsRepo       *products.Repository
	CustomersRepo      *customers.Repository
	MetricsGatherer    prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		staff := []string{
			string(enums.StaffRoleAdmin),
			string(enums.StaffRoleManager),
			string(enums.StaffRoleCashier),
		}
		managers := []string{
			string(enums.StaffRoleAdmin),
			string(enums.StaffRoleManager),
		}

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, staff...)).Post("/", controllers.CreateOrder(deps.FulfillmentService, logg))
			r.With(middleware.RequireRole(logg, managers...)).Get("/", controllers.ListOrders(deps.OrdersRepo, logg))
			r.With(middleware.RequireRole(logg, staff...)).Get("/{orderID}", controllers.GetOrder(deps.OrdersRepo, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, staff...)).Get("/", controllers.ListProducts(deps.ProductsRepo, logg))
			r.With(middleware.RequireRole(logg, staff...)).Get("/{productID}", controllers.GetProduct(deps.ProductsRepo, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, staff...)).Get("/{customerID}", controllers.GetCustomer(deps.CustomersRepo, logg))
		})
	})

	return r
}
