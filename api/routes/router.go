package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/introcar/introcar-backend/api/controllers"
	cartcontrollers "github.com/introcar/introcar-backend/api/controllers/cart"
	"github.com/introcar/introcar-backend/api/middleware"
	"github.com/introcar/introcar-backend/internal/cart"
	checkoutsvc "github.com/introcar/introcar-backend/internal/checkout"
	"github.com/introcar/introcar-backend/internal/cms"
	"github.com/introcar/introcar-backend/internal/fitment"
	"github.com/introcar/introcar-backend/internal/products"
	"github.com/introcar/introcar-backend/internal/search"
	"github.com/introcar/introcar-backend/internal/supersession"
	"github.com/introcar/introcar-backend/internal/tenants"
	squarewebhook "github.com/introcar/introcar-backend/internal/webhooks/square"
	"github.com/introcar/introcar-backend/pkg/auth"
	"github.com/introcar/introcar-backend/pkg/config"
	"github.com/introcar/introcar-backend/pkg/logger"
	"github.com/introcar/introcar-backend/pkg/metrics"
	pkgredis "github.com/introcar/introcar-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// redisStore is the Redis surface the HTTP layer needs for idempotency and
// rate limiting.
type redisStore interface {
	pkgredis.IdempotencyStore
	pinger
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       pinger
	Redis    redisStore
	Registry prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics

	Resolver      fitment.Resolver
	Syncer        *fitment.Syncer
	Fitments      fitment.Service
	Supersessions supersession.Service
	Products      products.AdminService
	Search        search.Service
	Tenants       tenants.Service
	CMS           cms.Service
	Cart          cart.Service
	Checkout      checkoutsvc.Service
	SquareWebhook controllers.SquareWebhookService
	WebhookGuard  controllers.WebhookGuard
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS),
		middleware.Logging(logg, d.HTTP),
	)

	lookupPolicy := middleware.NewRateLimitPolicy(
		"chassis-lookup",
		cfg.RateLimit.ChassisLookupWindow,
		cfg.RateLimit.ChassisLookupIPLimit,
	)
	var idempotencyStore pkgredis.IdempotencyStore
	if d.Redis != nil {
		idempotencyStore = d.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis, func() int {
			return d.Resolver.Catalog().Len()
		}))
	})
	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Tenant(d.Tenants, logg))
		r.Use(middleware.CartSession(logg))

		r.Get("/chassis", controllers.ChassisRange(d.Resolver, logg))
		r.With(middleware.RateLimit(lookupPolicy, d.Redis, logg)).
			Get("/chassis-lookup", controllers.ChassisLookup(d.Resolver, logg))
		r.Get("/products", controllers.ProductSearch(d.Search, logg))
		r.Get("/related-parts", controllers.RelatedParts(d.Search, logg))

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/makes", controllers.VehicleMakes(d.Resolver))
			r.Get("/models", controllers.VehicleModels(d.Resolver, logg))
			r.Get("/years", controllers.VehicleYears(d.Resolver, logg))
		})

		r.Get("/tenants/{slug}", controllers.TenantConfig(d.Tenants, logg))
		r.Get("/pages/{slug}", controllers.PublishedPage(d.CMS, logg))
		r.Get("/videos", controllers.ActiveVideos(d.CMS, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(d.Cart, logg))
			r.Delete("/", cartcontrollers.CartClear(d.Cart, logg))
			r.Post("/items", cartcontrollers.CartAddItem(d.Cart, logg))
			r.Patch("/items/{sku}", cartcontrollers.CartUpdateItem(d.Cart, logg))
			r.Delete("/items/{sku}", cartcontrollers.CartRemoveItem(d.Cart, logg))
		})

		r.With(middleware.Idempotency(idempotencyStore, logg)).
			Post("/checkout", controllers.Checkout(d.Checkout, logg))
		r.With(middleware.Idempotency(idempotencyStore, logg)).
			Post("/reseller/checkout", controllers.ResellerCheckout(d.Checkout, logg))
	})

	r.Post("/api/webhooks/square", controllers.SquareWebhook(d.SquareWebhook, squarewebhook.Verifier{
		SignatureKey:    cfg.Square.WebhookSignatureKey,
		NotificationURL: cfg.Square.WebhookURL,
	}, d.WebhookGuard, logg))

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminJWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin, logg))

			r.Route("/fitments", func(r chi.Router) {
				r.Get("/", controllers.AdminFitmentList(d.Fitments, logg))
				r.Post("/", controllers.AdminFitmentCreate(d.Fitments, logg))
				r.With(middleware.Idempotency(idempotencyStore, logg)).
					Post("/import", controllers.AdminFitmentImport(d.Fitments, logg))
				r.Get("/{fitmentId}", controllers.AdminFitmentGet(d.Fitments, logg))
				r.Put("/{fitmentId}", controllers.AdminFitmentUpdate(d.Fitments, logg))
				r.Delete("/{fitmentId}", controllers.AdminFitmentDelete(d.Fitments, logg))
			})
			r.Route("/boundaries", func(r chi.Router) {
				r.Get("/", controllers.AdminBoundaryList(d.Fitments, logg))
				r.Put("/", controllers.AdminBoundarySet(d.Fitments, logg))
				r.Delete("/{make}/{model}/{year}", controllers.AdminBoundaryDelete(d.Fitments, logg))
			})
			r.Route("/supersessions", func(r chi.Router) {
				r.Get("/", controllers.AdminSupersessionList(d.Supersessions, logg))
				r.Post("/", controllers.AdminSupersessionCreate(d.Supersessions, logg))
				r.Put("/{oldSku}", controllers.AdminSupersessionUpdate(d.Supersessions, logg))
				r.Delete("/{oldSku}", controllers.AdminSupersessionDelete(d.Supersessions, logg))
			})
			r.Route("/products", func(r chi.Router) {
				r.Put("/", controllers.AdminProductUpsert(d.Products, logg))
				r.Get("/{sku}", controllers.AdminProductGet(d.Products, logg))
				r.Put("/{sku}/tags", controllers.AdminProductTags(d.Products, logg))
			})
			r.Route("/tenants", func(r chi.Router) {
				r.Get("/", controllers.AdminTenantList(d.Tenants, logg))
				r.Post("/", controllers.AdminTenantCreate(d.Tenants, logg))
				r.Get("/{tenantId}", controllers.AdminTenantGet(d.Tenants, logg))
				r.Put("/{tenantId}", controllers.AdminTenantUpdate(d.Tenants, logg))
				r.Delete("/{tenantId}", controllers.AdminTenantDelete(d.Tenants, logg))
			})
			r.Post("/catalog/reload", controllers.AdminCatalogReload(d.Syncer, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleEditor, logg))

			r.Route("/pages", func(r chi.Router) {
				r.Get("/", controllers.AdminPageList(d.CMS, logg))
				r.Post("/", controllers.AdminPageCreate(d.CMS, logg))
				r.Put("/{pageId}", controllers.AdminPageUpdate(d.CMS, logg))
				r.Delete("/{pageId}", controllers.AdminPageDelete(d.CMS, logg))
			})
			r.Route("/videos", func(r chi.Router) {
				r.Get("/", controllers.AdminVideoList(d.CMS, logg))
				r.Post("/", controllers.AdminVideoCreate(d.CMS, logg))
				r.Put("/{videoId}", controllers.AdminVideoUpdate(d.CMS, logg))
				r.Delete("/{videoId}", controllers.AdminVideoDelete(d.CMS, logg))
			})
		})
	})

	return r
}
