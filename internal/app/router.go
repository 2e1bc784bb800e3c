package app

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	openapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/arden-atelier/orderdesk/internal/audit"
	"github.com/arden-atelier/orderdesk/internal/config"
	"github.com/arden-atelier/orderdesk/internal/handlers"
	"github.com/arden-atelier/orderdesk/internal/httpx"
	"github.com/arden-atelier/orderdesk/internal/middleware"
	"github.com/arden-atelier/orderdesk/internal/notify"
	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/arden-atelier/orderdesk/internal/store"
)

//go:embed openapi.yaml
var openapiSpec []byte

func LoadSpec() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}
	return doc, nil
}

// NewEngine builds the order engine from configuration.
func NewEngine(cfg config.Config, st orders.Store, logger *slog.Logger) *orders.Engine {
	return orders.NewEngine(st, orders.Options{
		CodePrefix:    cfg.OrderCodePrefix,
		CodeAttempts:  cfg.OrderCodeAttempts,
		ImportWorkers: cfg.ImportWorkers,
		CallTimeout:   cfg.StoreCallTimeout,
		Now:           cfg.Now,
		Logger:        logger,
	})
}

// NewNotifier returns a Telegram client; it reports Configured() == false
// when no token or chat ids are set.
func NewNotifier(cfg config.Config, logger *slog.Logger) *notify.Telegram {
	return notify.NewTelegram(notify.TelegramConfig{
		Token:   cfg.TelegramToken,
		ChatIDs: cfg.TelegramChatIDs,
		BaseURL: cfg.TelegramBaseURL,
		Retries: 2,
	}, logger)
}

func NewRouter(cfg config.Config, st store.Store, notifier *notify.Telegram, logger *slog.Logger) (http.Handler, error) {
	doc, err := LoadSpec()
	if err != nil {
		return nil, err
	}

	engine := NewEngine(cfg, st, logger)
	h := handlers.NewServer(cfg, st, engine, notifier, audit.NewLogger(st), logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.Env))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.LimitBodyBytesWithOverrides(cfg.APIMaxBodyBytes, []middleware.BodyLimitOverride{
		{PathPrefix: "/imports", MaxBytes: cfg.ImportMaxFileBytes + 1<<20},
	}))

	importLimiter := middleware.NewIPRateLimiterWithMaxEntries(cfg.ImportRateLimit, time.Minute, cfg.RateLimitMaxIPs)
	reminderLimiter := middleware.NewIPRateLimiterWithMaxEntries(6, time.Minute, cfg.RateLimitMaxIPs)

	r.Route("/api", func(api chi.Router) {
		// Multipart uploads are checked by the handler itself.
		api.With(importLimiter.Middleware("Too many imports, try again in a minute")).Post("/imports", h.PostImports)

		api.Group(func(v chi.Router) {
			if cfg.OpenAPIValidate {
				v.Use(openapimiddleware.OapiRequestValidatorWithOptions(doc, &openapimiddleware.Options{
					SilenceServersWarning: true,
					ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
						httpx.WriteError(w, statusCode, "validation_error", message, nil)
					},
				}))
			}

			v.Get("/health", h.GetHealth)

			v.Get("/orders", func(w http.ResponseWriter, r *http.Request) {
				params, err := bindGetOrdersParams(r)
				if err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "invalid_query", err.Error(), nil)
					return
				}
				h.GetOrders(w, r, params)
			})
			v.Post("/orders", h.PostOrders)
			v.Post("/orders/bulk-status", h.PostOrdersBulkStatus)
			v.Post("/orders/export", h.PostOrdersExport)
			v.Get("/orders/{orderId}", withUUIDParam("orderId", h.GetOrdersOrderId))
			v.Put("/orders/{orderId}/actual-quantities", withUUIDParam("orderId", h.PutOrdersOrderIdActualQuantities))
			v.Get("/order-codes/next", h.GetOrderCodesNext)
			v.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
				var params handlers.GetStatsParams
				if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &params.Period); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "invalid_query", fmt.Sprintf("invalid format for parameter period: %v", err), nil)
					return
				}
				h.GetStats(w, r, params)
			})

			v.Get("/imports/template.csv", h.GetImportsTemplateCsv)
			v.Get("/imports/{importRunId}", withUUIDParam("importRunId", h.GetImportsImportRunId))

			v.Get("/reminders", h.GetReminders)
			v.With(reminderLimiter.Middleware("Too many reminder sends")).Post("/reminders/send", h.PostRemindersSend)
		})
	})

	return r, nil
}

func withUUIDParam(name string, next func(http.ResponseWriter, *http.Request, openapi_types.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id openapi_types.UUID
		err := runtime.BindStyledParameterWithLocation("simple", false, name, runtime.ParamLocationPath, chi.URLParam(r, name), &id)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_path_param", fmt.Sprintf("Invalid format for parameter %s", name), nil)
			return
		}
		next(w, r, id)
	}
}

func bindGetOrdersParams(r *http.Request) (handlers.GetOrdersParams, error) {
	var params handlers.GetOrdersParams
	query := r.URL.Query()
	binds := []struct {
		name string
		dest any
	}{
		{"status", &params.Status},
		{"customerId", &params.CustomerId},
		{"q", &params.Q},
		{"orderFrom", &params.OrderFrom},
		{"orderTo", &params.OrderTo},
		{"dueFrom", &params.DueFrom},
		{"dueTo", &params.DueTo},
		{"page", &params.Page},
		{"pageSize", &params.PageSize},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, query, b.dest); err != nil {
			return params, fmt.Errorf("invalid format for parameter %s: %w", b.name, err)
		}
	}
	return params, nil
}
