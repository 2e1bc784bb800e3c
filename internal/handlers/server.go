package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/arden-atelier/orderdesk/internal/audit"
	"github.com/arden-atelier/orderdesk/internal/config"
	"github.com/arden-atelier/orderdesk/internal/httpx"
	"github.com/arden-atelier/orderdesk/internal/middleware"
	"github.com/arden-atelier/orderdesk/internal/notify"
	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/arden-atelier/orderdesk/internal/store"
	"github.com/arden-atelier/orderdesk/internal/tabular"
)

type Server struct {
	Config   config.Config
	Store    store.Store
	Engine   *orders.Engine
	Notifier *notify.Telegram
	Audit    *audit.Logger
	Logger   *slog.Logger
}

func NewServer(cfg config.Config, st store.Store, engine *orders.Engine, notifier *notify.Telegram, auditLogger *audit.Logger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Config: cfg, Store: st, Engine: engine, Notifier: notifier, Audit: auditLogger, Logger: logger}
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type appError struct {
	Status  int
	Code    string
	Message string
	Details any
}

// writeDomainError maps engine and store errors onto the API envelope.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		validation   *orders.ValidationError
		precondition *orders.PreconditionError
		exhausted    *orders.CodeExhaustedError
		conflict     *orders.ConflictError
		decodeErr    *tabular.Error
	)
	switch {
	case errors.As(err, &validation):
		details := map[string]any{}
		if validation.Field != "" {
			details["field"] = validation.Field
		}
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", validation.Error(), details)
	case errors.As(err, &precondition):
		httpx.WriteError(w, http.StatusBadRequest, "precondition_failed", precondition.Message, nil)
	case errors.Is(err, orders.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Resource was not found", nil)
	case errors.As(err, &exhausted):
		httpx.WriteError(w, http.StatusConflict, "order_code_exhausted", exhausted.Error(), map[string]any{"lastCode": exhausted.LastCode})
	case errors.As(err, &conflict):
		httpx.WriteError(w, http.StatusConflict, "conflict", conflict.Error(), map[string]any{"constraint": conflict.Constraint})
	case errors.As(err, &decodeErr):
		httpx.WriteError(w, http.StatusBadRequest, decodeErr.Code, decodeErr.Message, decodeErr.Details)
	default:
		middleware.LoggerFromContext(r.Context()).Error("request_failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func (s *Server) audit(r *http.Request, entry audit.Entry) {
	if s.Audit == nil {
		return
	}
	entry.RequestID = middleware.RequestIDFromContext(r.Context())
	if err := s.Audit.Log(r.Context(), entry); err != nil {
		middleware.LoggerFromContext(r.Context()).Warn("audit_failed", "action", entry.Action, "error", err)
	}
}

func (s *Server) auditEach(r *http.Request, entry audit.Entry, ids []uuid.UUID) {
	if s.Audit == nil || len(ids) == 0 {
		return
	}
	entry.RequestID = middleware.RequestIDFromContext(r.Context())
	if err := s.Audit.LogEach(r.Context(), entry, ids); err != nil {
		middleware.LoggerFromContext(r.Context()).Warn("audit_failed", "action", entry.Action, "error", err)
	}
}
