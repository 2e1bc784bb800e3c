package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/arden-atelier/orderdesk/internal/store"
)

const (
	ActionOrderCreated             = "orders.create"
	ActionOrderStatusChanged       = "orders.status_changed"
	ActionActualQuantitiesRecorded = "orders.actual_quantity_updated"
	ActionOrdersExported           = "export.download"
	ActionRemindersSent            = "reminders.sent"

	EntityOrder     = "order"
	EntityImportRun = "import_run"
	EntityReminder  = "reminder"

	SourceAPI = "api"
	SourceCLI = "cli"
)

// ImportAction names an import lifecycle event, e.g. import.dry_run_started
// or import.apply_completed.
func ImportAction(mode, phase string) string {
	return "import." + mode + "_" + phase
}

type Writer interface {
	InsertAuditLog(ctx context.Context, params store.InsertAuditLogParams) error
}

// Logger records who changed which order data and from where. Entries are
// append-only rows in audit_logs.
type Logger struct {
	w Writer
}

func NewLogger(w Writer) *Logger {
	return &Logger{w: w}
}

type Entry struct {
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	RequestID  string
	// Source is stored in metadata; empty means api.
	Source   string
	Metadata map[string]any
}

func (l *Logger) Log(ctx context.Context, entry Entry) error {
	params, err := entry.params()
	if err != nil {
		return err
	}
	if err := l.w.InsertAuditLog(ctx, params); err != nil {
		return fmt.Errorf("insert audit log %s: %w", entry.Action, err)
	}
	return nil
}

// LogEach writes one entry per id, sharing action and metadata. A failed row
// does not stop the rest; the failures come back joined.
func (l *Logger) LogEach(ctx context.Context, entry Entry, ids []uuid.UUID) error {
	var errs []error
	for _, id := range ids {
		e := entry
		e.EntityID = &id
		if err := l.Log(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e Entry) params() (store.InsertAuditLogParams, error) {
	meta := make(map[string]any, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	if e.Source != "" && e.Source != SourceAPI {
		meta["source"] = e.Source
	}

	encoded := []byte("{}")
	if len(meta) > 0 {
		b, err := json.Marshal(meta)
		if err != nil {
			return store.InsertAuditLogParams{}, fmt.Errorf("marshal audit metadata: %w", err)
		}
		encoded = b
	}

	params := store.InsertAuditLogParams{
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Metadata:   encoded,
	}
	if e.RequestID != "" {
		params.RequestID = &e.RequestID
	}
	return params, nil
}
