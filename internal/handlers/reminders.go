package handlers

import (
	"errors"
	"net/http"

	"github.com/arden-atelier/orderdesk/internal/audit"
	"github.com/arden-atelier/orderdesk/internal/httpx"
	"github.com/arden-atelier/orderdesk/internal/notify"
)

func (s *Server) GetReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.Engine.Reminders(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to load reminders")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ReminderList{GeneratedAt: s.Engine.Now(), Reminders: reminders})
}

// PostRemindersSend pushes the current reminder digest to every configured
// Telegram chat. Per-chat failures are part of the report, not an error.
func (s *Server) PostRemindersSend(w http.ResponseWriter, r *http.Request) {
	if s.Notifier == nil || !s.Notifier.Configured() {
		httpx.WriteError(w, http.StatusServiceUnavailable, "notifier_not_configured", notify.ErrNotConfigured.Error(), nil)
		return
	}

	reminders, err := s.Engine.Reminders(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to load reminders")
		return
	}

	report, err := s.Notifier.SendReminders(r.Context(), reminders, s.Engine.Now())
	if err != nil {
		if errors.Is(err, notify.ErrNotConfigured) {
			httpx.WriteError(w, http.StatusServiceUnavailable, "notifier_not_configured", err.Error(), nil)
			return
		}
		s.writeDomainError(w, r, err, "Failed to send reminders")
		return
	}

	s.audit(r, audit.Entry{
		Action:     audit.ActionRemindersSent,
		EntityType: audit.EntityReminder,
		Metadata: map[string]any{
			"reminders": report.Reminders,
			"sent":      report.Sent,
			"failed":    report.Failed,
		},
	})
	httpx.WriteJSON(w, http.StatusOK, report)
}
