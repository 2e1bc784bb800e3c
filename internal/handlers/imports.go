package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/arden-atelier/orderdesk/internal/audit"
	"github.com/arden-atelier/orderdesk/internal/httpx"
	"github.com/arden-atelier/orderdesk/internal/middleware"
	"github.com/arden-atelier/orderdesk/internal/orders"
	"github.com/arden-atelier/orderdesk/internal/store"
	"github.com/arden-atelier/orderdesk/internal/tabular"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

type importMode string

const (
	importModeDryRun importMode = "dry_run"
	importModeApply  importMode = "apply"
)

const (
	importStatusCompleted  = "completed"
	importStatusWithErrors = "completed_with_errors"
)

type importUpload struct {
	filename string
	data     []byte
	mode     importMode
	sheet    string
}

// PostImports decodes an uploaded sheet and either previews the grouping
// (dryRun=true) or reconciles it into the store. Every attempt is stored as
// an import run with its report.
func (s *Server) PostImports(w http.ResponseWriter, r *http.Request) {
	upload, appErr := parseImportUpload(r, s.Config.ImportMaxFileBytes)
	if appErr != nil {
		httpx.WriteError(w, appErr.Status, appErr.Code, appErr.Message, appErr.Details)
		return
	}

	file, err := tabular.Decode(upload.filename, upload.data, tabular.Options{
		MaxRows: s.Config.ImportMaxRows,
		Sheet:   upload.sheet,
	})
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to read upload")
		return
	}

	logger := middleware.LoggerFromContext(r.Context())
	requestID := middleware.RequestIDFromContext(r.Context())
	startAction := audit.ImportAction(string(upload.mode), "started")
	completeAction := audit.ImportAction(string(upload.mode), "completed")
	s.audit(r, audit.Entry{
		Action:     startAction,
		EntityType: audit.EntityImportRun,
		Metadata: map[string]any{
			"filename":   file.Filename,
			"fileSha256": file.SHA256,
			"rows":       len(file.Rows),
		},
	})

	var (
		report any
		lines  []string
		status = importStatusCompleted
	)
	if upload.mode == importModeApply {
		result := s.Engine.Reconciler.Reconcile(r.Context(), file.Rows)
		if result.Skipped > 0 || result.Partial > 0 {
			status = importStatusWithErrors
		}
		report = result
		lines = result.Lines()
		logger.Info("import_applied",
			"filename", file.Filename,
			"groups", result.GroupsFound,
			"imported", result.Imported,
			"skipped", result.Skipped,
			"partial", result.Partial,
		)
	} else {
		plan := orders.Plan(file.Rows)
		for _, group := range plan.Groups {
			if group.Problem != "" {
				status = importStatusWithErrors
				break
			}
		}
		report = plan
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to encode import report", nil)
		return
	}

	params := store.CreateImportRunParams{
		Filename:   file.Filename,
		FileSHA256: file.SHA256,
		Mode:       string(upload.mode),
		Status:     status,
		Report:     reportJSON,
	}
	if requestID != "" {
		params.RequestID = &requestID
	}
	run, err := s.Store.CreateImportRun(r.Context(), params)
	if err != nil {
		// Rows may already be written; the report is still returned.
		logger.Error("import_run_save_failed", "filename", file.Filename, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to save import run", map[string]any{"report": report})
		return
	}

	runID := run.ID
	s.audit(r, audit.Entry{
		Action:     completeAction,
		EntityType: audit.EntityImportRun,
		EntityID:   &runID,
		Metadata:   map[string]any{"status": status},
	})

	httpx.WriteJSON(w, http.StatusOK, ImportRunResponse{
		Id:         run.ID,
		Filename:   run.Filename,
		FileSha256: run.FileSHA256,
		Mode:       run.Mode,
		Status:     run.Status,
		CreatedAt:  run.CreatedAt.UTC(),
		Report:     report,
		Lines:      lines,
		RequestId:  requestID,
	})
}

func (s *Server) GetImportsImportRunId(w http.ResponseWriter, r *http.Request, importRunId openapi_types.UUID) {
	run, err := s.Store.GetImportRun(r.Context(), importRunId)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "import_run_not_found", "Import run not found", nil)
			return
		}
		s.writeDomainError(w, r, err, "Failed to load import run")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, ImportRunResponse{
		Id:         run.ID,
		Filename:   run.Filename,
		FileSha256: run.FileSHA256,
		Mode:       run.Mode,
		Status:     run.Status,
		CreatedAt:  run.CreatedAt.UTC(),
		Report:     json.RawMessage(run.Report),
		RequestId:  middleware.RequestIDFromContext(r.Context()),
	})
}

func (s *Server) GetImportsTemplateCsv(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := tabular.WriteTemplateCSV(&buf); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to build template", nil)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\"orders-template.csv\"")
	_, _ = w.Write(buf.Bytes())
}

func parseImportUpload(r *http.Request, maxBytes int64) (importUpload, *appError) {
	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		return importUpload{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_content_type",
			Message: "Content-Type must be multipart/form-data",
		}
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return importUpload{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_multipart",
			Message: "Failed to parse multipart form",
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return importUpload{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "missing_file",
			Message: "file is required",
		}
	}
	defer file.Close()

	mode := importModeApply
	if raw := strings.TrimSpace(r.FormValue("dryRun")); raw != "" {
		dryRun, err := strconv.ParseBool(raw)
		if err != nil {
			return importUpload{}, &appError{
				Status:  http.StatusBadRequest,
				Code:    "validation_error",
				Message: "dryRun must be true or false",
			}
		}
		if dryRun {
			mode = importModeDryRun
		}
	}

	if _, err := tabular.FormatFromFilename(header.Filename); err != nil {
		return importUpload{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_file_type",
			Message: err.Error(),
			Details: map[string]any{"filename": header.Filename},
		}
	}

	limit := maxBytes
	if limit <= 0 {
		limit = 25 << 20
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return importUpload{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_file",
			Message: "Failed to read uploaded file",
		}
	}
	if int64(len(data)) > limit {
		return importUpload{}, &appError{
			Status:  http.StatusRequestEntityTooLarge,
			Code:    "file_too_large",
			Message: fmt.Sprintf("file exceeds %d bytes", limit),
		}
	}

	return importUpload{
		filename: header.Filename,
		data:     data,
		mode:     mode,
		sheet:    strings.TrimSpace(r.FormValue("sheet")),
	}, nil
}
