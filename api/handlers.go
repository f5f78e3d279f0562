/*
handlers.go - HTTP handlers for the utilization report service

PURPOSE:
  Thin HTTP layer over the ingestion pipeline, the stored reports, and the
  manual-override service. Handlers parse the request, delegate, and
  serialize; all business rules live in report/, ingest/, and review/.

ENDPOINTS:
  Ingestion:
    POST   /api/reports/ingest            Upload + ingest a weekly workbook

  Retrieval:
    GET    /api/reports/dates             Available report dates
    GET    /api/reports?date=             One week's records
    GET    /api/reports/export?date=      xlsx download
    GET    /api/reports/leakage?date=     Open / shortfall records
    GET    /api/reports/leakage/export?date=
    GET    /api/summary?date=             Aggregates for one week
    GET    /api/history?resource=&limit=  Audit trail

  Manual overrides:
    POST   /api/reports/{id}/close
    POST   /api/reports/{id}/billable-hours
    POST   /api/reports/{id}/shortfall
    POST   /api/reports/{id}/comments
    POST   /api/reports/{id}/reviewer-comments

ERROR HANDLING:
  Errors map to JSON with an HTTP status derived from the report error
  taxonomy: 400 invalid input, 404 record not found, 409 concurrent
  modification, 422 rejected workbook (bad filename/format/header),
  500 everything else.
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/utilization-engine/ingest"
	"github.com/warp/utilization-engine/report"
	"github.com/warp/utilization-engine/review"
	"github.com/warp/utilization-engine/store/sqlite"
	"github.com/warp/utilization-engine/workbook"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Runner *ingest.Runner
	Review *review.Service
	Logger zerolog.Logger

	MaxUploadBytes int64
}

// NewHandler wires the handler with its collaborators.
func NewHandler(store *sqlite.Store, logger zerolog.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		Store:          store,
		Runner:         ingest.NewRunner(store, logger),
		Review:         review.NewService(store, logger),
		Logger:         logger,
		MaxUploadBytes: maxUploadBytes,
	}
}

// =============================================================================
// INGESTION
// =============================================================================

// IngestReport accepts a multipart upload ("file") and runs the pipeline.
func (h *Handler) IngestReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid upload: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Errorf("missing upload field %q", "file"))
		return
	}
	defer file.Close()

	result, err := h.Runner.RunReader(r.Context(), file, header.Filename)
	if err != nil {
		h.respondError(w, statusFor(err), err)
		return
	}

	open := 0
	for _, rec := range result.Records {
		if rec.Status == report.StatusOpen {
			open++
		}
	}
	h.respondJSON(w, http.StatusCreated, IngestResponse{
		Date:               result.Week.Date.Format(dateParamLayout),
		WeekIndex:          result.Week.WeekIndex,
		RequiredDays:       result.Week.RequiredDays,
		Records:            len(result.Records),
		OpenCases:          open,
		OrgUtilization:     round2(result.OrgUtilization),
		CapableUtilization: round2(result.CapableUtilization),
		SkippedWorkTypes:   result.SkippedWorkTypes,
	})
}

// =============================================================================
// RETRIEVAL
// =============================================================================

func (h *Handler) ListDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.Store.ListDates(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(dateParamLayout))
	}
	h.respondJSON(w, http.StatusOK, map[string][]string{"dates": out})
}

func (h *Handler) GetReports(w http.ResponseWriter, r *http.Request) {
	h.serveRecords(w, r, h.Store.ReportsForDate)
}

func (h *Handler) GetLeakage(w http.ResponseWriter, r *http.Request) {
	h.serveRecords(w, r, h.Store.LeakageForDate)
}

func (h *Handler) serveRecords(w http.ResponseWriter, r *http.Request,
	fetch func(ctx context.Context, date time.Time) ([]report.UtilizationRecord, error)) {

	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}
	records, err := fetch(r.Context(), date)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"date":    date.Format(dateParamLayout),
		"records": toRecordResponses(records),
	})
}

func (h *Handler) ExportReports(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, "Utilization Report", h.Store.ReportsForDate)
}

func (h *Handler) ExportLeakage(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, "Utilization Leakage", h.Store.LeakageForDate)
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}
	records, err := h.Store.ReportsForDate(r.Context(), date)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}

	summary := SummaryResponse{Date: date.Format(dateParamLayout), Records: len(records)}
	totalAdditional := decimal.Zero
	for _, rec := range records {
		if rec.Status == report.StatusOpen {
			summary.OpenCases++
		} else {
			summary.ClosedCases++
		}
		totalAdditional = totalAdditional.Add(rec.AdditionalDays)
	}
	summary.TotalAdditional = round2(totalAdditional)
	if len(records) > 0 {
		summary.OrgUtilization = round2(records[0].OrgUtilization)
		summary.CapableUtilization = round2(records[0].CapableUtilization)
		summary.TotalCapacity = round2(records[0].TotalCapacity)
	}
	h.respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	entries, err := h.Store.AuditTrail(r.Context(), r.URL.Query().Get("resource"), limit)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]AuditResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAuditResponse(e))
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// =============================================================================
// MANUAL OVERRIDES
// =============================================================================

func (h *Handler) CloseCase(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var body closeCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	rec, err := h.Review.CloseCase(r.Context(), id, body.Comment, body.Actor)
	if err != nil {
		h.respondError(w, statusFor(err), err)
		return
	}
	h.respondJSON(w, http.StatusOK, toRecordResponse(*rec))
}

func (h *Handler) UpdateBillableHours(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var body billableHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	rec, err := h.Review.UpdateBillableHours(r.Context(), id,
		decimal.NewFromFloat(body.BillableHours), body.Actor)
	if err != nil {
		h.respondError(w, statusFor(err), err)
		return
	}
	h.respondJSON(w, http.StatusOK, toRecordResponse(*rec))
}

func (h *Handler) SetShortfall(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var body shortfallRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	rec, err := h.Review.SetShortfall(r.Context(), id,
		decimal.NewFromFloat(body.AdditionalDays), body.Actor)
	if err != nil {
		h.respondError(w, statusFor(err), err)
		return
	}
	h.respondJSON(w, http.StatusOK, toRecordResponse(*rec))
}

func (h *Handler) UpdateComments(w http.ResponseWriter, r *http.Request) {
	h.updateComments(w, r, h.Review.UpdateComments)
}

func (h *Handler) UpdateReviewerComments(w http.ResponseWriter, r *http.Request) {
	h.updateComments(w, r, h.Review.UpdateReviewerComments)
}

func (h *Handler) updateComments(w http.ResponseWriter, r *http.Request,
	update func(ctx context.Context, id int64, comments, actor string) (*report.UtilizationRecord, error)) {

	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var body commentsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	rec, err := update(r.Context(), id, body.Comments, body.Actor)
	if err != nil {
		h.respondError(w, statusFor(err), err)
		return
	}
	h.respondJSON(w, http.StatusOK, toRecordResponse(*rec))
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) serveExport(w http.ResponseWriter, r *http.Request, sheetName string,
	fetch func(ctx context.Context, date time.Time) ([]report.UtilizationRecord, error)) {

	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}
	records, err := fetch(r.Context(), date)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if len(records) == 0 {
		h.respondError(w, http.StatusNotFound,
			fmt.Errorf("no records for %s", date.Format(dateParamLayout)))
		return
	}

	f, err := workbook.WriteReport(sheetName, records)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q",
			fmt.Sprintf("utilization_%s.xlsx", date.Format(dateParamLayout))))
	if err := f.Write(w); err != nil {
		h.Logger.Error().Err(err).Msg("failed to stream export")
	}
}

func (h *Handler) dateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		h.respondError(w, http.StatusBadRequest, fmt.Errorf("missing required query parameter %q", "date"))
		return time.Time{}, false
	}
	date, err := time.Parse(dateParamLayout, raw)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw))
		return time.Time{}, false
	}
	return date, true
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid record id %q", raw))
		return 0, false
	}
	return id, true
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.Logger.Error().Err(err).Msg("request failed")
	}
	h.respondJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps the report error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case report.IsNotFound(err):
		return http.StatusNotFound
	case report.IsConflict(err):
		return http.StatusConflict
	case report.IsFatal(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
