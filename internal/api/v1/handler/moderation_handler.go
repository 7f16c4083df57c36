package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ModerationHandler handles report filing plus the admin moderation surface.
type ModerationHandler struct {
	moderationSvc service.ModerationService
	validate      *validator.Validate
	logger        zerolog.Logger
}

func NewModerationHandler(moderationSvc service.ModerationService, v *validator.Validate, logger zerolog.Logger) *ModerationHandler {
	return &ModerationHandler{moderationSvc: moderationSvc, validate: v, logger: logger}
}

// RegisterRoutes mounts v1 moderation routes
func (h *ModerationHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/reports", authMw(http.HandlerFunc(h.handleReports)))
	mux.Handle("/reports/", authMw(http.HandlerFunc(h.resolveReport)))
	mux.Handle("/admin/suspend", authMw(http.HandlerFunc(h.suspend)))
	mux.Handle("/admin/reinstate", authMw(http.HandlerFunc(h.reinstate)))
	mux.Handle("/admin/ban", authMw(http.HandlerFunc(h.ban)))
}

func (h *ModerationHandler) handleReports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.fileReport(w, r)
	case http.MethodGet:
		h.listReports(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ModerationHandler) fileReport(w http.ResponseWriter, r *http.Request) {
	reporterID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || reporterID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.ReportCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.moderationSvc.FileReport(r.Context(), reporterID, req.ReportedUserID, req.Reason, req.Details)
	if err != nil {
		http.Error(w, "Failed to file report: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toReportDTO(report))
}

func toReportDTO(report *model.Report) dto.ReportResponseDTO {
	return dto.ReportResponseDTO{
		ID:             report.ID,
		ReporterID:     report.ReporterID,
		ReportedUserID: report.ReportedUserID,
		Reason:         report.Reason,
		Details:        report.Details,
		Status:         string(report.Status),
		CreatedAt:      report.CreatedAt,
	}
}

func (h *ModerationHandler) listReports(w http.ResponseWriter, r *http.Request) {
	adminID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || adminID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	status := model.ReportStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = model.ReportPending
	}

	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	reports, err := h.moderationSvc.ListReports(r.Context(), adminID, status, limit, offset)
	if err != nil {
		if errors.Is(err, service.ErrNotAdmin) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		http.Error(w, "Failed to list reports: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var reportDTOs []dto.ReportResponseDTO
	for i := range reports {
		reportDTOs = append(reportDTOs, toReportDTO(&reports[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reportDTOs)
}

func (h *ModerationHandler) resolveReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	adminID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || adminID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	reportID := strings.TrimPrefix(r.URL.Path, "/reports/")
	if reportID == "" || strings.Contains(reportID, "/") {
		http.NotFound(w, r)
		return
	}

	var req dto.ReportResolveDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.moderationSvc.ResolveReport(r.Context(), adminID, reportID, model.ReportStatus(req.Status)); err != nil {
		if errors.Is(err, service.ErrNotAdmin) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		http.Error(w, "Failed to resolve report: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ModerationHandler) suspend(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, func(adminID string, req dto.SuspendDTO) error {
		return h.moderationSvc.SuspendProfile(r.Context(), adminID, req.UserID, req.Reason)
	})
}

func (h *ModerationHandler) reinstate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	adminID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || adminID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req struct {
		UserID string `json:"user_id" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.moderationSvc.ReinstateProfile(r.Context(), adminID, req.UserID); err != nil {
		if errors.Is(err, service.ErrNotAdmin) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		http.Error(w, "Failed to reinstate profile: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ModerationHandler) ban(w http.ResponseWriter, r *http.Request) {
	h.adminAction(w, r, func(adminID string, req dto.SuspendDTO) error {
		return h.moderationSvc.BanUser(r.Context(), adminID, req.UserID, req.Reason)
	})
}

// adminAction factors the shared decode/validate/authorize shape of the
// suspend and ban endpoints.
func (h *ModerationHandler) adminAction(w http.ResponseWriter, r *http.Request, action func(adminID string, req dto.SuspendDTO) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	adminID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || adminID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.SuspendDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := action(adminID, req); err != nil {
		if errors.Is(err, service.ErrNotAdmin) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		h.logger.Error().Err(err).Str("admin_id", adminID).Msg("admin action failed")
		http.Error(w, "Action failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
