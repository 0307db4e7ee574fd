package reports

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/opsportal/downtime-pipeline/internal/domain"
	"github.com/opsportal/downtime-pipeline/internal/pkg/ctxlog"
	"github.com/opsportal/downtime-pipeline/internal/pkg/httputil"
)

var notificationErrorMappings = []httputil.ErrorMapping{
	{Error: ErrNotificationNotFound, Status: http.StatusNotFound, Message: "notification not found"},
	{Error: ErrInvalidStream, Status: http.StatusBadRequest, Message: "unknown notification stream"},
	{Error: ErrReportNotFound, Status: http.StatusNotFound, Message: "downtime report not found"},
}

// Handler handles HTTP requests for the reports module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new reports handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers report pipeline routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/downtime-reports", func(r chi.Router) {
		r.Post("/", h.SubmitReport)
		r.Get("/top-issues", h.TopIssues)
		r.Get("/{reportId}", h.GetReport)
	})

	r.Route("/notifications/{stream}", func(r chi.Router) {
		r.Get("/", h.ListNotifications)
		r.Post("/{id}/read", h.MarkNotificationRead)
	})
}

// SubmitReportRequest is the inbound submission document.
type SubmitReportRequest struct {
	IssueTitle           string                       `json:"issueTitle"`
	ImpactedService      string                       `json:"impactedService"`
	ImpactType           string                       `json:"impactType"`
	Modality             string                       `json:"modality"`
	StartTime            string                       `json:"startTime"`
	EndTime              string                       `json:"endTime"`
	Concern              string                       `json:"concern"`
	Reason               string                       `json:"reason"`
	Resolution           string                       `json:"resolution"`
	SystemUnavailability string                       `json:"systemUnavailability"`
	TrackedBy            string                       `json:"trackedBy"`
	Categories           []string                     `json:"categories"`
	CategoryTimes        map[string]domain.TimeWindow `json:"categoryTimes"`
	TicketID             string                       `json:"ticketId,omitempty"`
	TicketLink           string                       `json:"ticketLink,omitempty" validate:"omitempty,url"`
	ReliabilityImpacted  bool                         `json:"reliabilityImpacted,omitempty"`
}

// submitResponse is the submission endpoint's response contract.
type submitResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	DowntimeID      string `json:"downtimeId,omitempty"`
	CategoriesCount int    `json:"categoriesCount,omitempty"`
	Error           string `json:"error,omitempty"`
}

// SubmitReport handles POST /downtime-reports.
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var req SubmitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.JSON(w, http.StatusBadRequest, submitResponse{
			Success: false,
			Message: "invalid json",
		})
		return
	}

	// Format checks only; required-field enforcement belongs to the domain
	// validator so one ordered message covers all of them.
	if err := h.validator.Struct(req); err != nil {
		httputil.JSON(w, http.StatusBadRequest, submitResponse{
			Success: false,
			Message: "validation error: " + err.Error(),
		})
		return
	}

	report := &domain.Report{
		IssueTitle:           req.IssueTitle,
		ImpactedService:      req.ImpactedService,
		ImpactType:           req.ImpactType,
		Modality:             req.Modality,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		Concern:              req.Concern,
		Reason:               req.Reason,
		Resolution:           req.Resolution,
		SystemUnavailability: req.SystemUnavailability,
		TrackedBy:            req.TrackedBy,
		Categories:           req.Categories,
		CategoryTimes:        req.CategoryTimes,
		TicketID:             req.TicketID,
		TicketLink:           req.TicketLink,
		ReliabilityImpacted:  req.ReliabilityImpacted,
	}

	caller := httputil.GetCaller(r.Context())

	result, err := h.service.Submit(r.Context(), report, caller)
	if err != nil {
		if verr, ok := AsValidationError(err); ok {
			httputil.JSON(w, http.StatusBadRequest, submitResponse{
				Success: false,
				Message: verr.Error(),
			})
			return
		}

		ctxlog.FromContext(r.Context()).Error("submission failed", "error", err)
		msg := "failed to submit downtime report"
		if errors.Is(err, ErrAllocationFailed) {
			msg = "failed to allocate report identifier"
		}
		httputil.JSON(w, http.StatusInternalServerError, submitResponse{
			Success: false,
			Message: msg,
			Error:   err.Error(),
		})
		return
	}

	httputil.JSON(w, http.StatusOK, submitResponse{
		Success:         true,
		Message:         "downtime report submitted",
		DowntimeID:      result.ReportID,
		CategoriesCount: result.CategoriesCount,
	})
}

// GetReport handles GET /downtime-reports/{reportId}.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportId")

	records, err := h.service.GetReport(r.Context(), reportID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, notificationErrorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"report_id":  reportID,
		"categories": records,
	})
}

// TopIssues handles GET /downtime-reports/top-issues.
func (h *Handler) TopIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := h.service.TopIssues(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, notificationErrorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{"issues": issues})
}

// ListNotifications handles GET /notifications/{stream}.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	stream := domain.NotificationStream(chi.URLParam(r, "stream"))

	notifications, err := h.service.ListNotifications(r.Context(), stream)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, notificationErrorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{"notifications": notifications})
}

// MarkNotificationRead handles POST /notifications/{stream}/{id}/read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	stream := domain.NotificationStream(chi.URLParam(r, "stream"))
	id := chi.URLParam(r, "id")

	if err := h.service.MarkNotificationRead(r.Context(), stream, id); err != nil {
		httputil.HandleError(r.Context(), w, err, notificationErrorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": string(domain.NotificationRead)})
}
