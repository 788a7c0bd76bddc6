package extraction

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medbuddy/medbuddy/internal/platform/ai"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/discharge/process", h.ProcessDischarge)
	api.POST("/patients/:id/process-summary", h.ProcessSummary)
}

// errorEnvelope is the failure shape for extraction endpoints. Type lets
// clients branch on the failure class without string matching.
type errorEnvelope struct {
	Error       string `json:"error"`
	Details     string `json:"details,omitempty"`
	Status      int    `json:"status,omitempty"`
	Type        string `json:"type,omitempty"`
	RawResponse string `json:"rawResponse,omitempty"`
}

type processDischargeRequest struct {
	PatientID        uuid.UUID `json:"patientId"`
	DischargeSummary string    `json:"dischargeSummary"`
}

func (h *Handler) ProcessDischarge(c echo.Context) error {
	var req processDischargeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope{
			Error: "Invalid input", Details: err.Error(), Type: "VALIDATION_ERROR",
		})
	}

	recs, err := h.svc.ProcessDischarge(c.Request().Context(), req.PatientID, req.DischargeSummary)
	if err != nil {
		return writeExtractionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"medications": recs})
}

type processSummaryRequest struct {
	DischargeSummary string `json:"dischargeSummary"`
}

func (h *Handler) ProcessSummary(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope{
			Error: "Invalid patient ID format", Type: "VALIDATION_ERROR",
		})
	}
	var req processSummaryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope{
			Error: "Invalid input", Details: err.Error(), Type: "VALIDATION_ERROR",
		})
	}

	recs, err := h.svc.ProcessSummary(c.Request().Context(), patientID, req.DischargeSummary)
	if err != nil {
		return writeExtractionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "Discharge summary processed successfully",
		"medications": recs,
	})
}

func writeExtractionError(c echo.Context, err error) error {
	var svcErr *ai.ServiceError
	var extErr *Error

	switch {
	case errors.Is(err, ErrPatientNotFound):
		return c.JSON(http.StatusNotFound, errorEnvelope{
			Error:   "Patient not found",
			Details: "The specified patient does not exist",
			Type:    "VALIDATION_ERROR",
		})

	case errors.As(err, &svcErr):
		msg := "Failed to get response from AI service. Please try again later."
		if svcErr.Status == http.StatusTooManyRequests {
			msg = "OpenAI API rate limit exceeded or insufficient credits"
		}
		return c.JSON(http.StatusInternalServerError, errorEnvelope{
			Error:   msg,
			Details: svcErr.Detail,
			Status:  svcErr.Status,
			Type:    "AI_SERVICE_ERROR",
		})

	case errors.As(err, &extErr):
		if extErr.Kind == KindValidation {
			return c.JSON(http.StatusBadRequest, errorEnvelope{
				Error: "Invalid input", Details: extErr.Detail, Type: "VALIDATION_ERROR",
			})
		}
		// Raw carries the unparseable model reply so an operator can
		// diagnose a prompt/response mismatch.
		return c.JSON(http.StatusInternalServerError, errorEnvelope{
			Error:       "Processing error",
			Details:     extErr.Detail,
			Type:        "PROCESSING_ERROR",
			RawResponse: extErr.Raw,
		})

	default:
		return c.JSON(http.StatusInternalServerError, errorEnvelope{
			Error:   "Server error",
			Details: "An unexpected error occurred while processing your request.",
			Type:    "SERVER_ERROR",
		})
	}
}
