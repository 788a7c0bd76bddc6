package chat

import (
	"errors"
	"net/http"

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
	api.POST("/chat/prescription", h.AskPrescription)
}

type askRequest struct {
	Question    string              `json:"question"`
	Medications []MedicationContext `json:"medications"`
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Status  int    `json:"status,omitempty"`
	Type    string `json:"type,omitempty"`
}

func (h *Handler) AskPrescription(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	answer, err := h.svc.Answer(c.Request().Context(), req.Question, req.Medications)
	if err != nil {
		var svcErr *ai.ServiceError
		if errors.As(err, &svcErr) {
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
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"answer": answer})
}
