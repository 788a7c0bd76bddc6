package medication

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/medbuddy/medbuddy/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/medications", h.CreateMedication)
	api.GET("/medications/:id", h.GetMedication)
	api.GET("/patients/:id/medications", h.ListPatientMedications)
	api.PUT("/medications/:id", h.UpdateMedication)
	api.DELETE("/medications/:id", h.DeleteMedication)

	api.POST("/medications/:id/reminders", h.AddReminder)
	api.PUT("/medications/:id/reminders/:reminderId", h.UpdateReminder)
	api.DELETE("/medications/:id/reminders/:reminderId", h.DeleteReminder)
	api.PATCH("/medications/:id/reminders/:reminderId", h.ToggleReminder)
}

type createMedicationRequest struct {
	PatientID  uuid.UUID `json:"patientId"`
	Medication Record    `json:"medication"`
}

func (h *Handler) CreateMedication(c echo.Context) error {
	var req createMedicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec := req.Medication
	rec.PatientID = req.PatientID
	if err := h.svc.Create(c.Request().Context(), &rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetMedication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid medication ID format")
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "medication not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListPatientMedications(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient ID format")
	}
	pg := pagination.FromContext(c)
	recs, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(recs, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateMedication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid medication ID format")
	}
	var rec Record
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec.ID = id
	if err := h.svc.Update(c.Request().Context(), &rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) DeleteMedication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid medication ID format")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type reminderRequest struct {
	Time    *string `json:"time"`
	Enabled *bool   `json:"enabled"`
}

func (h *Handler) AddReminder(c echo.Context) error {
	medID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid medication ID format")
	}
	var req reminderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Time == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "time is required")
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	rec, err := h.svc.AddReminder(c.Request().Context(), medID, *req.Time, enabled)
	if err != nil {
		return reminderError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) UpdateReminder(c echo.Context) error {
	medID, reminderID, err := reminderParams(c)
	if err != nil {
		return err
	}
	var req reminderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rec, err := h.svc.UpdateReminder(c.Request().Context(), medID, reminderID, req.Time, req.Enabled)
	if err != nil {
		return reminderError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) DeleteReminder(c echo.Context) error {
	medID, reminderID, err := reminderParams(c)
	if err != nil {
		return err
	}

	rec, err := h.svc.DeleteReminder(c.Request().Context(), medID, reminderID)
	if err != nil {
		return reminderError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ToggleReminder(c echo.Context) error {
	medID, reminderID, err := reminderParams(c)
	if err != nil {
		return err
	}
	var req reminderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Enabled == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "enabled is required")
	}

	rec, err := h.svc.ToggleReminder(c.Request().Context(), medID, reminderID, *req.Enabled)
	if err != nil {
		return reminderError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func reminderParams(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	medID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid medication ID format")
	}
	reminderID, err := uuid.Parse(c.Param("reminderId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid reminder ID format")
	}
	return medID, reminderID, nil
}

func reminderError(err error) error {
	switch {
	case errors.Is(err, ErrReminderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "reminder not found")
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "medication not found")
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
