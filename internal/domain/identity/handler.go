package identity

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/medbuddy/medbuddy/internal/domain/medication"
	"github.com/medbuddy/medbuddy/internal/platform/auth"
	"github.com/medbuddy/medbuddy/pkg/pagination"
)

type Handler struct {
	svc  *Service
	meds *medication.Service
}

func NewHandler(svc *Service, meds *medication.Service) *Handler {
	return &Handler{svc: svc, meds: meds}
}

// RegisterPublicRoutes mounts the signup and login endpoints, which do not
// require a session token.
func (h *Handler) RegisterPublicRoutes(api *echo.Group) {
	api.POST("/auth/signup", h.DoctorSignup)
	api.POST("/auth/doctor/signup", h.DoctorSignup)
	api.POST("/auth/patient/signup", h.PatientSignup)
	api.POST("/auth/login", h.Login)
}

// RegisterRoutes mounts the authenticated endpoints.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/auth/me", h.Me)
	api.GET("/patients", h.ListPatients, auth.RequireRole(RoleDoctor))
	api.POST("/patients", h.CreatePatient, auth.RequireRole(RoleDoctor))
	api.GET("/patients/:id", h.GetPatient)
}

type authResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) DoctorSignup(c echo.Context) error {
	var req DoctorSignup
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, token, err := h.svc.RegisterDoctor(c.Request().Context(), req)
	if err != nil {
		return signupError(err)
	}
	return c.JSON(http.StatusCreated, authResponse{Token: token, User: u})
}

func (h *Handler) PatientSignup(c echo.Context) error {
	var req PatientSignup
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, token, err := h.svc.RegisterPatient(c.Request().Context(), req)
	if err != nil {
		return signupError(err)
	}
	return c.JSON(http.StatusCreated, authResponse{Token: token, User: u})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, token, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, authResponse{Token: token, User: u})
}

// Me returns the account of the calling user.
func (h *Handler) Me(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.Get(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, u)
}

// CreatePatient registers a patient under the calling doctor.
func (h *Handler) CreatePatient(c echo.Context) error {
	doctorID, err := callerID(c)
	if err != nil {
		return err
	}
	var req PatientSignup
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.RegisterPatientForDoctor(c.Request().Context(), doctorID, req)
	if err != nil {
		return signupError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) ListPatients(c echo.Context) error {
	doctorID, err := callerID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

type patientDetail struct {
	*User
	Medications []*medication.Record `json:"medications"`
}

// GetPatient returns a patient account together with its medication list.
// Patients may only read their own record; doctors may read any patient.
func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient ID format")
	}

	caller, _ := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	role := auth.RoleFromContext(c.Request().Context())
	if role == RolePatient && caller != id {
		return echo.NewHTTPError(http.StatusForbidden, "patients may only view their own record")
	}

	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil || u.Role != RolePatient {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}

	meds, _, err := h.meds.ListByPatient(c.Request().Context(), id, pagination.MaxLimit, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, patientDetail{User: u, Medications: meds})
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	return id, nil
}

func signupError(err error) error {
	switch {
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrUniqueIDTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
