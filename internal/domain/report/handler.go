package report

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nutrirec/nutrirec/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireRole(auth.RoleAdmin, auth.RoleDietitian, auth.RoleAssistant)

	g := api.Group("", staff)
	g.GET("/clients/:id/reports/:type", h.BuildReport)
}

// BuildReport assembles the requested report as a document tree. The
// optional ?today= pins the report date, so a printout prepared the evening
// before tomorrow's visit shows the visit day.
func (h *Handler) BuildReport(c echo.Context) error {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var today time.Time
	if raw := c.QueryParam("today"); raw != "" {
		today, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "today must be YYYY-MM-DD")
		}
	}

	doc, err := h.svc.Build(c.Request().Context(), clientID, c.Param("type"), today)
	if err != nil {
		if errors.Is(err, ErrUnknownReportType) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if errors.Is(err, ErrClientNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}
