package followup

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
	g.GET("/followups", h.ListDue)
	g.GET("/clients/:id/followup", h.GetFollowUp)
}

// refDay reads the optional ?today= override used by tests and by staff
// planning ahead; absent, the server's current day applies.
func refDay(c echo.Context) (time.Time, error) {
	raw := c.QueryParam("today")
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", raw)
}

func (h *Handler) ListDue(c echo.Context) error {
	today, err := refDay(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "today must be YYYY-MM-DD")
	}
	items, err := h.svc.ListDue(c.Request().Context(), today)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"today": today.Format("2006-01-02"),
		"due":   items,
		"count": len(items),
	})
}

func (h *Handler) GetFollowUp(c echo.Context) error {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	today, err := refDay(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "today must be YYYY-MM-DD")
	}
	f, err := h.svc.ForClient(c.Request().Context(), clientID, today)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		if errors.Is(err, ErrInvalidCadence) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, f)
}
