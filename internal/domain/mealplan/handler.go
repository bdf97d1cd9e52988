package mealplan

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nutrirec/nutrirec/internal/platform/auth"
	"github.com/nutrirec/nutrirec/internal/platform/validate"
	"github.com/nutrirec/nutrirec/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireRole(auth.RoleAdmin, auth.RoleDietitian, auth.RoleAssistant)
	clinical := auth.RequireRole(auth.RoleAdmin, auth.RoleDietitian)

	read := api.Group("", staff)
	read.GET("/clients/:id/meal-plans", h.ListMealPlans)
	read.GET("/clients/:id/meal-plans/:date", h.GetMealPlan)
	read.GET("/clients/:id/compliance", h.ComplianceRate)

	// Plan content is a clinical decision, so writes stay with the dietitian.
	write := api.Group("", clinical)
	write.PUT("/clients/:id/meal-plans", h.UpsertMealPlan)
	write.DELETE("/meal-plans/:planID", h.DeleteMealPlan)
}

func writeError(c echo.Context, err error) error {
	var verrs validate.Errors
	if errors.As(err, &verrs) {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"message": "validation failed",
			"fields":  verrs,
		})
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrClientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func parseDateParam(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}

func parseDaysParam(raw string) (int, error) {
	d, err := strconv.Atoi(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid days: %q", raw)
	}
	return d, nil
}

func (h *Handler) UpsertMealPlan(c echo.Context) error {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p MealPlan
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ClientID = clientID
	if err := h.svc.Upsert(c.Request().Context(), &p); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetMealPlan(c echo.Context) error {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	date, err := parseDateParam(c.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	p, err := h.svc.GetByDate(c.Request().Context(), clientID, date)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListMealPlans(c echo.Context) error {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	// Without an explicit range the last 7 days are returned, which is what
	// the weekly review screen shows.
	if c.QueryParam("from") == "" && c.QueryParam("to") == "" {
		days := 7
		if raw := c.QueryParam("days"); raw != "" {
			d, err := parseDaysParam(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "days must be a positive number")
			}
			days = d
		}
		items, err := h.svc.ListRecent(c.Request().Context(), clientID, days)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, len(items), days, 0))
	}

	from, err := parseDateParam(c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
	}
	to, err := parseDateParam(c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListRange(c.Request().Context(), clientID, from, to, pg.Limit, pg.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteMealPlan(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("planID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
	}
	if err := h.svc.Delete(c.Request().Context(), planID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ComplianceRate(c echo.Context) error {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	days := 30
	if raw := c.QueryParam("days"); raw != "" {
		d, err := parseDaysParam(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "days must be a positive number")
		}
		days = d
	}
	sum, err := h.svc.ComplianceRate(c.Request().Context(), clientID, days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}
