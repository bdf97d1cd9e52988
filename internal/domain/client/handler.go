package client

import (
	"errors"
	"net/http"

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
	admin := auth.RequireRole(auth.RoleAdmin)

	read := api.Group("", staff)
	read.GET("/clients", h.ListClients)
	read.GET("/clients/:id", h.GetClient)
	read.GET("/clients/pharmacy/:pid", h.GetClientByPharmacyID)
	read.GET("/clients/:id/notes", h.ListNotes)

	// Assistants register walk-ins at the counter, so create is open to all
	// staff while profile edits stay with the dietitian.
	write := api.Group("", staff)
	write.POST("/clients", h.CreateClient)

	edit := api.Group("", clinical)
	edit.PUT("/clients/:id", h.UpdateClient)
	edit.POST("/clients/:id/notes", h.AddNote)
	edit.DELETE("/clients/:id/notes/:noteID", h.DeleteNote)

	del := api.Group("", admin)
	del.DELETE("/clients/:id", h.DeleteClient)
}

// writeError maps service errors onto HTTP responses. Validation failures
// carry the per-field breakdown so the form can highlight inputs.
func writeError(c echo.Context, err error) error {
	var verrs validate.Errors
	if errors.As(err, &verrs) {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"message": "validation failed",
			"fields":  verrs,
		})
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPharmacyIDTaken), errors.Is(err, ErrIDSpaceExhausted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) CreateClient(c echo.Context) error {
	var cl Client
	if err := c.Bind(&cl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateClient(c.Request().Context(), &cl); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *Handler) GetClient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cl, err := h.svc.GetClient(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) GetClientByPharmacyID(c echo.Context) error {
	cl, err := h.svc.GetClientByPharmacyID(c.Request().Context(), c.Param("pid"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ListClients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchClients(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateClient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var cl Client
	if err := c.Bind(&cl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl.ID = id
	if err := h.svc.UpdateClient(c.Request().Context(), &cl); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) DeleteClient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteClient(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddNote(c echo.Context) error {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var n Note
	if err := c.Bind(&n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n.ClientID = clientID
	ctx := c.Request().Context()
	n.AuthorID = auth.UserIDFromContext(ctx)
	n.AuthorName = auth.UserNameFromContext(ctx)
	if err := h.svc.AddNote(ctx, &n); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) ListNotes(c echo.Context) error {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListNotes(c.Request().Context(), clientID, pg.Limit, pg.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteNote(c echo.Context) error {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	noteID, err := uuid.Parse(c.Param("noteID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid note id")
	}
	if err := h.svc.DeleteNote(c.Request().Context(), clientID, noteID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
