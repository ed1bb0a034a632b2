package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Blocker interface {
	SetBlocked(ctx context.Context, id int64, blocked bool) error
}

// AdminHandler toggles the block flag. It is mounted on its own listener.
type AdminHandler struct {
	blocker Blocker
}

func NewAdminHandler(b Blocker) *AdminHandler {
	return &AdminHandler{blocker: b}
}

func (h *AdminHandler) Register(e *echo.Echo) {
	group := e.Group("/admin/assets/:id")
	group.PUT("/block", h.Block)
	group.DELETE("/block", h.Unblock)
}

func (h *AdminHandler) Block(c echo.Context) error {
	return h.set(c, true)
}

func (h *AdminHandler) Unblock(c echo.Context) error {
	return h.set(c, false)
}

func (h *AdminHandler) set(c echo.Context, blocked bool) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.blocker.SetBlocked(c.Request().Context(), id, blocked); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"id": id, "is_blocked": blocked})
}
