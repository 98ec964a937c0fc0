package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/dualmind/internal/store"
)

// QueryHandler serves query submission and session history.
type QueryHandler struct {
	Processor Processor
	Store     *store.Store
}

type queryRequest struct {
	Query string `json:"query"`
}

func (h *QueryHandler) Register(api *echo.Group, secret []byte) {
	g := api.Group("/queries")
	g.Use(requireAuth(secret))
	g.POST("", h.run)

	sg := api.Group("/sessions")
	sg.Use(requireAuth(secret))
	sg.GET("", h.listSessions)
	sg.GET("/:id", h.getSession)
}

// run executes a query through the full plan/critique/execute pipeline
// and returns the complete run record.
func (h *QueryHandler) run(c echo.Context) error {
	if h.Processor == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "processor not configured")
	}
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}
	out, err := h.Processor.Process(c.Request().Context(), req.Query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *QueryHandler) listSessions(c echo.Context) error {
	if h.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "session store not configured")
	}
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	sessions, err := h.Store.ListSessions(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sessions)
}

func (h *QueryHandler) getSession(c echo.Context) error {
	if h.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "session store not configured")
	}
	sess, err := h.Store.GetSession(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sess)
}
