package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/dualmind/internal/pattern"
)

// PatternsHandler exposes the memoized pattern archive.
type PatternsHandler struct {
	Patterns pattern.Store
	Index    *pattern.Index
}

func (h *PatternsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(requireAuth(secret))
	g.GET("", h.list)
	g.GET("/search", h.search)
}

func (h *PatternsHandler) list(c echo.Context) error {
	if h.Patterns == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "pattern store not configured")
	}
	patterns, err := h.Patterns.All(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if patterns == nil {
		patterns = []pattern.Pattern{}
	}
	return c.JSON(http.StatusOK, patterns)
}

// search runs a full-text query against the archive. The index is built
// lazily on first use and reused afterwards; restart the server to pick
// up patterns memoized since.
func (h *PatternsHandler) search(c echo.Context) error {
	if h.Patterns == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "pattern store not configured")
	}
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	if h.Index == nil {
		idx, err := pattern.BuildIndex(c.Request().Context(), h.Patterns)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		h.Index = idx
	}
	hits, err := h.Index.Search(q, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if hits == nil {
		hits = []pattern.SearchHit{}
	}
	return c.JSON(http.StatusOK, hits)
}
