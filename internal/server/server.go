// Package server exposes the query pipeline over HTTP: auth, query
// submission, session history, and pattern inspection.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mohammad-safakhou/dualmind/internal/auth"
	"github.com/mohammad-safakhou/dualmind/internal/orchestrator"
	"github.com/mohammad-safakhou/dualmind/internal/pattern"
	"github.com/mohammad-safakhou/dualmind/internal/store"
	"github.com/mohammad-safakhou/dualmind/internal/telemetry"
)

// Processor runs one query end to end.
type Processor interface {
	Process(ctx context.Context, query string) (*orchestrator.Output, error)
}

// Server wires the HTTP layer to the pipeline. Store may be nil when
// running without postgres; the session and auth endpoints then return
// 503.
type Server struct {
	Processor Processor
	Store     *store.Store
	Patterns  pattern.Store
	Index     *pattern.Index
	Telemetry *telemetry.Telemetry
	Secret    []byte

	logger *log.Logger
}

// New creates a server. Patterns, Index, Store and Telemetry may be nil.
func New(processor Processor, st *store.Store, patterns pattern.Store, index *pattern.Index, tel *telemetry.Telemetry, secret []byte) *Server {
	return &Server{
		Processor: processor,
		Store:     st,
		Patterns:  patterns,
		Index:     index,
		Telemetry: tel,
		Secret:    secret,
		logger:    log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}
}

// Echo builds the router with all routes registered.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.Telemetry != nil {
		e.GET("/metrics", echo.WrapHandler(s.Telemetry.Handler()))
	}

	api := e.Group("/api")

	ah := &AuthHandler{Store: s.Store, Secret: s.Secret}
	ah.Register(api.Group("/auth"))

	qh := &QueryHandler{Processor: s.Processor, Store: s.Store}
	qh.Register(api, s.Secret)

	ph := &PatternsHandler{Patterns: s.Patterns, Index: s.Index}
	ph.Register(api.Group("/patterns"), s.Secret)

	return e
}

// Run starts the server and blocks.
func (s *Server) Run(addr string) error {
	if s.Secret == nil {
		return fmt.Errorf("jwt secret not configured")
	}
	e := s.Echo()
	s.logger.Printf("listening on %s", addr)
	return e.Start(addr)
}

// requireAuth builds the per-group auth middleware.
func requireAuth(secret []byte) echo.MiddlewareFunc {
	return auth.Middleware(secret)
}
