package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

// ServeConfig configures the HTTP listener.
type ServeConfig struct {
	Address string
	// ReadHeaderTimeout bounds reading request headers; zero keeps the
	// net/http default of no limit.
	ReadHeaderTimeout time.Duration
}

func (cfg ServeConfig) configure(srv *http.Server) {
	if cfg.ReadHeaderTimeout > 0 {
		srv.ReadHeaderTimeout = cfg.ReadHeaderTimeout
	}
}

// NewEcho builds the router with request logging and panic recovery.
func NewEcho(server *Server) *echo.Echo {
	e := echo.New()
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	server.Register(e)
	return e
}

// Serve runs e until ctx is cancelled.
func Serve(ctx context.Context, cfg ServeConfig, e *echo.Echo) error {
	sc := echo.StartConfig{
		Address: cfg.Address,
		BeforeServeFunc: func(srv *http.Server) error {
			cfg.configure(srv)
			return nil
		},
	}
	return sc.Start(ctx, e)
}
