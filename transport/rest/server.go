package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 60 * time.Second
	idleTimeout  = 30 * time.Second
)

// Server is the local HTTP API of one game session.
type Server struct {
	logger *slog.Logger
	echo   *echo.Echo
	port   int
}

// New serves the game API; stream handles websocket upgrades on /api/game/updates.
func New(logger *slog.Logger, port int, ping PingHandler, game GameHandler, stream http.Handler) *Server {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = readTimeout
	e.Server.WriteTimeout = writeTimeout
	e.Server.IdleTimeout = idleTimeout

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("request", "http_method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/ping", ping.Ping)

	api := e.Group("/api")
	api.GET("/game", game.GetGame)
	api.POST("/game/refresh", game.RefreshGame)
	api.POST("/game/marks", game.PlaceMark)
	api.DELETE("/game", game.DeleteGame)
	api.GET("/game/updates", echo.WrapHandler(stream))

	return &Server{
		logger: logger,
		echo:   e,
		port:   port,
	}
}

func (that *Server) Handler() http.Handler {
	return that.echo
}

// Start blocks until the server is shut down.
func (that *Server) Start() error {
	that.logger.Info("http server listening", "port", that.port)

	if err := that.echo.Start(fmt.Sprintf(":%d", that.port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Shutdown(ctx context.Context) error {
	if err := that.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
