// Package ui serves the dashboard views over HTTP.
package ui

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wastedash/internal"
	"wastedash/internal/markers"
	"wastedash/internal/views"
)

// Server represents the dashboard API server
type Server struct {
	router  *gin.Engine
	views   *views.Service
	markers *markers.Service
	logger  *internal.Logger
}

// NewServer creates a server over the view service. markerSvc may be nil when
// no point source is configured.
func NewServer(viewSvc *views.Service, markerSvc *markers.Service, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:  gin.New(),
		views:   viewSvc,
		markers: markerSvc,
		logger:  logger.WithComponent("API"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Router exposes the gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/views", s.handleListViews)
	api.GET("/markers", s.handleMarkers)

	view := api.Group("/views/:id")
	view.GET("", s.handleFacets)
	view.GET("/records", s.handleRecords)
	view.GET("/summary", s.handleSummary)
	view.GET("/pivot", s.handlePivot)
	view.GET("/shares", s.handleShares)
	view.GET("/chart.png", s.handleChart)
	view.GET("/profile", s.handleProfile)
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
