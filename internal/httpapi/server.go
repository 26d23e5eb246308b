package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yuzukaze/aeris/internal/config"
	"github.com/yuzukaze/aeris/internal/importer"
	"github.com/yuzukaze/aeris/internal/metrics"
	"github.com/yuzukaze/aeris/internal/models"
)

// Service is the application surface the HTTP layer exposes.
type Service interface {
	InitSchema(ctx context.Context) error
	Import(ctx context.Context, days int) (*importer.Summary, error)
	MostPolluted(ctx context.Context) (models.PollutionRanking, error)
	Average(ctx context.Context, country string, days int) (models.CountryAirQuality, error)
	MeasurementsByCity(ctx context.Context, country string) ([]models.CityLatest, error)
	HasData(ctx context.Context) (bool, error)
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg    config.Config
	svc    Service
	engine *gin.Engine
	log    *zap.Logger
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, svc Service, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	if log == nil {
		log = zap.NewNop()
	}

	server := &Server{cfg: cfg, svc: svc, engine: engine, log: log}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealthz)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/schema/init", s.handleInitSchema)
		v1.POST("/import", s.handleImport)
		v1.GET("/pollution/most-polluted", s.handleMostPolluted)
		v1.GET("/pollution/average/:country", s.handleAverage)
		v1.GET("/pollution/cities/:country", s.handleMeasurementsByCity)
	}
}
