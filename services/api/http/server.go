package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/02loveslollipop/groundwater-hpi/internal/ingest"
	"github.com/02loveslollipop/groundwater-hpi/internal/models"
	"github.com/02loveslollipop/groundwater-hpi/internal/quality"
	"github.com/02loveslollipop/groundwater-hpi/services/api/config"
	"github.com/02loveslollipop/groundwater-hpi/services/api/db"
)

// SampleStore is the persistence the API needs. *db.Store implements it.
type SampleStore interface {
	InsertSample(ctx context.Context, sample *models.Sample) error
	ReplaceAllSamples(ctx context.Context, samples []models.Sample) (int, error)
	ListSamples(ctx context.Context, filter models.SampleFilter) ([]models.Sample, error)
	GetSample(ctx context.Context, id int64) (models.Sample, error)
	UpdateSample(ctx context.Context, sample *models.Sample) error
	UpdateIndices(ctx context.Context, samples []models.Sample) error
	DeleteSample(ctx context.Context, id int64) error
	Summary(ctx context.Context) (models.Summary, error)
	IndexTrend(ctx context.Context) ([]models.TrendPoint, error)
	MapPoints(ctx context.Context) ([]models.MapPoint, error)
	Locations(ctx context.Context, state string) (models.Locations, error)
	WaterQualityAverages(ctx context.Context) (models.Averages, error)
	MetalAverages(ctx context.Context) (models.Averages, error)
}

var _ SampleStore = (*db.Store)(nil)

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg        config.Config
	store      SampleStore
	normalizer *quality.Normalizer
	calc       *quality.Calculator
	pipeline   *ingest.Pipeline
	log        *zap.Logger
	engine     *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, store SampleStore, calc *quality.Calculator, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if calc == nil {
		calc = quality.NewCalculator(nil)
	}
	normalizer := quality.DefaultNormalizer()

	pipeline, err := ingest.NewPipeline(normalizer, calc, ingest.Options{
		Workers:            cfg.IngestWorkers,
		ChunkSize:          cfg.IngestChunkSize,
		RequireCoordinates: cfg.RequireCoordinates,
		Logger:             logger.Named("ingest"),
	})
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(recoveryMiddleware(logger))
	engine.Use(accessLogMiddleware(logger))
	engine.Use(corsMiddleware())

	server := &Server{
		cfg:        cfg,
		store:      store,
		normalizer: normalizer,
		calc:       calc,
		pipeline:   pipeline,
		log:        logger,
		engine:     engine,
	}
	server.registerRoutes()
	return server, nil
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
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
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.registerV1Routes()
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}

// accessLogMiddleware writes one zap entry per request.
func accessLogMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("bytes", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

func recoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// storeError maps a store failure to a response.
func (s *Server) storeError(c *gin.Context, err error) {
	if errors.Is(err, db.ErrSampleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
