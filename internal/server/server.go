// Package server bridges HTTP to the billing engine. Handlers normalize the
// request into engine parameters and complete the request context, which
// writes the JSON response and then flushes events to the delivery
// pipeline.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mdbarr/mock-services/internal/config"
	"github.com/mdbarr/mock-services/internal/stripe/engine"
	"github.com/mdbarr/mock-services/internal/stripe/ident"
	"github.com/mdbarr/mock-services/internal/stripe/store"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with recovery, request logging and the
// health and metrics endpoints.
func NewEngine(log *zap.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogMiddleware(log.Named("http")))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return r
}

func registerGin(log *zap.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	return NewEngine(log, gatherer)
}

// Server holds the handler dependencies.
type Server struct {
	gin        *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	store      *store.Store
	engine     *engine.Engine
	ids        *ident.Generator
	dispatcher engine.Dispatcher
}

// ServerParams collects the server dependencies.
type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Store      *store.Store
	Engine     *engine.Engine
	IDs        *ident.Generator
	Dispatcher engine.Dispatcher
}

// NewServer builds the HTTP server.
func NewServer(p ServerParams) *Server {
	return &Server{
		gin:        p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("server"),
		store:      p.Store,
		engine:     p.Engine,
		ids:        p.IDs,
		dispatcher: p.Dispatcher,
	}
}

func registerRoutes(s *Server) {
	s.RegisterRoutes()
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

func requestLogMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", c.GetString(contextRequestID)),
			zap.String("org", c.GetString(contextIdentity)))
	}
}
