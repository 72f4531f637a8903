// Package api serves wallet, market and calculator data over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"paca-stakes/internal/network"
	"paca-stakes/internal/service"
	"paca-stakes/internal/storage"
	"paca-stakes/internal/version"
)

// Service is the data source behind the handlers.
type Service interface {
	Lookup(ctx context.Context, address string) (*service.Snapshot, error)
	Market(ctx context.Context, chain network.ID) (service.Market, error)
	Withdrawals(ctx context.Context, chain network.ID, address string, showCompleted bool) (service.Withdrawals, error)
	PoolRates(ctx context.Context) []service.PoolRate
}

// Options configure a Server.
type Options struct {
	Listen       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string

	// Calculator defaults used when a query omits rate or days.
	DefaultRate float64
	DefaultDays int
}

// Server is the read-only HTTP API.
type Server struct {
	opts     Options
	svc      Service
	networks *network.Registry
	alerts   storage.AlertLog
	logger   zerolog.Logger
	now      func() time.Time
	engine   *gin.Engine
}

// New builds the router. alerts may be nil, which disables the alerts route.
func New(opts Options, svc Service, networks *network.Registry, alerts storage.AlertLog, logger zerolog.Logger) *Server {
	s := &Server{
		opts:     opts,
		svc:      svc,
		networks: networks,
		alerts:   alerts,
		logger:   logger.With().Str("component", "api").Logger(),
		now:      time.Now,
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.logger))
	router.Use(cors.New(corsConfig(s.opts.CORSOrigins)))

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Version}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/networks", s.getNetworks)
		v1.GET("/wallets/:address", s.getWallet)
		v1.GET("/wallets/:address/stakes", s.getStakes)
		v1.GET("/wallets/:address/withdrawals", s.getWithdrawals)
		v1.GET("/market/:chain", s.getMarket)
		v1.GET("/rates", s.getRates)
		v1.GET("/calc", s.getCalc)
		if s.alerts != nil {
			v1.GET("/alerts", s.getAlerts)
		}
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(started)).
			Msg("request served")
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Listen,
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("listen", s.opts.Listen).Msg("http api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("http api stopped")
	return nil
}
