// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package api serves the gateway's HTTP interface: engine status, stored
// telemetry and exchange history, command submission, a WebSocket event
// stream and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Thermoquad/thermogate/pkg/gateway"
	"github.com/Thermoquad/thermogate/pkg/logger"
	"github.com/Thermoquad/thermogate/pkg/metrics"
	"github.com/Thermoquad/thermogate/pkg/store"
)

// Engine is the part of the gateway engine the API drives.
type Engine interface {
	gateway.Submitter
	Snapshot(ctx context.Context) (gateway.Snapshot, error)
}

// ReadingSource lists stored telemetry.
type ReadingSource interface {
	Latest(ctx context.Context, radioID string, limit int) ([]store.StoredReading, error)
}

// ExchangeSource lists recorded exchanges.
type ExchangeSource interface {
	Recent(ctx context.Context, limit int) ([]gateway.ExchangeRecord, error)
}

// Server is the HTTP API.
type Server struct {
	engine    Engine
	hub       *gateway.Hub
	readings  ReadingSource
	exchanges ExchangeSource
	log       *logger.Logger

	// CommandWait bounds how long POST /api/commands waits for a response.
	CommandWait time.Duration
}

// NewServer creates an API server. hub may be nil, which disables the
// event stream.
func NewServer(engine Engine, hub *gateway.Hub, log *logger.Logger) *Server {
	return &Server{
		engine:      engine,
		hub:         hub,
		log:         log.Named("api"),
		CommandWait: 15 * time.Second,
	}
}

// SetStore enables the history endpoints.
func (s *Server) SetStore(readings ReadingSource, exchanges ExchangeSource) {
	s.readings = readings
	s.exchanges = exchanges
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.GET("/readings", s.getReadings)
		api.GET("/exchanges", s.getExchanges)
		api.POST("/commands", s.postCommand)
		api.GET("/events", s.events)
	}
	return router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		duration := time.Since(start)
		metrics.RecordHTTPRequest(c.Request.Method, path, status, duration)

		kv := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration", duration,
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			s.log.Errorw("http request", kv...)
		case status >= 400:
			s.log.Warnw("http request", kv...)
		default:
			s.log.Debugw("http request", kv...)
		}
	}
}

func (s *Server) jsonError(c *gin.Context, code int, msg string, err error) {
	if err != nil {
		s.log.Warnw(msg, "error", err)
	}
	c.JSON(code, gin.H{"error": msg})
}
