// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Thermoquad/thermogate/pkg/gateway"
	"github.com/Thermoquad/thermogate/pkg/thermonet"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getStatus(c *gin.Context) {
	snap, err := s.engine.Snapshot(c.Request.Context())
	if err != nil {
		s.jsonError(c, http.StatusServiceUnavailable, "engine unavailable", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (s *Server) getReadings(c *gin.Context) {
	if s.readings == nil {
		s.jsonError(c, http.StatusNotFound, "telemetry history disabled", nil)
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		s.jsonError(c, http.StatusBadRequest, "invalid limit", nil)
		return
	}
	out, err := s.readings.Latest(c.Request.Context(), c.Query("radio_id"), limit)
	if err != nil {
		s.jsonError(c, http.StatusInternalServerError, "failed to load readings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"readings": out})
}

func (s *Server) getExchanges(c *gin.Context) {
	if s.exchanges == nil {
		s.jsonError(c, http.StatusNotFound, "exchange history disabled", nil)
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		s.jsonError(c, http.StatusBadRequest, "invalid limit", nil)
		return
	}
	out, err := s.exchanges.Recent(c.Request.Context(), limit)
	if err != nil {
		s.jsonError(c, http.StatusInternalServerError, "failed to load exchanges", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchanges": out})
}

// CommandRequest is the body of POST /api/commands.
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
}

// CommandResponse reports the outcome of a submitted command.
type CommandResponse struct {
	Command  string `json:"command"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// responseTarget hands an exchange's response back to the waiting handler.
type responseTarget struct {
	remote string
	ch     chan string
}

func (t *responseTarget) Deliver(ctx context.Context, text string) error {
	select {
	case t.ch <- text:
		return nil
	default:
		return gateway.ErrAlreadyDelivered
	}
}

func (t *responseTarget) String() string {
	return "api:" + t.remote
}

func (s *Server) postCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.jsonError(c, http.StatusBadRequest, "invalid body: "+err.Error(), nil)
		return
	}

	cmd, err := thermonet.ParseRequest(req.Command)
	if err != nil {
		c.JSON(http.StatusBadRequest, CommandResponse{
			Command:  req.Command,
			Response: thermonet.NackText(err),
			Error:    err.Error(),
		})
		return
	}

	target := &responseTarget{remote: c.ClientIP(), ch: make(chan string, 1)}
	ctx := c.Request.Context()
	if err := s.engine.Submit(ctx, cmd, target); err != nil {
		code := http.StatusBadGateway
		switch {
		case errors.Is(err, gateway.ErrBusy):
			code = http.StatusConflict
		case errors.Is(err, gateway.ErrEngineStopped):
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, CommandResponse{Command: cmd.String(), Response: cmd.NackText(), Error: err.Error()})
		return
	}

	wait := time.NewTimer(s.CommandWait)
	defer wait.Stop()
	select {
	case text := <-target.ch:
		c.JSON(http.StatusOK, CommandResponse{Command: cmd.String(), Response: text})
	case <-wait.C:
		c.JSON(http.StatusGatewayTimeout, CommandResponse{Command: cmd.String(), Error: "no response"})
	case <-ctx.Done():
	}
}
