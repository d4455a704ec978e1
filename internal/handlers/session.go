// Package handlers exposes the demo API the rate limit middleware protects.
package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const tokenLifetime = time.Hour

// SessionHandler issues short-lived session tokens. It exists to give the
// rate limiter a realistic write endpoint to protect.
type SessionHandler struct {
	generate func() string
	logger   *zap.Logger
}

// NewSessionHandler creates a session handler with the given token generator.
func NewSessionHandler(generate func() string, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{generate: generate, logger: logger}
}

// IssueToken creates a new session token.
func (h *SessionHandler) IssueToken(_ context.Context, _ *struct{}) (*IssueTokenResponse, error) {
	now := time.Now().UTC()
	token := h.generate()

	h.logger.Debug("issued session token", zap.Time("issuedAt", now))

	resp := &IssueTokenResponse{}
	resp.Body.Token = token
	resp.Body.IssuedAt = now
	resp.Body.ExpiresAt = now.Add(tokenLifetime)

	return resp, nil
}

// Ping reports liveness and the server time.
func (h *SessionHandler) Ping(_ context.Context, _ *struct{}) (*PingResponse, error) {
	resp := &PingResponse{}
	resp.Body.Status = "ok"
	resp.Body.Time = time.Now().UTC()

	return resp, nil
}
