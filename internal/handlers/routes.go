package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the demo API routes.
func RegisterRoutes(api huma.API, sessions *SessionHandler) {
	huma.Register(api, huma.Operation{
		Method:      http.MethodPost,
		Path:        "/tokens",
		Summary:     "Issue session token",
		Description: "Issues a new short-lived session token.",
		Tags:        []string{"Sessions"},
	}, sessions.IssueToken)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/ping",
		Summary:     "Ping",
		Description: "Reports liveness and the server time.",
		Tags:        []string{"Meta"},
	}, sessions.Ping)
}
