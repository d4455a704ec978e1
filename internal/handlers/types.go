package handlers

import "time"

// IssueTokenResponse is the response for a newly issued session token.
type IssueTokenResponse struct {
	Body struct {
		Token     string    `doc:"The issued session token" example:"V1StGXR8_Z5jdHi6B-myT" json:"token"`
		IssuedAt  time.Time `doc:"When the token was issued" json:"issuedAt"`
		ExpiresAt time.Time `doc:"When the token expires"    json:"expiresAt"`
	}
}

// PingResponse is the response for the ping endpoint.
type PingResponse struct {
	Body struct {
		Status string    `doc:"Service status" example:"ok" json:"status"`
		Time   time.Time `doc:"Server time"                 json:"time"`
	}
}
