package analytics

import "time"

// TopicDenied is the topic deny events are published on.
const TopicDenied = "ratelimit.denied"

// DeniedEvent represents a request rejected by the rate limiter.
type DeniedEvent struct {
	ID                string    `json:"id"`
	Identifier        string    `json:"identifier"`
	Path              string    `json:"path"`
	Method            string    `json:"method"`
	ClientIP          string    `json:"clientIp"`
	Limit             int       `json:"limit"`
	WindowSeconds     int       `json:"windowSeconds"`
	RetryAfterSeconds int       `json:"retryAfterSeconds"`
	DeniedAt          time.Time `json:"deniedAt"`
}
