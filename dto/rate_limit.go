package dto

import "time"

type RateLimitInfo struct {
	Allowed    bool          `json:"allowed"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	RetryAfter time.Duration `json:"-"`
}

// RateLimitExceededResponse is the 429 body.
type RateLimitExceededResponse struct {
	Timestamp  time.Time `json:"timestamp"`
	Status     int       `json:"status" example:"429"`
	Error      string    `json:"error" example:"Too Many Requests"`
	Message    string    `json:"message" example:"Rate limit exceeded. Please retry later."`
	Limit      int       `json:"limit" example:"100"`
	RetryAfter int64     `json:"retryAfter" example:"60"`
}
