package domain

import (
	"time"

	"github.com/google/uuid"
)

// APIKeyUsage records one authenticated request made with an API key.
type APIKeyUsage struct {
	ID         uuid.UUID `json:"id"`
	APIKeyID   uuid.UUID `json:"api_key_id"`
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	StatusCode int       `json:"status_code"`
	IPAddress  *string   `json:"ip_address,omitempty"`
	UserAgent  *string   `json:"user_agent,omitempty"`
	RequestID  *string   `json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// DailyUsage is one day's request counts within a stats window.
type DailyUsage struct {
	Date     string `json:"date"` // YYYY-MM-DD
	Requests int64  `json:"requests"`
	Errors   int64  `json:"errors"`
}

// APIKeyUsageStats aggregates usage of one key over a trailing window.
// A request counts as successful when its status code is below 400.
type APIKeyUsageStats struct {
	TotalRequests      int64        `json:"total_requests"`
	SuccessfulRequests int64        `json:"successful_requests"`
	ErrorRequests      int64        `json:"error_requests"`
	Daily              []DailyUsage `json:"daily"`
}
