// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ShortenRequest represents the request body for shortening a URL.
type ShortenRequest struct {
	URL string `json:"url"`
}

// ShortenResponse represents the response for a shortened URL.
type ShortenResponse struct {
	ShortURL string `json:"short_url"`
}

// StatsResponse represents per-link click statistics.
type StatsResponse struct {
	Alias   string `json:"alias"`
	LongURL string `json:"long_url"`
	Clicks  int64  `json:"clicks"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
