package utils

import "github.com/google/uuid"

// NewRequestID returns a random UUID used to correlate log lines and
// responses for one request.
func NewRequestID() string {
	return uuid.NewString()
}
