package domain

import (
	"strconv"

	"github.com/google/uuid"
)

// NewID generates a UUIDv7 string for application-owned entities such as
// sessions, requests, and export files.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FormatJobID converts a job counter value to its string form. Job ids are
// small decimal strings rather than UUIDs so they stay readable in poll URLs.
func FormatJobID(n int64) string {
	return strconv.FormatInt(n, 10)
}

// ParseJobID converts a job id string back to its counter value.
func ParseJobID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
