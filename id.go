package grace

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NowUnix returns current time as Unix seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}

// NowISO returns current time in RFC 3339 UTC, the timestamp format used
// inside ConversationRecord snapshots.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
