package tool

import (
	"time"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// MillisSince returns the elapsed wall time since start in milliseconds.
func MillisSince(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
