package domain

import "time"

// LogEntry records a rejected or malformed trade request verbatim.
// The log is append-only and never referenced by orders.
type LogEntry struct {
	ID      int64
	Logtime time.Time
	Message string
}
