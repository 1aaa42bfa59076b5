package domain

import "time"

// AuditEntry is an append-only remote log row. One entry is written per
// successfully submitted sale, never per queue operation.
type AuditEntry struct {
	ActorID   string
	ActorName string
	Action    string
	Details   string
	Timestamp time.Time
}
