package tasks

import "time"

// Task types
const (
	TaskTypeExportProcess     = "export:process"
	TaskTypeExportPurge       = "export:purge"
	TaskTypeRestrictionExpire = "restriction:expire"
)

// Task queues
const (
	QueueCritical = "critical" // export production requested by a user
	QueueDefault  = "default"
	QueueLow      = "low" // periodic sweeps
)

// Task timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
	TimeoutLong   = 30 * time.Minute
)

// ExportProcessPayload carries the export job to produce
type ExportProcessPayload struct {
	ExportID string `json:"exportId"`
}
