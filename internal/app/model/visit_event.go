package model

import "time"

// VisitRecorded is published after a visit transaction commits.
type VisitRecorded struct {
	ID          string      `json:"id"`
	MappingID   string      `json:"mapping_id"`
	ShortCode   string      `json:"short_code"`
	DeviceClass DeviceClass `json:"device_class"`
	IsUnique    bool        `json:"is_unique"`
	Timestamp   time.Time   `json:"timestamp"`
}

const (
	VisitStreamName     = "VISITS"
	VisitStreamSubject  = "visits.recorded"
	VisitStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
