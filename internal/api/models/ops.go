// Package models provides response models for the ops HTTP surface.
package models

import "time"

// HealthStatus is a coarse health indicator.
type HealthStatus string

const (
	HealthStatusOK HealthStatus = "OK"

	// HealthStatusDegraded means the process is alive but its last send
	// cycle failed.
	HealthStatusDegraded HealthStatus = "DEGRADED"
)

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    time.Time              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SendRecord is one retained broadcast.
type SendRecord struct {
	MessageID     int64     `json:"messageId"`
	MessageInfoID int64     `json:"messageInfoId"`
	SendAt        time.Time `json:"sendAt"`
	Recipients    int       `json:"recipients"`
	Rooms         []string  `json:"rooms"`
}

// SendStatus reports the send job state.
type SendStatus struct {
	Running bool                   `json:"running"`
	NextRun *time.Time             `json:"nextRun,omitempty"`
	Metrics map[string]interface{} `json:"metrics"`
	History []SendRecord           `json:"history"`
}
