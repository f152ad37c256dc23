// Package worker runs the scheduled QA broadcast.
package worker

import (
	"time"
)

// DefaultHistorySize is the number of completed sends kept for verification.
const DefaultHistorySize = 10

// SendConfig holds configuration for the send job.
type SendConfig struct {
	// Barcodes is the fixed device roster.
	Barcodes []string

	// MinBatteryLevel excludes devices reporting less battery.
	MinBatteryLevel int

	// MessageContent maps locale to a template with a {{date}} placeholder.
	MessageContent map[string]string

	// Location is the zone send timestamps are produced in.
	// Default: UTC
	Location *time.Location

	// HistorySize bounds the retained send history.
	// Default: 10
	HistorySize int
}

// withDefaults returns a copy of c with unset fields defaulted.
func (c SendConfig) withDefaults() SendConfig {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
	c.Barcodes = append([]string(nil), c.Barcodes...)
	return c
}
