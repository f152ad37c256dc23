package device

import "context"

// Repository defines the interface for device reads.
type Repository interface {
	// FindEligible returns the devices whose barcode is in q.Barcodes and
	// whose battery level is at least q.MinBatteryLevel.
	FindEligible(ctx context.Context, q EligibleQuery) ([]*Device, error)
}
