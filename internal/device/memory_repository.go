package device

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu      sync.RWMutex
	devices map[string]*Device // keyed by barcode
	err     error
}

// NewInMemoryRepository creates a new in-memory device repository.
func NewInMemoryRepository(devices ...*Device) *InMemoryRepository {
	r := &InMemoryRepository{
		devices: make(map[string]*Device, len(devices)),
	}
	for _, d := range devices {
		r.devices[d.Barcode] = copyDevice(d)
	}
	return r
}

// Put stores or replaces a device.
func (r *InMemoryRepository) Put(device *Device) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices[device.Barcode] = copyDevice(device)
}

// FailWith makes every subsequent read return err. Pass nil to clear.
func (r *InMemoryRepository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.err = err
}

// FindEligible returns the devices matching the roster and battery threshold,
// ordered like the PostgreSQL implementation.
func (r *InMemoryRepository) FindEligible(_ context.Context, q EligibleQuery) ([]*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.err != nil {
		return nil, r.err
	}

	var items []*Device
	seen := make(map[string]struct{}, len(q.Barcodes))
	for _, barcode := range q.Barcodes {
		if _, dup := seen[barcode]; dup {
			continue
		}
		seen[barcode] = struct{}{}

		device, ok := r.devices[barcode]
		if !ok || device.BatteryLevel < q.MinBatteryLevel {
			continue
		}
		items = append(items, copyDevice(device))
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].HotelID != items[j].HotelID {
			return items[i].HotelID < items[j].HotelID
		}
		return items[i].HotelRoomNumber < items[j].HotelRoomNumber
	})

	return items, nil
}

func copyDevice(d *Device) *Device {
	if d == nil {
		return nil
	}
	deviceCopy := *d
	return &deviceCopy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
