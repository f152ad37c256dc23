// Package device provides read access to the in-room device fleet.
package device

import "errors"

// ErrDataAccess wraps failures reading devices from the store.
var ErrDataAccess = errors.New("device data access failed")

// Device is a room device as stored in the devices table.
type Device struct {
	Barcode         string
	HotelID         int64
	HotelRoomNumber string
	BatteryLevel    int
}

// Target is the projection of a Device used when addressing a broadcast.
type Target struct {
	Barcode         string `json:"barcode"`
	HotelID         int64  `json:"hotel_id"`
	HotelRoomNumber string `json:"hotel_room_number"`
}

// Target projects the device to its addressing fields.
func (d *Device) Target() Target {
	return Target{
		Barcode:         d.Barcode,
		HotelID:         d.HotelID,
		HotelRoomNumber: d.HotelRoomNumber,
	}
}

// EligibleQuery selects devices for a send cycle.
type EligibleQuery struct {
	Barcodes        []string
	MinBatteryLevel int
}
