// Package message persists broadcast messages and their fan-out rows.
package message

import (
	"errors"
	"time"
)

// Persistence errors.
var (
	// ErrPersistence wraps any failed create or update.
	ErrPersistence = errors.New("message persistence failed")

	// ErrMissingID is returned when a create does not yield a usable identifier.
	ErrMissingID = errors.New("create returned no id")

	// ErrNoRecipients is returned when a write is requested for zero devices.
	ErrNoRecipients = errors.New("no recipients")

	// ErrMessageInfoNotFound is returned when updating an unknown message info.
	ErrMessageInfoNotFound = errors.New("message info not found")
)

// Literals read by the downstream delivery system.
const (
	ActionBroadcast      = "broadcastmessage"
	StatusPending        = "pending"
	DeviceStatusSpecific = "specific"

	InfoStatusInitialising = "initialising"
	InfoStatusPending      = "pending"
)

// Defaults for the message metadata.
const (
	DefaultCategory = "f&b"
	DefaultExpiry   = 2
	DefaultZoneID   = 1
)

// Layouts used for the date, time and send_at columns.
const (
	DateLayout   = "2006-01-02"
	TimeLayout   = "15:04:05"
	SendAtLayout = DateLayout + " " + TimeLayout
)

// Message is one broadcast event.
type Message struct {
	ID               int64
	Action           string
	UserID           int64
	Status           string
	DeviceStatus     string
	HotelIDs         string
	HotelRoomNumbers string
	Dates            string
	Time             string
	Expiry           int
	ZoneID           int
	Locales          string
	Content          string
	Category         string
}

// Hotel associates a message with one hotel it targets.
type Hotel struct {
	ID        int64
	MessageID int64
	HotelID   int64
}

// Info marks one dispatch batch of a message.
type Info struct {
	ID        int64
	MessageID int64
	SendAt    time.Time
	Status    string
	Expiry    int
}

// Recipient is one room targeted by a message.
type Recipient struct {
	ID              int64
	MessageID       int64
	MessageInfoID   int64
	HotelID         int64
	HotelRoomNumber string
}
