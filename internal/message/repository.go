package message

import "context"

// Repository defines the interface for broadcast persistence.
// Every Create returns the identifier assigned by the store.
type Repository interface {
	// CreateMessage inserts the parent message row.
	CreateMessage(ctx context.Context, m *Message) (int64, error)

	// CreateHotel inserts a message/hotel association row.
	CreateHotel(ctx context.Context, h *Hotel) (int64, error)

	// CreateInfo inserts a message info row.
	CreateInfo(ctx context.Context, info *Info) (int64, error)

	// CreateRecipient inserts a message recipient row.
	CreateRecipient(ctx context.Context, r *Recipient) (int64, error)

	// UpdateInfoStatus sets the status of a message info row.
	UpdateInfoStatus(ctx context.Context, id int64, status string) error
}
