package message

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL message repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// CreateMessage inserts the parent message row.
func (r *PostgresRepository) CreateMessage(ctx context.Context, m *Message) (int64, error) {
	query := `
		INSERT INTO messages (
			action, user_id, status, device_status, hotel_ids, hotel_room_numbers,
			dates, time, expiry, zone_id, locales, content, category
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		m.Action,
		m.UserID,
		m.Status,
		m.DeviceStatus,
		m.HotelIDs,
		m.HotelRoomNumbers,
		m.Dates,
		m.Time,
		m.Expiry,
		m.ZoneID,
		m.Locales,
		m.Content,
		m.Category,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// CreateHotel inserts a message/hotel association row.
func (r *PostgresRepository) CreateHotel(ctx context.Context, h *Hotel) (int64, error) {
	query := `
		INSERT INTO message_hotels (message_id, hotel_id)
		VALUES ($1, $2)
		RETURNING id
	`

	var id int64
	if err := r.pool.QueryRow(ctx, query, h.MessageID, h.HotelID).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// CreateInfo inserts a message info row.
func (r *PostgresRepository) CreateInfo(ctx context.Context, info *Info) (int64, error) {
	query := `
		INSERT INTO message_infos (message_id, send_at, status, expiry)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		info.MessageID,
		info.SendAt,
		info.Status,
		info.Expiry,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// CreateRecipient inserts a message recipient row.
func (r *PostgresRepository) CreateRecipient(ctx context.Context, rcpt *Recipient) (int64, error) {
	query := `
		INSERT INTO message_recipients (message_id, message_info_id, hotel_id, hotel_room_number)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		rcpt.MessageID,
		rcpt.MessageInfoID,
		rcpt.HotelID,
		rcpt.HotelRoomNumber,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateInfoStatus sets the status of a message info row.
func (r *PostgresRepository) UpdateInfoStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE message_infos SET status = $2 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrMessageInfoNotFound
	}

	return nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
