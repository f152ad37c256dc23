package device

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL device repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindEligible returns the devices matching the roster and battery threshold.
func (r *PostgresRepository) FindEligible(ctx context.Context, q EligibleQuery) ([]*Device, error) {
	if len(q.Barcodes) == 0 {
		return nil, nil
	}

	query := `
		SELECT barcode, hotel_id, hotel_room_number, batterylv
		FROM devices
		WHERE barcode = ANY($1) AND batterylv >= $2
		ORDER BY hotel_id, hotel_room_number
	`

	rows, err := r.pool.Query(ctx, query, q.Barcodes, q.MinBatteryLevel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		var device Device
		err := rows.Scan(
			&device.Barcode,
			&device.HotelID,
			&device.HotelRoomNumber,
			&device.BatteryLevel,
		)
		if err != nil {
			return nil, err
		}
		devices = append(devices, &device)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return devices, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
