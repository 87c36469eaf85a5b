package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

// PostgresCatalog serves the immutable seat and trip reference data this
// core arbitrates over but does not own.
type PostgresCatalog struct {
	db *pgxpool.Pool
}

func NewPostgresCatalog(db *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{
		db: db,
	}
}

func (p *PostgresCatalog) SeatsByTrip(ctx context.Context, tripID string) ([]domain.Seat, error) {
	query := `
		SELECT s.id, s.vessel_id, s.seat_number, s.row_number, s.pos_x, s.pos_y,
		       s.seat_type, s.is_window, s.is_aisle, s.price_multiplier
		FROM seats s
		JOIN trips t ON t.vessel_id = s.vessel_id
		WHERE t.id = $1
		ORDER BY s.row_number, s.seat_number
	`

	rows, err := p.db.Query(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSeats(rows)
}

func (p *PostgresCatalog) SeatsByTripAndIDs(ctx context.Context, tripID string, seatIDs []string) ([]domain.Seat, error) {
	query := `
		SELECT s.id, s.vessel_id, s.seat_number, s.row_number, s.pos_x, s.pos_y,
		       s.seat_type, s.is_window, s.is_aisle, s.price_multiplier
		FROM seats s
		JOIN trips t ON t.vessel_id = s.vessel_id
		WHERE t.id = $1 AND s.id = ANY($2)
		ORDER BY s.row_number, s.seat_number
	`

	rows, err := p.db.Query(ctx, query, tripID, seatIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSeats(rows)
}

func (p *PostgresCatalog) TripByID(ctx context.Context, tripID string) (*domain.Trip, error) {
	query := `
		SELECT id, vessel_id, route, departure_at, base_fare, currency
		FROM trips
		WHERE id = $1
	`

	var trip domain.Trip

	err := p.db.QueryRow(ctx, query, tripID).Scan(
		&trip.ID,
		&trip.VesselID,
		&trip.Route,
		&trip.Departure,
		&trip.BaseFare,
		&trip.Currency,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &trip, nil
}

func scanSeats(rows pgx.Rows) ([]domain.Seat, error) {
	seats := make([]domain.Seat, 0)

	for rows.Next() {
		var seat domain.Seat

		err := rows.Scan(
			&seat.ID,
			&seat.VesselID,
			&seat.SeatNumber,
			&seat.RowNumber,
			&seat.PosX,
			&seat.PosY,
			&seat.Type,
			&seat.IsWindow,
			&seat.IsAisle,
			&seat.PriceMultiplier,
		)

		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}
