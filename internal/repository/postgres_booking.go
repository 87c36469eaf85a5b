package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

func (p *PostgresBookingRepository) Create(ctx context.Context, booking *domain.BookingDraft) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO bookings (id, trip_id, holder_id, contact_email, total_amount, currency, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`

		err := tx.QueryRow(
			ctx,
			query,
			booking.ID,
			booking.TripID,
			booking.HolderID,
			booking.ContactEmail,
			booking.TotalAmount,
			booking.Currency,
			domain.BookingStatusDraft).Scan(&booking.CreatedAt)

		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return domain.ErrDuplicateBooking
			}

			return err
		}

		rows := make([][]any, 0, len(booking.SeatIDs))
		for _, seatID := range booking.SeatIDs {
			rows = append(rows, []any{booking.ID, seatID})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"booking_seats"},
			[]string{"booking_id", "seat_id"},
			pgx.CopyFromRows(rows),
		)

		return err
	})
}

func (p *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.BookingDraft, error) {
	query := `
		SELECT id, trip_id, holder_id, contact_email, total_amount, currency, status, cancel_reason, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	var (
		booking      domain.BookingDraft
		cancelReason *string
	)

	err := p.db.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.TripID,
		&booking.HolderID,
		&booking.ContactEmail,
		&booking.TotalAmount,
		&booking.Currency,
		&booking.Status,
		&cancelReason,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	if cancelReason != nil {
		booking.CancelReason = domain.CancelReason(*cancelReason)
	}

	seatQuery := `
		SELECT seat_id
		FROM booking_seats
		WHERE booking_id = $1
		ORDER BY seat_id
	`

	rows, err := p.db.Query(ctx, seatQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seatID string

		if err := rows.Scan(&seatID); err != nil {
			return nil, err
		}

		booking.SeatIDs = append(booking.SeatIDs, seatID)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return &booking, nil
}

func (p *PostgresBookingRepository) MarkAwaitingPayment(ctx context.Context, id string) error {
	query := `
		UPDATE bookings
		SET status = 'awaiting_payment', updated_at = NOW()
		WHERE id = $1 AND status = 'draft'
	`

	tag, err := p.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotPayable
	}

	return nil
}

func (p *PostgresBookingRepository) Confirm(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'confirmed', updated_at = NOW()
		WHERE id = $1 AND status = 'awaiting_payment'
	`

	tag, err := p.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (p *PostgresBookingRepository) Cancel(ctx context.Context, id string, reason domain.CancelReason) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', cancel_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'awaiting_payment')
	`

	tag, err := p.db.Exec(ctx, query, id, reason)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}
