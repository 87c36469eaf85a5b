package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tersane/ferry-reservation-system/internal/domain"
)

type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepository(db *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

func (p *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (booking_id, gateway_session_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	return p.db.QueryRow(
		ctx,
		query,
		payment.BookingID,
		payment.GatewaySessionID,
		payment.Amount,
		payment.Currency,
		payment.Status).Scan(&payment.ID, &payment.CreatedAt)
}

func (p *PostgresPaymentRepository) UpdateStatus(
	ctx context.Context,
	gatewaySessionID string,
	status domain.PaymentStatus,
	resolvedBy domain.ResultChannel,
	errMsg string) error {

	query := `
		UPDATE payments
		SET status = $2, resolved_by = $3, error_msg = NULLIF($4, ''), updated_at = NOW()
		WHERE gateway_session_id = $1
	`

	_, err := p.db.Exec(ctx, query, gatewaySessionID, status, resolvedBy, errMsg)

	return err
}

func (p *PostgresPaymentRepository) SetTransaction(ctx context.Context, gatewaySessionID, transactionID string) error {
	query := `
		UPDATE payments
		SET transaction_id = $2, updated_at = NOW()
		WHERE gateway_session_id = $1
	`

	_, err := p.db.Exec(ctx, query, gatewaySessionID, transactionID)

	return err
}
