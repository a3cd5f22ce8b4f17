package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/slotline/booking-backend/internal/models"
)

// PaymentRepository handles database operations for the payments table
type PaymentRepository struct {
	db DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create records a payment for a booking
func (r *PaymentRepository) Create(payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, amount, method, status, reference, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	return r.db.QueryRow(
		query,
		payment.ID, payment.BookingID, payment.Amount, payment.Method,
		payment.Status, payment.Reference, payment.PaidAt,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
}

// GetByBooking retrieves payments attached to a booking
func (r *PaymentRepository) GetByBooking(bookingID uuid.UUID) ([]models.Payment, error) {
	query := `
		SELECT id, booking_id, amount, method, status, reference, paid_at,
			   created_at, updated_at
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		var payment models.Payment
		err := rows.Scan(
			&payment.ID, &payment.BookingID, &payment.Amount, &payment.Method,
			&payment.Status, &payment.Reference, &payment.PaidAt,
			&payment.CreatedAt, &payment.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

// UpdateStatus moves a payment to a new status, stamping paid_at when paid
func (r *PaymentRepository) UpdateStatus(paymentID uuid.UUID, status models.PaymentStatus) error {
	query := `
		UPDATE payments
		SET status = $2,
			paid_at = CASE WHEN $2 = 'paid' THEN $3 ELSE paid_at END,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, paymentID, status, time.Now())
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("payment not found")
	}

	return nil
}

// TotalRevenue sums paid payments within a time range
func (r *PaymentRepository) TotalRevenue(start, end time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE status = 'paid' AND paid_at >= $1 AND paid_at < $2
	`

	var total float64
	err := r.db.QueryRow(query, start, end).Scan(&total)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}

	return total, nil
}
