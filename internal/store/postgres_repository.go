/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface for fines, payment agreements, maintenance payments, and the
 * maintenance settings singleton. Reservation, common-area, and guest-pass
 * queries live in postgres_repository_reservations.go.
 *
 * @dependencies
 * - context, encoding/json, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arcos/community-service/internal/domain"
)

var (
	ErrFineNotFound         = errors.New("fine not found")
	ErrAgreementNotFound    = errors.New("payment agreement not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrAreaNotFound         = errors.New("common area not found")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrVisitorNotFound      = errors.New("guest pass not found")
	ErrSettingsNotFound     = errors.New("maintenance settings not configured")
	ErrDuplicatePayment     = errors.New("a completed payment already exists for this user and month")
	ErrDuplicateTrackingKey = errors.New("tracking key already in use")
	ErrSlotTaken            = errors.New("reservation slot no longer available")
)

const (
	completedPaymentConstraint = "maintenance_payments_user_month_completed_idx"
	trackingKeyConstraint      = "maintenance_payments_tracking_key_idx"
)

// PostgresRepository is a concrete implementation of the Repository interface.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// --- Fines ---

const fineColumns = `id, user_id, user_name, user_house, reason, amount, status, due_date, late_fee, paid_at, created_by, payment_id, created_at`

func scanFine(row pgx.Row) (*domain.Fine, error) {
	var f domain.Fine
	err := row.Scan(&f.ID, &f.UserID, &f.UserName, &f.UserHouse, &f.Reason, &f.Amount,
		&f.Status, &f.DueDate, &f.LateFee, &f.PaidAt, &f.CreatedBy, &f.PaymentID, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFineNotFound
		}
		return nil, err
	}
	return &f, nil
}

// CreateFine inserts a new fine record.
func (r *PostgresRepository) CreateFine(ctx context.Context, fine *domain.Fine) error {
	query := `
		INSERT INTO fines (id, user_id, user_name, user_house, reason, amount, status, due_date, late_fee, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query, fine.ID, fine.UserID, fine.UserName, fine.UserHouse,
		fine.Reason, fine.Amount, fine.Status, fine.DueDate, fine.LateFee, fine.CreatedBy, fine.CreatedAt)
	return err
}

// FindFineByID retrieves a fine by its ID.
func (r *PostgresRepository) FindFineByID(ctx context.Context, fineID uuid.UUID) (*domain.Fine, error) {
	query := `SELECT ` + fineColumns + ` FROM fines WHERE id = $1`
	return scanFine(r.db.QueryRow(ctx, query, fineID))
}

func (r *PostgresRepository) queryFines(ctx context.Context, query string, args ...any) ([]domain.Fine, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fines []domain.Fine
	for rows.Next() {
		f, err := scanFine(rows)
		if err != nil {
			return nil, err
		}
		fines = append(fines, *f)
	}
	return fines, rows.Err()
}

// FindFinesByUser returns every fine for a resident, newest first.
func (r *PostgresRepository) FindFinesByUser(ctx context.Context, userID uuid.UUID) ([]domain.Fine, error) {
	query := `SELECT ` + fineColumns + ` FROM fines WHERE user_id = $1 ORDER BY created_at DESC`
	return r.queryFines(ctx, query, userID)
}

// FindUnsettledFinesByUser returns the pending and overdue fines for a resident.
func (r *PostgresRepository) FindUnsettledFinesByUser(ctx context.Context, userID uuid.UUID) ([]domain.Fine, error) {
	query := `SELECT ` + fineColumns + ` FROM fines WHERE user_id = $1 AND status IN ('pending', 'overdue') ORDER BY due_date ASC`
	return r.queryFines(ctx, query, userID)
}

// UpdateFineFields applies a partial administrative edit to a fine.
func (r *PostgresRepository) UpdateFineFields(ctx context.Context, fineID uuid.UUID, update domain.FineUpdate) error {
	query := `
		UPDATE fines
		SET reason = COALESCE($2, reason),
		    amount = COALESCE($3, amount),
		    due_date = COALESCE($4, due_date),
		    late_fee = COALESCE($5, late_fee)
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, fineID, update.Reason, update.Amount, update.DueDate, update.LateFee)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFineNotFound
	}
	return nil
}

// UpdateFineStatus sets the status of a fine.
func (r *PostgresRepository) UpdateFineStatus(ctx context.Context, fineID uuid.UUID, status domain.FineStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE fines SET status = $2 WHERE id = $1`, fineID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFineNotFound
	}
	return nil
}

// MarkFinePaid settles a fine, linking the payment that covered it. The
// status guard makes the settlement safe to replay: a fine already paid or
// cancelled is left untouched.
func (r *PostgresRepository) MarkFinePaid(ctx context.Context, fineID uuid.UUID, paymentID uuid.UUID, paidAt time.Time) error {
	query := `
		UPDATE fines
		SET status = 'paid', paid_at = $3, payment_id = $2
		WHERE id = $1 AND status IN ('pending', 'overdue')
	`
	tag, err := r.db.Exec(ctx, query, fineID, paymentID, paidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFineNotFound
	}
	return nil
}

// MarkOverdueFines transitions every pending fine past its due date to
// overdue and returns how many rows changed. A second sweep with the same
// clock value matches zero rows.
func (r *PostgresRepository) MarkOverdueFines(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE fines SET status = 'overdue' WHERE status = 'pending' AND due_date < $1`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteFine hard-deletes a fine. Administrative override only.
func (r *PostgresRepository) DeleteFine(ctx context.Context, fineID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM fines WHERE id = $1`, fineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFineNotFound
	}
	return nil
}

// --- Payment agreements ---

// FindActiveAgreementsByUser returns the open payment agreements for a resident.
func (r *PostgresRepository) FindActiveAgreementsByUser(ctx context.Context, userID uuid.UUID) ([]domain.PaymentAgreement, error) {
	query := `
		SELECT id, user_id, description, amount, active, created_at
		FROM payment_agreements
		WHERE user_id = $1 AND active = TRUE
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agreements []domain.PaymentAgreement
	for rows.Next() {
		var a domain.PaymentAgreement
		if err := rows.Scan(&a.ID, &a.UserID, &a.Description, &a.Amount, &a.Active, &a.CreatedAt); err != nil {
			return nil, err
		}
		agreements = append(agreements, a)
	}
	return agreements, rows.Err()
}

// FindAgreementByID retrieves a payment agreement by its ID.
func (r *PostgresRepository) FindAgreementByID(ctx context.Context, agreementID uuid.UUID) (*domain.PaymentAgreement, error) {
	var a domain.PaymentAgreement
	query := `SELECT id, user_id, description, amount, active, created_at FROM payment_agreements WHERE id = $1`
	err := r.db.QueryRow(ctx, query, agreementID).Scan(&a.ID, &a.UserID, &a.Description, &a.Amount, &a.Active, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAgreementNotFound
		}
		return nil, err
	}
	return &a, nil
}

// DeactivateAgreement closes an agreement once it has been paid off.
func (r *PostgresRepository) DeactivateAgreement(ctx context.Context, agreementID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE payment_agreements SET active = FALSE WHERE id = $1`, agreementID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAgreementNotFound
	}
	return nil
}

// --- Maintenance payments ---

const paymentColumns = `id, user_id, user_name, resident_name, resident_street, resident_house_number, resident_phone, resident_email,
	amount, payment_date, payment_method, status, month, year, notes, comments, breakdown, tracking_key, resident_status, updated_by, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.MaintenancePayment, error) {
	var p domain.MaintenancePayment
	var breakdownJSON []byte
	err := row.Scan(&p.ID, &p.UserID, &p.UserName,
		&p.ResidentInfo.Name, &p.ResidentInfo.Street, &p.ResidentInfo.HouseNumber, &p.ResidentInfo.Phone, &p.ResidentInfo.Email,
		&p.Amount, &p.PaymentDate, &p.PaymentMethod, &p.Status, &p.Month, &p.Year,
		&p.Notes, &p.Comments, &breakdownJSON, &p.TrackingKey, &p.ResidentStatus, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if len(breakdownJSON) > 0 {
		var b domain.PaymentBreakdown
		if err := json.Unmarshal(breakdownJSON, &b); err != nil {
			return nil, fmt.Errorf("decode payment breakdown: %w", err)
		}
		p.Breakdown = &b
	}
	return &p, nil
}

// CreatePayment inserts a new maintenance payment with its breakdown as JSONB.
// A partial unique index guards the one-completed-payment-per-month rule and
// a unique index guards the tracking key; both surface as typed errors.
func (r *PostgresRepository) CreatePayment(ctx context.Context, payment *domain.MaintenancePayment) error {
	var breakdownJSON []byte
	if payment.Breakdown != nil {
		var err error
		breakdownJSON, err = json.Marshal(payment.Breakdown)
		if err != nil {
			return fmt.Errorf("encode payment breakdown: %w", err)
		}
	}

	query := `
		INSERT INTO maintenance_payments
			(id, user_id, user_name, resident_name, resident_street, resident_house_number, resident_phone, resident_email,
			 amount, payment_date, payment_method, status, month, year, notes, comments, breakdown, tracking_key, resident_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err := r.db.Exec(ctx, query, payment.ID, payment.UserID, payment.UserName,
		payment.ResidentInfo.Name, payment.ResidentInfo.Street, payment.ResidentInfo.HouseNumber,
		payment.ResidentInfo.Phone, payment.ResidentInfo.Email,
		payment.Amount, payment.PaymentDate, payment.PaymentMethod, payment.Status,
		payment.Month, payment.Year, payment.Notes, payment.Comments, breakdownJSON,
		payment.TrackingKey, payment.ResidentStatus, payment.CreatedAt, payment.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case completedPaymentConstraint:
				return ErrDuplicatePayment
			case trackingKeyConstraint:
				return ErrDuplicateTrackingKey
			}
		}
		return err
	}
	return nil
}

// FindPaymentByID retrieves a payment by its ID.
func (r *PostgresRepository) FindPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.MaintenancePayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM maintenance_payments WHERE id = $1`
	return scanPayment(r.db.QueryRow(ctx, query, paymentID))
}

func (r *PostgresRepository) queryPayments(ctx context.Context, query string, args ...any) ([]domain.MaintenancePayment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.MaintenancePayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// FindPaymentsByUser returns every payment by a resident, newest first.
func (r *PostgresRepository) FindPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]domain.MaintenancePayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM maintenance_payments WHERE user_id = $1 ORDER BY payment_date DESC`
	return r.queryPayments(ctx, query, userID)
}

// FindPaymentsByMonth returns every payment targeting the given month.
func (r *PostgresRepository) FindPaymentsByMonth(ctx context.Context, month, year int) ([]domain.MaintenancePayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM maintenance_payments WHERE month = $1 AND year = $2 ORDER BY payment_date ASC`
	return r.queryPayments(ctx, query, month, year)
}

// HasCompletedPayment reports whether a completed payment exists for the key.
func (r *PostgresRepository) HasCompletedPayment(ctx context.Context, userID uuid.UUID, month, year int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM maintenance_payments WHERE user_id = $1 AND month = $2 AND year = $3 AND status = 'completed')`
	err := r.db.QueryRow(ctx, query, userID, month, year).Scan(&exists)
	return exists, err
}

// FindSettledMonths lists the (month, year) pairs at or after `from` for
// which the resident already holds a completed payment. Used to skip months
// when itemizing advance payments.
func (r *PostgresRepository) FindSettledMonths(ctx context.Context, userID uuid.UUID, from MonthKey) ([]MonthKey, error) {
	query := `
		SELECT month, year FROM maintenance_payments
		WHERE user_id = $1 AND status = 'completed'
		  AND (year > $3 OR (year = $3 AND month >= $2))
		ORDER BY year, month
	`
	rows, err := r.db.Query(ctx, query, userID, from.Month, from.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var months []MonthKey
	for rows.Next() {
		var mk MonthKey
		if err := rows.Scan(&mk.Month, &mk.Year); err != nil {
			return nil, err
		}
		months = append(months, mk)
	}
	return months, rows.Err()
}

// UpdatePaymentStatus applies an administrative correction to a payment.
// Status transitions are validated by the service before calling here; the
// unique index still backs the duplicate-completed rule at this layer.
func (r *PostgresRepository) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, update domain.PaymentUpdate, updatedAt time.Time) error {
	query := `
		UPDATE maintenance_payments
		SET status = COALESCE($2, status),
		    comments = COALESCE($3, comments),
		    updated_by = $4,
		    updated_at = $5
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, paymentID, update.Status, update.Comments, update.UpdatedBy, updatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == completedPaymentConstraint {
			return ErrDuplicatePayment
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// --- Maintenance settings ---

// GetMaintenanceSettings returns the singleton settings row.
func (r *PostgresRepository) GetMaintenanceSettings(ctx context.Context) (*domain.MaintenanceSettings, error) {
	var s domain.MaintenanceSettings
	query := `
		SELECT price, due_day, late_fee, bank_name, account_holder, clabe, updated_at, updated_by
		FROM maintenance_settings
		ORDER BY id DESC LIMIT 1
	`
	err := r.db.QueryRow(ctx, query).Scan(&s.Price, &s.DueDay, &s.LateFee,
		&s.BankName, &s.AccountHolder, &s.CLABE, &s.UpdatedAt, &s.UpdatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return &s, nil
}

// UpdateMaintenanceSettings applies a partial settings change and appends a
// price-history entry when the monthly price changed, inside one transaction.
func (r *PostgresRepository) UpdateMaintenanceSettings(ctx context.Context, update domain.SettingsUpdate, now time.Time) (*domain.MaintenanceSettings, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE maintenance_settings
		SET price = COALESCE($1, price),
		    due_day = COALESCE($2, due_day),
		    late_fee = COALESCE($3, late_fee),
		    bank_name = COALESCE($4, bank_name),
		    account_holder = COALESCE($5, account_holder),
		    clabe = COALESCE($6, clabe),
		    updated_at = $7,
		    updated_by = $8
		WHERE id = 1
		RETURNING price, due_day, late_fee, bank_name, account_holder, clabe, updated_at, updated_by
	`
	var s domain.MaintenanceSettings
	err = tx.QueryRow(ctx, query, update.Price, update.DueDay, update.LateFee,
		update.BankName, update.AccountHolder, update.CLABE, now, update.UpdatedBy).
		Scan(&s.Price, &s.DueDay, &s.LateFee, &s.BankName, &s.AccountHolder, &s.CLABE, &s.UpdatedAt, &s.UpdatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}

	if update.Price != nil {
		historyQuery := `
			INSERT INTO maintenance_price_history (id, price, effective_date, created_by, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.Exec(ctx, historyQuery, uuid.New(), *update.Price, now, update.UpdatedBy, update.Notes, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListPriceHistory returns the maintenance price history, newest first.
func (r *PostgresRepository) ListPriceHistory(ctx context.Context) ([]domain.MaintenancePriceChange, error) {
	query := `
		SELECT id, price, effective_date, created_by, notes, created_at
		FROM maintenance_price_history
		ORDER BY effective_date DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.MaintenancePriceChange
	for rows.Next() {
		var c domain.MaintenancePriceChange
		if err := rows.Scan(&c.ID, &c.Price, &c.EffectiveDate, &c.CreatedBy, &c.Notes, &c.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, c)
	}
	return history, rows.Err()
}
