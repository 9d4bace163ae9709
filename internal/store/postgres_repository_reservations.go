/**
 * @description
 * PostgreSQL queries for common areas, reservations, and guest passes.
 *
 * The reservation insert is the one place the persistence layer provides
 * mutual exclusion: the pure availability checker only evaluates a snapshot,
 * so `CreateReservationIfAvailable` re-counts overlapping bookings inside
 * the same transaction that inserts, holding the area row lock. Two racing
 * requests for the last slot serialize on that lock and the loser gets
 * ErrSlotTaken.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arcos/community-service/internal/domain"
)

const areaColumns = `id, name, description, capacity, opening_time, closing_time, reservation_cost,
	requires_deposit, deposit_amount, max_advance_days, simultaneous_slots, active, condominium_id`

func scanArea(row pgx.Row) (*domain.CommonArea, error) {
	var a domain.CommonArea
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Capacity, &a.OpeningTime, &a.ClosingTime,
		&a.ReservationCost, &a.RequiresDeposit, &a.DepositAmount, &a.MaxAdvanceDays,
		&a.SimultaneousSlots, &a.Active, &a.CondominiumID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAreaNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListCommonAreas returns every common area, optionally active ones only.
func (r *PostgresRepository) ListCommonAreas(ctx context.Context, activeOnly bool) ([]domain.CommonArea, error) {
	query := `SELECT ` + areaColumns + ` FROM common_areas`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []domain.CommonArea
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		areas = append(areas, *a)
	}
	return areas, rows.Err()
}

// FindAreaByID retrieves a common area by its ID.
func (r *PostgresRepository) FindAreaByID(ctx context.Context, areaID uuid.UUID) (*domain.CommonArea, error) {
	query := `SELECT ` + areaColumns + ` FROM common_areas WHERE id = $1`
	return scanArea(r.db.QueryRow(ctx, query, areaID))
}

// SaveCommonArea upserts a common area (administrative CRUD).
func (r *PostgresRepository) SaveCommonArea(ctx context.Context, area *domain.CommonArea) error {
	query := `
		INSERT INTO common_areas
			(id, name, description, capacity, opening_time, closing_time, reservation_cost,
			 requires_deposit, deposit_amount, max_advance_days, simultaneous_slots, active, condominium_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			capacity = EXCLUDED.capacity,
			opening_time = EXCLUDED.opening_time,
			closing_time = EXCLUDED.closing_time,
			reservation_cost = EXCLUDED.reservation_cost,
			requires_deposit = EXCLUDED.requires_deposit,
			deposit_amount = EXCLUDED.deposit_amount,
			max_advance_days = EXCLUDED.max_advance_days,
			simultaneous_slots = EXCLUDED.simultaneous_slots,
			active = EXCLUDED.active,
			condominium_id = EXCLUDED.condominium_id
	`
	_, err := r.db.Exec(ctx, query, area.ID, area.Name, area.Description, area.Capacity,
		area.OpeningTime, area.ClosingTime, area.ReservationCost, area.RequiresDeposit,
		area.DepositAmount, area.MaxAdvanceDays, area.SimultaneousSlots, area.Active, area.CondominiumID)
	return err
}

const reservationColumns = `id, area_id, user_id, date, start_time, end_time, status, deposit_payment_id, created_at`

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var res domain.Reservation
	err := row.Scan(&res.ID, &res.AreaID, &res.UserID, &res.Date, &res.StartTime, &res.EndTime,
		&res.Status, &res.DepositPaymentID, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &res, nil
}

// FindActiveReservations returns the non-cancelled reservations for an area
// on a given date. This is the snapshot the availability checker evaluates.
func (r *PostgresRepository) FindActiveReservations(ctx context.Context, areaID uuid.UUID, date time.Time) ([]domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE area_id = $1 AND date = $2 AND status <> 'cancelled'
		ORDER BY start_time ASC
	`
	rows, err := r.db.Query(ctx, query, areaID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *res)
	}
	return reservations, rows.Err()
}

// CreateReservationIfAvailable inserts a reservation only if the overlap
// count, re-evaluated under the area row lock, is still below slotCapacity.
func (r *PostgresRepository) CreateReservationIfAvailable(ctx context.Context, res *domain.Reservation, slotCapacity int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Serialize concurrent bookings for the same area.
	var lockedID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM common_areas WHERE id = $1 FOR UPDATE`, res.AreaID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAreaNotFound
		}
		return err
	}

	var overlapping int
	countQuery := `
		SELECT COUNT(*) FROM reservations
		WHERE area_id = $1 AND date = $2 AND status <> 'cancelled'
		  AND start_time < $4 AND $3 < end_time
	`
	if err := tx.QueryRow(ctx, countQuery, res.AreaID, res.Date, res.StartTime, res.EndTime).Scan(&overlapping); err != nil {
		return err
	}
	if overlapping >= slotCapacity {
		return ErrSlotTaken
	}

	insertQuery := `
		INSERT INTO reservations (id, area_id, user_id, date, start_time, end_time, status, deposit_payment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.Exec(ctx, insertQuery, res.ID, res.AreaID, res.UserID, res.Date,
		res.StartTime, res.EndTime, res.Status, res.DepositPaymentID, res.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// FindReservationsByUser returns a resident's reservations, newest date first.
func (r *PostgresRepository) FindReservationsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = $1 ORDER BY date DESC, start_time DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *res)
	}
	return reservations, rows.Err()
}

// CancelReservation cancels a reservation owned by the given user.
func (r *PostgresRepository) CancelReservation(ctx context.Context, reservationID, userID uuid.UUID) error {
	query := `
		UPDATE reservations SET status = 'cancelled'
		WHERE id = $1 AND user_id = $2 AND status <> 'cancelled'
	`
	tag, err := r.db.Exec(ctx, query, reservationID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// --- Guest passes ---

const visitorColumns = `id, host_user_id, name, phone, visit_date, entry_time, destination, companions, qr_payload, status, created_at`

func scanVisitor(row pgx.Row) (*domain.Visitor, error) {
	var v domain.Visitor
	err := row.Scan(&v.ID, &v.HostUserID, &v.Name, &v.Phone, &v.VisitDate, &v.EntryTime,
		&v.Destination, &v.Companions, &v.QRPayload, &v.Status, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVisitorNotFound
		}
		return nil, err
	}
	return &v, nil
}

// CreateVisitor registers a guest pass.
func (r *PostgresRepository) CreateVisitor(ctx context.Context, visitor *domain.Visitor) error {
	query := `
		INSERT INTO visitors (id, host_user_id, name, phone, visit_date, entry_time, destination, companions, qr_payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query, visitor.ID, visitor.HostUserID, visitor.Name, visitor.Phone,
		visitor.VisitDate, visitor.EntryTime, visitor.Destination, visitor.Companions,
		visitor.QRPayload, visitor.Status, visitor.CreatedAt)
	return err
}

// FindVisitorByID retrieves a guest pass by its ID.
func (r *PostgresRepository) FindVisitorByID(ctx context.Context, visitorID uuid.UUID) (*domain.Visitor, error) {
	query := `SELECT ` + visitorColumns + ` FROM visitors WHERE id = $1`
	return scanVisitor(r.db.QueryRow(ctx, query, visitorID))
}

// FindVisitorByQRPayload resolves a scanned QR payload to its guest pass.
func (r *PostgresRepository) FindVisitorByQRPayload(ctx context.Context, payload string) (*domain.Visitor, error) {
	query := `SELECT ` + visitorColumns + ` FROM visitors WHERE qr_payload = $1`
	return scanVisitor(r.db.QueryRow(ctx, query, payload))
}

// ListVisitorsByHost returns the guest passes a resident has registered.
func (r *PostgresRepository) ListVisitorsByHost(ctx context.Context, hostUserID uuid.UUID) ([]domain.Visitor, error) {
	query := `SELECT ` + visitorColumns + ` FROM visitors WHERE host_user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, hostUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visitors []domain.Visitor
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, err
		}
		visitors = append(visitors, *v)
	}
	return visitors, rows.Err()
}

// UpdateVisitorStatus sets the status of a guest pass.
func (r *PostgresRepository) UpdateVisitorStatus(ctx context.Context, visitorID uuid.UUID, status domain.VisitorStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE visitors SET status = $2 WHERE id = $1`, visitorID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVisitorNotFound
	}
	return nil
}

// CreateScanRecord appends one guard scan to the entry history.
func (r *PostgresRepository) CreateScanRecord(ctx context.Context, rec *domain.ScanRecord) error {
	query := `INSERT INTO scan_history (id, visitor_id, guard_id, outcome, scanned_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, query, rec.ID, rec.VisitorID, rec.GuardID, rec.Outcome, rec.ScannedAt)
	return err
}

// ListScanHistory returns the most recent guard scans.
func (r *PostgresRepository) ListScanHistory(ctx context.Context, limit int) ([]domain.ScanRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, visitor_id, guard_id, outcome, scanned_at FROM scan_history ORDER BY scanned_at DESC LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ScanRecord
	for rows.Next() {
		var rec domain.ScanRecord
		if err := rows.Scan(&rec.ID, &rec.VisitorID, &rec.GuardID, &rec.Outcome, &rec.ScannedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
