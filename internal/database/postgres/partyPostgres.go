package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bondfyr/party-service/internal/entity"
)

type partyRepository struct {
	db *sql.DB
}

func NewPartyRepository(db *sql.DB) PartyRepository {
	return &partyRepository{db: db}
}

// Create inserts a new party after validating its time window and capacity
func (r *partyRepository) Create(ctx context.Context, party *entity.Party) error {
	if !party.EndTime.After(party.StartTime) {
		return entity.ErrInvalidWindow
	}
	if party.MaxGuestCount <= 0 {
		return entity.ErrInvalidCapacity
	}

	query := `
		INSERT INTO parties (
			host_id, host_handle, title, ticket_price, max_guest_count,
			start_time, end_time, earnings, platform_fee, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, $8, $8)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		party.HostID,
		party.HostHandle,
		party.Title,
		party.TicketPrice,
		party.MaxGuestCount,
		party.StartTime,
		party.EndTime,
		now,
	).Scan(&party.ID)

	if err != nil {
		return fmt.Errorf("failed to create party: %v", err)
	}

	party.CreatedAt = now
	party.UpdatedAt = now
	return nil
}

// GetByID retrieves a party together with its guest requests
func (r *partyRepository) GetByID(ctx context.Context, id int64) (*entity.PartyWithGuests, error) {
	party, err := r.scanParty(r.db.QueryRowContext(ctx, selectPartyQuery+` WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	requests, err := r.getRequests(ctx, r.db, id)
	if err != nil {
		return nil, err
	}

	return assembleParty(party, requests), nil
}

// GetByHostID retrieves all parties created by a host
func (r *partyRepository) GetByHostID(ctx context.Context, hostID string) ([]*entity.Party, error) {
	rows, err := r.db.QueryContext(ctx, selectPartyQuery+` WHERE host_id = $1 ORDER BY start_time DESC`, hostID)
	if err != nil {
		return nil, fmt.Errorf("failed to get host parties: %v", err)
	}
	defer rows.Close()

	return scanParties(rows)
}

// GetUpcoming retrieves parties that have not ended yet
func (r *partyRepository) GetUpcoming(ctx context.Context, now time.Time, limit int) ([]*entity.Party, error) {
	rows, err := r.db.QueryContext(ctx,
		selectPartyQuery+` WHERE end_time > $1 ORDER BY start_time ASC LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming parties: %v", err)
	}
	defer rows.Close()

	return scanParties(rows)
}

// SubmitRequest appends a guest request with transaction to enforce
// the no-duplicate invariant and the party time window
func (r *partyRepository) SubmitRequest(ctx context.Context, partyID int64, request *entity.GuestRequest) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	// Lock the party row for the duration of the check-and-insert
	var endTime time.Time
	query := `SELECT end_time FROM parties WHERE id = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, partyID).Scan(&endTime)
	if err == sql.ErrNoRows {
		return entity.ErrPartyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock party: %v", err)
	}

	if time.Now().After(endTime) {
		return entity.ErrPartyClosed
	}

	// A user may hold at most one non-denied request per party
	var existingCount int
	query = `SELECT COUNT(*) FROM guest_requests WHERE party_id = $1 AND user_id = $2 AND approval_status != 'denied'`
	err = tx.QueryRowContext(ctx, query, partyID, request.UserID).Scan(&existingCount)
	if err != nil {
		return fmt.Errorf("failed to check existing requests: %v", err)
	}
	if existingCount > 0 {
		return entity.ErrDuplicateRequest
	}

	query = `
		INSERT INTO guest_requests (
			party_id, user_id, user_name, user_handle, intro_message,
			approval_status, payment_status, going, amount_paid,
			submitted_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, 'pending', 'pending', FALSE, 0, $6, $6)
		RETURNING id
	`

	now := time.Now()
	err = tx.QueryRowContext(ctx, query,
		partyID,
		request.UserID,
		request.UserName,
		request.UserHandle,
		request.IntroMessage,
		now,
	).Scan(&request.ID)

	if err != nil {
		return fmt.Errorf("failed to create guest request: %v", err)
	}

	request.PartyID = partyID
	request.ApprovalStatus = entity.ApprovalStatusPending
	request.PaymentStatus = entity.PaymentStatusPending
	request.SubmittedAt = now
	request.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// ApproveRequest marks a request approved; for a free party the guest is
// admitted in the same transaction. A missing request is a silent no-op
// so that webhook-style retries cannot corrupt party state.
func (r *partyRepository) ApproveRequest(ctx context.Context, partyID, requestID int64, now time.Time) (*entity.GuestRequest, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	var maxGuests int
	var ticketPrice float64
	query := `SELECT max_guest_count, ticket_price FROM parties WHERE id = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, partyID).Scan(&maxGuests, &ticketPrice)
	if err == sql.ErrNoRows {
		return nil, entity.ErrPartyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock party: %v", err)
	}

	request, err := getRequestTx(ctx, tx, partyID, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, nil // withdrawn or never existed, nothing to do
	}

	// Repeated approval must not double-apply
	if request.ApprovalStatus == entity.ApprovalStatusApproved {
		return request, nil
	}

	// Capacity is evaluated inside the same transaction as the mutation
	goingCount, err := countGoingTx(ctx, tx, partyID)
	if err != nil {
		return nil, err
	}
	if goingCount >= maxGuests {
		return nil, entity.ErrCapacityExceeded
	}

	// Free parties admit on approval; paid parties admit on payment confirmation
	admitNow := ticketPrice == 0

	query = `
		UPDATE guest_requests
		SET approval_status = 'approved', approved_at = $1, going = $2, updated_at = $1
		WHERE id = $3 AND party_id = $4
	`
	if _, err := tx.ExecContext(ctx, query, now, admitNow, requestID, partyID); err != nil {
		return nil, fmt.Errorf("failed to approve request: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %v", err)
	}

	request.ApprovalStatus = entity.ApprovalStatusApproved
	request.ApprovedAt = &now
	request.Going = admitNow
	request.UpdatedAt = now
	return request, nil
}

// DenyRequest marks a request denied and removes the guest from the
// confirmed list. The record is retained for audit; a missing request
// is a silent no-op.
func (r *partyRepository) DenyRequest(ctx context.Context, partyID, requestID int64) (*entity.GuestRequest, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	var partyExists int64
	query := `SELECT id FROM parties WHERE id = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, partyID).Scan(&partyExists)
	if err == sql.ErrNoRows {
		return nil, entity.ErrPartyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock party: %v", err)
	}

	request, err := getRequestTx(ctx, tx, partyID, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, nil
	}

	now := time.Now()
	query = `
		UPDATE guest_requests
		SET approval_status = 'denied', going = FALSE, updated_at = $1
		WHERE id = $2 AND party_id = $3
	`
	if _, err := tx.ExecContext(ctx, query, now, requestID, partyID); err != nil {
		return nil, fmt.Errorf("failed to deny request: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %v", err)
	}

	request.ApprovalStatus = entity.ApprovalStatusDenied
	request.Going = false
	request.UpdatedAt = now
	return request, nil
}

// AdmitPaidGuest confirms payment for an approved request: the guest joins
// the confirmed list and the party financial rollup is updated, all in one
// transaction. Safe to call twice for the same payment.
func (r *partyRepository) AdmitPaidGuest(ctx context.Context, partyID int64, userID, paymentID string, amount float64) (*entity.GuestRequest, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	var maxGuests int
	query := `SELECT max_guest_count FROM parties WHERE id = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, partyID).Scan(&maxGuests)
	if err == sql.ErrNoRows {
		return nil, entity.ErrPartyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock party: %v", err)
	}

	request, err := scanRequest(tx.QueryRowContext(ctx, selectRequestQuery+`
		WHERE party_id = $1 AND user_id = $2 AND approval_status = 'approved'
		ORDER BY submitted_at DESC
		LIMIT 1`, partyID, userID))
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, entity.ErrRequestNotFound
	}

	// Duplicate webhook delivery: already admitted for this payment
	if request.PaymentStatus == entity.PaymentStatusPaid && request.Going {
		return request, nil
	}

	goingCount, err := countGoingTx(ctx, tx, partyID)
	if err != nil {
		return nil, err
	}
	if goingCount >= maxGuests {
		return nil, entity.ErrCapacityExceeded
	}

	now := time.Now()
	query = `
		UPDATE guest_requests
		SET payment_status = 'paid', going = TRUE, amount_paid = $1, payment_id = $2, updated_at = $3
		WHERE id = $4
	`
	if _, err := tx.ExecContext(ctx, query, amount, paymentID, now, request.ID); err != nil {
		return nil, fmt.Errorf("failed to admit paid guest: %v", err)
	}

	fee, earning := entity.SplitAmount(amount)
	query = `
		UPDATE parties
		SET earnings = earnings + $1, platform_fee = platform_fee + $2, updated_at = $3
		WHERE id = $4
	`
	if _, err := tx.ExecContext(ctx, query, earning, fee, now, partyID); err != nil {
		return nil, fmt.Errorf("failed to update party rollup: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %v", err)
	}

	request.PaymentStatus = entity.PaymentStatusPaid
	request.Going = true
	request.AmountPaid = amount
	request.PaymentID = paymentID
	request.UpdatedAt = now
	return request, nil
}

// DemoteRefundedGuest removes a refunded guest from the confirmed list and
// rolls the party financials back. Safe to call twice for the same refund.
func (r *partyRepository) DemoteRefundedGuest(ctx context.Context, partyID int64, userID, paymentID string) (*entity.GuestRequest, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	var partyExists int64
	query := `SELECT id FROM parties WHERE id = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, partyID).Scan(&partyExists)
	if err == sql.ErrNoRows {
		return nil, entity.ErrPartyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock party: %v", err)
	}

	request, err := scanRequest(tx.QueryRowContext(ctx, selectRequestQuery+`
		WHERE party_id = $1 AND user_id = $2 AND payment_status IN ('paid', 'refunded')
		ORDER BY submitted_at DESC
		LIMIT 1`, partyID, userID))
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, entity.ErrRequestNotFound
	}

	// Refund already applied
	if request.PaymentStatus == entity.PaymentStatusRefunded {
		return request, nil
	}

	now := time.Now()
	query = `
		UPDATE guest_requests
		SET payment_status = 'refunded', going = FALSE, updated_at = $1
		WHERE id = $2
	`
	if _, err := tx.ExecContext(ctx, query, now, request.ID); err != nil {
		return nil, fmt.Errorf("failed to demote refunded guest: %v", err)
	}

	// Roll the rollup back, floored at zero
	fee, earning := entity.SplitAmount(request.AmountPaid)
	query = `
		UPDATE parties
		SET earnings = GREATEST(earnings - $1, 0),
		    platform_fee = GREATEST(platform_fee - $2, 0),
		    updated_at = $3
		WHERE id = $4
	`
	if _, err := tx.ExecContext(ctx, query, earning, fee, now, partyID); err != nil {
		return nil, fmt.Errorf("failed to roll back party rollup: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %v", err)
	}

	request.PaymentStatus = entity.PaymentStatusRefunded
	request.Going = false
	request.UpdatedAt = now
	return request, nil
}

// FindByPaymentID locates a party and its guest request by provider payment id
func (r *partyRepository) FindByPaymentID(ctx context.Context, paymentID string) (*entity.Party, *entity.GuestRequest, error) {
	request, err := scanRequest(r.db.QueryRowContext(ctx, selectRequestQuery+`
		WHERE payment_id = $1
		ORDER BY submitted_at DESC
		LIMIT 1`, paymentID))
	if err != nil {
		return nil, nil, err
	}
	if request == nil {
		return nil, nil, entity.ErrRequestNotFound
	}

	party, err := r.scanParty(r.db.QueryRowContext(ctx, selectPartyQuery+` WHERE id = $1`, request.PartyID))
	if err != nil {
		return nil, nil, err
	}

	return party, request, nil
}

// GetRequest retrieves a single guest request
func (r *partyRepository) GetRequest(ctx context.Context, partyID, requestID int64) (*entity.GuestRequest, error) {
	request, err := scanRequest(r.db.QueryRowContext(ctx, selectRequestQuery+`
		WHERE id = $1 AND party_id = $2`, requestID, partyID))
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, entity.ErrRequestNotFound
	}
	return request, nil
}

const selectPartyQuery = `
	SELECT
		id, host_id, host_handle, title, ticket_price, max_guest_count,
		start_time, end_time, earnings, platform_fee, created_at, updated_at
	FROM parties`

const selectRequestQuery = `
	SELECT
		id, party_id, user_id, user_name, user_handle, intro_message,
		approval_status, payment_status, going, amount_paid,
		COALESCE(payment_id, ''), submitted_at, approved_at, updated_at
	FROM guest_requests`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *partyRepository) scanParty(row rowScanner) (*entity.Party, error) {
	var party entity.Party
	err := row.Scan(
		&party.ID,
		&party.HostID,
		&party.HostHandle,
		&party.Title,
		&party.TicketPrice,
		&party.MaxGuestCount,
		&party.StartTime,
		&party.EndTime,
		&party.Earnings,
		&party.PlatformFee,
		&party.CreatedAt,
		&party.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrPartyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %v", err)
	}
	return &party, nil
}

func scanParties(rows *sql.Rows) ([]*entity.Party, error) {
	var parties []*entity.Party
	for rows.Next() {
		var party entity.Party
		err := rows.Scan(
			&party.ID,
			&party.HostID,
			&party.HostHandle,
			&party.Title,
			&party.TicketPrice,
			&party.MaxGuestCount,
			&party.StartTime,
			&party.EndTime,
			&party.Earnings,
			&party.PlatformFee,
			&party.CreatedAt,
			&party.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan party: %v", err)
		}
		parties = append(parties, &party)
	}
	return parties, rows.Err()
}

func scanRequest(row rowScanner) (*entity.GuestRequest, error) {
	var request entity.GuestRequest
	err := row.Scan(
		&request.ID,
		&request.PartyID,
		&request.UserID,
		&request.UserName,
		&request.UserHandle,
		&request.IntroMessage,
		&request.ApprovalStatus,
		&request.PaymentStatus,
		&request.Going,
		&request.AmountPaid,
		&request.PaymentID,
		&request.SubmittedAt,
		&request.ApprovedAt,
		&request.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan guest request: %v", err)
	}
	return &request, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func getRequestTx(ctx context.Context, tx *sql.Tx, partyID, requestID int64) (*entity.GuestRequest, error) {
	return scanRequest(tx.QueryRowContext(ctx, selectRequestQuery+`
		WHERE id = $1 AND party_id = $2`, requestID, partyID))
}

func countGoingTx(ctx context.Context, tx *sql.Tx, partyID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM guest_requests WHERE party_id = $1 AND going = TRUE`
	if err := tx.QueryRowContext(ctx, query, partyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count confirmed guests: %v", err)
	}
	return count, nil
}

func (r *partyRepository) getRequests(ctx context.Context, q queryRower, partyID int64) ([]*entity.GuestRequest, error) {
	rows, err := q.QueryContext(ctx, selectRequestQuery+`
		WHERE party_id = $1
		ORDER BY submitted_at ASC`, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guest requests: %v", err)
	}
	defer rows.Close()

	var requests []*entity.GuestRequest
	for rows.Next() {
		var request entity.GuestRequest
		err := rows.Scan(
			&request.ID,
			&request.PartyID,
			&request.UserID,
			&request.UserName,
			&request.UserHandle,
			&request.IntroMessage,
			&request.ApprovalStatus,
			&request.PaymentStatus,
			&request.Going,
			&request.AmountPaid,
			&request.PaymentID,
			&request.SubmittedAt,
			&request.ApprovedAt,
			&request.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guest request: %v", err)
		}
		requests = append(requests, &request)
	}
	return requests, rows.Err()
}

func assembleParty(party *entity.Party, requests []*entity.GuestRequest) *entity.PartyWithGuests {
	result := &entity.PartyWithGuests{
		Party:         *party,
		GuestRequests: requests,
		ActiveUsers:   make([]string, 0),
	}
	for _, request := range requests {
		if request.Going {
			result.ActiveUsers = append(result.ActiveUsers, request.UserID)
		}
	}
	return result
}
