package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/bondfyr/party-service/internal/entity"
)

type earningsRepository struct {
	db *sql.DB
}

func NewEarningsRepository(db *sql.DB) EarningsRepository {
	return &earningsRepository{db: db}
}

// GetByHostID retrieves the earnings balance for a host
func (r *earningsRepository) GetByHostID(ctx context.Context, hostID string) (*entity.HostEarnings, error) {
	query := `
		SELECT
			host_id, host_name, total_earnings, pending_earnings, paid_earnings,
			bank_account_setup, last_payout_date, created_at, updated_at
		FROM host_earnings
		WHERE host_id = $1
	`

	var earnings entity.HostEarnings
	err := r.db.QueryRowContext(ctx, query, hostID).Scan(
		&earnings.HostID,
		&earnings.HostName,
		&earnings.TotalEarnings,
		&earnings.PendingEarnings,
		&earnings.PaidEarnings,
		&earnings.BankAccountSetup,
		&earnings.LastPayoutDate,
		&earnings.CreatedAt,
		&earnings.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrEarningsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get host earnings: %v", err)
	}
	return &earnings, nil
}

// GetTransactions retrieves the transaction log for a host, newest first
func (r *earningsRepository) GetTransactions(ctx context.Context, hostID string) ([]*entity.HostTransaction, error) {
	rows, err := r.db.QueryContext(ctx, selectTransactionQuery+`
		WHERE host_id = $1
		ORDER BY created_at DESC`, hostID)
	if err != nil {
		return nil, fmt.Errorf("failed to get host transactions: %v", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// SetBankAccountSetup flips the bank setup flag, creating the balance
// row if the host has not earned anything yet
func (r *earningsRepository) SetBankAccountSetup(ctx context.Context, hostID string, setup bool) error {
	query := `
		INSERT INTO host_earnings (
			host_id, host_name, total_earnings, pending_earnings, paid_earnings,
			bank_account_setup, created_at, updated_at
		) VALUES ($1, '', 0, 0, 0, $2, $3, $3)
		ON CONFLICT (host_id) DO UPDATE
		SET bank_account_setup = $2, updated_at = $3
	`

	_, err := r.db.ExecContext(ctx, query, hostID, setup, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set bank account flag: %v", err)
	}
	return nil
}

// RecordTransaction appends a transaction to the host ledger and credits the
// balances, all in one database transaction. A second record for the same
// party and guest is rejected so that webhook retries cannot double-credit.
func (r *earningsRepository) RecordTransaction(ctx context.Context, hostName string, transaction *entity.HostTransaction) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if err := lockEarningsRowTx(ctx, tx, transaction.HostID, hostName, now); err != nil {
		return err
	}

	// One paid ledger entry per guest per party
	var existingCount int
	query := `
		SELECT COUNT(*) FROM host_transactions
		WHERE host_id = $1 AND party_id = $2 AND guest_id = $3 AND status = 'paid'
	`
	err = tx.QueryRowContext(ctx, query, transaction.HostID, transaction.PartyID, transaction.GuestID).Scan(&existingCount)
	if err != nil {
		return fmt.Errorf("failed to check existing transactions: %v", err)
	}
	if existingCount > 0 {
		return entity.ErrDuplicateTransaction
	}

	query = `
		INSERT INTO host_transactions (
			host_id, party_id, party_title, guest_id, guest_name,
			amount, platform_fee, host_earning, payment_id, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'paid', $10)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query,
		transaction.HostID,
		transaction.PartyID,
		transaction.PartyTitle,
		transaction.GuestID,
		transaction.GuestName,
		transaction.Amount,
		transaction.PlatformFee,
		transaction.HostEarning,
		transaction.PaymentID,
		now,
	).Scan(&transaction.ID)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %v", err)
	}

	query = `
		UPDATE host_earnings
		SET total_earnings = total_earnings + $1,
		    pending_earnings = pending_earnings + $1,
		    host_name = $2,
		    updated_at = $3
		WHERE host_id = $4
	`
	if _, err := tx.ExecContext(ctx, query, transaction.HostEarning, hostName, now, transaction.HostID); err != nil {
		return fmt.Errorf("failed to credit host balance: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	transaction.Status = entity.TransactionStatusPaid
	transaction.CreatedAt = now
	return nil
}

// ReverseTransaction marks the matching ledger entry refunded and debits the
// balances, floored at zero. The entry is located by party and guest rather
// than payment id because the refund may carry a different provider id than
// the original charge.
func (r *earningsRepository) ReverseTransaction(ctx context.Context, hostID string, partyID int64, guestID string, now time.Time) (*entity.HostTransaction, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	query := `SELECT host_id FROM host_earnings WHERE host_id = $1 FOR UPDATE`
	var lockedID string
	err = tx.QueryRowContext(ctx, query, hostID).Scan(&lockedID)
	if err == sql.ErrNoRows {
		return nil, entity.ErrEarningsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock host balance: %v", err)
	}

	transaction, err := scanTransaction(tx.QueryRowContext(ctx, selectTransactionQuery+`
		WHERE host_id = $1 AND party_id = $2 AND guest_id = $3 AND status = 'paid'
		ORDER BY created_at DESC
		LIMIT 1`, hostID, partyID, guestID))
	if err != nil {
		return nil, err
	}
	if transaction == nil {
		return nil, entity.ErrNoMatchingTransaction
	}

	query = `
		UPDATE host_transactions
		SET status = 'refunded', refunded_at = $1
		WHERE id = $2
	`
	if _, err := tx.ExecContext(ctx, query, now, transaction.ID); err != nil {
		return nil, fmt.Errorf("failed to mark transaction refunded: %v", err)
	}

	query = `
		UPDATE host_earnings
		SET total_earnings = GREATEST(total_earnings - $1, 0),
		    pending_earnings = GREATEST(pending_earnings - $1, 0),
		    updated_at = $2
		WHERE host_id = $3
	`
	if _, err := tx.ExecContext(ctx, query, transaction.HostEarning, now, hostID); err != nil {
		return nil, fmt.Errorf("failed to debit host balance: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %v", err)
	}

	transaction.Status = entity.TransactionStatusRefunded
	transaction.RefundedAt = &now
	return transaction, nil
}

// GetEligibleHosts returns hosts whose stored pending balance is at or
// above the payout threshold. The balance may be stale; callers must
// reconcile before paying out.
func (r *earningsRepository) GetEligibleHosts(ctx context.Context, threshold float64) ([]*entity.EligibleHost, error) {
	query := `
		SELECT host_id, host_name, pending_earnings, bank_account_setup
		FROM host_earnings
		WHERE pending_earnings >= $1
		ORDER BY pending_earnings DESC
	`

	rows, err := r.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to get eligible hosts: %v", err)
	}
	defer rows.Close()

	var hosts []*entity.EligibleHost
	for rows.Next() {
		var host entity.EligibleHost
		if err := rows.Scan(&host.HostID, &host.HostName, &host.PendingEarnings, &host.BankSetup); err != nil {
			return nil, fmt.Errorf("failed to scan eligible host: %v", err)
		}
		hosts = append(hosts, &host)
	}
	return hosts, rows.Err()
}

// ReconcilePending recomputes the pending balance from the transaction log
// and persists it. Refunds that landed after the balance was last written
// are picked up here, so a stale cached balance can only shrink.
func (r *earningsRepository) ReconcilePending(ctx context.Context, hostID string) (float64, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	var paidOut float64
	query := `SELECT paid_earnings FROM host_earnings WHERE host_id = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, query, hostID).Scan(&paidOut)
	if err == sql.ErrNoRows {
		return 0, entity.ErrEarningsNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock host balance: %v", err)
	}

	// The transaction log is the source of truth: everything earned and
	// not refunded, minus what has already been paid out
	var earned float64
	query = `
		SELECT COALESCE(SUM(host_earning), 0) FROM host_transactions
		WHERE host_id = $1 AND status != 'refunded'
	`
	if err := tx.QueryRowContext(ctx, query, hostID).Scan(&earned); err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %v", err)
	}

	pending := earned - paidOut
	if pending < 0 {
		pending = 0
	}

	query = `
		UPDATE host_earnings
		SET total_earnings = $1, pending_earnings = $2, updated_at = $3
		WHERE host_id = $4
	`
	if _, err := tx.ExecContext(ctx, query, earned, pending, time.Now(), hostID); err != nil {
		return 0, fmt.Errorf("failed to persist reconciled balance: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %v", err)
	}

	return pending, nil
}

// ApplyPayout writes the completed payout record and moves the paid amount
// from pending to paid in one transaction
func (r *earningsRepository) ApplyPayout(ctx context.Context, hostID string, payout *entity.PayoutRecord, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	query := `SELECT host_id FROM host_earnings WHERE host_id = $1 FOR UPDATE`
	var lockedID string
	err = tx.QueryRowContext(ctx, query, hostID).Scan(&lockedID)
	if err == sql.ErrNoRows {
		return entity.ErrEarningsNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock host balance: %v", err)
	}

	if err := insertPayoutTx(ctx, tx, payout); err != nil {
		return err
	}

	query = `
		UPDATE host_earnings
		SET pending_earnings = GREATEST(pending_earnings - $1, 0),
		    paid_earnings = paid_earnings + $1,
		    last_payout_date = $2,
		    updated_at = $2
		WHERE host_id = $3
	`
	if _, err := tx.ExecContext(ctx, query, payout.Amount, now, hostID); err != nil {
		return fmt.Errorf("failed to apply payout to balance: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// RecordFailedPayout writes a failed payout record for audit without
// touching the host balance
func (r *earningsRepository) RecordFailedPayout(ctx context.Context, payout *entity.PayoutRecord, notes string) error {
	payout.Status = entity.PayoutStatusFailed
	payout.Notes = notes

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if err := insertPayoutTx(ctx, tx, payout); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func insertPayoutTx(ctx context.Context, tx *sql.Tx, payout *entity.PayoutRecord) error {
	query := `
		INSERT INTO payout_records (
			id, host_id, amount, payout_method, status,
			transaction_ids, transfer_id, notes, payout_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.ExecContext(ctx, query,
		payout.ID,
		payout.HostID,
		payout.Amount,
		payout.PayoutMethod,
		payout.Status,
		pq.Array(payout.TransactionIDs),
		payout.TransferID,
		payout.Notes,
		payout.PayoutDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payout record: %v", err)
	}
	return nil
}

// lockEarningsRowTx locks the host balance row, creating it on first earning
func lockEarningsRowTx(ctx context.Context, tx *sql.Tx, hostID, hostName string, now time.Time) error {
	query := `
		INSERT INTO host_earnings (
			host_id, host_name, total_earnings, pending_earnings, paid_earnings,
			bank_account_setup, created_at, updated_at
		) VALUES ($1, $2, 0, 0, 0, FALSE, $3, $3)
		ON CONFLICT (host_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, query, hostID, hostName, now); err != nil {
		return fmt.Errorf("failed to ensure host balance row: %v", err)
	}

	var lockedID string
	if err := tx.QueryRowContext(ctx, `SELECT host_id FROM host_earnings WHERE host_id = $1 FOR UPDATE`, hostID).Scan(&lockedID); err != nil {
		return fmt.Errorf("failed to lock host balance: %v", err)
	}
	return nil
}

const selectTransactionQuery = `
	SELECT
		id, host_id, party_id, party_title, guest_id, guest_name,
		amount, platform_fee, host_earning, COALESCE(payment_id, ''),
		status, refunded_at, created_at
	FROM host_transactions`

func scanTransaction(row rowScanner) (*entity.HostTransaction, error) {
	var transaction entity.HostTransaction
	err := row.Scan(
		&transaction.ID,
		&transaction.HostID,
		&transaction.PartyID,
		&transaction.PartyTitle,
		&transaction.GuestID,
		&transaction.GuestName,
		&transaction.Amount,
		&transaction.PlatformFee,
		&transaction.HostEarning,
		&transaction.PaymentID,
		&transaction.Status,
		&transaction.RefundedAt,
		&transaction.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %v", err)
	}
	return &transaction, nil
}

func scanTransactions(rows *sql.Rows) ([]*entity.HostTransaction, error) {
	var transactions []*entity.HostTransaction
	for rows.Next() {
		var transaction entity.HostTransaction
		err := rows.Scan(
			&transaction.ID,
			&transaction.HostID,
			&transaction.PartyID,
			&transaction.PartyTitle,
			&transaction.GuestID,
			&transaction.GuestName,
			&transaction.Amount,
			&transaction.PlatformFee,
			&transaction.HostEarning,
			&transaction.PaymentID,
			&transaction.Status,
			&transaction.RefundedAt,
			&transaction.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %v", err)
		}
		transactions = append(transactions, &transaction)
	}
	return transactions, rows.Err()
}
