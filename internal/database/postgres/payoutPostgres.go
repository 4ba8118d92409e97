package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/bondfyr/party-service/internal/entity"
)

type payoutRepository struct {
	db *sql.DB
}

func NewPayoutRepository(db *sql.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

// GetByHostID retrieves the payout history for a host, newest first
func (r *payoutRepository) GetByHostID(ctx context.Context, hostID string) ([]*entity.PayoutRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectPayoutQuery+`
		WHERE host_id = $1
		ORDER BY payout_date DESC`, hostID)
	if err != nil {
		return nil, fmt.Errorf("failed to get host payouts: %v", err)
	}
	defer rows.Close()

	return scanPayouts(rows)
}

// GetRecent retrieves the most recent payouts across all hosts
func (r *payoutRepository) GetRecent(ctx context.Context, limit int) ([]*entity.PayoutRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectPayoutQuery+`
		ORDER BY payout_date DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent payouts: %v", err)
	}
	defer rows.Close()

	return scanPayouts(rows)
}

// UpdateStatus moves a payout record to a new status
func (r *payoutRepository) UpdateStatus(ctx context.Context, payoutID string, status entity.PayoutStatus, transferID string) error {
	query := `
		UPDATE payout_records
		SET status = $1, transfer_id = $2
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, status, transferID, payoutID)
	if err != nil {
		return fmt.Errorf("failed to update payout status: %v", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %v", err)
	}
	if affected == 0 {
		return entity.ErrPayoutNotFound
	}
	return nil
}

// CreateRun records the summary of one batch processor pass
func (r *payoutRepository) CreateRun(ctx context.Context, run *entity.PayoutRun) error {
	query := `
		INSERT INTO payout_runs (
			started_at, finished_at, eligible_hosts,
			success_count, failure_count, total_amount, triggered_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		run.StartedAt,
		run.FinishedAt,
		run.EligibleHosts,
		run.SuccessCount,
		run.FailureCount,
		run.TotalAmount,
		run.TriggeredBy,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to create payout run: %v", err)
	}
	return nil
}

// GetRecentRuns retrieves the most recent batch runs, newest first
func (r *payoutRepository) GetRecentRuns(ctx context.Context, limit int) ([]*entity.PayoutRun, error) {
	query := `
		SELECT id, started_at, finished_at, eligible_hosts,
		       success_count, failure_count, total_amount, triggered_by
		FROM payout_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get payout runs: %v", err)
	}
	defer rows.Close()

	var runs []*entity.PayoutRun
	for rows.Next() {
		var run entity.PayoutRun
		err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.FinishedAt,
			&run.EligibleHosts,
			&run.SuccessCount,
			&run.FailureCount,
			&run.TotalAmount,
			&run.TriggeredBy,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout run: %v", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

const selectPayoutQuery = `
	SELECT
		id, host_id, amount, payout_method, status,
		transaction_ids, COALESCE(transfer_id, ''), COALESCE(notes, ''), payout_date
	FROM payout_records`

func scanPayouts(rows *sql.Rows) ([]*entity.PayoutRecord, error) {
	var payouts []*entity.PayoutRecord
	for rows.Next() {
		var payout entity.PayoutRecord
		err := rows.Scan(
			&payout.ID,
			&payout.HostID,
			&payout.Amount,
			&payout.PayoutMethod,
			&payout.Status,
			pq.Array(&payout.TransactionIDs),
			&payout.TransferID,
			&payout.Notes,
			&payout.PayoutDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout record: %v", err)
		}
		payouts = append(payouts, &payout)
	}
	return payouts, rows.Err()
}
