package repository

import (
	"context"
	"time"

	"github.com/bondfyr/party-service/internal/entity"
)

type PartyRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, party *entity.Party) error
	GetByID(ctx context.Context, id int64) (*entity.PartyWithGuests, error)
	GetByHostID(ctx context.Context, hostID string) ([]*entity.Party, error)
	GetUpcoming(ctx context.Context, now time.Time, limit int) ([]*entity.Party, error)

	// Admission mutations; каждая выполняется одной транзакцией
	// с блокировкой строки вечеринки
	SubmitRequest(ctx context.Context, partyID int64, request *entity.GuestRequest) error
	ApproveRequest(ctx context.Context, partyID, requestID int64, now time.Time) (*entity.GuestRequest, error)
	DenyRequest(ctx context.Context, partyID, requestID int64) (*entity.GuestRequest, error)
	AdmitPaidGuest(ctx context.Context, partyID int64, userID, paymentID string, amount float64) (*entity.GuestRequest, error)
	DemoteRefundedGuest(ctx context.Context, partyID int64, userID, paymentID string) (*entity.GuestRequest, error)

	// Lookup operations for webhook processing
	FindByPaymentID(ctx context.Context, paymentID string) (*entity.Party, *entity.GuestRequest, error)
	GetRequest(ctx context.Context, partyID, requestID int64) (*entity.GuestRequest, error)
}

type EarningsRepository interface {
	GetByHostID(ctx context.Context, hostID string) (*entity.HostEarnings, error)
	GetTransactions(ctx context.Context, hostID string) ([]*entity.HostTransaction, error)
	SetBankAccountSetup(ctx context.Context, hostID string, setup bool) error

	// Ledger mutations; каждая выполняется одной транзакцией
	// с блокировкой строки баланса хоста
	RecordTransaction(ctx context.Context, hostName string, tx *entity.HostTransaction) error
	ReverseTransaction(ctx context.Context, hostID string, partyID int64, guestID string, now time.Time) (*entity.HostTransaction, error)

	// Payout operations
	GetEligibleHosts(ctx context.Context, threshold float64) ([]*entity.EligibleHost, error)
	ReconcilePending(ctx context.Context, hostID string) (float64, error)
	ApplyPayout(ctx context.Context, hostID string, payout *entity.PayoutRecord, now time.Time) error
	RecordFailedPayout(ctx context.Context, payout *entity.PayoutRecord, notes string) error
}

type PayoutRepository interface {
	GetByHostID(ctx context.Context, hostID string) ([]*entity.PayoutRecord, error)
	GetRecent(ctx context.Context, limit int) ([]*entity.PayoutRecord, error)
	UpdateStatus(ctx context.Context, payoutID string, status entity.PayoutStatus, transferID string) error

	// Run history
	CreateRun(ctx context.Context, run *entity.PayoutRun) error
	GetRecentRuns(ctx context.Context, limit int) ([]*entity.PayoutRun, error)
}
