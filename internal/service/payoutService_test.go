package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondfyr/party-service/internal/entity"
)

// fakePublisher собирает опубликованные задачи
type fakePublisher struct {
	published []*Task
}

func (f *fakePublisher) Publish(ctx context.Context, task *Task) error {
	f.published = append(f.published, task)
	return nil
}

func (f *fakePublisher) taskTypes() []string {
	var types []string
	for _, task := range f.published {
		types = append(types, task.Type)
	}
	return types
}

// fakeEarningsRepo — репозиторий баланса хостов в памяти
type fakeEarningsRepo struct {
	earnings      map[string]*entity.HostEarnings
	transactions  map[string][]*entity.HostTransaction
	reconciledTo  map[string]float64
	eligible      []*entity.EligibleHost
	failedPayouts []*entity.PayoutRecord
	applied       []*entity.PayoutRecord
}

func newFakeEarningsRepo() *fakeEarningsRepo {
	return &fakeEarningsRepo{
		earnings:     make(map[string]*entity.HostEarnings),
		transactions: make(map[string][]*entity.HostTransaction),
		reconciledTo: make(map[string]float64),
	}
}

func (f *fakeEarningsRepo) GetByHostID(ctx context.Context, hostID string) (*entity.HostEarnings, error) {
	earnings, ok := f.earnings[hostID]
	if !ok {
		return nil, entity.ErrEarningsNotFound
	}
	return earnings, nil
}

func (f *fakeEarningsRepo) GetTransactions(ctx context.Context, hostID string) ([]*entity.HostTransaction, error) {
	return f.transactions[hostID], nil
}

func (f *fakeEarningsRepo) SetBankAccountSetup(ctx context.Context, hostID string, setup bool) error {
	earnings, ok := f.earnings[hostID]
	if !ok {
		earnings = &entity.HostEarnings{HostID: hostID}
		f.earnings[hostID] = earnings
	}
	earnings.BankAccountSetup = setup
	return nil
}

func (f *fakeEarningsRepo) RecordTransaction(ctx context.Context, hostName string, tx *entity.HostTransaction) error {
	for _, existing := range f.transactions[tx.HostID] {
		if existing.PartyID == tx.PartyID && existing.GuestID == tx.GuestID && existing.Status == entity.TransactionStatusPaid {
			return entity.ErrDuplicateTransaction
		}
	}

	tx.ID = int64(len(f.transactions[tx.HostID]) + 1)
	tx.Status = entity.TransactionStatusPaid
	tx.CreatedAt = time.Now()
	f.transactions[tx.HostID] = append(f.transactions[tx.HostID], tx)

	earnings, ok := f.earnings[tx.HostID]
	if !ok {
		earnings = &entity.HostEarnings{HostID: tx.HostID, HostName: hostName}
		f.earnings[tx.HostID] = earnings
	}
	earnings.TotalEarnings += tx.HostEarning
	earnings.PendingEarnings += tx.HostEarning
	return nil
}

func (f *fakeEarningsRepo) ReverseTransaction(ctx context.Context, hostID string, partyID int64, guestID string, now time.Time) (*entity.HostTransaction, error) {
	earnings, ok := f.earnings[hostID]
	if !ok {
		return nil, entity.ErrEarningsNotFound
	}

	for _, tx := range f.transactions[hostID] {
		if tx.PartyID == partyID && tx.GuestID == guestID && tx.Status == entity.TransactionStatusPaid {
			tx.Status = entity.TransactionStatusRefunded
			tx.RefundedAt = &now

			earnings.TotalEarnings -= tx.HostEarning
			earnings.PendingEarnings -= tx.HostEarning
			if earnings.TotalEarnings < 0 {
				earnings.TotalEarnings = 0
			}
			if earnings.PendingEarnings < 0 {
				earnings.PendingEarnings = 0
			}
			return tx, nil
		}
	}
	return nil, entity.ErrNoMatchingTransaction
}

func (f *fakeEarningsRepo) GetEligibleHosts(ctx context.Context, threshold float64) ([]*entity.EligibleHost, error) {
	return f.eligible, nil
}

func (f *fakeEarningsRepo) ReconcilePending(ctx context.Context, hostID string) (float64, error) {
	earnings, ok := f.earnings[hostID]
	if !ok {
		return 0, entity.ErrEarningsNotFound
	}
	if actual, ok := f.reconciledTo[hostID]; ok {
		earnings.PendingEarnings = actual
	}
	return earnings.PendingEarnings, nil
}

func (f *fakeEarningsRepo) ApplyPayout(ctx context.Context, hostID string, payout *entity.PayoutRecord, now time.Time) error {
	earnings, ok := f.earnings[hostID]
	if !ok {
		return entity.ErrEarningsNotFound
	}
	earnings.PendingEarnings -= payout.Amount
	if earnings.PendingEarnings < 0 {
		earnings.PendingEarnings = 0
	}
	earnings.PaidEarnings += payout.Amount
	earnings.LastPayoutDate = &now
	f.applied = append(f.applied, payout)
	return nil
}

func (f *fakeEarningsRepo) RecordFailedPayout(ctx context.Context, payout *entity.PayoutRecord, notes string) error {
	payout.Status = entity.PayoutStatusFailed
	payout.Notes = notes
	f.failedPayouts = append(f.failedPayouts, payout)
	return nil
}

// fakePayoutRepo — репозиторий выплат в памяти
type fakePayoutRepo struct {
	runs    []*entity.PayoutRun
	payouts []*entity.PayoutRecord
}

func (f *fakePayoutRepo) GetByHostID(ctx context.Context, hostID string) ([]*entity.PayoutRecord, error) {
	var result []*entity.PayoutRecord
	for _, payout := range f.payouts {
		if payout.HostID == hostID {
			result = append(result, payout)
		}
	}
	return result, nil
}

func (f *fakePayoutRepo) GetRecent(ctx context.Context, limit int) ([]*entity.PayoutRecord, error) {
	return f.payouts, nil
}

func (f *fakePayoutRepo) UpdateStatus(ctx context.Context, payoutID string, status entity.PayoutStatus, transferID string) error {
	return nil
}

func (f *fakePayoutRepo) CreateRun(ctx context.Context, run *entity.PayoutRun) error {
	run.ID = int64(len(f.runs) + 1)
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakePayoutRepo) GetRecentRuns(ctx context.Context, limit int) ([]*entity.PayoutRun, error) {
	return f.runs, nil
}

// fakeBank — клиент переводов со сценарием отказов
type fakeBank struct {
	failFor   map[string]error
	transfers []string // host ids в порядке переводов
}

func (f *fakeBank) Transfer(ctx context.Context, hostID string, amount float64, method entity.PayoutMethod) (string, error) {
	if err, ok := f.failFor[hostID]; ok {
		return "", err
	}
	f.transfers = append(f.transfers, hostID)
	return "tr_" + hostID, nil
}

func newPayoutFixture(threshold float64) (*fakeEarningsRepo, *fakePayoutRepo, *fakeBank, *fakePublisher, PayoutService) {
	earningsRepo := newFakeEarningsRepo()
	payoutRepo := &fakePayoutRepo{}
	bank := &fakeBank{failFor: make(map[string]error)}
	publisher := &fakePublisher{}
	svc := NewPayoutService(earningsRepo, payoutRepo, bank, publisher, threshold, entity.PayoutMethodACH)
	return earningsRepo, payoutRepo, bank, publisher, svc
}

func (f *fakeEarningsRepo) addHost(hostID string, pending float64, bankSetup bool) {
	f.earnings[hostID] = &entity.HostEarnings{
		HostID:           hostID,
		HostName:         hostID,
		TotalEarnings:    pending,
		PendingEarnings:  pending,
		BankAccountSetup: bankSetup,
	}
	f.eligible = append(f.eligible, &entity.EligibleHost{
		HostID:          hostID,
		HostName:        hostID,
		PendingEarnings: pending,
		BankSetup:       bankSetup,
	})
}

// TestRunPayoutsSuccess тестирует успешную выплату одному хосту
func TestRunPayoutsSuccess(t *testing.T) {
	earningsRepo, payoutRepo, bank, publisher, svc := newPayoutFixture(10.0)
	earningsRepo.addHost("host-1", 50.0, true)

	run, err := svc.RunPayouts(context.Background(), "test")

	require.NoError(t, err)
	assert.Equal(t, 1, run.EligibleHosts)
	assert.Equal(t, 1, run.SuccessCount)
	assert.Equal(t, 0, run.FailureCount)
	assert.InDelta(t, 50.0, run.TotalAmount, 0.001)

	// Перевод выполнен, баланс переведен из pending в paid
	assert.Equal(t, []string{"host-1"}, bank.transfers)
	assert.InDelta(t, 0.0, earningsRepo.earnings["host-1"].PendingEarnings, 0.001)
	assert.InDelta(t, 50.0, earningsRepo.earnings["host-1"].PaidEarnings, 0.001)

	// Запись о выплате создана со статусом completed
	require.Len(t, earningsRepo.applied, 1)
	assert.Equal(t, entity.PayoutStatusCompleted, earningsRepo.applied[0].Status)
	assert.Equal(t, "tr_host-1", earningsRepo.applied[0].TransferID)

	// Итог батча записан, хост уведомлен
	require.Len(t, payoutRepo.runs, 1)
	assert.Contains(t, publisher.taskTypes(), TaskTypePayoutSent)
}

// TestRunPayoutsReconciliationShrinksBalance тестирует обязательную сверку:
// возврат после последней записи баланса уменьшает сумму ниже порога
func TestRunPayoutsReconciliationShrinksBalance(t *testing.T) {
	earningsRepo, _, bank, publisher, svc := newPayoutFixture(10.0)
	earningsRepo.addHost("host-1", 15.0, true)
	earningsRepo.reconciledTo["host-1"] = 5.0

	run, err := svc.RunPayouts(context.Background(), "test")

	require.NoError(t, err)
	assert.Equal(t, 0, run.SuccessCount)
	assert.Equal(t, 0, run.FailureCount)

	// Перевод не выполнялся, сверенный баланс сохранен
	assert.Empty(t, bank.transfers)
	assert.InDelta(t, 5.0, earningsRepo.earnings["host-1"].PendingEarnings, 0.001)
	assert.Empty(t, publisher.published)
}

// TestRunPayoutsSkipsHostWithoutBank тестирует пропуск хоста без банковского счета
func TestRunPayoutsSkipsHostWithoutBank(t *testing.T) {
	earningsRepo, _, bank, _, svc := newPayoutFixture(10.0)
	earningsRepo.addHost("host-1", 50.0, false)

	run, err := svc.RunPayouts(context.Background(), "test")

	require.NoError(t, err)
	assert.Equal(t, 0, run.SuccessCount)
	assert.Equal(t, 0, run.FailureCount)
	assert.Empty(t, bank.transfers)

	// Баланс не тронут
	assert.InDelta(t, 50.0, earningsRepo.earnings["host-1"].PendingEarnings, 0.001)
}

// TestRunPayoutsPerHostIsolation тестирует изоляцию сбоев: отказ перевода
// одному хосту не мешает выплатам остальным
func TestRunPayoutsPerHostIsolation(t *testing.T) {
	earningsRepo, _, bank, publisher, svc := newPayoutFixture(10.0)
	earningsRepo.addHost("host-1", 30.0, true)
	earningsRepo.addHost("host-2", 40.0, true)
	bank.failFor["host-1"] = fmt.Errorf("provider unavailable")

	run, err := svc.RunPayouts(context.Background(), "test")

	require.NoError(t, err)
	assert.Equal(t, 2, run.EligibleHosts)
	assert.Equal(t, 1, run.SuccessCount)
	assert.Equal(t, 1, run.FailureCount)
	assert.InDelta(t, 40.0, run.TotalAmount, 0.001)

	// Сумма неудавшейся выплаты осталась pending и попадет в следующий батч
	assert.InDelta(t, 30.0, earningsRepo.earnings["host-1"].PendingEarnings, 0.001)
	assert.InDelta(t, 0.0, earningsRepo.earnings["host-2"].PendingEarnings, 0.001)

	// Неудачная выплата записана для аудита, оператор уведомлен
	require.Len(t, earningsRepo.failedPayouts, 1)
	assert.Equal(t, "host-1", earningsRepo.failedPayouts[0].HostID)
	assert.Equal(t, entity.PayoutStatusFailed, earningsRepo.failedPayouts[0].Status)
	assert.Contains(t, publisher.taskTypes(), TaskTypePayoutFailed)
	assert.Contains(t, publisher.taskTypes(), TaskTypePayoutSent)
}
