package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondfyr/party-service/internal/entity"
)

func newLedgerFixture() (*fakeEarningsRepo, LedgerService) {
	earningsRepo := newFakeEarningsRepo()
	svc := NewLedgerService(earningsRepo, &fakePayoutRepo{})
	return earningsRepo, svc
}

// TestRecordPaymentSplit тестирует запись платежа со сплитом 20/80
func TestRecordPaymentSplit(t *testing.T) {
	earningsRepo, svc := newLedgerFixture()

	transaction, err := svc.RecordPayment(context.Background(), &RecordPaymentRequest{
		HostID:     "host-1",
		HostName:   "Анна",
		PartyID:    1,
		PartyTitle: "Loft Party",
		GuestID:    "guest-1",
		GuestName:  "Иван",
		PaymentID:  "pay_1",
		Amount:     25.00,
	})

	require.NoError(t, err)
	assert.InDelta(t, 5.00, transaction.PlatformFee, 0.001)
	assert.InDelta(t, 20.00, transaction.HostEarning, 0.001)

	// Баланс хоста пополнен на заработок, не на полную сумму
	earnings := earningsRepo.earnings["host-1"]
	require.NotNil(t, earnings)
	assert.InDelta(t, 20.00, earnings.PendingEarnings, 0.001)
	assert.InDelta(t, 20.00, earnings.TotalEarnings, 0.001)
}

// TestRecordPaymentDuplicate тестирует идемпотентность при повторной доставке вебхука
func TestRecordPaymentDuplicate(t *testing.T) {
	earningsRepo, svc := newLedgerFixture()

	req := &RecordPaymentRequest{
		HostID:    "host-1",
		HostName:  "Анна",
		PartyID:   1,
		GuestID:   "guest-1",
		PaymentID: "pay_1",
		Amount:    25.00,
	}

	_, err := svc.RecordPayment(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), req)
	assert.ErrorIs(t, err, entity.ErrDuplicateTransaction)

	// Баланс зачислен ровно один раз
	assert.InDelta(t, 20.00, earningsRepo.earnings["host-1"].PendingEarnings, 0.001)
}

// TestProcessRefund тестирует сторнирование транзакции
func TestProcessRefund(t *testing.T) {
	earningsRepo, svc := newLedgerFixture()

	_, err := svc.RecordPayment(context.Background(), &RecordPaymentRequest{
		HostID:    "host-1",
		HostName:  "Анна",
		PartyID:   1,
		GuestID:   "guest-1",
		PaymentID: "pay_1",
		Amount:    25.00,
	})
	require.NoError(t, err)

	transaction, err := svc.ProcessRefund(context.Background(), "host-1", 1, "guest-1")
	require.NoError(t, err)
	assert.Equal(t, entity.TransactionStatusRefunded, transaction.Status)
	require.NotNil(t, transaction.RefundedAt)

	// Баланс вернулся к нулю
	assert.InDelta(t, 0.0, earningsRepo.earnings["host-1"].PendingEarnings, 0.001)

	// Повторный возврат не находит транзакцию
	_, err = svc.ProcessRefund(context.Background(), "host-1", 1, "guest-1")
	assert.ErrorIs(t, err, entity.ErrNoMatchingTransaction)
}

// TestGetHostEarningsEmpty тестирует пустой баланс для хоста без заработка
func TestGetHostEarningsEmpty(t *testing.T) {
	_, svc := newLedgerFixture()

	details, err := svc.GetHostEarnings(context.Background(), "unknown-host")

	require.NoError(t, err)
	require.NotNil(t, details.Earnings)
	assert.Equal(t, "unknown-host", details.Earnings.HostID)
	assert.Zero(t, details.Earnings.TotalEarnings)
	assert.Empty(t, details.Transactions)
	assert.Empty(t, details.Payouts)
}
