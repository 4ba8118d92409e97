package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSplitAmount тестирует разделение платежа на комиссию и заработок
func TestSplitAmount(t *testing.T) {
	tests := []struct {
		name            string
		amount          float64
		expectedFee     float64
		expectedEarning float64
	}{
		{
			name:            "round amount",
			amount:          15.00,
			expectedFee:     3.00,
			expectedEarning: 12.00,
		},
		{
			name:            "amount with cents",
			amount:          33.33,
			expectedFee:     6.67,
			expectedEarning: 26.66,
		},
		{
			name:            "single cent",
			amount:          0.01,
			expectedFee:     0.00,
			expectedEarning: 0.01,
		},
		{
			name:            "fee rounds up",
			amount:          0.13,
			expectedFee:     0.03,
			expectedEarning: 0.10,
		},
		{
			name:            "zero amount",
			amount:          0,
			expectedFee:     0,
			expectedEarning: 0,
		},
		{
			name:            "large amount",
			amount:          999.99,
			expectedFee:     200.00,
			expectedEarning: 799.99,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, earning := SplitAmount(tt.amount)

			assert.InDelta(t, tt.expectedFee, fee, 0.001)
			assert.InDelta(t, tt.expectedEarning, earning, 0.001)

			// Сплит всегда точный: комиссия + заработок == сумма платежа
			assert.InDelta(t, tt.amount, fee+earning, 1e-9)
		})
	}
}

// TestNewHostTransaction тестирует создание транзакции со сплитом
func TestNewHostTransaction(t *testing.T) {
	transaction := NewHostTransaction("host-1", "Rooftop Party", "guest-1", "Ivan", "pay_123", 42, 25.00)

	require.NotNil(t, transaction)
	assert.Equal(t, "host-1", transaction.HostID)
	assert.Equal(t, int64(42), transaction.PartyID)
	assert.Equal(t, "Rooftop Party", transaction.PartyTitle)
	assert.Equal(t, "guest-1", transaction.GuestID)
	assert.Equal(t, "Ivan", transaction.GuestName)
	assert.Equal(t, "pay_123", transaction.PaymentID)
	assert.Equal(t, TransactionStatusPaid, transaction.Status)

	// Сплит вычислен один раз при создании
	assert.InDelta(t, 5.00, transaction.PlatformFee, 0.001)
	assert.InDelta(t, 20.00, transaction.HostEarning, 0.001)
	assert.InDelta(t, transaction.Amount, transaction.PlatformFee+transaction.HostEarning, 1e-9)
}
