package entity

import (
	"math"
	"time"
)

// PlatformFeeRate — доля платформы в каждом платеже (20/80)
const PlatformFeeRate = 0.20

type TransactionStatus string

const (
	TransactionStatusPaid     TransactionStatus = "paid"
	TransactionStatusRefunded TransactionStatus = "refunded"
)

type HostEarnings struct {
	HostID           string     `json:"host_id" db:"host_id"`
	HostName         string     `json:"host_name" db:"host_name"`
	TotalEarnings    float64    `json:"total_earnings" db:"total_earnings"`
	PendingEarnings  float64    `json:"pending_earnings" db:"pending_earnings"`
	PaidEarnings     float64    `json:"paid_earnings" db:"paid_earnings"`
	BankAccountSetup bool       `json:"bank_account_setup" db:"bank_account_setup"`
	LastPayoutDate   *time.Time `json:"last_payout_date,omitempty" db:"last_payout_date"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

type HostTransaction struct {
	ID          int64             `json:"id" db:"id"`
	HostID      string            `json:"host_id" db:"host_id"`
	PartyID     int64             `json:"party_id" db:"party_id"`
	PartyTitle  string            `json:"party_title" db:"party_title"`
	GuestID     string            `json:"guest_id" db:"guest_id"`
	GuestName   string            `json:"guest_name" db:"guest_name"`
	Amount      float64           `json:"amount" db:"amount"`
	PlatformFee float64           `json:"platform_fee" db:"platform_fee"`
	HostEarning float64           `json:"host_earning" db:"host_earning"`
	PaymentID   string            `json:"payment_id" db:"payment_id"`
	Status      TransactionStatus `json:"status" db:"status"`
	RefundedAt  *time.Time        `json:"refunded_at,omitempty" db:"refunded_at"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// SplitAmount делит сумму платежа на комиссию платформы и заработок хоста.
// Комиссия округляется до цента, заработок — остаток, поэтому
// platformFee + hostEarning == amount всегда точно.
func SplitAmount(amount float64) (platformFee, hostEarning float64) {
	platformFee = math.Round(amount*PlatformFeeRate*100) / 100
	hostEarning = amount - platformFee
	return platformFee, hostEarning
}

// NewHostTransaction создает транзакцию со сплитом, вычисленным один раз.
// Сплит никогда не пересчитывается после создания.
func NewHostTransaction(hostID, partyTitle, guestID, guestName, paymentID string, partyID int64, amount float64) *HostTransaction {
	fee, earning := SplitAmount(amount)
	return &HostTransaction{
		HostID:      hostID,
		PartyID:     partyID,
		PartyTitle:  partyTitle,
		GuestID:     guestID,
		GuestName:   guestName,
		Amount:      amount,
		PlatformFee: fee,
		HostEarning: earning,
		PaymentID:   paymentID,
		Status:      TransactionStatusPaid,
	}
}

// HostEarningsDetails объединяет баланс хоста с историей транзакций и выплат
type HostEarningsDetails struct {
	Earnings     *HostEarnings      `json:"earnings"`
	Transactions []*HostTransaction `json:"transactions"`
	Payouts      []*PayoutRecord    `json:"payouts"`
}
