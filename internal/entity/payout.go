package entity

import (
	"time"
)

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
)

type PayoutMethod string

const (
	PayoutMethodACH    PayoutMethod = "ach"
	PayoutMethodPayPal PayoutMethod = "paypal"
	PayoutMethodWise   PayoutMethod = "wise"
	PayoutMethodCheck  PayoutMethod = "check"
)

type PayoutRecord struct {
	ID             string       `json:"id" db:"id"`
	HostID         string       `json:"host_id" db:"host_id"`
	Amount         float64      `json:"amount" db:"amount"`
	PayoutMethod   PayoutMethod `json:"payout_method" db:"payout_method"`
	Status         PayoutStatus `json:"status" db:"status"`
	TransactionIDs []int64      `json:"transaction_ids" db:"transaction_ids"`
	TransferID     string       `json:"transfer_id,omitempty" db:"transfer_id"`
	Notes          string       `json:"notes,omitempty" db:"notes"`
	PayoutDate     time.Time    `json:"payout_date" db:"payout_date"`
}

// PayoutRun фиксирует итог одного прохода батч-процессора выплат
type PayoutRun struct {
	ID            int64     `json:"id" db:"id"`
	StartedAt     time.Time `json:"started_at" db:"started_at"`
	FinishedAt    time.Time `json:"finished_at" db:"finished_at"`
	EligibleHosts int       `json:"eligible_hosts" db:"eligible_hosts"`
	SuccessCount  int       `json:"success_count" db:"success_count"`
	FailureCount  int       `json:"failure_count" db:"failure_count"`
	TotalAmount   float64   `json:"total_amount" db:"total_amount"`
	TriggeredBy   string    `json:"triggered_by" db:"triggered_by"`
}

// EligibleHost — хост, прошедший первичный фильтр по накопленному балансу
type EligibleHost struct {
	HostID          string  `json:"host_id"`
	HostName        string  `json:"host_name"`
	PendingEarnings float64 `json:"pending_earnings"`
	BankSetup       bool    `json:"bank_account_setup"`
}
