package service

import (
	"context"
	"time"

	"github.com/bondfyr/party-service/internal/entity"
)

// AdmissionService определяет интерфейс для операций приема гостей
type AdmissionService interface {
	// Основные операции
	CreateParty(ctx context.Context, req *CreatePartyRequest) (*entity.Party, error)
	GetParty(ctx context.Context, id int64) (*entity.PartyWithGuests, error)
	GetHostParties(ctx context.Context, hostID string) ([]*entity.Party, error)
	GetUpcomingParties(ctx context.Context, limit int) ([]*entity.Party, error)

	// Жизненный цикл заявки гостя
	SubmitRequest(ctx context.Context, partyID int64, req *SubmitGuestRequest) (*entity.GuestRequest, error)
	ApproveRequest(ctx context.Context, partyID, requestID int64, hostID string) (*entity.GuestRequest, error)
	DenyRequest(ctx context.Context, partyID, requestID int64, hostID string) (*entity.GuestRequest, error)
	GetGuestStatus(ctx context.Context, partyID int64, userID string) (entity.GuestStatus, error)

	// Операции, вызываемые вебхуками платежного провайдера
	ConfirmPayment(ctx context.Context, partyID int64, userID, paymentID string, amount float64) (*entity.GuestRequest, error)
	NotifyPaymentFailed(ctx context.Context, partyID int64, userID, reason string) error
	RevokeAdmission(ctx context.Context, paymentID string) (*entity.Party, *entity.GuestRequest, error)
}

// LedgerService определяет интерфейс для операций с балансом хоста
type LedgerService interface {
	GetHostEarnings(ctx context.Context, hostID string) (*entity.HostEarningsDetails, error)
	SetupBankAccount(ctx context.Context, hostID string, setup bool) error

	// Мутации журнала; обе идемпотентны относительно повторной
	// доставки вебхука
	RecordPayment(ctx context.Context, req *RecordPaymentRequest) (*entity.HostTransaction, error)
	ProcessRefund(ctx context.Context, hostID string, partyID int64, guestID string) (*entity.HostTransaction, error)
}

// PayoutService определяет интерфейс батч-процессора выплат
type PayoutService interface {
	RunPayouts(ctx context.Context, triggeredBy string) (*entity.PayoutRun, error)

	// Операции для админского API
	GetEligibleHosts(ctx context.Context) ([]*entity.EligibleHost, error)
	GetRecentRuns(ctx context.Context, limit int) ([]*entity.PayoutRun, error)
	GetRecentPayouts(ctx context.Context, limit int) ([]*entity.PayoutRecord, error)
	GetHostPayouts(ctx context.Context, hostID string) ([]*entity.PayoutRecord, error)
}

// CreatePartyRequest представляет данные для создания вечеринки
type CreatePartyRequest struct {
	HostID        string    `json:"host_id" binding:"required"`
	HostHandle    string    `json:"host_handle" binding:"required"`
	Title         string    `json:"title" binding:"required,min=1,max=200"`
	TicketPrice   float64   `json:"ticket_price" binding:"min=0"`
	MaxGuestCount int       `json:"max_guest_count" binding:"required,min=1,max=10000"`
	StartTime     time.Time `json:"start_time" binding:"required"`
	EndTime       time.Time `json:"end_time" binding:"required"`
}

// SubmitGuestRequest представляет данные заявки гостя
type SubmitGuestRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	UserName     string `json:"user_name" binding:"required"`
	UserHandle   string `json:"user_handle"`
	IntroMessage string `json:"intro_message" binding:"max=500"`
}

// RecordPaymentRequest представляет подтвержденный платеж для журнала хоста
type RecordPaymentRequest struct {
	HostID     string
	HostName   string
	PartyID    int64
	PartyTitle string
	GuestID    string
	GuestName  string
	PaymentID  string
	Amount     float64
}

// TaskPublisher интерфейс для публикации задач в очередь
type TaskPublisher interface {
	Publish(ctx context.Context, task *Task) error
}

// Task представляет задачу для очереди
type Task struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	MaxRetries int                    `json:"max_retries"`
	Attempts   int                    `json:"attempts"`
}

// Константы типов задач. Каждая задача несет полный payload
// для уведомления, обработчикам очереди не нужны репозитории.
const (
	TaskTypeRequestSubmitted = "notify_request_submitted"
	TaskTypeRequestApproved  = "notify_request_approved"
	TaskTypeRequestDenied    = "notify_request_denied"
	TaskTypeGuestAdmitted    = "notify_guest_admitted"
	TaskTypePaymentFailed    = "notify_payment_failed"
	TaskTypeRefundProcessed  = "notify_refund_processed"
	TaskTypePayoutSent       = "notify_payout_sent"
	TaskTypePayoutFailed     = "notify_payout_failed"
)

// BankTransferClient интерфейс клиента банковских переводов
type BankTransferClient interface {
	Transfer(ctx context.Context, hostID string, amount float64, method entity.PayoutMethod) (string, error)
}
