package entity

import (
	"time"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusDenied   ApprovalStatus = "denied"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type Party struct {
	ID            int64     `json:"id" db:"id"`
	HostID        string    `json:"host_id" db:"host_id"`
	HostHandle    string    `json:"host_handle" db:"host_handle"`
	Title         string    `json:"title" db:"title"`
	TicketPrice   float64   `json:"ticket_price" db:"ticket_price"`
	MaxGuestCount int       `json:"max_guest_count" db:"max_guest_count"`
	StartTime     time.Time `json:"start_time" db:"start_time"`
	EndTime       time.Time `json:"end_time" db:"end_time"`
	Earnings      float64   `json:"earnings" db:"earnings"`
	PlatformFee   float64   `json:"platform_fee" db:"platform_fee"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Ended сообщает, закончилась ли вечеринка к моменту now
func (p *Party) Ended(now time.Time) bool {
	return now.After(p.EndTime)
}

// RequiresPayment сообщает, нужна ли оплата для допуска гостя
func (p *Party) RequiresPayment() bool {
	return p.TicketPrice > 0
}

type GuestRequest struct {
	ID             int64          `json:"id" db:"id"`
	PartyID        int64          `json:"party_id" db:"party_id"`
	UserID         string         `json:"user_id" db:"user_id"`
	UserName       string         `json:"user_name" db:"user_name"`
	UserHandle     string         `json:"user_handle" db:"user_handle"`
	IntroMessage   string         `json:"intro_message" db:"intro_message"`
	ApprovalStatus ApprovalStatus `json:"approval_status" db:"approval_status"`
	PaymentStatus  PaymentStatus  `json:"payment_status" db:"payment_status"`
	Going          bool           `json:"going" db:"going"`
	AmountPaid     float64        `json:"amount_paid" db:"amount_paid"`
	PaymentID      string         `json:"payment_id,omitempty" db:"payment_id"`
	SubmittedAt    time.Time      `json:"submitted_at" db:"submitted_at"`
	ApprovedAt     *time.Time     `json:"approved_at,omitempty" db:"approved_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// PartyWithGuests объединяет вечеринку со списком заявок и подтвержденными гостями
type PartyWithGuests struct {
	Party
	GuestRequests []*GuestRequest `json:"guest_requests"`
	ActiveUsers   []string        `json:"active_users"`
}

// ActiveUserCount возвращает число подтвержденных гостей
func (p *PartyWithGuests) ActiveUserCount() int {
	return len(p.ActiveUsers)
}
