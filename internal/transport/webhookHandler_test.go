package transport

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondfyr/party-service/internal/entity"
	"github.com/bondfyr/party-service/internal/service"
)

const testWebhookSecret = "test-secret"

// fakeAdmissionService записывает вызовы операций допуска
type fakeAdmissionService struct {
	party *entity.PartyWithGuests

	confirmedPayments []string
	revokedPayments   []string
	failureNotices    []string
}

func (f *fakeAdmissionService) CreateParty(ctx context.Context, req *service.CreatePartyRequest) (*entity.Party, error) {
	return nil, nil
}

func (f *fakeAdmissionService) GetParty(ctx context.Context, id int64) (*entity.PartyWithGuests, error) {
	if f.party == nil || f.party.ID != id {
		return nil, entity.ErrPartyNotFound
	}
	return f.party, nil
}

func (f *fakeAdmissionService) GetHostParties(ctx context.Context, hostID string) ([]*entity.Party, error) {
	return nil, nil
}

func (f *fakeAdmissionService) GetUpcomingParties(ctx context.Context, limit int) ([]*entity.Party, error) {
	return nil, nil
}

func (f *fakeAdmissionService) SubmitRequest(ctx context.Context, partyID int64, req *service.SubmitGuestRequest) (*entity.GuestRequest, error) {
	return nil, nil
}

func (f *fakeAdmissionService) ApproveRequest(ctx context.Context, partyID, requestID int64, hostID string) (*entity.GuestRequest, error) {
	return nil, nil
}

func (f *fakeAdmissionService) DenyRequest(ctx context.Context, partyID, requestID int64, hostID string) (*entity.GuestRequest, error) {
	return nil, nil
}

func (f *fakeAdmissionService) GetGuestStatus(ctx context.Context, partyID int64, userID string) (entity.GuestStatus, error) {
	return entity.GuestStatusNotRequested, nil
}

func (f *fakeAdmissionService) ConfirmPayment(ctx context.Context, partyID int64, userID, paymentID string, amount float64) (*entity.GuestRequest, error) {
	f.confirmedPayments = append(f.confirmedPayments, paymentID)
	return &entity.GuestRequest{
		ID:            100,
		PartyID:       partyID,
		UserID:        userID,
		UserName:      "Иван",
		PaymentStatus: entity.PaymentStatusPaid,
		PaymentID:     paymentID,
		AmountPaid:    amount,
		Going:         true,
	}, nil
}

func (f *fakeAdmissionService) NotifyPaymentFailed(ctx context.Context, partyID int64, userID, reason string) error {
	f.failureNotices = append(f.failureNotices, reason)
	return nil
}

func (f *fakeAdmissionService) RevokeAdmission(ctx context.Context, paymentID string) (*entity.Party, *entity.GuestRequest, error) {
	f.revokedPayments = append(f.revokedPayments, paymentID)
	return &f.party.Party, &entity.GuestRequest{
		ID:            100,
		PartyID:       f.party.ID,
		UserID:        "user-1",
		PaymentStatus: entity.PaymentStatusRefunded,
		PaymentID:     paymentID,
	}, nil
}

// fakeLedgerService записывает вызовы операций журнала
type fakeLedgerService struct {
	recordedPayments []string
	refunds          []string
	recordErr        error
	refundErr        error
}

func (f *fakeLedgerService) GetHostEarnings(ctx context.Context, hostID string) (*entity.HostEarningsDetails, error) {
	return nil, nil
}

func (f *fakeLedgerService) SetupBankAccount(ctx context.Context, hostID string, setup bool) error {
	return nil
}

func (f *fakeLedgerService) RecordPayment(ctx context.Context, req *service.RecordPaymentRequest) (*entity.HostTransaction, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	f.recordedPayments = append(f.recordedPayments, req.PaymentID)
	return entity.NewHostTransaction(req.HostID, req.PartyTitle, req.GuestID, req.GuestName, req.PaymentID, req.PartyID, req.Amount), nil
}

func (f *fakeLedgerService) ProcessRefund(ctx context.Context, hostID string, partyID int64, guestID string) (*entity.HostTransaction, error) {
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.refunds = append(f.refunds, guestID)
	return &entity.HostTransaction{Status: entity.TransactionStatusRefunded}, nil
}

func webhookParty() *entity.PartyWithGuests {
	return &entity.PartyWithGuests{
		Party: entity.Party{
			ID:            1,
			HostID:        "host-1",
			HostHandle:    "@anna",
			Title:         "Loft Party",
			TicketPrice:   25.00,
			MaxGuestCount: 10,
			StartTime:     time.Now().Add(time.Hour),
			EndTime:       time.Now().Add(6 * time.Hour),
		},
	}
}

func newWebhookRouter(admission *fakeAdmissionService, ledger *fakeLedgerService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewWebhookHandler(admission, ledger, testWebhookSecret)
	router := gin.New()
	router.POST("/webhooks/payments", handler.HandlePaymentWebhook)
	return router
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(router *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

// TestWebhookRejectsInvalidSignature тестирует отклонение запроса
// с неверной подписью без побочных эффектов
func TestWebhookRejectsInvalidSignature(t *testing.T) {
	admission := &fakeAdmissionService{party: webhookParty()}
	ledger := &fakeLedgerService{}
	router := newWebhookRouter(admission, ledger)

	body, err := json.Marshal(map[string]interface{}{
		"type":       "payment.succeeded",
		"payment_id": "pay_1",
		"party_id":   1,
		"user_id":    "user-1",
		"amount":     25.00,
	})
	require.NoError(t, err)

	recorder := postWebhook(router, body, "deadbeef")

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Empty(t, admission.confirmedPayments)
	assert.Empty(t, ledger.recordedPayments)
}

// TestWebhookRejectsMissingSignature тестирует отклонение запроса без подписи
func TestWebhookRejectsMissingSignature(t *testing.T) {
	admission := &fakeAdmissionService{party: webhookParty()}
	ledger := &fakeLedgerService{}
	router := newWebhookRouter(admission, ledger)

	recorder := postWebhook(router, []byte(`{"type":"payment.succeeded"}`), "")

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Empty(t, admission.confirmedPayments)
}

// TestWebhookPaymentSucceeded тестирует допуск гостя и запись в журнал
// при подтвержденном платеже
func TestWebhookPaymentSucceeded(t *testing.T) {
	admission := &fakeAdmissionService{party: webhookParty()}
	ledger := &fakeLedgerService{}
	router := newWebhookRouter(admission, ledger)

	body, err := json.Marshal(map[string]interface{}{
		"type":       "payment.succeeded",
		"payment_id": "pay_1",
		"party_id":   1,
		"user_id":    "user-1",
		"amount":     25.00,
	})
	require.NoError(t, err)

	recorder := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"pay_1"}, admission.confirmedPayments)
	assert.Equal(t, []string{"pay_1"}, ledger.recordedPayments)
}

// TestWebhookPaymentSucceededDuplicate тестирует повторную доставку:
// дубликат транзакции в журнале не считается ошибкой
func TestWebhookPaymentSucceededDuplicate(t *testing.T) {
	admission := &fakeAdmissionService{party: webhookParty()}
	ledger := &fakeLedgerService{recordErr: entity.ErrDuplicateTransaction}
	router := newWebhookRouter(admission, ledger)

	body, err := json.Marshal(map[string]interface{}{
		"type":       "payment.succeeded",
		"payment_id": "pay_1",
		"party_id":   1,
		"user_id":    "user-1",
		"amount":     25.00,
	})
	require.NoError(t, err)

	recorder := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusOK, recorder.Code)
}

// TestWebhookPaymentSucceededLedgerError тестирует ответ 500 при ошибке
// журнала, чтобы провайдер повторил доставку
func TestWebhookPaymentSucceededLedgerError(t *testing.T) {
	admission := &fakeAdmissionService{party: webhookParty()}
	ledger := &fakeLedgerService{recordErr: entity.ErrDatabaseError}
	router := newWebhookRouter(admission, ledger)

	body, err := json.Marshal(map[string]interface{}{
		"type":       "payment.succeeded",
		"payment_id": "pay_1",
		"party_id":   1,
		"user_id":    "user-1",
		"amount":     25.00,
	})
	require.NoError(t, err)

	recorder := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

// TestWebhookRefundSucceeded тестирует отзыв допуска и сторнирование
// транзакции при возврате средств
func TestWebhookRefundSucceeded(t *testing.T) {
	admission := &fakeAdmissionService{party: webhookParty()}
	ledger := &fakeLedgerService{}
	router := newWebhookRouter(admission, ledger)

	body, err := json.Marshal(map[string]interface{}{
		"type":       "refund.succeeded",
		"payment_id": "pay_1",
	})
	require.NoError(t, err)

	recorder := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"pay_1"}, admission.revokedPayments)
	assert.Equal(t, []string{"user-1"}, ledger.refunds)
}

// TestWebhookRefundRedelivery тестирует повторную доставку возврата:
// отсутствие транзакции для сторнирования не считается ошибкой
func TestWebhookRefundRedelivery(t *testing.T) {
	admission := &fakeAdmissionService{party: webhookParty()}
	ledger := &fakeLedgerService{refundErr: entity.ErrNoMatchingTransaction}
	router := newWebhookRouter(admission, ledger)

	body, err := json.Marshal(map[string]interface{}{
		"type":       "refund.succeeded",
		"payment_id": "pay_1",
	})
	require.NoError(t, err)

	recorder := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusOK, recorder.Code)
}

// TestWebhookPaymentFailed тестирует уведомление гостя о неудачной оплате
func TestWebhookPaymentFailed(t *testing.T) {
	admission := &fakeAdmissionService{party: webhookParty()}
	router := newWebhookRouter(admission, &fakeLedgerService{})

	body, err := json.Marshal(map[string]interface{}{
		"type":     "payment.failed",
		"party_id": 1,
		"user_id":  "user-1",
		"reason":   "card_declined",
	})
	require.NoError(t, err)

	recorder := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"card_declined"}, admission.failureNotices)
}

// TestWebhookUnknownEventIgnored тестирует подтверждение неизвестных событий
func TestWebhookUnknownEventIgnored(t *testing.T) {
	admission := &fakeAdmissionService{party: webhookParty()}
	ledger := &fakeLedgerService{}
	router := newWebhookRouter(admission, ledger)

	body := []byte(`{"type":"payout.created"}`)
	recorder := postWebhook(router, body, signBody(body))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, admission.confirmedPayments)
	assert.Empty(t, ledger.recordedPayments)
}
