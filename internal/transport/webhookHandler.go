package transport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bondfyr/party-service/internal/entity"
	"github.com/bondfyr/party-service/internal/service"
)

const signatureHeader = "X-Webhook-Signature"

// Webhook event types sent by the payment provider
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventRefundSucceeded  = "refund.succeeded"
)

type WebhookHandler struct {
	admissionService service.AdmissionService
	ledgerService    service.LedgerService
	secret           []byte
}

func NewWebhookHandler(admissionService service.AdmissionService, ledgerService service.LedgerService, secret string) *WebhookHandler {
	return &WebhookHandler{
		admissionService: admissionService,
		ledgerService:    ledgerService,
		secret:           []byte(secret),
	}
}

// PaymentEvent представляет событие платежного провайдера
type PaymentEvent struct {
	Type      string  `json:"type"`
	PaymentID string  `json:"payment_id"`
	PartyID   int64   `json:"party_id"`
	UserID    string  `json:"user_id"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason"`
}

// HandlePaymentWebhook принимает события платежного провайдера.
// Подпись проверяется до любых изменений состояния: при неверной
// подписи запрос отклоняется без побочных эффектов.
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	if !h.verifySignature(body, c.GetHeader(signatureHeader)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var event PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	switch event.Type {
	case EventPaymentSucceeded:
		h.handlePaymentSucceeded(c, &event)
	case EventPaymentFailed:
		h.handlePaymentFailed(c, &event)
	case EventRefundSucceeded:
		h.handleRefundSucceeded(c, &event)
	default:
		// Неизвестные события подтверждаем, чтобы провайдер
		// не доставлял их повторно
		log.Printf("Неизвестный тип события вебхука: %s", event.Type)
		c.JSON(http.StatusOK, gin.H{"message": "event ignored"})
	}
}

// handlePaymentSucceeded допускает гостя и записывает транзакцию
// в журнал хоста. Обе операции идемпотентны: повторная доставка
// вебхука не приводит к двойному зачислению.
func (h *WebhookHandler) handlePaymentSucceeded(c *gin.Context, event *PaymentEvent) {
	ctx := c.Request.Context()

	party, err := h.admissionService.GetParty(ctx, event.PartyID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	request, err := h.admissionService.ConfirmPayment(ctx, event.PartyID, event.UserID, event.PaymentID, event.Amount)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	_, err = h.ledgerService.RecordPayment(ctx, &service.RecordPaymentRequest{
		HostID:     party.HostID,
		HostName:   party.HostHandle,
		PartyID:    party.ID,
		PartyTitle: party.Title,
		GuestID:    request.UserID,
		GuestName:  request.UserName,
		PaymentID:  event.PaymentID,
		Amount:     event.Amount,
	})
	if err != nil && !errors.Is(err, entity.ErrDuplicateTransaction) {
		// Гость допущен, но журнал не обновлен: отвечаем 500,
		// чтобы провайдер повторил доставку, обе операции
		// идемпотентны
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "payment processed"})
}

// handlePaymentFailed уведомляет гостя; состояние не меняется
func (h *WebhookHandler) handlePaymentFailed(c *gin.Context, event *PaymentEvent) {
	if err := h.admissionService.NotifyPaymentFailed(c.Request.Context(), event.PartyID, event.UserID, event.Reason); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "failure acknowledged"})
}

// handleRefundSucceeded отзывает допуск гостя и сторнирует
// транзакцию в журнале хоста
func (h *WebhookHandler) handleRefundSucceeded(c *gin.Context, event *PaymentEvent) {
	ctx := c.Request.Context()

	party, request, err := h.admissionService.RevokeAdmission(ctx, event.PaymentID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	_, err = h.ledgerService.ProcessRefund(ctx, party.HostID, party.ID, request.UserID)
	if err != nil && !errors.Is(err, entity.ErrNoMatchingTransaction) {
		// Транзакция уже сторнирована при повторной доставке:
		// это не ошибка, все остальное требует повтора
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "refund processed"})
}

// verifySignature сверяет HMAC-SHA256 подпись тела запроса
func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
