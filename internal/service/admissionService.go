package service

import (
	"context"
	"fmt"
	"log"
	"time"

	repository "github.com/bondfyr/party-service/internal/database/postgres"
	"github.com/bondfyr/party-service/internal/entity"
)

type admissionService struct {
	partyRepo repository.PartyRepository
	queue     TaskPublisher
}

// NewAdmissionService создает новый экземпляр AdmissionService
func NewAdmissionService(partyRepo repository.PartyRepository, queue TaskPublisher) AdmissionService {
	return &admissionService{
		partyRepo: partyRepo,
		queue:     queue,
	}
}

// CreateParty создает новую вечеринку
func (s *admissionService) CreateParty(ctx context.Context, req *CreatePartyRequest) (*entity.Party, error) {
	party := &entity.Party{
		HostID:        req.HostID,
		HostHandle:    req.HostHandle,
		Title:         req.Title,
		TicketPrice:   req.TicketPrice,
		MaxGuestCount: req.MaxGuestCount,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
	}

	if err := s.partyRepo.Create(ctx, party); err != nil {
		return nil, fmt.Errorf("ошибка при создании вечеринки: %w", err)
	}

	log.Printf("Вечеринка создана: ID=%d, Host=%s, Capacity=%d", party.ID, party.HostID, party.MaxGuestCount)
	return party, nil
}

// GetParty возвращает вечеринку со списком заявок гостей
func (s *admissionService) GetParty(ctx context.Context, id int64) (*entity.PartyWithGuests, error) {
	party, err := s.partyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("вечеринка не найдена: %w", err)
	}
	return party, nil
}

// GetHostParties возвращает все вечеринки хоста
func (s *admissionService) GetHostParties(ctx context.Context, hostID string) ([]*entity.Party, error) {
	parties, err := s.partyRepo.GetByHostID(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении вечеринок хоста: %w", err)
	}
	return parties, nil
}

// GetUpcomingParties возвращает еще не закончившиеся вечеринки
func (s *admissionService) GetUpcomingParties(ctx context.Context, limit int) ([]*entity.Party, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	parties, err := s.partyRepo.GetUpcoming(ctx, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении предстоящих вечеринок: %w", err)
	}
	return parties, nil
}

// SubmitRequest создает заявку гостя на вечеринку.
// Повторная заявка допускается только после отказа хоста.
func (s *admissionService) SubmitRequest(ctx context.Context, partyID int64, req *SubmitGuestRequest) (*entity.GuestRequest, error) {
	request := &entity.GuestRequest{
		UserID:       req.UserID,
		UserName:     req.UserName,
		UserHandle:   req.UserHandle,
		IntroMessage: req.IntroMessage,
	}

	if err := s.partyRepo.SubmitRequest(ctx, partyID, request); err != nil {
		return nil, fmt.Errorf("ошибка при создании заявки: %w", err)
	}

	log.Printf("Заявка создана: ID=%d, Party=%d, User=%s", request.ID, partyID, request.UserID)

	party, err := s.partyRepo.GetByID(ctx, partyID)
	if err == nil {
		s.publishNotification(ctx, TaskTypeRequestSubmitted, map[string]interface{}{
			"party_id":    partyID,
			"party_title": party.Title,
			"host_handle": party.HostHandle,
			"user_id":     request.UserID,
			"user_name":   request.UserName,
			"request_id":  request.ID,
		})
	}

	return request, nil
}

// ApproveRequest одобряет заявку гостя. Только хост вечеринки может
// одобрять заявки. Если заявка отозвана, операция молча завершается.
func (s *admissionService) ApproveRequest(ctx context.Context, partyID, requestID int64, hostID string) (*entity.GuestRequest, error) {
	party, err := s.partyRepo.GetByID(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("вечеринка не найдена: %w", err)
	}

	if party.HostID != hostID {
		return nil, entity.ErrForbidden
	}

	request, err := s.partyRepo.ApproveRequest(ctx, partyID, requestID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("ошибка при одобрении заявки: %w", err)
	}
	if request == nil {
		log.Printf("Заявка %d не найдена при одобрении, пропускаем", requestID)
		return nil, nil
	}

	log.Printf("Заявка одобрена: ID=%d, Party=%d, User=%s, Going=%v",
		request.ID, partyID, request.UserID, request.Going)

	taskType := TaskTypeRequestApproved
	if request.Going {
		// Бесплатная вечеринка: гость допущен сразу
		taskType = TaskTypeGuestAdmitted
	}
	s.publishNotification(ctx, taskType, map[string]interface{}{
		"party_id":     partyID,
		"party_title":  party.Title,
		"user_id":      request.UserID,
		"user_name":    request.UserName,
		"ticket_price": party.TicketPrice,
	})

	return request, nil
}

// DenyRequest отклоняет заявку гостя. Запись сохраняется для аудита,
// после отказа гость может подать заявку повторно.
func (s *admissionService) DenyRequest(ctx context.Context, partyID, requestID int64, hostID string) (*entity.GuestRequest, error) {
	party, err := s.partyRepo.GetByID(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("вечеринка не найдена: %w", err)
	}

	if party.HostID != hostID {
		return nil, entity.ErrForbidden
	}

	request, err := s.partyRepo.DenyRequest(ctx, partyID, requestID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при отклонении заявки: %w", err)
	}
	if request == nil {
		log.Printf("Заявка %d не найдена при отклонении, пропускаем", requestID)
		return nil, nil
	}

	log.Printf("Заявка отклонена: ID=%d, Party=%d, User=%s", request.ID, partyID, request.UserID)

	s.publishNotification(ctx, TaskTypeRequestDenied, map[string]interface{}{
		"party_id":    partyID,
		"party_title": party.Title,
		"user_id":     request.UserID,
		"user_name":   request.UserName,
	})

	return request, nil
}

// GetGuestStatus возвращает производный статус гостя на вечеринке
func (s *admissionService) GetGuestStatus(ctx context.Context, partyID int64, userID string) (entity.GuestStatus, error) {
	party, err := s.partyRepo.GetByID(ctx, partyID)
	if err != nil {
		return "", fmt.Errorf("вечеринка не найдена: %w", err)
	}
	return entity.DeriveGuestStatus(party, userID, time.Now()), nil
}

// ConfirmPayment переводит одобренного гостя в список допущенных
// после подтверждения оплаты. Идемпотентна при повторной доставке вебхука.
func (s *admissionService) ConfirmPayment(ctx context.Context, partyID int64, userID, paymentID string, amount float64) (*entity.GuestRequest, error) {
	request, err := s.partyRepo.AdmitPaidGuest(ctx, partyID, userID, paymentID, amount)
	if err != nil {
		return nil, fmt.Errorf("ошибка при допуске оплатившего гостя: %w", err)
	}

	log.Printf("Гость допущен: Party=%d, User=%s, Payment=%s, Amount=%.2f",
		partyID, userID, paymentID, amount)

	party, err := s.partyRepo.GetByID(ctx, partyID)
	if err == nil {
		s.publishNotification(ctx, TaskTypeGuestAdmitted, map[string]interface{}{
			"party_id":    partyID,
			"party_title": party.Title,
			"host_id":     party.HostID,
			"user_id":     request.UserID,
			"user_name":   request.UserName,
			"amount":      amount,
		})
	}

	return request, nil
}

// NotifyPaymentFailed уведомляет гостя о неудачной оплате.
// Состояние вечеринки не меняется: заявка остается одобренной,
// гость может повторить оплату.
func (s *admissionService) NotifyPaymentFailed(ctx context.Context, partyID int64, userID, reason string) error {
	party, err := s.partyRepo.GetByID(ctx, partyID)
	if err != nil {
		return fmt.Errorf("вечеринка не найдена: %w", err)
	}

	log.Printf("Оплата не прошла: Party=%d, User=%s, Причина: %s", partyID, userID, reason)

	s.publishNotification(ctx, TaskTypePaymentFailed, map[string]interface{}{
		"party_id":    partyID,
		"party_title": party.Title,
		"user_id":     userID,
		"reason":      reason,
	})
	return nil
}

// RevokeAdmission находит гостя по платежу и убирает его из списка
// допущенных после возврата средств
func (s *admissionService) RevokeAdmission(ctx context.Context, paymentID string) (*entity.Party, *entity.GuestRequest, error) {
	party, request, err := s.partyRepo.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, nil, fmt.Errorf("платеж не найден: %w", err)
	}

	request, err = s.partyRepo.DemoteRefundedGuest(ctx, party.ID, request.UserID, paymentID)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка при исключении гостя после возврата: %w", err)
	}

	log.Printf("Допуск отозван: Party=%d, User=%s, Payment=%s", party.ID, request.UserID, paymentID)

	s.publishNotification(ctx, TaskTypeRefundProcessed, map[string]interface{}{
		"party_id":    party.ID,
		"party_title": party.Title,
		"user_id":     request.UserID,
		"user_name":   request.UserName,
		"amount":      request.AmountPaid,
	})

	return party, request, nil
}

// publishNotification публикует задачу уведомления, если очередь доступна
func (s *admissionService) publishNotification(ctx context.Context, taskType string, data map[string]interface{}) {
	if s.queue == nil {
		return
	}

	task := &Task{
		ID:         fmt.Sprintf("%s_%d", taskType, time.Now().UnixNano()),
		Type:       taskType,
		Data:       data,
		ExecuteAt:  time.Now(),
		MaxRetries: 3,
	}

	if err := s.queue.Publish(ctx, task); err != nil {
		log.Printf("Ошибка при публикации задачи %s: %v", taskType, err)
	}
}
