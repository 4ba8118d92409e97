package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	repository "github.com/bondfyr/party-service/internal/database/postgres"
	"github.com/bondfyr/party-service/internal/entity"
)

type payoutService struct {
	earningsRepo repository.EarningsRepository
	payoutRepo   repository.PayoutRepository
	bank         BankTransferClient
	queue        TaskPublisher
	threshold    float64
	method       entity.PayoutMethod
}

// NewPayoutService создает новый экземпляр PayoutService
func NewPayoutService(
	earningsRepo repository.EarningsRepository,
	payoutRepo repository.PayoutRepository,
	bank BankTransferClient,
	queue TaskPublisher,
	threshold float64,
	method entity.PayoutMethod,
) PayoutService {
	return &payoutService{
		earningsRepo: earningsRepo,
		payoutRepo:   payoutRepo,
		bank:         bank,
		queue:        queue,
		threshold:    threshold,
		method:       method,
	}
}

// RunPayouts выполняет один проход батч-процессора выплат.
// Хосты обрабатываются независимо: сбой перевода одному хосту
// не прерывает выплаты остальным.
func (s *payoutService) RunPayouts(ctx context.Context, triggeredBy string) (*entity.PayoutRun, error) {
	startedAt := time.Now()
	log.Printf("Запуск батча выплат (triggered_by=%s, threshold=%.2f)", triggeredBy, s.threshold)

	// Первичный фильтр по сохраненному балансу; баланс может быть
	// устаревшим, поэтому перед выплатой он пересчитывается
	eligible, err := s.earningsRepo.GetEligibleHosts(ctx, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("ошибка при выборе хостов для выплат: %w", err)
	}

	run := &entity.PayoutRun{
		StartedAt:     startedAt,
		EligibleHosts: len(eligible),
		TriggeredBy:   triggeredBy,
	}

	for _, host := range eligible {
		if err := s.payoutHost(ctx, host, run); err != nil {
			log.Printf("Выплата хосту %s не выполнена: %v", host.HostID, err)
		}
	}

	run.FinishedAt = time.Now()
	if err := s.payoutRepo.CreateRun(ctx, run); err != nil {
		log.Printf("Ошибка при записи итога батча выплат: %v", err)
	}

	log.Printf("Батч выплат завершен: eligible=%d, success=%d, failure=%d, total=%.2f",
		run.EligibleHosts, run.SuccessCount, run.FailureCount, run.TotalAmount)
	return run, nil
}

// payoutHost обрабатывает выплату одному хосту
func (s *payoutService) payoutHost(ctx context.Context, host *entity.EligibleHost, run *entity.PayoutRun) error {
	if !host.BankSetup {
		log.Printf("Хост %s пропущен: банковский счет не подключен", host.HostID)
		return nil
	}

	// Обязательная сверка: возвраты после последней записи баланса
	// могли уменьшить реальную сумму к выплате
	actual, err := s.earningsRepo.ReconcilePending(ctx, host.HostID)
	if err != nil {
		return fmt.Errorf("ошибка сверки баланса: %w", err)
	}

	if actual < s.threshold {
		log.Printf("Хост %s пропущен после сверки: %.2f < %.2f (было %.2f)",
			host.HostID, actual, s.threshold, host.PendingEarnings)
		return nil
	}

	payout := &entity.PayoutRecord{
		ID:             uuid.New().String(),
		HostID:         host.HostID,
		Amount:         actual,
		PayoutMethod:   s.method,
		Status:         entity.PayoutStatusProcessing,
		TransactionIDs: s.unpaidTransactionIDs(ctx, host.HostID),
		PayoutDate:     time.Now(),
	}

	transferID, err := s.bank.Transfer(ctx, host.HostID, actual, s.method)
	if err != nil {
		// Баланс не трогаем: сумма останется pending и попадет
		// в следующий батч
		run.FailureCount++
		if recordErr := s.earningsRepo.RecordFailedPayout(ctx, payout, err.Error()); recordErr != nil {
			log.Printf("Ошибка при записи неудачной выплаты %s: %v", payout.ID, recordErr)
		}
		s.publishNotification(ctx, TaskTypePayoutFailed, map[string]interface{}{
			"host_id":   host.HostID,
			"host_name": host.HostName,
			"amount":    actual,
			"payout_id": payout.ID,
			"reason":    err.Error(),
		})
		return fmt.Errorf("перевод не выполнен: %w", err)
	}

	payout.Status = entity.PayoutStatusCompleted
	payout.TransferID = transferID

	if err := s.earningsRepo.ApplyPayout(ctx, host.HostID, payout, payout.PayoutDate); err != nil {
		// Перевод прошел, но баланс не обновлен: следующая сверка
		// этого не исправит, нужен оператор
		run.FailureCount++
		s.publishNotification(ctx, TaskTypePayoutFailed, map[string]interface{}{
			"host_id":     host.HostID,
			"host_name":   host.HostName,
			"amount":      actual,
			"payout_id":   payout.ID,
			"transfer_id": transferID,
			"reason":      fmt.Sprintf("перевод выполнен, но баланс не обновлен: %v", err),
		})
		return fmt.Errorf("ошибка при применении выплаты: %w", err)
	}

	run.SuccessCount++
	run.TotalAmount += actual
	log.Printf("Выплата выполнена: Host=%s, Amount=%.2f, Transfer=%s", host.HostID, actual, transferID)

	s.publishNotification(ctx, TaskTypePayoutSent, map[string]interface{}{
		"host_id":   host.HostID,
		"host_name": host.HostName,
		"amount":    actual,
		"payout_id": payout.ID,
		"method":    string(s.method),
	})
	return nil
}

// unpaidTransactionIDs собирает id оплаченных транзакций, созданных
// после последней выплаты, для аудита выплаты
func (s *payoutService) unpaidTransactionIDs(ctx context.Context, hostID string) []int64 {
	earnings, err := s.earningsRepo.GetByHostID(ctx, hostID)
	if err != nil {
		return nil
	}

	transactions, err := s.earningsRepo.GetTransactions(ctx, hostID)
	if err != nil {
		return nil
	}

	var ids []int64
	for _, transaction := range transactions {
		if transaction.Status != entity.TransactionStatusPaid {
			continue
		}
		if earnings.LastPayoutDate != nil && !transaction.CreatedAt.After(*earnings.LastPayoutDate) {
			continue
		}
		ids = append(ids, transaction.ID)
	}
	return ids
}

// GetEligibleHosts возвращает хостов, прошедших первичный фильтр
func (s *payoutService) GetEligibleHosts(ctx context.Context) ([]*entity.EligibleHost, error) {
	hosts, err := s.earningsRepo.GetEligibleHosts(ctx, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("ошибка при выборе хостов для выплат: %w", err)
	}
	return hosts, nil
}

// GetRecentRuns возвращает последние запуски батч-процессора
func (s *payoutService) GetRecentRuns(ctx context.Context, limit int) ([]*entity.PayoutRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs, err := s.payoutRepo.GetRecentRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении истории батчей: %w", err)
	}
	return runs, nil
}

// GetRecentPayouts возвращает последние выплаты по всем хостам
func (s *payoutService) GetRecentPayouts(ctx context.Context, limit int) ([]*entity.PayoutRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	payouts, err := s.payoutRepo.GetRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении последних выплат: %w", err)
	}
	return payouts, nil
}

// GetHostPayouts возвращает историю выплат хоста
func (s *payoutService) GetHostPayouts(ctx context.Context, hostID string) ([]*entity.PayoutRecord, error) {
	payouts, err := s.payoutRepo.GetByHostID(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении выплат хоста: %w", err)
	}
	return payouts, nil
}

// publishNotification публикует задачу уведомления, если очередь доступна
func (s *payoutService) publishNotification(ctx context.Context, taskType string, data map[string]interface{}) {
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
