package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	repository "github.com/bondfyr/party-service/internal/database/postgres"
	"github.com/bondfyr/party-service/internal/entity"
)

type ledgerService struct {
	earningsRepo repository.EarningsRepository
	payoutRepo   repository.PayoutRepository
}

// NewLedgerService создает новый экземпляр LedgerService
func NewLedgerService(earningsRepo repository.EarningsRepository, payoutRepo repository.PayoutRepository) LedgerService {
	return &ledgerService{
		earningsRepo: earningsRepo,
		payoutRepo:   payoutRepo,
	}
}

// GetHostEarnings возвращает баланс хоста с историей транзакций и выплат
func (s *ledgerService) GetHostEarnings(ctx context.Context, hostID string) (*entity.HostEarningsDetails, error) {
	earnings, err := s.earningsRepo.GetByHostID(ctx, hostID)
	if err != nil {
		if errors.Is(err, entity.ErrEarningsNotFound) {
			// Хост еще ничего не заработал: пустой баланс вместо ошибки
			return &entity.HostEarningsDetails{
				Earnings: &entity.HostEarnings{HostID: hostID},
			}, nil
		}
		return nil, fmt.Errorf("ошибка при получении баланса хоста: %w", err)
	}

	transactions, err := s.earningsRepo.GetTransactions(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении транзакций хоста: %w", err)
	}

	payouts, err := s.payoutRepo.GetByHostID(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении выплат хоста: %w", err)
	}

	return &entity.HostEarningsDetails{
		Earnings:     earnings,
		Transactions: transactions,
		Payouts:      payouts,
	}, nil
}

// SetupBankAccount устанавливает флаг подключения банковского счета
func (s *ledgerService) SetupBankAccount(ctx context.Context, hostID string, setup bool) error {
	if err := s.earningsRepo.SetBankAccountSetup(ctx, hostID, setup); err != nil {
		return fmt.Errorf("ошибка при установке флага банковского счета: %w", err)
	}
	log.Printf("Банковский счет хоста %s: setup=%v", hostID, setup)
	return nil
}

// RecordPayment записывает подтвержденный платеж в журнал хоста.
// Сплит 20/80 вычисляется один раз при создании транзакции.
// Повторная запись того же платежа возвращает ErrDuplicateTransaction.
func (s *ledgerService) RecordPayment(ctx context.Context, req *RecordPaymentRequest) (*entity.HostTransaction, error) {
	transaction := entity.NewHostTransaction(
		req.HostID,
		req.PartyTitle,
		req.GuestID,
		req.GuestName,
		req.PaymentID,
		req.PartyID,
		req.Amount,
	)

	if err := s.earningsRepo.RecordTransaction(ctx, req.HostName, transaction); err != nil {
		if errors.Is(err, entity.ErrDuplicateTransaction) {
			return nil, err
		}
		return nil, fmt.Errorf("ошибка при записи транзакции: %w", err)
	}

	log.Printf("Транзакция записана: ID=%d, Host=%s, Amount=%.2f, Fee=%.2f, Earning=%.2f",
		transaction.ID, transaction.HostID, transaction.Amount,
		transaction.PlatformFee, transaction.HostEarning)

	return transaction, nil
}

// ProcessRefund сторнирует транзакцию в журнале хоста. Транзакция
// ищется по вечеринке и гостю, а не по id платежа: возврат может
// прийти с другим идентификатором, чем исходный платеж.
func (s *ledgerService) ProcessRefund(ctx context.Context, hostID string, partyID int64, guestID string) (*entity.HostTransaction, error) {
	transaction, err := s.earningsRepo.ReverseTransaction(ctx, hostID, partyID, guestID, time.Now())
	if err != nil {
		if errors.Is(err, entity.ErrNoMatchingTransaction) {
			return nil, err
		}
		return nil, fmt.Errorf("ошибка при сторнировании транзакции: %w", err)
	}

	log.Printf("Транзакция сторнирована: ID=%d, Host=%s, Earning=-%.2f",
		transaction.ID, transaction.HostID, transaction.HostEarning)

	return transaction, nil
}
