package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/bondfyr/party-service/internal/service"
	"github.com/bondfyr/party-service/pkg/queue"

	"github.com/sirupsen/logrus"
)

// PayoutMonitorWorker следит за состоянием выплат и очереди уведомлений.
// Сами выплаты выполняет планировщик; воркер только наблюдает и
// поднимает тревогу оператору.
type PayoutMonitorWorker struct {
	payoutService service.PayoutService
	dlqHandler    queue.DLQHandler
	telegramBot   queue.TelegramBot
	operatorChat  string
	interval      time.Duration
	dlqThreshold  int64
}

func NewPayoutMonitorWorker(
	payoutService service.PayoutService,
	dlqHandler queue.DLQHandler,
	telegramBot queue.TelegramBot,
	operatorChat string,
	interval time.Duration,
	dlqThreshold int64,
) *PayoutMonitorWorker {
	return &PayoutMonitorWorker{
		payoutService: payoutService,
		dlqHandler:    dlqHandler,
		telegramBot:   telegramBot,
		operatorChat:  operatorChat,
		interval:      interval,
		dlqThreshold:  dlqThreshold,
	}
}

func (w *PayoutMonitorWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Payout monitor worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Payout monitor worker stopped")
			return
		case <-ticker.C:
			w.checkPayoutBacklog(ctx)
			w.checkDLQ(ctx)
		}
	}
}

// checkPayoutBacklog логирует количество хостов, ожидающих выплату
func (w *PayoutMonitorWorker) checkPayoutBacklog(ctx context.Context) {
	hosts, err := w.payoutService.GetEligibleHosts(ctx)
	if err != nil {
		logrus.Errorf("Failed to get payout backlog: %v", err)
		return
	}

	if len(hosts) == 0 {
		logrus.Debug("No hosts waiting for payout")
		return
	}

	var total float64
	var missingBank int
	for _, host := range hosts {
		total += host.PendingEarnings
		if !host.BankSetup {
			missingBank++
		}
	}

	logrus.WithFields(logrus.Fields{
		"hosts":        len(hosts),
		"total_amount": total,
		"missing_bank": missingBank,
	}).Info("Payout backlog")

	// Хосты без банковского счета копят баланс, который батч никогда
	// не выплатит; оператору стоит про них напомнить
	if missingBank > 0 {
		w.alertOperator(fmt.Sprintf(
			"⚠️ %d хостов с балансом выше порога не подключили банковский счет",
			missingBank))
	}
}

// checkDLQ следит за размером очереди необработанных задач
func (w *PayoutMonitorWorker) checkDLQ(ctx context.Context) {
	if w.dlqHandler == nil {
		return
	}

	stats, err := w.dlqHandler.GetDLQStats(ctx)
	if err != nil {
		logrus.Errorf("Failed to get DLQ stats: %v", err)
		return
	}

	if stats.QueueSize == 0 {
		return
	}

	logrus.WithFields(logrus.Fields{
		"dlq_size":       stats.QueueSize,
		"oldest_failure": stats.OldestFailure,
	}).Warn("DLQ is not empty")

	if stats.QueueSize >= w.dlqThreshold {
		w.alertOperator(fmt.Sprintf(
			"🚨 В DLQ накопилось %d задач (порог %d), самая старая от %s",
			stats.QueueSize, w.dlqThreshold,
			stats.OldestFailure.Format(time.RFC3339)))
	}
}

func (w *PayoutMonitorWorker) alertOperator(message string) {
	if w.telegramBot == nil || w.operatorChat == "" {
		return
	}
	if err := w.telegramBot.SendMessage(w.operatorChat, message); err != nil {
		logrus.Errorf("Failed to alert operator: %v", err)
	}
}

// GetStats возвращает статистику работы воркера
func (w *PayoutMonitorWorker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"worker_type": "payout_monitor",
		"interval":    w.interval.String(),
		"status":      "running",
	}
}
