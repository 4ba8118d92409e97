package queue

import (
	"fmt"
	"log"
)

// TelegramBot интерфейс для Telegram бота
type TelegramBot interface {
	SendMessage(chatID, text string) error
}

// TaskHandler обрабатывает задачи уведомлений из очереди.
// Задача несет полный payload, поэтому обработчику не нужны
// репозитории или сервисы.
type TaskHandler struct {
	telegramBot  TelegramBot
	operatorChat string
}

// NewTaskHandler создает новый обработчик задач
func NewTaskHandler(telegramBot TelegramBot, operatorChat string) *TaskHandler {
	return &TaskHandler{
		telegramBot:  telegramBot,
		operatorChat: operatorChat,
	}
}

// HandleTask обрабатывает задачу
func (h *TaskHandler) HandleTask(task *Task) error {
	log.Printf("Обработка задачи %s типа %s (попытка %d/%d)",
		task.ID, task.Type, task.Attempts, task.MaxRetries)

	switch task.Type {
	case TaskTypeRequestSubmitted:
		return h.handleRequestSubmitted(task)
	case TaskTypeRequestApproved:
		return h.handleRequestApproved(task)
	case TaskTypeRequestDenied:
		return h.handleRequestDenied(task)
	case TaskTypeGuestAdmitted:
		return h.handleGuestAdmitted(task)
	case TaskTypePaymentFailed:
		return h.handlePaymentFailed(task)
	case TaskTypeRefundProcessed:
		return h.handleRefundProcessed(task)
	case TaskTypePayoutSent:
		return h.handlePayoutSent(task)
	case TaskTypePayoutFailed:
		return h.handlePayoutFailed(task)
	default:
		return fmt.Errorf("неизвестный тип задачи: %s", task.Type)
	}
}

// handleRequestSubmitted уведомляет хоста о новой заявке
func (h *TaskHandler) handleRequestSubmitted(task *Task) error {
	message := fmt.Sprintf(
		"📨 Новая заявка на вечеринку!\n\n"+
			"Вечеринка: %s\n"+
			"Гость: %s\n"+
			"Номер заявки: #%d\n\n"+
			"Одобрите или отклоните заявку в приложении.",
		task.GetString("party_title"),
		task.GetString("user_name"),
		task.GetInt64("request_id"),
	)

	return h.send(task.GetString("host_handle"), message)
}

// handleRequestApproved уведомляет гостя об одобрении заявки
func (h *TaskHandler) handleRequestApproved(task *Task) error {
	message := fmt.Sprintf(
		"✅ Ваша заявка одобрена!\n\n"+
			"Вечеринка: %s\n"+
			"Стоимость билета: %.2f\n\n"+
			"Оплатите билет, чтобы попасть в список гостей.",
		task.GetString("party_title"),
		task.GetFloat("ticket_price"),
	)

	return h.send(task.GetString("user_id"), message)
}

// handleRequestDenied уведомляет гостя об отклонении заявки
func (h *TaskHandler) handleRequestDenied(task *Task) error {
	message := fmt.Sprintf(
		"❌ Заявка отклонена\n\n"+
			"Вечеринка: %s\n\n"+
			"Вы можете подать заявку повторно.",
		task.GetString("party_title"),
	)

	return h.send(task.GetString("user_id"), message)
}

// handleGuestAdmitted уведомляет гостя о допуске на вечеринку
func (h *TaskHandler) handleGuestAdmitted(task *Task) error {
	message := fmt.Sprintf(
		"🎉 Вы в списке гостей!\n\n"+
			"Вечеринка: %s\n\n"+
			"До встречи на вечеринке!",
		task.GetString("party_title"),
	)

	return h.send(task.GetString("user_id"), message)
}

// handlePaymentFailed уведомляет гостя о неудачной оплате
func (h *TaskHandler) handlePaymentFailed(task *Task) error {
	message := fmt.Sprintf(
		"⚠️ Оплата не прошла\n\n"+
			"Вечеринка: %s\n"+
			"Причина: %s\n\n"+
			"Ваша заявка остается одобренной, попробуйте оплатить еще раз.",
		task.GetString("party_title"),
		task.GetString("reason"),
	)

	return h.send(task.GetString("user_id"), message)
}

// handleRefundProcessed уведомляет гостя о возврате средств
func (h *TaskHandler) handleRefundProcessed(task *Task) error {
	message := fmt.Sprintf(
		"💸 Возврат выполнен\n\n"+
			"Вечеринка: %s\n"+
			"Сумма: %.2f\n\n"+
			"Ваш допуск на вечеринку отозван.",
		task.GetString("party_title"),
		task.GetFloat("amount"),
	)

	return h.send(task.GetString("user_id"), message)
}

// handlePayoutSent уведомляет хоста об отправленной выплате
func (h *TaskHandler) handlePayoutSent(task *Task) error {
	message := fmt.Sprintf(
		"💰 Выплата отправлена!\n\n"+
			"Сумма: %.2f\n"+
			"Способ: %s\n"+
			"Номер выплаты: %s",
		task.GetFloat("amount"),
		task.GetString("method"),
		task.GetString("payout_id"),
	)

	return h.send(task.GetString("host_id"), message)
}

// handlePayoutFailed уведомляет оператора о неудачной выплате
func (h *TaskHandler) handlePayoutFailed(task *Task) error {
	message := fmt.Sprintf(
		"🚨 Выплата не выполнена!\n\n"+
			"Хост: %s (%s)\n"+
			"Сумма: %.2f\n"+
			"Номер выплаты: %s\n"+
			"Причина: %s\n\n"+
			"Требуется вмешательство оператора.",
		task.GetString("host_name"),
		task.GetString("host_id"),
		task.GetFloat("amount"),
		task.GetString("payout_id"),
		task.GetString("reason"),
	)

	return h.send(h.operatorChat, message)
}

// send отправляет сообщение, если бот и получатель доступны
func (h *TaskHandler) send(chatID, message string) error {
	if h.telegramBot == nil {
		log.Printf("Telegram бот не настроен, уведомление пропущено")
		return nil
	}
	if chatID == "" {
		log.Printf("Получатель не указан, уведомление пропущено")
		return nil
	}

	if err := h.telegramBot.SendMessage(chatID, message); err != nil {
		return fmt.Errorf("ошибка отправки в Telegram: %v", err)
	}
	return nil
}
