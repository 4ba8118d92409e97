package entity

import "time"

type GuestStatus string

const (
	GuestStatusNotRequested     GuestStatus = "not_requested"
	GuestStatusRequestSubmitted GuestStatus = "request_submitted"
	GuestStatusApproved         GuestStatus = "approved"
	GuestStatusDenied           GuestStatus = "denied"
	GuestStatusGoing            GuestStatus = "going"
	GuestStatusSoldOut          GuestStatus = "sold_out"
	GuestStatusPartyEnded       GuestStatus = "party_ended"
)

// DeriveGuestStatus вычисляет статус гостя для пары (вечеринка, пользователь).
// Статус не хранится: он всегда выводится из текущего состояния вечеринки.
// Порядок проверок важен: завершение вечеринки и членство в списке гостей
// перекрывают состояние заявки, sold_out показывается только тем, у кого
// заявки нет.
func DeriveGuestStatus(party *PartyWithGuests, userID string, now time.Time) GuestStatus {
	if party.Ended(now) {
		return GuestStatusPartyEnded
	}

	for _, active := range party.ActiveUsers {
		if active == userID {
			return GuestStatusGoing
		}
	}

	var request *GuestRequest
	for _, r := range party.GuestRequests {
		if r.UserID != userID {
			continue
		}
		// Отклоненные заявки сохраняются для аудита: берем самую свежую
		if request == nil || r.SubmittedAt.After(request.SubmittedAt) {
			request = r
		}
	}

	if request != nil {
		switch request.ApprovalStatus {
		case ApprovalStatusPending:
			return GuestStatusRequestSubmitted
		case ApprovalStatusApproved:
			return GuestStatusApproved
		case ApprovalStatusDenied:
			return GuestStatusDenied
		}
	}

	if party.ActiveUserCount() >= party.MaxGuestCount {
		return GuestStatusSoldOut
	}

	return GuestStatusNotRequested
}
