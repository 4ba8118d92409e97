package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondfyr/party-service/internal/entity"
)

// fakePartyRepo — сценарный репозиторий вечеринок
type fakePartyRepo struct {
	party *entity.PartyWithGuests

	submitErr     error
	approveResult *entity.GuestRequest
	approveErr    error
	denyResult    *entity.GuestRequest
	denyErr       error
	admitResult   *entity.GuestRequest
	admitErr      error
}

func (f *fakePartyRepo) Create(ctx context.Context, party *entity.Party) error {
	party.ID = 1
	return nil
}

func (f *fakePartyRepo) GetByID(ctx context.Context, id int64) (*entity.PartyWithGuests, error) {
	if f.party == nil || f.party.ID != id {
		return nil, entity.ErrPartyNotFound
	}
	return f.party, nil
}

func (f *fakePartyRepo) GetByHostID(ctx context.Context, hostID string) ([]*entity.Party, error) {
	return nil, nil
}

func (f *fakePartyRepo) GetUpcoming(ctx context.Context, now time.Time, limit int) ([]*entity.Party, error) {
	return nil, nil
}

func (f *fakePartyRepo) SubmitRequest(ctx context.Context, partyID int64, request *entity.GuestRequest) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	request.ID = 100
	request.PartyID = partyID
	return nil
}

func (f *fakePartyRepo) ApproveRequest(ctx context.Context, partyID, requestID int64, now time.Time) (*entity.GuestRequest, error) {
	return f.approveResult, f.approveErr
}

func (f *fakePartyRepo) DenyRequest(ctx context.Context, partyID, requestID int64) (*entity.GuestRequest, error) {
	return f.denyResult, f.denyErr
}

func (f *fakePartyRepo) AdmitPaidGuest(ctx context.Context, partyID int64, userID, paymentID string, amount float64) (*entity.GuestRequest, error) {
	return f.admitResult, f.admitErr
}

func (f *fakePartyRepo) DemoteRefundedGuest(ctx context.Context, partyID int64, userID, paymentID string) (*entity.GuestRequest, error) {
	return f.admitResult, f.admitErr
}

func (f *fakePartyRepo) FindByPaymentID(ctx context.Context, paymentID string) (*entity.Party, *entity.GuestRequest, error) {
	if f.party == nil || f.admitResult == nil {
		return nil, nil, entity.ErrRequestNotFound
	}
	return &f.party.Party, f.admitResult, nil
}

func (f *fakePartyRepo) GetRequest(ctx context.Context, partyID, requestID int64) (*entity.GuestRequest, error) {
	return f.approveResult, nil
}

func testParty(hostID string, ticketPrice float64) *entity.PartyWithGuests {
	return &entity.PartyWithGuests{
		Party: entity.Party{
			ID:            1,
			HostID:        hostID,
			HostHandle:    "@" + hostID,
			Title:         "Loft Party",
			TicketPrice:   ticketPrice,
			MaxGuestCount: 10,
			StartTime:     time.Now().Add(time.Hour),
			EndTime:       time.Now().Add(6 * time.Hour),
		},
	}
}

// TestSubmitRequestPublishesNotification тестирует создание заявки
// с уведомлением хоста
func TestSubmitRequestPublishesNotification(t *testing.T) {
	repo := &fakePartyRepo{party: testParty("host-1", 20)}
	publisher := &fakePublisher{}
	svc := NewAdmissionService(repo, publisher)

	request, err := svc.SubmitRequest(context.Background(), 1, &SubmitGuestRequest{
		UserID:   "user-1",
		UserName: "Иван",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(100), request.ID)
	assert.Contains(t, publisher.taskTypes(), TaskTypeRequestSubmitted)
}

// TestSubmitRequestDuplicate тестирует запрет повторной заявки
func TestSubmitRequestDuplicate(t *testing.T) {
	repo := &fakePartyRepo{party: testParty("host-1", 20), submitErr: entity.ErrDuplicateRequest}
	publisher := &fakePublisher{}
	svc := NewAdmissionService(repo, publisher)

	_, err := svc.SubmitRequest(context.Background(), 1, &SubmitGuestRequest{
		UserID:   "user-1",
		UserName: "Иван",
	})

	assert.ErrorIs(t, err, entity.ErrDuplicateRequest)
	assert.Empty(t, publisher.published)
}

// TestApproveRequestForbidden тестирует запрет одобрения чужой вечеринки
func TestApproveRequestForbidden(t *testing.T) {
	repo := &fakePartyRepo{party: testParty("host-1", 20)}
	svc := NewAdmissionService(repo, &fakePublisher{})

	_, err := svc.ApproveRequest(context.Background(), 1, 100, "host-2")

	assert.ErrorIs(t, err, entity.ErrForbidden)
}

// TestApproveRequestMissingIsSilent тестирует молчаливое завершение
// при отозванной заявке
func TestApproveRequestMissingIsSilent(t *testing.T) {
	repo := &fakePartyRepo{party: testParty("host-1", 20)}
	publisher := &fakePublisher{}
	svc := NewAdmissionService(repo, publisher)

	request, err := svc.ApproveRequest(context.Background(), 1, 999, "host-1")

	require.NoError(t, err)
	assert.Nil(t, request)
	assert.Empty(t, publisher.published)
}

// TestApproveRequestPaidParty тестирует одобрение на платной вечеринке:
// гость уведомлен о необходимости оплаты, но еще не допущен
func TestApproveRequestPaidParty(t *testing.T) {
	repo := &fakePartyRepo{
		party: testParty("host-1", 20),
		approveResult: &entity.GuestRequest{
			ID:             100,
			UserID:         "user-1",
			ApprovalStatus: entity.ApprovalStatusApproved,
			Going:          false,
		},
	}
	publisher := &fakePublisher{}
	svc := NewAdmissionService(repo, publisher)

	request, err := svc.ApproveRequest(context.Background(), 1, 100, "host-1")

	require.NoError(t, err)
	assert.False(t, request.Going)
	assert.Contains(t, publisher.taskTypes(), TaskTypeRequestApproved)
	assert.NotContains(t, publisher.taskTypes(), TaskTypeGuestAdmitted)
}

// TestApproveRequestFreeParty тестирует мгновенный допуск на бесплатной вечеринке
func TestApproveRequestFreeParty(t *testing.T) {
	repo := &fakePartyRepo{
		party: testParty("host-1", 0),
		approveResult: &entity.GuestRequest{
			ID:             100,
			UserID:         "user-1",
			ApprovalStatus: entity.ApprovalStatusApproved,
			Going:          true,
		},
	}
	publisher := &fakePublisher{}
	svc := NewAdmissionService(repo, publisher)

	request, err := svc.ApproveRequest(context.Background(), 1, 100, "host-1")

	require.NoError(t, err)
	assert.True(t, request.Going)
	assert.Contains(t, publisher.taskTypes(), TaskTypeGuestAdmitted)
}

// TestApproveRequestCapacityExceeded тестирует отказ при заполненной вечеринке
func TestApproveRequestCapacityExceeded(t *testing.T) {
	repo := &fakePartyRepo{
		party:      testParty("host-1", 20),
		approveErr: entity.ErrCapacityExceeded,
	}
	svc := NewAdmissionService(repo, &fakePublisher{})

	_, err := svc.ApproveRequest(context.Background(), 1, 100, "host-1")

	assert.ErrorIs(t, err, entity.ErrCapacityExceeded)
}

// TestConfirmPayment тестирует допуск гостя после оплаты
func TestConfirmPayment(t *testing.T) {
	repo := &fakePartyRepo{
		party: testParty("host-1", 20),
		admitResult: &entity.GuestRequest{
			ID:            100,
			UserID:        "user-1",
			UserName:      "Иван",
			PaymentStatus: entity.PaymentStatusPaid,
			Going:         true,
		},
	}
	publisher := &fakePublisher{}
	svc := NewAdmissionService(repo, publisher)

	request, err := svc.ConfirmPayment(context.Background(), 1, "user-1", "pay_1", 20.00)

	require.NoError(t, err)
	assert.True(t, request.Going)
	assert.Contains(t, publisher.taskTypes(), TaskTypeGuestAdmitted)
}

// TestRevokeAdmission тестирует отзыв допуска после возврата средств
func TestRevokeAdmission(t *testing.T) {
	repo := &fakePartyRepo{
		party: testParty("host-1", 20),
		admitResult: &entity.GuestRequest{
			ID:            100,
			UserID:        "user-1",
			PaymentStatus: entity.PaymentStatusRefunded,
			Going:         false,
			AmountPaid:    20.00,
		},
	}
	publisher := &fakePublisher{}
	svc := NewAdmissionService(repo, publisher)

	party, request, err := svc.RevokeAdmission(context.Background(), "pay_1")

	require.NoError(t, err)
	assert.Equal(t, int64(1), party.ID)
	assert.False(t, request.Going)
	assert.Contains(t, publisher.taskTypes(), TaskTypeRefundProcessed)
}

// TestDenyRequest тестирует отклонение заявки с уведомлением гостя
func TestDenyRequest(t *testing.T) {
	repo := &fakePartyRepo{
		party: testParty("host-1", 20),
		denyResult: &entity.GuestRequest{
			ID:             100,
			UserID:         "user-1",
			ApprovalStatus: entity.ApprovalStatusDenied,
		},
	}
	publisher := &fakePublisher{}
	svc := NewAdmissionService(repo, publisher)

	request, err := svc.DenyRequest(context.Background(), 1, 100, "host-1")

	require.NoError(t, err)
	assert.Equal(t, entity.ApprovalStatusDenied, request.ApprovalStatus)
	assert.Contains(t, publisher.taskTypes(), TaskTypeRequestDenied)
}
