package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bondfyr/party-service/internal/entity"
	"github.com/bondfyr/party-service/internal/service"
)

type PartyHandler struct {
	admissionService service.AdmissionService
}

func NewPartyHandler(admissionService service.AdmissionService) *PartyHandler {
	return &PartyHandler{admissionService: admissionService}
}

// SuccessResponse представляет успешный ответ
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (h *PartyHandler) CreateParty(c *gin.Context) {
	var req service.CreatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	party, err := h.admissionService.CreateParty(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, party)
}

func (h *PartyHandler) GetParty(c *gin.Context) {
	partyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid party id"})
		return
	}

	party, err := h.admissionService.GetParty(c.Request.Context(), partyID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, party)
}

func (h *PartyHandler) GetHostParties(c *gin.Context) {
	hostID := c.Param("host_id")
	if hostID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid host id"})
		return
	}

	parties, err := h.admissionService.GetHostParties(c.Request.Context(), hostID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, parties)
}

func (h *PartyHandler) GetUpcomingParties(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	parties, err := h.admissionService.GetUpcomingParties(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, parties)
}

func (h *PartyHandler) SubmitRequest(c *gin.Context) {
	partyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid party id"})
		return
	}

	var req service.SubmitGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.admissionService.SubmitRequest(c.Request.Context(), partyID, &req)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, request)
}

func (h *PartyHandler) ApproveRequest(c *gin.Context) {
	partyID, requestID, ok := h.parseRequestParams(c)
	if !ok {
		return
	}

	// Только хост вечеринки может одобрять заявки
	hostID := c.GetHeader("X-User-ID")
	if hostID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID header"})
		return
	}

	request, err := h.admissionService.ApproveRequest(c.Request.Context(), partyID, requestID, hostID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	if request == nil {
		// Заявка отозвана или не существует: операция молча завершена
		c.JSON(http.StatusOK, gin.H{"message": "request no longer exists"})
		return
	}

	c.JSON(http.StatusOK, request)
}

func (h *PartyHandler) DenyRequest(c *gin.Context) {
	partyID, requestID, ok := h.parseRequestParams(c)
	if !ok {
		return
	}

	hostID := c.GetHeader("X-User-ID")
	if hostID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID header"})
		return
	}

	request, err := h.admissionService.DenyRequest(c.Request.Context(), partyID, requestID, hostID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	if request == nil {
		c.JSON(http.StatusOK, gin.H{"message": "request no longer exists"})
		return
	}

	c.JSON(http.StatusOK, request)
}

func (h *PartyHandler) GetGuestStatus(c *gin.Context) {
	partyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid party id"})
		return
	}

	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	status, err := h.admissionService.GetGuestStatus(c.Request.Context(), partyID, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"party_id": partyID,
		"user_id":  userID,
		"status":   status,
	})
}

func (h *PartyHandler) parseRequestParams(c *gin.Context) (int64, int64, bool) {
	partyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid party id"})
		return 0, 0, false
	}

	requestID, err := strconv.ParseInt(c.Param("request_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return 0, 0, false
	}

	return partyID, requestID, true
}

// statusForError сопоставляет доменные ошибки с HTTP статусами
func statusForError(err error) int {
	switch {
	case errors.Is(err, entity.ErrPartyNotFound),
		errors.Is(err, entity.ErrRequestNotFound),
		errors.Is(err, entity.ErrEarningsNotFound),
		errors.Is(err, entity.ErrPayoutNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrDuplicateRequest),
		errors.Is(err, entity.ErrCapacityExceeded),
		errors.Is(err, entity.ErrPartyClosed),
		errors.Is(err, entity.ErrDuplicateTransaction):
		return http.StatusConflict
	case errors.Is(err, entity.ErrInvalidWindow),
		errors.Is(err, entity.ErrInvalidCapacity),
		errors.Is(err, entity.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
