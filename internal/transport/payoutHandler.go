package transport

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bondfyr/party-service/internal/service"
	"github.com/bondfyr/party-service/pkg/queue"
)

type PayoutHandler struct {
	ledgerService service.LedgerService
	payoutService service.PayoutService
	dlqHandler    queue.DLQHandler
}

func NewPayoutHandler(ledgerService service.LedgerService, payoutService service.PayoutService, dlqHandler queue.DLQHandler) *PayoutHandler {
	return &PayoutHandler{
		ledgerService: ledgerService,
		payoutService: payoutService,
		dlqHandler:    dlqHandler,
	}
}

// BankSetupRequest представляет запрос на подключение банковского счета
type BankSetupRequest struct {
	Setup bool `json:"setup"`
}

func (h *PayoutHandler) GetHostEarnings(c *gin.Context) {
	hostID := c.Param("host_id")
	if hostID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid host id"})
		return
	}

	details, err := h.ledgerService.GetHostEarnings(c.Request.Context(), hostID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, details)
}

func (h *PayoutHandler) SetupBankAccount(c *gin.Context) {
	hostID := c.Param("host_id")
	if hostID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid host id"})
		return
	}

	var req BankSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ledgerService.SetupBankAccount(c.Request.Context(), hostID, req.Setup); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "bank account updated"})
}

func (h *PayoutHandler) GetHostPayouts(c *gin.Context) {
	hostID := c.Param("host_id")
	if hostID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid host id"})
		return
	}

	payouts, err := h.payoutService.GetHostPayouts(c.Request.Context(), hostID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, payouts)
}

// TriggerPayouts запускает батч выплат вручную
func (h *PayoutHandler) TriggerPayouts(c *gin.Context) {
	run, err := h.payoutService.RunPayouts(c.Request.Context(), "manual")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *PayoutHandler) GetEligibleHosts(c *gin.Context) {
	hosts, err := h.payoutService.GetEligibleHosts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, hosts)
}

func (h *PayoutHandler) GetRecentRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	runs, err := h.payoutService.GetRecentRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, runs)
}

func (h *PayoutHandler) GetRecentPayouts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	payouts, err := h.payoutService.GetRecentPayouts(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, payouts)
}

// GetDLQStats возвращает статистику очереди необработанных задач
func (h *PayoutHandler) GetDLQStats(c *gin.Context) {
	if h.dlqHandler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue not configured"})
		return
	}

	stats, err := h.dlqHandler.GetDLQStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
