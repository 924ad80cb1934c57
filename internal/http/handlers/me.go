package handlers

import (
	"net/http"

	"hardmine/internal/mining"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Me(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.Users.Get(ctx, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	owned, err := h.Equipment.Owned(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load equipment"})
		return
	}
	now := h.clock()
	ups, err := h.PowerUps.GetActive(ctx, userID, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load power-ups"})
		return
	}
	eff, err := mining.ComputeEffective(userID, owned, ups, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute hashrate"})
		return
	}

	rank, _ := h.Users.HashrateRank(ctx, userID)

	c.JSON(http.StatusOK, gin.H{
		"user":      user,
		"hashrate":  eff,
		"power_ups": ups,
		"rank":      rank,
	})
}

// GetMyTransactions returns the balance ledger of the current user.
func (h *Handler) GetMyTransactions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	limit := queryInt(c.Query("limit"), 50, 1, 200)
	txs, err := h.Balance.GetTransactionHistory(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get transactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
