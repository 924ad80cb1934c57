package handlers

import (
	"errors"
	"net/http"

	"hardmine/internal/mining"
	"hardmine/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetPowerUpOffers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"offers": mining.PowerUpOffers()})
}

// GetMyPowerUps returns boosts active right now; expired rows are never listed.
func (h *Handler) GetMyPowerUps(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ups, err := h.PowerUps.GetActive(c.Request.Context(), userID, h.clock())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get power-ups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"power_ups": ups})
}

func (h *Handler) ActivatePowerUp(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p, balance, err := h.PowerUps.Purchase(c.Request.Context(), userID, c.Param("code"))
	switch {
	case errors.Is(err, service.ErrUnknownOffer):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown offer"})
		return
	case errors.Is(err, service.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient funds"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to activate power-up"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"power_up": p,
		"balance":  balance,
	})
}
