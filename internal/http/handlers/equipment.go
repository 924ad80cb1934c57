package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"hardmine/internal/logger"
	"hardmine/internal/service"

	"github.com/gin-gonic/gin"
)

// GetEquipmentCatalog returns all equipment types for sale.
func (h *Handler) GetEquipmentCatalog(c *gin.Context) {
	catalog, err := h.Equipment.Catalog(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get catalog"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"equipment": catalog})
}

func (h *Handler) GetMyEquipment(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	owned, err := h.Equipment.Owned(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get equipment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"equipment": owned})
}

func (h *Handler) BuyEquipment(c *gin.Context) {
	h.equipmentAction(c, h.Equipment.Buy)
}

func (h *Handler) UpgradeEquipment(c *gin.Context) {
	h.equipmentAction(c, h.Equipment.Upgrade)
}

type equipmentOp func(ctx context.Context, userID, typeID int64) (*service.PurchaseResult, error)

func (h *Handler) equipmentAction(c *gin.Context, op equipmentOp) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	typeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || typeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid equipment id"})
		return
	}

	ctx := c.Request.Context()
	res, err := op(ctx, userID, typeID)
	if err != nil {
		status, msg := equipmentError(err)
		if status == http.StatusInternalServerError {
			logger.WithContext(ctx).Error("equipment action failed", "user_id", userID, "type_id", typeID, "error", err)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, res)
}

func equipmentError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNoSuchDevice):
		return http.StatusNotFound, "equipment not found"
	case errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient funds"
	case errors.Is(err, service.ErrMaxOwned):
		return http.StatusConflict, "maximum quantity owned"
	case errors.Is(err, service.ErrMaxLevel):
		return http.StatusConflict, "equipment is at max level"
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusBadRequest, "equipment not owned"
	default:
		return http.StatusInternalServerError, "operation failed"
	}
}
