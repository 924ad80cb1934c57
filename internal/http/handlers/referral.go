package handlers

import (
	"errors"
	"net/http"

	"hardmine/internal/domain"
	"hardmine/internal/service"

	"github.com/gin-gonic/gin"
)

// GetReferralCode returns user's referral code
func (h *Handler) GetReferralCode(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": user.ReferralCode})
}

// GetReferralLink returns the full referral link for sharing
func (h *Handler) GetReferralLink(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	// Format: https://t.me/bot_username/webapp_short_name?startapp=ref_CODE
	c.JSON(http.StatusOK, gin.H{
		"code": user.ReferralCode,
		"link": h.Referrals.Link(user.ReferralCode),
	})
}

// GetReferralStats returns user's referral statistics
func (h *Handler) GetReferralStats(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	stats, err := h.Referrals.Stats(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}
	referrals, err := h.Referrals.List(ctx, userID, 100)
	if err != nil {
		referrals = []domain.Referral{}
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":     stats,
		"referrals": referrals,
	})
}

type ApplyReferralRequest struct {
	Code string `json:"code" binding:"required"`
}

// ApplyReferralCode applies a referral code for the current user
func (h *Handler) ApplyReferralCode(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ApplyReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	ref, err := h.Referrals.Apply(c.Request.Context(), userID, req.Code)
	switch {
	case errors.Is(err, service.ErrUnknownReferral):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referral code"})
		return
	case errors.Is(err, service.ErrSelfReferral):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot use your own code"})
		return
	case errors.Is(err, service.ErrAlreadyReferred):
		c.JSON(http.StatusConflict, gin.H{"error": "already referred"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply referral"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "referral applied successfully", "referral": ref})
}

func (h *Handler) currentUser(c *gin.Context) (*domain.User, bool) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	user, err := h.Users.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return nil, false
	}
	return user, true
}
