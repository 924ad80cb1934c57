package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"hardmine/internal/domain"
	"hardmine/internal/logger"
	"hardmine/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminMining returns scheduler health and chain totals.
func (h *Handler) GetAdminMining(c *gin.Context) {
	health := h.Mining.Health()
	resp := gin.H{
		"health":       health,
		"interval":     int(h.Mining.Interval().Seconds()),
		"block_reward": h.Mining.BlockReward(),
	}
	if h.Admin != nil {
		if stats, err := h.Admin.GetStats(c.Request.Context(), &health); err == nil {
			resp["stats"] = stats
		} else {
			logger.WithContext(c.Request.Context()).Warn("admin stats failed", "error", err)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) PauseMining(c *gin.Context) {
	h.Mining.Pause()
	h.auditMining(c, domain.AuditActionMiningPause, nil)
	c.JSON(http.StatusOK, gin.H{"paused": true, "health": h.Mining.Health()})
}

func (h *Handler) ResumeMining(c *gin.Context) {
	h.Mining.Resume()
	h.auditMining(c, domain.AuditActionMiningResume, nil)
	c.JSON(http.StatusOK, gin.H{"paused": false, "health": h.Mining.Health()})
}

// ForceMine runs an out-of-band tick.
func (h *Handler) ForceMine(c *gin.Context) {
	ev, err := h.Mining.MineNow(c.Request.Context())
	switch {
	case errors.Is(err, service.ErrMiningPaused):
		c.JSON(http.StatusConflict, gin.H{"error": "mining is paused"})
		return
	case errors.Is(err, service.ErrTickInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "block tick already in progress"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "block commit failed"})
		return
	}

	h.auditMining(c, domain.AuditActionMiningForce, map[string]interface{}{"block": ev.Block.Number})
	c.JSON(http.StatusOK, gin.H{
		"block":         ev.Block,
		"rewards":       len(ev.Rewards),
		"next_block_at": ev.NextBlockAt,
	})
}

func (h *Handler) auditMining(c *gin.Context, action string, details map[string]interface{}) {
	adminID, _ := getUserID(c)
	logger.WithContext(c.Request.Context()).Info("admin mining action", "action", action, "admin_id", adminID)
	h.Audit.LogAdminAction(c.Request.Context(), adminID, action, adminID, details)
}

// GetAuditLogs lists audit entries by ?category= or ?user_id=, newest first.
func (h *Handler) GetAuditLogs(c *gin.Context) {
	category := c.Query("category")
	rawUser := c.Query("user_id")
	limit := queryInt(c.Query("limit"), 50, 1, 200)

	var userID int64
	switch {
	case category != "" && rawUser != "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "use either category or user_id"})
		return
	case category != "":
		if !domain.ValidAuditCategory(category) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
			return
		}
	case rawUser != "":
		id, err := strconv.ParseInt(rawUser, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		userID = id
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "category or user_id required"})
		return
	}

	ctx := c.Request.Context()
	var (
		logs []*domain.AuditLog
		err  error
	)
	if userID > 0 {
		logs, err = h.Audit.GetUserAuditLogs(ctx, userID, limit)
	} else {
		logs, err = h.Audit.GetLogsByCategory(ctx, category, limit)
	}
	if err != nil {
		logger.WithContext(ctx).Error("audit query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load audit logs"})
		return
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// IsAdmin backs the AdminOnly middleware.
func (h *Handler) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	user, err := h.Users.Get(ctx, userID)
	if errors.Is(err, service.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}
