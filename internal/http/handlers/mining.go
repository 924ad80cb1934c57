package handlers

import (
	"net/http"

	"hardmine/internal/mining"

	"github.com/gin-gonic/gin"
)

// GetLatestBlock returns the chain head and when the next block is due.
func (h *Handler) GetLatestBlock(c *gin.Context) {
	block := h.Mining.LastBlock()
	if block == nil {
		var err error
		block, err = h.Blocks.LatestBlock(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get latest block"})
			return
		}
	}
	if block == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no blocks mined yet", "next_block_at": h.Mining.NextBlockAt()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"block":         block,
		"next_block_at": h.Mining.NextBlockAt(),
	})
}

// GetMiningStats returns network totals and the current schedule.
func (h *Handler) GetMiningStats(c *gin.Context) {
	ctx := c.Request.Context()
	snap, err := h.Network.Cached(ctx, h.clock())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get network stats"})
		return
	}
	health := h.Mining.Health()

	c.JSON(http.StatusOK, gin.H{
		"network_hashrate":  snap.TotalHashrate,
		"active_miners":     snap.ActiveMiners,
		"block_reward":      h.Mining.BlockReward(),
		"block_interval":    int(h.Mining.Interval().Seconds()),
		"difficulty":        mining.Difficulty(snap.TotalHashrate, h.Mining.Interval()),
		"last_block_number": health.LastBlockNumber,
		"next_block_at":     health.NextBlockAt,
		"paused":            health.Paused,
	})
}

// GetMyRewards returns a page of the user's block rewards, newest first.
func (h *Handler) GetMyRewards(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := queryInt(c.Query("limit"), 20, 1, 100)
	offset := queryInt(c.Query("offset"), 0, 0, 1<<20)

	ctx := c.Request.Context()
	rewards, err := h.Blocks.RewardsByUser(ctx, userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get rewards"})
		return
	}
	summary, err := h.Blocks.RewardSummary(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get rewards"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rewards": rewards,
		"summary": summary,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetMiningCalendar projects the user's expected reward for upcoming blocks.
func (h *Handler) GetMiningCalendar(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	blocks := mining.DefaultCalendarBlocks
	if raw := c.Query("blocks"); raw != "" {
		blocks = queryInt(raw, -1, -1, mining.MaxCalendarBlocks+1)
	}
	if blocks < 1 || blocks > mining.MaxCalendarBlocks {
		c.JSON(http.StatusBadRequest, gin.H{"error": "blocks must be between 1 and 288"})
		return
	}

	ctx := c.Request.Context()
	now := h.clock()
	owned, err := h.Equipment.Owned(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load equipment"})
		return
	}
	ups, err := h.PowerUps.Upcoming(ctx, userID, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load power-ups"})
		return
	}
	snap, err := h.Network.Cached(ctx, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get network stats"})
		return
	}
	mine, err := mining.ComputeEffective(userID, owned, ups, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute hashrate"})
		return
	}

	entries, err := mining.ProjectCalendar(mining.CalendarInput{
		UserID:         userID,
		Equipment:      owned,
		PowerUps:       ups,
		OthersHashrate: snap.TotalHashrate - mine.EffectiveHashrate,
		BlockReward:    h.Mining.BlockReward(),
		FirstBlockAt:   h.Mining.NextBlockAt(),
		Interval:       h.Mining.Interval(),
		Blocks:         blocks,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build calendar"})
		return
	}

	var total int64
	for _, e := range entries {
		total += e.ExpectedReward
	}
	c.JSON(http.StatusOK, gin.H{
		"calendar":       entries,
		"expected_total": total,
		"estimate":       true,
	})
}

// GetTopMiners returns the leaderboard by installed hashrate.
func (h *Handler) GetTopMiners(c *gin.Context) {
	limit := queryInt(c.Query("limit"), 100, 1, 100)
	top, err := h.Users.TopMiners(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": top})
}

// GetRecentBlocks lists the last blocks of the chain.
func (h *Handler) GetRecentBlocks(c *gin.Context) {
	limit := queryInt(c.Query("limit"), 20, 1, 100)
	blocks, err := h.Blocks.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get blocks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}
