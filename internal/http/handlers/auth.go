package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"hardmine/internal/logger"
	"hardmine/internal/service"
	"hardmine/internal/telegram"

	"github.com/gin-gonic/gin"
)

type AuthRequest struct {
	InitData string `json:"init_data"`
}

func (h *Handler) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if req.InitData == "" || len(req.InitData) > 4096 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid init_data"})
		return
	}

	var values url.Values
	var err error
	if h.DevMode {
		// DEV MODE: подпись не проверяем
		values, err = url.ParseQuery(req.InitData)
	} else {
		values, err = telegram.Validate(req.InitData, h.BotToken, h.clock())
	}
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, telegram.ErrMalformedInitData) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": "invalid or stale telegram data"})
		return
	}

	tgUser, err := telegram.ParseUser(values)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user json"})
		return
	}

	ctx := c.Request.Context()
	user, created, err := h.Users.Login(ctx, tgUser, telegram.ReferralCode(values))
	if err != nil {
		logger.WithContext(ctx).Error("login failed", "tg_id", tgUser.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	token, err := service.GenerateJWT(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	h.Audit.LogLogin(ctx, user.ID, c.ClientIP(), c.Request.UserAgent())

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"created": created,
		"user":    user,
	})
}
