package bot

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"hardmine/internal/domain"
	"hardmine/internal/logger"
	"hardmine/internal/repository"
	"hardmine/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/shopspring/decimal"
)

// Sender is the part of *tgbotapi.BotAPI the bot uses to answer.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Mining is the scheduler surface exposed to admins.
type Mining interface {
	Health() service.MiningHealth
	Interval() time.Duration
	BlockReward() int64
	Pause()
	Resume()
	Paused() bool
	MineNow(ctx context.Context) (*service.BlockMined, error)
}

// Admin is the admin service surface used by commands.
type Admin interface {
	GetStats(ctx context.Context, health *service.MiningHealth) (*service.Stats, error)
	GetUserInfo(ctx context.Context, identifier string) (*service.UserInfo, error)
	GrantCS(ctx context.Context, adminTgID int64, identifier string, amount int64) (*domain.User, decimal.Decimal, error)
	GetAllUserTgIDs(ctx context.Context) ([]int64, error)
	TopReferrers(ctx context.Context, limit int) ([]repository.ReferrerCount, error)
}

// AdminBot handles admin commands via Telegram
type AdminBot struct {
	api      *tgbotapi.BotAPI
	sender   Sender
	admin    Admin
	mining   Mining
	audit    *service.AuditService
	adminIDs []int64 // Telegram user IDs who can use admin commands
	stopCh   chan struct{}
	wg       sync.WaitGroup
	log      *slog.Logger

	broadcastPending *xsync.Map[int64, bool] // admins waiting to enter broadcast message
	broadcastRate    time.Duration
}

// NewAdminBot creates a new admin bot
func NewAdminBot(token string, admin Admin, mining Mining, audit *service.AuditService, adminIDs []int64) (*AdminBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := newAdminBot(api, admin, mining, audit, adminIDs)
	b.api = api
	b.log.Info("admin bot authorized", "username", api.Self.UserName)
	return b, nil
}

func newAdminBot(sender Sender, admin Admin, mining Mining, audit *service.AuditService, adminIDs []int64) *AdminBot {
	return &AdminBot{
		sender:           sender,
		admin:            admin,
		mining:           mining,
		audit:            audit,
		adminIDs:         adminIDs,
		stopCh:           make(chan struct{}),
		log:              logger.With("component", "admin_bot"),
		broadcastPending: xsync.NewMap[int64, bool](),
		broadcastRate:    50 * time.Millisecond,
	}
}

// Start starts listening for commands
func (b *AdminBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(update.Message)
		}
	}
}

func (b *AdminBot) dispatch(msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil || !b.isAdmin(msg.From.ID) {
		return
	}

	// admin is in broadcast mode (waiting for message)
	if pending, _ := b.broadcastPending.Load(msg.From.ID); pending && (!msg.IsCommand() || msg.Command() == "cancel") {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.executeBroadcast(msg)
		}()
		return
	}

	if !msg.IsCommand() {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.handleCommand(msg)
	}()
}

// Stop gracefully stops the bot
func (b *AdminBot) Stop() {
	b.log.Info("stopping admin bot...")
	close(b.stopCh)
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}

	// Wait for pending handlers with timeout
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("admin bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("admin bot shutdown timeout, some handlers may not have completed")
	}
}

// isAdmin checks if user is an admin
func (b *AdminBot) isAdmin(userID int64) bool {
	return slices.Contains(b.adminIDs, userID)
}

// handleCommand processes admin commands
func (b *AdminBot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	response := b.respond(ctx, msg)
	b.reply(msg.Chat.ID, msg.MessageID, response)
}

func (b *AdminBot) reply(chatID int64, replyTo int, text string) {
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = "HTML"
	reply.ReplyToMessageID = replyTo

	if _, err := b.sender.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

// SendNotification sends a notification to a specific user
func (b *AdminBot) SendNotification(tgID int64, message string) error {
	msg := tgbotapi.NewMessage(tgID, message)
	msg.ParseMode = "HTML"
	_, err := b.sender.Send(msg)
	return err
}

// NotifyAdmins sends text to every configured admin.
func (b *AdminBot) NotifyAdmins(text string) {
	for _, id := range b.adminIDs {
		if err := b.SendNotification(id, text); err != nil {
			b.log.Warn("failed to notify admin", "tg_id", id, "error", err)
		}
	}
}
