package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

const broadcastWorkers = 4

type broadcastResult struct {
	Sent    int64
	Failed  int64
	Blocked int64
}

func (b *AdminBot) handleBroadcastStart(adminID int64) string {
	b.broadcastPending.Store(adminID, true)

	return `📢 <b>Broadcast Mode</b>

Введите сообщение для рассылки ниже.

<b>Поддерживается:</b>
• Текст с HTML разметкой
• Фото с подписью

Отправьте /cancel для отмены.`
}

func (b *AdminBot) executeBroadcast(msg *tgbotapi.Message) {
	adminID := msg.From.ID
	chatID := msg.Chat.ID
	b.broadcastPending.Delete(adminID)

	if msg.Command() == "cancel" {
		b.reply(chatID, 0, "❌ Рассылка отменена")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	b.log.Info("starting broadcast", "admin_id", adminID)

	userIDs, err := b.admin.GetAllUserTgIDs(ctx)
	if err != nil {
		b.log.Error("failed to get user IDs", "error", err)
		b.reply(chatID, 0, fmt.Sprintf("❌ Ошибка: %v", err))
		return
	}
	if len(userIDs) == 0 {
		b.reply(chatID, 0, "❌ Нет пользователей для рассылки")
		return
	}

	b.reply(chatID, 0, fmt.Sprintf("📤 Начинаю рассылку %d пользователям...", len(userIDs)))

	res := b.broadcast(ctx, userIDs, msg)
	b.log.Info("broadcast complete", "sent", res.Sent, "failed", res.Failed, "blocked", res.Blocked)

	b.reply(chatID, 0, fmt.Sprintf(`✅ <b>Рассылка завершена</b>

📨 Отправлено: %d
❌ Не доставлено: %d
🚫 Заблокировали бота: %d`, res.Sent, res.Failed-res.Blocked, res.Blocked))
}

// broadcast copies msg to every user through a small worker pool. Sends are
// throttled globally to stay under the Telegram bulk limit.
func (b *AdminBot) broadcast(ctx context.Context, userIDs []int64, msg *tgbotapi.Message) broadcastResult {
	limiter := rate.NewLimiter(rate.Every(b.broadcastRate), 1)
	pool := pond.NewPool(broadcastWorkers, pond.WithQueueSize(len(userIDs)))
	defer pool.StopAndWait()

	var res broadcastResult
	group := pool.NewGroupContext(ctx)
	for _, tgID := range userIDs {
		group.Submit(func() {
			if err := limiter.Wait(group.Context()); err != nil {
				atomic.AddInt64(&res.Failed, 1)
				return
			}
			if _, err := b.sender.Send(broadcastCopy(tgID, msg)); err != nil {
				if strings.Contains(err.Error(), "blocked") || strings.Contains(err.Error(), "deactivated") {
					atomic.AddInt64(&res.Blocked, 1)
				} else {
					b.log.Error("failed to send broadcast", "tg_id", tgID, "error", err)
				}
				atomic.AddInt64(&res.Failed, 1)
				return
			}
			atomic.AddInt64(&res.Sent, 1)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		b.log.Warn("broadcast interrupted", "error", err)
	}
	return res
}

func broadcastCopy(tgID int64, msg *tgbotapi.Message) tgbotapi.Chattable {
	if len(msg.Photo) > 0 {
		// largest size is last
		photo := msg.Photo[len(msg.Photo)-1]
		photoMsg := tgbotapi.NewPhoto(tgID, tgbotapi.FileID(photo.FileID))
		photoMsg.Caption = msg.Caption
		photoMsg.ParseMode = "HTML"
		return photoMsg
	}
	textMsg := tgbotapi.NewMessage(tgID, msg.Text)
	textMsg.ParseMode = "HTML"
	textMsg.DisableWebPagePreview = true
	return textMsg
}
