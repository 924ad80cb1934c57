package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hardmine/internal/domain"
	"hardmine/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *AdminBot) respond(ctx context.Context, msg *tgbotapi.Message) string {
	switch msg.Command() {
	case "start", "help":
		return helpMessage
	case "mining":
		return b.handleMining()
	case "pause":
		return b.handlePause(ctx, msg.From.ID)
	case "resume":
		return b.handleResume(ctx, msg.From.ID)
	case "mine":
		return b.handleMine(ctx, msg.From.ID)
	case "stats":
		return b.handleStats(ctx)
	case "user":
		return b.handleUser(ctx, msg.CommandArguments())
	case "addcs":
		return b.handleAddCS(ctx, msg.From.ID, msg.CommandArguments())
	case "referrals":
		return b.handleReferrals(ctx, msg.CommandArguments())
	case "broadcast":
		return b.handleBroadcastStart(msg.From.ID)
	default:
		return "❌ Неизвестная команда. Используйте /help для списка команд."
	}
}

const helpMessage = `<b>🤖 Команды администратора</b>

<b>⛏ Майнинг:</b>
/mining - Состояние планировщика блоков
/pause - Остановить выпуск блоков
/resume - Возобновить выпуск блоков
/mine - Выпустить блок вне расписания

<b>📊 Статистика:</b>
/stats - Статистика платформы
/referrals [лимит] - Топ по рефералам

<b>👤 Пользователи:</b>
/user &lt;tg_id|#id&gt; - Информация о пользователе
/addcs &lt;tg_id|#id&gt; &lt;сумма&gt; - Начислить CS

<b>📢 Рассылка:</b>
/broadcast - Отправить сообщение всем (фото поддерживается)`

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func (b *AdminBot) handleMining() string {
	h := b.mining.Health()
	icon := "🟢"
	if h.Degraded() {
		icon = "🔴"
	} else if h.Paused {
		icon = "⏸"
	}
	next := h.NextBlockAt
	return fmt.Sprintf(`<b>%s Майнинг: %s</b>

• Состояние: %s
• Пауза: %t
• Последний блок: #%d
• Последний успешный: %s
• Ошибок подряд: %d
• Следующий блок: %s
• Интервал: %s
• Награда за блок: %d CS`,
		icon, h.Status, h.State, h.Paused, h.LastBlockNumber, formatTime(h.LastSuccessfulMine),
		h.ConsecutiveFailures, formatTime(&next), b.mining.Interval(), b.mining.BlockReward())
}

func (b *AdminBot) handlePause(ctx context.Context, adminTgID int64) string {
	if b.mining.Paused() {
		return "⏸ Майнинг уже на паузе"
	}
	b.mining.Pause()
	b.audit.LogAdminAction(ctx, adminTgID, domain.AuditActionMiningPause, 0, map[string]interface{}{"source": "bot"})
	return "⏸ Майнинг остановлен. Слоты будут пропускаться до /resume."
}

func (b *AdminBot) handleResume(ctx context.Context, adminTgID int64) string {
	if !b.mining.Paused() {
		return "▶️ Майнинг уже идёт"
	}
	b.mining.Resume()
	b.audit.LogAdminAction(ctx, adminTgID, domain.AuditActionMiningResume, 0, map[string]interface{}{"source": "bot"})
	return "▶️ Майнинг возобновлён"
}

func (b *AdminBot) handleMine(ctx context.Context, adminTgID int64) string {
	ev, err := b.mining.MineNow(ctx)
	switch {
	case errors.Is(err, service.ErrMiningPaused):
		return "⏸ Майнинг на паузе, сначала /resume"
	case errors.Is(err, service.ErrTickInProgress):
		return "⏳ Блок уже выпускается"
	case err != nil:
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}
	b.audit.LogAdminAction(ctx, adminTgID, domain.AuditActionMiningForce, 0, map[string]interface{}{
		"source": "bot",
		"block":  ev.Block.Number,
	})
	return fmt.Sprintf(`✅ <b>Блок #%d</b>

• Майнеров: %d
• Хешрейт сети: %d
• Распределено: %d / %d CS`,
		ev.Block.Number, ev.Block.ActiveMiners, ev.Block.TotalHashrate, ev.Block.Distributed, ev.Block.Reward)
}

func (b *AdminBot) handleStats(ctx context.Context) string {
	health := b.mining.Health()
	stats, err := b.admin.GetStats(ctx, &health)
	if err != nil {
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}

	return fmt.Sprintf(`<b>📊 Статистика платформы</b>

<b>👥 Пользователи:</b>
• Всего: %d
• Майнеров: %d
• Новых сегодня: %d
• Макс. хешрейт: %d

<b>💰 Экономика:</b>
• Всего CS: %s
• Всего CHST: %s

<b>⛓ Блоки:</b>
• Выпущено: %d
• Распределено CS: %d
• Майнинг: %s`,
		stats.Users.Users,
		stats.Users.Miners,
		stats.Users.NewToday,
		stats.Users.MaxHashrate,
		stats.Users.TotalCS.StringFixed(2),
		stats.Users.TotalCHST.StringFixed(2),
		stats.Chain.Blocks,
		stats.Chain.TotalMinted,
		health.Status,
	)
}

func (b *AdminBot) handleUser(ctx context.Context, args string) string {
	args = strings.TrimSpace(args)
	if args == "" {
		return "❌ Использование: /user <tg_id|#id>"
	}

	info, err := b.admin.GetUserInfo(ctx, args)
	if err != nil {
		return fmt.Sprintf("❌ Пользователь не найден: %v", err)
	}

	return fmt.Sprintf(`<b>👤 Пользователь #%d</b>

• TG ID: <code>%d</code>
• Username: @%s
• Имя: %s
• CS: %s
• CHST: %s
• Хешрейт: %d
• Блоков с наградой: %d
• Добыто: %d CS
• Рефералов: %d
• Админ: %t
• Регистрация: %s`,
		info.ID, info.TgID, info.Username, info.FirstName,
		info.CSBalance.StringFixed(2), info.CHSTBalance.StringFixed(2),
		info.TotalHashrate, info.Blocks, info.TotalMined, info.Referrals, info.IsAdmin,
		info.CreatedAt.Format("2006-01-02"))
}

func (b *AdminBot) handleAddCS(ctx context.Context, adminTgID int64, args string) string {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return "❌ Использование: /addcs <tg_id|#id> <сумма>"
	}
	amount, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || amount <= 0 {
		return "❌ Сумма должна быть положительным целым числом"
	}

	user, balance, err := b.admin.GrantCS(ctx, adminTgID, parts[0], amount)
	if err != nil {
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}
	return fmt.Sprintf("✅ Начислено %d CS пользователю %d\nНовый баланс: %s CS", amount, user.TgID, balance.StringFixed(2))
}

func (b *AdminBot) handleReferrals(ctx context.Context, args string) string {
	limit := 10
	if n, err := strconv.Atoi(strings.TrimSpace(args)); err == nil && n > 0 && n <= 50 {
		limit = n
	}
	top, err := b.admin.TopReferrers(ctx, limit)
	if err != nil {
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}
	if len(top) == 0 {
		return "Пока нет рефералов"
	}

	var sb strings.Builder
	sb.WriteString("<b>🤝 Топ по рефералам</b>\n\n")
	for i, r := range top {
		name := r.Username
		if name == "" {
			name = r.FirstName
		}
		fmt.Fprintf(&sb, "%d. %s (#%d) - %d\n", i+1, name, r.UserID, r.Count)
	}
	return sb.String()
}
