package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"hardmine/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort          string
	DatabaseURL      string
	BotToken         string
	BotUsername      string
	WebAppShortName  string
	JWTSecret        string
	AdminTelegramIDs []int64 // tg id админов бота
	AdminBotEnabled  bool
	AllowedOrigin    string
	DevMode          bool

	LogLevel string
	LogJSON  bool

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	BlockEventsChannel string
	PaymentsStream     string

	Mining MiningConfig

	// HTTP limits
	APIRateLimit     int
	APIRateWindow    time.Duration
	ActionRateLimit  int
	ActionRateWindow time.Duration
}

// MiningConfig holds the block production parameters.
type MiningConfig struct {
	BlockInterval    time.Duration
	BlockReward      int64
	RetryBackoff     time.Duration
	PurgeSchedule    string
	PowerUpRetention time.Duration
	ReferralBonusCS  int64
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse(os.Getenv)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// Parse builds a Config from the given lookup function.
func Parse(getenv func(string) string) (*Config, error) {
	dbURL := getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	jwtSecret := getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	botToken := getenv("BOT_TOKEN")
	if botToken == "" {
		return nil, errors.New("BOT_TOKEN is not set")
	}

	botUsername := getenv("BOT_USERNAME")
	if botUsername == "" {
		botUsername = "HardMineBot" // если не установлено в env
	}

	port := getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// ЧЕРЕЗ ЗАПЯТУЮ В ENV
	var adminIDs []int64
	if raw := getenv("ADMIN_TELEGRAM_IDS"); raw != "" {
		for _, idStr := range strings.Split(raw, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("ADMIN_TELEGRAM_IDS: bad id %q", idStr)
			}
			adminIDs = append(adminIDs, id)
		}
	}

	mining, err := parseMining(getenv)
	if err != nil {
		return nil, err
	}

	redisDB, err := intOr(getenv, "REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppPort:            port,
		DatabaseURL:        dbURL,
		BotToken:           botToken,
		BotUsername:        botUsername,
		WebAppShortName:    getenv("WEBAPP_SHORT_NAME"),
		JWTSecret:          jwtSecret,
		AdminTelegramIDs:   adminIDs,
		AdminBotEnabled:    getenv("ADMIN_BOT_ENABLED") == "true",
		AllowedOrigin:      getenv("ALLOWED_ORIGIN"),
		DevMode:            getenv("DEV_MODE") == "true",
		LogLevel:           stringOr(getenv, "LOG_LEVEL", "info"),
		LogJSON:            getenv("LOG_JSON") == "true",
		RedisAddr:          getenv("REDIS_ADDR"),
		RedisPassword:      getenv("REDIS_PASSWORD"),
		RedisDB:            redisDB,
		BlockEventsChannel: stringOr(getenv, "BLOCK_EVENTS_CHANNEL", "hardmine:blocks"),
		PaymentsStream:     stringOr(getenv, "PAYMENTS_STREAM", "payments:confirmed"),
		Mining:             mining,
	}

	if cfg.APIRateLimit, err = positiveIntOr(getenv, "API_RATE_LIMIT", 60); err != nil {
		return nil, err
	}
	window, err := positiveIntOr(getenv, "API_RATE_WINDOW_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.APIRateWindow = time.Duration(window) * time.Second

	if cfg.ActionRateLimit, err = positiveIntOr(getenv, "ACTION_RATE_LIMIT", 30); err != nil {
		return nil, err
	}
	window, err = positiveIntOr(getenv, "ACTION_RATE_WINDOW_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.ActionRateWindow = time.Duration(window) * time.Second

	return cfg, nil
}

func parseMining(getenv func(string) string) (MiningConfig, error) {
	var m MiningConfig

	// интервал блока обязателен, без него майнинг не стартует
	raw := getenv("BLOCK_INTERVAL_SECONDS")
	if raw == "" {
		return m, errors.New("BLOCK_INTERVAL_SECONDS is not set")
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return m, fmt.Errorf("BLOCK_INTERVAL_SECONDS must be a positive integer, got %q", raw)
	}
	m.BlockInterval = time.Duration(secs) * time.Second

	reward := int64(100000)
	if v := getenv("BLOCK_REWARD"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return m, fmt.Errorf("BLOCK_REWARD must be a positive integer, got %q", v)
		}
		reward = n
	}
	m.BlockReward = reward

	backoffMS, err := positiveIntOr(getenv, "BLOCK_RETRY_BACKOFF_MS", 2000)
	if err != nil {
		return m, err
	}
	m.RetryBackoff = time.Duration(backoffMS) * time.Millisecond

	m.PurgeSchedule = stringOr(getenv, "POWERUP_PURGE_CRON", "0 */30 * * * *")

	retention, err := positiveIntOr(getenv, "POWERUP_RETENTION_HOURS", 24)
	if err != nil {
		return m, err
	}
	m.PowerUpRetention = time.Duration(retention) * time.Hour

	bonus, err := intOr(getenv, "REFERRAL_BONUS_CS", 500)
	if err != nil {
		return m, err
	}
	if bonus < 0 {
		return m, errors.New("REFERRAL_BONUS_CS must not be negative")
	}
	m.ReferralBonusCS = int64(bonus)

	return m, nil
}

func stringOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func intOr(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func positiveIntOr(getenv func(string) string, key string, def int) (int, error) {
	n, err := intOr(getenv, key, def)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}
