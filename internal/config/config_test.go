package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":           "postgres://localhost/hardmine",
		"JWT_SECRET":             "secret",
		"BOT_TOKEN":              "token",
		"BLOCK_INTERVAL_SECONDS": "300",
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(env(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 300*time.Second, cfg.Mining.BlockInterval)
	assert.Equal(t, int64(100000), cfg.Mining.BlockReward)
	assert.Equal(t, 2*time.Second, cfg.Mining.RetryBackoff)
	assert.Equal(t, 24*time.Hour, cfg.Mining.PowerUpRetention)
	assert.Equal(t, int64(500), cfg.Mining.ReferralBonusCS)
	assert.Equal(t, "payments:confirmed", cfg.PaymentsStream)
	assert.Equal(t, 60, cfg.APIRateLimit)
	assert.Equal(t, time.Minute, cfg.ActionRateWindow)
}

func TestParseRequiresBlockInterval(t *testing.T) {
	e := baseEnv()
	delete(e, "BLOCK_INTERVAL_SECONDS")
	_, err := Parse(env(e))
	require.Error(t, err)

	for _, bad := range []string{"0", "-5", "five"} {
		e["BLOCK_INTERVAL_SECONDS"] = bad
		_, err := Parse(env(e))
		assert.Error(t, err, bad)
	}
}

func TestParseRejectsBadReward(t *testing.T) {
	e := baseEnv()
	e["BLOCK_REWARD"] = "0"
	_, err := Parse(env(e))
	assert.Error(t, err)

	e["BLOCK_REWARD"] = "2500"
	cfg, err := Parse(env(e))
	require.NoError(t, err)
	assert.Equal(t, int64(2500), cfg.Mining.BlockReward)
}

func TestParseAdminIDs(t *testing.T) {
	e := baseEnv()
	e["ADMIN_TELEGRAM_IDS"] = "11, 22,,33"
	cfg, err := Parse(env(e))
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 22, 33}, cfg.AdminTelegramIDs)

	e["ADMIN_TELEGRAM_IDS"] = "11,abc"
	_, err = Parse(env(e))
	assert.Error(t, err)
}

func TestParseMissingSecrets(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "JWT_SECRET", "BOT_TOKEN"} {
		e := baseEnv()
		delete(e, key)
		_, err := Parse(env(e))
		assert.Error(t, err, key)
	}
}
