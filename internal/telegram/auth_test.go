package telegram

import (
	"encoding/hex"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "test-bot-token"

func buildInitData(t *testing.T, fields map[string]string) string {
	t.Helper()
	vals := url.Values{}
	for k, v := range fields {
		vals.Set(k, v)
	}
	vals.Set("hash", hex.EncodeToString(Sign(vals, testBotToken)))
	return vals.Encode()
}

func TestValidateAcceptsSignedData(t *testing.T) {
	now := time.Now()
	initData := buildInitData(t, map[string]string{
		"auth_date":   strconv.FormatInt(now.Unix(), 10),
		"user":        `{"id":1,"username":"u","first_name":"F"}`,
		"start_param": "ref_abc123",
	})

	vals, err := Validate(initData, testBotToken, now)
	require.NoError(t, err)

	user, err := ParseUser(vals)
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "u", user.Username)
	assert.Equal(t, "abc123", ReferralCode(vals))
}

func TestValidateRejectsTampering(t *testing.T) {
	now := time.Now()
	initData := buildInitData(t, map[string]string{
		"auth_date": strconv.FormatInt(now.Unix(), 10),
		"user":      `{"id":1}`,
	})

	_, err := Validate(initData+"&x=1", testBotToken, now)
	assert.ErrorIs(t, err, ErrBadSignature)

	_, err = Validate(initData, "other-token", now)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestValidateRejectsStaleData(t *testing.T) {
	now := time.Now()
	initData := buildInitData(t, map[string]string{
		"auth_date": strconv.FormatInt(now.Add(-2*time.Hour).Unix(), 10),
		"user":      `{"id":1}`,
	})
	_, err := Validate(initData, testBotToken, now)
	assert.ErrorIs(t, err, ErrStaleInitData)
}

func TestValidateRejectsMissingHash(t *testing.T) {
	_, err := Validate("auth_date=1&user=%7B%7D", testBotToken, time.Now())
	assert.ErrorIs(t, err, ErrMalformedInitData)
}

func TestReferralHelpers(t *testing.T) {
	assert.Empty(t, ReferralCode(url.Values{"start_param": {"promo"}}))
	assert.Equal(t, "https://t.me/HardMineBot/app?startapp=ref_xyz", ReferralLink("HardMineBot", "app", "xyz"))
	assert.Equal(t, "https://t.me/HardMineBot?start=ref_xyz", ReferralLink("HardMineBot", "", "xyz"))
}
