// Package telegram validates Telegram WebApp init data.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	maxInitDataAge = time.Hour
	maxClockSkew   = 5 * time.Minute
)

var (
	ErrMalformedInitData = errors.New("malformed init data")
	ErrBadSignature      = errors.New("init data signature mismatch")
	ErrStaleInitData     = errors.New("init data expired")
)

// Validate verifies the init data HMAC per the WebApp scheme
// (secret = HMAC_SHA256("WebAppData", bot token)) and checks that auth_date
// is recent to mitigate replay.
func Validate(initData, botToken string, now time.Time) (url.Values, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrMalformedInitData
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrMalformedInitData
	}
	values.Del("hash")

	provided, err := hex.DecodeString(hash)
	if err != nil {
		return nil, ErrMalformedInitData
	}
	if !hmac.Equal(Sign(values, botToken), provided) {
		return nil, ErrBadSignature
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrMalformedInitData
	}
	at := time.Unix(authDate, 0)
	if now.Sub(at) > maxInitDataAge || at.Sub(now) > maxClockSkew {
		return nil, ErrStaleInitData
	}

	return values, nil
}

// Sign computes the init data hash over the sorted key=value lines.
func Sign(values url.Values, botToken string) []byte {
	lines := make([]string, 0, len(values))
	for k, v := range values {
		if k == "hash" {
			continue
		}
		lines = append(lines, k+"="+strings.Join(v, ""))
	}
	sort.Strings(lines)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	h := hmac.New(sha256.New, secret.Sum(nil))
	h.Write([]byte(strings.Join(lines, "\n")))
	return h.Sum(nil)
}
