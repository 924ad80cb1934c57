package telegram

import (
	"encoding/json"
	"net/url"
	"strings"
)

// referral deep links look like t.me/<bot>/<app>?startapp=ref_<code>
const referralStartPrefix = "ref_"

type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

func ParseUser(values url.Values) (*WebAppUser, error) {
	var user WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, ErrMalformedInitData
	}
	return &user, nil
}

// ReferralCode extracts the referral code from start_param, if any.
func ReferralCode(values url.Values) string {
	sp := values.Get("start_param")
	if !strings.HasPrefix(sp, referralStartPrefix) {
		return ""
	}
	return strings.TrimPrefix(sp, referralStartPrefix)
}

func ReferralLink(botUsername, appShortName, code string) string {
	if appShortName != "" {
		return "https://t.me/" + botUsername + "/" + appShortName + "?startapp=" + referralStartPrefix + code
	}
	return "https://t.me/" + botUsername + "?start=" + referralStartPrefix + code
}
