package mining

import (
	"time"

	"hardmine/internal/domain"

	"github.com/shopspring/decimal"
)

// PowerUpOffer is a purchasable power-up.
type PowerUpOffer struct {
	Code     string             `json:"code"`
	Kind     domain.PowerUpKind `json:"kind"`
	BoostPct decimal.Decimal    `json:"boost_pct"`
	Duration time.Duration      `json:"-"`
	Minutes  int                `json:"duration_minutes"`
	Price    decimal.Decimal    `json:"price"`
	Currency string             `json:"currency"`
}

var powerUpOffers = []PowerUpOffer{
	offer("turbo_30", domain.PowerUpHashrate, 30, 60, 5000, domain.CurrencyCS),
	offer("turbo_50", domain.PowerUpHashrate, 50, 60, 100, domain.CurrencyCHST),
	offer("lucky_20", domain.PowerUpLuck, 20, 30, 80, domain.CurrencyCHST),
	offer("lucky_50", domain.PowerUpLuck, 50, 30, 180, domain.CurrencyCHST),
}

func offer(code string, kind domain.PowerUpKind, pct int64, minutes int, price int64, currency string) PowerUpOffer {
	return PowerUpOffer{
		Code:     code,
		Kind:     kind,
		BoostPct: decimal.NewFromInt(pct),
		Duration: time.Duration(minutes) * time.Minute,
		Minutes:  minutes,
		Price:    decimal.NewFromInt(price),
		Currency: currency,
	}
}

// PowerUpOffers returns the catalog in display order.
func PowerUpOffers() []PowerUpOffer {
	out := make([]PowerUpOffer, len(powerUpOffers))
	copy(out, powerUpOffers)
	return out
}

func FindOffer(code string) (PowerUpOffer, bool) {
	for _, o := range powerUpOffers {
		if o.Code == code {
			return o, true
		}
	}
	return PowerUpOffer{}, false
}
