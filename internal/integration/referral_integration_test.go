package integration

import (
	"context"
	"testing"

	"hardmine/internal/repository"
	"hardmine/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralApply(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	balance := service.NewBalanceService(db)
	referrals := service.NewReferralService(db, balance, nil, 500, "HardMineBot", "app")
	users := repository.NewUserRepository(db)

	referrer := newUser(t, db, "ref")
	referee := newUser(t, db, "newbie")

	ref, err := referrals.Apply(ctx, referee.ID, referrer.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, referrer.ID, ref.ReferrerID)

	got, err := users.GetByID(ctx, referrer.ID)
	require.NoError(t, err)
	assert.True(t, got.CSBalance.Equal(decimal.NewFromInt(500)), got.CSBalance.String())

	got, err = users.GetByID(ctx, referee.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReferredBy)
	assert.Equal(t, referrer.ID, *got.ReferredBy)

	_, err = referrals.Apply(ctx, referee.ID, referrer.ReferralCode)
	assert.ErrorIs(t, err, service.ErrAlreadyReferred)

	_, err = referrals.Apply(ctx, referrer.ID, referrer.ReferralCode)
	assert.ErrorIs(t, err, service.ErrSelfReferral)

	_, err = referrals.Apply(ctx, referee.ID, "nope-nope")
	assert.ErrorIs(t, err, service.ErrUnknownReferral)
}

func TestPaymentConfirmIdempotent(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	balance := service.NewBalanceService(db)
	payments := service.NewPaymentService(db, balance, nil)
	users := repository.NewUserRepository(db)
	payer := newUser(t, db, "payer")

	ev := service.PaymentConfirmed{
		TxHash:   "tx-" + payer.ReferralCode,
		UserID:   payer.ID,
		Currency: "chst",
		Amount:   decimal.RequireFromString("12.5"),
	}
	applied, err := payments.Confirm(ctx, ev)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = payments.Confirm(ctx, ev)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := users.GetByID(ctx, payer.ID)
	require.NoError(t, err)
	assert.True(t, got.CHSTBalance.Equal(decimal.RequireFromString("12.5")), got.CHSTBalance.String())
}
