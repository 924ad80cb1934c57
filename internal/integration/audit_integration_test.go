package integration

import (
	"context"
	"strconv"
	"testing"

	"hardmine/internal/domain"
	"hardmine/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantCSWritesAuditInSameTx(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	balance := service.NewBalanceService(db)
	audit := service.NewAuditService(db)
	admin := service.NewAdminService(db, balance, audit)
	erin := newUser(t, db, "erin")

	u, bal, err := admin.GrantCS(ctx, 777, strconv.FormatInt(erin.TgID, 10), 250)
	require.NoError(t, err)
	assert.Equal(t, erin.ID, u.ID)
	assert.True(t, bal.Equal(decimal.NewFromInt(250)), bal.String())

	logs, err := audit.GetUserAuditLogs(ctx, erin.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.AuditActionAdminGrant, logs[0].Action)
	assert.Equal(t, domain.AuditCategoryAdmin, logs[0].Category)
	assert.EqualValues(t, 777, logs[0].Details["admin_id"])

	byCategory, err := audit.GetLogsByCategory(ctx, domain.AuditCategoryAdmin, 50)
	require.NoError(t, err)
	var found bool
	for _, l := range byCategory {
		if l.ID == logs[0].ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGrantCSUnknownUserWritesNothing(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	audit := service.NewAuditService(db)
	admin := service.NewAdminService(db, service.NewBalanceService(db), audit)

	_, _, err := admin.GrantCS(ctx, 777, "#999999999999", 250)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}
