package integration

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"hardmine/internal/domain"
	"hardmine/internal/migrations"
	"hardmine/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

var tgSeq atomic.Int64

func init() {
	tgSeq.Store(time.Now().UnixNano() % 1_000_000_000 * 100)
}

func openDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "connect db")
	t.Cleanup(db.Close)

	require.NoError(t, migrations.Apply(ctx, db, nil))
	return db
}

func newUser(t *testing.T, db *pgxpool.Pool, name string) *domain.User {
	t.Helper()
	u := &domain.User{TgID: tgSeq.Add(1), Username: name, FirstName: name}
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), u))
	return u
}

func starterRig(t *testing.T, db *pgxpool.Pool) *domain.EquipmentType {
	t.Helper()
	types, err := repository.NewEquipmentRepository(db).ListTypes(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, types, "equipment catalog not seeded")
	return types[0]
}
