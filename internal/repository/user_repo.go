package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"hardmine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const userColumns = `id, tg_id, COALESCE(username, ''), COALESCE(first_name, ''), cs_balance, chst_balance,
	total_hashrate, referral_code, referred_by, is_admin, created_at`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID,
		&u.TgID,
		&u.Username,
		&u.FirstName,
		&u.CSBalance,
		&u.CHSTBalance,
		&u.TotalHashrate,
		&u.ReferralCode,
		&u.ReferredBy,
		&u.IsAdmin,
		&u.CreatedAt,
	); err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &u, nil
}

func (r *UserRepository) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE tg_id = $1`, tgID))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code))
}

// GenerateReferralCode returns a random 12-char hex code
func GenerateReferralCode() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Create inserts a user with a fresh referral code, retrying on code collision.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	var err error
	for i := 0; i < 5; i++ {
		u.ReferralCode = GenerateReferralCode()
		err = r.db.QueryRow(ctx,
			`INSERT INTO users (tg_id, username, first_name, referral_code, is_admin)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, cs_balance, chst_balance, total_hashrate, created_at`,
			u.TgID, u.Username, u.FirstName, u.ReferralCode, u.IsAdmin,
		).Scan(&u.ID, &u.CSBalance, &u.CHSTBalance, &u.TotalHashrate, &u.CreatedAt)
		if !isUniqueViolation(err, "users_referral_code_key") {
			return err
		}
	}
	return err
}

// UpdateProfile refreshes the Telegram names and admin flag on login.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *domain.User) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET username = $1, first_name = $2, is_admin = $3 WHERE id = $4`,
		u.Username, u.FirstName, u.IsAdmin, u.ID,
	)
	return err
}

// LockWithTx locks the user row for the rest of the transaction.
func (r *UserRepository) LockWithTx(ctx context.Context, tx pgx.Tx, userID int64) (*domain.User, error) {
	return scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID))
}

// AdjustBalanceWithTx adds delta to the given currency balance and returns the
// new balance. A resulting negative balance fails with ErrInsufficientFunds.
func (r *UserRepository) AdjustBalanceWithTx(ctx context.Context, tx pgx.Tx, userID int64, currency string, delta decimal.Decimal) (decimal.Decimal, error) {
	col, err := balanceColumn(currency)
	if err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err = tx.QueryRow(ctx,
		fmt.Sprintf(`UPDATE users SET %[1]s = %[1]s + $1 WHERE id = $2 AND %[1]s + $1 >= 0 RETURNING %[1]s`, col),
		delta, userID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return decimal.Zero, err
		}
		if !exists {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, ErrInsufficientFunds
	}
	return balance, err
}

// RecomputeHashrateWithTx refreshes the cached total hashrate from owned equipment.
func (r *UserRepository) RecomputeHashrateWithTx(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	var total int64
	err := tx.QueryRow(ctx,
		`UPDATE users SET total_hashrate = COALESCE(
			(SELECT SUM(current_hashrate * quantity) FROM owned_equipment WHERE user_id = $1), 0)
		 WHERE id = $1
		 RETURNING total_hashrate`,
		userID,
	).Scan(&total)
	return total, notFound(err, ErrUserNotFound)
}

// TopMinerEntry represents a user in the hashrate leaderboard
type TopMinerEntry struct {
	Rank          int    `json:"rank"`
	UserID        int64  `json:"user_id"`
	Username      string `json:"username"`
	FirstName     string `json:"first_name"`
	TotalHashrate int64  `json:"total_hashrate"`
	TotalMined    int64  `json:"total_mined"`
}

// GetTopByHashrate returns users ordered by cached hashrate desc
func (r *UserRepository) GetTopByHashrate(ctx context.Context, limit int) ([]TopMinerEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, COALESCE(u.username, ''), COALESCE(u.first_name, ''), u.total_hashrate,
		       COALESCE(m.mined, 0)
		FROM users u
		LEFT JOIN (
			SELECT user_id, SUM(reward) AS mined FROM block_rewards GROUP BY user_id
		) m ON m.user_id = u.id
		WHERE u.total_hashrate > 0
		ORDER BY u.total_hashrate DESC, u.id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []TopMinerEntry
	rank := 1
	for rows.Next() {
		e := TopMinerEntry{Rank: rank}
		if err := rows.Scan(&e.UserID, &e.Username, &e.FirstName, &e.TotalHashrate, &e.TotalMined); err != nil {
			return nil, err
		}
		res = append(res, e)
		rank++
	}
	return res, rows.Err()
}

// GetHashrateRank returns the user's position in the hashrate leaderboard
func (r *UserRepository) GetHashrateRank(ctx context.Context, userID int64) (int, error) {
	var rank int
	err := r.db.QueryRow(ctx, `
		SELECT rank FROM (
			SELECT id, RANK() OVER (ORDER BY total_hashrate DESC) AS rank FROM users
		) ranked WHERE id = $1`, userID).Scan(&rank)
	return rank, notFound(err, ErrUserNotFound)
}

// ListTgIDs returns telegram ids of all users, for broadcasts.
func (r *UserRepository) ListTgIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT tg_id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type UserTotals struct {
	Users       int64           `json:"users"`
	Miners      int64           `json:"miners"`
	TotalCS     decimal.Decimal `json:"total_cs"`
	TotalCHST   decimal.Decimal `json:"total_chst"`
	NewToday    int64           `json:"new_today"`
	MaxHashrate int64           `json:"max_hashrate"`
}

// GetTotals aggregates user statistics for the admin surface.
func (r *UserRepository) GetTotals(ctx context.Context) (*UserTotals, error) {
	var t UserTotals
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE total_hashrate > 0),
		       COALESCE(SUM(cs_balance), 0),
		       COALESCE(SUM(chst_balance), 0),
		       COUNT(*) FILTER (WHERE created_at >= CURRENT_DATE),
		       COALESCE(MAX(total_hashrate), 0)
		FROM users`).Scan(&t.Users, &t.Miners, &t.TotalCS, &t.TotalCHST, &t.NewToday, &t.MaxHashrate)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}
