package repository

import (
	"context"
	"errors"

	"hardmine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrAlreadyReferred = errors.New("user already referred")

type ReferralStats struct {
	TotalReferrals int             `json:"total_referrals"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
}

type ReferralRepository struct {
	db *pgxpool.Pool
}

func NewReferralRepository(db *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// CreateWithTx records the referrer/referee pair and sets users.referred_by.
// A referee can be referred only once.
func (r *ReferralRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, ref *domain.Referral) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO referrals (referrer_id, referee_id, bonus_earned)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (referee_id) DO NOTHING
		 RETURNING id, created_at`,
		ref.ReferrerID, ref.RefereeID, ref.BonusEarned,
	).Scan(&ref.ID, &ref.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAlreadyReferred
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET referred_by = $1 WHERE id = $2 AND referred_by IS NULL`,
		ref.ReferrerID, ref.RefereeID,
	)
	return err
}

// GetReferralsByUser returns all referrals made by a user
func (r *ReferralRepository) GetReferralsByUser(ctx context.Context, userID int64, limit int) ([]domain.Referral, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, referrer_id, referee_id, bonus_earned, created_at
		 FROM referrals
		 WHERE referrer_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var referrals []domain.Referral
	for rows.Next() {
		var ref domain.Referral
		if err := rows.Scan(&ref.ID, &ref.ReferrerID, &ref.RefereeID, &ref.BonusEarned, &ref.CreatedAt); err != nil {
			return nil, err
		}
		referrals = append(referrals, ref)
	}
	return referrals, rows.Err()
}

// GetReferralStats returns referral statistics for a user
func (r *ReferralRepository) GetReferralStats(ctx context.Context, userID int64) (*ReferralStats, error) {
	stats := &ReferralStats{}
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(bonus_earned), 0) FROM referrals WHERE referrer_id = $1`,
		userID,
	).Scan(&stats.TotalReferrals, &stats.TotalEarned)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

type ReferrerCount struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	Count     int    `json:"count"`
}

// GetTopReferrers returns users with the most referrals (for admin)
func (r *ReferralRepository) GetTopReferrers(ctx context.Context, limit int) ([]ReferrerCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, COALESCE(u.username, ''), COALESCE(u.first_name, ''), COUNT(r.id) AS ref_count
		FROM users u
		JOIN referrals r ON r.referrer_id = u.id
		GROUP BY u.id, u.username, u.first_name
		ORDER BY ref_count DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ReferrerCount
	for rows.Next() {
		var rc ReferrerCount
		if err := rows.Scan(&rc.UserID, &rc.Username, &rc.FirstName, &rc.Count); err != nil {
			return nil, err
		}
		results = append(results, rc)
	}
	return results, rows.Err()
}
