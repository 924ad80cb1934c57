package repository

import (
	"context"
	"time"

	"hardmine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PowerUpRepository struct {
	db *pgxpool.Pool
}

func NewPowerUpRepository(db *pgxpool.Pool) *PowerUpRepository {
	return &PowerUpRepository{db: db}
}

// Create inserts an activated power-up. ex may be the pool or a transaction.
func (r *PowerUpRepository) Create(ctx context.Context, ex Executor, p *domain.PowerUp) error {
	if ex == nil {
		ex = r.db
	}
	return ex.QueryRow(ctx, `
		INSERT INTO active_powerups (user_id, kind, boost_pct, activated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		p.UserID, p.Kind, p.BoostPct, p.ActivatedAt, p.ExpiresAt,
	).Scan(&p.ID)
}

// ListActiveByUser returns the user's power-ups active at instant at.
func (r *PowerUpRepository) ListActiveByUser(ctx context.Context, userID int64, at time.Time) ([]domain.PowerUp, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, kind, boost_pct, activated_at, expires_at
		FROM active_powerups
		WHERE user_id = $1 AND activated_at <= $2 AND expires_at > $2
		ORDER BY activated_at, id`, userID, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPowerUps(rows)
}

// ListByUserUntil returns power-ups that are active at from or later.
func (r *PowerUpRepository) ListByUserUntil(ctx context.Context, userID int64, from time.Time) ([]domain.PowerUp, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, kind, boost_pct, activated_at, expires_at
		FROM active_powerups
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY activated_at, id`, userID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPowerUps(rows)
}

// ListActive returns every power-up active at instant at.
func (r *PowerUpRepository) ListActive(ctx context.Context, at time.Time) ([]domain.PowerUp, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, kind, boost_pct, activated_at, expires_at
		FROM active_powerups
		WHERE activated_at <= $1 AND expires_at > $1
		ORDER BY user_id, id`, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPowerUps(rows)
}

// DeleteExpired removes rows that expired before the cutoff.
func (r *PowerUpRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM active_powerups WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanPowerUps(rows pgx.Rows) ([]domain.PowerUp, error) {
	var out []domain.PowerUp
	for rows.Next() {
		var p domain.PowerUp
		if err := rows.Scan(&p.ID, &p.UserID, &p.Kind, &p.BoostPct, &p.ActivatedAt, &p.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
