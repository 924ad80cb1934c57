package repository

import (
	"context"
	"errors"

	"hardmine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrEquipmentNotFound = errors.New("equipment type not found")
	ErrNotOwned          = errors.New("equipment not owned")
)

const equipmentTypeColumns = `id, code, name, tier, category, base_hashrate, base_price, currency, max_owned, sort_order`

type EquipmentRepository struct {
	db *pgxpool.Pool
}

func NewEquipmentRepository(db *pgxpool.Pool) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

func scanEquipmentType(row pgx.Row) (*domain.EquipmentType, error) {
	var e domain.EquipmentType
	if err := row.Scan(&e.ID, &e.Code, &e.Name, &e.Tier, &e.Category, &e.BaseHashrate,
		&e.BasePrice, &e.Currency, &e.MaxOwned, &e.SortOrder); err != nil {
		return nil, notFound(err, ErrEquipmentNotFound)
	}
	return &e, nil
}

// ListTypes returns the catalog ordered for display
func (r *EquipmentRepository) ListTypes(ctx context.Context) ([]*domain.EquipmentType, error) {
	rows, err := r.db.Query(ctx, `SELECT `+equipmentTypeColumns+` FROM equipment_types ORDER BY tier, sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.EquipmentType
	for rows.Next() {
		e, err := scanEquipmentType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EquipmentRepository) GetType(ctx context.Context, id int64) (*domain.EquipmentType, error) {
	return scanEquipmentType(r.db.QueryRow(ctx, `SELECT `+equipmentTypeColumns+` FROM equipment_types WHERE id = $1`, id))
}

// ListOwned returns a user's equipment
func (r *EquipmentRepository) ListOwned(ctx context.Context, userID int64) ([]domain.OwnedEquipment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, equipment_type_id, quantity, upgrade_level, current_hashrate, updated_at
		FROM owned_equipment
		WHERE user_id = $1
		ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOwned(rows)
}

// GetOwnedForUpdate locks the user's holding of an equipment type.
func (r *EquipmentRepository) GetOwnedForUpdate(ctx context.Context, tx pgx.Tx, userID, typeID int64) (*domain.OwnedEquipment, error) {
	var o domain.OwnedEquipment
	err := tx.QueryRow(ctx, `
		SELECT id, user_id, equipment_type_id, quantity, upgrade_level, current_hashrate, updated_at
		FROM owned_equipment
		WHERE user_id = $1 AND equipment_type_id = $2
		FOR UPDATE`, userID, typeID,
	).Scan(&o.ID, &o.UserID, &o.EquipmentTypeID, &o.Quantity, &o.UpgradeLevel, &o.CurrentHashrate, &o.UpdatedAt)
	if err != nil {
		return nil, notFound(err, ErrNotOwned)
	}
	return &o, nil
}

// UpsertOwnedWithTx writes quantity, level and the recomputed per-unit hashrate.
func (r *EquipmentRepository) UpsertOwnedWithTx(ctx context.Context, tx pgx.Tx, o *domain.OwnedEquipment) error {
	return tx.QueryRow(ctx, `
		INSERT INTO owned_equipment (user_id, equipment_type_id, quantity, upgrade_level, current_hashrate)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, equipment_type_id) DO UPDATE
		SET quantity = EXCLUDED.quantity,
		    upgrade_level = EXCLUDED.upgrade_level,
		    current_hashrate = EXCLUDED.current_hashrate,
		    updated_at = NOW()
		RETURNING id, updated_at`,
		o.UserID, o.EquipmentTypeID, o.Quantity, o.UpgradeLevel, o.CurrentHashrate,
	).Scan(&o.ID, &o.UpdatedAt)
}

// ListMiners returns the equipment of every user that owns any, grouped by user.
func (r *EquipmentRepository) ListMiners(ctx context.Context) ([]domain.MinerState, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, equipment_type_id, quantity, upgrade_level, current_hashrate, updated_at
		FROM owned_equipment
		WHERE quantity > 0
		ORDER BY user_id, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owned, err := scanOwned(rows)
	if err != nil {
		return nil, err
	}

	var miners []domain.MinerState
	for _, o := range owned {
		if n := len(miners); n == 0 || miners[n-1].UserID != o.UserID {
			miners = append(miners, domain.MinerState{UserID: o.UserID})
		}
		last := &miners[len(miners)-1]
		last.Equipment = append(last.Equipment, o)
	}
	return miners, nil
}

func scanOwned(rows pgx.Rows) ([]domain.OwnedEquipment, error) {
	var out []domain.OwnedEquipment
	for rows.Next() {
		var o domain.OwnedEquipment
		if err := rows.Scan(&o.ID, &o.UserID, &o.EquipmentTypeID, &o.Quantity, &o.UpgradeLevel, &o.CurrentHashrate, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
