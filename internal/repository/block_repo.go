package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"hardmine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// serializes block producers across processes
const blockCommitLockKey = 7_300_001

var ErrBlockNotFound = errors.New("block not found")

const blockColumns = `id, number, mined_at, reward, distributed, total_hashrate, active_miners, difficulty`

type BlockRepository struct {
	db *pgxpool.Pool
}

func NewBlockRepository(db *pgxpool.Pool) *BlockRepository {
	return &BlockRepository{db: db}
}

func scanBlock(row pgx.Row) (*domain.Block, error) {
	var b domain.Block
	if err := row.Scan(&b.ID, &b.Number, &b.MinedAt, &b.Reward, &b.Distributed,
		&b.TotalHashrate, &b.ActiveMiners, &b.Difficulty); err != nil {
		return nil, notFound(err, ErrBlockNotFound)
	}
	return &b, nil
}

// LatestBlock returns the highest block, or nil when the chain is empty.
func (r *BlockRepository) LatestBlock(ctx context.Context) (*domain.Block, error) {
	b, err := scanBlock(r.db.QueryRow(ctx, `SELECT `+blockColumns+` FROM blocks ORDER BY number DESC LIMIT 1`))
	if errors.Is(err, ErrBlockNotFound) {
		return nil, nil
	}
	return b, err
}

func (r *BlockRepository) GetByNumber(ctx context.Context, number int64) (*domain.Block, error) {
	return scanBlock(r.db.QueryRow(ctx, `SELECT `+blockColumns+` FROM blocks WHERE number = $1`, number))
}

// ListRecent returns the latest blocks, newest first
func (r *BlockRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Block, error) {
	rows, err := r.db.Query(ctx, `SELECT `+blockColumns+` FROM blocks ORDER BY number DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CommitBlock persists a mined block in one transaction: the block row with
// number = last + 1, a reward row per contributor and the CS credits with
// their ledger entries. On error nothing is written.
func (r *BlockRepository) CommitBlock(ctx context.Context, block *domain.Block, rewards []domain.BlockReward) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, blockCommitLockKey); err != nil {
		return fmt.Errorf("lock block sequence: %w", err)
	}

	var number int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(number), 0) + 1 FROM blocks`).Scan(&number); err != nil {
		return fmt.Errorf("next block number: %w", err)
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO blocks (number, mined_at, reward, distributed, total_hashrate, active_miners, difficulty)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		number, block.MinedAt, block.Reward, block.Distributed, block.TotalHashrate, block.ActiveMiners, block.Difficulty,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}

	// users are credited in id order so concurrent purchases lock in the same order
	ordered := make([]domain.BlockReward, len(rewards))
	copy(ordered, rewards)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].UserID < ordered[j].UserID })

	batch := &pgx.Batch{}
	credits := make(map[int]int64)
	for _, rw := range ordered {
		batch.Queue(`
			INSERT INTO block_rewards (block_id, block_number, user_id, hashrate, share_pct, reward)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, number, rw.UserID, rw.Hashrate, rw.SharePct, rw.Reward)
		if rw.Reward <= 0 {
			continue
		}
		amount := decimal.NewFromInt(rw.Reward)
		credits[batch.Len()] = rw.UserID
		batch.Queue(`UPDATE users SET cs_balance = cs_balance + $1 WHERE id = $2`, amount, rw.UserID)
		batch.Queue(insertTransactionSQL, rw.UserID, domain.TxMiningReward, domain.CurrencyCS, amount,
			metaJSON(map[string]interface{}{"block": number}))
	}

	if batch.Len() > 0 {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			tag, err := results.Exec()
			if err != nil {
				_ = results.Close()
				return fmt.Errorf("write rewards: %w", err)
			}
			if userID, ok := credits[i]; ok && tag.RowsAffected() == 0 {
				_ = results.Close()
				return fmt.Errorf("credit user %d: %w", userID, ErrUserNotFound)
			}
		}
		if err := results.Close(); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	block.ID = id
	block.Number = number
	for i := range rewards {
		rewards[i].BlockID = id
		rewards[i].BlockNumber = number
	}
	return nil
}

// RewardsByUser returns a user's reward history, newest first
func (r *BlockRepository) RewardsByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.BlockReward, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, block_id, block_number, user_id, hashrate, share_pct, reward, created_at
		FROM block_rewards
		WHERE user_id = $1
		ORDER BY block_number DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BlockReward
	for rows.Next() {
		var rw domain.BlockReward
		if err := rows.Scan(&rw.ID, &rw.BlockID, &rw.BlockNumber, &rw.UserID, &rw.Hashrate,
			&rw.SharePct, &rw.Reward, &rw.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rw)
	}
	return out, rows.Err()
}

type RewardSummary struct {
	Blocks     int64 `json:"blocks"`
	TotalMined int64 `json:"total_mined"`
}

func (r *BlockRepository) RewardSummary(ctx context.Context, userID int64) (*RewardSummary, error) {
	var s RewardSummary
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(reward), 0) FROM block_rewards WHERE user_id = $1`, userID,
	).Scan(&s.Blocks, &s.TotalMined)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type ChainTotals struct {
	Blocks      int64 `json:"blocks"`
	TotalMinted int64 `json:"total_minted"`
}

func (r *BlockRepository) Totals(ctx context.Context) (*ChainTotals, error) {
	var t ChainTotals
	err := r.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(distributed), 0) FROM blocks`).Scan(&t.Blocks, &t.TotalMinted)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
