package repository

import (
	"context"
	"fmt"

	"github.com/ttiimmothy/expense-splitter/database"
	"github.com/ttiimmothy/expense-splitter/models"
)

type SettlementRepository interface {
	Create(ctx context.Context, settlement *models.Settlement) error
	// ListByGroup returns recorded settlements, newest first.
	ListByGroup(ctx context.Context, groupID string) ([]models.Settlement, error)
	WithTx(tx database.Querier) SettlementRepository
}

type settlementRepository struct {
	db *database.DB
	tx database.Querier
}

func NewSettlementRepository(db *database.DB) SettlementRepository {
	return &settlementRepository{db: db}
}

func (r *settlementRepository) WithTx(tx database.Querier) SettlementRepository {
	return &settlementRepository{db: r.db, tx: tx}
}

func (r *settlementRepository) getQuerier() database.Querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db.Pool
}

func (r *settlementRepository) Create(ctx context.Context, settlement *models.Settlement) error {
	query := `INSERT INTO settlements (id, group_id, from_user_id, to_user_id, amount, note, created_by, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	          RETURNING created_at`

	err := r.getQuerier().QueryRow(ctx, query,
		settlement.ID, settlement.GroupID, settlement.FromUserID, settlement.ToUserID,
		settlement.Amount, settlement.Note, settlement.CreatedBy,
	).Scan(&settlement.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating settlement: %w", err)
	}
	return nil
}

func (r *settlementRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Settlement, error) {
	query := `SELECT id, group_id, from_user_id, to_user_id, amount, note, created_by, created_at
	          FROM settlements WHERE group_id = $1
	          ORDER BY created_at DESC, id`

	rows, err := r.getQuerier().Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("getting settlements by group id: %w", err)
	}
	defer rows.Close()

	settlements := []models.Settlement{}
	for rows.Next() {
		var s models.Settlement
		if err := rows.Scan(
			&s.ID, &s.GroupID, &s.FromUserID, &s.ToUserID, &s.Amount, &s.Note, &s.CreatedBy, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning settlement: %w", err)
		}
		settlements = append(settlements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settlements: %w", err)
	}

	return settlements, nil
}
