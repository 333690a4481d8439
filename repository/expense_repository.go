package repository

import (
	"context"
	"fmt"

	"github.com/ttiimmothy/expense-splitter/database"
	"github.com/ttiimmothy/expense-splitter/models"
)

type ExpenseRepository interface {
	GetByID(ctx context.Context, id string) (*models.Expense, error)
	// ListByGroup returns the group's expenses, newest first, with payers
	// and shares attached.
	ListByGroup(ctx context.Context, groupID string) ([]models.Expense, error)
	Create(ctx context.Context, expense *models.Expense) error
	CreatePayer(ctx context.Context, payer *models.ExpensePayer) error
	CreateShare(ctx context.Context, share *models.ExpenseShare) error
	GetPayersByExpenseIDs(ctx context.Context, expenseIDs []string) (map[string][]models.ExpensePayer, error)
	GetSharesByExpenseIDs(ctx context.Context, expenseIDs []string) (map[string][]models.ExpenseShare, error)
	WithTx(tx database.Querier) ExpenseRepository
}

type expenseRepository struct {
	db *database.DB
	tx database.Querier
}

func NewExpenseRepository(db *database.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) WithTx(tx database.Querier) ExpenseRepository {
	return &expenseRepository{db: r.db, tx: tx}
}

func (r *expenseRepository) getQuerier() database.Querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db.Pool
}

func (r *expenseRepository) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	var expense models.Expense
	query := `SELECT id, group_id, description, amount, split, created_by, created_at
	          FROM expenses WHERE id = $1`

	err := r.getQuerier().QueryRow(ctx, query, id).Scan(
		&expense.ID, &expense.GroupID, &expense.Description, &expense.Amount,
		&expense.Split, &expense.CreatedBy, &expense.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("getting expense by id: %w", err)
	}

	if err := r.attachLines(ctx, []*models.Expense{&expense}); err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *expenseRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Expense, error) {
	query := `SELECT id, group_id, description, amount, split, created_by, created_at
	          FROM expenses WHERE group_id = $1
	          ORDER BY created_at DESC, id`

	rows, err := r.getQuerier().Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("getting expenses by group id: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var expense models.Expense
		if err := rows.Scan(
			&expense.ID, &expense.GroupID, &expense.Description, &expense.Amount,
			&expense.Split, &expense.CreatedBy, &expense.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expenses: %w", err)
	}

	ptrs := make([]*models.Expense, len(expenses))
	for i := range expenses {
		ptrs[i] = &expenses[i]
	}
	if err := r.attachLines(ctx, ptrs); err != nil {
		return nil, err
	}

	return expenses, nil
}

func (r *expenseRepository) attachLines(ctx context.Context, expenses []*models.Expense) error {
	if len(expenses) == 0 {
		return nil
	}
	expenseIDs := make([]string, len(expenses))
	for i, e := range expenses {
		expenseIDs[i] = e.ID
	}

	allPayers, err := r.GetPayersByExpenseIDs(ctx, expenseIDs)
	if err != nil {
		return fmt.Errorf("batch getting payers: %w", err)
	}
	allShares, err := r.GetSharesByExpenseIDs(ctx, expenseIDs)
	if err != nil {
		return fmt.Errorf("batch getting shares: %w", err)
	}

	for _, e := range expenses {
		if payers := allPayers[e.ID]; payers != nil {
			e.Payers = payers
		} else {
			e.Payers = []models.ExpensePayer{}
		}
		if shares := allShares[e.ID]; shares != nil {
			e.Shares = shares
		} else {
			e.Shares = []models.ExpenseShare{}
		}
	}
	return nil
}

func (r *expenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	query := `INSERT INTO expenses (id, group_id, description, amount, split, created_by, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW())
	          RETURNING created_at`

	err := r.getQuerier().QueryRow(ctx, query,
		expense.ID, expense.GroupID, expense.Description, expense.Amount, expense.Split, expense.CreatedBy,
	).Scan(&expense.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating expense: %w", err)
	}
	return nil
}

func (r *expenseRepository) CreatePayer(ctx context.Context, payer *models.ExpensePayer) error {
	query := `INSERT INTO expense_payers (id, expense_id, user_id, amount)
	          VALUES ($1, $2, $3, $4)`

	_, err := r.getQuerier().Exec(ctx, query, payer.ID, payer.ExpenseID, payer.UserID, payer.Amount)
	if err != nil {
		return fmt.Errorf("creating payer: %w", err)
	}
	return nil
}

func (r *expenseRepository) CreateShare(ctx context.Context, share *models.ExpenseShare) error {
	query := `INSERT INTO expense_shares (id, expense_id, user_id, amount_owed)
	          VALUES ($1, $2, $3, $4)`

	_, err := r.getQuerier().Exec(ctx, query, share.ID, share.ExpenseID, share.UserID, share.AmountOwed)
	if err != nil {
		return fmt.Errorf("creating share: %w", err)
	}
	return nil
}

func (r *expenseRepository) GetPayersByExpenseIDs(ctx context.Context, expenseIDs []string) (map[string][]models.ExpensePayer, error) {
	if len(expenseIDs) == 0 {
		return make(map[string][]models.ExpensePayer), nil
	}

	query := `SELECT id, expense_id, user_id, amount
	          FROM expense_payers WHERE expense_id = ANY($1)
	          ORDER BY expense_id, user_id`

	rows, err := r.getQuerier().Query(ctx, query, expenseIDs)
	if err != nil {
		return nil, fmt.Errorf("batch getting payers: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]models.ExpensePayer)
	for rows.Next() {
		var payer models.ExpensePayer
		if err := rows.Scan(&payer.ID, &payer.ExpenseID, &payer.UserID, &payer.Amount); err != nil {
			return nil, fmt.Errorf("scanning payer: %w", err)
		}
		result[payer.ExpenseID] = append(result[payer.ExpenseID], payer)
	}
	return result, rows.Err()
}

func (r *expenseRepository) GetSharesByExpenseIDs(ctx context.Context, expenseIDs []string) (map[string][]models.ExpenseShare, error) {
	if len(expenseIDs) == 0 {
		return make(map[string][]models.ExpenseShare), nil
	}

	query := `SELECT id, expense_id, user_id, amount_owed
	          FROM expense_shares WHERE expense_id = ANY($1)
	          ORDER BY expense_id, user_id`

	rows, err := r.getQuerier().Query(ctx, query, expenseIDs)
	if err != nil {
		return nil, fmt.Errorf("batch getting shares: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]models.ExpenseShare)
	for rows.Next() {
		var share models.ExpenseShare
		if err := rows.Scan(&share.ID, &share.ExpenseID, &share.UserID, &share.AmountOwed); err != nil {
			return nil, fmt.Errorf("scanning share: %w", err)
		}
		result[share.ExpenseID] = append(result[share.ExpenseID], share)
	}
	return result, rows.Err()
}
