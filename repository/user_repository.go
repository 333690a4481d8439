package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ttiimmothy/expense-splitter/database"
	"github.com/ttiimmothy/expense-splitter/models"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	// FindInvolvedInGroup returns every user that is a current member of the
	// group or is referenced by one of its expenses or settlements.
	FindInvolvedInGroup(ctx context.Context, groupID string) ([]models.User, error)
	WithTx(tx database.Querier) UserRepository
}

type userRepository struct {
	db *database.DB
	tx database.Querier
}

func NewUserRepository(db *database.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx database.Querier) UserRepository {
	return &userRepository{db: r.db, tx: tx}
}

func (r *userRepository) getQuerier() database.Querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db.Pool
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := `SELECT id, COALESCE(email, ''), name, created_at, updated_at
	          FROM users WHERE id = $1`

	err := r.getQuerier().QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("getting user by id: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT id, COALESCE(email, ''), name, created_at, updated_at
	          FROM users WHERE LOWER(email) = LOWER($1)`

	err := r.getQuerier().QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, email, name, created_at, updated_at)
	          VALUES ($1, $2, $3, NOW(), NOW())
	          ON CONFLICT (id) DO UPDATE SET
	              email = EXCLUDED.email,
	              name = EXCLUDED.name,
	              updated_at = NOW()`

	var email interface{} = user.Email
	if user.Email == "" {
		email = nil
	}

	_, err := r.getQuerier().Exec(ctx, query, user.ID, email, user.Name)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (r *userRepository) FindInvolvedInGroup(ctx context.Context, groupID string) ([]models.User, error) {
	query := `
		WITH involved AS (
			SELECT gm.user_id FROM group_members gm WHERE gm.group_id = $1
			UNION
			SELECT p.user_id FROM expense_payers p
			JOIN expenses e ON e.id = p.expense_id
			WHERE e.group_id = $1
			UNION
			SELECT s.user_id FROM expense_shares s
			JOIN expenses e ON e.id = s.expense_id
			WHERE e.group_id = $1
			UNION
			SELECT st.from_user_id FROM settlements st WHERE st.group_id = $1
			UNION
			SELECT st.to_user_id FROM settlements st WHERE st.group_id = $1
		)
		SELECT u.id, COALESCE(u.email, ''), u.name, u.created_at, u.updated_at
		FROM users u
		JOIN involved i ON i.user_id = u.id
		ORDER BY u.name, u.id`

	rows, err := r.getQuerier().Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("finding users involved in group: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

func scanUsers(rows pgx.Rows) ([]models.User, error) {
	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}
