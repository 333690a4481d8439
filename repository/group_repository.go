package repository

import (
	"context"
	"fmt"

	"github.com/ttiimmothy/expense-splitter/database"
	"github.com/ttiimmothy/expense-splitter/models"
)

type GroupRepository interface {
	GetByID(ctx context.Context, id string) (*models.Group, error)
	// GetByUserID returns the groups the user currently belongs to, most
	// recently updated first. Members are not loaded.
	GetByUserID(ctx context.Context, userID string) ([]models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	AddMember(ctx context.Context, groupID, userID string, role models.MemberRole) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	GetMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
	// ListMembers returns the users currently in the group.
	ListMembers(ctx context.Context, groupID string) ([]models.User, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	WithTx(tx database.Querier) GroupRepository
}

type groupRepository struct {
	db *database.DB
	tx database.Querier
}

func NewGroupRepository(db *database.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) WithTx(tx database.Querier) GroupRepository {
	return &groupRepository{db: r.db, tx: tx}
}

func (r *groupRepository) getQuerier() database.Querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db.Pool
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*models.Group, error) {
	var group models.Group
	query := `SELECT id, name, currency, created_at, updated_at FROM groups WHERE id = $1`

	err := r.getQuerier().QueryRow(ctx, query, id).Scan(
		&group.ID, &group.Name, &group.Currency, &group.CreatedAt, &group.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("getting group by id: %w", err)
	}

	members, err := r.GetMembers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting group members: %w", err)
	}
	group.Members = members

	return &group, nil
}

func (r *groupRepository) GetByUserID(ctx context.Context, userID string) ([]models.Group, error) {
	query := `SELECT g.id, g.name, g.currency, g.created_at, g.updated_at
	          FROM groups g
	          INNER JOIN group_members gm ON g.id = gm.group_id
	          WHERE gm.user_id = $1
	          ORDER BY g.updated_at DESC, g.id`

	rows, err := r.getQuerier().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("getting groups by user id: %w", err)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Currency, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating groups: %w", err)
	}

	return groups, nil
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	query := `INSERT INTO groups (id, name, currency, created_at, updated_at)
	          VALUES ($1, $2, $3, NOW(), NOW())
	          RETURNING created_at, updated_at`

	err := r.getQuerier().QueryRow(ctx, query, group.ID, group.Name, group.Currency).
		Scan(&group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating group: %w", err)
	}
	return nil
}

func (r *groupRepository) AddMember(ctx context.Context, groupID, userID string, role models.MemberRole) error {
	query := `INSERT INTO group_members (group_id, user_id, role, joined_at)
	          VALUES ($1, $2, $3, NOW())
	          ON CONFLICT (group_id, user_id) DO NOTHING`

	_, err := r.getQuerier().Exec(ctx, query, groupID, userID, role)
	if err != nil {
		return fmt.Errorf("adding member to group: %w", err)
	}
	return nil
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	query := `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`

	_, err := r.getQuerier().Exec(ctx, query, groupID, userID)
	if err != nil {
		return fmt.Errorf("removing member from group: %w", err)
	}
	return nil
}

func (r *groupRepository) GetMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	query := `SELECT gm.group_id, gm.user_id, gm.role, gm.joined_at,
	                 COALESCE(u.email, ''), u.name, u.created_at, u.updated_at
	          FROM group_members gm
	          INNER JOIN users u ON u.id = gm.user_id
	          WHERE gm.group_id = $1
	          ORDER BY u.name, u.id`

	rows, err := r.getQuerier().Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("getting group members: %w", err)
	}
	defer rows.Close()

	members := []models.GroupMember{}
	for rows.Next() {
		var m models.GroupMember
		u := &models.User{}
		if err := rows.Scan(
			&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt,
			&u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		u.ID = m.UserID
		m.User = u
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}

	return members, nil
}

func (r *groupRepository) ListMembers(ctx context.Context, groupID string) ([]models.User, error) {
	query := `SELECT u.id, COALESCE(u.email, ''), u.name, u.created_at, u.updated_at
	          FROM users u
	          INNER JOIN group_members gm ON u.id = gm.user_id
	          WHERE gm.group_id = $1
	          ORDER BY u.name, u.id`

	rows, err := r.getQuerier().Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing group members: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

func (r *groupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`

	err := r.getQuerier().QueryRow(ctx, query, groupID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return exists, nil
}
