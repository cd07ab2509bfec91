package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/astba/training-api/internal/models"
)

const userColumns = "id, email, first_name, last_name, roles, active, speciality, created_at, updated_at"

// UserRepository reads application users and role membership.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID loads a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListActiveByRole returns every active user holding the given role.
func (r *UserRepository) ListActiveByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE $1 = ANY(roles) AND active = TRUE ORDER BY last_name ASC", userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, string(role)); err != nil {
		return nil, fmt.Errorf("list active users by role: %w", err)
	}
	return users, nil
}
