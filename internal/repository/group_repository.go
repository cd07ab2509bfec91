package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/astba/training-api/internal/models"
)

const groupColumns = "id, name, training_id, day_of_week, start_time, end_time, student_ids, created_at, updated_at"

// GroupRepository reads cohort rosters.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository creates a new group repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// FindByID loads a group by id.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	query := fmt.Sprintf("SELECT %s FROM groups WHERE id = $1", groupColumns)
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListByTraining returns a training's groups ordered by name.
func (r *GroupRepository) ListByTraining(ctx context.Context, trainingID string) ([]models.Group, error) {
	query := fmt.Sprintf("SELECT %s FROM groups WHERE training_id = $1 ORDER BY name ASC", groupColumns)
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, trainingID); err != nil {
		return nil, fmt.Errorf("list groups by training: %w", err)
	}
	return groups, nil
}

// List returns all groups ordered by name.
func (r *GroupRepository) List(ctx context.Context) ([]models.Group, error) {
	query := fmt.Sprintf("SELECT %s FROM groups ORDER BY name ASC", groupColumns)
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}
