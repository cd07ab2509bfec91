package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/astba/training-api/internal/models"
)

const studentColumns = "id, first_name, last_name, birth_date, phone, email, notes, created_at, updated_at"

// StudentRepository reads student identities.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID loads a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}
