package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/astba/training-api/internal/models"
)

const seanceColumns = "id, training_id, session_id, group_id, trainer_id, date, start_time, end_time, status, level_number, session_number, title, created_at, updated_at"

// SeanceRepository provides persistence for seances.
type SeanceRepository struct {
	db *sqlx.DB
}

// NewSeanceRepository creates a new seance repository.
func NewSeanceRepository(db *sqlx.DB) *SeanceRepository {
	return &SeanceRepository{db: db}
}

// FindByID loads a seance by id.
func (r *SeanceRepository) FindByID(ctx context.Context, id string) (*models.Seance, error) {
	query := fmt.Sprintf("SELECT %s FROM seances WHERE id = $1", seanceColumns)
	var seance models.Seance
	if err := r.db.GetContext(ctx, &seance, query, id); err != nil {
		return nil, err
	}
	return &seance, nil
}

// ListByTrainerAndDate returns the trainer's seances on a given day, the
// working set for overlap detection.
func (r *SeanceRepository) ListByTrainerAndDate(ctx context.Context, trainerID string, date time.Time) ([]models.Seance, error) {
	query := fmt.Sprintf("SELECT %s FROM seances WHERE trainer_id = $1 AND date = $2 ORDER BY start_time ASC", seanceColumns)
	var seances []models.Seance
	if err := r.db.SelectContext(ctx, &seances, query, trainerID, date); err != nil {
		return nil, fmt.Errorf("list seances by trainer and date: %w", err)
	}
	return seances, nil
}

// List returns seances matching the filter ordered by date and start time.
func (r *SeanceRepository) List(ctx context.Context, filter models.SeanceFilter) ([]models.Seance, error) {
	base := fmt.Sprintf("SELECT %s FROM seances WHERE 1=1", seanceColumns)
	var conditions []string
	var args []interface{}

	if filter.TrainerID != "" {
		conditions = append(conditions, fmt.Sprintf("trainer_id = $%d", len(args)+1))
		args = append(args, filter.TrainerID)
	}
	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if filter.TrainingID != "" {
		conditions = append(conditions, fmt.Sprintf("training_id = $%d", len(args)+1))
		args = append(args, filter.TrainingID)
	}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, start_time ASC"

	var seances []models.Seance
	if err := r.db.SelectContext(ctx, &seances, query, args...); err != nil {
		return nil, fmt.Errorf("list seances: %w", err)
	}
	return seances, nil
}

// Create stores a new seance record.
func (r *SeanceRepository) Create(ctx context.Context, seance *models.Seance) error {
	if seance.ID == "" {
		seance.ID = uuid.NewString()
	}
	if seance.Status == "" {
		seance.Status = models.SeanceStatusPlanned
	}
	now := time.Now().UTC()
	if seance.CreatedAt.IsZero() {
		seance.CreatedAt = now
	}
	seance.UpdatedAt = now

	const query = `INSERT INTO seances (id, training_id, session_id, group_id, trainer_id, date, start_time, end_time, status, level_number, session_number, title, created_at, updated_at) VALUES (:id, :training_id, :session_id, :group_id, :trainer_id, :date, :start_time, :end_time, :status, :level_number, :session_number, :title, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, seance); err != nil {
		return fmt.Errorf("create seance: %w", err)
	}
	return nil
}

// Update modifies a seance record.
func (r *SeanceRepository) Update(ctx context.Context, seance *models.Seance) error {
	seance.UpdatedAt = time.Now().UTC()
	const query = `UPDATE seances SET training_id = :training_id, session_id = :session_id, group_id = :group_id, trainer_id = :trainer_id, date = :date, start_time = :start_time, end_time = :end_time, status = :status, level_number = :level_number, session_number = :session_number, title = :title, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, seance); err != nil {
		return fmt.Errorf("update seance: %w", err)
	}
	return nil
}

// UpdateStatus persists only the status transition.
func (r *SeanceRepository) UpdateStatus(ctx context.Context, id string, status models.SeanceStatus) error {
	const query = `UPDATE seances SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update seance status: %w", err)
	}
	return nil
}

// Delete removes a seance by id.
func (r *SeanceRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM seances WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete seance: %w", err)
	}
	return nil
}
