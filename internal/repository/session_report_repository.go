package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/astba/training-api/internal/models"
)

// SessionReportRepository persists trainer postponement reports.
type SessionReportRepository struct {
	db *sqlx.DB
}

// NewSessionReportRepository creates a new session report repository.
func NewSessionReportRepository(db *sqlx.DB) *SessionReportRepository {
	return &SessionReportRepository{db: db}
}

// Create stores a new report record.
func (r *SessionReportRepository) Create(ctx context.Context, report *models.SessionReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.ReportStatus == "" {
		report.ReportStatus = models.ReportStatusPending
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO session_reports (id, seance_id, trainer_id, reason, suggested_date, report_status, created_at) VALUES (:id, :seance_id, :trainer_id, :reason, :suggested_date, :report_status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create session report: %w", err)
	}
	return nil
}

// ListBySeance returns every report ever filed against a seance.
func (r *SessionReportRepository) ListBySeance(ctx context.Context, seanceID string) ([]models.SessionReport, error) {
	const query = `SELECT id, seance_id, trainer_id, reason, suggested_date, report_status, created_at FROM session_reports WHERE seance_id = $1 ORDER BY created_at DESC`
	var reports []models.SessionReport
	if err := r.db.SelectContext(ctx, &reports, query, seanceID); err != nil {
		return nil, fmt.Errorf("list session reports: %w", err)
	}
	return reports, nil
}
