package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/astba/training-api/internal/models"
)

func newSeanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func seanceRows(seances ...models.Seance) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "training_id", "session_id", "group_id", "trainer_id", "date", "start_time", "end_time", "status", "level_number", "session_number", "title", "created_at", "updated_at"})
	for _, s := range seances {
		rows.AddRow(s.ID, s.TrainingID, s.SessionID, s.GroupID, s.TrainerID, s.Date, s.StartTime, s.EndTime, s.Status, s.LevelNumber, s.SessionNumber, s.Title, s.CreatedAt, s.UpdatedAt)
	}
	return rows
}

func TestSeanceRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newSeanceRepoMock(t)
	defer cleanup()

	repo := NewSeanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO seances")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	seance := &models.Seance{
		TrainingID: "tr1",
		SessionID:  "sess-1",
		GroupID:    "g1",
		TrainerID:  "t1",
		Date:       time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		StartTime:  "09:00",
		EndTime:    "11:00",
		Title:      "Intro",
	}
	require.NoError(t, repo.Create(context.Background(), seance))
	require.NotEmpty(t, seance.ID)
	require.Equal(t, models.SeanceStatusPlanned, seance.Status)
	require.False(t, seance.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeanceRepositoryListByTrainerAndDate(t *testing.T) {
	db, mock, cleanup := newSeanceRepoMock(t)
	defer cleanup()

	repo := NewSeanceRepository(db)
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, training_id, session_id, group_id, trainer_id, date, start_time, end_time, status, level_number, session_number, title, created_at, updated_at FROM seances WHERE trainer_id = $1 AND date = $2")).
		WithArgs("t1", date).
		WillReturnRows(seanceRows(models.Seance{ID: "se1", TrainerID: "t1", Date: date, StartTime: "09:00", EndTime: "10:00", Status: models.SeanceStatusPlanned}))

	seances, err := repo.ListByTrainerAndDate(context.Background(), "t1", date)
	require.NoError(t, err)
	require.Len(t, seances, 1)
	require.Equal(t, "se1", seances[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeanceRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newSeanceRepoMock(t)
	defer cleanup()

	repo := NewSeanceRepository(db)
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM seances WHERE 1=1 AND trainer_id = $1 AND date >= $2 AND date <= $3 ORDER BY date ASC, start_time ASC")).
		WithArgs("t1", from, to).
		WillReturnRows(seanceRows())

	seances, err := repo.List(context.Background(), models.SeanceFilter{TrainerID: "t1", DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	require.Empty(t, seances)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeanceRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newSeanceRepoMock(t)
	defer cleanup()

	repo := NewSeanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE seances SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(models.SeanceStatusInProgress, sqlmock.AnyArg(), "se1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "se1", models.SeanceStatusInProgress))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeanceRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newSeanceRepoMock(t)
	defer cleanup()

	repo := NewSeanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seances WHERE id = $1")).
		WithArgs("se1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "se1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
