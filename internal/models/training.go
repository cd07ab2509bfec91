package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Session is one planned session template inside a curriculum level.
type Session struct {
	SessionID     string     `json:"session_id"`
	SessionNumber int        `json:"session_number"`
	Title         string     `json:"title"`
	PlannedAt     *time.Time `json:"planned_at,omitempty"`
}

// Level groups an ordered list of session templates.
type Level struct {
	LevelNumber int       `json:"level_number"`
	Title       string    `json:"title"`
	Sessions    []Session `json:"sessions"`
}

// LevelList is the curriculum tree stored as a JSONB column.
type LevelList []Level

// Value implements driver.Valuer.
func (l LevelList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *LevelList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported levels source %T", src)
	}
	return json.Unmarshal(raw, l)
}

// Training is a curriculum: an ordered list of levels, each an ordered list
// of session templates. Read-only from the scheduling engine's perspective.
type Training struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	DocumentURL *string   `db:"document_url" json:"document_url,omitempty"`
	Levels      LevelList `db:"levels" json:"levels"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// TotalSessions counts the session templates across all levels.
func (t *Training) TotalSessions() int {
	total := 0
	for _, level := range t.Levels {
		total += len(level.Sessions)
	}
	return total
}
