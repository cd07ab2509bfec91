package models

import "time"

// NotificationCategory classifies in-app notifications.
type NotificationCategory string

const (
	NotificationSeanceAssigned NotificationCategory = "SEANCE_ASSIGNED"
	NotificationSeanceModified NotificationCategory = "SEANCE_MODIFIED"
	NotificationSeanceReported NotificationCategory = "SEANCE_REPORTED"
)

// Notification is an in-app message delivered to a single user.
type Notification struct {
	ID        string               `db:"id" json:"id"`
	UserID    string               `db:"user_id" json:"user_id"`
	Title     string               `db:"title" json:"title"`
	Message   string               `db:"message" json:"message"`
	Link      string               `db:"link" json:"link"`
	Category  NotificationCategory `db:"category" json:"category"`
	Read      bool                 `db:"read" json:"read"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}
