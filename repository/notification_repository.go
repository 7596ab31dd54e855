package repository

import (
	"fmt"
	"time"

	"pricewatch/database"
)

type NotificationRepository struct{}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{}
}

// Notify delivers a message to a user
func (r *NotificationRepository) Notify(userID int, message, link string) error {
	query := `
		INSERT INTO notifications (user_id, message, link, is_read, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
	`

	if len(message) > 500 {
		message = message[:500]
	}

	_, err := database.DB.Exec(query, userID, message, link, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create notification: %v", err)
	}

	return nil
}
