// model/notification.go
package model

import "time"

type NotificationType string

const (
	NotifyHoldReady   NotificationType = "hold_ready"
	NotifyHoldExpired NotificationType = "hold_expired"
	NotifyFineCreated NotificationType = "fine_created"
	NotifyLoanOverdue NotificationType = "loan_overdue"
)

type Notification struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	DeliveredAt *time.Time       `json:"-"`
}
