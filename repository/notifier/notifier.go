package notifier

import "library/model"

// Event is the payload handed to the delivery collaborator. The circulation
// services only record events; delivery happens out of band.
type Event struct {
	UserID  int64                  `json:"user_id"`
	Type    model.NotificationType `json:"type"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
}

type Repo interface {
	Deliver(events []Event) error
}
