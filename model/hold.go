// model/hold.go
package model

import "time"

type HoldStatus string

const (
	HoldWaiting   HoldStatus = "WAITING"
	HoldReady     HoldStatus = "READY"
	HoldFulfilled HoldStatus = "FULFILLED"
	HoldCancelled HoldStatus = "CANCELLED"
	HoldExpired   HoldStatus = "EXPIRED"
)

// Active reports whether the hold still sits in the queue. A member may have
// at most one active hold per book.
func (s HoldStatus) Active() bool { return s == HoldWaiting || s == HoldReady }

type Hold struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	BookID      int64      `json:"book_id"`
	BookTitle   string     `json:"book_title,omitempty"`
	Status      HoldStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CopyID      *int64     `json:"copy_id,omitempty"`
	PickupUntil *time.Time `json:"pickup_until,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}
