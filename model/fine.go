// model/fine.go
package model

import "time"

type FineStatus string

const (
	FineOutstanding FineStatus = "OUTSTANDING"
	FinePaid        FineStatus = "PAID"
	FineWaived      FineStatus = "WAIVED"
)

type FineReason string

const (
	ReasonOverdue FineReason = "overdue"
	ReasonDamaged FineReason = "damaged"
	ReasonLost    FineReason = "lost"
)

type Fine struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	LoanID     int64      `json:"loan_id"`
	Reason     FineReason `json:"reason"`
	Amount     float64    `json:"amount"`
	AmountPaid float64    `json:"amount_paid"`
	Status     FineStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	SettledAt  *time.Time `json:"settled_at,omitempty"`
}

// Outstanding is the unpaid remainder of the fine.
func (f Fine) Outstanding() float64 { return f.Amount - f.AmountPaid }

// FinePayment is one append-only ledger entry against a fine. Partial
// payments produce multiple rows; rows are never updated or deleted.
type FinePayment struct {
	ID        int64     `json:"id"`
	FineID    int64     `json:"fine_id"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"created_at"`
}
