// model/loan.go
package model

import "time"

type LoanStatus string

const (
	LoanActive   LoanStatus = "ACTIVE"
	LoanOverdue  LoanStatus = "OVERDUE"
	LoanReturned LoanStatus = "RETURNED"
)

// Open reports whether the loan still occupies a copy.
func (s LoanStatus) Open() bool { return s == LoanActive || s == LoanOverdue }

type ReturnCondition string

const (
	ConditionGood    ReturnCondition = "good"
	ConditionDamaged ReturnCondition = "damaged"
	ConditionLost    ReturnCondition = "lost"
)

type Loan struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	CopyID       int64      `json:"copy_id"`
	BookID       int64      `json:"book_id"`
	BookTitle    string     `json:"book_title,omitempty"`
	Status       LoanStatus `json:"status"`
	CheckedOutAt time.Time  `json:"checked_out_at"`
	DueAt        time.Time  `json:"due_at"`
	RenewalCount int        `json:"renewal_count"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
}
