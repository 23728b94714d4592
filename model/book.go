// model/book.go
package model

import "time"

type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	ISBN      string    `json:"isbn"`
	Genre     string    `json:"genre"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`

	// Copy counts, populated on reads.
	TotalCopies     int64 `json:"total_copies"`
	AvailableCopies int64 `json:"available_copies"`
}

type CopyStatus string

const (
	CopyAvailable CopyStatus = "AVAILABLE"
	CopyReserved  CopyStatus = "RESERVED"
	CopyOnLoan    CopyStatus = "ON_LOAN"
	CopyLost      CopyStatus = "LOST"
	CopyWithdrawn CopyStatus = "WITHDRAWN"
)

type Copy struct {
	ID        int64      `json:"id"`
	BookID    int64      `json:"book_id"`
	Status    CopyStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// CopyCounts is the per-book status breakdown. The sum of all buckets always
// equals Total.
type CopyCounts struct {
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
	OnLoan    int64 `json:"on_loan"`
	Lost      int64 `json:"lost"`
	Withdrawn int64 `json:"withdrawn"`
}
