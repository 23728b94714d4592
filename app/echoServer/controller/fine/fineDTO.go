package fine

type PayFineReq struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Method string  `json:"method" validate:"omitempty,oneof=cash card online"`
}

type ChargeFineReq struct {
	UserID int64   `json:"user_id" validate:"required,gt=0"`
	LoanID int64   `json:"loan_id" validate:"omitempty,gt=0"`
	Reason string  `json:"reason" validate:"required,oneof=overdue damaged lost"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}
