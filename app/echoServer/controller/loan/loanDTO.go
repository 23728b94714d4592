package loan

type CheckoutReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}

type ReturnReq struct {
	// Condition of the returned copy: good, damaged or lost.
	Condition string `json:"condition" validate:"omitempty,oneof=good damaged lost"`
}
