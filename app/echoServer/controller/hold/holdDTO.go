package hold

type PlaceHoldReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}
