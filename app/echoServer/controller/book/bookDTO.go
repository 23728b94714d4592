package book

type CreateBookReq struct {
	Title  string  `json:"title" validate:"required"`
	Author string  `json:"author" validate:"required"`
	ISBN   string  `json:"isbn" validate:"required"`
	Genre  string  `json:"genre"`
	Price  float64 `json:"price" validate:"gte=0"`
}

type UpdateBookReq struct {
	Title  string  `json:"title" validate:"required"`
	Author string  `json:"author" validate:"required"`
	ISBN   string  `json:"isbn" validate:"required"`
	Genre  string  `json:"genre"`
	Price  float64 `json:"price" validate:"gte=0"`
}

type AddCopiesReq struct {
	Count int `json:"count" validate:"required,gt=0,lte=100"`
}
