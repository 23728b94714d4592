package book

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"library/app/echoServer/respond"
	"library/model"
	booksvc "library/service/book"
)

type Controller struct {
	Svc booksvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// GET /v1/books
func (ct *Controller) List(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	books, err := ct.Svc.List(c.Request().Context(), c.QueryParam("search"), offset, limit)
	if err != nil {
		return respond.Error(c, ct.Log, "book list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": books})
}

// GET /v1/books/:id
func (ct *Controller) Detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	b, err := ct.Svc.Detail(c.Request().Context(), id)
	if err != nil {
		return respond.Error(c, ct.Log, "book detail", err)
	}
	counts, err := ct.Svc.Counts(c.Request().Context(), id)
	if err != nil {
		return respond.Error(c, ct.Log, "book counts", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"book": b, "copies": counts})
}

// POST /v1/books (staff)
func (ct *Controller) Create(c echo.Context) error {
	var req CreateBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	b := &model.Book{Title: req.Title, Author: req.Author, ISBN: req.ISBN, Genre: req.Genre, Price: req.Price}
	if err := ct.Svc.Create(c.Request().Context(), b); err != nil {
		return respond.Error(c, ct.Log, "book create", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"book": b})
}

// PUT /v1/books/:id (staff)
func (ct *Controller) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req UpdateBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}

	b := &model.Book{ID: id, Title: req.Title, Author: req.Author, ISBN: req.ISBN, Genre: req.Genre, Price: req.Price}
	if err := ct.Svc.Update(c.Request().Context(), b); err != nil {
		return respond.Error(c, ct.Log, "book update", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"book": b})
}

// POST /v1/books/:id/copies (staff)
func (ct *Controller) AddCopies(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req AddCopiesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}

	n, err := ct.Svc.AddCopies(c.Request().Context(), id, req.Count)
	if err != nil {
		return respond.Error(c, ct.Log, "add copies", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"added": n})
}

// DELETE /v1/books/:id (staff)
func (ct *Controller) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := ct.Svc.Delete(c.Request().Context(), id); err != nil {
		return respond.Error(c, ct.Log, "book delete", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deleted"})
}
