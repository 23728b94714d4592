package loan

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"library/app/echoServer/respond"
	"library/model"
	loansvc "library/service/loan"
)

type Controller struct {
	Svc loansvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func identity(c echo.Context) (int64, model.Role) {
	uid, _ := c.Get("user_id").(int64)
	role, _ := c.Get("role").(model.Role)
	return uid, role
}

func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// POST /v1/loans
// @Summary      Checkout a book
// @Description  Borrows any available copy of the book for the caller
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        payload  body  CheckoutReq  true  "Checkout payload"
// @Success      201  {object}  map[string]any
// @Failure      409  {object}  map[string]any "no copy available / borrowing restricted"
// @Router       /v1/loans [post]
func (ct *Controller) Checkout(c echo.Context) error {
	var req CheckoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}
	uid, _ := identity(c)

	l, err := ct.Svc.Checkout(c.Request().Context(), uid, req.BookID)
	if err != nil {
		return respond.Error(c, ct.Log, "checkout", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"loan": l})
}

// PUT /v1/loans/:id/renew
func (ct *Controller) Renew(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, role := identity(c)

	l, err := ct.Svc.Renew(c.Request().Context(), uid, role, id)
	if err != nil {
		return respond.Error(c, ct.Log, "renew", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"loan": l})
}

// PUT /v1/loans/:id/return
func (ct *Controller) Return(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req ReturnReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}
	cond := model.ReturnCondition(req.Condition)
	if cond == "" {
		cond = model.ConditionGood
	}
	uid, role := identity(c)

	res, err := ct.Svc.Return(c.Request().Context(), uid, role, id, cond)
	if err != nil {
		return respond.Error(c, ct.Log, "return", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "returned",
		"was_overdue": res.WasOverdue,
		"days_late":   res.DaysLate,
		"fine_amount": res.FineAmount,
	})
}

// GET /v1/loans/my
func (ct *Controller) My(c echo.Context) error {
	uid, _ := identity(c)
	includeReturned := c.QueryParam("include_returned") == "true"

	loans, err := ct.Svc.MyLoans(c.Request().Context(), uid, includeReturned)
	if err != nil {
		return respond.Error(c, ct.Log, "my loans", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": loans})
}

// GET /v1/loans/:id
func (ct *Controller) Detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, role := identity(c)

	l, err := ct.Svc.Detail(c.Request().Context(), uid, role, id)
	if err != nil {
		return respond.Error(c, ct.Log, "loan detail", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"loan": l})
}

// GET /v1/loans (staff)
func (ct *Controller) ListAll(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	userID, _ := strconv.ParseInt(c.QueryParam("user_id"), 10, 64)
	overdueOnly := c.QueryParam("overdue_only") == "true"

	loans, err := ct.Svc.ListAll(c.Request().Context(), c.QueryParam("status"), userID, overdueOnly, offset, limit)
	if err != nil {
		return respond.Error(c, ct.Log, "all loans", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": loans})
}
