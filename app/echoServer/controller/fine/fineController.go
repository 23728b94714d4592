package fine

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"library/app/echoServer/respond"
	"library/model"
	finesvc "library/service/fine"
)

type Controller struct {
	Svc finesvc.Service
	V   *validator.Validate
	Log *slog.Logger

	// Ceiling is the outstanding balance above which borrowing is blocked,
	// reported in the member summary.
	Ceiling float64
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

// POST /v1/fines/:id/pay
// @Summary      Pay a fine
// @Description  Records a full or partial payment against an outstanding fine
// @Tags         fines
// @Accept       json
// @Produce      json
// @Param        id       path  int         true  "Fine ID"
// @Param        payload  body  PayFineReq  true  "Payment payload"
// @Success      200  {object}  map[string]any
// @Failure      409  {object}  map[string]any "overpayment not allowed / already settled"
// @Router       /v1/fines/{id}/pay [post]
func (ct *Controller) Pay(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req PayFineReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}
	if req.Method == "" {
		req.Method = "cash"
	}
	uid, role := identity(c)

	f, err := ct.Svc.Pay(c.Request().Context(), uid, role, id, req.Amount, req.Method)
	if err != nil {
		return respond.Error(c, ct.Log, "pay fine", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"fine": f})
}

// PUT /v1/fines/:id/waive (staff)
func (ct *Controller) Waive(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	f, err := ct.Svc.Waive(c.Request().Context(), id)
	if err != nil {
		return respond.Error(c, ct.Log, "waive fine", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"fine": f})
}

// POST /v1/fines (staff)
func (ct *Controller) Charge(c echo.Context) error {
	var req ChargeFineReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}
	f, err := ct.Svc.Charge(c.Request().Context(), req.UserID, req.LoanID,
		model.FineReason(req.Reason), req.Amount)
	if err != nil {
		return respond.Error(c, ct.Log, "charge fine", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"fine": f})
}

// GET /v1/fines/my
func (ct *Controller) My(c echo.Context) error {
	uid, _ := identity(c)
	includeSettled := c.QueryParam("include_settled") == "true"

	fines, err := ct.Svc.MyFines(c.Request().Context(), uid, includeSettled)
	if err != nil {
		return respond.Error(c, ct.Log, "my fines", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": fines})
}

// GET /v1/fines/my/summary
func (ct *Controller) Summary(c echo.Context) error {
	uid, _ := identity(c)
	sum, err := ct.Svc.MySummary(c.Request().Context(), uid, ct.Ceiling)
	if err != nil {
		return respond.Error(c, ct.Log, "fine summary", err)
	}
	return c.JSON(http.StatusOK, sum)
}

// GET /v1/fines/:id
func (ct *Controller) Detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, role := identity(c)

	f, payments, err := ct.Svc.Detail(c.Request().Context(), uid, role, id)
	if err != nil {
		return respond.Error(c, ct.Log, "fine detail", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"fine": f, "payments": payments})
}

// GET /v1/fines (staff)
func (ct *Controller) ListAll(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	userID, _ := strconv.ParseInt(c.QueryParam("user_id"), 10, 64)

	fines, err := ct.Svc.ListAll(c.Request().Context(), userID, c.QueryParam("status"), offset, limit)
	if err != nil {
		return respond.Error(c, ct.Log, "all fines", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": fines})
}
