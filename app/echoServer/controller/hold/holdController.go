package hold

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"library/app/echoServer/respond"
	"library/model"
	holdsvc "library/service/hold"
)

type Controller struct {
	Svc holdsvc.Service
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

// POST /v1/holds
// @Summary      Place a hold
// @Description  Joins the book's reservation queue when no copy is on the shelf
// @Tags         holds
// @Accept       json
// @Produce      json
// @Param        payload  body  PlaceHoldReq  true  "Hold payload"
// @Success      201  {object}  map[string]any
// @Failure      409  {object}  map[string]any "duplicate hold / hold conflict"
// @Router       /v1/holds [post]
func (ct *Controller) Place(c echo.Context) error {
	var req PlaceHoldReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := ct.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error"})
	}
	uid, _ := identity(c)

	h, err := ct.Svc.Place(c.Request().Context(), uid, req.BookID)
	if err != nil {
		return respond.Error(c, ct.Log, "place hold", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"hold": h})
}

// PUT /v1/holds/:id/cancel
func (ct *Controller) Cancel(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, role := identity(c)

	if err := ct.Svc.Cancel(c.Request().Context(), uid, role, id); err != nil {
		return respond.Error(c, ct.Log, "cancel hold", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "cancelled"})
}

// PUT /v1/holds/:id/fulfill (staff)
func (ct *Controller) Fulfill(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	l, err := ct.Svc.Fulfill(c.Request().Context(), id)
	if err != nil {
		return respond.Error(c, ct.Log, "fulfill hold", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "fulfilled", "loan": l})
}

// GET /v1/holds/my
func (ct *Controller) My(c echo.Context) error {
	uid, _ := identity(c)
	holds, err := ct.Svc.MyHolds(c.Request().Context(), uid, c.QueryParam("status"))
	if err != nil {
		return respond.Error(c, ct.Log, "my holds", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": holds})
}

// GET /v1/holds/:id
func (ct *Controller) Detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, role := identity(c)

	h, err := ct.Svc.Detail(c.Request().Context(), uid, role, id)
	if err != nil {
		return respond.Error(c, ct.Log, "hold detail", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"hold": h})
}

// GET /v1/books/:id/holds (staff)
func (ct *Controller) Queue(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	holds, err := ct.Svc.Queue(c.Request().Context(), id)
	if err != nil {
		return respond.Error(c, ct.Log, "hold queue", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": holds})
}
