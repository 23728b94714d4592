package member

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"library/app/echoServer/respond"
	"library/model"
	membersvc "library/service/member"
)

type Controller struct {
	Svc membersvc.Service
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

// GET /v1/members (staff)
func (ct *Controller) List(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	activeOnly := c.QueryParam("active_only") == "true"

	users, err := ct.Svc.List(c.Request().Context(), c.QueryParam("search"), activeOnly, offset, limit)
	if err != nil {
		return respond.Error(c, ct.Log, "list members", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": users})
}

// GET /v1/members/:id
func (ct *Controller) Detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, role := identity(c)

	u, err := ct.Svc.Detail(c.Request().Context(), uid, role, id)
	if err != nil {
		return respond.Error(c, ct.Log, "member detail", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"member": u})
}

// PUT /v1/members/:id
func (ct *Controller) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req model.UpdateMemberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	uid, role := identity(c)

	u, err := ct.Svc.Update(c.Request().Context(), uid, role, id, req)
	if err != nil {
		return respond.Error(c, ct.Log, "update member", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"member": u})
}

// DELETE /v1/members/:id (staff)
func (ct *Controller) Deactivate(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := ct.Svc.Deactivate(c.Request().Context(), id); err != nil {
		return respond.Error(c, ct.Log, "deactivate member", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deactivated"})
}

// GET /v1/members/:id/summary
func (ct *Controller) Summary(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, role := identity(c)

	sum, err := ct.Svc.Summary(c.Request().Context(), uid, role, id)
	if err != nil {
		return respond.Error(c, ct.Log, "member summary", err)
	}
	return c.JSON(http.StatusOK, sum)
}
