package notification

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"library/app/echoServer/respond"
	notificationsvc "library/service/notification"
)

type Controller struct {
	Svc notificationsvc.Service
	Log *slog.Logger
}

// GET /v1/notifications/my
func (ct *Controller) My(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	unreadOnly := c.QueryParam("unread_only") == "true"
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	notifs, err := ct.Svc.My(c.Request().Context(), uid, unreadOnly, limit)
	if err != nil {
		return respond.Error(c, ct.Log, "my notifications", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": notifs})
}

// PUT /v1/notifications/:id/read
func (ct *Controller) MarkRead(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	if err := ct.Svc.MarkRead(c.Request().Context(), uid, id); err != nil {
		return respond.Error(c, ct.Log, "mark read", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "read"})
}

// PUT /v1/notifications/read-all
func (ct *Controller) MarkAllRead(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)

	n, err := ct.Svc.MarkAllRead(c.Request().Context(), uid)
	if err != nil {
		return respond.Error(c, ct.Log, "mark all read", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}
