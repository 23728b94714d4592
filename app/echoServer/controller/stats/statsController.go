package stats

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"library/app/echoServer/respond"
	statssvc "library/service/stats"
)

type Controller struct {
	Svc statssvc.Service
	Log *slog.Logger
}

// GET /v1/stats (staff)
func (ct *Controller) Overview(c echo.Context) error {
	o, err := ct.Svc.Overview(c.Request().Context())
	if err != nil {
		return respond.Error(c, ct.Log, "stats overview", err)
	}
	return c.JSON(http.StatusOK, o)
}
