package echoServer

import (
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"library/app/echoServer/controller/auth"
	"library/app/echoServer/controller/book"
	"library/app/echoServer/controller/fine"
	"library/app/echoServer/controller/hold"
	"library/app/echoServer/controller/loan"
	"library/app/echoServer/controller/member"
	"library/app/echoServer/controller/notification"
	"library/app/echoServer/controller/stats"
	"library/util/permission"
)

type C struct {
	Auth         *auth.Controller
	Book         *book.Controller
	Loan         *loan.Controller
	Hold         *hold.Controller
	Fine         *fine.Controller
	Member       *member.Controller
	Notification *notification.Controller
	Stats        *stats.Controller
	JWTSecret    string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/auth/register", c.Auth.Register)
	pub.POST("/auth/login", c.Auth.Login)

	// Authenticated
	api := e.Group("/v1")
	api.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	api.Use(Identity())

	// Catalog
	api.GET("/books", c.Book.List)
	api.GET("/books/:id", c.Book.Detail)
	api.POST("/books", c.Book.Create, Require(permission.ActionCatalogWrite))
	api.PUT("/books/:id", c.Book.Update, Require(permission.ActionCatalogWrite))
	api.POST("/books/:id/copies", c.Book.AddCopies, Require(permission.ActionCatalogWrite))
	api.DELETE("/books/:id", c.Book.Delete, Require(permission.ActionCatalogDelete))
	api.GET("/books/:id/holds", c.Hold.Queue, Require(permission.ActionHoldViewAll))

	// Loans
	api.POST("/loans", c.Loan.Checkout)
	api.PUT("/loans/:id/renew", c.Loan.Renew)
	api.PUT("/loans/:id/return", c.Loan.Return)
	api.GET("/loans/my", c.Loan.My)
	api.GET("/loans/:id", c.Loan.Detail)
	api.GET("/loans", c.Loan.ListAll, Require(permission.ActionLoanViewAll))

	// Holds
	api.POST("/holds", c.Hold.Place)
	api.PUT("/holds/:id/cancel", c.Hold.Cancel)
	api.PUT("/holds/:id/fulfill", c.Hold.Fulfill, Require(permission.ActionHoldFulfill))
	api.GET("/holds/my", c.Hold.My)
	api.GET("/holds/:id", c.Hold.Detail)

	// Fines
	api.POST("/fines/:id/pay", c.Fine.Pay)
	api.PUT("/fines/:id/waive", c.Fine.Waive, Require(permission.ActionFineWaive))
	api.POST("/fines", c.Fine.Charge, Require(permission.ActionFineCharge))
	api.GET("/fines/my", c.Fine.My)
	api.GET("/fines/my/summary", c.Fine.Summary)
	api.GET("/fines/:id", c.Fine.Detail)
	api.GET("/fines", c.Fine.ListAll, Require(permission.ActionFineViewAll))

	// Members
	api.GET("/members", c.Member.List, Require(permission.ActionMemberManage))
	api.GET("/members/:id", c.Member.Detail)
	api.PUT("/members/:id", c.Member.Update)
	api.DELETE("/members/:id", c.Member.Deactivate, Require(permission.ActionMemberManage))
	api.GET("/members/:id/summary", c.Member.Summary)

	// Notifications
	api.GET("/notifications/my", c.Notification.My)
	api.PUT("/notifications/:id/read", c.Notification.MarkRead)
	api.PUT("/notifications/read-all", c.Notification.MarkAllRead)

	// Staff dashboard
	api.GET("/stats", c.Stats.Overview, Require(permission.ActionStatsView))
}
