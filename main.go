// Package main library circulation API.
//
// @title           Library Circulation API
// @version         1.0
// @description     Library service (catalog, loans, holds, fines, members).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	echoSwagger "github.com/swaggo/echo-swagger"

	"library/app/echoServer"
	authctrl "library/app/echoServer/controller/auth"
	bookctrl "library/app/echoServer/controller/book"
	finectrl "library/app/echoServer/controller/fine"
	holdctrl "library/app/echoServer/controller/hold"
	loanctrl "library/app/echoServer/controller/loan"
	memberctrl "library/app/echoServer/controller/member"
	notificationctrl "library/app/echoServer/controller/notification"
	statsctrl "library/app/echoServer/controller/stats"
	"library/app/echoServer/validation"
	"library/config"
	bookrepo "library/repository/book"
	finerepo "library/repository/fine"
	holdrepo "library/repository/hold"
	loanrepo "library/repository/loan"
	notificationrepo "library/repository/notification"
	"library/repository/notifier"
	statsrepo "library/repository/stats"
	userrepo "library/repository/user"
	authsvc "library/service/auth"
	booksvc "library/service/book"
	finesvc "library/service/fine"
	holdsvc "library/service/hold"
	loansvc "library/service/loan"
	membersvc "library/service/member"
	notificationsvc "library/service/notification"
	statssvc "library/service/stats"
	"library/util/clock"
	"library/util/database"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	clk := clock.System()

	// repos
	ur := userrepo.New(db)
	br := bookrepo.New(db)
	lr := loanrepo.New(db)
	hr := holdrepo.New(db)
	fr := finerepo.New(db)
	nr := notificationrepo.New(db)
	sr := statsrepo.New(db)
	out := notifier.NewHTTP(cfg.NotifyWebhookURL)

	// services; the hold service doubles as the loan service's promoter
	as := authsvc.New(ur, cfg.JWTSecret, cfg.JWTTTLHours)
	bs := booksvc.New(db, br)
	hs := holdsvc.New(db, hr, lr, br, fr, nr, clk, cfg.Policy)
	ls := loansvc.New(db, lr, br, hr, fr, nr, hs, clk, cfg.Policy)
	fs := finesvc.New(db, fr, nr, clk)
	ms := membersvc.New(ur)
	ns := notificationsvc.New(nr, out, clk)
	ss := statssvc.New(sr, clk)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	loanC := &loanctrl.Controller{Svc: ls, V: v, Log: log}
	holdC := &holdctrl.Controller{Svc: hs, V: v, Log: log}
	fineC := &finectrl.Controller{Svc: fs, V: v, Log: log, Ceiling: cfg.Policy.FineCeiling}
	memberC := &memberctrl.Controller{Svc: ms, V: v, Log: log}
	notifC := &notificationctrl.Controller{Svc: ns, Log: log}
	statsC := &statsctrl.Controller{Svc: ss, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:         authC,
		Book:         bookC,
		Loan:         loanC,
		Hold:         holdC,
		Fine:         fineC,
		Member:       memberC,
		Notification: notifC,
		Stats:        statsC,

		JWTSecret: cfg.JWTSecret,
	})

	// circulation jobs: overdue flagging, hold expiry, notification delivery
	cr := cron.New()
	if _, err := cr.AddFunc("@hourly", func() {
		if n, err := ls.MarkOverdue(context.Background()); err != nil {
			log.Error("overdue sweep failed", "err", err)
		} else if n > 0 {
			log.Info("overdue sweep", "flagged", n)
		}
	}); err != nil {
		log.Error("cron schedule failed", "err", err)
		os.Exit(1)
	}
	if _, err := cr.AddFunc("@every 15m", func() {
		if n, err := hs.ExpireSweep(context.Background()); err != nil {
			log.Error("hold expiry failed", "err", err)
		} else if n > 0 {
			log.Info("hold expiry", "expired", n)
		}
	}); err != nil {
		log.Error("cron schedule failed", "err", err)
		os.Exit(1)
	}
	if _, err := cr.AddFunc("@every 1m", func() {
		if n, err := ns.Dispatch(context.Background()); err != nil {
			log.Error("notification dispatch failed", "err", err)
		} else if n > 0 {
			log.Info("notification dispatch", "delivered", n)
		}
	}); err != nil {
		log.Error("cron schedule failed", "err", err)
		os.Exit(1)
	}
	cr.Start()
	defer cr.Stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	slog.Info("starting server", "port", port)

	e.Logger.Fatal(e.Start(":" + port))
}
