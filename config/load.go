package config

import (
	"log/slog"
	"os"
	"strconv"
)

func Load() App {
	cfg := App{
		Port:             getenv("APP_PORT", "8080"),
		DatabaseURL:      must("DATABASE_URL"),
		JWTSecret:        getenv("JWT_SECRET", "local_dev_secret"),
		JWTTTLHours:      getint("JWT_TTL_HOURS", 24),
		Env:              getenv("APP_ENV", "dev"),
		NotifyWebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		Policy:           LoadPolicy(),
	}
	return cfg
}

func LoadPolicy() Policy {
	return Policy{
		LoanPeriodDays: getint("LOAN_PERIOD_DAYS", 14),
		MaxRenewals:    getint("MAX_RENEWALS", 2),
		MaxActiveLoans: getint("MAX_ACTIVE_LOANS", 5),
		DailyFineRate:  getfloat("FINE_DAILY_RATE", 0.50),
		MaxFinePerLoan: getfloat("FINE_MAX_PER_LOAN", 10.00),
		FineCeiling:    getfloat("FINE_CEILING", 0.00),
		HoldPickupDays: getint("HOLD_PICKUP_DAYS", 3),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		slog.Warn("bad int env, using default", "key", k, "value", v)
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		slog.Warn("bad float env, using default", "key", k, "value", v)
	}
	return def
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
