package config

type App struct {
	Port             string `env:"APP_PORT" default:"8080"`
	DatabaseURL      string `env:"DATABASE_URL,required"`
	JWTSecret        string `env:"JWT_SECRET,required"`
	JWTTTLHours      int    `env:"JWT_TTL_HOURS" default:"24"`
	Env              string `env:"APP_ENV" default:"dev"`
	NotifyWebhookURL string `env:"NOTIFY_WEBHOOK_URL"`

	Policy Policy
}

// Policy holds the circulation constants. Services receive it explicitly so
// tests can tighten or loosen individual knobs per case.
type Policy struct {
	LoanPeriodDays int     `env:"LOAN_PERIOD_DAYS" default:"14"`
	MaxRenewals    int     `env:"MAX_RENEWALS" default:"2"`
	MaxActiveLoans int     `env:"MAX_ACTIVE_LOANS" default:"5"`
	DailyFineRate  float64 `env:"FINE_DAILY_RATE" default:"0.50"`
	MaxFinePerLoan float64 `env:"FINE_MAX_PER_LOAN" default:"10.00"`
	FineCeiling    float64 `env:"FINE_CEILING" default:"0.00"`
	HoldPickupDays int     `env:"HOLD_PICKUP_DAYS" default:"3"`
}
