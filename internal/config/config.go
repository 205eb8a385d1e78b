package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultTimezone       = "Europe/Kyiv"
	DefaultHTTPAddr       = "0.0.0.0:8080"
	DefaultCurrencySymbol = "DAY"
	DefaultReminderCron   = "0 20 * * *"
	DefaultDidntSendCron  = "0 10 * * *"
)

// Config holds every runtime setting of the service
type Config struct {
	MongoURI      string `validate:"required"`
	MongoDatabase string `validate:"required"`

	TelegramBotToken string
	TelegramApp      string
	AppURL           string `validate:"omitempty,url"`

	JWTSecret     string `validate:"required"`
	PrivateAPIKey string

	BalanceAPIURL  string `validate:"omitempty,url"`
	CurrencySymbol string `validate:"required"`

	DefaultTimezone  string `validate:"required"`
	NonReportingDays []time.Weekday

	ReminderCron  string
	DidntSendCron string

	HTTPAddr string `validate:"required"`
	LogLevel string `validate:"omitempty,oneof=debug info warn error"`
	LogJSON  bool
}

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	// Missing .env is fine in containers
	_ = godotenv.Load()

	days, err := ParseWeekdays(getEnv("NON_REPORTING_DAYS", "saturday,sunday"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:    getEnv("MONGO_DATABASE", "coach"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramApp:      os.Getenv("TELEGRAM_APP"),
		AppURL:           os.Getenv("APP_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		PrivateAPIKey:    os.Getenv("PRIVATE_API_KEY"),
		BalanceAPIURL:    os.Getenv("BALANCE_API_URL"),
		CurrencySymbol:   getEnv("CURRENCY_SYMBOL", DefaultCurrencySymbol),
		DefaultTimezone:  getEnv("DEFAULT_TIMEZONE", DefaultTimezone),
		NonReportingDays: days,
		ReminderCron:     getEnv("REMINDER_CRON", DefaultReminderCron),
		DidntSendCron:    getEnv("DIDNT_SEND_CRON", DefaultDidntSendCron),
		HTTPAddr:         getEnv("HTTP_ADDR", DefaultHTTPAddr),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	if raw := os.Getenv("LOG_JSON"); raw != "" {
		cfg.LogJSON, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_JSON: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", c.DefaultTimezone, err)
	}
	return nil
}

// IsNonReportingDay reports whether receivers should not get reports on this weekday
func (c *Config) IsNonReportingDay(day time.Weekday) bool {
	for _, d := range c.NonReportingDays {
		if d == day {
			return true
		}
	}
	return false
}

// ParseWeekdays parses a comma separated list like "saturday,sun"
func ParseWeekdays(raw string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		found := false
		for d := time.Sunday; d <= time.Saturday; d++ {
			name := strings.ToLower(d.String())
			if part == name || part == name[:3] {
				days = append(days, d)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
	}
	return days, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
