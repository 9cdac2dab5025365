// README: Config loader with env defaults for HTTP, Firebase, Redis, Postgres, Kafka, matching and ride settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type MatchingConfig struct {
	RadiusKm    float64
	NotifyLimit int
	// GeoIndex selects the nearby-driver strategy: scan, geohash or redis.
	GeoIndex string
}

type RideConfig struct {
	TTL            time.Duration
	AcceptAttempts int
	SweepInterval  time.Duration
	PendingLimit   int
}

type FareConfig struct {
	Default  float64
	PerKm    float64
	Currency string
}

type SubscriptionConfig struct {
	DriverAmount float64
	ParentAmount float64
	PeriodDays   int
}

type NotifyConfig struct {
	Timeout     time.Duration
	Concurrency int
}

type Config struct {
	Env      string
	LogLevel string
	HTTP     struct {
		Addr string
	}
	Firebase struct {
		ProjectID       string
		CredentialsFile string
	}
	Auth struct {
		AllowCustomTokens bool
		OTPTTL            time.Duration
		OTPAcceptAny      bool
	}
	Maps struct {
		APIKey string
	}
	Redis struct {
		Addr string
	}
	DB struct {
		DSN string
	}
	Kafka struct {
		Brokers []string
		Topic   string
	}
	NewRelic struct {
		License string
		AppName string
	}
	Matching     MatchingConfig
	Ride         RideConfig
	Fare         FareConfig
	Subscription SubscriptionConfig
	Notify       NotifyConfig
}

func (c Config) Production() bool {
	return c.Env == "production"
}

func Load() (Config, error) {
	var cfg Config
	var p parser

	cfg.Env = envOrDefault("LONDA_ENV", "development")
	cfg.LogLevel = envOrDefault("LONDA_LOG_LEVEL", "info")
	cfg.HTTP.Addr = envOrDefault("LONDA_HTTP_ADDR", ":8080")

	cfg.Firebase.ProjectID = os.Getenv("LONDA_FIREBASE_PROJECT_ID")
	cfg.Firebase.CredentialsFile = os.Getenv("LONDA_FIREBASE_CREDENTIALS_FILE")

	cfg.Auth.AllowCustomTokens = p.bool("LONDA_AUTH_ALLOW_CUSTOM_TOKENS", false)
	cfg.Auth.OTPTTL = p.duration("LONDA_OTP_TTL", 5*time.Minute)
	cfg.Auth.OTPAcceptAny = p.bool("LONDA_OTP_ACCEPT_ANY", false)

	cfg.Maps.APIKey = os.Getenv("LONDA_MAPS_API_KEY")
	cfg.Redis.Addr = envOrDefault("LONDA_REDIS_ADDR", "localhost:6379")
	cfg.DB.DSN = os.Getenv("LONDA_DB_DSN")

	cfg.Kafka.Brokers = splitList(os.Getenv("LONDA_KAFKA_BROKERS"))
	cfg.Kafka.Topic = envOrDefault("LONDA_KAFKA_TOPIC", "ride-events")

	cfg.NewRelic.License = os.Getenv("LONDA_NEWRELIC_LICENSE")
	cfg.NewRelic.AppName = envOrDefault("LONDA_NEWRELIC_APP", "londa-api")

	cfg.Matching.RadiusKm = p.float("LONDA_MATCH_RADIUS_KM", 5.0)
	cfg.Matching.NotifyLimit = p.int("LONDA_MATCH_NOTIFY_LIMIT", 20)
	cfg.Matching.GeoIndex = envOrDefault("LONDA_GEO_INDEX", "scan")

	cfg.Ride.TTL = p.duration("LONDA_RIDE_TTL", 10*time.Minute)
	cfg.Ride.AcceptAttempts = p.int("LONDA_RIDE_ACCEPT_ATTEMPTS", 5)
	cfg.Ride.SweepInterval = p.duration("LONDA_RIDE_SWEEP_INTERVAL", time.Minute)
	cfg.Ride.PendingLimit = p.int("LONDA_RIDE_PENDING_LIMIT", 50)

	cfg.Fare.Default = p.float("LONDA_FARE_DEFAULT", 13.00)
	cfg.Fare.PerKm = p.float("LONDA_FARE_PER_KM", 0)
	cfg.Fare.Currency = envOrDefault("LONDA_FARE_CURRENCY", "NAD")

	cfg.Subscription.DriverAmount = p.float("LONDA_SUB_DRIVER_AMOUNT", 150)
	cfg.Subscription.ParentAmount = p.float("LONDA_SUB_PARENT_AMOUNT", 1000)
	cfg.Subscription.PeriodDays = p.int("LONDA_SUB_PERIOD_DAYS", 30)

	cfg.Notify.Timeout = p.duration("LONDA_NOTIFY_TIMEOUT", 10*time.Second)
	cfg.Notify.Concurrency = p.int("LONDA_NOTIFY_CONCURRENCY", 8)

	p.check(cfg.validate()...)
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() []error {
	var errs []error
	if c.Firebase.ProjectID == "" {
		errs = append(errs, errors.New("LONDA_FIREBASE_PROJECT_ID is required"))
	}
	switch c.Matching.GeoIndex {
	case "scan", "geohash", "redis":
	default:
		errs = append(errs, fmt.Errorf("LONDA_GEO_INDEX: unknown index %q", c.Matching.GeoIndex))
	}
	if c.Matching.RadiusKm <= 0 {
		errs = append(errs, errors.New("LONDA_MATCH_RADIUS_KM must be positive"))
	}
	if c.Ride.AcceptAttempts < 1 {
		errs = append(errs, errors.New("LONDA_RIDE_ACCEPT_ATTEMPTS must be at least 1"))
	}
	if c.Production() && (c.Auth.AllowCustomTokens || c.Auth.OTPAcceptAny) {
		errs = append(errs, errors.New("development auth shortcuts cannot be enabled in production"))
	}
	return errs
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parser collects malformed values so Load can report all of them at once.
type parser struct {
	errs []error
}

func (p *parser) check(errs ...error) {
	p.errs = append(p.errs, errs...)
}

func (p *parser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.check(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.check(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.check(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.check(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
