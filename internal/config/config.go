package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"

	MailTransportSMTP  = "smtp"
	MailTransportKafka = "kafka"
	MailTransportLog   = "log"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	Port           string
	AppEnv         string
	LogLevel       string
	AllowedOrigins []string // CORS allowed origins

	Database     Database
	Cache        Cache
	JWT          JWT
	Verification Verification
	Mail         Mail
	Kafka        Kafka
	RateLimit    RateLimit
}

type Database struct {
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	AutoMigrate bool
}

type Cache struct {
	Driver        string // "redis" | "memory"
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
}

func (c Cache) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

type JWT struct {
	Secret string
	Expiry time.Duration
}

type Verification struct {
	RegistrationTTL      time.Duration
	ResetTTL             time.Duration
	VerifiedEmailTTL     time.Duration
	RequireVerifiedEmail bool
}

type Mail struct {
	Transport    string // "smtp" | "kafka" | "log"
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	From         string
}

type Kafka struct {
	Brokers   []string
	MailTopic string
	GroupID   string
	Username  string
	Password  string
}

type RateLimit struct {
	RPS   float64
	Burst int
	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-Ip. Enable only behind a proxy that overwrites them.
	TrustProxy bool
}

var defaults = map[string]interface{}{
	"PORT":                   "3001",
	"APP_ENV":                "development",
	"LOG_LEVEL":              "info",
	"ALLOWED_ORIGINS":        "*",
	"DB_HOST":                "localhost",
	"DB_PORT":                3306,
	"DB_USER":                "root",
	"DB_PASSWORD":            "",
	"DB_NAME":                "quiz_platform",
	"DB_AUTO_MIGRATE":        true,
	"CACHE_DRIVER":           CacheDriverRedis,
	"REDIS_HOST":             "localhost",
	"REDIS_PORT":             6379,
	"REDIS_PASSWORD":         "",
	"REDIS_DB":               0,
	"JWT_SECRET":             "",
	"JWT_EXPIRE":             "24h",
	"REGISTRATION_CODE_TTL":  "300s",
	"RESET_CODE_TTL":         "600s",
	"VERIFIED_EMAIL_TTL":     "30m",
	"REQUIRE_VERIFIED_EMAIL": true,
	"MAIL_TRANSPORT":         MailTransportSMTP,
	"SMTP_HOST":              "localhost",
	"SMTP_PORT":              "587",
	"SMTP_USER":              "",
	"SMTP_PASSWORD":          "",
	"EMAIL_FROM":             "noreply@quizhub.local",
	"KAFKA_BROKERS":          "",
	"KAFKA_MAIL_TOPIC":       "mail.outbound",
	"KAFKA_GROUP_ID":         "mail-worker",
	"KAFKA_USERNAME":         "",
	"KAFKA_PASSWORD":         "",
	"RATE_LIMIT_RPS":         5.0,
	"RATE_LIMIT_BURST":       10,
	"TRUST_PROXY_HEADERS":    false,
}

// Load reads configuration from the environment. Call godotenv.Load first
// to pick up a local .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	jwtExpiry, err := parseDuration(v.GetString("JWT_EXPIRE"))
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRE: %w", err)
	}
	regTTL, err := parseDuration(v.GetString("REGISTRATION_CODE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("REGISTRATION_CODE_TTL: %w", err)
	}
	resetTTL, err := parseDuration(v.GetString("RESET_CODE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("RESET_CODE_TTL: %w", err)
	}
	verifiedTTL, err := parseDuration(v.GetString("VERIFIED_EMAIL_TTL"))
	if err != nil {
		return nil, fmt.Errorf("VERIFIED_EMAIL_TTL: %w", err)
	}

	return &Config{
		Port:           v.GetString("PORT"),
		AppEnv:         v.GetString("APP_ENV"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		Database: Database{
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetInt("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			Name:        v.GetString("DB_NAME"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		Cache: Cache{
			Driver:        strings.ToLower(v.GetString("CACHE_DRIVER")),
			RedisHost:     v.GetString("REDIS_HOST"),
			RedisPort:     v.GetInt("REDIS_PORT"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWT{
			Secret: v.GetString("JWT_SECRET"),
			Expiry: jwtExpiry,
		},
		Verification: Verification{
			RegistrationTTL:      regTTL,
			ResetTTL:             resetTTL,
			VerifiedEmailTTL:     verifiedTTL,
			RequireVerifiedEmail: v.GetBool("REQUIRE_VERIFIED_EMAIL"),
		},
		Mail: Mail{
			Transport:    strings.ToLower(v.GetString("MAIL_TRANSPORT")),
			SMTPHost:     v.GetString("SMTP_HOST"),
			SMTPPort:     v.GetString("SMTP_PORT"),
			SMTPUsername: v.GetString("SMTP_USER"),
			SMTPPassword: v.GetString("SMTP_PASSWORD"),
			From:         v.GetString("EMAIL_FROM"),
		},
		Kafka: Kafka{
			Brokers:   splitList(v.GetString("KAFKA_BROKERS")),
			MailTopic: v.GetString("KAFKA_MAIL_TOPIC"),
			GroupID:   v.GetString("KAFKA_GROUP_ID"),
			Username:  v.GetString("KAFKA_USERNAME"),
			Password:  v.GetString("KAFKA_PASSWORD"),
		},
		RateLimit: RateLimit{
			RPS:        v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:      v.GetInt("RATE_LIMIT_BURST"),
			TrustProxy: v.GetBool("TRUST_PROXY_HEADERS"),
		},
	}, nil
}

// Validate checks the settings the API server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.Expiry <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRE must be positive"))
	}
	switch c.Cache.Driver {
	case CacheDriverRedis, CacheDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_DRIVER %q", c.Cache.Driver))
	}
	switch c.Mail.Transport {
	case MailTransportSMTP, MailTransportLog:
	case MailTransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required when MAIL_TRANSPORT=kafka"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_TRANSPORT %q", c.Mail.Transport))
	}
	if c.Verification.RegistrationTTL <= 0 || c.Verification.ResetTTL <= 0 {
		errs = append(errs, errors.New("verification code TTLs must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

// parseDuration accepts Go durations ("90s", "24h"), a day count ("7d"),
// or a bare number of seconds ("300").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
