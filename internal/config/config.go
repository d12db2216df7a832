package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL string

	JWTIssuer    string
	JWTAudience  string
	JWTSecret    string
	SessionTTL   time.Duration
	ResetTTL     time.Duration
	OTPTTL       time.Duration
	OTPLength    int
	BcryptCost   int
	ResetBaseURL string

	MailDriver     string
	MailFrom       string
	MailSenderName string
	MailTimeout    time.Duration
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPTimeout    time.Duration
	AMQPURL        string
	AMQPMailQueue  string

	CORSAllowedOrigins  []string
	AuthRateLimitPerMin int
	APIRateLimitPerMin  int

	RateLimitRedisEnabled bool
	RateLimitRedisPrefix  string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int

	ReadinessProbeTimeout   time.Duration
	ServerStartGracePeriod  time.Duration
	ShutdownTimeout         time.Duration
	ShutdownHTTPDrain       time.Duration
	ShutdownObservability   time.Duration
	SeedDevUserEmail        string
	SeedDevUserPassword     string
	PrometheusEnabled       bool
	GraphQLMaxRequestBytes  int64
	GraphQLIntrospection    bool
	GraphQLAllowGETRequests bool

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

// LoadEnvFile reads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func Load() (*Config, error) {
	if err := LoadEnvFile(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}
	env := getEnv("APP_ENV", "development")
	port := getEnv("HTTP_PORT", "4000")

	cfg := &Config{
		Env:                     env,
		HTTPPort:                port,
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		JWTIssuer:               getEnv("JWT_ISSUER", "otp-account-service"),
		JWTAudience:             getEnv("JWT_AUDIENCE", "otp-account-service-api"),
		JWTSecret:               os.Getenv("JWT_SECRET"),
		OTPLength:               getEnvInt("OTP_LENGTH", 6),
		BcryptCost:              getEnvInt("BCRYPT_COST", 10),
		ResetBaseURL:            getEnv("PASSWORD_RESET_BASE_URL", "http://localhost:"+port+"/reset-password"),
		MailDriver:              strings.ToLower(getEnv("MAIL_DRIVER", "log")),
		MailFrom:                getEnv("MAIL_FROM", "no-reply@localhost"),
		MailSenderName:          getEnv("MAIL_SENDER_NAME", "Account Service"),
		SMTPHost:                os.Getenv("SMTP_HOST"),
		SMTPPort:                getEnvInt("SMTP_PORT", 587),
		SMTPUsername:            os.Getenv("SMTP_USERNAME"),
		SMTPPassword:            os.Getenv("SMTP_PASSWORD"),
		AMQPURL:                 os.Getenv("AMQP_URL"),
		AMQPMailQueue:           getEnv("AMQP_MAIL_QUEUE", "mail.outbound"),
		CORSAllowedOrigins:      splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AuthRateLimitPerMin:     getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:      getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		RateLimitRedisEnabled:   getEnvBool("RATE_LIMIT_REDIS_ENABLED", false),
		RateLimitRedisPrefix:    getEnv("RATE_LIMIT_REDIS_PREFIX", "rl"),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 getEnvInt("REDIS_DB", 0),
		SeedDevUserEmail:        strings.TrimSpace(strings.ToLower(os.Getenv("SEED_DEV_USER_EMAIL"))),
		SeedDevUserPassword:     os.Getenv("SEED_DEV_USER_PASSWORD"),
		PrometheusEnabled:       getEnvBool("PROMETHEUS_ENABLED", true),
		GraphQLMaxRequestBytes:  int64(getEnvInt("GRAPHQL_MAX_REQUEST_BYTES", 1<<20)),
		GraphQLIntrospection:    getEnvBool("GRAPHQL_INTROSPECTION_ENABLED", isLocalLikeEnv(env)),
		GraphQLAllowGETRequests: getEnvBool("GRAPHQL_ALLOW_GET", true),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "otp-account-service"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", !isLocalLikeEnv(env)),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", !isLocalLikeEnv(env)),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", !isLocalLikeEnv(env)),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"SESSION_TOKEN_TTL", "1h", &cfg.SessionTTL},
		{"RESET_TOKEN_TTL", "15m", &cfg.ResetTTL},
		{"OTP_TTL", "10m", &cfg.OTPTTL},
		{"MAIL_SEND_TIMEOUT", "10s", &cfg.MailTimeout},
		{"SMTP_TIMEOUT", "10s", &cfg.SMTPTimeout},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SERVER_START_GRACE_PERIOD", "0s", &cfg.ServerStartGracePeriod},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrain},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservability},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 chars")
	}
	if port, err := strconv.Atoi(c.HTTPPort); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, "HTTP_PORT must be a valid TCP port")
	}
	if c.SessionTTL <= 0 || c.SessionTTL > 24*time.Hour {
		errs = append(errs, "SESSION_TOKEN_TTL must be between 1s and 24h")
	}
	if c.ResetTTL <= 0 || c.ResetTTL > time.Hour {
		errs = append(errs, "RESET_TOKEN_TTL must be between 1s and 1h")
	}
	if c.OTPTTL <= 0 {
		errs = append(errs, "OTP_TTL must be > 0")
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		errs = append(errs, "OTP_LENGTH must be between 4 and 10")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, "BCRYPT_COST must be between 4 and 31")
	}
	if u, err := url.Parse(c.ResetBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "PASSWORD_RESET_BASE_URL must be an absolute URL")
	}
	switch c.MailDriver {
	case "log":
	case "smtp":
		if c.SMTPHost == "" {
			errs = append(errs, "SMTP_HOST is required when MAIL_DRIVER=smtp")
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			errs = append(errs, "SMTP_PORT must be a valid TCP port")
		}
	case "amqp":
		if c.AMQPURL == "" {
			errs = append(errs, "AMQP_URL is required when MAIL_DRIVER=amqp")
		}
		if c.AMQPMailQueue == "" {
			errs = append(errs, "AMQP_MAIL_QUEUE is required when MAIL_DRIVER=amqp")
		}
	default:
		errs = append(errs, "MAIL_DRIVER must be one of log, smtp, amqp")
	}
	if !isLocalLikeEnv(c.Env) && c.MailDriver == "log" {
		errs = append(errs, "MAIL_DRIVER=log is only allowed in local environments")
	}
	if c.MailTimeout <= 0 {
		errs = append(errs, "MAIL_SEND_TIMEOUT must be > 0")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.RateLimitRedisEnabled && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when RATE_LIMIT_REDIS_ENABLED=true")
	}
	if c.GraphQLMaxRequestBytes <= 0 {
		errs = append(errs, "GRAPHQL_MAX_REQUEST_BYTES must be > 0")
	}
	if c.ReadinessProbeTimeout <= 0 {
		errs = append(errs, "READINESS_PROBE_TIMEOUT must be > 0")
	}
	if c.ServerStartGracePeriod < 0 {
		errs = append(errs, "SERVER_START_GRACE_PERIOD must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.ShutdownHTTPDrain <= 0 || c.ShutdownHTTPDrain > c.ShutdownTimeout {
		errs = append(errs, "SHUTDOWN_HTTP_DRAIN_TIMEOUT must be > 0 and <= SHUTDOWN_TIMEOUT")
	}
	if c.ShutdownObservability <= 0 {
		errs = append(errs, "SHUTDOWN_OBSERVABILITY_TIMEOUT must be > 0")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// IsLocal reports whether APP_ENV names a developer or test environment.
func (c *Config) IsLocal() bool { return isLocalLikeEnv(c.Env) }

func isLocalLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev", "local", "test":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
