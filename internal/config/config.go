package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	environment := GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(logrus.DebugLevel)
	case "production":
		log.SetLevel(logrus.ErrorLevel)
	default:
		// Default to info level for other environments
		log.SetLevel(logrus.InfoLevel)
	}
}

// Config used for the application configuration, loading the input from environment variables
type Config struct {
	// Server Configuration
	Port           int      `json:"port"`
	Host           string   `json:"host"`
	Environment    string   `json:"environment"`
	AllowedOrigins []string `json:"allowed_origins"`

	// Database configuration
	DBDriver    string `json:"db_driver"`
	DatabaseURL string `json:"database_url"`
	DBPath      string `json:"db_path"`
	DBHost      string `json:"db_host"`
	DBPort      string `json:"db_port"`
	DBName      string `json:"db_name"`
	DBUser      string `json:"db_user"`
	DBPassword  string `json:"db_password"`
	DBSSLMode   string `json:"db_ssl_mode"`

	// Logging configuration
	LogLevel string `json:"log_level"`

	// Security Configuration
	JWTSecret     string `json:"jwt_secret"`
	SessionSecret string `json:"session_secret"`

	// Payment configuration
	Currency              string `json:"currency"`
	PaymentSuccessURL     string `json:"payment_success_url"`
	PaymentFailureURL     string `json:"payment_failure_url"`
	GatewayTimeoutSeconds int    `json:"gateway_timeout_seconds"`
	StripeBaseURL         string `json:"stripe_base_url"`
	StripeSecretKey       string `json:"stripe_secret_key"`
	SSLCommerzBaseURL     string `json:"sslcommerz_base_url"`
	SSLCommerzStoreID     string `json:"sslcommerz_store_id"`
	SSLCommerzStorePass   string `json:"sslcommerz_store_pass"`

	// Notification configuration
	SESEnabled         bool   `json:"ses_enabled"`
	AWSRegion          string `json:"aws_region"`
	AWSAccessKeyID     string `json:"aws_access_key_id"`
	AWSSecretAccessKey string `json:"aws_secret_access_key"`
	SenderEmail        string `json:"sender_email"`

	// Messaging configuration
	AMQPURL string `json:"amqp_url"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %d, Host: %s, Environment: %s, DBDriver: %s, DatabaseURL: %s, DBPath: %s, DBHost: %s, DBName: %s, DBUser: %s, DBPassword: [REDACTED], "+
		"LogLevel: %s, JWTSecret: [REDACTED], SessionSecret: [REDACTED], Currency: %s, GatewayTimeoutSeconds: %d, StripeSecretKey: %s, "+
		"SSLCommerzStoreID: %s, SSLCommerzStorePass: %s, SESEnabled: %t, AWSRegion: %s, AWSSecretAccessKey: %s, SenderEmail: %s, AMQPURL: %s}",
		c.Port, c.Host, c.Environment, c.DBDriver, maskURL(c.DatabaseURL), c.DBPath, c.DBHost, c.DBName, c.DBUser,
		c.LogLevel, c.Currency, c.GatewayTimeoutSeconds, redactIfSet(c.StripeSecretKey),
		c.SSLCommerzStoreID, redactIfSet(c.SSLCommerzStorePass), c.SESEnabled, c.AWSRegion, redactIfSet(c.AWSSecretAccessKey), c.SenderEmail, maskURL(c.AMQPURL))
}

// GatewayTimeout returns the gateway initialization timeout
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.GatewayTimeoutSeconds) * time.Second
}

// maskURL masks the password of a connection URL
func maskURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "[REDACTED_INVALID_URL]"
	}

	if parsed.User != nil {
		// Replace password with [REDACTED]
		parsed.User = url.UserPassword(parsed.User.Username(), "[REDACTED]")
	}

	return parsed.String()
}

func redactIfSet(value string) string {
	if value == "" {
		return ""
	}
	return "[REDACTED]"
}

// LoadConfig read the proper configuration from environment variables and returns a Config struct
// It validates the port, the database driver and, when given, the DATABASE_URL and AMQP_URL formats
// Returns an error if any variable is invalid
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	driver := strings.ToLower(GetEnvWithDefault("DB_DRIVER", "sqlite"))
	if driver != "sqlite" && driver != "postgres" && driver != "postgresql" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: sqlite, postgres)", driver)
	}

	dbURL := GetEnvWithDefault("DATABASE_URL", "")
	if dbURL != "" {
		// validate URL with net/url
		if _, err := url.ParseRequestURI(dbURL); err != nil {
			return nil, errors.New("invalid DATABASE_URL format")
		}
	}

	amqpURL := GetEnvWithDefault("AMQP_URL", "")
	if amqpURL != "" {
		if _, err := url.ParseRequestURI(amqpURL); err != nil {
			return nil, errors.New("invalid AMQP_URL format")
		}
	}

	config := &Config{
		Port:           port,
		Host:           GetEnvWithDefault("APP_HOST", "localhost"),
		Environment:    GetEnvWithDefault("APP_ENV", "development"),
		AllowedOrigins: splitList(GetEnvWithDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		DBDriver:    driver,
		DatabaseURL: dbURL,
		DBPath:      GetEnvWithDefault("DB_PATH", "canteen.sqlite"),
		DBHost:      GetEnvWithDefault("DB_HOST", "localhost"),
		DBPort:      GetEnvWithDefault("DB_PORT", "5432"),
		DBName:      GetEnvWithDefault("DB_NAME", "canteen"),
		DBUser:      GetEnvWithDefault("DB_USER", "canteen"),
		DBPassword:  GetEnvWithDefault("DB_PASSWORD", "password"),
		DBSSLMode:   GetEnvWithDefault("DB_SSLMODE", "disable"),

		LogLevel: GetEnvWithDefault("LOG_LEVEL", "info"),

		JWTSecret:     GetEnvWithDefault("JWT_SECRET", "secret"),
		SessionSecret: GetEnvWithDefault("SESSION_SECRET", "canteen-session-secret"),

		Currency:              GetEnvWithDefault("PAYMENT_CURRENCY", "BDT"),
		PaymentSuccessURL:     GetEnvWithDefault("PAYMENT_SUCCESS_URL", "http://localhost:8080/api/v1/public/payments/success"),
		PaymentFailureURL:     GetEnvWithDefault("PAYMENT_FAILURE_URL", "http://localhost:8080/api/v1/public/payments/failure"),
		GatewayTimeoutSeconds: GetEnvAsType("GATEWAY_TIMEOUT_SECONDS", 10),
		StripeBaseURL:         GetEnvWithDefault("STRIPE_BASE_URL", ""),
		StripeSecretKey:       GetEnvWithDefault("STRIPE_SECRET_KEY", ""),
		SSLCommerzBaseURL:     GetEnvWithDefault("SSLCOMMERZ_BASE_URL", ""),
		SSLCommerzStoreID:     GetEnvWithDefault("SSLCOMMERZ_STORE_ID", ""),
		SSLCommerzStorePass:   GetEnvWithDefault("SSLCOMMERZ_STORE_PASSWORD", ""),

		SESEnabled:         GetEnvAsType("SES_ENABLED", false),
		AWSRegion:          GetEnvWithDefault("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     GetEnvWithDefault("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: GetEnvWithDefault("AWS_SECRET_ACCESS_KEY", ""),
		SenderEmail:        GetEnvWithDefault("SENDER_EMAIL", ""),

		AMQPURL: amqpURL,
	}
	if config.GatewayTimeoutSeconds <= 0 {
		return nil, errors.New("GATEWAY_TIMEOUT_SECONDS must be positive")
	}
	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Warnf("Environment variable %s not set, using default value: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}
