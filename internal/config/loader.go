package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "ROOMBOOKER_"

// Config captures environment driven configuration values for the room booking service.
type Config struct {
	HTTPPort int
	LogLevel slog.Level

	DatabaseDriver string
	DatabaseDSN    string

	JWTSecret string
	JWTTTL    time.Duration
	JWTIssuer string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleCustomer     string

	TokenEncryptionKey string
	AllowedOrigins     []string
	EventLookahead     time.Duration

	MetricsEnabled  bool
	TracingExporter string
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults. Missing required keys and malformed
// values are collected and reported together.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		LogLevel:        slog.LevelInfo,
		DatabaseDriver:  "sqlite",
		DatabaseDSN:     "file:roombooker.db",
		JWTTTL:          24 * time.Hour,
		JWTIssuer:       "room-booker",
		GoogleCustomer:  "my_customer",
		AllowedOrigins:  []string{"*"},
		EventLookahead:  7 * 24 * time.Hour,
		MetricsEnabled:  true,
		TracingExporter: "none",
	}

	missing := make([]string, 0, 4)
	invalid := make([]string, 0, 4)

	if portValue := lookup("HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, envPrefix+"HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if levelValue := lookup("LOG_LEVEL"); levelValue != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, envPrefix+"LOG_LEVEL")
		}
	}

	if driver := lookup("DB_DRIVER"); driver != "" {
		switch strings.ToLower(driver) {
		case "sqlite", "postgres":
			cfg.DatabaseDriver = strings.ToLower(driver)
		default:
			invalid = append(invalid, envPrefix+"DB_DRIVER")
		}
	}

	if dsn := lookup("DB_DSN"); dsn != "" {
		cfg.DatabaseDSN = dsn
	} else if cfg.DatabaseDriver == "postgres" {
		missing = append(missing, envPrefix+"DB_DSN")
	}

	cfg.JWTSecret = require("JWT_SECRET", &missing)
	cfg.GoogleClientID = require("GOOGLE_CLIENT_ID", &missing)
	cfg.GoogleClientSecret = require("GOOGLE_CLIENT_SECRET", &missing)
	cfg.GoogleRedirectURL = require("GOOGLE_REDIRECT_URL", &missing)

	if ttlValue := lookup("JWT_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, envPrefix+"JWT_TTL")
		} else {
			cfg.JWTTTL = ttl
		}
	}

	if issuer := lookup("JWT_ISSUER"); issuer != "" {
		cfg.JWTIssuer = issuer
	}

	if customer := lookup("GOOGLE_CUSTOMER"); customer != "" {
		cfg.GoogleCustomer = customer
	}

	if key := lookup("TOKEN_ENCRYPTION_KEY"); key != "" {
		cfg.TokenEncryptionKey = key
	} else {
		cfg.TokenEncryptionKey = cfg.JWTSecret
	}

	if origins := lookup("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
		if len(cfg.AllowedOrigins) == 0 {
			invalid = append(invalid, envPrefix+"ALLOWED_ORIGINS")
		}
	}

	if lookaheadValue := lookup("EVENT_LOOKAHEAD"); lookaheadValue != "" {
		lookahead, err := time.ParseDuration(lookaheadValue)
		if err != nil || lookahead <= 0 {
			invalid = append(invalid, envPrefix+"EVENT_LOOKAHEAD")
		} else {
			cfg.EventLookahead = lookahead
		}
	}

	if metricsValue := lookup("METRICS_ENABLED"); metricsValue != "" {
		enabled, err := strconv.ParseBool(metricsValue)
		if err != nil {
			invalid = append(invalid, envPrefix+"METRICS_ENABLED")
		} else {
			cfg.MetricsEnabled = enabled
		}
	}

	if exporter := lookup("TRACING_EXPORTER"); exporter != "" {
		switch strings.ToLower(exporter) {
		case "none", "stdout", "otlp":
			cfg.TracingExporter = strings.ToLower(exporter)
		default:
			invalid = append(invalid, envPrefix+"TRACING_EXPORTER")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings. The migrate command uses it so
// schema work does not need OAuth credentials.
func LoadDatabase() (driver, dsn string, err error) {
	driver = "sqlite"
	dsn = "file:roombooker.db"
	if value := lookup("DB_DRIVER"); value != "" {
		switch strings.ToLower(value) {
		case "sqlite", "postgres":
			driver = strings.ToLower(value)
		default:
			return "", "", fmt.Errorf("environment variables have invalid values: %sDB_DRIVER", envPrefix)
		}
	}
	if value := lookup("DB_DSN"); value != "" {
		dsn = value
	} else if driver == "postgres" {
		return "", "", fmt.Errorf("required environment variables are not set: %sDB_DSN", envPrefix)
	}
	return driver, dsn, nil
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func require(key string, missing *[]string) string {
	value := lookup(key)
	if value == "" {
		*missing = append(*missing, envPrefix+key)
	}
	return value
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
