package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 应用配置
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string
	APIKey    string
	// AuthEnabled toggles the X-API-Key / bearer token check on the API group.
	AuthEnabled bool
	GinMode     string

	LogLevel  string
	LogFormat string

	RateLimitPerMinute int

	// AutoStepInterval is the wall-clock cadence of the auto-advance driver.
	// Zero disables the driver.
	AutoStepInterval time.Duration
	AutoStepMinutes  int

	Tracing TracingConfig
}

// TracingConfig governs how step tracing is initialised.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string // stdout | otlp
	Endpoint    string // used when Exporter == otlp
	SampleRatio float64
}

// Load 加载配置
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/simulation/simulation.db"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "your-secret-key-change-in-production"
	}

	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		apiKey = "your-secret-api-key-change-this"
	}

	return &Config{
		Port:               port,
		DBPath:             dbPath,
		JWTSecret:          jwtSecret,
		APIKey:             apiKey,
		AuthEnabled:        envBool("AUTH_ENABLED", true),
		GinMode:            os.Getenv("GIN_MODE"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		LogFormat:          os.Getenv("LOG_FORMAT"),
		RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 600),
		AutoStepInterval:   envDuration("AUTO_STEP_INTERVAL", 0),
		AutoStepMinutes:    envInt("AUTO_STEP_MINUTES", 1),
		Tracing:            tracingFromEnv(),
	}
}

func tracingFromEnv() TracingConfig {
	exporter := strings.ToLower(os.Getenv("TRACING_EXPORTER"))
	if exporter == "" {
		exporter = "stdout"
	}
	service := os.Getenv("TRACING_SERVICE_NAME")
	if service == "" {
		service = "railsim-backend"
	}

	ratio := 1.0
	if raw := os.Getenv("TRACING_SAMPLE_RATIO"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed >= 0 && parsed <= 1 {
			ratio = parsed
		}
	}

	return TracingConfig{
		Enabled:     envBool("TRACING_ENABLED", false),
		ServiceName: service,
		Exporter:    exporter,
		Endpoint:    os.Getenv("OTLP_ENDPOINT"),
		SampleRatio: ratio,
	}
}

func envBool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// envDuration accepts Go duration strings ("30s") or a bare number of seconds.
func envDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
