package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	typedconfig "github.com/guidsdo/typed-configs"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Config aggregates the runtime settings of configdoc.
// Precedence: CLI flags > Environment variables > YAML settings file > Defaults
type Config struct {
	Port                 string
	LogLevel             string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	SettingsFile   string
	Port           *string
	LogLevel       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

var (
	settings = typedconfig.NewClass("ConfigdocSettings")

	port = typedconfig.MustDeclare[string](settings, "port", typedconfig.FieldOptions{
		Name:        "CONFIGDOC_PORT",
		Description: "HTTP port or address the inspection API listens on.",
		Required:    true,
		Default:     defaultPort,
	})
	logLevel = typedconfig.MustDeclare[string](settings, "logLevel", typedconfig.FieldOptions{
		Name:           "CONFIGDOC_LOG_LEVEL",
		Description:    "Minimum level of emitted log entries.",
		Default:        "info",
		PossibleValues: []any{"debug", "info", "warn", "error"},
	})
	shutdownGracePeriod = typedconfig.MustDeclare[string](settings, "shutdownGracePeriod", typedconfig.FieldOptions{
		Name:        "CONFIGDOC_SHUTDOWN_GRACE_PERIOD",
		Description: "Time allowed for in-flight requests on shutdown, as a Go duration.",
		Default:     "10s",
		Validate:    validateDuration,
	})
	readHeaderTimeout = typedconfig.MustDeclare[string](settings, "readHeaderTimeout", typedconfig.FieldOptions{
		Name:        "CONFIGDOC_READ_HEADER_TIMEOUT",
		Description: "Maximum time to read request headers, as a Go duration.",
		Default:     "5s",
		Validate:    validateDuration,
	})
	writeTimeout = typedconfig.MustDeclare[string](settings, "writeTimeout", typedconfig.FieldOptions{
		Name:        "CONFIGDOC_WRITE_TIMEOUT",
		Description: "Maximum time to write a response, as a Go duration.",
		Default:     "15s",
		Validate:    validateDuration,
	})
	idleTimeout = typedconfig.MustDeclare[string](settings, "idleTimeout", typedconfig.FieldOptions{
		Name:        "CONFIGDOC_IDLE_TIMEOUT",
		Description: "Keep-alive idle timeout, as a Go duration.",
		Default:     "60s",
		Validate:    validateDuration,
	})
	requestLogging = typedconfig.MustDeclare[bool](settings, "enableRequestLogging", typedconfig.FieldOptions{
		Name:        "CONFIGDOC_REQUEST_LOGGING",
		Description: "Emit an access log entry per request.",
		Required:    true,
		Default:     true,
	})
	rateLimitRPS = typedconfig.MustDeclare[float64](settings, "rateLimitRPS", typedconfig.FieldOptions{
		Name:             "CONFIGDOC_RATE_LIMIT_RPS",
		Description:      "Requests per second allowed; 0 disables rate limiting.",
		Required:         true,
		Default:          defaultRateLimitRPS,
		RecommendedValue: defaultRateLimitRPS,
		Check:            nonNegative,
	})
	rateLimitBurst = typedconfig.MustDeclare[float64](settings, "rateLimitBurst", typedconfig.FieldOptions{
		Name:        "CONFIGDOC_RATE_LIMIT_BURST",
		Description: "Burst capacity of the rate limiter; 0 disables rate limiting.",
		Required:    true,
		Default:     defaultRateLimitBurst,
		Check:       nonNegativeInteger,
	})
)

// Settings returns the class describing configdoc's own settings.
func Settings() *typedconfig.Class {
	return settings
}

// Load resolves the settings from defaults, the optional settings file and
// the environment, then applies CLI overrides.
func Load(overrides *CLIOverrides, opts ...typedconfig.RegistryOption) (Config, error) {
	registry := typedconfig.NewRegistry(opts...)

	var resolveOpts typedconfig.Options
	if overrides != nil && overrides.SettingsFile != "" {
		resolveOpts.ConfigFilePath = overrides.SettingsFile
		resolveOpts.ConfigFileRequired = true
	}

	inst, err := registry.Add(settings, &resolveOpts)
	if err != nil {
		return Config{}, fmt.Errorf("resolve settings: %w", err)
	}

	cfg := Config{
		Port:                 port.Get(inst),
		LogLevel:             logLevel.Get(inst),
		ShutdownGracePeriod:  mustDuration(shutdownGracePeriod.Get(inst)),
		ReadHeaderTimeout:    mustDuration(readHeaderTimeout.Get(inst)),
		WriteTimeout:         mustDuration(writeTimeout.Get(inst)),
		IdleTimeout:          mustDuration(idleTimeout.Get(inst)),
		EnableRequestLogging: requestLogging.Get(inst),
		RateLimitRPS:         rateLimitRPS.Get(inst),
		RateLimitBurst:       int(rateLimitBurst.Get(inst)),
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("CONFIGDOC_RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("CONFIGDOC_RATE_LIMIT_BURST must be >= 0")
	}
	return nil
}

func validateDuration(v any) error {
	s, _ := v.(string)
	if s == "" {
		return errors.New("duration must not be empty")
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return fmt.Errorf("duration %q must not be negative", s)
	}
	return nil
}

func nonNegative(v any) bool {
	f, ok := v.(float64)
	return !ok || f >= 0
}

func nonNegativeInteger(v any) bool {
	f, ok := v.(float64)
	return !ok || (f >= 0 && f == math.Trunc(f) && f <= math.MaxInt32)
}

// mustDuration parses a duration that already passed validateDuration.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
