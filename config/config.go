package config

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type FallbackConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Path    string `mapstructure:"path"`
}

type UpstreamConfig struct {
	APIKey             string           `mapstructure:"api_key"`
	BaseURL            string           `mapstructure:"base_url"`
	DefaultModel       string           `mapstructure:"default_model"`
	RequestTimeout     string           `mapstructure:"request_timeout"`
	ProbeTimeout       string           `mapstructure:"probe_timeout"`
	InsecureSkipVerify bool             `mapstructure:"insecure_skip_verify"`
	Fallbacks          []FallbackConfig `mapstructure:"fallbacks"`
}

type LimitsConfig struct {
	SizeWarningThreshold int `mapstructure:"size_warning_threshold"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

func Load() (*Config, error) {
	// Optional .env for local development; a missing file is fine.
	_ = godotenv.Load()

	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":5000")
	viper.SetDefault("upstream.base_url", "https://nano-gpt.com/api/v1")
	viper.SetDefault("upstream.default_model", "moonshotai/Kimi-K2-Instruct-0905")
	viper.SetDefault("upstream.request_timeout", "300s")
	viper.SetDefault("upstream.probe_timeout", "10s")
	viper.SetDefault("upstream.insecure_skip_verify", false)
	viper.SetDefault("limits.size_warning_threshold", 10000)
	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Keep the original service's environment variable names working.
	viper.BindEnv("upstream.api_key", "UPSTREAM_API_KEY", "NANOGPT_API_KEY")
	viper.BindEnv("upstream.base_url", "UPSTREAM_BASE_URL", "NANOGPT_BASE_URL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Upstream,
			validation.Required,
			validation.By(func(value interface{}) error {
				uc, ok := value.(UpstreamConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an UpstreamConfig")
				}
				return validation.ValidateStruct(&uc,
					validation.Field(&uc.APIKey,
						validation.Required.Error("NANOGPT_API_KEY must be set"),
					),
					validation.Field(&uc.BaseURL,
						validation.Required,
						validation.By(validateEndpointURL),
					),
					validation.Field(&uc.DefaultModel,
						validation.Required,
					),
					validation.Field(&uc.RequestTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&uc.ProbeTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&uc.Fallbacks,
						validation.Each(validation.By(validateFallbackConfig)),
					),
				)
			}),
		),
		validation.Field(&c.Limits,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LimitsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LimitsConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.SizeWarningThreshold,
						validation.Min(0),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 10s, 5m, 1h)")
	}

	return nil
}

func validateEndpointURL(value interface{}) error {
	endpointURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if endpointURL == "" {
		return validation.NewError("validation_empty_url", "endpoint URL cannot be empty")
	}

	parsedURL, err := url.Parse(endpointURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateFallbackConfig(value interface{}) error {
	fallback, ok := value.(FallbackConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a FallbackConfig")
	}

	if err := validateEndpointURL(fallback.BaseURL); err != nil {
		return err
	}

	if fallback.Path != "" && !strings.HasPrefix(fallback.Path, "/") {
		return validation.NewError("validation_invalid_path", "path must start with /")
	}

	return nil
}
