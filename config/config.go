package config

import (
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/redirect-balancer/internal/strategy"
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
	Address     string        `mapstructure:"address"`
	Environment string        `mapstructure:"environment"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

type RegistryConfig struct {
	File string `mapstructure:"file"`
}

type ProbeConfig struct {
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
	Workers int           `mapstructure:"workers"`
}

type StrategyConfig struct {
	Type string `mapstructure:"type"`
}

type PagesConfig struct {
	Dir string `mapstructure:"dir"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Registry RegistryConfig `mapstructure:"registry"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Pages    PagesConfig    `mapstructure:"pages"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Load reads config.yaml from ./config or the working directory, applies
// environment overrides (PROBE_WORKERS overrides probe.workers) and
// validates the result. A missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom("./config", ".")
}

// LoadFrom is Load with explicit search paths.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":0")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("registry.file", "./balancer_server_list.txt")
	v.SetDefault("probe.path", "files/plshelp.txt")
	v.SetDefault("probe.timeout", "0s")
	v.SetDefault("probe.workers", 1)
	v.SetDefault("strategy.type", strategy.LatencyWeighted)
	v.SetDefault("pages.dir", "")
	v.SetDefault("metrics.address", "")
	v.SetDefault("logging.level", LogLevelInfo)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
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
					validation.Field(&sc.IdleTimeout,
						validation.Required,
						validation.Min(time.Millisecond),
					),
				)
			}),
		),
		validation.Field(&c.Registry,
			validation.Required,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RegistryConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RegistryConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.File, validation.Required),
				)
			}),
		),
		validation.Field(&c.Probe,
			validation.Required,
			validation.By(func(value interface{}) error {
				pc, ok := value.(ProbeConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ProbeConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.Path, validation.Required),
					validation.Field(&pc.Timeout, validation.Min(time.Duration(0))),
					validation.Field(&pc.Workers,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
		validation.Field(&c.Strategy,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(StrategyConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a StrategyConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Type,
						validation.Required,
						validation.In(strategyNames()...),
					),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.Address,
						validation.When(mc.Address != "", validation.By(validateHostPort)),
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

func strategyNames() []interface{} {
	names := strategy.Names()
	out := make([]interface{}, len(names))
	for i, name := range names {
		out[i] = name
	}
	return out
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

	if err := is.Port.Validate(port); err != nil && port != "0" {
		return validation.NewError("validation_invalid_port", "port must be between 0 and 65535")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}
