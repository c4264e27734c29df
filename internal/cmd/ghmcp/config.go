package ghmcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	platformcmd "github.com/grasshoppermcp/gateway/internal/platform/cmd"
	"github.com/grasshoppermcp/gateway/internal/platform/timeouts"
	"github.com/grasshoppermcp/gateway/internal/services/canvas"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/engine"
	"github.com/grasshoppermcp/gateway/internal/services/gateway/service"
)

// Config holds the gateway process configuration.
type Config struct {
	Address        string        `env:"GHMCP_ADDRESS"         envDefault:"http://localhost:8080/" mapstructure:"address"`
	Engine         string        `env:"GHMCP_ENGINE"          envDefault:"mcp"                    mapstructure:"engine"`
	RequestTimeout time.Duration `env:"GHMCP_REQUEST_TIMEOUT" envDefault:"30s"                    mapstructure:"request_timeout"`
	StopWait       time.Duration `env:"GHMCP_STOP_WAIT"       envDefault:"1s"                     mapstructure:"stop_wait"`
	MaxConnections int           `env:"GHMCP_MAX_CONNECTIONS" envDefault:"64"                     mapstructure:"max_connections"`
	StartRetry     time.Duration `env:"GHMCP_START_RETRY"     envDefault:"10s"                    mapstructure:"start_retry"`
	CanvasDB       string        `env:"GHMCP_CANVAS_DB"       envDefault:"ghmcp-canvas.db"        mapstructure:"canvas_db"`
	DocumentName   string        `env:"GHMCP_DOCUMENT_NAME"   envDefault:"Untitled"               mapstructure:"document_name"`
	LogLevel       string        `env:"GHMCP_LOG_LEVEL"       envDefault:"info"                   mapstructure:"log_level"`
	LogFormat      string        `env:"GHMCP_LOG_FORMAT"      envDefault:"text"                   mapstructure:"log_format"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Address:        "http://localhost:8080/",
		Engine:         engine.KindMCP,
		RequestTimeout: timeouts.Request,
		StopWait:       timeouts.StopWait,
		MaxConnections: service.DefaultMaxConnections,
		StartRetry:     timeouts.StartRetry,
		CanvasDB:       "ghmcp-canvas.db",
		DocumentName:   canvas.DefaultDocumentName,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Validate reports settings the gateway cannot run with.
func (c Config) Validate() error {
	if _, err := service.ParseAddress(c.Address); err != nil {
		return err
	}
	if _, err := engine.ByName(c.Engine, engine.Options{}); err != nil {
		return err
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.StopWait <= 0 {
		return fmt.Errorf("stop wait must be positive, got %s", c.StopWait)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("max connections must not be negative, got %d", c.MaxConnections)
	}
	if strings.TrimSpace(c.CanvasDB) == "" {
		return fmt.Errorf("canvas database path is required")
	}
	return nil
}

// bindFlags registers the serve flags. Defaults shown in help come from
// DefaultConfig; only flags the user sets override the loaded config.
func bindFlags(flags *pflag.FlagSet, cfg *Config) {
	defaults := DefaultConfig()
	flags.StringVar(&cfg.Address, "address", defaults.Address, "listen URL, http://host:port/path/")
	flags.StringVar(&cfg.Engine, "engine", defaults.Engine, "protocol engine: mcp or jsonrpc")
	flags.DurationVar(&cfg.RequestTimeout, "request-timeout", defaults.RequestTimeout, "per-request round trip timeout")
	flags.DurationVar(&cfg.StopWait, "stop-wait", defaults.StopWait, "how long stop waits for tasks to exit")
	flags.IntVar(&cfg.MaxConnections, "max-connections", defaults.MaxConnections, "concurrent connection cap, 0 disables")
	flags.DurationVar(&cfg.StartRetry, "start-retry", defaults.StartRetry, "how long to retry a failed bind, 0 disables")
	flags.StringVar(&cfg.CanvasDB, "canvas-db", defaults.CanvasDB, "canvas SQLite path or :memory:")
	flags.StringVar(&cfg.DocumentName, "document-name", defaults.DocumentName, "reported document name")
	flags.StringVar(&cfg.LogLevel, "log-level", defaults.LogLevel, "debug, info, warn or error")
	flags.StringVar(&cfg.LogFormat, "log-format", defaults.LogFormat, "text or json")
}

// loadConfig layers env, the optional config file and explicitly set flags.
func loadConfig(flags *pflag.FlagSet, flagValues Config, configFile string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg, configFile); err != nil {
		return Config{}, err
	}
	overrides := map[string]func(){
		"address":         func() { cfg.Address = flagValues.Address },
		"engine":          func() { cfg.Engine = flagValues.Engine },
		"request-timeout": func() { cfg.RequestTimeout = flagValues.RequestTimeout },
		"stop-wait":       func() { cfg.StopWait = flagValues.StopWait },
		"max-connections": func() { cfg.MaxConnections = flagValues.MaxConnections },
		"start-retry":     func() { cfg.StartRetry = flagValues.StartRetry },
		"canvas-db":       func() { cfg.CanvasDB = flagValues.CanvasDB },
		"document-name":   func() { cfg.DocumentName = flagValues.DocumentName },
		"log-level":       func() { cfg.LogLevel = flagValues.LogLevel },
		"log-format":      func() { cfg.LogFormat = flagValues.LogFormat },
	}
	flags.Visit(func(f *pflag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply()
		}
	})
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
