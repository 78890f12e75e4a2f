package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Report ReportConfig `yaml:"report" mapstructure:"report"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	SecretFile  string     `yaml:"secret_file" mapstructure:"secret_file"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// ReportConfig configures report file output.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	Currency  string `yaml:"currency" mapstructure:"currency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/e164bill")

	// Environment
	v.SetEnvPrefix("E164BILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.secret_file", "/etc/voipnow/.sqldb")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("report.output_dir", ".")
	v.SetDefault("report.currency", "USD")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// ResolveCredentials fills in DatabaseURL from the VoipNow secret file when
// no URL is configured directly. The file carries one "sql:username:password"
// line.
func (c *StoreConfig) ResolveCredentials() error {
	if c.DatabaseURL != "" {
		return nil
	}
	if c.SecretFile == "" {
		return eris.New("config: no database_url and no secret_file configured")
	}
	raw, err := os.ReadFile(c.SecretFile)
	if err != nil {
		return eris.Wrapf(err, "config: read secret file %s", c.SecretFile)
	}
	user, pass, err := ParseSecret(string(raw))
	if err != nil {
		return err
	}
	c.DatabaseURL = "postgres://" + user + ":" + pass + "@localhost:5432/voipnow"
	return nil
}

// ParseSecret parses a "sql:username:password" credential line.
func ParseSecret(raw string) (user, pass string, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 3 || parts[1] == "" {
		return "", "", eris.New("config: malformed secret file, want sql:user:pass")
	}
	return parts[1], parts[2], nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
