package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yourusername/netreconcile/internal/logger"
	"github.com/yourusername/netreconcile/internal/models"
)

// EnvPrefix is prepended to every environment override, e.g. NETRECONCILE_NETBOX_URL
const EnvPrefix = "NETRECONCILE"

// Live sources selectable with engine.live_source
const (
	LiveSuzieQ   = "suzieq"
	LiveSnapshot = "snapshot"
	LiveEC2      = "ec2"
)

// Config is the full application configuration
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	NetBox    NetBoxConfig    `mapstructure:"netbox"`
	SuzieQ    SuzieQConfig    `mapstructure:"suzieq"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Policy    PolicyConfig    `mapstructure:"policy"`
}

// LogConfig controls the zap backed logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NetBoxConfig points at the SSOT
type NetBoxConfig struct {
	URL       string        `mapstructure:"url"`
	Token     string        `mapstructure:"token"`
	VerifySSL bool          `mapstructure:"verify_ssl"`
	Timeout   time.Duration `mapstructure:"timeout"`
	PageSize  int           `mapstructure:"page_size"`
}

// SuzieQConfig points at the SuzieQ REST server
type SuzieQConfig struct {
	URL       string        `mapstructure:"url"`
	Token     string        `mapstructure:"token"`
	VerifySSL bool          `mapstructure:"verify_ssl"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SnapshotConfig describes a directory of collected listings
type SnapshotConfig struct {
	Dir    string `mapstructure:"dir"`
	Source string `mapstructure:"source"`
}

// AWSConfig configures the EC2 collector
type AWSConfig struct {
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// RedisConfig configures the durable approval store
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	Channel     string        `mapstructure:"channel"`
	DecisionTTL time.Duration `mapstructure:"decision_ttl"`
}

// EngineConfig controls the comparison run
type EngineConfig struct {
	LiveSource  string   `mapstructure:"live_source"`
	Workers     int      `mapstructure:"workers"`
	EntityTypes []string `mapstructure:"entity_types"`
}

// ReconcileConfig holds reconcile defaults, overridable by flags
type ReconcileConfig struct {
	DryRun          bool `mapstructure:"dry_run"`
	AutoCorrect     bool `mapstructure:"auto_correct"`
	RequireApproval bool `mapstructure:"require_approval"`
}

// PolicyConfig optionally points at an HCL policy file
type PolicyConfig struct {
	File string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("netbox.url", "")
	v.SetDefault("netbox.token", "")
	v.SetDefault("netbox.verify_ssl", true)
	v.SetDefault("netbox.timeout", 30*time.Second)
	v.SetDefault("netbox.page_size", 100)

	v.SetDefault("suzieq.url", "")
	v.SetDefault("suzieq.token", "")
	v.SetDefault("suzieq.verify_ssl", true)
	v.SetDefault("suzieq.timeout", 30*time.Second)

	v.SetDefault("snapshot.dir", "")
	v.SetDefault("snapshot.source", string(models.SourceCLI))

	v.SetDefault("aws.region", "")
	v.SetDefault("aws.profile", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "netreconcile")
	v.SetDefault("redis.channel", "netreconcile:approval.requested")
	v.SetDefault("redis.decision_ttl", 7*24*time.Hour)

	v.SetDefault("engine.live_source", LiveSuzieQ)
	v.SetDefault("engine.workers", 4)
	v.SetDefault("engine.entity_types", []string{})

	v.SetDefault("reconcile.dry_run", true)
	v.SetDefault("reconcile.auto_correct", false)
	v.SetDefault("reconcile.require_approval", true)

	v.SetDefault("policy.file", "")
}

// Load reads configuration in order of precedence: environment variables,
// .env files, the config file, then defaults. An empty path searches for
// netreconcile.yaml in the working directory and ~/.netreconcile.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unprefixed names used by existing deployments
	_ = v.BindEnv("netbox.url", EnvPrefix+"_NETBOX_URL", "NETBOX_URL")
	_ = v.BindEnv("netbox.token", EnvPrefix+"_NETBOX_TOKEN", "NETBOX_TOKEN")
	_ = v.BindEnv("redis.password", EnvPrefix+"_REDIS_PASSWORD", "REDIS_PASSWORD")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	} else {
		v.SetConfigName("netreconcile")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.netreconcile")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config failed: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}
	return &cfg, nil
}

// loadEnvFiles loads .env then .env.local; neither is required.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// Validate checks required settings for the selected live source
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != string(logger.FormatConsole) && c.Log.Format != string(logger.FormatJSON) {
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.NetBox.URL == "" {
		return fmt.Errorf("netbox.url is required")
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be at least 1")
	}
	if _, err := c.EntityTypes(); err != nil {
		return fmt.Errorf("engine.entity_types: %w", err)
	}

	switch c.Engine.LiveSource {
	case LiveSuzieQ:
		if c.SuzieQ.URL == "" {
			return fmt.Errorf("suzieq.url is required when engine.live_source is suzieq")
		}
	case LiveSnapshot:
		if c.Snapshot.Dir == "" {
			return fmt.Errorf("snapshot.dir is required when engine.live_source is snapshot")
		}
		if _, err := models.ParseDiffSource(c.Snapshot.Source); err != nil {
			return fmt.Errorf("snapshot.source: %w", err)
		}
	case LiveEC2:
	default:
		return fmt.Errorf("engine.live_source must be one of suzieq, snapshot, ec2; got %q", c.Engine.LiveSource)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}

// EntityTypes parses engine.entity_types; an empty list means all types
func (c *Config) EntityTypes() ([]models.EntityType, error) {
	if len(c.Engine.EntityTypes) == 0 {
		return models.AllEntityTypes(), nil
	}
	out := make([]models.EntityType, 0, len(c.Engine.EntityTypes))
	for _, name := range c.Engine.EntityTypes {
		et, err := models.ParseEntityType(name)
		if err != nil {
			return nil, err
		}
		out = append(out, et)
	}
	return out, nil
}

// LoggerConfig converts the log section into a logger.Config
func (c *Config) LoggerConfig() logger.Config {
	level, _ := logger.ParseLevel(c.Log.Level)
	return logger.Config{
		Level:  level,
		Format: logger.Format(c.Log.Format),
	}
}
