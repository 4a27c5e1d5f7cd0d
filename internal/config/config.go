// Package config is the crawl engine's single source-of-truth
// configuration record (spec §6.5): seed file, contact email, data
// directory, exclusion file, worker/process counts, stopping limits,
// coordination-store connection info, and the resume/seeded-only
// flags. Loaded via viper (env vars + optional YAML file), grounded on
// the teacher's cmd/root.go initConfig pattern.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/arlobridge/crawlcore/internal/config/logging"
	"github.com/arlobridge/crawlcore/internal/constants"
)

// Config is the crawl engine's complete configuration.
type Config struct {
	SeedFile    string `mapstructure:"seed_file"`
	Email       string `mapstructure:"email"`
	DataDir     string `mapstructure:"data_dir"`
	ExcludeFile string `mapstructure:"exclude_file"`

	MaxWorkers         int           `mapstructure:"max_workers"`
	ParserProcesses    int           `mapstructure:"parser_processes"`
	ParserWorkers      int           `mapstructure:"parser_workers"`
	MaxPages           int64         `mapstructure:"max_pages"`
	MaxDuration        time.Duration `mapstructure:"max_duration"`
	Resume             bool          `mapstructure:"resume"`
	SeededURLsOnly     bool          `mapstructure:"seeded_urls_only"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`

	SeenSetCapacity uint    `mapstructure:"seen_set_capacity"`
	SeenSetFPR      float64 `mapstructure:"seen_set_fpr"`

	HandoffSoftThreshold int64 `mapstructure:"handoff_soft_threshold"`
	HandoffHardThreshold int64 `mapstructure:"handoff_hard_threshold"`

	CSHost     string `mapstructure:"cs_host"`
	CSPort     int    `mapstructure:"cs_port"`
	CSDB       int    `mapstructure:"cs_db"`
	CSPassword string `mapstructure:"cs_password"`

	HTTPAddr string `mapstructure:"http_addr"`

	Logging logging.Config `mapstructure:"logging"`
}

// UserAgent builds the contact-carrying User-Agent string the Fetcher
// and Politeness Enforcer both use.
func (c *Config) UserAgent() string {
	return fmt.Sprintf("%s/%s (+mailto:%s)", constants.DefaultAppName, constants.DefaultAppVersion, c.Email)
}

// ParserTaskCount is the number of concurrent parse tasks a single
// Parser Consumer process runs.
func (c *Config) ParserTaskCount() int {
	if c.ParserWorkers <= 0 {
		return constants.DefaultParserWorkerCount
	}
	return c.ParserWorkers
}

// Load reads configuration from environment variables, an optional
// .env file, and an optional YAML file (cfgFile if set, else
// ./config.yaml or ./config/config.yaml), applies defaults, and
// validates required fields for a fresh (non-resume) crawl.
func Load(cfgFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("crawlcore")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// AutomaticEnv only feeds Unmarshal for keys viper already knows;
	// bind the options that have no default so their env vars apply.
	for _, key := range []string{"seed_file", "email", "exclude_file", "max_pages", "max_duration", "resume", "seeded_urls_only", "insecure_skip_verify", "cs_db", "cs_password"} {
		_ = v.BindEnv(key)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	_ = v.ReadInConfig()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("max_workers", constants.DefaultWorkerCount)
	v.SetDefault("parser_processes", constants.DefaultParserProcessCount)
	v.SetDefault("parser_workers", constants.DefaultParserWorkerCount)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("seen_set_capacity", constants.DefaultSeenSetCapacity)
	v.SetDefault("seen_set_fpr", constants.DefaultSeenSetFPR)
	v.SetDefault("handoff_soft_threshold", constants.DefaultHandoffSoftThreshold)
	v.SetDefault("handoff_hard_threshold", constants.DefaultHandoffHardThreshold)
	v.SetDefault("cs_host", "localhost")
	v.SetDefault("cs_port", 6379)
	v.SetDefault("http_addr", ":8060")
	v.SetDefault("logging.level", constants.DefaultLogLevel)
	v.SetDefault("logging.encoding", constants.DefaultLogEncoding)
}

// validate implements the spec's fatal configuration-error class
// (§7): missing required options for a fresh crawl fail before any
// worker is spawned.
func validate(cfg *Config) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("config: data_dir is required")
	}
	if !cfg.Resume && cfg.SeedFile == "" {
		return fmt.Errorf("config: seed_file is required for a new (non-resume) crawl")
	}
	if cfg.Email == "" {
		return fmt.Errorf("config: email is required (used in the crawler's User-Agent)")
	}
	return nil
}
