package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/reviewpower/internal/cluster"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// IngestConfig locates the JSON-lines feeds and controls loading.
type IngestConfig struct {
	BusinessesPath string `yaml:"businesses_path" mapstructure:"businesses_path"`
	ReviewsPath    string `yaml:"reviews_path" mapstructure:"reviews_path"`
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`
	DropExisting   bool   `yaml:"drop_existing" mapstructure:"drop_existing"`
}

// PipelineConfig holds the scoring and clustering parameters.
type PipelineConfig struct {
	DataDir          string  `yaml:"data_dir" mapstructure:"data_dir"`
	MinReviews       int     `yaml:"min_reviews" mapstructure:"min_reviews"`
	Clusters         int     `yaml:"clusters" mapstructure:"clusters"`
	Seed             uint64  `yaml:"seed" mapstructure:"seed"`
	MaxIter          int     `yaml:"max_iter" mapstructure:"max_iter"`
	NInit            int     `yaml:"n_init" mapstructure:"n_init"`
	Tolerance        float64 `yaml:"tolerance" mapstructure:"tolerance"`
	QualityMinRating float64 `yaml:"quality_min_rating" mapstructure:"quality_min_rating"`
}

// ClusterConfig returns the k-means parameters.
func (p PipelineConfig) ClusterConfig() cluster.Config {
	return cluster.Config{
		K:         p.Clusters,
		Seed:      p.Seed,
		MaxIter:   p.MaxIter,
		NInit:     p.NInit,
		Tolerance: p.Tolerance,
	}
}

// ServerConfig configures the dashboard API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	Dataset        string   `yaml:"dataset" mapstructure:"dataset"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ExportConfig configures dataset exports.
type ExportConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir"`
	TopN int    `yaml:"top_n" mapstructure:"top_n"`
}

// MonitoringConfig configures run health alerts.
type MonitoringConfig struct {
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	SkipRateThreshold    float64 `yaml:"skip_rate_threshold" mapstructure:"skip_rate_threshold"`
	StaleAfterHours      int     `yaml:"stale_after_hours" mapstructure:"stale_after_hours"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REVIEWPOWER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "reviewpower.db")
	v.SetDefault("ingest.businesses_path", "data/yelp_academic_dataset_business.json")
	v.SetDefault("ingest.reviews_path", "data/yelp_academic_dataset_review.json")
	v.SetDefault("ingest.batch_size", 10000)
	v.SetDefault("ingest.drop_existing", false)
	v.SetDefault("pipeline.data_dir", "data")
	v.SetDefault("pipeline.min_reviews", 10)
	v.SetDefault("pipeline.clusters", 4)
	v.SetDefault("pipeline.seed", 42)
	v.SetDefault("pipeline.max_iter", 300)
	v.SetDefault("pipeline.n_init", 10)
	v.SetDefault("pipeline.tolerance", 1e-4)
	v.SetDefault("pipeline.quality_min_rating", 4.0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("export.dir", "export")
	v.SetDefault("export.top_n", 10)
	v.SetDefault("monitoring.lookback_hours", 168)
	v.SetDefault("monitoring.failure_rate_threshold", 0.2)
	v.SetDefault("monitoring.skip_rate_threshold", 0.5)
	v.SetDefault("monitoring.stale_after_hours", 6)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the fields a command needs. scope is one of "ingest",
// "pipeline", "serve" or "store".
func (c *Config) Validate(scope string) error {
	var problems []string
	require := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch scope {
	case "store":
		c.validateStore(require)
	case "ingest":
		c.validateStore(require)
		require(c.Ingest.BusinessesPath != "", "ingest.businesses_path is required")
		require(c.Ingest.ReviewsPath != "", "ingest.reviews_path is required")
		require(c.Ingest.BatchSize > 0, "ingest.batch_size must be > 0")
	case "pipeline":
		require(c.Pipeline.DataDir != "", "pipeline.data_dir is required")
		require(c.Pipeline.MinReviews >= 0, "pipeline.min_reviews must be >= 0")
		require(c.Pipeline.Clusters >= 1, "pipeline.clusters must be >= 1")
		require(c.Pipeline.MaxIter >= 1, "pipeline.max_iter must be >= 1")
		require(c.Pipeline.NInit >= 1, "pipeline.n_init must be >= 1")
		require(c.Pipeline.Tolerance >= 0, "pipeline.tolerance must be >= 0")
	case "serve":
		require(c.Server.Port > 0 && c.Server.Port < 65536, "server.port must be between 1 and 65535")
	default:
		return eris.Errorf("config: unknown validation scope %q", scope)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateStore(require func(bool, string)) {
	require(c.Store.Driver == "postgres" || c.Store.Driver == "sqlite", "store.driver must be postgres or sqlite")
	require(c.Store.DatabaseURL != "", "store.database_url is required")
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
