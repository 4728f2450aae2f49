package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Detector  DetectorConfig  `yaml:"detector" mapstructure:"detector"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Passport  PassportConfig  `yaml:"passport" mapstructure:"passport"`
	KPI       KPIConfig       `yaml:"kpi" mapstructure:"kpi"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	TextFraud TextFraudConfig `yaml:"text_fraud" mapstructure:"text_fraud"`
	Decision  DecisionConfig  `yaml:"decision" mapstructure:"decision"`
	Notify    NotifyConfig    `yaml:"notify" mapstructure:"notify"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
}

// StoreConfig configures the artifact store backend. DatabaseURL is a file
// path for sqlite, a DSN for postgres, and a redis:// URL for redis.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	TTLHours    int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DetectorConfig holds the object-detection API settings.
type DetectorConfig struct {
	APIKey            string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Model             string  `yaml:"model" mapstructure:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// RetryConfig configures the retry policy around detector calls.
type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialDelayMs int     `yaml:"initial_delay_ms" mapstructure:"initial_delay_ms"`
	MaxDelayMs     int     `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	Factor         float64 `yaml:"factor" mapstructure:"factor"`
	JitterFraction float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// PassportConfig configures the passport geometry check.
type PassportConfig struct {
	// ReferencePath is an optional YAML baseline; empty uses the built-in one.
	ReferencePath   string  `yaml:"reference_path" mapstructure:"reference_path"`
	PhysicalWidthCM float64 `yaml:"physical_width_cm" mapstructure:"physical_width_cm"`
}

// KPIConfig tunes the document calculators.
type KPIConfig struct {
	RecencyDays      int               `yaml:"recency_days" mapstructure:"recency_days"`
	EffectiveTaxRate float64           `yaml:"effective_tax_rate" mapstructure:"effective_tax_rate"`
	CreditBands      CreditBandsConfig `yaml:"credit_bands" mapstructure:"credit_bands"`
}

// CreditBandsConfig holds the lower bound of each credit score band.
type CreditBandsConfig struct {
	Excellent int `yaml:"excellent" mapstructure:"excellent"`
	Good      int `yaml:"good" mapstructure:"good"`
	Fair      int `yaml:"fair" mapstructure:"fair"`
}

// ScoringConfig holds the sub-score weights. They are normalised by the scorer.
type ScoringConfig struct {
	Income              float64 `yaml:"income" mapstructure:"income"`
	Credit              float64 `yaml:"credit" mapstructure:"credit"`
	DelinquencyRisk     float64 `yaml:"delinquency_risk" mapstructure:"delinquency_risk"`
	DTI                 float64 `yaml:"dti" mapstructure:"dti"`
	Liquidity           float64 `yaml:"liquidity" mapstructure:"liquidity"`
	IncomeConsistency   float64 `yaml:"income_consistency" mapstructure:"income_consistency"`
	EmploymentStability float64 `yaml:"employment_stability" mapstructure:"employment_stability"`
	ResidencyStability  float64 `yaml:"residency_stability" mapstructure:"residency_stability"`
}

// TextFraudConfig configures the name consistency check.
type TextFraudConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// DecisionConfig holds the score thresholds of the decision engine.
type DecisionConfig struct {
	ApproveThreshold float64 `yaml:"approve_threshold" mapstructure:"approve_threshold"`
	ReviewThreshold  float64 `yaml:"review_threshold" mapstructure:"review_threshold"`
}

// NotifyConfig configures outcome notifications. Both channels are optional.
type NotifyConfig struct {
	WebhookURL string      `yaml:"webhook_url" mapstructure:"webhook_url"`
	Email      EmailConfig `yaml:"email" mapstructure:"email"`
}

// EmailConfig holds SMTP settings for e-mail notifications.
type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port" mapstructure:"smtp_port"`
	Username string   `yaml:"username" mapstructure:"username"`
	Password string   `yaml:"password" mapstructure:"password"`
	From     string   `yaml:"from" mapstructure:"from"`
	To       []string `yaml:"to" mapstructure:"to"`
}

// Enabled reports whether enough is configured to send mail.
func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != "" && e.From != "" && len(e.To) > 0
}

// BatchConfig configures multi-case evaluation.
type BatchConfig struct {
	MaxConcurrentCases int `yaml:"max_concurrent_cases" mapstructure:"max_concurrent_cases"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("UNDERWRITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets get empty defaults so env overrides reach Unmarshal.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "underwriting.db")
	v.SetDefault("store.ttl_hours", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("detector.api_key", "")
	v.SetDefault("detector.base_url", "https://api.va.landing.ai/v1/tools/agentic-object-detection")
	v.SetDefault("detector.model", "agentic")
	v.SetDefault("detector.timeout_secs", 60)
	v.SetDefault("detector.requests_per_second", 2.0)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay_ms", 1000)
	v.SetDefault("retry.max_delay_ms", 30000)
	v.SetDefault("retry.factor", 1.5)
	v.SetDefault("retry.jitter_fraction", 0.0)
	v.SetDefault("passport.reference_path", "")
	v.SetDefault("passport.physical_width_cm", 12.5)
	v.SetDefault("kpi.recency_days", 90)
	v.SetDefault("kpi.effective_tax_rate", 0.22)
	v.SetDefault("kpi.credit_bands.excellent", 750)
	v.SetDefault("kpi.credit_bands.good", 700)
	v.SetDefault("kpi.credit_bands.fair", 650)
	v.SetDefault("scoring.income", 0.20)
	v.SetDefault("scoring.credit", 0.23)
	v.SetDefault("scoring.delinquency_risk", 0.18)
	v.SetDefault("scoring.dti", 0.23)
	v.SetDefault("scoring.liquidity", 0.09)
	v.SetDefault("scoring.income_consistency", 0.03)
	v.SetDefault("scoring.employment_stability", 0.02)
	v.SetDefault("scoring.residency_stability", 0.02)
	v.SetDefault("text_fraud.similarity_threshold", 0.95)
	v.SetDefault("decision.approve_threshold", 60.0)
	v.SetDefault("decision.review_threshold", 40.0)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.email.smtp_host", "")
	v.SetDefault("notify.email.smtp_port", 587)
	v.SetDefault("notify.email.username", "")
	v.SetDefault("notify.email.password", "")
	v.SetDefault("notify.email.from", "")
	v.SetDefault("notify.email.to", []string{})
	v.SetDefault("batch.max_concurrent_cases", 4)

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

// Validate checks the settings a command needs. mode is the command name:
// "passport" needs the detector, "evaluate" and "batch" need sane thresholds.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres", "redis":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, redis", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "passport":
		if c.Detector.APIKey == "" {
			errs = append(errs, "detector.api_key is required")
		}
		if c.Detector.BaseURL == "" {
			errs = append(errs, "detector.base_url is required")
		}
		if c.Passport.PhysicalWidthCM <= 0 {
			errs = append(errs, "passport.physical_width_cm must be positive")
		}
	case "evaluate", "batch":
		if c.Decision.ReviewThreshold > c.Decision.ApproveThreshold {
			errs = append(errs, "decision.review_threshold must not exceed decision.approve_threshold")
		}
		if c.TextFraud.SimilarityThreshold <= 0 || c.TextFraud.SimilarityThreshold > 1 {
			errs = append(errs, "text_fraud.similarity_threshold must be in (0, 1]")
		}
		if mode == "batch" && (c.Batch.MaxConcurrentCases < 1 || c.Batch.MaxConcurrentCases > 64) {
			errs = append(errs, "batch.max_concurrent_cases must be between 1 and 64")
		}
	case "ingest", "export", "migrate":
	default:
		errs = append(errs, fmt.Sprintf("unknown mode %q", mode))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
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
