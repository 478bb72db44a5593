package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"lotto/models"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Risk      RiskConfig      `yaml:"risk"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	// BetRatePerSec limits ticket placement per client IP; 0 disables it.
	BetRatePerSec float64 `yaml:"bet_rate_per_sec"`
	BetBurst      int     `yaml:"bet_burst"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver"` // postgres | sqlite
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Name        string `yaml:"name"`
	SSLMode     string `yaml:"sslmode"`
	Path        string `yaml:"path"` // sqlite file
	AutoMigrate bool   `yaml:"auto_migrate"`
	SlowQueryMS int    `yaml:"slow_query_ms"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
	File   string `yaml:"file"`
}

type AdminConfig struct {
	Key    string `yaml:"key"`
	Secret string `yaml:"secret"`
}

type SchedulerConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
}

type RiskConfig struct {
	InitialCapital decimal.Decimal `yaml:"initial_capital"`
	CommissionRate decimal.Decimal `yaml:"commission_rate"`
	Thresholds     Thresholds      `yaml:"thresholds"`

	Categories map[models.BetCategory]CategoryConfig `yaml:"categories"`
}

// Thresholds are usage percents.
type Thresholds struct {
	Warning  decimal.Decimal `yaml:"warning"`
	Danger   decimal.Decimal `yaml:"danger"`
	Critical decimal.Decimal `yaml:"critical"`
}

type CategoryConfig struct {
	AllocationPercent decimal.Decimal `yaml:"allocation_percent"`
	Base              decimal.Decimal `yaml:"base"`
	Tier1             decimal.Decimal `yaml:"tier1"`
	Tier2             decimal.Decimal `yaml:"tier2"`
}

// Load reads the YAML file at path (optional, may be empty), then .env and the
// process environment. Environment values win over the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	// risk defaults go in before the file so an explicit zero survives
	cfg := Config{Risk: defaultRisk()}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := Config{Risk: defaultRisk()}
	setDefaults(&cfg)
	return &cfg
}

func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// Validate checks the risk section; everything else has usable defaults.
func (c *Config) Validate() error {
	r := c.Risk
	if r.CommissionRate.IsNegative() || r.CommissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.New("risk.commission_rate must be in [0, 1)")
	}
	if !models.FitsPlaces(r.CommissionRate, models.RatePlaces) {
		return fmt.Errorf("risk.commission_rate has more than %d decimal places", models.RatePlaces)
	}
	if r.InitialCapital.IsNegative() {
		return errors.New("risk.initial_capital must not be negative")
	}
	t := r.Thresholds
	if !(t.Warning.LessThan(t.Danger) && t.Danger.LessThanOrEqual(t.Critical)) {
		return errors.New("risk.thresholds must satisfy warning < danger <= critical")
	}
	for cat, cc := range r.Categories {
		if !cat.Valid() {
			return fmt.Errorf("risk.categories: unknown category %q", cat)
		}
		if cc.AllocationPercent.IsNegative() {
			return fmt.Errorf("risk.categories.%s.allocation_percent must not be negative", cat)
		}
		if !cc.Base.IsPositive() {
			return fmt.Errorf("risk.categories.%s.base must be positive", cat)
		}
		for name, rate := range map[string]decimal.Decimal{"base": cc.Base, "tier1": cc.Tier1, "tier2": cc.Tier2} {
			if rate.IsNegative() || !models.FitsPlaces(rate, models.RatePlaces) {
				return fmt.Errorf("risk.categories.%s.%s must be a non-negative rate with at most %d decimal places", cat, name, models.RatePlaces)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	str := map[string]*string{
		"HOST":         &cfg.Server.Host,
		"PORT":         &cfg.Server.Port,
		"DB_DRIVER":    &cfg.Database.Driver,
		"DB_HOST":      &cfg.Database.Host,
		"DB_PORT":      &cfg.Database.Port,
		"DB_USER":      &cfg.Database.User,
		"DB_PASSWORD":  &cfg.Database.Password,
		"DB_NAME":      &cfg.Database.Name,
		"DB_SSLMODE":   &cfg.Database.SSLMode,
		"DB_PATH":      &cfg.Database.Path,
		"LOG_LEVEL":    &cfg.Log.Level,
		"LOG_FORMAT":   &cfg.Log.Format,
		"LOG_FILE":     &cfg.Log.File,
		"ADMIN_KEY":    &cfg.Admin.Key,
		"ADMIN_SECRET": &cfg.Admin.Secret,
	}
	for env, dst := range str {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DB_AUTO_MIGRATE %q", v)
		}
		cfg.Database.AutoMigrate = b
	}
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SCHEDULER_ENABLED %q", v)
		}
		cfg.Scheduler.Enabled = b
	}

	dec := map[string]*decimal.Decimal{
		"INITIAL_CAPITAL": &cfg.Risk.InitialCapital,
		"COMMISSION_RATE": &cfg.Risk.CommissionRate,
	}
	for env, dst := range dec {
		if v := os.Getenv(env); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q", env, v)
			}
			*dst = d
		}
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "3000"
	}
	if cfg.Server.BetBurst <= 0 {
		cfg.Server.BetBurst = 20
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "lotto.db"
	}
	if cfg.Database.SlowQueryMS <= 0 {
		cfg.Database.SlowQueryMS = 200
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Scheduler.IntervalSeconds <= 0 {
		cfg.Scheduler.IntervalSeconds = 15
	}

	r := &cfg.Risk
	if r.Categories == nil {
		r.Categories = make(map[models.BetCategory]CategoryConfig)
	}
	for cat, def := range DefaultCategories() {
		if _, ok := r.Categories[cat]; !ok {
			r.Categories[cat] = def
		}
	}
}

// defaultRisk holds the commission and thresholds used when the file or
// environment does not set them. Zero is a legal commission rate.
func defaultRisk() RiskConfig {
	return RiskConfig{
		CommissionRate: decimal.RequireFromString("0.08"),
		Thresholds: Thresholds{
			Warning:  decimal.NewFromInt(70),
			Danger:   decimal.NewFromInt(85),
			Critical: decimal.NewFromInt(100),
		},
	}
}

// DefaultCategories is the stock allocation and payout table.
func DefaultCategories() map[models.BetCategory]CategoryConfig {
	d := decimal.RequireFromString
	return map[models.BetCategory]CategoryConfig{
		models.CategoryTop3:    {AllocationPercent: d("30"), Base: d("800"), Tier1: d("700"), Tier2: d("600")},
		models.CategoryToad3:   {AllocationPercent: d("10"), Base: d("120"), Tier1: d("100"), Tier2: d("90")},
		models.CategoryTop2:    {AllocationPercent: d("25"), Base: d("90"), Tier1: d("80"), Tier2: d("70")},
		models.CategoryBottom2: {AllocationPercent: d("25"), Base: d("90"), Tier1: d("80"), Tier2: d("70")},
		models.CategoryRun:     {AllocationPercent: d("10"), Base: d("3.2"), Tier1: d("3.0"), Tier2: d("2.8")},
	}
}
