package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"LunarPull/internal/domain/models"
)

const dayLayout = "2006-01-02"

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	} `yaml:"log"`
	Run struct {
		Schedule      string              `yaml:"schedule"`
		LookbackYears int                 `yaml:"lookback_years" default:"5" validate:"gte=1,lte=50"`
		StartDate     string              `yaml:"start_date" validate:"omitempty,datetime=2006-01-02"`
		EndDate       string              `yaml:"end_date" validate:"omitempty,datetime=2006-01-02"`
		Symbols       []models.Instrument `yaml:"symbols" validate:"dive"`
		PriceSource   string              `yaml:"price_source" default:"yahoo" validate:"oneof=yahoo warehouse csv"`
		DataDir       string              `yaml:"data_dir" default:"data" validate:"required"`
		ReportDir     string              `yaml:"report_dir" default:"reports" validate:"required"`
		Timeout       time.Duration       `yaml:"timeout" default:"30m"`
	} `yaml:"run"`
	Phases struct {
		BaseURL   string        `yaml:"base_url" default:"https://aa.usno.navy.mil/api/moon/phases/year" validate:"required,url"`
		Timeout   time.Duration `yaml:"timeout" default:"10s"`
		RateLimit float64       `yaml:"rate_limit" default:"2" validate:"gt=0"`
		GapFill   bool          `yaml:"gap_fill"`
		CacheTTL  time.Duration `yaml:"cache_ttl" default:"24h"`
	} `yaml:"phases"`
	Yahoo struct {
		BaseURL   string        `yaml:"base_url" default:"https://query1.finance.yahoo.com/v8/finance/chart" validate:"required,url"`
		Timeout   time.Duration `yaml:"timeout" default:"15s"`
		RateLimit float64       `yaml:"rate_limit" default:"1" validate:"gt=0"`
		UserAgent string        `yaml:"user_agent" default:"Mozilla/5.0 (compatible; LunarPull/1.0)"`
	} `yaml:"yahoo"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CacheTTL        time.Duration `yaml:"cache_ttl" default:"5m"`
	} `yaml:"server"`
	Metrics struct {
		Enabled        bool   `yaml:"enabled" default:"true"`
		Path           string `yaml:"path" default:"/metrics"`
		PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
		Job            string `yaml:"job" default:"lunarpull"`
	} `yaml:"metrics"`
	SQL struct {
		Enabled         bool          `yaml:"enabled"`
		Driver          string        `yaml:"driver" default:"sqlserver" validate:"oneof=sqlserver postgres"`
		DSN             string        `yaml:"dsn"`
		BatchSize       int           `yaml:"batch_size" default:"500" validate:"gte=1,lte=2000"`
		MaxOpenConns    int           `yaml:"max_open_conns" default:"4"`
		MaxIdleConns    int           `yaml:"max_idle_conns" default:"2"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
	} `yaml:"sql"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"lunar.analysis"`
		LogsTopic    string   `yaml:"logs_topic"`
		RequiredAcks int      `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Blob struct {
		Enabled          bool   `yaml:"enabled"`
		ConnectionString string `yaml:"connection_string"`
		LocalDir         string `yaml:"local_dir"`
		LunarContainer   string `yaml:"lunar_container" default:"lunar-phases"`
		StockContainer   string `yaml:"stock_container" default:"stock-prices"`
	} `yaml:"blob"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// envOverrides are the environment variables allowed to override the file.
// No defaults here, so an unset variable never clobbers a YAML value.
type envOverrides struct {
	SQLConnectionString string   `envconfig:"SQL_CONNECTION_STRING"`
	AzureConnection     string   `envconfig:"AZURE_STORAGE_CONNECTION_STRING"`
	LunarContainer      string   `envconfig:"AZURE_BLOB_CONTAINER_LUNAR"`
	StockContainer      string   `envconfig:"AZURE_BLOB_CONTAINER_STOCK"`
	Symbols             []string `envconfig:"SYMBOLS"`
	LogLevel            string   `envconfig:"LOG_LEVEL"`
	ClickHousePassword  string   `envconfig:"CLICKHOUSE_PASSWORD"`
	RedisPassword       string   `envconfig:"REDIS_PASSWORD"`
	KafkaBrokers        []string `envconfig:"KAFKA_BROKERS"`
}

// KnownNames maps the default tracked symbols to their index names.
var KnownNames = map[string]string{
	"SPY": "S&P 500",
	"QQQ": "NASDAQ",
	"DIA": "Dow Jones",
	"IWM": "Russell 2000",
}

// DefaultInstruments returns the instruments analysed when none are configured.
func DefaultInstruments() []models.Instrument {
	return []models.Instrument{
		{Symbol: "SPY", Name: KnownNames["SPY"]},
		{Symbol: "QQQ", Name: KnownNames["QQQ"]},
		{Symbol: "DIA", Name: KnownNames["DIA"]},
		{Symbol: "IWM", Name: KnownNames["IWM"]},
	}
}

// Parse applies defaults, then decodes YAML over them.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(c.Run.Symbols) == 0 {
		c.Run.Symbols = DefaultInstruments()
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Parse(b)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, err
	}

	var o envOverrides
	if err := envconfig.Process("", &o); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	c.applyOverrides(o)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyOverrides(o envOverrides) {
	if o.SQLConnectionString != "" {
		c.SQL.DSN = o.SQLConnectionString
		c.SQL.Enabled = true
	}
	if o.AzureConnection != "" {
		c.Blob.ConnectionString = o.AzureConnection
		c.Blob.Enabled = true
	}
	if o.LunarContainer != "" {
		c.Blob.LunarContainer = o.LunarContainer
	}
	if o.StockContainer != "" {
		c.Blob.StockContainer = o.StockContainer
	}
	if len(o.Symbols) > 0 {
		c.Run.Symbols = instrumentsFor(o.Symbols)
	}
	if o.LogLevel != "" {
		c.Log.Level = strings.ToLower(o.LogLevel)
	}
	if o.ClickHousePassword != "" {
		c.ClickHouse.Password = o.ClickHousePassword
	}
	if o.RedisPassword != "" {
		c.Redis.Password = o.RedisPassword
	}
	if len(o.KafkaBrokers) > 0 {
		c.Kafka.Brokers = o.KafkaBrokers
		c.Kafka.Enabled = true
	}
}

func instrumentsFor(symbols []string) []models.Instrument {
	out := make([]models.Instrument, 0, len(symbols))
	seen := map[string]bool{}
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, models.Instrument{Symbol: s, Name: KnownNames[s]})
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if len(c.Run.Symbols) == 0 {
		return fmt.Errorf("run.symbols cannot be empty")
	}
	if c.Run.StartDate != "" && c.Run.EndDate != "" && c.Run.StartDate > c.Run.EndDate {
		return fmt.Errorf("run.start_date %s is after run.end_date %s", c.Run.StartDate, c.Run.EndDate)
	}
	if c.Run.PriceSource == "warehouse" && !c.ClickHouse.Enabled {
		return fmt.Errorf("run.price_source 'warehouse' requires clickhouse.enabled")
	}
	if c.SQL.Enabled && c.SQL.DSN == "" {
		return fmt.Errorf("sql.dsn is required when sql is enabled")
	}
	if c.Blob.Enabled && c.Blob.ConnectionString == "" && c.Blob.LocalDir == "" {
		return fmt.Errorf("blob.connection_string or blob.local_dir is required when blob is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	return nil
}

// Range returns the analysis window ending on end_date (or today) and
// starting on start_date (or lookback_years before the end).
func (c *Config) Range(now time.Time) (time.Time, time.Time, error) {
	y, m, d := now.Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if c.Run.EndDate != "" {
		t, err := time.Parse(dayLayout, c.Run.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse run.end_date: %w", err)
		}
		end = t
	}
	start := end.AddDate(-c.Run.LookbackYears, 0, 0)
	if c.Run.StartDate != "" {
		t, err := time.Parse(dayLayout, c.Run.StartDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse run.start_date: %w", err)
		}
		start = t
	}
	return start, end, nil
}

// SymbolList returns the configured symbols in order.
func (c *Config) SymbolList() []string {
	out := make([]string, len(c.Run.Symbols))
	for i, s := range c.Run.Symbols {
		out[i] = s.Symbol
	}
	return out
}
