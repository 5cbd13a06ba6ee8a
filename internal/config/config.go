package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/Itinera/internal/domain"
	"github.com/shaiso/Itinera/internal/janitor"
	"github.com/shaiso/Itinera/internal/repo"
	"github.com/shaiso/Itinera/internal/telemetry"
)

// EnvConfigPath — переменная с путём к YAML файлу.
const EnvConfigPath = "ITINERA_CONFIG"

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Режимы шага enrichment.
const (
	EnrichmentHTTP = "http"
	EnrichmentLLM  = "llm"
)

// Config — конфигурация всех бинарников.
type Config struct {
	API        APIConfig        `yaml:"api"`
	DB         DBConfig         `yaml:"db"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Provider   ProviderConfig   `yaml:"provider"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Stages     StagesConfig     `yaml:"stages"`
	Planner    PlannerConfig    `yaml:"planner"`
	Janitor    JanitorConfig    `yaml:"janitor"`
	Log        LogConfig        `yaml:"log"`
}

// APIConfig — HTTP API.
type APIConfig struct {
	Port string `yaml:"port"`

	// Tokens — пары "token:user".
	Tokens []string `yaml:"tokens"`

	// TrustUserHeader — принимать X-User-ID без токена (только dev).
	TrustUserHeader bool `yaml:"trust_user_header"`
}

// DBConfig — хранилище планов.
type DBConfig struct {
	Driver     string `yaml:"driver"`
	URL        string `yaml:"url"`
	SQLitePath string `yaml:"sqlite_path"`
}

// RabbitMQConfig — брокер сообщений.
type RabbitMQConfig struct {
	URL string `yaml:"url"`

	// Disabled — работать без брокера (только polling).
	Disabled bool `yaml:"disabled"`
}

// ProviderConfig — удалённый сервис поиска.
type ProviderConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// EnrichmentConfig — источник данных шага enrichment.
type EnrichmentConfig struct {
	Mode    string `yaml:"mode"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// StagesConfig — таймауты шагов. Нулевой таймаут шага — Default.
type StagesConfig struct {
	Default    time.Duration `yaml:"default_timeout"`
	Flights    time.Duration `yaml:"flights_timeout"`
	Hotels     time.Duration `yaml:"hotels_timeout"`
	Activities time.Duration `yaml:"activities_timeout"`
	Enrichment time.Duration `yaml:"enrichment_timeout"`

	// LeaseTTL — аренда плана на время сборки. Больше суммы таймаутов шагов.
	LeaseTTL time.Duration `yaml:"lease_ttl"`
}

// PlannerConfig — фоновый планировщик.
type PlannerConfig struct {
	Port         string        `yaml:"port"`
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
	Parallel     bool          `yaml:"parallel"`
}

// JanitorConfig — закрытие зависших планов.
type JanitorConfig struct {
	Port       string        `yaml:"port"`
	Cron       string        `yaml:"cron"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

// LogConfig — логирование.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		API: APIConfig{Port: "8080"},
		DB: DBConfig{
			Driver:     DriverPostgres,
			SQLitePath: "itinera.db",
		},
		Enrichment: EnrichmentConfig{Mode: EnrichmentHTTP},
		Stages:     StagesConfig{Default: 30 * time.Second, LeaseTTL: repo.DefaultLeaseTTL},
		Planner: PlannerConfig{
			Port:         "8082",
			PollInterval: 10 * time.Second,
			BatchSize:    20,
		},
		Janitor: JanitorConfig{
			Port:       "8083",
			Cron:       janitor.DefaultCron,
			StaleAfter: time.Hour,
		},
		Log: LogConfig{Level: "INFO", Format: "json"},
	}
}

// Load загружает конфигурацию. path может быть пустым — тогда
// используется ITINERA_CONFIG, а без него только окружение.
func Load(path string) (*Config, error) {
	// .env опционален
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFile читает YAML поверх текущих значений.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv применяет переменные окружения.
func (c *Config) applyEnv() {
	setString(&c.API.Port, "API_PORT")
	setList(&c.API.Tokens, "API_TOKENS")
	setBool(&c.API.TrustUserHeader, "API_TRUST_USER_HEADER")

	setString(&c.DB.Driver, "DB_DRIVER")
	setString(&c.DB.URL, "DB_URL")
	setString(&c.DB.SQLitePath, "SQLITE_PATH")

	setString(&c.RabbitMQ.URL, "RABBITMQ_URL")
	setBool(&c.RabbitMQ.Disabled, "RABBITMQ_DISABLED")

	setString(&c.Provider.URL, "PROVIDER_URL")
	setString(&c.Provider.Token, "PROVIDER_TOKEN")

	setString(&c.Enrichment.Mode, "ENRICHMENT_MODE")
	setString(&c.Enrichment.Model, "LLM_MODEL")
	setString(&c.Enrichment.APIKey, "OPENAI_API_KEY")
	setString(&c.Enrichment.BaseURL, "LLM_BASE_URL")

	setDuration(&c.Stages.Default, "STAGE_TIMEOUT")
	setDuration(&c.Stages.Flights, "STAGE_FLIGHTS_TIMEOUT")
	setDuration(&c.Stages.Hotels, "STAGE_HOTELS_TIMEOUT")
	setDuration(&c.Stages.Activities, "STAGE_ACTIVITIES_TIMEOUT")
	setDuration(&c.Stages.Enrichment, "STAGE_ENRICHMENT_TIMEOUT")
	setDuration(&c.Stages.LeaseTTL, "PLAN_LEASE_TTL")

	setString(&c.Planner.Port, "PLANNER_PORT")
	setDuration(&c.Planner.PollInterval, "PLANNER_POLL_INTERVAL")
	setInt(&c.Planner.BatchSize, "PLANNER_BATCH_SIZE")
	setBool(&c.Planner.Parallel, "PLANNER_PARALLEL")

	setString(&c.Janitor.Port, "JANITOR_PORT")
	setString(&c.Janitor.Cron, "JANITOR_CRON")
	setDuration(&c.Janitor.StaleAfter, "JANITOR_STALE_AFTER")

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
}

// Validate проверяет согласованность конфигурации.
func (c *Config) Validate() error {
	var errs []error

	switch c.DB.Driver {
	case DriverPostgres:
	case DriverSQLite:
		if c.DB.SQLitePath == "" {
			errs = append(errs, errors.New("db.sqlite_path is required for sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown db driver %q (must be postgres or sqlite)", c.DB.Driver))
	}

	switch c.Enrichment.Mode {
	case EnrichmentHTTP:
	case EnrichmentLLM:
		if c.Enrichment.Model == "" {
			errs = append(errs, errors.New("enrichment.model is required for llm mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown enrichment mode %q (must be http or llm)", c.Enrichment.Mode))
	}

	if c.Stages.Default <= 0 {
		errs = append(errs, errors.New("stages.default_timeout must be positive"))
	}
	for kind, d := range c.stageOverrides() {
		if d < 0 {
			errs = append(errs, fmt.Errorf("stages.%s_timeout must not be negative", kind))
		}
	}

	if total := c.totalStageTimeout(); c.Stages.LeaseTTL <= total {
		errs = append(errs, fmt.Errorf("stages.lease_ttl must exceed the sum of stage timeouts (%s)", total))
	}

	if c.Planner.PollInterval <= 0 {
		errs = append(errs, errors.New("planner.poll_interval must be positive"))
	}
	if c.Planner.BatchSize <= 0 {
		errs = append(errs, errors.New("planner.batch_size must be positive"))
	}

	if err := janitor.ValidateCronExpr(c.Janitor.Cron); err != nil {
		errs = append(errs, err)
	}
	if c.Janitor.StaleAfter <= 0 {
		errs = append(errs, errors.New("janitor.stale_after must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) stageOverrides() map[domain.StageKind]time.Duration {
	return map[domain.StageKind]time.Duration{
		domain.StageFlights:    c.Stages.Flights,
		domain.StageHotels:     c.Stages.Hotels,
		domain.StageActivities: c.Stages.Activities,
		domain.StageEnrichment: c.Stages.Enrichment,
	}
}

// totalStageTimeout — наибольшая длительность сборки плана целиком.
func (c *Config) totalStageTimeout() time.Duration {
	var total time.Duration
	for _, d := range c.stageOverrides() {
		if d <= 0 {
			d = c.Stages.Default
		}
		total += d
	}
	return total
}

// StageTimeouts возвращает явно заданные таймауты шагов.
func (c *Config) StageTimeouts() map[domain.StageKind]time.Duration {
	timeouts := make(map[domain.StageKind]time.Duration)
	for kind, d := range c.stageOverrides() {
		if d > 0 {
			timeouts[kind] = d
		}
	}
	return timeouts
}

// LoggerOptions возвращает параметры логгера.
func (c *Config) LoggerOptions() telemetry.LoggerOptions {
	return telemetry.LoggerOptions{Level: c.Log.Level, Format: c.Log.Format}
}
