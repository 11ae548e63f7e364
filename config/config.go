package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de tradewatch.
type Config struct {
	Tracker    TrackerConfig    `yaml:"tracker"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Storage    StorageConfig    `yaml:"storage"`
	Notify     NotifyConfig     `yaml:"notify"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// TrackerConfig controla el ciclo de captura y la detección de trades.
type TrackerConfig struct {
	ActiveIntervalMS         int           `yaml:"active_interval_ms" validate:"gt=0"`
	IdleIntervalMS           int           `yaml:"idle_interval_ms" validate:"gt=0"`
	ErrorIntervalMS          int           `yaml:"error_interval_ms" validate:"gt=0"`
	DetectionCooldownSeconds int           `yaml:"detection_cooldown_seconds" validate:"gt=0"`
	CooldownScope            string        `yaml:"cooldown_scope" validate:"oneof=global pair"` // global | pair
	AccountType              string        `yaml:"account_type" validate:"oneof=demo real"`
	FrameWidth               int           `yaml:"frame_width" validate:"gt=0"`
	FrameHeight              int           `yaml:"frame_height" validate:"gt=0"`
	Region                   *RegionConfig `yaml:"region"` // nil = décima parte superior del frame
	QueueCapacity            int           `yaml:"queue_capacity" validate:"gt=0"`
	QueueMaxAttempts         int           `yaml:"queue_max_attempts" validate:"gt=0"`
}

// RegionConfig es la región de interés en píxeles.
type RegionConfig struct {
	X      int `yaml:"x" validate:"gte=0"`
	Y      int `yaml:"y" validate:"gte=0"`
	Width  int `yaml:"width" validate:"gt=0"`
	Height int `yaml:"height" validate:"gt=0"`
}

// ClassifierConfig elige de dónde salen los frames clasificados.
type ClassifierConfig struct {
	Mode       string          `yaml:"mode" validate:"oneof=http simulated"` // http | simulated
	Endpoint   string          `yaml:"endpoint" validate:"required_if=Mode http"`
	TimeoutMS  int             `yaml:"timeout_ms" validate:"gt=0"`
	RatePerSec float64         `yaml:"rate_per_sec" validate:"gt=0"`
	MaxRetries int             `yaml:"max_retries" validate:"gte=0"`
	Simulated  SimulatedConfig `yaml:"simulated"`
}

// SimulatedConfig parametriza el clasificador sin pantalla.
type SimulatedConfig struct {
	Seed             int64    `yaml:"seed"`
	TradeProbability float64  `yaml:"trade_probability" validate:"gte=0,lte=1"`
	WinRate          float64  `yaml:"win_rate" validate:"gte=0,lte=1"`
	FailureRate      float64  `yaml:"failure_rate" validate:"gte=0,lte=1"`
	Assets           []string `yaml:"assets"`
	Timeframes       []string `yaml:"timeframes" validate:"dive,oneof=30s 1m 5m 15m 30m 1h"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite memory"`
	DSN    string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// NotifyConfig agrupa los destinos de eventos.
type NotifyConfig struct {
	Verbose          bool        `yaml:"verbose"`            // imprime samples y status en consola
	StatusIntervalMS int         `yaml:"status_interval_ms"` // 0 = todos los status_update
	Redis            RedisConfig `yaml:"redis"`
	Kafka            KafkaConfig `yaml:"kafka"`
}

// RedisConfig publica eventos en canales pub/sub.
type RedisConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Addr             string `yaml:"addr" validate:"required_if=Enabled true"`
	Password         string `yaml:"password"`
	DB               int    `yaml:"db" validate:"gte=0"`
	Prefix           string `yaml:"prefix"`
	StatusTTLSeconds int    `yaml:"status_ttl_seconds" validate:"gte=0"`
}

// KafkaConfig publica eventos en un topic.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers" validate:"required_if=Enabled true"`
	Topic   string   `yaml:"topic"`
}

// MetricsConfig expone /metrics para Prometheus.
type MetricsConfig struct {
	Listen string `yaml:"listen"` // vacío = deshabilitado, p.ej. ":9102"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodifica YAML, aplica overrides de entorno y defaults, y valida.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate comprueba rangos y combinaciones de campos.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	return nil
}

func (c *Config) ActiveInterval() time.Duration {
	return time.Duration(c.Tracker.ActiveIntervalMS) * time.Millisecond
}

func (c *Config) IdleInterval() time.Duration {
	return time.Duration(c.Tracker.IdleIntervalMS) * time.Millisecond
}

func (c *Config) ErrorInterval() time.Duration {
	return time.Duration(c.Tracker.ErrorIntervalMS) * time.Millisecond
}

func (c *Config) DetectionCooldown() time.Duration {
	return time.Duration(c.Tracker.DetectionCooldownSeconds) * time.Second
}

func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.Classifier.TimeoutMS) * time.Millisecond
}

func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Notify.StatusIntervalMS) * time.Millisecond
}

func (c *Config) StatusTTL() time.Duration {
	return time.Duration(c.Notify.Redis.StatusTTLSeconds) * time.Second
}

// IsDemo indica si los trades se registran como cuenta demo.
func (c *Config) IsDemo() bool { return c.Tracker.AccountType != "real" }

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TRADEWATCH_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("TRADEWATCH_REDIS_ADDR"); v != "" {
		cfg.Notify.Redis.Addr = v
		cfg.Notify.Redis.Enabled = true
	}
	if v := os.Getenv("TRADEWATCH_CLASSIFIER_ENDPOINT"); v != "" {
		cfg.Classifier.Endpoint = v
		cfg.Classifier.Mode = "http"
	}
	if v := os.Getenv("TRADEWATCH_KAFKA_BROKERS"); v != "" {
		cfg.Notify.Kafka.Brokers = strings.Split(v, ",")
		cfg.Notify.Kafka.Enabled = true
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	t := &cfg.Tracker
	if t.ActiveIntervalMS <= 0 {
		t.ActiveIntervalMS = 1500
	}
	if t.IdleIntervalMS <= 0 {
		t.IdleIntervalMS = 5000
	}
	if t.ErrorIntervalMS <= 0 {
		t.ErrorIntervalMS = 5000
	}
	if t.DetectionCooldownSeconds <= 0 {
		t.DetectionCooldownSeconds = 10
	}
	if t.CooldownScope == "" {
		t.CooldownScope = "global"
	}
	if t.AccountType == "" {
		t.AccountType = "demo"
	}
	if t.FrameWidth <= 0 {
		t.FrameWidth = 1920
	}
	if t.FrameHeight <= 0 {
		t.FrameHeight = 1080
	}
	if t.QueueCapacity <= 0 {
		t.QueueCapacity = 256
	}
	if t.QueueMaxAttempts <= 0 {
		t.QueueMaxAttempts = 3
	}

	c := &cfg.Classifier
	if c.Mode == "" {
		c.Mode = "simulated"
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 2000
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 4
	}
	if c.Simulated.TradeProbability == 0 {
		c.Simulated.TradeProbability = 0.05
	}
	if c.Simulated.WinRate == 0 {
		c.Simulated.WinRate = 0.7
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "tradewatch.db"
	}

	if cfg.Notify.Redis.Prefix == "" {
		cfg.Notify.Redis.Prefix = "tradewatch"
	}
	if cfg.Notify.Redis.StatusTTLSeconds == 0 {
		cfg.Notify.Redis.StatusTTLSeconds = 30
	}
	if cfg.Notify.Kafka.Topic == "" {
		cfg.Notify.Kafka.Topic = "tradewatch.events"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
