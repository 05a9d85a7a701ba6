package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverMySQL    = "mysql"
	StorageDriverPostgres = "postgres"
)

type Config struct {
	Server  ServerConfig
	Sale    SaleConfig
	Storage StorageConfig
	Redis   RedisConfig
	Worker  WorkerConfig
	Log     LogConfig
	CORS    CORSConfig
}

type ServerConfig struct {
	HTTPPort        string        `envconfig:"HTTP_PORT" default:"8080"`
	GRPCPort        string        `envconfig:"GRPC_PORT" default:"50051"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	GinMode         string        `envconfig:"GIN_MODE" default:"release"`
}

type SaleConfig struct {
	GraceWindow        time.Duration `envconfig:"SALE_GRACE_WINDOW" default:"2s"`
	TickInterval       time.Duration `envconfig:"SALE_TICK_INTERVAL" default:"1s"`
	SafetyPollInterval time.Duration `envconfig:"SALE_SAFETY_POLL_INTERVAL" default:"30s"`
	RemoveWhenSoldOut  bool          `envconfig:"SALE_REMOVE_WHEN_SOLD_OUT" default:"false"`
	SeedFile           string        `envconfig:"SALE_SEED_FILE"`
}

type StorageConfig struct {
	Driver      string `envconfig:"STORAGE_DRIVER" default:"memory"`
	MySQLDSN    string `envconfig:"MYSQL_DSN"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`
}

// RedisConfig is optional: an empty Addr disables the stock mirror and falls
// back to in-memory purchase idempotency.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	PoolSize int    `envconfig:"REDIS_POOL_SIZE" default:"100"`
}

type WorkerConfig struct {
	Count      int           `envconfig:"WORKER_COUNT" default:"10"`
	QueueSize  int           `envconfig:"WORKER_QUEUE_SIZE" default:"10000"`
	JobTimeout time.Duration `envconfig:"WORKER_JOB_TIMEOUT" default:"5s"`
}

type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEVELOPMENT" default:"false"`
}

type CORSConfig struct {
	AllowOrigins []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,OPTIONS"`
	AllowHeaders []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Idempotency-Key"`
	MaxAge       time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

// LoadConfig reads an optional .env file, then the process environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "load .env")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to process env config")
	}
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverMemory:
	case StorageDriverMySQL:
		if c.Storage.MySQLDSN == "" {
			return errors.New("MYSQL_DSN is required when STORAGE_DRIVER=mysql")
		}
	case StorageDriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when STORAGE_DRIVER=postgres")
		}
	default:
		return errors.Newf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Sale.GraceWindow < 0 {
		return errors.New("SALE_GRACE_WINDOW must not be negative")
	}
	if c.Sale.TickInterval <= 0 || c.Sale.SafetyPollInterval <= 0 {
		return errors.New("SALE_TICK_INTERVAL and SALE_SAFETY_POLL_INTERVAL must be positive")
	}
	if c.Worker.Count < 1 || c.Worker.QueueSize < 0 {
		return errors.New("WORKER_COUNT must be at least 1 and WORKER_QUEUE_SIZE non-negative")
	}
	return nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			HTTPPort:        "8889",
			GRPCPort:        "50599",
			ShutdownTimeout: time.Second,
			GinMode:         "test",
		},
		Sale: SaleConfig{
			GraceWindow:        2 * time.Second,
			TickInterval:       time.Second,
			SafetyPollInterval: 30 * time.Second,
		},
		Storage: StorageConfig{Driver: StorageDriverMemory},
		Worker: WorkerConfig{
			Count:      2,
			QueueSize:  100,
			JobTimeout: time.Second,
		},
		Log: LogConfig{Level: "error"},
	}
}
