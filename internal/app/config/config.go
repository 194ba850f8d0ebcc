package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	MarketAPI  MarketAPIConfig  `yaml:"market_api"`
	Redis      RedisConfig      `yaml:"redis"`
	NATS       NATSConfig       `yaml:"nats"`
	MongoDB    MongoDBConfig    `yaml:"mongo"`
	Logger     LoggerConfig     `yaml:"logger"`
	Auth       AuthConfig       `yaml:"auth"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Cart       CartConfig       `yaml:"cart"`
	Signals    SignalsConfig    `yaml:"signals"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type HTTPServerConfig struct {
	Port            string        `yaml:"port" env:"HTTP_PORT_STOREFRONT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	TimeoutGraceful time.Duration `yaml:"timeout_graceful_shutdown" env-default:"15s"`
}

type MarketAPIConfig struct {
	BaseURL string        `yaml:"base_url" env:"MARKET_API_URL" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env:"MARKET_API_TIMEOUT" env-default:"10s"`
	// Breaker opens after this many consecutive transport failures.
	BreakerFailures uint32        `yaml:"breaker_failures" env:"MARKET_API_BREAKER_FAILURES" env-default:"5"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" env:"MARKET_API_BREAKER_COOLDOWN" env-default:"30s"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type NATSConfig struct {
	URL string `yaml:"url" env:"NATS_URL" env-default:"nats://localhost:4222"`
}

type MongoDBConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	User     string `yaml:"user" env:"MONGO_USER"`
	Password string `yaml:"password" env:"MONGO_PASSWORD"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"storefront_db"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding   string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
	TimeFormat string `yaml:"time_format" env:"LOG_TIME_FORMAT" env-default:"2006-01-02T15:04:05.000Z07:00"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
}

type CatalogConfig struct {
	FallbackBasePrice float64       `yaml:"fallback_base_price" env:"CATALOG_FALLBACK_BASE_PRICE" env-default:"10"`
	PriceCacheTTL     time.Duration `yaml:"price_cache_ttl" env:"CATALOG_PRICE_CACHE_TTL" env-default:"10m"`
	MaxPrice          float64       `yaml:"max_price" env:"CATALOG_MAX_PRICE" env-default:"10000"`
}

type CartConfig struct {
	// IdleViewTTL evicts cart views and abandoned checkouts nobody touched for this long.
	IdleViewTTL time.Duration `yaml:"idle_view_ttl" env:"CART_IDLE_VIEW_TTL" env-default:"30m"`
}

type SignalsConfig struct {
	// Driver is one of nats, redis, memory.
	Driver string `yaml:"driver" env:"SIGNALS_DRIVER" env-default:"nats"`
}

type MetricsConfig struct {
	Port        string `yaml:"port" env:"METRICS_PORT" env-default:"9095"`
	ServiceName string `yaml:"service_name" env:"METRICS_SERVICE_NAME" env-default:"storefront"`
}

func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	err := cleanenv.ReadConfig(path, &cfg)
	if err != nil {
		if _, ok := err.(*os.PathError); ok {
			log.Printf("Warning: Config file not found at %s, attempting to load from environment variables only.", path)
			if errEnv := cleanenv.ReadEnv(&cfg); errEnv != nil {
				return nil, errEnv
			}
			return &cfg, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH_STOREFRONT")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	return cfg
}
