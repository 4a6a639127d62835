// Ininicializing common application configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Detection DetectionConfig `mapstructure:"detection"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Web       WebConfig       `mapstructure:"web"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
}

type ServerConfig struct {
	AppVersion      string        `mapstructure:"app_version"`
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Idle_timeout    time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Env             string        `mapstructure:"environment"`
	Mode            string        `mapstructure:"mode"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst       int           `mapstructure:"rate_burst"`
}

type DetectionConfig struct {
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// BackendConfig is consumed by the detect CLI.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"` // 0 means no timeout
	Breaker BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
}

type WebConfig struct {
	APIURL string `mapstructure:"api_url"`
}

type StorageConfig struct {
	Driver    string        `mapstructure:"driver"` // file | redis
	Path      string        `mapstructure:"path"`
	ResultTTL time.Duration `mapstructure:"result_ttl"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// Настройки пула соединений
	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// LoadConfig reads ./config/config.yaml when present. A missing file is not
// an error: defaults and environment variables still apply.
func LoadConfig() (*viper.Viper, error) {
	return LoadConfigFrom("./config")
}

func LoadConfigFrom(paths ...string) (*viper.Viper, error) {

	viperInstance := viper.New()

	for _, p := range paths {
		viperInstance.AddConfigPath(p)
	}
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	setDefaults(viperInstance)

	viperInstance.SetEnvPrefix("DRUG")
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperInstance.AutomaticEnv()

	// the one externally supplied base URL
	if err := viperInstance.BindEnv("backend.base_url", "DRUG_BACKEND_BASE_URL", "API_URL"); err != nil {
		return nil, err
	}

	err := viperInstance.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if c.Detection.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("detection.max_upload_bytes must be positive, got %d", c.Detection.MaxUploadBytes)
	}
	switch c.Storage.Driver {
	case "file", "redis":
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.app_version", "1.0.0")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 20)

	v.SetDefault("detection.max_upload_bytes", 10<<20)

	v.SetDefault("backend.base_url", "http://localhost:8080")
	v.SetDefault("backend.timeout", 0)
	v.SetDefault("backend.breaker.enabled", true)
	v.SetDefault("backend.breaker.consecutive_failures", 5)
	v.SetDefault("backend.breaker.open_timeout", 30*time.Second)

	v.SetDefault("web.api_url", "")

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", "./storage")
	v.SetDefault("storage.result_ttl", 24*time.Hour)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "drug-detections")
	v.SetDefault("kafka.group_id", "drug-detection-auditor")
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
