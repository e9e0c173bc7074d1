package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Courier  CourierConfig  `yaml:"courier"`
}

type DatabaseConfig struct {
	// URL wins over the discrete fields when set.
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Brokers                 []string `yaml:"brokers"`
	Host                    string   `yaml:"host"`
	Port                    int      `yaml:"port"`
	OrderEventsTopicName    string   `yaml:"order_events_topic_name"`
	AgentLocationsTopicName string   `yaml:"agent_locations_topic_name"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type CourierConfig struct {
	HTTPAddr    string   `yaml:"http_addr"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`

	OrderCacheTTLSeconds       int    `yaml:"order_cache_ttl_seconds"`
	LocationRateLimitPerSecond int    `yaml:"location_rate_limit_per_second"`
	KafkaConsumerGroup         string `yaml:"kafka_consumer_group"`
	RealtimeOpTimeoutSeconds   int    `yaml:"realtime_op_timeout_seconds"`

	StoreLat float64 `yaml:"store_lat"`
	StoreLng float64 `yaml:"store_lng"`

	GeocoderMode      string `yaml:"geocoder_mode"` // "nominatim" | "fake" | "off"
	GeocoderBaseURL   string `yaml:"geocoder_base_url"`
	GeocoderUserAgent string `yaml:"geocoder_user_agent"`
}

// envOverrides are the deployment variables that win over the YAML file.
type envOverrides struct {
	DatabaseURL  string   `env:"DATABASE_URL"`
	CORSOrigin   []string `env:"CORS_ORIGIN" envSeparator:","`
	Port         int      `env:"PORT"`
	RedisAddr    string   `env:"REDIS_ADDR"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}

// Load reads filename when given and applies environment overrides.
// An empty filename yields a config built from the environment alone.
func Load(filename string) (*Config, error) {
	cfg := &Config{}
	if filename != "" {
		var err error
		if cfg, err = LoadConfig(filename); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) ApplyEnv() error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if e.DatabaseURL != "" {
		c.Database.URL = e.DatabaseURL
	}
	if origins := trimAll(e.CORSOrigin); len(origins) > 0 {
		c.Courier.CORSOrigins = origins
	}
	if e.Port > 0 {
		c.Courier.Port = e.Port
	}
	if e.RedisAddr != "" {
		c.Redis.Addr = e.RedisAddr
	}
	if brokers := trimAll(e.KafkaBrokers); len(brokers) > 0 {
		c.Kafka.Brokers = brokers
	}
	return nil
}

// ConnString returns the Postgres connection string, or "" when no database is configured.
func (c *Config) ConnString() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	if c.Database.Host == "" {
		return ""
	}
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	port := c.Database.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.Username, c.Database.Password, c.Database.Host, port, c.Database.DBName, sslMode)
}

func (c *Config) BrokerList() []string {
	if len(c.Kafka.Brokers) > 0 {
		return c.Kafka.Brokers
	}
	if c.Kafka.Host == "" {
		return nil
	}
	return []string{fmt.Sprintf("%s:%d", c.Kafka.Host, c.Kafka.Port)}
}

func (c *Config) RedisAddr() string {
	if c.Redis.Addr != "" {
		return c.Redis.Addr
	}
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// HTTPAddr prefers PORT, then http_addr, then :4000.
func (c *Config) HTTPAddr() string {
	if c.Courier.Port > 0 {
		return fmt.Sprintf(":%d", c.Courier.Port)
	}
	if c.Courier.HTTPAddr != "" {
		return c.Courier.HTTPAddr
	}
	return ":4000"
}

func (c *Config) AllowedOrigins() []string {
	if len(c.Courier.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return c.Courier.CORSOrigins
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
