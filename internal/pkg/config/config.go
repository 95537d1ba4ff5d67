package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Geocoding GeocodingConfig `mapstructure:"geocoding"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Events    EventsConfig    `mapstructure:"events"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
	// ProxyHeader, when set, is trusted for the client address (e.g. X-Forwarded-For).
	ProxyHeader string `mapstructure:"proxy_header"`
}

// DatabaseConfig configures the optional resolution history store.
// An empty host disables history.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

type NATSConfig struct {
	URL string `mapstructure:"url"`
	// MaxAge bounds how long resolution events are retained by JetStream.
	MaxAge  time.Duration `mapstructure:"max_age"`
	Durable string        `mapstructure:"durable"`
}

type ValkeyConfig struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GeocodingConfig configures the IP and reverse geocoding collaborators.
type GeocodingConfig struct {
	IPAPIURL     string        `mapstructure:"ipapi_url"`
	NominatimURL string        `mapstructure:"nominatim_url"`
	UserAgent    string        `mapstructure:"user_agent"`
	Language     string        `mapstructure:"language"`
	Timeout      time.Duration `mapstructure:"timeout"`
	// CacheTTL of zero disables collaborator caching.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// CacheCellMeters is the grid size reverse-geocode answers are shared across.
	CacheCellMeters float64 `mapstructure:"cache_cell_meters"`
}

type ResolverConfig struct {
	// Order is the default fallback order: ip_first, gps_first, ip_only or gps_only.
	Order           string        `mapstructure:"order"`
	PositionTimeout time.Duration `mapstructure:"position_timeout"`
	ForwardClientIP bool          `mapstructure:"forward_client_ip"`
}

// EventsConfig selects where resolution events are published.
type EventsConfig struct {
	Driver       string   `mapstructure:"driver"` // nats, kafka or none
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
	KafkaGroupID string   `mapstructure:"kafka_group_id"`
}

// StorageConfig configures CSV report uploads. An empty endpoint disables them.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	// RefineDelay is how long the refinement workflow waits before its first attempt.
	RefineDelay time.Duration `mapstructure:"refine_delay"`
}

// Load reads configuration from defaults, an optional config file, a .env
// file and environment variables, in increasing order of precedence.
func Load(service string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: SKINCARE_GEOCODING_NOMINATIM_URL → geocoding.nominatim_url
	v.SetEnvPrefix("SKINCARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 35)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("server.proxy_header", "")

	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "skincare")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "skincare")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_age", "72h")
	v.SetDefault("nats.durable", "location-refiner")

	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.prefix", "skincare:")

	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("geocoding.ipapi_url", "https://ipapi.co")
	v.SetDefault("geocoding.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoding.user_agent", "skincare-location/1.0")
	v.SetDefault("geocoding.language", "en")
	v.SetDefault("geocoding.timeout", "8s")
	v.SetDefault("geocoding.cache_ttl", "24h")
	v.SetDefault("geocoding.cache_cell_meters", 50.0)

	v.SetDefault("resolver.order", "ip_first")
	v.SetDefault("resolver.position_timeout", "10s")
	v.SetDefault("resolver.forward_client_ip", true)

	v.SetDefault("events.driver", "nats")
	v.SetDefault("events.kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("events.kafka_topic", "location.events")
	v.SetDefault("events.kafka_group_id", "location-refiner")

	// Every key needs a default so AutomaticEnv can see it during Unmarshal.
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "skincare-reports")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.use_ssl", false)

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "location-refine")
	v.SetDefault("temporal.refine_delay", "5m")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Database.Enabled() {
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}
	if c.Geocoding.IPAPIURL == "" {
		errs = append(errs, "geocoding.ipapi_url is required")
	}
	if c.Geocoding.NominatimURL == "" {
		errs = append(errs, "geocoding.nominatim_url is required")
	}
	if c.Geocoding.UserAgent == "" {
		errs = append(errs, "geocoding.user_agent is required by the Nominatim usage policy")
	}
	if c.Geocoding.Timeout <= 0 {
		errs = append(errs, "geocoding.timeout must be positive")
	}
	if c.Geocoding.CacheTTL < 0 {
		errs = append(errs, "geocoding.cache_ttl must not be negative")
	}
	if c.Geocoding.CacheCellMeters <= 0 {
		errs = append(errs, "geocoding.cache_cell_meters must be positive")
	}
	switch c.Resolver.Order {
	case "", "ip_first", "gps_first", "ip_only", "gps_only":
	default:
		errs = append(errs, fmt.Sprintf("resolver.order %q is not one of ip_first, gps_first, ip_only, gps_only", c.Resolver.Order))
	}
	if c.Resolver.PositionTimeout <= 0 {
		errs = append(errs, "resolver.position_timeout must be positive")
	}
	switch c.Events.Driver {
	case "none", "":
	case "nats":
		if c.NATS.URL == "" {
			errs = append(errs, "nats.url is required for events.driver nats")
		}
	case "kafka":
		if len(c.Events.KafkaBrokers) == 0 || c.Events.KafkaTopic == "" {
			errs = append(errs, "events.kafka_brokers and events.kafka_topic are required for events.driver kafka")
		}
	default:
		errs = append(errs, fmt.Sprintf("events.driver %q is not one of nats, kafka, none", c.Events.Driver))
	}
	if c.Storage.Endpoint != "" && c.Storage.Bucket == "" {
		errs = append(errs, "storage.bucket is required when storage.endpoint is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
