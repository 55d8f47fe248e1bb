package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	ServerPort  int            `yaml:"server_port"`
	LogLevel    string         `yaml:"log_level"`
	CORSOrigins []string       `yaml:"cors_origins"`
	Database    DatabaseConfig `yaml:"database"`
	Auth        AuthConfig     `yaml:"auth"`
	MQ          MQConfig       `yaml:"mq"`
	Storage     StorageConfig  `yaml:"storage"`
}

type DatabaseConfig struct {
	// Driver is either "sqlite" or "postgres".
	Driver      string `yaml:"driver"`
	Path        string `yaml:"path"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	DBName      string `yaml:"name"`
	UseSSL      bool   `yaml:"use_ssl"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	RequireToken bool          `yaml:"require_token"`
	BcryptCost   int           `yaml:"bcrypt_cost"`
}

type MQConfig struct {
	// Backend is one of "none", "rabbitmq", "pubsub" or "redis".
	Backend  string         `yaml:"backend"`
	Channel  string         `yaml:"channel"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	PubSub   PubSubConfig   `yaml:"pubsub"`
	Redis    RedisConfig    `yaml:"redis"`
}

type RabbitMQConfig struct {
	URL             string `yaml:"url"`
	QueueDurable    bool   `yaml:"queue_durable"`
	QueueAutoDelete bool   `yaml:"queue_auto_delete"`
	PrefetchCount   int    `yaml:"prefetch_count"`
}

type PubSubConfig struct {
	ProjectID          string `yaml:"project_id"`
	CredentialsFile    string `yaml:"credentials_file"`
	SubscriptionSuffix string `yaml:"subscription_suffix"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StorageConfig struct {
	// Backend is one of "minio" or "gcs".
	Backend string      `yaml:"backend"`
	Minio   MinioConfig `yaml:"minio"`
	GCS     GCSConfig   `yaml:"gcs"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Defaults returns the built-in configuration used before any file or
// environment overrides are applied.
func Defaults() Config {
	return Config{
		ServerPort:  8080,
		LogLevel:    "info",
		CORSOrigins: []string{"*"},
		Database: DatabaseConfig{
			Driver:      DriverSQLite,
			Path:        "/tmp/connect_app.sqlite",
			Host:        "localhost",
			Port:        5432,
			User:        "connectapp",
			Password:    "password",
			DBName:      "connectapp_db",
			AutoMigrate: true,
		},
		Auth: AuthConfig{
			TokenTTL:   24 * time.Hour,
			BcryptCost: 10,
		},
		MQ: MQConfig{
			Backend: "none",
			Channel: "connectapp.events",
			RabbitMQ: RabbitMQConfig{
				QueueDurable:  true,
				PrefetchCount: 10,
			},
			PubSub: PubSubConfig{SubscriptionSuffix: "-sub"},
			Redis:  RedisConfig{Addr: "localhost:6379"},
		},
		Storage: StorageConfig{
			Backend: "minio",
			Minio: MinioConfig{
				Endpoint: "localhost:9000",
				Bucket:   "connectapp-exports",
			},
		},
	}
}

// LoadConfig builds the process configuration. Values come from the built-in
// defaults, then the YAML file named by CONFIG_FILE (if any), then the
// environment.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	base := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &base); err != nil {
			return Config{}, err
		}
	}

	dbConfig := DatabaseConfig{
		Driver:      strings.ToLower(getEnv("DB_DRIVER", base.Database.Driver)),
		Path:        getEnv("DB_PATH", base.Database.Path),
		Host:        getEnv("DB_HOST", base.Database.Host),
		Port:        getEnvInt("DB_PORT", base.Database.Port),
		User:        getEnv("DB_USER", base.Database.User),
		Password:    getEnv("DB_PASSWORD", base.Database.Password),
		DBName:      getEnv("DB_NAME", base.Database.DBName),
		UseSSL:      getEnvBool("DB_USE_SSL", base.Database.UseSSL),
		AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", base.Database.AutoMigrate),
	}

	authConfig := AuthConfig{
		JWTSecret:    strings.TrimSpace(getEnv("JWT_SECRET", base.Auth.JWTSecret)),
		TokenTTL:     getEnvDuration("JWT_TTL", base.Auth.TokenTTL),
		RequireToken: getEnvBool("AUTH_REQUIRE_TOKEN", base.Auth.RequireToken),
		BcryptCost:   getEnvInt("BCRYPT_COST", base.Auth.BcryptCost),
	}

	mqConfig := MQConfig{
		Backend: strings.ToLower(getEnv("MQ_BACKEND", base.MQ.Backend)),
		Channel: getEnv("MQ_CHANNEL", base.MQ.Channel),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", base.MQ.RabbitMQ.URL),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", base.MQ.RabbitMQ.QueueDurable),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", base.MQ.RabbitMQ.QueueAutoDelete),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", base.MQ.RabbitMQ.PrefetchCount),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", base.MQ.PubSub.ProjectID),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", base.MQ.PubSub.CredentialsFile),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", base.MQ.PubSub.SubscriptionSuffix),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", base.MQ.Redis.Addr),
			Password: getEnv("REDIS_PASSWORD", base.MQ.Redis.Password),
			DB:       getEnvInt("REDIS_DB", base.MQ.Redis.DB),
		},
	}

	storageConfig := StorageConfig{
		Backend: strings.ToLower(getEnv("STORAGE_BACKEND", base.Storage.Backend)),
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", base.Storage.Minio.Endpoint),
			AccessKey: getEnv("MINIO_ACCESS_KEY", base.Storage.Minio.AccessKey),
			SecretKey: getEnv("MINIO_SECRET_KEY", base.Storage.Minio.SecretKey),
			Bucket:    getEnv("MINIO_BUCKET", base.Storage.Minio.Bucket),
			UseSSL:    getEnvBool("MINIO_USE_SSL", base.Storage.Minio.UseSSL),
		},
		GCS: GCSConfig{
			Bucket:          getEnv("GCS_BUCKET", base.Storage.GCS.Bucket),
			ProjectID:       getEnv("GCS_PROJECT_ID", base.Storage.GCS.ProjectID),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", base.Storage.GCS.CredentialsFile),
		},
	}

	cfg := Config{
		ServerPort:  getEnvInt("SERVER_PORT", base.ServerPort),
		LogLevel:    getEnv("LOG_LEVEL", base.LogLevel),
		CORSOrigins: getEnvList("CORS_ORIGINS", base.CORSOrigins),
		Database:    dbConfig,
		Auth:        authConfig,
		MQ:          mqConfig,
		Storage:     storageConfig,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.Driver == DriverSQLite && strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DB_PATH is required for the sqlite driver")
	}
	if c.Auth.RequireToken && c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_REQUIRE_TOKEN needs JWT_SECRET")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var items []string
	for _, part := range strings.Split(valueStr, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}
