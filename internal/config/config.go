package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	PacketAPI PacketAPIConfig `yaml:"packet_api"`
	Workers   WorkersConfig   `yaml:"workers"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	Charset            string        `yaml:"charset"`
	ParseTime          *bool         `yaml:"parse_time"`
	Loc                string        `yaml:"loc"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"`
}

type RedisConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	PoolSize       int    `yaml:"pool_size"`
	IngestionQueue string `yaml:"ingestion_queue"`
	DLQSuffix      string `yaml:"dlq_suffix"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
}

// FreshmenPayload selects the body shape posted to the freshmen endpoint.
type FreshmenPayload string

const (
	FreshmenPayloadRecords   FreshmenPayload = "records"
	FreshmenPayloadUsernames FreshmenPayload = "usernames"
)

type PacketAPIConfig struct {
	BaseURL          string          `yaml:"base_url"`
	PacketsEndpoint  string          `yaml:"packets_endpoint"`
	FreshmenEndpoint string          `yaml:"freshmen_endpoint"`
	SyncEndpoint     string          `yaml:"sync_endpoint"`
	FreshmenPayload  FreshmenPayload `yaml:"freshmen_payload"`
	Timeout          time.Duration   `yaml:"timeout"`
	Auth             AuthConfig      `yaml:"auth"`
}

type AuthConfig struct {
	Token        string `yaml:"token"`
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type WorkersConfig struct {
	Ingestion IngestionWorkerConfig `yaml:"ingestion"`
	LDAPSync  LDAPSyncWorkerConfig  `yaml:"ldap_sync"`
}

type IngestionWorkerConfig struct {
	Count int `yaml:"count"`
}

type LDAPSyncWorkerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RunOnStart bool          `yaml:"run_on_start"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	return LoadFile(configPath)
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "packet-roster"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 5 << 20
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Database.ParseTime == nil {
		parseTime := true
		c.Database.ParseTime = &parseTime
	}
	if c.Database.Loc == "" {
		c.Database.Loc = "UTC"
	}
	if c.Redis.IngestionQueue == "" {
		c.Redis.IngestionQueue = "roster:ingestion"
	}
	if c.Redis.DLQSuffix == "" {
		c.Redis.DLQSuffix = ":dlq"
	}
	if c.Storage.S3.Prefix == "" {
		c.Storage.S3.Prefix = "rosters"
	}
	if c.PacketAPI.PacketsEndpoint == "" {
		c.PacketAPI.PacketsEndpoint = "/api/v1/packets"
	}
	if c.PacketAPI.FreshmenEndpoint == "" {
		c.PacketAPI.FreshmenEndpoint = "/api/v1/freshmen"
	}
	if c.PacketAPI.SyncEndpoint == "" {
		c.PacketAPI.SyncEndpoint = "/api/v1/sync"
	}
	if c.PacketAPI.FreshmenPayload == "" {
		c.PacketAPI.FreshmenPayload = FreshmenPayloadRecords
	}
	if c.PacketAPI.Timeout == 0 {
		c.PacketAPI.Timeout = 30 * time.Second
	}
	if c.Workers.Ingestion.Count == 0 {
		c.Workers.Ingestion.Count = 2
	}
	if c.Workers.LDAPSync.Interval == 0 {
		c.Workers.LDAPSync.Interval = 24 * time.Hour
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Secrets are usually injected through the environment rather than the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PACKET_API_BASE_URL"); v != "" {
		c.PacketAPI.BaseURL = v
	}
	if v := os.Getenv("PACKET_API_TOKEN"); v != "" {
		c.PacketAPI.Auth.Token = v
	}
	if v := os.Getenv("PACKET_API_CLIENT_SECRET"); v != "" {
		c.PacketAPI.Auth.ClientSecret = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("S3_SECRET_KEY"); v != "" {
		c.Storage.S3.SecretKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	switch c.PacketAPI.FreshmenPayload {
	case FreshmenPayloadRecords, FreshmenPayloadUsernames:
	default:
		return fmt.Errorf("invalid packet_api.freshmen_payload %q", c.PacketAPI.FreshmenPayload)
	}
	if c.PacketAPI.Auth.TokenURL != "" && c.PacketAPI.Auth.ClientID == "" {
		return fmt.Errorf("packet_api.auth.client_id is required when token_url is set")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// MySQL DSN format: [username[:password]@][protocol[(address)]]/dbname[?param1=value1&...&paramN=valueN]
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port,
		c.Database.Name, c.Database.Charset, c.parseTime(), c.Database.Loc)
}

// parseTime defaults on; the repository scans DATETIME columns into time.Time.
func (c *Config) parseTime() bool {
	return c.Database.ParseTime == nil || *c.Database.ParseTime
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
