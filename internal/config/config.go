package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Bluetooth BluetoothConfig `yaml:"bluetooth"`
	Server    ServerConfig    `yaml:"server"`
	Image     ImageConfig     `yaml:"image"`
	Redis     RedisConfig     `yaml:"redis"`
	LogLevel  string          `yaml:"log_level"`
}

// BluetoothConfig holds device discovery and delivery configuration
type BluetoothConfig struct {
	DevicePrefix      string `yaml:"device_prefix"`
	ScanTimeoutSec    int    `yaml:"scan_timeout_sec"`
	ConnectRetries    int    `yaml:"connect_retries"`
	RetryDelayMS      int    `yaml:"retry_delay_ms"`
	KeepaliveSec      int    `yaml:"keepalive_sec"`
	SettleDelayMS     int    `yaml:"settle_delay_ms"`
	MaxWriteBytes     int    `yaml:"max_write_bytes"`
	MaxPacketBytes    int    `yaml:"max_packet_bytes"`
	TileWidth         int    `yaml:"tile_width"`
	ProfilesPath      string `yaml:"profiles_path"`
	DisableKeepalive  bool   `yaml:"disable_keepalive"`
	DisableAutoReconn bool   `yaml:"disable_auto_reconnect"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int `yaml:"port"`
	ReadTimeout  int `yaml:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout"`
}

// ImageConfig holds image pipeline configuration
type ImageConfig struct {
	TargetWidth  int    `yaml:"target_width"`
	TargetHeight int    `yaml:"target_height"`
	DefaultFit   string `yaml:"default_fit"`
	Workers      int    `yaml:"workers"`
	CacheTTLSec  int    `yaml:"cache_ttl_sec"`
}

// RedisConfig holds Redis-related configuration. An empty Addr disables
// the Redis integration entirely.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	Group    string `yaml:"group"`
	Consumer string `yaml:"consumer"`
}

// Load builds configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Bluetooth: BluetoothConfig{
			DevicePrefix:   "glow",
			ScanTimeoutSec: 10,
			ConnectRetries: 3,
			RetryDelayMS:   2000,
			KeepaliveSec:   5,
			SettleDelayMS:  1000,
			MaxWriteBytes:  512,
			MaxPacketBytes: 500,
			TileWidth:      16,
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  10,
			WriteTimeout: 30,
		},
		Image: ImageConfig{
			TargetWidth:  128,
			TargetHeight: 128,
			DefaultFit:   "contain",
			Workers:      2,
			CacheTTLSec:  3600,
		},
		Redis: RedisConfig{
			Stream:   "glowlink:display_requests",
			Group:    "glowlink-hub",
			Consumer: "hub-1",
		},
		LogLevel: "info",
	}
}

func applyEnv(cfg *Config) {
	cfg.Bluetooth.DevicePrefix = getEnv("DEVICE_PREFIX", cfg.Bluetooth.DevicePrefix)
	cfg.Bluetooth.ScanTimeoutSec = getEnvAsInt("SCAN_TIMEOUT_SEC", cfg.Bluetooth.ScanTimeoutSec)
	cfg.Bluetooth.ConnectRetries = getEnvAsInt("CONNECT_RETRIES", cfg.Bluetooth.ConnectRetries)
	cfg.Bluetooth.RetryDelayMS = getEnvAsInt("RETRY_DELAY_MS", cfg.Bluetooth.RetryDelayMS)
	cfg.Bluetooth.KeepaliveSec = getEnvAsInt("KEEPALIVE_SEC", cfg.Bluetooth.KeepaliveSec)
	cfg.Bluetooth.SettleDelayMS = getEnvAsInt("SETTLE_DELAY_MS", cfg.Bluetooth.SettleDelayMS)
	cfg.Bluetooth.MaxWriteBytes = getEnvAsInt("MAX_WRITE_BYTES", cfg.Bluetooth.MaxWriteBytes)
	cfg.Bluetooth.MaxPacketBytes = getEnvAsInt("MAX_PACKET_BYTES", cfg.Bluetooth.MaxPacketBytes)
	cfg.Bluetooth.TileWidth = getEnvAsInt("TILE_WIDTH", cfg.Bluetooth.TileWidth)
	cfg.Bluetooth.ProfilesPath = getEnv("PROFILES_PATH", cfg.Bluetooth.ProfilesPath)
	cfg.Bluetooth.DisableKeepalive = getEnvAsBool("DISABLE_KEEPALIVE", cfg.Bluetooth.DisableKeepalive)
	cfg.Bluetooth.DisableAutoReconn = getEnvAsBool("DISABLE_AUTO_RECONNECT", cfg.Bluetooth.DisableAutoReconn)

	cfg.Server.Port = getEnvAsInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvAsInt("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvAsInt("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)

	cfg.Image.TargetWidth = getEnvAsInt("IMAGE_TARGET_WIDTH", cfg.Image.TargetWidth)
	cfg.Image.TargetHeight = getEnvAsInt("IMAGE_TARGET_HEIGHT", cfg.Image.TargetHeight)
	cfg.Image.DefaultFit = getEnv("IMAGE_DEFAULT_FIT", cfg.Image.DefaultFit)
	cfg.Image.Workers = getEnvAsInt("IMAGE_WORKERS", cfg.Image.Workers)
	cfg.Image.CacheTTLSec = getEnvAsInt("IMAGE_CACHE_TTL_SEC", cfg.Image.CacheTTLSec)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Stream = getEnv("REDIS_STREAM", cfg.Redis.Stream)
	cfg.Redis.Group = getEnv("REDIS_GROUP", cfg.Redis.Group)
	cfg.Redis.Consumer = getEnv("REDIS_CONSUMER", cfg.Redis.Consumer)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
