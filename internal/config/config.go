package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/common/config"
)

// 可选的采集器
const (
	CollectorDaily    = "daily"
	CollectorIntraday = "intraday"
	CollectorSleep    = "sleep"
)

// Config 采集服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	Fitbit struct {
		ClientID     string
		ClientSecret string
		RedirectURI  string
		APIBaseURL   string
		TokenURL     string
		AuthURL      string
		Timeout      time.Duration
	}

	// SecretKey 令牌加密密钥：32 字节原文或其 base64 编码
	SecretKey string

	Collector struct {
		Enabled       []string      // 启用的采集器
		UnitInterval  time.Duration // 相邻单元间隔
		DailyEpoch    time.Time
		IntradayEpoch time.Time
		SleepEpoch    time.Time
	}

	Orchestrator struct {
		NoDevicesSleep time.Duration
		RateLimitSleep time.Duration
		CycleSleep     time.Duration
		CycleStream    string // Redis Stream，周期汇总
		StreamMaxLen   int64
	}

	Sync struct {
		Topic string // MQTT 同步通知主题，MQTT_BROKER 为空时不启用
	}

	Auth struct {
		CleanupInterval time.Duration
		RefreshLockTTL  time.Duration
	}

	Metrics struct {
		Addr string // 为空时不启动 /metrics
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database = config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "wearables",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = config.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT = config.MQTTConfig{ClientID: "wearable-collector", QoS: 1}
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Fitbit.ClientID = getEnv("FITBIT_CLIENT_ID", "")
	cfg.Fitbit.ClientSecret = getEnv("FITBIT_CLIENT_SECRET", "")
	cfg.Fitbit.RedirectURI = getEnv("FITBIT_REDIRECT_URI", "")
	cfg.Fitbit.APIBaseURL = getEnv("FITBIT_API_BASE_URL", "https://api.fitbit.com")
	cfg.Fitbit.TokenURL = getEnv("FITBIT_TOKEN_URL", "https://api.fitbit.com/oauth2/token")
	cfg.Fitbit.AuthURL = getEnv("FITBIT_AUTH_URL", "https://www.fitbit.com/oauth2/authorize")
	cfg.Fitbit.Timeout = getEnvDuration("FITBIT_TIMEOUT", 30*time.Second)

	cfg.SecretKey = getEnv("SECRET_KEY", "")

	cfg.Collector.Enabled = splitList(getEnv("COLLECTORS", "daily,intraday,sleep"))
	cfg.Collector.UnitInterval = getEnvDuration("COLLECTOR_UNIT_INTERVAL", time.Second)
	cfg.Collector.DailyEpoch = getEnvDate("COLLECTOR_DAILY_EPOCH", time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC))
	cfg.Collector.IntradayEpoch = getEnvDate("COLLECTOR_INTRADAY_EPOCH", time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC))
	cfg.Collector.SleepEpoch = getEnvDate("COLLECTOR_SLEEP_EPOCH", time.Date(2025, 1, 24, 0, 0, 0, 0, time.UTC))

	cfg.Orchestrator.NoDevicesSleep = getEnvDuration("ORCH_NO_DEVICES_SLEEP", 60*time.Second)
	cfg.Orchestrator.RateLimitSleep = getEnvDuration("ORCH_RATE_LIMIT_SLEEP", 600*time.Second)
	cfg.Orchestrator.CycleSleep = getEnvDuration("ORCH_CYCLE_SLEEP", 1800*time.Second)
	cfg.Orchestrator.CycleStream = getEnv("ORCH_CYCLE_STREAM", "wearable:collector:cycles")
	cfg.Orchestrator.StreamMaxLen = int64(getEnvInt("ORCH_CYCLE_STREAM_MAXLEN", 10000))

	cfg.Sync.Topic = getEnv("MQTT_SYNC_TOPIC", "wearable/sync/+")

	cfg.Auth.CleanupInterval = getEnvDuration("AUTH_CLEANUP_INTERVAL", 5*time.Minute)
	cfg.Auth.RefreshLockTTL = getEnvDuration("AUTH_REFRESH_LOCK_TTL", 30*time.Second)

	cfg.Metrics.Addr = getEnv("METRICS_ADDR", ":9090")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 启动期必需项检查
func (c *Config) Validate() error {
	if c.Fitbit.ClientID == "" || c.Fitbit.ClientSecret == "" {
		return errors.New("FITBIT_CLIENT_ID and FITBIT_CLIENT_SECRET are required")
	}
	if _, err := c.VaultKey(); err != nil {
		return err
	}
	if len(c.Collector.Enabled) == 0 {
		return errors.New("COLLECTORS must name at least one collector")
	}
	for _, name := range c.Collector.Enabled {
		switch name {
		case CollectorDaily, CollectorIntraday, CollectorSleep:
		default:
			return fmt.Errorf("unknown collector %q in COLLECTORS", name)
		}
	}
	return nil
}

// VaultKey 解析 SECRET_KEY 为 32 字节密钥
func (c *Config) VaultKey() ([]byte, error) {
	if c.SecretKey == "" {
		return nil, errors.New("SECRET_KEY is required")
	}
	if len(c.SecretKey) == 32 {
		return []byte(c.SecretKey), nil
	}
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.StdEncoding, base64.RawURLEncoding, base64.RawStdEncoding} {
		if key, err := enc.DecodeString(c.SecretKey); err == nil && len(key) == 32 {
			return key, nil
		}
	}
	return nil, errors.New("SECRET_KEY must be 32 bytes or base64 of 32 bytes")
}

// CollectorEnabled 是否启用指定采集器
func (c *Config) CollectorEnabled(name string) bool {
	for _, n := range c.Collector.Enabled {
		if n == name {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// getEnvDuration 接受纯数字（秒）或 Go duration 字符串
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return d
	}
	return defaultValue
}

func getEnvDate(key string, defaultValue time.Time) time.Time {
	if t, err := time.Parse("2006-01-02", os.Getenv(key)); err == nil {
		return t
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
