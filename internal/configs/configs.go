package configs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sghtao/companion-camp-backend/internal/reward"
)

// 社交数据模式
const (
	SocialModeX      = "x"
	SocialModeDemo   = "demo"
	SocialModeRandom = "random"
)

// AI 服务提供方
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderNone     = "none"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel string `json:"log_level"` // debug/info/warn/error
	Proxy    string `json:"proxy"`     // 出站 HTTP 代理

	Server Server `json:"server"`

	Social Social `json:"social"`

	// AI 模型参数
	AIConfig AIConfig `json:"ai_config"`

	// 奖励金额策略
	RewardPolicy reward.Policy `json:"reward_policy"`

	Database Database `json:"database"`

	Redis Redis `json:"redis"`

	Coins Coins `json:"coins"`
}

type Server struct {
	Addr            string `json:"addr"`
	ShutdownTimeout string `json:"shutdown_timeout"`
}

type Social struct {
	Mode        string `json:"mode"`         // x/demo/random
	BearerToken string `json:"bearer_token"` // X API bearer token
	Seed        int64  `json:"seed"`         // random 模式的种子
	PostLimit   int    `json:"post_limit"`
}

type AIConfig struct {
	Provider  string `json:"provider"`   // gemini/openai/deepseek/none
	APIKey    string `json:"api_key"`    // AI服务API密钥
	ModelType string `json:"model_type"` // AI模型类型
	BaseURL   string `json:"base_url"`
	Timeout   string `json:"timeout"`
}

type Database struct {
	ConnStr string `json:"conn_str"` // 数据库连接字符串, 为空时不记录购买历史
}

type Redis struct {
	Addr     string `json:"addr"` // 为空时不缓存
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type Coins struct {
	CacheTTL        string `json:"cache_ttl"`
	RefreshInterval string `json:"refresh_interval"` // 数据刷新间隔
	BinanceTestnet  bool   `json:"binance_testnet"`
}

// Load reads the JSON config at path (optional), overlays the given env
// files and the process environment, then validates the result.
func Load(path string, envFiles ...string) (*Config, error) {
	config := &Config{}

	if path != "" {
		configFile, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(configFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	setString(&c.LogLevel, "COMPANION_LOG_LEVEL")
	setString(&c.Proxy, "COMPANION_PROXY")
	setString(&c.Server.Addr, "COMPANION_ADDR")
	setString(&c.Social.Mode, "COMPANION_SOCIAL_MODE")
	setString(&c.Social.BearerToken, "X_BEARER_TOKEN")
	setString(&c.AIConfig.Provider, "COMPANION_AI_PROVIDER")
	setString(&c.AIConfig.ModelType, "COMPANION_AI_MODEL")
	setString(&c.AIConfig.Timeout, "COMPANION_AI_TIMEOUT")
	setString(&c.Database.ConnStr, "DATABASE_URL")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Coins.CacheTTL, "COMPANION_COINS_CACHE_TTL")

	if v := os.Getenv("COMPANION_SOCIAL_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Social.Seed = seed
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// providerKeyEnv 各提供方对应的密钥环境变量
var providerKeyEnv = map[string]string{
	ProviderGemini:   "GEMINI_API_KEY",
	ProviderOpenAI:   "OPENAI_API_KEY",
	ProviderDeepSeek: "DEEPSEEK_API_KEY",
}

// Validate fills defaults and rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	c.Social.Mode = strings.ToLower(strings.TrimSpace(c.Social.Mode))
	if c.Social.Mode == "" {
		c.Social.Mode = SocialModeDemo
		if c.Social.BearerToken != "" {
			c.Social.Mode = SocialModeX
		}
	}
	switch c.Social.Mode {
	case SocialModeX:
		if c.Social.BearerToken == "" {
			return fmt.Errorf("%w: social mode %q requires a bearer token", ErrInvalidConfig, SocialModeX)
		}
	case SocialModeDemo, SocialModeRandom:
	default:
		return fmt.Errorf("%w: unknown social mode %q", ErrInvalidConfig, c.Social.Mode)
	}
	if c.Social.PostLimit == 0 {
		c.Social.PostLimit = 20
	}

	if err := c.validateAI(); err != nil {
		return err
	}

	if c.RewardPolicy == (reward.Policy{}) {
		c.RewardPolicy = reward.DefaultPolicy()
	}

	if c.Coins.CacheTTL == "" {
		c.Coins.CacheTTL = "60s"
	}
	if c.Coins.RefreshInterval == "" {
		c.Coins.RefreshInterval = "30s"
	}

	durations := map[string]string{
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"ai_config.timeout":       c.AIConfig.Timeout,
		"coins.cache_ttl":         c.Coins.CacheTTL,
		"coins.refresh_interval":  c.Coins.RefreshInterval,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %s must be a positive duration, got %q", ErrInvalidConfig, name, value)
		}
	}

	return nil
}

func (c *Config) validateAI() error {
	ai := &c.AIConfig
	ai.Provider = strings.ToLower(strings.TrimSpace(ai.Provider))

	if ai.APIKey == "" && ai.Provider != "" {
		if key, ok := providerKeyEnv[ai.Provider]; ok {
			ai.APIKey = os.Getenv(key)
		}
	}

	if ai.Provider == "" {
		ai.Provider = ProviderNone
		// 按优先级选择已配置密钥的提供方
		for _, p := range []string{ProviderGemini, ProviderOpenAI, ProviderDeepSeek} {
			if key := os.Getenv(providerKeyEnv[p]); key != "" {
				ai.Provider = p
				if ai.APIKey == "" {
					ai.APIKey = key
				}
				break
			}
		}
	}

	switch ai.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderDeepSeek:
		if ai.APIKey == "" {
			return fmt.Errorf("%w: ai provider %q requires an api key", ErrInvalidConfig, ai.Provider)
		}
	case ProviderNone:
	default:
		return fmt.Errorf("%w: unknown ai provider %q", ErrInvalidConfig, ai.Provider)
	}

	if ai.Timeout == "" {
		ai.Timeout = "30s"
	}
	return nil
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log level %q: %v", ErrInvalidConfig, s, err)
	}
	return level, nil
}

// Duration parses a duration field that Validate has already checked.
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
