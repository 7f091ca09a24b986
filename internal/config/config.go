package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Scraper   ScraperConfig
	Browser   BrowserConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type ScraperConfig struct {
	HardLimit    time.Duration
	PerSiteLimit int
	MaxPages     int
	NavTimeout   time.Duration
}

type BrowserConfig struct {
	Headless        bool
	ExtendedStealth bool
	Install         bool
	ProxyServer     string
	UserAgents      []string
}

type RateLimitConfig struct {
	PerMinute int
}

// RedisConfig is optional. An empty Addr keeps rate-limit counters in
// process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			RequestTimeout:  getDurationOrDefault("SERVER_REQUEST_TIMEOUT", 55*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Scraper: ScraperConfig{
			HardLimit:    getDurationOrDefault("SCRAPER_HARD_LIMIT", 15*time.Second),
			PerSiteLimit: getIntOrDefault("SCRAPER_PER_SITE_LIMIT", 12),
			MaxPages:     getIntOrDefault("SCRAPER_MAX_PAGES", 1),
			NavTimeout:   getDurationOrDefault("SCRAPER_NAV_TIMEOUT", 9*time.Second),
		},
		Browser: BrowserConfig{
			Headless:        getBoolOrDefault("BROWSER_HEADLESS", true),
			ExtendedStealth: getBoolOrDefault("BROWSER_EXTENDED_STEALTH", true),
			Install:         getBoolOrDefault("BROWSER_INSTALL", false),
			ProxyServer:     getEnvOrDefault("BROWSER_PROXY", ""),
			UserAgents:      getStringSliceOrDefault("BROWSER_USER_AGENTS", nil),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getIntOrDefault("RATE_LIMIT_PER_MINUTE", 30),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Prefix:   getEnvOrDefault("REDIS_PREFIX", "listing-scraper:ratelimit"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.HardLimit <= 0 {
		return fmt.Errorf("SCRAPER_HARD_LIMIT must be positive")
	}

	if c.Scraper.PerSiteLimit < 1 {
		return fmt.Errorf("SCRAPER_PER_SITE_LIMIT must be at least 1")
	}

	if c.Scraper.MaxPages < 1 {
		return fmt.Errorf("SCRAPER_MAX_PAGES must be at least 1")
	}

	if c.Scraper.NavTimeout <= 0 {
		return fmt.Errorf("SCRAPER_NAV_TIMEOUT must be positive")
	}

	if c.RateLimit.PerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE cannot be negative")
	}

	if c.Server.RequestTimeout > c.Server.WriteTimeout {
		return fmt.Errorf("SERVER_REQUEST_TIMEOUT cannot be greater than SERVER_WRITE_TIMEOUT")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format)
	}

	return nil
}

// Address is the listen address for http.Server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
