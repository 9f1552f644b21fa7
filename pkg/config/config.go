package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Gateway struct {
		PingInterval     time.Duration `yaml:"ping_interval"`
		PongTimeout      time.Duration `yaml:"pong_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		AdmissionTimeout time.Duration `yaml:"admission_timeout"`
		SendBufferSize   int           `yaml:"send_buffer_size"`
		MaxMessageBytes  int64         `yaml:"max_message_bytes"`
	} `yaml:"gateway"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Relay struct {
		Enabled bool   `yaml:"enabled"`
		Channel string `yaml:"channel"`
	} `yaml:"relay"`

	Auth struct {
		JWTSecret       string        `yaml:"jwt_secret"`
		AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
		RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"auth"`

	Invites struct {
		TTL         time.Duration `yaml:"ttl"`
		FrontendURL string        `yaml:"frontend_url"`
	} `yaml:"invites"`

	Mail struct {
		Enabled     bool   `yaml:"enabled"`
		SMTPAddress string `yaml:"smtp_address"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		From        string `yaml:"from"`
	} `yaml:"mail"`

	Categorizer struct {
		Enabled bool          `yaml:"enabled"`
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"categorizer"`

	Backup struct {
		Enabled   bool          `yaml:"enabled"`
		Interval  time.Duration `yaml:"interval"`
		Directory string        `yaml:"directory"`
		Keep      int           `yaml:"keep"`
	} `yaml:"backup"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled    bool    `yaml:"enabled"`
		JaegerURL  string  `yaml:"jaeger_url"`
		SampleRate float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
		} `yaml:"http"`

		WebSocket struct {
			ConnectionsPerMinute int `yaml:"connections_per_minute"`
			Burst                int `yaml:"burst"`
		} `yaml:"websocket"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.Gateway.PingInterval <= 0 {
		return fmt.Errorf("gateway.ping_interval must be > 0")
	}
	if c.Gateway.PongTimeout <= 0 {
		return fmt.Errorf("gateway.pong_timeout must be > 0")
	}
	if c.Gateway.WriteTimeout <= 0 {
		return fmt.Errorf("gateway.write_timeout must be > 0")
	}
	if c.Gateway.AdmissionTimeout <= 0 {
		return fmt.Errorf("gateway.admission_timeout must be > 0")
	}
	if c.Gateway.SendBufferSize <= 0 {
		return fmt.Errorf("gateway.send_buffer_size must be > 0")
	}
	if c.Gateway.MaxMessageBytes < 0 {
		return fmt.Errorf("gateway.max_message_bytes must be >= 0")
	}

	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	if c.Relay.Enabled {
		if !c.Redis.Enabled {
			return fmt.Errorf("relay.enabled requires redis.enabled=true")
		}
		if c.Relay.Channel == "" {
			return fmt.Errorf("relay.channel must not be empty when relay.enabled=true")
		}
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0")
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("auth.refresh_token_ttl must be > 0")
	}

	if c.Invites.TTL <= 0 {
		return fmt.Errorf("invites.ttl must be > 0")
	}

	if c.Mail.Enabled {
		if c.Mail.SMTPAddress == "" {
			return fmt.Errorf("mail.smtp_address must not be empty when mail.enabled=true")
		}
		if c.Mail.From == "" {
			return fmt.Errorf("mail.from must not be empty when mail.enabled=true")
		}
	}

	if c.Categorizer.Enabled {
		if c.Categorizer.BaseURL == "" {
			return fmt.Errorf("categorizer.base_url must not be empty when categorizer.enabled=true")
		}
		if c.Categorizer.Model == "" {
			return fmt.Errorf("categorizer.model must not be empty when categorizer.enabled=true")
		}
		if c.Categorizer.Timeout <= 0 {
			return fmt.Errorf("categorizer.timeout must be > 0 when categorizer.enabled=true")
		}
	}

	if c.Backup.Enabled {
		if c.Backup.Interval <= 0 {
			return fmt.Errorf("backup.interval must be > 0 when backup.enabled=true")
		}
		if c.Backup.Directory == "" && !c.Redis.Enabled {
			return fmt.Errorf("backup.directory must not be empty when backup.enabled=true without redis")
		}
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort <= 0 {
		return fmt.Errorf("monitoring.prometheus_port must be > 0 when prometheus_enabled=true")
	}

	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be in [0, 1]")
		}
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.ConnectionsPerMinute <= 0 {
			return fmt.Errorf("rate_limiting.websocket.connections_per_minute must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.Burst <= 0 {
			return fmt.Errorf("rate_limiting.websocket.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Gateway.PingInterval = 30 * time.Second
	cfg.Gateway.PongTimeout = 60 * time.Second
	cfg.Gateway.WriteTimeout = 10 * time.Second
	cfg.Gateway.AdmissionTimeout = 5 * time.Second
	cfg.Gateway.SendBufferSize = 32
	cfg.Gateway.MaxMessageBytes = 64 * 1024

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.Relay.Enabled = false
	cfg.Relay.Channel = "notemesh:rooms"

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.AccessTokenTTL = 15 * time.Minute
	cfg.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	cfg.Auth.AllowedOrigins = []string{"*"}

	cfg.Invites.TTL = 7 * 24 * time.Hour
	cfg.Invites.FrontendURL = "http://localhost:3000"

	cfg.Mail.Enabled = false
	cfg.Mail.From = "noreply@notemesh.local"

	cfg.Categorizer.Enabled = false
	cfg.Categorizer.BaseURL = "https://api.openai.com/v1"
	cfg.Categorizer.Model = "gpt-3.5-turbo"
	cfg.Categorizer.Timeout = 10 * time.Second

	cfg.Backup.Enabled = false
	cfg.Backup.Interval = time.Hour
	cfg.Backup.Directory = "snapshots"
	cfg.Backup.Keep = 24

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.PrometheusPort = 9090

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.WebSocket.ConnectionsPerMinute = 60
	cfg.RateLimiting.WebSocket.Burst = 20

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("NOTEMESH_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if addr := os.Getenv("NOTEMESH_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
	if level := os.Getenv("NOTEMESH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("NOTEMESH_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if url := os.Getenv("NOTEMESH_FRONTEND_URL"); url != "" {
		c.Invites.FrontendURL = url
	}
	if key := os.Getenv("NOTEMESH_OPENAI_API_KEY"); key != "" {
		c.Categorizer.APIKey = key
	}
}
