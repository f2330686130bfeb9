package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable that overrides the config file location.
const EnvConfigPath = "SHIFTBOARD_CONFIG"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Client     ClientConfig     `yaml:"client"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Backup     BackupConfig     `yaml:"backup"`
	Sheets     SheetsConfig     `yaml:"sheets"`
	Export     ExportConfig     `yaml:"export"`

	// Managers are the Telegram user ids allowed to operate the bot.
	// An empty list lets everyone in.
	Managers []int64 `yaml:"managers"`
}

type ServerConfig struct {
	Address             string   `yaml:"address"`
	CORSOrigins         []string `yaml:"cors_origins"`
	RateLimitRPS        float64  `yaml:"rate_limit_rps"`
	RateLimitBurst      int      `yaml:"rate_limit_burst"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	StateTTLMinutes int    `yaml:"state_ttl_minutes"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type ClientConfig struct {
	APIBaseURL     string `yaml:"api_base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type MonitoringConfig struct {
	HealthCheckPort   int  `yaml:"health_check_port"`
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
	GRPCHealthPort    int  `yaml:"grpc_health_port"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type SheetsConfig struct {
	Enabled         bool   `yaml:"enabled"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
	CredentialsFile string `yaml:"credentials_file"`
}

type ExportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Load reads the YAML config at path, falling back to SHIFTBOARD_CONFIG and
// then configs/config.yaml. A .env file next to the working directory is
// loaded first so ${VAR} placeholders can refer to it.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":3001"
	}
	if c.Server.RateLimitRPS <= 0 {
		c.Server.RateLimitRPS = 20
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 40
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/shiftboard.db"
	}
	if c.Client.APIBaseURL == "" {
		c.Client.APIBaseURL = "http://localhost:3001"
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.Sheets.SheetName == "" {
		c.Sheets.SheetName = "Shifts"
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "data/exports"
	}
}

func (c *Config) ReadTimeout() time.Duration {
	if c.Server.ReadTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	if c.Server.WriteTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

// ClientTimeout bounds every request the bot makes to the API.
func (c *Config) ClientTimeout() time.Duration {
	if c.Client.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Client.TimeoutSeconds) * time.Second
}

func (c *Config) StateTTL() time.Duration {
	if c.Redis.StateTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.StateTTLMinutes) * time.Minute
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// IsManager reports whether the Telegram user may operate the bot.
func (c *Config) IsManager(userID int64) bool {
	if len(c.Managers) == 0 {
		return true
	}
	for _, id := range c.Managers {
		if id == userID {
			return true
		}
	}
	return false
}
