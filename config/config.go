package config

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWebPort          = 1816
	DefaultPrometheusURL    = "http://127.0.0.1:9090"
	DefaultQueryTimeout     = 10 * time.Second
	DefaultRateWindow       = "5m"
	DefaultInMetric         = "ifHCInOctets"
	DefaultOutMetric        = "ifHCOutOctets"
	DefaultInterfaceLabel   = "ifName"
	DefaultQueryWorkers     = 16
	DefaultRefreshCron      = "@every 30s"
	DefaultSendTimeout      = 5 * time.Second
	DefaultWsPingInterval   = 15 * time.Second
	DefaultDatabaseMaxConn  = 50
	DefaultDatabaseIdleConn = 10
)

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig web server configuration
type WebConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	WsPingInterval time.Duration `yaml:"ws_ping_interval"`
	// WsOrigins host patterns allowed to open the live topology websocket besides the serving host
	WsOrigins      []string      `yaml:"ws_origins"`
}

// DBConfig database configuration
type DBConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// LogConfig logging configuration
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// PrometheusConfig metrics backend used to read interface counters
type PrometheusConfig struct {
	URL            string        `yaml:"url"`
	Timeout        time.Duration `yaml:"timeout"`
	Window         string        `yaml:"window"`
	InMetric       string        `yaml:"in_metric"`
	OutMetric      string        `yaml:"out_metric"`
	InterfaceLabel string        `yaml:"interface_label"`
	Workers        int           `yaml:"workers"`
}

// BroadcastConfig live update fan-out settings
type BroadcastConfig struct {
	// RefreshCron pushes a fresh snapshot to all subscribers on schedule, empty disables it
	RefreshCron string        `yaml:"refresh_cron"`
	SendTimeout time.Duration `yaml:"send_timeout"`
}

type AppConfig struct {
	System     SysConfig        `yaml:"system"`
	Web        WebConfig        `yaml:"web"`
	Database   DBConfig         `yaml:"database"`
	Logger     LogConfig        `yaml:"logger"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Broadcast  BroadcastConfig  `yaml:"broadcast"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

// DefaultAppConfig returns the built-in configuration used when no file is given
func DefaultAppConfig() *AppConfig {
	cfg := &AppConfig{
		System: SysConfig{
			Appid:    "TopoLive",
			Location: "Asia/Shanghai",
			Workdir:  "/var/topolive",
		},
		Web: WebConfig{
			Host: "0.0.0.0",
		},
		Database: DBConfig{
			Type: "postgres",
			Host: "127.0.0.1",
			Port: 5432,
			Name: "topolive",
			User: "postgres",
		},
		Logger: LogConfig{
			Mode:     "development",
			Filename: "/var/topolive/logs/topolive.log",
		},
		Broadcast: BroadcastConfig{
			RefreshCron: DefaultRefreshCron,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// LoadConfig reads a YAML file, then applies defaults and environment overrides.
// An empty path yields the default configuration.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", cfile)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", cfile)
		}
	}
	applyEnv(cfg)
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *AppConfig) {
	if cfg.Web.Port == 0 {
		cfg.Web.Port = DefaultWebPort
	}
	if cfg.Web.WsPingInterval == 0 {
		cfg.Web.WsPingInterval = DefaultWsPingInterval
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.MaxConn == 0 {
		cfg.Database.MaxConn = DefaultDatabaseMaxConn
	}
	if cfg.Database.IdleConn == 0 {
		cfg.Database.IdleConn = DefaultDatabaseIdleConn
	}
	if cfg.Prometheus.URL == "" {
		cfg.Prometheus.URL = DefaultPrometheusURL
	}
	if cfg.Prometheus.Timeout == 0 {
		cfg.Prometheus.Timeout = DefaultQueryTimeout
	}
	if cfg.Prometheus.Window == "" {
		cfg.Prometheus.Window = DefaultRateWindow
	}
	if cfg.Prometheus.InMetric == "" {
		cfg.Prometheus.InMetric = DefaultInMetric
	}
	if cfg.Prometheus.OutMetric == "" {
		cfg.Prometheus.OutMetric = DefaultOutMetric
	}
	if cfg.Prometheus.InterfaceLabel == "" {
		cfg.Prometheus.InterfaceLabel = DefaultInterfaceLabel
	}
	if cfg.Prometheus.Workers == 0 {
		cfg.Prometheus.Workers = DefaultQueryWorkers
	}
	if cfg.Broadcast.SendTimeout == 0 {
		cfg.Broadcast.SendTimeout = DefaultSendTimeout
	}
}

// Validate performs minimal validation for required fields.
func Validate(cfg *AppConfig) error {
	if strings.TrimSpace(cfg.Prometheus.URL) == "" {
		return fmt.Errorf("prometheus.url is required")
	}
	if cfg.Prometheus.Workers < 0 {
		return fmt.Errorf("prometheus.workers must be positive, got %d", cfg.Prometheus.Workers)
	}
	if cfg.Web.Port < 0 || cfg.Web.Port > 65535 {
		return fmt.Errorf("web.port out of range: %d", cfg.Web.Port)
	}
	return nil
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("TOPOLIVE_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvValue("TOPOLIVE_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("TOPOLIVE_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("TOPOLIVE_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("TOPOLIVE_WEB_PORT", &cfg.Web.Port)

	setEnvValue("TOPOLIVE_DB_TYPE", &cfg.Database.Type)
	setEnvValue("TOPOLIVE_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("TOPOLIVE_DB_PORT", &cfg.Database.Port)
	setEnvValue("TOPOLIVE_DB_NAME", &cfg.Database.Name)
	setEnvValue("TOPOLIVE_DB_USER", &cfg.Database.User)
	setEnvValue("TOPOLIVE_DB_PWD", &cfg.Database.Passwd)
	setEnvBoolValue("TOPOLIVE_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("TOPOLIVE_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("TOPOLIVE_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvValue("TOPOLIVE_PROMETHEUS_URL", &cfg.Prometheus.URL)
	setEnvDurationValue("TOPOLIVE_PROMETHEUS_TIMEOUT", &cfg.Prometheus.Timeout)
	setEnvIntValue("TOPOLIVE_PROMETHEUS_WORKERS", &cfg.Prometheus.Workers)

	setEnvValue("TOPOLIVE_BROADCAST_REFRESH_CRON", &cfg.Broadcast.RefreshCron)
}

func setEnvValue(name string, val *string) {
	if v, ok := os.LookupEnv(name); ok {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v := os.Getenv(name); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			*val = i
		}
	}
}

func setEnvDurationValue(name string, val *time.Duration) {
	if v := os.Getenv(name); v != "" {
		if d, err := cast.ToDurationE(v); err == nil {
			*val = d
		}
	}
}
