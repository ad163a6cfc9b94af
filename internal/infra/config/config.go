package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Admission AdmissionConfig `yaml:"admission"`
	EPG       EPGConfig       `yaml:"epg"`
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Log       LogConfig       `yaml:"log"`
}

// HTTPConfig controls server level behavior.
// PublicBaseURL is the externally visible origin used for icon and playlist
// URLs; it is derived from the request when empty. AdminToken enables the
// operator routes when set.
type HTTPConfig struct {
	Address       string          `yaml:"address"`
	ReadTimeout   time.Duration   `yaml:"readTimeout"`
	WriteTimeout  time.Duration   `yaml:"writeTimeout"`
	PublicBaseURL string          `yaml:"publicBaseUrl"`
	AdminToken    string          `yaml:"adminToken"`
	RateLimit     RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// AdmissionConfig groups the three request gate checks.
type AdmissionConfig struct {
	Token     AllowListConfig `yaml:"token"`
	UserAgent AllowListConfig `yaml:"userAgent"`
	IPList    IPListConfig    `yaml:"ipList"`
}

// AllowListConfig is a range mode plus literal or "regex:" entries.
// Mode 0 disables the check, 1 default-allows non playlist requests,
// 2 default-allows playlist requests.
type AllowListConfig struct {
	Mode   int      `yaml:"mode"`
	Values []string `yaml:"values"`
}

// IPListConfig selects white list (1) or black list (2) filtering.
type IPListConfig struct {
	Mode          int    `yaml:"mode"`
	WhiteListFile string `yaml:"whiteListFile"`
	BlackListFile string `yaml:"blackListFile"`
}

// EPGConfig drives channel resolution and response synthesis.
type EPGConfig struct {
	Timezone         string            `yaml:"timezone"`
	DefaultData      bool              `yaml:"defaultData"`
	ChtToChs         bool              `yaml:"chtToChs"`
	CacheTTL         time.Duration     `yaml:"cacheTtl"`
	PlaceholderURL   string            `yaml:"placeholderUrl"`
	PlaceholderTitle string            `yaml:"placeholderTitle"`
	IconDir          string            `yaml:"iconDir"`
	IconMapping      map[string]string `yaml:"iconMapping"`
}

// StorageConfig selects the program record store.
type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig points at the database written by the ingestion job.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	Memory bool         `yaml:"memory"`
	Valkey ValkeyConfig `yaml:"valkey"`
}

// ValkeyConfig contains connection information for cache storage.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// ArtifactsConfig locates the generated XMLTV and playlist files.
type ArtifactsConfig struct {
	GenXML      bool        `yaml:"genXml"`
	DataDir     string      `yaml:"dataDir"`
	LiveDir     string      `yaml:"liveDir"`
	LiveFileDir string      `yaml:"liveFileDir"`
	R2          ObjectStore `yaml:"r2"`
}

// ObjectStore configures an S3 compatible bucket holding the artifacts.
type ObjectStore struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// LogConfig toggles the human readable access log.
type LogConfig struct {
	DebugMode     bool   `yaml:"debugMode"`
	AccessLogPath string `yaml:"accessLogPath"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_PUBLIC_BASE_URL"); v != "" {
		cfg.HTTP.PublicBaseURL = v
	}
	if v := os.Getenv("HTTP_ADMIN_TOKEN"); v != "" {
		cfg.HTTP.AdminToken = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("EPG_TOKEN_MODE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Admission.Token.Mode = parsed
		}
	}
	if v, ok := os.LookupEnv("EPG_TOKENS"); ok {
		cfg.Admission.Token.Values = splitList(v)
	}
	if v := os.Getenv("EPG_USER_AGENT_MODE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Admission.UserAgent.Mode = parsed
		}
	}
	if v, ok := os.LookupEnv("EPG_USER_AGENTS"); ok {
		cfg.Admission.UserAgent.Values = splitList(v)
	}
	if v := os.Getenv("EPG_IP_LIST_MODE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Admission.IPList.Mode = parsed
		}
	}
	if v := os.Getenv("EPG_TIMEZONE"); v != "" {
		cfg.EPG.Timezone = v
	}
	if v := os.Getenv("EPG_DEFAULT_DATA"); v != "" {
		cfg.EPG.DefaultData = parseBool(v)
	}
	if v := os.Getenv("EPG_CHT_TO_CHS"); v != "" {
		cfg.EPG.ChtToChs = parseBool(v)
	}
	if v := os.Getenv("EPG_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.EPG.CacheTTL = parsed
		}
	}
	if v := os.Getenv("EPG_ICON_DIR"); v != "" {
		cfg.EPG.IconDir = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLite.Path = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("CACHE_MEMORY"); v != "" {
		cfg.Cache.Memory = parseBool(v)
	}
	if v := os.Getenv("VALKEY_ENABLED"); v != "" {
		cfg.Cache.Valkey.Enabled = parseBool(v)
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Cache.Valkey.Addr = v
	}
	if v := os.Getenv("ARTIFACTS_GEN_XML"); v != "" {
		cfg.Artifacts.GenXML = parseBool(v)
	}
	if v := os.Getenv("ARTIFACTS_DATA_DIR"); v != "" {
		cfg.Artifacts.DataDir = v
	}
	if v := os.Getenv("R2_ENABLED"); v != "" {
		cfg.Artifacts.R2.Enabled = parseBool(v)
	}
	if v := os.Getenv("R2_ENDPOINT"); v != "" {
		cfg.Artifacts.R2.Endpoint = v
	}
	if v := os.Getenv("R2_ACCESS_KEY"); v != "" {
		cfg.Artifacts.R2.AccessKey = v
	}
	if v := os.Getenv("R2_SECRET_KEY"); v != "" {
		cfg.Artifacts.R2.SecretKey = v
	}
	if v := os.Getenv("R2_BUCKET"); v != "" {
		cfg.Artifacts.R2.Bucket = v
	}
	if v := os.Getenv("LOG_DEBUG_MODE"); v != "" {
		cfg.Log.DebugMode = parseBool(v)
	}
	if v := os.Getenv("ACCESS_LOG_PATH"); v != "" {
		cfg.Log.AccessLogPath = v
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

// splitList accepts newline or comma separated values, the way the
// allow-lists are usually pasted into an environment variable.
func splitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == ',' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 120,
				Burst:             40,
			},
		},
		Admission: AdmissionConfig{
			IPList: IPListConfig{
				WhiteListFile: "data/ipWhiteList.txt",
				BlackListFile: "data/ipBlackList.txt",
			},
		},
		EPG: EPGConfig{
			Timezone:         "Asia/Shanghai",
			DefaultData:      true,
			CacheTTL:         24 * time.Hour,
			PlaceholderURL:   "https://github.com/taksssss/EPG-Server",
			PlaceholderTitle: "精彩节目",
			IconDir:          "data/icon",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "data/data.db"},
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Cache: CacheConfig{
			Memory: true,
			Valkey: ValkeyConfig{Prefix: "epg"},
		},
		Artifacts: ArtifactsConfig{
			GenXML:      true,
			DataDir:     "data",
			LiveDir:     "live",
			LiveFileDir: "live/file",
		},
		Log: LogConfig{
			AccessLogPath: "data/access.log",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.Admission.Token.Mode < 0 {
		return errors.New("admission.token.mode cannot be negative")
	}
	if c.Admission.UserAgent.Mode < 0 {
		return errors.New("admission.userAgent.mode cannot be negative")
	}
	if c.Admission.IPList.Mode < 0 || c.Admission.IPList.Mode > 2 {
		return errors.New("admission.ipList.mode must be 0, 1 or 2")
	}
	if c.EPG.CacheTTL < 0 {
		return errors.New("epg.cacheTtl cannot be negative")
	}
	if strings.TrimSpace(c.EPG.Timezone) == "" {
		return errors.New("epg.timezone cannot be empty")
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.Storage.SQLite.Path) == "" {
			return errors.New("storage.sqlite.path cannot be empty when driver is sqlite")
		}
	case "postgres":
		if strings.TrimSpace(c.Storage.Postgres.DSN) == "" {
			return errors.New("storage.postgres.dsn cannot be empty when driver is postgres")
		}
	default:
		return fmt.Errorf("storage.driver %q is not one of memory, sqlite, postgres", c.Storage.Driver)
	}
	if c.Cache.Valkey.Enabled && strings.TrimSpace(c.Cache.Valkey.Addr) == "" {
		return errors.New("cache.valkey.addr cannot be empty when valkey cache is enabled")
	}
	if c.Artifacts.R2.Enabled && strings.TrimSpace(c.Artifacts.R2.Bucket) == "" {
		return errors.New("artifacts.r2.bucket cannot be empty when r2 is enabled")
	}
	if c.Log.DebugMode && strings.TrimSpace(c.Log.AccessLogPath) == "" {
		return errors.New("log.accessLogPath cannot be empty when debug mode is on")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	return nil
}
