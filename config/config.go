package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/cppla/simplecaptcha/captcha"
)

// AppConfig holds file and environment driven configuration values.
type AppConfig struct {
	AppPort        string
	AllowedOrigins []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Redis backs the shared challenge store
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Database holds the module settings row when CaptchaSettingsSource is "database"
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Captcha module
	Captcha               captcha.Settings
	CaptchaStore          string // memory | redis
	CaptchaKeyPrefix      string
	CaptchaRenderer       string // gg | base64captcha
	CaptchaSettingsSource string // config | database
	CaptchaAlphabetUpper  string
	CaptchaAlphabetMixed  string
}

// fileConfig is the on-disk layout shared by the json, yaml and toml formats.
type fileConfig struct {
	App struct {
		Port           string   `json:"AppPort" yaml:"port" toml:"port"`
		AllowedOrigins []string `json:"AllowedOrigins" yaml:"allowed_origins" toml:"allowed_origins"`
	} `json:"app" yaml:"app" toml:"app"`
	Gin struct {
		Mode string `json:"Mode" yaml:"mode" toml:"mode"`
		Path string `json:"LogPath" yaml:"path" toml:"path"`
	} `json:"gin" yaml:"gin" toml:"gin"`
	Redis struct {
		Host     string `json:"RedisHost" yaml:"host" toml:"host"`
		Port     int    `json:"RedisPort" yaml:"port" toml:"port"`
		DB       int    `json:"RedisDB" yaml:"db" toml:"db"`
		Password string `json:"RedisPassword" yaml:"password" toml:"password"`
	} `json:"redis" yaml:"redis" toml:"redis"`
	Database struct {
		URI      string `json:"DatabaseURI" yaml:"uri" toml:"uri"`
		Host     string `json:"DBHost" yaml:"host" toml:"host"`
		Port     string `json:"DBPort" yaml:"port" toml:"port"`
		User     string `json:"DBUser" yaml:"user" toml:"user"`
		Password string `json:"DBPassword" yaml:"password" toml:"password"`
		Name     string `json:"DBName" yaml:"name" toml:"name"`
	} `json:"database" yaml:"database" toml:"database"`
	Log struct {
		Level      string `json:"Level" yaml:"level" toml:"level"`
		Path       string `json:"Path" yaml:"path" toml:"path"`
		MaxSizeMB  int    `json:"MaxSizeMB" yaml:"max_size_mb" toml:"max_size_mb"`
		MaxBackups int    `json:"MaxBackups" yaml:"max_backups" toml:"max_backups"`
		MaxAgeDays int    `json:"MaxAgeDays" yaml:"max_age_days" toml:"max_age_days"`
		Compress   bool   `json:"Compress" yaml:"compress" toml:"compress"`
	} `json:"log" yaml:"log" toml:"log"`
	Captcha struct {
		captcha.Settings `yaml:",inline"`
		Store            string `json:"store" yaml:"store" toml:"store"`
		KeyPrefix        string `json:"key_prefix" yaml:"key_prefix" toml:"key_prefix"`
		Renderer         string `json:"renderer" yaml:"renderer" toml:"renderer"`
		SettingsSource   string `json:"settings_source" yaml:"settings_source" toml:"settings_source"`
		AlphabetUpper    string `json:"alphabet_upper" yaml:"alphabet_upper" toml:"alphabet_upper"`
		AlphabetMixed    string `json:"alphabet_mixed" yaml:"alphabet_mixed" toml:"alphabet_mixed"`
	} `json:"captcha" yaml:"captcha" toml:"captcha"`
}

var cfg AppConfig
var loaded bool

// configCandidates are tried in order when CONFIG_PATH is not set.
var configCandidates = []string{
	filepath.Join("config", "config.json"),
	filepath.Join("config", "config.yaml"),
	filepath.Join("config", "config.yml"),
	filepath.Join("config", "config.toml"),
}

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config file -> defaults -> environment variable overrides
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		c, err := LoadFile(path)
		if err != nil {
			log.Fatalf("invalid config file %s: %v", path, err)
		}
		cfg = c
	} else {
		cfg = AppConfig{Captcha: captcha.DefaultSettings()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func findConfigFile() string {
	for _, p := range configCandidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadFile decodes a config file, picking the format from its extension.
// Captcha settings missing from the file keep the module defaults.
func LoadFile(path string) (AppConfig, error) {
	var fc fileConfig
	fc.Captcha.Settings = captcha.DefaultSettings()
	fc.Captcha.ProtectedForms = nil

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		b, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, err
		}
		if err := json.Unmarshal(b, &fc); err != nil {
			return AppConfig{}, err
		}
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, err
		}
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return AppConfig{}, err
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return AppConfig{}, err
		}
	default:
		return AppConfig{}, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if fc.Captcha.ProtectedForms == nil {
		fc.Captcha.ProtectedForms = captcha.DefaultSettings().ProtectedForms
	}

	return AppConfig{
		AppPort:               fc.App.Port,
		AllowedOrigins:        fc.App.AllowedOrigins,
		GinMode:               fc.Gin.Mode,
		GinPath:               fc.Gin.Path,
		RedisHost:             fc.Redis.Host,
		RedisPort:             fc.Redis.Port,
		RedisDB:               fc.Redis.DB,
		RedisPassword:         fc.Redis.Password,
		DatabaseURI:           fc.Database.URI,
		DBHost:                fc.Database.Host,
		DBPort:                fc.Database.Port,
		DBUser:                fc.Database.User,
		DBPassword:            fc.Database.Password,
		DBName:                fc.Database.Name,
		LogLevel:              fc.Log.Level,
		LogPath:               fc.Log.Path,
		LogMaxSizeMB:          fc.Log.MaxSizeMB,
		LogMaxBackups:         fc.Log.MaxBackups,
		LogMaxAgeDays:         fc.Log.MaxAgeDays,
		LogCompress:           fc.Log.Compress,
		Captcha:               fc.Captcha.Settings,
		CaptchaStore:          fc.Captcha.Store,
		CaptchaKeyPrefix:      fc.Captcha.KeyPrefix,
		CaptchaRenderer:       fc.Captcha.Renderer,
		CaptchaSettingsSource: fc.Captcha.SettingsSource,
		CaptchaAlphabetUpper:  fc.Captcha.AlphabetUpper,
		CaptchaAlphabetMixed:  fc.Captcha.AlphabetMixed,
	}, nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "simplecaptcha"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.CaptchaStore == "" {
		c.CaptchaStore = "memory"
	}
	if c.CaptchaKeyPrefix == "" {
		c.CaptchaKeyPrefix = captcha.DefaultKeyPrefix
	}
	if c.CaptchaRenderer == "" {
		c.CaptchaRenderer = "gg"
	}
	if c.CaptchaSettingsSource == "" {
		c.CaptchaSettingsSource = "config"
	}
	if c.Captcha.ProtectedForms == nil {
		c.Captcha.ProtectedForms = captcha.DefaultSettings().ProtectedForms
	}
	c.Captcha = c.Captcha.Normalize()
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			*dst = mustParseInt(v)
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true"
		}
	}

	setString("APP_PORT", &c.AppPort)
	setString("GIN_MODE", &c.GinMode)
	setString("GIN_PATH", &c.GinPath)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}

	setString("REDIS_HOST", &c.RedisHost)
	setInt("REDIS_PORT", &c.RedisPort)
	setInt("REDIS_DB", &c.RedisDB)
	setString("REDIS_PASSWORD", &c.RedisPassword)

	setString("DATABASE_URI", &c.DatabaseURI)
	setString("DB_HOST", &c.DBHost)
	setString("DB_PORT", &c.DBPort)
	setString("DB_USER", &c.DBUser)
	setString("DB_PASSWORD", &c.DBPassword)
	setString("DB_NAME", &c.DBName)

	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_PATH", &c.LogPath)
	setInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	setInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	setInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	setBool("LOG_COMPRESS", &c.LogCompress)

	setBool("CAPTCHA_ENABLED", &c.Captcha.Enabled)
	if v := os.Getenv("CAPTCHA_TYPE"); v != "" {
		c.Captcha.Type = captcha.Type(v)
	}
	if v := os.Getenv("CAPTCHA_DIFFICULTY"); v != "" {
		c.Captcha.Difficulty = captcha.Difficulty(v)
	}
	setBool("CAPTCHA_CASE_SENSITIVE", &c.Captcha.CaseSensitive)
	setInt("CAPTCHA_LENGTH", &c.Captcha.Length)
	setInt("CAPTCHA_EXPIRY", &c.Captcha.ExpirySeconds)
	setString("CAPTCHA_STORE", &c.CaptchaStore)
	setString("CAPTCHA_KEY_PREFIX", &c.CaptchaKeyPrefix)
	setString("CAPTCHA_RENDERER", &c.CaptchaRenderer)
	setString("CAPTCHA_SETTINGS_SOURCE", &c.CaptchaSettingsSource)
	c.Captcha = c.Captcha.Normalize()
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
