package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config application configuration structure
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Runner  RunnerConfig  `yaml:"runner" mapstructure:"runner"`
	Loop    LoopConfig    `yaml:"loop" mapstructure:"loop"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
}

// ServerConfig session server configuration
type ServerConfig struct {
	Port    int    `yaml:"port" mapstructure:"port"`
	WSPath  string `yaml:"ws_path" mapstructure:"ws_path"`
	APIPath string `yaml:"api_path" mapstructure:"api_path"`
	// MaxMessageBytes limits the size of a single inbound session message (0 = unlimited)
	MaxMessageBytes int64         `yaml:"max_message_bytes" mapstructure:"max_message_bytes"`
	SessionTTL      time.Duration `yaml:"session_ttl" mapstructure:"session_ttl"`
}

// LogConfig log configuration
type LogConfig struct {
	Level       string        `yaml:"level"`
	FileLogging FileLogConfig `yaml:"file_logging" mapstructure:"file_logging"`
}

// FileLogConfig file log configuration
type FileLogConfig struct {
	Enable     bool   `yaml:"enable"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// RunnerConfig controls how curl commands are executed
type RunnerConfig struct {
	Shell          string   `yaml:"shell" mapstructure:"shell"`
	ShellArgs      []string `yaml:"shell_args" mapstructure:"shell_args"`
	MaxOutputBytes int      `yaml:"max_output_bytes" mapstructure:"max_output_bytes"`
	// Timeout bounds a single invocation; 0 waits for the process forever.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LoopConfig loop execution limits
type LoopConfig struct {
	MaxRuns      int           `yaml:"max_runs" mapstructure:"max_runs"`
	DefaultDelay time.Duration `yaml:"default_delay" mapstructure:"default_delay"`
}

// OutputConfig controls CLI output style
type OutputConfig struct {
	Mode    string `yaml:"mode" mapstructure:"mode"`
	Silence bool   `yaml:"silence" mapstructure:"silence"`
	Locale  string `yaml:"locale" mapstructure:"locale"`
	// Dir receives saved response output, one file per session
	Dir      string         `yaml:"dir" mapstructure:"dir"`
	BodyView BodyViewConfig `yaml:"body_view" mapstructure:"body_view"`
}

// BodyViewConfig 控制终端中响应正文的格式化
type BodyViewConfig struct {
	Enable bool `yaml:"enable" mapstructure:"enable"`
	// MaxIndentBytes skips JSON indentation above this size (0 = always indent)
	MaxIndentBytes int  `yaml:"max_indent_bytes" mapstructure:"max_indent_bytes"`
	JSON           bool `yaml:"json" mapstructure:"json"`
	XML            bool `yaml:"xml" mapstructure:"xml"`
	HTML           bool `yaml:"html" mapstructure:"html"`
}

// StorageConfig 持久化存储参数
type StorageConfig struct {
	Enable     bool          `yaml:"enable" mapstructure:"enable"`
	Driver     string        `yaml:"driver" mapstructure:"driver"`
	Path       string        `yaml:"path" mapstructure:"path"`
	MaxRecords int           `yaml:"max_records" mapstructure:"max_records"`
	Retention  time.Duration `yaml:"retention" mapstructure:"retention"`
}

// LoadConfig load configuration
// If v is nil, a new viper instance will be created
func LoadConfig(configPath string, v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)

	v.SetEnvPrefix("REQLOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.reqloop")
		v.AddConfigPath("/etc/reqloop")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		log.Printf("Config file loaded: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Unmarshal doesn't apply defaults to zero-value fields
	applyDefaults(&config, v)

	return &config, nil
}

// applyDefaults apply default values to zero-value fields in the struct.
// Command line flags are handled separately in main.go to ensure highest priority.
func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if cfg.Server.WSPath == "" {
		cfg.Server.WSPath = v.GetString("server.ws_path")
	}
	if cfg.Server.APIPath == "" {
		cfg.Server.APIPath = v.GetString("server.api_path")
	}
	if cfg.Server.MaxMessageBytes == 0 {
		cfg.Server.MaxMessageBytes = v.GetInt64("server.max_message_bytes")
	}
	if cfg.Server.SessionTTL == 0 {
		cfg.Server.SessionTTL = v.GetDuration("server.session_ttl")
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = v.GetString("log.level")
	}
	// Bool fields always follow viper, which already merges file values and defaults.
	cfg.Log.FileLogging.Enable = v.GetBool("log.file_logging.enable")
	cfg.Log.FileLogging.Compress = v.GetBool("log.file_logging.compress")
	if cfg.Log.FileLogging.Path == "" {
		cfg.Log.FileLogging.Path = v.GetString("log.file_logging.path")
	}
	if cfg.Log.FileLogging.MaxSizeMB == 0 {
		cfg.Log.FileLogging.MaxSizeMB = v.GetInt("log.file_logging.max_size_mb")
	}
	if cfg.Log.FileLogging.MaxBackups == 0 {
		cfg.Log.FileLogging.MaxBackups = v.GetInt("log.file_logging.max_backups")
	}
	if cfg.Log.FileLogging.MaxAgeDays == 0 {
		cfg.Log.FileLogging.MaxAgeDays = v.GetInt("log.file_logging.max_age_days")
	}

	if cfg.Runner.Shell == "" {
		cfg.Runner.Shell = v.GetString("runner.shell")
	}
	if len(cfg.Runner.ShellArgs) == 0 {
		cfg.Runner.ShellArgs = v.GetStringSlice("runner.shell_args")
	}
	if cfg.Runner.MaxOutputBytes == 0 {
		cfg.Runner.MaxOutputBytes = v.GetInt("runner.max_output_bytes")
	}

	if cfg.Output.Mode == "" {
		cfg.Output.Mode = v.GetString("output.mode")
	}
	cfg.Output.Silence = v.GetBool("output.silence")
	if cfg.Output.Locale == "" {
		cfg.Output.Locale = v.GetString("output.locale")
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = v.GetString("output.dir")
	}
	cfg.Output.BodyView.Enable = v.GetBool("output.body_view.enable")
	if cfg.Output.BodyView.MaxIndentBytes == 0 {
		cfg.Output.BodyView.MaxIndentBytes = v.GetInt("output.body_view.max_indent_bytes")
	}
	cfg.Output.BodyView.JSON = v.GetBool("output.body_view.json")
	cfg.Output.BodyView.XML = v.GetBool("output.body_view.xml")
	cfg.Output.BodyView.HTML = v.GetBool("output.body_view.html")

	cfg.Storage.Enable = v.GetBool("storage.enable")
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = v.GetString("storage.driver")
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = v.GetString("storage.path")
	}
	if cfg.Storage.MaxRecords == 0 {
		cfg.Storage.MaxRecords = v.GetInt("storage.max_records")
	}
	if cfg.Storage.Retention == 0 {
		cfg.Storage.Retention = v.GetDuration("storage.retention")
	}
}

// setDefaults set default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 38890)
	v.SetDefault("server.ws_path", "/ws")
	v.SetDefault("server.api_path", "/api")
	v.SetDefault("server.max_message_bytes", int64(1024*1024))
	v.SetDefault("server.session_ttl", "30m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_logging.enable", false)
	v.SetDefault("log.file_logging.path", "./reqloop.log")
	v.SetDefault("log.file_logging.max_size_mb", 10)
	v.SetDefault("log.file_logging.max_backups", 5)
	v.SetDefault("log.file_logging.max_age_days", 30)
	v.SetDefault("log.file_logging.compress", true)

	v.SetDefault("runner.shell", "sh")
	v.SetDefault("runner.shell_args", []string{"-c"})
	v.SetDefault("runner.max_output_bytes", 10*1024*1024)
	v.SetDefault("runner.timeout", "0s")

	v.SetDefault("loop.max_runs", 10000)
	v.SetDefault("loop.default_delay", "0s")

	v.SetDefault("output.mode", "console")
	v.SetDefault("output.silence", false)
	v.SetDefault("output.locale", "en")
	v.SetDefault("output.dir", "./.reqloop")
	v.SetDefault("output.body_view.enable", true)
	v.SetDefault("output.body_view.max_indent_bytes", 256*1024)
	v.SetDefault("output.body_view.json", true)
	v.SetDefault("output.body_view.xml", true)
	v.SetDefault("output.body_view.html", false)

	v.SetDefault("storage.enable", true)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "./data/reqloop.db")
	v.SetDefault("storage.max_records", 100000)
	v.SetDefault("storage.retention", "0s")
}

// Validate checks the configuration and fills normalized fallbacks
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.WSPath == "" || !strings.HasPrefix(c.Server.WSPath, "/") {
		return fmt.Errorf("server ws_path must start with '/'")
	}
	if c.Server.APIPath == "" || !strings.HasPrefix(c.Server.APIPath, "/") {
		return fmt.Errorf("server api_path must start with '/'")
	}
	if pathsOverlap(normalizePath(c.Server.WSPath), normalizePath(c.Server.APIPath)) {
		return fmt.Errorf("server ws_path (%s) conflicts with api_path (%s)", c.Server.WSPath, c.Server.APIPath)
	}
	if c.Server.MaxMessageBytes < 0 {
		return fmt.Errorf("server max message bytes cannot be negative")
	}
	if c.Server.SessionTTL < 0 {
		return fmt.Errorf("server session ttl cannot be negative")
	}

	if strings.TrimSpace(c.Runner.Shell) == "" {
		return fmt.Errorf("runner shell cannot be empty")
	}
	if c.Runner.MaxOutputBytes < 0 {
		return fmt.Errorf("runner max output bytes cannot be negative")
	}
	if c.Runner.Timeout < 0 {
		return fmt.Errorf("runner timeout cannot be negative")
	}

	if c.Loop.MaxRuns < 0 {
		return fmt.Errorf("loop max runs cannot be negative")
	}
	if c.Loop.DefaultDelay < 0 {
		return fmt.Errorf("loop default delay cannot be negative")
	}

	switch strings.ToLower(c.Output.Mode) {
	case "", "console", "json":
		if c.Output.Mode == "" {
			c.Output.Mode = "console"
		}
	default:
		return fmt.Errorf("output mode must be 'console' or 'json'")
	}
	if strings.TrimSpace(c.Output.Locale) == "" {
		c.Output.Locale = "en"
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.Output.BodyView.MaxIndentBytes < 0 {
		return fmt.Errorf("output body_view max_indent_bytes cannot be negative")
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "sqlite", "sqlite3":
		if strings.TrimSpace(c.Storage.Driver) == "" {
			c.Storage.Driver = "sqlite"
		}
	case "memory":
	default:
		return fmt.Errorf("storage driver must be sqlite or memory")
	}
	if c.Storage.Enable && strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage path cannot be empty")
	}
	if c.Storage.MaxRecords < 0 {
		return fmt.Errorf("storage max_records cannot be negative")
	}
	if c.Storage.Retention < 0 {
		return fmt.Errorf("storage retention cannot be negative")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if c.Log.FileLogging.Enable {
		if c.Log.FileLogging.Path == "" {
			return fmt.Errorf("log file path cannot be empty when file logging is enabled")
		}
		if c.Log.FileLogging.MaxSizeMB < 1 {
			return fmt.Errorf("log file max size must be at least 1MB")
		}
		if c.Log.FileLogging.MaxBackups < 0 {
			return fmt.Errorf("log file max backups cannot be negative")
		}
		if c.Log.FileLogging.MaxAgeDays < 0 {
			return fmt.Errorf("log file max age cannot be negative")
		}
	}

	return nil
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}

func pathsOverlap(a, b string) bool {
	if a == "/" || b == "/" {
		return true
	}
	if a == b {
		return true
	}
	aPrefix := strings.TrimRight(a, "/") + "/"
	bPrefix := strings.TrimRight(b, "/") + "/"
	return strings.HasPrefix(aPrefix, bPrefix) || strings.HasPrefix(bPrefix, aPrefix)
}
