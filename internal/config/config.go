package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"devkit/internal/catalog"
)

// EnvPrefix namespaces the environment variables that override settings.
const EnvPrefix = "DEVKIT"

const (
	DefaultPassThreshold  = 0.7
	DefaultCommandTimeout = 30 * time.Minute
	DefaultVersionTimeout = 20 * time.Second
	DefaultConcurrency    = 1
	DefaultLogLevel       = "info"
)

// Config captures the user settings that tune lifecycle operations.
type Config struct {
	PassThreshold   float64           `mapstructure:"pass_threshold"`
	CommandTimeout  time.Duration     `mapstructure:"command_timeout"`
	VersionTimeout  time.Duration     `mapstructure:"version_timeout"`
	Concurrency     int               `mapstructure:"concurrency"`
	PackageManagers []string          `mapstructure:"package_managers"`
	Catalogs        []string          `mapstructure:"catalogs"`
	BuiltinCatalog  bool              `mapstructure:"builtin_catalog"`
	ResultsFile     string            `mapstructure:"results_file"`
	LogDir          string            `mapstructure:"log_dir"`
	LogLevel        string            `mapstructure:"log_level"`
	Shell           []string          `mapstructure:"shell"`
	Minimums        map[string]string `mapstructure:"minimums"`

	// source is the settings file that was read, if any.
	source string
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		PassThreshold:   DefaultPassThreshold,
		CommandTimeout:  DefaultCommandTimeout,
		VersionTimeout:  DefaultVersionTimeout,
		Concurrency:     DefaultConcurrency,
		PackageManagers: append([]string(nil), catalog.DefaultPackageManagers...),
		BuiltinCatalog:  true,
		LogLevel:        DefaultLogLevel,
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("pass_threshold", d.PassThreshold)
	v.SetDefault("command_timeout", d.CommandTimeout)
	v.SetDefault("version_timeout", d.VersionTimeout)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("package_managers", d.PackageManagers)
	v.SetDefault("catalogs", []string{})
	v.SetDefault("builtin_catalog", d.BuiltinCatalog)
	v.SetDefault("results_file", "")
	v.SetDefault("log_dir", "")
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("shell", []string{})
	v.SetDefault("minimums", map[string]string{})
}

// Load reads the YAML settings file at path, layering DEVKIT_* environment
// variables on top. A missing file yields the defaults unless required is
// set, as it is for an explicit --config.
func Load(path string, required bool) (Config, error) {
	v := newViper()

	source := ""
	if strings.TrimSpace(path) != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config %q: %w", path, err)
			}
			source = path
		case errors.Is(err, os.ErrNotExist) && !required:
		default:
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.source = source
	cfg.ApplyDefaults()
	return cfg, nil
}

// Source returns the settings file the configuration was read from, or "".
func (c Config) Source() string {
	return c.source
}

// ApplyDefaults normalises fields and fills the ones left at their zero value.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.PassThreshold == 0 {
		c.PassThreshold = defaults.PassThreshold
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = defaults.CommandTimeout
	}
	if c.VersionTimeout == 0 {
		c.VersionTimeout = defaults.VersionTimeout
	}
	if c.Concurrency == 0 {
		c.Concurrency = defaults.Concurrency
	}
	if len(c.PackageManagers) == 0 {
		c.PackageManagers = defaults.PackageManagers
	}
	for i, pm := range c.PackageManagers {
		c.PackageManagers[i] = strings.ToLower(strings.TrimSpace(pm))
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = defaults.LogLevel
	}
	if len(c.Minimums) > 0 {
		cleaned := make(map[string]string, len(c.Minimums))
		for name, value := range c.Minimums {
			cleaned[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
		}
		c.Minimums = cleaned
	}
}

// ToolMinimums returns the per-tool minimum version overrides.
func (c Config) ToolMinimums() map[string]string {
	if len(c.Minimums) == 0 {
		return nil
	}
	out := make(map[string]string, len(c.Minimums))
	for name, value := range c.Minimums {
		if value != "" {
			out[name] = value
		}
	}
	return out
}

// ResultsPath resolves the results file relative to the settings file.
func (c Config) ResultsPath() string {
	if strings.TrimSpace(c.ResultsFile) == "" {
		return ""
	}
	return c.resolve(c.ResultsFile)
}

func (c Config) baseDir() string {
	if c.source == "" {
		return ""
	}
	return filepath.Dir(c.source)
}

type marshalView struct {
	PassThreshold   float64           `yaml:"pass_threshold"`
	CommandTimeout  string            `yaml:"command_timeout"`
	VersionTimeout  string            `yaml:"version_timeout"`
	Concurrency     int               `yaml:"concurrency"`
	PackageManagers []string          `yaml:"package_managers"`
	Catalogs        []string          `yaml:"catalogs,omitempty"`
	BuiltinCatalog  bool              `yaml:"builtin_catalog"`
	ResultsFile     string            `yaml:"results_file,omitempty"`
	LogDir          string            `yaml:"log_dir,omitempty"`
	LogLevel        string            `yaml:"log_level"`
	Shell           []string          `yaml:"shell,omitempty"`
	Minimums        map[string]string `yaml:"minimums,omitempty"`
}

// Marshal returns the YAML encoding of the effective configuration.
func (c Config) Marshal() ([]byte, error) {
	view := marshalView{
		PassThreshold:   c.PassThreshold,
		CommandTimeout:  c.CommandTimeout.String(),
		VersionTimeout:  c.VersionTimeout.String(),
		Concurrency:     c.Concurrency,
		PackageManagers: c.PackageManagers,
		Catalogs:        c.Catalogs,
		BuiltinCatalog:  c.BuiltinCatalog,
		ResultsFile:     c.ResultsFile,
		LogDir:          c.LogDir,
		LogLevel:        c.LogLevel,
		Shell:           c.Shell,
		Minimums:        c.Minimums,
	}
	buf, err := yaml.Marshal(&view)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}
