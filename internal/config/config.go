package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/linkmend/linkmend/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// ErrUnknownKey is returned for keys that are not part of the settings.
var ErrUnknownKey = errors.New("unknown config key")

// Dir returns the path to the config directory (~/.linkmend/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.linkmend/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the directory holding path if it does not exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Config is a loaded configuration: file values layered over defaults,
// with environment variables taking precedence over both.
type Config struct {
	v    *viper.Viper
	path string
}

// LoadEnv reads .env files into the process environment. Variables that
// are already set win. Missing files are ignored.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env", filepath.Join(Dir(), ".env")}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// Load reads the default config file.
func Load() (*Config, error) {
	return Open(FilePath())
}

// Open reads the config file at path. A missing file yields the defaults.
func Open(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	for _, k := range keys {
		v.SetDefault(k.Name, k.Default)
		if err := v.BindEnv(k.Name, k.EnvVar()); err != nil {
			return nil, fmt.Errorf("binding %s: %w", k.EnvVar(), err)
		}
	}

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	c := &Config{v: v, path: path}
	if v.InConfig("settingsVersion") {
		if err := CheckVersion(v.GetString("settingsVersion")); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	return c, nil
}

// Path is the file the config is read from and written to.
func (c *Config) Path() string { return c.path }

// Get returns a config value by key. Returns empty string if not set.
func (c *Config) Get(key string) string {
	return c.v.GetString(key)
}

// Settings decodes and validates the effective configuration.
func (c *Config) Settings() (Settings, error) {
	var s Settings
	if err := c.v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Set parses value for key, validates the resulting settings and saves
// the key to the config file. Nothing is written when validation fails.
func (c *Config) Set(key, value string) error {
	k, ok := Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	typed, err := k.parse(value)
	if err != nil {
		return err
	}

	previous := c.v.Get(k.Name)
	c.v.Set(k.Name, typed)
	if _, err := c.Settings(); err != nil {
		c.v.Set(k.Name, previous)
		return err
	}

	if err := EnsureDir(c.path); err != nil {
		return err
	}

	// Only values that came from the file are written back, so defaults
	// and environment overrides stay out of it.
	file := viper.New()
	file.SetConfigFile(c.path)
	file.SetConfigType(fileType)
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading config file %s: %w", c.path, err)
	}
	file.Set(k.Name, typed)
	if !file.InConfig("settingsVersion") {
		file.Set("settingsVersion", SettingsVersion)
	}
	if err := file.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Entry is one key with its effective value and where it came from.
type Entry struct {
	Key    Key
	Value  string
	Source string // "default", "file" or "env"
}

// Entries lists every key in display order.
func (c *Config) Entries() []Entry {
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		source := "default"
		if _, ok := os.LookupEnv(k.EnvVar()); ok {
			source = "env"
		} else if c.v.InConfig(k.Name) {
			source = "file"
		}
		entries = append(entries, Entry{Key: k, Value: c.v.GetString(k.Name), Source: source})
	}
	return entries
}

// Unknown returns keys present in the config file that are not settings.
func (c *Config) Unknown() []string {
	var out []string
	for _, name := range c.v.AllKeys() {
		if _, ok := Lookup(name); !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
