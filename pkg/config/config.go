package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/lkarlslund/channelsync/pkg/gateway"
)

const (
	defaultConfigFileName = "channelsync.toml"

	// DefaultEnvFile is read from the working directory when present.
	DefaultEnvFile = ".env"

	DefaultClientType            = "onehub"
	DefaultDelaySeconds          = 3.0
	DefaultLogLevel              = "info"
	DefaultRequestTimeoutSeconds = 30
)

// Environment keys, also accepted in the .env file.
const (
	EnvBaseURL        = "API_BASE_URL"
	EnvUsername       = "API_USERNAME"
	EnvPassword       = "API_PASSWORD"
	EnvAccessToken    = "API_ACCESS_TOKEN"
	EnvStatus         = "TARGET_CHANNEL_STATUS"
	EnvDelay          = "DELAY_TIME"
	EnvClientType     = "CLIENT_TYPE"
	EnvLogLevel       = "LOG_LEVEL"
	EnvRequestTimeout = "REQUEST_TIMEOUT"
)

var envKeys = []string{
	EnvBaseURL, EnvUsername, EnvPassword, EnvAccessToken, EnvStatus,
	EnvDelay, EnvClientType, EnvLogLevel, EnvRequestTimeout,
}

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	BaseURL               string  `toml:"base_url"`
	Username              string  `toml:"username,omitempty"`
	Password              string  `toml:"password,omitempty"`
	AccessToken           string  `toml:"access_token,omitempty"`
	TargetChannelStatus   int     `toml:"target_channel_status"`
	DelaySeconds          float64 `toml:"delay_time"`
	ClientType            string  `toml:"client_type"`
	LogLevel              string  `toml:"log_level,omitempty"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds,omitempty"`
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultConfigFileName
	}
	return filepath.Join(home, ".config", "channelsync", defaultConfigFileName)
}

func NewDefaultConfig() *Config {
	return &Config{
		TargetChannelStatus:   gateway.StatusAll,
		DelaySeconds:          DefaultDelaySeconds,
		ClientType:            DefaultClientType,
		LogLevel:              DefaultLogLevel,
		RequestTimeoutSeconds: DefaultRequestTimeoutSeconds,
	}
}

// Read returns the defaults overlaid with the TOML file at path. A missing
// file is not an error. The result is normalized but not validated.
func Read(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("parse toml: %w", err)
			}
		}
	}
	cfg.Normalize()
	return cfg, nil
}

// Load resolves the effective configuration: defaults, then the TOML file,
// then envFile, then the process environment.
func Load(path, envFile string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, envFile); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, envFile string) error {
	v := viper.New()
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read %s: %w", envFile, err)
			}
		}
	}
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	str(EnvBaseURL, &cfg.BaseURL)
	str(EnvUsername, &cfg.Username)
	str(EnvPassword, &cfg.Password)
	str(EnvAccessToken, &cfg.AccessToken)
	str(EnvClientType, &cfg.ClientType)
	str(EnvLogLevel, &cfg.LogLevel)

	integer := func(key string, dst *int) error {
		if !v.IsSet(key) {
			return nil
		}
		raw := strings.TrimSpace(v.GetString(key))
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidConfig, key, raw)
		}
		*dst = n
		return nil
	}
	if err := integer(EnvStatus, &cfg.TargetChannelStatus); err != nil {
		return err
	}
	if err := integer(EnvRequestTimeout, &cfg.RequestTimeoutSeconds); err != nil {
		return err
	}
	if v.IsSet(EnvDelay) {
		raw := strings.TrimSpace(v.GetString(EnvDelay))
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number, got %q", ErrInvalidConfig, EnvDelay, raw)
		}
		cfg.DelaySeconds = f
	}
	return nil
}

func (c *Config) Normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.Username = strings.TrimSpace(c.Username)
	c.AccessToken = strings.TrimSpace(c.AccessToken)
	c.ClientType = strings.ToLower(strings.TrimSpace(c.ClientType))
	if c.ClientType == "" {
		c.ClientType = DefaultClientType
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidConfig, EnvBaseURL)
	}
	if c.AccessToken == "" && (c.Username == "" || c.Password == "") {
		return fmt.Errorf("%w: set %s, or both %s and %s", ErrInvalidConfig, EnvAccessToken, EnvUsername, EnvPassword)
	}
	if !gateway.ValidStatus(c.TargetChannelStatus) {
		return fmt.Errorf("%w: %s must be between 0 and 3, got %d", ErrInvalidConfig, EnvStatus, c.TargetChannelStatus)
	}
	if c.DelaySeconds < 0 || math.IsNaN(c.DelaySeconds) || math.IsInf(c.DelaySeconds, 0) {
		return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidConfig, EnvDelay, c.DelaySeconds)
	}
	return nil
}

// Delay is the ceiling of the pause between two batch items.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.DelaySeconds * float64(time.Second))
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// UsesToken reports whether authentication goes through the access token.
func (c *Config) UsesToken() bool {
	return c.AccessToken != ""
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return writeAtomic(path, cfg)
}

func writeAtomic(path string, v any) error {
	b, err := marshalTOML(v)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func marshalTOML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentSymbol("  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}

const Usage = `Configuration is read from the config file, a .env file in the working
directory and the environment, in increasing order of precedence.

  API_BASE_URL           base URL of the admin panel (required)
  API_ACCESS_TOKEN       admin access token
  API_USERNAME           admin username, used when no token is set
  API_PASSWORD           admin password, used when no token is set
  TARGET_CHANNEL_STATUS  channels to refresh in batch mode (default 0)
                           0 all, 1 enabled, 2 manually disabled, 3 auto disabled
  DELAY_TIME             maximum pause in seconds between channels (default 3)
  CLIENT_TYPE            onehub, oneapi or newapi (default onehub)
  LOG_LEVEL              debug, info, warn or error (default info)
  REQUEST_TIMEOUT        HTTP timeout in seconds (default 30)

Either API_ACCESS_TOKEN or both API_USERNAME and API_PASSWORD must be set.
`
