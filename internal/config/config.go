package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rl1809/shopping-list/internal/core/domain"
)

const (
	DefaultFileName = "config.yaml"
	installDirVar   = "${INSTALL_DIR}"
)

// Config is the runtime configuration of the server and CLI.
// JSON files are accepted too since JSON is valid YAML.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Auth     AuthConfig     `yaml:"auth"`
	Debug    bool           `yaml:"debug"`
}

type DatabaseConfig struct {
	// Driver is "sqlite3" or "mysql".
	Driver string `yaml:"driver"`

	// DSN is a file path for SQLite and a go-sql-driver DSN for MySQL.
	// For SQLite, ${INSTALL_DIR} and a leading ~ are expanded.
	DSN string `yaml:"dsn"`

	MaxOpenConns int `yaml:"max_open_conns"`
}

// RedisConfig enables shared locking between server processes when Addr is set.
type RedisConfig struct {
	Addr    string        `yaml:"addr"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// GRPCConfig leaves the gRPC front end disabled when Addr is empty.
type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

type AuthConfig struct {
	UserHeader string `yaml:"user_header"`
	JWTSecret  string `yaml:"jwt_secret"`
}

func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    installDirVar + "/shopping-list.sqlite3",
		},
		Redis: RedisConfig{LockTTL: 5 * time.Second},
		HTTP:  HTTPConfig{Addr: ":8080"},
		GRPC:  GRPCConfig{Addr: ":50051"},
		Auth:  AuthConfig{UserHeader: "X-Remote-User"},
	}
}

// Load reads the configuration file at path, applies SLIST_* environment
// overrides and validates the result. An empty path falls back to
// $SLIST_CONFIG, then config.yaml next to the executable, then the defaults.
func Load(path string) (*Config, error) {
	installDir, err := InstallDir()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = defaultPath(installDir)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.normalize(installDir); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InstallDir is the directory holding the running executable.
func InstallDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("%w: locate executable: %v", domain.ErrConfiguration, err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

func defaultPath(installDir string) string {
	if p := os.Getenv("SLIST_CONFIG"); p != "" {
		return p
	}

	p := filepath.Join(installDir, DefaultFileName)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read config file: %v", domain.ErrConfiguration, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: parse %s: %v", domain.ErrConfiguration, path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	overrides := map[string]*string{
		"SLIST_DATABASE_DRIVER": &c.Database.Driver,
		"SLIST_DATABASE_DSN":    &c.Database.DSN,
		"SLIST_REDIS_ADDR":      &c.Redis.Addr,
		"SLIST_HTTP_ADDR":       &c.HTTP.Addr,
		"SLIST_GRPC_ADDR":       &c.GRPC.Addr,
		"SLIST_JWT_SECRET":      &c.Auth.JWTSecret,
	}
	for name, field := range overrides {
		if v, ok := os.LookupEnv(name); ok {
			*field = v
		}
	}

	if v, ok := os.LookupEnv("SLIST_DEBUG"); ok {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: SLIST_DEBUG: %v", domain.ErrConfiguration, err)
		}
		c.Debug = debug
	}
	return nil
}

func (c *Config) normalize(installDir string) error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "sqlite" {
		c.Database.Driver = "sqlite3"
	}

	if c.Database.Driver == "sqlite3" && c.Database.DSN != "" {
		p, err := ExpandPath(c.Database.DSN, installDir)
		if err != nil {
			return err
		}
		c.Database.DSN = p
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "mysql":
	default:
		return fmt.Errorf("%w: unsupported database driver %q", domain.ErrConfiguration, c.Database.Driver)
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is required", domain.ErrConfiguration)
	}
	if c.Database.MaxOpenConns < 0 {
		return fmt.Errorf("%w: database.max_open_conns must not be negative", domain.ErrConfiguration)
	}
	if c.Redis.LockTTL < 0 {
		return fmt.Errorf("%w: redis.lock_ttl must not be negative", domain.ErrConfiguration)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("%w: http.addr is required", domain.ErrConfiguration)
	}
	return nil
}

// ExpandPath replaces ${INSTALL_DIR} and a leading ~ and makes the result absolute.
func ExpandPath(p, installDir string) (string, error) {
	p = strings.ReplaceAll(p, installDirVar, installDir)

	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("%w: expand %q: %v", domain.ErrConfiguration, p, err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("%w: resolve %q: %v", domain.ErrConfiguration, p, err)
	}
	return abs, nil
}
