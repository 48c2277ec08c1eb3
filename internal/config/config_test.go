package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shopping-list/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SLIST_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)

	installDir, err := InstallDir()
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, filepath.Join(installDir, "shopping-list.sqlite3"), cfg.Database.DSN)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "X-Remote-User", cfg.Auth.UserHeader)
	assert.Equal(t, 5*time.Second, cfg.Redis.LockTTL)
	assert.False(t, cfg.Debug)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: mysql
  dsn: "root:root@tcp(localhost:3306)/shoppinglist?parseTime=true"
  max_open_conns: 20
redis:
  addr: localhost:6379
  lock_ttl: 2s
http:
  addr: ":9090"
auth:
  jwt_secret: s3cret
debug: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "root:root@tcp(localhost:3306)/shoppinglist?parseTime=true", cfg.Database.DSN)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, ":50051", cfg.GRPC.Addr)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Debug)
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeConfig(t, `{"database": {"driver": "sqlite", "dsn": "/tmp/list.sqlite3"}, "debug": true}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "/tmp/list.sqlite3", cfg.Database.DSN)
	assert.True(t, cfg.Debug)
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoad_ConfigFromEnvironment(t *testing.T) {
	path := writeConfig(t, "http:\n  addr: \":7070\"\n")
	t.Setenv("SLIST_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "database:\n  dsn: /tmp/a.sqlite3\n")
	t.Setenv("SLIST_DATABASE_DSN", "/tmp/b.sqlite3")
	t.Setenv("SLIST_REDIS_ADDR", "redis:6379")
	t.Setenv("SLIST_GRPC_ADDR", "")
	t.Setenv("SLIST_JWT_SECRET", "from-env")
	t.Setenv("SLIST_DEBUG", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/b.sqlite3", cfg.Database.DSN)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Empty(t, cfg.GRPC.Addr)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Debug)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{name: "unknown field", content: "databse:\n  driver: mysql\n"},
		{name: "malformed yaml", content: "database: [\n"},
		{name: "unsupported driver", content: "database:\n  driver: postgres\n"},
		{name: "empty dsn", content: "database:\n  dsn: \"\"\n"},
		{name: "negative pool", content: "database:\n  max_open_conns: -1\n"},
		{name: "bad duration", content: "redis:\n  lock_ttl: soon\n"},
		{name: "empty http addr", content: "http:\n  addr: \"\"\n"},
		{name: "bad debug flag", content: "", env: map[string]string{"SLIST_DEBUG": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	wd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"${INSTALL_DIR}/shopping-list.sqlite3", "/opt/slist/shopping-list.sqlite3"},
		{"~/lists/db.sqlite3", filepath.Join(home, "lists/db.sqlite3")},
		{"db.sqlite3", filepath.Join(wd, "db.sqlite3")},
		{"/var/lib/slist/../db.sqlite3", "/var/lib/db.sqlite3"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandPath(tt.in, "/opt/slist")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
