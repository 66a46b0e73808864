package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`database_url: postgres://tv:tv@localhost:5432/tv
redis_url: redis://localhost:6379/0
timeout: 10s
log_level: debug
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if c.DatabaseURL != "postgres://tv:tv@localhost:5432/tv" || c.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("urls not loaded: %+v", c)
	}
	if c.Timeout != 10*time.Second || c.LogLevel != "debug" {
		t.Errorf("timeout/log level = %v/%q", c.Timeout, c.LogLevel)
	}
	if c.ServerPort != defaultServerPort || c.UserAgent != defaultUserAgent || c.MigrationsPath != defaultMigrationsPath {
		t.Errorf("defaults not applied: %+v", c)
	}
	if !c.HasDatabase() || !c.HasRedis() || c.HasEmbeddings() {
		t.Errorf("feature flags wrong: db=%v redis=%v emb=%v", c.HasDatabase(), c.HasRedis(), c.HasEmbeddings())
	}
}

func TestLoadFromFileBadTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("timeout: soon\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected error for malformed timeout")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("FETCHER_USER_AGENT", "")
	t.Setenv("FETCHER_TIMEOUT", "5s")
	t.Setenv("VOYAGE_API_KEY", "key")
	t.Setenv("VOYAGE_MODEL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("MIGRATIONS_PATH", "")

	c := Load()
	if c.ServerPort != "9090" || c.Timeout != 5*time.Second {
		t.Errorf("env not applied: %+v", c)
	}
	if c.UserAgent != defaultUserAgent || c.LogLevel != defaultLogLevel {
		t.Errorf("defaults not applied: %+v", c)
	}
	if c.HasDatabase() || c.HasEmbeddings() {
		t.Error("embeddings must stay off without a database")
	}
}

func TestApplyEnvFile(t *testing.T) {
	t.Setenv("TVONLINE_TEST_SET", "from-env")
	os.Unsetenv("TVONLINE_TEST_NEW")
	t.Cleanup(func() { os.Unsetenv("TVONLINE_TEST_NEW") })

	applyEnvFile([]byte(`# comment
TVONLINE_TEST_SET=from-file
export TVONLINE_TEST_NEW="quoted value"
=novalue
garbage
`))
	if got := os.Getenv("TVONLINE_TEST_SET"); got != "from-env" {
		t.Errorf("existing variable overwritten: %q", got)
	}
	if got := os.Getenv("TVONLINE_TEST_NEW"); got != "quoted value" {
		t.Errorf("new variable = %q", got)
	}
}
