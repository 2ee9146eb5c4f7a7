package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("records", pflag.ContinueOnError)
	flags.String("driver", "", "")
	flags.String("dsn", "", "")
	flags.String("log-level", "", "")
	flags.String("log-format", "", "")
	flags.Bool("verbose", false, "")
	return flags
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "students.db", cfg.Database.DSN)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Lock.Enabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, `
app:
  environment: production
database:
  driver: postgres
  dsn: postgres://file/records
  busy_timeout: 2s
logging:
  level: warn
  format: json
`)

	t.Setenv("RECORDS_DATABASE__DSN", "postgres://env/records")
	t.Setenv("RECORDS_LOGGING__LEVEL", "error")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--log-level=debug"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 2*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, "postgres://env/records", cfg.Database.DSN, "env overrides file")
	assert.Equal(t, "debug", cfg.Logging.Level, "flag overrides env")
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	path := writeFile(t, "database:\n  dsn: from-file.db\n")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--verbose"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", cfg.Database.DSN)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Config{
		App:      AppConfig{Environment: "staging"},
		Database: DatabaseConfig{Driver: "mysql"},
		Lock:     LockConfig{Enabled: true},
		Logging:  LoggingConfig{Level: "trace", Format: "xml"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"app.environment", "database.driver", "database.dsn", "max_open_conns",
		"lock.addr", "lock.ttl", "logging.level", "logging.format",
	} {
		assert.Contains(t, err.Error(), want)
	}
}
