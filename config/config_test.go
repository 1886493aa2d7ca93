package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: ""},
	}

	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}

	cnf = Configuration{
		DataSource: DataSourceConfig{Dns: " postgres://localhost:5432/bankcore "},
	}
	require.NoError(t, cnf.validateAndAddDefaults())

	assert.Equal(t, DEFAULT_PROJECT_NAME, cnf.ProjectName)
	assert.Equal(t, "postgres://localhost:5432/bankcore", cnf.DataSource.Dns)
	assert.Equal(t, 10*time.Second, cnf.Ledger.CommitTimeout())
	assert.Equal(t, time.Minute, cnf.Lifecycle.CreationCooldown())
	assert.Equal(t, 6, cnf.Lifecycle.CardValidityMonths)
	assert.Equal(t, 11, cnf.Lifecycle.CardNumberLength)
	assert.Equal(t, 5, cnf.Lifecycle.PinLength)
	assert.Equal(t, 12, cnf.Lifecycle.CertificateLength)
	assert.Equal(t, 10, cnf.Lifecycle.MaxCardNumberAttempts)
	assert.Equal(t, 7*24*time.Hour, cnf.Jobs.InterestInterval())
	assert.Equal(t, 24*time.Hour, cnf.Jobs.CardExpiryInterval())
	assert.Equal(t, "@weekly", cnf.Jobs.InterestCron)
	assert.Equal(t, "@daily", cnf.Jobs.CardExpiryCron)
	assert.Equal(t, DEFAULT_JOB_QUEUE, cnf.Jobs.Queue)
	assert.True(t, cnf.Jobs.Rate().Equal(decimal.RequireFromString("0.05")))
	assert.False(t, cnf.UsesMemoryStore())
}

func TestValidateAndAddDefaults_InvalidRate(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: MemoryDataSource},
		Jobs:       JobsConfig{InterestRate: "five percent"},
	}
	assert.Error(t, cnf.validateAndAddDefaults())

	cnf.Jobs.InterestRate = "-0.01"
	assert.EqualError(t, cnf.validateAndAddDefaults(), "interest rate must not be negative")
}

func TestDefaults(t *testing.T) {
	cnf := Defaults()
	assert.True(t, cnf.UsesMemoryStore())
	assert.Equal(t, 5, cnf.Lifecycle.PinLength)
	assert.True(t, cnf.Jobs.Rate().Equal(decimal.RequireFromString("0.05")))
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "bankcore.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{
		ProjectName: "Temp Project",
		DataSource:  DataSourceConfig{Dns: "temp-dns"},
		Redis:       RedisConfig{Dns: "temp-redis"},
		Lifecycle:   LifecycleConfig{CreationCooldownSeconds: 5},
	}
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close()

	t.Setenv("BANKCORE_PROJECT_NAME", "Env Project")
	t.Setenv("BANKCORE_JOBS_INTEREST_RATE", "0.02")

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("loadConfigFromFile failed: %v", err)
	}

	loadedConfig, err := Fetch()
	require.NoError(t, err)

	assert.Equal(t, "Env Project", loadedConfig.ProjectName)
	assert.Equal(t, "temp-dns", loadedConfig.DataSource.Dns)
	assert.Equal(t, 5*time.Second, loadedConfig.Lifecycle.CreationCooldown())
	assert.True(t, loadedConfig.Jobs.Rate().Equal(decimal.RequireFromString("0.02")))
}

func TestLoadConfigFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bankcore.yaml")
	content := `
project_name: Yaml Project
data_source:
  dns: memory://
lifecycle:
  pin_length: 6
jobs:
  interest_rate: "0.07"
  queue: sweeps
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, loadConfigFromFile(path))

	loadedConfig, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "Yaml Project", loadedConfig.ProjectName)
	assert.True(t, loadedConfig.UsesMemoryStore())
	assert.Equal(t, 6, loadedConfig.Lifecycle.PinLength)
	assert.Equal(t, "sweeps", loadedConfig.Jobs.Queue)
	assert.True(t, loadedConfig.Jobs.Rate().Equal(decimal.RequireFromString("0.07")))
	assert.Equal(t, DEFAULT_CARD_NUMBER_LENGTH, loadedConfig.Lifecycle.CardNumberLength)
}

func TestInitConfig_EnvOnly(t *testing.T) {
	t.Setenv("BANKCORE_DATA_SOURCE_DNS", MemoryDataSource)

	err := InitConfig("does-not-exist.json")
	require.NoError(t, err)

	loadedConfig, err := Fetch()
	require.NoError(t, err)
	assert.True(t, loadedConfig.UsesMemoryStore())
}

func TestMockConfig(t *testing.T) {
	mockConfig := &Configuration{
		ProjectName: "Mock Project",
		DataSource:  DataSourceConfig{Dns: MemoryDataSource},
	}
	MockConfig(mockConfig)

	loadedConfig, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "Mock Project", loadedConfig.ProjectName)
	assert.Equal(t, 11, loadedConfig.Lifecycle.CardNumberLength)
}
