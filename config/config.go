/*
Copyright 2024 Bankcore Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DEFAULT_PROJECT_NAME             = "Bankcore"
	DEFAULT_COMMIT_TIMEOUT_SECONDS   = 10
	DEFAULT_CREATION_COOLDOWN        = 60
	DEFAULT_CARD_VALIDITY_MONTHS     = 6
	DEFAULT_CARD_NUMBER_LENGTH       = 11
	DEFAULT_PIN_LENGTH               = 5
	DEFAULT_CERTIFICATE_LENGTH       = 12
	DEFAULT_MAX_CARD_NUMBER_ATTEMPTS = 10
	DEFAULT_INTEREST_RATE            = "0.05"
	DEFAULT_INTEREST_CRON            = "@weekly"
	DEFAULT_CARD_EXPIRY_CRON         = "@daily"
	DEFAULT_INTEREST_INTERVAL_HOURS  = 168
	DEFAULT_EXPIRY_INTERVAL_HOURS    = 24
	DEFAULT_JOB_QUEUE                = "bankcore_jobs"

	// MemoryDataSource selects the in-process store instead of Postgres.
	MemoryDataSource = "memory://"
)

var ConfigStore atomic.Value

type DataSourceConfig struct {
	Dns string `json:"dns" yaml:"dns" envconfig:"BANKCORE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" yaml:"dns" envconfig:"BANKCORE_REDIS_DNS"`
}

type LedgerConfig struct {
	CommitTimeoutSeconds int `json:"commit_timeout_seconds" yaml:"commit_timeout_seconds" envconfig:"BANKCORE_LEDGER_COMMIT_TIMEOUT_SECONDS"`
}

type LifecycleConfig struct {
	CreationCooldownSeconds int `json:"creation_cooldown_seconds" yaml:"creation_cooldown_seconds" envconfig:"BANKCORE_LIFECYCLE_CREATION_COOLDOWN_SECONDS"`
	CardValidityMonths      int `json:"card_validity_months" yaml:"card_validity_months" envconfig:"BANKCORE_LIFECYCLE_CARD_VALIDITY_MONTHS"`
	CardNumberLength        int `json:"card_number_length" yaml:"card_number_length" envconfig:"BANKCORE_LIFECYCLE_CARD_NUMBER_LENGTH"`
	PinLength               int `json:"pin_length" yaml:"pin_length" envconfig:"BANKCORE_LIFECYCLE_PIN_LENGTH"`
	CertificateLength       int `json:"certificate_length" yaml:"certificate_length" envconfig:"BANKCORE_LIFECYCLE_CERTIFICATE_LENGTH"`
	MaxCardNumberAttempts   int `json:"max_card_number_attempts" yaml:"max_card_number_attempts" envconfig:"BANKCORE_LIFECYCLE_MAX_CARD_NUMBER_ATTEMPTS"`
}

type JobsConfig struct {
	InterestRate            string `json:"interest_rate" yaml:"interest_rate" envconfig:"BANKCORE_JOBS_INTEREST_RATE"`
	InterestCron            string `json:"interest_cron" yaml:"interest_cron" envconfig:"BANKCORE_JOBS_INTEREST_CRON"`
	CardExpiryCron          string `json:"card_expiry_cron" yaml:"card_expiry_cron" envconfig:"BANKCORE_JOBS_CARD_EXPIRY_CRON"`
	InterestIntervalHours   int    `json:"interest_interval_hours" yaml:"interest_interval_hours" envconfig:"BANKCORE_JOBS_INTEREST_INTERVAL_HOURS"`
	CardExpiryIntervalHours int    `json:"card_expiry_interval_hours" yaml:"card_expiry_interval_hours" envconfig:"BANKCORE_JOBS_CARD_EXPIRY_INTERVAL_HOURS"`
	Queue                   string `json:"queue" yaml:"queue" envconfig:"BANKCORE_JOBS_QUEUE"`
	interestRate            decimal.Decimal
}

type CryptographyConfig struct {
	Key string `json:"key" yaml:"key" envconfig:"BANKCORE_CRYPTOGRAPHY_KEY"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" yaml:"webhook_url" envconfig:"BANKCORE_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack" yaml:"slack"`
}

type Configuration struct {
	ProjectName     string             `json:"project_name" yaml:"project_name" envconfig:"BANKCORE_PROJECT_NAME"`
	EnableTelemetry bool               `json:"enable_telemetry" yaml:"enable_telemetry" envconfig:"BANKCORE_ENABLE_TELEMETRY"`
	DataSource      DataSourceConfig   `json:"data_source" yaml:"data_source"`
	Redis           RedisConfig        `json:"redis" yaml:"redis"`
	Ledger          LedgerConfig       `json:"ledger" yaml:"ledger"`
	Lifecycle       LifecycleConfig    `json:"lifecycle" yaml:"lifecycle"`
	Jobs            JobsConfig         `json:"jobs" yaml:"jobs"`
	Cryptography    CryptographyConfig `json:"cryptography" yaml:"cryptography"`
	Notification    Notification       `json:"notification" yaml:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = decoderFor(file, f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("bankcore", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

type decoder interface {
	Decode(v interface{}) error
}

// decoderFor picks YAML for .yaml/.yml files and JSON for everything else.
func decoderFor(file string, r io.Reader) decoder {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		return yaml.NewDecoder(r)
	default:
		return json.NewDecoder(r)
	}
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called bankcore.json with your config")
	}
	return c, nil
}

// Defaults returns a configuration backed by the memory store with every default applied.
func Defaults() *Configuration {
	cnf := &Configuration{DataSource: DataSourceConfig{Dns: MemoryDataSource}}
	_ = cnf.validateAndAddDefaults()
	return cnf
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = DEFAULT_PROJECT_NAME
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Warning: Redis DNS is empty. Sweep locking, alias caching and queued jobs are disabled.")
	}

	setDefault(&cnf.Ledger.CommitTimeoutSeconds, DEFAULT_COMMIT_TIMEOUT_SECONDS)
	setDefault(&cnf.Lifecycle.CreationCooldownSeconds, DEFAULT_CREATION_COOLDOWN)
	setDefault(&cnf.Lifecycle.CardValidityMonths, DEFAULT_CARD_VALIDITY_MONTHS)
	setDefault(&cnf.Lifecycle.CardNumberLength, DEFAULT_CARD_NUMBER_LENGTH)
	setDefault(&cnf.Lifecycle.PinLength, DEFAULT_PIN_LENGTH)
	setDefault(&cnf.Lifecycle.CertificateLength, DEFAULT_CERTIFICATE_LENGTH)
	setDefault(&cnf.Lifecycle.MaxCardNumberAttempts, DEFAULT_MAX_CARD_NUMBER_ATTEMPTS)
	setDefault(&cnf.Jobs.InterestIntervalHours, DEFAULT_INTEREST_INTERVAL_HOURS)
	setDefault(&cnf.Jobs.CardExpiryIntervalHours, DEFAULT_EXPIRY_INTERVAL_HOURS)

	if cnf.Jobs.InterestRate == "" {
		cnf.Jobs.InterestRate = DEFAULT_INTEREST_RATE
	}
	if cnf.Jobs.InterestCron == "" {
		cnf.Jobs.InterestCron = DEFAULT_INTEREST_CRON
	}
	if cnf.Jobs.CardExpiryCron == "" {
		cnf.Jobs.CardExpiryCron = DEFAULT_CARD_EXPIRY_CRON
	}
	if cnf.Jobs.Queue == "" {
		cnf.Jobs.Queue = DEFAULT_JOB_QUEUE
	}

	rate, err := decimal.NewFromString(strings.TrimSpace(cnf.Jobs.InterestRate))
	if err != nil {
		return fmt.Errorf("invalid interest rate %q: %w", cnf.Jobs.InterestRate, err)
	}
	if rate.IsNegative() {
		return errors.New("interest rate must not be negative")
	}
	cnf.Jobs.interestRate = rate

	if cnf.Lifecycle.CertificateLength < 8 {
		return errors.New("certificate length must be at least 8")
	}

	return nil
}

func setDefault(field *int, value int) {
	if *field <= 0 {
		*field = value
	}
}

// UsesMemoryStore reports whether the data source selects the in-process store.
func (cnf *Configuration) UsesMemoryStore() bool {
	return strings.HasPrefix(cnf.DataSource.Dns, MemoryDataSource)
}

func (l LedgerConfig) CommitTimeout() time.Duration {
	return time.Duration(l.CommitTimeoutSeconds) * time.Second
}

func (l LifecycleConfig) CreationCooldown() time.Duration {
	return time.Duration(l.CreationCooldownSeconds) * time.Second
}

// Rate returns the parsed interest rate. It is zero until defaults have been applied.
func (j JobsConfig) Rate() decimal.Decimal {
	return j.interestRate
}

func (j JobsConfig) InterestInterval() time.Duration {
	return time.Duration(j.InterestIntervalHours) * time.Hour
}

func (j JobsConfig) CardExpiryInterval() time.Duration {
	return time.Duration(j.CardExpiryIntervalHours) * time.Hour
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	_ = mockConfig.validateAndAddDefaults()
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
