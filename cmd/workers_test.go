package main

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/bankcore"
	"github.com/vaultline/bankcore/config"
	"github.com/vaultline/bankcore/database"
)

func TestRedisConnOpt(t *testing.T) {
	cfg := config.Defaults()
	cfg.Redis.Dns = "redis://:secret@localhost:6380/2"

	opt, err := redisConnOpt(cfg)
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)

	cfg.Redis.Dns = "redis://%zz"
	_, err = redisConnOpt(cfg)
	assert.Error(t, err)
}

func TestInitializeTaskHandlers(t *testing.T) {
	cfg := config.Defaults()
	engine, err := bankcore.NewBankcore(database.NewMemoryDatasource(), bankcore.WithConfig(cfg))
	require.NoError(t, err)

	mux := asynq.NewServeMux()
	initializeTaskHandlers(&bankcoreInstance{bankcore: engine, cnf: cfg}, mux)

	task, err := bankcore.NewInterestAccrualTask("0.01")
	require.NoError(t, err)
	assert.NoError(t, mux.ProcessTask(context.Background(), task))
	assert.NoError(t, mux.ProcessTask(context.Background(), bankcore.NewCardExpiryTask()))
}

func TestInitializeObservability_Disabled(t *testing.T) {
	cfg := config.Defaults()

	shutdown, err := initializeObservability(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
