package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vaultline/bankcore"
	"github.com/vaultline/bankcore/config"
	"github.com/vaultline/bankcore/database"
	"github.com/vaultline/bankcore/internal/cache"
	"github.com/vaultline/bankcore/internal/notification"
	redis_db "github.com/vaultline/bankcore/internal/redis-db"
	"github.com/vaultline/bankcore/internal/traces"
)

type Bankcore struct {
	cmd *cobra.Command
}

type bankcoreInstance struct {
	bankcore *bankcore.Bankcore
	cnf      *config.Configuration
	redis    redis.UniversalClient // nil when redis is not configured
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

func preRun(app *bankcoreInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			log.Fatal("error loading config ", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		// migrate and config only need the configuration
		if !cmd.HasParent() || cmd.Name() == "config" || cmd.Parent().Name() == "migrate" {
			app.cnf = cnf
			return nil
		}

		if err := setupBankcore(app, cnf); err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}
		return nil
	}
}

func setupBankcore(app *bankcoreInstance, cfg *config.Configuration) error {
	opts := []bankcore.Option{bankcore.WithConfig(cfg)}

	var aliasCache cache.Cache
	if cfg.Redis.Dns != "" {
		client, err := redis_db.NewRedisClient(cfg.Redis.Dns)
		if err != nil {
			return fmt.Errorf("error connecting to redis: %v", err)
		}
		app.redis = client.Client()
		aliasCache = cache.NewCache(app.redis)
		opts = append(opts, bankcore.WithRedis(app.redis))
	}

	db, err := database.NewDataSource(cfg, aliasCache)
	if err != nil {
		return fmt.Errorf("error getting datasource: %v", err)
	}

	engine, err := bankcore.NewBankcore(db, opts...)
	if err != nil {
		return fmt.Errorf("error creating bankcore: %v", err)
	}

	app.bankcore = engine
	app.cnf = cfg
	return nil
}

func NewCLI() *Bankcore {
	var configFile string
	b := &bankcoreInstance{}

	var rootCmd = &cobra.Command{
		Use:   "bankcore",
		Short: "Account ledger and transaction engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./bankcore.json", "Configuration file for bankcore")
	rootCmd.PersistentPreRunE = preRun(b, &configFile)

	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(jobsCommands(b))
	rootCmd.AddCommand(migrateCommands(b))
	rootCmd.AddCommand(configCommands())

	return &Bankcore{cmd: rootCmd}
}

func (w Bankcore) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}

// initializeObservability starts tracing when telemetry is enabled. The
// returned shutdown is never nil.
func initializeObservability(ctx context.Context, cfg *config.Configuration) (func(context.Context) error, error) {
	if !cfg.EnableTelemetry {
		return func(context.Context) error { return nil }, nil
	}

	shutdown, err := traces.SetupOTelSDK(ctx, cfg.ProjectName)
	if err != nil {
		return nil, fmt.Errorf("error setting up OTel SDK: %v", err)
	}
	return shutdown, nil
}
