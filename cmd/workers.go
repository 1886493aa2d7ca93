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

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/vaultline/bankcore"
	"github.com/vaultline/bankcore/config"
	redis_db "github.com/vaultline/bankcore/internal/redis-db"
)

func redisConnOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("error parsing Redis URL: %v", err)
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

func initializeWorkerServer(conf *config.Configuration, opt asynq.RedisClientOpt) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		// sweeps must not overlap within one worker
		Concurrency: 1,
		Queues:      map[string]int{conf.Jobs.Queue: 1},
	})
}

// initializeScheduler enqueues the periodic sweeps on their cron schedules.
func initializeScheduler(conf *config.Configuration, opt asynq.RedisClientOpt) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(opt, nil)

	interestTask, err := bankcore.NewInterestAccrualTask("")
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(conf.Jobs.InterestCron, interestTask, asynq.Queue(conf.Jobs.Queue)); err != nil {
		return nil, fmt.Errorf("error registering interest sweep: %v", err)
	}
	if _, err := scheduler.Register(conf.Jobs.CardExpiryCron, bankcore.NewCardExpiryTask(), asynq.Queue(conf.Jobs.Queue)); err != nil {
		return nil, fmt.Errorf("error registering card expiry sweep: %v", err)
	}
	return scheduler, nil
}

func initializeTaskHandlers(b *bankcoreInstance, mux *asynq.ServeMux) {
	mux.HandleFunc(bankcore.TypeInterestAccrual, b.bankcore.ProcessInterestTask)
	mux.HandleFunc(bankcore.TypeCardExpiry, b.bankcore.ProcessCardExpiryTask)
}

// workerCommands starts the asynq worker and the cron scheduler that feeds it.
func workerCommands(b *bankcoreInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start bankcore workers",
		Run: func(cmd *cobra.Command, args []string) {
			conf := b.cnf
			if conf.Redis.Dns == "" {
				log.Fatal("workers need a redis address, set redis.dns")
			}

			ctx := context.Background()
			shutdown, err := initializeObservability(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			opt, err := redisConnOpt(conf)
			if err != nil {
				log.Fatal(err)
			}

			scheduler, err := initializeScheduler(conf, opt)
			if err != nil {
				log.Fatal(err)
			}
			if err := scheduler.Start(); err != nil {
				log.Fatalf("could not start scheduler: %v", err)
			}
			defer scheduler.Shutdown()

			srv := initializeWorkerServer(conf, opt)
			mux := asynq.NewServeMux()
			initializeTaskHandlers(b, mux)

			log.Printf(" [*] Workers listening on queue %s", conf.Jobs.Queue)
			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
