package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vaultline/bankcore"
)

// jobsCommands runs the maintenance sweeps without a queue.
func jobsCommands(b *bankcoreInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "run maintenance sweeps in process",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "run interest and card expiry sweeps on their intervals until interrupted",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdown, err := initializeObservability(ctx, b.cnf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			scheduler := bankcore.NewScheduler(b.bankcore, b.cnf)
			log.Printf(" [*] Sweeping interest every %s, cards every %s", b.cnf.Jobs.InterestInterval(), b.cnf.Jobs.CardExpiryInterval())
			_ = scheduler.Run(ctx)
			log.Println(" [*] Sweeps stopped")
		},
	})

	var rate string
	interest := &cobra.Command{
		Use:   "interest",
		Short: "credit interest to every active savings account once",
		Run: func(cmd *cobra.Command, args []string) {
			r := b.cnf.Jobs.Rate()
			if rate != "" {
				parsed, err := decimal.NewFromString(rate)
				if err != nil {
					log.Fatalf("invalid rate %q: %v", rate, err)
				}
				r = parsed
			}

			result, err := b.bankcore.AccrueInterest(cmd.Context(), r)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("Credited %s interest to %d accounts\n", result.Total.StringFixed(2), result.Accounts)
		},
	}
	interest.Flags().StringVar(&rate, "rate", "", "interest rate, defaults to jobs.interest_rate")
	cmd.AddCommand(interest)

	cmd.AddCommand(&cobra.Command{
		Use:   "expire-cards",
		Short: "deactivate every active card past its expiry date",
		Run: func(cmd *cobra.Command, args []string) {
			n, err := b.bankcore.ExpireCards(cmd.Context(), time.Now())
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("Deactivated %d cards\n", n)
		},
	})

	return cmd
}
