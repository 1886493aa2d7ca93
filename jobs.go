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

package bankcore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vaultline/bankcore/config"
)

const (
	TypeInterestAccrual = "bankcore:interest_accrual"
	TypeCardExpiry      = "bankcore:card_expiry"
)

// InterestTaskPayload overrides the configured rate when Rate is set.
type InterestTaskPayload struct {
	Rate string `json:"rate,omitempty"`
}

func NewInterestAccrualTask(rate string) (*asynq.Task, error) {
	payload, err := json.Marshal(InterestTaskPayload{Rate: rate})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeInterestAccrual, payload, asynq.MaxRetry(0)), nil
}

func NewCardExpiryTask() *asynq.Task {
	return asynq.NewTask(TypeCardExpiry, nil, asynq.MaxRetry(0))
}

// ProcessInterestTask runs one interest sweep. Failures skip retry; the next
// scheduled run recomputes from current balances.
func (b *Bankcore) ProcessInterestTask(ctx context.Context, t *asynq.Task) error {
	rate := b.config.Jobs.Rate()

	if len(t.Payload()) > 0 {
		var payload InterestTaskPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode interest task: %v: %w", err, asynq.SkipRetry)
		}
		if payload.Rate != "" {
			parsed, err := decimal.NewFromString(payload.Rate)
			if err != nil {
				return fmt.Errorf("invalid interest rate %q: %v: %w", payload.Rate, err, asynq.SkipRetry)
			}
			rate = parsed
		}
	}

	if _, err := b.AccrueInterest(ctx, rate); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return nil
}

func (b *Bankcore) ProcessCardExpiryTask(ctx context.Context, _ *asynq.Task) error {
	if _, err := b.ExpireCards(ctx, b.now()); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return nil
}

// Scheduler runs the maintenance sweeps in process on fixed intervals.
type Scheduler struct {
	bankcore        *Bankcore
	rate            decimal.Decimal
	interestEvery   time.Duration
	cardExpiryEvery time.Duration
}

func NewScheduler(b *Bankcore, cfg *config.Configuration) *Scheduler {
	return &Scheduler{
		bankcore:        b,
		rate:            cfg.Jobs.Rate(),
		interestEvery:   cfg.Jobs.InterestInterval(),
		cardExpiryEvery: cfg.Jobs.CardExpiryInterval(),
	}
}

// Run sweeps on every tick until ctx is cancelled. Card expiry runs at once;
// interest waits out whatever is left of the interval since the last recorded
// interest sweep, so a restart does not credit twice. A sweep in progress
// always finishes; cancellation is observed between sweeps.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.loop(ctx, "interest", s.untilNextInterest(ctx), s.interestEvery, s.RunInterestSweep)
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, "card expiry", 0, s.cardExpiryEvery, s.RunCardExpirySweep)
	}()
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) untilNextInterest(ctx context.Context) time.Duration {
	last, err := s.bankcore.datasource.LastInterestAccruedAt(ctx)
	if err != nil {
		logrus.WithError(err).Warn("could not read last interest sweep, sweeping now")
		return 0
	}
	if last.IsZero() {
		return 0
	}
	wait := last.Add(s.interestEvery).Sub(s.bankcore.now())
	if wait < 0 {
		return 0
	}
	return wait
}

func (s *Scheduler) loop(ctx context.Context, name string, delay, every time.Duration, sweep func(context.Context) error) {
	if delay > 0 {
		logrus.Infof(" [*] Next %s sweep in %s", name, delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for ctx.Err() == nil {
		if err := sweep(context.WithoutCancel(ctx)); err != nil {
			logrus.WithError(err).Errorf("%s sweep failed, waiting for next run", name)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) RunInterestSweep(ctx context.Context) error {
	result, err := s.bankcore.AccrueInterest(ctx, s.rate)
	if err != nil {
		return err
	}
	logrus.Infof(" [*] Interest sweep credited %d accounts", result.Accounts)
	return nil
}

func (s *Scheduler) RunCardExpirySweep(ctx context.Context) error {
	n, err := s.bankcore.ExpireCards(ctx, s.bankcore.now())
	if err != nil {
		return err
	}
	logrus.Infof(" [*] Card expiry sweep deactivated %d cards", n)
	return nil
}
