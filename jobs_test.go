package bankcore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/bankcore/model"
)

func TestInterestTask(t *testing.T) {
	f := newFixture(t)
	a := f.account(f.holder("").HolderID, model.AccountTypeSavings, "200")

	task, err := NewInterestAccrualTask("0.10")
	require.NoError(t, err)
	assert.Equal(t, TypeInterestAccrual, task.Type())

	var payload InterestTaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "0.10", payload.Rate)

	require.NoError(t, f.b.ProcessInterestTask(f.ctx, task))
	f.assertBalance(a.AccountID, "220")

	// no override uses the configured rate
	task, err = NewInterestAccrualTask("")
	require.NoError(t, err)
	require.NoError(t, f.b.ProcessInterestTask(f.ctx, task))
	f.assertBalance(a.AccountID, "231")
}

func TestInterestTask_FailuresSkipRetry(t *testing.T) {
	f := newFixture(t)

	err := f.b.ProcessInterestTask(f.ctx, asynq.NewTask(TypeInterestAccrual, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	task, err := NewInterestAccrualTask("abc")
	require.NoError(t, err)
	assert.True(t, errors.Is(f.b.ProcessInterestTask(f.ctx, task), asynq.SkipRetry))

	task, err = NewInterestAccrualTask("-1")
	require.NoError(t, err)
	assert.True(t, errors.Is(f.b.ProcessInterestTask(f.ctx, task), asynq.SkipRetry))
}

func TestCardExpiryTask(t *testing.T) {
	f := newFixture(t)
	account := f.account(f.holder("").HolderID, model.AccountTypeChecking, "0")
	card := f.card(account.AccountID, "41234567890", f.now.Add(-time.Minute))

	task := NewCardExpiryTask()
	assert.Equal(t, TypeCardExpiry, task.Type())
	require.NoError(t, f.b.ProcessCardExpiryTask(f.ctx, task))

	stored, err := f.ds.GetCardByID(f.ctx, card.CardID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestScheduler_SweepsUntilCancelled(t *testing.T) {
	f := newFixture(t)
	savings := f.account(f.holder("").HolderID, model.AccountTypeSavings, "100")
	card := f.card(savings.AccountID, "41234567891", f.now.Add(-time.Minute))

	scheduler := NewScheduler(f.b, f.cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	require.Eventually(t, func() bool {
		stored, err := f.ds.GetCardByID(context.Background(), card.CardID)
		if err != nil || stored.Active {
			return false
		}
		account, err := f.ds.GetAccountByID(context.Background(), savings.AccountID)
		return err == nil && account.Balance.Equal(amount("105"))
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	// one sweep per loop; the next tick is a week away
	f.assertBalance(savings.AccountID, "105")
}

func TestScheduler_RunSweeps(t *testing.T) {
	f := newFixture(t)
	savings := f.account(f.holder("").HolderID, model.AccountTypeSavings, "10")
	scheduler := NewScheduler(f.b, f.cfg)

	require.NoError(t, scheduler.RunInterestSweep(f.ctx))
	f.assertBalance(savings.AccountID, "10.50")
	require.NoError(t, scheduler.RunCardExpirySweep(f.ctx))
}

func TestScheduler_RestartDoesNotRepeatInterest(t *testing.T) {
	f := newFixture(t)
	savings := f.account(f.holder("").HolderID, model.AccountTypeSavings, "100")

	_, err := f.b.AccrueInterest(f.ctx, f.cfg.Jobs.Rate())
	require.NoError(t, err)
	f.assertBalance(savings.AccountID, "105")

	f.advance(24 * time.Hour)
	scheduler := NewScheduler(f.b, f.cfg)
	assert.Equal(t, f.cfg.Jobs.InterestInterval()-24*time.Hour, scheduler.untilNextInterest(f.ctx))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	f.assertBalance(savings.AccountID, "105")

	// a full interval later the sweep is due at once
	f.advance(f.cfg.Jobs.InterestInterval())
	assert.Zero(t, scheduler.untilNextInterest(f.ctx))
}
