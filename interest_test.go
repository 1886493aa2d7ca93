package bankcore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/bankcore/config"
	"github.com/vaultline/bankcore/database/mocks"
	"github.com/vaultline/bankcore/internal/apierror"
	"github.com/vaultline/bankcore/model"
)

func TestAccrueInterest_ScenarioE(t *testing.T) {
	f := newFixture(t)
	h := f.holder("")
	a := f.account(h.HolderID, model.AccountTypeSavings, "100")
	b := f.account(h.HolderID, model.AccountTypeSavings, "200")
	c := f.account(h.HolderID, model.AccountTypeSavings, "0")
	checking := f.account(h.HolderID, model.AccountTypeChecking, "1000")
	closed := f.account(h.HolderID, model.AccountTypeSavings, "500")
	require.NoError(t, f.b.RemoveAccount(f.ctx, closed.AccountID))

	result, err := f.b.AccrueInterest(f.ctx, amount("0.05"))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Accounts)
	assert.True(t, result.Total.Equal(amount("15")))
	require.Len(t, result.Records, 3)

	f.assertBalance(a.AccountID, "105")
	f.assertBalance(b.AccountID, "210")
	f.assertBalance(c.AccountID, "0")
	f.assertBalance(checking.AccountID, "1000")
	f.assertBalance(closed.AccountID, "500")

	zero := f.history(c.AccountID)
	require.Len(t, zero, 1)
	assert.Equal(t, model.TransactionTypeInterest, zero[0].TransactionType)
	assert.True(t, zero[0].Amount.IsZero())
	assert.Equal(t, c.AccountID, zero[0].Sender)
	assert.Equal(t, c.AccountID, zero[0].Recipient)
}

func TestAccrueInterest_RoundsToCents(t *testing.T) {
	f := newFixture(t)
	a := f.account(f.holder("").HolderID, model.AccountTypeSavings, "33.33")

	result, err := f.b.AccrueInterest(f.ctx, amount("0.05"))
	require.NoError(t, err)
	// 1.6665 rounds half away from zero
	assert.True(t, result.Records[0].Amount.Equal(amount("1.67")))
	f.assertBalance(a.AccountID, "35.00")
}

func TestAccrueInterest_Rejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.b.AccrueInterest(f.ctx, amount("-0.01"))
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))

	result, err := f.b.AccrueInterest(f.ctx, amount("0.05"))
	require.NoError(t, err)
	assert.Zero(t, result.Accounts)
}

func TestAccrueInterest_FailedCommitCreditsNothing(t *testing.T) {
	ds := new(mocks.MockDataSource)
	b, err := NewBankcore(ds, WithConfig(config.Defaults()))
	require.NoError(t, err)

	ds.On("GetActiveSavingsAccounts", mock.Anything).Return([]*model.Account{
		{AccountID: 1, Balance: amount("100"), Active: true, AccountType: model.AccountTypeSavings},
		{AccountID: 2, Balance: amount("50"), Active: true, AccountType: model.AccountTypeSavings},
	}, nil)
	ds.On("Commit", mock.Anything, mock.MatchedBy(func(c *model.Commit) bool {
		return len(c.Deltas) == 2 && len(c.Records) == 2
	})).Return(apierror.NewAPIError(apierror.ErrTimeout, "commit timed out", nil)).Once()

	result, err := b.AccrueInterest(context.Background(), amount("0.05"))
	assert.Nil(t, result)
	assert.True(t, apierror.Is(err, apierror.ErrTimeout))
	ds.AssertExpectations(t)
}

func TestAccrueInterest_SweepLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	f := newFixture(t, WithRedis(client))
	a := f.account(f.holder("").HolderID, model.AccountTypeSavings, "100")

	_, err := f.b.AccrueInterest(f.ctx, amount("0.10"))
	require.NoError(t, err)
	f.assertBalance(a.AccountID, "110")
	assert.False(t, mr.Exists(interestLockKey), "lock released after sweep")

	// another worker holds the sweep
	require.NoError(t, mr.Set(interestLockKey, "other-worker"))
	ctx, cancel := context.WithTimeout(f.ctx, 200*time.Millisecond)
	defer cancel()

	_, err = f.b.AccrueInterest(ctx, amount("0.10"))
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
	f.assertBalance(a.AccountID, "110")

	v, err := mr.Get(interestLockKey)
	require.NoError(t, err)
	assert.Equal(t, "other-worker", v)
}

func TestAccrueInterest_ConcurrentWithPurchases(t *testing.T) {
	f := newFixture(t)
	h := f.holder("saver")
	savings := f.account(h.HolderID, model.AccountTypeSavings, "100")
	vendor := f.account(f.holder("shop").HolderID, model.AccountTypeChecking, "0")
	f.card(savings.AccountID, payerCard, f.now.AddDate(0, 6, 0))

	done := make(chan error, 1)
	go func() {
		_, err := f.b.AccrueInterest(context.Background(), amount("0.05"))
		done <- err
	}()
	_, err := f.b.InitiateTransaction(f.ctx, model.PurchaseRequest{
		CardNumber: payerCard, KeyPIN: testPIN,
		Lines: []model.VendorLine{{VendorAlias: "shop", Amount: amount("40")}},
	})
	require.NoError(t, err)
	require.NoError(t, <-done)

	// interest is computed from whichever balance the sweep read
	got := f.balance(savings.AccountID)
	assert.True(t, got.Equal(amount("65")) || got.Equal(amount("63")), "got %s", got)
	f.assertBalance(vendor.AccountID, "40")
	assert.False(t, got.LessThan(decimal.Zero))
}
