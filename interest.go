package bankcore

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vaultline/bankcore/internal/apierror"
	redlock "github.com/vaultline/bankcore/internal/lock"
	"github.com/vaultline/bankcore/internal/notification"
	"github.com/vaultline/bankcore/model"
)

const (
	interestLockKey  = "bankcore:lock:interest_sweep"
	interestLockTTL  = 5 * time.Minute
	interestLockWait = 5 * time.Second
)

// InterestSweepResult summarises one AccrueInterest run.
type InterestSweepResult struct {
	Accounts int                        `json:"accounts"`
	Total    decimal.Decimal            `json:"total"`
	Records  []*model.TransactionRecord `json:"records"`
}

// AccrueInterest credits round(balance*rate, 2) to every active savings
// account, zero balances included, as one commit. A failed sweep credits
// nothing and is not retried here.
func (b *Bankcore) AccrueInterest(ctx context.Context, rate decimal.Decimal) (*InterestSweepResult, error) {
	ctx, span := tracer.Start(ctx, "AccrueInterest")
	defer span.End()

	if rate.IsNegative() {
		return nil, invalidInput("interest rate must not be negative", nil)
	}

	if b.redis != nil {
		locker := redlock.NewLocker(b.redis, interestLockKey, model.GenerateUUIDWithSuffix("sweep"))
		if err := locker.WaitLock(ctx, interestLockTTL, interestLockWait); err != nil {
			return nil, logAndRecordError(span, "interest sweep lock unavailable",
				apierror.NewAPIError(apierror.ErrConflict, "interest sweep already running", err))
		}
		defer func() {
			if err := locker.Unlock(context.Background()); err != nil {
				logrus.WithError(err).Warn("failed to release interest sweep lock")
			}
		}()
	}

	accounts, err := b.datasource.GetActiveSavingsAccounts(ctx)
	if err != nil {
		notification.NotifyError(fmt.Errorf("interest sweep failed: %w", err))
		return nil, logAndRecordError(span, "savings account lookup failed", err)
	}

	result := &InterestSweepResult{Total: decimal.Zero}
	if len(accounts) == 0 {
		return result, nil
	}

	now := b.now()
	c := &model.Commit{}
	for _, account := range accounts {
		interest := model.RoundMoney(account.Balance.Mul(rate))
		c.Credit(account.AccountID, interest)
		c.AddRecord(&model.TransactionRecord{
			Sender:          account.AccountID,
			Recipient:       account.AccountID,
			Amount:          interest,
			TransactionType: model.TransactionTypeInterest,
			Status:          model.StatusApproved,
			Description:     "Interest at " + rate.String(),
			TimeExecuted:    now,
		})
		result.Total = result.Total.Add(interest)
	}

	if err := b.datasource.Commit(ctx, c); err != nil {
		notification.NotifyError(fmt.Errorf("interest sweep failed: %w", err))
		return nil, logAndRecordError(span, "interest commit failed", err)
	}

	result.Accounts = len(accounts)
	result.Records = c.Records
	span.SetAttributes(attribute.Int("accounts", result.Accounts), attribute.String("total", result.Total.String()))
	logrus.WithFields(logrus.Fields{
		"accounts": result.Accounts,
		"total":    result.Total.String(),
		"rate":     rate.String(),
	}).Info("interest accrued")
	return result, nil
}
