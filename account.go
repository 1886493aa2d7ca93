package bankcore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vaultline/bankcore/internal/apierror"
	"github.com/vaultline/bankcore/model"
)

// checkCooldown fails with TOO_MANY_REQUESTS when the holder created something
// less than window ago. The remaining wait is carried as the error details.
func checkCooldown(kind string, last, now time.Time, window time.Duration) error {
	if last.IsZero() || window <= 0 {
		return nil
	}
	elapsed := now.Sub(last)
	if elapsed >= window {
		return nil
	}
	remaining := window - elapsed
	return apierror.NewAPIError(apierror.ErrTooManyRequests,
		fmt.Sprintf("%s creation cooldown, retry in %s", kind, remaining.Round(time.Second)), remaining)
}

func (b *Bankcore) CreateHolder(ctx context.Context) (*model.Holder, error) {
	ctx, span := tracer.Start(ctx, "CreateHolder")
	defer span.End()

	holder, err := b.datasource.CreateHolder(ctx, &model.Holder{JoinDate: b.now()})
	if err != nil {
		return nil, logAndRecordError(span, "holder creation failed", err)
	}
	return holder, nil
}

// SetAlias assigns the holder's alias. Aliases are unique across holders.
func (b *Bankcore) SetAlias(ctx context.Context, holderID int64, alias string) error {
	ctx, span := tracer.Start(ctx, "SetAlias")
	defer span.End()

	alias = strings.TrimSpace(alias)
	if alias == "" {
		return invalidInput("alias is required", nil)
	}
	if _, err := b.datasource.GetHolderByID(ctx, holderID); err != nil {
		return logAndRecordError(span, "holder lookup failed", err)
	}
	if err := b.datasource.SetHolderAlias(ctx, holderID, alias); err != nil {
		return logAndRecordError(span, "alias update failed", err)
	}
	return nil
}

// CreateAccount opens an account for a holder. A positive opening balance is
// written together with its Deposit record.
func (b *Bankcore) CreateAccount(ctx context.Context, req model.CreateAccountRequest) (*model.Account, error) {
	ctx, span := tracer.Start(ctx, "CreateAccount")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, logAndRecordError(span, "invalid account request", invalidInput("invalid account request", err))
	}

	if _, err := b.datasource.GetHolderByID(ctx, req.Holder); err != nil {
		return nil, logAndRecordError(span, "holder lookup failed", err)
	}

	now := b.now()
	last, err := b.datasource.LastAccountCreatedAt(ctx, req.Holder)
	if err != nil {
		return nil, logAndRecordError(span, "account cooldown lookup failed", err)
	}
	if err := checkCooldown("account", last, now, b.config.Lifecycle.CreationCooldown()); err != nil {
		return nil, err
	}

	account := &model.Account{
		Holder:        req.Holder,
		Balance:       req.OpeningBalance,
		AccountType:   req.AccountType,
		Active:        true,
		DateOpened:    now,
		PermissionKey: req.PermissionKey,
	}

	var opening *model.TransactionRecord
	if req.OpeningBalance.IsPositive() {
		opening = &model.TransactionRecord{
			Amount:          req.OpeningBalance,
			TransactionType: model.TransactionTypeDeposit,
			Status:          model.StatusApproved,
			Description:     "Opening deposit",
			TimeExecuted:    now,
		}
	}

	created, err := b.datasource.CreateAccount(ctx, account, opening)
	if err != nil {
		return nil, logAndRecordError(span, "account creation failed", err)
	}

	span.SetAttributes(attribute.Int64("account.id", created.AccountID))
	logrus.WithFields(logrus.Fields{
		"account_id": created.AccountID,
		"holder_id":  created.Holder,
		"type":       created.AccountType.String(),
	}).Info("account opened")
	return created, nil
}

// RemoveAccount deactivates the account and all of its cards in one commit.
// Removing an inactive account is a no-op.
func (b *Bankcore) RemoveAccount(ctx context.Context, accountID int64) error {
	ctx, span := tracer.Start(ctx, "RemoveAccount")
	defer span.End()

	account, err := b.datasource.GetAccountByID(ctx, accountID)
	if err != nil {
		return logAndRecordError(span, "account lookup failed", err)
	}
	if !account.Active {
		return nil
	}

	if err := b.datasource.Commit(ctx, &model.Commit{AccountDeactivations: []int64{accountID}}); err != nil {
		return logAndRecordError(span, "account deactivation failed", err)
	}
	logrus.WithField("account_id", accountID).Info("account deactivated")
	return nil
}

func (b *Bankcore) GetAccount(ctx context.Context, accountID int64) (*model.Account, error) {
	return b.datasource.GetAccountByID(ctx, accountID)
}

func (b *Bankcore) GetAccountsByHolder(ctx context.Context, holderID int64) ([]*model.Account, error) {
	if _, err := b.datasource.GetHolderByID(ctx, holderID); err != nil {
		return nil, err
	}
	return b.datasource.GetAccountsByHolder(ctx, holderID)
}
