package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vaultline/bankcore/internal/apierror"
	"github.com/vaultline/bankcore/model"
)

// Commit applies c in one database transaction. Touched account rows are
// locked in ascending ID order; the active flag and balance guards are checked
// under the lock, so a writer that deactivated or drained an account first wins.
func (d Datasource) Commit(ctx context.Context, c *model.Commit) error {
	if c == nil || c.IsEmpty() {
		return nil
	}
	ctx, cancel := d.commitContext(ctx)
	defer cancel()

	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return mapError(err, "Failed to begin transaction")
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	// status rows first, so a lost refund race reports CONFLICT rather than a balance error
	updates := append([]model.StatusUpdate(nil), c.StatusUpdates...)
	sort.Slice(updates, func(i, j int) bool { return updates[i].TransactionID < updates[j].TransactionID })
	for _, update := range updates {
		if err := updateStatus(ctx, tx, update); err != nil {
			return err
		}
	}

	net := c.NetDeltas()
	for _, accountID := range c.LockOrder() {
		var balance decimal.Decimal
		var active bool
		err := tx.QueryRowContext(ctx, `
			SELECT balance, active FROM bankcore.accounts WHERE account_id = $1 FOR UPDATE
		`, accountID).Scan(&balance, &active)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("account", accountID)
		}
		if err != nil {
			return mapError(err, "Failed to lock account")
		}

		delta, ok := net[accountID]
		if !ok {
			continue
		}
		if delta.RequireActive && !active {
			return inactiveConflict(accountID)
		}
		if delta.Amount.IsZero() {
			continue
		}
		if delta.RequireNonNegative && balance.Add(delta.Amount).IsNegative() {
			return apierror.NewAPIError(apierror.ErrInsufficientFunds, fmt.Sprintf("Insufficient funds in account %d", accountID), nil)
		}
		if err := applyDelta(ctx, tx, accountID, delta.Amount); err != nil {
			return err
		}
	}

	ids := make([]int64, len(c.Records))
	for i, record := range c.Records {
		id, err := insertRecord(ctx, tx, record)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	for _, cardID := range c.CardDeactivations {
		if _, err := tx.ExecContext(ctx, `UPDATE bankcore.cards SET active = FALSE WHERE card_id = $1`, cardID); err != nil {
			return mapError(err, "Failed to deactivate card")
		}
	}

	for _, accountID := range c.AccountDeactivations {
		if _, err := tx.ExecContext(ctx, `
			UPDATE bankcore.accounts SET active = FALSE, version = version + 1 WHERE account_id = $1
		`, accountID); err != nil {
			return mapError(err, "Failed to deactivate account")
		}
		if _, err := tx.ExecContext(ctx, `UPDATE bankcore.cards SET active = FALSE WHERE account_id = $1`, accountID); err != nil {
			return mapError(err, "Failed to deactivate account cards")
		}
	}

	if err := tx.Commit(); err != nil {
		return mapError(err, "Failed to commit transaction")
	}

	for i, record := range c.Records {
		record.TransactionID = ids[i]
	}
	return nil
}

// applyDelta runs under the row lock taken by Commit.
func applyDelta(ctx context.Context, tx *sql.Tx, accountID int64, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE bankcore.accounts
		SET balance = balance + $2, version = version + 1
		WHERE account_id = $1
	`, accountID, amount)
	if err != nil {
		return mapError(err, "Failed to update balance")
	}
	return nil
}

func inactiveConflict(accountID int64) error {
	return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Account %d was deactivated by another transaction", accountID), nil)
}

func updateStatus(ctx context.Context, tx *sql.Tx, update model.StatusUpdate) error {
	if !update.From.CanTransitionTo(update.To) {
		return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Transaction status cannot move from %s to %s", update.From, update.To), nil)
	}
	result, err := tx.ExecContext(ctx, `
		UPDATE bankcore.transactions SET status = $3 WHERE transaction_id = $1 AND status = $2
	`, update.TransactionID, update.From, update.To)
	if err != nil {
		return mapError(err, "Failed to update transaction status")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return mapError(err, "Failed to get rows affected")
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Transaction %d is no longer %s", update.TransactionID, update.From), nil)
	}
	return nil
}
