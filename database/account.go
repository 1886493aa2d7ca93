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

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vaultline/bankcore/internal/apierror"
	"github.com/vaultline/bankcore/model"
)

const accountColumns = `account_id, holder_id, balance, account_type, active, date_opened, permission_key, version`

// CreateAccount inserts an account and, when opening is set, the deposit
// record for its opening balance in the same database transaction.
func (d Datasource) CreateAccount(ctx context.Context, account *model.Account, opening *model.TransactionRecord) (*model.Account, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var permissionKey sql.NullString
	if account.PermissionKey != "" {
		permissionKey = sql.NullString{String: account.PermissionKey, Valid: true}
	}

	var accountID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO bankcore.accounts (holder_id, balance, account_type, active, date_opened, permission_key, version)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
		RETURNING account_id
	`, account.Holder, account.Balance, account.AccountType, account.Active, account.DateOpened, permissionKey).Scan(&accountID)
	if err != nil {
		return nil, mapError(err, "Failed to create account")
	}

	var openingID int64
	if opening != nil {
		opening.Sender = accountID
		opening.Recipient = accountID
		openingID, err = insertRecord(ctx, tx, opening)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapError(err, "Failed to commit transaction")
	}

	account.AccountID = accountID
	account.Version = 0
	if opening != nil {
		opening.TransactionID = openingID
	}
	return account, nil
}

func (d Datasource) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM bankcore.accounts
		WHERE account_id = $1
	`, id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("account", id)
	}
	if err != nil {
		return nil, mapError(err, "Failed to retrieve account")
	}
	return account, nil
}

// GetAccountByAlias resolves the alias to its holder, then picks the holder's
// active account with the lowest ID.
func (d Datasource) GetAccountByAlias(ctx context.Context, alias string) (*model.Account, error) {
	holder, err := d.GetHolderByAlias(ctx, alias)
	if err != nil {
		return nil, err
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM bankcore.accounts
		WHERE holder_id = $1 AND active = TRUE
		ORDER BY account_id ASC
		LIMIT 1
	`, holder.HolderID)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "No active account for alias '"+alias+"'", nil)
	}
	if err != nil {
		return nil, mapError(err, "Failed to resolve alias")
	}
	return account, nil
}

func (d Datasource) GetAccountsByHolder(ctx context.Context, holderID int64) ([]*model.Account, error) {
	return d.queryAccounts(ctx, `
		SELECT `+accountColumns+`
		FROM bankcore.accounts
		WHERE holder_id = $1
		ORDER BY account_id ASC
	`, holderID)
}

func (d Datasource) GetActiveSavingsAccounts(ctx context.Context) ([]*model.Account, error) {
	return d.queryAccounts(ctx, `
		SELECT `+accountColumns+`
		FROM bankcore.accounts
		WHERE account_type = $1 AND active = TRUE
		ORDER BY account_id ASC
	`, model.AccountTypeSavings)
}

func (d Datasource) LastAccountCreatedAt(ctx context.Context, holderID int64) (time.Time, error) {
	var last sql.NullTime
	err := d.Conn.QueryRowContext(ctx, `
		SELECT MAX(date_opened) FROM bankcore.accounts WHERE holder_id = $1
	`, holderID).Scan(&last)
	if err != nil {
		return time.Time{}, mapError(err, "Failed to read account history")
	}
	return last.Time, nil
}

func (d Datasource) queryAccounts(ctx context.Context, query string, args ...interface{}) ([]*model.Account, error) {
	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "Failed to retrieve accounts")
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, mapError(err, "Failed to scan account")
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "Failed to retrieve accounts")
	}
	return accounts, nil
}

func scanAccount(row rowScanner) (*model.Account, error) {
	account := &model.Account{}
	var permissionKey sql.NullString
	err := row.Scan(&account.AccountID, &account.Holder, &account.Balance, &account.AccountType,
		&account.Active, &account.DateOpened, &permissionKey, &account.Version)
	if err != nil {
		return nil, err
	}
	account.PermissionKey = permissionKey.String
	return account, nil
}
