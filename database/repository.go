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
	"time"

	"github.com/vaultline/bankcore/model"
)

// IDataSource is the ledger store. Reads return NOT_FOUND api errors for
// missing keys; every balance mutation goes through Commit.
type IDataSource interface {
	holder
	account
	card
	transaction
	ledger
}

type holder interface {
	CreateHolder(ctx context.Context, holder *model.Holder) (*model.Holder, error)
	GetHolderByID(ctx context.Context, id int64) (*model.Holder, error)
	GetHolderByAlias(ctx context.Context, alias string) (*model.Holder, error)
	SetHolderAlias(ctx context.Context, holderID int64, alias string) error // alias must be unique
}

type account interface {
	// CreateAccount inserts the account. A non-nil opening record is written in
	// the same transaction with the new account as sender and recipient.
	CreateAccount(ctx context.Context, account *model.Account, opening *model.TransactionRecord) (*model.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)
	GetAccountByAlias(ctx context.Context, alias string) (*model.Account, error) // lowest active account of the holder
	GetAccountsByHolder(ctx context.Context, holderID int64) ([]*model.Account, error)
	GetActiveSavingsAccounts(ctx context.Context) ([]*model.Account, error)
	LastAccountCreatedAt(ctx context.Context, holderID int64) (time.Time, error) // zero when the holder has none
}

type card interface {
	CreateCard(ctx context.Context, card *model.Card) (*model.Card, error)
	GetCardByID(ctx context.Context, id int64) (*model.Card, error)
	GetCardByNumber(ctx context.Context, number string) (*model.Card, error)
	GetCardsByAccount(ctx context.Context, accountID int64) ([]*model.Card, error)
	CardNumberExists(ctx context.Context, number string) (bool, error)
	LastCardIssuedAt(ctx context.Context, holderID int64) (time.Time, error)
	GetActiveExpiredCards(ctx context.Context, now time.Time) ([]*model.Card, error)
	DeleteCard(ctx context.Context, id int64) error
}

type transaction interface {
	GetTransactionByID(ctx context.Context, id int64) (*model.TransactionRecord, error)
	GetTransactionByCertificate(ctx context.Context, certificate string) (*model.TransactionRecord, error)
	GetTransactionsByAccount(ctx context.Context, accountID int64) ([]*model.TransactionRecord, error) // newest first
	LastInterestAccruedAt(ctx context.Context) (time.Time, error)                                      // zero before the first sweep
}

type ledger interface {
	// Commit applies every mutation in c or none of them.
	Commit(ctx context.Context, c *model.Commit) error
}
