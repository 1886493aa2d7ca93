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
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/vaultline/bankcore/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Holder methods

func (m *MockDataSource) CreateHolder(ctx context.Context, holder *model.Holder) (*model.Holder, error) {
	args := m.Called(ctx, holder)
	h, _ := args.Get(0).(*model.Holder)
	return h, args.Error(1)
}

func (m *MockDataSource) GetHolderByID(ctx context.Context, id int64) (*model.Holder, error) {
	args := m.Called(ctx, id)
	h, _ := args.Get(0).(*model.Holder)
	return h, args.Error(1)
}

func (m *MockDataSource) GetHolderByAlias(ctx context.Context, alias string) (*model.Holder, error) {
	args := m.Called(ctx, alias)
	h, _ := args.Get(0).(*model.Holder)
	return h, args.Error(1)
}

func (m *MockDataSource) SetHolderAlias(ctx context.Context, holderID int64, alias string) error {
	args := m.Called(ctx, holderID, alias)
	return args.Error(0)
}

// Account methods

func (m *MockDataSource) CreateAccount(ctx context.Context, account *model.Account, opening *model.TransactionRecord) (*model.Account, error) {
	args := m.Called(ctx, account, opening)
	a, _ := args.Get(0).(*model.Account)
	return a, args.Error(1)
}

func (m *MockDataSource) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*model.Account)
	return a, args.Error(1)
}

func (m *MockDataSource) GetAccountByAlias(ctx context.Context, alias string) (*model.Account, error) {
	args := m.Called(ctx, alias)
	a, _ := args.Get(0).(*model.Account)
	return a, args.Error(1)
}

func (m *MockDataSource) GetAccountsByHolder(ctx context.Context, holderID int64) ([]*model.Account, error) {
	args := m.Called(ctx, holderID)
	a, _ := args.Get(0).([]*model.Account)
	return a, args.Error(1)
}

func (m *MockDataSource) GetActiveSavingsAccounts(ctx context.Context) ([]*model.Account, error) {
	args := m.Called(ctx)
	a, _ := args.Get(0).([]*model.Account)
	return a, args.Error(1)
}

func (m *MockDataSource) LastAccountCreatedAt(ctx context.Context, holderID int64) (time.Time, error) {
	args := m.Called(ctx, holderID)
	return args.Get(0).(time.Time), args.Error(1)
}

// Card methods

func (m *MockDataSource) CreateCard(ctx context.Context, card *model.Card) (*model.Card, error) {
	args := m.Called(ctx, card)
	c, _ := args.Get(0).(*model.Card)
	return c, args.Error(1)
}

func (m *MockDataSource) GetCardByID(ctx context.Context, id int64) (*model.Card, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*model.Card)
	return c, args.Error(1)
}

func (m *MockDataSource) GetCardByNumber(ctx context.Context, number string) (*model.Card, error) {
	args := m.Called(ctx, number)
	c, _ := args.Get(0).(*model.Card)
	return c, args.Error(1)
}

func (m *MockDataSource) GetCardsByAccount(ctx context.Context, accountID int64) ([]*model.Card, error) {
	args := m.Called(ctx, accountID)
	c, _ := args.Get(0).([]*model.Card)
	return c, args.Error(1)
}

func (m *MockDataSource) CardNumberExists(ctx context.Context, number string) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) LastCardIssuedAt(ctx context.Context, holderID int64) (time.Time, error) {
	args := m.Called(ctx, holderID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockDataSource) GetActiveExpiredCards(ctx context.Context, now time.Time) ([]*model.Card, error) {
	args := m.Called(ctx, now)
	c, _ := args.Get(0).([]*model.Card)
	return c, args.Error(1)
}

func (m *MockDataSource) DeleteCard(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Transaction methods

func (m *MockDataSource) GetTransactionByID(ctx context.Context, id int64) (*model.TransactionRecord, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*model.TransactionRecord)
	return r, args.Error(1)
}

func (m *MockDataSource) GetTransactionByCertificate(ctx context.Context, certificate string) (*model.TransactionRecord, error) {
	args := m.Called(ctx, certificate)
	r, _ := args.Get(0).(*model.TransactionRecord)
	return r, args.Error(1)
}

func (m *MockDataSource) GetTransactionsByAccount(ctx context.Context, accountID int64) ([]*model.TransactionRecord, error) {
	args := m.Called(ctx, accountID)
	r, _ := args.Get(0).([]*model.TransactionRecord)
	return r, args.Error(1)
}

func (m *MockDataSource) LastInterestAccruedAt(ctx context.Context) (time.Time, error) {
	args := m.Called(ctx)
	return args.Get(0).(time.Time), args.Error(1)
}

// Ledger methods

func (m *MockDataSource) Commit(ctx context.Context, c *model.Commit) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}
