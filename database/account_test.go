package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/bankcore/internal/apierror"
	"github.com/vaultline/bankcore/model"
)

var accountRowColumns = []string{"account_id", "holder_id", "balance", "account_type", "active", "date_opened", "permission_key", "version"}

func TestCreateAccount_WithOpeningDeposit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now().UTC()

	account := &model.Account{
		Holder:      3,
		Balance:     decimal.NewFromInt(250),
		AccountType: model.AccountTypeSavings,
		Active:      true,
		DateOpened:  now,
	}
	opening := &model.TransactionRecord{
		Amount:          decimal.NewFromInt(250),
		Certificate:     "cert-opening",
		TransactionType: model.TransactionTypeDeposit,
		Status:          model.StatusApproved,
		TimeExecuted:    now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bankcore.accounts")).
		WithArgs(int64(3), "250", "SAVINGS", true, now, nil).
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow(int64(11)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bankcore.transactions")).
		WithArgs(int64(11), int64(11), "250", "cert-opening", "DEPOSIT", "APPROVED", nil, now).
		WillReturnRows(sqlmock.NewRows([]string{"transaction_id"}).AddRow(int64(90)))
	mock.ExpectCommit()

	created, err := ds.CreateAccount(context.Background(), account, opening)
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.AccountID)
	assert.Equal(t, int64(90), opening.TransactionID)
	assert.Equal(t, int64(11), opening.Sender)
	assert.Equal(t, int64(11), opening.Recipient)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccount_RollsBackOnRecordFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bankcore.accounts")).
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow(int64(12)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bankcore.transactions")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	opening := &model.TransactionRecord{Amount: decimal.NewFromInt(1), TransactionType: model.TransactionTypeDeposit, Status: model.StatusApproved}
	_, err = ds.CreateAccount(context.Background(), &model.Account{Holder: 1, Balance: decimal.NewFromInt(1), Active: true}, opening)
	assert.Error(t, err)
	assert.Equal(t, apierror.ErrInternalServer, apierror.CodeOf(err))
	assert.Zero(t, opening.TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountByID_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	opened := time.Now().UTC()

	rows := sqlmock.NewRows(accountRowColumns).
		AddRow(int64(5), int64(2), "100.50", "CHECKING", true, opened, nil, int64(4))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bankcore.accounts")).
		WithArgs(int64(5)).
		WillReturnRows(rows)

	account, err := ds.GetAccountByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), account.Holder)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("100.50")))
	assert.Equal(t, model.AccountTypeChecking, account.AccountType)
	assert.Equal(t, int64(4), account.Version)
	assert.Empty(t, account.PermissionKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	mock.ExpectQuery(regexp.QuoteMeta("FROM bankcore.accounts")).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(accountRowColumns))

	_, err = ds.GetAccountByID(context.Background(), 404)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestGetAccountByAlias(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM bankcore.holders")).
		WithArgs("coffee-shop").
		WillReturnRows(sqlmock.NewRows([]string{"holder_id", "alias", "join_date"}).AddRow(int64(8), "coffee-shop", now))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE holder_id = $1 AND active = TRUE")).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(accountRowColumns).AddRow(int64(21), int64(8), "0", "CHECKING", true, now, "pk", int64(0)))

	account, err := ds.GetAccountByAlias(context.Background(), "coffee-shop")
	require.NoError(t, err)
	assert.Equal(t, int64(21), account.AccountID)
	assert.Equal(t, "pk", account.PermissionKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountByAlias_NoActiveAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	mock.ExpectQuery(regexp.QuoteMeta("FROM bankcore.holders")).
		WithArgs("closed").
		WillReturnRows(sqlmock.NewRows([]string{"holder_id", "alias", "join_date"}).AddRow(int64(9), "closed", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE holder_id = $1 AND active = TRUE")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(accountRowColumns))

	_, err = ds.GetAccountByAlias(context.Background(), "closed")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestGetActiveSavingsAccounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now().UTC()
	rows := sqlmock.NewRows(accountRowColumns).
		AddRow(int64(1), int64(1), "10", "SAVINGS", true, now, nil, int64(0)).
		AddRow(int64(4), int64(2), "0", "SAVINGS", true, now, nil, int64(2))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE account_type = $1 AND active = TRUE")).
		WithArgs("SAVINGS").
		WillReturnRows(rows)

	accounts, err := ds.GetActiveSavingsAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, int64(4), accounts[1].AccountID)
	assert.True(t, accounts[1].IsSavings())
}

func TestLastAccountCreatedAt(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	opened := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(date_opened)")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(opened))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(date_opened)")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	last, err := ds.LastAccountCreatedAt(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, last.Equal(opened))

	last, err = ds.LastAccountCreatedAt(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}
