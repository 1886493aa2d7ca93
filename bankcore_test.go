package bankcore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vaultline/bankcore/config"
	"github.com/vaultline/bankcore/database"
	"github.com/vaultline/bankcore/model"
)

const testPIN = "12345"

type fixture struct {
	t   *testing.T
	ctx context.Context
	ds  *database.MemoryDatasource
	b   *Bankcore
	cfg *config.Configuration
	now time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		t:   t,
		ctx: context.Background(),
		ds:  database.NewMemoryDatasource(),
		cfg: config.Defaults(),
		now: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
	}
	opts = append([]Option{
		WithConfig(f.cfg),
		WithClock(func() time.Time { return f.now }),
		WithPINHashCost(bcrypt.MinCost),
	}, opts...)
	b, err := NewBankcore(f.ds, opts...)
	require.NoError(t, err)
	f.b = b
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// holder creates a holder, aliased when alias is non-empty.
func (f *fixture) holder(alias string) *model.Holder {
	f.t.Helper()
	h, err := f.b.CreateHolder(f.ctx)
	require.NoError(f.t, err)
	if alias != "" {
		require.NoError(f.t, f.b.SetAlias(f.ctx, h.HolderID, alias))
		h.Alias = alias
	}
	return h
}

// account opens an account directly in the store, skipping the creation cooldown.
func (f *fixture) account(holderID int64, accountType model.AccountType, balance string) *model.Account {
	f.t.Helper()
	a, err := f.ds.CreateAccount(f.ctx, &model.Account{
		Holder:      holderID,
		Balance:     decimal.RequireFromString(balance),
		AccountType: accountType,
		Active:      true,
		DateOpened:  f.now,
	}, nil)
	require.NoError(f.t, err)
	return a
}

func (f *fixture) card(accountID int64, number string, expires time.Time) *model.Card {
	f.t.Helper()
	c, err := f.ds.CreateCard(f.ctx, &model.Card{
		CardType:          model.CardTypeDebit,
		CardNumber:        number,
		KeyPIN:            hashPIN(f.t, testPIN),
		AssociatedAccount: accountID,
		IssueDate:         f.now,
		ExpireDate:        expires,
		Active:            true,
	})
	require.NoError(f.t, err)
	return c
}

func (f *fixture) balance(accountID int64) decimal.Decimal {
	f.t.Helper()
	a, err := f.ds.GetAccountByID(f.ctx, accountID)
	require.NoError(f.t, err)
	return a.Balance
}

func (f *fixture) assertBalance(accountID int64, want string) {
	f.t.Helper()
	got := f.balance(accountID)
	assert.Truef(f.t, got.Equal(decimal.RequireFromString(want)), "account %d: want %s, got %s", accountID, want, got)
}

func (f *fixture) history(accountID int64) []*model.TransactionRecord {
	f.t.Helper()
	records, err := f.b.GetTransactionHistory(f.ctx, accountID)
	require.NoError(f.t, err)
	return records
}

func hashPIN(t *testing.T, pin string) string {
	t.Helper()
	hash, err := model.HashPIN(pin, bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewBankcore(t *testing.T) {
	_, err := NewBankcore(nil)
	assert.Error(t, err)

	b, err := NewBankcore(database.NewMemoryDatasource(), WithConfig(config.Defaults()))
	require.NoError(t, err)

	cert, err := b.newCertificate()
	require.NoError(t, err)
	assert.Len(t, cert, config.DEFAULT_CERTIFICATE_LENGTH)

	number, err := b.newCardNumber()
	require.NoError(t, err)
	assert.Len(t, number, config.DEFAULT_CARD_NUMBER_LENGTH)
}

func TestCertificates_Distinct(t *testing.T) {
	values := []string{"A", "A", "B", "C"}
	i := 0
	f := newFixture(t, WithCertificateGenerator(func() (string, error) {
		v := values[i%len(values)]
		i++
		return v, nil
	}))

	certs, err := f.b.certificates(3)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, certs)

	stuck := newFixture(t, WithCertificateGenerator(func() (string, error) { return "same", nil }))
	_, err = stuck.b.certificates(2)
	assert.Error(t, err)
}
