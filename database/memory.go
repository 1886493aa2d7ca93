package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaultline/bankcore/internal/apierror"
	"github.com/vaultline/bankcore/model"
)

// MemoryDatasource is an in-process IDataSource. A single mutex serializes
// every write, so Commit observes no concurrent writer.
type MemoryDatasource struct {
	mu sync.RWMutex

	CommitTimeout time.Duration

	holders      map[int64]*model.Holder
	accounts     map[int64]*model.Account
	cards        map[int64]*model.Card
	transactions map[int64]*model.TransactionRecord

	aliases      map[string]int64
	cardNumbers  map[string]int64
	certificates map[string]int64

	nextHolderID      int64
	nextAccountID     int64
	nextCardID        int64
	nextTransactionID int64
}

func NewMemoryDatasource() *MemoryDatasource {
	return &MemoryDatasource{
		holders:      make(map[int64]*model.Holder),
		accounts:     make(map[int64]*model.Account),
		cards:        make(map[int64]*model.Card),
		transactions: make(map[int64]*model.TransactionRecord),
		aliases:      make(map[string]int64),
		cardNumbers:  make(map[string]int64),
		certificates: make(map[string]int64),
	}
}

func (m *MemoryDatasource) CreateHolder(ctx context.Context, holder *model.Holder) (*model.Holder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if holder.Alias != "" {
		if _, taken := m.aliases[holder.Alias]; taken {
			return nil, apierror.NewAPIError(apierror.ErrConflict, "Alias '"+holder.Alias+"' is already in use", nil)
		}
	}
	m.nextHolderID++
	holder.HolderID = m.nextHolderID
	stored := *holder
	m.holders[stored.HolderID] = &stored
	if stored.Alias != "" {
		m.aliases[stored.Alias] = stored.HolderID
	}
	return holder, nil
}

func (m *MemoryDatasource) GetHolderByID(ctx context.Context, id int64) (*model.Holder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	holder, ok := m.holders[id]
	if !ok {
		return nil, notFound("holder", id)
	}
	out := *holder
	return &out, nil
}

func (m *MemoryDatasource) GetHolderByAlias(ctx context.Context, alias string) (*model.Holder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.aliases[alias]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "No holder uses alias '"+alias+"'", nil)
	}
	out := *m.holders[id]
	return &out, nil
}

func (m *MemoryDatasource) SetHolderAlias(ctx context.Context, holderID int64, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	holder, ok := m.holders[holderID]
	if !ok {
		return notFound("holder", holderID)
	}
	if owner, taken := m.aliases[alias]; taken && owner != holderID {
		return apierror.NewAPIError(apierror.ErrConflict, "Alias '"+alias+"' is already in use", nil)
	}
	if holder.Alias != "" {
		delete(m.aliases, holder.Alias)
	}
	holder.Alias = alias
	m.aliases[alias] = holderID
	return nil
}

func (m *MemoryDatasource) CreateAccount(ctx context.Context, account *model.Account, opening *model.TransactionRecord) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.holders[account.Holder]; !ok {
		return nil, notFound("holder", account.Holder)
	}
	if account.Balance.IsNegative() {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Opening balance must not be negative", nil)
	}
	if opening != nil && opening.Certificate != "" {
		if _, taken := m.certificates[opening.Certificate]; taken {
			return nil, apierror.NewAPIError(apierror.ErrConflict, "Certificate already issued", nil)
		}
	}

	m.nextAccountID++
	account.AccountID = m.nextAccountID
	account.Version = 0
	stored := *account
	m.accounts[stored.AccountID] = &stored

	if opening != nil {
		opening.Sender = account.AccountID
		opening.Recipient = account.AccountID
		m.storeRecord(opening)
	}
	return account, nil
}

func (m *MemoryDatasource) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, notFound("account", id)
	}
	out := *account
	return &out, nil
}

func (m *MemoryDatasource) GetAccountByAlias(ctx context.Context, alias string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	holderID, ok := m.aliases[alias]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "No holder uses alias '"+alias+"'", nil)
	}
	var found *model.Account
	for _, account := range m.accounts {
		if account.Holder != holderID || !account.Active {
			continue
		}
		if found == nil || account.AccountID < found.AccountID {
			found = account
		}
	}
	if found == nil {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "No active account for alias '"+alias+"'", nil)
	}
	out := *found
	return &out, nil
}

func (m *MemoryDatasource) GetAccountsByHolder(ctx context.Context, holderID int64) ([]*model.Account, error) {
	return m.filterAccounts(func(a *model.Account) bool { return a.Holder == holderID }), nil
}

func (m *MemoryDatasource) GetActiveSavingsAccounts(ctx context.Context) ([]*model.Account, error) {
	return m.filterAccounts(func(a *model.Account) bool { return a.Active && a.IsSavings() }), nil
}

func (m *MemoryDatasource) LastAccountCreatedAt(ctx context.Context, holderID int64) (time.Time, error) {
	var last time.Time
	for _, account := range m.filterAccounts(func(a *model.Account) bool { return a.Holder == holderID }) {
		if account.DateOpened.After(last) {
			last = account.DateOpened
		}
	}
	return last, nil
}

func (m *MemoryDatasource) filterAccounts(keep func(*model.Account) bool) []*model.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Account
	for _, account := range m.accounts {
		if keep(account) {
			a := *account
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

func (m *MemoryDatasource) CreateCard(ctx context.Context, card *model.Card) (*model.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[card.AssociatedAccount]; !ok {
		return nil, notFound("account", card.AssociatedAccount)
	}
	if _, taken := m.cardNumbers[card.CardNumber]; taken {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "Card number already issued", nil)
	}
	m.nextCardID++
	card.CardID = m.nextCardID
	stored := *card
	m.cards[stored.CardID] = &stored
	m.cardNumbers[stored.CardNumber] = stored.CardID
	return card, nil
}

func (m *MemoryDatasource) GetCardByID(ctx context.Context, id int64) (*model.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	card, ok := m.cards[id]
	if !ok {
		return nil, notFound("card", id)
	}
	out := *card
	return &out, nil
}

func (m *MemoryDatasource) GetCardByNumber(ctx context.Context, number string) (*model.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.cardNumbers[number]
	if !ok {
		return nil, notFound("card", number)
	}
	out := *m.cards[id]
	return &out, nil
}

func (m *MemoryDatasource) GetCardsByAccount(ctx context.Context, accountID int64) ([]*model.Card, error) {
	return m.filterCards(func(c *model.Card) bool { return c.AssociatedAccount == accountID }), nil
}

func (m *MemoryDatasource) CardNumberExists(ctx context.Context, number string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cardNumbers[number]
	return ok, nil
}

func (m *MemoryDatasource) LastCardIssuedAt(ctx context.Context, holderID int64) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last time.Time
	for _, card := range m.cards {
		account, ok := m.accounts[card.AssociatedAccount]
		if ok && account.Holder == holderID && card.IssueDate.After(last) {
			last = card.IssueDate
		}
	}
	return last, nil
}

func (m *MemoryDatasource) GetActiveExpiredCards(ctx context.Context, now time.Time) ([]*model.Card, error) {
	return m.filterCards(func(c *model.Card) bool { return c.Active && !c.ExpireDate.After(now) }), nil
}

func (m *MemoryDatasource) DeleteCard(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	card, ok := m.cards[id]
	if !ok {
		return notFound("card", id)
	}
	delete(m.cardNumbers, card.CardNumber)
	delete(m.cards, id)
	return nil
}

func (m *MemoryDatasource) filterCards(keep func(*model.Card) bool) []*model.Card {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Card
	for _, card := range m.cards {
		if keep(card) {
			c := *card
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CardID < out[j].CardID })
	return out
}

func (m *MemoryDatasource) GetTransactionByID(ctx context.Context, id int64) (*model.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.transactions[id]
	if !ok {
		return nil, notFound("transaction", id)
	}
	out := *record
	return &out, nil
}

func (m *MemoryDatasource) GetTransactionByCertificate(ctx context.Context, certificate string) (*model.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.certificates[certificate]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "No transaction with certificate '"+certificate+"'", nil)
	}
	out := *m.transactions[id]
	return &out, nil
}

func (m *MemoryDatasource) GetTransactionsByAccount(ctx context.Context, accountID int64) ([]*model.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.TransactionRecord
	for _, record := range m.transactions {
		if record.Involves(accountID) {
			r := *record
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TimeExecuted.Equal(out[j].TimeExecuted) {
			return out[i].TimeExecuted.After(out[j].TimeExecuted)
		}
		return out[i].TransactionID > out[j].TransactionID
	})
	return out, nil
}

func (m *MemoryDatasource) LastInterestAccruedAt(ctx context.Context) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last time.Time
	for _, record := range m.transactions {
		if record.TransactionType == model.TransactionTypeInterest && record.TimeExecuted.After(last) {
			last = record.TimeExecuted
		}
	}
	return last, nil
}

// Commit validates the whole mutation set before writing any of it.
func (m *MemoryDatasource) Commit(ctx context.Context, c *model.Commit) error {
	if c == nil || c.IsEmpty() {
		return nil
	}
	if m.CommitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.CommitTimeout)
		defer cancel()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apierror.NewAPIError(apierror.ErrTimeout, "Commit timed out before it could start", err)
		}
		return apierror.NewAPIError(apierror.ErrConflict, "Commit cancelled before it could start", err)
	}

	updated := make(map[int64]struct{}, len(c.StatusUpdates))
	for _, update := range c.StatusUpdates {
		if !update.From.CanTransitionTo(update.To) {
			return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Transaction status cannot move from %s to %s", update.From, update.To), nil)
		}
		record, ok := m.transactions[update.TransactionID]
		if !ok {
			return notFound("transaction", update.TransactionID)
		}
		_, seen := updated[update.TransactionID]
		if record.Status != update.From || seen {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Transaction %d is no longer %s", update.TransactionID, update.From), nil)
		}
		updated[update.TransactionID] = struct{}{}
	}

	net := c.NetDeltas()
	balances := make(map[int64]decimal.Decimal, len(net))
	for _, accountID := range c.LockOrder() {
		account, ok := m.accounts[accountID]
		if !ok {
			return notFound("account", accountID)
		}
		delta, ok := net[accountID]
		if !ok {
			continue
		}
		if delta.RequireActive && !account.Active {
			return inactiveConflict(accountID)
		}
		next := account.Balance.Add(delta.Amount)
		if delta.RequireNonNegative && next.IsNegative() {
			return apierror.NewAPIError(apierror.ErrInsufficientFunds, fmt.Sprintf("Insufficient funds in account %d", accountID), nil)
		}
		balances[accountID] = next
	}

	pending := make(map[string]struct{})
	for _, record := range c.Records {
		if _, ok := m.accounts[record.Sender]; !ok {
			return notFound("account", record.Sender)
		}
		if _, ok := m.accounts[record.Recipient]; !ok {
			return notFound("account", record.Recipient)
		}
		if record.Amount.IsNegative() {
			return apierror.NewAPIError(apierror.ErrInvalidInput, "Transaction amount must not be negative", nil)
		}
		if record.Certificate == "" {
			continue
		}
		if _, taken := m.certificates[record.Certificate]; taken {
			return apierror.NewAPIError(apierror.ErrConflict, "Certificate already issued", nil)
		}
		if _, dup := pending[record.Certificate]; dup {
			return apierror.NewAPIError(apierror.ErrConflict, "Certificate already issued", nil)
		}
		pending[record.Certificate] = struct{}{}
	}

	// validated; nothing below can fail
	for accountID, balance := range balances {
		account := m.accounts[accountID]
		account.Balance = balance
		account.Version++
	}
	for _, record := range c.Records {
		m.storeRecord(record)
	}
	for _, update := range c.StatusUpdates {
		m.transactions[update.TransactionID].Status = update.To
	}
	for _, cardID := range c.CardDeactivations {
		if card, ok := m.cards[cardID]; ok {
			card.Active = false
		}
	}
	for _, accountID := range c.AccountDeactivations {
		account := m.accounts[accountID]
		account.Active = false
		account.Version++
		for _, card := range m.cards {
			if card.AssociatedAccount == accountID {
				card.Active = false
			}
		}
	}
	return nil
}

func (m *MemoryDatasource) storeRecord(record *model.TransactionRecord) {
	m.nextTransactionID++
	record.TransactionID = m.nextTransactionID
	stored := *record
	m.transactions[stored.TransactionID] = &stored
	if stored.Certificate != "" {
		m.certificates[stored.Certificate] = stored.TransactionID
	}
}
