package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BalanceDelta is a signed change to one account's balance. A guarded delta
// fails the whole commit if the account's resulting balance would be negative.
// RequireActive fails it if the account was deactivated before the store
// locked it.
type BalanceDelta struct {
	AccountID          int64
	Amount             decimal.Decimal
	RequireNonNegative bool
	RequireActive      bool
}

// StatusUpdate moves a record from From to To. It only applies if the stored
// status still equals From.
type StatusUpdate struct {
	TransactionID int64
	From          TransactionStatus
	To            TransactionStatus
}

// Commit is the full set of mutations one engine operation applies atomically.
type Commit struct {
	Deltas               []BalanceDelta
	Records              []*TransactionRecord
	StatusUpdates        []StatusUpdate
	CardDeactivations    []int64
	AccountDeactivations []int64
}

// Credit appends a positive delta to an account that must still be active.
func (c *Commit) Credit(accountID int64, amount decimal.Decimal) {
	c.Deltas = append(c.Deltas, BalanceDelta{AccountID: accountID, Amount: amount, RequireActive: true})
}

// Debit appends a guarded negative delta to an account that must still be active.
func (c *Commit) Debit(accountID int64, amount decimal.Decimal) {
	c.Deltas = append(c.Deltas, BalanceDelta{AccountID: accountID, Amount: amount.Neg(), RequireNonNegative: true, RequireActive: true})
}

func (c *Commit) AddRecord(record *TransactionRecord) {
	c.Records = append(c.Records, record)
}

func (c *Commit) IsEmpty() bool {
	return len(c.Deltas) == 0 && len(c.Records) == 0 && len(c.StatusUpdates) == 0 &&
		len(c.CardDeactivations) == 0 && len(c.AccountDeactivations) == 0
}

// NetDeltas folds the deltas into one net amount per account. An account is
// guarded, or required active, if any of its deltas is.
func (c *Commit) NetDeltas() map[int64]BalanceDelta {
	net := make(map[int64]BalanceDelta, len(c.Deltas))
	for _, d := range c.Deltas {
		cur, ok := net[d.AccountID]
		if !ok {
			net[d.AccountID] = d
			continue
		}
		cur.Amount = cur.Amount.Add(d.Amount)
		cur.RequireNonNegative = cur.RequireNonNegative || d.RequireNonNegative
		cur.RequireActive = cur.RequireActive || d.RequireActive
		net[d.AccountID] = cur
	}
	return net
}

// LockOrder returns every account the commit touches, ascending and without
// duplicates. Stores lock rows in this order.
func (c *Commit) LockOrder() []int64 {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0, len(c.Deltas)+len(c.AccountDeactivations))
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, d := range c.Deltas {
		add(d.AccountID)
	}
	for _, id := range c.AccountDeactivations {
		add(id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
