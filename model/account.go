package model

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Holder owns accounts and carries the alias vendors are paid under.
type Holder struct {
	HolderID int64     `json:"holder_id"`
	Alias    string    `json:"alias,omitempty"`
	JoinDate time.Time `json:"join_date"`
}

type Account struct {
	AccountID     int64           `json:"account_id"`
	Holder        int64           `json:"holder_id"`
	Balance       decimal.Decimal `json:"balance"`
	AccountType   AccountType     `json:"account_type"`
	Active        bool            `json:"active"`
	DateOpened    time.Time       `json:"date_opened"`
	PermissionKey string          `json:"permission_key,omitempty"`
	Version       int64           `json:"-"`
}

func (a *Account) IsSavings() bool {
	return a.AccountType == AccountTypeSavings
}

type Card struct {
	CardID            int64     `json:"card_id"`
	CardType          CardType  `json:"card_type"`
	CardNumber        string    `json:"card_number"`
	KeyPIN            string    `json:"-"` // bcrypt hash
	AssociatedAccount int64     `json:"associated_account"`
	IssueDate         time.Time `json:"issue_date"`
	ExpireDate        time.Time `json:"expire_date"`
	Active            bool      `json:"active"`
}

// Usable reports whether the card is active and not yet expired at now.
func (c *Card) Usable(now time.Time) bool {
	return c.Active && now.Before(c.ExpireDate)
}

// PINMatches compares pin against the stored hash in constant time.
func (c *Card) PINMatches(pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.KeyPIN), []byte(pin)) == nil
}

func HashPIN(pin string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
