package model

import (
	"fmt"
	"strings"
)

type AccountType int

const (
	AccountTypeChecking AccountType = iota
	AccountTypeSavings
)

var accountTypeNames = map[AccountType]string{
	AccountTypeChecking: "CHECKING",
	AccountTypeSavings:  "SAVINGS",
}

func (t AccountType) String() string {
	if name, ok := accountTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("AccountType(%d)", int(t))
}

func (t AccountType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *AccountType) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseAccountType(s string) (AccountType, error) {
	for t, name := range accountTypeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown account type %q", s)
}

type CardType int

const (
	CardTypeDebit CardType = iota
	CardTypeCredit
)

var cardTypeNames = map[CardType]string{
	CardTypeDebit:  "DEBIT",
	CardTypeCredit: "CREDIT",
}

func (t CardType) String() string {
	if name, ok := cardTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("CardType(%d)", int(t))
}

func (t CardType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *CardType) UnmarshalText(text []byte) error {
	parsed, err := ParseCardType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseCardType(s string) (CardType, error) {
	for t, name := range cardTypeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown card type %q", s)
}

type TransactionType int

const (
	TransactionTypeTransfer TransactionType = iota
	TransactionTypeDeposit
	TransactionTypePurchase
	TransactionTypeRefund
	TransactionTypeInterest
)

var transactionTypeNames = map[TransactionType]string{
	TransactionTypeTransfer: "TRANSFER",
	TransactionTypeDeposit:  "DEPOSIT",
	TransactionTypePurchase: "PURCHASE",
	TransactionTypeRefund:   "REFUND",
	TransactionTypeInterest: "INTEREST",
}

func (t TransactionType) String() string {
	if name, ok := transactionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TransactionType(%d)", int(t))
}

func (t TransactionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TransactionType) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseTransactionType(s string) (TransactionType, error) {
	for t, name := range transactionTypeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction type %q", s)
}

// TransactionStatus moves Pending -> Approved at creation and Approved -> Refunded at most once.
type TransactionStatus int

const (
	StatusPending TransactionStatus = iota
	StatusApproved
	StatusRefunded
)

var statusNames = map[TransactionStatus]string{
	StatusPending:  "PENDING",
	StatusApproved: "APPROVED",
	StatusRefunded: "REFUNDED",
}

func (s TransactionStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TransactionStatus(%d)", int(s))
}

func (s TransactionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TransactionStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseTransactionStatus(s string) (TransactionStatus, error) {
	for st, name := range statusNames {
		if strings.EqualFold(name, s) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction status %q", s)
}

// CanTransitionTo reports whether the record state machine allows moving from s to next.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved
	case StatusApproved:
		return next == StatusRefunded
	}
	return false
}

type AuthorizationResult int

const (
	Unauthorized AuthorizationResult = iota
	Authorized
)

func (r AuthorizationResult) String() string {
	if r == Authorized {
		return "AUTHORIZED"
	}
	return "UNAUTHORIZED"
}
