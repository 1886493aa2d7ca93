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
package model

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

type VendorLine struct {
	VendorAlias string          `json:"vendor_alias"`
	Amount      decimal.Decimal `json:"amount"`
}

type PurchaseRequest struct {
	CardNumber string       `json:"card_number"`
	KeyPIN     string       `json:"key_pin"`
	Lines      []VendorLine `json:"lines"`
}

type RefundRequest struct {
	Certificates    []string          `json:"certificates"`
	Amounts         []decimal.Decimal `json:"amounts"`
	RequestingAlias string            `json:"requesting_alias"`
}

type TransferRequest struct {
	Source      int64           `json:"source"`
	Destination int64           `json:"destination"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type DepositRequest struct {
	AccountID   int64           `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type CreateAccountRequest struct {
	Holder         int64           `json:"holder_id"`
	AccountType    AccountType     `json:"account_type"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	PermissionKey  string          `json:"permission_key"`
}

type CreateCardRequest struct {
	AccountID int64    `json:"account_id"`
	KeyPIN    string   `json:"key_pin"`
	CardType  CardType `json:"card_type"`
}

func positiveAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal amount")
	}
	if !amount.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
}

func nonNegativeAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal amount")
	}
	if amount.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func knownAccountType(value interface{}) error {
	t, _ := value.(AccountType)
	if _, ok := accountTypeNames[t]; !ok {
		return errors.New("must be CHECKING or SAVINGS")
	}
	return nil
}

func knownCardType(value interface{}) error {
	t, _ := value.(CardType)
	if _, ok := cardTypeNames[t]; !ok {
		return errors.New("must be DEBIT or CREDIT")
	}
	return nil
}

func (l VendorLine) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.VendorAlias, validation.Required),
		validation.Field(&l.Amount, validation.By(positiveAmount)),
	)
}

func (p *PurchaseRequest) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.CardNumber, validation.Required, validation.Match(digitsOnly)),
		validation.Field(&p.KeyPIN, validation.Required),
		validation.Field(&p.Lines, validation.Required),
	)
}

func (r *RefundRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Certificates, validation.Required, validation.Each(validation.Required)),
		validation.Field(&r.Amounts, validation.Required, validation.Each(validation.By(positiveAmount))),
		validation.Field(&r.RequestingAlias, validation.Required),
	)
	if err != nil {
		return err
	}
	if len(r.Certificates) != len(r.Amounts) {
		return errors.New("certificates and amounts must have the same length")
	}
	seen := make(map[string]struct{}, len(r.Certificates))
	for _, c := range r.Certificates {
		if _, dup := seen[c]; dup {
			return errors.New("duplicate certificate " + c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

func (t *TransferRequest) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Source, validation.Required),
		validation.Field(&t.Destination, validation.Required, validation.NotIn(t.Source).Error("must differ from source")),
		validation.Field(&t.Amount, validation.By(positiveAmount)),
	)
}

func (d *DepositRequest) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.AccountID, validation.Required),
		validation.Field(&d.Amount, validation.By(positiveAmount)),
	)
}

func (c *CreateAccountRequest) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Holder, validation.Required),
		validation.Field(&c.AccountType, validation.By(knownAccountType)),
		validation.Field(&c.OpeningBalance, validation.By(nonNegativeAmount)),
	)
}

// Validate checks shape only. The PIN length is enforced by the engine from configuration.
func (c *CreateCardRequest) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AccountID, validation.Required),
		validation.Field(&c.KeyPIN, validation.Required, validation.Match(digitsOnly).Error("must contain digits only")),
		validation.Field(&c.CardType, validation.By(knownCardType)),
	)
}
