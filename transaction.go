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

package bankcore

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vaultline/bankcore/internal/apierror"
	"github.com/vaultline/bankcore/model"
)

// InitiateTransaction charges the card's account and pays every vendor line in
// one commit. It returns one certificate per line, in line order.
func (b *Bankcore) InitiateTransaction(ctx context.Context, req model.PurchaseRequest) ([]string, error) {
	ctx, span := tracer.Start(ctx, "InitiateTransaction")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, logAndRecordError(span, "invalid purchase request", invalidInput("invalid purchase request", err))
	}

	card, err := b.datasource.GetCardByNumber(ctx, req.CardNumber)
	if err != nil {
		return nil, logAndRecordError(span, "card lookup failed", err)
	}

	// nothing about the account is revealed to a caller who fails the card check
	now := b.now()
	if Authorize(card, req.KeyPIN, now) != model.Authorized {
		return nil, logAndRecordError(span, "card declined", apierror.NewAPIError(apierror.ErrUnauthorized, "card declined", nil))
	}

	payer, err := b.datasource.GetAccountByID(ctx, card.AssociatedAccount)
	if err != nil {
		return nil, logAndRecordError(span, "payer lookup failed", err)
	}
	if !payer.Active {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("account %d is not active", payer.AccountID), nil)
	}

	// resolve every vendor before anything is written
	vendors := make([]*model.Account, len(req.Lines))
	total := decimal.Zero
	for i, line := range req.Lines {
		vendor, err := b.datasource.GetAccountByAlias(ctx, line.VendorAlias)
		if err != nil {
			return nil, logAndRecordError(span, "vendor lookup failed", err)
		}
		vendors[i] = vendor
		total = total.Add(line.Amount)
	}

	if payer.Balance.LessThan(total) {
		return nil, apierror.NewAPIError(apierror.ErrInsufficientFunds, "insufficient funds", nil)
	}

	certs, err := b.certificates(len(req.Lines))
	if err != nil {
		return nil, logAndRecordError(span, "certificate generation failed", err)
	}

	c := &model.Commit{}
	c.Debit(payer.AccountID, total)
	for i, line := range req.Lines {
		c.Credit(vendors[i].AccountID, line.Amount)
		c.AddRecord(&model.TransactionRecord{
			Sender:          payer.AccountID,
			Recipient:       vendors[i].AccountID,
			Amount:          line.Amount,
			Certificate:     certs[i],
			TransactionType: model.TransactionTypePurchase,
			Status:          model.StatusApproved,
			Description:     "Purchase at " + line.VendorAlias,
			TimeExecuted:    now,
		})
	}

	if err := b.datasource.Commit(ctx, c); err != nil {
		return nil, logAndRecordError(span, "purchase commit failed", err)
	}

	span.SetAttributes(attribute.Int64("payer.id", payer.AccountID), attribute.Int("lines", len(req.Lines)))
	logrus.WithFields(logrus.Fields{
		"payer":  payer.AccountID,
		"lines":  len(req.Lines),
		"amount": total.String(),
	}).Info("purchase approved")
	return certs, nil
}

// InitiateRefund reverses purchases by certificate, fully or partially. Every
// line commits together and each purchase can be refunded once.
func (b *Bankcore) InitiateRefund(ctx context.Context, req model.RefundRequest) error {
	ctx, span := tracer.Start(ctx, "InitiateRefund")
	defer span.End()

	if err := req.Validate(); err != nil {
		return logAndRecordError(span, "invalid refund request", invalidInput("invalid refund request", err))
	}

	certs, err := b.certificates(len(req.Certificates))
	if err != nil {
		return logAndRecordError(span, "certificate generation failed", err)
	}

	now := b.now()
	c := &model.Commit{}
	for i, certificate := range req.Certificates {
		original, err := b.datasource.GetTransactionByCertificate(ctx, certificate)
		if err != nil {
			return logAndRecordError(span, "purchase lookup failed", err)
		}
		if err := b.checkRefundable(ctx, original, req.RequestingAlias, req.Amounts[i]); err != nil {
			return logAndRecordError(span, "refund rejected", err)
		}

		amount := req.Amounts[i]
		c.Credit(original.Sender, amount)
		c.Debit(original.Recipient, amount)
		c.StatusUpdates = append(c.StatusUpdates, model.StatusUpdate{
			TransactionID: original.TransactionID,
			From:          model.StatusApproved,
			To:            model.StatusRefunded,
		})
		c.AddRecord(&model.TransactionRecord{
			Sender:          original.Recipient,
			Recipient:       original.Sender,
			Amount:          amount,
			Certificate:     certs[i],
			TransactionType: model.TransactionTypeRefund,
			Status:          model.StatusApproved,
			Description:     "Refund of " + certificate,
			TimeExecuted:    now,
		})
	}

	if err := b.datasource.Commit(ctx, c); err != nil {
		return logAndRecordError(span, "refund commit failed", err)
	}

	logrus.WithFields(logrus.Fields{
		"requested_by": req.RequestingAlias,
		"lines":        len(req.Certificates),
	}).Info("refund approved")
	return nil
}

func (b *Bankcore) checkRefundable(ctx context.Context, original *model.TransactionRecord, requestingAlias string, amount decimal.Decimal) error {
	if original.TransactionType != model.TransactionTypePurchase {
		return invalidInput(fmt.Sprintf("certificate %s is not a purchase", original.Certificate), nil)
	}
	if original.Status == model.StatusRefunded {
		return invalidInput(fmt.Sprintf("certificate %s is already refunded", original.Certificate), nil)
	}
	if !original.Status.CanTransitionTo(model.StatusRefunded) {
		return invalidInput(fmt.Sprintf("certificate %s cannot be refunded from status %s", original.Certificate, original.Status), nil)
	}

	sender, err := b.datasource.GetAccountByID(ctx, original.Sender)
	if err != nil {
		return err
	}
	owner, err := b.datasource.GetHolderByID(ctx, sender.Holder)
	if err != nil {
		return err
	}
	if owner.Alias == "" || owner.Alias != requestingAlias {
		return apierror.NewAPIError(apierror.ErrUnauthorized, "refund not permitted for this alias", nil)
	}

	if amount.GreaterThan(original.Amount) {
		return invalidInput(fmt.Sprintf("refund of %s exceeds original amount %s", amount, original.Amount), nil)
	}

	recipient, err := b.datasource.GetAccountByID(ctx, original.Recipient)
	if err != nil {
		return err
	}
	if !sender.Active || !recipient.Active {
		return invalidInput(fmt.Sprintf("certificate %s belongs to a closed account", original.Certificate), nil)
	}
	return nil
}

// TransferFunds moves amount between two distinct active accounts.
func (b *Bankcore) TransferFunds(ctx context.Context, req model.TransferRequest) (*model.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "TransferFunds")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, logAndRecordError(span, "invalid transfer request", invalidInput("invalid transfer request", err))
	}

	source, err := b.datasource.GetAccountByID(ctx, req.Source)
	if err != nil {
		return nil, logAndRecordError(span, "source lookup failed", err)
	}
	destination, err := b.datasource.GetAccountByID(ctx, req.Destination)
	if err != nil {
		return nil, logAndRecordError(span, "destination lookup failed", err)
	}
	if !source.Active || !destination.Active {
		return nil, invalidInput("source and destination accounts must be active", nil)
	}
	if source.Balance.LessThan(req.Amount) {
		return nil, apierror.NewAPIError(apierror.ErrInsufficientFunds, "insufficient funds", nil)
	}

	record := &model.TransactionRecord{
		Sender:          source.AccountID,
		Recipient:       destination.AccountID,
		Amount:          req.Amount,
		TransactionType: model.TransactionTypeTransfer,
		Status:          model.StatusApproved,
		Description:     req.Description,
		TimeExecuted:    b.now(),
	}

	c := &model.Commit{}
	c.Debit(source.AccountID, req.Amount)
	c.Credit(destination.AccountID, req.Amount)
	c.AddRecord(record)

	if err := b.datasource.Commit(ctx, c); err != nil {
		return nil, logAndRecordError(span, "transfer commit failed", err)
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": record.TransactionID,
		"source":         source.AccountID,
		"destination":    destination.AccountID,
		"amount":         req.Amount.String(),
	}).Info("transfer approved")
	return record, nil
}

// AddFunds credits an active account with a self-referencing Deposit record.
func (b *Bankcore) AddFunds(ctx context.Context, req model.DepositRequest) (*model.TransactionRecord, error) {
	ctx, span := tracer.Start(ctx, "AddFunds")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, logAndRecordError(span, "invalid deposit request", invalidInput("invalid deposit request", err))
	}

	account, err := b.datasource.GetAccountByID(ctx, req.AccountID)
	if err != nil {
		return nil, logAndRecordError(span, "account lookup failed", err)
	}
	if !account.Active {
		return nil, invalidInput("account is inactive", nil)
	}

	record := &model.TransactionRecord{
		Sender:          account.AccountID,
		Recipient:       account.AccountID,
		Amount:          req.Amount,
		TransactionType: model.TransactionTypeDeposit,
		Status:          model.StatusApproved,
		Description:     req.Description,
		TimeExecuted:    b.now(),
	}

	c := &model.Commit{}
	c.Credit(account.AccountID, req.Amount)
	c.AddRecord(record)

	if err := b.datasource.Commit(ctx, c); err != nil {
		return nil, logAndRecordError(span, "deposit commit failed", err)
	}
	return record, nil
}

func (b *Bankcore) GetTransaction(ctx context.Context, transactionID int64) (*model.TransactionRecord, error) {
	return b.datasource.GetTransactionByID(ctx, transactionID)
}

// GetTransactionHistory lists every record the account sent or received, newest first.
func (b *Bankcore) GetTransactionHistory(ctx context.Context, accountID int64) ([]*model.TransactionRecord, error) {
	if _, err := b.datasource.GetAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	return b.datasource.GetTransactionsByAccount(ctx, accountID)
}
