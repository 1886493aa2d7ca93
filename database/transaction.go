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
	"database/sql"
	"errors"
	"time"

	"github.com/vaultline/bankcore/internal/apierror"
	"github.com/vaultline/bankcore/model"
)

const transactionColumns = `transaction_id, sender, recipient, amount, certificate, transaction_type, status, description, time_executed`

func (d Datasource) GetTransactionByID(ctx context.Context, id int64) (*model.TransactionRecord, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM bankcore.transactions
		WHERE transaction_id = $1
	`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("transaction", id)
	}
	if err != nil {
		return nil, mapError(err, "Failed to retrieve transaction")
	}
	return record, nil
}

func (d Datasource) GetTransactionByCertificate(ctx context.Context, certificate string) (*model.TransactionRecord, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM bankcore.transactions
		WHERE certificate = $1
	`, certificate)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "No transaction with certificate '"+certificate+"'", nil)
	}
	if err != nil {
		return nil, mapError(err, "Failed to retrieve transaction")
	}
	return record, nil
}

func (d Datasource) GetTransactionsByAccount(ctx context.Context, accountID int64) ([]*model.TransactionRecord, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM bankcore.transactions
		WHERE sender = $1 OR recipient = $1
		ORDER BY time_executed DESC, transaction_id DESC
	`, accountID)
	if err != nil {
		return nil, mapError(err, "Failed to retrieve transactions")
	}
	defer rows.Close()

	var records []*model.TransactionRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, mapError(err, "Failed to scan transaction")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "Failed to retrieve transactions")
	}
	return records, nil
}

func (d Datasource) LastInterestAccruedAt(ctx context.Context) (time.Time, error) {
	var last sql.NullTime
	err := d.Conn.QueryRowContext(ctx, `
		SELECT MAX(time_executed) FROM bankcore.transactions WHERE transaction_type = $1
	`, model.TransactionTypeInterest).Scan(&last)
	if err != nil {
		return time.Time{}, mapError(err, "Failed to read interest history")
	}
	return last.Time, nil
}

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// insertRecord writes one record and returns its generated ID without touching the record.
func insertRecord(ctx context.Context, q execQuerier, record *model.TransactionRecord) (int64, error) {
	var certificate, description sql.NullString
	if record.Certificate != "" {
		certificate = sql.NullString{String: record.Certificate, Valid: true}
	}
	if record.Description != "" {
		description = sql.NullString{String: record.Description, Valid: true}
	}

	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO bankcore.transactions (sender, recipient, amount, certificate, transaction_type, status, description, time_executed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING transaction_id
	`, record.Sender, record.Recipient, record.Amount, certificate, record.TransactionType, record.Status, description, record.TimeExecuted).Scan(&id)
	if err != nil {
		return 0, mapError(err, "Failed to record transaction")
	}
	return id, nil
}

func scanRecord(row rowScanner) (*model.TransactionRecord, error) {
	record := &model.TransactionRecord{}
	var certificate, description sql.NullString
	err := row.Scan(&record.TransactionID, &record.Sender, &record.Recipient, &record.Amount, &certificate,
		&record.TransactionType, &record.Status, &description, &record.TimeExecuted)
	if err != nil {
		return nil, err
	}
	record.Certificate = certificate.String
	record.Description = description.String
	return record, nil
}
