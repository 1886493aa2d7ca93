package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord is immutable once written except for Status.
type TransactionRecord struct {
	TransactionID   int64             `json:"transaction_id"`
	Sender          int64             `json:"sender"`
	Recipient       int64             `json:"recipient"`
	Amount          decimal.Decimal   `json:"amount"`
	Certificate     string            `json:"certificate,omitempty"`
	TransactionType TransactionType   `json:"transaction_type"`
	Status          TransactionStatus `json:"status"`
	Description     string            `json:"description,omitempty"`
	TimeExecuted    time.Time         `json:"time_executed"`
}

func (record *TransactionRecord) ToJSON() ([]byte, error) {
	return json.Marshal(record)
}

// Involves reports whether accountID is the sender or the recipient.
func (record *TransactionRecord) Involves(accountID int64) bool {
	return record.Sender == accountID || record.Recipient == accountID
}
