package model

import (
	"database/sql/driver"
	"fmt"
)

// Enums are persisted as their text names.

func scanText(src interface{}) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("cannot scan %T into an enum", src)
}

func (t AccountType) Value() (driver.Value, error) { return t.String(), nil }

func (t *AccountType) Scan(src interface{}) error {
	s, err := scanText(src)
	if err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}

func (t CardType) Value() (driver.Value, error) { return t.String(), nil }

func (t *CardType) Scan(src interface{}) error {
	s, err := scanText(src)
	if err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}

func (t TransactionType) Value() (driver.Value, error) { return t.String(), nil }

func (t *TransactionType) Scan(src interface{}) error {
	s, err := scanText(src)
	if err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}

func (s TransactionStatus) Value() (driver.Value, error) { return s.String(), nil }

func (s *TransactionStatus) Scan(src interface{}) error {
	text, err := scanText(src)
	if err != nil {
		return err
	}
	return s.UnmarshalText([]byte(text))
}
