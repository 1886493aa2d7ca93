package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vaultline/bankcore/model"
)

const cardColumns = `card_id, card_type, card_number, key_pin, account_id, issue_date, expire_date, active`

func (d Datasource) CreateCard(ctx context.Context, card *model.Card) (*model.Card, error) {
	err := d.Conn.QueryRowContext(ctx, `
		INSERT INTO bankcore.cards (card_type, card_number, key_pin, account_id, issue_date, expire_date, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING card_id
	`, card.CardType, card.CardNumber, card.KeyPIN, card.AssociatedAccount, card.IssueDate, card.ExpireDate, card.Active).Scan(&card.CardID)
	if err != nil {
		return nil, mapError(err, "Failed to create card")
	}
	return card, nil
}

func (d Datasource) GetCardByID(ctx context.Context, id int64) (*model.Card, error) {
	row := d.Conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM bankcore.cards WHERE card_id = $1`, id)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("card", id)
	}
	if err != nil {
		return nil, mapError(err, "Failed to retrieve card")
	}
	return card, nil
}

func (d Datasource) GetCardByNumber(ctx context.Context, number string) (*model.Card, error) {
	row := d.Conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM bankcore.cards WHERE card_number = $1`, number)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("card", number)
	}
	if err != nil {
		return nil, mapError(err, "Failed to retrieve card")
	}
	return card, nil
}

func (d Datasource) GetCardsByAccount(ctx context.Context, accountID int64) ([]*model.Card, error) {
	return d.queryCards(ctx, `
		SELECT `+cardColumns+`
		FROM bankcore.cards
		WHERE account_id = $1
		ORDER BY card_id ASC
	`, accountID)
}

func (d Datasource) CardNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := d.Conn.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM bankcore.cards WHERE card_number = $1)
	`, number).Scan(&exists)
	if err != nil {
		return false, mapError(err, "Failed to check card number")
	}
	return exists, nil
}

func (d Datasource) LastCardIssuedAt(ctx context.Context, holderID int64) (time.Time, error) {
	var last sql.NullTime
	err := d.Conn.QueryRowContext(ctx, `
		SELECT MAX(c.issue_date)
		FROM bankcore.cards c
		JOIN bankcore.accounts a ON a.account_id = c.account_id
		WHERE a.holder_id = $1
	`, holderID).Scan(&last)
	if err != nil {
		return time.Time{}, mapError(err, "Failed to read card history")
	}
	return last.Time, nil
}

func (d Datasource) GetActiveExpiredCards(ctx context.Context, now time.Time) ([]*model.Card, error) {
	return d.queryCards(ctx, `
		SELECT `+cardColumns+`
		FROM bankcore.cards
		WHERE active = TRUE AND expire_date <= $1
		ORDER BY card_id ASC
	`, now)
}

// DeleteCard hard deletes a card. Deleting a card that does not exist is NOT_FOUND.
func (d Datasource) DeleteCard(ctx context.Context, id int64) error {
	result, err := d.Conn.ExecContext(ctx, `DELETE FROM bankcore.cards WHERE card_id = $1`, id)
	if err != nil {
		return mapError(err, "Failed to delete card")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return mapError(err, "Failed to get rows affected")
	}
	if rowsAffected == 0 {
		return notFound("card", id)
	}
	return nil
}

func (d Datasource) queryCards(ctx context.Context, query string, args ...interface{}) ([]*model.Card, error) {
	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "Failed to retrieve cards")
	}
	defer rows.Close()

	var cards []*model.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, mapError(err, "Failed to scan card")
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "Failed to retrieve cards")
	}
	return cards, nil
}

func scanCard(row rowScanner) (*model.Card, error) {
	card := &model.Card{}
	err := row.Scan(&card.CardID, &card.CardType, &card.CardNumber, &card.KeyPIN,
		&card.AssociatedAccount, &card.IssueDate, &card.ExpireDate, &card.Active)
	if err != nil {
		return nil, err
	}
	return card, nil
}
