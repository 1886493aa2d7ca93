package bankcore

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vaultline/bankcore/internal/apierror"
	"github.com/vaultline/bankcore/internal/notification"
	"github.com/vaultline/bankcore/model"
)

// Authorize is a pure predicate over the card. An inactive or expired card, or
// a PIN mismatch, is Unauthorized. It grants nothing: callers still check funds.
func Authorize(card *model.Card, suppliedPIN string, now time.Time) model.AuthorizationResult {
	if card == nil || !card.Usable(now) {
		return model.Unauthorized
	}
	if !card.PINMatches(suppliedPIN) {
		return model.Unauthorized
	}
	return model.Authorized
}

// VerifyCard resolves a card by number and checks it against the PIN.
func (b *Bankcore) VerifyCard(ctx context.Context, cardNumber, pin string) (*model.Card, error) {
	ctx, span := tracer.Start(ctx, "VerifyCard")
	defer span.End()

	card, err := b.datasource.GetCardByNumber(ctx, cardNumber)
	if err != nil {
		return nil, logAndRecordError(span, "card lookup failed", err)
	}
	if Authorize(card, pin, b.now()) != model.Authorized {
		return nil, apierror.NewAPIError(apierror.ErrUnauthorized, "card declined", nil)
	}
	return card, nil
}

// CreateCard issues a card for an active account. Card numbers are random and
// regenerated on collision.
func (b *Bankcore) CreateCard(ctx context.Context, req model.CreateCardRequest) (*model.Card, error) {
	ctx, span := tracer.Start(ctx, "CreateCard")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, logAndRecordError(span, "invalid card request", invalidInput("invalid card request", err))
	}
	lifecycle := b.config.Lifecycle
	if len(req.KeyPIN) != lifecycle.PinLength {
		return nil, invalidInput(fmt.Sprintf("PIN must be exactly %d digits", lifecycle.PinLength), nil)
	}

	account, err := b.datasource.GetAccountByID(ctx, req.AccountID)
	if err != nil {
		return nil, logAndRecordError(span, "account lookup failed", err)
	}
	if !account.Active {
		return nil, invalidInput("account is inactive", nil)
	}

	now := b.now()
	last, err := b.datasource.LastCardIssuedAt(ctx, account.Holder)
	if err != nil {
		return nil, logAndRecordError(span, "card cooldown lookup failed", err)
	}
	if err := checkCooldown("card", last, now, lifecycle.CreationCooldown()); err != nil {
		return nil, err
	}

	pinHash, err := model.HashPIN(req.KeyPIN, b.pinHashCost)
	if err != nil {
		return nil, logAndRecordError(span, "PIN hashing failed", apierror.NewAPIError(apierror.ErrInternalServer, "failed to hash PIN", err))
	}

	card := &model.Card{
		CardType:          req.CardType,
		KeyPIN:            pinHash,
		AssociatedAccount: account.AccountID,
		IssueDate:         now,
		ExpireDate:        now.AddDate(0, lifecycle.CardValidityMonths, 0),
		Active:            true,
	}

	for attempt := 1; attempt <= lifecycle.MaxCardNumberAttempts; attempt++ {
		number, err := b.newCardNumber()
		if err != nil {
			return nil, logAndRecordError(span, "card number generation failed", apierror.NewAPIError(apierror.ErrInternalServer, "failed to generate card number", err))
		}

		exists, err := b.datasource.CardNumberExists(ctx, number)
		if err != nil {
			return nil, logAndRecordError(span, "card number lookup failed", err)
		}
		if exists {
			span.AddEvent("card number collision")
			continue
		}

		card.CardNumber = number
		created, err := b.datasource.CreateCard(ctx, card)
		if apierror.Is(err, apierror.ErrConflict) {
			// taken between the check and the insert
			continue
		}
		if err != nil {
			return nil, logAndRecordError(span, "card insert failed", err)
		}

		span.SetAttributes(attribute.Int64("card.id", created.CardID))
		logrus.WithFields(logrus.Fields{"card_id": created.CardID, "account_id": account.AccountID}).Info("card issued")
		return created, nil
	}

	return nil, logAndRecordError(span, "card number space exhausted",
		apierror.NewAPIError(apierror.ErrInternalServer, "could not generate a unique card number", nil))
}

// RemoveCard deletes the card. Records reference accounts, never cards.
func (b *Bankcore) RemoveCard(ctx context.Context, cardID int64) error {
	ctx, span := tracer.Start(ctx, "RemoveCard")
	defer span.End()

	if err := b.datasource.DeleteCard(ctx, cardID); err != nil {
		return logAndRecordError(span, "card removal failed", err)
	}
	logrus.WithField("card_id", cardID).Info("card removed")
	return nil
}

func (b *Bankcore) GetCardsByAccount(ctx context.Context, accountID int64) ([]*model.Card, error) {
	if _, err := b.datasource.GetAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	return b.datasource.GetCardsByAccount(ctx, accountID)
}

// ExpireCards deactivates every active card whose expiry is at or before now,
// in one commit. Running it again with the same now changes nothing.
func (b *Bankcore) ExpireCards(ctx context.Context, now time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "ExpireCards")
	defer span.End()

	due, err := b.datasource.GetActiveExpiredCards(ctx, now)
	if err != nil {
		notification.NotifyError(err)
		return 0, logAndRecordError(span, "expired card lookup failed", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	c := &model.Commit{CardDeactivations: make([]int64, 0, len(due))}
	for _, card := range due {
		c.CardDeactivations = append(c.CardDeactivations, card.CardID)
	}

	if err := b.datasource.Commit(ctx, c); err != nil {
		notification.NotifyError(fmt.Errorf("card expiry sweep failed: %w", err))
		return 0, logAndRecordError(span, "card expiry commit failed", err)
	}

	span.SetAttributes(attribute.Int("cards.expired", len(due)))
	logrus.WithField("count", len(due)).Info("expired cards deactivated")
	return len(due), nil
}
