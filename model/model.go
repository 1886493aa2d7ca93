package model

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places amounts computed by the engine are rounded to.
const MoneyScale int32 = 2

var errInvalidLength = errors.New("length must be positive")

// GenerateUUIDWithSuffix generates a UUID with a given module name as a suffix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// GenerateCertificate returns a URL-safe random string of exactly length characters
// drawn from a cryptographically secure source.
func GenerateCertificate(length int) (string, error) {
	if length <= 0 {
		return "", errInvalidLength
	}
	// every 3 random bytes encode to 4 characters
	buf := make([]byte, (length*3+3)/4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:length], nil
}

// GenerateCardNumber returns a numeric string of exactly length digits.
func GenerateCardNumber(length int) (string, error) {
	if length <= 0 {
		return "", errInvalidLength
	}
	var sb strings.Builder
	sb.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

// RoundMoney rounds an amount half away from zero to MoneyScale places.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyScale)
}
