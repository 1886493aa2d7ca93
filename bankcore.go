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

// Package bankcore is the ledger engine. It takes plaintext requests; a
// transport that receives encrypted ones runs them through DecryptPurchase or
// DecryptRefund with its tokenization.Decrypter before calling the engine.
package bankcore

import (
	"embed"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/vaultline/bankcore/config"
	"github.com/vaultline/bankcore/database"
	"github.com/vaultline/bankcore/internal/apierror"
	"github.com/vaultline/bankcore/model"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

var tracer = otel.Tracer("bankcore")

const maxGenerationAttempts = 10

// Bankcore is the transaction engine. It is the only writer of balances and
// every mutating operation reaches the store through a single Commit.
type Bankcore struct {
	datasource     database.IDataSource
	redis          redis.UniversalClient
	config         *config.Configuration
	now            func() time.Time
	newCertificate func() (string, error)
	newCardNumber  func() (string, error)
	pinHashCost    int
}

type Option func(*Bankcore)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Bankcore) { b.now = now }
}

// WithRedis enables the distributed interest sweep lock.
func WithRedis(client redis.UniversalClient) Option {
	return func(b *Bankcore) { b.redis = client }
}

func WithConfig(cfg *config.Configuration) Option {
	return func(b *Bankcore) { b.config = cfg }
}

func WithCertificateGenerator(gen func() (string, error)) Option {
	return func(b *Bankcore) { b.newCertificate = gen }
}

// WithPINHashCost sets the bcrypt cost used for new card PINs.
func WithPINHashCost(cost int) Option {
	return func(b *Bankcore) { b.pinHashCost = cost }
}

func WithCardNumberGenerator(gen func() (string, error)) Option {
	return func(b *Bankcore) { b.newCardNumber = gen }
}

// NewBankcore builds an engine over ds. Without WithConfig the loaded
// configuration is used.
func NewBankcore(ds database.IDataSource, opts ...Option) (*Bankcore, error) {
	if ds == nil {
		return nil, errors.New("datasource is required")
	}

	b := &Bankcore{datasource: ds, now: time.Now, pinHashCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(b)
	}

	if b.config == nil {
		cfg, err := config.Fetch()
		if err != nil {
			return nil, err
		}
		b.config = cfg
	}

	lifecycle := b.config.Lifecycle
	if b.newCertificate == nil {
		b.newCertificate = func() (string, error) { return model.GenerateCertificate(lifecycle.CertificateLength) }
	}
	if b.newCardNumber == nil {
		b.newCardNumber = func() (string, error) { return model.GenerateCardNumber(lifecycle.CardNumberLength) }
	}

	return b, nil
}

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.WithField("code", apierror.CodeOf(err)).Error(msg, ": ", err)
	return err
}

func invalidInput(message string, err error) error {
	return apierror.NewAPIError(apierror.ErrInvalidInput, message, err)
}

// certificates returns n fresh certificates, distinct from each other.
func (b *Bankcore) certificates(n int) ([]string, error) {
	out := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for attempts := 0; len(out) < n; attempts++ {
		if attempts >= n*maxGenerationAttempts {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "could not generate distinct certificates", nil)
		}
		cert, err := b.newCertificate()
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to generate certificate", err)
		}
		if _, dup := seen[cert]; dup {
			continue
		}
		seen[cert] = struct{}{}
		out = append(out, cert)
	}
	return out, nil
}
