package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/bankcore/config"
	"github.com/vaultline/bankcore/internal/apierror"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apierror.ErrorCode
	}{
		{name: "unique", err: &pq.Error{Code: "23505"}, want: apierror.ErrConflict},
		{name: "serialization", err: &pq.Error{Code: "40001"}, want: apierror.ErrConflict},
		{name: "deadlock", err: &pq.Error{Code: "40P01"}, want: apierror.ErrConflict},
		{name: "lock timeout", err: &pq.Error{Code: "55P03"}, want: apierror.ErrConflict},
		{name: "foreign key", err: &pq.Error{Code: "23503"}, want: apierror.ErrNotFound},
		{name: "balance check", err: &pq.Error{Code: "23514", Constraint: "accounts_balance_check"}, want: apierror.ErrInsufficientFunds},
		{name: "other check", err: &pq.Error{Code: "23514", Constraint: "transactions_amount_check"}, want: apierror.ErrInvalidInput},
		{name: "deadline", err: fmt.Errorf("exec: %w", context.DeadlineExceeded), want: apierror.ErrTimeout},
		{name: "unknown", err: errors.New("connection refused"), want: apierror.ErrInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "op")
			assert.Equal(t, tt.want, apierror.CodeOf(got))
		})
	}

	classified := apierror.NewAPIError(apierror.ErrUnauthorized, "nope", nil)
	assert.Equal(t, classified, mapError(classified, "op"))
	assert.NoError(t, mapError(nil, "op"))
}

func TestNewDataSource_Memory(t *testing.T) {
	cfg := config.Defaults()
	ds, err := NewDataSource(cfg, nil)
	require.NoError(t, err)

	mem, ok := ds.(*MemoryDatasource)
	require.True(t, ok)
	assert.Equal(t, cfg.Ledger.CommitTimeout(), mem.CommitTimeout)
}
