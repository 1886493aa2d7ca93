package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/vaultline/bankcore/config"
	"github.com/vaultline/bankcore/internal/apierror"
	"github.com/vaultline/bankcore/internal/cache"
)

// Declare a package-level variable to hold the singleton instance.
var instance *Datasource
var once sync.Once

const aliasCacheTTL = 10 * time.Minute

type Datasource struct {
	Conn          *sql.DB
	Cache         cache.Cache
	CommitTimeout time.Duration
}

// NewDataSource returns the store selected by the configured data source.
// The alias cache is attached when c is non-nil.
func NewDataSource(configuration *config.Configuration, c cache.Cache) (IDataSource, error) {
	if configuration.UsesMemoryStore() {
		mem := NewMemoryDatasource()
		mem.CommitTimeout = configuration.Ledger.CommitTimeout()
		return mem, nil
	}
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	con.Cache = c
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, CommitTimeout: configuration.Ledger.CommitTimeout()}
	})
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, errors.New("database connection failed to initialize")
	}
	return instance, nil
}

// ConnectDB opens and pings the Postgres database. The schema is managed by migrations.
func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error: %v", err)
		return nil, err
	}
	return db, nil
}

func (d Datasource) commitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.CommitTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.CommitTimeout)
}

func aliasCacheKey(alias string) string {
	return fmt.Sprintf("holder_alias:%s", alias)
}

// mapError classifies a driver error into the apierror taxonomy. Errors that
// are already classified pass through unchanged.
func mapError(err error, message string) error {
	if err == nil {
		return nil
	}
	var apiErr apierror.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apierror.NewAPIError(apierror.ErrTimeout, message+": store timeout elapsed", err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return apierror.NewAPIError(apierror.ErrConflict, message+": duplicate key", err)
		case "serialization_failure", "deadlock_detected", "lock_not_available":
			return apierror.NewAPIError(apierror.ErrConflict, message+": concurrent update", err)
		case "foreign_key_violation":
			return apierror.NewAPIError(apierror.ErrNotFound, message+": referenced row not found", err)
		case "check_violation":
			if pqErr.Constraint == "accounts_balance_check" {
				return apierror.NewAPIError(apierror.ErrInsufficientFunds, message+": balance would become negative", err)
			}
			return apierror.NewAPIError(apierror.ErrInvalidInput, message+": constraint violated", err)
		}
	}
	return apierror.NewAPIError(apierror.ErrInternalServer, message, err)
}

func notFound(kind string, key interface{}) error {
	return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("%s with ID '%v' not found", kind, key), nil)
}
