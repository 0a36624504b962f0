package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	balancedomain "github.com/smallbiznis/tradebook/internal/balance/domain"
	catalogdomain "github.com/smallbiznis/tradebook/internal/catalog/domain"
	counterpartydomain "github.com/smallbiznis/tradebook/internal/counterparty/domain"
	cutoffdomain "github.com/smallbiznis/tradebook/internal/cutoff/domain"
	"github.com/smallbiznis/tradebook/internal/events"
	ledgerdomain "github.com/smallbiznis/tradebook/internal/ledger/domain"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	paymentdomain "github.com/smallbiznis/tradebook/internal/payment/domain"
	seqdomain "github.com/smallbiznis/tradebook/internal/sequence/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres schema.
func RunMigrations(db *sql.DB) error {
	migrator, err := newMigrator(db)
	if err != nil {
		return err
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Rollback reverts the last applied step.
func Rollback(db *sql.DB) error {
	migrator, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := migrator.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	if db == nil {
		return nil, errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}

// Models lists every persisted type, in dependency order.
func Models() []any {
	return []any{
		&seqdomain.Counter{},
		&cutoffdomain.Window{},
		&cutoffdomain.Event{},
		&counterpartydomain.Counterparty{},
		&catalogdomain.Product{},
		&orderdomain.Order{},
		&orderdomain.Line{},
		&balancedomain.AccountBalance{},
		&ledgerdomain.Ledger{},
		&ledgerdomain.Line{},
		&paymentdomain.Payment{},
		&events.Record{},
	}
}

// AutoMigrate builds the schema from the models for sqlite and mysql,
// which the embedded SQL does not target.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
