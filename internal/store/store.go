package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Capabilities describes which optional schema features this EQEmu
// database carries. Detected once at startup and carried explicitly by
// the Store instead of being re-probed at call sites.
type Capabilities struct {
	HasCurrencyTable    bool // character_currency vs currency columns on character_data
	HasParcelAugments   bool // augslot1..6 columns on character_parcels
	HasParcelSlotID     bool // slot_id column on character_parcels
	HasAltCurrencyTable bool // character_currency_alternate
}

type Store struct {
	db   *sqlx.DB
	caps Capabilities
}

// NewStore connects to the game database and probes schema capabilities.
func NewStore(dsn string) (*Store, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.detectCapabilities(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to detect schema capabilities: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Capabilities returns the detected schema capabilities.
func (s *Store) Capabilities() Capabilities {
	return s.caps
}

// WithTx runs fn inside a single database transaction. The transaction
// is rolled back on any error or panic, so callers never observe
// partial settlement state.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) detectCapabilities(ctx context.Context) error {
	var err error
	if s.caps.HasCurrencyTable, err = s.tableExists(ctx, "character_currency"); err != nil {
		return err
	}
	if s.caps.HasAltCurrencyTable, err = s.tableExists(ctx, "character_currency_alternate"); err != nil {
		return err
	}
	if s.caps.HasParcelAugments, err = s.columnExists(ctx, "character_parcels", "augslot1"); err != nil {
		return err
	}
	if s.caps.HasParcelSlotID, err = s.columnExists(ctx, "character_parcels", "slot_id"); err != nil {
		return err
	}
	return nil
}

func (s *Store) tableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM information_schema.TABLES
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		)`, table)
	return exists, err
}

func (s *Store) columnExists(ctx context.Context, table, column string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM information_schema.COLUMNS
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?
		)`, table, column)
	return exists, err
}

// isMissingTable reports whether err is MySQL error 1146 (table does
// not exist), used to distinguish a setup problem from a runtime one.
func isMissingTable(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1146
}
