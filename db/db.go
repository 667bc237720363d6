// Package db persists re-encrypted validator keys in a shared Postgres
// table. An import run is a full resync: ReplaceKeys drops and recreates the
// table inside one transaction, so readers observe either the previous record
// set or the complete new one, never a mix.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "db")

// DefaultTableName for storing keys.
const DefaultTableName = "keys"

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Record is one persisted key row. The private key is encrypted and base64
// encoded; the nonce is base64 encoded.
type Record struct {
	PublicKey           string
	EncryptedPrivateKey string
	Nonce               string
	ValidatorIndex      int
	FeeRecipient        string // empty when the row has no fee recipient
}

// Database wraps the sql connection and the configured table name.
type Database struct {
	db    *sql.DB
	table string

	mu              sync.Mutex
	feeColumnProbed bool
	hasFeeColumn    bool
}

// Open validates the table name, opens a Postgres connection and verifies
// connectivity. Storage errors are surfaced as-is; the operator re-runs the
// command after fixing them.
func Open(ctx context.Context, dbURL, tableName string) (*Database, error) {
	if dbURL == "" {
		return nil, errors.New("missing database connection address")
	}
	if !tableNamePattern.MatchString(tableName) {
		return nil, errors.Errorf("invalid table name %q", tableName)
	}
	sqlDB, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, errors.Wrap(err, "could not open database connection")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			log.WithError(closeErr).Debug("Could not close database connection")
		}
		return nil, errors.Wrap(err, "could not connect to the database server with the provided URL")
	}
	return &Database{db: sqlDB, table: tableName}, nil
}

// Close releases the underlying connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// ReplaceKeys atomically discards all previously stored records and stores
// the given set. Any key absent from records disappears from the store once
// the transaction commits.
func (d *Database) ReplaceKeys(ctx context.Context, records []Record) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				log.WithError(rbErr).Error("Could not roll back key replacement")
			}
		}
	}()

	quoted := pq.QuoteIdentifier(d.table)
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoted)); err != nil {
		return errors.Wrap(err, "could not drop previous keys table")
	}
	createStmt := fmt.Sprintf(`CREATE TABLE %s (
		public_key TEXT UNIQUE NOT NULL,
		private_key TEXT UNIQUE NOT NULL,
		nonce TEXT NOT NULL,
		validator_index INTEGER NOT NULL,
		fee_recipient TEXT)`, quoted)
	if _, err = tx.ExecContext(ctx, createStmt); err != nil {
		return errors.Wrap(err, "could not create keys table")
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(d.table,
		"public_key", "private_key", "nonce", "validator_index", "fee_recipient"))
	if err != nil {
		return errors.Wrap(err, "could not prepare bulk insert")
	}
	for _, r := range records {
		if _, err = stmt.ExecContext(ctx,
			r.PublicKey, r.EncryptedPrivateKey, r.Nonce, r.ValidatorIndex, nullable(r.FeeRecipient),
		); err != nil {
			return errors.Wrapf(err, "could not insert key %s", r.PublicKey)
		}
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		return errors.Wrap(err, "could not flush bulk insert")
	}
	if err = stmt.Close(); err != nil {
		return errors.Wrap(err, "could not close bulk insert statement")
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "could not commit key replacement")
	}

	d.mu.Lock()
	d.feeColumnProbed = false
	d.mu.Unlock()

	log.WithField("keys", len(records)).Debug("Replaced database records")
	return nil
}

// Keys returns every stored record.
func (d *Database) Keys(ctx context.Context) ([]Record, error) {
	return d.fetch(ctx, -1)
}

// KeysByShard returns the records whose validator index matches index.
func (d *Database) KeysByShard(ctx context.Context, index int) ([]Record, error) {
	if index < 0 {
		return nil, errors.Errorf("validator index must be non-negative, got %d", index)
	}
	return d.fetch(ctx, index)
}

func (d *Database) fetch(ctx context.Context, shard int) ([]Record, error) {
	hasFee, err := d.hasFeeRecipientColumn(ctx)
	if err != nil {
		return nil, err
	}

	quoted := pq.QuoteIdentifier(d.table)
	var query string
	if hasFee {
		query = fmt.Sprintf(
			"SELECT public_key, private_key, nonce, validator_index, fee_recipient FROM %s", quoted)
	} else {
		// Older deployments predate the fee_recipient column; degrade to an
		// empty recipient rather than failing.
		query = fmt.Sprintf(
			"SELECT public_key, private_key, nonce, validator_index, NULL AS fee_recipient FROM %s", quoted)
	}
	args := []interface{}{}
	if shard >= 0 {
		query += " WHERE validator_index = $1"
		args = append(args, shard)
	}
	query += " ORDER BY public_key"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch keys")
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.WithError(err).Debug("Could not close rows")
		}
	}()

	var records []Record
	for rows.Next() {
		var r Record
		var feeRecipient sql.NullString
		if err := rows.Scan(&r.PublicKey, &r.EncryptedPrivateKey, &r.Nonce, &r.ValidatorIndex, &feeRecipient); err != nil {
			return nil, errors.Wrap(err, "could not scan key record")
		}
		if feeRecipient.Valid {
			r.FeeRecipient = feeRecipient.String
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "could not iterate key records")
	}
	return records, nil
}

// hasFeeRecipientColumn probes the schema once and caches the answer. The
// probe is repeated after ReplaceKeys recreates the table.
func (d *Database) hasFeeRecipientColumn(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.feeColumnProbed {
		return d.hasFeeColumn, nil
	}
	row := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM information_schema.columns
		WHERE table_schema = current_schema()
			AND table_name = $1 AND column_name = 'fee_recipient'`, d.table)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, errors.Wrap(err, "could not probe schema for fee_recipient column")
	}
	d.feeColumnProbed = true
	d.hasFeeColumn = count > 0
	return d.hasFeeColumn, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
