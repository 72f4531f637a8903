package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS address_book (
        seq        BIGSERIAL PRIMARY KEY,
        address    TEXT NOT NULL UNIQUE,
        added_at   TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS address_state (
        key   TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );
    CREATE TABLE IF NOT EXISTS reward_alerts (
        id         BIGSERIAL PRIMARY KEY,
        address    TEXT NOT NULL,
        chain      TEXT NOT NULL,
        rewards    NUMERIC NOT NULL,
        threshold  NUMERIC NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	selectCurrentSQL = `SELECT value FROM address_state WHERE key = 'current';`

	upsertCurrentSQL = `INSERT INTO address_state (key, value) VALUES ('current', $1)
    ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value;`

	clearCurrentSQL = `DELETE FROM address_state WHERE key = 'current';`

	clearCurrentIfSQL = `DELETE FROM address_state WHERE key = 'current' AND value = $1;`

	insertAddressSQL = `INSERT INTO address_book (address) VALUES ($1)
    ON CONFLICT (address) DO NOTHING;`

	trimAddressesSQL = `DELETE FROM address_book
    WHERE seq NOT IN (
        SELECT seq FROM address_book ORDER BY seq DESC LIMIT $1
    );`

	listAddressesSQL = `SELECT address FROM address_book ORDER BY seq DESC LIMIT $1;`

	deleteAddressSQL = `DELETE FROM address_book WHERE address = $1;`

	deleteAllAddressesSQL = `DELETE FROM address_book;`

	insertAlertSQL = `INSERT INTO reward_alerts (
        address,
        chain,
        rewards,
        threshold
    ) VALUES (
        $1,$2,$3,$4
    )
    RETURNING id, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        address,
        chain,
        rewards::TEXT,
        threshold::TEXT,
        created_at
    FROM reward_alerts
    ORDER BY id DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store is the PostgreSQL Backend.
type Store struct {
	pool       *pgxpool.Pool
	maxEntries int
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool, maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{pool: pool, maxEntries: maxEntries}
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort; the lock also goes when the session ends
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// Current implements AddressBook.
func (s *Store) Current(ctx context.Context) (string, error) {
	pool, err := s.getPool()
	if err != nil {
		return "", err
	}
	var current string
	if err := pool.QueryRow(ctx, selectCurrentSQL).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("select current address: %w", err)
	}
	return current, nil
}

// SetCurrent implements AddressBook.
func (s *Store) SetCurrent(ctx context.Context, address string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if address == "" {
		if _, err := pool.Exec(ctx, clearCurrentSQL); err != nil {
			return fmt.Errorf("clear current address: %w", err)
		}
		return nil
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertCurrentSQL, address); err != nil {
			return fmt.Errorf("set current address: %w", err)
		}
		if _, err := tx.Exec(ctx, insertAddressSQL, address); err != nil {
			return fmt.Errorf("insert address: %w", err)
		}
		if _, err := tx.Exec(ctx, trimAddressesSQL, s.maxEntries); err != nil {
			return fmt.Errorf("trim addresses: %w", err)
		}
		return nil
	})
}

// List implements AddressBook.
func (s *Store) List(ctx context.Context) ([]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAddressesSQL, s.maxEntries)
	if queryErr != nil {
		return nil, fmt.Errorf("list addresses: %w", queryErr)
	}
	defer rows.Close()

	list := make([]string, 0, s.maxEntries)
	for rows.Next() {
		var address string
		if err := rows.Scan(&address); err != nil {
			return nil, err
		}
		list = append(list, address)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return list, nil
}

// Remove implements AddressBook.
func (s *Store) Remove(ctx context.Context, address string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteAddressSQL, address); err != nil {
			return fmt.Errorf("delete address: %w", err)
		}
		if _, err := tx.Exec(ctx, clearCurrentIfSQL, address); err != nil {
			return fmt.Errorf("clear current address: %w", err)
		}
		return nil
	})
}

// Clear implements AddressBook.
func (s *Store) Clear(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteAllAddressesSQL); err != nil {
			return fmt.Errorf("clear addresses: %w", err)
		}
		if _, err := tx.Exec(ctx, clearCurrentSQL); err != nil {
			return fmt.Errorf("clear current address: %w", err)
		}
		return nil
	})
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.Address,
		alert.Chain,
		alert.Rewards.String(),
		alert.Threshold.String(),
	)
	if scanErr := row.Scan(&alert.ID, &alert.CreatedAt); scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return alert, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, max(limit, 0))
	for rows.Next() {
		var rec AlertRecord
		var rewardsStr, thresholdStr string
		if err := rows.Scan(
			&rec.ID,
			&rec.Address,
			&rec.Chain,
			&rewardsStr,
			&thresholdStr,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		rec.Rewards, convErr = decimal.NewFromString(rewardsStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse rewards: %w", convErr)
		}
		rec.Threshold, convErr = decimal.NewFromString(thresholdStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse threshold: %w", convErr)
		}

		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

var (
	_ Backend        = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
