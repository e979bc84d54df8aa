package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/petrijr/advisa/pkg/api"
)

// SQLiteStore is a Store backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database and
// returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			thread_id    TEXT    NOT NULL,
			seq          INTEGER NOT NULL,
			state        BLOB    NOT NULL,
			pending_step TEXT    NOT NULL,
			created_at   TEXT    NOT NULL,
			PRIMARY KEY (thread_id, seq)
		);
		CREATE TABLE IF NOT EXISTS leases (
			thread_id  TEXT NOT NULL PRIMARY KEY,
			owner      TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, cp *api.Checkpoint) error {
	state, err := EncodeState(cp.State)
	if err != nil {
		return err
	}

	// The seq check and the insert share one transaction so a crash can
	// never persist a checkpoint out of order or half-written.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var latest sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM checkpoints WHERE thread_id = ?`, cp.ThreadID,
	).Scan(&latest)
	if err != nil {
		return err
	}
	if cp.Seq != latest.Int64+1 {
		return ErrSequenceConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkpoints (thread_id, seq, state, pending_step, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		cp.ThreadID,
		cp.Seq,
		state,
		cp.PendingStep,
		cp.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) Latest(ctx context.Context, threadID string) (*api.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, state, pending_step, created_at
		FROM checkpoints
		WHERE thread_id = ?
		ORDER BY seq DESC
		LIMIT 1`,
		threadID,
	)

	var (
		cp        api.Checkpoint
		state     []byte
		createdAt string
	)
	if err := row.Scan(&cp.Seq, &state, &cp.PendingStep, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}

	cp.ThreadID = threadID

	decoded, err := DecodeState(state)
	if err != nil {
		return nil, err
	}
	cp.State = decoded

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, err
	}
	cp.CreatedAt = ts

	return &cp, nil
}

func (s *SQLiteStore) Threads(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT thread_id FROM checkpoints ORDER BY thread_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) TryAcquireLease(ctx context.Context, threadID, owner string, ttl time.Duration) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	var (
		current string
		expires string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT owner, expires_at FROM leases WHERE thread_id = ?`, threadID,
	).Scan(&current, &expires)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO leases (thread_id, owner, expires_at) VALUES (?, ?, ?)`,
			threadID, owner, now.Add(ttl).Format(time.RFC3339Nano))
		if err != nil {
			return false, err
		}
	case err != nil:
		return false, err
	default:
		exp, perr := time.Parse(time.RFC3339Nano, expires)
		if perr != nil {
			return false, perr
		}
		if current != owner && now.Before(exp) {
			return false, nil
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE leases SET owner = ?, expires_at = ? WHERE thread_id = ?`,
			owner, now.Add(ttl).Format(time.RFC3339Nano), threadID)
		if err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) RenewLease(ctx context.Context, threadID, owner string, ttl time.Duration) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE leases SET expires_at = ?
		WHERE thread_id = ? AND owner = ? AND expires_at > ?`,
		now.Add(ttl).Format(time.RFC3339Nano),
		threadID,
		owner,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrLeaseNotHeld
	}
	return nil
}

func (s *SQLiteStore) ReleaseLease(ctx context.Context, threadID, owner string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM leases WHERE thread_id = ? AND owner = ?`, threadID, owner)
	return err
}
