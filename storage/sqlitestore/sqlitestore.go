// Package sqlitestore is a storage.Storage backed by SQLite.
//
// The branch context is the branch's row id (an int64 starting at 1).
// Revision bodies are stored as deterministic CBOR. List returns hashes in
// insertion order.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/internal/codec"
	"xdao.co/aqua/revision"
	"xdao.co/aqua/storage"
)

type Store struct {
	db *sql.DB
	// Writes are serialized in-process; other processes are held off by the
	// immediate transaction lock.
	mu     sync.Mutex
	notify storage.Notifier
}

var _ storage.Storage[int64] = (*Store)(nil)

// Open opens or creates the database at path. Use ":memory:" for a private
// in-memory store.
func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) GetContext(ctx context.Context, h ident.Hash) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT branch_id FROM revisions WHERE hash = ?`, h.String()).Scan(&id)
	if err != nil {
		return 0, notFound(err)
	}
	return id, nil
}

func (s *Store) Store(ctx context.Context, rev revision.Revision, branchID int64) error {
	body, err := codec.Marshal(rev)
	if err != nil {
		return fmt.Errorf("sqlitestore: encode revision: %w", err)
	}
	h := rev.Hash()

	s.mu.Lock()
	published, err := s.store(ctx, rev, body, h, branchID)
	s.mu.Unlock()
	if err != nil || !published {
		return err
	}
	s.notify.Publish(h, storage.Describe(rev))
	return nil
}

func (s *Store) store(ctx context.Context, rev revision.Revision, body []byte, h ident.Hash, branchID int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var existing []byte
	err = tx.QueryRowContext(ctx, `SELECT body FROM revisions WHERE hash = ?`, h.String()).Scan(&existing)
	switch {
	case err == nil:
		return false, sameRevision(existing, rev)
	case !errors.Is(err, sql.ErrNoRows):
		return false, err
	}

	position := 0
	if rev.IsGenesis() {
		res, err := tx.ExecContext(ctx, `INSERT INTO branches (genesis) VALUES (?)`, h.String())
		if err != nil {
			return false, err
		}
		if branchID, err = res.LastInsertId(); err != nil {
			return false, err
		}
	} else {
		var tailHex string
		err := tx.QueryRowContext(ctx,
			`SELECT hash, position FROM revisions WHERE branch_id = ? ORDER BY position DESC LIMIT 1`,
			branchID).Scan(&tailHex, &position)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, fmt.Errorf("%w: unknown branch %d", storage.ErrNotFound, branchID)
			}
			return false, err
		}
		tail, err := ident.ParseHash(tailHex)
		if err != nil {
			return false, fmt.Errorf("sqlitestore: branch %d: %w", branchID, err)
		}
		// Only the tail takes part in the append rule.
		if err := storage.CheckAppend(revision.NewBranch(branchID, tail), rev); err != nil {
			return false, err
		}
		position++
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO revisions (hash, branch_id, position, body) VALUES (?, ?, ?, ?)`,
		h.String(), branchID, position, body)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func sameRevision(body []byte, rev revision.Revision) error {
	var existing revision.Revision
	if err := codec.Unmarshal(body, &existing); err != nil {
		return fmt.Errorf("%w: undecodable body: %v", storage.ErrImmutable, err)
	}
	same, err := storage.SameRevision(existing, rev)
	if err != nil {
		return err
	}
	if !same {
		return storage.ErrImmutable
	}
	return nil
}

func (s *Store) Read(ctx context.Context, h ident.Hash) (revision.Revision, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM revisions WHERE hash = ?`, h.String()).Scan(&body)
	if err != nil {
		return revision.Revision{}, notFound(err)
	}
	var rev revision.Revision
	if err := codec.Unmarshal(body, &rev); err != nil {
		return revision.Revision{}, fmt.Errorf("sqlitestore: decode revision %s: %w", h, err)
	}
	return rev, nil
}

func (s *Store) GetBranch(ctx context.Context, h ident.Hash) (revision.Branch[int64], error) {
	id, err := s.GetContext(ctx, h)
	if err != nil {
		return revision.Branch[int64]{}, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT hash FROM revisions WHERE branch_id = ? ORDER BY position`, id)
	if err != nil {
		return revision.Branch[int64]{}, err
	}
	hashes, err := scanHashes(rows)
	if err != nil {
		return revision.Branch[int64]{}, err
	}
	return revision.Branch[int64]{Metadata: id, Hashes: hashes}, nil
}

func (s *Store) List(ctx context.Context) ([]ident.Hash, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT hash FROM revisions ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return scanHashes(rows)
}

func (s *Store) UpdateHandler(ctx context.Context, f storage.UpdateFunc) error {
	return s.notify.Subscribe(ctx, f)
}

// Close ends all UpdateHandler calls with storage.ErrClosed and closes the
// database.
func (s *Store) Close() error {
	s.notify.Close()
	return s.db.Close()
}

func scanHashes(rows *sql.Rows) ([]ident.Hash, error) {
	defer rows.Close()
	var out []ident.Hash
	for rows.Next() {
		var hex string
		if err := rows.Scan(&hex); err != nil {
			return nil, err
		}
		h, err := ident.ParseHash(hex)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: stored hash: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}
