// Package sqlite persists token snapshots in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/binary"
	"fmt"
	"time"

	"semtok/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tliron/commonlog"
	"gitlab.com/tozd/go/errors"
)

var log = commonlog.GetLogger("semtok.store.sqlite")

const schemaVersion = 1

//go:embed schema.sql
var schemaSQL string

var ErrCorrupt = errors.Base("corrupt snapshot data")

// Store implements store.Store on a SQLite database.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database at path, enables WAL mode and
// brings the schema up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Errorf("failed to open %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, errors.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	log.Debugf("opened snapshot store %s", path)
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Errorf("failed to get schema version: %w", err)
	}
	if version == schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaSQL); err != nil {
		return errors.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return errors.Errorf("failed to update schema version: %w", err)
	}
	return tx.Commit()
}

func (s *Store) Put(ctx context.Context, snap store.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO snapshots (uri, result_id, data, updated) VALUES (?, ?, ?, ?)
        ON CONFLICT(uri) DO UPDATE SET
            result_id = excluded.result_id,
            data = excluded.data,
            updated = excluded.updated
    `, snap.URI, snap.ResultID, encode(snap.Data), snap.Updated.UnixNano())
	if err != nil {
		return errors.Errorf("failed to store snapshot of %s: %w", snap.URI, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, uri string) (store.Snapshot, error) {
	var (
		snap    = store.Snapshot{URI: uri}
		blob    []byte
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT result_id, data, updated FROM snapshots WHERE uri = ?`, uri,
	).Scan(&snap.ResultID, &blob, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Snapshot{}, errors.WithDetails(store.ErrNotFound, "uri", uri)
	} else if err != nil {
		return store.Snapshot{}, errors.Errorf("failed to load snapshot of %s: %w", uri, err)
	}

	if snap.Data, err = decode(blob); err != nil {
		return store.Snapshot{}, errors.Errorf("%s: %w", uri, err)
	}
	snap.Updated = time.Unix(0, updated)
	return snap, nil
}

func (s *Store) Delete(ctx context.Context, uri string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE uri = ?`, uri); err != nil {
		return errors.Errorf("failed to delete snapshot of %s: %w", uri, err)
	}
	return nil
}

func (s *Store) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE updated < ?`, before.UnixNano())
	if err != nil {
		return 0, errors.Errorf("failed to prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Errorf("failed to prune snapshots: %w", err)
	}
	return int(n), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Token data is stored as little endian uint32s.
func encode(data []uint32) []byte {
	buf := make([]byte, 0, len(data)*4)
	for _, v := range data {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	return buf
}

func decode(blob []byte) ([]uint32, error) {
	if len(blob)%4 != 0 {
		return nil, errors.WithDetails(ErrCorrupt, "size", len(blob))
	}
	data := make([]uint32, len(blob)/4)
	for i := range data {
		data[i] = binary.LittleEndian.Uint32(blob[i*4:])
	}
	return data, nil
}
