// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

// Package mappingstore provides a SQLite-backed library of named mappings.
package mappingstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"remap.256lights.llc/pkg"
	"remap.256lights.llc/pkg/internal/uuid8"
	"zombiezen.com/go/log"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitemigration"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrNotFound is returned by [Store] methods
// when no mapping exists with the requested name.
var ErrNotFound = errors.New("mapping not found")

// Entry is a named mapping.
type Entry struct {
	Name    string
	Mapping *remap.Mapping
	Order   remap.Order
	// Revision identifies the content of the mapping and its order.
	// Entries with equal content have equal revisions.
	Revision uuid.UUID
	Updated  time.Time
}

// Summary describes a named mapping without its content.
type Summary struct {
	Name     string
	Len      int
	Order    remap.Order
	Revision uuid.UUID
	Updated  time.Time
}

// Options is the set of optional parameters to [Open].
type Options struct {
	// Now returns the current time.
	// If nil, then [time.Now] is used.
	Now func() time.Time
}

// Store is a library of named mappings.
// It is safe to call methods on a Store from multiple goroutines concurrently.
type Store struct {
	db  *sqlitemigration.Pool
	now func() time.Time
}

// Open returns a new [Store] backed by the SQLite database at path,
// creating it if necessary.
// The database schema is migrated on first use.
// Callers are responsible for calling [Store.Close] on the returned store.
func Open(path string, opts *Options) *Store {
	if opts == nil {
		opts = new(Options)
	}
	s := &Store{
		now: opts.Now,
		db: sqlitemigration.NewPool(path, loadSchema(), sqlitemigration.Options{
			Flags:       sqlite.OpenCreate | sqlite.OpenReadWrite,
			PrepareConn: prepareConn,
			OnStartMigrate: func() {
				log.Debugf(context.Background(), "Migrating mapping store...")
			},
			OnReady: func() {
				log.Debugf(context.Background(), "Mapping store ready")
			},
			OnError: func(err error) {
				log.Errorf(context.Background(), "Migration: %v", err)
			},
		}),
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Close releases any resources associated with the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// ValidateName returns an error if name cannot be used as a mapping name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("mapping name empty")
	}
	if i := strings.IndexFunc(name, isInvalidNameRune); i >= 0 {
		c, _ := utf8.DecodeRuneInString(name[i:])
		return fmt.Errorf("mapping name %q contains invalid character %q", name, c)
	}
	return nil
}

func isInvalidNameRune(c rune) bool {
	return c == '/' || unicode.IsSpace(c) || !unicode.IsPrint(c)
}

// Revision returns the revision identifier for a mapping with the given order.
func Revision(m *remap.Mapping, order remap.Order) (uuid.UUID, error) {
	data, err := jsonv2.Marshal(struct {
		Order   remap.Order    `json:"order"`
		Mapping *remap.Mapping `json:"mapping"`
	}{order, m})
	if err != nil {
		return uuid.UUID{}, err
	}
	return uuid8.Sum(data), nil
}

// Put stores a mapping under the given name,
// replacing any mapping previously stored with that name.
func (s *Store) Put(ctx context.Context, name string, m *remap.Mapping, order remap.Order) (*Entry, error) {
	if err := ValidateName(name); err != nil {
		return nil, fmt.Errorf("put mapping: %v", err)
	}
	if !order.IsValid() {
		return nil, fmt.Errorf("put mapping %s: invalid order %v", name, order)
	}
	rev, err := Revision(m, order)
	if err != nil {
		return nil, fmt.Errorf("put mapping %s: %v", name, err)
	}
	entry := &Entry{
		Name:     name,
		Mapping:  m.Clone(),
		Order:    order,
		Revision: rev,
		Updated:  s.now().UTC().Truncate(time.Millisecond),
	}

	conn, err := s.db.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("put mapping %s: %v", name, err)
	}
	defer s.db.Put(conn)

	if err := putEntry(conn, entry); err != nil {
		return nil, fmt.Errorf("put mapping %s: %v", name, err)
	}
	log.Debugf(ctx, "Stored mapping %s (%d keys, revision %v)", name, entry.Mapping.Len(), rev)
	return entry, nil
}

func putEntry(conn *sqlite.Conn, entry *Entry) (err error) {
	defer sqlitex.Save(conn)(&err)

	var mappingID int64
	err = sqlitex.ExecuteTransientFS(conn, sqlFiles(), "upsert_mapping.sql", &sqlitex.ExecOptions{
		Named: map[string]any{
			":name":       entry.Name,
			":order":      entry.Order.String(),
			":revision":   entry.Revision.String(),
			":updated_at": entry.Updated.UnixMilli(),
		},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			mappingID = stmt.GetInt64("id")
			return nil
		},
	})
	if err != nil {
		return err
	}
	err = sqlitex.ExecuteTransientFS(conn, sqlFiles(), "delete_entries.sql", &sqlitex.ExecOptions{
		Named: map[string]any{
			":mapping_id": mappingID,
		},
	})
	if err != nil {
		return err
	}

	insertStmt, err := sqlitex.PrepareTransientFS(conn, sqlFiles(), "insert_entry.sql")
	if err != nil {
		return err
	}
	defer insertStmt.Finalize()
	insertStmt.SetInt64(":mapping_id", mappingID)
	position := int64(0)
	for k, v := range entry.Mapping.All() {
		insertStmt.SetInt64(":position", position)
		insertStmt.SetText(":key", k)
		insertStmt.SetText(":value", v)
		if _, err := insertStmt.Step(); err != nil {
			return fmt.Errorf("insert %q: %v", k, err)
		}
		if err := insertStmt.Reset(); err != nil {
			return fmt.Errorf("insert %q: %v", k, err)
		}
		position++
	}
	return nil
}

// Get returns the mapping stored under the given name.
// If there is no such mapping, Get returns an error that wraps [ErrNotFound].
func (s *Store) Get(ctx context.Context, name string) (*Entry, error) {
	conn, err := s.db.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get mapping %s: %v", name, err)
	}
	defer s.db.Put(conn)

	rollback, err := readonlySavepoint(conn)
	if err != nil {
		return nil, fmt.Errorf("get mapping %s: %v", name, err)
	}
	defer rollback()

	entry := &Entry{
		Name:    name,
		Mapping: new(remap.Mapping),
	}
	mappingID := int64(-1)
	err = sqlitex.ExecuteTransientFS(conn, sqlFiles(), "find_mapping.sql", &sqlitex.ExecOptions{
		Named: map[string]any{
			":name": name,
		},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			mappingID = stmt.GetInt64("id")
			return scanHeader(stmt, &entry.Order, &entry.Revision, &entry.Updated)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get mapping %s: %v", name, err)
	}
	if mappingID == -1 {
		return nil, fmt.Errorf("get mapping %s: %w", name, ErrNotFound)
	}

	err = sqlitex.ExecuteTransientFS(conn, sqlFiles(), "entries.sql", &sqlitex.ExecOptions{
		Named: map[string]any{
			":mapping_id": mappingID,
		},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			entry.Mapping.SetString(stmt.GetText("key"), stmt.GetText("value"))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get mapping %s: %v", name, err)
	}
	return entry, nil
}

// List returns summaries of all the stored mappings sorted by name.
func (s *Store) List(ctx context.Context) ([]*Summary, error) {
	conn, err := s.db.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %v", err)
	}
	defer s.db.Put(conn)

	var result []*Summary
	err = sqlitex.ExecuteTransientFS(conn, sqlFiles(), "list.sql", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			sum := &Summary{
				Name: stmt.GetText("name"),
				Len:  int(stmt.GetInt64("len")),
			}
			if err := scanHeader(stmt, &sum.Order, &sum.Revision, &sum.Updated); err != nil {
				return fmt.Errorf("%s: %v", sum.Name, err)
			}
			result = append(result, sum)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list mappings: %v", err)
	}
	return result, nil
}

// Delete removes the mapping stored under the given name.
// If there is no such mapping, Delete returns an error that wraps [ErrNotFound].
func (s *Store) Delete(ctx context.Context, name string) error {
	conn, err := s.db.Get(ctx)
	if err != nil {
		return fmt.Errorf("delete mapping %s: %v", name, err)
	}
	defer s.db.Put(conn)

	err = sqlitex.ExecuteTransientFS(conn, sqlFiles(), "delete_mapping.sql", &sqlitex.ExecOptions{
		Named: map[string]any{
			":name": name,
		},
	})
	if err != nil {
		return fmt.Errorf("delete mapping %s: %v", name, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("delete mapping %s: %w", name, ErrNotFound)
	}
	log.Debugf(ctx, "Deleted mapping %s", name)
	return nil
}

func scanHeader(stmt *sqlite.Stmt, order *remap.Order, rev *uuid.UUID, updated *time.Time) error {
	var err error
	*order, err = remap.ParseOrder(stmt.GetText("order"))
	if err != nil {
		return err
	}
	*rev, err = uuid.Parse(stmt.GetText("revision"))
	if err != nil {
		return fmt.Errorf("revision: %v", err)
	}
	*updated = time.UnixMilli(stmt.GetInt64("updated_at")).UTC()
	return nil
}

// readonlySavepoint starts a savepoint
// and returns a function that rolls it back.
func readonlySavepoint(conn *sqlite.Conn) (rollback func(), err error) {
	if err := sqlitex.ExecuteTransient(conn, "SAVEPOINT readonly;", nil); err != nil {
		return nil, err
	}
	return func() {
		if err := sqlitex.ExecuteTransient(conn, "ROLLBACK TO SAVEPOINT readonly;", nil); err != nil {
			log.Errorf(context.Background(), "Rolling back read-only savepoint: %v", err)
		}
		if err := sqlitex.ExecuteTransient(conn, "RELEASE SAVEPOINT readonly;", nil); err != nil {
			log.Errorf(context.Background(), "Releasing read-only savepoint: %v", err)
		}
	}, nil
}

func prepareConn(conn *sqlite.Conn) error {
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA journal_mode = wal;", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA foreign_keys = on;", nil); err != nil {
		return err
	}
	return nil
}

//go:embed sql/*.sql
//go:embed sql/schema/*.sql
var rawSQLFiles embed.FS

func sqlFiles() fs.FS {
	sub, err := fs.Sub(rawSQLFiles, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

var schemaState struct {
	init   sync.Once
	schema sqlitemigration.Schema
	err    error
}

func loadSchema() sqlitemigration.Schema {
	schemaState.init.Do(func() {
		for i := 1; ; i++ {
			migration, err := fs.ReadFile(sqlFiles(), fmt.Sprintf("schema/%02d.sql", i))
			if errors.Is(err, fs.ErrNotExist) {
				break
			}
			if err != nil {
				schemaState.err = err
				return
			}
			schemaState.schema.Migrations = append(schemaState.schema.Migrations, string(migration))
		}
	})

	if schemaState.err != nil {
		panic(schemaState.err)
	}
	return schemaState.schema
}
