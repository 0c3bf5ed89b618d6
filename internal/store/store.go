package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Querier abstracts *sql.DB and *sql.Tx so store methods work in both contexts.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store wraps a SQLite connection holding one or more builds.
type Store struct {
	db      *sql.DB
	q       Querier // active querier: db or tx
	dbPath  string
	writeMu *sync.Mutex
}

// cacheDir returns the default cache directory for databases.
func cacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	dir := filepath.Join(home, ".cache", "symbol-indexer")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir cache: %w", err)
	}
	return dir, nil
}

// DefaultPath returns the database path used when none is configured.
func DefaultPath() (string, error) {
	dir, err := cacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "index.db"), nil
}

// OpenPath opens a SQLite database at the given path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{db: db, dbPath: dbPath, writeMu: &sync.Mutex{}}
	s.q = s.db
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// OpenMemory opens an in-memory SQLite database (for testing).
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, dbPath: ":memory:", writeMu: &sync.Mutex{}}
	s.q = s.db
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// WithTransaction executes fn within a single SQLite transaction.
// The callback receives a transaction-scoped Store. Every method called on
// txStore uses the transaction. Write transactions are serialized per Store;
// the unique constraints guard against other processes writing the same
// database.
func (s *Store) WithTransaction(ctx context.Context, fn func(txStore *Store) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txStore := &Store{db: s.db, q: tx, dbPath: s.dbPath, writeMu: s.writeMu}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		label TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS files (
		build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		path TEXT NOT NULL,
		type TEXT NOT NULL,
		content_hash TEXT DEFAULT '',
		mod_time TEXT DEFAULT '',
		parse_status TEXT NOT NULL,
		PRIMARY KEY (build_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_files_path ON files(build_id, path);

	CREATE TABLE IF NOT EXISTS ast_nodes (
		build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		file_id INTEGER NOT NULL DEFAULT 0,
		start_line INTEGER DEFAULT 0,
		start_col INTEGER DEFAULT 0,
		end_line INTEGER DEFAULT 0,
		end_col INTEGER DEFAULT 0,
		start_offset INTEGER DEFAULT 0,
		end_offset INTEGER DEFAULT 0,
		value TEXT NOT NULL,
		symbol_type TEXT NOT NULL,
		ast_type TEXT NOT NULL,
		mangled_name TEXT NOT NULL,
		mangled_name_hash INTEGER NOT NULL,
		scope_hash INTEGER DEFAULT 0,
		PRIMARY KEY (build_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_ast_nodes_mangled ON ast_nodes(build_id, mangled_name_hash);
	CREATE INDEX IF NOT EXISTS idx_ast_nodes_file ON ast_nodes(build_id, file_id);
	CREATE INDEX IF NOT EXISTS idx_ast_nodes_scope ON ast_nodes(build_id, scope_hash, ast_type);

	CREATE TABLE IF NOT EXISTS entities (
		build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		hash INTEGER NOT NULL,
		mangled_name TEXT NOT NULL,
		name TEXT NOT NULL,
		qualified_name TEXT NOT NULL,
		ast_node_id INTEGER DEFAULT 0,
		modifiers INTEGER DEFAULT 0,
		properties TEXT DEFAULT '{}',
		PRIMARY KEY (build_id, kind, hash)
	);

	CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(build_id, name);
	CREATE INDEX IF NOT EXISTS idx_entities_qn ON entities(build_id, qualified_name);

	CREATE TABLE IF NOT EXISTS entity_edges (
		build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		source_hash INTEGER NOT NULL,
		relation TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		target_hash INTEGER NOT NULL,
		PRIMARY KEY (build_id, kind, source_hash, relation, ordinal)
	);

	CREATE INDEX IF NOT EXISTS idx_entity_edges_target ON entity_edges(build_id, relation, target_hash);

	CREATE TABLE IF NOT EXISTS imports (
		build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
		file_id INTEGER NOT NULL,
		qualifier TEXT NOT NULL,
		is_static INTEGER DEFAULT 0,
		is_wildcard INTEGER DEFAULT 0,
		is_implicit INTEGER DEFAULT 0,
		ast_node_id INTEGER DEFAULT 0,
		PRIMARY KEY (build_id, file_id, qualifier)
	);

	CREATE TABLE IF NOT EXISTS doc_comments (
		build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
		owner_hash INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		content TEXT NOT NULL,
		html TEXT NOT NULL,
		PRIMARY KEY (build_id, owner_hash)
	);

	CREATE TABLE IF NOT EXISTS problems (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
		file_id INTEGER NOT NULL,
		path TEXT NOT NULL,
		severity TEXT NOT NULL,
		start_line INTEGER DEFAULT 0,
		start_col INTEGER DEFAULT 0,
		message TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_problems_file ON problems(build_id, file_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Now returns the current time in ISO 8601 format.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
