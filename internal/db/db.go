package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver identifies the relational backend the Manager runs on.
type Driver string

const (
	DriverSQLite   Driver = "sqlite3"
	DriverPostgres Driver = "postgres"
)

// Manager owns the database handle for the assistant's tables. The backend
// is selected at startup: Postgres when DATABASE_URL is set, otherwise a
// local SQLite file.
type Manager struct {
	db     *sql.DB
	driver Driver
}

// NewManager opens the store using environment configuration.
func NewManager() (*Manager, error) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		return NewPostgresManager(dbURL)
	}

	path := os.Getenv("ASSISTANT_DB")
	if path == "" {
		path = "assistant.db"
	}
	return NewSQLiteManager(path)
}

// NewSQLiteManager opens (or creates) a SQLite database at path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteManager(path string) (*Manager, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive across calls and
	// serializes writes the same way the file backend does.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &Manager{db: db, driver: DriverSQLite}, nil
}

// NewPostgresManager connects to a Postgres database.
func NewPostgresManager(dbURL string) (*Manager, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Manager{db: db, driver: DriverPostgres}, nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}

func (m *Manager) Driver() Driver {
	return m.driver
}

func (m *Manager) GetDB() *sql.DB {
	return m.db
}

// InitSchema creates the assistant's tables if they do not exist.
func (m *Manager) InitSchema(ctx context.Context) error {
	schema := schemaSQLite
	if m.driver == DriverPostgres {
		schema = schemaPostgres
	}

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// rebind converts ?-style placeholders to the $N form Postgres expects.
// SQLite queries pass through unchanged.
func (m *Manager) rebind(query string) string {
	if m.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// insertReturningID runs an INSERT and reports the new row's id.
// Postgres has no LastInsertId, so the query grows a RETURNING clause there.
func (m *Manager) insertReturningID(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if m.driver == DriverPostgres {
		var id int64
		err := m.db.QueryRowContext(ctx, m.rebind(query)+" RETURNING id", args...).Scan(&id)
		return id, err
	}

	res, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS tareas (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	titulo TEXT NOT NULL,
	descripcion TEXT,
	fecha_creacion TEXT NOT NULL,
	fecha_limite TEXT,
	prioridad TEXT NOT NULL DEFAULT 'media',
	completada INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS finanzas (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tipo TEXT NOT NULL,
	monto TEXT NOT NULL,
	categoria TEXT NOT NULL,
	descripcion TEXT,
	fecha TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS conversaciones (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id TEXT NOT NULL,
	mensaje TEXT NOT NULL,
	respuesta TEXT,
	timestamp TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mensajes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	platform TEXT NOT NULL,
	sender TEXT NOT NULL,
	chat_id TEXT NOT NULL,
	message TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	is_from_assistant INTEGER NOT NULL DEFAULT 0
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS tareas (
	id SERIAL PRIMARY KEY,
	titulo TEXT NOT NULL,
	descripcion TEXT,
	fecha_creacion TEXT NOT NULL,
	fecha_limite TEXT,
	prioridad TEXT NOT NULL DEFAULT 'media',
	completada BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS finanzas (
	id SERIAL PRIMARY KEY,
	tipo TEXT NOT NULL,
	monto TEXT NOT NULL,
	categoria TEXT NOT NULL,
	descripcion TEXT,
	fecha TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS conversaciones (
	id SERIAL PRIMARY KEY,
	chat_id TEXT NOT NULL,
	mensaje TEXT NOT NULL,
	respuesta TEXT,
	timestamp TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mensajes (
	id SERIAL PRIMARY KEY,
	platform TEXT NOT NULL,
	sender TEXT NOT NULL,
	chat_id TEXT NOT NULL,
	message TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	is_from_assistant BOOLEAN NOT NULL DEFAULT FALSE
);
`
