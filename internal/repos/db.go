package repos

import (
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// OpenDB opens the local store for operators, sessions and POS carts.
// Catalog, customers and sales live in the catalog backend, never here.
func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Every connection to ":memory:" is a separate database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Ensure operators exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Operators & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('ADMIN','CASHIER')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- POS cart lines: a snapshot of the available variant plus quantity
CREATE TABLE IF NOT EXISTS cart_lines(
  session_id        TEXT NOT NULL,
  position          INTEGER NOT NULL,
  product_detail_id TEXT NOT NULL,
  category_name     TEXT NOT NULL DEFAULT '',
  product_name      TEXT NOT NULL DEFAULT '',
  image             TEXT NOT NULL DEFAULT '',
  price             TEXT NOT NULL,
  color             TEXT NOT NULL DEFAULT '',
  size              TEXT NOT NULL DEFAULT '',
  stock             INTEGER NOT NULL,
  warehouse         TEXT NOT NULL DEFAULT '',
  qty               INTEGER NOT NULL CHECK (qty >= 1 AND qty <= stock),
  updated_at        TEXT,
  PRIMARY KEY (session_id, product_detail_id)
);
CREATE INDEX IF NOT EXISTS idx_cart_lines_session ON cart_lines(session_id, position);
`
	_, err := db.Exec(schema)
	return err
}

// seedUsers ensures one ADMIN and one CASHIER exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	log.Println("[seed] inserting default operators")

	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) (u, error) {
		h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}, err
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, spec := range [][4]string{
		{"u-admin", "admin@vitrina.test", "Admin", "ADMIN"},
		{"u-caja", "caja@vitrina.test", "Caja", "CASHIER"},
	} {
		x, err := mk(spec[0], spec[1], spec[2], spec[3], "Passw0rd!")
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}
	return tx.Commit()
}
