package repos

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"vitrina/internal/domain"
)

// ErrOperatorNotFound is returned when no operator matches an email or session.
var ErrOperatorNotFound = errors.New("operator not found")

// OperatorRepo stores back-office operators and the browser sessions they sign into.
type OperatorRepo struct{ db *sqlx.DB }

func NewOperatorRepo(db *sqlx.DB) *OperatorRepo { return &OperatorRepo{db: db} }

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOperatorNotFound
	}
	return err
}

// FindByEmail looks the operator up by email, ignoring case and surrounding blanks.
func (r *OperatorRepo) FindByEmail(email string) (*domain.User, error) {
	var u domain.User
	err := r.db.Get(&u, `
	  SELECT id, email, name, password_hash, role
	  FROM users
	  WHERE LOWER(email) = ?
	`, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// SignIn binds the session to operatorID. A cart left on the session by a
// different operator is discarded so it never carries over between cashiers.
func (r *OperatorRepo) SignIn(sid, operatorID string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var prev sql.NullString
	err = tx.Get(&prev, `SELECT user_id FROM sessions WHERE id = ?`, sid)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if prev.String != operatorID {
		if _, err := tx.Exec(`DELETE FROM cart_lines WHERE session_id = ?`, sid); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`
	  INSERT INTO sessions(id, user_id, last_seen)
	  VALUES (?, ?, CURRENT_TIMESTAMP)
	  ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, last_seen = CURRENT_TIMESTAMP
	`, sid, operatorID); err != nil {
		return err
	}
	return tx.Commit()
}

// Operator returns who is signed into the session.
func (r *OperatorRepo) Operator(sid string) (*domain.User, error) {
	var u domain.User
	err := r.db.Get(&u, `
	  SELECT u.id, u.email, u.name, u.password_hash, u.role
	  FROM sessions s
	  JOIN users u ON u.id = s.user_id
	  WHERE s.id = ?
	`, sid)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// SignOut unlinks the operator and drops the session's cart in one step.
func (r *OperatorRepo) SignOut(sid string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE sessions SET user_id = NULL, last_seen = CURRENT_TIMESTAMP WHERE id = ?`, sid); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM cart_lines WHERE session_id = ?`, sid); err != nil {
		return err
	}
	return tx.Commit()
}
