package theme

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/aaronparisi/technoblog/internal/db"
)

// VisitorCookie names the cookie carrying the anonymous visitor id.
const VisitorCookie = "visitor"

// DBStorage persists values in SQLite, scoped to one visitor.
type DBStorage struct {
	db        *db.DB
	visitorID string
}

// NewDBStorage returns storage for visitorID.
func NewDBStorage(database *db.DB, visitorID string) *DBStorage {
	return &DBStorage{db: database, visitorID: visitorID}
}

func (s *DBStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE visitor_id = ? AND key = ?`,
		s.visitorID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading preference %s: %w", key, err)
	}
	return value, true, nil
}

func (s *DBStorage) Set(ctx context.Context, key, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO visitors (id) VALUES (?)
		 ON CONFLICT(id) DO UPDATE SET last_seen = datetime('now')`,
		s.visitorID,
	); err != nil {
		return fmt.Errorf("upserting visitor: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO preferences (visitor_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(visitor_id, key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		s.visitorID, key, value,
	); err != nil {
		return fmt.Errorf("writing preference %s: %w", key, err)
	}

	return tx.Commit()
}

// Visitor returns the visitor id carried by r. When the cookie is missing
// or malformed it returns a fresh id and the cookie that issues it.
func Visitor(r *http.Request) (string, *http.Cookie) {
	if c, err := r.Cookie(VisitorCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String(), nil
		}
	}
	id := uuid.NewString()
	cookie := PreferenceCookie(VisitorCookie, id)
	cookie.HttpOnly = true
	return id, cookie
}

// VisitorID is Visitor for plain HTTP handlers: a new cookie is set on w.
func VisitorID(w http.ResponseWriter, r *http.Request) string {
	id, cookie := Visitor(r)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	return id
}
