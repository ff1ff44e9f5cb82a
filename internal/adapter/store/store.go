// Package store persists chat sessions, message feedback and the
// curated restaurant catalog in SQLite. Persistence is best effort for
// the chat path: callers log failures and keep serving the turn.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"tripmate-ai/internal/domain"
)

// Feedback is a thumbs rating attached to one assistant message.
type Feedback struct {
	MessageID string `json:"messageId"`
	SessionID string `json:"sessionId"`
	Rating    string `json:"rating"` // "up" or "down"
	Comment   string `json:"comment,omitempty"`
}

// Restaurant is one curated catalog entry, addressed by slug.
type Restaurant struct {
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	LocalizedName string `json:"localizedName"`
	Address       string `json:"address"`
	Location      string `json:"location"` // "lng,lat"
	Description   string `json:"description,omitempty"`
	Cuisine       string `json:"cuisine,omitempty"`
	PriceRange    string `json:"priceRange,omitempty"`
	Rating        string `json:"rating,omitempty"`
}

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (or creates) the database at dbPath, applies pragmas and
// runs migrations.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", domain.ErrStoreUnavailable, err)
	}

	// SQLite write safety: single writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: pragma: %v", domain.ErrStoreUnavailable, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrStoreUnavailable, err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSession creates the session row if it does not exist and
// returns the session id. An empty id allocates a fresh one.
func (s *Store) EnsureSession(ctx context.Context, id string) (string, error) {
	if id == "" {
		id = ulid.Make().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at) VALUES (?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("ensure session: %w", err)
	}
	return id, nil
}

// LogMessage appends one message to the session log and returns its id.
func (s *Store) LogMessage(ctx context.Context, sessionID string, msg domain.Message) (string, error) {
	id := ulid.Make().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, sessionID, msg.Role, msg.Content,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("log message: %w", err)
	}
	return id, nil
}

// SessionMessages returns the session's messages in append order.
func (s *Store) SessionMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE session_id = ? ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("session messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, domain.Message{Role: role, Content: content})
	}
	return out, rows.Err()
}

// SaveFeedback upserts the rating for a message. A second submission
// for the same message replaces the first.
func (s *Store) SaveFeedback(ctx context.Context, fb Feedback) error {
	if fb.MessageID == "" || fb.SessionID == "" {
		return fmt.Errorf("%w: messageId and sessionId are required", domain.ErrInvalidInput)
	}
	if fb.Rating != "up" && fb.Rating != "down" {
		return fmt.Errorf("%w: rating must be up or down, got %q", domain.ErrInvalidInput, fb.Rating)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (message_id, session_id, rating, comment, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(message_id) DO UPDATE SET
		   rating = excluded.rating,
		   comment = excluded.comment,
		   updated_at = excluded.updated_at`,
		fb.MessageID, fb.SessionID, fb.Rating, fb.Comment,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

// GetFeedback returns the stored rating for a message, or ErrNotFound.
func (s *Store) GetFeedback(ctx context.Context, messageID string) (Feedback, error) {
	var fb Feedback
	err := s.db.QueryRowContext(ctx,
		`SELECT message_id, session_id, rating, comment FROM feedback WHERE message_id = ?`,
		messageID).Scan(&fb.MessageID, &fb.SessionID, &fb.Rating, &fb.Comment)
	if err == sql.ErrNoRows {
		return Feedback{}, domain.NewDomainError("Store.GetFeedback", domain.ErrNotFound, messageID)
	}
	if err != nil {
		return Feedback{}, fmt.Errorf("get feedback: %w", err)
	}
	return fb, nil
}

// RestaurantsBySlugs returns the curated records for the given slugs.
// Unknown slugs are skipped; an empty slug list yields an empty slice.
func (s *Store) RestaurantsBySlugs(ctx context.Context, slugs []string) ([]Restaurant, error) {
	out := []Restaurant{}
	if len(slugs) == 0 {
		return out, nil
	}

	placeholders := strings.Repeat("?,", len(slugs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(slugs))
	for i, s := range slugs {
		args[i] = s
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, name, localized_name, address, location, description, cuisine, price_range, rating
		 FROM restaurants WHERE slug IN (`+placeholders+`) ORDER BY slug`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("restaurants by slugs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r Restaurant
		if err := rows.Scan(&r.Slug, &r.Name, &r.LocalizedName, &r.Address, &r.Location,
			&r.Description, &r.Cuisine, &r.PriceRange, &r.Rating); err != nil {
			return nil, fmt.Errorf("scan restaurant: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertRestaurant writes one curated catalog entry, replacing any
// previous record with the same slug.
func (s *Store) UpsertRestaurant(ctx context.Context, r Restaurant) error {
	if r.Slug == "" {
		return fmt.Errorf("%w: slug is required", domain.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO restaurants (slug, name, localized_name, address, location, description, cuisine, price_range, rating)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slug) DO UPDATE SET
		   name = excluded.name,
		   localized_name = excluded.localized_name,
		   address = excluded.address,
		   location = excluded.location,
		   description = excluded.description,
		   cuisine = excluded.cuisine,
		   price_range = excluded.price_range,
		   rating = excluded.rating`,
		r.Slug, r.Name, r.LocalizedName, r.Address, r.Location,
		r.Description, r.Cuisine, r.PriceRange, r.Rating)
	if err != nil {
		return fmt.Errorf("upsert restaurant: %w", err)
	}
	return nil
}
