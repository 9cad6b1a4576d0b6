package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("not found")

// Subscription is a chat that receives the weekly announcement.
type Subscription struct {
	ChatID    int64
	Title     string
	CreatedAt time.Time
}

// DB wraps the SQLite database connection and provides storage operations.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection is usable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subscriptions (
		chat_id INTEGER PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Subscribe adds a chat, keeping the original subscription time if it
// already exists. It reports whether the chat was newly added.
func (db *DB) Subscribe(ctx context.Context, chatID int64, title string) (bool, error) {
	query := `
	INSERT INTO subscriptions (chat_id, title, created_at) VALUES (?, ?, ?)
	ON CONFLICT(chat_id) DO UPDATE SET title = excluded.title
	`
	existed, err := db.IsSubscribed(ctx, chatID)
	if err != nil {
		return false, err
	}
	if _, err := db.conn.ExecContext(ctx, query, chatID, title, time.Now()); err != nil {
		return false, err
	}
	return !existed, nil
}

// Unsubscribe removes a chat. It returns ErrNotFound if the chat was not subscribed.
func (db *DB) Unsubscribe(ctx context.Context, chatID int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM subscriptions WHERE chat_id = ?`, chatID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsSubscribed reports whether a chat receives announcements.
func (db *DB) IsSubscribed(ctx context.Context, chatID int64) (bool, error) {
	var dummy int
	err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM subscriptions WHERE chat_id = ?`, chatID).Scan(&dummy)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListSubscriptions returns all subscribed chats, oldest first.
func (db *DB) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT chat_id, title, created_at FROM subscriptions ORDER BY created_at, chat_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.ChatID, &s.Title, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// SubscribedChatIDs returns the IDs of all subscribed chats.
func (db *DB) SubscribedChatIDs(ctx context.Context) ([]int64, error) {
	subs, err := db.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(subs))
	for i, s := range subs {
		ids[i] = s.ChatID
	}
	return ids, nil
}
