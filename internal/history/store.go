package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Neerajramb/medical-assistant-project-v2/internal/log"
)

// timeFormat is fixed-width UTC so lexical ordering in SQLite matches
// chronological ordering.
const timeFormat = "2006-01-02 15:04:05.000000000"

// Store manages chat message persistence in SQLite.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// New creates a Store on an opened, migrated database.
func New(db *sql.DB, logger log.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Append records one message at the end of a user's log and returns
// the stored message.
func (s *Store) Append(ctx context.Context, userID string, sender Sender, text string) (Message, error) {
	if userID == "" {
		return Message{}, errors.New("user ID must not be empty")
	}
	if !sender.Valid() {
		return Message{}, fmt.Errorf("invalid sender %q", sender)
	}
	if text == "" {
		return Message{}, errors.New("message must not be empty")
	}

	msg := Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Sender:    sender,
		Message:   text,
		Timestamp: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, user_id, sender, message, timestamp) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.UserID, string(msg.Sender), msg.Message, msg.Timestamp.Format(timeFormat))
	if err != nil {
		return Message{}, fmt.Errorf("appending message: %w", err)
	}

	s.logger.Debug("appended message", "user", userID, "sender", sender, "length", len(text))
	return msg, nil
}

// Recent returns the last n messages of a user's log in chronological
// order. Fewer than n, including none, is success.
func (s *Store) Recent(ctx context.Context, userID string, n int) ([]Message, error) {
	if n < 1 {
		return nil, fmt.Errorf("window size must be positive, got %d", n)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, sender, message, timestamp
		   FROM chat_messages
		  WHERE user_id = ?
		  ORDER BY timestamp DESC, rowid DESC
		  LIMIT ?`,
		userID, n)
	if err != nil {
		return nil, fmt.Errorf("loading recent messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Query returned newest-first; callers need chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// All returns a user's complete log in chronological order.
func (s *Store) All(ctx context.Context, userID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, sender, message, timestamp
		   FROM chat_messages
		  WHERE user_id = ?
		  ORDER BY timestamp ASC, rowid ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("loading message log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows)
}

// LastUserMessage returns the text of the user's most recent own
// message. found is false for a user with no prior messages.
func (s *Store) LastUserMessage(ctx context.Context, userID string) (text string, found bool, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT message
		   FROM chat_messages
		  WHERE user_id = ? AND sender = ?
		  ORDER BY timestamp DESC, rowid DESC
		  LIMIT 1`,
		userID, string(SenderUser))

	if err := row.Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("loading last user message: %w", err)
	}
	return text, true, nil
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var m Message
		var sender, ts string
		if err := rows.Scan(&m.ID, &m.UserID, &sender, &m.Message, &ts); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Sender = Sender(sender)

		parsed, err := time.ParseInLocation(timeFormat, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp %q: %w", ts, err)
		}
		m.Timestamp = parsed

		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return messages, nil
}
