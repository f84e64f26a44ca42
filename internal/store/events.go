package store

import (
	"time"

	"github.com/google/uuid"
)

// AppendEvent records an entry. It is idempotent on EntryID; an empty
// EntryID gets a fresh UUID.
func (db *DB) AppendEvent(e *Entry) error {
	if e.EntryID == "" {
		e.EntryID = uuid.NewString()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	res, err := db.Exec(`
		INSERT INTO events (entry_id, category, name, conversation_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(entry_id) DO NOTHING`,
		e.EntryID, e.Category, e.Name, e.ConversationID, e.Payload, e.CreatedAt)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		e.ID = id
	}
	return nil
}

// ListEvents returns entries newest first using keyset pagination by id.
// An empty category lists every category.
func (db *DB) ListEvents(category string, beforeID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `
		SELECT id, entry_id, category, name, conversation_id, payload, created_at
		FROM events
		WHERE 1 = 1`
	var args []any
	if category != "" {
		q += " AND category = ?"
		args = append(args, category)
	}
	if beforeID > 0 {
		q += " AND id < ?"
		args = append(args, beforeID)
	}
	q += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EntryID, &e.Category, &e.Name, &e.ConversationID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountEvents returns the number of entries per category.
func (db *DB) CountEvents() (map[string]int, error) {
	rows, err := db.Query(`SELECT category, COUNT(*) FROM events GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		counts[cat] = n
	}
	return counts, rows.Err()
}

// PruneEvents deletes entries older than cutoff and returns how many went.
func (db *DB) PruneEvents(cutoff time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM events WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
