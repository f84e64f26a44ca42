package store

import "time"

// AddMembership records that the profile joined a conversation (idempotent).
func (db *DB) AddMembership(conversationID string) error {
	_, err := db.Exec(`
		INSERT INTO memberships (conversation_id, joined_at)
		VALUES (?, ?)
		ON CONFLICT(conversation_id) DO NOTHING`,
		conversationID, time.Now().UnixMilli())
	return err
}

// RemoveMembership forgets a conversation. Removing an unknown one is not an error.
func (db *DB) RemoveMembership(conversationID string) error {
	_, err := db.Exec(`DELETE FROM memberships WHERE conversation_id = ?`, conversationID)
	return err
}

// ClearMemberships forgets every conversation, e.g. on logout.
func (db *DB) ClearMemberships() error {
	_, err := db.Exec(`DELETE FROM memberships`)
	return err
}

// ListMemberships returns joined conversations in join order.
func (db *DB) ListMemberships() ([]Membership, error) {
	rows, err := db.Query(`SELECT conversation_id, joined_at FROM memberships ORDER BY joined_at, conversation_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.ConversationID, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
