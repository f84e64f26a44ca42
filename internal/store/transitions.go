package store

import "time"

// AppendTransition records a connection state change.
func (db *DB) AppendTransition(tr *Transition) error {
	if tr.CreatedAt == 0 {
		tr.CreatedAt = time.Now().UnixMilli()
	}
	res, err := db.Exec(`
		INSERT INTO transitions (from_state, to_state, attempt_count, last_error, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		tr.From, tr.To, tr.AttemptCount, tr.LastError, tr.CreatedAt)
	if err != nil {
		return err
	}
	tr.ID, err = res.LastInsertId()
	return err
}

// ListTransitions returns the most recent transitions, newest first.
func (db *DB) ListTransitions(limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, from_state, to_state, attempt_count, last_error, created_at
		FROM transitions
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Transition
	for rows.Next() {
		var tr Transition
		if err := rows.Scan(&tr.ID, &tr.From, &tr.To, &tr.AttemptCount, &tr.LastError, &tr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
