package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/wesm/interviewlens/internal/record"
)

// createdLayout sorts lexically in chronological order.
const createdLayout = "2006-01-02T15:04:05.000Z"

// ErrNoSessionID is returned for a session payload without an
// id.
var ErrNoSessionID = errors.New("session payload has no id")

// Batch is a set of raw payloads written in one transaction.
// Turns are grouped by their sessionId field; each group replaces
// the stored turns of that session. When Path is set the file is
// recorded as imported.
type Batch struct {
	Sessions []json.RawMessage
	Turns    []json.RawMessage

	Path  string
	Hash  string
	Mtime int64
}

// ImportResult counts what a Batch wrote.
type ImportResult struct {
	Sessions int `json:"sessions"`
	Turns    int `json:"turns"`
	Skipped  int `json:"skipped"`
}

// UpsertSession stores a raw session payload, replacing any
// stored payload with the same id. It returns the session id.
func (db *DB) UpsertSession(raw []byte) (string, error) {
	var id string
	err := db.Update(func(tx *sql.Tx) error {
		var err error
		id, err = upsertSession(tx, raw)
		return err
	})
	return id, err
}

// ReplaceTurns replaces every stored turn of sessionID with raws.
// A turn's index comes from its payload, else its position.
// Entries that are not JSON objects are skipped.
func (db *DB) ReplaceTurns(
	sessionID string, raws []json.RawMessage,
) error {
	return db.Update(func(tx *sql.Tx) error {
		_, err := replaceTurns(tx, sessionID, raws)
		return err
	})
}

// Import writes a batch atomically.
func (db *DB) Import(b Batch) (ImportResult, error) {
	var res ImportResult
	err := db.Update(func(tx *sql.Tx) error {
		res = ImportResult{}
		for _, raw := range b.Sessions {
			_, err := upsertSession(tx, raw)
			if errors.Is(err, ErrNoSessionID) {
				res.Skipped++
				continue
			}
			if err != nil {
				return err
			}
			res.Sessions++
		}

		var order []string
		groups := make(map[string][]json.RawMessage)
		for _, raw := range b.Turns {
			sid := gjson.GetBytes(raw, "sessionId").Str
			if sid == "" {
				res.Skipped++
				continue
			}
			if _, ok := groups[sid]; !ok {
				order = append(order, sid)
			}
			groups[sid] = append(groups[sid], raw)
		}
		for _, sid := range order {
			n, err := replaceTurns(tx, sid, groups[sid])
			if err != nil {
				return err
			}
			res.Turns += n
			res.Skipped += len(groups[sid]) - n
		}

		if b.Path != "" {
			return recordImport(tx, b.Path, b.Hash, b.Mtime)
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

func compact(raw []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func upsertSession(tx *sql.Tx, raw []byte) (string, error) {
	doc, err := compact(raw)
	if err != nil {
		return "", fmt.Errorf("session payload: %w", err)
	}
	s, ok := record.NormalizeSession(gjson.Parse(doc))
	if !ok {
		return "", ErrNoSessionID
	}
	owner := record.Identity{UserID: s.UserID, Email: s.UserEmail}.Normalize()

	var created any
	if s.CreatedAt != nil {
		created = s.CreatedAt.UTC().Format(createdLayout)
	}
	_, err = tx.Exec(`
		INSERT INTO sessions (id, user_id, user_email, created_at, doc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			user_email = excluded.user_email,
			created_at = excluded.created_at,
			doc = excluded.doc,
			imported_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		s.ID, owner.UserID, owner.Email, created, doc,
	)
	if err != nil {
		return "", fmt.Errorf("upserting session %s: %w", s.ID, err)
	}
	return s.ID, nil
}

// replaceTurns returns the number of turns written.
func replaceTurns(
	tx *sql.Tx, sessionID string, raws []json.RawMessage,
) (int, error) {
	if _, err := tx.Exec(
		"DELETE FROM turns WHERE session_id = ?", sessionID,
	); err != nil {
		return 0, fmt.Errorf("deleting turns of %s: %w", sessionID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO turns (session_id, idx, doc) VALUES (?, ?, ?)
		ON CONFLICT(session_id, idx) DO UPDATE SET doc = excluded.doc`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	n := 0
	for pos, raw := range raws {
		doc, err := compact(raw)
		if err != nil {
			continue
		}
		v := gjson.Parse(doc)
		if !v.IsObject() {
			continue
		}
		t := record.NormalizeTurn(sessionID, pos, v)
		if _, err := stmt.Exec(sessionID, t.Index, doc); err != nil {
			return n, fmt.Errorf(
				"inserting turn %s/%d: %w", sessionID, t.Index, err,
			)
		}
		n++
	}
	return n, nil
}

// ListSessions returns the stored session payloads of id as a
// JSON array, newest first. Sessions are matched on user id when
// the identity has one, else on email. An empty identity matches
// nothing.
func (db *DB) ListSessions(
	ctx context.Context, id record.Identity,
) ([]byte, error) {
	id = id.Normalize()
	var where, arg string
	switch {
	case id.UserID != "":
		where, arg = "user_id = ?", id.UserID
	case id.Email != "":
		where, arg = "user_email = ?", id.Email
	default:
		return []byte("[]"), nil
	}

	rows, err := db.reader.QueryContext(ctx, `
		SELECT doc FROM sessions WHERE `+where+`
		ORDER BY created_at IS NULL, created_at DESC, id`, arg)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	docs := []json.RawMessage{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		docs = append(docs, json.RawMessage(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return json.Marshal(docs)
}

type detailResponse struct {
	Session json.RawMessage   `json:"session"`
	Turns   []json.RawMessage `json:"turns"`
}

// SessionDetail returns {"session": ..., "turns": [...]} for
// sessionID with turns in index order. An unknown session yields
// {"session": {"sessionId": id}, "turns": []}, as the service
// does.
func (db *DB) SessionDetail(
	ctx context.Context, sessionID string,
) ([]byte, error) {
	resp := detailResponse{Turns: []json.RawMessage{}}

	var doc string
	err := db.reader.QueryRowContext(ctx,
		"SELECT doc FROM sessions WHERE id = ?", sessionID,
	).Scan(&doc)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		stub, err := json.Marshal(map[string]string{
			"sessionId": sessionID,
		})
		if err != nil {
			return nil, err
		}
		resp.Session = stub
	case err != nil:
		return nil, fmt.Errorf("getting session %s: %w", sessionID, err)
	default:
		resp.Session = json.RawMessage(doc)
	}

	rows, err := db.reader.QueryContext(ctx,
		"SELECT doc FROM turns WHERE session_id = ? ORDER BY idx",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing turns of %s: %w", sessionID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		resp.Turns = append(resp.Turns, json.RawMessage(t))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing turns of %s: %w", sessionID, err)
	}
	return json.Marshal(resp)
}
