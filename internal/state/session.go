package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tessellate-ai/maestro/internal/blackboard"
	"github.com/tessellate-ai/maestro/pkg/models"
)

// Session is the persisted record of one orchestration run.
type Session struct {
	ID         string                 `json:"id"`
	Query      string                 `json:"query"`
	Strategy   string                 `json:"strategy"`
	Outcome    models.SessionOutcome  `json:"outcome"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
}

const timeLayout = time.RFC3339Nano

// CreateSession inserts a new session record.
func (db *DB) CreateSession(s *Session) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(`
		INSERT INTO sessions (id, query, strategy, outcome, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ID, s.Query, s.Strategy, string(s.Outcome), s.StartedAt.Format(timeLayout), s.DurationMs)
	if err != nil {
		return fmt.Errorf("create session %s: %w", s.ID, err)
	}
	return nil
}

// FinishSession records a session's terminal outcome.
func (db *DB) FinishSession(id string, outcome models.SessionOutcome, strategy string, durationMs int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	res, err := db.conn.Exec(`
		UPDATE sessions SET outcome = ?, strategy = ?, finished_at = ?, duration_ms = ?
		WHERE id = ?
	`, string(outcome), strategy, time.Now().Format(timeLayout), durationMs, id)
	if err != nil {
		return fmt.Errorf("finish session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("finish session %s: not found", id)
	}
	return nil
}

// GetSession returns one session record.
func (db *DB) GetSession(id string) (*Session, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	row := db.conn.QueryRow(`
		SELECT id, query, strategy, outcome, started_at, finished_at, duration_ms
		FROM sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

// ListSessions returns sessions newest first, capped at limit.
func (db *DB) ListSessions(limit int) ([]*Session, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT id, query, strategy, outcome, started_at, finished_at, duration_ms
		FROM sessions ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var s Session
	var outcome, started string
	var finished sql.NullString
	if err := row.Scan(&s.ID, &s.Query, &s.Strategy, &outcome, &started, &finished, &s.DurationMs); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	s.Outcome = models.SessionOutcome(outcome)

	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	s.StartedAt = t
	if finished.Valid {
		ft, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		s.FinishedAt = &ft
	}
	return &s, nil
}

// SaveSnapshot persists a blackboard snapshot for a session.
func (db *DB) SaveSnapshot(sessionID string, snap *blackboard.Snapshot) error {
	blob, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	_, err = db.conn.Exec(`
		INSERT INTO snapshots (session_id, taken_at, blob) VALUES (?, ?, ?)
	`, sessionID, snap.TakenAt.Format(timeLayout), blob)
	if err != nil {
		return fmt.Errorf("save snapshot for %s: %w", sessionID, err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot for a session.
func (db *DB) LatestSnapshot(sessionID string) (*blackboard.Snapshot, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var blob []byte
	err := db.conn.QueryRow(`
		SELECT blob FROM snapshots WHERE session_id = ?
		ORDER BY taken_at DESC LIMIT 1
	`, sessionID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no snapshot for session %s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot for %s: %w", sessionID, err)
	}
	return blackboard.UnmarshalSnapshot(blob)
}

// AppendEvent persists one blackboard event under the session's log.
// Sequence numbers are assigned monotonically per session.
func (db *DB) AppendEvent(sessionID string, ev blackboard.Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	_, err = db.conn.Exec(`
		INSERT INTO events (session_id, seq, type, agent, occurred, data)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM events WHERE session_id = ?), ?, ?, ?, ?)
	`, sessionID, sessionID, string(ev.Type), ev.Agent, ev.Timestamp.Format(timeLayout), string(data))
	if err != nil {
		return fmt.Errorf("append event for %s: %w", sessionID, err)
	}
	return nil
}

// StoredEvent is one persisted event-log row.
type StoredEvent struct {
	Seq      int                  `json:"seq"`
	Type     blackboard.EventType `json:"type"`
	Agent    string               `json:"agent,omitempty"`
	Occurred time.Time            `json:"occurred"`
	Data     map[string]any       `json:"data"`
}

// ListEvents returns a session's event log in sequence order.
func (db *DB) ListEvents(sessionID string) ([]StoredEvent, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(`
		SELECT seq, type, agent, occurred, data FROM events
		WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		var typ, occurred, data string
		if err := rows.Scan(&ev.Seq, &typ, &ev.Agent, &occurred, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = blackboard.EventType(typ)
		t, err := time.Parse(timeLayout, occurred)
		if err != nil {
			return nil, fmt.Errorf("parse event time: %w", err)
		}
		ev.Occurred = t
		if err := json.Unmarshal([]byte(data), &ev.Data); err != nil {
			return nil, fmt.Errorf("parse event data: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
