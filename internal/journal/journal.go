package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/metrics"
)

// recorded lists the event types the journal persists. Tick and chat
// traffic is high-volume but still cheap enough to keep; the session
// and anomaly rows are the ones that matter for postmortems.
var recorded = []events.EventType{
	events.EventLoginAccepted,
	events.EventLoginRefused,
	events.EventCharacterList,
	events.EventCharSelectRefused,
	events.EventZoneHandoff,
	events.EventEnterWorld,
	events.EventChat,
	events.EventActorVanished,
	events.EventMapChange,
	events.EventItemGained,
	events.EventItemRemoved,
	events.EventStatusChanged,
	events.EventSessionConnected,
	events.EventSessionBound,
	events.EventSessionDisconnected,
	events.EventUnknownOpcode,
	events.EventMalformedFrame,
	events.EventSessionStale,
	events.EventConfigChanged,
}

// Entry is one persisted event row.
type Entry struct {
	ID      int64     `json:"id"`
	At      time.Time `json:"at"`
	Type    string    `json:"type"`
	Source  string    `json:"source"`
	Payload string    `json:"payload"`
}

// TypeCount is one row of the per-type aggregate.
type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// Journal subscribes to the bus and writes every recorded event to
// SQLite.
type Journal struct {
	store *store
}

// Open creates or opens the journal database and runs its migration.
func Open(dbPath string) (*Journal, error) {
	st, err := openStore(dbPath)
	if err != nil {
		return nil, err
	}
	j := &Journal{store: st}
	if err := j.migrate(); err != nil {
		st.close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			type TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL DEFAULT '{}'
		);

		CREATE INDEX IF NOT EXISTS idx_entries_type ON entries(type);
		CREATE INDEX IF NOT EXISTS idx_entries_at ON entries(at);
	`
	if _, err := j.store.exec(schema); err != nil {
		return err
	}
	return nil
}

// Attach subscribes the journal to every recorded event type.
func (j *Journal) Attach(bus *events.Bus) {
	for _, t := range recorded {
		bus.Subscribe(t, "journal", j.record)
	}
}

// Detach removes the journal's subscriptions.
func (j *Journal) Detach(bus *events.Bus) {
	for _, t := range recorded {
		bus.Unsubscribe(t, "journal")
	}
}

func (j *Journal) record(_ context.Context, ev events.Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		payload = []byte("{}")
	}
	_, err = j.store.exec(
		"INSERT INTO entries (type, source, payload) VALUES (?, ?, ?)",
		string(ev.Type), ev.Source, string(payload),
	)
	if err != nil {
		metrics.JournalErrors.Inc()
		log.Error().Err(err).Str("event", string(ev.Type)).Msg("journal write failed")
		return err
	}
	metrics.JournalWrites.Inc()
	return nil
}

// Recent returns the newest entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.store.query(
		"SELECT id, at, type, source, payload FROM entries ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// ByType returns the newest entries of one event type, newest first.
func (j *Journal) ByType(eventType string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.store.query(
		"SELECT id, at, type, source, payload FROM entries WHERE type = ? ORDER BY id DESC LIMIT ?",
		eventType, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.At, &e.Type, &e.Source, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats aggregates entry counts per event type.
func (j *Journal) Stats() ([]TypeCount, error) {
	rows, err := j.store.query(
		"SELECT type, COUNT(*) FROM entries GROUP BY type ORDER BY COUNT(*) DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TypeCount
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.Type, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// Count returns the total number of entries.
func (j *Journal) Count() (int64, error) {
	var n int64
	err := j.store.queryRow("SELECT COUNT(*) FROM entries").Scan(&n)
	return n, err
}

// Prune deletes entries older than the retention window and returns
// how many were removed.
func (j *Journal) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC()
	res, err := j.store.exec("DELETE FROM entries WHERE at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		log.Info().Int64("removed", n).Msg("journal pruned")
	}
	return n, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.store.close()
}
