package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-can/internal/dbc"
)

// Repository defines snapshot persistence operations.
type Repository interface {
	// Save stores db as a new snapshot of the named database.
	Save(ctx context.Context, name string, db *dbc.Database) (*Snapshot, error)

	// Get returns snapshot metadata by id.
	// Returns ErrSnapshotNotFound if the snapshot does not exist.
	Get(ctx context.Context, id string) (*Snapshot, error)

	// Latest returns the most recent snapshot of the named database.
	// Returns ErrSnapshotNotFound if none exists.
	Latest(ctx context.Context, name string) (*Snapshot, error)

	// List returns all snapshots, newest first.
	List(ctx context.Context) ([]Snapshot, error)

	// LoadDatabase reconstructs the database stored in a snapshot.
	LoadDatabase(ctx context.Context, id string) (*dbc.Database, error)

	// Delete removes a snapshot and everything stored under it.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The schema comes from the migrations package.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const snapshotColumns = `id, name, created_at, node_count, message_count, signal_count`

// timeLayout has fixed-width fractional seconds so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Save stores db under a fresh UUID in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, name string, db *dbc.Database) (*Snapshot, error) {
	if name == "" || db == nil {
		return nil, ErrInvalidSnapshot
	}

	snap := &Snapshot{
		ID:           uuid.NewString(),
		Name:         name,
		CreatedAt:    r.now().UTC(),
		NodeCount:    len(db.Nodes),
		MessageCount: len(db.Messages),
		SignalCount:  db.SignalCount(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Name, snap.CreatedAt.Format(timeLayout),
		snap.NodeCount, snap.MessageCount, snap.SignalCount,
	); err != nil {
		return nil, fmt.Errorf("inserting snapshot: %w", err)
	}

	if err := insertNodes(ctx, tx, snap.ID, db.Nodes); err != nil {
		return nil, err
	}
	if err := insertMessages(ctx, tx, snap.ID, db.Messages); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing snapshot: %w", err)
	}
	return snap, nil
}

// Get returns snapshot metadata by id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("querying snapshot by id: %w", err)
	}
	return snap, nil
}

// Latest returns the newest snapshot of the named database.
func (r *SQLiteRepository) Latest(ctx context.Context, name string) (*Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE name = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, name)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	return snap, nil
}

// List returns all snapshots, newest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snaps = append(snaps, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snaps, nil
}

// LoadDatabase reconstructs the database stored under id, preserving the
// original node, message and signal order.
func (r *SQLiteRepository) LoadDatabase(ctx context.Context, id string) (*dbc.Database, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}

	nodes, err := r.loadNodes(ctx, id)
	if err != nil {
		return nil, err
	}
	messages, err := r.loadMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadSignals(ctx, id, messages); err != nil {
		return nil, err
	}

	return &dbc.Database{Nodes: nodes, Messages: messages}, nil
}

// Delete removes a snapshot. Nodes, messages and signals cascade.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

func insertNodes(ctx context.Context, tx *sql.Tx, snapshotID string, nodes []dbc.Node) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (snapshot_id, position, name, comment, custom_properties)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing node insert: %w", err)
	}
	defer stmt.Close()

	for i, n := range nodes {
		props, err := marshalJSON(n.CustomProperties, "{}")
		if err != nil {
			return fmt.Errorf("marshalling node %s properties: %w", n.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, snapshotID, i, n.Name, n.Comment, props); err != nil {
			return fmt.Errorf("inserting node %s: %w", n.Name, err)
		}
	}
	return nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, snapshotID string, messages []dbc.Message) error {
	msgStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (
			snapshot_id, position, id, is_ext_id, name, transmitter, dlc,
			cycle_time, has_cycle_time, comment, custom_properties
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing message insert: %w", err)
	}
	defer msgStmt.Close()

	sigStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals (
			snapshot_id, message_id, position, name, start_bit, length,
			byte_order, value_type, factor, value_offset, minimum, maximum,
			unit, receivers, initial_value, comment, multiplexing,
			value_table_map, value_table, custom_properties
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing signal insert: %w", err)
	}
	defer sigStmt.Close()

	for i := range messages {
		m := &messages[i]
		props, err := marshalJSON(m.CustomProperties, "{}")
		if err != nil {
			return fmt.Errorf("marshalling message %d properties: %w", m.ID, err)
		}
		if _, err := msgStmt.ExecContext(ctx,
			snapshotID, i, m.ID, m.IsExtID, m.Name, m.Transmitter, m.DLC,
			m.CycleTime, m.HasCycleTime, m.Comment, props,
		); err != nil {
			return fmt.Errorf("inserting message %d: %w", m.ID, err)
		}

		for j := range m.Signals {
			if err := insertSignal(ctx, sigStmt, snapshotID, m.ID, j, &m.Signals[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertSignal(ctx context.Context, stmt *sql.Stmt, snapshotID string, messageID uint32, position int, s *dbc.Signal) error {
	receivers, err := marshalJSON(s.Receivers, "[]")
	if err != nil {
		return fmt.Errorf("marshalling signal %s receivers: %w", s.Name, err)
	}
	props, err := marshalJSON(s.CustomProperties, "{}")
	if err != nil {
		return fmt.Errorf("marshalling signal %s properties: %w", s.Name, err)
	}

	var valueTable any
	if s.ValueTableMap != nil {
		data, err := json.Marshal(s.ValueTableMap)
		if err != nil {
			return fmt.Errorf("marshalling signal %s value table: %w", s.Name, err)
		}
		valueTable = string(data)
	}

	if _, err := stmt.ExecContext(ctx,
		snapshotID, messageID, position, s.Name, s.StartBit, s.Length,
		s.ByteOrder, int(s.ValueType), s.Factor, s.Offset, s.Minimum, s.Maximum,
		s.Unit, receivers, s.InitialValue, s.Comment, s.Multiplexing,
		valueTable, s.ValueTable, props,
	); err != nil {
		return fmt.Errorf("inserting signal %d/%s: %w", messageID, s.Name, err)
	}
	return nil
}

func (r *SQLiteRepository) loadNodes(ctx context.Context, snapshotID string) ([]dbc.Node, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, comment, custom_properties
		FROM nodes
		WHERE snapshot_id = ?
		ORDER BY position`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	nodes := []dbc.Node{}
	for rows.Next() {
		var n dbc.Node
		var props string
		if err := rows.Scan(&n.Name, &n.Comment, &props); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		if err := json.Unmarshal([]byte(props), &n.CustomProperties); err != nil {
			return nil, fmt.Errorf("unmarshalling node %s properties: %w", n.Name, err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}
	return nodes, nil
}

func (r *SQLiteRepository) loadMessages(ctx context.Context, snapshotID string) ([]dbc.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, is_ext_id, name, transmitter, dlc, cycle_time,
			has_cycle_time, comment, custom_properties
		FROM messages
		WHERE snapshot_id = ?
		ORDER BY position`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := []dbc.Message{}
	for rows.Next() {
		var m dbc.Message
		var props string
		if err := rows.Scan(
			&m.ID, &m.IsExtID, &m.Name, &m.Transmitter, &m.DLC, &m.CycleTime,
			&m.HasCycleTime, &m.Comment, &props,
		); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if err := json.Unmarshal([]byte(props), &m.CustomProperties); err != nil {
			return nil, fmt.Errorf("unmarshalling message %d properties: %w", m.ID, err)
		}
		m.Signals = []dbc.Signal{}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return messages, nil
}

// loadSignals attaches each stored signal to its message in messages.
func (r *SQLiteRepository) loadSignals(ctx context.Context, snapshotID string, messages []dbc.Message) error {
	index := make(map[uint32]int, len(messages))
	for i := range messages {
		index[messages[i].ID] = i
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id, name, start_bit, length, byte_order, value_type,
			factor, value_offset, minimum, maximum, unit, receivers,
			initial_value, comment, multiplexing, value_table_map,
			value_table, custom_properties
		FROM signals
		WHERE snapshot_id = ?
		ORDER BY message_id, position`, snapshotID)
	if err != nil {
		return fmt.Errorf("querying signals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s dbc.Signal
		var valueType int
		var receivers, props string
		var valueTable sql.NullString
		if err := rows.Scan(
			&s.ID, &s.Name, &s.StartBit, &s.Length, &s.ByteOrder, &valueType,
			&s.Factor, &s.Offset, &s.Minimum, &s.Maximum, &s.Unit, &receivers,
			&s.InitialValue, &s.Comment, &s.Multiplexing, &valueTable,
			&s.ValueTable, &props,
		); err != nil {
			return fmt.Errorf("scanning signal: %w", err)
		}
		s.ValueType = dbc.ValueType(valueType)

		if err := json.Unmarshal([]byte(receivers), &s.Receivers); err != nil {
			return fmt.Errorf("unmarshalling signal %s receivers: %w", s.Name, err)
		}
		if err := json.Unmarshal([]byte(props), &s.CustomProperties); err != nil {
			return fmt.Errorf("unmarshalling signal %s properties: %w", s.Name, err)
		}
		if valueTable.Valid {
			if err := json.Unmarshal([]byte(valueTable.String), &s.ValueTableMap); err != nil {
				return fmt.Errorf("unmarshalling signal %s value table: %w", s.Name, err)
			}
		}

		i, ok := index[s.ID]
		if !ok {
			return fmt.Errorf("signal %s references unknown message %d", s.Name, s.ID)
		}
		messages[i].Signals = append(messages[i].Signals, s)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating signals: %w", err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*Snapshot, error) {
	var snap Snapshot
	var createdAt string
	if err := row.Scan(
		&snap.ID, &snap.Name, &createdAt,
		&snap.NodeCount, &snap.MessageCount, &snap.SignalCount,
	); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	snap.CreatedAt = t
	return &snap, nil
}

// marshalJSON encodes v, writing empty for nil or empty collections.
func marshalJSON[T any](v T, empty string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if s := string(data); s != "null" {
		return s, nil
	}
	return empty, nil
}
