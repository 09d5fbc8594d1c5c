package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-can/internal/catalog"
	"github.com/nerrad567/gray-logic-can/internal/dbc"
)

// MessageSummary is the list form of a message.
type MessageSummary struct {
	ID          uint32 `json:"id"`
	IsExtID     bool   `json:"is_ext_id"`
	Name        string `json:"name"`
	Transmitter string `json:"transmitter,omitempty"`
	DLC         uint16 `json:"dlc"`
	SignalCount int    `json:"signal_count"`
}

// loadRequested resolves the snapshot named by ?snapshot= (or the latest)
// and returns it with its database. On failure the response is written and
// ok is false.
func (s *Server) loadRequested(w http.ResponseWriter, r *http.Request) (*catalog.Snapshot, *dbc.Database, bool) {
	snap, err := s.resolveSnapshot(r.Context(), r.URL.Query().Get("snapshot"))
	if err != nil {
		s.writeCatalogError(w, r, err)
		return nil, nil, false
	}
	db, err := s.database(r.Context(), snap.ID)
	if err != nil {
		s.writeCatalogError(w, r, err)
		return nil, nil, false
	}
	return snap, db, true
}

// handleListSnapshots returns all stored snapshots, newest first.
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.catalog.List(r.Context())
	if err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	if snaps == nil {
		snaps = []catalog.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": snaps, "count": len(snaps)})
}

// handleGetSnapshot returns one snapshot's metadata.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleListNodes returns the nodes of a snapshot.
func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	snap, db, ok := s.loadRequested(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot": snap.ID,
		"nodes":    db.Nodes,
		"count":    len(db.Nodes),
	})
}

// handleGetNode returns one node by name.
func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	_, db, ok := s.loadRequested(w, r)
	if !ok {
		return
	}
	node, found := db.Node(chi.URLParam(r, "name"))
	if !found {
		writeNotFound(w, "node not found")
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// handleListMessages returns message summaries of a snapshot.
//
// Query parameters:
//   - snapshot: snapshot id (default: latest of the configured database)
//   - transmitter: only messages sent by this node
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	snap, db, ok := s.loadRequested(w, r)
	if !ok {
		return
	}

	transmitter := r.URL.Query().Get("transmitter")
	messages := make([]MessageSummary, 0, len(db.Messages))
	for i := range db.Messages {
		m := &db.Messages[i]
		if transmitter != "" && m.Transmitter != transmitter {
			continue
		}
		messages = append(messages, MessageSummary{
			ID:          m.ID,
			IsExtID:     m.IsExtID,
			Name:        m.Name,
			Transmitter: m.Transmitter,
			DLC:         m.DLC,
			SignalCount: len(m.Signals),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot": snap.ID,
		"messages": messages,
		"count":    len(messages),
	})
}

// handleGetMessage returns one message with its signals.
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.requestedMessage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// handleGetSignal returns one signal of a message.
func (s *Server) handleGetSignal(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.requestedMessage(w, r)
	if !ok {
		return
	}
	sig, found := msg.Signal(chi.URLParam(r, "name"))
	if !found {
		writeNotFound(w, "signal not found")
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

// requestedMessage resolves the {id} URL parameter against the requested
// snapshot.
func (s *Server) requestedMessage(w http.ResponseWriter, r *http.Request) (*dbc.Message, bool) {
	raw, err := parseMessageID(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid message id")
		return nil, false
	}
	_, db, ok := s.loadRequested(w, r)
	if !ok {
		return nil, false
	}
	msg, found := findMessage(db, raw)
	if !found {
		writeNotFound(w, "message not found")
		return nil, false
	}
	return msg, true
}

// parseMessageID accepts decimal or 0x-prefixed hex.
func parseMessageID(s string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// findMessage looks a message up by the id exactly as given, then by its
// normalised id, so 0x80000123 also reaches an extended message registered
// as 0x123.
func findMessage(db *dbc.Database, raw uint32) (*dbc.Message, bool) {
	if msg, ok := db.Message(raw); ok {
		return msg, true
	}
	id, _ := dbc.NormalizeID(raw)
	if id == raw {
		return nil, false
	}
	return db.Message(id)
}

// handleBridgeMetrics returns the decoding bridge counters.
func (s *Server) handleBridgeMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.bridge == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "bridge not running")
		return
	}
	writeJSON(w, http.StatusOK, s.bridge.GetMetrics())
}
