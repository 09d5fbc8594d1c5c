package catalog

import "time"

// Snapshot describes one stored build of a named DBC database.
type Snapshot struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	NodeCount    int       `json:"node_count"`
	MessageCount int       `json:"message_count"`
	SignalCount  int       `json:"signal_count"`
}
