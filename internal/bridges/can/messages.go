package can

import (
	"time"

	"github.com/nerrad567/gray-logic-can/internal/infrastructure/mqtt"
)

// topics names every topic the bridge reads or writes.
var topics mqtt.Topics

// StateMessage carries the decoded signals of one received frame.
// Topic: graylogic/can/state/{bus}/{message}
// QoS: 1, Retained: Yes
type StateMessage struct {
	// Bus is the bus name the frame was received on.
	Bus string `json:"bus"`

	// Message is the DBC message name.
	Message string `json:"message"`

	// ID is the normalised frame id.
	ID uint32 `json:"id"`

	Extended bool `json:"extended,omitempty"`

	// Timestamp is the frame timestamp, or the receive time if the frame
	// carried none.
	Timestamp time.Time `json:"timestamp"`

	Signals []SignalValue `json:"signals"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the bridge is operating normally.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the bridge is operating with issues.
	HealthDegraded HealthStatus = "degraded"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports bridge status.
// Topic: graylogic/health/can/{bus}
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bus           string       `json:"bus"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	UptimeSeconds int64        `json:"uptime_seconds"`

	// Messages is the number of message definitions loaded.
	Messages int `json:"messages"`

	Statistics *BridgeStatistics `json:"statistics,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}

// BridgeStatistics contains frame counters.
type BridgeStatistics struct {
	FramesReceived uint64 `json:"frames_received"`
	FramesDecoded  uint64 `json:"frames_decoded"`
	FramesUnknown  uint64 `json:"frames_unknown"`
	Errors         uint64 `json:"errors"`
}
