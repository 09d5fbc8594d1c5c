package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-can/internal/dbc"
)

// Measurement names.
const (
	signalMeasurement = "can_signal"
	buildMeasurement  = "dbc_build"
)

// WriteSignalValue records one decoded signal value. The write is
// non-blocking; points are batched and sent asynchronously.
//
// Example:
//
//	client.WriteSignalValue("vehicle", "EngineData", "RPM", 2150, frameTime)
func (c *Client) WriteSignalValue(bus, message, signal string, value float64, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.points.WritePoint(signalPoint(bus, message, signal, value, ts))
}

// WriteBuildStats records the counters of a database build.
func (c *Client) WriteBuildStats(database string, stats dbc.Stats) {
	if !c.IsConnected() {
		return
	}
	c.points.WritePoint(buildPoint(database, stats, time.Now()))
}

func signalPoint(bus, message, signal string, value float64, ts time.Time) *write.Point {
	return write.NewPoint(
		signalMeasurement,
		map[string]string{
			"bus":     bus,
			"message": message,
			"signal":  signal,
		},
		map[string]interface{}{
			"value": value,
		},
		ts,
	)
}

func buildPoint(database string, stats dbc.Stats, ts time.Time) *write.Point {
	return write.NewPoint(
		buildMeasurement,
		map[string]string{
			"database": database,
		},
		map[string]interface{}{
			"nodes":     stats.Nodes,
			"messages":  stats.Messages,
			"signals":   stats.Signals,
			"dropped":   stats.Dropped,
			"defaulted": stats.Defaulted,
		},
		ts,
	)
}
