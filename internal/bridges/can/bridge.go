package can

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-can/internal/dbc"
)

// frameQoS is used for the frame subscription and state publishes.
const frameQoS = 1

// Logger is the structured logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MQTTClient is the interface for MQTT operations.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// Unsubscribe removes subscriptions.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// MetricWriter receives every decoded signal value. It is satisfied by
// the InfluxDB client.
type MetricWriter interface {
	WriteSignalValue(bus, message, signal string, value float64, ts time.Time)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Bus names the CAN bus; it forms part of every topic.
	Bus string

	// Database supplies message definitions. It can be replaced later
	// with SetDatabase.
	Database *dbc.Database

	// MQTTClient is required.
	MQTTClient MQTTClient

	// Metrics is optional.
	Metrics MetricWriter

	// Logger is optional.
	Logger Logger

	// HealthInterval defaults to 30 seconds.
	HealthInterval time.Duration
}

// frameKey identifies a message by normalised id and frame format.
type frameKey struct {
	id       uint32
	extended bool
}

// Bridge decodes CAN frames received over MQTT and publishes signal values.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	bus     string
	mqtt    MQTTClient
	metrics MetricWriter
	health  *HealthReporter

	index   map[frameKey]*dbc.Message
	indexMu sync.RWMutex

	// State cache for change detection, keyed by message.
	stateCache   map[frameKey][]SignalValue
	stateCacheMu sync.Mutex

	framesRx      atomic.Uint64
	framesDecoded atomic.Uint64
	framesUnknown atomic.Uint64
	errorCount    atomic.Uint64

	started  atomic.Bool
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a bridge. Call Start to subscribe.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, errors.New("MQTT client is required")
	}
	if opts.Bus == "" {
		return nil, errors.New("bus name is required")
	}

	b := &Bridge{
		bus:        opts.Bus,
		mqtt:       opts.MQTTClient,
		metrics:    opts.Metrics,
		stateCache: make(map[frameKey][]SignalValue),
		logger:     opts.Logger,
	}
	b.index = buildIndex(opts.Database)

	b.health = newHealthReporter(opts.Bus, opts.HealthInterval, opts.MQTTClient, b)
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}
	return b, nil
}

// Start subscribes to the bus's frame topic and begins health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	topic := topics.CANFrame(b.bus)
	if err := b.mqtt.Subscribe(topic, frameQoS, b.handleFrameMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	b.started.Store(true)
	b.health.Start(ctx)

	b.logInfo("CAN bridge started", "bus", b.bus, "topic", topic, "messages", b.messageCount())
	return nil
}

// Stop unsubscribes and stops health reporting. Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		if b.started.Load() {
			if err := b.mqtt.Unsubscribe(topics.CANFrame(b.bus)); err != nil {
				b.logError("failed to unsubscribe", err)
			}
		}
		b.health.Stop()
		b.logInfo("CAN bridge stopped", "bus", b.bus)
	})
}

// SetDatabase swaps the message definitions and clears the state cache.
func (b *Bridge) SetDatabase(db *dbc.Database) {
	index := buildIndex(db)

	b.indexMu.Lock()
	b.index = index
	b.indexMu.Unlock()

	b.clearStateCache()
	b.logInfo("CAN database reloaded", "bus", b.bus, "messages", len(index))
}

// clearStateCache forgets previously published values so the next frame of
// every message is published.
func (b *Bridge) clearStateCache() {
	b.stateCacheMu.Lock()
	b.stateCache = make(map[frameKey][]SignalValue)
	b.stateCacheMu.Unlock()
}

func buildIndex(db *dbc.Database) map[frameKey]*dbc.Message {
	index := make(map[frameKey]*dbc.Message)
	if db == nil {
		return index
	}
	for i := range db.Messages {
		m := &db.Messages[i]
		id, ext := dbc.NormalizeID(m.ID)
		index[frameKey{id: id, extended: ext || m.IsExtID}] = m
	}
	return index
}

func (b *Bridge) lookup(f Frame) (*dbc.Message, bool) {
	b.indexMu.RLock()
	defer b.indexMu.RUnlock()

	m, ok := b.index[frameKey{id: f.ID, extended: f.Extended}]
	return m, ok
}

// handleFrameMessage is the MQTT handler for the frame topic.
func (b *Bridge) handleFrameMessage(_ string, payload []byte) {
	b.framesRx.Add(1)

	f, err := ParseFrame(payload)
	if err != nil {
		b.errorCount.Add(1)
		b.logError("discarding frame", err)
		return
	}
	if err := b.HandleFrame(f); err != nil && !errors.Is(err, ErrUnknownMessage) {
		b.errorCount.Add(1)
		b.logError("failed to handle frame", err)
	}
}

// HandleFrame decodes one frame and publishes the result if any signal
// changed since the last frame of the same message.
func (b *Bridge) HandleFrame(f Frame) error {
	msg, ok := b.lookup(f)
	if !ok {
		b.framesUnknown.Add(1)
		b.logDebug("unknown CAN id", "bus", b.bus, "id", f.ID, "extended", f.Extended)
		return fmt.Errorf("%w: %#x", ErrUnknownMessage, f.ID)
	}

	values, skipped := DecodeMessage(msg, f.Data)
	for _, err := range skipped {
		b.logDebug("signal skipped", "bus", b.bus, "message", msg.Name, "reason", err.Error())
	}
	b.framesDecoded.Add(1)

	ts := f.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()

	if b.metrics != nil {
		for _, v := range values {
			b.metrics.WriteSignalValue(b.bus, msg.Name, v.Name, v.Value, ts)
		}
	}

	key := frameKey{id: f.ID, extended: f.Extended}
	if b.stateUnchanged(key, values) {
		return nil
	}

	state := StateMessage{
		Bus:       b.bus,
		Message:   msg.Name,
		ID:        f.ID,
		Extended:  f.Extended,
		Timestamp: ts,
		Signals:   values,
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}
	if err := b.mqtt.Publish(topics.CANState(b.bus, msg.Name), payload, frameQoS, true); err != nil {
		return fmt.Errorf("publishing state: %w", err)
	}
	return nil
}

// stateUnchanged reports whether values equal the cached values for the
// message, updating the cache when they differ.
func (b *Bridge) stateUnchanged(key frameKey, values []SignalValue) bool {
	b.stateCacheMu.Lock()
	defer b.stateCacheMu.Unlock()

	cached, ok := b.stateCache[key]
	if ok && slices.Equal(cached, values) {
		return true
	}
	b.stateCache[key] = slices.Clone(values)
	return false
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	b.health.SetLogger(logger)
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "bus", b.bus, "error", err)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// BridgeMetrics contains metrics data for the API.
type BridgeMetrics struct {
	Bus        string           `json:"bus"`
	Connected  bool             `json:"connected"`
	Messages   int              `json:"messages"`
	Statistics BridgeStatistics `json:"statistics"`
}

// GetMetrics returns current bridge counters.
func (b *Bridge) GetMetrics() BridgeMetrics {
	return BridgeMetrics{
		Bus:        b.bus,
		Connected:  b.mqtt.IsConnected(),
		Messages:   b.messageCount(),
		Statistics: b.statistics(),
	}
}

func (b *Bridge) statistics() BridgeStatistics {
	return BridgeStatistics{
		FramesReceived: b.framesRx.Load(),
		FramesDecoded:  b.framesDecoded.Load(),
		FramesUnknown:  b.framesUnknown.Load(),
		Errors:         b.errorCount.Load(),
	}
}

func (b *Bridge) messageCount() int {
	b.indexMu.RLock()
	defer b.indexMu.RUnlock()
	return len(b.index)
}
