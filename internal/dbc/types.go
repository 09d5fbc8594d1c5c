package dbc

import (
	"fmt"
	"strings"
)

// Byte order flags as stored on a Signal.
const (
	// ByteOrderMotorola is big-endian; the start bit addresses the MSB.
	ByteOrderMotorola byte = 0

	// ByteOrderIntel is little-endian; the start bit addresses the LSB.
	ByteOrderIntel byte = 1
)

// ValueType is the numeric representation of a signal's raw value.
type ValueType int

// Signal value types.
const (
	Signed ValueType = iota
	Unsigned
	IEEEFloat
	IEEEDouble
)

// String returns the lowercase name of the value type.
func (v ValueType) String() string {
	switch v {
	case Signed:
		return "signed"
	case Unsigned:
		return "unsigned"
	case IEEEFloat:
		return "float"
	case IEEEDouble:
		return "double"
	default:
		return fmt.Sprintf("ValueType(%d)", int(v))
	}
}

// ParseValueType converts a value type name (signed, unsigned, float,
// double) into a ValueType.
func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "signed", "-":
		return Signed, nil
	case "unsigned", "+", "":
		return Unsigned, nil
	case "float", "ieeefloat":
		return IEEEFloat, nil
	case "double", "ieeedouble":
		return IEEEDouble, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownValueType, s)
	}
}

// Node is an electronic control unit on the bus.
type Node struct {
	Name             string                    `json:"name"`
	Comment          string                    `json:"comment,omitempty"`
	CustomProperties map[string]CustomProperty `json:"custom_properties,omitempty"`
}

// Message is a CAN frame definition.
type Message struct {
	// ID is the identifier as registered. For extended frames the DBC
	// encoding keeps bit 31 set unless the caller normalised it.
	ID uint32 `json:"id"`

	// IsExtID marks a 29-bit identifier.
	IsExtID bool `json:"is_ext_id"`

	Name        string `json:"name"`
	Transmitter string `json:"transmitter,omitempty"`
	DLC         uint16 `json:"dlc"`

	// CycleTime is the transmission period in milliseconds. It is only
	// meaningful when HasCycleTime is set.
	CycleTime    int  `json:"cycle_time,omitempty"`
	HasCycleTime bool `json:"has_cycle_time"`

	Comment          string                    `json:"comment,omitempty"`
	Signals          []Signal                  `json:"signals"`
	CustomProperties map[string]CustomProperty `json:"custom_properties,omitempty"`
}

// Signal is a bit field within a message.
type Signal struct {
	// ID is the owning message's id, stamped when the signal is added.
	ID uint32 `json:"id"`

	Name      string    `json:"name"`
	StartBit  uint16    `json:"start_bit"`
	Length    uint16    `json:"length"`
	ByteOrder byte      `json:"byte_order"`
	ValueType ValueType `json:"value_type"`
	Factor    float64   `json:"factor"`
	Offset    float64   `json:"offset"`
	Minimum   float64   `json:"minimum"`
	Maximum   float64   `json:"maximum"`
	Unit      string    `json:"unit,omitempty"`
	Receivers []string  `json:"receivers,omitempty"`

	// InitialValue is the physical start value (raw × factor + offset).
	InitialValue float64 `json:"initial_value"`

	Comment string `json:"comment,omitempty"`

	// Multiplexing is the raw multiplexer marker: "", "M", "m<n>" or "m<n>M".
	Multiplexing string `json:"multiplexing,omitempty"`

	// ValueTableMap labels raw values. ValueTable keeps the table text as
	// it appeared in the source.
	ValueTableMap map[int]string `json:"value_table_map,omitempty"`
	ValueTable    string         `json:"value_table,omitempty"`

	CustomProperties map[string]CustomProperty `json:"custom_properties,omitempty"`
}

// ValuesTable is a named value table (VAL_TABLE_).
type ValuesTable struct {
	ValueTableMap map[int]string
	ValueTable    string
}

// Database is the finished model returned by Builder.Build.
type Database struct {
	Nodes    []Node    `json:"nodes"`
	Messages []Message `json:"messages"`
}

// Node returns the node with the given name.
func (d *Database) Node(name string) (*Node, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].Name == name {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// Message returns the message registered under id.
func (d *Database) Message(id uint32) (*Message, bool) {
	for i := range d.Messages {
		if d.Messages[i].ID == id {
			return &d.Messages[i], true
		}
	}
	return nil, false
}

// Signal returns the named signal of the message.
func (m *Message) Signal(name string) (*Signal, bool) {
	for i := range m.Signals {
		if m.Signals[i].Name == name {
			return &m.Signals[i], true
		}
	}
	return nil, false
}

// SignalCount returns the number of signals across all messages.
func (d *Database) SignalCount() int {
	n := 0
	for i := range d.Messages {
		n += len(d.Messages[i].Signals)
	}
	return n
}

func (n Node) clone() Node {
	n.CustomProperties = cloneProperties(n.CustomProperties)
	return n
}

func (m Message) clone() Message {
	m.CustomProperties = cloneProperties(m.CustomProperties)
	if m.Signals != nil {
		signals := make([]Signal, len(m.Signals))
		for i := range m.Signals {
			signals[i] = m.Signals[i].clone()
		}
		m.Signals = signals
	}
	return m
}

func (s Signal) clone() Signal {
	if s.Receivers != nil {
		s.Receivers = append([]string(nil), s.Receivers...)
	}
	s.ValueTableMap = cloneValueTable(s.ValueTableMap)
	s.CustomProperties = cloneProperties(s.CustomProperties)
	return s
}

func cloneValueTable(m map[int]string) map[int]string {
	if m == nil {
		return nil
	}
	out := make(map[int]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneProperties(m map[string]CustomProperty) map[string]CustomProperty {
	out := make(map[string]CustomProperty, len(m))
	for k, v := range m {
		out[k] = v.clone()
	}
	return out
}
