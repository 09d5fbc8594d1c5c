package journal

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-can/internal/dbc"
)

// Journal operations. Each maps onto one dbc.Builder method.
const (
	OpAddNode                  = "add_node"
	OpAddMessage               = "add_message"
	OpAddSignal                = "add_signal"
	OpAddCustomProperty        = "add_custom_property"
	OpAddCustomPropertyDefault = "add_custom_property_default"
	OpAddNodeCustomProperty    = "add_node_custom_property"
	OpAddMessageCustomProperty = "add_message_custom_property"
	OpAddSignalCustomProperty  = "add_signal_custom_property"
	OpAddNodeComment           = "add_node_comment"
	OpAddMessageComment        = "add_message_comment"
	OpAddSignalComment         = "add_signal_comment"
	OpAddSignalInitialValue    = "add_signal_initial_value"
	OpAddSignalValueType       = "add_signal_value_type"
	OpAddMessageCycleTime      = "add_message_cycle_time"
	OpAddNamedValueTable       = "add_named_value_table"
	OpLinkTableValuesToSignal  = "link_table_values"
	OpLinkNamedTableToSignal   = "link_named_table"
)

// Journal is an ordered list of construction events for one database.
type Journal struct {
	Name   string  `yaml:"name"`
	Events []Event `yaml:"events"`
}

// Event is one construction step. Which fields are read depends on Op.
type Event struct {
	Op string `yaml:"op"`

	Node     *NodeSpec     `yaml:"node,omitempty"`
	Message  *MessageSpec  `yaml:"message,omitempty"`
	Signal   *SignalSpec   `yaml:"signal,omitempty"`
	Property *PropertySpec `yaml:"property,omitempty"`

	NodeName   string    `yaml:"node_name,omitempty"`
	MessageID  MessageID `yaml:"message_id,omitempty"`
	SignalName string    `yaml:"signal_name,omitempty"`

	PropertyName string `yaml:"property_name,omitempty"`
	Value        string `yaml:"value,omitempty"`
	Comment      string `yaml:"comment,omitempty"`

	InitialValue float64 `yaml:"initial_value,omitempty"`
	ValueType    string  `yaml:"value_type,omitempty"`
	CycleTime    int     `yaml:"cycle_time,omitempty"`

	Table    string         `yaml:"table,omitempty"`
	Values   map[int]string `yaml:"values,omitempty"`
	RawTable string         `yaml:"raw_table,omitempty"`
}

// NodeSpec describes an add_node event.
type NodeSpec struct {
	Name    string `yaml:"name"`
	Comment string `yaml:"comment,omitempty"`
}

// MessageSpec describes an add_message event.
type MessageSpec struct {
	ID          MessageID `yaml:"id"`
	Extended    bool      `yaml:"extended,omitempty"`
	Name        string    `yaml:"name"`
	Transmitter string    `yaml:"transmitter,omitempty"`
	DLC         uint16    `yaml:"dlc"`
}

// SignalSpec describes an add_signal event.
type SignalSpec struct {
	Name         string   `yaml:"name"`
	StartBit     uint16   `yaml:"start_bit"`
	Length       uint16   `yaml:"length"`
	ByteOrder    string   `yaml:"byte_order,omitempty"`
	ValueType    string   `yaml:"value_type,omitempty"`
	Factor       *float64 `yaml:"factor,omitempty"`
	Offset       float64  `yaml:"offset,omitempty"`
	Minimum      float64  `yaml:"minimum,omitempty"`
	Maximum      float64  `yaml:"maximum,omitempty"`
	Unit         string   `yaml:"unit,omitempty"`
	Receivers    []string `yaml:"receivers,omitempty"`
	Multiplexing string   `yaml:"multiplexing,omitempty"`
}

// PropertySpec describes an add_custom_property event.
type PropertySpec struct {
	Kind     string   `yaml:"kind"`
	Name     string   `yaml:"name"`
	DataType string   `yaml:"data_type"`
	Minimum  float64  `yaml:"minimum,omitempty"`
	Maximum  float64  `yaml:"maximum,omitempty"`
	Values   []string `yaml:"values,omitempty"`
}

// MessageID is a raw DBC message id. YAML accepts decimal or 0x-prefixed
// hex so extended ids can be written with bit 31 visible.
type MessageID uint32

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *MessageID) UnmarshalYAML(value *yaml.Node) error {
	n, err := strconv.ParseUint(strings.TrimSpace(value.Value), 0, 32)
	if err != nil {
		return fmt.Errorf("%w: %q (line %d)", ErrInvalidMessageID, value.Value, value.Line)
	}
	*m = MessageID(n)
	return nil
}

// MarshalYAML renders the id as hex.
func (m MessageID) MarshalYAML() (any, error) {
	return fmt.Sprintf("0x%X", uint32(m)), nil
}

// Load reads and parses a journal file.
func Load(path string) (*Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	j, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("journal %s: %w", path, err)
	}
	return j, nil
}

// Parse decodes a journal document.
func Parse(data []byte) (*Journal, error) {
	var j Journal
	if err := yaml.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parsing journal: %w", err)
	}
	return &j, nil
}

// Marshal encodes the journal as YAML.
func (j *Journal) Marshal() ([]byte, error) {
	return yaml.Marshal(j)
}

// Replay applies every event to b in order. It stops at the first event
// that cannot be applied and reports its index.
func (j *Journal) Replay(b *dbc.Builder) error {
	for i := range j.Events {
		if err := apply(b, &j.Events[i]); err != nil {
			return fmt.Errorf("event %d (%s): %w", i, j.Events[i].Op, err)
		}
	}
	return nil
}

//nolint:gocognit,gocyclo // one case per builder operation
func apply(b *dbc.Builder, e *Event) error {
	id := uint32(e.MessageID)

	switch e.Op {
	case OpAddNode:
		if e.Node == nil {
			return fmt.Errorf("%w: node", ErrMissingField)
		}
		b.AddNode(dbc.Node{Name: e.Node.Name, Comment: e.Node.Comment})

	case OpAddMessage:
		if e.Message == nil {
			return fmt.Errorf("%w: message", ErrMissingField)
		}
		msgID, ext := dbc.NormalizeID(uint32(e.Message.ID))
		b.AddMessage(dbc.Message{
			ID:          msgID,
			IsExtID:     ext || e.Message.Extended,
			Name:        e.Message.Name,
			Transmitter: e.Message.Transmitter,
			DLC:         e.Message.DLC,
		})

	case OpAddSignal:
		if e.Signal == nil {
			return fmt.Errorf("%w: signal", ErrMissingField)
		}
		sig, err := e.Signal.toSignal()
		if err != nil {
			return err
		}
		b.AddSignal(sig)

	case OpAddCustomProperty:
		if e.Property == nil {
			return fmt.Errorf("%w: property", ErrMissingField)
		}
		kind, err := dbc.ParseObjectType(e.Property.Kind)
		if err != nil {
			return err
		}
		return b.AddCustomProperty(kind, e.Property.toDefinition())

	case OpAddCustomPropertyDefault:
		return b.AddCustomPropertyDefaultValue(e.PropertyName, e.Value)

	case OpAddNodeCustomProperty:
		return b.AddNodeCustomProperty(e.PropertyName, e.NodeName, e.Value)

	case OpAddMessageCustomProperty:
		return b.AddMessageCustomProperty(e.PropertyName, id, e.Value)

	case OpAddSignalCustomProperty:
		return b.AddSignalCustomProperty(e.PropertyName, id, e.SignalName, e.Value)

	case OpAddNodeComment:
		b.AddNodeComment(e.NodeName, e.Comment)

	case OpAddMessageComment:
		b.AddMessageComment(id, e.Comment)

	case OpAddSignalComment:
		b.AddSignalComment(id, e.SignalName, e.Comment)

	case OpAddSignalInitialValue:
		b.AddSignalInitialValue(id, e.SignalName, e.InitialValue)

	case OpAddSignalValueType:
		vt, err := dbc.ParseValueType(e.ValueType)
		if err != nil {
			return err
		}
		b.AddSignalValueType(id, e.SignalName, vt)

	case OpAddMessageCycleTime:
		b.AddMessageCycleTime(id, e.CycleTime)

	case OpAddNamedValueTable:
		if e.Table == "" {
			return fmt.Errorf("%w: table", ErrMissingField)
		}
		b.AddNamedValueTable(e.Table, e.Values, e.RawTable)

	case OpLinkTableValuesToSignal:
		b.LinkTableValuesToSignal(id, e.SignalName, e.Values, e.RawTable)

	case OpLinkNamedTableToSignal:
		b.LinkNamedTableToSignal(id, e.SignalName, e.Table)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, e.Op)
	}
	return nil
}

func (s *SignalSpec) toSignal() (dbc.Signal, error) {
	order, err := parseByteOrder(s.ByteOrder)
	if err != nil {
		return dbc.Signal{}, err
	}
	vt, err := dbc.ParseValueType(s.ValueType)
	if err != nil {
		return dbc.Signal{}, err
	}
	factor := 1.0
	if s.Factor != nil {
		factor = *s.Factor
	}
	return dbc.Signal{
		Name:         s.Name,
		StartBit:     s.StartBit,
		Length:       s.Length,
		ByteOrder:    order,
		ValueType:    vt,
		Factor:       factor,
		Offset:       s.Offset,
		Minimum:      s.Minimum,
		Maximum:      s.Maximum,
		Unit:         s.Unit,
		Receivers:    s.Receivers,
		Multiplexing: s.Multiplexing,
	}, nil
}

func (p *PropertySpec) toDefinition() dbc.CustomPropertyDefinition {
	return dbc.CustomPropertyDefinition{
		Name:         p.Name,
		DataType:     dbc.DataType(strings.ToUpper(p.DataType)),
		IntMinimum:   int(p.Minimum),
		IntMaximum:   int(p.Maximum),
		FloatMinimum: p.Minimum,
		FloatMaximum: p.Maximum,
		EnumValues:   p.Values,
	}
}

// parseByteOrder accepts the names and the DBC digits: 0 is Motorola and 1
// is Intel. Empty defaults to Intel.
func parseByteOrder(s string) (byte, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "intel", "little", "1":
		return dbc.ByteOrderIntel, nil
	case "motorola", "big", "0":
		return dbc.ByteOrderMotorola, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidByteOrder, s)
	}
}
