package dbc

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// recordingLogger captures debug messages for assertions.
type recordingLogger struct {
	noopLogger
	debug []string
}

func (l *recordingLogger) Debug(msg string, _ ...any) {
	l.debug = append(l.debug, msg)
}

func engineMessage(id uint32) Message {
	return Message{ID: id, Name: "EngineData", Transmitter: "ECU", DLC: 8}
}

func rpmSignal() Signal {
	return Signal{
		Name:      "RPM",
		StartBit:  0,
		Length:    16,
		ByteOrder: ByteOrderIntel,
		ValueType: Unsigned,
		Factor:    0.5,
		Offset:    2,
		Maximum:   8000,
		Unit:      "rpm",
		Receivers: []string{"Dash"},
	}
}

func TestBuilderEmpty(t *testing.T) {
	db := NewBuilder().Build()
	if len(db.Nodes) != 0 || len(db.Messages) != 0 {
		t.Errorf("Build() on empty builder = %d nodes, %d messages, want none", len(db.Nodes), len(db.Messages))
	}
}

func TestAddNodeLastWins(t *testing.T) {
	b := NewBuilder()
	b.AddNode(Node{Name: "ECU", Comment: "first"})
	b.AddNode(Node{Name: "Dash"})
	b.AddNode(Node{Name: "ECU", Comment: "second"})

	db := b.Build()
	if len(db.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(db.Nodes))
	}
	if db.Nodes[0].Name != "ECU" || db.Nodes[0].Comment != "second" {
		t.Errorf("Nodes[0] = %+v, want ECU with comment second", db.Nodes[0])
	}
	if db.Nodes[1].Name != "Dash" {
		t.Errorf("Nodes[1].Name = %q, want Dash", db.Nodes[1].Name)
	}
}

func TestNodeNamesCaseSensitive(t *testing.T) {
	b := NewBuilder()
	b.AddNode(Node{Name: "ecu"})
	b.AddNode(Node{Name: "ECU"})
	if got := len(b.Build().Nodes); got != 2 {
		t.Errorf("len(Nodes) = %d, want 2", got)
	}
}

func TestSignalsAttachToCurrentMessage(t *testing.T) {
	b := NewBuilder()
	b.AddMessage(engineMessage(100))
	b.AddSignal(Signal{Name: "A"})
	b.AddSignal(Signal{Name: "B"})
	b.AddMessage(Message{ID: 200, Name: "Other"})
	b.AddSignal(Signal{Name: "C"})

	db := b.Build()
	m100, _ := db.Message(100)
	m200, _ := db.Message(200)

	if got := signalNames(m100); !cmp.Equal(got, []string{"A", "B"}) {
		t.Errorf("message 100 signals = %v, want [A B]", got)
	}
	if got := signalNames(m200); !cmp.Equal(got, []string{"C"}) {
		t.Errorf("message 200 signals = %v, want [C]", got)
	}
	for _, s := range m200.Signals {
		if s.ID != 200 {
			t.Errorf("signal %s ID = %d, want 200", s.Name, s.ID)
		}
	}
}

func TestSignalReplacementKeepsOrder(t *testing.T) {
	b := NewBuilder()
	b.AddMessage(engineMessage(100))
	b.AddSignal(Signal{Name: "A", Length: 8})
	b.AddSignal(Signal{Name: "B"})
	b.AddSignal(Signal{Name: "A", Length: 4})

	m, _ := b.Build().Message(100)
	if got := signalNames(m); !cmp.Equal(got, []string{"A", "B"}) {
		t.Fatalf("signals = %v, want [A B]", got)
	}
	if m.Signals[0].Length != 4 {
		t.Errorf("A.Length = %d, want 4", m.Signals[0].Length)
	}
}

func TestReAddMessageResetsSignals(t *testing.T) {
	b := NewBuilder()
	b.AddMessage(engineMessage(100))
	b.AddSignal(Signal{Name: "Old"})
	b.AddMessage(engineMessage(100))
	b.AddSignal(Signal{Name: "New"})

	db := b.Build()
	if len(db.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(db.Messages))
	}
	if got := signalNames(&db.Messages[0]); !cmp.Equal(got, []string{"New"}) {
		t.Errorf("signals = %v, want [New]", got)
	}
}

func TestSignalWithoutMessageDropped(t *testing.T) {
	logger := &recordingLogger{}
	b := NewBuilder()
	b.SetLogger(logger)
	b.AddSignal(Signal{Name: "Orphan"})

	if got := b.Stats().Dropped; got != 1 {
		t.Errorf("Stats().Dropped = %d, want 1", got)
	}
	if len(logger.debug) != 1 {
		t.Errorf("debug log entries = %d, want 1", len(logger.debug))
	}
	if got := b.Build().SignalCount(); got != 0 {
		t.Errorf("SignalCount() = %d, want 0", got)
	}
}

func TestAddSignalInitialValue(t *testing.T) {
	b := NewBuilder()
	b.AddMessage(engineMessage(100))
	b.AddSignal(rpmSignal())
	b.AddSignalInitialValue(100, "RPM", 10)

	m, _ := b.Build().Message(100)
	s, _ := m.Signal("RPM")
	if s.InitialValue != 7.0 {
		t.Errorf("InitialValue = %v, want 7", s.InitialValue)
	}
}

func TestIDNormalizationAsymmetry(t *testing.T) {
	const raw = 0x80000123
	const normalized = 0x123

	b := NewBuilder()
	b.AddMessage(Message{ID: normalized, IsExtID: true, Name: "Ext"})
	b.AddSignal(rpmSignal())

	// Normalising operations resolve the raw extended id.
	b.AddSignalInitialValue(raw, "RPM", 10)
	b.AddMessageCycleTime(raw, 50)
	b.LinkTableValuesToSignal(raw, "RPM", map[int]string{0: "idle"}, `0 "idle"`)

	// Non-normalising operations only resolve the normalised id.
	b.AddMessageComment(raw, "raw comment")
	b.AddSignalComment(raw, "RPM", "raw comment")
	b.AddSignalValueType(raw, "RPM", IEEEFloat)
	if got := b.Stats().Dropped; got != 3 {
		t.Errorf("Stats().Dropped = %d, want 3", got)
	}

	b.AddMessageComment(normalized, "message comment")
	b.AddSignalComment(normalized, "RPM", "signal comment")

	m, ok := b.Build().Message(normalized)
	if !ok {
		t.Fatal("message 0x123 missing")
	}
	if !m.HasCycleTime || m.CycleTime != 50 {
		t.Errorf("cycle time = %d (set=%v), want 50", m.CycleTime, m.HasCycleTime)
	}
	if m.Comment != "message comment" {
		t.Errorf("message comment = %q", m.Comment)
	}
	s, _ := m.Signal("RPM")
	if s.InitialValue != 7.0 {
		t.Errorf("InitialValue = %v, want 7", s.InitialValue)
	}
	if s.ValueType != Unsigned {
		t.Errorf("ValueType = %s, want unsigned", s.ValueType)
	}
	if s.Comment != "signal comment" {
		t.Errorf("signal comment = %q", s.Comment)
	}
	if s.ValueTableMap[0] != "idle" {
		t.Errorf("ValueTableMap = %v, want {0: idle}", s.ValueTableMap)
	}
}

func TestAddMessageCycleTimeUnset(t *testing.T) {
	b := NewBuilder()
	b.AddMessage(engineMessage(100))
	m, _ := b.Build().Message(100)
	if m.HasCycleTime {
		t.Error("HasCycleTime = true without a cycle time event")
	}
}

func TestCommentsAndValueType(t *testing.T) {
	b := NewBuilder()
	b.AddNode(Node{Name: "ECU"})
	b.AddMessage(engineMessage(100))
	b.AddSignal(rpmSignal())

	b.AddNodeComment("ECU", "engine controller")
	b.AddMessageComment(100, "engine frame")
	b.AddSignalComment(100, "RPM", "engine speed")
	b.AddSignalValueType(100, "RPM", IEEEDouble)
	b.AddNodeComment("Missing", "ignored")

	db := b.Build()
	n, _ := db.Node("ECU")
	m, _ := db.Message(100)
	s, _ := m.Signal("RPM")

	if n.Comment != "engine controller" || m.Comment != "engine frame" || s.Comment != "engine speed" {
		t.Errorf("comments = %q, %q, %q", n.Comment, m.Comment, s.Comment)
	}
	if s.ValueType != IEEEDouble {
		t.Errorf("ValueType = %s, want double", s.ValueType)
	}
	if b.Stats().Dropped != 1 {
		t.Errorf("Stats().Dropped = %d, want 1", b.Stats().Dropped)
	}
}

func TestAddCustomPropertyValidation(t *testing.T) {
	b := NewBuilder()
	if err := b.AddCustomProperty(ObjectTypeNode, CustomPropertyDefinition{Name: "X", DataType: "BOOL"}); !errors.Is(err, ErrUnknownDataType) {
		t.Errorf("AddCustomProperty(BOOL) error = %v, want ErrUnknownDataType", err)
	}
	if err := b.AddCustomProperty(ObjectType(9), CustomPropertyDefinition{Name: "X", DataType: DataTypeInteger}); !errors.Is(err, ErrUnknownObjectType) {
		t.Errorf("AddCustomProperty(kind 9) error = %v, want ErrUnknownObjectType", err)
	}
}

func TestSignalPropertyBackfill(t *testing.T) {
	b := NewBuilder()
	mustDefine(t, b, ObjectTypeSignal, CustomPropertyDefinition{Name: "X", DataType: DataTypeInteger})
	if err := b.AddCustomPropertyDefaultValue("X", "5"); err != nil {
		t.Fatalf("AddCustomPropertyDefaultValue() error = %v", err)
	}
	b.AddMessage(engineMessage(100))
	b.AddSignal(Signal{Name: "S"})

	m, _ := b.Build().Message(100)
	s, _ := m.Signal("S")
	p, ok := s.CustomProperties["X"]
	if !ok {
		t.Fatal("signal S has no X property after Build")
	}
	if p.Text() != "5" || p.DataType != DataTypeInteger {
		t.Errorf("X = %+v, want INT 5", p)
	}
	if b.Stats().Defaulted != 1 {
		t.Errorf("Stats().Defaulted = %d, want 1", b.Stats().Defaulted)
	}
}

func TestBackfillAllKinds(t *testing.T) {
	b := NewBuilder()
	mustDefine(t, b, ObjectTypeNode, CustomPropertyDefinition{Name: "NodeLayer", DataType: DataTypeString})
	mustDefine(t, b, ObjectTypeMessage, CustomPropertyDefinition{Name: "GenMsgSendType", DataType: DataTypeEnum, EnumValues: []string{"Cyclic", "Event"}})
	mustDefine(t, b, ObjectTypeMessage, CustomPropertyDefinition{Name: "GenMsgCycleTime", DataType: DataTypeInteger})
	mustDefine(t, b, ObjectTypeSignal, CustomPropertyDefinition{Name: "GenSigStartValue", DataType: DataTypeFloat})

	mustDefault(t, b, "NodeLayer", "app")
	mustDefault(t, b, "GenMsgSendType", "Cyclic")
	mustDefault(t, b, "GenMsgCycleTime", "100")
	mustDefault(t, b, "GenSigStartValue", "1.5")

	b.AddNode(Node{Name: "ECU"})
	b.AddMessage(engineMessage(100))
	b.AddSignal(rpmSignal())
	if err := b.AddMessageCustomProperty("GenMsgCycleTime", 100, "20"); err != nil {
		t.Fatalf("AddMessageCustomProperty() error = %v", err)
	}

	db := b.Build()
	n, _ := db.Node("ECU")
	m, _ := db.Message(100)
	s, _ := m.Signal("RPM")

	checks := []struct {
		what string
		prop CustomProperty
		want string
	}{
		{"node NodeLayer", n.CustomProperties["NodeLayer"], "app"},
		{"message GenMsgSendType", m.CustomProperties["GenMsgSendType"], "Cyclic"},
		{"message GenMsgCycleTime", m.CustomProperties["GenMsgCycleTime"], "20"},
		{"signal GenSigStartValue", s.CustomProperties["GenSigStartValue"], "1.5"},
	}
	for _, c := range checks {
		if got := c.prop.Text(); got != c.want {
			t.Errorf("%s = %q, want %q", c.what, got, c.want)
		}
	}
	if got := b.Stats().Defaulted; got != 3 {
		t.Errorf("Stats().Defaulted = %d, want 3", got)
	}
}

func TestRedefinePropertyType(t *testing.T) {
	b := NewBuilder()
	mustDefine(t, b, ObjectTypeSignal, CustomPropertyDefinition{Name: "Level", DataType: DataTypeInteger})
	mustDefine(t, b, ObjectTypeMessage, CustomPropertyDefinition{Name: "Level", DataType: DataTypeInteger})
	b.AddMessage(engineMessage(100))
	b.AddSignal(rpmSignal())
	if err := b.AddSignalCustomProperty("Level", 100, "RPM", "3"); err != nil {
		t.Fatalf("AddSignalCustomProperty() error = %v", err)
	}
	if err := b.AddMessageCustomProperty("Level", 100, "4"); err != nil {
		t.Fatalf("AddMessageCustomProperty() error = %v", err)
	}

	// Same type: the assigned value survives.
	mustDefine(t, b, ObjectTypeMessage, CustomPropertyDefinition{Name: "Level", DataType: DataTypeInteger})
	// New type: the old instance is replaced from the new definition.
	mustDefine(t, b, ObjectTypeSignal, CustomPropertyDefinition{Name: "Level", DataType: DataTypeString})
	mustDefault(t, b, "Level", "7")

	m, _ := b.Build().Message(100)
	s, _ := m.Signal("RPM")

	want := CustomProperty{Name: "Level", DataType: DataTypeString, Value: PropertyValue{String: "7"}}
	if diff := cmp.Diff(want, s.CustomProperties["Level"]); diff != "" {
		t.Errorf("signal Level mismatch (-want +got):\n%s", diff)
	}
	want = CustomProperty{Name: "Level", DataType: DataTypeInteger, Value: PropertyValue{Int: 4}}
	if diff := cmp.Diff(want, m.CustomProperties["Level"]); diff != "" {
		t.Errorf("message Level mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultBroadcastAcrossKinds(t *testing.T) {
	b := NewBuilder()
	mustDefine(t, b, ObjectTypeNode, CustomPropertyDefinition{Name: "Owner", DataType: DataTypeString})
	mustDefine(t, b, ObjectTypeMessage, CustomPropertyDefinition{Name: "Owner", DataType: DataTypeString})
	mustDefault(t, b, "Owner", "chassis")

	b.AddNode(Node{Name: "ECU"})
	b.AddMessage(engineMessage(100))
	db := b.Build()

	n, _ := db.Node("ECU")
	m, _ := db.Message(100)
	if n.CustomProperties["Owner"].Text() != "chassis" || m.CustomProperties["Owner"].Text() != "chassis" {
		t.Errorf("Owner = %q / %q, want chassis on both",
			n.CustomProperties["Owner"].Text(), m.CustomProperties["Owner"].Text())
	}
}

func TestCustomPropertyLookupsAreKindScoped(t *testing.T) {
	b := NewBuilder()
	mustDefine(t, b, ObjectTypeMessage, CustomPropertyDefinition{Name: "OnlyMessage", DataType: DataTypeInteger})
	mustDefine(t, b, ObjectTypeSignal, CustomPropertyDefinition{Name: "OnlySignal", DataType: DataTypeInteger})
	b.AddMessage(engineMessage(100))
	b.AddSignal(rpmSignal())

	if err := b.AddSignalCustomProperty("OnlySignal", 100, "RPM", "3"); err != nil {
		t.Fatalf("AddSignalCustomProperty() error = %v", err)
	}
	// Message definitions do not apply to signals.
	if err := b.AddSignalCustomProperty("OnlyMessage", 100, "RPM", "4"); err != nil {
		t.Fatalf("AddSignalCustomProperty() error = %v", err)
	}

	m, _ := b.Build().Message(100)
	s, _ := m.Signal("RPM")
	if s.CustomProperties["OnlySignal"].Value.Int != 3 {
		t.Errorf("OnlySignal = %+v, want 3", s.CustomProperties["OnlySignal"])
	}
	if _, ok := s.CustomProperties["OnlyMessage"]; ok {
		t.Error("signal gained a message-scoped property")
	}
	if b.Stats().Dropped != 1 {
		t.Errorf("Stats().Dropped = %d, want 1", b.Stats().Dropped)
	}
}

func TestCustomPropertyInvalidValue(t *testing.T) {
	b := NewBuilder()
	mustDefine(t, b, ObjectTypeNode, CustomPropertyDefinition{Name: "Level", DataType: DataTypeInteger})
	b.AddNode(Node{Name: "ECU"})

	err := b.AddNodeCustomProperty("Level", "ECU", "high")
	if !errors.Is(err, ErrInvalidPropertyValue) {
		t.Errorf("AddNodeCustomProperty(high) error = %v, want ErrInvalidPropertyValue", err)
	}
	if err := b.AddCustomPropertyDefaultValue("Level", "x"); !errors.Is(err, ErrInvalidPropertyValue) {
		t.Errorf("AddCustomPropertyDefaultValue(x) error = %v, want ErrInvalidPropertyValue", err)
	}
}

func TestCustomPropertyUnknownTargets(t *testing.T) {
	b := NewBuilder()
	mustDefine(t, b, ObjectTypeNode, CustomPropertyDefinition{Name: "N", DataType: DataTypeString})
	mustDefine(t, b, ObjectTypeMessage, CustomPropertyDefinition{Name: "M", DataType: DataTypeString})
	mustDefine(t, b, ObjectTypeSignal, CustomPropertyDefinition{Name: "S", DataType: DataTypeString})

	calls := []error{
		b.AddNodeCustomProperty("N", "ghost", "v"),
		b.AddNodeCustomProperty("undefined", "ghost", "v"),
		b.AddMessageCustomProperty("M", 42, "v"),
		b.AddSignalCustomProperty("S", 42, "ghost", "v"),
	}
	for i, err := range calls {
		if err != nil {
			t.Errorf("call %d error = %v, want nil", i, err)
		}
	}
	if got := b.Stats().Dropped; got != len(calls) {
		t.Errorf("Stats().Dropped = %d, want %d", got, len(calls))
	}
}

func TestBuildIdempotentReAdd(t *testing.T) {
	populate := func(b *Builder, repeat bool) {
		mustDefine(t, b, ObjectTypeSignal, CustomPropertyDefinition{Name: "X", DataType: DataTypeInteger, Default: PropertyValue{Int: 1}})
		b.AddNode(Node{Name: "ECU"})
		if repeat {
			b.AddNode(Node{Name: "ECU"})
		}
		b.AddMessage(engineMessage(100))
		b.AddSignal(rpmSignal())
		if repeat {
			b.AddSignal(rpmSignal())
		}
	}

	once := NewBuilder()
	populate(once, false)
	twice := NewBuilder()
	populate(twice, true)

	if diff := cmp.Diff(once.Build(), twice.Build()); diff != "" {
		t.Errorf("re-adding identical entities changed the snapshot (-once +twice):\n%s", diff)
	}
}

func TestBuildSnapshotIsolation(t *testing.T) {
	b := NewBuilder()
	b.AddMessage(engineMessage(100))
	b.AddSignal(rpmSignal())
	b.LinkTableValuesToSignal(100, "RPM", map[int]string{0: "idle"}, "")

	first := b.Build()
	first.Messages[0].Signals[0].ValueTableMap[0] = "mutated"
	first.Messages[0].Signals[0].Receivers[0] = "mutated"
	first.Messages[0].Name = "mutated"

	second := b.Build()
	s := second.Messages[0].Signals[0]
	if s.ValueTableMap[0] != "idle" || s.Receivers[0] != "Dash" || second.Messages[0].Name != "EngineData" {
		t.Errorf("snapshot mutation leaked into builder: %+v", s)
	}
	if diff := cmp.Diff(second, b.Build()); diff != "" {
		t.Errorf("repeated Build() differs (-first +second):\n%s", diff)
	}
}

func TestAddSignalCopiesInput(t *testing.T) {
	sig := rpmSignal()
	b := NewBuilder()
	b.AddMessage(engineMessage(100))
	b.AddSignal(sig)
	sig.Receivers[0] = "changed"

	m, _ := b.Build().Message(100)
	if m.Signals[0].Receivers[0] != "Dash" {
		t.Errorf("Receivers[0] = %q, want Dash", m.Signals[0].Receivers[0])
	}
}

func mustDefine(t *testing.T, b *Builder, kind ObjectType, def CustomPropertyDefinition) {
	t.Helper()
	if err := b.AddCustomProperty(kind, def); err != nil {
		t.Fatalf("AddCustomProperty(%s, %s) error = %v", kind, def.Name, err)
	}
}

func mustDefault(t *testing.T, b *Builder, name, value string) {
	t.Helper()
	if err := b.AddCustomPropertyDefaultValue(name, value); err != nil {
		t.Fatalf("AddCustomPropertyDefaultValue(%s, %s) error = %v", name, value, err)
	}
}

func signalNames(m *Message) []string {
	names := make([]string, 0, len(m.Signals))
	for _, s := range m.Signals {
		names = append(names, s.Name)
	}
	return names
}
