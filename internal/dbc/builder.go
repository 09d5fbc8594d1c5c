package dbc

// Logger defines the logging interface used by the Builder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Stats counts the events a Builder has processed.
type Stats struct {
	Nodes    int `json:"nodes"`
	Messages int `json:"messages"`
	Signals  int `json:"signals"`

	// Dropped counts events that referenced an unknown entity, property or
	// table, plus signals received before any message.
	Dropped int `json:"dropped"`

	// Defaulted counts instances added by back-fill during Build.
	Defaulted int `json:"defaulted"`
}

// Builder receives DBC construction events and produces a Database.
//
// Events arrive in source order. Signals attach to the most recently added
// message. Events addressing entities that do not exist are dropped.
type Builder struct {
	reg         *registry
	properties  *propertyCatalog
	namedTables map[string]ValuesTable
	stats       Stats
	logger      Logger
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		reg:         newRegistry(),
		properties:  newPropertyCatalog(),
		namedTables: make(map[string]ValuesTable),
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the builder.
func (b *Builder) SetLogger(logger Logger) {
	b.logger = logger
}

// Stats returns the event counters.
func (b *Builder) Stats() Stats {
	return b.stats
}

func (b *Builder) dropped(what string, args ...any) {
	b.stats.Dropped++
	b.logger.Debug("dbc event dropped: unresolved "+what, args...)
}

// AddNode registers a node. A node with the same name is replaced.
func (b *Builder) AddNode(node Node) {
	n := node.clone()
	b.reg.registerNode(&n)
	b.stats.Nodes++
}

// AddMessage registers a message and makes it the target of following
// AddSignal calls. Re-adding an id discards the signals added before.
func (b *Builder) AddMessage(message Message) {
	m := message.clone()
	m.Signals = nil
	b.reg.registerMessage(&m)
	b.stats.Messages++
}

// AddSignal attaches a signal to the current message, replacing a signal of
// the same name. Without a current message the signal is dropped.
func (b *Builder) AddSignal(signal Signal) {
	s := signal.clone()
	if !b.reg.registerSignal(&s) {
		b.dropped("message for signal", "signal", signal.Name)
		return
	}
	b.stats.Signals++
}

// AddCustomProperty catalogues an attribute definition for an object type.
// Redefining a property with another data type removes the instances
// already assigned under the old type; Build back-fills them from the new
// definition.
func (b *Builder) AddCustomProperty(kind ObjectType, def CustomPropertyDefinition) error {
	if kind < 0 || kind >= objectTypeCount {
		return ErrUnknownObjectType
	}
	if !def.DataType.IsValid() {
		return ErrUnknownDataType
	}
	if b.properties.define(kind, def) {
		removed := b.removeInstances(kind, def.Name)
		b.logger.Debug("dbc property retyped", "kind", kind.String(), "property", def.Name,
			"data_type", string(def.DataType), "instances_removed", removed)
	}
	return nil
}

// removeInstances deletes the named property from every entity of kind.
func (b *Builder) removeInstances(kind ObjectType, name string) int {
	removed := 0
	drop := func(props map[string]CustomProperty) {
		if _, ok := props[name]; ok {
			delete(props, name)
			removed++
		}
	}
	switch kind {
	case ObjectTypeNode:
		for _, n := range b.reg.orderedNodes() {
			drop(n.CustomProperties)
		}
	case ObjectTypeMessage:
		for _, m := range b.reg.orderedMessages() {
			drop(m.CustomProperties)
		}
	case ObjectTypeSignal:
		for _, m := range b.reg.orderedMessages() {
			for _, sig := range b.reg.messageSignals(m.ID) {
				drop(sig.CustomProperties)
			}
		}
	}
	return removed
}

// AddCustomPropertyDefaultValue sets the default of every definition named
// propertyName, whatever its object type.
func (b *Builder) AddCustomPropertyDefaultValue(propertyName, value string) error {
	return b.properties.setDefault(propertyName, value)
}

// AddNodeCustomProperty assigns an attribute value to a node.
func (b *Builder) AddNodeCustomProperty(propertyName, nodeName, value string) error {
	def, ok := b.properties.lookup(ObjectTypeNode, propertyName)
	if !ok {
		b.dropped("node property", "property", propertyName)
		return nil
	}
	node, ok := b.reg.node(nodeName)
	if !ok {
		b.dropped("node", "node", nodeName, "property", propertyName)
		return nil
	}
	p, err := def.instanceFromText(value)
	if err != nil {
		return err
	}
	node.CustomProperties[propertyName] = p
	return nil
}

// AddMessageCustomProperty assigns an attribute value to a message. The id
// is used as given.
func (b *Builder) AddMessageCustomProperty(propertyName string, messageID uint32, value string) error {
	def, ok := b.properties.lookup(ObjectTypeMessage, propertyName)
	if !ok {
		b.dropped("message property", "property", propertyName)
		return nil
	}
	msg, ok := b.reg.message(messageID)
	if !ok {
		b.dropped("message", "message_id", messageID, "property", propertyName)
		return nil
	}
	p, err := def.instanceFromText(value)
	if err != nil {
		return err
	}
	msg.CustomProperties[propertyName] = p
	return nil
}

// AddSignalCustomProperty assigns an attribute value to a signal. The id is
// used as given.
func (b *Builder) AddSignalCustomProperty(propertyName string, messageID uint32, signalName, value string) error {
	def, ok := b.properties.lookup(ObjectTypeSignal, propertyName)
	if !ok {
		b.dropped("signal property", "property", propertyName)
		return nil
	}
	sig, ok := b.reg.signal(messageID, signalName)
	if !ok {
		b.dropped("signal", "message_id", messageID, "signal", signalName, "property", propertyName)
		return nil
	}
	p, err := def.instanceFromText(value)
	if err != nil {
		return err
	}
	sig.CustomProperties[propertyName] = p
	return nil
}

// AddSignalComment sets a signal's comment.
func (b *Builder) AddSignalComment(messageID uint32, signalName, comment string) {
	sig, ok := b.reg.signal(messageID, signalName)
	if !ok {
		b.dropped("signal", "message_id", messageID, "signal", signalName)
		return
	}
	sig.Comment = comment
}

// AddNodeComment sets a node's comment.
func (b *Builder) AddNodeComment(nodeName, comment string) {
	node, ok := b.reg.node(nodeName)
	if !ok {
		b.dropped("node", "node", nodeName)
		return
	}
	node.Comment = comment
}

// AddMessageComment sets a message's comment.
func (b *Builder) AddMessageComment(messageID uint32, comment string) {
	msg, ok := b.reg.message(messageID)
	if !ok {
		b.dropped("message", "message_id", messageID)
		return
	}
	msg.Comment = comment
}

// AddSignalInitialValue stores the physical initial value of a signal,
// computed from the raw value with the signal's factor and offset. The
// message id is normalised first.
func (b *Builder) AddSignalInitialValue(messageID uint32, signalName string, raw float64) {
	id, _ := NormalizeID(messageID)
	sig, ok := b.reg.signal(id, signalName)
	if !ok {
		b.dropped("signal", "message_id", messageID, "signal", signalName)
		return
	}
	sig.InitialValue = raw*sig.Factor + sig.Offset
}

// AddSignalValueType sets a signal's value type. The id is used as given.
func (b *Builder) AddSignalValueType(messageID uint32, signalName string, valueType ValueType) {
	sig, ok := b.reg.signal(messageID, signalName)
	if !ok {
		b.dropped("signal", "message_id", messageID, "signal", signalName)
		return
	}
	sig.ValueType = valueType
}

// AddMessageCycleTime sets a message's cycle time in milliseconds. The
// message id is normalised first.
func (b *Builder) AddMessageCycleTime(messageID uint32, cycleTime int) {
	id, _ := NormalizeID(messageID)
	msg, ok := b.reg.message(id)
	if !ok {
		b.dropped("message", "message_id", messageID)
		return
	}
	msg.CycleTime = cycleTime
	msg.HasCycleTime = true
}

// Build back-fills attribute defaults, gathers each message's signals in
// registration order and returns a snapshot. The snapshot shares no state
// with the builder.
func (b *Builder) Build() *Database {
	b.fillNodeDefaults()
	b.fillMessageDefaults()

	db := &Database{
		Nodes:    make([]Node, 0, len(b.reg.nodeOrder)),
		Messages: make([]Message, 0, len(b.reg.messageOrder)),
	}
	for _, n := range b.reg.orderedNodes() {
		db.Nodes = append(db.Nodes, n.clone())
	}
	for _, m := range b.reg.orderedMessages() {
		msg := *m
		signals := b.reg.messageSignals(m.ID)
		msg.Signals = make([]Signal, 0, len(signals))
		for _, s := range signals {
			msg.Signals = append(msg.Signals, *s)
		}
		db.Messages = append(db.Messages, msg.clone())
	}

	b.logger.Debug("dbc database built",
		"nodes", len(db.Nodes),
		"messages", len(db.Messages),
		"signals", db.SignalCount(),
		"defaulted", b.stats.Defaulted,
	)
	return db
}

func (b *Builder) fillNodeDefaults() {
	for _, n := range b.reg.orderedNodes() {
		b.stats.Defaulted += b.properties.backfill(ObjectTypeNode, n.CustomProperties)
	}
}

// fillMessageDefaults back-fills each message's signals before the
// message itself.
func (b *Builder) fillMessageDefaults() {
	for _, m := range b.reg.orderedMessages() {
		for _, s := range b.reg.messageSignals(m.ID) {
			b.stats.Defaulted += b.properties.backfill(ObjectTypeSignal, s.CustomProperties)
		}
		b.stats.Defaulted += b.properties.backfill(ObjectTypeMessage, m.CustomProperties)
	}
}
