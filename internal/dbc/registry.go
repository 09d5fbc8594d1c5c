package dbc

// signalSet holds one message's signals keyed by name, in first-seen order.
type signalSet struct {
	byName map[string]*Signal
	order  []string
}

func newSignalSet() *signalSet {
	return &signalSet{byName: make(map[string]*Signal)}
}

func (s *signalSet) put(sig *Signal) {
	if _, exists := s.byName[sig.Name]; !exists {
		s.order = append(s.order, sig.Name)
	}
	s.byName[sig.Name] = sig
}

// values returns the signals in registration order.
func (s *signalSet) values() []*Signal {
	out := make([]*Signal, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name])
	}
	return out
}

// registry indexes nodes by name, messages by id and signals by
// (message id, name). Re-registering an existing key replaces the entity
// but keeps its original position.
type registry struct {
	nodes     map[string]*Node
	nodeOrder []string

	messages     map[uint32]*Message
	messageOrder []uint32

	signals map[uint32]*signalSet

	// current is the message that following signal events attach to.
	current *Message
}

func newRegistry() *registry {
	return &registry{
		nodes:    make(map[string]*Node),
		messages: make(map[uint32]*Message),
		signals:  make(map[uint32]*signalSet),
	}
}

func (r *registry) registerNode(n *Node) {
	if _, exists := r.nodes[n.Name]; !exists {
		r.nodeOrder = append(r.nodeOrder, n.Name)
	}
	r.nodes[n.Name] = n
}

// registerMessage stores m, makes it the current message and opens an
// empty signal namespace for its id.
func (r *registry) registerMessage(m *Message) {
	if _, exists := r.messages[m.ID]; !exists {
		r.messageOrder = append(r.messageOrder, m.ID)
	}
	r.messages[m.ID] = m
	r.signals[m.ID] = newSignalSet()
	r.current = m
}

// registerSignal attaches sig to the current message. It reports false when
// no message has been registered yet.
func (r *registry) registerSignal(sig *Signal) bool {
	if r.current == nil {
		return false
	}
	sig.ID = r.current.ID
	r.signals[r.current.ID].put(sig)
	return true
}

func (r *registry) node(name string) (*Node, bool) {
	n, ok := r.nodes[name]
	return n, ok
}

func (r *registry) message(id uint32) (*Message, bool) {
	m, ok := r.messages[id]
	return m, ok
}

func (r *registry) signal(messageID uint32, name string) (*Signal, bool) {
	set, ok := r.signals[messageID]
	if !ok {
		return nil, false
	}
	sig, ok := set.byName[name]
	return sig, ok
}

func (r *registry) orderedNodes() []*Node {
	out := make([]*Node, 0, len(r.nodeOrder))
	for _, name := range r.nodeOrder {
		out = append(out, r.nodes[name])
	}
	return out
}

func (r *registry) orderedMessages() []*Message {
	out := make([]*Message, 0, len(r.messageOrder))
	for _, id := range r.messageOrder {
		out = append(out, r.messages[id])
	}
	return out
}

func (r *registry) messageSignals(id uint32) []*Signal {
	set, ok := r.signals[id]
	if !ok {
		return nil
	}
	return set.values()
}
