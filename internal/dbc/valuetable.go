package dbc

// AddNamedValueTable stores a named value table, replacing any table of the
// same name. Signals bind a copy of the mapping when linked.
func (b *Builder) AddNamedValueTable(name string, values map[int]string, raw string) {
	b.namedTables[name] = ValuesTable{
		ValueTableMap: cloneValueTable(values),
		ValueTable:    raw,
	}
}

// LinkTableValuesToSignal binds a value table directly onto a signal. The
// message id is normalised first; unknown signals are ignored.
func (b *Builder) LinkTableValuesToSignal(messageID uint32, signalName string, values map[int]string, raw string) {
	id, _ := NormalizeID(messageID)
	sig, ok := b.reg.signal(id, signalName)
	if !ok {
		b.dropped("value table", "message_id", messageID, "signal", signalName)
		return
	}
	sig.ValueTableMap = cloneValueTable(values)
	sig.ValueTable = raw
}

// LinkNamedTableToSignal binds the named table to a signal through
// LinkTableValuesToSignal. Unknown table names are ignored.
func (b *Builder) LinkNamedTableToSignal(messageID uint32, signalName, tableName string) {
	table, ok := b.namedTables[tableName]
	if !ok {
		b.dropped("named value table", "table", tableName, "signal", signalName)
		return
	}
	b.LinkTableValuesToSignal(messageID, signalName, table.ValueTableMap, table.ValueTable)
}

// NamedValueTable returns a copy of a stored named table.
func (b *Builder) NamedValueTable(name string) (ValuesTable, bool) {
	table, ok := b.namedTables[name]
	if !ok {
		return ValuesTable{}, false
	}
	table.ValueTableMap = cloneValueTable(table.ValueTableMap)
	return table, true
}
