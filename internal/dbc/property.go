package dbc

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ObjectType identifies the kind of entity a custom property applies to.
type ObjectType int

// Object types carrying custom properties.
const (
	ObjectTypeNode ObjectType = iota
	ObjectTypeMessage
	ObjectTypeSignal

	objectTypeCount = 3
)

// String returns the lowercase name of the object type.
func (o ObjectType) String() string {
	switch o {
	case ObjectTypeNode:
		return "node"
	case ObjectTypeMessage:
		return "message"
	case ObjectTypeSignal:
		return "signal"
	default:
		return fmt.Sprintf("ObjectType(%d)", int(o))
	}
}

// ParseObjectType accepts the lowercase names as well as the DBC keywords
// BU_, BO_ and SG_.
func ParseObjectType(s string) (ObjectType, error) {
	switch strings.TrimSpace(s) {
	case "node", "BU_":
		return ObjectTypeNode, nil
	case "message", "BO_":
		return ObjectTypeMessage, nil
	case "signal", "SG_":
		return ObjectTypeSignal, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownObjectType, s)
	}
}

// DataType is the value type of a custom property, using the DBC keywords.
type DataType string

// Custom property data types.
const (
	DataTypeInteger DataType = "INT"
	DataTypeHex     DataType = "HEX"
	DataTypeFloat   DataType = "FLOAT"
	DataTypeString  DataType = "STRING"
	DataTypeEnum    DataType = "ENUM"
)

// IsValid reports whether d is a known data type.
func (d DataType) IsValid() bool {
	switch d {
	case DataTypeInteger, DataTypeHex, DataTypeFloat, DataTypeString, DataTypeEnum:
		return true
	}
	return false
}

// PropertyValue holds a typed custom property value. Only the field that
// matches the owning DataType is meaningful; INT and HEX share Int.
type PropertyValue struct {
	Int    int      `json:"int,omitempty"`
	Float  float64  `json:"float,omitempty"`
	String string   `json:"string,omitempty"`
	Enum   []string `json:"enum,omitempty"`
}

// propertyValueJSON carries Float as a number, or as "+Inf", "-Inf" or
// "NaN" text, which JSON numbers cannot hold.
type propertyValueJSON struct {
	Int    int             `json:"int,omitempty"`
	Float  json.RawMessage `json:"float,omitempty"`
	String string          `json:"string,omitempty"`
	Enum   []string        `json:"enum,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v PropertyValue) MarshalJSON() ([]byte, error) {
	wire := propertyValueJSON{Int: v.Int, String: v.String, Enum: v.Enum}
	switch {
	case math.IsInf(v.Float, 0) || math.IsNaN(v.Float):
		wire.Float, _ = json.Marshal(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case v.Float != 0:
		wire.Float = strconv.AppendFloat(nil, v.Float, 'g', -1, 64)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *PropertyValue) UnmarshalJSON(data []byte) error {
	var wire propertyValueJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*v = PropertyValue{Int: wire.Int, String: wire.String, Enum: wire.Enum}
	if len(wire.Float) == 0 || string(wire.Float) == "null" {
		return nil
	}
	if wire.Float[0] != '"' {
		return json.Unmarshal(wire.Float, &v.Float)
	}
	var text string
	if err := json.Unmarshal(wire.Float, &text); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("%w: float %q", ErrInvalidPropertyValue, text)
	}
	v.Float = f
	return nil
}

// CustomPropertyDefinition is a catalogued attribute definition (BA_DEF_).
type CustomPropertyDefinition struct {
	Name     string   `json:"name"`
	DataType DataType `json:"data_type"`

	// Range limits for INT/HEX and FLOAT definitions.
	IntMinimum   int     `json:"int_minimum,omitempty"`
	IntMaximum   int     `json:"int_maximum,omitempty"`
	FloatMinimum float64 `json:"float_minimum,omitempty"`
	FloatMaximum float64 `json:"float_maximum,omitempty"`

	// EnumValues lists the declared options of an ENUM definition.
	EnumValues []string `json:"enum_values,omitempty"`

	// Default is set by BA_DEF_DEF_ and seeds every back-filled instance.
	Default PropertyValue `json:"default"`
}

// CustomProperty is an attribute instance attached to one entity.
type CustomProperty struct {
	Name     string        `json:"name"`
	DataType DataType      `json:"data_type"`
	Value    PropertyValue `json:"value"`
}

// Text renders the value in its DBC text form.
func (p CustomProperty) Text() string {
	switch p.DataType {
	case DataTypeInteger, DataTypeHex:
		return strconv.Itoa(p.Value.Int)
	case DataTypeFloat:
		return strconv.FormatFloat(p.Value.Float, 'g', -1, 64)
	case DataTypeEnum:
		return strings.Join(p.Value.Enum, ",")
	default:
		return p.Value.String
	}
}

func (p CustomProperty) clone() CustomProperty {
	if p.Value.Enum != nil {
		p.Value.Enum = append([]string(nil), p.Value.Enum...)
	}
	return p
}

// newInstance creates an instance from the definition's current default.
func (d *CustomPropertyDefinition) newInstance() CustomProperty {
	p := CustomProperty{
		Name:     d.Name,
		DataType: d.DataType,
		Value:    d.Default,
	}
	return p.clone()
}

// instanceFromText creates an instance holding the parsed value.
func (d *CustomPropertyDefinition) instanceFromText(text string) (CustomProperty, error) {
	v, err := ParsePropertyValue(d.DataType, text)
	if err != nil {
		return CustomProperty{}, fmt.Errorf("property %q: %w", d.Name, err)
	}
	return CustomProperty{Name: d.Name, DataType: d.DataType, Value: v}, nil
}

// ParsePropertyValue converts attribute text into a typed value.
//
// INT and HEX parse as base-10 integers and FLOAT as a 64-bit float, each
// ignoring surrounding whitespace. STRING is kept verbatim and ENUM splits
// on commas without trimming.
func ParsePropertyValue(dt DataType, text string) (PropertyValue, error) {
	switch dt {
	case DataTypeInteger, DataTypeHex:
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return PropertyValue{}, fmt.Errorf("%w: %s %q", ErrInvalidPropertyValue, dt, text)
		}
		return PropertyValue{Int: n}, nil
	case DataTypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return PropertyValue{}, fmt.Errorf("%w: %s %q", ErrInvalidPropertyValue, dt, text)
		}
		return PropertyValue{Float: f}, nil
	case DataTypeString:
		return PropertyValue{String: text}, nil
	case DataTypeEnum:
		return PropertyValue{Enum: strings.Split(text, ",")}, nil
	default:
		return PropertyValue{}, fmt.Errorf("%w: %q", ErrUnknownDataType, dt)
	}
}

// propertyCatalog holds definitions per object type. The fixed-size array
// means every ObjectType has a map; only the property name can be missing.
type propertyCatalog struct {
	kinds [objectTypeCount]map[string]*CustomPropertyDefinition
	order [objectTypeCount][]string
}

func newPropertyCatalog() *propertyCatalog {
	c := &propertyCatalog{}
	for i := range c.kinds {
		c.kinds[i] = make(map[string]*CustomPropertyDefinition)
	}
	return c
}

// define stores def and reports whether it replaced a definition of a
// different data type.
func (c *propertyCatalog) define(kind ObjectType, def CustomPropertyDefinition) (retyped bool) {
	prev, exists := c.kinds[kind][def.Name]
	if !exists {
		c.order[kind] = append(c.order[kind], def.Name)
	} else {
		retyped = prev.DataType != def.DataType
	}
	if def.EnumValues != nil {
		def.EnumValues = append([]string(nil), def.EnumValues...)
	}
	c.kinds[kind][def.Name] = &def
	return retyped
}

func (c *propertyCatalog) lookup(kind ObjectType, name string) (*CustomPropertyDefinition, bool) {
	def, ok := c.kinds[kind][name]
	return def, ok
}

// definitions returns the definitions of a kind in declaration order.
func (c *propertyCatalog) definitions(kind ObjectType) []*CustomPropertyDefinition {
	defs := make([]*CustomPropertyDefinition, 0, len(c.order[kind]))
	for _, name := range c.order[kind] {
		defs = append(defs, c.kinds[kind][name])
	}
	return defs
}

// setDefault updates the default of every kind defining name. DBC default
// declarations are not scoped to an object type.
func (c *propertyCatalog) setDefault(name, text string) error {
	for kind := range c.kinds {
		def, ok := c.kinds[kind][name]
		if !ok {
			continue
		}
		v, err := ParsePropertyValue(def.DataType, text)
		if err != nil {
			return fmt.Errorf("default for %s property %q: %w", ObjectType(kind), name, err)
		}
		def.Default = v
	}
	return nil
}

// backfill adds an instance from the default for every definition of kind
// missing from props.
func (c *propertyCatalog) backfill(kind ObjectType, props map[string]CustomProperty) int {
	added := 0
	for _, def := range c.definitions(kind) {
		if _, ok := props[def.Name]; ok {
			continue
		}
		props[def.Name] = def.newInstance()
		added++
	}
	return added
}
