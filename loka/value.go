package loka

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueKind identifies the runtime type carried by a Value.
type ValueKind int

const (
	KindNil ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindHash
	KindDuration
	KindElement
	KindEvent
)

func (k ValueKind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindHash:
		return "hash"
	case KindDuration:
		return "duration"
	case KindElement:
		return "element"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Value is the runtime's tagged value representation.
type Value struct {
	kind ValueKind
	data any
}

func NewNil() Value                     { return Value{kind: KindNil} }
func NewBool(b bool) Value              { return Value{kind: KindBool, data: b} }
func NewInt(i int64) Value              { return Value{kind: KindInt, data: i} }
func NewFloat(f float64) Value          { return Value{kind: KindFloat, data: f} }
func NewString(s string) Value          { return Value{kind: KindString, data: s} }
func NewArray(items []Value) Value      { return Value{kind: KindArray, data: items} }
func NewHash(m map[string]Value) Value  { return Value{kind: KindHash, data: m} }
func NewDuration(d time.Duration) Value { return Value{kind: KindDuration, data: d} }
func NewElementValue(el *Element) Value { return Value{kind: KindElement, data: el} }
func NewEventValue(ev *Event) Value     { return Value{kind: KindEvent, data: ev} }

// Kind returns the value's tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsNil reports whether the value is the nil value.
func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) Bool() bool {
	b, _ := v.data.(bool)
	return b
}

func (v Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return v.data.(int64)
	case KindFloat:
		return int64(v.data.(float64))
	default:
		return 0
	}
}

func (v Value) Float() float64 {
	switch v.kind {
	case KindFloat:
		return v.data.(float64)
	case KindInt:
		return float64(v.data.(int64))
	default:
		return 0
	}
}

func (v Value) Array() []Value {
	items, _ := v.data.([]Value)
	return items
}

func (v Value) Hash() map[string]Value {
	m, _ := v.data.(map[string]Value)
	return m
}

func (v Value) Duration() time.Duration {
	d, _ := v.data.(time.Duration)
	return d
}

func (v Value) Element() *Element {
	el, _ := v.data.(*Element)
	return el
}

func (v Value) Event() *Event {
	ev, _ := v.data.(*Event)
	return ev
}

// Truthy follows the scripting language's truth rules: nil and false are
// false; zero numbers and empty strings/arrays are false; everything else
// is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.Bool()
	case KindInt:
		return v.Int() != 0
	case KindFloat:
		return v.Float() != 0
	case KindString:
		return v.data.(string) != ""
	case KindArray:
		return len(v.Array()) > 0
	case KindDuration:
		return v.Duration() != 0
	default:
		return v.data != nil
	}
}

// Equal compares two values structurally. Ints compare equal to floats with
// the same numeric value.
func (v Value) Equal(other Value) bool {
	if (v.kind == KindInt || v.kind == KindFloat) &&
		(other.kind == KindInt || other.kind == KindFloat) {
		return v.Float() == other.Float()
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.Bool() == other.Bool()
	case KindString:
		return v.data.(string) == other.data.(string)
	case KindDuration:
		return v.Duration() == other.Duration()
	case KindElement:
		return v.Element() == other.Element()
	case KindEvent:
		return v.Event() == other.Event()
	case KindArray:
		a, b := v.Array(), other.Array()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	case KindHash:
		a, b := v.Hash(), other.Hash()
		if len(a) != len(b) {
			return false
		}
		for key, av := range a {
			bv, ok := b[key]
			if !ok || !av.Equal(bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders the value for display and string coercion.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.Bool())
	case KindInt:
		return strconv.FormatInt(v.Int(), 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case KindString:
		return v.data.(string)
	case KindDuration:
		return v.Duration().String()
	case KindElement:
		if el := v.Element(); el != nil {
			return el.String()
		}
		return "<nil element>"
	case KindEvent:
		if ev := v.Event(); ev != nil {
			return "event:" + ev.Type
		}
		return "<nil event>"
	case KindArray:
		parts := make([]string, 0, len(v.Array()))
		for _, item := range v.Array() {
			parts = append(parts, item.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindHash:
		parts := make([]string, 0, len(v.Hash()))
		for key, item := range v.Hash() {
			parts = append(parts, fmt.Sprintf("%s: %s", key, item.String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", v.data)
	}
}

// Items returns the value as an ordered collection: arrays as-is, nil as
// empty, anything else as a singleton.
func (v Value) Items() []Value {
	switch v.kind {
	case KindArray:
		return v.Array()
	case KindNil:
		return nil
	default:
		return []Value{v}
	}
}
