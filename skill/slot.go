package skill

import (
	"fmt"
	"strings"
)

// SlotType is the kind of value a slot collects.
type SlotType string

const (
	SlotTypeString       SlotType = "string"
	SlotTypeNumber       SlotType = "number"
	SlotTypeDate         SlotType = "date"
	SlotTypeTime         SlotType = "time"
	SlotTypeRegex        SlotType = "regex"
	SlotTypeEntity       SlotType = "entity"
	SlotTypeConfirmation SlotType = "confirmation"
	SlotTypeAny          SlotType = "any"
)

// Valid reports whether t is one of the known slot types.
func (t SlotType) Valid() bool {
	switch t {
	case SlotTypeString, SlotTypeNumber, SlotTypeDate, SlotTypeTime,
		SlotTypeRegex, SlotTypeEntity, SlotTypeConfirmation, SlotTypeAny:
		return true
	}
	return false
}

// SlotValue pairs the raw user text with its normalized form.
type SlotValue struct {
	Literal    any `json:"literal"`
	Normalized any `json:"normalized"`
}

// StringValue builds a value whose literal and normalized forms are both s.
func StringValue(s string) *SlotValue {
	return &SlotValue{Literal: s, Normalized: s}
}

// Clone returns a shallow copy of v.
func (v *SlotValue) Clone() *SlotValue {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// SlotEventType describes how the orchestrator changed a slot since the previous turn.
type SlotEventType string

const (
	SlotEventFill   SlotEventType = "fill"
	SlotEventRepair SlotEventType = "repair"
	SlotEventRefine SlotEventType = "refine"
)

// SlotEvent is attached by the orchestrator to slots that changed.
type SlotEvent struct {
	Type     SlotEventType `json:"type"`
	Previous *SlotValue    `json:"previous_value,omitempty"`
	Current  *SlotValue    `json:"current_value,omitempty"`
}

// EntityValue is one permissible choice of an entity slot.
type EntityValue struct {
	Label    string   `json:"label"`
	Value    string   `json:"value"`
	Synonyms []string `json:"synonyms,omitempty"`
	Patterns []string `json:"patterns,omitempty"`
}

// Entity is the enumerated schema of a selector-style slot.
type Entity struct {
	Entity string        `json:"entity"`
	Values []EntityValue `json:"values"`
}

// NewEntity creates an entity schema named after the slot.
func NewEntity(name string, values ...EntityValue) *Entity {
	return &Entity{Entity: name, Values: values}
}

// Find returns the choice whose value equals v.
func (e *Entity) Find(v string) (EntityValue, bool) {
	if e == nil {
		return EntityValue{}, false
	}
	for _, ev := range e.Values {
		if ev.Value == v {
			return ev, true
		}
	}
	return EntityValue{}, false
}

// Slot is a single conversational parameter.
type Slot struct {
	Name            string     `json:"name"`
	Type            SlotType   `json:"type"`
	Value           *SlotValue `json:"value,omitempty"`
	Description     string     `json:"description,omitempty"`
	Prompt          string     `json:"prompt,omitempty"`
	ErrorTemplate   string     `json:"error_template,omitempty"`
	ValidationError string     `json:"validation_error,omitempty"`
	Hidden          bool       `json:"hidden,omitempty"`
	Schema          *Entity    `json:"schema,omitempty"`
	Event           *SlotEvent `json:"event,omitempty"`
}

// IsFilled reports whether the slot holds a non-void normalized value.
// Hidden slots are evaluated the same way.
func (s *Slot) IsFilled() bool {
	return s != nil && s.Value != nil && !IsVoid(s.Value.Normalized)
}

// HasChanged reports whether the orchestrator flagged the slot as changed
// since the previous turn.
func (s *Slot) HasChanged() bool {
	return s != nil && s.Event != nil && s.Event.Type != ""
}

// Normalized returns the normalized value or nil.
func (s *Slot) Normalized() any {
	if s == nil || s.Value == nil {
		return nil
	}
	return s.Value.Normalized
}

// NormalizedString returns the normalized value rendered as a string.
func (s *Slot) NormalizedString() string {
	switch v := s.Normalized().(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// SetError clears the value and records a validation error; the orchestrator
// will re-prompt for the slot.
func (s *Slot) SetError(msg string) {
	s.Value = nil
	s.ValidationError = msg
}

// Clone returns a copy of s that shares no value pointers with it.
func (s *Slot) Clone() *Slot {
	if s == nil {
		return nil
	}
	c := *s
	c.Value = s.Value.Clone()
	if s.Schema != nil {
		schema := *s.Schema
		schema.Values = append([]EntityValue(nil), s.Schema.Values...)
		c.Schema = &schema
	}
	if s.Event != nil {
		ev := *s.Event
		c.Event = &ev
	}
	return &c
}

// IsVoid reports whether v is nil or a whitespace-only string.
func IsVoid(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case *SlotValue:
		return t == nil
	}
	return false
}

// AreAllParametersSet reports whether params is non-empty and every value in
// it is non-void. *SlotValue entries are judged by their normalized form.
func AreAllParametersSet(params map[string]any) bool {
	if len(params) == 0 {
		return false
	}
	for _, v := range params {
		if sv, ok := v.(*SlotValue); ok {
			if sv == nil || IsVoid(sv.Normalized) {
				return false
			}
			continue
		}
		if IsVoid(v) {
			return false
		}
	}
	return true
}
