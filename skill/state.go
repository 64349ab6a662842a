package skill

import (
	"github.com/BaSui01/convskills/internal/valuepath"
	"github.com/BaSui01/convskills/locale"
)

// ConfirmationEventType is the user's answer to a confirmation request.
type ConfirmationEventType string

const (
	ConfirmationConfirmed ConfirmationEventType = "user_confirmed"
	ConfirmationCancelled ConfirmationEventType = "user_cancelled"
)

// ConfirmationEvent is present on a turn when the user answered a
// confirmation request.
type ConfirmationEvent struct {
	Type ConfirmationEventType `json:"type"`
}

// State carries the variables the conversation store persists between turns.
type State struct {
	LocalVariables   map[string]any `json:"local_variables,omitempty"`
	SessionVariables map[string]any `json:"session_variables,omitempty"`
}

// TurnRequest is one orchestrate call as received from the orchestrator.
type TurnRequest struct {
	Input              map[string]any     `json:"input,omitempty"`
	Context            map[string]any     `json:"context,omitempty"`
	Slots              []*Slot            `json:"slots,omitempty"`
	State              State              `json:"state"`
	ConfirmationEvent  *ConfirmationEvent `json:"confirmation_event,omitempty"`
	ConversationMemory any                `json:"conversation_memory,omitempty"`
}

// Language returns the primary language requested in context.global.language.
func (r *TurnRequest) Language() string {
	if r == nil {
		return locale.DefaultLanguage
	}
	if lang := locale.BaseLanguage(valuepath.GetString(r.Context, "global.language")); lang != "" {
		return lang
	}
	return locale.DefaultLanguage
}

// Text returns the user utterance carried in input.text.
func (r *TurnRequest) Text() string {
	if r == nil {
		return ""
	}
	return valuepath.GetString(r.Input, "text")
}

// SkillState is the read-only inbound view of a turn.
type SkillState struct {
	slots        []*Slot
	confirmation *ConfirmationEvent
	state        State
}

// NewSkillState wraps the inbound parts of req.
func NewSkillState(req *TurnRequest) *SkillState {
	if req == nil {
		return &SkillState{}
	}
	slots := make([]*Slot, 0, len(req.Slots))
	for _, s := range req.Slots {
		if s != nil {
			slots = append(slots, s)
		}
	}
	return &SkillState{slots: slots, confirmation: req.ConfirmationEvent, state: req.State}
}

// Slots returns the slots in the order the orchestrator reported them.
func (s *SkillState) Slots() []*Slot { return s.slots }

// Slot returns the reported slot named name, or nil.
func (s *SkillState) Slot(name string) *Slot {
	for _, slot := range s.slots {
		if slot.Name == name {
			return slot
		}
	}
	return nil
}

// ConfirmationEvent returns the confirmation answer carried by the turn, if any.
func (s *SkillState) ConfirmationEvent() *ConfirmationEvent { return s.confirmation }

// LocalVariable returns the inbound value of a local variable.
func (s *SkillState) LocalVariable(name string) any { return s.state.LocalVariables[name] }

// SessionVariable returns the inbound value of a session variable.
func (s *SkillState) SessionVariable(name string) any { return s.state.SessionVariables[name] }

// State returns the inbound variables.
func (s *SkillState) State() State { return s.state }
