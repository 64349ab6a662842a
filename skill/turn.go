package skill

import (
	"context"

	"github.com/BaSui01/convskills/internal/valuepath"
	"github.com/BaSui01/convskills/locale"
	"github.com/BaSui01/convskills/types"
	"go.uber.org/zap"
)

// VarSource tells where FromSessionOrContext found a value.
type VarSource string

const (
	VarFromSession VarSource = "session"
	VarFromContext VarSource = "context"
	VarNotFound    VarSource = "not_found"
)

// LateralRunner runs another skill on the caller's turn and merges the
// result into the caller's response.
type LateralRunner interface {
	RunLateral(ctx context.Context, t *Turn, skillID string, extra map[string]any) error
}

// Turn is the per-turn context handed to every hook and handler. It is
// owned by one in-flight request and discarded with it.
type Turn struct {
	skillID     string
	lang        string
	request     *TurnRequest
	state       *SkillState
	response    *SkillResponse
	strings     locale.Bundle
	extra       map[string]any
	contextPath string
	logger      *zap.Logger
	lateral     LateralRunner

	// merged is set once incoming values were copied onto the slots in
	// flight; from then on the outgoing slots are the authoritative values.
	merged bool
}

// SkillID returns the id of the skill running this turn.
func (t *Turn) SkillID() string { return t.skillID }

// Language returns the resolved primary language.
func (t *Turn) Language() string { return t.lang }

// Request returns the raw turn request.
func (t *Turn) Request() *TurnRequest { return t.request }

// Input returns the turn's input payload.
func (t *Turn) Input() map[string]any { return t.request.Input }

// Context returns the turn's context payload.
func (t *Turn) Context() map[string]any { return t.request.Context }

// ConversationMemory returns the conversation history of pass-through turns.
func (t *Turn) ConversationMemory() any { return t.request.ConversationMemory }

// State returns the inbound skill state.
func (t *Turn) State() *SkillState { return t.state }

// Response returns the response being built.
func (t *Turn) Response() *SkillResponse { return t.response }

// Bundle returns the merged string bundle.
func (t *Turn) Bundle() locale.Bundle { return t.strings }

// Extra returns the additional input a lateral caller passed in.
func (t *Turn) Extra() map[string]any { return t.extra }

// Logger returns a logger scoped to the skill.
func (t *Turn) Logger() *zap.Logger { return t.logger }

// ContextVariablesPath returns the context subtree consulted by
// FromSessionOrContext, e.g. "integrations.chat.OMS".
func (t *Turn) ContextVariablesPath() string { return t.contextPath }

// =============================================================================
// 🌐 Strings
// =============================================================================

// String returns the localized literal at path filled with values. A missing
// key yields the path itself.
func (t *Turn) String(path string, values any) string {
	return locale.Fill(t.strings.String(path), values)
}

// Strings returns the localized literal list at path, each filled with values.
func (t *Turn) Strings(path string, values any) []string {
	raw := t.strings.Strings(path)
	out := make([]string, len(raw))
	for i, s := range raw {
		out[i] = locale.Fill(s, values)
	}
	return out
}

// SlotError returns the "<slot>.errors.<code>" literal.
func (t *Turn) SlotError(slot, code string, values any) string {
	return t.String(slot+".errors."+code, values)
}

// SetSlotPrompt sets the prompt of an outgoing slot from "<slot>.<key>";
// an empty key means "prompt".
func (t *Turn) SetSlotPrompt(slot, key string, values any) {
	s := t.response.Slot(slot)
	if s == nil {
		return
	}
	if key == "" {
		key = "prompt"
	}
	s.Prompt = t.String(slot+"."+key, values)
}

// =============================================================================
// 🎯 Slots
// =============================================================================

// ResponseSlot returns the outgoing slot named name, or nil.
func (t *Turn) ResponseSlot(name string) *Slot { return t.response.Slot(name) }

// StateSlot returns the reported slot named name, or nil.
func (t *Turn) StateSlot(name string) *Slot { return t.state.Slot(name) }

// RemoveSlot drops slots from the outgoing set.
func (t *Turn) RemoveSlot(names ...string) { t.response.SlotsInFlight.Remove(names...) }

// AddSlot appends a slot to the outgoing set.
func (t *Turn) AddSlot(slot *Slot) { t.response.SlotsInFlight.Add(slot) }

// SetSlotStringValue sets an outgoing slot to a string value; "" clears it.
func (t *Turn) SetSlotStringValue(name, value string) {
	s := t.response.Slot(name)
	if s == nil {
		return
	}
	if value == "" {
		s.Value = nil
		return
	}
	s.Value = StringValue(value)
}

// CurrentSlotValue returns the normalized value of a filled slot, or nil.
// After the merge step the outgoing slot is consulted, otherwise the slot as
// reported by the orchestrator.
func (t *Turn) CurrentSlotValue(name string) any {
	if t.merged {
		if s := t.response.Slot(name); s != nil {
			if s.IsFilled() {
				return s.Normalized()
			}
			return nil
		}
	}
	if s := t.state.Slot(name); s.IsFilled() {
		return s.Normalized()
	}
	return nil
}

// NormalizedSlotValues maps each name to CurrentSlotValue(name).
func (t *Turn) NormalizedSlotValues(names ...string) map[string]any {
	out := make(map[string]any, len(names))
	for _, n := range names {
		out[n] = t.CurrentSlotValue(n)
	}
	return out
}

// =============================================================================
// 📦 Variables
// =============================================================================

// SessionVariable returns a session variable as seen by this turn.
func (t *Turn) SessionVariable(name string) any { return t.response.SessionVariable(name) }

// SetSessionVariable writes a session variable.
func (t *Turn) SetSessionVariable(name string, value any) { t.response.SetSessionVariable(name, value) }

// DeleteSessionVariable removes a session variable.
func (t *Turn) DeleteSessionVariable(name string) { t.response.DeleteSessionVariable(name) }

// LocalVariable returns a local variable as seen by this turn.
func (t *Turn) LocalVariable(name string) any { return t.response.LocalVariable(name) }

// SetLocalVariable writes a local variable.
func (t *Turn) SetLocalVariable(name string, value any) { t.response.SetLocalVariable(name, value) }

// DeleteLocalVariable removes a local variable.
func (t *Turn) DeleteLocalVariable(name string) { t.response.DeleteLocalVariable(name) }

// FromSessionOrContext looks name up in the session variables and then in
// the integration context of the request.
func (t *Turn) FromSessionOrContext(name string) (any, VarSource) {
	if v := t.SessionVariable(name); !IsVoid(v) {
		return v, VarFromSession
	}
	if t.contextPath != "" {
		if v, ok := valuepath.Get(t.request.Context, t.contextPath+"."+name); ok && !IsVoid(v) {
			return v, VarFromContext
		}
	}
	return nil, VarNotFound
}

// =============================================================================
// ✅ Outcome and output
// =============================================================================

// MarkComplete resolves the skill as complete.
func (t *Turn) MarkComplete(metadata map[string]any, opts ...CompletionOption) {
	t.response.MarkComplete(metadata, opts...)
}

// MarkCancelled resolves the skill as cancelled.
func (t *Turn) MarkCancelled(metadata map[string]any, opts ...CompletionOption) {
	t.response.MarkCancelled(metadata, opts...)
}

// IsCompleteOrCancelled reports whether the skill reached a terminal outcome.
func (t *Turn) IsCompleteOrCancelled() bool { return t.response.IsCompleteOrCancelled() }

// AddText appends a text item.
func (t *Turn) AddText(text string) { t.response.AddText(text) }

// AddItem appends a response item.
func (t *Turn) AddItem(item ResponseItem) { t.response.AddItem(item) }

// RunLateral hands the rest of this turn to another skill. Its variables,
// resolver, items and slots are merged into this turn's response.
func (t *Turn) RunLateral(ctx context.Context, skillID string, extra map[string]any) error {
	if t.lateral == nil {
		return types.NewError(types.ErrInternalError, "lateral delegation is not available").WithSkill(t.skillID)
	}
	return t.lateral.RunLateral(ctx, t, skillID, extra)
}
