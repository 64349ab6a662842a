package skill

import (
	"encoding/json"
	"maps"
)

// ResolverType is the outcome of a turn.
type ResolverType string

const (
	ResolverComplete ResolverType = "skill_complete"
	ResolverCancel   ResolverType = "skill_cancel"
	ResolverConfirm  ResolverType = "skill_confirm"
)

// Resolver is the terminal (or confirmation) outcome of a skill. A nil
// resolver means the skill is still awaiting input.
type Resolver struct {
	Type   ResolverType   `json:"type"`
	Result map[string]any `json:"result,omitempty"`
	Slots  map[string]any `json:"slots,omitempty"`
}

// ResponseItem is one generic output item (text, link, table, UI directive).
type ResponseItem map[string]any

// Type returns the item's response_type.
func (i ResponseItem) Type() string {
	t, _ := i["response_type"].(string)
	return t
}

const (
	ResponseTypeText        = "text"
	ResponseTypeUserDefined = "user_defined"
	ResponseTypeSlots       = "slots"
)

// TextItem builds a text response item.
func TextItem(text string) ResponseItem {
	return ResponseItem{"response_type": ResponseTypeText, "text": text}
}

// UserDefinedItem builds a user_defined response item.
func UserDefinedItem(payload map[string]any) ResponseItem {
	return ResponseItem{"response_type": ResponseTypeUserDefined, "user_defined": payload}
}

// variables is a variable bag seeded from the inbound state that remembers
// which keys this turn wrote or deleted.
type variables struct {
	values  map[string]any
	written map[string]struct{}
	deleted map[string]struct{}
}

func newVariables(seed map[string]any) *variables {
	values := make(map[string]any, len(seed))
	maps.Copy(values, seed)
	return &variables{values: values, written: map[string]struct{}{}, deleted: map[string]struct{}{}}
}

func (v *variables) get(name string) any { return v.values[name] }

func (v *variables) set(name string, value any) {
	v.values[name] = value
	v.written[name] = struct{}{}
	delete(v.deleted, name)
}

func (v *variables) del(name string) {
	delete(v.values, name)
	delete(v.written, name)
	v.deleted[name] = struct{}{}
}

// applyTo replays this bag's writes and deletes onto dst.
func (v *variables) applyTo(dst *variables) {
	for name := range v.written {
		dst.set(name, v.values[name])
	}
	for name := range v.deleted {
		dst.del(name)
	}
}

// SkillResponse is the outbound result of one turn.
type SkillResponse struct {
	SlotsInFlight *SlotsInFlight
	Resolver      *Resolver

	items   []ResponseItem
	local   *variables
	session *variables
}

// NewSkillResponse creates a response over slots whose variables start as
// a copy of the inbound state.
func NewSkillResponse(slots *SlotsInFlight, state State) *SkillResponse {
	if slots == nil {
		slots = NewSlotsInFlight(ConfirmationNone)
	}
	return &SkillResponse{
		SlotsInFlight: slots,
		local:         newVariables(state.LocalVariables),
		session:       newVariables(state.SessionVariables),
	}
}

// Slot returns the outgoing slot named name, or nil.
func (r *SkillResponse) Slot(name string) *Slot { return r.SlotsInFlight.Get(name) }

// Items returns the accumulated response items.
func (r *SkillResponse) Items() []ResponseItem { return r.items }

// AddItem appends a response item.
func (r *SkillResponse) AddItem(item ResponseItem) { r.items = append(r.items, item) }

// AddText appends a text response item.
func (r *SkillResponse) AddText(text string) { r.AddItem(TextItem(text)) }

// LocalVariable returns the current value of a local variable.
func (r *SkillResponse) LocalVariable(name string) any { return r.local.get(name) }

// SetLocalVariable writes a local variable.
func (r *SkillResponse) SetLocalVariable(name string, value any) { r.local.set(name, value) }

// DeleteLocalVariable removes a local variable.
func (r *SkillResponse) DeleteLocalVariable(name string) { r.local.del(name) }

// SessionVariable returns the current value of a session variable.
func (r *SkillResponse) SessionVariable(name string) any { return r.session.get(name) }

// SetSessionVariable writes a session variable.
func (r *SkillResponse) SetSessionVariable(name string, value any) { r.session.set(name, value) }

// DeleteSessionVariable removes a session variable.
func (r *SkillResponse) DeleteSessionVariable(name string) { r.session.del(name) }

// State returns the outgoing variables.
func (r *SkillResponse) State() State {
	return State{
		LocalVariables:   maps.Clone(r.local.values),
		SessionVariables: maps.Clone(r.session.values),
	}
}

type completionOptions struct {
	keepSlots bool
}

// CompletionOption tunes MarkComplete and MarkCancelled.
type CompletionOption func(*completionOptions)

// KeepSlots leaves the slots in flight untouched when resolving.
func KeepSlots() CompletionOption {
	return func(o *completionOptions) { o.keepSlots = true }
}

// MarkComplete resolves the skill as complete. The normalized value of every
// slot in flight, hidden ones included, is recorded on the resolver before
// the slot list is cleared.
func (r *SkillResponse) MarkComplete(metadata map[string]any, opts ...CompletionOption) {
	r.resolve(ResolverComplete, metadata, opts)
}

// MarkCancelled resolves the skill as cancelled.
func (r *SkillResponse) MarkCancelled(metadata map[string]any, opts ...CompletionOption) {
	r.resolve(ResolverCancel, metadata, opts)
}

func (r *SkillResponse) resolve(t ResolverType, metadata map[string]any, opts []CompletionOption) {
	var o completionOptions
	for _, opt := range opts {
		opt(&o)
	}
	r.Resolver = &Resolver{Type: t, Result: metadata, Slots: r.SlotsInFlight.Snapshot()}
	if !o.keepSlots {
		r.SlotsInFlight.Clear()
	}
}

// IsCompleteOrCancelled reports whether the skill reached a terminal outcome.
func (r *SkillResponse) IsCompleteOrCancelled() bool {
	if r.Resolver == nil {
		return false
	}
	return r.Resolver.Type == ResolverComplete || r.Resolver.Type == ResolverCancel
}

// Absorb merges a sub-skill's response into r: variable writes and deletes,
// the resolver verbatim, every non-slot item, and the sub-skill's slots in
// flight, which replace r's own.
func (r *SkillResponse) Absorb(sub *SkillResponse) {
	sub.local.applyTo(r.local)
	sub.session.applyTo(r.session)
	r.Resolver = sub.Resolver
	for _, item := range sub.items {
		if item.Type() == ResponseTypeSlots {
			continue
		}
		r.items = append(r.items, item)
	}
	if sub.SlotsInFlight != nil {
		r.SlotsInFlight = sub.SlotsInFlight
	} else {
		r.SlotsInFlight = NewSlotsInFlight(ConfirmationNone)
	}
}

type wireSlotsItem struct {
	ResponseType string           `json:"response_type"`
	Slots        []*Slot          `json:"slots"`
	Confirmation ConfirmationMode `json:"confirmation,omitempty"`
}

type wireResponse struct {
	Output struct {
		Generic []any `json:"generic"`
	} `json:"output"`
	State    State     `json:"state"`
	Resolver *Resolver `json:"resolver,omitempty"`
}

// MarshalJSON renders the orchestrator wire format: generic items followed
// by one slots item, then state and resolver.
func (r *SkillResponse) MarshalJSON() ([]byte, error) {
	var w wireResponse
	w.Output.Generic = make([]any, 0, len(r.items)+1)
	for _, item := range r.items {
		w.Output.Generic = append(w.Output.Generic, item)
	}
	slots := r.SlotsInFlight
	if slots == nil {
		slots = NewSlotsInFlight(ConfirmationNone)
	}
	item := wireSlotsItem{ResponseType: ResponseTypeSlots, Slots: slots.Slots}
	if item.Slots == nil {
		item.Slots = []*Slot{}
	}
	if slots.Confirmation == ConfirmationRequired {
		item.Confirmation = ConfirmationRequired
	}
	w.Output.Generic = append(w.Output.Generic, item)
	w.State = r.State()
	if w.State.LocalVariables == nil {
		w.State.LocalVariables = map[string]any{}
	}
	if w.State.SessionVariables == nil {
		w.State.SessionVariables = map[string]any{}
	}
	w.Resolver = r.Resolver
	return json.Marshal(w)
}
