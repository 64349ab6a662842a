package skill

import (
	"fmt"

	"github.com/BaSui01/convskills/types"
)

// SlotDecl declares one slot of a skill.
type SlotDecl struct {
	Name string
	Type SlotType
	// Hidden slots are never shown to the user but are still evaluated and snapshotted.
	Hidden bool
	// PromptKey overrides the "<Name>.prompt" string key.
	PromptKey string
	// ErrorTemplateKey overrides the "<Name>.errorTemplate" string key.
	ErrorTemplateKey string
}

// Definition is the input of Declare.
type Definition struct {
	SkillID string
	// Parent is the declaration this skill builds on, or nil.
	Parent       *Declaration
	Slots        []SlotDecl
	Confirmation ConfirmationMode
	Strategy     Strategy
	// Handlers maps slot names (own or inherited) to change handlers.
	Handlers map[string]SlotChangeHandler
	// Behavior implements the optional hook interfaces. When nil the
	// parent's behavior is used.
	Behavior any
}

// Declaration is the immutable, consolidated description of a skill and
// its ancestor chain.
type Declaration struct {
	id           string
	parent       *Declaration
	slots        []SlotDecl
	confirmation ConfirmationMode
	strategy     Strategy
	handlers     map[string]SlotChangeHandler
	bundleIDs    []string
	behavior     any
}

// Declare consolidates def with its ancestors. Slots are concatenated base
// first without reordering or de-duplication, confirmation is required when
// any level requires it and handlers are resolved closest-derived first.
func Declare(def Definition) (*Declaration, error) {
	if def.SkillID == "" {
		return nil, malformed("", "skill id is empty")
	}

	d := &Declaration{
		id:           def.SkillID,
		parent:       def.Parent,
		confirmation: def.Confirmation,
		handlers:     make(map[string]SlotChangeHandler),
		behavior:     def.Behavior,
	}
	if d.confirmation == "" {
		d.confirmation = ConfirmationNone
	}

	if p := def.Parent; p != nil {
		for anc := p; anc != nil; anc = anc.parent {
			if anc.id == def.SkillID {
				return nil, malformed(def.SkillID, "skill appears twice in its own ancestor chain")
			}
		}
		d.slots = append(d.slots, p.slots...)
		d.bundleIDs = append(d.bundleIDs, p.bundleIDs...)
		for name, h := range p.handlers {
			d.handlers[name] = h
		}
		if p.confirmation == ConfirmationRequired {
			d.confirmation = ConfirmationRequired
		}
		if d.behavior == nil {
			d.behavior = p.behavior
		}
	}
	d.bundleIDs = append(d.bundleIDs, def.SkillID)

	for _, s := range def.Slots {
		if s.Name == "" {
			return nil, malformed(def.SkillID, "slot with empty name")
		}
		if s.Type == "" {
			s.Type = SlotTypeString
		}
		if !s.Type.Valid() {
			return nil, malformed(def.SkillID, fmt.Sprintf("slot %q has unknown type %q", s.Name, s.Type))
		}
		d.slots = append(d.slots, s)
	}

	for name, h := range def.Handlers {
		if h == nil {
			return nil, malformed(def.SkillID, fmt.Sprintf("nil handler for slot %q", name))
		}
		if !d.hasSlot(name) {
			return nil, malformed(def.SkillID, fmt.Sprintf("handler for undeclared slot %q", name))
		}
		d.handlers[name] = h
	}

	if d.confirmation != ConfirmationNone && d.confirmation != ConfirmationRequired {
		return nil, malformed(def.SkillID, fmt.Sprintf("unknown confirmation mode %q", d.confirmation))
	}

	strategy, ok := resolveStrategy(def.Strategy, d.behavior)
	if !ok {
		return nil, malformed(def.SkillID, fmt.Sprintf("behavior does not implement the %s strategy", def.Strategy))
	}
	d.strategy = strategy

	return d, nil
}

// MustDeclare is Declare for static registrations; it panics on error.
func MustDeclare(def Definition) *Declaration {
	d, err := Declare(def)
	if err != nil {
		panic(err)
	}
	return d
}

func malformed(skillID, msg string) error {
	return types.NewError(types.ErrMalformedDeclaration, msg).WithSkill(skillID)
}

func (d *Declaration) hasSlot(name string) bool {
	for _, s := range d.slots {
		if s.Name == name {
			return true
		}
	}
	return false
}

// ID returns the skill id.
func (d *Declaration) ID() string { return d.id }

// Parent returns the declaration this skill builds on.
func (d *Declaration) Parent() *Declaration { return d.parent }

// Slots returns the consolidated slot list, base first.
func (d *Declaration) Slots() []SlotDecl { return append([]SlotDecl(nil), d.slots...) }

// Confirmation returns the effective confirmation mode.
func (d *Declaration) Confirmation() ConfirmationMode { return d.confirmation }

// Strategy returns the resolved orchestration strategy.
func (d *Declaration) Strategy() Strategy { return d.strategy }

// BundleIDs returns the skill ids of the chain, most-base first.
func (d *Declaration) BundleIDs() []string { return append([]string(nil), d.bundleIDs...) }

// Handler returns the handler resolved for a slot name.
func (d *Declaration) Handler(name string) (SlotChangeHandler, bool) {
	h, ok := d.handlers[name]
	return h, ok
}

// Behavior returns the hook implementation.
func (d *Declaration) Behavior() any { return d.behavior }
