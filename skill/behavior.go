package skill

import "context"

// SlotChangeHandler reacts to one changed slot. incoming is the slot as the
// orchestrator reported it; inFlight is the outgoing slot, already carrying
// the incoming value, which the handler may rewrite, clear or flag.
type SlotChangeHandler func(ctx context.Context, t *Turn, incoming, inFlight *Slot) error

// A skill's behavior is any value implementing a subset of the interfaces
// below. Derived skills reuse a base skill by holding (or embedding) the
// base behavior and calling into it.

// SlotsInitializer runs before incoming values are merged, on every turn.
type SlotsInitializer interface {
	InitializeSlotsInFlight(ctx context.Context, t *Turn) error
}

// PostSlotChanger runs after all changed slots were dispatched, unless the
// skill already reached a terminal outcome.
type PostSlotChanger interface {
	PostSlotStateChange(ctx context.Context, t *Turn) error
}

// DefaultSlotChanger replaces the engine's default handler for slots that
// declare none.
type DefaultSlotChanger interface {
	DefaultSlotChange(ctx context.Context, t *Turn, incoming, inFlight *Slot) error
}

// Confirmer receives confirmation answers. When the turn carries a
// confirmation event it takes precedence over every strategy.
type Confirmer interface {
	OnConfirm(ctx context.Context, t *Turn) error
	OnCancel(ctx context.Context, t *Turn) error
}

// PassThrougher handles the whole turn with access to conversation memory.
type PassThrougher interface {
	PassThrough(ctx context.Context, t *Turn) error
}

// Otherwiser handles the whole turn without the slot-change algorithm.
type Otherwiser interface {
	Otherwise(ctx context.Context, t *Turn) error
}

// Strategy selects how a turn is processed.
type Strategy int

const (
	// StrategyAuto picks pass-through, then otherwise, then slot-change,
	// depending on what the behavior implements.
	StrategyAuto Strategy = iota
	StrategySlotChange
	StrategyPassThrough
	StrategyOtherwise
)

func (s Strategy) String() string {
	switch s {
	case StrategySlotChange:
		return "slot_change"
	case StrategyPassThrough:
		return "pass_through"
	case StrategyOtherwise:
		return "otherwise"
	default:
		return "auto"
	}
}

func resolveStrategy(requested Strategy, behavior any) (Strategy, bool) {
	_, passThru := behavior.(PassThrougher)
	_, otherwise := behavior.(Otherwiser)
	switch requested {
	case StrategyPassThrough:
		return requested, passThru
	case StrategyOtherwise:
		return requested, otherwise
	case StrategySlotChange:
		return requested, true
	}
	switch {
	case passThru:
		return StrategyPassThrough, true
	case otherwise:
		return StrategyOtherwise, true
	default:
		return StrategySlotChange, true
	}
}
