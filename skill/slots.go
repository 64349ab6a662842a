package skill

// ConfirmationMode controls whether the orchestrator asks the user to
// confirm all gathered values before the skill acts.
type ConfirmationMode string

const (
	ConfirmationNone     ConfirmationMode = "none"
	ConfirmationRequired ConfirmationMode = "required"
)

// SlotsInFlight is the ordered set of slots a skill is currently asking for.
// Order is the priority in which unfilled slots are surfaced.
type SlotsInFlight struct {
	Slots        []*Slot          `json:"slots"`
	Confirmation ConfirmationMode `json:"confirmation,omitempty"`
}

// NewSlotsInFlight creates a slot set with the given confirmation mode.
func NewSlotsInFlight(mode ConfirmationMode, slots ...*Slot) *SlotsInFlight {
	if mode == "" {
		mode = ConfirmationNone
	}
	return &SlotsInFlight{Slots: slots, Confirmation: mode}
}

// Get returns the slot named name, or nil.
func (s *SlotsInFlight) Get(name string) *Slot {
	if s == nil {
		return nil
	}
	for _, slot := range s.Slots {
		if slot.Name == name {
			return slot
		}
	}
	return nil
}

// Add appends slot.
func (s *SlotsInFlight) Add(slot *Slot) {
	s.Slots = append(s.Slots, slot)
}

// Remove drops every slot whose name is listed and reports how many were removed.
func (s *SlotsInFlight) Remove(names ...string) int {
	if s == nil || len(names) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	kept := s.Slots[:0]
	removed := 0
	for _, slot := range s.Slots {
		if _, ok := drop[slot.Name]; ok {
			removed++
			continue
		}
		kept = append(kept, slot)
	}
	for i := len(kept); i < len(s.Slots); i++ {
		s.Slots[i] = nil
	}
	s.Slots = kept
	return removed
}

// Clear empties the slot list.
func (s *SlotsInFlight) Clear() {
	s.Slots = []*Slot{}
}

// Names returns slot names in order.
func (s *SlotsInFlight) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Slots))
	for i, slot := range s.Slots {
		names[i] = slot.Name
	}
	return names
}

// Snapshot maps every slot, hidden ones included, to its normalized value.
func (s *SlotsInFlight) Snapshot() map[string]any {
	out := make(map[string]any)
	if s == nil {
		return out
	}
	for _, slot := range s.Slots {
		out[slot.Name] = slot.Normalized()
	}
	return out
}

// Clone deep-copies the slot set.
func (s *SlotsInFlight) Clone() *SlotsInFlight {
	if s == nil {
		return nil
	}
	c := &SlotsInFlight{Confirmation: s.Confirmation, Slots: make([]*Slot, len(s.Slots))}
	for i, slot := range s.Slots {
		c.Slots[i] = slot.Clone()
	}
	return c
}
