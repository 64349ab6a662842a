package skills

import (
	"context"

	"github.com/BaSui01/convskills/skill"
)

// SlotMinimal is the single choice of the minimal skill.
const SlotMinimal = "MinimalSkill"

// Minimal is the smallest useful skill: one entity slot, completed as soon
// as it is filled.
type Minimal struct{}

// Definition declares the minimal skill.
func (Minimal) Definition() skill.Definition {
	return skill.Definition{
		SkillID:  MinimalSkillID,
		Slots:    []skill.SlotDecl{{Name: SlotMinimal, Type: skill.SlotTypeEntity}},
		Behavior: Minimal{},
	}
}

// InitializeSlotsInFlight offers the sample choices.
func (Minimal) InitializeSlotsInFlight(_ context.Context, t *skill.Turn) error {
	if slot := t.ResponseSlot(SlotMinimal); slot != nil && slot.Schema == nil {
		slot.Schema = skill.NewEntity(SlotMinimal,
			skill.EntityValue{Label: "Option 1", Value: "option1", Synonyms: []string{"one", "first"}},
			skill.EntityValue{Label: "Option 2", Value: "option2", Synonyms: []string{"two", "second"}},
		)
	}
	return nil
}

// PostSlotStateChange completes with the chosen value.
func (Minimal) PostSlotStateChange(_ context.Context, t *skill.Turn) error {
	v := t.CurrentSlotValue(SlotMinimal)
	if skill.IsVoid(v) {
		return nil
	}
	values := map[string]any{SlotMinimal: v}
	t.AddText(t.String("actionResponses.done", values))
	t.MarkComplete(values)
	return nil
}
