package skills

import (
	"context"
	"fmt"

	"github.com/BaSui01/convskills/oms"
	"github.com/BaSui01/convskills/skill"
	"go.uber.org/zap"
)

// SlotConfirmCancel asks the user to confirm the cancellation.
const SlotConfirmCancel = "ConfirmCancelAction"

const modificationCancel = "CANCEL"

// CancelOrder cancels an order found through lookup-order.
//
// The current order of the conversation is only considered when the
// caller set useCurrentOrderInContext. Cancellation must be allowed by the
// order's CANCEL modification rule.
type CancelOrder struct {
	api    OrderAPI
	lookup *LookupOrder
}

// NewCancelOrder creates the cancel behavior on top of a lookup that asks
// OMS for the CANCEL rule and keeps the skill open after the lookup.
func NewCancelOrder(api OrderAPI) *CancelOrder {
	return &CancelOrder{
		api: api,
		lookup: NewLookupOrder(api, LookupOptions{
			AdditionalInput: modificationsInput(modificationCancel),
			StopAtLookup:    true,
		}),
	}
}

// Definition declares cancel-order on top of the lookup-order declaration.
func (c *CancelOrder) Definition(lookup *skill.Declaration) skill.Definition {
	return skill.Definition{
		SkillID: CancelOrderSkillID,
		Parent:  lookup,
		Slots:   []skill.SlotDecl{{Name: SlotConfirmCancel, Type: skill.SlotTypeConfirmation}},
		Handlers: map[string]skill.SlotChangeHandler{
			SlotConfirmCancel: c.onConfirmCancel,
		},
		Behavior: c,
	}
}

// InitializeSlotsInFlight prepares the lookup and forgets the current order
// unless the caller allowed using it.
func (c *CancelOrder) InitializeSlotsInFlight(ctx context.Context, t *skill.Turn) error {
	if err := c.lookup.InitializeSlotsInFlight(ctx, t); err != nil {
		return err
	}
	prepareCurrentOrder(t)
	return nil
}

// PostSlotStateChange checks the current order, looking it up first when
// there is none yet.
func (c *CancelOrder) PostSlotStateChange(ctx context.Context, t *skill.Turn) error {
	processed, err := c.processCurrentOrder(ctx, t)
	if err != nil || processed {
		return err
	}
	c.lookup.lookup(ctx, t)
	if t.IsCompleteOrCancelled() {
		return nil
	}
	_, err = c.processCurrentOrder(ctx, t)
	return err
}

func (c *CancelOrder) processCurrentOrder(ctx context.Context, t *skill.Turn) (bool, error) {
	order := currentOrder(t)
	if order == nil {
		return false, nil
	}
	allowed, err := c.isCancelAllowed(ctx, t, order)
	if err != nil {
		return true, err
	}

	if !allowed {
		deleteCurrentOrder(t)
		t.AddText(t.String("actionResponses.notAllowed", order))
		t.MarkComplete(map[string]any{"orderCancelled": false, "modificationAllowed": false})
		return true, nil
	}

	t.SetLocalVariable(VarUseCurrentOrder, true)
	t.SetSlotStringValue(SlotOrderNo, fmt.Sprint(order["OrderNo"]))
	t.SetSlotStringValue(SlotEnterpriseCode, fmt.Sprint(order["EnterpriseCode"]))
	t.SetSlotStringValue(SlotConfirmCancel, "")
	t.SetSlotPrompt(SlotConfirmCancel, "", order)
	return true, nil
}

// isCancelAllowed evaluates the CANCEL rule once per order and remembers the
// answer in a local variable.
func (c *CancelOrder) isCancelAllowed(ctx context.Context, t *skill.Turn, order map[string]any) (bool, error) {
	ohk := fmt.Sprint(order["OrderHeaderKey"])
	key := modificationCancel + "-" + ohk
	if v, ok := t.LocalVariable(key).(bool); ok {
		return v, nil
	}

	var allowed bool
	if len(oms.Modifications(order, modificationCancel)) > 0 {
		allowed = oms.ModificationAllowed(order, modificationCancel)
	} else {
		var err error
		allowed, err = c.api.IsModificationAllowed(ctx, credentials(t), ohk, modificationCancel)
		if err != nil {
			return false, fmt.Errorf("check cancel rule: %w", err)
		}
	}
	t.SetLocalVariable(key, allowed)
	return allowed, nil
}

func (c *CancelOrder) onConfirmCancel(ctx context.Context, t *skill.Turn, incoming, _ *skill.Slot) error {
	order := currentOrder(t)
	var result map[string]any

	switch {
	case order == nil:
		message := t.String("actionResponses.cancellationFailed", nil)
		t.AddText(message)
		result = map[string]any{"orderCancelled": false, "failed": true, "message": message}
	case incoming.NormalizedString() == "yes":
		if _, err := c.api.CancelOrder(ctx, credentials(t), fmt.Sprint(order["OrderHeaderKey"])); err != nil {
			t.Logger().Error("failed to cancel order", zap.Any("order_no", order["OrderNo"]), zap.Error(err))
			message := t.String("actionResponses.cancellationFailed", order)
			t.AddText(message)
			result = map[string]any{"orderCancelled": false, "failed": true, "message": message}
			break
		}
		t.AddText(t.String("actionResponses.cancellationSuccessful", order))
		result = map[string]any{"orderCancelled": true}
	default:
		t.AddText(t.String("actionResponses.actionCancelled", order))
		result = map[string]any{"orderCancelled": false, "userCancelled": true}
	}

	if order != nil {
		t.AddItem(refreshTabItem(order))
	}
	deleteCurrentOrder(t)
	t.DeleteLocalVariable(VarUseCurrentOrder)
	t.MarkComplete(result)
	return nil
}

// modificationsInput asks getCompleteOrderDetails for the given rules.
func modificationsInput(modTypes ...string) map[string]any {
	mods := make([]any, len(modTypes))
	for i, m := range modTypes {
		mods[i] = map[string]any{"ModificationType": m}
	}
	return map[string]any{"Modifications": map[string]any{"Modification": mods}}
}

// prepareCurrentOrder keeps the current order only when the caller allowed
// acting on it; the OMS context's order is adopted into the session then.
func prepareCurrentOrder(t *skill.Turn) {
	if !canUseCurrentOrder(t) {
		deleteCurrentOrder(t)
		return
	}
	if currentOrder(t) != nil {
		return
	}
	if v, src := t.FromSessionOrContext(VarCurrentOrder); src == skill.VarFromContext {
		if order := asMap(v); len(order) > 0 {
			setCurrentOrder(t, order)
		}
	}
}
