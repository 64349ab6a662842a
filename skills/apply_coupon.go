package skills

import (
	"context"
	"fmt"

	"github.com/BaSui01/convskills/oms"
	"github.com/BaSui01/convskills/skill"
	"go.uber.org/zap"
)

// SlotPromotionID collects the coupon code.
const SlotPromotionID = "PromotionId"

var couponModifications = []string{"PRICE", "CHANGE_PROMOTION"}

// appeasementNote is attached when the coupon is an appeasement.
var appeasementNote = map[string]any{
	"NoteText":     "Appeasement provided due to bad customer experience",
	"Priority":     0,
	"ReasonCode":   "YCD_CUSTOMER_APPEASE",
	"VisibleToAll": "Y",
}

// ApplyCoupon applies an order-level coupon to an order found through
// lookup-order. The gathered values are confirmed by the user before the
// coupon is applied.
type ApplyCoupon struct {
	api    OrderAPI
	lookup *LookupOrder
}

// NewApplyCoupon creates the apply-coupon behavior.
func NewApplyCoupon(api OrderAPI) *ApplyCoupon {
	return &ApplyCoupon{
		api: api,
		lookup: NewLookupOrder(api, LookupOptions{
			AdditionalInput: modificationsInput(couponModifications...),
			StopAtLookup:    true,
		}),
	}
}

// Definition declares apply-coupon on top of the lookup-order declaration.
func (a *ApplyCoupon) Definition(lookup *skill.Declaration) skill.Definition {
	return skill.Definition{
		SkillID:      ApplyCouponSkillID,
		Parent:       lookup,
		Slots:        []skill.SlotDecl{{Name: SlotPromotionID}},
		Confirmation: skill.ConfirmationRequired,
		Behavior:     a,
	}
}

// InitializeSlotsInFlight prepares the lookup and the current order.
func (a *ApplyCoupon) InitializeSlotsInFlight(ctx context.Context, t *skill.Turn) error {
	if err := a.lookup.InitializeSlotsInFlight(ctx, t); err != nil {
		return err
	}
	prepareCurrentOrder(t)
	return nil
}

// PostSlotStateChange validates the coupon against the current order,
// looking the order up first when there is none yet.
func (a *ApplyCoupon) PostSlotStateChange(ctx context.Context, t *skill.Turn) error {
	processed, err := a.processCurrentOrder(ctx, t)
	if err != nil || processed {
		return err
	}
	a.lookup.lookup(ctx, t)
	if t.IsCompleteOrCancelled() {
		return nil
	}
	_, err = a.processCurrentOrder(ctx, t)
	return err
}

func (a *ApplyCoupon) processCurrentOrder(ctx context.Context, t *skill.Turn) (bool, error) {
	order := currentOrder(t)
	if order == nil {
		return false, nil
	}
	allowed, err := a.canApplyCoupon(ctx, t, order)
	if err != nil {
		return true, err
	}
	if !allowed {
		t.AddText(t.String("actionResponses.notAllowed", order))
		t.MarkComplete(map[string]any{"promotionApplied": false, "modificationAllowed": false})
		deleteCurrentOrder(t)
		return true, nil
	}

	if promo := t.CurrentSlotValue(SlotPromotionID); !skill.IsVoid(promo) {
		if err := a.validateCoupon(ctx, t, order, fmt.Sprint(promo)); err != nil {
			return true, err
		}
	}
	t.SetLocalVariable(VarUseCurrentOrder, true)
	t.SetSlotStringValue(SlotOrderNo, fmt.Sprint(order["OrderNo"]))
	t.SetSlotStringValue(SlotEnterpriseCode, fmt.Sprint(order["EnterpriseCode"]))
	return true, nil
}

// canApplyCoupon evaluates the PRICE and CHANGE_PROMOTION rules once per
// conversation and remembers the answer.
func (a *ApplyCoupon) canApplyCoupon(ctx context.Context, t *skill.Turn, order map[string]any) (bool, error) {
	if v, ok := t.LocalVariable(ApplyCouponSkillID).(bool); ok {
		return v, nil
	}
	var allowed bool
	if len(oms.Modifications(order, couponModifications...)) == len(couponModifications) {
		allowed = oms.ModificationAllowed(order, couponModifications...)
	} else {
		var err error
		allowed, err = a.api.IsModificationAllowed(ctx, credentials(t), fmt.Sprint(order["OrderHeaderKey"]), couponModifications...)
		if err != nil {
			return false, fmt.Errorf("check coupon rules: %w", err)
		}
	}
	t.SetLocalVariable(ApplyCouponSkillID, allowed)
	return allowed, nil
}

// validateCoupon flags the coupon slot when OMS rejects the code. Each code
// is validated once.
func (a *ApplyCoupon) validateCoupon(ctx context.Context, t *skill.Turn, order map[string]any, promo string) error {
	key := "coupon-" + promo
	valid, ok := t.LocalVariable(key).(bool)
	if !ok {
		var err error
		valid, err = a.api.ValidateCoupon(ctx, credentials(t), promo, order)
		if err != nil {
			return fmt.Errorf("validate coupon: %w", err)
		}
		t.SetLocalVariable(key, valid)
	}
	if !valid {
		if slot := t.ResponseSlot(SlotPromotionID); slot != nil {
			slot.SetError(t.SlotError(SlotPromotionID, "invalid", map[string]any{"PromotionId": promo}))
		}
	}
	return nil
}

// OnConfirm applies the coupon.
func (a *ApplyCoupon) OnConfirm(ctx context.Context, t *skill.Turn) error {
	order := currentOrder(t)
	promo := fmt.Sprint(t.CurrentSlotValue(SlotPromotionID))
	values := map[string]any{"PromotionId": promo, "OrderNo": order["OrderNo"]}

	var result map[string]any
	if order == nil {
		message := t.String("actionResponses.failed", values)
		t.AddText(message)
		t.MarkComplete(map[string]any{"promotionApplied": false, "failed": true, "message": message})
		return nil
	}

	in := oms.ApplyCouponInput{OrderHeaderKey: fmt.Sprint(order["OrderHeaderKey"]), PromotionID: promo}
	if v, _ := t.FromSessionOrContext(VarApplyCouponAsAppeasement); v == true || v == "true" {
		in.Note = appeasementNote
	}
	applied, err := a.api.ApplyCoupon(ctx, credentials(t), in)
	switch {
	case err != nil:
		t.Logger().Error("failed to apply coupon", zap.String("promotion_id", promo), zap.Error(err))
		message := t.String("actionResponses.failed", values)
		t.AddText(message)
		result = map[string]any{"promotionApplied": false, "failed": true, "message": message}
	case applied:
		t.AddText(t.String("actionResponses.couponApplied", values))
		result = map[string]any{"promotionApplied": true}
	default:
		t.AddText(t.String("actionResponses.couponNotApplied", values))
		result = map[string]any{"promotionApplied": false}
	}

	t.AddItem(refreshTabItem(order))
	deleteCurrentOrder(t)
	t.DeleteLocalVariable(VarUseCurrentOrder)
	t.MarkComplete(result)
	return nil
}

// OnCancel completes without applying anything.
func (a *ApplyCoupon) OnCancel(_ context.Context, t *skill.Turn) error {
	t.AddText(t.String("actionResponses.cancelled", nil))
	deleteCurrentOrder(t)
	t.DeleteLocalVariable(VarUseCurrentOrder)
	t.MarkComplete(map[string]any{"promotionApplied": false, "userCancelled": true})
	return nil
}
