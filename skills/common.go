package skills

import (
	"context"
	"fmt"
	"strconv"

	"github.com/BaSui01/convskills/internal/valuepath"
	"github.com/BaSui01/convskills/oms"
	"github.com/BaSui01/convskills/skill"
)

// Skill ids.
const (
	MinimalSkillID         = "minimal"
	LookupOrderSkillID     = "lookup-order"
	CancelOrderSkillID     = "cancel-order"
	ApplyCouponSkillID     = "apply-coupon"
	SearchOrdersSkillID    = "search-orders"
	MostRecentOrderSkillID = "most-recent-order"
	OrderHelpSkillID       = "order-help"
)

// Session and local variable names shared with the OMS user interface.
const (
	VarEnterpriseList           = "EnterpriseList"
	VarEnterpriseCode           = "EnterpriseCode"
	VarCurrentOrderNo           = "currentOrderNo"
	VarCurrentOrder             = "currentOrder"
	VarUseCurrentOrder          = "useCurrentOrderInContext"
	VarOrderSearchResults       = "orderSearchResults"
	VarApplyCouponAsAppeasement = "applyCouponAsAppeasement"
)

// OrderAPI is the OMS surface the skills depend on; *oms.Service implements it.
type OrderAPI interface {
	OrganizationList(ctx context.Context, creds oms.Credentials) ([]oms.Organization, error)
	OrderDetails(ctx context.Context, creds oms.Credentials, order map[string]any, templatePath string) (map[string]any, error)
	CancelOrder(ctx context.Context, creds oms.Credentials, orderHeaderKey string) (map[string]any, error)
	ValidateCoupon(ctx context.Context, creds oms.Credentials, couponID string, order map[string]any) (bool, error)
	ApplyCoupon(ctx context.Context, creds oms.Credentials, in oms.ApplyCouponInput) (bool, error)
	OrderList(ctx context.Context, creds oms.Credentials, input map[string]any, templatePath string, pagination *oms.Pagination) (map[string]any, error)
	IsModificationAllowed(ctx context.Context, creds oms.Credentials, orderHeaderKey string, modTypes ...string) (bool, error)
}

// credentials extracts the caller's OMS identity from the turn.
func credentials(t *skill.Turn) oms.Credentials {
	return oms.CredentialsFromContext(t.Context(), t.ContextVariablesPath())
}

// =============================================================================
// 📦 Current order
// =============================================================================

// currentOrder returns the order the conversation is about. Only the
// session is consulted; see prepareCurrentOrder for the OMS context.
func currentOrder(t *skill.Turn) map[string]any {
	order := asMap(t.SessionVariable(VarCurrentOrder))
	if len(order) == 0 {
		return nil
	}
	return order
}

// setCurrentOrder records order as the conversation's current order; nil
// clears it.
func setCurrentOrder(t *skill.Turn, order map[string]any) {
	if order == nil {
		t.SetSessionVariable(VarCurrentOrder, nil)
		t.SetSessionVariable(VarCurrentOrderNo, nil)
		return
	}
	t.SetSessionVariable(VarCurrentOrder, order)
	t.SetSessionVariable(VarCurrentOrderNo, order["OrderNo"])
}

func deleteCurrentOrder(t *skill.Turn) {
	t.DeleteSessionVariable(VarCurrentOrder)
	t.DeleteSessionVariable(VarCurrentOrderNo)
}

// canUseCurrentOrder reports whether the caller allowed this skill to act on
// the current order without asking for it.
func canUseCurrentOrder(t *skill.Turn) bool {
	v, _ := t.FromSessionOrContext(VarUseCurrentOrder)
	if skill.IsVoid(v) || v == false {
		v = t.LocalVariable(VarUseCurrentOrder)
	}
	return v == true || v == "true"
}

// =============================================================================
// 🔗 UI directives
// =============================================================================

const orderDetailsRoute = "/order-details"

func orderRouteConfig(text string, order map[string]any) map[string]any {
	return map[string]any{
		"text":  text,
		"route": orderDetailsRoute,
		"params": map[string]any{
			"title":          order["OrderNo"],
			"orderNo":        order["OrderNo"],
			"enterprise":     order["EnterpriseCode"],
			"orderHeaderKey": order["OrderHeaderKey"],
		},
	}
}

// orderLinkItem renders a link to the order details page.
func orderLinkItem(text string, order map[string]any) skill.ResponseItem {
	return skill.UserDefinedItem(map[string]any{
		"convSkill": true,
		"type":      "link",
		"config":    orderRouteConfig(text, order),
	})
}

// refreshTabItem asks the UI to open the order details tab.
func refreshTabItem(order map[string]any) skill.ResponseItem {
	return skill.UserDefinedItem(map[string]any{
		"convSkill": true,
		"type":      "refreshTab",
		"config":    orderRouteConfig("", order),
	})
}

// addOrderSummary adds the literal list at path: the second literal becomes
// a link to the order, the others plain text. The order tab is refreshed
// afterwards.
func addOrderSummary(t *skill.Turn, path string, values any, order map[string]any) {
	for i, text := range t.Strings(path, values) {
		if i == 1 {
			t.AddItem(orderLinkItem(text, order))
			continue
		}
		t.AddText(text)
	}
	t.AddItem(refreshTabItem(order))
}

// =============================================================================
// 🔢 Values
// =============================================================================

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	case nil:
		return 0, false
	default:
		i, err := strconv.Atoi(fmt.Sprint(n))
		return i, err == nil
	}
}

func asMap(v any) map[string]any {
	m, _ := valuepath.Normalize(v).(map[string]any)
	return m
}
