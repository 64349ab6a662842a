package skills

import (
	"context"
	"strings"

	"github.com/BaSui01/convskills/skill"
	"go.uber.org/zap"
)

// VarHelpTarget remembers the skill order-help delegates to until it ends.
const VarHelpTarget = "orderHelpTarget"

// helpRoute maps utterance keywords to a skill. Earlier routes win.
type helpRoute struct {
	skillID  string
	keywords []string
}

var helpRoutes = []helpRoute{
	{skillID: CancelOrderSkillID, keywords: []string{"cancel"}},
	{skillID: ApplyCouponSkillID, keywords: []string{"coupon", "promotion", "promo"}},
	{skillID: MostRecentOrderSkillID, keywords: []string{"recent", "latest", "last"}},
	{skillID: SearchOrdersSkillID, keywords: []string{"search", "find", "customer"}},
	{skillID: LookupOrderSkillID, keywords: []string{"order"}},
}

// OrderHelp is an entry point that picks one of the order skills from the
// user's words and runs it laterally for as long as it stays open.
type OrderHelp struct{}

// Definition declares order-help.
func (OrderHelp) Definition() skill.Definition {
	return skill.Definition{
		SkillID:  OrderHelpSkillID,
		Strategy: skill.StrategyOtherwise,
		Behavior: OrderHelp{},
	}
}

// Otherwise routes the turn.
func (OrderHelp) Otherwise(ctx context.Context, t *skill.Turn) error {
	target, _ := t.LocalVariable(VarHelpTarget).(string)
	if target == "" {
		target = routeFor(t.Request().Text())
		if target == "" {
			t.AddText(t.String("help.prompt", nil))
			return nil
		}
		t.Logger().Debug("order help routed", zap.String("target", target))
		t.AddText(t.String("help.routing", map[string]any{"action": t.String("actions."+target, nil)}))
		t.SetLocalVariable(VarHelpTarget, target)
	}

	if err := t.RunLateral(ctx, target, nil); err != nil {
		return err
	}
	if t.IsCompleteOrCancelled() {
		t.DeleteLocalVariable(VarHelpTarget)
	}
	return nil
}

func routeFor(text string) string {
	words := strings.Fields(strings.ToLower(text))
	for _, r := range helpRoutes {
		for _, kw := range r.keywords {
			for _, w := range words {
				if strings.HasPrefix(w, kw) {
					return r.skillID
				}
			}
		}
	}
	return ""
}
