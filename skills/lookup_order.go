package skills

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/BaSui01/convskills/internal/valuepath"
	"github.com/BaSui01/convskills/oms"
	"github.com/BaSui01/convskills/skill"
	"go.uber.org/zap"
)

// Slots of the lookup-order skill.
const (
	SlotOrderNo        = "OrderNo"
	SlotEnterpriseCode = "EnterpriseCode"
)

var orderNoPattern = regexp.MustCompile(`(OM|Y|ORD|RET)(\w+|((-|_)\w+)+)`)

// LookupOptions tunes the lookup for skills that build on it. A lateral
// caller may override them per turn with the "additionalApiInput" and
// "stopAtLookup" extras.
type LookupOptions struct {
	// AdditionalInput is merged into the getCompleteOrderDetails input.
	AdditionalInput map[string]any
	// StopAtLookup leaves the skill open once the order was found.
	StopAtLookup bool
	// Template selects the output template; empty means the default.
	Template string
}

// LookupOrder finds an order by number and enterprise and makes it the
// conversation's current order.
//
// The enterprise slot is an entity whose choices are the organizations the
// user has access to, cached in the EnterpriseList session variable. The
// enterprise is prefilled from the session or OMS context once an order
// number was recognized.
type LookupOrder struct {
	api  OrderAPI
	opts LookupOptions
}

// NewLookupOrder creates the lookup behavior.
func NewLookupOrder(api OrderAPI, opts LookupOptions) *LookupOrder {
	return &LookupOrder{api: api, opts: opts}
}

// Definition declares the lookup-order skill.
func (l *LookupOrder) Definition() skill.Definition {
	return skill.Definition{
		SkillID: LookupOrderSkillID,
		Slots: []skill.SlotDecl{
			{Name: SlotOrderNo},
			{Name: SlotEnterpriseCode, Type: skill.SlotTypeEntity},
		},
		Handlers: map[string]skill.SlotChangeHandler{
			SlotOrderNo:        l.onOrderNoChange,
			SlotEnterpriseCode: l.onEnterpriseCodeChange,
		},
		Behavior: l,
	}
}

func (l *LookupOrder) options(t *skill.Turn) LookupOptions {
	o := l.opts
	extra := t.Extra()
	if in := asMap(extra["additionalApiInput"]); in != nil {
		o.AdditionalInput = valuepath.Merge(o.AdditionalInput, in)
	}
	if stop, ok := extra["stopAtLookup"].(bool); ok {
		o.StopAtLookup = stop
	}
	return o
}

// InitializeSlotsInFlight offers the user's enterprises as the choices of
// the enterprise slot.
func (l *LookupOrder) InitializeSlotsInFlight(ctx context.Context, t *skill.Turn) error {
	orgs, err := l.enterpriseList(ctx, t)
	if err != nil {
		return fmt.Errorf("load enterprise list: %w", err)
	}
	slot := t.ResponseSlot(SlotEnterpriseCode)
	if slot == nil {
		return nil
	}
	slot.Schema = enterpriseEntity(orgs)
	return nil
}

// enterpriseEntity lists the organizations as the choices of the enterprise slot.
func enterpriseEntity(orgs []oms.Organization) *skill.Entity {
	values := make([]skill.EntityValue, 0, len(orgs))
	for _, o := range orgs {
		values = append(values, skill.EntityValue{Label: o.Label, Value: o.ID, Synonyms: []string{o.Label, o.ID}})
	}
	return skill.NewEntity(SlotEnterpriseCode, values...)
}

// PostSlotStateChange fetches the order once both slots are filled.
func (l *LookupOrder) PostSlotStateChange(ctx context.Context, t *skill.Turn) error {
	l.lookup(ctx, t)
	return nil
}

// lookup fetches the order and answers with its summary. A failed lookup
// completes the skill with the failure.
func (l *LookupOrder) lookup(ctx context.Context, t *skill.Turn) {
	params := t.NormalizedSlotValues(SlotOrderNo, SlotEnterpriseCode)
	if !skill.AreAllParametersSet(params) {
		return
	}
	opts := l.options(t)

	details, err := l.api.OrderDetails(ctx, credentials(t), valuepath.Merge(params, opts.AdditionalInput), opts.Template)
	order := asMap(details["Order"])
	if err == nil && order == nil {
		err = fmt.Errorf("order %v has no details", params[SlotOrderNo])
	}
	if err != nil {
		t.Logger().Error("failed to retrieve order", zap.Any("params", params), zap.Error(err))
		message := t.String("actionResponses.notFound", params)
		t.AddText(message)
		t.MarkComplete(map[string]any{"failed": true, "message": message})
		return
	}

	addOrderSummary(t, "actionResponses.success", details, order)
	setCurrentOrder(t, order)
	if !opts.StopAtLookup {
		t.MarkComplete(map[string]any{"order": order})
	}
}

// onOrderNoChange extracts order numbers from the utterance. Several
// numbers keep all of them; none flags the slot.
func (l *LookupOrder) onOrderNoChange(_ context.Context, t *skill.Turn, incoming, inFlight *skill.Slot) error {
	value := incoming.NormalizedString()
	matches := orderNoPattern.FindAllString(value, -1)

	switch len(matches) {
	case 0:
		t.Logger().Debug("order number does not match the pattern", zap.String("value", value))
		inFlight.SetError(t.SlotError(SlotOrderNo, "notInferred", map[string]any{"value": value}))
	case 1:
		inFlight.Value = skill.StringValue(matches[0])
	default:
		all := make([]any, len(matches))
		for i, m := range matches {
			all[i] = m
		}
		inFlight.Value = &skill.SlotValue{Literal: strings.Join(matches, ","), Normalized: all}
		t.Logger().Debug("multiple order numbers found", zap.Strings("orders", matches))
	}

	if inFlight.Value != nil {
		gatherEnterpriseCode(t)
	}
	setCurrentOrder(t, nil)
	return nil
}

// onEnterpriseCodeChange accepts only enterprises from the user's list.
func (l *LookupOrder) onEnterpriseCodeChange(ctx context.Context, t *skill.Turn, incoming, inFlight *skill.Slot) error {
	value := incoming.NormalizedString()
	orgs, err := l.enterpriseList(ctx, t)
	if err != nil {
		return fmt.Errorf("load enterprise list: %w", err)
	}

	if choice, ok := enterpriseEntity(orgs).Find(value); ok {
		inFlight.Value = &skill.SlotValue{Literal: choice.Label, Normalized: choice.Value}
	} else {
		t.Logger().Debug("enterprise code is invalid", zap.String("value", value))
		inFlight.SetError(t.SlotError(SlotEnterpriseCode, "invalid", map[string]any{"value": value}))
	}
	setCurrentOrder(t, nil)
	return nil
}

// gatherEnterpriseCode prefills the enterprise from the session or context.
func gatherEnterpriseCode(t *skill.Turn) {
	slot := t.ResponseSlot(SlotEnterpriseCode)
	if slot == nil {
		return
	}
	if v, _ := t.FromSessionOrContext(VarEnterpriseCode); !skill.IsVoid(v) {
		code := fmt.Sprint(v)
		slot.Value = &skill.SlotValue{Literal: code, Normalized: code}
	}
}

// enterpriseList returns the organizations cached in the session or
// context, fetching and caching them on first use.
func (l *LookupOrder) enterpriseList(ctx context.Context, t *skill.Turn) ([]oms.Organization, error) {
	if v, _ := t.FromSessionOrContext(VarEnterpriseList); v != nil {
		items := valuepath.Array(v)
		orgs := make([]oms.Organization, 0, len(items))
		for _, item := range items {
			orgs = append(orgs, oms.Organization{
				ID:    valuepath.GetString(item, "id"),
				Label: valuepath.GetString(item, "label"),
			})
		}
		return orgs, nil
	}

	orgs, err := l.api.OrganizationList(ctx, credentials(t))
	if err != nil {
		return nil, err
	}
	t.SetSessionVariable(VarEnterpriseList, orgs)
	return orgs, nil
}
