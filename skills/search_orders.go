package skills

import (
	"context"
	"regexp"

	"github.com/BaSui01/convskills/internal/valuepath"
	"github.com/BaSui01/convskills/oms"
	"github.com/BaSui01/convskills/skill"
	"go.uber.org/zap"
)

// Slots of the search-orders skill.
const (
	SlotCustomerCriteria   = "CustomerProfileCriteria"
	SlotNumberOfOrders     = "NumberOfOrders"
	SlotIncludeDraftOrders = "IncludeDraftOrders"
)

var (
	emailPattern = regexp.MustCompile("(?i)^[\\w!#$%&'*+/=?`{|}~^-]+(?:\\.[\\w!#$%&'*+/=?`{|}~^-]+)*@(?:[A-Z0-9-]+\\.)+[A-Z]{2,6}$")
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

// presentFunc renders a non-empty search result.
type presentFunc func(ctx context.Context, t *skill.Turn, result map[string]any, params map[string]any)

// SearchOrders finds a customer's orders by email address or phone number.
// Draft orders are excluded unless the user asks for them.
type SearchOrders struct {
	api OrderAPI
	// limit pins the number of orders; 0 asks the user.
	limit   int
	present presentFunc
}

// NewSearchOrders creates the search behavior.
func NewSearchOrders(api OrderAPI) *SearchOrders {
	s := &SearchOrders{api: api}
	s.present = s.presentList
	return s
}

// Definition declares the search-orders skill.
func (s *SearchOrders) Definition() skill.Definition {
	return skill.Definition{
		SkillID: SearchOrdersSkillID,
		Slots: []skill.SlotDecl{
			{Name: SlotCustomerCriteria},
			{Name: SlotNumberOfOrders, Type: skill.SlotTypeNumber},
			{Name: SlotIncludeDraftOrders, Type: skill.SlotTypeConfirmation},
		},
		Handlers: map[string]skill.SlotChangeHandler{
			SlotCustomerCriteria:   s.onCustomerCriteriaChange,
			SlotIncludeDraftOrders: s.onIncludeDraftOrdersChange,
		},
		Behavior: s,
	}
}

// DefaultSlotChange remembers the normalized value in a local variable.
func (s *SearchOrders) DefaultSlotChange(_ context.Context, t *skill.Turn, _, inFlight *skill.Slot) error {
	t.SetLocalVariable(inFlight.Name, inFlight.Normalized())
	return nil
}

// PostSlotStateChange searches once every parameter is known.
func (s *SearchOrders) PostSlotStateChange(ctx context.Context, t *skill.Turn) error {
	params := s.parameters(t)
	if !skill.AreAllParametersSet(params) {
		return nil
	}
	result, ok := s.search(ctx, t, params)
	if ok {
		s.process(ctx, t, result, params)
	}
	return nil
}

func (s *SearchOrders) parameters(t *skill.Turn) map[string]any {
	params := map[string]any{
		"searchCriteria": t.LocalVariable(SlotCustomerCriteria),
		"numberOfOrders": t.LocalVariable(SlotNumberOfOrders),
		"includeDrafts":  t.LocalVariable(SlotIncludeDraftOrders),
	}
	if s.limit > 0 {
		params["numberOfOrders"] = s.limit
	}
	return params
}

func (s *SearchOrders) search(ctx context.Context, t *skill.Turn, params map[string]any) (map[string]any, bool) {
	size, ok := asInt(params["numberOfOrders"])
	if !ok || size <= 0 {
		size = 1
	}
	input := map[string]any{
		"DocumentType":   "0001",
		"DraftOrderFlag": draftOrderFlag(t),
		"ComplexQuery": map[string]any{
			"And": map[string]any{"Exp": []any{params["searchCriteria"]}},
		},
	}
	page := oms.DefaultPagination()
	page.PageSize = size

	result, err := s.api.OrderList(ctx, credentials(t), input, oms.DefaultTemplate, &page)
	if err != nil {
		t.Logger().Error("failed to search for orders", zap.Error(err))
		message := t.String("actionResponses.failed", nil)
		t.AddText(message)
		t.MarkComplete(map[string]any{"failed": true, "message": message})
		return nil, false
	}
	return result, true
}

func (s *SearchOrders) process(ctx context.Context, t *skill.Turn, result, params map[string]any) {
	raw, _ := valuepath.Get(result, "Output.OrderList.TotalNumberOfRecords")
	total, _ := asInt(raw)
	result["totalNumOfRecords"] = total

	if total > 0 {
		s.present(ctx, t, result, params)
		if !t.IsCompleteOrCancelled() {
			t.MarkComplete(map[string]any{"searchResponse": result})
		}
		return
	}

	if t.ResponseSlot(SlotIncludeDraftOrders) != nil && draftOrderFlag(t) == "N" {
		t.AddText(t.String("actionResponses.noResultsWithoutDrafts", params))
		if slot := t.ResponseSlot(SlotIncludeDraftOrders); slot != nil {
			slot.Value = nil
		}
		t.SetSlotPrompt(SlotIncludeDraftOrders, "askAgain", params)
		return
	}
	t.AddText(t.String("actionResponses.noResults", params))
	t.MarkComplete(map[string]any{"searchResponse": result})
}

// presentList answers with the total and the orders: a results table for
// identified users, one line per order otherwise.
func (s *SearchOrders) presentList(_ context.Context, t *skill.Turn, result, params map[string]any) {
	raw, _ := valuepath.Get(result, "Output.OrderList.Order")
	orders := valuepath.Array(raw)

	t.AddText(t.String("actionResponses.totalResults", map[string]any{"searchResponse": result, "parameters": params}))
	t.AddText(t.String("actionResponses.resultList", params))
	if credentials(t).UserID != "" {
		t.SetSessionVariable(VarOrderSearchResults, orders)
		t.AddItem(resultsTableItem())
		return
	}
	for _, o := range orders {
		t.AddText(t.String("actionResponses.order", o))
	}
}

func resultsTableItem() skill.ResponseItem {
	return skill.UserDefinedItem(map[string]any{
		"id":        "order_list",
		"type":      "results-table",
		"convSkill": true,
		"config": map[string]any{
			"columns": []any{
				map[string]any{
					"id":    "orderNo",
					"name":  "Order No",
					"route": "order-details",
					"params": map[string]any{
						"title":          "OrderNo",
						"orderNo":        "OrderNo",
						"enterprise":     "EnterpriseCode",
						"orderHeaderKey": "OrderHeaderKey",
					},
					"formatter":   "link",
					"dataBinding": "OrderNo",
				},
				map[string]any{
					"id":          "orderDate",
					"name":        "Order date",
					"format":      "L",
					"formatter":   "dateTime",
					"dataBinding": "OrderDate",
				},
				map[string]any{
					"id":          "status",
					"name":        "Status",
					"nowrap":      false,
					"dataBinding": "Status",
				},
			},
			"listVariable": VarOrderSearchResults,
		},
	})
}

// draftOrderFlag is "" (any order) when the user asked for drafts, else "N".
func draftOrderFlag(t *skill.Turn) string {
	if t.CurrentSlotValue(SlotIncludeDraftOrders) == "yes" {
		return ""
	}
	return "N"
}

// onCustomerCriteriaChange turns a phone number or email address into an
// order list query expression.
func (s *SearchOrders) onCustomerCriteriaChange(_ context.Context, t *skill.Turn, incoming, inFlight *skill.Slot) error {
	value := incoming.NormalizedString()

	var criteria any
	switch {
	case phonePattern.MatchString(value):
		criteria = map[string]any{"Name": "CustomerPhoneNo", "QryType": "EQ", "Value": value}
	case emailPattern.MatchString(value):
		criteria = map[string]any{"Name": "CustomerEMailID", "QryType": "EQ", "Value": value}
	default:
		inFlight.SetError(t.SlotError(SlotCustomerCriteria, "notInferred", map[string]any{"value": value}))
	}
	t.SetLocalVariable(SlotCustomerCriteria, criteria)
	return nil
}

// onIncludeDraftOrdersChange completes the search when the user repeats the
// previous answer.
func (s *SearchOrders) onIncludeDraftOrdersChange(_ context.Context, t *skill.Turn, _, inFlight *skill.Slot) error {
	answer := inFlight.NormalizedString()
	if prev, _ := t.LocalVariable(SlotIncludeDraftOrders).(string); prev != "" && prev == answer {
		t.MarkComplete(map[string]any{"searchComplete": true})
	}
	t.SetLocalVariable(SlotIncludeDraftOrders, answer)
	return nil
}

// =============================================================================
// 🕐 Most recent order
// =============================================================================

// MostRecentOrder narrows search-orders to the single newest order and makes
// it the conversation's current order.
type MostRecentOrder struct {
	search *SearchOrders
}

// NewMostRecentOrder creates the most-recent-order behavior.
func NewMostRecentOrder(api OrderAPI) *MostRecentOrder {
	s := &SearchOrders{api: api, limit: 1}
	s.present = presentMostRecent
	return &MostRecentOrder{search: s}
}

// Definition declares most-recent-order on top of the search-orders declaration.
func (m *MostRecentOrder) Definition(search *skill.Declaration) skill.Definition {
	return skill.Definition{
		SkillID:  MostRecentOrderSkillID,
		Parent:   search,
		Behavior: m,
	}
}

// InitializeSlotsInFlight drops the order count; it is always one.
func (m *MostRecentOrder) InitializeSlotsInFlight(_ context.Context, t *skill.Turn) error {
	t.RemoveSlot(SlotNumberOfOrders)
	return nil
}

// DefaultSlotChange delegates to search-orders.
func (m *MostRecentOrder) DefaultSlotChange(ctx context.Context, t *skill.Turn, incoming, inFlight *skill.Slot) error {
	return m.search.DefaultSlotChange(ctx, t, incoming, inFlight)
}

// PostSlotStateChange delegates to search-orders.
func (m *MostRecentOrder) PostSlotStateChange(ctx context.Context, t *skill.Turn) error {
	return m.search.PostSlotStateChange(ctx, t)
}

func presentMostRecent(_ context.Context, t *skill.Turn, result, params map[string]any) {
	raw, _ := valuepath.Get(result, "Output.OrderList.Order")
	orders := valuepath.Array(raw)
	if len(orders) == 0 {
		return
	}
	order := asMap(orders[0])
	addOrderSummary(t, "actionResponses.searchResult", map[string]any{"Order": order, "parameters": params}, order)
	setCurrentOrder(t, order)
	t.MarkComplete(map[string]any{"order": order})
}
