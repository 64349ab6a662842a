package oms

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/convskills/internal/valuepath"
	"github.com/BaSui01/convskills/types"
	"go.uber.org/zap"
)

// Cache is a read-through JSON cache, satisfied by *cache.Manager.
type Cache interface {
	Remember(ctx context.Context, key string, ttl time.Duration, dest any, load func(context.Context) (any, error)) error
}

// Organization is one enterprise the user may act on.
type Organization struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ApplyCouponInput is the input of ApplyCoupon. Note is attached to the
// order when set.
type ApplyCouponInput struct {
	OrderHeaderKey string
	PromotionID    string
	Note           map[string]any
}

// Service is the set of OMS business operations used by the skills.
type Service struct {
	client    Client
	templates *Templates
	cache     Cache
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache caches organization lists for ttl.
func WithCache(c Cache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// NewService creates the business layer over client. A nil templates uses
// DefaultTemplates.
func NewService(client Client, templates *Templates, logger *zap.Logger, opts ...ServiceOption) *Service {
	if templates == nil {
		templates = DefaultTemplates()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		client:    client,
		templates: templates,
		logger:    logger.With(zap.String("component", "oms_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// 🏢 Organizations
// =============================================================================

// OrganizationList returns the enterprises the user has data access to.
func (s *Service) OrganizationList(ctx context.Context, creds Credentials) ([]Organization, error) {
	if s.cache == nil {
		return s.fetchOrganizations(ctx, creds)
	}
	var orgs []Organization
	key := "oms:organizations:" + creds.UserID
	err := s.cache.Remember(ctx, key, s.cacheTTL, &orgs, func(ctx context.Context) (any, error) {
		return s.fetchOrganizations(ctx, creds)
	})
	return orgs, err
}

func (s *Service) fetchOrganizations(ctx context.Context, creds Credentials) ([]Organization, error) {
	res, err := s.client.GetPage(ctx, creds, PageAPI{
		Name: "getOrganizationList",
		Input: map[string]any{
			"Organization": map[string]any{
				"DataAccessFilter": map[string]any{"UserId": creds.UserID},
				"OrgRoleList": map[string]any{
					"OrgRole": []any{map[string]any{"RoleKey": "ENTERPRISE"}},
				},
			},
		},
		Template: s.templates.Template(ScenarioCommon, "getOrganizationList"),
	}, nil)
	if err != nil {
		return nil, err
	}

	raw, _ := valuepath.Get(res, "Output.OrganizationList.Organization")
	items := valuepath.Array(raw)
	orgs := make([]Organization, 0, len(items))
	for _, item := range items {
		orgs = append(orgs, Organization{
			ID:    valuepath.GetString(item, "OrganizationCode"),
			Label: valuepath.GetString(item, "OrganizationName"),
		})
	}
	s.logger.Debug("organizations fetched", zap.Int("count", len(orgs)))
	return orgs, nil
}

// =============================================================================
// 📦 Orders
// =============================================================================

// OrderDetails returns the getCompleteOrderDetails output (the map holding
// "Order") for the order identified by the given attributes. DocumentType
// defaults to sales orders.
func (s *Service) OrderDetails(ctx context.Context, creds Credentials, order map[string]any, templatePath string) (map[string]any, error) {
	input := valuepath.Merge(map[string]any{"DocumentType": "0001"}, order)
	res, err := s.client.GetPage(ctx, creds, PageAPI{
		Name:     "getCompleteOrderDetails",
		Input:    map[string]any{"Order": input},
		Template: s.templates.Template(ScenarioLookupOrder, templatePath),
	}, nil)
	if err != nil {
		return nil, err
	}
	output, ok := res["Output"].(map[string]any)
	if !ok {
		return nil, types.NewError(types.ErrUpstreamError, "getCompleteOrderDetails returned no output")
	}
	return output, nil
}

// CancelOrder cancels the whole order.
func (s *Service) CancelOrder(ctx context.Context, creds Credentials, orderHeaderKey string) (map[string]any, error) {
	return s.client.InvokeAPI(ctx, creds, "invoke/cancelOrder", map[string]any{"OrderHeaderKey": orderHeaderKey})
}

// OrderList searches orders. input is deep-merged over the defaults (newest
// first, no drafts, at most 500 records). A nil pagination uses
// DefaultPagination.
func (s *Service) OrderList(ctx context.Context, creds Credentials, input map[string]any, templatePath string, pagination *Pagination) (map[string]any, error) {
	defaults := map[string]any{
		"DisplayLocalizedFieldInLocale": "en_US_EST",
		"DraftOrderFlag":                "N",
		"MaximumRecords":                500,
		"OrderBy": map[string]any{
			"Attribute": map[string]any{"Name": "OrderDate", "Desc": true},
		},
	}
	return s.client.GetPage(ctx, creds, PageAPI{
		Name:     "getOrderList",
		Input:    map[string]any{"Order": valuepath.Merge(defaults, input)},
		Template: s.templates.Template(ScenarioSearchOrders, templatePath),
	}, pagination)
}

// IsModificationAllowed asks OMS whether every listed modification type is
// allowed on the order.
func (s *Service) IsModificationAllowed(ctx context.Context, creds Credentials, orderHeaderKey string, modTypes ...string) (bool, error) {
	mods := make([]any, len(modTypes))
	for i, m := range modTypes {
		mods[i] = map[string]any{"ModificationType": m}
	}
	res, err := s.client.GetPage(ctx, creds, PageAPI{
		Name: "getCompleteOrderDetails",
		Input: map[string]any{
			"Order": map[string]any{
				"OrderHeaderKey": orderHeaderKey,
				"Modifications":  map[string]any{"Modification": mods},
			},
		},
		Template: s.templates.Template(ScenarioCommon, "isModificationAllowed"),
	}, nil)
	if err != nil {
		return false, err
	}
	order, _ := valuepath.Get(res, "Output.Order")
	return ModificationAllowed(order, modTypes...), nil
}

// Modifications returns the order's modification rules whose type is listed.
func Modifications(order any, modTypes ...string) []map[string]any {
	wanted := make(map[string]struct{}, len(modTypes))
	for _, m := range modTypes {
		wanted[m] = struct{}{}
	}
	raw, _ := valuepath.Get(order, "Modifications.Modification")
	var out []map[string]any
	for _, item := range valuepath.Array(raw) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := wanted[fmt.Sprint(m["ModificationType"])]; ok {
			out = append(out, m)
		}
	}
	return out
}

// ModificationAllowed reports whether the order carries at least one rule
// for the listed types and every such rule allows the modification.
func ModificationAllowed(order any, modTypes ...string) bool {
	mods := Modifications(order, modTypes...)
	if len(mods) == 0 {
		return false
	}
	for _, m := range mods {
		if m["ModificationAllowed"] != "Y" {
			return false
		}
	}
	return true
}

// =============================================================================
// 🎟️ Coupons
// =============================================================================

// ValidateCoupon checks a coupon against the order's currency and enterprise.
func (s *Service) ValidateCoupon(ctx context.Context, creds Credentials, couponID string, order map[string]any) (bool, error) {
	res, err := s.client.InvokeAPI(ctx, creds, "invoke/validateCoupon", map[string]any{
		"CouponID":         couponID,
		"Currency":         valuepath.GetString(order, "PriceInfo.Currency"),
		"OrganizationCode": valuepath.GetString(order, "EnterpriseCode"),
	})
	if err != nil {
		return false, err
	}
	return res["CouponStatusMsgCode"] != "YPM_RULE_INVALID" && res["Valid"] == "Y", nil
}

// ApplyCoupon adds the promotion to the order and reports whether OMS
// applied it.
func (s *Service) ApplyCoupon(ctx context.Context, creds Credentials, in ApplyCouponInput) (bool, error) {
	order := map[string]any{
		"OrderHeaderKey": in.OrderHeaderKey,
		"Promotions": map[string]any{
			"Promotion": []any{map[string]any{"PromotionId": in.PromotionID}},
		},
	}
	if len(in.Note) > 0 {
		order["Notes"] = map[string]any{"Note": in.Note}
	}
	res, err := s.client.GetPage(ctx, creds, PageAPI{
		Name:     "changeOrder",
		Input:    map[string]any{"Order": order},
		Template: s.templates.Template(ScenarioApplyCoupon, DefaultTemplate),
	}, nil)
	if err != nil {
		return false, err
	}
	raw, _ := valuepath.Get(res, "Output.Order.Promotions.Promotion")
	for _, item := range valuepath.Array(raw) {
		if valuepath.GetString(item, "PromotionId") == in.PromotionID &&
			valuepath.GetString(item, "PromotionApplied") == "Y" {
			return true, nil
		}
	}
	return false, nil
}
