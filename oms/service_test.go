package oms

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/convskills/internal/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClient records calls and answers from canned responses keyed by the
// invoked api or getPage name.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]map[string]any
	err       error
	pages     []PageAPI
	invokes   []map[string]any
	paging    []*Pagination
}

func (f *fakeClient) InvokeAPI(_ context.Context, _ Credentials, api string, body any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := body.(map[string]any); ok {
		f.invokes = append(f.invokes, b)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.responses[api], nil
}

func (f *fakeClient) GetPage(_ context.Context, _ Credentials, page PageAPI, pagination *Pagination) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, page)
	f.paging = append(f.paging, pagination)
	if f.err != nil {
		return nil, f.err
	}
	return f.responses[page.Name], nil
}

func (f *fakeClient) pageCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pages)
}

var creds = Credentials{JWT: "tok", UserID: "admin"}

func TestService_OrganizationList(t *testing.T) {
	tests := []struct {
		name string
		list any
		want []Organization
	}{
		{
			name: "many",
			list: []any{
				map[string]any{"OrganizationCode": "Matrix-R", "OrganizationName": "Matrix Retail"},
				map[string]any{"OrganizationCode": "Aurora", "OrganizationName": "Aurora Corp"},
			},
			want: []Organization{{ID: "Matrix-R", Label: "Matrix Retail"}, {ID: "Aurora", Label: "Aurora Corp"}},
		},
		{
			name: "single object",
			list: map[string]any{"OrganizationCode": "Matrix-R", "OrganizationName": "Matrix Retail"},
			want: []Organization{{ID: "Matrix-R", Label: "Matrix Retail"}},
		},
		{name: "none", list: nil, want: []Organization{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClient{responses: map[string]map[string]any{
				"getOrganizationList": {"Output": map[string]any{
					"OrganizationList": map[string]any{"Organization": tt.list},
				}},
			}}
			svc := NewService(fc, nil, zap.NewNop())

			got, err := svc.OrganizationList(context.Background(), creds)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			input := fc.pages[0].Input.(map[string]any)["Organization"].(map[string]any)
			assert.Equal(t, map[string]any{"UserId": "admin"}, input["DataAccessFilter"])
			assert.NotEmpty(t, fc.pages[0].Template)
		})
	}
}

func TestService_OrganizationList_Cached(t *testing.T) {
	mr := miniredis.RunT(t)
	m, err := cache.NewManager(cache.Config{Addr: mr.Addr(), KeyPrefix: "test:", MaxRetries: -1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	fc := &fakeClient{responses: map[string]map[string]any{
		"getOrganizationList": {"Output": map[string]any{"OrganizationList": map[string]any{
			"Organization": map[string]any{"OrganizationCode": "Matrix-R", "OrganizationName": "Matrix Retail"},
		}}},
	}}
	svc := NewService(fc, nil, nil, WithCache(m, time.Minute))
	ctx := context.Background()

	for range 3 {
		got, err := svc.OrganizationList(ctx, creds)
		require.NoError(t, err)
		assert.Equal(t, []Organization{{ID: "Matrix-R", Label: "Matrix Retail"}}, got)
	}
	assert.Equal(t, 1, fc.pageCalls())
	assert.True(t, mr.Exists("test:oms:organizations:admin"))

	mr.FastForward(2 * time.Minute)
	_, err = svc.OrganizationList(ctx, creds)
	require.NoError(t, err)
	assert.Equal(t, 2, fc.pageCalls(), "expired entries are reloaded")
}

func TestService_OrderDetails(t *testing.T) {
	fc := &fakeClient{responses: map[string]map[string]any{
		"getCompleteOrderDetails": {"Output": map[string]any{"Order": map[string]any{"OrderNo": "Y100"}}},
	}}
	svc := NewService(fc, nil, nil)

	out, err := svc.OrderDetails(context.Background(), creds,
		map[string]any{"OrderNo": "Y100", "EnterpriseCode": "Matrix-R"}, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Order": map[string]any{"OrderNo": "Y100"}}, out)

	order := fc.pages[0].Input.(map[string]any)["Order"].(map[string]any)
	assert.Equal(t, "0001", order["DocumentType"])
	assert.Equal(t, "Y100", order["OrderNo"])

	fc.responses["getCompleteOrderDetails"] = map[string]any{}
	_, err = svc.OrderDetails(context.Background(), creds, map[string]any{"OrderNo": "Y100"}, "")
	assert.Error(t, err, "a response without output is an upstream error")
}

func TestService_OrderList_MergesDefaults(t *testing.T) {
	fc := &fakeClient{responses: map[string]map[string]any{"getOrderList": {"Output": map[string]any{}}}}
	svc := NewService(fc, nil, nil)

	page := &Pagination{PageNumber: 1, PageSize: 3, PaginationStrategy: "GENERIC", Refresh: "N"}
	_, err := svc.OrderList(context.Background(), creds, map[string]any{
		"DraftOrderFlag": "",
		"ComplexQuery":   map[string]any{"And": map[string]any{"Exp": []any{"x"}}},
	}, DefaultTemplate, page)
	require.NoError(t, err)

	order := fc.pages[0].Input.(map[string]any)["Order"].(map[string]any)
	assert.Equal(t, "", order["DraftOrderFlag"])
	assert.Equal(t, 500, order["MaximumRecords"])
	assert.Equal(t, "en_US_EST", order["DisplayLocalizedFieldInLocale"])
	assert.Contains(t, order, "ComplexQuery")
	assert.Same(t, page, fc.paging[0])
}

func TestService_IsModificationAllowed(t *testing.T) {
	tests := []struct {
		name string
		mods any
		want bool
	}{
		{"allowed", []any{map[string]any{"ModificationType": "CANCEL", "ModificationAllowed": "Y"}}, true},
		{"single object", map[string]any{"ModificationType": "CANCEL", "ModificationAllowed": "Y"}, true},
		{"denied", []any{map[string]any{"ModificationType": "CANCEL", "ModificationAllowed": "N"}}, false},
		{"other types only", []any{map[string]any{"ModificationType": "HOLD", "ModificationAllowed": "Y"}}, false},
		{"missing", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClient{responses: map[string]map[string]any{
				"getCompleteOrderDetails": {"Output": map[string]any{"Order": map[string]any{
					"Modifications": map[string]any{"Modification": tt.mods},
				}}},
			}}
			svc := NewService(fc, nil, nil)

			got, err := svc.IsModificationAllowed(context.Background(), creds, "OHK1", "CANCEL")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			order := fc.pages[0].Input.(map[string]any)["Order"].(map[string]any)
			assert.Equal(t, "OHK1", order["OrderHeaderKey"])
		})
	}
}

func TestModificationAllowed_AllTypes(t *testing.T) {
	order := map[string]any{"Modifications": map[string]any{"Modification": []any{
		map[string]any{"ModificationType": "PRICE", "ModificationAllowed": "Y"},
		map[string]any{"ModificationType": "CHANGE_PROMOTION", "ModificationAllowed": "N"},
	}}}
	assert.True(t, ModificationAllowed(order, "PRICE"))
	assert.False(t, ModificationAllowed(order, "PRICE", "CHANGE_PROMOTION"))
	assert.Len(t, Modifications(order, "PRICE", "CHANGE_PROMOTION"), 2)
}

func TestService_ValidateCoupon(t *testing.T) {
	order := map[string]any{"EnterpriseCode": "Matrix-R", "PriceInfo": map[string]any{"Currency": "USD"}}
	tests := []struct {
		name string
		resp map[string]any
		want bool
	}{
		{"valid", map[string]any{"Valid": "Y"}, true},
		{"invalid rule", map[string]any{"Valid": "Y", "CouponStatusMsgCode": "YPM_RULE_INVALID"}, false},
		{"not valid", map[string]any{"Valid": "N"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClient{responses: map[string]map[string]any{"invoke/validateCoupon": tt.resp}}
			got, err := NewService(fc, nil, nil).ValidateCoupon(context.Background(), creds, "SAVE10", order)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, map[string]any{"CouponID": "SAVE10", "Currency": "USD", "OrganizationCode": "Matrix-R"}, fc.invokes[0])
		})
	}
}

func TestService_ApplyCoupon(t *testing.T) {
	fc := &fakeClient{responses: map[string]map[string]any{
		"changeOrder": {"Output": map[string]any{"Order": map[string]any{"Promotions": map[string]any{
			"Promotion": map[string]any{"PromotionId": "SAVE10", "PromotionApplied": "Y"},
		}}}},
	}}
	svc := NewService(fc, nil, nil)

	applied, err := svc.ApplyCoupon(context.Background(), creds, ApplyCouponInput{OrderHeaderKey: "OHK1", PromotionID: "SAVE10"})
	require.NoError(t, err)
	assert.True(t, applied)
	order := fc.pages[0].Input.(map[string]any)["Order"].(map[string]any)
	assert.NotContains(t, order, "Notes")

	applied, err = svc.ApplyCoupon(context.Background(), creds, ApplyCouponInput{
		OrderHeaderKey: "OHK1", PromotionID: "OTHER", Note: map[string]any{"NoteText": "sorry"},
	})
	require.NoError(t, err)
	assert.False(t, applied)
	order = fc.pages[1].Input.(map[string]any)["Order"].(map[string]any)
	assert.Equal(t, map[string]any{"Note": map[string]any{"NoteText": "sorry"}}, order["Notes"])
}

func TestService_CancelOrder_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	fc := &fakeClient{err: boom}
	_, err := NewService(fc, nil, nil).CancelOrder(context.Background(), creds, "OHK1")
	assert.ErrorIs(t, err, boom)
}
