package oms

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplates(t *testing.T) {
	tpl := DefaultTemplates()
	assert.ElementsMatch(t,
		[]string{ScenarioCommon, ScenarioLookupOrder, ScenarioApplyCoupon, ScenarioSearchOrders},
		tpl.Scenarios())

	orgs, ok := tpl.Template(ScenarioCommon, "getOrganizationList").(map[string]any)
	require.True(t, ok)
	assert.Contains(t, orgs, "OrganizationList")

	details, ok := tpl.Template(ScenarioLookupOrder, "").(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "Order")
}

func TestTemplates_Fallback(t *testing.T) {
	tpl, err := LoadTemplates(fstest.MapFS{
		"orders.yaml": {Data: []byte("default:\n  Order: {}\nsummary:\n  Order:\n    OrderNo: ''\n")},
		"empty.yaml":  {Data: []byte("")},
		"notes.txt":   {Data: []byte("ignored")},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"Order": map[string]any{"OrderNo": ""}}, tpl.Template("orders", "summary"))
	assert.Equal(t, map[string]any{"Order": map[string]any{}}, tpl.Template("orders", "missing"),
		"unknown path falls back to default")
	assert.Equal(t, map[string]any{}, tpl.Template("empty", "anything"))
	assert.Equal(t, map[string]any{}, tpl.Template("unknown", DefaultTemplate))
	assert.Len(t, tpl.Scenarios(), 2)
}

func TestLoadTemplates_Invalid(t *testing.T) {
	_, err := LoadTemplates(fstest.MapFS{"bad.yaml": {Data: []byte("default: [")}})
	assert.Error(t, err)
}
