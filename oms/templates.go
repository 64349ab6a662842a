package oms

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/BaSui01/convskills/internal/valuepath"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var embeddedTemplates embed.FS

// Template scenarios. Each scenario is one file under templates/.
const (
	ScenarioCommon       = "common"
	ScenarioLookupOrder  = "lookup-order"
	ScenarioApplyCoupon  = "apply-coupon"
	ScenarioSearchOrders = "search-orders"

	// DefaultTemplate is the entry used when a scenario has no entry for
	// the requested path.
	DefaultTemplate = "default"
)

// Templates holds the getPage output templates by scenario.
type Templates struct {
	scenarios map[string]map[string]any
}

// DefaultTemplates returns the templates compiled into the binary.
func DefaultTemplates() *Templates {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic(err)
	}
	t, err := LoadTemplates(sub)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadTemplates reads every *.yaml file at the root of fsys; the file name
// without extension is the scenario.
func LoadTemplates(fsys fs.FS) (*Templates, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	t := &Templates{scenarios: make(map[string]map[string]any, len(names))}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		if tree == nil {
			tree = map[string]any{}
		}
		t.scenarios[strings.TrimSuffix(path.Base(name), path.Ext(name))] = tree
	}
	return t, nil
}

// Template returns the template at templatePath of scenario. A missing path
// falls back to the scenario's default entry and then to an empty template.
func (t *Templates) Template(scenario, templatePath string) any {
	if templatePath == "" {
		templatePath = DefaultTemplate
	}
	tree := t.scenarios[scenario]
	if v, ok := valuepath.Get(tree, templatePath); ok && v != nil {
		return v
	}
	if v, ok := valuepath.Get(tree, DefaultTemplate); ok && v != nil {
		return v
	}
	return map[string]any{}
}

// Scenarios returns the loaded scenario names.
func (t *Templates) Scenarios() []string {
	out := make([]string, 0, len(t.scenarios))
	for name := range t.scenarios {
		out = append(out, name)
	}
	return out
}
