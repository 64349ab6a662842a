package skill

import (
	"fmt"
	"sort"
	"sync"

	"github.com/BaSui01/convskills/types"
	"go.uber.org/zap"
)

// Registry holds every skill declaration known to the process. It is filled
// once at startup and read concurrently afterwards.
type Registry struct {
	decls  map[string]*Declaration
	logger *zap.Logger
	mu     sync.RWMutex
}

// NewRegistry creates an empty declaration registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		decls:  make(map[string]*Declaration),
		logger: logger.With(zap.String("component", "skill_registry")),
	}
}

// Register adds declarations. Registering the same id twice is an error.
func (r *Registry) Register(decls ...*Declaration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range decls {
		if d == nil {
			return types.NewError(types.ErrMalformedDeclaration, "nil declaration")
		}
		if _, exists := r.decls[d.id]; exists {
			return types.NewError(types.ErrMalformedDeclaration,
				fmt.Sprintf("skill %s already registered", d.id)).WithSkill(d.id)
		}
		r.decls[d.id] = d
		r.logger.Debug("skill registered",
			zap.String("skill_id", d.id),
			zap.Strings("chain", d.bundleIDs),
			zap.Int("slots", len(d.slots)),
			zap.String("strategy", d.strategy.String()))
	}
	return nil
}

// Lookup returns the declaration for id.
func (r *Registry) Lookup(id string) (*Declaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decls[id]
	return d, ok
}

// IDs returns the registered skill ids in lexical order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.decls))
	for id := range r.decls {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
